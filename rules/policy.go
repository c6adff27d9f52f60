/*
Package rules loads the read-only rule configuration the engine runs against.

PURPOSE:
  Converts the YAML rule documents into typed, validated Go structs. A run
  loads the policy once, before any ledger is read; a broken document aborts
  the run with nothing applied.

DOCUMENTS (relative to the rules root):
  metrics/xp-decay.yml       decay.default.{half_life_days, floor_ratio}
  metrics/xp-regulatory.yml  regulatory_xp.<rule>.{label, requires_labels,
                             domains, domain, xp}
  labs/lab-unlocks.yml       labs.<lab>.{title, unlock.{xp_effective,
                             xp_regulatory, badges, domains, credits}}
  metrics/xp-rules.yml       version, levels.<level>.min_xp, badges,
                             task_rewards

YAML SCHEMA:
  regulatory_xp:
    gdpr_review:
      label: compliance:gdpr
      requires_labels: [reviewed]
      domains: [privacy]
      domain: privacy
      xp: 50

  labs:
    lab_01:
      unlock:
        xp_effective: 50
        badges: [early_adopter]
        credits: {credits: 2, eu_ects_equivalent: 0.5}

NORMALIZATION:
  - Regulatory labels, requires_labels and domains are lower-cased, since
    trigger labels are compared case-insensitively.
  - Catalogs are returned in a stable order: regulatory rules and labs by
    key, levels by (min_xp, key).
  - Missing decay values default to a 180 day half-life and a 0.4 floor.

SEE ALSO:
  - gamification/: consumes Policy
  - tasks.go: task reward lookup
*/
package rules

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// =============================================================================
// FILE LOCATIONS
// =============================================================================

const (
	DecayFile      = "metrics/xp-decay.yml"
	RegulatoryFile = "metrics/xp-regulatory.yml"
	LabsFile       = "labs/lab-unlocks.yml"
	RulesFile      = "metrics/xp-rules.yml"
)

const (
	DefaultHalfLifeDays = 180.0
	DefaultFloorRatio   = 0.4

	// SupportedVersion is the only xp-rules.yml version this engine reads.
	SupportedVersion = 1
)

// =============================================================================
// POLICY TYPES
// =============================================================================

// DecayPolicy controls the weight of decaying XP.
// A HalfLifeDays <= 0 disables decay instead of failing.
type DecayPolicy struct {
	HalfLifeDays float64
	FloorRatio   float64
}

type RegulatoryRule struct {
	Key            string
	Label          string
	RequiresLabels []string
	Domains        []string
	Domain         string
	XP             int64
}

type CreditPayout struct {
	Credits        float64
	ECTSEquivalent float64
}

// Lab is one entry of the unlock catalog. Empty requirement lists are
// trivially satisfied.
type Lab struct {
	Key           string
	Title         string
	MinEffective  int64
	MinRegulatory int64
	Badges        []string
	Domains       []string
	Credits       *CreditPayout
}

type Level struct {
	Key   string
	MinXP int64
}

type Badge struct {
	Key        string
	BaseXP     float64
	MaxXP      *float64
	Multiplier map[string]float64
}

type TaskReward struct {
	Key   string
	Label string
	XP    int64
}

// Policy is the full, immutable rule set for one run.
type Policy struct {
	Version     int
	Decay       DecayPolicy
	Regulatory  []RegulatoryRule
	Labs        []Lab
	Levels      []Level
	Badges      map[string]Badge
	TaskRewards map[string]TaskReward
}

// =============================================================================
// YAML SCHEMA TYPES
// =============================================================================

type decayYAML struct {
	Decay map[string]struct {
		HalfLifeDays *float64 `yaml:"half_life_days"`
		FloorRatio   *float64 `yaml:"floor_ratio"`
	} `yaml:"decay"`
}

type regulatoryYAML struct {
	RegulatoryXP map[string]*struct {
		Label          *string  `yaml:"label"`
		RequiresLabels []string `yaml:"requires_labels"`
		Domains        []string `yaml:"domains"`
		Domain         string   `yaml:"domain"`
		XP             int64    `yaml:"xp"`
	} `yaml:"regulatory_xp"`
}

type creditYAML struct {
	Credits        float64  `yaml:"credits"`
	ECTSEquivalent *float64 `yaml:"eu_ects_equivalent"`
	ECTS           *float64 `yaml:"ects_equivalent"`
}

type labsYAML struct {
	Labs map[string]*struct {
		Title  string `yaml:"title"`
		Unlock *struct {
			XPEffective  int64       `yaml:"xp_effective"`
			XPRegulatory int64       `yaml:"xp_regulatory"`
			Badges       []string    `yaml:"badges"`
			Domains      []string    `yaml:"domains"`
			Credits      *creditYAML `yaml:"credits"`
		} `yaml:"unlock"`
	} `yaml:"labs"`
}

type rulesYAML struct {
	Version int `yaml:"version"`
	Levels  map[string]*struct {
		MinXP *int64 `yaml:"min_xp"`
	} `yaml:"levels"`
	Badges map[string]*struct {
		BaseXP     float64            `yaml:"base_xp"`
		MaxXP      *float64           `yaml:"max_xp"`
		Multiplier map[string]float64 `yaml:"multiplier"`
	} `yaml:"badges"`
	TaskRewards map[string]*struct {
		XP    int64  `yaml:"xp"`
		Label string `yaml:"label"`
	} `yaml:"task_rewards"`
}

// =============================================================================
// LOADING
// =============================================================================

// Sources holds the raw rule documents.
type Sources struct {
	Decay      []byte
	Regulatory []byte
	Labs       []byte
	Rules      []byte
}

// ReadSources reads the four rule documents from a rules root.
func ReadSources(root string) (Sources, error) {
	read := func(rel string) ([]byte, error) {
		data, err := os.ReadFile(filepath.Join(root, rel))
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrMissingConfig, rel)
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", rel, err)
		}
		return data, nil
	}

	var src Sources
	var err error
	if src.Decay, err = read(DecayFile); err != nil {
		return Sources{}, err
	}
	if src.Regulatory, err = read(RegulatoryFile); err != nil {
		return Sources{}, err
	}
	if src.Labs, err = read(LabsFile); err != nil {
		return Sources{}, err
	}
	if src.Rules, err = read(RulesFile); err != nil {
		return Sources{}, err
	}
	return src, nil
}

// Load reads and validates the rule documents under root.
func Load(root string) (*Policy, error) {
	src, err := ReadSources(root)
	if err != nil {
		return nil, err
	}
	return Parse(src)
}

// Parse validates raw rule documents and builds a Policy.
func Parse(src Sources) (*Policy, error) {
	p := &Policy{}
	var err error
	if p.Decay, err = parseDecay(src.Decay); err != nil {
		return nil, err
	}
	if p.Regulatory, err = parseRegulatory(src.Regulatory); err != nil {
		return nil, err
	}
	if p.Labs, err = parseLabs(src.Labs); err != nil {
		return nil, err
	}
	if err = parseRules(src.Rules, p); err != nil {
		return nil, err
	}
	return p, nil
}

func decodeYAML(file string, data []byte, out any) error {
	if err := yaml.Unmarshal(data, out); err != nil {
		return &ConfigError{File: file, Problems: []string{err.Error()}}
	}
	return nil
}

func parseDecay(data []byte) (DecayPolicy, error) {
	var doc decayYAML
	if err := decodeYAML(DecayFile, data, &doc); err != nil {
		return DecayPolicy{}, err
	}
	if doc.Decay == nil {
		return DecayPolicy{}, &ConfigError{File: DecayFile, Problems: []string{"decay section is missing"}}
	}

	policy := DecayPolicy{HalfLifeDays: DefaultHalfLifeDays, FloorRatio: DefaultFloorRatio}
	def := doc.Decay["default"]
	if def.HalfLifeDays != nil {
		policy.HalfLifeDays = *def.HalfLifeDays
	}
	if def.FloorRatio != nil {
		policy.FloorRatio = *def.FloorRatio
	}

	var problems []string
	if !isFinite(policy.HalfLifeDays) {
		problems = append(problems, fmt.Sprintf("half_life_days must be a finite number, got %v", policy.HalfLifeDays))
	}
	if !isFinite(policy.FloorRatio) || policy.FloorRatio < 0 || policy.FloorRatio > 1 {
		problems = append(problems, fmt.Sprintf("floor_ratio must be within [0,1], got %v", policy.FloorRatio))
	}
	if len(problems) > 0 {
		return DecayPolicy{}, &ConfigError{File: DecayFile, Problems: problems}
	}
	return policy, nil
}

func parseRegulatory(data []byte) ([]RegulatoryRule, error) {
	var doc regulatoryYAML
	if err := decodeYAML(RegulatoryFile, data, &doc); err != nil {
		return nil, err
	}
	if doc.RegulatoryXP == nil {
		return nil, &ConfigError{File: RegulatoryFile, Problems: []string{"regulatory_xp section is missing"}}
	}

	var problems []string
	out := make([]RegulatoryRule, 0, len(doc.RegulatoryXP))
	for key, r := range doc.RegulatoryXP {
		if r == nil {
			problems = append(problems, fmt.Sprintf("regulatory_xp.%s must be a mapping", key))
			continue
		}
		if r.Label == nil || strings.TrimSpace(*r.Label) == "" {
			problems = append(problems, fmt.Sprintf("regulatory_xp.%s must define label", key))
			continue
		}
		if r.XP < 0 {
			problems = append(problems, fmt.Sprintf("regulatory_xp.%s.xp must be non-negative", key))
			continue
		}
		out = append(out, RegulatoryRule{
			Key:            key,
			Label:          strings.ToLower(strings.TrimSpace(*r.Label)),
			RequiresLabels: lowerAll(r.RequiresLabels),
			Domains:        lowerAll(r.Domains),
			Domain:         r.Domain,
			XP:             r.XP,
		})
	}
	if len(problems) > 0 {
		sort.Strings(problems)
		return nil, &ConfigError{File: RegulatoryFile, Problems: problems}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func parseLabs(data []byte) ([]Lab, error) {
	var doc labsYAML
	if err := decodeYAML(LabsFile, data, &doc); err != nil {
		return nil, err
	}
	if doc.Labs == nil {
		return nil, &ConfigError{File: LabsFile, Problems: []string{"labs section is missing"}}
	}

	var problems []string
	out := make([]Lab, 0, len(doc.Labs))
	for key, l := range doc.Labs {
		if l == nil || l.Unlock == nil {
			problems = append(problems, fmt.Sprintf("lab %s does not define unlock", key))
			continue
		}
		lab := Lab{
			Key:           key,
			Title:         l.Title,
			MinEffective:  l.Unlock.XPEffective,
			MinRegulatory: l.Unlock.XPRegulatory,
			Badges:        l.Unlock.Badges,
			Domains:       l.Unlock.Domains,
		}
		if c := l.Unlock.Credits; c != nil {
			payout := &CreditPayout{Credits: c.Credits}
			switch {
			case c.ECTSEquivalent != nil:
				payout.ECTSEquivalent = *c.ECTSEquivalent
			case c.ECTS != nil:
				payout.ECTSEquivalent = *c.ECTS
			}
			lab.Credits = payout
		}
		out = append(out, lab)
	}
	if len(problems) > 0 {
		sort.Strings(problems)
		return nil, &ConfigError{File: LabsFile, Problems: problems}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func parseRules(data []byte, p *Policy) error {
	var doc rulesYAML
	if err := decodeYAML(RulesFile, data, &doc); err != nil {
		return err
	}

	var problems []string
	if doc.Version != SupportedVersion {
		problems = append(problems, fmt.Sprintf("unsupported version %d", doc.Version))
	}
	if len(doc.Levels) == 0 {
		problems = append(problems, "levels must be a non-empty mapping")
	}
	for key, l := range doc.Levels {
		switch {
		case l == nil || l.MinXP == nil:
			problems = append(problems, fmt.Sprintf("level %s does not define min_xp", key))
		case *l.MinXP < 0:
			problems = append(problems, fmt.Sprintf("level %s min_xp must be non-negative", key))
		default:
			p.Levels = append(p.Levels, Level{Key: key, MinXP: *l.MinXP})
		}
	}
	if len(problems) > 0 {
		sort.Strings(problems)
		return &ConfigError{File: RulesFile, Problems: problems}
	}
	p.Version = doc.Version
	SortLevels(p.Levels)

	p.Badges = make(map[string]Badge, len(doc.Badges))
	for key, b := range doc.Badges {
		badge := Badge{Key: key}
		if b != nil {
			badge.BaseXP = b.BaseXP
			badge.MaxXP = b.MaxXP
			badge.Multiplier = b.Multiplier
		}
		p.Badges[key] = badge
	}

	p.TaskRewards = make(map[string]TaskReward, len(doc.TaskRewards))
	for key, t := range doc.TaskRewards {
		if t == nil {
			continue
		}
		p.TaskRewards[key] = TaskReward{Key: key, Label: t.Label, XP: t.XP}
	}
	return nil
}

// SortLevels orders a level catalog by ascending threshold, then key.
func SortLevels(levels []Level) {
	sort.SliceStable(levels, func(i, j int) bool {
		if levels[i].MinXP != levels[j].MinXP {
			return levels[i].MinXP < levels[j].MinXP
		}
		return levels[i].Key < levels[j].Key
	})
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func lowerAll(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(strings.TrimSpace(s))
	}
	return out
}
