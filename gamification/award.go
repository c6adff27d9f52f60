/*
award.go - Idempotent regulatory XP awards triggered by PR labels

PURPOSE:
  Event producers (CI actions, label triggers) report a PR with its labels.
  Every catalog rule whose labels match earns one non-decaying event, at most
  once per (rule, PR).

MATCHING (per rule, in catalog order):
  1. the rule's label must be among the trigger labels
  2. every requires_labels entry must be among the trigger labels
  3. if the rule lists domains, at least one must be among the trigger labels
  4. the dedup key (rule, PR) must not already be in history

  Labels are compared case-insensitively.

IDEMPOTENCY:
  Re-running the same trigger finds every key already recorded and appends
  nothing. A duplicate is a no-op, never an error. Stores with an award
  index let the engine answer a replay without locking or decoding.

SEE ALSO:
  - ledger/types.go: AwardKey and the history index behind HasAward
  - engine.go: lazy ledger creation and the per-user lock around this
*/
package gamification

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/atlantyde-labs/cognitive-suite/ledger"
	"github.com/atlantyde-labs/cognitive-suite/rules"
)

// =============================================================================
// REQUEST / RESULT
// =============================================================================

// AwardRequest is one trigger from an event producer.
type AwardRequest struct {
	User      ledger.UserID `json:"user"`
	PR        int64         `json:"pr_number"`
	Labels    []string      `json:"labels"`
	Timestamp string        `json:"timestamp"`
}

// Validate checks the trigger before any ledger is touched.
func (r AwardRequest) Validate() error {
	if !r.User.Valid() {
		return fmt.Errorf("%w: %q", ledger.ErrInvalidUser, r.User)
	}
	if r.PR <= 0 {
		return fmt.Errorf("%w: pr_number must be positive, got %d", ErrInvalidRequest, r.PR)
	}
	if _, err := ledger.ParseTimestamp(r.Timestamp); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return nil
}

// AwardEntry reports one rule that was newly awarded.
type AwardEntry struct {
	Rule   string `json:"type"`
	Domain string `json:"domain,omitempty"`
	XP     int64  `json:"xp"`
	Label  string `json:"label"`
}

// AwardResult lets callers report the outcome without re-reading the ledger.
type AwardResult struct {
	Awarded bool         `json:"awarded"`
	Entries []AwardEntry `json:"entries"`
	TotalXP int64        `json:"total_xp_awarded"`
	Domains []string     `json:"domains_touched"`
}

// =============================================================================
// AWARDING
// =============================================================================

// NormalizeLabels lower-cases and trims labels into a set.
func NormalizeLabels(labels []string) map[string]bool {
	set := make(map[string]bool, len(labels))
	for _, l := range labels {
		l = strings.ToLower(strings.TrimSpace(l))
		if l != "" {
			set[l] = true
		}
	}
	return set
}

// RuleMatches reports whether a rule's label gates are satisfied.
func RuleMatches(rule rules.RegulatoryRule, labels map[string]bool) bool {
	if !labels[rule.Label] {
		return false
	}
	for _, req := range rule.RequiresLabels {
		if !labels[req] {
			return false
		}
	}
	if len(rule.Domains) == 0 {
		return true
	}
	for _, d := range rule.Domains {
		if labels[d] {
			return true
		}
	}
	return false
}

// AwardKeys returns the dedup key of every rule the request's labels match.
func AwardKeys(catalog []rules.RegulatoryRule, req AwardRequest) []ledger.AwardKey {
	labels := NormalizeLabels(req.Labels)
	var keys []ledger.AwardKey
	for _, rule := range catalog {
		if RuleMatches(rule, labels) {
			keys = append(keys, ledger.AwardKey{Rule: rule.Key, PR: req.PR})
		}
	}
	return keys
}

// AwardRegulatory appends one event per newly matching rule and updates
// xp_total, xp_regulatory and last_seen. The request must already be valid.
func AwardRegulatory(doc *ledger.Document, catalog []rules.RegulatoryRule, req AwardRequest) AwardResult {
	labels := NormalizeLabels(req.Labels)
	result := AwardResult{Entries: []AwardEntry{}, Domains: []string{}}

	for _, rule := range catalog {
		if !RuleMatches(rule, labels) {
			continue
		}
		key := ledger.AwardKey{Rule: rule.Key, PR: req.PR}
		if doc.HasAward(key) {
			continue
		}

		pr := req.PR
		doc.Append(ledger.Event{
			ID:         uuid.NewString(),
			Type:       ledger.EventRegulatory,
			XP:         rule.XP,
			Timestamp:  req.Timestamp,
			NonDecay:   true,
			Regulatory: rule.Key,
			Domain:     rule.Domain,
			SourcePR:   &pr,
		})
		doc.XPTotal += rule.XP
		doc.XPRegulatory += rule.XP
		doc.LastSeen = req.Timestamp

		result.Entries = append(result.Entries, AwardEntry{
			Rule:   rule.Key,
			Domain: rule.Domain,
			XP:     rule.XP,
			Label:  rule.Label,
		})
		result.TotalXP += rule.XP
		if rule.Domain != "" {
			result.Domains = append(result.Domains, rule.Domain)
		}
	}

	result.Awarded = len(result.Entries) > 0
	return result
}
