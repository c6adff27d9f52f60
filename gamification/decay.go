/*
decay.go - Recomputes XP totals from history with exponential half-life decay

PURPOSE:
  xp_total, xp_regulatory and xp_effective are never incremented in place by
  the decay pass. They are rebuilt from history every time, so running the
  pass twice against the same history converges; only the weights drift
  downward as the clock moves on.

WEIGHT:
  weight = max(floor_ratio, 0.5 ^ (age_days / half_life_days))

  half_life_days <= 0 disables decay (weight 1.0).
  Events dated in the future are treated as age 0.

SKIPPED EVENTS:
  A decaying event without a timestamp, or with one that does not parse,
  contributes nothing to xp_effective. It still counts toward xp_total.

PRECISION:
  The weighted sum is accumulated with decimal.Decimal and rounded half to
  even once at the end, so a 0.4 floor on 100 XP is exactly 40.

EXAMPLE:
  half_life 180d, floor 0.4, one 100 XP event 180 days old  -> effective 50
  same event 1800 days old                                   -> effective 40
*/
package gamification

import (
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/atlantyde-labs/cognitive-suite/ledger"
	"github.com/atlantyde-labs/cognitive-suite/rules"
)

// DecaySummary describes how the history was read by one decay pass.
type DecaySummary struct {
	Events      int `json:"events"`
	NonDecaying int `json:"non_decaying"`
	Skipped     int `json:"skipped"`
}

// DecayWeight returns the weight a decaying event dated at keeps at now.
func DecayWeight(at, now time.Time, p rules.DecayPolicy) float64 {
	if p.HalfLifeDays <= 0 {
		return 1.0
	}
	ageDays := now.Sub(at).Hours() / 24
	if ageDays < 0 {
		ageDays = 0
	}
	return math.Max(p.FloorRatio, math.Pow(0.5, ageDays/p.HalfLifeDays))
}

// ApplyDecay rebuilds xp_total, xp_regulatory and xp_effective from history
// and stamps last_decay. It does not touch level; callers refresh it.
func ApplyDecay(doc *ledger.Document, p rules.DecayPolicy, now time.Time) DecaySummary {
	var (
		summary    DecaySummary
		total      int64
		regulatory int64
		weighted   = decimal.Zero
	)

	for _, e := range doc.History {
		summary.Events++
		total += e.XP

		if e.NonDecay {
			summary.NonDecaying++
			regulatory += e.XP
			continue
		}
		if e.Timestamp == "" {
			summary.Skipped++
			continue
		}
		at, err := ledger.ParseTimestamp(e.Timestamp)
		if err != nil {
			summary.Skipped++
			continue
		}
		w := decimal.NewFromFloat(DecayWeight(at, now, p))
		weighted = weighted.Add(decimal.NewFromInt(e.XP).Mul(w))
	}

	effective := weighted.RoundBank(0).IntPart() + regulatory
	if effective < 0 {
		effective = 0
	}

	doc.XPTotal = total
	doc.XPRegulatory = regulatory
	doc.XPEffective = effective
	doc.LastDecay = ledger.FormatTimestamp(now)
	return summary
}
