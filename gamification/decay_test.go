package gamification_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/atlantyde-labs/cognitive-suite/gamification"
	"github.com/atlantyde-labs/cognitive-suite/ledger"
	"github.com/atlantyde-labs/cognitive-suite/rules"
)

var defaultDecay = rules.DecayPolicy{HalfLifeDays: 180, FloorRatio: 0.4}

func TestApplyDecay_RegulatoryXPIsNotDecayed(t *testing.T) {
	// GIVEN: A single non-decaying event from long ago
	doc := docWith("alice", ledger.Event{XP: 100, NonDecay: true, Timestamp: daysAgo(3650)})

	// WHEN: Decay is applied
	gamification.ApplyDecay(doc, defaultDecay, testNow)

	// THEN: All of it is regulatory and effective
	assert.Equal(t, int64(100), doc.XPTotal)
	assert.Equal(t, int64(100), doc.XPRegulatory)
	assert.Equal(t, int64(100), doc.XPEffective)
}

func TestApplyDecay_OneHalfLife(t *testing.T) {
	doc := docWith("alice", ledger.Event{XP: 100, Timestamp: daysAgo(180)})

	gamification.ApplyDecay(doc, defaultDecay, testNow)

	assert.Equal(t, int64(50), doc.XPEffective)
	assert.Equal(t, int64(0), doc.XPRegulatory)
	assert.Equal(t, int64(100), doc.XPTotal)
}

func TestApplyDecay_FloorApplies(t *testing.T) {
	// GIVEN: An event ten half-lives old
	doc := docWith("alice", ledger.Event{XP: 100, Timestamp: daysAgo(1800)})

	gamification.ApplyDecay(doc, defaultDecay, testNow)

	// THEN: The floor wins over 0.5^10
	assert.Equal(t, int64(40), doc.XPEffective)
}

func TestApplyDecay_SkipsUndatedAndMalformedEvents(t *testing.T) {
	doc := docWith("alice",
		ledger.Event{XP: 100, Timestamp: ""},
		ledger.Event{XP: 100, Timestamp: "not-a-date"},
		ledger.Event{XP: 10, Timestamp: daysAgo(0)},
	)

	summary := gamification.ApplyDecay(doc, defaultDecay, testNow)

	assert.Equal(t, 2, summary.Skipped)
	assert.Equal(t, 3, summary.Events)
	assert.Equal(t, int64(210), doc.XPTotal, "skipped events still count toward the total")
	assert.Equal(t, int64(10), doc.XPEffective)
}

func TestApplyDecay_RebuildsTotalsFromHistory(t *testing.T) {
	// GIVEN: Stored totals that drifted from history
	doc := docWith("alice",
		ledger.Event{XP: 40, Timestamp: daysAgo(0)},
		ledger.Event{XP: 60, NonDecay: true, Timestamp: daysAgo(0)},
	)
	doc.XPTotal = 999
	doc.XPRegulatory = 7

	gamification.ApplyDecay(doc, defaultDecay, testNow)

	assert.Equal(t, int64(100), doc.XPTotal)
	assert.Equal(t, int64(60), doc.XPRegulatory)
	assert.Equal(t, int64(100), doc.XPEffective)
	assert.Equal(t, ledger.FormatTimestamp(testNow), doc.LastDecay)
}

func TestApplyDecay_NonDecayFlagIsTheOnlySignal(t *testing.T) {
	// A regulatory-typed event without non_decay decays like any other.
	doc := docWith("alice", ledger.Event{Type: ledger.EventRegulatory, XP: 100, Timestamp: daysAgo(180)})

	gamification.ApplyDecay(doc, defaultDecay, testNow)

	assert.Equal(t, int64(0), doc.XPRegulatory)
	assert.Equal(t, int64(50), doc.XPEffective)
}

func TestApplyDecay_NegativeXPNeverYieldsNegativeEffective(t *testing.T) {
	doc := docWith("alice",
		ledger.Event{XP: 10, Timestamp: daysAgo(0)},
		ledger.Event{XP: -50, Timestamp: daysAgo(0)},
	)

	gamification.ApplyDecay(doc, defaultDecay, testNow)

	assert.Equal(t, int64(0), doc.XPEffective)
}

func TestDecayWeight(t *testing.T) {
	at := testNow.Add(-180 * 24 * time.Hour)

	assert.Equal(t, 0.5, gamification.DecayWeight(at, testNow, defaultDecay))
	assert.Equal(t, 1.0, gamification.DecayWeight(testNow.Add(48*time.Hour), testNow, defaultDecay), "future events are age 0")
	assert.Equal(t, 1.0, gamification.DecayWeight(at, testNow, rules.DecayPolicy{HalfLifeDays: 0, FloorRatio: 0.4}))
	assert.Equal(t, 1.0, gamification.DecayWeight(at, testNow, rules.DecayPolicy{HalfLifeDays: -5}))
}

func TestApplyDecay_Monotonic(t *testing.T) {
	// GIVEN: A fixed history of decaying events
	events := []ledger.Event{
		{XP: 100, Timestamp: "2024-01-15T00:00:00Z"},
		{XP: 250, Timestamp: "2024-09-01T00:00:00Z"},
		{XP: 75, Timestamp: "2025-03-10T00:00:00Z"},
	}
	var sum int64
	for _, e := range events {
		sum += e.XP
	}
	floor := int64(float64(sum) * defaultDecay.FloorRatio)

	// WHEN: Effective XP is recomputed at later and later times
	prev := int64(-1)
	for day := 0; day <= 3000; day += 30 {
		now := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC).AddDate(0, 0, day)
		doc := docWith("alice", events...)
		gamification.ApplyDecay(doc, defaultDecay, now)

		// THEN: It never increases and never drops below the floor
		if prev >= 0 {
			assert.LessOrEqual(t, doc.XPEffective, prev, "day %d", day)
		}
		assert.GreaterOrEqual(t, doc.XPEffective, floor, "day %d", day)
		prev = doc.XPEffective
	}
	assert.Equal(t, floor, prev, "far in the future only the floor remains")
}
