package gamification_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/atlantyde-labs/cognitive-suite/gamification"
	"github.com/atlantyde-labs/cognitive-suite/ledger"
	"github.com/atlantyde-labs/cognitive-suite/ledger/store"
	"github.com/atlantyde-labs/cognitive-suite/rules"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

var testNow = time.Date(2025, time.June, 30, 0, 0, 0, 0, time.UTC)

func testPolicy() *rules.Policy {
	return &rules.Policy{
		Version: 1,
		Decay:   rules.DecayPolicy{HalfLifeDays: 180, FloorRatio: 0.4},
		Regulatory: []rules.RegulatoryRule{
			{Key: "ai_act", Label: "compliance:ai-act", Domain: "ai", XP: 30},
			{
				Key: "gdpr_review", Label: "compliance:gdpr",
				RequiresLabels: []string{"reviewed"},
				Domains:        []string{"privacy", "security"},
				Domain:         "privacy", XP: 50,
			},
		},
		Labs: []rules.Lab{
			{
				Key: "lab_01", MinEffective: 50, Badges: []string{"b1"},
				Credits: &rules.CreditPayout{Credits: 2, ECTSEquivalent: 0.5},
			},
			{Key: "lab_02", MinRegulatory: 50, Domains: []string{"privacy"}},
			{Key: "lab_03"},
		},
		Levels: []rules.Level{{Key: "L0", MinXP: 0}, {Key: "L1", MinXP: 100}, {Key: "L2", MinXP: 500}},
	}
}

func newTestEngine(t *testing.T) (*gamification.Engine, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	e := gamification.NewEngine(mem, testPolicy())
	e.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	e.Now = func() time.Time { return testNow }
	return e, mem
}

func daysAgo(n float64) string {
	return ledger.FormatTimestamp(testNow.Add(-time.Duration(n * 24 * float64(time.Hour))))
}

func putDoc(t *testing.T, s ledger.Store, doc *ledger.Document) {
	t.Helper()
	require.NoError(t, s.Put(context.Background(), doc))
}

func docWith(user ledger.UserID, events ...ledger.Event) *ledger.Document {
	doc := ledger.NewDocument(user, "")
	for _, e := range events {
		doc.Append(e)
		doc.XPTotal += e.XP
	}
	return doc
}

func prNum(n int64) *int64 { return &n }
