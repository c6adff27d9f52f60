package ledger_test

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlantyde-labs/cognitive-suite/ledger"
)

func pr(n int64) *int64 { return &n }

func TestNewDocument_Skeleton(t *testing.T) {
	doc := ledger.NewDocument("alice", "2025-06-01T00:00:00Z")

	assert.Equal(t, ledger.UserID("alice"), doc.User)
	assert.Equal(t, "L0", doc.Level)
	assert.Equal(t, "2025-06-01T00:00:00Z", doc.LastSeen)
	assert.Zero(t, doc.XPTotal)
	assert.NotNil(t, doc.Badges)
	assert.NotNil(t, doc.History)
	assert.NotNil(t, doc.Feedback)
	assert.NotNil(t, doc.Domains)
	assert.NotNil(t, doc.LabsUnlocked)
	assert.NotNil(t, doc.LabsLocked)
	assert.NotNil(t, doc.LabCredits)
}

func TestEncodeDecode_PreservesDocument(t *testing.T) {
	// GIVEN: A ledger with history, badges and lab state
	doc := ledger.NewDocument("alice", "2025-06-01T00:00:00Z")
	doc.Append(ledger.Event{ID: "e1", Type: "contribution", XP: 100, Timestamp: "2025-01-01T00:00:00Z"})
	doc.Append(ledger.Event{
		ID: "e2", Type: ledger.EventRegulatory, XP: 50, Timestamp: "2025-06-01T00:00:00Z",
		NonDecay: true, Regulatory: "gdpr_review", Domain: "privacy", SourcePR: pr(42),
	})
	doc.XPTotal = 150
	doc.Badges["early_adopter"] = json.RawMessage(`{"awarded":"2025-01-01"}`)
	doc.LabsUnlocked = []string{"lab_01"}

	// WHEN: It goes through the store boundary
	data, err := ledger.EncodeDocument(doc)
	require.NoError(t, err)
	back, err := ledger.DecodeDocument(data)
	require.NoError(t, err)

	// THEN: Nothing is lost
	assert.Equal(t, doc.User, back.User)
	assert.Equal(t, doc.XPTotal, back.XPTotal)
	assert.Equal(t, doc.History, back.History)
	assert.JSONEq(t, `{"awarded":"2025-01-01"}`, string(back.Badges["early_adopter"]))
	assert.Equal(t, []string{"lab_01"}, back.LabsUnlocked)
	assert.True(t, back.HasAward(ledger.AwardKey{Rule: "gdpr_review", PR: 42}))
}

func TestEncodeDocument_NormalizesNilCollections(t *testing.T) {
	doc := &ledger.Document{User: "bob", Level: "L0"}

	data, err := ledger.EncodeDocument(doc)
	require.NoError(t, err)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.JSONEq(t, `{}`, string(raw["badges"]))
	assert.JSONEq(t, `[]`, string(raw["history"]))
	assert.JSONEq(t, `[]`, string(raw["lab_credits"]))
	assert.JSONEq(t, `[]`, string(raw["labs_locked"]))
}

func TestEncodeDocument_RejectsInvalidUser(t *testing.T) {
	for _, user := range []ledger.UserID{"", "..", "a/b", `a\b`, "  "} {
		_, err := ledger.EncodeDocument(&ledger.Document{User: user})
		assert.ErrorIs(t, err, ledger.ErrInvalidUser, "user %q", user)
	}
}

func TestDecodeDocument_ReportsEveryShapeProblem(t *testing.T) {
	// GIVEN: A document with several wrong container shapes
	raw := []byte(`{
		"user": "carol",
		"xp_total": "100",
		"xp_effective": 0,
		"xp_regulatory": 0,
		"level": "L0",
		"badges": [],
		"history": [{"xp": 1}, 7],
		"lab_credits": []
	}`)

	// WHEN: It is decoded
	_, err := ledger.DecodeDocument(raw)

	// THEN: One MalformedError lists all of them
	require.Error(t, err)
	assert.True(t, ledger.IsDataError(err))

	var me *ledger.MalformedError
	require.True(t, errors.As(err, &me))
	assert.Equal(t, ledger.UserID("carol"), me.User)
	assert.Contains(t, me.Problems, "xp_total must be number, found string")
	assert.Contains(t, me.Problems, "badges must be object, found array")
	assert.Contains(t, me.Problems, "history[1] must be object")
}

func TestDecodeDocument_MissingRequiredFields(t *testing.T) {
	_, err := ledger.DecodeDocument([]byte(`{"user": "dave"}`))

	var me *ledger.MalformedError
	require.True(t, errors.As(err, &me))
	assert.Contains(t, me.Problems, "xp_total is missing")
	assert.Contains(t, me.Problems, "history is missing")
	assert.Contains(t, me.Problems, "lab_credits is missing")
}

func TestDecodeDocument_NullOptionalFieldsAreAbsent(t *testing.T) {
	raw := []byte(`{
		"user": "erin", "xp_total": 0, "xp_effective": 0, "xp_regulatory": 0,
		"level": "L0", "badges": {}, "history": [], "lab_credits": [],
		"domains": null, "last_seen": null
	}`)

	doc, err := ledger.DecodeDocument(raw)

	require.NoError(t, err)
	assert.Equal(t, ledger.UserID("erin"), doc.User)
}

func TestDecodeDocument_NotAnObject(t *testing.T) {
	_, err := ledger.DecodeDocument([]byte(`[1, 2, 3]`))
	assert.ErrorIs(t, err, ledger.ErrMalformedLedger)
}

func TestHasAward_IndexesHistoryAndAppends(t *testing.T) {
	// GIVEN: A history with one regulatory award and one ordinary event
	doc := ledger.NewDocument("frank", "")
	doc.History = []ledger.Event{
		{Type: ledger.EventRegulatory, XP: 50, Regulatory: "gdpr_review", SourcePR: pr(7)},
		{Type: "contribution", XP: 10},
	}

	// THEN: Only the regulatory event is indexed
	assert.True(t, doc.HasAward(ledger.AwardKey{Rule: "gdpr_review", PR: 7}))
	assert.False(t, doc.HasAward(ledger.AwardKey{Rule: "gdpr_review", PR: 8}))
	assert.False(t, doc.HasAward(ledger.AwardKey{Rule: "contribution", PR: 7}))

	// WHEN: Another award is appended after the index exists
	doc.Append(ledger.Event{Type: ledger.EventRegulatory, XP: 20, Regulatory: "ai_act", SourcePR: pr(7)})

	// THEN: The index sees it
	assert.True(t, doc.HasAward(ledger.AwardKey{Rule: "ai_act", PR: 7}))
	assert.Equal(t, int64(80), doc.HistoryXP())
}

func TestParseTimestamp_Layouts(t *testing.T) {
	want := time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC)

	for _, s := range []string{
		"2025-06-01T12:30:00Z",
		"2025-06-01T14:30:00+02:00",
		"2025-06-01T12:30:00.000Z",
		"2025-06-01T12:30:00",
		"2025-06-01T12:30",
		"2025-06-01T12:30:00+0000",
		"2025-06-01T13:30:00+0100",
		"2025-06-01 12:30:00",
		"2025-06-01 14:30:00+02:00",
		"2025-06-01 12:30:00+0000",
		"2025-06-01 12:30",
	} {
		got, err := ledger.ParseTimestamp(s)
		require.NoError(t, err, s)
		assert.True(t, want.Equal(got), "%s parsed as %s", s, got)
	}

	frac, err := ledger.ParseTimestamp("2025-06-01 12:30:00.250000")
	require.NoError(t, err)
	assert.Equal(t, want.Add(250*time.Millisecond), frac)

	day, err := ledger.ParseTimestamp("2025-06-01")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), day)

	_, err = ledger.ParseTimestamp("yesterday")
	assert.Error(t, err)
}
