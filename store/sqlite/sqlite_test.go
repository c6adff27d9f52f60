package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlantyde-labs/cognitive-suite/ledger"
	"github.com/atlantyde-labs/cognitive-suite/store/sqlite"
)

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func awardedDoc(user ledger.UserID, prs ...int64) *ledger.Document {
	doc := ledger.NewDocument(user, "2025-06-01T00:00:00Z")
	for _, pr := range prs {
		pr := pr
		doc.Append(ledger.Event{
			ID: "evt", Type: ledger.EventRegulatory, XP: 30, NonDecay: true,
			Regulatory: "ai_act", SourcePR: &pr, Timestamp: "2025-06-01T00:00:00Z",
		})
		doc.XPTotal += 30
		doc.XPRegulatory += 30
	}
	return doc
}

func TestStore_PutGetList(t *testing.T) {
	// GIVEN: An empty store
	s := newStore(t)
	ctx := context.Background()

	_, err := s.Get(ctx, "alice")
	assert.ErrorIs(t, err, ledger.ErrLedgerNotFound)

	// WHEN: Two ledgers are stored and one is replaced
	require.NoError(t, s.Put(ctx, awardedDoc("bob")))
	require.NoError(t, s.Put(ctx, awardedDoc("alice", 1)))
	require.NoError(t, s.Put(ctx, awardedDoc("alice", 1, 2)))

	// THEN: The latest document wins and users are listed in order
	doc, err := s.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(60), doc.XPTotal)
	assert.Len(t, doc.History, 2)

	users, err := s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []ledger.UserID{"alice", "bob"}, users)
}

func TestStore_AwardIndexMirrorsHistory(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, awardedDoc("alice", 7)))
	require.NoError(t, s.Put(ctx, awardedDoc("alice", 7, 8)))

	for _, tc := range []struct {
		user ledger.UserID
		key  ledger.AwardKey
		want bool
	}{
		{"alice", ledger.AwardKey{Rule: "ai_act", PR: 7}, true},
		{"alice", ledger.AwardKey{Rule: "ai_act", PR: 8}, true},
		{"alice", ledger.AwardKey{Rule: "gdpr", PR: 7}, false},
		{"bob", ledger.AwardKey{Rule: "ai_act", PR: 7}, false},
	} {
		got, err := s.AwardExists(ctx, tc.user, tc.key)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, "%s %+v", tc.user, tc.key)
	}
}

func TestStore_PutRawKeepsMalformedDocuments(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.PutRaw(ctx, "broken", []byte(`{"user":"broken","badges":[]}`)))

	_, err := s.Get(ctx, "broken")
	assert.True(t, ledger.IsDataError(err))

	users, err := s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []ledger.UserID{"broken"}, users)
}

func TestStore_PutRawIndexesImportedAwards(t *testing.T) {
	// GIVEN: A ledger written by another tool with a gdpr award for PR 42
	s := newStore(t)
	ctx := context.Background()
	raw := `{"user":"bob","xp_total":50,"xp_effective":50,"xp_regulatory":50,"level":"L0",` +
		`"badges":{},"lab_credits":[],"history":[{"id":"x","type":"regulatory","xp":50,` +
		`"timestamp":"2025-01-01 10:00:00","non_decay":true,"regulatory":"gdpr","source_pr":42}]}`

	// WHEN: It is imported verbatim
	require.NoError(t, s.PutRaw(ctx, "bob", []byte(raw)))

	// THEN: The index agrees with the stored history
	doc, err := s.Get(ctx, "bob")
	require.NoError(t, err)
	key := ledger.AwardKey{Rule: "gdpr", PR: 42}
	assert.True(t, doc.HasAward(key))
	exists, err := s.AwardExists(ctx, "bob", key)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestStore_WritesReplaceStaleAwardKeys(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	key := ledger.AwardKey{Rule: "ai_act", PR: 5}
	require.NoError(t, s.Put(ctx, awardedDoc("alice", 5)))

	require.NoError(t, s.PutRaw(ctx, "alice", []byte(`{"user":"alice","badges":[]}`)))
	exists, err := s.AwardExists(ctx, "alice", key)
	require.NoError(t, err)
	assert.False(t, exists, "a malformed import leaves nothing indexed")

	require.NoError(t, s.Put(ctx, awardedDoc("alice", 5)))
	require.NoError(t, s.Put(ctx, awardedDoc("alice")))
	exists, err = s.AwardExists(ctx, "alice", key)
	require.NoError(t, err)
	assert.False(t, exists, "keys follow the latest history")
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledgers.db")
	ctx := context.Background()

	s, err := sqlite.New(path)
	require.NoError(t, err)
	require.NoError(t, s.Put(ctx, awardedDoc("alice", 3)))
	require.NoError(t, s.Close())

	reopened, err := sqlite.New(path)
	require.NoError(t, err)
	defer reopened.Close()

	doc, err := reopened.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(30), doc.XPTotal)
	assert.True(t, doc.HasAward(ledger.AwardKey{Rule: "ai_act", PR: 3}))
}
