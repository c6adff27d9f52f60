package filestore_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlantyde-labs/cognitive-suite/ledger"
	"github.com/atlantyde-labs/cognitive-suite/store/filestore"
)

func newStore(t *testing.T) (*filestore.Store, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "metrics", "users")
	s, err := filestore.New(dir)
	require.NoError(t, err)
	return s, dir
}

func TestStore_PutWritesOneFilePerUser(t *testing.T) {
	// GIVEN: An empty ledger directory
	s, dir := newStore(t)
	ctx := context.Background()
	doc := ledger.NewDocument("alice", "2025-06-01T00:00:00Z")
	doc.Append(ledger.Event{XP: 10, Timestamp: "2025-06-01T00:00:00Z"})
	doc.XPTotal = 10

	// WHEN: A ledger is stored
	require.NoError(t, s.Put(ctx, doc))

	// THEN: It lands in <user>.json with no temp files left behind
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "alice.json", entries[0].Name())

	got, err := s.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(10), got.XPTotal)
	assert.Equal(t, doc.History, got.History)
}

func TestStore_ListSkipsTemplateAndNoise(t *testing.T) {
	s, dir := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, ledger.NewDocument("bob", "")))
	require.NoError(t, s.Put(ctx, ledger.NewDocument("alice", "")))

	for name, content := range map[string]string{
		"template.json":  `{}`,
		"README.md":      "ledgers",
		".alice.123.tmp": "partial",
		".hidden.json":   `{}`,
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "archive.json"), 0o755))

	users, err := s.List(ctx)

	require.NoError(t, err)
	assert.Equal(t, []ledger.UserID{"alice", "bob"}, users)
}

func TestStore_RejectsTemplateAndPathUsers(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	_, err := s.Get(ctx, "template")
	assert.ErrorIs(t, err, ledger.ErrInvalidUser)

	err = s.Put(ctx, ledger.NewDocument("../escape", ""))
	assert.ErrorIs(t, err, ledger.ErrInvalidUser)
}

func TestStore_GetErrors(t *testing.T) {
	s, dir := newStore(t)
	ctx := context.Background()

	_, err := s.Get(ctx, "ghost")
	assert.ErrorIs(t, err, ledger.ErrLedgerNotFound)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte(`{"user": 5}`), 0o644))
	_, err = s.Get(ctx, "broken")
	assert.True(t, ledger.IsDataError(err))
}

func TestStore_PutRawRoundTripsBytes(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	raw := []byte(`{"user":"carol","xp_total":"many"}`)

	require.NoError(t, s.PutRaw(ctx, "carol", raw))

	got, err := s.ReadRaw(ctx, "carol")
	require.NoError(t, err)
	assert.Equal(t, raw, got)

	_, err = s.Get(ctx, "carol")
	assert.True(t, ledger.IsDataError(err))
}
