// Package store provides Store implementations.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/atlantyde-labs/cognitive-suite/ledger"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory keeps encoded documents so every Get returns an independent copy
// and goes through the same shape checks as the persistent backends.
type Memory struct {
	mu   sync.RWMutex
	docs map[ledger.UserID][]byte
}

func NewMemory() *Memory {
	return &Memory{docs: make(map[ledger.UserID][]byte)}
}

func (m *Memory) Get(_ context.Context, user ledger.UserID) (*ledger.Document, error) {
	m.mu.RLock()
	data, ok := m.docs[user]
	m.mu.RUnlock()
	if !ok {
		return nil, ledger.ErrLedgerNotFound
	}
	return ledger.DecodeDocument(data)
}

func (m *Memory) Put(_ context.Context, doc *ledger.Document) error {
	data, err := ledger.EncodeDocument(doc)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[doc.User] = data
	return nil
}

func (m *Memory) List(_ context.Context) ([]ledger.UserID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	users := make([]ledger.UserID, 0, len(m.docs))
	for u := range m.docs {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i] < users[j] })
	return users, nil
}

// Seed stores raw JSON for a user without any checks.
// Lets tests and imports load documents exactly as they were written.
func (m *Memory) Seed(user ledger.UserID, raw []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[user] = append([]byte(nil), raw...)
}

// PutRaw implements ledger.RawWriter.
func (m *Memory) PutRaw(_ context.Context, user ledger.UserID, raw []byte) error {
	if !user.Valid() {
		return fmt.Errorf("%w: %q", ledger.ErrInvalidUser, user)
	}
	m.Seed(user, raw)
	return nil
}
