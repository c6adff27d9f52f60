/*
Package filestore keeps one ledger per JSON file in a directory.

LAYOUT:
  <dir>/<user>.json    one ledger document per user
  <dir>/template.json  skeleton kept by the repository; never listed or served

WRITES:
  Put writes to a temporary file in the same directory and renames it over
  the target, so readers never observe a half-written document.

SEE ALSO:
  - ledger/store.go: Interface definition
*/
package filestore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/atlantyde-labs/cognitive-suite/ledger"
)

const (
	ext          = ".json"
	templateName = "template"
)

// Store implements ledger.Store on a directory of JSON documents.
type Store struct {
	dir string
}

// New returns a store rooted at dir, creating it if needed.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create ledger directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) path(user ledger.UserID) (string, error) {
	if !user.Valid() || string(user) == templateName {
		return "", fmt.Errorf("%w: %q", ledger.ErrInvalidUser, user)
	}
	return filepath.Join(s.dir, string(user)+ext), nil
}

// Get reads and decodes <dir>/<user>.json.
func (s *Store) Get(ctx context.Context, user ledger.UserID) (*ledger.Document, error) {
	data, err := s.ReadRaw(ctx, user)
	if err != nil {
		return nil, err
	}
	return ledger.DecodeDocument(data)
}

// ReadRaw returns the bytes of <dir>/<user>.json without decoding them.
func (s *Store) ReadRaw(_ context.Context, user ledger.UserID) ([]byte, error) {
	p, err := s.path(user)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ledger.ErrLedgerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger: %w", err)
	}
	return data, nil
}

// Put atomically replaces <dir>/<user>.json.
func (s *Store) Put(_ context.Context, doc *ledger.Document) error {
	p, err := s.path(doc.User)
	if err != nil {
		return err
	}
	data, err := ledger.EncodeDocument(doc)
	if err != nil {
		return err
	}
	return s.writeAtomic(p, doc.User, append(data, '\n'))
}

// PutRaw implements ledger.RawWriter.
func (s *Store) PutRaw(_ context.Context, user ledger.UserID, raw []byte) error {
	p, err := s.path(user)
	if err != nil {
		return err
	}
	return s.writeAtomic(p, user, raw)
}

func (s *Store) writeAtomic(p string, user ledger.UserID, data []byte) error {
	tmp, err := os.CreateTemp(s.dir, "."+string(user)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write ledger: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync ledger: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close ledger: %w", err)
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		return fmt.Errorf("failed to replace ledger: %w", err)
	}
	return nil
}

// List returns the users with a document in the directory, sorted.
func (s *Store) List(_ context.Context) ([]ledger.UserID, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledgers: %w", err)
	}

	var users []ledger.UserID
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, ext) {
			continue
		}
		user := ledger.UserID(strings.TrimSuffix(name, ext))
		if string(user) == templateName || !user.Valid() {
			continue
		}
		users = append(users, user)
	}
	sort.Slice(users, func(i, j int) bool { return users[i] < users[j] })
	return users, nil
}
