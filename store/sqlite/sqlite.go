/*
Package sqlite provides a SQLite-backed implementation of ledger.Store.

PURPOSE:
  Keeps one JSON ledger document per user in a single table. The engine
  never issues partial updates: Put replaces the whole document.

KEY TABLES:
  ledgers:             user_id -> document_json, updated_at
  regulatory_awards:   (user_id, rule_key, source_pr) mirror of the award
                       dedup keys found in each stored history, rebuilt
                       in the same transaction as every write

INDEXES:
  - PRIMARY KEY(user_id) on ledgers: Get/Put hot path
  - PRIMARY KEY(user_id, rule_key, source_pr) on regulatory_awards: the
    dedup key as a relational unique constraint. The engine asks it
    (ledger.AwardIndex) before locking and decoding a ledger to replay a
    trigger it has already seen.

CONCURRENCY:
  An RWMutex orders statements inside one process and the database runs in
  WAL mode so readers in other processes are not blocked by a writer.
  Serializing a user's read-modify-write is ledger.Locker's job.

USAGE:
  s, err := sqlite.New(cfg.SQLitePath)
  ...
  engine := gamification.NewEngine(s, policy)

SEE ALSO:
  - ledger/store.go: Interface definition
  - ledger/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/atlantyde-labs/cognitive-suite/ledger"
)

// Store implements ledger.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New opens (or creates) the database at dbPath and migrates it.
// ":memory:" gives a private database that lives as long as the store.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// An in-memory database lives and dies with its connection.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS ledgers (
		user_id TEXT PRIMARY KEY,
		document_json TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS regulatory_awards (
		user_id TEXT NOT NULL,
		rule_key TEXT NOT NULL,
		source_pr INTEGER NOT NULL,
		PRIMARY KEY (user_id, rule_key, source_pr)
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// LEDGER STORE (ledger.Store interface)
// =============================================================================

// Get loads and decodes a user's ledger.
func (s *Store) Get(ctx context.Context, user ledger.UserID) (*ledger.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var raw string
	err := s.db.QueryRowContext(ctx,
		"SELECT document_json FROM ledgers WHERE user_id = ?", string(user),
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ledger.ErrLedgerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger: %w", err)
	}
	return ledger.DecodeDocument([]byte(raw))
}

// Put replaces a user's ledger and refreshes its award keys atomically.
func (s *Store) Put(ctx context.Context, doc *ledger.Document) error {
	data, err := ledger.EncodeDocument(doc)
	if err != nil {
		return err
	}
	return s.write(ctx, doc.User, data, doc.History)
}

// write upserts the document and replaces the user's award rows with the
// keys found in history, in one transaction.
func (s *Store) write(ctx context.Context, user ledger.UserID, data []byte, history []ledger.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO ledgers (user_id, document_json, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			document_json = excluded.document_json,
			updated_at = excluded.updated_at
	`, string(user), string(data), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to store ledger: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM regulatory_awards WHERE user_id = ?", string(user),
	); err != nil {
		return fmt.Errorf("failed to reset award index: %w", err)
	}
	for _, e := range history {
		key, ok := e.AwardKey()
		if !ok {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO regulatory_awards (user_id, rule_key, source_pr) VALUES (?, ?, ?)",
			string(user), key.Rule, key.PR,
		); err != nil {
			return fmt.Errorf("failed to index award: %w", err)
		}
	}

	return tx.Commit()
}

// List returns every user with a ledger, sorted.
func (s *Store) List(ctx context.Context) ([]ledger.UserID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT user_id FROM ledgers ORDER BY user_id")
	if err != nil {
		return nil, fmt.Errorf("failed to list ledgers: %w", err)
	}
	defer rows.Close()

	var users []ledger.UserID
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, err
		}
		users = append(users, ledger.UserID(u))
	}
	return users, rows.Err()
}

// =============================================================================
// AWARD INDEX
// =============================================================================

// AwardExists checks the relational dedup index for a (rule, PR) award.
// It implements ledger.AwardIndex.
func (s *Store) AwardExists(ctx context.Context, user ledger.UserID, key ledger.AwardKey) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM regulatory_awards WHERE user_id = ? AND rule_key = ? AND source_pr = ?",
		string(user), key.Rule, key.PR,
	).Scan(&count)

	return count > 0, err
}

// PutRaw stores a document exactly as given, bypassing encoding. Used to
// import ledgers written by other tools so validation can inspect them.
// Award keys are indexed when the document decodes; a malformed document
// leaves the user with no indexed awards.
func (s *Store) PutRaw(ctx context.Context, user ledger.UserID, raw []byte) error {
	var history []ledger.Event
	if doc, err := ledger.DecodeDocument(raw); err == nil {
		history = doc.History
	}
	if err := s.write(ctx, user, raw, history); err != nil {
		return fmt.Errorf("failed to import ledger: %w", err)
	}
	return nil
}
