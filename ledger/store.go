/*
store.go - Persistence interface for ledger documents

PURPOSE:
  Defines the boundary between the engine and whatever holds the documents.
  The engine only needs three operations: read one document, replace one
  document, and enumerate users. Backends decide how documents are laid out.

CONTRACT:
  Get:  returns the full document, or ErrLedgerNotFound.
        Documents failing the shape rules return a *MalformedError.
  Put:  replaces the full document. The document is encoded through
        EncodeDocument, so nil collections are written as empty ones.
  List: every user with a stored document, sorted.

  There is no Delete. Nothing in the engine removes a ledger.

  Backends that implement RawWriter accept documents verbatim. Imports use
  it so a malformed ledger arrives unchanged and validation can report it.

  Backends that implement AwardIndex answer "is this award already
  recorded?" without decoding the document. A true answer must mean the
  award is in the committed history.

IMPLEMENTATIONS:
  - ledger/store/memory.go: in-memory, for tests and dry runs
  - store/sqlite: SQLite table with one JSON document per user
  - store/postgres: PostgreSQL JSONB table (pgx)
  - store/filestore: one <user>.json file per user

SEE ALSO:
  - locker.go: callers serialize read-modify-write per user
*/
package ledger

import "context"

// Store persists one ledger document per user.
type Store interface {
	// Get returns the ledger for user or ErrLedgerNotFound.
	Get(ctx context.Context, user UserID) (*Document, error)

	// Put replaces the ledger for doc.User.
	Put(ctx context.Context, doc *Document) error

	// List returns every user that has a ledger, sorted.
	List(ctx context.Context) ([]UserID, error)
}

// RawWriter stores a document exactly as given, without shape checks.
type RawWriter interface {
	PutRaw(ctx context.Context, user UserID, raw []byte) error
}

// AwardIndex looks up award dedup keys kept alongside stored documents.
type AwardIndex interface {
	AwardExists(ctx context.Context, user UserID, key AwardKey) (bool, error)
}
