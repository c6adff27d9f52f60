/*
errors.go - Centralized error types for the ledger package

ERROR CATEGORIES:
  1. Lookup errors - ledger not found, invalid user identifier
  2. Shape errors - a stored document does not match the ledger schema
  3. Locking errors - a per-user critical section could not be entered

USAGE:
  doc, err := store.Get(ctx, user)
  if ledger.IsNotFound(err) {
      doc = ledger.NewDocument(user, ts)
  }

SEE ALSO:
  - document.go: produces MalformedError
  - store.go: produces ErrLedgerNotFound
*/
package ledger

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrLedgerNotFound is returned by Store.Get when no document exists.
	ErrLedgerNotFound = errors.New("ledger not found")

	// ErrMalformedLedger is returned when a stored document does not have the
	// expected field types or container shapes.
	ErrMalformedLedger = errors.New("malformed ledger document")

	// ErrInvalidUser is returned for empty or path-like user identifiers.
	ErrInvalidUser = errors.New("invalid user identifier")

	// ErrLockTimeout is returned when a per-user lock could not be acquired
	// before the context expired.
	ErrLockTimeout = errors.New("timed out acquiring ledger lock")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// MalformedError lists every shape problem found in one stored document.
type MalformedError struct {
	User     UserID
	Problems []string
}

func (e *MalformedError) Error() string {
	if e.User == "" {
		return fmt.Sprintf("malformed ledger: %s", strings.Join(e.Problems, "; "))
	}
	return fmt.Sprintf("malformed ledger %s: %s", e.User, strings.Join(e.Problems, "; "))
}

func (e *MalformedError) Unwrap() error {
	return ErrMalformedLedger
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound returns true if the error indicates a missing ledger.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrLedgerNotFound)
}

// IsDataError returns true for per-document problems that a batch run
// should report for the user and move past.
func IsDataError(err error) bool {
	return errors.Is(err, ErrMalformedLedger)
}
