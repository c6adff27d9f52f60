package gamification

import (
	"errors"

	"github.com/atlantyde-labs/cognitive-suite/ledger"
)

// ErrInvalidRequest is returned for award triggers that cannot be applied
// (non-positive PR, unparsable timestamp).
var ErrInvalidRequest = errors.New("invalid award request")

// IsClientError returns true if the error is due to invalid caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) || errors.Is(err, ledger.ErrInvalidUser)
}
