package rules

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMissingConfig is returned when a required rule document is absent.
	ErrMissingConfig = errors.New("rule configuration missing")

	// ErrInvalidConfig is returned when a rule document fails validation.
	ErrInvalidConfig = errors.New("invalid rule configuration")
)

// ConfigError lists every problem found in one rule document.
type ConfigError struct {
	File     string
	Problems []string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s", e.File, strings.Join(e.Problems, "; "))
}

func (e *ConfigError) Unwrap() error {
	return ErrInvalidConfig
}

// IsConfigError returns true for any configuration failure. These are
// fatal: a run must stop before it touches a ledger.
func IsConfigError(err error) bool {
	return errors.Is(err, ErrInvalidConfig) || errors.Is(err, ErrMissingConfig)
}
