/*
validate.go - Consistency checks over stored ledgers

PURPOSE:
  Detects ledgers that break the engine's invariants. It reports; it never
  repairs. A CI gate runs it across the whole store and fails if any ledger
  is invalid.

CHECKS (all of them run, every violation is reported):
  1. document shape (field types, container shapes) at decode time
  2. user field matches the key the ledger is stored under
  3. xp_total == sum(history[].xp)
  4. level == ResolveLevel(xp_total)
  5. xp_total, xp_effective, xp_regulatory are non-negative
  6. every non-empty event timestamp, last_seen and last_decay parse
  7. labs_unlocked and labs_locked do not share a lab

SEE ALSO:
  - engine.go: Engine.Validate walks the store
  - ledger/document.go: shape rules
*/
package gamification

import (
	"fmt"
	"strings"

	"github.com/atlantyde-labs/cognitive-suite/ledger"
	"github.com/atlantyde-labs/cognitive-suite/rules"
)

// LedgerResult is the validation outcome for one ledger.
type LedgerResult struct {
	User       ledger.UserID `json:"user"`
	Valid      bool          `json:"valid"`
	Violations []string      `json:"violations,omitempty"`
}

// Reason is a one-line, human-readable explanation.
func (r LedgerResult) Reason() string {
	if r.Valid {
		return "Valid"
	}
	return strings.Join(r.Violations, "; ")
}

// ValidationReport summarizes a run across the store.
type ValidationReport struct {
	Results []LedgerResult `json:"results"`
	Checked int            `json:"checked"`
	Invalid int            `json:"invalid"`
}

// OK is true when every checked ledger is valid.
func (r ValidationReport) OK() bool {
	return r.Invalid == 0
}

func (r *ValidationReport) add(res LedgerResult) {
	r.Results = append(r.Results, res)
	r.Checked++
	if !res.Valid {
		r.Invalid++
	}
}

// ValidateDocument returns every invariant the document violates.
func ValidateDocument(doc *ledger.Document, levels []rules.Level) []string {
	var v []string

	if sum := doc.HistoryXP(); sum != doc.XPTotal {
		v = append(v, fmt.Sprintf("XP mismatch: total=%d, history_sum=%d", doc.XPTotal, sum))
	}
	if want := ResolveLevel(doc.XPTotal, levels); want != doc.Level {
		v = append(v, fmt.Sprintf("Level mismatch: expected=%s, found=%s", want, doc.Level))
	}

	for _, f := range []struct {
		name  string
		value int64
	}{
		{"xp_total", doc.XPTotal},
		{"xp_effective", doc.XPEffective},
		{"xp_regulatory", doc.XPRegulatory},
	} {
		if f.value < 0 {
			v = append(v, fmt.Sprintf("%s negative: %d", f.name, f.value))
		}
	}

	for i, e := range doc.History {
		if e.Timestamp == "" {
			if !e.NonDecay {
				v = append(v, fmt.Sprintf("history[%d]: decaying event has no timestamp", i))
			}
			continue
		}
		if _, err := ledger.ParseTimestamp(e.Timestamp); err != nil {
			v = append(v, fmt.Sprintf("history[%d]: %v", i, err))
		}
	}
	if doc.LastSeen != "" {
		if _, err := ledger.ParseTimestamp(doc.LastSeen); err != nil {
			v = append(v, fmt.Sprintf("last_seen: %v", err))
		}
	}
	if doc.LastDecay != "" {
		if _, err := ledger.ParseTimestamp(doc.LastDecay); err != nil {
			v = append(v, fmt.Sprintf("last_decay: %v", err))
		}
	}

	locked := make(map[string]bool, len(doc.LabsLocked))
	for _, l := range doc.LabsLocked {
		locked[l] = true
	}
	for _, l := range doc.LabsUnlocked {
		if locked[l] {
			v = append(v, fmt.Sprintf("lab %s is both unlocked and locked", l))
		}
	}
	return v
}
