/*
Package ledger provides the per-user XP ledger document and its storage contract.

PURPOSE:
  A ledger is the single persisted document holding one user's XP history,
  derived totals, level, badges, domains and lab state. Every engine
  operation reads a full document, recomputes state, and writes the full
  document back. There is no partial update.

KEY CONCEPTS IN THIS FILE (types.go):
  - Document: the per-user ledger (totals, level, history, lab state)
  - Event: one append-only history entry
  - AwardKey: the (rule, PR) tuple that makes regulatory awards idempotent
  - UserID: type-safe user identifier

INVARIANTS:
  1. xp_total == sum(history[].xp)
  2. level == ResolveLevel(xp_total) after every mutation
  3. history is append-only: never truncated, never reordered
  4. labs_unlocked and labs_locked are disjoint and cover the lab catalog

SEE ALSO:
  - document.go: JSON encoding and shape checks at the store boundary
  - store.go: Store interface
  - locker.go: per-user critical sections
*/
package ledger

import (
	"encoding/json"
	"strings"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type UserID string

// Valid reports whether the identifier can address a ledger document.
// Path separators are rejected so file-backed stores cannot escape their root.
func (u UserID) Valid() bool {
	s := string(u)
	if strings.TrimSpace(s) == "" || s == "." || s == ".." {
		return false
	}
	return !strings.ContainsAny(s, `/\`)
}

// DefaultLevel is the level every ledger starts at and the resolver's
// fallback when no catalog entry qualifies.
const DefaultLevel = "L0"

// =============================================================================
// EVENT - Append-only history entry
// =============================================================================

type EventType string

const (
	EventRegulatory EventType = "regulatory"
)

// Event is one history entry. Timestamp is kept as the raw string found in
// the document so malformed values survive a load and can be skipped by decay
// or reported by validation.
type Event struct {
	ID         string    `json:"id,omitempty"`
	Type       EventType `json:"type"`
	XP         int64     `json:"xp"`
	Timestamp  string    `json:"timestamp,omitempty"`
	NonDecay   bool      `json:"non_decay,omitempty"`
	Regulatory string    `json:"regulatory,omitempty"`
	Domain     string    `json:"domain,omitempty"`
	SourcePR   *int64    `json:"source_pr,omitempty"`
}

// AwardKey identifies a regulatory award: the rule key and the PR that
// triggered it. At most one event per key may exist in a history.
type AwardKey struct {
	Rule string
	PR   int64
}

// AwardKey returns the dedup key of a regulatory event.
// ok is false for events that are not regulatory awards.
func (e Event) AwardKey() (AwardKey, bool) {
	if e.Type != EventRegulatory || e.SourcePR == nil || e.Regulatory == "" {
		return AwardKey{}, false
	}
	return AwardKey{Rule: e.Regulatory, PR: *e.SourcePR}, true
}

// =============================================================================
// LAB CREDITS
// =============================================================================

type LabCredit struct {
	Lab            string  `json:"lab"`
	Credits        float64 `json:"credits"`
	ECTSEquivalent float64 `json:"ects_equivalent"`
}

// =============================================================================
// DOCUMENT - One ledger per user
// =============================================================================

type Document struct {
	User         UserID                     `json:"user"`
	XPTotal      int64                      `json:"xp_total"`
	XPEffective  int64                      `json:"xp_effective"`
	XPRegulatory int64                      `json:"xp_regulatory"`
	Level        string                     `json:"level"`
	LastSeen     string                     `json:"last_seen,omitempty"`
	LastDecay    string                     `json:"last_decay,omitempty"`
	Badges       map[string]json.RawMessage `json:"badges"`
	History      []Event                    `json:"history"`
	Feedback     []json.RawMessage          `json:"feedback"`
	Domains      []string                   `json:"domains"`
	LabsUnlocked []string                   `json:"labs_unlocked"`
	LabsLocked   []string                   `json:"labs_locked"`
	LabCredits   []LabCredit                `json:"lab_credits"`

	awards map[AwardKey]struct{}
}

// NewDocument returns the empty skeleton a ledger starts from.
func NewDocument(user UserID, lastSeen string) *Document {
	d := &Document{
		User:     user,
		Level:    DefaultLevel,
		LastSeen: lastSeen,
	}
	d.normalize()
	return d
}

// Append adds an event to the history. It does not touch totals.
func (d *Document) Append(e Event) {
	d.History = append(d.History, e)
	if k, ok := e.AwardKey(); ok && d.awards != nil {
		d.awards[k] = struct{}{}
	}
}

// HasAward reports whether a regulatory award with this key is already
// recorded. The index is built from history on first use.
func (d *Document) HasAward(k AwardKey) bool {
	if d.awards == nil {
		d.awards = make(map[AwardKey]struct{}, len(d.History))
		for _, e := range d.History {
			if key, ok := e.AwardKey(); ok {
				d.awards[key] = struct{}{}
			}
		}
	}
	_, ok := d.awards[k]
	return ok
}

// HistoryXP is the sum of xp over the full history.
func (d *Document) HistoryXP() int64 {
	var sum int64
	for _, e := range d.History {
		sum += e.XP
	}
	return sum
}

// BadgeSet returns the set of badge identifiers held.
func (d *Document) BadgeSet() map[string]bool {
	set := make(map[string]bool, len(d.Badges))
	for id := range d.Badges {
		set[id] = true
	}
	return set
}

// DomainSet returns the domains as a set.
func (d *Document) DomainSet() map[string]bool {
	set := make(map[string]bool, len(d.Domains))
	for _, dom := range d.Domains {
		set[dom] = true
	}
	return set
}

// normalize replaces nil collections with empty ones so the encoded
// document always carries the expected container shapes.
func (d *Document) normalize() {
	if d.Badges == nil {
		d.Badges = map[string]json.RawMessage{}
	}
	if d.History == nil {
		d.History = []Event{}
	}
	if d.Feedback == nil {
		d.Feedback = []json.RawMessage{}
	}
	if d.Domains == nil {
		d.Domains = []string{}
	}
	if d.LabsUnlocked == nil {
		d.LabsUnlocked = []string{}
	}
	if d.LabsLocked == nil {
		d.LabsLocked = []string{}
	}
	if d.LabCredits == nil {
		d.LabCredits = []LabCredit{}
	}
}
