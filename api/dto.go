/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. Ledger documents are
  returned as stored; the types here cover requests and the summaries
  returned by mutating endpoints.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

VALIDATION:
  Validation is done by the engine, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - gamification/award.go: AwardResult returned as-is
*/
package api

import (
	"github.com/atlantyde-labs/cognitive-suite/gamification"
	"github.com/atlantyde-labs/cognitive-suite/ledger"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// AwardRequest is the body of POST /api/users/{user}/awards.
// The user comes from the path.
type AwardRequest struct {
	PR        int64    `json:"pr_number"`
	Labels    []string `json:"labels"`
	Timestamp string   `json:"timestamp"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// UserListDTO lists users with a stored ledger.
type UserListDTO struct {
	Users []ledger.UserID `json:"users"`
	Count int             `json:"count"`
}

// DecayDTO is returned after decaying one ledger.
type DecayDTO struct {
	User         ledger.UserID `json:"user"`
	XPTotal      int64         `json:"xp_total"`
	XPEffective  int64         `json:"xp_effective"`
	XPRegulatory int64         `json:"xp_regulatory"`
	Level        string        `json:"level"`
	LastDecay    string        `json:"last_decay"`
	Events       int           `json:"events"`
	NonDecaying  int           `json:"non_decaying"`
	Skipped      int           `json:"skipped"`
}

func toDecayDTO(doc *ledger.Document, s gamification.DecaySummary) DecayDTO {
	return DecayDTO{
		User:         doc.User,
		XPTotal:      doc.XPTotal,
		XPEffective:  doc.XPEffective,
		XPRegulatory: doc.XPRegulatory,
		Level:        doc.Level,
		LastDecay:    doc.LastDecay,
		Events:       s.Events,
		NonDecaying:  s.NonDecaying,
		Skipped:      s.Skipped,
	}
}

// LabsDTO is returned after evaluating one ledger's labs.
type LabsDTO struct {
	User         ledger.UserID      `json:"user"`
	LabsUnlocked []string           `json:"labs_unlocked"`
	LabsLocked   []string           `json:"labs_locked"`
	LabCredits   []ledger.LabCredit `json:"lab_credits"`
}

func toLabsDTO(doc *ledger.Document) LabsDTO {
	return LabsDTO{
		User:         doc.User,
		LabsUnlocked: doc.LabsUnlocked,
		LabsLocked:   doc.LabsLocked,
		LabCredits:   doc.LabCredits,
	}
}

// LevelDTO resolves one XP total.
type LevelDTO struct {
	XP    int64  `json:"xp"`
	Level string `json:"level"`
}

// LevelCatalogDTO is one entry of the level catalog.
type LevelCatalogDTO struct {
	Key   string `json:"key"`
	MinXP int64  `json:"min_xp"`
}

// ValidationResponse wraps the validation report with an overall verdict.
type ValidationResponse struct {
	OK bool `json:"ok"`
	gamification.ValidationReport
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
