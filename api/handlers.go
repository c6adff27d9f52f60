/*
handlers.go - HTTP API handlers for the XP ledger engine

PURPOSE:
  Exposes the ledger engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to gamification.Engine.

ENDPOINTS:
  Health:
    GET    /healthz                       Liveness probe

  Users:
    GET    /api/users                     List users with a ledger
    GET    /api/users/{user}              Full ledger document
    POST   /api/users/{user}/awards       Regulatory award for one PR
    POST   /api/users/{user}/decay        Recompute XP with decay
    POST   /api/users/{user}/labs         Recompute lab unlocks

  Admin:
    POST   /api/admin/decay               Decay every ledger
    POST   /api/admin/labs                Evaluate labs for every ledger
    GET    /api/admin/validate            Validate every ledger
    POST   /api/admin/maintenance         Run decay + labs now
    GET    /api/admin/runs                Recent maintenance runs

  Catalog:
    GET    /api/levels                    Level catalog
    GET    /api/levels?xp=N               Level for an XP total

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Invalid user id, invalid award request, unparsable body
  - 404: No ledger for the user
  - 422: Stored ledger is malformed
  - 503: Per-user lock could not be acquired in time
  - 500: Internal errors

  An award for a PR that was already awarded is not an error: it returns
  200 with awarded=false and no entries.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - scheduler.go: Periodic maintenance
*/
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/atlantyde-labs/cognitive-suite/gamification"
	"github.com/atlantyde-labs/cognitive-suite/ledger"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Engine    *gamification.Engine
	Logger    *slog.Logger
	Scheduler *MaintenanceScheduler
}

// NewHandler creates a handler over the engine. The maintenance scheduler
// is created stopped; callers start it when periodic runs are wanted.
func NewHandler(engine *gamification.Engine, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		Engine:    engine,
		Logger:    logger,
		Scheduler: NewMaintenanceScheduler(engine, logger),
	}
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// USER HANDLERS
// =============================================================================

// ListUsers returns every user with a stored ledger.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.Engine.Store.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list ledgers", err)
		return
	}
	if users == nil {
		users = []ledger.UserID{}
	}
	writeJSON(w, http.StatusOK, UserListDTO{Users: users, Count: len(users)})
}

// GetLedger returns a user's full ledger document.
func (h *Handler) GetLedger(w http.ResponseWriter, r *http.Request) {
	doc, err := h.Engine.Get(r.Context(), userParam(r))
	if err != nil {
		h.writeEngineError(w, r, "Failed to load ledger", err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// AwardRegulatory applies one PR trigger to a user's ledger.
func (h *Handler) AwardRegulatory(w http.ResponseWriter, r *http.Request) {
	var req AwardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	result, err := h.Engine.AwardRegulatory(r.Context(), gamification.AwardRequest{
		User:      userParam(r),
		PR:        req.PR,
		Labels:    req.Labels,
		Timestamp: req.Timestamp,
	})
	if err != nil {
		h.writeEngineError(w, r, "Failed to award regulatory XP", err)
		return
	}

	status := http.StatusOK
	if result.Awarded {
		status = http.StatusCreated
	}
	writeJSON(w, status, result)
}

// ApplyDecay recomputes one user's XP with decay.
func (h *Handler) ApplyDecay(w http.ResponseWriter, r *http.Request) {
	doc, summary, err := h.Engine.ApplyDecay(r.Context(), userParam(r))
	if err != nil {
		h.writeEngineError(w, r, "Failed to apply decay", err)
		return
	}
	writeJSON(w, http.StatusOK, toDecayDTO(doc, summary))
}

// EvaluateLabs recomputes one user's lab unlock state.
func (h *Handler) EvaluateLabs(w http.ResponseWriter, r *http.Request) {
	doc, err := h.Engine.EvaluateLabs(r.Context(), userParam(r))
	if err != nil {
		h.writeEngineError(w, r, "Failed to evaluate labs", err)
		return
	}
	writeJSON(w, http.StatusOK, toLabsDTO(doc))
}

// =============================================================================
// ADMIN HANDLERS
// =============================================================================

// DecayAll decays every stored ledger.
func (h *Handler) DecayAll(w http.ResponseWriter, r *http.Request) {
	res, err := h.Engine.DecayAll(r.Context())
	if err != nil {
		h.writeEngineError(w, r, "Decay run failed", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// EvaluateLabsAll evaluates labs for every stored ledger.
func (h *Handler) EvaluateLabsAll(w http.ResponseWriter, r *http.Request) {
	res, err := h.Engine.EvaluateLabsAll(r.Context())
	if err != nil {
		h.writeEngineError(w, r, "Lab evaluation failed", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Validate checks every stored ledger. Invalid ledgers are part of a
// successful response; only store failures are errors.
func (h *Handler) Validate(w http.ResponseWriter, r *http.Request) {
	report, err := h.Engine.Validate(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Validation failed", err)
		return
	}
	writeJSON(w, http.StatusOK, ValidationResponse{OK: report.OK(), ValidationReport: report})
}

// RunMaintenance runs decay followed by lab evaluation immediately.
func (h *Handler) RunMaintenance(w http.ResponseWriter, r *http.Request) {
	run := h.Scheduler.RunOnce(r.Context())
	status := http.StatusOK
	if run.Status == RunFailed {
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, run)
}

// ListRuns returns recent maintenance runs, newest first.
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Scheduler.Runs())
}

// =============================================================================
// CATALOG HANDLERS
// =============================================================================

// GetLevels returns the level catalog, or the level for ?xp=N.
func (h *Handler) GetLevels(w http.ResponseWriter, r *http.Request) {
	if raw := r.URL.Query().Get("xp"); raw != "" {
		xp, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || xp < 0 {
			writeError(w, http.StatusBadRequest, "xp must be a non-negative integer", err)
			return
		}
		writeJSON(w, http.StatusOK, LevelDTO{XP: xp, Level: h.Engine.ResolveLevel(xp)})
		return
	}

	levels := h.Engine.Policy.Levels
	dtos := make([]LevelCatalogDTO, len(levels))
	for i, l := range levels {
		dtos[i] = LevelCatalogDTO{Key: l.Key, MinXP: l.MinXP}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// HELPERS
// =============================================================================

func userParam(r *http.Request) ledger.UserID {
	return ledger.UserID(chi.URLParam(r, "user"))
}

// writeEngineError maps engine errors onto HTTP statuses.
func (h *Handler) writeEngineError(w http.ResponseWriter, r *http.Request, message string, err error) {
	status := http.StatusInternalServerError
	switch {
	case gamification.IsClientError(err):
		status = http.StatusBadRequest
	case ledger.IsNotFound(err):
		status = http.StatusNotFound
	case ledger.IsDataError(err):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, ledger.ErrLockTimeout):
		status = http.StatusServiceUnavailable
	}
	if status >= http.StatusInternalServerError {
		h.Logger.Error(message,
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.Any("error", err))
	}
	writeError(w, status, message, err)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
