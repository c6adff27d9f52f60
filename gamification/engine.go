/*
Package gamification implements the XP ledger engine: decay, regulatory
awards, lab unlocks, levels and ledger validation.

PURPOSE:
  The pure functions in this package (ApplyDecay, AwardRegulatory,
  EvaluateLabs, ResolveLevel, ValidateDocument) compute new ledger state from
  a document and the rule policy. Engine wraps them with storage: every
  mutation is a full read-modify-write of one document inside that user's
  critical section.

OPERATIONS:
  ApplyDecay / DecayAll             rebuild totals from history with decay
  AwardRegulatory                   append idempotent regulatory events
  EvaluateLabs / EvaluateLabsAll    recompute lab unlock state
  Validate                          check every ledger, report, never fix

  After any mutation the level is refreshed from xp_total.

BATCHES:
  Users are independent. Batch runs fan out with a bounded worker group.
  A malformed ledger is reported for that user and the batch continues;
  store and lock failures stop the batch. Users already committed stay
  committed: each document is consistent after its own write.

SEE ALSO:
  - ledger/locker.go: per-user critical sections
  - rules/: the policy every operation runs against
*/
package gamification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/atlantyde-labs/cognitive-suite/ledger"
	"github.com/atlantyde-labs/cognitive-suite/rules"
)

const defaultWorkers = 4

// =============================================================================
// ENGINE
// =============================================================================

type Engine struct {
	Store   ledger.Store
	Locker  ledger.Locker
	Policy  *rules.Policy
	Logger  *slog.Logger
	Now     func() time.Time
	Workers int
}

// NewEngine creates an engine with an in-process locker, the default logger
// and the wall clock. Fields may be replaced before first use.
func NewEngine(store ledger.Store, policy *rules.Policy) *Engine {
	return &Engine{
		Store:   store,
		Locker:  ledger.NewKeyedMutex(),
		Policy:  policy,
		Logger:  slog.Default(),
		Now:     func() time.Time { return time.Now().UTC() },
		Workers: defaultWorkers,
	}
}

// BatchFailure records a user a batch could not update.
type BatchFailure struct {
	User   ledger.UserID `json:"user"`
	Reason string        `json:"reason"`
}

// BatchResult summarizes a run across all users.
type BatchResult struct {
	Updated []ledger.UserID `json:"updated"`
	Failed  []BatchFailure  `json:"failed"`
}

// ResolveLevel resolves xp against the engine's level catalog.
func (e *Engine) ResolveLevel(xp int64) string {
	return ResolveLevel(xp, e.Policy.Levels)
}

// Get returns the stored ledger for user.
func (e *Engine) Get(ctx context.Context, user ledger.UserID) (*ledger.Document, error) {
	if !user.Valid() {
		return nil, fmt.Errorf("%w: %q", ledger.ErrInvalidUser, user)
	}
	return e.Store.Get(ctx, user)
}

// =============================================================================
// SINGLE-USER OPERATIONS
// =============================================================================

// ApplyDecay rebuilds one user's totals from history.
func (e *Engine) ApplyDecay(ctx context.Context, user ledger.UserID) (*ledger.Document, DecaySummary, error) {
	var summary DecaySummary
	doc, err := e.mutate(ctx, user, nil, func(doc *ledger.Document) (bool, error) {
		summary = ApplyDecay(doc, e.Policy.Decay, e.Now())
		return true, nil
	})
	if err != nil {
		return nil, summary, err
	}
	if summary.Skipped > 0 {
		e.Logger.Debug("decay skipped undated events",
			slog.String("user", string(user)), slog.Int("skipped", summary.Skipped))
	}
	return doc, summary, nil
}

// AwardRegulatory applies one trigger. A user without a ledger gets the
// empty skeleton first.
func (e *Engine) AwardRegulatory(ctx context.Context, req AwardRequest) (AwardResult, error) {
	if err := req.Validate(); err != nil {
		return AwardResult{}, err
	}

	if e.replayed(ctx, req) {
		e.Logger.Debug("regulatory award already indexed",
			slog.String("user", string(req.User)), slog.Int64("pr", req.PR))
		return AwardResult{Entries: []AwardEntry{}, Domains: []string{}}, nil
	}

	var result AwardResult
	create := func() *ledger.Document { return ledger.NewDocument(req.User, req.Timestamp) }
	_, err := e.mutate(ctx, req.User, create, func(doc *ledger.Document) (bool, error) {
		result = AwardRegulatory(doc, e.Policy.Regulatory, req)
		return result.Awarded, nil
	})
	if err != nil {
		return AwardResult{}, err
	}

	e.Logger.Info("regulatory award",
		slog.String("user", string(req.User)),
		slog.Int64("pr", req.PR),
		slog.Int("entries", len(result.Entries)),
		slog.Int64("xp", result.TotalXP))
	return result, nil
}

// replayed reports whether the store's award index already holds every key
// the request matches. Any miss or lookup error falls back to the full
// read-modify-write, which deduplicates against history.
func (e *Engine) replayed(ctx context.Context, req AwardRequest) bool {
	idx, ok := e.Store.(ledger.AwardIndex)
	if !ok {
		return false
	}
	keys := AwardKeys(e.Policy.Regulatory, req)
	if len(keys) == 0 {
		return false
	}
	for _, k := range keys {
		exists, err := idx.AwardExists(ctx, req.User, k)
		if err != nil {
			e.Logger.Warn("award index lookup failed",
				slog.String("user", string(req.User)), slog.String("error", err.Error()))
			return false
		}
		if !exists {
			return false
		}
	}
	return true
}

// EvaluateLabs recomputes one user's lab unlock state.
func (e *Engine) EvaluateLabs(ctx context.Context, user ledger.UserID) (*ledger.Document, error) {
	var newly []string
	doc, err := e.mutate(ctx, user, nil, func(doc *ledger.Document) (bool, error) {
		newly = EvaluateLabs(doc, e.Policy.Labs)
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	if len(newly) > 0 {
		e.Logger.Info("labs unlocked", slog.String("user", string(user)), slog.Any("labs", newly))
	}
	return doc, nil
}

// mutate runs fn on the user's ledger inside the user's critical section
// and writes the document back when fn reports a change. create, when set,
// supplies a document for users without one; a created document is always
// written.
func (e *Engine) mutate(
	ctx context.Context,
	user ledger.UserID,
	create func() *ledger.Document,
	fn func(doc *ledger.Document) (bool, error),
) (*ledger.Document, error) {
	if !user.Valid() {
		return nil, fmt.Errorf("%w: %q", ledger.ErrInvalidUser, user)
	}

	unlock, err := e.Locker.Lock(ctx, user)
	if err != nil {
		return nil, err
	}
	defer unlock()

	created := false
	doc, err := e.Store.Get(ctx, user)
	switch {
	case ledger.IsNotFound(err) && create != nil:
		doc, created = create(), true
	case err != nil:
		return nil, fmt.Errorf("load ledger %s: %w", user, err)
	}

	changed, err := fn(doc)
	if err != nil {
		return nil, err
	}
	if !changed && !created {
		return doc, nil
	}

	doc.Level = e.ResolveLevel(doc.XPTotal)
	if err := e.Store.Put(ctx, doc); err != nil {
		return nil, fmt.Errorf("store ledger %s: %w", user, err)
	}
	return doc, nil
}

// =============================================================================
// BATCH OPERATIONS
// =============================================================================

// DecayAll applies decay to every stored ledger.
func (e *Engine) DecayAll(ctx context.Context) (BatchResult, error) {
	return e.forEachUser(ctx, "decay", func(ctx context.Context, user ledger.UserID) error {
		_, _, err := e.ApplyDecay(ctx, user)
		return err
	})
}

// EvaluateLabsAll recomputes lab state for every stored ledger.
func (e *Engine) EvaluateLabsAll(ctx context.Context) (BatchResult, error) {
	return e.forEachUser(ctx, "evaluate labs", func(ctx context.Context, user ledger.UserID) error {
		_, err := e.EvaluateLabs(ctx, user)
		return err
	})
}

func (e *Engine) forEachUser(ctx context.Context, op string, fn func(context.Context, ledger.UserID) error) (BatchResult, error) {
	users, err := e.Store.List(ctx)
	if err != nil {
		return BatchResult{}, fmt.Errorf("list ledgers: %w", err)
	}

	var (
		mu  sync.Mutex
		res = BatchResult{Updated: []ledger.UserID{}, Failed: []BatchFailure{}}
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers())

	for _, user := range users {
		if gctx.Err() != nil {
			break
		}
		user := user
		g.Go(func() error {
			err := fn(gctx, user)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				res.Updated = append(res.Updated, user)
			case ledger.IsDataError(err) || ledger.IsNotFound(err):
				res.Failed = append(res.Failed, BatchFailure{User: user, Reason: err.Error()})
				e.Logger.Warn(op+" skipped ledger", slog.String("user", string(user)), slog.Any("error", err))
			default:
				return fmt.Errorf("%s %s: %w", op, user, err)
			}
			return nil
		})
	}

	err = g.Wait()
	sort.Slice(res.Updated, func(i, j int) bool { return res.Updated[i] < res.Updated[j] })
	sort.Slice(res.Failed, func(i, j int) bool { return res.Failed[i].User < res.Failed[j].User })
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		return res, err
	}

	e.Logger.Info(op+" complete", slog.Int("updated", len(res.Updated)), slog.Int("failed", len(res.Failed)))
	return res, nil
}

func (e *Engine) workers() int {
	if e.Workers <= 0 {
		return defaultWorkers
	}
	return e.Workers
}

// =============================================================================
// VALIDATION
// =============================================================================

// Validate checks every stored ledger. Malformed documents are reported as
// invalid; only store failures abort the run.
func (e *Engine) Validate(ctx context.Context) (ValidationReport, error) {
	report := ValidationReport{Results: []LedgerResult{}}

	users, err := e.Store.List(ctx)
	if err != nil {
		return report, fmt.Errorf("list ledgers: %w", err)
	}

	for _, user := range users {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		doc, err := e.Store.Get(ctx, user)
		switch {
		case ledger.IsNotFound(err):
			continue
		case ledger.IsDataError(err):
			report.add(LedgerResult{User: user, Violations: malformedProblems(err)})
			continue
		case err != nil:
			return report, fmt.Errorf("load ledger %s: %w", user, err)
		}

		violations := ValidateDocument(doc, e.Policy.Levels)
		if doc.User != user {
			violations = append([]string{fmt.Sprintf("user field %q does not match ledger key %q", doc.User, user)}, violations...)
		}
		report.add(LedgerResult{User: user, Valid: len(violations) == 0, Violations: violations})
	}
	return report, nil
}

func malformedProblems(err error) []string {
	var me *ledger.MalformedError
	if errors.As(err, &me) && len(me.Problems) > 0 {
		return me.Problems
	}
	return []string{err.Error()}
}
