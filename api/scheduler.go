/*
scheduler.go - Periodic ledger maintenance

PURPOSE:
  Decay weights drift as the clock moves on, and lab unlocks depend on
  xp_effective, so a long-running server refreshes every ledger on a timer:
  decay first, then lab evaluation.

DESIGN:
  - Runs a background goroutine with a configurable interval
  - Runs immediately on start, then on every tick
  - Keeps the most recent runs in memory for GET /api/admin/runs
  - A run that fails on store I/O is recorded as failed; the next tick
    tries again

CONFIGURATION:
  - Interval: How often to run (XP_MAINTENANCE_INTERVAL, 0 = never)

USAGE:
  scheduler := NewMaintenanceScheduler(engine, logger)
  scheduler.Interval = time.Hour
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: RunMaintenance endpoint (manual trigger)
  - gamification/engine.go: DecayAll, EvaluateLabsAll
*/
package api

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/atlantyde-labs/cognitive-suite/gamification"
)

const maxRuns = 20

// RunStatus is the outcome of a maintenance run.
type RunStatus string

const (
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// MaintenanceRun records one decay + labs pass.
type MaintenanceRun struct {
	ID          string                   `json:"id"`
	Status      RunStatus                `json:"status"`
	StartedAt   time.Time                `json:"started_at"`
	CompletedAt time.Time                `json:"completed_at"`
	Decay       gamification.BatchResult `json:"decay"`
	Labs        gamification.BatchResult `json:"labs"`
	Error       string                   `json:"error,omitempty"`
}

// MaintenanceScheduler runs decay and lab evaluation periodically.
type MaintenanceScheduler struct {
	Engine   *gamification.Engine
	Logger   *slog.Logger
	Interval time.Duration

	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex
	runMu  sync.Mutex
	runs   []MaintenanceRun
}

// NewMaintenanceScheduler creates a stopped scheduler with an hourly interval.
func NewMaintenanceScheduler(engine *gamification.Engine, logger *slog.Logger) *MaintenanceScheduler {
	return &MaintenanceScheduler{
		Engine:   engine,
		Logger:   logger,
		Interval: time.Hour,
	}
}

// Start begins the scheduler. It is a no-op when Interval is not positive
// or the scheduler is already running.
func (s *MaintenanceScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Interval <= 0 {
		s.Logger.Info("maintenance scheduler disabled")
		return
	}
	if s.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.wg.Add(1)
	go s.run(ctx)

	s.Logger.Info("maintenance scheduler started", slog.Duration("interval", s.Interval))
}

// Stop stops the scheduler and waits for an in-flight run to finish.
func (s *MaintenanceScheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	s.wg.Wait()
	s.Logger.Info("maintenance scheduler stopped")
}

func (s *MaintenanceScheduler) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	// Run immediately on start
	s.RunOnce(ctx)

	for {
		select {
		case <-ticker.C:
			s.RunOnce(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// RunOnce runs decay then lab evaluation across every ledger and records
// the run. Runs never overlap.
func (s *MaintenanceScheduler) RunOnce(ctx context.Context) MaintenanceRun {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	run := MaintenanceRun{ID: uuid.NewString(), StartedAt: time.Now().UTC()}

	decay, err := s.Engine.DecayAll(ctx)
	run.Decay = decay
	if err == nil {
		run.Labs, err = s.Engine.EvaluateLabsAll(ctx)
	}

	run.CompletedAt = time.Now().UTC()
	run.Status = RunCompleted
	if err != nil {
		run.Status = RunFailed
		run.Error = err.Error()
		s.Logger.Error("maintenance run failed", slog.String("run", run.ID), slog.Any("error", err))
	} else {
		s.Logger.Info("maintenance run completed",
			slog.String("run", run.ID),
			slog.Int("decayed", len(run.Decay.Updated)),
			slog.Int("evaluated", len(run.Labs.Updated)))
	}

	s.record(run)
	return run
}

func (s *MaintenanceScheduler) record(run MaintenanceRun) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = append([]MaintenanceRun{run}, s.runs...)
	if len(s.runs) > maxRuns {
		s.runs = s.runs[:maxRuns]
	}
}

// Runs returns recorded runs, newest first.
func (s *MaintenanceScheduler) Runs() []MaintenanceRun {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]MaintenanceRun, len(s.runs))
	copy(out, s.runs)
	return out
}
