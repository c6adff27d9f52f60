// Package cli implements the xpledger command-line interface using Cobra.
// Each subcommand maps to one engine operation (decay, award, labs, validate)
// or a read-only lookup (level, rules). serve exposes the same operations
// over HTTP.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/atlantyde-labs/cognitive-suite/config"
	"github.com/atlantyde-labs/cognitive-suite/gamification"
	"github.com/atlantyde-labs/cognitive-suite/rules"
)

// errInvalidLedgers makes validate exit non-zero without an extra message;
// the per-user report has already been printed.
var errInvalidLedgers = errors.New("invalid ledgers found")

// app is the state shared by every subcommand of one invocation.
type app struct {
	out    io.Writer
	errOut io.Writer

	flags struct {
		rulesDir string
		store    string
		usersDir string
		dbPath   string
		logLevel string
		workers  int
	}

	cfg     config.Config
	logger  *slog.Logger
	policy  *rules.Policy
	engine  *gamification.Engine
	closers []func() error
}

// newRootCmd builds the command tree writing to a.out and a.errOut.
func newRootCmd(a *app, version string) *cobra.Command {
	root := &cobra.Command{
		Use:   "xpledger",
		Short: "XP ledger engine: decay, regulatory awards, lab unlocks",
		Long: `xpledger maintains per-user XP ledgers.

It applies time decay to earned XP, awards non-decaying regulatory XP from
PR labels, evaluates lab unlocks and validates every stored ledger.`,
		Version:           version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error { return a.setup(cmd) },
	}
	root.SetOut(a.out)
	root.SetErr(a.errOut)

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.rulesDir, "rules", "", "Rules root holding metrics/ and labs/ (overrides XP_RULES_DIR)")
	pf.StringVar(&a.flags.store, "store", "", "Ledger backend: file, sqlite, postgres, memory (overrides XP_STORE)")
	pf.StringVar(&a.flags.usersDir, "users-dir", "", "Ledger directory for the file store (overrides XP_USERS_DIR)")
	pf.StringVar(&a.flags.dbPath, "db", "", "SQLite database path (overrides XP_SQLITE_PATH)")
	pf.StringVar(&a.flags.logLevel, "log-level", "", "Log level (overrides XP_LOG_LEVEL)")
	pf.IntVar(&a.flags.workers, "workers", 0, "Batch concurrency (overrides XP_WORKERS)")

	root.AddCommand(
		newDecayCmd(a),
		newLabsCmd(a),
		newAwardCmd(a),
		newValidateCmd(a),
		newLevelCmd(a),
		newRulesCmd(a),
		newImportCmd(a),
		newServeCmd(a),
	)
	return root
}

// Run executes one invocation and returns the process exit code.
func Run(ctx context.Context, args []string, out, errOut io.Writer, version string) int {
	a := &app{out: out, errOut: errOut}
	defer a.close()

	root := newRootCmd(a, version)
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errInvalidLedgers):
		return 1
	default:
		fmt.Fprintln(errOut, "Error:", err)
		return 1
	}
}

// Execute runs the root command. Called from main.go.
func Execute(version string) {
	os.Exit(Run(context.Background(), os.Args[1:], os.Stdout, os.Stderr, version))
}

// setup loads configuration and rules. A broken rule document stops the
// command before any ledger is opened.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	f := cmd.Flags()
	if f.Changed("rules") {
		cfg.RulesDir = a.flags.rulesDir
	}
	if f.Changed("store") {
		cfg.Store = a.flags.store
	}
	if f.Changed("users-dir") {
		cfg.UsersDir = a.flags.usersDir
	}
	if f.Changed("db") {
		cfg.SQLitePath = a.flags.dbPath
	}
	if f.Changed("log-level") {
		cfg.LogLevel = a.flags.logLevel
	}
	if f.Changed("workers") {
		cfg.Workers = a.flags.workers
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	a.cfg = cfg
	a.logger = cfg.NewLogger(a.errOut)
	slog.SetDefault(a.logger)

	policy, err := rules.Load(cfg.RulesDir)
	if err != nil {
		return fmt.Errorf("load rules: %w", err)
	}
	a.policy = policy
	return nil
}

// openEngine opens the configured store and locker on first use.
func (a *app) openEngine(ctx context.Context) (*gamification.Engine, error) {
	if a.engine != nil {
		return a.engine, nil
	}

	store, closeStore, err := openStore(ctx, a.cfg)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, closeStore)

	engine := gamification.NewEngine(store, a.policy)
	engine.Logger = a.logger
	engine.Workers = a.cfg.Workers

	if a.cfg.RedisAddr != "" {
		locker, closeLocker, err := openRedisLocker(ctx, a.cfg)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, closeLocker)
		engine.Locker = locker
	}

	a.engine = engine
	return engine, nil
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && a.logger != nil {
			a.logger.Warn("close failed", slog.Any("error", err))
		}
	}
	a.closers = nil
}
