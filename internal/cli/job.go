package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/sommerlab/boardsync/internal/config"
	"github.com/sommerlab/boardsync/internal/reconcile"
	"github.com/sommerlab/boardsync/internal/state"
)

// jobEnv bundles the pieces every job command needs: the loaded config,
// credentials from the environment, the open state store, and the effective
// dry-run setting.
type jobEnv struct {
	Config  *config.Config
	Secrets config.Secrets
	Store   *state.Store
	DryRun  bool
}

func (e *jobEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// setupJob loads config and secrets and opens the state database. The
// --dry-run flag wins when passed explicitly; otherwise the DRY_RUN
// environment variable decides.
func setupJob(opts *RootOptions) (*jobEnv, error) {
	secrets := config.LoadSecrets()

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "loading config", err)
	}

	dryRun := opts.DryRun
	if !opts.DryRunSet {
		dryRun, err = config.ParseDryRun(os.Getenv("DRY_RUN"))
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "reading DRY_RUN", err)
		}
	}

	st, err := state.Open(cfg.StatePath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "opening state database", err)
	}

	return &jobEnv{Config: cfg, Secrets: secrets, Store: st, DryRun: dryRun}, nil
}

// executeJob runs one reconciliation end to end and prints the outcome.
// Fatal errors (nothing applied) exit 2; a finished run with apply errors
// exits 1.
func executeJob(opts *RootOptions, env *jobEnv, rec reconcile.Reconciler) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("starting job", "job", rec.Name(), "dry_run", env.DryRun)

	runner := &reconcile.Runner{Recorder: env.Store}
	result, plan, err := runner.Run(ctx, rec, env.DryRun)
	if err != nil {
		if result != nil {
			// Interrupted mid-apply: show what was applied before the stop.
			_ = printResult(os.Stdout, opts.Format, result, plan)
			printFatal(os.Stderr, opts.Format, err)
			return WrapExitError(ExitFailure, rec.Name()+" interrupted", err)
		}
		printFatal(os.Stderr, opts.Format, err)
		return WrapExitError(FatalExitCode(err), rec.Name()+" did not run", err)
	}

	if err := printResult(os.Stdout, opts.Format, result, plan); err != nil {
		return WrapExitError(ExitCommandError, "writing output", err)
	}

	if result.Failed() {
		return NewExitError(ExitFailure, fmt.Sprintf("%s finished with %d failed change(s)", rec.Name(), len(result.Errors)))
	}
	return nil
}
