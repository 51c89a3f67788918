package state

import (
	"context"
	"fmt"
	"time"

	"github.com/sommerlab/boardsync/internal/reconcile"
)

// Run is one recorded reconciliation run.
type Run struct {
	RunToken string
	Job      string
	DryRun   bool
	Created  int
	Updated  int
	Archived int
	Skipped  int
	Errors   int
	Started  time.Time
	Finished time.Time
}

// RecordRun persists a run summary. Implements reconcile.Recorder.
// Re-recording the same run token is silently ignored.
func (s *Store) RecordRun(ctx context.Context, result *reconcile.RunResult) error {
	dryRun := 0
	if result.DryRun {
		dryRun = 1
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs
		(run_token, job, dry_run, created, updated, archived, skipped, errors, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_token) DO NOTHING
	`,
		result.RunToken,
		result.Job,
		dryRun,
		result.Created,
		result.Updated,
		result.Archived,
		result.Skipped,
		len(result.Errors),
		result.Started.UTC().Format(time.RFC3339),
		result.Finished.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

// RecentRuns returns up to limit runs, newest first. A job filter of ""
// returns runs for every job.
func (s *Store) RecentRuns(ctx context.Context, job string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT run_token, job, dry_run, created, updated, archived, skipped, errors, started_at, finished_at
		FROM runs
	`
	args := []any{}
	if job != "" {
		query += " WHERE job = ?"
		args = append(args, job)
	}
	query += " ORDER BY started_at DESC, run_token ASC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("recent runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		var dryRun int
		var started, finished string
		if err := rows.Scan(&r.RunToken, &r.Job, &dryRun, &r.Created, &r.Updated,
			&r.Archived, &r.Skipped, &r.Errors, &started, &finished); err != nil {
			return nil, fmt.Errorf("recent runs: %w", err)
		}
		r.DryRun = dryRun != 0
		if r.Started, err = time.Parse(time.RFC3339, started); err != nil {
			return nil, fmt.Errorf("recent runs: parse started_at %q: %w", started, err)
		}
		if r.Finished, err = time.Parse(time.RFC3339, finished); err != nil {
			return nil, fmt.Errorf("recent runs: parse finished_at %q: %w", finished, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("recent runs: %w", err)
	}
	return out, nil
}
