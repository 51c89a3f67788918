package reconcile

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Op identifies the kind of destination mutation a change performs.
type Op string

const (
	OpCreate  Op = "create"
	OpUpdate  Op = "update"
	OpArchive Op = "archive"
)

// opRank orders operations deterministically within a plan:
// creates first, then updates, then archives.
var opRank = map[Op]int{OpCreate: 0, OpUpdate: 1, OpArchive: 2}

// Change is a single planned destination mutation.
//
// ItemID is the stable source identifier the change acts for (a Slack
// message timestamp, a Trello card ID, a CSV row key). Apply must be
// idempotent: a concurrent run may have already performed the same change.
type Change struct {
	Op      Op
	ItemID  string
	Summary string
	Apply   func(ctx context.Context) error
}

// Plan is the computed set of changes for one run.
type Plan struct {
	Job     string
	Changes []Change

	// Skipped counts source items inspected but needing no change.
	Skipped int
}

// Sort orders changes by (op, item ID) so plan rendering and application
// order are deterministic across runs.
func (p *Plan) Sort() {
	sort.SliceStable(p.Changes, func(i, j int) bool {
		a, b := p.Changes[i], p.Changes[j]
		if opRank[a.Op] != opRank[b.Op] {
			return opRank[a.Op] < opRank[b.Op]
		}
		return a.ItemID < b.ItemID
	})
}

// Counts returns the number of planned creates, updates, and archives.
func (p *Plan) Counts() (created, updated, archived int) {
	for _, c := range p.Changes {
		switch c.Op {
		case OpCreate:
			created++
		case OpUpdate:
			updated++
		case OpArchive:
			archived++
		}
	}
	return created, updated, archived
}

// ErrorRecord captures one failed change, in the order encountered.
type ErrorRecord struct {
	ItemID  string `json:"item_id"`
	Op      Op     `json:"op"`
	Message string `json:"message"`
}

// RunResult summarizes one reconciliation run.
type RunResult struct {
	Job      string        `json:"job"`
	RunToken string        `json:"run_token"`
	DryRun   bool          `json:"dry_run"`
	Created  int           `json:"created"`
	Updated  int           `json:"updated"`
	Archived int           `json:"archived"`
	Skipped  int           `json:"skipped"`
	Errors   []ErrorRecord `json:"errors,omitempty"`
	Started  time.Time     `json:"started"`
	Finished time.Time     `json:"finished"`
}

// Failed reports whether any change failed to apply.
func (r *RunResult) Failed() bool {
	return len(r.Errors) > 0
}

// Reconciler is implemented by each boardsync job.
type Reconciler interface {
	// Name identifies the job ("inbox", "groom", "mirror", "funding").
	Name() string

	// Plan reads source and destination state and computes the changes
	// needed. Any error returned here is fatal to the run.
	Plan(ctx context.Context) (*Plan, error)
}

// Recorder persists run history. The state store implements it.
type Recorder interface {
	RecordRun(ctx context.Context, result *RunResult) error
}

// Runner executes reconcilers with the shared run semantics.
type Runner struct {
	Recorder Recorder         // optional
	Logger   *slog.Logger     // defaults to slog.Default()
	Now      func() time.Time // defaults to time.Now
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

func (r *Runner) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

// Run plans and, unless dryRun is set, applies one reconciliation pass.
//
// A planning error is returned as-is and nothing is recorded: the run never
// started mutating. Apply errors never abort the pass; they are collected in
// the result. Cancellation stops before the next change, records the partial
// result, and returns it with an APPLY-coded error. The returned Plan lets
// callers render what was (or would be) done.
func (r *Runner) Run(ctx context.Context, rec Reconciler, dryRun bool) (*RunResult, *Plan, error) {
	token := uuid.Must(uuid.NewV7()).String()
	log := r.logger().With("job", rec.Name(), "run", token)

	result := &RunResult{
		Job:      rec.Name(),
		RunToken: token,
		DryRun:   dryRun,
		Started:  r.now(),
	}

	log.Info("planning", "dry_run", dryRun)
	plan, err := rec.Plan(ctx)
	if err != nil {
		log.Error("planning failed", "error", err)
		return nil, nil, err
	}
	plan.Sort()
	result.Skipped = plan.Skipped

	if dryRun {
		// Report what a real run would attempt, mutate nothing.
		result.Created, result.Updated, result.Archived = plan.Counts()
		result.Finished = r.now()
		log.Info("dry-run complete",
			"created", result.Created, "updated", result.Updated,
			"archived", result.Archived, "skipped", result.Skipped)
		r.record(ctx, log, result)
		return result, plan, nil
	}

	for _, change := range plan.Changes {
		if err := ctx.Err(); err != nil {
			// Changes already applied must still reach run history and the
			// exit code, so the interruption is reported as a recoverable
			// error on a partial result, not a fatal one.
			result.Finished = r.now()
			log.Warn("run interrupted",
				"applied", result.Created+result.Updated+result.Archived,
				"remaining", len(plan.Changes)-(result.Created+result.Updated+result.Archived+len(result.Errors)),
				"error", err)
			r.record(context.WithoutCancel(ctx), log, result)
			return result, plan, &Error{Code: CodeApply, Message: "run interrupted", Err: err}
		}
		if err := change.Apply(ctx); err != nil {
			log.Error("apply failed", "op", change.Op, "item", change.ItemID, "error", err)
			result.Errors = append(result.Errors, ErrorRecord{
				ItemID:  change.ItemID,
				Op:      change.Op,
				Message: err.Error(),
			})
			continue
		}
		switch change.Op {
		case OpCreate:
			result.Created++
		case OpUpdate:
			result.Updated++
		case OpArchive:
			result.Archived++
		}
		log.Debug("applied", "op", change.Op, "item", change.ItemID, "summary", change.Summary)
	}

	result.Finished = r.now()
	log.Info("run complete",
		"created", result.Created, "updated", result.Updated,
		"archived", result.Archived, "skipped", result.Skipped,
		"errors", len(result.Errors))
	r.record(ctx, log, result)
	return result, plan, nil
}

// record persists run history. Failures are logged, never fatal: the
// reconciliation itself already happened.
func (r *Runner) record(ctx context.Context, log *slog.Logger, result *RunResult) {
	if r.Recorder == nil {
		return
	}
	if err := r.Recorder.RecordRun(ctx, result); err != nil {
		log.Warn("recording run history failed", "error", err)
	}
}
