// Package reconcile defines the reconciliation contract shared by every
// boardsync job.
//
// A job implements Reconciler: it reads the source system and the destination
// board, and produces a Plan: the minimal set of changes that brings the
// destination into the desired state. The Runner executes plans, enforcing
// the semantics every job must share:
//
// Fail-closed planning:
// Any error while fetching source or destination state aborts the run before
// a single mutation is issued. A plan is only executed if it was computed
// from a complete view of both systems.
//
// Partial-failure isolation:
// Once a plan executes, a failing change is recorded in the RunResult and the
// remaining changes still run. The run as a whole reports failure if any
// change failed.
//
// Dry-run:
// In dry-run mode the plan is computed and reported but no change is applied.
// The reported counts are exactly the counts a real run would have attempted.
//
// Overlap safety:
// The scheduler may start a run while a previous one is still executing.
// Jobs therefore only emit idempotent changes: creates are guarded by the
// persisted source→card mapping plus a destination-side marker, and updates
// and archives converge to the same end state when applied twice.
package reconcile
