package reconcile

import (
	"fmt"
	"io"
)

// RenderPlan writes a deterministic human-readable rendering of a plan.
// The plan must already be sorted (Runner.Run sorts before returning it).
func RenderPlan(w io.Writer, p *Plan) {
	created, updated, archived := p.Counts()
	fmt.Fprintf(w, "plan for %s: %d create, %d update, %d archive, %d skipped\n",
		p.Job, created, updated, archived, p.Skipped)
	for _, c := range p.Changes {
		fmt.Fprintf(w, "  %-7s %s  %s\n", c.Op, c.ItemID, c.Summary)
	}
}

// RenderResult writes a one-line-per-fact summary of a finished run.
func RenderResult(w io.Writer, r *RunResult) {
	mode := "applied"
	if r.DryRun {
		mode = "dry-run"
	}
	fmt.Fprintf(w, "%s (%s): created=%d updated=%d archived=%d skipped=%d errors=%d\n",
		r.Job, mode, r.Created, r.Updated, r.Archived, r.Skipped, len(r.Errors))
	for _, e := range r.Errors {
		fmt.Fprintf(w, "  error: %s %s: %s\n", e.Op, e.ItemID, e.Message)
	}
}
