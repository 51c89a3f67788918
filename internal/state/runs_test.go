package state

import (
	"context"
	"testing"
	"time"

	"github.com/sommerlab/boardsync/internal/reconcile"
)

func TestRecordRun_RecentRuns(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	base := time.Date(2025, 7, 1, 6, 0, 0, 0, time.UTC)
	results := []*reconcile.RunResult{
		{Job: "inbox", RunToken: "run-1", Created: 2, Started: base, Finished: base.Add(time.Minute)},
		{Job: "groom", RunToken: "run-2", Updated: 1, DryRun: true, Started: base.Add(time.Hour), Finished: base.Add(61 * time.Minute)},
		{Job: "inbox", RunToken: "run-3", Errors: []reconcile.ErrorRecord{{ItemID: "m1", Op: reconcile.OpCreate, Message: "boom"}}, Started: base.Add(2 * time.Hour), Finished: base.Add(121 * time.Minute)},
	}
	for _, r := range results {
		if err := s.RecordRun(ctx, r); err != nil {
			t.Fatalf("RecordRun(%s) failed: %v", r.RunToken, err)
		}
	}

	all, err := s.RecentRuns(ctx, "", 10)
	if err != nil {
		t.Fatalf("RecentRuns() failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 runs, got %d", len(all))
	}
	if all[0].RunToken != "run-3" {
		t.Errorf("runs not newest-first: got %s first", all[0].RunToken)
	}
	if all[0].Errors != 1 {
		t.Errorf("error count not recorded: got %d", all[0].Errors)
	}

	inbox, err := s.RecentRuns(ctx, "inbox", 10)
	if err != nil {
		t.Fatalf("RecentRuns(inbox) failed: %v", err)
	}
	if len(inbox) != 2 {
		t.Errorf("expected 2 inbox runs, got %d", len(inbox))
	}

	limited, err := s.RecentRuns(ctx, "", 1)
	if err != nil {
		t.Fatalf("RecentRuns(limit=1) failed: %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("limit not honored: got %d runs", len(limited))
	}
}

func TestRecordRun_DuplicateTokenIgnored(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	r := &reconcile.RunResult{Job: "mirror", RunToken: "run-dup", Started: time.Now(), Finished: time.Now()}
	if err := s.RecordRun(ctx, r); err != nil {
		t.Fatalf("first RecordRun() failed: %v", err)
	}
	if err := s.RecordRun(ctx, r); err != nil {
		t.Fatalf("second RecordRun() failed: %v", err)
	}

	runs, err := s.RecentRuns(ctx, "mirror", 10)
	if err != nil {
		t.Fatalf("RecentRuns() failed: %v", err)
	}
	if len(runs) != 1 {
		t.Errorf("expected 1 run after duplicate record, got %d", len(runs))
	}
}
