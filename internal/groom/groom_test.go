package groom

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sommerlab/boardsync/internal/reconcile"
	"github.com/sommerlab/boardsync/internal/testutil"
	"github.com/sommerlab/boardsync/internal/trello"
)

// Wednesday morning; the next Monday is July 14th.
var wednesday = time.Date(2025, 7, 9, 9, 0, 0, 0, time.UTC)

func newTestReconciler(t *testing.T) (*Reconciler, *testutil.FakeTrello) {
	t.Helper()
	ft := testutil.NewFakeTrello()
	r := &Reconciler{
		Trello:  ft,
		BoardID: "board-papers",
		Now:     testutil.NewClock(wednesday).Now,
	}
	return r, ft
}

func run(t *testing.T, r *Reconciler, dryRun bool) *reconcile.RunResult {
	t.Helper()
	runner := &reconcile.Runner{}
	result, _, err := runner.Run(context.Background(), r, dryRun)
	require.NoError(t, err)
	return result
}

func seedDue(ft *testutil.FakeTrello, name string, due time.Time) string {
	d := due
	return ft.SeedCard(trello.Card{Name: name, IDBoard: "board-papers", Due: &d})
}

func TestNextMonday(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{"wednesday", wednesday, time.Date(2025, 7, 14, 9, 0, 0, 0, time.UTC)},
		{"sunday", time.Date(2025, 7, 13, 9, 0, 0, 0, time.UTC), time.Date(2025, 7, 14, 9, 0, 0, 0, time.UTC)},
		{"monday skips to next week", time.Date(2025, 7, 14, 9, 0, 0, 0, time.UTC), time.Date(2025, 7, 21, 9, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NextMonday(tt.now))
		})
	}
}

func TestGroom_ReschedulesOverdueCards(t *testing.T) {
	r, ft := newTestReconciler(t)
	overdueID := seedDue(ft, "stale paper", wednesday.AddDate(0, 0, -4))
	freshID := seedDue(ft, "fresh paper", wednesday.AddDate(0, 0, -1))

	result := run(t, r, false)

	assert.Equal(t, 1, result.Updated)
	assert.Equal(t, 1, result.Skipped)

	moved, _ := ft.Card(overdueID)
	assert.Equal(t, NextMonday(wednesday), moved.Due.UTC())
	untouched, _ := ft.Card(freshID)
	assert.Equal(t, wednesday.AddDate(0, 0, -1), untouched.Due.UTC())
}

// A rescheduled card is no longer overdue, so the next run plans nothing.
func TestGroom_RescheduleIdempotent(t *testing.T) {
	r, ft := newTestReconciler(t)
	seedDue(ft, "stale paper", wednesday.AddDate(0, 0, -5))

	first := run(t, r, false)
	assert.Equal(t, 1, first.Updated)

	second := run(t, r, false)
	assert.Equal(t, 0, second.Updated)
	assert.Equal(t, 1, second.Skipped)
}

func TestGroom_CompletedLabelArchivesCard(t *testing.T) {
	r, ft := newTestReconciler(t)
	doneListID := ft.SeedList("board-papers", "Completed Work")
	ft.SeedList("board-papers", "Priority I")
	cardID := ft.SeedCard(trello.Card{
		Name:    "finished proposal",
		IDBoard: "board-papers",
		Labels:  []trello.Label{{Name: "Completed: accepted"}},
	})

	result := run(t, r, false)

	assert.Equal(t, 1, result.Archived)
	card, _ := ft.Card(cardID)
	assert.True(t, card.Closed)
	assert.Equal(t, doneListID, card.IDList)

	// Closed cards disappear from the open-card listing; re-running plans
	// nothing.
	second := run(t, r, false)
	assert.Equal(t, 0, second.Archived)
}

func TestGroom_PriorityListFallback(t *testing.T) {
	r, ft := newTestReconciler(t)
	priorityID := ft.SeedList("board-papers", "Priority 0")
	cardID := ft.SeedCard(trello.Card{
		Name:    "done",
		IDBoard: "board-papers",
		Labels:  []trello.Label{{Name: "Completed"}},
	})

	result := run(t, r, false)
	assert.Equal(t, 1, result.Archived)
	card, _ := ft.Card(cardID)
	assert.Equal(t, priorityID, card.IDList)
}

func TestGroom_NoTargetListIsApplyError(t *testing.T) {
	r, ft := newTestReconciler(t)
	ft.SeedCard(trello.Card{
		Name:    "orphan",
		IDBoard: "board-papers",
		Labels:  []trello.Label{{Name: "Completed"}},
	})
	healthyID := seedDue(ft, "stale", wednesday.AddDate(0, 0, -4))

	result := run(t, r, false)

	require.Len(t, result.Errors, 1)
	assert.Equal(t, reconcile.OpArchive, result.Errors[0].Op)
	// Partial-failure isolation: the overdue card still got rescheduled.
	assert.Equal(t, 1, result.Updated)
	moved, _ := ft.Card(healthyID)
	assert.Equal(t, NextMonday(wednesday), moved.Due.UTC())
}

func TestGroom_DryRunTouchesNothing(t *testing.T) {
	r, ft := newTestReconciler(t)
	ft.SeedList("board-papers", "Completed")
	seedDue(ft, "stale", wednesday.AddDate(0, 0, -4))
	ft.SeedCard(trello.Card{
		Name:    "done",
		IDBoard: "board-papers",
		Labels:  []trello.Label{{Name: "Completed"}},
	})

	dry := run(t, r, true)
	assert.Equal(t, 1, dry.Updated)
	assert.Equal(t, 1, dry.Archived)
	assert.Equal(t, 0, ft.Mutations)

	wet := run(t, r, false)
	assert.Equal(t, dry.Updated, wet.Updated)
	assert.Equal(t, dry.Archived, wet.Archived)
}

func TestGroom_UpdateFailureIsolated(t *testing.T) {
	r, ft := newTestReconciler(t)
	badID := seedDue(ft, "bad", wednesday.AddDate(0, 0, -10))
	goodID := seedDue(ft, "good", wednesday.AddDate(0, 0, -10))
	ft.FailUpdateCard = map[string]error{badID: errors.New("api down")}

	result := run(t, r, false)

	assert.Equal(t, 1, result.Updated)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, badID, result.Errors[0].ItemID)
	good, _ := ft.Card(goodID)
	assert.Equal(t, NextMonday(wednesday), good.Due.UTC())
}
