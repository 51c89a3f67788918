// Package groom keeps the papers-and-proposals board tidy.
//
// Two rules, from the lab's working agreement:
//   - a card overdue by three or more days gets its due date moved to the
//     next Monday
//   - an open card labeled "Completed…" moves to the board's completed list
//     and is closed
package groom

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sommerlab/boardsync/internal/reconcile"
	"github.com/sommerlab/boardsync/internal/trello"
)

// Job is the job name used in run history.
const Job = "groom"

// DefaultOverdueDays is how far past due a card must be before it is
// rescheduled.
const DefaultOverdueDays = 3

// CompletedLabelPrefix marks cards ready for archival.
const CompletedLabelPrefix = "Completed"

// Cards is the slice of the Trello API the job uses.
type Cards interface {
	BoardLists(ctx context.Context, boardID string) ([]trello.List, error)
	BoardCards(ctx context.Context, boardID string) ([]trello.Card, error)
	UpdateCard(ctx context.Context, cardID string, patch trello.CardPatch) error
}

// Reconciler implements the groom job.
type Reconciler struct {
	Trello      Cards
	BoardID     string
	OverdueDays int // defaults to DefaultOverdueDays
	Logger      *slog.Logger
	Now         func() time.Time
}

// Name implements reconcile.Reconciler.
func (r *Reconciler) Name() string { return Job }

func (r *Reconciler) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

func (r *Reconciler) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

func (r *Reconciler) overdueDays() int {
	if r.OverdueDays > 0 {
		return r.OverdueDays
	}
	return DefaultOverdueDays
}

// Plan reads the board and plans a reschedule or archival per qualifying
// card.
func (r *Reconciler) Plan(ctx context.Context) (*reconcile.Plan, error) {
	cards, err := r.Trello.BoardCards(ctx, r.BoardID)
	if err != nil {
		return nil, reconcile.WrapFetch("listing board cards", err)
	}
	lists, err := r.Trello.BoardLists(ctx, r.BoardID)
	if err != nil {
		return nil, reconcile.WrapFetch("listing board lists", err)
	}

	completedList := findCompletedList(lists)
	now := r.now()
	cutoff := time.Duration(r.overdueDays()) * 24 * time.Hour

	plan := &reconcile.Plan{Job: Job}
	for _, card := range cards {
		if card.Closed {
			plan.Skipped++
			continue
		}

		if hasCompletedLabel(card) {
			card := card
			plan.Changes = append(plan.Changes, reconcile.Change{
				Op:      reconcile.OpArchive,
				ItemID:  card.ID,
				Summary: fmt.Sprintf("complete %q", card.Name),
				Apply: func(ctx context.Context) error {
					return r.completeCard(ctx, card, completedList)
				},
			})
			continue
		}

		if card.Due != nil && now.Sub(*card.Due) >= cutoff {
			due := NextMonday(now)
			card := card
			plan.Changes = append(plan.Changes, reconcile.Change{
				Op:      reconcile.OpUpdate,
				ItemID:  card.ID,
				Summary: fmt.Sprintf("reschedule %q to %s", card.Name, due.Format("2006-01-02")),
				Apply: func(ctx context.Context) error {
					if err := r.Trello.UpdateCard(ctx, card.ID, trello.CardPatch{Due: &due}); err != nil {
						return reconcile.WrapApply("updating due date", err)
					}
					return nil
				},
			})
			continue
		}

		plan.Skipped++
	}

	return plan, nil
}

// completeCard moves the card to the completed list and closes it. Both
// steps repeat safely: moving an already-moved card and closing an
// already-closed card are no-ops on Trello's side.
func (r *Reconciler) completeCard(ctx context.Context, card trello.Card, completedList *trello.List) error {
	if completedList == nil {
		return reconcile.WrapApply("completing card",
			fmt.Errorf("no completed or priority list on board %s", r.BoardID))
	}

	closed := true
	patch := trello.CardPatch{IDList: &completedList.ID, Closed: &closed}
	if err := r.Trello.UpdateCard(ctx, card.ID, patch); err != nil {
		return reconcile.WrapApply("completing card", err)
	}
	r.logger().Debug("card completed", "card", card.ID, "list", completedList.Name)
	return nil
}

// findCompletedList picks the destination for completed cards: the first
// list whose name contains "completed", else the first "priority" list.
func findCompletedList(lists []trello.List) *trello.List {
	for i := range lists {
		if strings.Contains(strings.ToLower(lists[i].Name), "completed") {
			return &lists[i]
		}
	}
	for i := range lists {
		if strings.Contains(strings.ToLower(lists[i].Name), "priority") {
			return &lists[i]
		}
	}
	return nil
}

func hasCompletedLabel(card trello.Card) bool {
	for _, label := range card.Labels {
		if strings.HasPrefix(label.Name, CompletedLabelPrefix) {
			return true
		}
	}
	return false
}

// NextMonday returns the Monday strictly after now, keeping now's clock time.
func NextMonday(now time.Time) time.Time {
	daysAhead := (int(time.Monday) - int(now.Weekday()) + 7) % 7
	if daysAhead == 0 {
		daysAhead = 7
	}
	return now.AddDate(0, 0, daysAhead)
}
