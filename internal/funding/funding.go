// Package funding imports grants.gov opportunity exports into the funding
// board.
//
// Entries whose close date has not passed are split by a caseless keyword
// match against the lab's research keywords: matches land on the curated
// list, the rest on the fallback list for manual triage. Duplicate detection
// runs against both the persisted mapping and the card titles already on the
// target list, so re-importing the same export creates nothing.
package funding

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/sommerlab/boardsync/internal/reconcile"
	"github.com/sommerlab/boardsync/internal/state"
	"github.com/sommerlab/boardsync/internal/trello"
)

// Job is the job name used for state mappings and run history.
const Job = "funding"

// Default list names, matching the lab's funding board.
const (
	DefaultMatchedList  = "Semi-Filtered"
	DefaultFallbackList = "Dummy List"
)

// Cards is the slice of the Trello API the job uses.
type Cards interface {
	BoardLists(ctx context.Context, boardID string) ([]trello.List, error)
	ListCards(ctx context.Context, listID string) ([]trello.Card, error)
	GetOrCreateList(ctx context.Context, boardID, name string) (*trello.List, error)
	CreateCard(ctx context.Context, req trello.CardRequest) (*trello.Card, error)
}

// Mappings is the persisted entry→card state.
type Mappings interface {
	GetMapping(ctx context.Context, job, sourceID string) (*state.Mapping, error)
	PutMapping(ctx context.Context, m state.Mapping) error
}

// Reconciler implements the funding job.
type Reconciler struct {
	Trello       Cards
	State        Mappings
	BoardID      string
	CSVPath      string
	Keywords     []string
	MatchedList  string // defaults to DefaultMatchedList
	FallbackList string // defaults to DefaultFallbackList
	Logger       *slog.Logger
	Now          func() time.Time
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

func (r *Reconciler) matchedList() string {
	if r.MatchedList != "" {
		return r.MatchedList
	}
	return DefaultMatchedList
}

func (r *Reconciler) fallbackList() string {
	if r.FallbackList != "" {
		return r.FallbackList
	}
	return DefaultFallbackList
}

// Plan loads the export, filters and routes entries, and plans a create for
// every entry not already on the board.
func (r *Reconciler) Plan(ctx context.Context) (*reconcile.Plan, error) {
	f, err := os.Open(r.CSVPath)
	if err != nil {
		return nil, reconcile.WrapFetch("opening funding CSV", err)
	}
	defer f.Close()

	return r.planFrom(ctx, f)
}

func (r *Reconciler) planFrom(ctx context.Context, csvSource io.Reader) (*reconcile.Plan, error) {
	entries, err := ParseCSV(csvSource)
	if err != nil {
		return nil, reconcile.WrapFetch("parsing funding CSV", err)
	}

	existing, err := r.existingTitles(ctx)
	if err != nil {
		return nil, err
	}

	today := truncateToDay(r.now())
	plan := &reconcile.Plan{Job: Job}

	for _, entry := range entries {
		if !entry.HasCloseDate || entry.CloseDate.Before(today) {
			r.logger().Debug("entry closed or undated", "title", entry.Title)
			plan.Skipped++
			continue
		}

		sourceID := entrySourceID(entry)
		mapping, err := r.State.GetMapping(ctx, Job, sourceID)
		if err != nil {
			return nil, reconcile.WrapFetch("reading sync state", err)
		}
		if mapping != nil {
			plan.Skipped++
			continue
		}
		if existing[trello.NormalizeName(entry.Title)] {
			plan.Skipped++
			continue
		}

		listName := r.fallbackList()
		if matchesKeywords(entry, r.Keywords) {
			listName = r.matchedList()
		}

		entry, listName, sourceID := entry, listName, sourceID
		plan.Changes = append(plan.Changes, reconcile.Change{
			Op:      reconcile.OpCreate,
			ItemID:  sourceID,
			Summary: fmt.Sprintf("%q → %s", entry.Title, listName),
			Apply: func(ctx context.Context) error {
				return r.createEntry(ctx, entry, listName, sourceID)
			},
		})
	}

	return plan, nil
}

// existingTitles collects the normalized card titles already on the two
// target lists. Lists that don't exist yet contribute nothing.
func (r *Reconciler) existingTitles(ctx context.Context) (map[string]bool, error) {
	lists, err := r.Trello.BoardLists(ctx, r.BoardID)
	if err != nil {
		return nil, reconcile.WrapFetch("listing board lists", err)
	}

	targets := map[string]bool{
		trello.NormalizeName(r.matchedList()):  true,
		trello.NormalizeName(r.fallbackList()): true,
	}

	titles := map[string]bool{}
	for _, list := range lists {
		if !targets[trello.NormalizeName(list.Name)] {
			continue
		}
		cards, err := r.Trello.ListCards(ctx, list.ID)
		if err != nil {
			return nil, reconcile.WrapFetch("listing existing cards", err)
		}
		for _, card := range cards {
			titles[trello.NormalizeName(card.Name)] = true
		}
	}
	return titles, nil
}

func (r *Reconciler) createEntry(ctx context.Context, entry Entry, listName, sourceID string) error {
	list, err := r.Trello.GetOrCreateList(ctx, r.BoardID, listName)
	if err != nil {
		return reconcile.WrapApply("resolving list", err)
	}

	desc := entry.Description
	if entry.Link != "" {
		desc = fmt.Sprintf("%s\n\nLink: %s", entry.Description, entry.Link)
	}
	due := entry.CloseDate
	card, err := r.Trello.CreateCard(ctx, trello.CardRequest{
		IDList: list.ID,
		Name:   entry.Title,
		Desc:   desc,
		Due:    &due,
	})
	if err != nil {
		return reconcile.WrapApply(fmt.Sprintf("creating card %q", entry.Title), err)
	}

	if err := r.State.PutMapping(ctx, state.Mapping{
		Job:      Job,
		SourceID: sourceID,
		CardID:   card.ID,
		SyncedAt: r.now(),
	}); err != nil {
		return reconcile.WrapApply("recording mapping", err)
	}
	return nil
}

// entrySourceID prefers the opportunity link as the stable identifier,
// falling back to the normalized title for rows without one.
func entrySourceID(entry Entry) string {
	if entry.Link != "" {
		return entry.Link
	}
	return trello.NormalizeName(entry.Title)
}

// matchesKeywords reports whether the entry's title or description contains
// any keyword, caselessly.
func matchesKeywords(entry Entry, keywords []string) bool {
	text := trello.NormalizeName(entry.Title + " " + entry.Description)
	for _, k := range keywords {
		if k = strings.TrimSpace(k); k == "" {
			continue
		}
		if strings.Contains(text, trello.NormalizeName(k)) {
			return true
		}
	}
	return false
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
