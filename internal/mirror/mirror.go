// Package mirror maintains read-only copies of high-priority cards from the
// proposals and papers boards on the lab's master board.
//
// A card qualifies for mirroring when its checklist completion reaches the
// configured threshold or it sits in the designated priority list. Instead of
// clearing the master lists and re-creating everything each run, the job
// reconciles: new qualifying cards are mirrored, changed cards update their
// mirror in place, and cards that stop qualifying archive their mirror. An
// unchanged source is a no-op.
package mirror

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/sommerlab/boardsync/internal/reconcile"
	"github.com/sommerlab/boardsync/internal/state"
	"github.com/sommerlab/boardsync/internal/trello"
)

// Job is the job name used for state mappings and run history.
const Job = "mirror"

// DefaultThreshold is the checklist completion ratio that qualifies a card.
const DefaultThreshold = 0.75

// MirrorComment is posted on every freshly created mirror.
const MirrorComment = "[Bot] Mirrored from source board."

// Source pairs a source board with the master-board list its mirrors land on.
type Source struct {
	BoardID      string
	MasterListID string
}

// Cards is the slice of the Trello API the job uses.
type Cards interface {
	BoardCards(ctx context.Context, boardID string) ([]trello.Card, error)
	BoardLists(ctx context.Context, boardID string) ([]trello.List, error)
	CardChecklists(ctx context.Context, cardID string) ([]trello.Checklist, error)
	CreateCard(ctx context.Context, req trello.CardRequest) (*trello.Card, error)
	UpdateCard(ctx context.Context, cardID string, patch trello.CardPatch) error
	AddAttachment(ctx context.Context, cardID, attachURL string) error
	AddMember(ctx context.Context, cardID, memberID string) error
	AddLabel(ctx context.Context, cardID, labelID string) error
	CreateChecklist(ctx context.Context, cardID, name string) (*trello.Checklist, error)
	AddCheckItem(ctx context.Context, checklistID, name string, checked bool) error
	AddComment(ctx context.Context, cardID, text string) error
}

// Mappings is the persisted source→mirror state.
type Mappings interface {
	ListMappings(ctx context.Context, job string) ([]state.Mapping, error)
	PutMapping(ctx context.Context, m state.Mapping) error
	DeleteMapping(ctx context.Context, job, sourceID string) error
}

// Reconciler implements the mirror job.
type Reconciler struct {
	Trello           Cards
	State            Mappings
	Sources          []Source
	MasterBoardID    string
	PriorityListName string  // e.g. "Priority IV"
	Threshold        float64 // defaults to DefaultThreshold
	Logger           *slog.Logger
	Now              func() time.Time
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

func (r *Reconciler) threshold() float64 {
	if r.Threshold > 0 {
		return r.Threshold
	}
	return DefaultThreshold
}

// candidate is a qualifying source card and everything needed to mirror it.
type candidate struct {
	card         trello.Card
	checklists   []trello.Checklist
	masterListID string
}

// Plan diffs the qualifying source cards against the recorded mirrors.
func (r *Reconciler) Plan(ctx context.Context) (*reconcile.Plan, error) {
	masterCards, err := r.Trello.BoardCards(ctx, r.MasterBoardID)
	if err != nil {
		return nil, reconcile.WrapFetch("listing master board cards", err)
	}
	masterByID := make(map[string]trello.Card, len(masterCards))
	for _, c := range masterCards {
		masterByID[c.ID] = c
	}

	mappings, err := r.State.ListMappings(ctx, Job)
	if err != nil {
		return nil, reconcile.WrapFetch("reading sync state", err)
	}
	mappingBySource := make(map[string]state.Mapping, len(mappings))
	for _, m := range mappings {
		mappingBySource[m.SourceID] = m
	}

	candidates, err := r.collectCandidates(ctx)
	if err != nil {
		return nil, err
	}

	plan := &reconcile.Plan{Job: Job}

	ids := make([]string, 0, len(candidates))
	for id := range candidates {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		cand := candidates[id]
		hash := mirrorHash(cand.card)
		mapping, mapped := mappingBySource[id]

		mirrorMissing := true
		if mapped {
			_, mirrorPresent := masterByID[mapping.CardID]
			mirrorMissing = !mirrorPresent
		}

		switch {
		case !mapped || mirrorMissing:
			// Never mirrored, or the mirror was removed out-of-band.
			cand := cand
			plan.Changes = append(plan.Changes, reconcile.Change{
				Op:      reconcile.OpCreate,
				ItemID:  id,
				Summary: fmt.Sprintf("mirror %q", cand.card.Name),
				Apply: func(ctx context.Context) error {
					return r.createMirror(ctx, cand, hash)
				},
			})
		case mapping.ContentHash != hash:
			cand, mapping := cand, mapping
			plan.Changes = append(plan.Changes, reconcile.Change{
				Op:      reconcile.OpUpdate,
				ItemID:  id,
				Summary: fmt.Sprintf("refresh mirror of %q", cand.card.Name),
				Apply: func(ctx context.Context) error {
					return r.updateMirror(ctx, cand, mapping.CardID, hash)
				},
			})
		default:
			plan.Skipped++
		}
	}

	// Mappings whose source card no longer qualifies: archive the mirror.
	for _, m := range mappings {
		if _, stillQualifies := candidates[m.SourceID]; stillQualifies {
			continue
		}
		m := m
		_, mirrorPresent := masterByID[m.CardID]
		plan.Changes = append(plan.Changes, reconcile.Change{
			Op:      reconcile.OpArchive,
			ItemID:  m.SourceID,
			Summary: fmt.Sprintf("retire mirror %s", m.CardID),
			Apply: func(ctx context.Context) error {
				return r.retireMirror(ctx, m, mirrorPresent)
			},
		})
	}

	return plan, nil
}

// collectCandidates walks the source boards and returns the qualifying cards
// keyed by source card ID. Any listing failure aborts planning.
func (r *Reconciler) collectCandidates(ctx context.Context) (map[string]candidate, error) {
	out := map[string]candidate{}
	for _, src := range r.Sources {
		lists, err := r.Trello.BoardLists(ctx, src.BoardID)
		if err != nil {
			return nil, reconcile.WrapFetch("listing source board lists", err)
		}
		priorityListID := ""
		want := trello.NormalizeName(r.PriorityListName)
		for _, l := range lists {
			if trello.NormalizeName(l.Name) == want {
				priorityListID = l.ID
				break
			}
		}

		cards, err := r.Trello.BoardCards(ctx, src.BoardID)
		if err != nil {
			return nil, reconcile.WrapFetch("listing source board cards", err)
		}

		for _, card := range cards {
			checklists, err := r.Trello.CardChecklists(ctx, card.ID)
			if err != nil {
				return nil, reconcile.WrapFetch("listing card checklists", err)
			}
			inPriorityList := priorityListID != "" && card.IDList == priorityListID
			if trello.CompletionRatio(checklists) >= r.threshold() || inPriorityList {
				out[card.ID] = candidate{
					card:         card,
					checklists:   checklists,
					masterListID: src.MasterListID,
				}
			}
		}
	}
	return out, nil
}

// createMirror copies the source card onto the master board: fields,
// members, labels, attachments, checklists, plus the bot comment. The
// mapping is recorded first thing after the card exists so a crash mid-copy
// cannot cause a duplicate on the next run.
func (r *Reconciler) createMirror(ctx context.Context, cand candidate, hash string) error {
	card := cand.card
	created, err := r.Trello.CreateCard(ctx, trello.CardRequest{
		IDList: cand.masterListID,
		Name:   card.Name,
		Desc:   mirrorDesc(card),
		Due:    card.Due,
	})
	if err != nil {
		return reconcile.WrapApply(fmt.Sprintf("mirroring card %q", card.Name), err)
	}

	if err := r.State.PutMapping(ctx, state.Mapping{
		Job:         Job,
		SourceID:    card.ID,
		CardID:      created.ID,
		ContentHash: hash,
		SyncedAt:    r.now(),
	}); err != nil {
		return reconcile.WrapApply("recording mapping", err)
	}

	// Decorations are best-effort: the mirror exists and is mapped; a lost
	// label or checklist item corrects itself on the next content change.
	for _, memberID := range card.IDMembers {
		if err := r.Trello.AddMember(ctx, created.ID, memberID); err != nil {
			r.logger().Warn("mirroring member failed", "card", created.ID, "member", memberID, "error", err)
		}
	}
	for _, labelID := range card.IDLabels {
		if err := r.Trello.AddLabel(ctx, created.ID, labelID); err != nil {
			r.logger().Warn("mirroring label failed", "card", created.ID, "label", labelID, "error", err)
		}
	}
	for _, att := range card.Attachments {
		if err := r.Trello.AddAttachment(ctx, created.ID, att.URL); err != nil {
			r.logger().Warn("mirroring attachment failed", "card", created.ID, "url", att.URL, "error", err)
		}
	}
	for _, cl := range cand.checklists {
		mirrored, err := r.Trello.CreateChecklist(ctx, created.ID, cl.Name)
		if err != nil {
			r.logger().Warn("mirroring checklist failed", "card", created.ID, "checklist", cl.Name, "error", err)
			continue
		}
		for _, item := range cl.CheckItems {
			if err := r.Trello.AddCheckItem(ctx, mirrored.ID, item.Name, item.State == "complete"); err != nil {
				r.logger().Warn("mirroring check item failed", "checklist", mirrored.ID, "item", item.Name, "error", err)
			}
		}
	}

	if err := r.Trello.AddComment(ctx, created.ID, MirrorComment); err != nil {
		r.logger().Warn("mirror comment failed", "card", created.ID, "error", err)
	}
	return nil
}

// updateMirror refreshes the mirror's fields after a source content change.
func (r *Reconciler) updateMirror(ctx context.Context, cand candidate, mirrorID, hash string) error {
	card := cand.card
	desc := mirrorDesc(card)
	patch := trello.CardPatch{Name: &card.Name, Desc: &desc, Due: card.Due, ClearDue: card.Due == nil}
	if err := r.Trello.UpdateCard(ctx, mirrorID, patch); err != nil {
		return reconcile.WrapApply(fmt.Sprintf("refreshing mirror of %q", card.Name), err)
	}

	if err := r.State.PutMapping(ctx, state.Mapping{
		Job:         Job,
		SourceID:    card.ID,
		CardID:      mirrorID,
		ContentHash: hash,
		SyncedAt:    r.now(),
	}); err != nil {
		return reconcile.WrapApply("recording mapping", err)
	}
	return nil
}

// retireMirror archives the mirror card (when it still exists) and drops the
// mapping. Archiving an already-archived card converges, so overlapping runs
// are safe here too.
func (r *Reconciler) retireMirror(ctx context.Context, m state.Mapping, mirrorPresent bool) error {
	if mirrorPresent {
		closed := true
		if err := r.Trello.UpdateCard(ctx, m.CardID, trello.CardPatch{Closed: &closed}); err != nil {
			return reconcile.WrapApply("archiving mirror", err)
		}
	}
	if err := r.State.DeleteMapping(ctx, Job, m.SourceID); err != nil {
		return reconcile.WrapApply("dropping mapping", err)
	}
	return nil
}

// mirrorDesc appends the provenance footer to the source description.
func mirrorDesc(card trello.Card) string {
	return fmt.Sprintf("%s\n\nMirrored from board %s.", card.Desc, card.IDBoard)
}

// mirrorHash fingerprints the source fields the mirror tracks. A stable hash
// for unchanged sources is what makes repeat runs no-ops.
func mirrorHash(card trello.Card) string {
	due := ""
	if card.Due != nil {
		due = card.Due.UTC().Format(time.RFC3339)
	}
	h := sha256.New()
	for _, part := range []string{card.Name, card.Desc, due} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
