// Package inbox syncs the lab's Slack funding channel into Trello cards.
//
// Each qualifying message becomes a set of cards on the funding board, under
// the list the message's first line names. A message is "processed" when it
// carries the white_check_mark reaction or a persisted mapping; either marker
// suppresses re-creation, so repeated and overlapping runs never duplicate
// cards.
package inbox

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/sommerlab/boardsync/internal/reconcile"
	"github.com/sommerlab/boardsync/internal/slack"
	"github.com/sommerlab/boardsync/internal/state"
	"github.com/sommerlab/boardsync/internal/trello"
)

// Job is the job name used for state mappings and run history.
const Job = "inbox"

// ProcessedReaction marks a message whose cards were created.
const ProcessedReaction = "white_check_mark"

// Messages is the slice of the Slack API the job reads and marks.
type Messages interface {
	ChannelHistory(ctx context.Context, channelID string, limit int) ([]slack.Message, error)
	AddReaction(ctx context.Context, channelID, timestamp, name string) error
}

// Cards is the slice of the Trello API the job writes through.
type Cards interface {
	GetOrCreateList(ctx context.Context, boardID, name string) (*trello.List, error)
	CreateCard(ctx context.Context, req trello.CardRequest) (*trello.Card, error)
	AddAttachment(ctx context.Context, cardID, attachURL string) error
}

// Mappings is the persisted source→card state the job consults and updates.
type Mappings interface {
	GetMapping(ctx context.Context, job, sourceID string) (*state.Mapping, error)
	PutMapping(ctx context.Context, m state.Mapping) error
}

// Reconciler implements the inbox job.
type Reconciler struct {
	Slack     Messages
	Trello    Cards
	State     Mappings
	ChannelID string
	BoardID   string
	Limit     int // messages fetched per run
	Logger    *slog.Logger
	Now       func() time.Time
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

// Plan reads recent channel messages and plans one create per unprocessed
// funding message.
func (r *Reconciler) Plan(ctx context.Context) (*reconcile.Plan, error) {
	limit := r.Limit
	if limit <= 0 {
		limit = 5
	}

	messages, err := r.Slack.ChannelHistory(ctx, r.ChannelID, limit)
	if err != nil {
		return nil, reconcile.WrapFetch("listing channel history", err)
	}

	plan := &reconcile.Plan{Job: Job}
	for _, msg := range messages {
		if msg.HasReaction(ProcessedReaction) {
			plan.Skipped++
			continue
		}
		if msg.Text == "" {
			plan.Skipped++
			continue
		}

		mapping, err := r.State.GetMapping(ctx, Job, msg.TS)
		if err != nil {
			return nil, reconcile.WrapFetch("reading sync state", err)
		}
		if mapping != nil {
			// Cards already exist from an earlier run, even if that run's
			// reaction write failed.
			plan.Skipped++
			continue
		}

		parsed := ParseFundingMessage(msg.Text)
		if len(parsed.Entries) == 0 {
			r.logger().Debug("message has no card entries", "ts", msg.TS)
			plan.Skipped++
			continue
		}

		msg := msg
		plan.Changes = append(plan.Changes, reconcile.Change{
			Op:      reconcile.OpCreate,
			ItemID:  msg.TS,
			Summary: fmt.Sprintf("%d card(s) under list %q", len(parsed.Entries), parsed.ListTitle),
			Apply: func(ctx context.Context) error {
				return r.applyMessage(ctx, msg, parsed)
			},
		})
	}

	return plan, nil
}

// applyMessage creates the message's cards, records the mapping, then adds
// the processed reaction. The mapping is written before the reaction: if the
// reaction call fails, the next run still knows the cards exist.
func (r *Reconciler) applyMessage(ctx context.Context, msg slack.Message, parsed ParsedMessage) error {
	list, err := r.Trello.GetOrCreateList(ctx, r.BoardID, parsed.ListTitle)
	if err != nil {
		return reconcile.WrapApply("resolving list", err)
	}

	var firstCardID string
	for _, entry := range parsed.Entries {
		card, err := r.Trello.CreateCard(ctx, trello.CardRequest{
			IDList: list.ID,
			Name:   entry.Title,
			Desc:   entry.Description,
		})
		if err != nil {
			return reconcile.WrapApply(fmt.Sprintf("creating card %q", entry.Title), err)
		}
		if firstCardID == "" {
			firstCardID = card.ID
		}
		for _, link := range entry.Attachments {
			if err := r.Trello.AddAttachment(ctx, card.ID, link); err != nil {
				// The card exists; a lost attachment is not worth failing
				// the whole message for.
				r.logger().Warn("attachment failed", "card", card.ID, "url", link, "error", err)
			}
		}
	}

	if err := r.State.PutMapping(ctx, state.Mapping{
		Job:         Job,
		SourceID:    msg.TS,
		CardID:      firstCardID,
		ContentHash: contentHash(msg.Text),
		SyncedAt:    r.now(),
	}); err != nil {
		return reconcile.WrapApply("recording mapping", err)
	}

	if err := r.Slack.AddReaction(ctx, r.ChannelID, msg.TS, ProcessedReaction); err != nil {
		return reconcile.WrapApply("marking message processed", err)
	}
	return nil
}

func contentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
