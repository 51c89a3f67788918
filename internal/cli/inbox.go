package cli

import (
	"github.com/spf13/cobra"

	"github.com/sommerlab/boardsync/internal/inbox"
	"github.com/sommerlab/boardsync/internal/slack"
	"github.com/sommerlab/boardsync/internal/trello"
)

// NewInboxCommand creates the inbox command.
func NewInboxCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inbox",
		Short: "Create Trello cards from Slack funding messages",
		Long: `Read recent messages from the configured Slack channel and create one
Trello card per funding entry. Processed messages are marked with a
reaction so re-runs skip them.

Example:
  boardsync inbox --config boardsync.yaml
  boardsync inbox --dry-run`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInbox(rootOpts)
		},
	}
	return cmd
}

func runInbox(opts *RootOptions) error {
	env, err := setupJob(opts)
	if err != nil {
		return err
	}
	defer env.Close()

	if err := env.Secrets.RequireSlack(); err != nil {
		return WrapExitError(ExitCommandError, "missing credentials", err)
	}
	if err := env.Secrets.RequireTrello(); err != nil {
		return WrapExitError(ExitCommandError, "missing credentials", err)
	}
	if env.Config.Slack.ChannelID == "" || env.Config.Trello.InboxBoardID == "" {
		return NewExitError(ExitCommandError, "inbox requires slack.channel_id and trello.inbox_board_id in config")
	}

	rec := &inbox.Reconciler{
		Slack:     slack.New(env.Secrets.SlackToken),
		Trello:    trello.New(env.Secrets.TrelloKey, env.Secrets.TrelloToken),
		State:     env.Store,
		ChannelID: env.Config.Slack.ChannelID,
		BoardID:   env.Config.Trello.InboxBoardID,
		Limit:     env.Config.Slack.InboxLimit,
	}
	return executeJob(opts, env, rec)
}
