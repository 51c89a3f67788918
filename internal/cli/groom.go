package cli

import (
	"github.com/spf13/cobra"

	"github.com/sommerlab/boardsync/internal/groom"
	"github.com/sommerlab/boardsync/internal/trello"
)

// NewGroomCommand creates the groom command.
func NewGroomCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "groom",
		Short: "Reschedule overdue cards and close completed ones",
		Long: `Walk the configured board: cards overdue past the threshold get their
due date pushed to next Monday, and cards carrying a Completed label are
moved to the completed list and closed.

Example:
  boardsync groom
  boardsync groom --dry-run --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGroom(rootOpts)
		},
	}
	return cmd
}

func runGroom(opts *RootOptions) error {
	env, err := setupJob(opts)
	if err != nil {
		return err
	}
	defer env.Close()

	if err := env.Secrets.RequireTrello(); err != nil {
		return WrapExitError(ExitCommandError, "missing credentials", err)
	}
	if env.Config.Trello.GroomBoardID == "" {
		return NewExitError(ExitCommandError, "groom requires trello.groom_board_id in config")
	}

	rec := &groom.Reconciler{
		Trello:      trello.New(env.Secrets.TrelloKey, env.Secrets.TrelloToken),
		BoardID:     env.Config.Trello.GroomBoardID,
		OverdueDays: env.Config.Trello.OverdueDays,
	}
	return executeJob(opts, env, rec)
}
