package cli

import (
	"github.com/spf13/cobra"

	"github.com/sommerlab/boardsync/internal/funding"
	"github.com/sommerlab/boardsync/internal/trello"
)

// NewFundingCommand creates the funding command.
func NewFundingCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "funding <csv>",
		Short: "Import funding opportunities from a CSV export",
		Long: `Parse a funding-opportunity CSV export and create one card per row
that has not expired and has not been imported before. Rows matching the
configured keywords land on the matched list; everything else goes to
the fallback list.

Example:
  boardsync funding exports/opportunities.csv
  boardsync funding exports/opportunities.csv --dry-run`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFunding(rootOpts, args[0])
		},
	}
	return cmd
}

func runFunding(opts *RootOptions, csvPath string) error {
	env, err := setupJob(opts)
	if err != nil {
		return err
	}
	defer env.Close()

	if err := env.Secrets.RequireTrello(); err != nil {
		return WrapExitError(ExitCommandError, "missing credentials", err)
	}
	if env.Config.Funding.BoardID == "" {
		return NewExitError(ExitCommandError, "funding requires funding.board_id in config")
	}

	rec := &funding.Reconciler{
		Trello:       trello.New(env.Secrets.TrelloKey, env.Secrets.TrelloToken),
		State:        env.Store,
		BoardID:      env.Config.Funding.BoardID,
		CSVPath:      csvPath,
		Keywords:     env.Config.Funding.Keywords,
		MatchedList:  env.Config.Funding.MatchedList,
		FallbackList: env.Config.Funding.FallbackList,
	}
	return executeJob(opts, env, rec)
}
