package cli

import (
	"github.com/spf13/cobra"

	"github.com/sommerlab/boardsync/internal/mirror"
	"github.com/sommerlab/boardsync/internal/trello"
)

// NewMirrorCommand creates the mirror command.
func NewMirrorCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mirror",
		Short: "Mirror qualifying cards onto the master board",
		Long: `Scan each configured source board for qualifying cards (checklist
mostly complete, or sitting in the priority list) and keep one mirror of
each on the master board. Mirrors are updated when the source changes
and archived when the source no longer qualifies.

Example:
  boardsync mirror
  boardsync mirror --dry-run`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMirror(rootOpts)
		},
	}
	return cmd
}

func runMirror(opts *RootOptions) error {
	env, err := setupJob(opts)
	if err != nil {
		return err
	}
	defer env.Close()

	if err := env.Secrets.RequireTrello(); err != nil {
		return WrapExitError(ExitCommandError, "missing credentials", err)
	}
	if env.Config.Mirror.MasterBoardID == "" || len(env.Config.Mirror.Sources) == 0 {
		return NewExitError(ExitCommandError, "mirror requires mirror.master_board_id and at least one mirror.sources entry in config")
	}

	sources := make([]mirror.Source, 0, len(env.Config.Mirror.Sources))
	for _, s := range env.Config.Mirror.Sources {
		sources = append(sources, mirror.Source{
			BoardID:      s.BoardID,
			MasterListID: s.MasterListID,
		})
	}

	rec := &mirror.Reconciler{
		Trello:           trello.New(env.Secrets.TrelloKey, env.Secrets.TrelloToken),
		State:            env.Store,
		Sources:          sources,
		MasterBoardID:    env.Config.Mirror.MasterBoardID,
		PriorityListName: env.Config.Mirror.PriorityList,
		Threshold:        env.Config.Mirror.Threshold,
	}
	return executeJob(opts, env, rec)
}
