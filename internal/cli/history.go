package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sommerlab/boardsync/internal/config"
	"github.com/sommerlab/boardsync/internal/state"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Job   string
	Limit int
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent reconciliation runs",
		Long: `List recent runs recorded in the state database, newest first.

Example:
  boardsync history --job inbox
  boardsync history --limit 50 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts)
		},
	}

	cmd.Flags().StringVar(&opts.Job, "job", "", "filter by job name")
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "maximum runs to show")

	return cmd
}

func runHistory(opts *HistoryOptions) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "loading config", err)
	}

	st, err := state.Open(cfg.StatePath)
	if err != nil {
		return WrapExitError(ExitCommandError, "opening state database", err)
	}
	defer st.Close()

	runs, err := st.RecentRuns(context.Background(), opts.Job, opts.Limit)
	if err != nil {
		return WrapExitError(ExitCommandError, "listing runs", err)
	}

	if opts.Format == "json" {
		return json.NewEncoder(os.Stdout).Encode(runs)
	}

	if len(runs) == 0 {
		fmt.Println("No runs recorded.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "STARTED\tJOB\tDRY\tCREATED\tUPDATED\tARCHIVED\tSKIPPED\tERRORS")
	for _, r := range runs {
		dry := ""
		if r.DryRun {
			dry = "yes"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%d\t%d\n",
			r.Started.Format("2006-01-02 15:04"), r.Job, dry,
			r.Created, r.Updated, r.Archived, r.Skipped, r.Errors)
	}
	return w.Flush()
}
