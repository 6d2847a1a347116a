package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/recordupdate/internal/store"
)

// QueueOptions holds flags for the queue list command.
type QueueOptions struct {
	*RootOptions
	Provider string
}

// NewQueueCommand creates the queue command group.
func NewQueueCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect the queue of changed records",
	}
	cmd.AddCommand(newQueueListCommand(rootOpts))
	return cmd
}

func newQueueListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueueOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the queued jobs of a provider",
		Long: `List the jobs queued for a provider in queue order.

Examples:
  recordupdate queue list --db records.db --provider dataio-update-well3.5`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQueueList(opts, cmd)
		},
	}
	cmd.Flags().StringVar(&opts.Provider, "provider", "", "queue provider (required)")
	_ = cmd.MarkFlagRequired("provider")
	return cmd
}

func runQueueList(opts *QueueOptions, cmd *cobra.Command) error {
	cfg, err := opts.Config()
	if err != nil {
		return err
	}
	st, lock, err := openStore(cfg, opts.logger())
	if err != nil {
		return err
	}
	defer func() {
		_ = st.Close()
		if lock != nil {
			_ = lock.Unlock()
		}
	}()

	jobs, err := st.ReadQueue(cmd.Context(), opts.Provider)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to read queue", err)
	}
	f := opts.formatter(cmd)
	if f.Format == "json" {
		if jobs == nil {
			jobs = []store.QueueJob{}
		}
		return f.Success(jobs)
	}
	return writeJobs(cmd, jobs)
}

func writeJobs(cmd *cobra.Command, jobs []store.QueueJob) error {
	if len(jobs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No queued jobs.")
		return nil
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SEQ\tRECORD\tCHANGED\tLEAF\tPRIORITY\tQUEUED")
	for _, j := range jobs {
		fmt.Fprintf(tw, "%d\t%s\t%t\t%t\t%d\t%s\n",
			j.Seq, j.ID, j.Changed, j.Leaf, j.Priority, j.Queued.Format(time.RFC3339))
	}
	return tw.Flush()
}
