package main

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/datallboy/modfetch/internal/store"
)

func newHistoryCmd(root *rootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "List recorded runs, or show one run in detail",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			appCtx, err := root.setup(true)
			if err != nil {
				return err
			}
			defer teardown(appCtx)

			if appCtx.Store == nil {
				return errors.New("run history is not available")
			}
			ctx := cmd.Context()

			if len(args) == 1 {
				run, err := appCtx.Store.GetRun(ctx, args[0])
				if errors.Is(err, store.ErrNotFound) {
					return &exitError{code: ExitInvalidArgs, msg: fmt.Sprintf("run %s not found", args[0])}
				}
				if err != nil {
					return err
				}

				fmt.Printf("Run %s: %s (%s)\n", run.ID, run.Manifest, run.Status)
				fmt.Printf("Started %s, %d succeeded, %d failed, %d manual, %s\n\n",
					humanize.Time(run.StartedAt), run.Succeeded, run.Failed, run.Manual, humanize.IBytes(uint64(run.Bytes)))

				w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "NAME\tSOURCE\tOUTCOME\tATTEMPTS\tDETAIL")
				for _, rr := range run.Results {
					fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", rr.Name, rr.Source, rr.Outcome, rr.Attempts, rr.Message)
				}
				return w.Flush()
			}

			runs, err := appCtx.Store.ListRuns(ctx, limit)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tMANIFEST\tSTATUS\tSTARTED\tDURATION\tOK\tFAILED\tMANUAL")
			for _, run := range runs {
				duration := "-"
				if run.FinishedAt != nil {
					duration = run.FinishedAt.Sub(run.StartedAt).Truncate(time.Second).String()
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%d\t%d\n",
					run.ID, run.Manifest, run.Status, humanize.Time(run.StartedAt), duration, run.Succeeded, run.Failed, run.Manual)
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of runs to list")
	return cmd
}
