package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/datallboy/modfetch/internal/domain"
	"github.com/datallboy/modfetch/internal/modlist"
)

func newInspectCmd(root *rootOptions) *cobra.Command {
	var asJSON, list bool

	cmd := &cobra.Command{
		Use:   "inspect <manifest>",
		Short: "Show what a modlist contains without downloading",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := modlist.Load(args[0])
			if err != nil {
				return &exitError{code: ExitInvalidArgs, msg: err.Error()}
			}

			appCtx, err := root.setup(false)
			if err != nil {
				return err
			}
			defer teardown(appCtx)

			in, err := appCtx.Downloader.Inspect(data)
			if err != nil {
				return &exitError{code: ExitInvalidArgs, msg: err.Error()}
			}

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(in)
			}

			m := in.Manifest
			fmt.Printf("%s %s by %s (%s)\n", m.Name, m.Version, m.Author, m.Game)
			fmt.Printf("%d archives, %s total, %.1f%% automatable\n\n",
				in.Stats.Total, humanize.IBytes(uint64(m.TotalSize())), in.Stats.AutomationRate()*100)

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "SOURCE\tCOUNT")
			for _, k := range domain.Kinds {
				fmt.Fprintf(w, "%s\t%d\n", k, in.Stats.BySource[k])
			}
			w.Flush()

			if list {
				fmt.Println()
				w = tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "PRIORITY\tNAME\tSIZE\tSOURCE")
				for _, op := range m.Operations {
					fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", op.Priority, op.Name, humanize.IBytes(uint64(op.Size)), op.Source.Display())
				}
				w.Flush()
			}

			if len(in.Warnings) > 0 {
				fmt.Printf("\n%d entries skipped:\n", len(in.Warnings))
				for _, warn := range in.Warnings {
					fmt.Printf("  - %s\n", warn)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full inspection as JSON")
	cmd.Flags().BoolVarP(&list, "list", "l", false, "list every archive")
	return cmd
}
