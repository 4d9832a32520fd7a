package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/datallboy/modfetch/internal/domain"
	"github.com/datallboy/modfetch/internal/downloader"
	"github.com/datallboy/modfetch/internal/modlist"
	"github.com/datallboy/modfetch/internal/progress"
)

func newFetchCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch <manifest>",
		Short: "Download every archive of a modlist",
		Long: `Parse a modlist (.wabbajack or JSON), convert it and download every
automatable archive. Manual archives are listed at the end. The run is
recorded in history when a store is available.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := modlist.Load(args[0])
			if err != nil {
				return &exitError{code: ExitInvalidArgs, msg: err.Error()}
			}

			appCtx, err := root.setup(true)
			if err != nil {
				return err
			}
			defer teardown(appCtx)

			ctx, stop := signalContext(cmd.Context())
			defer stop()

			run, in, err := appCtx.BeginRun(ctx, data)
			if err != nil {
				return &exitError{code: ExitInvalidArgs, msg: err.Error()}
			}

			appCtx.Logger.Info("Starting %s: %d archives (%s), %.0f%% automatable",
				in.Manifest.Name, in.Stats.Total, humanize.IBytes(uint64(in.Manifest.TotalSize())), in.Stats.AutomationRate()*100)

			console := progress.NewConsole(os.Stdout, len(in.Requests), in.Manifest.TotalSize())
			renderCtx, stopRender := context.WithCancel(ctx)
			go console.Start(renderCtx)

			report := appCtx.CompleteRun(ctx, run, in, console.Handle)
			stopRender()
			console.Finish()

			printManual(report)
			fmt.Printf("Run %s: %d succeeded, %d failed, %d manual in %s\n",
				run.ID, run.Succeeded, run.Failed, run.Manual, report.Elapsed.Round(time.Millisecond))

			return exitFor(report.Results)
		},
	}

	cmd.Flags().StringVarP(&root.outDir, "out", "o", "", "download directory (overrides download.out_dir)")
	return cmd
}

func printManual(report *downloader.ManifestReport) {
	var manual []domain.Result
	for _, res := range report.Results {
		if res.Outcome == domain.OutcomeManual {
			manual = append(manual, res)
		}
	}
	if len(manual) == 0 {
		return
	}

	fmt.Printf("\n%d archive(s) need manual download:\n", len(manual))
	for _, res := range manual {
		p := res.Prompt
		fmt.Printf("  - %s\n", p.Message)
		if p.URL != "" {
			fmt.Printf("    from: %s\n", p.URL)
		}
		fmt.Printf("    save to: %s\n", p.Target)
	}
}

// exitFor maps batch results onto the process exit code.
func exitFor(results []domain.Result) error {
	var failed, invalid int
	for _, res := range results {
		switch res.Outcome {
		case domain.OutcomeFailed:
			failed++
		case domain.OutcomeValidationFailed, domain.OutcomeSizeMismatch:
			invalid++
		}
	}

	switch {
	case failed > 0:
		return &exitError{code: ExitDownloadFailed, msg: fmt.Sprintf("%d download(s) failed", failed+invalid)}
	case invalid > 0:
		return &exitError{code: ExitValidationFailed, msg: fmt.Sprintf("%d download(s) failed validation", invalid)}
	}
	return nil
}
