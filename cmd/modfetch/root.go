package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/datallboy/modfetch/internal/app"
	"github.com/datallboy/modfetch/internal/infra/config"
	"github.com/datallboy/modfetch/internal/infra/logger"
	"github.com/datallboy/modfetch/internal/store"
)

type rootOptions struct {
	configPath string
	// outDir overrides download.out_dir when set by a command flag
	outDir string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "modfetch",
		Short:         "Download and verify modlist archives",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to config.yaml")
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &exitError{code: ExitInvalidArgs, msg: err.Error()}
	})

	cmd.AddCommand(
		newFetchCmd(opts),
		newGetCmd(opts),
		newInspectCmd(opts),
		newHistoryCmd(opts),
		newServeCmd(opts),
	)
	return cmd
}

// setup loads config, opens the log and builds the app context.
// withStore also opens run history.
func (o *rootOptions) setup(withStore bool) (*app.Context, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, &exitError{code: ExitInvalidArgs, msg: err.Error()}
	}
	if o.outDir != "" {
		cfg.Download.OutDir = o.outDir
	}

	log, err := logger.New(cfg.Log.Path, logger.ParseLevel(cfg.Log.Level), cfg.Log.IncludeStdout)
	if err != nil {
		return nil, fmt.Errorf("failed to open log: %w", err)
	}

	appCtx, err := app.NewContext(cfg, log)
	if err != nil {
		log.Close()
		return nil, &exitError{code: ExitInvalidArgs, msg: err.Error()}
	}

	if withStore {
		s, err := store.NewPersistentStore(cfg.Store)
		if err != nil {
			// history is optional for downloads
			log.Warn("Run history disabled: %v", err)
		} else {
			appCtx.Store = s
		}
	}

	return appCtx, nil
}

func teardown(appCtx *app.Context) {
	if err := appCtx.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to close store: %v\n", err)
	}
	appCtx.Logger.Close()
}

// signalContext is cancelled on Ctrl+C or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
