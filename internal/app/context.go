package app

import (
	"context"

	"github.com/sourcegraph/conc"

	"github.com/datallboy/modfetch/internal/domain"
	"github.com/datallboy/modfetch/internal/downloader"
	"github.com/datallboy/modfetch/internal/engine"
	"github.com/datallboy/modfetch/internal/infra/config"
	"github.com/datallboy/modfetch/internal/infra/logger"
	"github.com/datallboy/modfetch/internal/infra/metrics"
)

// Store persists run history. This allows the CLI and API to record runs
// without importing the store package.
type Store interface {
	CreateRun(ctx context.Context, run *domain.Run) error
	FinishRun(ctx context.Context, run *domain.Run) error
	GetRun(ctx context.Context, id string) (*domain.Run, error)
	ListRuns(ctx context.Context, limit int) ([]*domain.Run, error)
	Close() error
}

// Context hold the core environment and shared resources for modfetch.
type Context struct {
	Config *config.Config
	Logger *logger.Logger

	Downloader *downloader.Service
	Metrics    *metrics.Collector
	// Store is nil when run history is disabled.
	Store Store

	runs conc.WaitGroup
}

// NewContext builds the download service from cfg. The store is attached
// separately since not every command needs one.
func NewContext(cfg *config.Config, log *logger.Logger) (*Context, error) {
	opts, err := downloader.OptionsFromConfig(cfg)
	if err != nil {
		return nil, err
	}

	collector := metrics.New("modfetch")

	return &Context{
		Config:     cfg,
		Logger:     log,
		Downloader: downloader.NewService(opts, log, engine.WithObserver(collector)),
		Metrics:    collector,
	}, nil
}

// Close waits for background runs to save their outcome, then closes the
// store.
func (c *Context) Close() error {
	c.runs.Wait()
	if c.Store != nil {
		return c.Store.Close()
	}
	return nil
}
