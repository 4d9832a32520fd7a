package app

import (
	"context"
	"errors"
	"time"

	"github.com/datallboy/modfetch/internal/domain"
	"github.com/datallboy/modfetch/internal/downloader"
)

// BeginRun parses a manifest and records a new running Run for it.
// Nothing is downloaded yet.
func (c *Context) BeginRun(ctx context.Context, data []byte) (*domain.Run, *downloader.Inspection, error) {
	in, err := c.Downloader.Inspect(data)
	if err != nil {
		return nil, nil, err
	}

	run := &domain.Run{
		ID:          domain.NewID(),
		Manifest:    in.Manifest.Name,
		Status:      domain.RunRunning,
		StartedAt:   time.Now().UTC(),
		Total:       in.Stats.Total,
		Automatable: in.Stats.Automatable,
		Manual:      in.Stats.SkippedManual,
	}

	if c.Store != nil {
		if err := c.Store.CreateRun(ctx, run); err != nil {
			return nil, nil, err
		}
	}
	return run, in, nil
}

// StartRun completes the run in the background. Close waits for it.
// done, if set, is called with the report once the run is saved.
func (c *Context) StartRun(ctx context.Context, run *domain.Run, in *downloader.Inspection, done func(*downloader.ManifestReport)) {
	c.runs.Go(func() {
		report := c.CompleteRun(ctx, run, in, nil)
		if done != nil {
			done(report)
		}
	})
}

// CompleteRun downloads everything in the inspection and stores the outcome.
// The run is saved even when ctx was cancelled part way.
func (c *Context) CompleteRun(ctx context.Context, run *domain.Run, in *downloader.Inspection, progress domain.ProgressFunc) *downloader.ManifestReport {
	report := c.Downloader.Execute(ctx, in, c.Config.Download.MaxConcurrent, progress)

	run.Results = make([]domain.RunResult, len(report.Results))
	for i, res := range report.Results {
		run.Results[i] = domain.NewRunResult(&report.Requests[i], res)
	}
	run.Tally()

	finished := time.Now().UTC()
	run.FinishedAt = &finished
	run.Status = domain.RunCompleted
	if err := ctx.Err(); err != nil {
		run.Status = domain.RunFailed
		run.Error = err.Error()
		if errors.Is(err, context.Canceled) {
			run.Error = "cancelled"
		}
	}

	if c.Store != nil {
		// the caller's context may already be done
		saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()

		if err := c.Store.FinishRun(saveCtx, run); err != nil {
			c.Logger.Error("Failed to save run %s: %v", run.ID, err)
		}
	}

	return report
}
