package controllers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v5"

	"github.com/datallboy/modfetch/internal/app"
	"github.com/datallboy/modfetch/internal/domain"
	"github.com/datallboy/modfetch/internal/downloader"
	"github.com/datallboy/modfetch/internal/store"
)

// maxManifestBytes bounds request bodies; large modlists are a few MB.
const maxManifestBytes = 64 << 20

type ManifestController struct {
	App *app.Context
	// Ctx outlives requests; background runs stop when it ends.
	Ctx context.Context
}

// HandleInspect parses a manifest and reports what a run would do.
func (ctrl *ManifestController) HandleInspect(c *echo.Context) error {
	data, err := readManifest(c)
	if err != nil {
		return err
	}

	in, err := ctrl.App.Downloader.Inspect(data)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	return c.JSON(http.StatusOK, newInspectResponse(in))
}

// HandleStartRun records a run and downloads it in the background.
func (ctrl *ManifestController) HandleStartRun(c *echo.Context) error {
	if ctrl.App.Store == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "run history is not configured")
	}

	data, err := readManifest(c)
	if err != nil {
		return err
	}

	run, in, err := ctrl.App.BeginRun(c.Request().Context(), data)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctrl.App.Logger.Info("Run %s started for %q (%d archives)", run.ID, run.Manifest, run.Total)
	accepted := RunAccepted{ID: run.ID, Status: run.Status, Total: run.Total}

	ctrl.App.StartRun(ctrl.Ctx, run, in, func(report *downloader.ManifestReport) {
		ctrl.App.Logger.Info("Run %s finished: %d succeeded, %d failed, %d manual in %s",
			run.ID, run.Succeeded, run.Failed, run.Manual, report.Elapsed)
	})

	return c.JSON(http.StatusAccepted, accepted)
}

func (ctrl *ManifestController) HandleListRuns(c *echo.Context) error {
	if ctrl.App.Store == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "run history is not configured")
	}

	limit := 50
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be a non-negative integer")
		}
		limit = n
	}

	runs, err := ctrl.App.Store.ListRuns(c.Request().Context(), limit)
	if err != nil {
		ctrl.App.Logger.Error("Failed to list runs: %v", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to list runs")
	}
	if runs == nil {
		runs = []*domain.Run{}
	}

	return c.JSON(http.StatusOK, runs)
}

func (ctrl *ManifestController) HandleGetRun(c *echo.Context) error {
	if ctrl.App.Store == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "run history is not configured")
	}

	run, err := ctrl.App.Store.GetRun(c.Request().Context(), c.Param("id"))
	if errors.Is(err, store.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "Run not found")
	}
	if err != nil {
		ctrl.App.Logger.Error("Failed to load run %s: %v", c.Param("id"), err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to load run")
	}

	return c.JSON(http.StatusOK, run)
}

func readManifest(c *echo.Context) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(c.Request().Body, maxManifestBytes+1))
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "Failed to read body")
	}
	if len(data) > maxManifestBytes {
		return nil, echo.NewHTTPError(http.StatusRequestEntityTooLarge, fmt.Sprintf("manifest exceeds %d bytes", maxManifestBytes))
	}
	if len(data) == 0 {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "empty body")
	}
	return data, nil
}
