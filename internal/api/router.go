package api

import (
	"context"

	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"

	"github.com/datallboy/modfetch/internal/api/controllers"
	"github.com/datallboy/modfetch/internal/app"
)

// RegisterRoutes mounts the API. ctx bounds background runs.
func RegisterRoutes(ctx context.Context, e *echo.Echo, app *app.Context) {

	// Middleware: Request Logger
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogValuesFunc: func(c *echo.Context, v middleware.RequestLoggerValues) error {
			app.Logger.Info("%s %s | %d | %s", v.Method, v.URI, v.Status, v.Latency)
			return nil
		},
	}))

	ctrl := &controllers.ManifestController{App: app, Ctx: ctx}

	e.POST("/api/manifests/inspect", ctrl.HandleInspect)
	e.POST("/api/runs", ctrl.HandleStartRun)
	e.GET("/api/runs", ctrl.HandleListRuns)
	e.GET("/api/runs/:id", ctrl.HandleGetRun)

	// Prometheus scrape endpoint
	metrics := app.Metrics.Handler()
	e.GET("/metrics", func(c *echo.Context) error {
		metrics.ServeHTTP(c.Response(), c.Request())
		return nil
	})
}
