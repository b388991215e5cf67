package api

import (
	"context"
	"errors"
	"time"

	"ScoutSync/internal/domain/models"
	"ScoutSync/internal/service/metrics"
	"ScoutSync/internal/service/ratelimit"
	"ScoutSync/internal/usecase"
	xhttp "ScoutSync/pkg/http"
	xlogger "ScoutSync/pkg/logger"

	"github.com/labstack/echo/v4"
)

// Runner is the ingest runner as seen by the API.
type Runner interface {
	Run(ctx context.Context, files ...string) (*models.RunSummary, error)
	LastRun() (*models.RunSummary, bool)
}

// HealthChecker reports whether the fact store is reachable.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// RunsEchoHandler exposes manual run triggers and the last run summary.
type RunsEchoHandler struct {
	logger  *xlogger.Logger
	runner  Runner
	health  HealthChecker
	limiter *ratelimit.Limiter
}

func NewRunsEchoHandler(logger *xlogger.Logger, runner Runner, health HealthChecker, limiter *ratelimit.Limiter) *RunsEchoHandler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &RunsEchoHandler{logger: logger, runner: runner, health: health, limiter: limiter}
}

func (h *RunsEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)
	g := e.Group("/api")
	g.POST("/runs", h.Trigger)
	g.GET("/runs/last", h.Last)
}

// Trigger runs the ingest synchronously and returns its summary.
func (h *RunsEchoHandler) Trigger(c echo.Context) error {
	if h.limiter != nil && !h.limiter.Allow(c.RealIP()) {
		metrics.RunTriggers.WithLabelValues("api", "rate_limited").Inc()
		return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("too many run requests"))
	}

	req := &models.RunRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	start := time.Now()
	// a run must not be cut short by the client going away
	ctx := context.WithoutCancel(c.Request().Context())
	sum, err := h.runner.Run(ctx, req.Files...)
	switch {
	case errors.Is(err, usecase.ErrRunInProgress):
		metrics.RunTriggers.WithLabelValues("api", "conflict").Inc()
		return xhttp.AppErrorResponse(c, xhttp.ConflictError("an ingest run is already in progress"))
	case err != nil:
		metrics.RunTriggers.WithLabelValues("api", "error").Inc()
		h.logger.Error("run trigger failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalErrorf("ingest run failed").WithError(err))
	}
	metrics.RunTriggers.WithLabelValues("api", "ok").Inc()
	metrics.RunLatency.WithLabelValues("api").Observe(time.Since(start).Seconds())
	return xhttp.SuccessResponse(c, sum)
}

func (h *RunsEchoHandler) Last(c echo.Context) error {
	sum, ok := h.runner.LastRun()
	if !ok {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError("no run has completed yet"))
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "no-store")
	return xhttp.SuccessResponse(c, sum)
}

func (h *RunsEchoHandler) Health(c echo.Context) error {
	if h.health != nil {
		if err := h.health.Health(c.Request().Context()); err != nil {
			h.logger.Warn("health check failed", xlogger.Error(err))
			return xhttp.AppErrorResponse(c, xhttp.ServiceUnavailableError("fact store unreachable"))
		}
	}
	return xhttp.SuccessResponse(c, map[string]string{"status": "ok"})
}
