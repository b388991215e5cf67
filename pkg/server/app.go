package server

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ScoutSync/internal/domain/models"
	"ScoutSync/internal/service/metrics"
	"ScoutSync/internal/usecase"
	"ScoutSync/pkg/config"
	xhttp "ScoutSync/pkg/http"
	applogger "ScoutSync/pkg/logger"
)

// Run modes.
const (
	ModeOnce  = "once"
	ModeServe = "serve"
)

// App encapsulates the application lifecycle.
type App struct {
	cfg        *config.Config
	l          *applogger.Logger
	runner     *usecase.IngestRunner
	httpServer *xhttp.Server
}

func New(cfg *config.Config, l *applogger.Logger, runner *usecase.IngestRunner, httpServer *xhttp.Server) *App {
	return &App{cfg: cfg, l: l, runner: runner, httpServer: httpServer}
}

// Run executes the given mode and blocks until it is done or a shutdown
// signal arrives.
func (a *App) Run(mode string, files []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch mode {
	case ModeOnce:
		return a.runOnce(ctx, files)
	case ModeServe:
		return a.serve(ctx)
	default:
		return fmt.Errorf("unknown run mode %q", mode)
	}
}

func (a *App) runOnce(ctx context.Context, files []string) error {
	sum, err := a.trigger(ctx, "cli", files...)
	if err != nil {
		return err
	}
	failed := 0
	for _, r := range sum.Results {
		if r.Status != models.StatusOK {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files did not reconcile", failed, len(sum.Results))
	}
	return nil
}

func (a *App) serve(ctx context.Context) error {
	if err := a.httpServer.Start(); err != nil {
		a.l.Error("http server start error", applogger.Error(err))
		return err
	}

	if iv := a.cfg.Runner.Interval; iv > 0 {
		go a.schedule(ctx, iv)
		a.l.Info("scheduled runs enabled", applogger.Duration("interval_ms", iv))
	}

	<-ctx.Done()
	a.l.Info("shutdown signal received")

	if err := a.httpServer.Stop(context.Background()); err != nil {
		a.l.Error("http shutdown error", applogger.Error(err))
		return err
	}
	a.l.Info("shutdown complete")
	return nil
}

func (a *App) schedule(ctx context.Context, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if _, err := a.trigger(ctx, "schedule"); err != nil && !errors.Is(err, context.Canceled) {
				a.l.Warn("scheduled run did not complete", applogger.Error(err))
			}
		}
	}
}

func (a *App) trigger(ctx context.Context, trigger string, files ...string) (*models.RunSummary, error) {
	start := time.Now()
	sum, err := a.runner.Run(ctx, files...)
	switch {
	case errors.Is(err, usecase.ErrRunInProgress):
		metrics.RunTriggers.WithLabelValues(trigger, "conflict").Inc()
		return nil, err
	case err != nil:
		metrics.RunTriggers.WithLabelValues(trigger, "error").Inc()
		return sum, err
	}
	metrics.RunTriggers.WithLabelValues(trigger, "ok").Inc()
	metrics.RunLatency.WithLabelValues(trigger).Observe(time.Since(start).Seconds())
	return sum, nil
}
