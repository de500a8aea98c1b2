package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"FinRegime/internal/domain/models"
	"FinRegime/internal/usecase"
	"FinRegime/pkg/config"
	xhttp "FinRegime/pkg/http"
	applogger "FinRegime/pkg/logger"
)

// App encapsulates the application lifecycle: one-shot batch runs and the HTTP API.
type App struct {
	cfg      *config.Config
	l        *applogger.Logger
	pipeline *usecase.Pipeline
	handler  xhttp.Handler
}

// New creates a new App instance with all dependencies.
func New(cfg *config.Config, l *applogger.Logger, pipeline *usecase.Pipeline, handler xhttp.Handler) *App {
	if l == nil {
		l = applogger.Nop()
	}
	return &App{cfg: cfg, l: l, pipeline: pipeline, handler: handler}
}

// Pipeline exposes the batch pipeline.
func (a *App) Pipeline() *usecase.Pipeline { return a.pipeline }

// RunOnce executes a single pipeline run and returns its report.
func (a *App) RunOnce(ctx context.Context, opts usecase.RunOptions) (models.RunReport, error) {
	rep, err := a.pipeline.RunReport(ctx, opts)
	if err != nil {
		return rep, fmt.Errorf("pipeline run: %w", err)
	}
	a.l.Info("run finished",
		applogger.String("run_id", rep.ID),
		applogger.String("status", string(rep.Status)),
		applogger.Int("processed", len(rep.Processed)),
		applogger.Int("skipped", len(rep.Skipped)),
		applogger.Int("sink_errors", len(rep.SinkErrors)),
	)
	return rep, nil
}

// Serve starts the HTTP API and blocks until ctx is done, SIGINT/SIGTERM is
// received or the listener fails.
func (a *App) Serve(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := []xhttp.ServerOption{
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	}
	if a.cfg.Server.Host != "" {
		opts = append(opts, xhttp.WithHost(a.cfg.Server.Host))
	}
	if a.cfg.Metrics.Enabled {
		opts = append(opts, xhttp.WithMetricsPath(a.cfg.Metrics.Path))
	}
	srv := xhttp.NewServer(a.handler, a.l, opts...)

	if err := srv.Start(); err != nil {
		a.l.Error("http server start error", applogger.Error(err))
		return err
	}

	if a.cfg.Server.RunOnStart {
		go func() {
			if _, err := a.RunOnce(ctx, usecase.RunOptions{}); err != nil {
				a.l.Error("startup run failed", applogger.Error(err))
			}
		}()
	}

	var serveErr error
	select {
	case <-ctx.Done():
		a.l.Info("shutdown signal received")
	case serveErr = <-srv.Err():
	}

	// ctx is already done here; shutdown gets its own deadline.
	if err := srv.Stop(context.Background()); err != nil {
		a.l.Error("http shutdown error", applogger.Error(err))
	}
	a.l.Info("shutdown complete")
	return serveErr
}
