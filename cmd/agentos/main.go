package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	agentos "github.com/ronaldwang03/agent-os-sub001"
	"github.com/ronaldwang03/agent-os-sub001/internal/archive"
	"github.com/ronaldwang03/agent-os-sub001/internal/config"
	"github.com/ronaldwang03/agent-os-sub001/internal/hub"
	"github.com/ronaldwang03/agent-os-sub001/internal/metrics"
	"github.com/ronaldwang03/agent-os-sub001/internal/server"
	"github.com/ronaldwang03/agent-os-sub001/internal/workflowfile"
	"github.com/ronaldwang03/agent-os-sub001/pkg/events"
	"github.com/ronaldwang03/agent-os-sub001/pkg/log"
)

type app struct {
	cfg        *config.Config
	eventHub   *events.Hub
	archive    archive.Archiver
	hub        *hub.Hub
	server     *server.Server
	httpServer *http.Server
}

var (
	logLevels = map[string]slog.Level{
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	}

	registry = prometheus.NewRegistry()
)

func main() {
	cfg := config.NewDefaultConfig()
	if err := cfg.LoadFromEnv(); err != nil {
		slog.Error("Failed to load configuration",
			slog.Any("error", err))
		os.Exit(1)
	}

	a := &app{cfg: cfg}
	if err := a.run(); err != nil {
		slog.Error("Failed to start application",
			slog.Any("error", err))
		os.Exit(1)
	}
}

func (a *app) run() error {
	a.setupLogging()

	if err := a.cfg.Validate(); err != nil {
		return err
	}

	if err := a.initializeHub(); err != nil {
		return err
	}

	if err := a.preloadWorkflows(); err != nil {
		return err
	}

	a.startServer()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	a.shutdown()
	return nil
}

func (a *app) setupLogging() {
	level, ok := logLevels[a.cfg.LogLevel]
	if !ok {
		level = slog.LevelInfo
	}
	slog.SetLogLoggerLevel(level)

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}
	slog.SetDefault(log.NewWithLevel(agentos.Name, env, agentos.Version, level))

	slog.Info("Orchestrator starting")

	slog.Info("Configuration loaded",
		slog.String("api_host", a.cfg.APIHost),
		slog.Int("api_port", a.cfg.APIPort),
		slog.Int("max_iterations", a.cfg.MaxIterations),
		slog.String("archive_redis_addr", a.cfg.Archive.Addr),
		slog.String("blob_bucket_url", a.cfg.BlobBucketURL))
}

func (a *app) initializeHub() error {
	a.eventHub = events.NewHub()

	opts := []hub.Option{
		hub.WithMetrics(metrics.New(registry)),
	}

	switch {
	case a.cfg.Archive.Addr != "":
		a.archive = archive.NewRedis(a.cfg.Archive)
		opts = append(opts, hub.WithArchiver(a.archive))
	case a.cfg.BlobBucketURL != "":
		b, err := archive.NewBlob(
			context.Background(), a.cfg.BlobBucketURL, a.cfg.Archive.Prefix,
		)
		if err != nil {
			return fmt.Errorf("failed to open blob bucket: %w", err)
		}
		a.archive = b
		opts = append(opts, hub.WithArchiver(a.archive))
	}

	a.hub = hub.New(a.cfg, a.eventHub, opts...)
	return nil
}

func (a *app) preloadWorkflows() error {
	if a.cfg.WorkflowDir == "" {
		return nil
	}

	workflows, err := workflowfile.LoadDir(a.cfg.WorkflowDir)
	if err != nil {
		return fmt.Errorf("failed to load workflows: %w", err)
	}
	for _, wf := range workflows {
		if err := a.hub.RegisterWorkflow(wf); err != nil {
			return err
		}
	}

	slog.Info("Workflows preloaded",
		slog.String("dir", a.cfg.WorkflowDir),
		slog.Int("count", len(workflows)))
	return nil
}

func (a *app) startServer() {
	a.server = server.NewServer(a.hub, a.eventHub, a.archive, registry)
	router := a.server.SetupRoutes()

	a.httpServer = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", a.cfg.APIHost, a.cfg.APIPort),
		Handler: router,
	}

	go func() {
		slog.Info("HTTP server starting",
			slog.String("addr", a.httpServer.Addr))
		if err := a.httpServer.ListenAndServe(); err != nil &&
			!errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error",
				slog.Any("error", err))
		}
	}()
}

func (a *app) shutdown() {
	slog.Info("Shutting down")

	ctx, cancel := context.WithTimeout(
		context.Background(), a.cfg.ShutdownTimeout,
	)
	defer cancel()

	if err := a.httpServer.Shutdown(ctx); err != nil {
		slog.Error("Shutdown failed",
			slog.Any("error", err))
	}

	a.server.CloseWebSockets()
	a.eventHub.Close()

	if a.archive != nil {
		if err := a.archive.Close(); err != nil {
			slog.Error("Archive shutdown failed",
				slog.Any("error", err))
		}
	}

	slog.Info("Server exited")
}
