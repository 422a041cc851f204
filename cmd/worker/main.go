package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.uber.org/zap"

	"outreach-service/internal/activities"
	"outreach-service/internal/app"
	"outreach-service/internal/config"
	"outreach-service/internal/logging"
	"outreach-service/internal/workflows"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.NewLogger(&cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()
	logger = logger.With(zap.String("component", "worker"))

	ctx := context.Background()
	rt, err := app.Build(ctx, cfg, logger)
	if err != nil {
		logger.Fatal(ctx, "build runtime", zap.Error(err))
	}
	defer rt.Close()

	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
		Logger:    logger.Temporal(),
	})
	if err != nil {
		logger.Fatal(ctx, "unable to create Temporal client", zap.Error(err))
	}
	defer c.Close()

	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{})
	w.RegisterWorkflow(workflows.OutreachCampaign)
	w.RegisterActivity(&activities.Activities{Orchestrator: rt.Orchestrator})

	metrics := serveMetrics(cfg.Server.MetricsAddr, logger)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metrics.Shutdown(shutdownCtx)
	}()

	logger.Info(ctx, "worker started", zap.String("task_queue", cfg.Temporal.TaskQueue))
	if err := w.Run(worker.InterruptCh()); err != nil {
		logger.Error(ctx, "worker exited", zap.Error(err))
	}
}

func serveMetrics(addr string, logger *logging.Logger) *http.Server {
	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(context.Background(), "metrics server failed", zap.Error(err))
		}
	}()
	return srv
}
