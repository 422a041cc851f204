package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"go.temporal.io/sdk/client"
	"go.uber.org/zap"

	"outreach-service/internal/config"
	"outreach-service/internal/logging"
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
	logger = logger.With(zap.String("component", "api"))
	ctx := context.Background()

	tc, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
		Logger:    logger.Temporal(),
	})
	if err != nil {
		logger.Fatal(ctx, "unable to create Temporal client", zap.Error(err))
	}
	defer tc.Close()

	s := newServer(tc, cfg, logger)
	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	logger.Info(ctx, "api listening", zap.String("addr", cfg.Server.Addr))
	if err := srv.ListenAndServe(); err != nil {
		logger.Fatal(ctx, "api server failed", zap.Error(err))
	}
}
