// Package main implements the outreach CLI. It drives the orchestrator in
// process, without a Temporal cluster, against the configured snapshot and
// learning stores.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"outreach-service/internal/app"
	"outreach-service/internal/config"
	"outreach-service/internal/logging"
)

var (
	// configPath is the optional YAML config file
	configPath string
	// outputJSON switches report-style output to JSON
	outputJSON bool
	version    = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "outreach",
	Short: "Run and review outreach campaigns locally",
	Long: `outreach imports a contact CSV, researches each contact, drafts a
personalized email for every one and walks a reviewer through the drafts.

Runs are persisted as snapshots, so a run started in one invocation can be
advanced, reviewed and reported on in later ones.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config")
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "print results as JSON")
}

// withApp loads configuration, builds the runtime and hands it to fn.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, rt *app.App) error) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger, err := logging.NewLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	logger = logger.With(zap.String("component", "cli"), zap.String("command", cmd.Name()))

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	rt, err := app.Build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer rt.Close()
	return fn(ctx, rt)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
