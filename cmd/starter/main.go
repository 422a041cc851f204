package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"go.temporal.io/api/enums/v1"
	"go.temporal.io/sdk/client"
	"go.uber.org/zap"

	"outreach-service/internal/app"
	"outreach-service/internal/config"
	"outreach-service/internal/contacts"
	"outreach-service/internal/logging"
	"outreach-service/internal/modal"
	"outreach-service/internal/workflows"
)

// starter imports a contact CSV and starts one campaign workflow for it.
func main() {
	var (
		configPath = flag.String("config", "", "path to YAML config")
		csvPath    = flag.String("csv", "", "contact CSV to import")
		runID      = flag.String("run", "", "run id (generated when empty)")
		goal       = flag.String("goal", "", "campaign goal, overrides config")
		style      = flag.String("style", "", "force one draft style")
		message    = flag.String("message", "", "sender's message passed to the generator")
		wait       = flag.Bool("wait", false, "block until the workflow finishes")
	)
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
	ctx := context.Background()

	if *csvPath == "" {
		logger.Fatal(ctx, "-csv is required")
	}
	res, err := contacts.ImportFile(*csvPath)
	if err != nil {
		logger.Fatal(ctx, "import contacts", zap.Error(err))
	}
	for _, rej := range res.Rejected {
		logger.Warn(ctx, "row rejected", zap.Int("line", rej.Line), zap.Strings("errors", rej.Errors))
	}

	campaignCfg := app.CampaignDefaults(cfg.Campaign)
	if *goal != "" {
		campaignCfg.Goal = modal.Goal(*goal)
	}
	campaignCfg.Style = modal.Style(*style)
	campaignCfg.Message = *message
	if *runID == "" {
		*runID = uuid.NewString()
	}

	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
		Logger:    logger.Temporal(),
	})
	if err != nil {
		logger.Fatal(ctx, "unable to create Temporal client", zap.Error(err))
	}
	defer c.Close()

	opts := client.StartWorkflowOptions{
		ID:                                       workflows.WorkflowID(*runID),
		TaskQueue:                                cfg.Temporal.TaskQueue,
		WorkflowExecutionErrorWhenAlreadyStarted: true,
		WorkflowIDReusePolicy:                    enums.WORKFLOW_ID_REUSE_POLICY_REJECT_DUPLICATE,
	}
	startCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	we, err := c.ExecuteWorkflow(startCtx, opts, workflows.OutreachCampaign, workflows.CampaignInput{
		RunID:        *runID,
		Contacts:     res.Contacts,
		Config:       campaignCfg,
		RejectedRows: len(res.Rejected),
	})
	if err != nil {
		logger.Fatal(ctx, "unable to execute workflow", zap.Error(err))
	}
	logger.Info(ctx, "started workflow",
		zap.String("workflow_id", we.GetID()),
		zap.String("run_id", *runID),
		zap.Int("contacts", len(res.Contacts)),
		zap.Int("rejected_rows", len(res.Rejected)),
	)

	if !*wait {
		return
	}
	var rep modal.RunReport
	if err := we.Get(ctx, &rep); err != nil {
		logger.Fatal(ctx, "workflow failed", zap.Error(err))
	}
	logger.Info(ctx, "workflow finished",
		zap.Int("decided", rep.Counts[modal.StatusDecided]),
		zap.Int("failed", rep.Counts[modal.StatusFailed]),
		zap.Bool("cancelled", rep.Cancelled),
	)
}
