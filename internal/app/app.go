// Package app assembles the orchestrator and its collaborators from
// configuration. Every binary builds its runtime through Build.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"google.golang.org/api/gmail/v1"

	"outreach-service/internal/campaign"
	"outreach-service/internal/config"
	"outreach-service/internal/enrich"
	"outreach-service/internal/export"
	"outreach-service/internal/generate"
	"outreach-service/internal/learning"
	"outreach-service/internal/logging"
	"outreach-service/internal/modal"
	"outreach-service/internal/snapshot"
)

// App is a fully wired orchestrator plus the resources it holds.
type App struct {
	Config       *config.Config
	Logger       *logging.Logger
	Orchestrator *campaign.Orchestrator
	Learning     *learning.Store
	Metrics      *campaign.Metrics

	closers []func()
}

// Build wires every collaborator named in cfg. Optional sources that cannot
// be set up (Gmail without a token, say) are logged and left out; the
// orchestrator records their absence per contact.
func Build(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*App, error) {
	a := &App{Config: cfg, Logger: logger, Metrics: campaign.NewMetrics()}

	snaps, err := a.snapshots(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	journal, err := a.journal(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Learning, err = learning.Open(ctx, LearningSettings(cfg.Learning), journal, logger.Named("learning"))
	if err != nil {
		a.Close()
		return nil, err
	}

	gen, err := a.generator()
	if err != nil {
		a.Close()
		return nil, err
	}

	deps := campaign.Deps{
		Generator: gen,
		Fallback:  generate.NewTemplateGenerator(),
		Learning:  a.Learning,
		Snapshots: snaps,
		Logger:    logger,
		Metrics:   a.Metrics,
	}
	if h := a.history(ctx); h != nil {
		deps.History = h
	}
	if cfg.Research.Enabled {
		deps.Research = enrich.NewWebResearch(nil, enrich.WebOptions{
			UserAgent:         cfg.Research.UserAgent,
			RequestsPerSecond: cfg.Research.RequestsPerSecond,
			Timeout:           cfg.Research.Timeout.Duration(),
			TLDs:              cfg.Research.TLDs,
		})
	}

	a.Orchestrator, err = campaign.New(deps, CampaignSettings(cfg.Campaign))
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// Close releases pooled connections in reverse order of creation.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func CampaignSettings(c config.CampaignConfig) campaign.Settings {
	return campaign.Settings{
		Concurrency:               c.Concurrency,
		LookupTimeout:             c.LookupTimeout.Duration(),
		GenerationTimeout:         c.GenerationTimeout.Duration(),
		FallbackOnGenerationError: c.FallbackOnGenerationError,
	}
}

func LearningSettings(c config.LearningConfig) learning.Settings {
	styles := make([]modal.Style, 0, len(c.Styles))
	for _, s := range c.Styles {
		styles = append(styles, modal.Style(s))
	}
	return learning.Settings{MinSamples: c.MinSamples, LaplaceK: c.LaplaceK, Styles: styles}
}

// CampaignDefaults turns the configured defaults into a per-run config.
func CampaignDefaults(c config.CampaignConfig) modal.CampaignConfig {
	return modal.CampaignConfig{
		Goal:   modal.Goal(c.Goal),
		Tone:   c.Tone,
		Length: modal.Length(c.Length),
	}
}

func (a *App) snapshots(ctx context.Context) (snapshot.Store, error) {
	sc := a.Config.Snapshot
	switch sc.Backend {
	case "redis":
		rs, err := snapshot.OpenRedis(ctx, snapshot.RedisConfig{Addr: sc.RedisAddr, KeyPrefix: sc.KeyPrefix})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = rs.Close() })
		a.Logger.Info(ctx, "snapshots in redis", zap.String("addr", sc.RedisAddr))
		return rs, nil
	default:
		return snapshot.NewFileStore(sc.Dir)
	}
}

func (a *App) journal(ctx context.Context) (learning.Journal, error) {
	lc := a.Config.Learning
	if lc.PostgresDSN.IsSet() {
		j, err := learning.OpenPostgresJournal(ctx, lc.PostgresDSN.Value())
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, j.Close)
		a.Logger.Info(ctx, "learning journal in postgres")
		return j, nil
	}
	if lc.JournalPath == "" {
		return nil, nil
	}
	if err := os.MkdirAll(filepath.Dir(lc.JournalPath), 0o700); err != nil {
		return nil, fmt.Errorf("create journal dir: %w", err)
	}
	return learning.NewFileJournal(lc.JournalPath, a.Logger.Named("journal"))
}

func (a *App) generator() (campaign.Generator, error) {
	lc := a.Config.LLM
	if lc.Provider == "template" {
		return generate.NewTemplateGenerator(), nil
	}
	llmCfg := generate.LLMConfig{
		Provider:    lc.Provider,
		Model:       lc.Model,
		APIKey:      lc.APIKey.Value(),
		BaseURL:     lc.BaseURL,
		Temperature: lc.Temperature,
		MaxTokens:   lc.MaxTokens,
	}
	model, err := generate.NewModel(llmCfg)
	if errors.Is(err, generate.ErrInvalidConfig) {
		a.Logger.Warn(context.Background(), "llm not configured, drafting from templates", zap.Error(err))
		return generate.NewTemplateGenerator(), nil
	}
	if err != nil {
		return nil, err
	}
	return generate.NewLLMGenerator(model, llmCfg, a.Logger), nil
}

// GmailDrafts builds the draft exporter from the compose token. Unlike
// history it is requested explicitly, so a missing token is an error.
func (a *App) GmailDrafts(ctx context.Context) (*export.GmailDrafts, error) {
	gc := a.Config.Gmail
	svc, err := enrich.NewGmailService(ctx, gc.CredentialsFile, gc.ComposeTokenFile, gmail.GmailComposeScope)
	if err != nil {
		return nil, fmt.Errorf("gmail drafts: %w", err)
	}
	return export.NewGmailDrafts(svc, gc.User, gc.From, a.Logger.Named("gmail_drafts")), nil
}

// history returns nil when Gmail is disabled or its credentials cannot be
// loaded.
func (a *App) history(ctx context.Context) campaign.HistoryLookup {
	gc := a.Config.Gmail
	if !gc.Enabled {
		return nil
	}
	svc, err := enrich.NewGmailService(ctx, gc.CredentialsFile, gc.TokenFile)
	if err != nil {
		a.Logger.Warn(ctx, "gmail history disabled", zap.Error(err))
		return nil
	}
	return enrich.NewGmailHistory(svc, enrich.GmailOptions{
		User:       gc.User,
		DaysBack:   gc.DaysBack,
		MaxResults: gc.MaxResults,
	})
}
