// Package config loads outreach-service configuration.
package config

import (
	"errors"
	"fmt"
	"time"

	"outreach-service/internal/logging"
)

// Config is the root configuration. Every tunable threshold used by the
// orchestrator and the learning store lives here rather than inline.
type Config struct {
	Campaign CampaignConfig `koanf:"campaign"`
	Learning LearningConfig `koanf:"learning"`
	Snapshot SnapshotConfig `koanf:"snapshot"`
	Gmail    GmailConfig    `koanf:"gmail"`
	Research ResearchConfig `koanf:"research"`
	LLM      LLMConfig      `koanf:"llm"`
	Temporal TemporalConfig `koanf:"temporal"`
	Server   ServerConfig   `koanf:"server"`
	Logging  logging.Config `koanf:"logging"`
}

type CampaignConfig struct {
	Concurrency               int      `koanf:"concurrency"`
	LookupTimeout             Duration `koanf:"lookup_timeout"`
	GenerationTimeout         Duration `koanf:"generation_timeout"`
	FallbackOnGenerationError bool     `koanf:"fallback_on_generation_error"`
	Goal                      string   `koanf:"goal"`
	Tone                      string   `koanf:"tone"`
	Length                    string   `koanf:"length"`
}

type LearningConfig struct {
	MinSamples  int      `koanf:"min_samples"`
	LaplaceK    float64  `koanf:"laplace_k"`
	Styles      []string `koanf:"styles"`
	JournalPath string   `koanf:"journal_path"`
	PostgresDSN Secret   `koanf:"postgres_dsn"`
}

type SnapshotConfig struct {
	Backend   string `koanf:"backend"`
	Dir       string `koanf:"dir"`
	RedisAddr string `koanf:"redis_addr"`
	KeyPrefix string `koanf:"key_prefix"`
}

type GmailConfig struct {
	Enabled         bool   `koanf:"enabled"`
	CredentialsFile string `koanf:"credentials_file"`
	TokenFile       string `koanf:"token_file"`
	User            string `koanf:"user"`
	DaysBack        int    `koanf:"days_back"`
	MaxResults      int64  `koanf:"max_results"`
	// ComposeTokenFile holds a token authorized for the compose scope, used
	// only when exporting approved emails as drafts.
	ComposeTokenFile string `koanf:"compose_token_file"`
	From             string `koanf:"from"`
}

type ResearchConfig struct {
	Enabled           bool     `koanf:"enabled"`
	UserAgent         string   `koanf:"user_agent"`
	RequestsPerSecond float64  `koanf:"requests_per_second"`
	Timeout           Duration `koanf:"timeout"`
	TLDs              []string `koanf:"tlds"`
}

type LLMConfig struct {
	Provider    string  `koanf:"provider"`
	Model       string  `koanf:"model"`
	APIKey      Secret  `koanf:"api_key"`
	BaseURL     string  `koanf:"base_url"`
	Temperature float64 `koanf:"temperature"`
	MaxTokens   int     `koanf:"max_tokens"`
}

type TemporalConfig struct {
	HostPort  string `koanf:"host_port"`
	Namespace string `koanf:"namespace"`
	TaskQueue string `koanf:"task_queue"`
}

type ServerConfig struct {
	Addr        string `koanf:"addr"`
	MetricsAddr string `koanf:"metrics_addr"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Campaign: CampaignConfig{
			Concurrency:               4,
			LookupTimeout:             Duration(20 * time.Second),
			GenerationTimeout:         Duration(60 * time.Second),
			FallbackOnGenerationError: true,
			Goal:                      "first_meeting",
			Tone:                      "professional",
			Length:                    "medium",
		},
		Learning: LearningConfig{
			MinSamples:  5,
			LaplaceK:    2,
			Styles:      []string{"professional_friendly", "brief_direct", "casual_conversational"},
			JournalPath: "data/learning/outcomes.jsonl",
		},
		Snapshot: SnapshotConfig{
			Backend:   "file",
			Dir:       "data/campaigns",
			KeyPrefix: "outreach:",
		},
		Gmail: GmailConfig{
			CredentialsFile: "credentials.json",
			TokenFile:       "token.json",
			User:            "me",
			DaysBack:        365,
			MaxResults:      50,

			ComposeTokenFile: "token_compose.json",
		},
		Research: ResearchConfig{
			Enabled:           true,
			UserAgent:         "Mozilla/5.0 (compatible; outreach-research/1.0)",
			RequestsPerSecond: 1,
			Timeout:           Duration(10 * time.Second),
			TLDs:              []string{"com", "io"},
		},
		LLM: LLMConfig{
			Provider:    "anthropic",
			Model:       "claude-3-5-sonnet-latest",
			Temperature: 0.7,
			MaxTokens:   1000,
		},
		Temporal: TemporalConfig{
			HostPort:  "localhost:7233",
			Namespace: "default",
			TaskQueue: "OUTREACH_CAMPAIGN_TASK_QUEUE",
		},
		Server: ServerConfig{
			Addr:        ":8090",
			MetricsAddr: ":9091",
		},
		Logging: *logging.NewDefaultConfig(),
	}
}

// Validate checks the configuration for values the pipeline cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Campaign.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("campaign.concurrency must be >= 1, got %d", c.Campaign.Concurrency))
	}
	if c.Campaign.LookupTimeout.Duration() <= 0 {
		errs = append(errs, errors.New("campaign.lookup_timeout must be > 0"))
	}
	if c.Campaign.GenerationTimeout.Duration() <= 0 {
		errs = append(errs, errors.New("campaign.generation_timeout must be > 0"))
	}
	if c.Learning.MinSamples < 1 {
		errs = append(errs, fmt.Errorf("learning.min_samples must be >= 1, got %d", c.Learning.MinSamples))
	}
	if c.Learning.LaplaceK <= 0 {
		errs = append(errs, fmt.Errorf("learning.laplace_k must be > 0, got %v", c.Learning.LaplaceK))
	}
	if len(c.Learning.Styles) == 0 {
		errs = append(errs, errors.New("learning.styles must not be empty"))
	}
	switch c.Snapshot.Backend {
	case "file":
		if c.Snapshot.Dir == "" {
			errs = append(errs, errors.New("snapshot.dir is required for the file backend"))
		}
	case "redis":
		if c.Snapshot.RedisAddr == "" {
			errs = append(errs, errors.New("snapshot.redis_addr is required for the redis backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("snapshot.backend must be 'file' or 'redis', got %q", c.Snapshot.Backend))
	}
	switch c.LLM.Provider {
	case "anthropic", "openai", "template":
	default:
		errs = append(errs, fmt.Errorf("llm.provider must be anthropic, openai or template, got %q", c.LLM.Provider))
	}
	if c.Research.RequestsPerSecond <= 0 {
		errs = append(errs, errors.New("research.requests_per_second must be > 0"))
	}
	if err := c.Logging.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("logging: %w", err))
	}
	return errors.Join(errs...)
}
