package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Campaign.Concurrency)
	assert.Equal(t, 5, cfg.Learning.MinSamples)
	assert.Equal(t, 2.0, cfg.Learning.LaplaceK)
	assert.Equal(t, "file", cfg.Snapshot.Backend)
	assert.True(t, cfg.Campaign.FallbackOnGenerationError)
	assert.Equal(t, 20*time.Second, cfg.Campaign.LookupTimeout.Duration())
}

func TestLoadFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
campaign:
  concurrency: 8
  lookup_timeout: 5s
learning:
  min_samples: 10
  styles: [brief_direct, professional_friendly]
snapshot:
  backend: file
  dir: /tmp/outreach
llm:
  provider: openai
  model: gpt-4o-mini
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0600))

	t.Setenv("OUTREACH_CAMPAIGN_CONCURRENCY", "2")
	t.Setenv("OUTREACH_LLM_API_KEY", "sk-test")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.Campaign.Concurrency, "env overrides file")
	assert.Equal(t, 5*time.Second, cfg.Campaign.LookupTimeout.Duration())
	assert.Equal(t, 10, cfg.Learning.MinSamples)
	assert.Equal(t, []string{"brief_direct", "professional_friendly"}, cfg.Learning.Styles)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "sk-test", cfg.LLM.APIKey.Value())
	assert.Equal(t, "[REDACTED]", cfg.LLM.APIKey.String())
	// untouched sections keep their defaults
	assert.Equal(t, 60*time.Second, cfg.Campaign.GenerationTimeout.Duration())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero concurrency", func(c *Config) { c.Campaign.Concurrency = 0 }},
		{"zero min samples", func(c *Config) { c.Learning.MinSamples = 0 }},
		{"zero laplace", func(c *Config) { c.Learning.LaplaceK = 0 }},
		{"no styles", func(c *Config) { c.Learning.Styles = nil }},
		{"unknown backend", func(c *Config) { c.Snapshot.Backend = "s3" }},
		{"redis without addr", func(c *Config) { c.Snapshot.Backend = "redis" }},
		{"unknown provider", func(c *Config) { c.LLM.Provider = "cohere" }},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
	assert.NoError(t, Default().Validate())
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "campaign.lookup_timeout", envKey("OUTREACH_CAMPAIGN_LOOKUP_TIMEOUT"))
	assert.Equal(t, "snapshot.backend", envKey("OUTREACH_SNAPSHOT_BACKEND"))
}

func TestDurationUnmarshal(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalText([]byte("1m30s")))
	assert.Equal(t, 90*time.Second, d.Duration())
	assert.Error(t, d.UnmarshalText([]byte("-1s")))
}
