package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"outreach-service/internal/campaign"
	"outreach-service/internal/config"
	"outreach-service/internal/logging"
	"outreach-service/internal/modal"
)

func testConfig(t *testing.T) *config.Config {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Snapshot.Dir = filepath.Join(dir, "campaigns")
	cfg.Learning.JournalPath = filepath.Join(dir, "learning", "outcomes.jsonl")
	cfg.Research.Enabled = false
	cfg.LLM.Provider = "template"
	return cfg
}

func TestBuildTemplateOnly(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	logger := logging.NewTestLogger()

	a, err := Build(ctx, cfg, logger.Logger)
	require.NoError(t, err)
	defer a.Close()

	id, err := a.Orchestrator.StartRun(ctx, []modal.Contact{
		modal.NewContact("Ada Lovelace", "ada@analytical.io", "Analytical", "CTO", nil),
	}, CampaignDefaults(cfg.Campaign), campaign.StartOptions{})
	require.NoError(t, err)

	rep, err := a.Orchestrator.Advance(ctx, id)
	require.NoError(t, err)
	require.Len(t, rep.Reviews, 1)
	assert.Equal(t, modal.GeneratorTemplate, rep.Reviews[0].Draft.Generator)

	task := rep.Reviews[0]
	require.NoError(t, a.Orchestrator.RecordDecision(ctx, id, modal.ReviewDecision{
		ContactID: task.ContactID, DraftRef: task.Draft.ID, Outcome: modal.OutcomeApproved,
	}))
	a.Close()

	// The journal survives a rebuild.
	b, err := Build(ctx, cfg, logger.Logger)
	require.NoError(t, err)
	defer b.Close()
	assert.Equal(t, 1, b.Learning.Stats().TotalOutcomes)
}

func TestBuildFallsBackToTemplatesWithoutAPIKey(t *testing.T) {
	cfg := testConfig(t)
	cfg.LLM.Provider = "anthropic"
	logger := logging.NewTestLogger()

	a, err := Build(context.Background(), cfg, logger.Logger)
	require.NoError(t, err)
	defer a.Close()
	logger.AssertLogged(t, zapcore.WarnLevel, "llm not configured")
}

func TestSettingsMapping(t *testing.T) {
	cfg := config.Default()
	s := CampaignSettings(cfg.Campaign)
	assert.Equal(t, 4, s.Concurrency)
	assert.Equal(t, 20*time.Second, s.LookupTimeout)
	assert.True(t, s.FallbackOnGenerationError)

	ls := LearningSettings(cfg.Learning)
	assert.Equal(t, 5, ls.MinSamples)
	assert.Equal(t, modal.DefaultStyles, ls.Styles)

	cc := CampaignDefaults(cfg.Campaign)
	assert.Equal(t, modal.GoalFirstMeeting, cc.Goal)
	assert.Equal(t, modal.LengthMedium, cc.Length)
}
