package snapshot

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"outreach-service/internal/modal"
)

func sampleRun(id string) *modal.CampaignRun {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	contacts := []modal.Contact{
		modal.NewContact("Ada Lovelace", "ada@example.com", "Engines", "CTO", nil),
		modal.NewContact("Alan Turing", "alan@example.com", "Bletchley", "Researcher", nil),
	}
	run := modal.NewCampaignRun(id, modal.CampaignConfig{Goal: modal.GoalDemo}, contacts, now)
	run.Statuses[contacts[0].ID] = modal.StatusAwaitingReview
	run.Statuses[contacts[1].ID] = modal.StatusFailed
	run.Drafts[contacts[0].ID] = &modal.Draft{ID: "d1", ContactID: contacts[0].ID, Subject: "Hi", Body: "Hello", Generator: modal.GeneratorAI}
	run.Notes[contacts[1].ID] = []modal.ErrorNote{{Stage: "history", Message: "timeout", At: now}}
	return run
}

func roundTrip(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	run := sampleRun("run-1")

	require.NoError(t, s.Save(ctx, run))
	loaded, err := s.Load(ctx, "run-1")
	require.NoError(t, err)

	assert.Equal(t, run.Statuses, loaded.Statuses)
	assert.Equal(t, run.Contacts, loaded.Contacts)
	assert.Equal(t, "Hello", loaded.Drafts[run.Contacts[0].ID].Body)
	assert.Equal(t, "timeout", loaded.Notes[run.Contacts[1].ID][0].Message)
	assert.NotNil(t, loaded.Decisions)

	run.Statuses[run.Contacts[0].ID] = modal.StatusDecided
	require.NoError(t, s.Save(ctx, run))
	loaded, err = s.Load(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, modal.StatusDecided, loaded.Statuses[run.Contacts[0].ID])

	ids, err := s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"run-1"}, ids)

	_, err = s.Load(ctx, "missing")
	assert.ErrorIs(t, err, modal.ErrRunNotFound)
}

func TestFileStoreRoundTrip(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	roundTrip(t, s)
}

func TestFileStoreLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		require.NoError(t, s.Save(context.Background(), sampleRun("run-1")))
	}
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "run-1.json", entries[0].Name())
}

func TestFileStoreRejectsPathTraversal(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	_, err = s.Load(context.Background(), "../etc/passwd")
	assert.ErrorIs(t, err, modal.ErrInvalidInput)
}

func TestFileStoreCorruptSnapshot(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.json"), []byte("{"), 0600))

	_, err = s.Load(context.Background(), "bad")
	require.Error(t, err)
	assert.NotErrorIs(t, err, modal.ErrRunNotFound)
}

func TestRedisStoreRoundTrip(t *testing.T) {
	addr := os.Getenv("OUTREACH_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("OUTREACH_TEST_REDIS_ADDR not set")
	}
	prefix := "outreach-test-" + time.Now().Format("150405.000000") + ":"
	s, err := OpenRedis(context.Background(), RedisConfig{Addr: addr, KeyPrefix: prefix})
	require.NoError(t, err)
	defer s.Close()
	roundTrip(t, s)
}
