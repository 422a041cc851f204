package learning

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"outreach-service/internal/logging"
	"outreach-service/internal/modal"
)

func TestFileJournalReplay(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "learning", "outcomes.jsonl")
	j, err := NewFileJournal(path, nil)
	require.NoError(t, err)

	s, err := Open(ctx, DefaultSettings(), j, nil)
	require.NoError(t, err)
	require.NoError(t, s.RecordOutcome(ctx, outcome("r1", "c1", modal.StyleBriefDirect, modal.OutcomeApproved)))
	require.NoError(t, s.RecordOutcome(ctx, outcome("r1", "c2", modal.StyleBriefDirect, modal.OutcomeRejected)))
	require.NoError(t, s.RecordOutcome(ctx, outcome("r1", "c1", modal.StyleBriefDirect, modal.OutcomeEdited)))

	reopened, err := Open(ctx, DefaultSettings(), j, nil)
	require.NoError(t, err)
	require.Len(t, reopened.Outcomes(), 2)
	rec, ok := reopened.Outcome("r1", "c1")
	require.True(t, ok)
	assert.Equal(t, modal.OutcomeEdited, rec.Decision.Outcome)
}

func TestFileJournalMissingFileIsEmpty(t *testing.T) {
	j, err := NewFileJournal(filepath.Join(t.TempDir(), "outcomes.jsonl"), nil)
	require.NoError(t, err)
	recs, err := j.Replay(context.Background())
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestFileJournalCorruptLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "outcomes.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("{not json}\n"), 0600))
	j, err := NewFileJournal(path, nil)
	require.NoError(t, err)

	_, err = Open(context.Background(), DefaultSettings(), j, nil)
	assert.Error(t, err)
}

func TestFileJournalTornTail(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "outcomes.jsonl")
	logger := logging.NewTestLogger()
	j, err := NewFileJournal(path, logger.Logger)
	require.NoError(t, err)

	s, err := Open(ctx, DefaultSettings(), j, nil)
	require.NoError(t, err)
	require.NoError(t, s.RecordOutcome(ctx, outcome("r1", "c1", modal.StyleBriefDirect, modal.OutcomeApproved)))

	// A crash mid-append leaves half a record and no newline.
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0600)
	require.NoError(t, err)
	_, err = f.WriteString(`{"runId":"r1","contactId":"c2","deci`)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	reopened, err := Open(ctx, DefaultSettings(), j, nil)
	require.NoError(t, err)
	assert.Len(t, reopened.Outcomes(), 1)
	logger.AssertLogged(t, zapcore.WarnLevel, "torn journal tail")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(string(data), "}\n"), "tail should be truncated")

	require.NoError(t, reopened.RecordOutcome(ctx, outcome("r1", "c3", modal.StyleBriefDirect, modal.OutcomeRejected)))
	again, err := Open(ctx, DefaultSettings(), j, nil)
	require.NoError(t, err)
	assert.Len(t, again.Outcomes(), 2)
}

func TestFileJournalAppendAfterUnterminatedLine(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "outcomes.jsonl")
	j, err := NewFileJournal(path, nil)
	require.NoError(t, err)

	require.NoError(t, j.Append(ctx, outcome("r1", "c1", modal.StyleBriefDirect, modal.OutcomeApproved)))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	// Drop the newline: the record is whole but unterminated.
	require.NoError(t, os.WriteFile(path, data[:len(data)-1], 0600))

	require.NoError(t, j.Append(ctx, outcome("r1", "c2", modal.StyleBriefDirect, modal.OutcomeRejected)))
	recs, err := j.Replay(ctx)
	require.NoError(t, err)
	assert.Len(t, recs, 2)
}

func TestFileJournalCorruptMiddleLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "outcomes.jsonl")
	good, err := json.Marshal(outcome("r1", "c1", modal.StyleBriefDirect, modal.OutcomeApproved))
	require.NoError(t, err)
	content := string(good) + "\n{\"runId\":\n" + string(good) + "\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	j, err := NewFileJournal(path, nil)
	require.NoError(t, err)

	_, err = j.Replay(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "journal line 2")
}

func TestPostgresJournal(t *testing.T) {
	dsn := os.Getenv("OUTREACH_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("OUTREACH_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	j, err := OpenPostgresJournal(ctx, dsn)
	require.NoError(t, err)
	defer j.Close()

	_, err = j.pool.Exec(ctx, `DELETE FROM outreach_outcomes WHERE run_id = 'pg-test'`)
	require.NoError(t, err)

	s, err := Open(ctx, DefaultSettings(), j, nil)
	require.NoError(t, err)
	require.NoError(t, s.RecordOutcome(ctx, outcome("pg-test", "c1", modal.StyleBriefDirect, modal.OutcomeApproved)))
	require.NoError(t, s.RecordOutcome(ctx, outcome("pg-test", "c1", modal.StyleBriefDirect, modal.OutcomeRejected)))

	reopened, err := Open(ctx, DefaultSettings(), j, nil)
	require.NoError(t, err)
	rec, ok := reopened.Outcome("pg-test", "c1")
	require.True(t, ok)
	assert.Equal(t, modal.OutcomeRejected, rec.Decision.Outcome)
}
