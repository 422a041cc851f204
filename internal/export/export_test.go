package export

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"outreach-service/internal/logging"
	"outreach-service/internal/modal"
)

func sampleExport() modal.CampaignExport {
	at := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	return modal.CampaignExport{
		RunID:   "spring",
		Goal:    modal.GoalDemo,
		Total:   3,
		Drafted: 3,
		Emails: []modal.ExportedEmail{
			{ContactID: "c1", Name: "Ada Lovelace", Email: "ada@analytical.io", Subject: "Engines", Body: "Hi Ada,\n\nShort note.\n",
				Outcome: modal.OutcomeApproved, Style: modal.StyleBriefDirect, ReviewedAt: at},
			{ContactID: "c2", Name: "Grace Hopper", Email: "grace@navy.mil", Subject: "Café compilers", Body: "Hi Grace, edited.",
				Outcome: modal.OutcomeEdited, Style: modal.StyleProfessionalFriendly, ReviewedAt: at},
		},
	}
}

func TestWriteFormats(t *testing.T) {
	exp := sampleExport()

	var js bytes.Buffer
	require.NoError(t, Write(&js, FormatJSON, exp))
	var back modal.CampaignExport
	require.NoError(t, json.Unmarshal(js.Bytes(), &back))
	require.Len(t, back.Emails, 2)
	assert.Contains(t, js.String(), `"approvedEmails"`)

	var txt bytes.Buffer
	require.NoError(t, Write(&txt, FormatText, exp))
	out := txt.String()
	assert.True(t, strings.HasPrefix(out, "run spring: 2 approved of 3 drafted (3 contacts)\n"), out)
	assert.Contains(t, out, "To: Ada Lovelace <ada@analytical.io>")
	assert.Contains(t, out, "Subject: Café compilers")
	assert.Contains(t, out, "Hi Grace, edited.\n")

	assert.ErrorIs(t, Write(&txt, "yaml", exp), modal.ErrInvalidInput)
}

type draftServer struct {
	mu     sync.Mutex
	raws   []string
	failTo string
}

func (d *draftServer) start(t *testing.T) *gmail.Service {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/gmail/v1/users/me/drafts", func(w http.ResponseWriter, r *http.Request) {
		var in gmail.Draft
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&in)) || !assert.NotNil(t, in.Message) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		raw, err := base64.URLEncoding.DecodeString(in.Message.Raw)
		assert.NoError(t, err)

		d.mu.Lock()
		d.raws = append(d.raws, string(raw))
		n := len(d.raws)
		d.mu.Unlock()

		if d.failTo != "" && strings.Contains(string(raw), d.failTo) {
			w.WriteHeader(http.StatusForbidden)
			_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"code": 403, "message": "insufficient scope"}})
			return
		}
		_ = json.NewEncoder(w).Encode(&gmail.Draft{Id: fmt.Sprintf("draft-%d", n)})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	svc, err := gmail.NewService(context.Background(),
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)
	return svc
}

func TestGmailDraftsCreate(t *testing.T) {
	ds := &draftServer{}
	logger := logging.NewTestLogger()
	drafts := NewGmailDrafts(ds.start(t), "", "Sam Sender <sam@example.com>", logger.Logger)

	results, err := drafts.Create(context.Background(), sampleExport())
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "draft-1", results[0].DraftID)
	assert.Equal(t, "grace@navy.mil", results[1].Email)

	require.Len(t, ds.raws, 2)
	first := ds.raws[0]
	assert.Contains(t, first, "From: Sam Sender <sam@example.com>\r\n")
	assert.Contains(t, first, "To: \"Ada Lovelace\" <ada@analytical.io>\r\n")
	assert.Contains(t, first, "Subject: Engines\r\n")
	assert.True(t, strings.HasSuffix(first, "\r\n\r\nHi Ada,\n\nShort note.\n"))
	assert.Contains(t, ds.raws[1], "Subject: =?utf-8?q?Caf=C3=A9_compilers?=")

	logger.AssertLogged(t, zapcore.InfoLevel, "gmail draft created")
}

func TestGmailDraftsPartialFailure(t *testing.T) {
	ds := &draftServer{failTo: "grace@navy.mil"}
	logger := logging.NewTestLogger()
	drafts := NewGmailDrafts(ds.start(t), "me", "", logger.Logger)

	results, err := drafts.Create(context.Background(), sampleExport())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 gmail drafts failed")
	require.Len(t, results, 2)
	assert.NotEmpty(t, results[0].DraftID)
	assert.Empty(t, results[1].DraftID)
	assert.Contains(t, results[1].Error, "insufficient scope")
	assert.NotContains(t, ds.raws[0], "From:")

	logger.AssertLogged(t, zapcore.WarnLevel, "gmail draft failed")
}
