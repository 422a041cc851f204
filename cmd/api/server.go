package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.temporal.io/api/enums/v1"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/api/workflowservice/v1"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/converter"
	"go.uber.org/zap"

	"outreach-service/internal/app"
	"outreach-service/internal/campaign"
	"outreach-service/internal/config"
	"outreach-service/internal/contacts"
	"outreach-service/internal/export"
	"outreach-service/internal/logging"
	"outreach-service/internal/modal"
	"outreach-service/internal/review"
	"outreach-service/internal/workflows"
)

// workflowClient is the part of client.Client the API uses.
type workflowClient interface {
	ExecuteWorkflow(ctx context.Context, options client.StartWorkflowOptions, workflow interface{}, args ...interface{}) (client.WorkflowRun, error)
	QueryWorkflow(ctx context.Context, workflowID string, runID string, queryType string, args ...interface{}) (converter.EncodedValue, error)
	SignalWorkflow(ctx context.Context, workflowID string, runID string, signalName string, arg interface{}) error
	ListWorkflow(ctx context.Context, request *workflowservice.ListWorkflowExecutionsRequest) (*workflowservice.ListWorkflowExecutionsResponse, error)
}

type server struct {
	tc        workflowClient
	taskQueue string
	defaults  modal.CampaignConfig
	logger    *logging.Logger
	t         *template.Template
}

func newServer(tc workflowClient, cfg *config.Config, logger *logging.Logger) *server {
	return &server{
		tc:        tc,
		taskQueue: cfg.Temporal.TaskQueue,
		defaults:  app.CampaignDefaults(cfg.Campaign),
		logger:    logger,
		t: template.Must(template.New("base").Funcs(template.FuncMap{
			"prettyJSON": prettyJSON,
			"count":      countStatus,
		}).Parse(uiTemplates)),
	}
}

type startReq struct {
	RunID    string               `json:"runId,omitempty"`
	Contacts []modal.Contact      `json:"contacts,omitempty"`
	CSV      string               `json:"csv,omitempty"`
	Config   modal.CampaignConfig `json:"config"`
}

type startResp struct {
	RunID      string              `json:"runId"`
	WorkflowID string              `json:"workflowId"`
	Execution  string              `json:"execution"`
	Contacts   int                 `json:"contacts"`
	Rejected   []contacts.RowError `json:"rejected,omitempty"`
}

type responseReq struct {
	Response modal.Response `json:"response"`
}

func (s *server) routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/runs", s.handleStart)
	r.Get("/runs/{runId}/report", s.handleReport)
	r.Get("/runs/{runId}/reviews", s.handleReviews)
	r.Get("/runs/{runId}/audit", s.handleAudit)
	r.Get("/runs/{runId}/export", s.handleExport)
	r.Post("/runs/{runId}/decisions", s.handleDecision)
	r.Post("/runs/{runId}/contacts/{contactId}/retry", s.handleRetry)
	r.Post("/runs/{runId}/contacts/{contactId}/response", s.handleResponse)
	r.Post("/runs/{runId}/cancel", s.handleCancel)

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	s.registerUIRoutes(r)
	return r
}

// handleStart accepts either a JSON startReq or a raw CSV body
// (Content-Type: text/csv) with goal, style and runId as query parameters.
func (s *server) handleStart(w http.ResponseWriter, r *http.Request) {
	var req startReq
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "text/csv" {
		q := r.URL.Query()
		req.RunID = q.Get("runId")
		req.Config.Goal = modal.Goal(q.Get("goal"))
		req.Config.Style = modal.Style(q.Get("style"))
		req.Config.Message = q.Get("message")
		res, err := contacts.Import(r.Body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		s.start(w, r, req, res)
		return
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `invalid body: {"contacts":[...]} or {"csv":"..."}`, http.StatusBadRequest)
		return
	}
	res := contacts.Validate(req.Contacts)
	if req.CSV != "" {
		imported, err := contacts.Import(strings.NewReader(req.CSV))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		res = imported
	}
	s.start(w, r, req, res)
}

func (s *server) start(w http.ResponseWriter, r *http.Request, req startReq, res *contacts.Result) {
	if len(res.Contacts) == 0 {
		http.Error(w, "no valid contacts", http.StatusBadRequest)
		return
	}
	cfg, err := campaign.NormalizeConfig(s.campaignConfig(req.Config))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.RunID == "" {
		req.RunID = uuid.NewString()
	}

	opts := client.StartWorkflowOptions{
		ID:                                       workflows.WorkflowID(req.RunID),
		TaskQueue:                                s.taskQueue,
		WorkflowExecutionErrorWhenAlreadyStarted: true,
		WorkflowIDReusePolicy:                    enums.WORKFLOW_ID_REUSE_POLICY_REJECT_DUPLICATE,
	}
	in := workflows.CampaignInput{
		RunID:        req.RunID,
		Contacts:     res.Contacts,
		Config:       cfg,
		RejectedRows: len(res.Rejected),
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	we, err := s.tc.ExecuteWorkflow(ctx, opts, workflows.OutreachCampaign, in)
	if err != nil {
		s.writeError(w, r, "start workflow", err)
		return
	}
	s.logger.Info(r.Context(), "campaign started",
		zap.String("run_id", req.RunID),
		zap.Int("contacts", len(res.Contacts)),
		zap.Int("rejected", len(res.Rejected)))

	writeJSON(w, http.StatusAccepted, startResp{
		RunID:      req.RunID,
		WorkflowID: we.GetID(),
		Execution:  we.GetRunID(),
		Contacts:   len(res.Contacts),
		Rejected:   res.Rejected,
	})
}

// campaignConfig lays the request's non-empty fields over the configured defaults.
func (s *server) campaignConfig(in modal.CampaignConfig) modal.CampaignConfig {
	out := s.defaults
	if in.Name != "" {
		out.Name = in.Name
	}
	if in.Goal != "" {
		out.Goal = in.Goal
	}
	if in.Tone != "" {
		out.Tone = in.Tone
	}
	if in.Length != "" {
		out.Length = in.Length
	}
	out.Message = in.Message
	out.Style = in.Style
	return out
}

func (s *server) handleReport(w http.ResponseWriter, r *http.Request) {
	var rep modal.RunReport
	if err := s.query(r.Context(), chi.URLParam(r, "runId"), workflows.QueryReport, &rep); err != nil {
		s.writeError(w, r, "query report", err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (s *server) handleReviews(w http.ResponseWriter, r *http.Request) {
	var tasks []modal.ReviewTask
	if err := s.query(r.Context(), chi.URLParam(r, "runId"), workflows.QueryPendingReviews, &tasks); err != nil {
		s.writeError(w, r, "query reviews", err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (s *server) handleAudit(w http.ResponseWriter, r *http.Request) {
	var events []modal.AuditEvent
	if err := s.query(r.Context(), chi.URLParam(r, "runId"), workflows.QueryAuditLog, &events); err != nil {
		s.writeError(w, r, "query audit", err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

// handleExport returns the approved and edited emails, as JSON or, with
// ?format=text, as plain text.
func (s *server) handleExport(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format != "" && format != export.FormatJSON && format != export.FormatText {
		http.Error(w, fmt.Sprintf("unknown format %q", format), http.StatusBadRequest)
		return
	}
	var exp modal.CampaignExport
	if err := s.query(r.Context(), chi.URLParam(r, "runId"), workflows.QueryExport, &exp); err != nil {
		s.writeError(w, r, "query export", err)
		return
	}
	if format != export.FormatText {
		writeJSON(w, http.StatusOK, exp)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if err := export.WriteText(w, exp); err != nil {
		s.logger.Warn(r.Context(), "write export", zap.Error(err))
	}
}

// handleDecision validates the decision before signalling; the workflow
// re-checks it against the run's state and audits a refusal.
func (s *server) handleDecision(w http.ResponseWriter, r *http.Request) {
	var d modal.ReviewDecision
	if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
		http.Error(w, `invalid body: {"contactId":"...","draftRef":"...","outcome":"approved"}`, http.StatusBadRequest)
		return
	}
	if d.Reviewer == "" {
		d.Reviewer = "operator"
	}
	d.ReviewedAt = time.Now().UTC()
	if err := review.Validate(d); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.signal(w, r, workflows.ReviewDecisionSignal, d)
}

func (s *server) handleRetry(w http.ResponseWriter, r *http.Request) {
	s.signal(w, r, workflows.RetrySignal, chi.URLParam(r, "contactId"))
}

func (s *server) handleResponse(w http.ResponseWriter, r *http.Request) {
	var req responseReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || !req.Response.Valid() {
		http.Error(w, `invalid body: {"response":"replied"}`, http.StatusBadRequest)
		return
	}
	s.signal(w, r, workflows.ResponseSignal, workflows.ResponseInput{
		ContactID: chi.URLParam(r, "contactId"),
		Response:  req.Response,
	})
}

func (s *server) handleCancel(w http.ResponseWriter, r *http.Request) {
	s.signal(w, r, workflows.CancelSignal, nil)
}

func (s *server) signal(w http.ResponseWriter, r *http.Request, name string, arg any) {
	runID := chi.URLParam(r, "runId")
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if err := s.tc.SignalWorkflow(ctx, workflows.WorkflowID(runID), "", name, arg); err != nil {
		s.writeError(w, r, "signal "+name, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"ok": true})
}

func (s *server) query(ctx context.Context, runID, queryType string, out any) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	qr, err := s.tc.QueryWorkflow(ctx, workflows.WorkflowID(runID), "", queryType)
	if err != nil {
		return err
	}
	return qr.Get(out)
}

func (s *server) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := http.StatusInternalServerError
	var notFound *serviceerror.NotFound
	var started *serviceerror.WorkflowExecutionAlreadyStarted
	switch {
	case errors.As(err, &notFound):
		status = http.StatusNotFound
	case errors.As(err, &started):
		status = http.StatusConflict
	default:
		s.logger.Error(r.Context(), op+" failed", zap.Error(err))
	}
	http.Error(w, fmt.Sprintf("%s: %v", op, err), status)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
