package main

import (
	"context"
	"encoding/json"
	"html/template"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.temporal.io/api/workflowservice/v1"
	"go.uber.org/zap"

	"outreach-service/internal/modal"
	"outreach-service/internal/review"
	"outreach-service/internal/workflows"
)

type uiRunRow struct {
	RunID  string
	Report modal.RunReport
}

type uiIndexData struct {
	Tab   string
	Query string
	Runs  []uiRunRow
	Error string
}

type uiDetailData struct {
	RunID   string
	Report  modal.RunReport
	Reviews []modal.ReviewTask
	Audit   []modal.AuditEvent
	Flash   string
	Error   string
}

func (s *server) registerUIRoutes(r chi.Router) {
	r.Get("/ui", s.handleIndex)
	r.Get("/ui/runs/{runId}", s.handleDetail)
	r.Post("/ui/runs/{runId}/decision", s.handleUIDecision)
	r.Post("/ui/runs/{runId}/contacts/{contactId}/retry", s.handleUIRetry)
}

// handleIndex lists campaign workflows with their report counts. The
// "review" tab only keeps runs with drafts waiting for a decision; the
// "search" tab matches run IDs by prefix across all executions.
func (s *server) handleIndex(w http.ResponseWriter, r *http.Request) {
	tab := r.URL.Query().Get("tab")
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	data := uiIndexData{Tab: tab, Query: q}

	var query string
	switch tab {
	case "search":
		if q == "" {
			s.render(w, "index", data)
			return
		}
		query = `WorkflowId STARTS_WITH "` + workflows.WorkflowID(strings.ReplaceAll(q, `"`, "")) + `"`
	default:
		data.Tab = "review"
		query = `ExecutionStatus = "Running" AND WorkflowType = "OutreachCampaign"`
	}

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	resp, err := s.tc.ListWorkflow(ctx, &workflowservice.ListWorkflowExecutionsRequest{
		Query:    query,
		PageSize: 200,
	})
	if err != nil {
		data.Error = err.Error()
		s.render(w, "index", data)
		return
	}

	for _, ex := range resp.Executions {
		if ex.Execution == nil {
			continue
		}
		runID := strings.TrimPrefix(ex.Execution.WorkflowId, workflows.WorkflowID(""))
		var rep modal.RunReport
		if err := s.query(ctx, runID, workflows.QueryReport, &rep); err != nil {
			// Search still lists a run whose report cannot be read.
			if data.Tab == "review" {
				continue
			}
		}
		if data.Tab == "review" && rep.Counts[modal.StatusAwaitingReview] == 0 {
			continue
		}
		data.Runs = append(data.Runs, uiRunRow{RunID: runID, Report: rep})
		if len(data.Runs) >= 100 {
			break
		}
	}
	s.render(w, "index", data)
}

// handleDetail shows one run: counts, drafts awaiting review and the audit log.
func (s *server) handleDetail(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runId")
	data := uiDetailData{RunID: runID, Flash: r.URL.Query().Get("flash")}

	if err := s.query(r.Context(), runID, workflows.QueryReport, &data.Report); err != nil {
		data.Error = err.Error()
		s.render(w, "detail", data)
		return
	}
	_ = s.query(r.Context(), runID, workflows.QueryPendingReviews, &data.Reviews)
	_ = s.query(r.Context(), runID, workflows.QueryAuditLog, &data.Audit)
	s.render(w, "detail", data)
}

// handleUIDecision turns a review form post into a decision signal. The form
// carries the draft ID it was rendered for, so a decision against a draft
// that has since been replaced is refused by the workflow.
func (s *server) handleUIDecision(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runId")
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	task := modal.ReviewTask{
		ContactID: r.FormValue("contactId"),
		Draft:     modal.Draft{ID: r.FormValue("draftRef")},
	}
	reviewer := r.FormValue("reviewer")
	if reviewer == "" {
		reviewer = "operator"
	}

	var d modal.ReviewDecision
	switch modal.Outcome(r.FormValue("outcome")) {
	case modal.OutcomeApproved:
		d = review.Approve(task, reviewer)
	case modal.OutcomeEdited:
		d = review.Edit(task, r.FormValue("body"), reviewer)
	case modal.OutcomeRejected:
		d = review.Reject(task, reviewer, r.FormValue("notes"))
	default:
		http.Error(w, "unknown outcome", http.StatusBadRequest)
		return
	}
	if err := review.Validate(d); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()
	if err := s.tc.SignalWorkflow(ctx, workflows.WorkflowID(runID), "", workflows.ReviewDecisionSignal, d); err != nil {
		s.writeError(w, r, "signal decision", err)
		return
	}
	s.logger.Info(r.Context(), "review decision sent",
		zap.String("run_id", runID),
		zap.String("contact_id", d.ContactID),
		zap.String("outcome", string(d.Outcome)))

	redirectDetail(w, r, runID, string(d.Outcome)+" "+d.ContactID)
}

func (s *server) handleUIRetry(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runId")
	contactID := chi.URLParam(r, "contactId")

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()
	if err := s.tc.SignalWorkflow(ctx, workflows.WorkflowID(runID), "", workflows.RetrySignal, contactID); err != nil {
		s.writeError(w, r, "signal retry", err)
		return
	}
	redirectDetail(w, r, runID, "retry queued for "+contactID)
}

func redirectDetail(w http.ResponseWriter, r *http.Request, runID, flash string) {
	http.Redirect(w, r, "/ui/runs/"+url.PathEscape(runID)+"?flash="+url.QueryEscape(flash), http.StatusSeeOther)
}

func (s *server) render(w http.ResponseWriter, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.t.ExecuteTemplate(w, name, data); err != nil {
		s.logger.Error(context.Background(), "render template", zap.String("template", name), zap.Error(err))
	}
}

func countStatus(rep modal.RunReport, status string) int {
	return rep.Counts[modal.Status(status)]
}

func prettyJSON(v any) template.HTML {
	b, _ := json.MarshalIndent(v, "", "  ")
	return template.HTML("<pre>" + template.HTMLEscapeString(string(b)) + "</pre>")
}

const uiTemplates = `
{{define "index"}}
<!doctype html>
<html>
<head>
  <meta charset="utf-8"/>
  <title>Outreach Review</title>
  <style>
    body { font-family: sans-serif; margin: 24px; }
    .tabs a { margin-right: 12px; }
    table { border-collapse: collapse; width: 100%; margin-top: 12px; }
    th, td { border: 1px solid #ddd; padding: 8px; }
    .err { color: #b00020; }
    .muted { color: #666; }
  </style>
</head>
<body>
  <h2>Outreach Campaigns</h2>

  <div class="tabs">
    <a href="/ui?tab=review">Awaiting review</a>
    <a href="/ui?tab=search">Search</a>
  </div>

  {{if .Error}}<p class="err">{{.Error}}</p>{{end}}

  {{if eq .Tab "search"}}
    <form method="get" action="/ui">
      <input type="hidden" name="tab" value="search"/>
      <input name="q" placeholder="run id prefix" value="{{.Query}}" style="width: 320px;"/>
      <button type="submit">Search</button>
    </form>
  {{else}}
    <p class="muted">Running campaigns with drafts waiting for a decision.</p>
  {{end}}

  <table>
    <thead><tr><th>Run</th><th>Contacts</th><th>Awaiting review</th><th>Decided</th><th>Failed</th><th>Fallback drafts</th></tr></thead>
    <tbody>
    {{range .Runs}}
      <tr>
        <td><a href="/ui/runs/{{.RunID}}">{{.RunID}}</a></td>
        <td>{{.Report.Total}}</td>
        <td>{{count .Report "awaiting_review"}}</td>
        <td>{{count .Report "decided"}}</td>
        <td>{{count .Report "failed"}}</td>
        <td>{{.Report.FallbackDrafts}}</td>
      </tr>
    {{end}}
    </tbody>
  </table>
</body>
</html>
{{end}}

{{define "detail"}}
<!doctype html>
<html>
<head>
  <meta charset="utf-8"/>
  <title>Run {{.RunID}}</title>
  <style>
    body { font-family: sans-serif; margin: 24px; }
    .err { color: #b00020; }
    .flash { color: #1b5e20; }
    .draft { border: 1px solid #ddd; padding: 12px; margin-bottom: 16px; }
    pre { background: #f7f7f7; padding: 12px; overflow: auto; white-space: pre-wrap; }
    table { border-collapse: collapse; width: 100%; margin-top: 12px; }
    th, td { border: 1px solid #ddd; padding: 8px; }
  </style>
</head>
<body>
  <a href="/ui">Back</a>
  <h2>Run {{.RunID}}</h2>

  {{if .Flash}}<p class="flash">{{.Flash}}</p>{{end}}
  {{if .Error}}<p class="err">{{.Error}}</p>{{end}}

  <p>
    <b>Contacts:</b> {{.Report.Total}}
    <b>Complete:</b> {{.Report.Complete}}
    <b>Cancelled:</b> {{.Report.Cancelled}}
    <b>Fallback drafts:</b> {{.Report.FallbackDrafts}}
    <b>Rejected rows:</b> {{.Report.RejectedRows}}
  </p>
  {{prettyJSON .Report.Counts}}

  <h3>Awaiting review</h3>
  {{range .Reviews}}
    <div class="draft">
      <p><b>{{.Name}}</b> &lt;{{.Email}}&gt; {{.Company}}<br/>
         style {{.Draft.Style}}, confidence {{printf "%.2f" .Draft.Confidence}}{{if .Draft.Fallback}}, fallback template{{end}}</p>
      <p><b>Subject:</b> {{.Draft.Subject}}</p>
      <form method="post" action="/ui/runs/{{$.RunID}}/decision">
        <input type="hidden" name="contactId" value="{{.ContactID}}"/>
        <input type="hidden" name="draftRef" value="{{.Draft.ID}}"/>
        <textarea name="body" rows="10" cols="90">{{.Draft.Body}}</textarea><br/>
        <label>Reviewer: <input name="reviewer" value="operator"/></label>
        <label>Notes: <input name="notes" size="40"/></label><br/><br/>
        <button name="outcome" value="approved" type="submit">Approve</button>
        <button name="outcome" value="edited" type="submit">Save edit</button>
        <button name="outcome" value="rejected" type="submit">Reject</button>
      </form>
    </div>
  {{else}}
    <p>(Nothing awaiting review)</p>
  {{end}}

  {{if .Report.Failures}}
  <h3>Failures</h3>
  <table>
    <thead><tr><th>Contact</th><th>Stage</th><th>Message</th><th></th></tr></thead>
    <tbody>
      {{range .Report.Failures}}
        <tr>
          <td>{{.Email}}</td>
          <td>{{.Stage}}</td>
          <td>{{.Message}}</td>
          <td>{{if eq .Status "failed"}}
            <form method="post" action="/ui/runs/{{$.RunID}}/contacts/{{.ContactID}}/retry"><button type="submit">Retry</button></form>
          {{end}}</td>
        </tr>
      {{end}}
    </tbody>
  </table>
  {{end}}

  <h3>Audit Log</h3>
  <table>
    <thead><tr><th>Time</th><th>Kind</th><th>Message</th><th>Data</th></tr></thead>
    <tbody>
      {{range .Audit}}
        <tr>
          <td>{{.At}}</td>
          <td>{{.Kind}}</td>
          <td>{{.Message}}</td>
          <td>{{if .Data}}{{prettyJSON .Data}}{{end}}</td>
        </tr>
      {{end}}
    </tbody>
  </table>
</body>
</html>
{{end}}
`
