package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"outreach-service/internal/activities"
	"outreach-service/internal/modal"
)

const TaskQueue = "OUTREACH_CAMPAIGN_TASK_QUEUE"

const (
	ReviewDecisionSignal = "REVIEW_DECISION_SIGNAL"
	RetrySignal          = "RETRY_CONTACT_SIGNAL"
	ResponseSignal       = "DOWNSTREAM_RESPONSE_SIGNAL"
	CancelSignal         = "CANCEL_RUN_SIGNAL"
)

const (
	QueryReport         = "report"
	QueryPendingReviews = "pending_reviews"
	QueryAuditLog       = "audit_log"
	QueryExport         = "export"
)

// CampaignInput starts one workflow per run.
type CampaignInput struct {
	RunID        string               `json:"runId"`
	Contacts     []modal.Contact      `json:"contacts"`
	Config       modal.CampaignConfig `json:"config"`
	RejectedRows int                  `json:"rejectedRows,omitempty"`
	// AdvanceTimeout bounds one AdvanceRun attempt; zero means 30 minutes.
	AdvanceTimeout time.Duration `json:"advanceTimeout,omitempty"`
}

// ResponseInput is the payload of ResponseSignal.
type ResponseInput struct {
	ContactID string         `json:"contactId"`
	Response  modal.Response `json:"response"`
}

type workflowState struct {
	Report modal.RunReport      `json:"report"`
	Export modal.CampaignExport `json:"export"`
	Audit  []modal.AuditEvent   `json:"audit,omitempty"`
}

var a *activities.Activities

// WorkflowID is the Temporal workflow ID for a run.
func WorkflowID(runID string) string {
	return "outreach-" + runID
}

// OutreachCampaign drives one run: it starts the run, advances it, then waits
// for review decisions until every contact is decided or failed. A failed
// contact can be sent back through the pipeline with RetrySignal.
func OutreachCampaign(ctx workflow.Context, in CampaignInput) (modal.RunReport, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("workflow started", "runID", in.RunID, "contacts", len(in.Contacts))

	state := &workflowState{
		Export: modal.CampaignExport{RunID: in.RunID, Goal: in.Config.Goal, Total: len(in.Contacts), Emails: make([]modal.ExportedEmail, 0)},
		Audit:  make([]modal.AuditEvent, 0),
	}
	appendAudit := func(kind, message string, data map[string]any) {
		state.Audit = append(state.Audit, modal.AuditEvent{
			At:      workflow.Now(ctx),
			Kind:    kind,
			Message: message,
			Data:    data,
		})
	}

	_ = workflow.SetQueryHandler(ctx, QueryReport, func() (modal.RunReport, error) {
		return state.Report, nil
	})
	_ = workflow.SetQueryHandler(ctx, QueryPendingReviews, func() ([]modal.ReviewTask, error) {
		return state.Report.Reviews, nil
	})
	_ = workflow.SetQueryHandler(ctx, QueryAuditLog, func() ([]modal.AuditEvent, error) {
		return state.Audit, nil
	})
	_ = workflow.SetQueryHandler(ctx, QueryExport, func() (modal.CampaignExport, error) {
		return state.Export, nil
	})

	retry := &temporal.RetryPolicy{
		InitialInterval:    time.Second,
		BackoffCoefficient: 2.0,
		MaximumInterval:    time.Minute,
		MaximumAttempts:    5,
		NonRetryableErrorTypes: []string{
			activities.ErrTypeInvalidInput,
			activities.ErrTypeInvalidState,
			activities.ErrTypeRunNotFound,
		},
	}
	shortCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy:         retry,
	})
	advanceTimeout := in.AdvanceTimeout
	if advanceTimeout <= 0 {
		advanceTimeout = 30 * time.Minute
	}
	advanceCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: advanceTimeout,
		HeartbeatTimeout:    time.Minute,
		RetryPolicy:         retry,
	})

	var runID string
	err := workflow.ExecuteActivity(shortCtx, a.StartRun, activities.StartRunInput{
		RunID:        in.RunID,
		Contacts:     in.Contacts,
		Config:       in.Config,
		RejectedRows: in.RejectedRows,
	}).Get(ctx, &runID)
	if err != nil {
		logger.Error("failed to start run", "error", err)
		return state.Report, err
	}
	appendAudit("RUN_STARTED", "run registered", map[string]any{"runId": runID, "contacts": len(in.Contacts)})

	advance := func() error {
		var rep modal.RunReport
		if err := workflow.ExecuteActivity(advanceCtx, a.AdvanceRun, runID).Get(ctx, &rep); err != nil {
			appendAudit("ERROR", "advance failed", map[string]any{"error": err.Error()})
			return err
		}
		state.Report = rep
		appendAudit("ADVANCED", "pipeline advanced", map[string]any{
			"awaitingReview": rep.Counts[modal.StatusAwaitingReview],
			"failed":         rep.Counts[modal.StatusFailed],
			"fallbackDrafts": rep.FallbackDrafts,
		})
		return nil
	}
	refresh := func() error {
		var rep modal.RunReport
		if err := workflow.ExecuteActivity(shortCtx, a.Report, runID).Get(ctx, &rep); err != nil {
			return err
		}
		state.Report = rep
		return nil
	}
	// export refreshes the sendable emails after a decision changes them.
	export := func() {
		var exp modal.CampaignExport
		if err := workflow.ExecuteActivity(shortCtx, a.ExportRun, runID).Get(ctx, &exp); err != nil {
			logger.Warn("export refresh failed", "error", err)
			return
		}
		state.Export = exp
	}

	if err := advance(); err != nil {
		return state.Report, err
	}

	cancelled := false
	selector := workflow.NewSelector(ctx)
	selector.AddReceive(workflow.GetSignalChannel(ctx, ReviewDecisionSignal), func(c workflow.ReceiveChannel, more bool) {
		var d modal.ReviewDecision
		c.Receive(ctx, &d)
		if err := workflow.ExecuteActivity(shortCtx, a.RecordDecision, runID, d).Get(ctx, nil); err != nil {
			appendAudit("DECISION_REFUSED", "review decision not applied", map[string]any{
				"contactId": d.ContactID,
				"error":     err.Error(),
			})
			return
		}
		appendAudit("DECISION_RECORDED", "review decision applied", map[string]any{
			"contactId": d.ContactID,
			"outcome":   d.Outcome,
			"reviewer":  d.Reviewer,
		})
		if d.Outcome != modal.OutcomeRejected {
			export()
		}
	})
	selector.AddReceive(workflow.GetSignalChannel(ctx, RetrySignal), func(c workflow.ReceiveChannel, more bool) {
		var contactID string
		c.Receive(ctx, &contactID)
		if err := workflow.ExecuteActivity(shortCtx, a.RetryContact, runID, contactID).Get(ctx, nil); err != nil {
			appendAudit("RETRY_REFUSED", "retry not applied", map[string]any{"contactId": contactID, "error": err.Error()})
			return
		}
		appendAudit("RETRY_QUEUED", "failed contact sent back to pending", map[string]any{"contactId": contactID})
		if err := advance(); err != nil {
			logger.Warn("advance after retry failed", "error", err)
		}
	})
	selector.AddReceive(workflow.GetSignalChannel(ctx, ResponseSignal), func(c workflow.ReceiveChannel, more bool) {
		var r ResponseInput
		c.Receive(ctx, &r)
		err := workflow.ExecuteActivity(shortCtx, a.RecordResponse, activities.ResponseInput{
			RunID:     runID,
			ContactID: r.ContactID,
			Response:  r.Response,
		}).Get(ctx, nil)
		if err != nil {
			appendAudit("RESPONSE_REFUSED", "downstream response not recorded", map[string]any{"contactId": r.ContactID, "error": err.Error()})
			return
		}
		appendAudit("RESPONSE_RECORDED", "downstream response recorded", map[string]any{"contactId": r.ContactID, "response": r.Response})
	})
	selector.AddReceive(workflow.GetSignalChannel(ctx, CancelSignal), func(c workflow.ReceiveChannel, more bool) {
		c.Receive(ctx, nil)
		if err := workflow.ExecuteActivity(shortCtx, a.CancelRun, runID).Get(ctx, nil); err != nil {
			appendAudit("ERROR", "cancel failed", map[string]any{"error": err.Error()})
			return
		}
		cancelled = true
		appendAudit("CANCELLED", "run cancelled by operator", nil)
	})

	for !state.Report.Complete && !cancelled {
		selector.Select(ctx)
		if err := refresh(); err != nil {
			logger.Warn("report refresh failed", "error", err)
			continue
		}
		// A failed advance, after a retry for instance, leaves contacts
		// pending until something advances the run again.
		if !cancelled && !state.Report.Cancelled && unfinished(state.Report) {
			if err := advance(); err != nil {
				logger.Warn("advance of unfinished contacts failed", "error", err)
			}
		}
	}

	appendAudit("DONE", "workflow finished", map[string]any{
		"complete":  state.Report.Complete,
		"cancelled": cancelled,
		"decided":   state.Report.Counts[modal.StatusDecided],
		"failed":    state.Report.Counts[modal.StatusFailed],
	})
	logger.Info("workflow finished", "runID", runID, "complete", state.Report.Complete)
	return state.Report, nil
}

// unfinished reports whether any contact still has pipeline work ahead of it.
func unfinished(rep modal.RunReport) bool {
	return rep.Counts[modal.StatusPending]+rep.Counts[modal.StatusEnriching]+rep.Counts[modal.StatusDrafting] > 0
}
