// Package activities exposes the campaign orchestrator to Temporal.
package activities

import (
	"context"
	"errors"
	"time"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"outreach-service/internal/campaign"
	"outreach-service/internal/modal"
)

// StartRunInput is the payload of the StartRun activity.
type StartRunInput struct {
	RunID        string               `json:"runId"`
	Contacts     []modal.Contact      `json:"contacts"`
	Config       modal.CampaignConfig `json:"config"`
	RejectedRows int                  `json:"rejectedRows,omitempty"`
}

type ResponseInput struct {
	RunID     string         `json:"runId"`
	ContactID string         `json:"contactId"`
	Response  modal.Response `json:"response"`
}

type Activities struct {
	Orchestrator *campaign.Orchestrator
	// HeartbeatEvery is how often AdvanceRun heartbeats; zero means 10s.
	HeartbeatEvery time.Duration
}

// StartRun registers the run. A retried attempt that finds its own run
// already started succeeds.
func (a *Activities) StartRun(ctx context.Context, in StartRunInput) (string, error) {
	id, err := a.Orchestrator.StartRun(ctx, in.Contacts, in.Config, campaign.StartOptions{
		RunID:        in.RunID,
		RejectedRows: in.RejectedRows,
	})
	if errors.Is(err, modal.ErrDuplicateRun) && in.RunID != "" {
		activity.GetLogger(ctx).Info("run already started", "runID", in.RunID)
		return in.RunID, nil
	}
	if err != nil {
		return "", classify(err)
	}
	return id, nil
}

// AdvanceRun heartbeats while the orchestrator works so a lost worker is
// noticed before the start-to-close timeout.
func (a *Activities) AdvanceRun(ctx context.Context, runID string) (modal.RunReport, error) {
	every := a.HeartbeatEvery
	if every <= 0 {
		every = 10 * time.Second
	}
	done := make(chan struct{})
	defer close(done)
	go func() {
		t := time.NewTicker(every)
		defer t.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-t.C:
				activity.RecordHeartbeat(ctx)
			}
		}
	}()

	rep, err := a.Orchestrator.Advance(ctx, runID)
	if err != nil {
		return rep, classify(err)
	}
	return rep, nil
}

func (a *Activities) RecordDecision(ctx context.Context, runID string, d modal.ReviewDecision) error {
	return classify(a.Orchestrator.RecordDecision(ctx, runID, d))
}

func (a *Activities) RecordResponse(ctx context.Context, in ResponseInput) error {
	return classify(a.Orchestrator.RecordResponse(ctx, in.RunID, in.ContactID, in.Response))
}

func (a *Activities) RetryContact(ctx context.Context, runID, contactID string) error {
	return classify(a.Orchestrator.Retry(ctx, runID, contactID))
}

func (a *Activities) CancelRun(ctx context.Context, runID string) error {
	return classify(a.Orchestrator.Cancel(ctx, runID))
}

func (a *Activities) Report(ctx context.Context, runID string) (modal.RunReport, error) {
	rep, err := a.Orchestrator.Report(ctx, runID)
	if err != nil {
		return rep, classify(err)
	}
	return rep, nil
}

// ExportRun lists the run's approved and edited emails.
func (a *Activities) ExportRun(ctx context.Context, runID string) (modal.CampaignExport, error) {
	exp, err := a.Orchestrator.Export(ctx, runID)
	if err != nil {
		return exp, classify(err)
	}
	return exp, nil
}

// Error types reported to the workflow for caller mistakes. These are never
// retried.
const (
	ErrTypeInvalidInput = "InvalidInput"
	ErrTypeInvalidState = "InvalidState"
	ErrTypeRunNotFound  = "RunNotFound"
)

// classify marks caller mistakes non-retryable. Persistence and collaborator
// errors stay retryable under the activity's retry policy.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, modal.ErrInvalidInput):
		return temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeInvalidInput, err)
	case errors.Is(err, modal.ErrInvalidState):
		return temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeInvalidState, err)
	case errors.Is(err, modal.ErrRunNotFound):
		return temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeRunNotFound, err)
	default:
		return err
	}
}
