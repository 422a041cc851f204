package campaign

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"outreach-service/internal/learning"
	"outreach-service/internal/logging"
	"outreach-service/internal/modal"
)

// RecordDecision applies a review decision to a contact awaiting review and
// feeds the outcome to the learning store. The decision must reference the
// contact's active draft.
func (o *Orchestrator) RecordDecision(ctx context.Context, runID string, d modal.ReviewDecision) error {
	const op = "record decision"
	if err := d.Validate(); err != nil {
		return modal.NewError(op, modal.ErrInvalidInput, d.ContactID, err)
	}
	rs, err := o.state(ctx, runID)
	if err != nil {
		return err
	}
	ctx = logging.WithContactID(logging.WithRunID(ctx, runID), d.ContactID)
	if d.ReviewedAt.IsZero() {
		d.ReviewedAt = o.now()
	}

	err = o.mutate(ctx, rs, func(run *modal.CampaignRun) error {
		contact, ok := run.Contact(d.ContactID)
		if !ok {
			return modal.NewError(op, modal.ErrInvalidInput, d.ContactID, errors.New("unknown contact"))
		}
		if st := run.Statuses[d.ContactID]; st != modal.StatusAwaitingReview {
			return modal.NewError(op, modal.ErrInvalidState, d.ContactID, fmt.Errorf("status is %s", st))
		}
		draft := run.Drafts[d.ContactID]
		if draft == nil || draft.ID != d.DraftRef {
			return modal.NewError(op, modal.ErrInvalidState, d.ContactID, fmt.Errorf("draft %s is not the active draft", d.DraftRef))
		}

		// The outcome is keyed by (run, contact), so writing it before the
		// snapshot makes a retried decision replace rather than duplicate it.
		features := learning.Features(contact, run.Contexts[d.ContactID], draft.Goal)
		features.Style = draft.Style
		rec := modal.OutcomeRecord{
			RunID:      run.RunID,
			ContactID:  d.ContactID,
			Decision:   d,
			Features:   features,
			RecordedAt: d.ReviewedAt,
		}
		if err := o.deps.Learning.RecordOutcome(ctx, rec); err != nil {
			return modal.NewError(op, modal.ErrPersistence, d.ContactID, err)
		}

		decision := d
		run.Decisions[d.ContactID] = &decision
		run.Statuses[d.ContactID] = modal.StatusDecided
		return nil
	})
	if err != nil {
		return err
	}
	o.deps.Metrics.Transitions.WithLabelValues(string(modal.StatusDecided)).Inc()
	o.deps.Metrics.Decisions.WithLabelValues(string(d.Outcome)).Inc()
	o.log.Info(ctx, "review decision recorded",
		zap.String("outcome", string(d.Outcome)),
		zap.String("reviewer", d.Reviewer),
	)
	return nil
}

// RecordResponse attaches what happened after sending to a decided
// contact's outcome. The latest response wins.
func (o *Orchestrator) RecordResponse(ctx context.Context, runID, contactID string, resp modal.Response) error {
	const op = "record response"
	if !resp.Valid() {
		return modal.NewError(op, modal.ErrInvalidInput, contactID, fmt.Errorf("unknown response %q", resp))
	}
	rs, err := o.state(ctx, runID)
	if err != nil {
		return err
	}
	ctx = logging.WithContactID(logging.WithRunID(ctx, runID), contactID)

	rs.mu.Lock()
	defer rs.mu.Unlock()
	run := rs.run
	contact, ok := run.Contact(contactID)
	if !ok {
		return modal.NewError(op, modal.ErrInvalidInput, contactID, errors.New("unknown contact"))
	}
	if st := run.Statuses[contactID]; st != modal.StatusDecided {
		return modal.NewError(op, modal.ErrInvalidState, contactID, fmt.Errorf("status is %s", st))
	}

	rec, ok := o.deps.Learning.Outcome(runID, contactID)
	if !ok {
		decision := run.Decisions[contactID]
		draft := run.Drafts[contactID]
		if decision == nil || draft == nil {
			return modal.NewError(op, modal.ErrInvalidState, contactID, errors.New("no decision on record"))
		}
		features := learning.Features(contact, run.Contexts[contactID], draft.Goal)
		features.Style = draft.Style
		rec = modal.OutcomeRecord{RunID: runID, ContactID: contactID, Decision: *decision, Features: features}
	}
	rec.DownstreamResponse = &resp
	rec.RecordedAt = o.now()
	if err := o.deps.Learning.RecordOutcome(ctx, rec); err != nil {
		return modal.NewError(op, modal.ErrPersistence, contactID, err)
	}
	o.log.Info(ctx, "downstream response recorded", zap.String("response", string(resp)))
	return nil
}
