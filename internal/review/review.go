// Package review builds review decisions and walks an operator through the
// drafts awaiting review.
package review

import (
	"strings"
	"time"

	"outreach-service/internal/modal"
)

// Approve accepts the draft as written.
func Approve(task modal.ReviewTask, reviewer string) modal.ReviewDecision {
	return decision(task, modal.OutcomeApproved, nil, reviewer)
}

// Edit accepts the draft with a replacement body.
func Edit(task modal.ReviewTask, body, reviewer string) modal.ReviewDecision {
	body = strings.TrimSpace(body)
	return decision(task, modal.OutcomeEdited, &body, reviewer)
}

func Reject(task modal.ReviewTask, reviewer, notes string) modal.ReviewDecision {
	d := decision(task, modal.OutcomeRejected, nil, reviewer)
	d.Notes = notes
	return d
}

// Validate reports whether a decision is well formed.
func Validate(d modal.ReviewDecision) error {
	return d.Validate()
}

func decision(task modal.ReviewTask, outcome modal.Outcome, body *string, reviewer string) modal.ReviewDecision {
	return modal.ReviewDecision{
		ContactID:  task.ContactID,
		DraftRef:   task.Draft.ID,
		Outcome:    outcome,
		EditedBody: body,
		Reviewer:   reviewer,
		ReviewedAt: time.Now().UTC(),
	}
}
