package modal

import (
	"fmt"
	"strings"
	"time"
)

// ReviewTask is what a review surface renders for one contact awaiting a decision.
type ReviewTask struct {
	ContactID string `json:"contactId"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Company   string `json:"company"`
	Draft     Draft  `json:"draft"`
}

type ReviewDecision struct {
	ContactID  string    `json:"contactId"`
	DraftRef   string    `json:"draftRef"`
	Outcome    Outcome   `json:"outcome"`
	EditedBody *string   `json:"editedBody,omitempty"`
	Reviewer   string    `json:"reviewer,omitempty"`
	Notes      string    `json:"notes,omitempty"`
	ReviewedAt time.Time `json:"reviewedAt"`
}

// Validate checks that the edited body matches the outcome: only an edit
// carries one, and it must not be blank.
func (d ReviewDecision) Validate() error {
	if d.ContactID == "" || d.DraftRef == "" {
		return fmt.Errorf("decision needs contact and draft reference: %w", ErrInvalidInput)
	}
	switch d.Outcome {
	case OutcomeApproved, OutcomeRejected:
		if d.EditedBody != nil {
			return fmt.Errorf("%s decision must not carry an edited body: %w", d.Outcome, ErrInvalidInput)
		}
	case OutcomeEdited:
		if d.EditedBody == nil || strings.TrimSpace(*d.EditedBody) == "" {
			return fmt.Errorf("edited decision needs a non-empty body: %w", ErrInvalidInput)
		}
	default:
		return fmt.Errorf("unknown outcome %q: %w", d.Outcome, ErrInvalidInput)
	}
	return nil
}

// FinalBody is the body that would be sent: the edit when there is one, the
// draft otherwise, nothing for a rejection.
func (d ReviewDecision) FinalBody(draft Draft) string {
	switch d.Outcome {
	case OutcomeEdited:
		if d.EditedBody != nil {
			return *d.EditedBody
		}
	case OutcomeApproved:
		return draft.Body
	}
	return ""
}

type AuditEvent struct {
	At      time.Time      `json:"at"`
	Kind    string         `json:"kind"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
}
