package modal

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestReviewDecisionValidate(t *testing.T) {
	base := ReviewDecision{ContactID: "c1", DraftRef: "d1"}

	tests := []struct {
		name    string
		mutate  func(d *ReviewDecision)
		wantErr bool
	}{
		{"approved", func(d *ReviewDecision) { d.Outcome = OutcomeApproved }, false},
		{"rejected", func(d *ReviewDecision) { d.Outcome = OutcomeRejected }, false},
		{"edited with body", func(d *ReviewDecision) { d.Outcome = OutcomeEdited; d.EditedBody = strPtr("new body") }, false},
		{"edited without body", func(d *ReviewDecision) { d.Outcome = OutcomeEdited }, true},
		{"edited with blank body", func(d *ReviewDecision) { d.Outcome = OutcomeEdited; d.EditedBody = strPtr("  \n") }, true},
		{"approved with body", func(d *ReviewDecision) { d.Outcome = OutcomeApproved; d.EditedBody = strPtr("x") }, true},
		{"unknown outcome", func(d *ReviewDecision) { d.Outcome = "maybe" }, true},
		{"missing draft ref", func(d *ReviewDecision) { d.Outcome = OutcomeApproved; d.DraftRef = "" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := base
			tt.mutate(&d)
			err := d.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidInput)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestFinalBody(t *testing.T) {
	draft := Draft{Body: "original"}
	assert.Equal(t, "original", ReviewDecision{Outcome: OutcomeApproved}.FinalBody(draft))
	assert.Equal(t, "edited", ReviewDecision{Outcome: OutcomeEdited, EditedBody: strPtr("edited")}.FinalBody(draft))
	assert.Empty(t, ReviewDecision{Outcome: OutcomeRejected}.FinalBody(draft))
}

func TestWarmthFor(t *testing.T) {
	assert.Equal(t, WarmthCold, WarmthFor(0))
	assert.Equal(t, WarmthWarm, WarmthFor(1))
	assert.Equal(t, WarmthWarm, WarmthFor(2))
	assert.Equal(t, WarmthExisting, WarmthFor(3))
	assert.Equal(t, WarmthExisting, WarmthFor(40))
}

func TestOutcomeSucceeded(t *testing.T) {
	replied, none := ResponseReplied, ResponseNone
	assert.True(t, OutcomeRecord{Decision: ReviewDecision{Outcome: OutcomeApproved}}.Succeeded())
	assert.False(t, OutcomeRecord{Decision: ReviewDecision{Outcome: OutcomeEdited}}.Succeeded())
	assert.True(t, OutcomeRecord{Decision: ReviewDecision{Outcome: OutcomeEdited}, DownstreamResponse: &replied}.Succeeded())
	assert.False(t, OutcomeRecord{Decision: ReviewDecision{Outcome: OutcomeRejected}, DownstreamResponse: &none}.Succeeded())
}

func TestContactIdentity(t *testing.T) {
	a := NewContact(" Ada Lovelace ", " Ada@Analytical.IO ", "Analytical", "CTO", nil)
	b := NewContact("Ada", "ada@analytical.io", "", "", nil)

	assert.Equal(t, "ada@analytical.io", a.Email)
	assert.Equal(t, a.ID, b.ID)
	assert.NotEqual(t, a.ID, ContactID("grace@navy.mil"))
	assert.Equal(t, "Ada", a.FirstName())
	assert.Equal(t, "", Contact{}.FirstName())

	assert.True(t, ValidEmail("ada@analytical.io"))
	assert.False(t, ValidEmail("ada@localhost"))
	assert.False(t, ValidEmail("not-an-email"))
}

func TestCampaignRunClone(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	run := NewCampaignRun("r1", CampaignConfig{Goal: GoalDemo}, []Contact{
		NewContact("Ada", "ada@analytical.io", "", "", nil),
	}, now)
	id := run.Contacts[0].ID
	run.Notes[id] = []ErrorNote{{Stage: "history", Message: "quota"}}

	cp := run.Clone()
	cp.Statuses[id] = StatusFailed
	cp.Notes[id] = append(cp.Notes[id], ErrorNote{Stage: "draft"})
	cp.Notes[id][0].Message = "changed"
	done := now.Add(time.Hour)
	cp.CompletedAt = &done

	assert.Equal(t, StatusPending, run.Statuses[id])
	require.Len(t, run.Notes[id], 1)
	assert.Equal(t, "quota", run.Notes[id][0].Message)
	assert.Nil(t, run.CompletedAt)
	assert.False(t, run.AllTerminal())
	assert.True(t, cp.AllTerminal())
}

func TestErrorMatchesKind(t *testing.T) {
	cause := errors.New("dial tcp: timeout")
	err := NewError("enrich", ErrCollaboratorUnavailable, "c1", cause)

	assert.ErrorIs(t, err, ErrCollaboratorUnavailable)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrInvalidInput)
	assert.Equal(t, "enrich: collaborator unavailable (contact c1): dial tcp: timeout", err.Error())
}

func TestStatusPredicates(t *testing.T) {
	for _, s := range Statuses {
		assert.False(t, s.Terminal() && s.Schedulable(), s)
	}
	assert.True(t, StatusDecided.Terminal())
	assert.True(t, StatusDrafting.Schedulable())
	assert.False(t, StatusAwaitingReview.Schedulable())
	assert.False(t, StatusAwaitingReview.Terminal())
}
