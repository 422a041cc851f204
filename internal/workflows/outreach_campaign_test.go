package workflows

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"

	"outreach-service/internal/activities"
	"outreach-service/internal/campaign"
	"outreach-service/internal/generate"
	"outreach-service/internal/learning"
	"outreach-service/internal/modal"
	"outreach-service/internal/snapshot"
)

// brokenHistory fails every lookup for one address.
type brokenHistory struct {
	email string
	fixed bool
}

func (h *brokenHistory) Lookup(_ context.Context, email string) (*modal.HistorySummary, error) {
	if email == h.email && !h.fixed {
		return nil, errors.New("mailbox offline")
	}
	return &modal.HistorySummary{Email: email, Warmth: modal.WarmthCold}, nil
}

type CampaignWorkflowSuite struct {
	suite.Suite
	testsuite.WorkflowTestSuite

	env      *testsuite.TestWorkflowEnvironment
	acts     *activities.Activities
	history  *brokenHistory
	learning *learning.Store
}

func (s *CampaignWorkflowSuite) SetupTest() {
	s.env = s.NewTestWorkflowEnvironment()
	s.history = &brokenHistory{}
	s.learning = learning.NewStore(learning.DefaultSettings(), nil, nil)

	store, err := snapshot.NewFileStore(s.T().TempDir())
	s.Require().NoError(err)
	orch, err := campaign.New(campaign.Deps{
		History:   s.history,
		Generator: generate.NewTemplateGenerator(),
		Learning:  s.learning,
		Snapshots: store,
	}, campaign.DefaultSettings())
	s.Require().NoError(err)

	s.acts = &activities.Activities{Orchestrator: orch}
	s.env.RegisterWorkflow(OutreachCampaign)
	s.env.RegisterActivity(s.acts)
}

func (s *CampaignWorkflowSuite) AfterTest(_, _ string) {
	s.env.AssertExpectations(s.T())
}

func input() CampaignInput {
	return CampaignInput{
		RunID: "wf-run",
		Contacts: []modal.Contact{
			modal.NewContact("Ada Lovelace", "ada@analytical.io", "Analytical", "CTO", nil),
			modal.NewContact("Alan Turing", "alan@bletchley.uk", "Bletchley", "Researcher", nil),
		},
		Config: modal.CampaignConfig{Goal: modal.GoalDemo},
	}
}

func (s *CampaignWorkflowSuite) pendingReviews() []modal.ReviewTask {
	val, err := s.env.QueryWorkflow(QueryPendingReviews)
	s.Require().NoError(err)
	var tasks []modal.ReviewTask
	s.Require().NoError(val.Get(&tasks))
	return tasks
}

func (s *CampaignWorkflowSuite) decide(task modal.ReviewTask, outcome modal.Outcome) {
	s.env.SignalWorkflow(ReviewDecisionSignal, modal.ReviewDecision{
		ContactID: task.ContactID,
		DraftRef:  task.Draft.ID,
		Outcome:   outcome,
		Reviewer:  "tester",
	})
}

func (s *CampaignWorkflowSuite) Test_ReviewDecisionsCompleteRun() {
	s.env.RegisterDelayedCallback(func() {
		tasks := s.pendingReviews()
		s.Require().Len(tasks, 2)
		s.decide(tasks[0], modal.OutcomeApproved)
		s.decide(tasks[1], modal.OutcomeRejected)
	}, time.Minute)

	s.env.ExecuteWorkflow(OutreachCampaign, input())

	s.True(s.env.IsWorkflowCompleted())
	s.NoError(s.env.GetWorkflowError())

	var rep modal.RunReport
	s.NoError(s.env.GetWorkflowResult(&rep))
	s.True(rep.Complete)
	s.Equal(2, rep.Counts[modal.StatusDecided])
	s.Len(s.learning.Outcomes(), 2)

	val, err := s.env.QueryWorkflow(QueryAuditLog)
	s.NoError(err)
	var audit []modal.AuditEvent
	s.NoError(val.Get(&audit))
	kinds := make([]string, 0, len(audit))
	for _, e := range audit {
		kinds = append(kinds, e.Kind)
	}
	s.Contains(kinds, "RUN_STARTED")
	s.Contains(kinds, "DECISION_RECORDED")
	s.Equal("DONE", kinds[len(kinds)-1])
}

func (s *CampaignWorkflowSuite) Test_StaleDecisionIsRefused() {
	s.env.RegisterDelayedCallback(func() {
		tasks := s.pendingReviews()
		stale := tasks[0]
		stale.Draft.ID = "not-the-draft"
		s.decide(stale, modal.OutcomeApproved)
	}, time.Minute)
	s.env.RegisterDelayedCallback(func() {
		for _, t := range s.pendingReviews() {
			s.decide(t, modal.OutcomeApproved)
		}
	}, 2*time.Minute)

	s.env.ExecuteWorkflow(OutreachCampaign, input())

	s.True(s.env.IsWorkflowCompleted())
	s.NoError(s.env.GetWorkflowError())
	val, err := s.env.QueryWorkflow(QueryAuditLog)
	s.NoError(err)
	var audit []modal.AuditEvent
	s.NoError(val.Get(&audit))
	refused := 0
	for _, e := range audit {
		if e.Kind == "DECISION_REFUSED" {
			refused++
		}
	}
	s.Equal(1, refused)
}

func (s *CampaignWorkflowSuite) Test_RetryFailedContact() {
	in := input()
	s.history.email = in.Contacts[1].Email

	s.env.RegisterDelayedCallback(func() {
		val, err := s.env.QueryWorkflow(QueryReport)
		s.Require().NoError(err)
		var rep modal.RunReport
		s.Require().NoError(val.Get(&rep))
		s.Require().Equal(1, rep.Counts[modal.StatusFailed])

		s.history.fixed = true
		s.env.SignalWorkflow(RetrySignal, in.Contacts[1].ID)
	}, time.Minute)
	s.env.RegisterDelayedCallback(func() {
		tasks := s.pendingReviews()
		s.Require().Len(tasks, 2)
		for _, t := range tasks {
			s.decide(t, modal.OutcomeApproved)
		}
	}, 2*time.Minute)

	s.env.ExecuteWorkflow(OutreachCampaign, in)

	s.True(s.env.IsWorkflowCompleted())
	var rep modal.RunReport
	s.NoError(s.env.GetWorkflowResult(&rep))
	s.Equal(2, rep.Counts[modal.StatusDecided])
}

func (s *CampaignWorkflowSuite) Test_PendingContactAdvancedAfterFailedAdvance() {
	in := input()
	s.history.email = in.Contacts[1].Email

	calls := 0
	s.env.OnActivity(s.acts.AdvanceRun, mock.Anything, mock.Anything).Return(
		func(ctx context.Context, runID string) (modal.RunReport, error) {
			calls++
			if calls == 2 {
				return modal.RunReport{}, temporal.NewNonRetryableApplicationError("worker lost", "WorkerLost", nil)
			}
			return s.acts.Orchestrator.Advance(ctx, runID)
		})

	s.env.RegisterDelayedCallback(func() {
		s.history.fixed = true
		s.env.SignalWorkflow(RetrySignal, in.Contacts[1].ID)
	}, time.Minute)
	s.env.RegisterDelayedCallback(func() {
		tasks := s.pendingReviews()
		s.Require().Len(tasks, 2)
		for _, t := range tasks {
			s.decide(t, modal.OutcomeApproved)
		}
	}, 2*time.Minute)

	s.env.ExecuteWorkflow(OutreachCampaign, in)

	s.True(s.env.IsWorkflowCompleted())
	s.NoError(s.env.GetWorkflowError())
	s.Equal(3, calls)
	var rep modal.RunReport
	s.NoError(s.env.GetWorkflowResult(&rep))
	s.Equal(2, rep.Counts[modal.StatusDecided])
}

func (s *CampaignWorkflowSuite) Test_ExportQueryFollowsDecisions() {
	var edited string
	s.env.RegisterDelayedCallback(func() {
		tasks := s.pendingReviews()
		s.Require().Len(tasks, 2)
		edited = "Short and to the point."
		s.env.SignalWorkflow(ReviewDecisionSignal, modal.ReviewDecision{
			ContactID:  tasks[0].ContactID,
			DraftRef:   tasks[0].Draft.ID,
			Outcome:    modal.OutcomeEdited,
			EditedBody: &edited,
			Reviewer:   "tester",
		})
	}, time.Minute)
	s.env.RegisterDelayedCallback(func() {
		val, err := s.env.QueryWorkflow(QueryExport)
		s.Require().NoError(err)
		var exp modal.CampaignExport
		s.Require().NoError(val.Get(&exp))
		s.Require().Len(exp.Emails, 1)
		s.Equal(edited, exp.Emails[0].Body)
		s.Equal(modal.OutcomeEdited, exp.Emails[0].Outcome)

		tasks := s.pendingReviews()
		s.Require().Len(tasks, 1)
		s.decide(tasks[0], modal.OutcomeRejected)
	}, 2*time.Minute)

	s.env.ExecuteWorkflow(OutreachCampaign, input())

	s.True(s.env.IsWorkflowCompleted())
	val, err := s.env.QueryWorkflow(QueryExport)
	s.NoError(err)
	var exp modal.CampaignExport
	s.NoError(val.Get(&exp))
	s.Len(exp.Emails, 1)
	s.Equal("wf-run", exp.RunID)
}

func (s *CampaignWorkflowSuite) Test_CancelEndsWorkflow() {
	s.env.RegisterDelayedCallback(func() {
		s.env.SignalWorkflow(CancelSignal, nil)
	}, time.Minute)

	s.env.ExecuteWorkflow(OutreachCampaign, input())

	s.True(s.env.IsWorkflowCompleted())
	var rep modal.RunReport
	s.NoError(s.env.GetWorkflowResult(&rep))
	s.True(rep.Cancelled)
	s.False(rep.Complete)
}

func TestCampaignWorkflowSuite(t *testing.T) {
	suite.Run(t, new(CampaignWorkflowSuite))
}

func TestStartFailureFailsWorkflow(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()
	var acts *activities.Activities
	env.RegisterWorkflow(OutreachCampaign)
	env.RegisterActivity(acts)
	env.OnActivity(acts.StartRun, mock.Anything, mock.Anything).
		Return("", errors.New("snapshot store down"))

	env.ExecuteWorkflow(OutreachCampaign, input())

	require.True(t, env.IsWorkflowCompleted())
	require.Error(t, env.GetWorkflowError())
}
