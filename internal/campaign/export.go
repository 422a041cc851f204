package campaign

import (
	"context"
	"time"

	"outreach-service/internal/modal"
)

// Export lists the approved and edited emails of a run in contact order. An
// edit replaces the draft body; rejections and undecided contacts are left
// out. The run may still be in progress.
func (o *Orchestrator) Export(ctx context.Context, runID string) (modal.CampaignExport, error) {
	rs, err := o.state(ctx, runID)
	if err != nil {
		return modal.CampaignExport{}, err
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return buildExport(rs.run, o.now()), nil
}

func buildExport(run *modal.CampaignRun, now time.Time) modal.CampaignExport {
	exp := modal.CampaignExport{
		RunID:      run.RunID,
		Name:       run.Config.Name,
		Goal:       run.Config.Goal,
		Total:      len(run.Contacts),
		Complete:   run.AllTerminal(),
		ExportedAt: now,
		Emails:     make([]modal.ExportedEmail, 0),
	}
	for _, c := range run.Contacts {
		d := run.Drafts[c.ID]
		if d == nil {
			continue
		}
		exp.Drafted++
		dec := run.Decisions[c.ID]
		if dec == nil || run.Statuses[c.ID] != modal.StatusDecided {
			continue
		}
		if dec.Outcome != modal.OutcomeApproved && dec.Outcome != modal.OutcomeEdited {
			continue
		}
		exp.Emails = append(exp.Emails, modal.ExportedEmail{
			ContactID:  c.ID,
			Name:       c.Name,
			Email:      c.Email,
			Company:    c.Company,
			Role:       c.Role,
			Subject:    d.Subject,
			Body:       dec.FinalBody(*d),
			Outcome:    dec.Outcome,
			Style:      d.Style,
			Generator:  d.Generator,
			Fallback:   d.Fallback,
			Reviewer:   dec.Reviewer,
			ReviewedAt: dec.ReviewedAt,
		})
	}
	return exp
}
