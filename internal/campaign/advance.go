package campaign

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"outreach-service/internal/learning"
	"outreach-service/internal/logging"
	"outreach-service/internal/modal"
)

// Advance runs the next stage for every schedulable contact, in input order,
// on a bounded worker pool. Contact-level failures are recorded on the
// contact and never returned. Once ctx is done or the run is cancelled no new
// contact is scheduled; contacts already in flight finish.
func (o *Orchestrator) Advance(ctx context.Context, runID string) (modal.RunReport, error) {
	rs, err := o.state(ctx, runID)
	if err != nil {
		return modal.RunReport{}, err
	}
	rs.advanceMu.Lock()
	defer rs.advanceMu.Unlock()

	ctx = logging.WithRunID(ctx, runID)
	rs.mu.Lock()
	var ids []string
	for _, c := range rs.run.Contacts {
		if rs.run.Statuses[c.ID].Schedulable() {
			ids = append(ids, c.ID)
		}
	}
	cancelled := rs.run.Cancelled
	rs.mu.Unlock()

	if cancelled {
		o.log.Info(ctx, "advance skipped, run cancelled")
		return o.report(rs), nil
	}

	// In-flight work outlives ctx; each collaborator call has its own timeout.
	work := context.WithoutCancel(ctx)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.settings.Concurrency)

	scheduled := 0
	for _, id := range ids {
		if gctx.Err() != nil || rs.cancelled() {
			break
		}
		g.Go(func() error {
			return o.process(logging.WithContactID(work, id), rs, id)
		})
		scheduled++
	}
	err = g.Wait()

	rep := o.report(rs)
	o.log.Info(ctx, "advance finished",
		zap.Int("scheduled", scheduled),
		zap.Int("awaiting_review", rep.Counts[modal.StatusAwaitingReview]),
		zap.Int("failed", rep.Counts[modal.StatusFailed]),
	)
	if err != nil {
		return rep, err
	}
	if ctxErr := ctx.Err(); ctxErr != nil && scheduled < len(ids) {
		return rep, fmt.Errorf("advance %s: %w", runID, ctxErr)
	}
	return rep, nil
}

func (rs *runState) cancelled() bool {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.run.Cancelled
}

func (o *Orchestrator) report(rs *runState) modal.RunReport {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return buildReport(rs.run)
}

// process moves one contact as far as it can go: enrich (unless a context is
// already stored), then draft. Only persistence errors are returned.
func (o *Orchestrator) process(ctx context.Context, rs *runState, id string) error {
	rs.mu.Lock()
	contact, _ := rs.run.Contact(id)
	status := rs.run.Statuses[id]
	ec := rs.run.Contexts[id]
	cfg := rs.run.Config
	rs.mu.Unlock()

	if status != modal.StatusDrafting || ec == nil {
		if err := o.setStatus(ctx, rs, id, modal.StatusEnriching, func(run *modal.CampaignRun) {
			run.Attempts[id]++
		}); err != nil {
			return err
		}

		start := time.Now()
		var err error
		ec, err = o.enrich(ctx, contact)
		o.deps.Metrics.StageDuration.WithLabelValues("enrich").Observe(time.Since(start).Seconds())
		if err != nil {
			return o.fail(ctx, rs, id, "enrich", err)
		}
		if err := o.setStatus(ctx, rs, id, modal.StatusDrafting, func(run *modal.CampaignRun) {
			run.Contexts[id] = ec
			run.Notes[id] = append(run.Notes[id], ec.SourceErrors...)
		}); err != nil {
			return err
		}
	}

	start := time.Now()
	draft, genErr, err := o.draft(ctx, cfg, contact, ec)
	o.deps.Metrics.StageDuration.WithLabelValues("draft").Observe(time.Since(start).Seconds())
	if err != nil {
		return o.fail(ctx, rs, id, "draft", err)
	}
	if err := o.setStatus(ctx, rs, id, modal.StatusAwaitingReview, func(run *modal.CampaignRun) {
		run.Drafts[id] = draft
		if genErr != nil {
			run.Notes[id] = append(run.Notes[id], modal.ErrorNote{
				Stage:   "generation",
				Message: "template draft used: " + genErr.Error(),
				At:      o.now(),
			})
		}
	}); err != nil {
		return err
	}
	o.log.Info(ctx, "draft ready for review",
		zap.String("style", string(draft.Style)),
		zap.String("generator", string(draft.Generator)),
		zap.Float64("confidence", draft.Confidence),
	)
	return nil
}

func (o *Orchestrator) setStatus(ctx context.Context, rs *runState, id string, to modal.Status, apply func(run *modal.CampaignRun)) error {
	err := o.mutate(ctx, rs, func(run *modal.CampaignRun) error {
		run.Statuses[id] = to
		if apply != nil {
			apply(run)
		}
		return nil
	})
	if err != nil {
		return err
	}
	o.deps.Metrics.Transitions.WithLabelValues(string(to)).Inc()
	return nil
}

func (o *Orchestrator) fail(ctx context.Context, rs *runState, id, stage string, cause error) error {
	o.log.Warn(ctx, "contact failed", zap.String("stage", stage), zap.Error(cause))
	return o.setStatus(ctx, rs, id, modal.StatusFailed, func(run *modal.CampaignRun) {
		run.Notes[id] = append(run.Notes[id], modal.ErrorNote{
			Stage:   stage,
			Message: cause.Error(),
			At:      o.now(),
		})
	})
}

// enrich runs both lookups concurrently. A lookup that reports
// modal.ErrUnavailable leaves its field nil and adds a note; any other error
// fails the contact.
func (o *Orchestrator) enrich(ctx context.Context, c modal.Contact) (*modal.EnrichmentContext, error) {
	var (
		history      *modal.HistorySummary
		research     *modal.ResearchSummary
		historyNote  *modal.ErrorNote
		researchNote *modal.ErrorNote
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if o.deps.History == nil {
			historyNote = o.note("history", "history lookup not configured")
			return nil
		}
		lctx, cancel := context.WithTimeout(gctx, o.settings.LookupTimeout)
		defer cancel()
		h, err := o.deps.History.Lookup(lctx, c.Email)
		switch {
		case err == nil && h != nil:
			history = h
		case err == nil || errors.Is(err, modal.ErrUnavailable):
			historyNote = o.unavailable(ctx, "history", err)
		default:
			o.deps.Metrics.LookupFailures.WithLabelValues("history", "error").Inc()
			return modal.NewError("history lookup", modal.ErrCollaboratorUnavailable, c.ID, err)
		}
		return nil
	})
	g.Go(func() error {
		if o.deps.Research == nil {
			researchNote = o.note("research", "research lookup not configured")
			return nil
		}
		lctx, cancel := context.WithTimeout(gctx, o.settings.LookupTimeout)
		defer cancel()
		r, err := o.deps.Research.Lookup(lctx, c.Name, c.Company)
		switch {
		case err == nil && r != nil:
			research = r
		case err == nil || errors.Is(err, modal.ErrUnavailable):
			researchNote = o.unavailable(ctx, "research", err)
		default:
			o.deps.Metrics.LookupFailures.WithLabelValues("research", "error").Inc()
			return modal.NewError("research lookup", modal.ErrCollaboratorUnavailable, c.ID, err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	ec := &modal.EnrichmentContext{
		ContactID: c.ID,
		History:   history,
		Research:  research,
		FetchedAt: o.now(),
	}
	for _, n := range []*modal.ErrorNote{historyNote, researchNote} {
		if n != nil {
			ec.SourceErrors = append(ec.SourceErrors, *n)
		}
	}
	return ec, nil
}

func (o *Orchestrator) note(stage, msg string) *modal.ErrorNote {
	return &modal.ErrorNote{Stage: stage, Message: msg, At: o.now()}
}

func (o *Orchestrator) unavailable(ctx context.Context, source string, err error) *modal.ErrorNote {
	msg := "nothing found"
	if err != nil {
		msg = err.Error()
	}
	o.deps.Metrics.LookupFailures.WithLabelValues(source, "unavailable").Inc()
	o.log.Debug(ctx, "lookup unavailable", zap.String("source", source), zap.String("reason", msg))
	return o.note(source, msg)
}

// draft picks a style and asks the generator, falling back to the template
// generator once if allowed. genErr is the primary generator's error when the
// fallback was used.
func (o *Orchestrator) draft(ctx context.Context, cfg modal.CampaignConfig, c modal.Contact, ec *modal.EnrichmentContext) (d *modal.Draft, genErr, err error) {
	style := cfg.Style
	if style == "" {
		style, _ = o.deps.Learning.Recommend(learning.Features(c, ec, cfg.Goal))
	}
	req := modal.DraftRequest{Contact: c, Context: ec, Style: style, Campaign: cfg}

	gctx, cancel := context.WithTimeout(ctx, o.settings.GenerationTimeout)
	d, genErr = o.deps.Generator.Generate(gctx, req)
	cancel()
	if genErr == nil && d == nil {
		genErr = fmt.Errorf("%w: no draft returned", modal.ErrGeneration)
	}
	if genErr == nil {
		return d, nil, nil
	}
	if !o.settings.FallbackOnGenerationError || o.deps.Fallback == nil {
		return nil, nil, modal.NewError("generate", modal.ErrGeneration, c.ID, genErr)
	}

	o.log.Warn(ctx, "generator failed, using template", zap.Error(genErr))
	fctx, cancel := context.WithTimeout(ctx, o.settings.GenerationTimeout)
	d, err = o.deps.Fallback.Generate(fctx, req)
	cancel()
	if err == nil && d == nil {
		err = errors.New("no draft returned")
	}
	if err != nil {
		return nil, nil, modal.NewError("generate", modal.ErrGeneration, c.ID, errors.Join(genErr, err))
	}
	d.Fallback = true
	o.deps.Metrics.FallbackDrafts.Inc()
	return d, genErr, nil
}
