// Package campaign drives a batch of contacts from import to review.
//
// An Orchestrator owns every CampaignRun it has started or resumed. All
// mutations of a run go through one per-run lock and are persisted to the
// snapshot store before they become visible, so a crash never loses a
// transition that a caller observed.
package campaign

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"outreach-service/internal/learning"
	"outreach-service/internal/logging"
	"outreach-service/internal/modal"
	"outreach-service/internal/snapshot"
)

// HistoryLookup summarizes past correspondence with a contact. It returns
// modal.ErrUnavailable when it has nothing to offer.
type HistoryLookup interface {
	Lookup(ctx context.Context, email string) (*modal.HistorySummary, error)
}

// ResearchLookup profiles a contact's company. It returns
// modal.ErrUnavailable when it has nothing to offer.
type ResearchLookup interface {
	Lookup(ctx context.Context, name, company string) (*modal.ResearchSummary, error)
}

type Generator interface {
	Generate(ctx context.Context, req modal.DraftRequest) (*modal.Draft, error)
}

// Learning is the part of the learning store the orchestrator uses.
type Learning interface {
	Recommend(f modal.FeatureSnapshot) (modal.Style, learning.ScoreVector)
	RecordOutcome(ctx context.Context, rec modal.OutcomeRecord) error
	Outcome(runID, contactID string) (modal.OutcomeRecord, bool)
}

// Deps are the collaborators of an Orchestrator. History, Research and
// Fallback may be nil.
type Deps struct {
	History   HistoryLookup
	Research  ResearchLookup
	Generator Generator
	Fallback  Generator
	Learning  Learning
	Snapshots snapshot.Store
	Logger    *logging.Logger
	Metrics   *Metrics
	Clock     func() time.Time
}

// Settings centralizes the orchestrator's thresholds.
type Settings struct {
	Concurrency               int
	LookupTimeout             time.Duration
	GenerationTimeout         time.Duration
	FallbackOnGenerationError bool
}

func DefaultSettings() Settings {
	return Settings{
		Concurrency:               4,
		LookupTimeout:             20 * time.Second,
		GenerationTimeout:         60 * time.Second,
		FallbackOnGenerationError: true,
	}
}

// StartOptions are optional inputs to StartRun.
type StartOptions struct {
	// RunID is generated when empty.
	RunID string
	// RejectedRows is carried into the report for rows dropped at import.
	RejectedRows int
}

type Orchestrator struct {
	deps     Deps
	settings Settings
	log      *logging.Logger

	mu   sync.Mutex
	runs map[string]*runState
}

type runState struct {
	// advanceMu keeps two Advance calls from scheduling the same contact.
	advanceMu sync.Mutex
	// mu is the single writer lock for run and its snapshot.
	mu  sync.Mutex
	run *modal.CampaignRun
}

func New(deps Deps, settings Settings) (*Orchestrator, error) {
	if deps.Generator == nil {
		return nil, errors.New("campaign: generator is required")
	}
	if deps.Learning == nil {
		return nil, errors.New("campaign: learning store is required")
	}
	if deps.Snapshots == nil {
		return nil, errors.New("campaign: snapshot store is required")
	}
	if deps.Logger == nil {
		deps.Logger = logging.NewNop()
	}
	if deps.Metrics == nil {
		deps.Metrics = NewMetrics()
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	def := DefaultSettings()
	if settings.Concurrency <= 0 {
		settings.Concurrency = def.Concurrency
	}
	if settings.LookupTimeout <= 0 {
		settings.LookupTimeout = def.LookupTimeout
	}
	if settings.GenerationTimeout <= 0 {
		settings.GenerationTimeout = def.GenerationTimeout
	}
	return &Orchestrator{
		deps:     deps,
		settings: settings,
		log:      deps.Logger.Named("campaign"),
		runs:     make(map[string]*runState),
	}, nil
}

func (o *Orchestrator) now() time.Time {
	return o.deps.Clock().UTC()
}

// StartRun validates the batch, persists the initial snapshot and registers
// the run. Nothing is registered if the snapshot cannot be written.
func (o *Orchestrator) StartRun(ctx context.Context, contacts []modal.Contact, cfg modal.CampaignConfig, opts StartOptions) (string, error) {
	const op = "start run"
	contacts = slices.Clone(contacts)
	if err := validateBatch(contacts); err != nil {
		return "", modal.NewError(op, modal.ErrInvalidInput, "", err)
	}
	cfg, err := NormalizeConfig(cfg)
	if err != nil {
		return "", modal.NewError(op, modal.ErrInvalidInput, "", err)
	}

	runID := opts.RunID
	if runID == "" {
		runID = uuid.NewString()
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if _, ok := o.runs[runID]; ok {
		return "", modal.NewError(op, modal.ErrDuplicateRun, "", fmt.Errorf("run %s", runID))
	}
	switch _, err := o.deps.Snapshots.Load(ctx, runID); {
	case err == nil:
		return "", modal.NewError(op, modal.ErrDuplicateRun, "", fmt.Errorf("run %s has a snapshot", runID))
	case errors.Is(err, modal.ErrRunNotFound):
	case errors.Is(err, modal.ErrInvalidInput):
		return "", modal.NewError(op, modal.ErrInvalidInput, "", err)
	default:
		// An unreadable snapshot still means the ID is taken.
		return "", modal.NewError(op, modal.ErrPersistence, "", err)
	}

	run := modal.NewCampaignRun(runID, cfg, contacts, o.now())
	run.RejectedRows = opts.RejectedRows
	if err := o.deps.Snapshots.Save(ctx, run); err != nil {
		o.deps.Metrics.SnapshotFailures.Inc()
		return "", modal.NewError(op, modal.ErrPersistence, "", err)
	}
	o.runs[runID] = &runState{run: run}

	o.deps.Metrics.RunsStarted.Inc()
	o.deps.Metrics.Transitions.WithLabelValues(string(modal.StatusPending)).Add(float64(len(contacts)))
	o.log.Info(logging.WithRunID(ctx, runID), "run started",
		zap.Int("contacts", len(contacts)),
		zap.String("goal", string(cfg.Goal)),
		zap.Int("rejected_rows", opts.RejectedRows),
	)
	return runID, nil
}

func validateBatch(contacts []modal.Contact) error {
	if len(contacts) == 0 {
		return errors.New("no contacts")
	}
	seenEmail := make(map[string]bool, len(contacts))
	seenID := make(map[string]bool, len(contacts))
	for i := range contacts {
		c := &contacts[i]
		if strings.TrimSpace(c.Name) == "" {
			return fmt.Errorf("contact %d: name is required", i+1)
		}
		if !modal.ValidEmail(c.Email) {
			return fmt.Errorf("contact %d: invalid email %q", i+1, c.Email)
		}
		email := modal.NormalizeEmail(c.Email)
		c.Email = email
		if c.ID == "" {
			c.ID = modal.ContactID(email)
		}
		if seenEmail[email] {
			return fmt.Errorf("contact %d: duplicate email %s", i+1, email)
		}
		if seenID[c.ID] {
			return fmt.Errorf("contact %d: duplicate id %s", i+1, c.ID)
		}
		seenEmail[email] = true
		seenID[c.ID] = true
	}
	return nil
}

// NormalizeConfig fills the default goal and length and rejects an unknown
// goal, length or style. The error wraps modal.ErrInvalidInput.
func NormalizeConfig(cfg modal.CampaignConfig) (modal.CampaignConfig, error) {
	if cfg.Goal == "" {
		cfg.Goal = modal.GoalFirstMeeting
	}
	if !cfg.Goal.Valid() {
		return cfg, fmt.Errorf("unknown goal %q: %w", cfg.Goal, modal.ErrInvalidInput)
	}
	switch cfg.Length {
	case "":
		cfg.Length = modal.LengthMedium
	case modal.LengthConcise, modal.LengthMedium, modal.LengthDetailed:
	default:
		return cfg, fmt.Errorf("unknown length %q: %w", cfg.Length, modal.ErrInvalidInput)
	}
	if cfg.Style != "" {
		known := false
		for _, s := range modal.DefaultStyles {
			known = known || s == cfg.Style
		}
		if !known {
			return cfg, fmt.Errorf("unknown style %q: %w", cfg.Style, modal.ErrInvalidInput)
		}
	}
	return cfg, nil
}

// Resume loads a run from its snapshot if it is not already in memory and
// returns its report. Contacts left enriching or drafting by a crash are
// picked up by the next Advance.
func (o *Orchestrator) Resume(ctx context.Context, runID string) (modal.RunReport, error) {
	rs, err := o.state(ctx, runID)
	if err != nil {
		return modal.RunReport{}, err
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return buildReport(rs.run), nil
}

// state returns the in-memory run, loading it from the snapshot store on
// first use.
func (o *Orchestrator) state(ctx context.Context, runID string) (*runState, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if rs, ok := o.runs[runID]; ok {
		return rs, nil
	}
	run, err := o.deps.Snapshots.Load(ctx, runID)
	if err != nil {
		if errors.Is(err, modal.ErrRunNotFound) {
			return nil, modal.NewError("resume", modal.ErrRunNotFound, "", err)
		}
		if errors.Is(err, modal.ErrInvalidInput) {
			return nil, modal.NewError("resume", modal.ErrInvalidInput, "", err)
		}
		return nil, modal.NewError("resume", modal.ErrPersistence, "", err)
	}
	run.Normalize()
	rs := &runState{run: run}
	o.runs[runID] = rs

	pending := 0
	for _, c := range run.Contacts {
		if run.Statuses[c.ID].Schedulable() {
			pending++
		}
	}
	o.log.Info(logging.WithRunID(ctx, runID), "run resumed from snapshot",
		zap.Int("contacts", len(run.Contacts)),
		zap.Int("schedulable", pending),
	)
	return rs, nil
}

// mutate applies fn to a copy of the run, persists the copy and only then
// swaps it in. fn returning an error aborts without writing. The caller must
// not hold rs.mu.
func (o *Orchestrator) mutate(ctx context.Context, rs *runState, fn func(run *modal.CampaignRun) error) error {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	next := rs.run.Clone()
	if err := fn(next); err != nil {
		return err
	}
	now := o.now()
	next.UpdatedAt = now
	if next.AllTerminal() {
		if next.CompletedAt == nil {
			next.CompletedAt = &now
		}
	} else {
		next.CompletedAt = nil
	}
	if err := o.deps.Snapshots.Save(ctx, next); err != nil {
		o.deps.Metrics.SnapshotFailures.Inc()
		o.log.Error(ctx, "snapshot write failed", zap.Error(err))
		return modal.NewError("save snapshot", modal.ErrPersistence, logging.ContactIDFromContext(ctx), err)
	}
	if next.CompletedAt != nil && rs.run.CompletedAt == nil {
		o.log.Info(ctx, "run complete", zap.Int("contacts", len(next.Contacts)))
	}
	rs.run = next
	return nil
}

// Report summarizes a run. It never mutates state.
func (o *Orchestrator) Report(ctx context.Context, runID string) (modal.RunReport, error) {
	rs, err := o.state(ctx, runID)
	if err != nil {
		return modal.RunReport{}, err
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return buildReport(rs.run), nil
}

func buildReport(run *modal.CampaignRun) modal.RunReport {
	rep := modal.RunReport{
		RunID:        run.RunID,
		Total:        len(run.Contacts),
		Counts:       make(map[modal.Status]int, len(modal.Statuses)),
		RejectedRows: run.RejectedRows,
		Cancelled:    run.Cancelled,
		Complete:     run.AllTerminal(),
	}
	for _, s := range modal.Statuses {
		rep.Counts[s] = 0
	}
	for _, c := range run.Contacts {
		status := run.Statuses[c.ID]
		rep.Counts[status]++

		d := run.Drafts[c.ID]
		if d != nil && d.Fallback && (status == modal.StatusAwaitingReview || status == modal.StatusDecided) {
			rep.FallbackDrafts++
		}
		switch status {
		case modal.StatusAwaitingReview:
			if d != nil {
				rep.Reviews = append(rep.Reviews, modal.ReviewTask{
					ContactID: c.ID,
					Name:      c.Name,
					Email:     c.Email,
					Company:   c.Company,
					Draft:     *d,
				})
			}
		case modal.StatusFailed:
			fn := modal.FailureNote{ContactID: c.ID, Email: c.Email, Status: status}
			if notes := run.Notes[c.ID]; len(notes) > 0 {
				last := notes[len(notes)-1]
				fn.Stage, fn.Message, fn.At = last.Stage, last.Message, last.At
			}
			rep.Failures = append(rep.Failures, fn)
		}
	}
	return rep
}

// Runs lists the IDs of every persisted run.
func (o *Orchestrator) Runs(ctx context.Context) ([]string, error) {
	ids, err := o.deps.Snapshots.List(ctx)
	if err != nil {
		return nil, modal.NewError("list runs", modal.ErrPersistence, "", err)
	}
	return ids, nil
}

// Cancel stops Advance from scheduling more contacts for the run. Contacts
// already in flight finish their current stage.
func (o *Orchestrator) Cancel(ctx context.Context, runID string) error {
	rs, err := o.state(ctx, runID)
	if err != nil {
		return err
	}
	ctx = logging.WithRunID(ctx, runID)
	err = o.mutate(ctx, rs, func(run *modal.CampaignRun) error {
		run.Cancelled = true
		return nil
	})
	if err != nil {
		return err
	}
	o.log.Info(ctx, "run cancelled")
	return nil
}

// Retry sends a failed contact back to pending with no context or draft.
func (o *Orchestrator) Retry(ctx context.Context, runID, contactID string) error {
	const op = "retry"
	rs, err := o.state(ctx, runID)
	if err != nil {
		return err
	}
	ctx = logging.WithContactID(logging.WithRunID(ctx, runID), contactID)
	err = o.mutate(ctx, rs, func(run *modal.CampaignRun) error {
		if _, ok := run.Contact(contactID); !ok {
			return modal.NewError(op, modal.ErrInvalidInput, contactID, errors.New("unknown contact"))
		}
		if st := run.Statuses[contactID]; st != modal.StatusFailed {
			return modal.NewError(op, modal.ErrInvalidState, contactID, fmt.Errorf("status is %s", st))
		}
		run.Statuses[contactID] = modal.StatusPending
		delete(run.Drafts, contactID)
		delete(run.Contexts, contactID)
		return nil
	})
	if err != nil {
		return err
	}
	o.deps.Metrics.Transitions.WithLabelValues(string(modal.StatusPending)).Inc()
	o.log.Info(ctx, "contact queued for retry")
	return nil
}
