package campaign

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"outreach-service/internal/generate"
	"outreach-service/internal/learning"
	"outreach-service/internal/logging"
	"outreach-service/internal/modal"
	"outreach-service/internal/snapshot"
)

type fakeHistory struct {
	mu       sync.Mutex
	errs     map[string]error
	block    bool
	inFlight atomic.Int32
	maxSeen  atomic.Int32
	delay    time.Duration
}

func (f *fakeHistory) Lookup(ctx context.Context, email string) (*modal.HistorySummary, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		m := f.maxSeen.Load()
		if n <= m || f.maxSeen.CompareAndSwap(m, n) {
			break
		}
	}
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.mu.Lock()
	err := f.errs[email]
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return &modal.HistorySummary{Email: email, TotalInteractions: 1, Warmth: modal.WarmthWarm}, nil
}

func (f *fakeHistory) setErr(email string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.errs == nil {
		f.errs = make(map[string]error)
	}
	if err == nil {
		delete(f.errs, email)
		return
	}
	f.errs[email] = err
}

type fakeResearch struct {
	err error
}

func (f *fakeResearch) Lookup(_ context.Context, _, company string) (*modal.ResearchSummary, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &modal.ResearchSummary{Company: company, Industry: "saas", QualityScore: 0.6}, nil
}

// fakeGenerator fails every request when err is set. Per-email failures and
// blocks let one contact misbehave while the rest draft normally.
type fakeGenerator struct {
	err   error
	calls atomic.Int32

	mu    sync.Mutex
	errs  map[string]error
	block map[string]bool
}

func (f *fakeGenerator) failFor(email string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.errs == nil {
		f.errs = make(map[string]error)
	}
	f.errs[email] = err
}

func (f *fakeGenerator) blockFor(email string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.block == nil {
		f.block = make(map[string]bool)
	}
	f.block[email] = true
}

func (f *fakeGenerator) Generate(ctx context.Context, req modal.DraftRequest) (*modal.Draft, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	err, blocked := f.errs[req.Contact.Email], f.block[req.Contact.Email]
	f.mu.Unlock()
	if blocked {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err != nil {
		return nil, err
	}
	return &modal.Draft{
		ID:        uuid.NewString(),
		ContactID: req.Contact.ID,
		Subject:   "Hello " + req.Contact.Company,
		Body:      "Hi " + req.Contact.FirstName(),
		Style:     req.Style,
		Goal:      req.Campaign.Goal,
		Generator: modal.GeneratorAI,
	}, nil
}

// failingStore wraps a store and fails Save once armed.
type failingStore struct {
	snapshot.Store
	fail atomic.Bool
}

func (s *failingStore) Save(ctx context.Context, run *modal.CampaignRun) error {
	if s.fail.Load() {
		return errors.New("disk full")
	}
	return s.Store.Save(ctx, run)
}

type fixture struct {
	orch     *Orchestrator
	history  *fakeHistory
	research *fakeResearch
	gen      *fakeGenerator
	learning *learning.Store
	store    *failingStore
	logger   *logging.TestLogger
	deps     Deps
	settings Settings
}

func newFixture(t *testing.T, mod ...func(*Deps, *Settings)) *fixture {
	t.Helper()
	fs, err := snapshot.NewFileStore(t.TempDir())
	require.NoError(t, err)

	f := &fixture{
		history:  &fakeHistory{},
		research: &fakeResearch{},
		gen:      &fakeGenerator{},
		learning: learning.NewStore(learning.DefaultSettings(), nil, nil),
		store:    &failingStore{Store: fs},
		logger:   logging.NewTestLogger(),
	}
	clock := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	f.deps = Deps{
		History:   f.history,
		Research:  f.research,
		Generator: f.gen,
		Fallback:  generate.NewTemplateGenerator(),
		Learning:  f.learning,
		Snapshots: f.store,
		Logger:    f.logger.Logger,
		Clock:     func() time.Time { return clock },
	}
	f.settings = Settings{
		Concurrency:               2,
		LookupTimeout:             time.Second,
		GenerationTimeout:         time.Second,
		FallbackOnGenerationError: true,
	}
	for _, m := range mod {
		m(&f.deps, &f.settings)
	}
	f.orch, err = New(f.deps, f.settings)
	require.NoError(t, err)
	return f
}

// reopen builds a second orchestrator over the same snapshot store and
// learning store, as after a process restart.
func (f *fixture) reopen(t *testing.T) *Orchestrator {
	t.Helper()
	o, err := New(f.deps, f.settings)
	require.NoError(t, err)
	return o
}

func testContacts() []modal.Contact {
	return []modal.Contact{
		modal.NewContact("Ada Lovelace", "ada@analytical.io", "Analytical", "CTO", nil),
		modal.NewContact("Grace Hopper", "grace@navy.mil", "Navy", "Rear Admiral", nil),
		modal.NewContact("Linus Pauling", "linus@caltech.edu", "Caltech", "Engineering Manager", nil),
	}
}

func approve(task modal.ReviewTask) modal.ReviewDecision {
	return modal.ReviewDecision{
		ContactID: task.ContactID,
		DraftRef:  task.Draft.ID,
		Outcome:   modal.OutcomeApproved,
		Reviewer:  "operator",
	}
}
