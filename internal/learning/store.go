package learning

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"outreach-service/internal/logging"
	"outreach-service/internal/modal"
)

// Settings centralizes the scoring thresholds.
type Settings struct {
	MinSamples int
	LaplaceK   float64
	Styles     []modal.Style
}

func DefaultSettings() Settings {
	return Settings{
		MinSamples: 5,
		LaplaceK:   2,
		Styles:     modal.DefaultStyles,
	}
}

// Journal persists outcomes outside the process. Append must be durable
// before it returns; Replay yields every stored record in write order.
type Journal interface {
	Append(ctx context.Context, rec modal.OutcomeRecord) error
	Replay(ctx context.Context) ([]modal.OutcomeRecord, error)
}

type outcomeKey struct {
	runID     string
	contactID string
}

// Store is the in-memory outcome history with an optional journal.
type Store struct {
	// writeMu serializes journal appends with their in-memory apply so the
	// journal order matches last-write-wins in memory. Readers only take mu.
	writeMu  sync.Mutex
	mu       sync.RWMutex
	settings Settings
	records  map[outcomeKey]modal.OutcomeRecord
	order    []outcomeKey
	journal  Journal
	logger   *logging.Logger
}

// NewStore creates an empty store. journal may be nil.
func NewStore(settings Settings, journal Journal, logger *logging.Logger) *Store {
	if len(settings.Styles) == 0 {
		settings.Styles = modal.DefaultStyles
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Store{
		settings: settings,
		records:  make(map[outcomeKey]modal.OutcomeRecord),
		journal:  journal,
		logger:   logger,
	}
}

// Open creates a store and replays the journal into it.
func Open(ctx context.Context, settings Settings, journal Journal, logger *logging.Logger) (*Store, error) {
	s := NewStore(settings, journal, logger)
	if journal == nil {
		return s, nil
	}
	recs, err := journal.Replay(ctx)
	if err != nil {
		return nil, fmt.Errorf("replay learning journal: %w", err)
	}
	for _, rec := range recs {
		s.put(rec)
	}
	s.logger.Info(ctx, "learning store loaded", zap.Int("outcomes", len(s.records)))
	return s, nil
}

// RecordOutcome inserts or replaces the record for (RunID, ContactID).
func (s *Store) RecordOutcome(ctx context.Context, rec modal.OutcomeRecord) error {
	if rec.RunID == "" || rec.ContactID == "" {
		return fmt.Errorf("record outcome: run and contact id required: %w", modal.ErrInvalidInput)
	}
	if !rec.Decision.Outcome.Valid() {
		return fmt.Errorf("record outcome: unknown outcome %q: %w", rec.Decision.Outcome, modal.ErrInvalidInput)
	}
	if rec.RecordedAt.IsZero() {
		rec.RecordedAt = time.Now().UTC()
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if s.journal != nil {
		if err := s.journal.Append(ctx, rec); err != nil {
			return fmt.Errorf("record outcome: %w", err)
		}
	}

	s.mu.Lock()
	s.put(rec)
	s.mu.Unlock()
	return nil
}

func (s *Store) put(rec modal.OutcomeRecord) {
	k := outcomeKey{rec.RunID, rec.ContactID}
	if _, ok := s.records[k]; !ok {
		s.order = append(s.order, k)
	}
	s.records[k] = rec
}

// Outcome returns the stored record for a (run, contact) pair.
func (s *Store) Outcome(runID, contactID string) (modal.OutcomeRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[outcomeKey{runID, contactID}]
	return rec, ok
}

// Outcomes returns every record in first-write order.
func (s *Store) Outcomes() []modal.OutcomeRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]modal.OutcomeRecord, 0, len(s.order))
	for _, k := range s.order {
		out = append(out, s.records[k])
	}
	return out
}

// ScoreVector maps each candidate style to an estimated success weight.
type ScoreVector map[modal.Style]float64

// Best returns the highest-weighted style, ties broken by the order of
// preferred.
func (v ScoreVector) Best(preferred []modal.Style) modal.Style {
	var best modal.Style
	bestW := -1.0
	for _, st := range preferred {
		w, ok := v[st]
		if ok && w > bestW {
			best, bestW = st, w
		}
	}
	return best
}

// Score is a pure function of the current history.
func (s *Store) Score(f modal.FeatureSnapshot) ScoreVector {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scoreLocked(f)
}

func (s *Store) scoreLocked(f modal.FeatureSnapshot) ScoreVector {
	k := s.settings.LaplaceK
	vec := make(ScoreVector, len(s.settings.Styles))

	key := f.Key()
	success := make(map[modal.Style]int)
	total := make(map[modal.Style]int)
	matched := 0
	for _, rec := range s.records {
		if rec.Features.Key() != key {
			continue
		}
		matched++
		total[rec.Features.Style]++
		if rec.Succeeded() {
			success[rec.Features.Style]++
		}
	}

	for _, st := range s.settings.Styles {
		if matched < s.settings.MinSamples {
			vec[st] = 1 / k
			continue
		}
		vec[st] = (float64(success[st]) + 1) / (float64(total[st]) + k)
	}
	return vec
}

// Recommend picks the style to draft in. The seniority default wins ties.
func (s *Store) Recommend(f modal.FeatureSnapshot) (modal.Style, ScoreVector) {
	vec := s.Score(f)
	preferred := make([]modal.Style, 0, len(s.settings.Styles)+1)
	def := defaultStyle(f.Seniority)
	if _, ok := vec[def]; ok {
		preferred = append(preferred, def)
	}
	preferred = append(preferred, s.settings.Styles...)
	return vec.Best(preferred), vec
}

// StyleStats aggregates decisions for one style.
type StyleStats struct {
	Total        int     `json:"total"`
	Approved     int     `json:"approved"`
	Edited       int     `json:"edited"`
	Rejected     int     `json:"rejected"`
	Responses    int     `json:"responses"`
	ApprovalRate float64 `json:"approvalRate"`
}

// Stats is the observability view over the outcome history.
type Stats struct {
	TotalOutcomes int                        `json:"totalOutcomes"`
	Responses     int                        `json:"responses"`
	ResponseRate  float64                    `json:"responseRate"`
	PerStyle      map[modal.Style]StyleStats `json:"perStyle"`
	BestStyle     modal.Style                `json:"bestStyle,omitempty"`
}

func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Stats{
		TotalOutcomes: len(s.records),
		PerStyle:      make(map[modal.Style]StyleStats),
	}
	for _, rec := range s.records {
		ss := st.PerStyle[rec.Features.Style]
		ss.Total++
		switch rec.Decision.Outcome {
		case modal.OutcomeApproved:
			ss.Approved++
		case modal.OutcomeEdited:
			ss.Edited++
		case modal.OutcomeRejected:
			ss.Rejected++
		}
		if r := rec.DownstreamResponse; r != nil && (*r == modal.ResponseReplied || *r == modal.ResponseMeeting) {
			ss.Responses++
			st.Responses++
		}
		st.PerStyle[rec.Features.Style] = ss
	}

	styles := make([]modal.Style, 0, len(st.PerStyle))
	for style, ss := range st.PerStyle {
		ss.ApprovalRate = float64(ss.Approved) / float64(ss.Total)
		st.PerStyle[style] = ss
		styles = append(styles, style)
	}
	sort.Slice(styles, func(i, j int) bool { return styles[i] < styles[j] })
	bestRate := -1.0
	for _, style := range styles {
		if r := st.PerStyle[style].ApprovalRate; r > bestRate {
			st.BestStyle, bestRate = style, r
		}
	}
	if st.TotalOutcomes > 0 {
		st.ResponseRate = float64(st.Responses) / float64(st.TotalOutcomes)
	}
	return st
}
