package modal

import (
	"maps"
	"slices"
	"time"
)

// CampaignConfig carries the per-run generation settings chosen by the operator.
type CampaignConfig struct {
	Name    string `json:"name,omitempty"`
	Goal    Goal   `json:"goal"`
	Tone    string `json:"tone,omitempty"`
	Length  Length `json:"length,omitempty"`
	Message string `json:"message,omitempty"`
	// Style forces one style for every draft; empty lets the learning store choose.
	Style Style `json:"style,omitempty"`
}

// CampaignRun owns every piece of per-contact state for one batch. It is the
// unit persisted as a snapshot.
type CampaignRun struct {
	RunID        string                        `json:"runId"`
	Config       CampaignConfig                `json:"config"`
	Contacts     []Contact                     `json:"contacts"`
	Statuses     map[string]Status             `json:"statuses"`
	Contexts     map[string]*EnrichmentContext `json:"contexts,omitempty"`
	Drafts       map[string]*Draft             `json:"drafts,omitempty"`
	Decisions    map[string]*ReviewDecision    `json:"decisions,omitempty"`
	Notes        map[string][]ErrorNote        `json:"notes,omitempty"`
	Attempts     map[string]int                `json:"attempts,omitempty"`
	RejectedRows int                           `json:"rejectedRows,omitempty"`
	Cancelled    bool                          `json:"cancelled,omitempty"`
	StartedAt    time.Time                     `json:"startedAt"`
	UpdatedAt    time.Time                     `json:"updatedAt"`
	CompletedAt  *time.Time                    `json:"completedAt,omitempty"`
}

// NewCampaignRun creates a run with every contact pending.
func NewCampaignRun(runID string, cfg CampaignConfig, contacts []Contact, now time.Time) *CampaignRun {
	run := &CampaignRun{
		RunID:     runID,
		Config:    cfg,
		Contacts:  slices.Clone(contacts),
		Statuses:  make(map[string]Status, len(contacts)),
		StartedAt: now,
		UpdatedAt: now,
	}
	run.ensureMaps()
	for _, c := range contacts {
		run.Statuses[c.ID] = StatusPending
	}
	return run
}

func (r *CampaignRun) ensureMaps() {
	if r.Statuses == nil {
		r.Statuses = make(map[string]Status)
	}
	if r.Contexts == nil {
		r.Contexts = make(map[string]*EnrichmentContext)
	}
	if r.Drafts == nil {
		r.Drafts = make(map[string]*Draft)
	}
	if r.Decisions == nil {
		r.Decisions = make(map[string]*ReviewDecision)
	}
	if r.Notes == nil {
		r.Notes = make(map[string][]ErrorNote)
	}
	if r.Attempts == nil {
		r.Attempts = make(map[string]int)
	}
}

// Normalize fills maps that a decoded snapshot may have omitted.
func (r *CampaignRun) Normalize() {
	r.ensureMaps()
}

// Contact looks a contact up by ID.
func (r *CampaignRun) Contact(id string) (Contact, bool) {
	for _, c := range r.Contacts {
		if c.ID == id {
			return c, true
		}
	}
	return Contact{}, false
}

// AllTerminal reports whether every contact is decided or failed.
func (r *CampaignRun) AllTerminal() bool {
	for _, c := range r.Contacts {
		if !r.Statuses[c.ID].Terminal() {
			return false
		}
	}
	return true
}

// Clone copies the run's maps so a reader never sees a later mutation.
// Contexts, drafts and decisions are never mutated once stored, so the
// pointers are shared.
func (r *CampaignRun) Clone() *CampaignRun {
	out := *r
	out.Contacts = slices.Clone(r.Contacts)
	out.Statuses = maps.Clone(r.Statuses)
	out.Contexts = maps.Clone(r.Contexts)
	out.Drafts = maps.Clone(r.Drafts)
	out.Decisions = maps.Clone(r.Decisions)
	out.Attempts = maps.Clone(r.Attempts)
	out.Notes = make(map[string][]ErrorNote, len(r.Notes))
	for k, v := range r.Notes {
		out.Notes[k] = slices.Clone(v)
	}
	if r.CompletedAt != nil {
		t := *r.CompletedAt
		out.CompletedAt = &t
	}
	out.ensureMaps()
	return &out
}

type FailureNote struct {
	ContactID string    `json:"contactId"`
	Email     string    `json:"email"`
	Status    Status    `json:"status"`
	Stage     string    `json:"stage"`
	Message   string    `json:"message"`
	At        time.Time `json:"at"`
}

// RunReport is the read-only aggregate a surface shows the operator.
type RunReport struct {
	RunID          string         `json:"runId"`
	Total          int            `json:"total"`
	Counts         map[Status]int `json:"counts"`
	Failures       []FailureNote  `json:"failures,omitempty"`
	Reviews        []ReviewTask   `json:"reviews,omitempty"`
	FallbackDrafts int            `json:"fallbackDrafts"`
	RejectedRows   int            `json:"rejectedRows,omitempty"`
	Cancelled      bool           `json:"cancelled,omitempty"`
	Complete       bool           `json:"complete"`
}

// Open counts contacts that still need pipeline work or a review decision.
func (r RunReport) Open() int {
	return r.Total - r.Counts[StatusDecided] - r.Counts[StatusFailed]
}
