package modal

import "time"

// EnrichmentContext is the per-contact case file assembled before drafting.
// History and Research are nil when the source had nothing to offer; the
// reason is kept in SourceErrors.
type EnrichmentContext struct {
	ContactID    string           `json:"contactId"`
	History      *HistorySummary  `json:"history,omitempty"`
	Research     *ResearchSummary `json:"research,omitempty"`
	FetchedAt    time.Time        `json:"fetchedAt"`
	SourceErrors []ErrorNote      `json:"sourceErrors,omitempty"`
}

type HistorySummary struct {
	Email             string    `json:"email"`
	TotalInteractions int       `json:"totalInteractions"`
	Sent              int       `json:"sent"`
	Received          int       `json:"received"`
	FirstInteraction  time.Time `json:"firstInteraction,omitempty"`
	LastInteraction   time.Time `json:"lastInteraction,omitempty"`
	SubjectLines      []string  `json:"subjectLines,omitempty"`
	Warmth            Warmth    `json:"warmth"`
}

type ResearchSummary struct {
	Company      string   `json:"company"`
	Website      string   `json:"website,omitempty"`
	Title        string   `json:"title,omitempty"`
	Description  string   `json:"description,omitempty"`
	Keywords     []string `json:"keywords,omitempty"`
	AboutSnippet string   `json:"aboutSnippet,omitempty"`
	Industry     string   `json:"industry,omitempty"`
	Sources      []string `json:"sources,omitempty"`
	QualityScore float64  `json:"qualityScore"`
}

type ErrorNote struct {
	Stage   string    `json:"stage"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// WarmthFor buckets an interaction count: none is cold, fewer than three is
// warm, anything more is an existing relationship.
func WarmthFor(total int) Warmth {
	switch {
	case total <= 0:
		return WarmthCold
	case total < 3:
		return WarmthWarm
	default:
		return WarmthExisting
	}
}
