package modal

import "time"

type Draft struct {
	ID                    string    `json:"id"`
	ContactID             string    `json:"contactId"`
	Subject               string    `json:"subject"`
	Body                  string    `json:"body"`
	Style                 Style     `json:"style"`
	Goal                  Goal      `json:"goal"`
	Confidence            float64   `json:"confidence"`
	Generator             Generator `json:"generator"`
	PersonalizationPoints []string  `json:"personalizationPoints,omitempty"`
	// Fallback marks a template draft written because the primary generator failed.
	Fallback  bool      `json:"fallback,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// FeatureSnapshot is the categorical fingerprint the learning store matches on.
// Style records which style the draft was written in; it is not part of the
// similarity key.
type FeatureSnapshot struct {
	Industry  string    `json:"industry"`
	Seniority Seniority `json:"seniority"`
	Goal      Goal      `json:"goal"`
	Style     Style     `json:"style,omitempty"`
}

// Key is the exact-match similarity key.
func (f FeatureSnapshot) Key() string {
	return f.Industry + "|" + string(f.Seniority) + "|" + string(f.Goal)
}

type OutcomeRecord struct {
	RunID              string          `json:"runId"`
	ContactID          string          `json:"contactId"`
	Decision           ReviewDecision  `json:"decision"`
	DownstreamResponse *Response       `json:"downstreamResponse,omitempty"`
	Features           FeatureSnapshot `json:"features"`
	RecordedAt         time.Time       `json:"recordedAt"`
}

// Succeeded counts an approval or a positive downstream reply as a win.
func (o OutcomeRecord) Succeeded() bool {
	if o.Decision.Outcome == OutcomeApproved {
		return true
	}
	if o.DownstreamResponse != nil {
		return *o.DownstreamResponse == ResponseReplied || *o.DownstreamResponse == ResponseMeeting
	}
	return false
}

// DraftRequest is everything a generator needs to write one email.
type DraftRequest struct {
	Contact  Contact            `json:"contact"`
	Context  *EnrichmentContext `json:"context,omitempty"`
	Style    Style              `json:"style"`
	Campaign CampaignConfig     `json:"campaign"`
}
