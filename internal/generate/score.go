package generate

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"outreach-service/internal/modal"
)

// Confidence rates how much context went into a draft: 0.5 base, 0.1 for a
// real name, 0.2 for research, 0.2 for prior mail and 0.1 for a body of 50 to
// 150 words, capped at 1.
func Confidence(req modal.DraftRequest, body string) float64 {
	if strings.TrimSpace(body) == "" {
		return 0.1
	}
	score := 0.5
	if strings.TrimSpace(req.Contact.Name) != "" {
		score += 0.1
	}
	if req.Context != nil && req.Context.Research != nil {
		score += 0.2
	}
	if req.Context != nil && req.Context.History != nil && req.Context.History.TotalInteractions > 0 {
		score += 0.2
	}
	if n := len(strings.Fields(body)); n >= 50 && n <= 150 {
		score += 0.1
	}
	if score > 1 {
		score = 1
	}
	return score
}

// PersonalizationPoints lists which pieces of context show up in the body.
func PersonalizationPoints(req modal.DraftRequest, body string) []string {
	lower := strings.ToLower(body)
	var points []string
	if first := req.Contact.FirstName(); first != "" && strings.Contains(lower, strings.ToLower(first)) {
		points = append(points, "used recipient name")
	}
	if c := req.Contact.Company; c != "" && strings.Contains(lower, strings.ToLower(c)) {
		points = append(points, "referenced company")
	}
	if req.Context != nil && req.Context.Research != nil {
		r := req.Context.Research
		if r.Industry != "" && strings.Contains(lower, r.Industry) {
			points = append(points, "referenced industry")
		}
		if mentionsAny(lower, r.Description) {
			points = append(points, "referenced company research")
		}
	}
	if req.Context != nil && req.Context.History != nil && req.Context.History.TotalInteractions > 0 &&
		(strings.Contains(lower, "last time") || strings.Contains(lower, "previous conversation") || strings.Contains(lower, "again")) {
		points = append(points, "referenced past conversation")
	}
	return points
}

// mentionsAny reports whether a distinctive word (longer than five letters)
// of text appears in body.
func mentionsAny(body, text string) bool {
	for _, w := range strings.Fields(strings.ToLower(text)) {
		w = strings.Trim(w, ".,;:!?\"'()")
		if len(w) > 5 && strings.Contains(body, w) {
			return true
		}
	}
	return false
}

func newDraft(req modal.DraftRequest, subject, body string, gen modal.Generator, now time.Time) *modal.Draft {
	return &modal.Draft{
		ID:                    uuid.NewString(),
		ContactID:             req.Contact.ID,
		Subject:               subject,
		Body:                  body,
		Style:                 req.Style,
		Goal:                  orDefaultGoal(req.Campaign.Goal),
		Confidence:            Confidence(req, body),
		Generator:             gen,
		PersonalizationPoints: PersonalizationPoints(req, body),
		CreatedAt:             now.UTC(),
	}
}
