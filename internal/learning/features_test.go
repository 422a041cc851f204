package learning

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"outreach-service/internal/modal"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		title string
		want  modal.Seniority
	}{
		{"CEO", modal.SeniorityCLevel},
		{"Co-Founder & CTO", modal.SeniorityCLevel},
		{"SVP Sales", modal.SeniorityVPDirector},
		{"Director of Engineering", modal.SeniorityVPDirector},
		{"Engineering Manager", modal.SeniorityManager},
		{"Head of Growth", modal.SeniorityManager},
		{"Thought Leadership Writer", modal.SeniorityIndividualContributor},
		{"Software Engineer", modal.SeniorityIndividualContributor},
		{"", modal.SeniorityIndividualContributor},
	}
	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.title))
		})
	}
}

func TestFeaturesPrefersCSVIndustry(t *testing.T) {
	c := modal.NewContact("Ada Lovelace", "ada@example.com", "Engines", "VP Research", map[string]string{"industry": " Manufacturing "})
	ec := &modal.EnrichmentContext{Research: &modal.ResearchSummary{Industry: "software"}}

	f := Features(c, ec, modal.GoalDemo)
	assert.Equal(t, "manufacturing", f.Industry)
	assert.Equal(t, modal.SeniorityVPDirector, f.Seniority)
	assert.Equal(t, modal.GoalDemo, f.Goal)

	c.RawFields = nil
	assert.Equal(t, "software", Features(c, ec, modal.GoalDemo).Industry)
	assert.Equal(t, "", Features(c, nil, modal.GoalDemo).Industry)
}
