package learning

import (
	"strings"

	"outreach-service/internal/modal"
)

var seniorityKeywords = []struct {
	level    modal.Seniority
	keywords []string
}{
	{modal.SeniorityCLevel, []string{"ceo", "cto", "cfo", "coo", "cmo", "chief", "president", "founder", "owner"}},
	{modal.SeniorityVPDirector, []string{"vp", "svp", "evp", "vice president", "director"}},
	{modal.SeniorityManager, []string{"manager", "lead", "head"}},
}

// Classify buckets a job title into a seniority level.
func Classify(title string) modal.Seniority {
	t := " " + strings.ToLower(title) + " "
	for _, bucket := range seniorityKeywords {
		for _, kw := range bucket.keywords {
			if containsWord(t, kw) {
				return bucket.level
			}
		}
	}
	return modal.SeniorityIndividualContributor
}

// containsWord matches kw on word boundaries so "vp" does not hit "mvp-ish" text
// and "lead" does not hit "leadership".
func containsWord(padded, kw string) bool {
	idx := 0
	for {
		i := strings.Index(padded[idx:], kw)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(kw)
		if !isWordByte(padded[start-1]) && (end >= len(padded) || !isWordByte(padded[end])) {
			return true
		}
		idx = start + 1
	}
}

func isWordByte(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= '0' && b <= '9')
}

// Features builds the snapshot used for scoring and for the outcome record.
// Industry comes from the CSV when present, otherwise from research.
func Features(c modal.Contact, ec *modal.EnrichmentContext, goal modal.Goal) modal.FeatureSnapshot {
	industry := c.Field("industry")
	if industry == "" && ec != nil && ec.Research != nil {
		industry = ec.Research.Industry
	}
	return modal.FeatureSnapshot{
		Industry:  strings.ToLower(strings.TrimSpace(industry)),
		Seniority: Classify(c.Role),
		Goal:      goal,
	}
}

// defaultStyle is the prior used to break ties when history gives no signal.
func defaultStyle(s modal.Seniority) modal.Style {
	switch s {
	case modal.SeniorityCLevel:
		return modal.StyleBriefDirect
	case modal.SeniorityIndividualContributor:
		return modal.StyleCasualConversational
	default:
		return modal.StyleProfessionalFriendly
	}
}
