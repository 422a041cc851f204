package generate

import (
	"fmt"
	"strings"

	"outreach-service/internal/modal"
)

type goalInfo struct {
	purpose string
	cta     string
}

var goals = map[modal.Goal]goalInfo{
	modal.GoalFirstMeeting: {
		purpose: "Schedule an initial conversation or discovery call",
		cta:     "Would you be available for a brief 15-20 minute call next week to explore this further?",
	},
	modal.GoalDemo: {
		purpose: "Request a demo or presentation of your product or service",
		cta:     "I'd love to show you a brief demo of how this could benefit %s. Would you have 20 minutes for a quick presentation?",
	},
	modal.GoalReengagement: {
		purpose: "Reconnect with previous contacts or dormant leads",
		cta:     "I wanted to reconnect and see if there might be an opportunity to collaborate now.",
	},
	modal.GoalPartnership: {
		purpose: "Explore collaboration or partnership opportunities",
		cta:     "I'd be interested in exploring potential partnership opportunities between our companies.",
	},
	modal.GoalFollowup: {
		purpose: "Continue a previous conversation or interaction",
		cta:     "I wanted to follow up on our previous conversation and see how I can help.",
	},
}

var lengths = map[modal.Length]string{
	modal.LengthConcise:  "2-3 short paragraphs (100-150 words)",
	modal.LengthMedium:   "3-4 paragraphs (150-200 words)",
	modal.LengthDetailed: "4-5 paragraphs with more detail (200-300 words)",
}

func goalFor(g modal.Goal) goalInfo {
	if info, ok := goals[g]; ok {
		return info
	}
	return goals[modal.GoalFirstMeeting]
}

func lengthFor(l modal.Length) string {
	if guide, ok := lengths[l]; ok {
		return guide
	}
	return lengths[modal.LengthMedium]
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

// BuildPrompt renders the instruction sent to the model. The model is asked
// for a first line of the form "Subject: ..." followed by the body.
func BuildPrompt(req modal.DraftRequest) string {
	c := req.Contact
	company := orDefault(c.Company, "your company")
	goal := goalFor(req.Campaign.Goal)
	cta := goal.cta
	if strings.Contains(cta, "%s") {
		cta = fmt.Sprintf(cta, company)
	}
	tone := orDefault(req.Campaign.Tone, "professional")

	var b strings.Builder
	b.WriteString("Write a personalized outreach email using the context below.\n\n")

	b.WriteString("RECIPIENT\n")
	fmt.Fprintf(&b, "- Name: %s\n", orDefault(c.Name, "there"))
	fmt.Fprintf(&b, "- Company: %s\n", company)
	fmt.Fprintf(&b, "- Title: %s\n", orDefault(c.Role, "unknown"))
	fmt.Fprintf(&b, "- Email: %s\n\n", c.Email)

	b.WriteString("CAMPAIGN\n")
	fmt.Fprintf(&b, "- Goal: %s\n", strings.ReplaceAll(string(orDefaultGoal(req.Campaign.Goal)), "_", " "))
	fmt.Fprintf(&b, "- Purpose: %s\n", goal.purpose)
	fmt.Fprintf(&b, "- Suggested call to action: %s\n", cta)
	if req.Campaign.Message != "" {
		fmt.Fprintf(&b, "- Sender's message: %s\n", req.Campaign.Message)
	}
	b.WriteString("\n")

	b.WriteString("HISTORY\n")
	if ec := req.Context; ec != nil && ec.History != nil {
		h := ec.History
		fmt.Fprintf(&b, "- Relationship: %s\n", h.Warmth)
		fmt.Fprintf(&b, "- Previous interactions: %d\n", h.TotalInteractions)
		if !h.LastInteraction.IsZero() {
			fmt.Fprintf(&b, "- Last interaction: %s\n", h.LastInteraction.Format("2006-01-02"))
		}
		if len(h.SubjectLines) > 0 {
			fmt.Fprintf(&b, "- Recent subjects: %s\n", strings.Join(h.SubjectLines, "; "))
		}
	} else {
		b.WriteString("- Relationship: unknown\n")
	}
	b.WriteString("\n")

	b.WriteString("RESEARCH\n")
	if ec := req.Context; ec != nil && ec.Research != nil {
		r := ec.Research
		if r.Description != "" {
			fmt.Fprintf(&b, "- Company description: %s\n", r.Description)
		}
		if r.AboutSnippet != "" {
			fmt.Fprintf(&b, "- About: %s\n", r.AboutSnippet)
		}
		if r.Industry != "" {
			fmt.Fprintf(&b, "- Industry: %s\n", r.Industry)
		}
		if len(r.Keywords) > 0 {
			fmt.Fprintf(&b, "- Keywords: %s\n", strings.Join(r.Keywords, ", "))
		}
	} else {
		b.WriteString("- None available\n")
	}
	b.WriteString("\n")

	b.WriteString("REQUIREMENTS\n")
	fmt.Fprintf(&b, "- Style: %s\n", req.Style)
	fmt.Fprintf(&b, "- Tone: %s\n", tone)
	fmt.Fprintf(&b, "- Length: %s\n", lengthFor(req.Campaign.Length))
	b.WriteString("- Reference the research naturally and keep the call to action on the campaign goal.\n")
	b.WriteString("- No placeholders, no notes about the email, no clichés like \"I hope this email finds you well\".\n\n")

	b.WriteString("Reply with the subject on the first line as \"Subject: ...\", a blank line, then the email body only.\n")
	return b.String()
}

func orDefaultGoal(g modal.Goal) modal.Goal {
	if g.Valid() {
		return g
	}
	return modal.GoalFirstMeeting
}

// ParseCompletion splits a model reply into subject and body. A reply without
// a subject line gets a subject derived from the campaign goal.
func ParseCompletion(text string, goal modal.Goal) (subject, body string) {
	text = strings.TrimSpace(text)
	first, rest, _ := strings.Cut(text, "\n")
	if s, ok := cutPrefixFold(strings.TrimSpace(first), "subject:"); ok {
		return strings.TrimSpace(s), strings.TrimSpace(rest)
	}
	return defaultSubject(goal), text
}

func cutPrefixFold(s, prefix string) (string, bool) {
	if len(s) < len(prefix) || !strings.EqualFold(s[:len(prefix)], prefix) {
		return s, false
	}
	return s[len(prefix):], true
}

func defaultSubject(goal modal.Goal) string {
	switch goal {
	case modal.GoalDemo:
		return "A quick demo"
	case modal.GoalReengagement:
		return "Reconnecting"
	case modal.GoalPartnership:
		return "Partnership idea"
	case modal.GoalFollowup:
		return "Following up"
	default:
		return "Quick introduction"
	}
}
