package generate

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"text/template"
	"time"

	"outreach-service/internal/modal"
)

const (
	professionalFriendly = `Hi {{.FirstName}},

{{with .Hook}}I noticed that {{.}} {{end}}I'm reaching out because I believe there might be an opportunity for us to help {{.Company}} improve operational efficiency and customer engagement.

We've worked with similar companies in your industry to streamline their processes and grow revenue within the first quarter.

{{.CTA}}

Best regards`

	briefDirect = `Hi {{.FirstName}},

Quick question: are you currently looking for ways to optimize operations at {{.Company}}?

We've helped similar teams achieve significant improvements in efficiency and revenue growth.

{{.CTA}}

Thanks`

	casualConversational = `Hey {{.FirstName}},

{{with .Hook}}I noticed that {{.}} {{end}}I've been following {{.Company}}'s journey and I'm impressed by the growth.

I work with similar companies on customer engagement and operational efficiency, and I have a few ideas that might be relevant for you.

{{.CTA}}

Cheers`
)

var templates = map[modal.Style]*template.Template{
	modal.StyleProfessionalFriendly: template.Must(template.New("professional_friendly").Parse(professionalFriendly)),
	modal.StyleBriefDirect:          template.Must(template.New("brief_direct").Parse(briefDirect)),
	modal.StyleCasualConversational: template.Must(template.New("casual_conversational").Parse(casualConversational)),
}

type templateData struct {
	FirstName string
	Company   string
	Hook      string
	CTA       string
}

// TemplateGenerator fills a fixed template per style. It needs no network and
// only fails on an unknown style.
type TemplateGenerator struct {
	now func() time.Time
}

func NewTemplateGenerator() *TemplateGenerator {
	return &TemplateGenerator{now: time.Now}
}

func (g *TemplateGenerator) Generate(_ context.Context, req modal.DraftRequest) (*modal.Draft, error) {
	tmpl, ok := templates[req.Style]
	if !ok {
		return nil, fmt.Errorf("template draft: %w: no template for style %q", modal.ErrGeneration, req.Style)
	}
	company := orDefault(req.Contact.Company, "your company")
	cta := goalFor(req.Campaign.Goal).cta
	if strings.Contains(cta, "%s") {
		cta = fmt.Sprintf(cta, company)
	}
	data := templateData{
		FirstName: orDefault(req.Contact.FirstName(), "there"),
		Company:   company,
		CTA:       cta,
	}
	if req.Context != nil && req.Context.Research != nil && req.Context.Research.Description != "" {
		data.Hook = hook(req.Context.Research.Description)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("template draft: %w: %v", modal.ErrGeneration, err)
	}
	return newDraft(req, defaultSubject(req.Campaign.Goal), buf.String(), modal.GeneratorTemplate, g.now()), nil
}

// hook trims a site description to at most 100 runes and ends it with a period.
func hook(desc string) string {
	r := []rune(strings.TrimSpace(desc))
	if len(r) > 100 {
		r = r[:100]
	}
	s := strings.TrimRight(string(r), " .")
	if s == "" {
		return ""
	}
	return s + "."
}
