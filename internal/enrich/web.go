package enrich

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/time/rate"

	"outreach-service/internal/modal"
)

const (
	maxPageBytes   = 2 << 20
	maxSnippetLen  = 300
	minAboutLength = 60
)

var slugStrip = regexp.MustCompile(`[^\w\s-]`)
var slugDash = regexp.MustCompile(`[-\s]+`)

// industryKeywords is checked in order; the first industry whose keyword
// appears in the page text wins.
var industryKeywords = []struct {
	industry string
	keywords []string
}{
	{"fintech", []string{"fintech", "payments", "banking", "lending", "financial services"}},
	{"healthcare", []string{"healthcare", "health care", "clinical", "patient", "medical"}},
	{"saas", []string{"saas", "software as a service", "platform", "cloud software"}},
	{"ecommerce", []string{"e-commerce", "ecommerce", "online store", "retail"}},
	{"education", []string{"education", "edtech", "learning platform", "students"}},
	{"manufacturing", []string{"manufacturing", "industrial", "factory", "supply chain"}},
	{"marketing", []string{"marketing", "advertising", "agency", "brand"}},
}

// WebOptions configures the company website researcher.
type WebOptions struct {
	UserAgent         string
	RequestsPerSecond float64
	Timeout           time.Duration
	TLDs              []string
	// Candidates overrides URL guessing; used to point at a fixed site.
	Candidates func(company string) []string
}

// WebResearch scrapes a company's homepage for a short profile.
type WebResearch struct {
	client  *http.Client
	limiter *rate.Limiter
	opts    WebOptions
}

func NewWebResearch(client *http.Client, opts WebOptions) *WebResearch {
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = 1
	}
	if len(opts.TLDs) == 0 {
		opts.TLDs = []string{"com", "io"}
	}
	w := &WebResearch{
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1),
		opts:    opts,
	}
	if w.opts.Candidates == nil {
		w.opts.Candidates = w.guessURLs
	}
	return w
}

// Slug lower-cases a company name and joins its words with dashes.
func Slug(company string) string {
	s := slugStrip.ReplaceAllString(strings.ToLower(strings.TrimSpace(company)), "")
	return strings.Trim(slugDash.ReplaceAllString(s, "-"), "-")
}

func (w *WebResearch) guessURLs(company string) []string {
	slug := Slug(company)
	if slug == "" {
		return nil
	}
	var urls []string
	for _, tld := range w.opts.TLDs {
		urls = append(urls,
			fmt.Sprintf("https://www.%s.%s", slug, tld),
			fmt.Sprintf("https://%s.%s", slug, tld),
		)
	}
	return urls
}

// Lookup tries each candidate site in turn and summarizes the first that
// answers. Unreachable guesses are expected and skipped; only cancellation or
// deadline expiry is returned as an error.
func (w *WebResearch) Lookup(ctx context.Context, name, company string) (*modal.ResearchSummary, error) {
	if strings.TrimSpace(company) == "" {
		return nil, fmt.Errorf("research %s: no company: %w", name, modal.ErrUnavailable)
	}
	for _, u := range w.opts.Candidates(company) {
		if err := w.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("research rate limit: %w", err)
		}
		page, err := w.fetch(ctx, u)
		if ctx.Err() != nil {
			return nil, fmt.Errorf("research %s: %w", company, ctx.Err())
		}
		if err != nil || page == nil {
			continue
		}
		summary := summarize(company, u, page)
		if summary.Title == "" && summary.Description == "" && summary.AboutSnippet == "" {
			continue
		}
		return summary, nil
	}
	return nil, fmt.Errorf("research %s: no reachable website: %w", company, modal.ErrUnavailable)
}

func (w *WebResearch) fetch(ctx context.Context, url string) (*html.Node, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if w.opts.UserAgent != "" {
		req.Header.Set("User-Agent", w.opts.UserAgent)
	}
	resp, err := w.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: status %d", url, resp.StatusCode)
	}
	return html.Parse(io.LimitReader(resp.Body, maxPageBytes))
}

type pageInfo struct {
	title       string
	description string
	keywords    []string
	about       string
	firstLong   string
}

func summarize(company, url string, doc *html.Node) *modal.ResearchSummary {
	var info pageInfo
	walk(doc, false, &info)

	about := info.about
	if about == "" {
		about = info.firstLong
	}
	s := &modal.ResearchSummary{
		Company:      company,
		Website:      url,
		Title:        info.title,
		Description:  info.description,
		Keywords:     info.keywords,
		AboutSnippet: truncate(about, maxSnippetLen),
		Sources:      []string{"company_website"},
	}
	s.Industry = inferIndustry(strings.Join(append([]string{s.Title, s.Description, s.AboutSnippet}, s.Keywords...), " "))
	s.QualityScore = qualityScore(s)
	return s
}

func walk(n *html.Node, inAbout bool, info *pageInfo) {
	if n.Type == html.ElementNode {
		switch n.Data {
		case "title":
			if info.title == "" {
				info.title = strings.TrimSpace(text(n))
			}
		case "meta":
			name := strings.ToLower(attr(n, "name"))
			if name == "" {
				name = strings.ToLower(attr(n, "property"))
			}
			content := strings.TrimSpace(attr(n, "content"))
			switch name {
			case "description", "og:description":
				if info.description == "" {
					info.description = content
				}
			case "keywords":
				for _, kw := range strings.Split(content, ",") {
					if kw = strings.TrimSpace(kw); kw != "" {
						info.keywords = append(info.keywords, kw)
					}
				}
			}
		case "script", "style", "noscript":
			return
		case "p":
			t := collapse(text(n))
			if inAbout && info.about == "" && t != "" {
				info.about = t
			}
			if info.firstLong == "" && len(t) >= minAboutLength {
				info.firstLong = t
			}
		}
		marker := strings.ToLower(attr(n, "id") + " " + attr(n, "class"))
		if strings.Contains(marker, "about") {
			inAbout = true
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, inAbout, info)
	}
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func text(n *html.Node) string {
	var b strings.Builder
	var rec func(*html.Node)
	rec = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			rec(c)
		}
	}
	rec(n)
	return b.String()
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n])) + "…"
}

func inferIndustry(text string) string {
	t := strings.ToLower(text)
	for _, ind := range industryKeywords {
		for _, kw := range ind.keywords {
			if strings.Contains(t, kw) {
				return ind.industry
			}
		}
	}
	return ""
}

// qualityScore weights company facts at 0.4 and an inferred industry at 0.3
// out of a possible 1.0; the remaining 0.3 is reserved for news coverage,
// which this researcher does not fetch.
func qualityScore(s *modal.ResearchSummary) float64 {
	score := 0.0
	if s.Title != "" {
		score += 0.1
	}
	if s.Description != "" {
		score += 0.2
	}
	if s.AboutSnippet != "" {
		score += 0.1
	}
	if s.Industry != "" {
		score += 0.3
	}
	return score
}
