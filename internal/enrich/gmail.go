package enrich

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"outreach-service/internal/modal"
)

const maxSubjectLines = 10

// GmailOptions scopes the mailbox search.
type GmailOptions struct {
	User       string
	DaysBack   int
	MaxResults int64
}

// GmailHistory summarizes past mail exchanged with a contact.
type GmailHistory struct {
	svc  *gmail.Service
	opts GmailOptions
	now  func() time.Time
}

func NewGmailHistory(svc *gmail.Service, opts GmailOptions) *GmailHistory {
	if opts.User == "" {
		opts.User = "me"
	}
	if opts.MaxResults <= 0 {
		opts.MaxResults = 50
	}
	return &GmailHistory{svc: svc, opts: opts, now: time.Now}
}

// NewGmailService builds a Gmail client from an OAuth client credentials file
// and a previously authorized token file. It asks for read-only access unless
// other scopes are given; the token must already cover them.
func NewGmailService(ctx context.Context, credentialsFile, tokenFile string, scopes ...string) (*gmail.Service, error) {
	if len(scopes) == 0 {
		scopes = []string{gmail.GmailReadonlyScope}
	}
	creds, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read gmail credentials: %w", err)
	}
	conf, err := google.ConfigFromJSON(creds, scopes...)
	if err != nil {
		return nil, fmt.Errorf("parse gmail credentials: %w", err)
	}
	tok, err := readToken(tokenFile)
	if err != nil {
		return nil, err
	}
	return gmail.NewService(ctx, option.WithTokenSource(conf.TokenSource(ctx, tok)))
}

func readToken(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open gmail token: %w", err)
	}
	defer f.Close()
	tok := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(tok); err != nil {
		return nil, fmt.Errorf("decode gmail token: %w", err)
	}
	return tok, nil
}

// Lookup searches mail from or to the address within the configured window.
// No matching mail is a cold summary, not an absence.
func (g *GmailHistory) Lookup(ctx context.Context, email string) (*modal.HistorySummary, error) {
	query := fmt.Sprintf("from:%s OR to:%s", email, email)
	if g.opts.DaysBack > 0 {
		after := g.now().AddDate(0, 0, -g.opts.DaysBack).Format("2006/01/02")
		query += " after:" + after
	}

	list, err := g.svc.Users.Messages.List(g.opts.User).Q(query).MaxResults(g.opts.MaxResults).Context(ctx).Do()
	if err != nil {
		return nil, classifyGoogleError("list messages", err)
	}

	summary := &modal.HistorySummary{Email: email}
	var dates []time.Time
	for _, m := range list.Messages {
		msg, err := g.svc.Users.Messages.Get(g.opts.User, m.Id).
			Format("metadata").
			MetadataHeaders("From", "To", "Subject", "Date").
			Context(ctx).Do()
		if err != nil {
			if isNotFound(err) {
				continue
			}
			return nil, classifyGoogleError("get message", err)
		}
		summary.TotalInteractions++

		from, subject := headers(msg)
		if strings.Contains(strings.ToLower(from), strings.ToLower(email)) {
			summary.Received++
		} else {
			summary.Sent++
		}
		if subject != "" && len(summary.SubjectLines) < maxSubjectLines {
			summary.SubjectLines = append(summary.SubjectLines, subject)
		}
		if msg.InternalDate > 0 {
			dates = append(dates, time.UnixMilli(msg.InternalDate).UTC())
		}
	}

	if len(dates) > 0 {
		sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
		summary.FirstInteraction = dates[0]
		summary.LastInteraction = dates[len(dates)-1]
	}
	summary.Warmth = modal.WarmthFor(summary.TotalInteractions)
	return summary, nil
}

func headers(msg *gmail.Message) (from, subject string) {
	if msg.Payload == nil {
		return "", ""
	}
	for _, h := range msg.Payload.Headers {
		switch h.Name {
		case "From":
			from = h.Value
		case "Subject":
			subject = h.Value
		}
	}
	return from, subject
}

func isNotFound(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusNotFound
}

// classifyGoogleError turns auth and not-found responses into an absence;
// anything else is a real failure.
func classifyGoogleError(op string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
			return fmt.Errorf("gmail %s: %s: %w", op, gerr.Message, modal.ErrUnavailable)
		}
	}
	return fmt.Errorf("gmail %s: %w", op, err)
}
