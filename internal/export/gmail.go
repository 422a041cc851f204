package export

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"mime"
	"net/mail"
	"time"

	"go.uber.org/zap"
	"google.golang.org/api/gmail/v1"

	"outreach-service/internal/logging"
	"outreach-service/internal/modal"
)

// DraftResult is one Gmail draft created from an exported email.
type DraftResult struct {
	ContactID string    `json:"contactId"`
	Email     string    `json:"email"`
	DraftID   string    `json:"draftId,omitempty"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// GmailDrafts saves approved emails as drafts in a mailbox so the sender can
// review and send them from Gmail. The service needs the compose scope.
type GmailDrafts struct {
	svc    *gmail.Service
	user   string
	from   string
	logger *logging.Logger
	now    func() time.Time
}

func NewGmailDrafts(svc *gmail.Service, user, from string, logger *logging.Logger) *GmailDrafts {
	if user == "" {
		user = "me"
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &GmailDrafts{svc: svc, user: user, from: from, logger: logger, now: time.Now}
}

// Create makes one draft per email. A failed draft is reported in its result
// and does not stop the others; the returned error counts the failures.
func (g *GmailDrafts) Create(ctx context.Context, exp modal.CampaignExport) ([]DraftResult, error) {
	ctx = logging.WithRunID(ctx, exp.RunID)
	results := make([]DraftResult, 0, len(exp.Emails))
	failed := 0
	for _, e := range exp.Emails {
		res := DraftResult{ContactID: e.ContactID, Email: e.Email, CreatedAt: g.now().UTC()}
		draft, err := g.svc.Users.Drafts.Create(g.user, &gmail.Draft{
			Message: &gmail.Message{Raw: encodeMessage(g.from, e)},
		}).Context(ctx).Do()
		if err != nil {
			failed++
			res.Error = err.Error()
			g.logger.Warn(ctx, "gmail draft failed", zap.String("email", e.Email), zap.Error(err))
		} else {
			res.DraftID = draft.Id
			g.logger.Info(ctx, "gmail draft created", zap.String("email", e.Email), zap.String("draft_id", draft.Id))
		}
		results = append(results, res)
	}
	if failed > 0 {
		return results, fmt.Errorf("%d of %d gmail drafts failed", failed, len(exp.Emails))
	}
	return results, nil
}

// encodeMessage builds a plain-text RFC 5322 message, base64url encoded as
// the Gmail API expects.
func encodeMessage(from string, e modal.ExportedEmail) string {
	var b bytes.Buffer
	if from != "" {
		fmt.Fprintf(&b, "From: %s\r\n", from)
	}
	to := mail.Address{Name: e.Name, Address: e.Email}
	fmt.Fprintf(&b, "To: %s\r\n", to.String())
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", e.Subject))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n\r\n")
	b.WriteString(e.Body)
	return base64.URLEncoding.EncodeToString(b.Bytes())
}
