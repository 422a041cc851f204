package modal

import "time"

// ExportedEmail is one reviewed email ready to send: the approved draft or
// the reviewer's edit of it.
type ExportedEmail struct {
	ContactID  string    `json:"contactId"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Company    string    `json:"company,omitempty"`
	Role       string    `json:"role,omitempty"`
	Subject    string    `json:"subject"`
	Body       string    `json:"body"`
	Outcome    Outcome   `json:"outcome"`
	Style      Style     `json:"style"`
	Generator  Generator `json:"generator"`
	Fallback   bool      `json:"fallback,omitempty"`
	Reviewer   string    `json:"reviewer,omitempty"`
	ReviewedAt time.Time `json:"reviewedAt"`
}

// CampaignExport is the sendable output of a run.
type CampaignExport struct {
	RunID      string          `json:"runId"`
	Name       string          `json:"name,omitempty"`
	Goal       Goal            `json:"goal"`
	Total      int             `json:"totalContacts"`
	Drafted    int             `json:"emailsGenerated"`
	Complete   bool            `json:"complete"`
	ExportedAt time.Time       `json:"exportedAt"`
	Emails     []ExportedEmail `json:"approvedEmails"`
}
