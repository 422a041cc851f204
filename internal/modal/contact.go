package modal

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// contactNamespace seeds deterministic contact IDs so the same email maps to
// the same ID across imports.
var contactNamespace = uuid.MustParse("6f1c5c1e-3b0f-4c57-9a57-7f1d0f3e2a11")

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

type Contact struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Email     string            `json:"email"`
	Company   string            `json:"company"`
	Role      string            `json:"role"`
	RawFields map[string]string `json:"rawFields,omitempty"`
}

// NewContact normalizes the identifying fields and assigns the derived ID.
func NewContact(name, email, company, role string, raw map[string]string) Contact {
	email = NormalizeEmail(email)
	return Contact{
		ID:        ContactID(email),
		Name:      strings.TrimSpace(name),
		Email:     email,
		Company:   strings.TrimSpace(company),
		Role:      strings.TrimSpace(role),
		RawFields: raw,
	}
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func ContactID(email string) string {
	return uuid.NewSHA1(contactNamespace, []byte(NormalizeEmail(email))).String()
}

func ValidEmail(email string) bool {
	return emailPattern.MatchString(strings.TrimSpace(email))
}

// FirstName returns the first whitespace-separated token of the name.
func (c Contact) FirstName() string {
	if f := strings.Fields(c.Name); len(f) > 0 {
		return f[0]
	}
	return ""
}

// Field returns a raw CSV column by lower-cased header.
func (c Contact) Field(key string) string {
	if c.RawFields == nil {
		return ""
	}
	return strings.TrimSpace(c.RawFields[strings.ToLower(key)])
}
