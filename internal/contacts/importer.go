// Package contacts turns CRM CSV exports into validated contacts.
package contacts

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"outreach-service/internal/modal"
)

// headerAliases maps common CRM export headers onto the canonical columns.
var headerAliases = map[string]string{
	"full_name":        "name",
	"full name":        "name",
	"contact_name":     "name",
	"contact name":     "name",
	"email_address":    "email",
	"email address":    "email",
	"email_address__c": "email",
	"contact_email":    "email",
	"account_name":     "company",
	"account name":     "company",
	"company_name":     "company",
	"organization":     "company",
	"title":            "role",
	"job_title":        "role",
	"job title":        "role",
	"first name":       "first_name",
	"last name":        "last_name",
	"phone_number":     "phone",
	"mobile":           "phone",
	"last_activity":    "last_activity_date",
	"source":           "lead_source",
}

// RowError describes one rejected CSV row. Line is 1-based and counts the header.
type RowError struct {
	Line   int      `json:"line"`
	Email  string   `json:"email,omitempty"`
	Errors []string `json:"errors"`
}

func (e RowError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, strings.Join(e.Errors, "; "))
}

// Result is the valid subset plus every rejected row.
type Result struct {
	Contacts []modal.Contact `json:"contacts"`
	Rejected []RowError      `json:"rejected,omitempty"`
	Rows     int             `json:"rows"`
}

// ImportFile opens path and calls Import.
func ImportFile(path string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open contacts csv: %w", err)
	}
	defer f.Close()
	return Import(f)
}

// Import parses a CSV with a header row. Rows with a missing name or email, a
// malformed email, or an email already seen are rejected and collected; only
// an unreadable CSV is an error.
func Import(r io.Reader) (*Result, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("contacts csv is empty: %w", modal.ErrInvalidInput)
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	columns := normalizeHeader(header)

	col := newCollector()
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		line, _ := cr.FieldPos(0)
		if blank(record) {
			continue
		}

		row := make(map[string]string, len(columns))
		for i, c := range columns {
			if i < len(record) && c != "" {
				row[c] = strings.TrimSpace(record[i])
			}
		}
		if row["name"] == "" && (row["first_name"] != "" || row["last_name"] != "") {
			row["name"] = strings.TrimSpace(row["first_name"] + " " + row["last_name"])
		}
		col.add(line, row)
	}
	return col.res, nil
}

// Validate applies the import rules to contacts that arrived already
// structured, such as a JSON request body. Line is the 1-based position in
// the slice.
func Validate(contacts []modal.Contact) *Result {
	col := newCollector()
	for i, c := range contacts {
		row := make(map[string]string, len(c.RawFields)+4)
		for k, v := range c.RawFields {
			row[strings.ToLower(k)] = v
		}
		row["name"] = strings.TrimSpace(c.Name)
		row["email"] = strings.TrimSpace(c.Email)
		row["company"] = strings.TrimSpace(c.Company)
		row["role"] = strings.TrimSpace(c.Role)
		col.add(i+1, row)
	}
	return col.res
}

type collector struct {
	res  *Result
	seen map[string]int
}

func newCollector() *collector {
	return &collector{res: &Result{}, seen: make(map[string]int)}
}

// add validates one row and files it as a contact or a rejection. The first
// occurrence of an email wins.
func (c *collector) add(line int, row map[string]string) {
	c.res.Rows++
	contact, problems := validate(row)
	if len(problems) == 0 {
		if first, dup := c.seen[contact.Email]; dup {
			problems = append(problems, fmt.Sprintf("duplicate email (first seen on line %d)", first))
		}
	}
	if len(problems) > 0 {
		c.res.Rejected = append(c.res.Rejected, RowError{Line: line, Email: row["email"], Errors: problems})
		return
	}
	c.seen[contact.Email] = line
	c.res.Contacts = append(c.res.Contacts, contact)
}

func normalizeHeader(header []string) []string {
	cols := make([]string, len(header))
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if alias, ok := headerAliases[h]; ok {
			h = alias
		}
		cols[i] = h
	}
	return cols
}

func validate(row map[string]string) (modal.Contact, []string) {
	var problems []string
	name, email := row["name"], row["email"]
	if name == "" {
		problems = append(problems, "missing required field: name")
	} else if len([]rune(name)) < 2 {
		problems = append(problems, "name too short: "+name)
	}
	if email == "" {
		problems = append(problems, "missing required field: email")
	} else if !modal.ValidEmail(email) {
		problems = append(problems, "invalid email format: "+email)
	}
	if len(problems) > 0 {
		return modal.Contact{}, problems
	}
	return modal.NewContact(name, email, row["company"], row["role"], row), nil
}

func blank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
