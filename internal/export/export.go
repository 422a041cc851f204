// Package export writes the approved emails of a run out of the service: as
// a JSON campaign file, as plain text for copy and paste, or as Gmail drafts.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"outreach-service/internal/modal"
)

const (
	FormatJSON = "json"
	FormatText = "text"
)

// Write renders exp in the named format.
func Write(w io.Writer, format string, exp modal.CampaignExport) error {
	switch format {
	case FormatJSON, "":
		return WriteJSON(w, exp)
	case FormatText:
		return WriteText(w, exp)
	default:
		return fmt.Errorf("unknown export format %q: %w", format, modal.ErrInvalidInput)
	}
}

func WriteJSON(w io.Writer, exp modal.CampaignExport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(exp)
}

// WriteText prints one block per email, separated by a rule.
func WriteText(w io.Writer, exp modal.CampaignExport) error {
	var b strings.Builder
	fmt.Fprintf(&b, "run %s: %d approved of %d drafted (%d contacts)\n", exp.RunID, len(exp.Emails), exp.Drafted, exp.Total)
	for _, e := range exp.Emails {
		b.WriteString("\n" + strings.Repeat("-", 60) + "\n")
		fmt.Fprintf(&b, "To: %s <%s>\n", e.Name, e.Email)
		fmt.Fprintf(&b, "Subject: %s\n", e.Subject)
		fmt.Fprintf(&b, "Outcome: %s (%s)\n\n", e.Outcome, e.Style)
		b.WriteString(strings.TrimRight(e.Body, "\n"))
		b.WriteString("\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}
