// Package recipient turns operator input (pasted text and optional CSV
// rows) into the ordered recipient list for a send session.
package recipient

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gocarina/gocsv"

	"github.com/resumeblast/internal/model"
)

// ErrNoRecipients indicates every input source was empty or unparseable.
var ErrNoRecipients = errors.New("no recipients after parsing input")

// DefaultCompany fills in when a source provides no company name.
const DefaultCompany = "your company"

// SkippedLine reports a manual-input line that could not be parsed.
// Skipped lines are surfaced to the operator, never silently dropped.
type SkippedLine struct {
	Number int
	Text   string
}

func (s SkippedLine) String() string {
	return fmt.Sprintf("line %d: %q (expected \"email, company\")", s.Number, s.Text)
}

// ParseManual splits free text into recipients, one per line. A line is
// split on the first comma only, so company names may contain commas.
// Lines without a comma are reported as skipped.
func ParseManual(text string) ([]model.Recipient, []SkippedLine) {
	var (
		recipients []model.Recipient
		skipped    []SkippedLine
	)
	for i, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		email, company, ok := strings.Cut(trimmed, ",")
		if !ok {
			skipped = append(skipped, SkippedLine{Number: i + 1, Text: trimmed})
			continue
		}
		email = strings.TrimSpace(email)
		if email == "" {
			skipped = append(skipped, SkippedLine{Number: i + 1, Text: trimmed})
			continue
		}
		recipients = append(recipients, model.Recipient{
			Email:   email,
			Company: orDefault(company),
		})
	}
	return recipients, skipped
}

// csvRow binds the required recipient CSV columns. Extra columns in the
// file are ignored.
type csvRow struct {
	Email   string `csv:"email"`
	Company string `csv:"company"`
}

// ParseCSV reads recipients from a CSV file with at least "email" and
// "company" columns. Rows with an empty email are dropped; a file whose
// rows carry no email at all is treated as malformed.
func ParseCSV(r io.Reader) ([]model.Recipient, error) {
	var rows []csvRow
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, fmt.Errorf("parse recipient csv: %w", err)
	}

	var recipients []model.Recipient
	for _, row := range rows {
		email := strings.TrimSpace(row.Email)
		if email == "" {
			continue
		}
		recipients = append(recipients, model.Recipient{
			Email:   email,
			Company: orDefault(row.Company),
		})
	}
	if len(rows) > 0 && len(recipients) == 0 {
		return nil, fmt.Errorf("parse recipient csv: no usable email column")
	}
	return recipients, nil
}

// Build merges the manual and tabular sources, manual first. Duplicates
// are preserved; the sent-log filter decides what actually goes out.
func Build(manualText string, tabular []model.Recipient) ([]model.Recipient, []SkippedLine, error) {
	manual, skipped := ParseManual(manualText)
	merged := make([]model.Recipient, 0, len(manual)+len(tabular))
	merged = append(merged, manual...)
	merged = append(merged, tabular...)
	if len(merged) == 0 {
		return nil, skipped, ErrNoRecipients
	}
	return merged, skipped, nil
}

func orDefault(company string) string {
	company = strings.TrimSpace(company)
	if company == "" {
		return DefaultCompany
	}
	return company
}
