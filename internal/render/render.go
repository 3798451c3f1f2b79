// Package render performs the per-recipient placeholder substitution on
// the operator's subject and body templates.
package render

import (
	"strings"

	"github.com/resumeblast/internal/model"
)

// Render substitutes the recognized placeholders into both templates:
// {company} becomes the recipient's company and {email} the operator's
// own address, so the template can self-reference the sender. Anything
// else in braces passes through literally; a template typo is cosmetic,
// not a reason to abort a send.
func Render(subjectTmpl, bodyTmpl string, r model.Recipient, sender string) (subject, body string) {
	values := map[string]string{
		"company": r.Company,
		"email":   sender,
	}
	return apply(subjectTmpl, values), apply(bodyTmpl, values)
}

func apply(tmpl string, values map[string]string) string {
	result := tmpl
	for name, value := range values {
		result = strings.ReplaceAll(result, "{"+name+"}", value)
	}
	return result
}
