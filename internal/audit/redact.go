package audit

import "regexp"

var (
	emailRe = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	ssnRe   = regexp.MustCompile(`\b[0-9]{3}-[0-9]{2}-[0-9]{4}\b`)
	phoneRe = regexp.MustCompile(`\+?1?[-.\s]?\(?[0-9]{3}\)?[-.\s]?[0-9]{3}[-.\s]?[0-9]{4}`)
)

// Redact replaces emails, social security numbers and phone numbers in
// free text before it is written to the audit table. Names and clinical
// terms are kept so reviewers can reconstruct the request.
func Redact(text string) string {
	text = emailRe.ReplaceAllString(text, "[EMAIL]")
	text = ssnRe.ReplaceAllString(text, "[SSN]")
	text = phoneRe.ReplaceAllString(text, "[PHONE]")
	return text
}
