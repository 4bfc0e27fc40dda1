package memory

import "regexp"

// EmailRedactionMarker replaces email-like substrings when PII scrubbing is
// enabled at ingest.
const EmailRedactionMarker = "<EMAIL>"

// emailPattern matches email-like substrings. Intentionally pragmatic, not
// RFC 5322: the goal is redaction before storage, not validation.
var emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)

// ScrubEmails redacts email-like substrings from text. The redaction is
// deterministic and irreversible; applying it twice is a no-op.
func ScrubEmails(text string) string {
	return emailPattern.ReplaceAllString(text, EmailRedactionMarker)
}

// ContainsEmail reports whether text carries an email-like substring.
func ContainsEmail(text string) bool {
	return emailPattern.MatchString(text)
}
