package memory

import (
	"strings"
	"testing"
)

func TestScrubEmails(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "contact ana@example.com today", "contact <EMAIL> today"},
		{"subdomain", "ops@mail.corp.example.io is on call", "<EMAIL> is on call"},
		{"multiple", "cc ana@example.com and bob@example.com", "cc <EMAIL> and <EMAIL>"},
		{"plus tag", "ana+billing@example.com", "<EMAIL>"},
		{"no email", "nothing to redact here", "nothing to redact here"},
		{"bare at", "meet @ noon", "meet @ noon"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := ScrubEmails(tc.in); got != tc.want {
				t.Fatalf("want %q, got %q", tc.want, got)
			}
		})
	}
}

func TestScrubEmails_Idempotent(t *testing.T) {
	t.Parallel()

	once := ScrubEmails("reach ana@example.com")
	twice := ScrubEmails(once)
	if once != twice {
		t.Fatalf("double scrub changed text: %q vs %q", once, twice)
	}
	if !strings.Contains(once, EmailRedactionMarker) {
		t.Fatalf("marker missing: %q", once)
	}
}

func TestContainsEmail(t *testing.T) {
	t.Parallel()

	if !ContainsEmail("it is ana@example.com") {
		t.Fatalf("should detect email")
	}
	if ContainsEmail("no address here") {
		t.Fatalf("false positive")
	}
}
