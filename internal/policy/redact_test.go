package policy

import (
	"strings"
	"testing"
)

func TestRedactString(t *testing.T) {
	cases := []struct {
		name   string
		in     string
		hidden string
		keep   string
	}{
		{"query key", `Post "http://h/models/m:generateContent?key=abc123&alt=json": timeout`, "abc123", "alt=json"},
		{"assignment", "api_key=sk-live-42 rejected", "sk-live-42", "rejected"},
		{"bearer", "Authorization: Bearer tok.en-value", "tok.en-value", "Authorization"},
		{"env style", "DISCORD_BOT_TOKEN=xyz789 missing", "xyz789", "missing"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out := RedactString(tc.in)
			if strings.Contains(out, tc.hidden) {
				t.Fatalf("secret survived: %q", out)
			}
			if !strings.Contains(out, tc.keep) || !strings.Contains(out, redacted) {
				t.Fatalf("unexpected redaction: %q", out)
			}
		})
	}
}

func TestRedactStringLeavesItemIDs(t *testing.T) {
	in := "item with id 7d0c6c1e-5f7b-4d1a-9e43-0f6f1f2b8a10 does not exist"
	if out := RedactString(in); out != in {
		t.Fatalf("plain text changed: %q", out)
	}
}

func TestRedactSecretsMasksLiteralValues(t *testing.T) {
	out := RedactSecrets("dial failed for SUPER-SECRET-KEY at host", "SUPER-SECRET-KEY", "")
	if strings.Contains(out, "SUPER-SECRET-KEY") || !strings.Contains(out, "at host") {
		t.Fatalf("unexpected output: %q", out)
	}
}
