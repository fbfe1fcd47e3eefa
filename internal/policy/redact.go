// Package policy holds the rules for text that leaves the process: error
// messages shown to shop users and lines written to the logs.
package policy

import (
	"regexp"
	"strings"
)

const redacted = "[REDACTED]"

var redactionRules = []*regexp.Regexp{
	regexp.MustCompile(`(?i)([?&](key|api_key|token)=)[^&\s"']+`),
	regexp.MustCompile(`(?i)(api[_-]?key|token|secret|password)\s*[:=]\s*['\"]?[^\s'\"&]+`),
	regexp.MustCompile(`(?i)bearer\s+[a-z0-9\-\._~\+/]+=*`),
	regexp.MustCompile(`\b[A-Z][A-Z0-9_]*(TOKEN|KEY|SECRET|PASSWORD)\b\s*=\s*[^\s]+`),
}

// RedactString masks credential-shaped substrings.
func RedactString(input string) string {
	out := input
	for i, r := range redactionRules {
		if i == 0 {
			out = r.ReplaceAllString(out, "${1}"+redacted)
			continue
		}
		out = r.ReplaceAllString(out, redacted)
	}
	return out
}

// RedactSecrets masks every literal occurrence of the given secrets, then
// applies RedactString.
func RedactSecrets(input string, secrets ...string) string {
	out := input
	for _, s := range secrets {
		if strings.TrimSpace(s) == "" {
			continue
		}
		out = strings.ReplaceAll(out, s, redacted)
	}
	return RedactString(out)
}
