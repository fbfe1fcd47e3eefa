package agent

import "strings"

// AssemblePrompt joins prompt lines into a system instruction, one per line,
// skipping blanks. Order is preserved.
func AssemblePrompt(sections ...[]string) string {
	var b strings.Builder
	for _, lines := range sections {
		for _, line := range lines {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			if b.Len() > 0 {
				b.WriteString("\n")
			}
			b.WriteString(line)
		}
	}
	return b.String()
}
