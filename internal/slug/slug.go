// Package slug derives URL-safe identifiers from post titles.
package slug

import (
	"strings"
)

// Generate converts a title into a URL-safe slug: lower-case, strip anything
// outside [a-z0-9 -], collapse whitespace runs into single hyphens, trim
// leading/trailing hyphens. It is total and never fails; a degenerate title
// yields "" and callers must reject that before persisting.
func Generate(title string) string {
	lowered := strings.ToLower(title)

	var b strings.Builder
	b.Grow(len(lowered))
	for _, r := range lowered {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			b.WriteRune(r)
		case r == ' ', r == '\t', r == '\n', r == '\r':
			b.WriteByte(' ')
		}
	}

	fields := strings.Fields(b.String())
	return strings.Trim(strings.Join(fields, "-"), "-")
}
