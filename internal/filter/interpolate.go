package filter

import (
	"strings"

	"throttler/internal/models"
)

// Interpolate replaces every %{field} reference in template with the event's
// value for that field. References to missing fields are left as written.
func Interpolate(template string, ev *models.Event) string {
	if !strings.Contains(template, "%{") {
		return template
	}

	var b strings.Builder
	b.Grow(len(template))

	rest := template
	for {
		start := strings.Index(rest, "%{")
		if start < 0 {
			b.WriteString(rest)
			break
		}
		end := strings.IndexByte(rest[start+2:], '}')
		if end < 0 {
			b.WriteString(rest)
			break
		}
		end += start + 2

		b.WriteString(rest[:start])
		name := rest[start+2 : end]
		if value, ok := ev.GetString(name); ok {
			b.WriteString(value)
		} else {
			b.WriteString(rest[start : end+1])
		}
		rest = rest[end+1:]
	}

	return b.String()
}
