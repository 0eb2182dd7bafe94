package util

import (
	"strings"
)

// SanitizeQueryID turns an arbitrary metric/entity string into a valid
// CloudWatch MetricDataQuery id: lowercase letter first, then only
// lowercase letters, digits and underscores.
func SanitizeQueryID(raw string) string {
	var b strings.Builder
	b.WriteString("q_")

	for _, r := range strings.ToLower(raw) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}

	return b.String()
}
