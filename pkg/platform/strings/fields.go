// Package strings provides string slice helpers for configuration values.
package strings

import (
	"strings"
)

// CompactFields trims every value, drops empty ones and keeps the first
// occurrence of each. Order is preserved; a nil input stays nil.
func CompactFields(values []string) []string {
	if values == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
