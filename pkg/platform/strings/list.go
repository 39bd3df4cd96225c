// Package strings parses delimited configuration values.
package strings

import (
	"strings"
)

// SplitList splits s on sep, trims each item, and drops empty items and
// repeats. The first occurrence wins, so order is kept. An empty s yields nil.
//
//	SplitList(" broker-1:9092, broker-2:9092,,broker-1:9092", ",")
//	// []string{"broker-1:9092", "broker-2:9092"}
func SplitList(s, sep string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, sep)
	seen := make(map[string]struct{}, len(parts))
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
