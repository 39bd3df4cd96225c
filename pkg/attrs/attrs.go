// Package attrs reads slog-style key/value attribute slices.
package attrs

import "fmt"

// ExtractString extracts a string value from a key-value attribute slice.
// The slice should be formatted as [key1, value1, key2, value2, ...].
// Returns empty string if the key is not found or the value is not a string
// or fmt.Stringer.
func ExtractString(attrs []any, key string) string {
	for i := 0; i+1 < len(attrs); i += 2 {
		k, ok := attrs[i].(string)
		if !ok || k != key {
			continue
		}
		switch v := attrs[i+1].(type) {
		case string:
			return v
		case fmt.Stringer:
			return v.String()
		}
		return ""
	}
	return ""
}

// ToStringMap flattens a key-value attribute slice, formatting values with
// fmt. Keys listed in skip are left out. Non-string keys and a trailing
// unpaired key are ignored.
func ToStringMap(attrs []any, skip ...string) map[string]string {
	out := make(map[string]string, len(attrs)/2)
	for i := 0; i+1 < len(attrs); i += 2 {
		k, ok := attrs[i].(string)
		if !ok || contains(skip, k) {
			continue
		}
		out[k] = fmt.Sprint(attrs[i+1])
	}
	return out
}

func contains(keys []string, k string) bool {
	for _, s := range keys {
		if s == k {
			return true
		}
	}
	return false
}
