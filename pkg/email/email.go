// Package email derives presentation defaults from email addresses.
package email

import (
	"strings"
	"unicode"
)

// Normalize is the canonical form used for uniqueness checks and lookups.
func Normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// DeriveNameFromEmail splits the local part on common separators and returns
// a capitalized first and last name. Missing parts fall back to "User".
func DeriveNameFromEmail(email string) (string, string) {
	localPart := email
	if at := strings.IndexByte(email, '@'); at > 0 {
		localPart = email[:at]
	}

	parts := strings.FieldsFunc(localPart, func(r rune) bool {
		return r == '.' || r == '_' || r == '-' || r == '+'
	})

	if len(parts) == 0 {
		return "User", "User"
	}

	first := capitalize(parts[0])
	last := "User"
	if len(parts) > 1 {
		last = capitalize(parts[len(parts)-1])
	}

	return first, last
}

// DisplayName is the name shown for an account that never supplied one:
// "asha.k@x.edu" becomes "Asha K", "asha@x.edu" becomes "Asha".
func DisplayName(email string) string {
	first, last := DeriveNameFromEmail(email)
	if last == "User" {
		return first
	}
	return first + " " + last
}

func capitalize(s string) string {
	if s == "" {
		return s
	}

	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
