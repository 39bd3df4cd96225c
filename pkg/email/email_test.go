package email

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeriveNameFromEmail(t *testing.T) {
	tests := []struct {
		email string
		first string
		last  string
	}{
		{"asha.k@college.edu", "Asha", "K"},
		{"ravi_kumar+events@x.io", "Ravi", "Events"},
		{"organizer@x.io", "Organizer", "User"},
		{"...@x.io", "User", "User"},
		{"no-at-sign", "No", "Sign"},
	}
	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			first, last := DeriveNameFromEmail(tt.email)
			assert.Equal(t, tt.first, first)
			assert.Equal(t, tt.last, last)
		})
	}
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "Asha K", DisplayName("asha.k@college.edu"))
	assert.Equal(t, "Organizer", DisplayName("organizer@x.io"))
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "asha@college.edu", Normalize("  Asha@College.EDU "))
}
