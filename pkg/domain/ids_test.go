package domain

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "proofpass/pkg/domain-errors"
)

// TestParseUUID_Invariants validates the parsing invariant:
// "IDs must be valid, non-empty, non-nil UUIDs"
func TestParseUUID_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseEventID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParseEventID("not-a-uuid")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects nil UUID", func(t *testing.T) {
		_, err := ParseEventID(uuid.Nil.String())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts valid UUID", func(t *testing.T) {
		validUUID := uuid.New()
		id, err := ParseEventID(validUUID.String())
		require.NoError(t, err)
		assert.Equal(t, EventID(validUUID), id)
	})
}

func TestParseID_SecurityInvariants(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"SQL injection attempt", "'; DROP TABLE events;--", true},
		{"Path traversal", "../../../etc/passwd", true},
		{"Null byte injection", "550e8400\x00-e29b-41d4-a716-446655440000", true},
		{"Oversized input", strings.Repeat("a", 1000), true},
		{"Empty string", "", true},
		{"Nil UUID", uuid.Nil.String(), true},
		{"Whitespace only", "   ", true},
		{"Uppercase valid UUID", "550E8400-E29B-41D4-A716-446655440000", false},
		{"Valid UUID lowercase", "550e8400-e29b-41d4-a716-446655440000", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseStudentID(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
			} else {
				require.NoError(t, err)
			}
		})
	}
}

// TestAllIDTypes_ConsistentBehavior ensures all ID types have identical parsing behavior.
func TestAllIDTypes_ConsistentBehavior(t *testing.T) {
	validUUID := uuid.New().String()
	invalidInputs := []string{"", "invalid", uuid.Nil.String()}

	t.Run("all accept valid UUID", func(t *testing.T) {
		_, errEvent := ParseEventID(validUUID)
		_, errStudent := ParseStudentID(validUUID)
		_, errOrganizer := ParseOrganizerID(validUUID)
		_, errRegistration := ParseRegistrationID(validUUID)
		_, errUser := ParseUserID(validUUID)

		require.NoError(t, errEvent)
		require.NoError(t, errStudent)
		require.NoError(t, errOrganizer)
		require.NoError(t, errRegistration)
		require.NoError(t, errUser)
	})

	for _, input := range invalidInputs {
		t.Run("all reject: "+input, func(t *testing.T) {
			_, errEvent := ParseEventID(input)
			_, errStudent := ParseStudentID(input)
			_, errOrganizer := ParseOrganizerID(input)
			_, errRegistration := ParseRegistrationID(input)
			_, errUser := ParseUserID(input)

			require.Error(t, errEvent)
			require.Error(t, errStudent)
			require.Error(t, errOrganizer)
			require.Error(t, errRegistration)
			require.Error(t, errUser)
		})
	}
}

func TestIDs_JSONAsPlainUUID(t *testing.T) {
	u := uuid.New()
	payload := struct {
		EventID EventID `json:"eventId"`
	}{EventID: EventID(u)}

	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	assert.JSONEq(t, `{"eventId":"`+u.String()+`"}`, string(raw))

	var decoded struct {
		EventID EventID `json:"eventId"`
	}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, EventID(u), decoded.EventID)
}

func TestParseRole(t *testing.T) {
	r, err := ParseRole("organizer")
	require.NoError(t, err)
	assert.Equal(t, RoleOrganizer, r)

	_, err = ParseRole("admin")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))

	_, err = ParseRole("")
	require.Error(t, err)
}

func TestParseLedgerReferences(t *testing.T) {
	c, err := ParseCollectionID(" 0.0.1000001 ")
	require.NoError(t, err)
	assert.Equal(t, CollectionID("0.0.1000001"), c)

	_, err = ParseCollectionID("")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))

	s, err := ParseSerial("1")
	require.NoError(t, err)
	assert.Equal(t, Serial("1"), s)

	_, err = ParseSerial("   ")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}
