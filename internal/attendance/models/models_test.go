package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"proofpass/pkg/domain"
	dErrors "proofpass/pkg/domain-errors"
)

var now = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func newTestEvent(t *testing.T, status AttendanceStatus) *Event {
	t.Helper()
	e, err := NewEvent(domain.NewEventID(), domain.NewOrganizerID(), "DevFest", "", "2026-03-14", "Hall A",
		11.0234, 76.9876, 0, status, now)
	require.NoError(t, err)
	return e
}

func TestNewEvent(t *testing.T) {
	t.Run("defaults radius and starts closed", func(t *testing.T) {
		e := newTestEvent(t, AttendanceClosed)
		assert.Equal(t, DefaultRadiusMeters, e.RadiusMeters)
		assert.False(t, e.IsOpen())
		assert.Nil(t, e.AttendanceStartedAt)
	})

	t.Run("open default stamps start time", func(t *testing.T) {
		e := newTestEvent(t, AttendanceOpen)
		assert.True(t, e.IsOpen())
		require.NotNil(t, e.AttendanceStartedAt)
		assert.Equal(t, now, *e.AttendanceStartedAt)
	})

	t.Run("rejects bad coordinates", func(t *testing.T) {
		_, err := NewEvent(domain.NewEventID(), domain.NewOrganizerID(), "x", "", "", "", 91, 0, 100, AttendanceClosed, now)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})

	t.Run("rejects empty name", func(t *testing.T) {
		_, err := NewEvent(domain.NewEventID(), domain.NewOrganizerID(), " ", "", "", "", 0, 0, 100, AttendanceClosed, now)
		assert.Error(t, err)
	})
}

func TestEventWindow(t *testing.T) {
	e := newTestEvent(t, AttendanceClosed)
	e.Open(now)
	require.NotNil(t, e.AttendanceStartedAt)

	e.Close(false)
	assert.False(t, e.IsOpen())
	assert.NotNil(t, e.AttendanceStartedAt, "start time kept when not clearing")

	e.Open(now.Add(time.Hour))
	assert.Equal(t, now.Add(time.Hour), *e.AttendanceStartedAt)

	e.Open(now.Add(2 * time.Hour))
	assert.Equal(t, now.Add(time.Hour), *e.AttendanceStartedAt, "reopening an open window keeps its start")

	e.Close(true)
	assert.Nil(t, e.AttendanceStartedAt)
}

func TestAssignCollection(t *testing.T) {
	e := newTestEvent(t, AttendanceClosed)
	require.NoError(t, e.AssignCollection("0.0.1000000"))
	require.NoError(t, e.AssignCollection("0.0.1000000"))
	assert.Error(t, e.AssignCollection("0.0.1000001"))
	assert.Equal(t, domain.CollectionID("0.0.1000000"), e.CollectionID)
}

func TestParseAttendanceStatus(t *testing.T) {
	s, err := ParseAttendanceStatus("open")
	require.NoError(t, err)
	assert.Equal(t, AttendanceOpen, s)

	_, err = ParseAttendanceStatus("PAUSED")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestClaimRecord(t *testing.T) {
	assert.Error(t, ClaimRecord{Serial: "1"}.Validate())

	rec := ClaimRecord{Serial: "1", MetadataCID: "b3abc", ClaimedAt: now}
	require.NoError(t, rec.Validate())

	r := NewRegistration(domain.NewRegistrationID(), domain.NewEventID(), domain.NewStudentID(), "0.0.5005", now)
	r.ApplyClaim(rec)
	assert.True(t, r.Claimed)
	assert.Equal(t, domain.Serial("1"), r.Serial)
	assert.Equal(t, domain.ContentID("b3abc"), r.MetadataCID)
	assert.Equal(t, now, *r.ClaimedAt)
}
