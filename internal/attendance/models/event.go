package models

import (
	"strings"
	"time"

	"proofpass/internal/geofence"
	"proofpass/pkg/domain"
	dErrors "proofpass/pkg/domain-errors"
)

// AttendanceStatus gates whether badges may be claimed for an event.
type AttendanceStatus string

const (
	AttendanceOpen   AttendanceStatus = "OPEN"
	AttendanceClosed AttendanceStatus = "CLOSED"
)

// DefaultRadiusMeters applies when an event is created without a radius.
const DefaultRadiusMeters = 100

func ParseAttendanceStatus(s string) (AttendanceStatus, error) {
	switch AttendanceStatus(strings.ToUpper(strings.TrimSpace(s))) {
	case AttendanceOpen:
		return AttendanceOpen, nil
	case AttendanceClosed:
		return AttendanceClosed, nil
	}
	return "", dErrors.New(dErrors.CodeValidation, "attendance status must be OPEN or CLOSED")
}

func (s AttendanceStatus) String() string { return string(s) }

// Event is one attendance-tracked occasion.
//
// Invariants:
//   - RadiusMeters > 0
//   - VenueLat in [-90, 90], VenueLong in [-180, 180]
//   - CollectionID never changes once assigned
//   - AttendanceStatus changes only through Open/Close
type Event struct {
	ID                  domain.EventID      `json:"id"`
	Name                string              `json:"name"`
	Description         string              `json:"description,omitempty"`
	Date                string              `json:"date"`
	VenueName           string              `json:"venueName,omitempty"`
	VenueLat            float64             `json:"venueLat"`
	VenueLong           float64             `json:"venueLong"`
	RadiusMeters        int                 `json:"radius"`
	BadgeImageCID       domain.ContentID    `json:"badgeImageCID,omitempty"`
	AttendanceStatus    AttendanceStatus    `json:"attendanceStatus"`
	AttendanceStartedAt *time.Time          `json:"attendanceStartedAt,omitempty"`
	OrganizerID         domain.OrganizerID  `json:"organizerId"`
	CollectionID        domain.CollectionID `json:"collectionId,omitempty"`
	CreatedAt           time.Time           `json:"createdAt"`
}

// NewEvent builds an event in the given initial attendance state.
func NewEvent(
	eventID domain.EventID,
	organizerID domain.OrganizerID,
	name, description, date, venueName string,
	venueLat, venueLong float64,
	radiusMeters int,
	status AttendanceStatus,
	now time.Time,
) (*Event, error) {
	if strings.TrimSpace(name) == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "event name cannot be empty")
	}
	if radiusMeters == 0 {
		radiusMeters = DefaultRadiusMeters
	}
	if radiusMeters < 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "radius must be positive")
	}
	if venueLat < -90 || venueLat > 90 || venueLong < -180 || venueLong > 180 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "venue coordinates out of range")
	}
	e := &Event{
		ID:               eventID,
		Name:             name,
		Description:      description,
		Date:             date,
		VenueName:        venueName,
		VenueLat:         venueLat,
		VenueLong:        venueLong,
		RadiusMeters:     radiusMeters,
		AttendanceStatus: AttendanceClosed,
		OrganizerID:      organizerID,
		CreatedAt:        now,
	}
	if status == AttendanceOpen {
		e.Open(now)
	}
	return e, nil
}

func (e *Event) IsOpen() bool {
	return e.AttendanceStatus == AttendanceOpen
}

func (e *Event) OwnedBy(organizerID domain.OrganizerID) bool {
	return e.OrganizerID == organizerID
}

func (e *Event) Venue() geofence.Point {
	return geofence.Point{Lat: e.VenueLat, Long: e.VenueLong}
}

// Open starts the attendance window and stamps its start time. Opening an
// already open window keeps the original start.
func (e *Event) Open(now time.Time) {
	if e.IsOpen() {
		return
	}
	e.AttendanceStatus = AttendanceOpen
	started := now
	e.AttendanceStartedAt = &started
}

// Close ends the attendance window. clearStartedAt drops the last start
// timestamp; otherwise it is kept for reporting.
func (e *Event) Close(clearStartedAt bool) {
	e.AttendanceStatus = AttendanceClosed
	if clearStartedAt {
		e.AttendanceStartedAt = nil
	}
}

// AssignCollection sets the collection id once. Reassigning a different id
// violates the event invariants.
func (e *Event) AssignCollection(collectionID domain.CollectionID) error {
	if e.CollectionID != "" && e.CollectionID != collectionID {
		return dErrors.New(dErrors.CodeInvariantViolation, "collection id cannot change once assigned")
	}
	e.CollectionID = collectionID
	return nil
}
