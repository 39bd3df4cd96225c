// Package domain holds the typed identifiers shared across the attendance
// bounded context. Each id is a distinct named uuid.UUID so an EventID can never
// be passed where a StudentID is expected.
package domain

import (
	"github.com/google/uuid"

	dErrors "proofpass/pkg/domain-errors"
)

type (
	EventID        uuid.UUID
	StudentID      uuid.UUID
	OrganizerID    uuid.UUID
	RegistrationID uuid.UUID
	// UserID identifies a legacy username/password account.
	UserID uuid.UUID
)

func (id EventID) String() string        { return uuid.UUID(id).String() }
func (id StudentID) String() string      { return uuid.UUID(id).String() }
func (id OrganizerID) String() string    { return uuid.UUID(id).String() }
func (id RegistrationID) String() string { return uuid.UUID(id).String() }
func (id UserID) String() string         { return uuid.UUID(id).String() }

func (id EventID) IsNil() bool        { return uuid.UUID(id) == uuid.Nil }
func (id StudentID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id OrganizerID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id RegistrationID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id UserID) IsNil() bool         { return uuid.UUID(id) == uuid.Nil }

// MarshalText lets typed ids appear as plain uuid strings in JSON.
func (id EventID) MarshalText() ([]byte, error)        { return uuid.UUID(id).MarshalText() }
func (id StudentID) MarshalText() ([]byte, error)      { return uuid.UUID(id).MarshalText() }
func (id OrganizerID) MarshalText() ([]byte, error)    { return uuid.UUID(id).MarshalText() }
func (id RegistrationID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id UserID) MarshalText() ([]byte, error)         { return uuid.UUID(id).MarshalText() }

func (id *EventID) UnmarshalText(b []byte) error        { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *StudentID) UnmarshalText(b []byte) error      { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *OrganizerID) UnmarshalText(b []byte) error    { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *RegistrationID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *UserID) UnmarshalText(b []byte) error         { return (*uuid.UUID)(id).UnmarshalText(b) }

func NewEventID() EventID               { return EventID(uuid.New()) }
func NewStudentID() StudentID           { return StudentID(uuid.New()) }
func NewOrganizerID() OrganizerID       { return OrganizerID(uuid.New()) }
func NewRegistrationID() RegistrationID { return RegistrationID(uuid.New()) }
func NewUserID() UserID                 { return UserID(uuid.New()) }

// parseUUID enforces the trust-boundary invariant shared by every id type:
// the value must be a well-formed, non-nil UUID.
func parseUUID(s, kind string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s is required", kind)
	}
	if len(s) > 64 {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "invalid %s", kind)
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "invalid %s", kind)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "invalid %s", kind)
	}
	return u, nil
}

func ParseEventID(s string) (EventID, error) {
	u, err := parseUUID(s, "event id")
	return EventID(u), err
}

func ParseStudentID(s string) (StudentID, error) {
	u, err := parseUUID(s, "student id")
	return StudentID(u), err
}

func ParseOrganizerID(s string) (OrganizerID, error) {
	u, err := parseUUID(s, "organizer id")
	return OrganizerID(u), err
}

func ParseRegistrationID(s string) (RegistrationID, error) {
	u, err := parseUUID(s, "registration id")
	return RegistrationID(u), err
}

func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID(s, "user id")
	return UserID(u), err
}
