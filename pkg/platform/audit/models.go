package audit

import (
	"context"
	"time"
)

// EventCategory classifies audit events so sinks can route and retain them
// differently.
type EventCategory string

const (
	// CategoryIssuance covers credential lifecycle facts: mints, transfers, claims.
	CategoryIssuance EventCategory = "issuance"
	// CategorySecurity covers authentication and access failures.
	CategorySecurity EventCategory = "security"
	// CategoryOperations covers routine organizer and student activity.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Subject is the
// entity the action is about (a registration, an event, a user); ActorID is
// whoever triggered it.
type Event struct {
	Category   EventCategory
	Timestamp  time.Time
	Subject    string
	ActorID    string
	Action     string
	Reason     string
	RequestID  string
	Attributes map[string]string
}

type AuditEvent string

const (
	// Identity events
	EventOrganizerRegistered AuditEvent = "organizer_registered"
	EventStudentRegistered   AuditEvent = "student_registered"
	EventAuthFailed          AuditEvent = "auth_failed"
	EventWalletLinked        AuditEvent = "wallet_linked"
	EventProfileUpdated      AuditEvent = "profile_updated"

	// Event lifecycle
	EventEventCreated        AuditEvent = "event_created"
	EventEventDeleted        AuditEvent = "event_deleted"
	EventAttendanceOpened    AuditEvent = "attendance_opened"
	EventAttendanceClosed    AuditEvent = "attendance_closed"
	EventRegistrationCreated AuditEvent = "registration_created"
	EventCollectionFallback  AuditEvent = "collection_fallback"

	// Badge issuance
	EventBadgeMinted  AuditEvent = "badge_minted"
	EventMintOrphaned AuditEvent = "mint_orphaned"
	EventBadgeClaimed AuditEvent = "badge_claimed"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventBadgeMinted:        CategoryIssuance,
	EventMintOrphaned:       CategoryIssuance,
	EventBadgeClaimed:       CategoryIssuance,
	EventCollectionFallback: CategoryIssuance,

	EventAuthFailed: CategorySecurity,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Store persists or forwards audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListBySubject(ctx context.Context, subject string) ([]Event, error)
}
