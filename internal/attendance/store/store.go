// Package store persists organizers, students, events, registrations and
// legacy users. Implementations return sentinel errors (ErrNotFound,
// ErrAlreadyUsed, ErrInvalidState) and never domain errors; services
// translate them.
package store

import (
	"context"

	"proofpass/internal/attendance/models"
	"proofpass/pkg/domain"
)

// Repository is the full storage contract satisfied by InMemory and Postgres.
type Repository interface {
	CreateOrganizer(ctx context.Context, o *models.Organizer) error
	FindOrganizerByID(ctx context.Context, id domain.OrganizerID) (*models.Organizer, error)
	FindOrganizerByEmail(ctx context.Context, email string) (*models.Organizer, error)

	CreateStudent(ctx context.Context, s *models.Student) error
	FindStudentByID(ctx context.Context, id domain.StudentID) (*models.Student, error)
	FindStudentByEmail(ctx context.Context, email string) (*models.Student, error)
	ExecuteStudent(ctx context.Context, id domain.StudentID, mutate func(*models.Student) error) (*models.Student, error)

	CreateEvent(ctx context.Context, e *models.Event) error
	FindEventByID(ctx context.Context, id domain.EventID) (*models.Event, error)
	FindEventByCollectionID(ctx context.Context, collectionID domain.CollectionID) (*models.Event, error)
	ListEvents(ctx context.Context) ([]*models.Event, error)
	ListEventsByOrganizer(ctx context.Context, organizerID domain.OrganizerID) ([]*models.Event, error)
	ExecuteEvent(ctx context.Context, id domain.EventID, validate func(*models.Event) error, mutate func(*models.Event)) (*models.Event, error)
	DeleteEvent(ctx context.Context, id domain.EventID) error

	CreateRegistration(ctx context.Context, r *models.Registration) error
	FindRegistrationByID(ctx context.Context, id domain.RegistrationID) (*models.Registration, error)
	FindRegistration(ctx context.Context, eventID domain.EventID, studentID domain.StudentID) (*models.Registration, error)
	FindClaimedBySerial(ctx context.Context, eventID domain.EventID, serial domain.Serial) (*models.Registration, error)
	ListRegistrationsByEvent(ctx context.Context, eventID domain.EventID) ([]*models.Registration, error)
	ListRegistrationsByStudent(ctx context.Context, studentID domain.StudentID) ([]*models.Registration, error)
	MarkClaimed(ctx context.Context, id domain.RegistrationID, rec models.ClaimRecord) (*models.Registration, error)

	CreateUser(ctx context.Context, u *models.User) error
	FindUserByID(ctx context.Context, id domain.UserID) (*models.User, error)
	FindUserByUsername(ctx context.Context, username string) (*models.User, error)
}

var (
	_ Repository = (*InMemory)(nil)
	_ Repository = (*Postgres)(nil)
)
