// Package lifecycle manages events and registrations: creating events,
// provisioning their badge collections, opening and closing the attendance
// window, and the student-facing registration views.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"

	"proofpass/internal/attendance/metrics"
	"proofpass/internal/attendance/models"
	"proofpass/internal/issuer"
	"proofpass/pkg/attrs"
	"proofpass/pkg/domain"
	dErrors "proofpass/pkg/domain-errors"
	"proofpass/pkg/platform/audit"
	"proofpass/pkg/platform/sentinel"
	"proofpass/pkg/platform/validation"
	"proofpass/pkg/requestcontext"
)

// CollectionSymbol is the ledger symbol of every event collection.
const CollectionSymbol = "POAP"

const placeholderAttempts = 3

type Store interface {
	FindOrganizerByID(ctx context.Context, id domain.OrganizerID) (*models.Organizer, error)
	FindStudentByID(ctx context.Context, id domain.StudentID) (*models.Student, error)

	CreateEvent(ctx context.Context, e *models.Event) error
	FindEventByID(ctx context.Context, id domain.EventID) (*models.Event, error)
	ListEvents(ctx context.Context) ([]*models.Event, error)
	ListEventsByOrganizer(ctx context.Context, organizerID domain.OrganizerID) ([]*models.Event, error)
	ExecuteEvent(ctx context.Context, id domain.EventID, validate func(*models.Event) error, mutate func(*models.Event)) (*models.Event, error)
	DeleteEvent(ctx context.Context, id domain.EventID) error

	CreateRegistration(ctx context.Context, r *models.Registration) error
	FindRegistration(ctx context.Context, eventID domain.EventID, studentID domain.StudentID) (*models.Registration, error)
	ListRegistrationsByEvent(ctx context.Context, eventID domain.EventID) ([]*models.Registration, error)
	ListRegistrationsByStudent(ctx context.Context, studentID domain.StudentID) ([]*models.Registration, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// CreateEventRequest carries the organizer's event fields. BadgeImage is
// base64 in JSON.
type CreateEventRequest struct {
	Name        string   `json:"name" validate:"required,max=200"`
	Description string   `json:"description" validate:"max=2000"`
	Date        string   `json:"date" validate:"required,max=64"`
	VenueName   string   `json:"venueName" validate:"max=200"`
	VenueLat    *float64 `json:"venueLat" validate:"required,gte=-90,lte=90"`
	VenueLong   *float64 `json:"venueLong" validate:"required,gte=-180,lte=180"`
	Radius      int      `json:"radius" validate:"omitempty,min=10,max=10000"`
	BadgeImage  []byte   `json:"badgeImage,omitempty" validate:"max=5242880"`
}

// Service implements event lifecycle operations.
type Service struct {
	store                 Store
	issuer                issuer.Issuer
	defaultStatus         models.AttendanceStatus
	clearStartedAtOnClose bool
	placeholder           func() domain.CollectionID
	auditPublisher        AuditPublisher
	logger                *slog.Logger
	metrics               *metrics.Metrics
}

type Option func(*Service)

// WithDefaultStatus sets the attendance status of new events.
func WithDefaultStatus(status models.AttendanceStatus) Option {
	return func(s *Service) {
		if status == models.AttendanceOpen || status == models.AttendanceClosed {
			s.defaultStatus = status
		}
	}
}

// WithClearStartedAtOnClose controls whether closing the window drops the
// last start timestamp.
func WithClearStartedAtOnClose(enabled bool) Option {
	return func(s *Service) {
		s.clearStartedAtOnClose = enabled
	}
}

// WithPlaceholderIDs overrides how fallback collection ids are generated.
func WithPlaceholderIDs(gen func() domain.CollectionID) Option {
	return func(s *Service) {
		if gen != nil {
			s.placeholder = gen
		}
	}
}

func WithAuditPublisher(p AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = p
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func New(store Store, iss issuer.Issuer, opts ...Option) *Service {
	s := &Service{
		store:                 store,
		issuer:                iss,
		defaultStatus:         models.AttendanceClosed,
		clearStartedAtOnClose: true,
		placeholder:           randomPlaceholder,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// randomPlaceholder mimics a ledger collection id so clients treat it the
// same way as a provisioned one.
func randomPlaceholder() domain.CollectionID {
	return domain.CollectionID(fmt.Sprintf("0.0.%d", 1_000_000+rand.IntN(9_000_000)))
}

// CreateEvent validates and stores a new event. A failure to provision the
// badge collection does not fail the call: the event gets a placeholder
// collection id and the failure is logged, counted and audited.
func (s *Service) CreateEvent(ctx context.Context, organizerID domain.OrganizerID, req CreateEventRequest) (*models.Event, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Date = strings.TrimSpace(req.Date)
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	if _, err := s.store.FindOrganizerByID(ctx, organizerID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "Organizer not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load organizer")
	}

	now := requestcontext.Now(ctx)
	event, err := models.NewEvent(domain.NewEventID(), organizerID,
		req.Name, req.Description, req.Date, req.VenueName,
		*req.VenueLat, *req.VenueLong, req.Radius, s.defaultStatus, now)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, dErrors.New(dErrors.CodeValidation, err.Error())
		}
		return nil, err
	}

	if len(req.BadgeImage) > 0 {
		imageCID, err := s.issuer.UploadContent(ctx, req.BadgeImage)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to upload badge image")
		}
		event.BadgeImageCID = imageCID
	}

	collectionID, provisioned := s.provisionCollection(ctx, event)
	if err := event.AssignCollection(collectionID); err != nil {
		return nil, err
	}

	placeholders := 0
	if !provisioned {
		placeholders = 1
	}
	for {
		err = s.store.CreateEvent(ctx, event)
		if err == nil {
			break
		}
		if !errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create event")
		}
		if provisioned {
			// the ledger handed out an id already bound here, e.g. a mock
			// ledger restarted against a persistent store
			event.CollectionID = s.fallbackCollection(ctx, event,
				fmt.Errorf("collection %s already bound to another event", event.CollectionID))
			provisioned = false
			placeholders = 1
			continue
		}
		if placeholders >= placeholderAttempts {
			return nil, dErrors.New(dErrors.CodeConflict, "badge collection already bound to another event")
		}
		event.CollectionID = s.placeholder()
		placeholders++
	}

	s.metrics.IncEventsCreated()
	s.logAudit(ctx, audit.EventEventCreated,
		"subject", event.ID,
		"actor_id", organizerID,
		"collection_id", event.CollectionID,
		"attendance_status", event.AttendanceStatus,
	)
	return event, nil
}

func (s *Service) provisionCollection(ctx context.Context, event *models.Event) (domain.CollectionID, bool) {
	collectionID, err := s.issuer.CreateCollection(ctx, event.Name, CollectionSymbol)
	if err == nil && !collectionID.IsZero() {
		return collectionID, true
	}
	if err == nil {
		err = errors.New("issuer returned an empty collection id")
	}
	return s.fallbackCollection(ctx, event, err), false
}

// fallbackCollection draws a placeholder collection id and records why the
// provisioned one could not be used.
func (s *Service) fallbackCollection(ctx context.Context, event *models.Event, reason error) domain.CollectionID {
	placeholder := s.placeholder()
	s.metrics.IncCollectionFallback()
	if s.logger != nil {
		s.logger.WarnContext(ctx, "badge collection provisioning failed, using placeholder",
			"event_id", event.ID,
			"placeholder_collection_id", placeholder,
			"error", reason,
		)
	}
	s.logAudit(ctx, audit.EventCollectionFallback,
		"subject", event.ID,
		"actor_id", event.OrganizerID,
		"reason", reason.Error(),
		"collection_id", placeholder,
	)
	return placeholder
}

// GetEvent is public.
func (s *Service) GetEvent(ctx context.Context, id domain.EventID) (*models.Event, error) {
	event, err := s.store.FindEventByID(ctx, id)
	if err != nil {
		return nil, translateEventErr(err, "failed to load event")
	}
	return event, nil
}

func (s *Service) ListOrganizerEvents(ctx context.Context, organizerID domain.OrganizerID) ([]*models.Event, error) {
	events, err := s.store.ListEventsByOrganizer(ctx, organizerID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list events")
	}
	return events, nil
}

// OrganizerStats counts events, registrations and claims across the
// organizer's events. Active events are those with an open window.
func (s *Service) OrganizerStats(ctx context.Context, organizerID domain.OrganizerID) (*models.OrganizerStats, error) {
	events, err := s.store.ListEventsByOrganizer(ctx, organizerID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list events")
	}
	stats := &models.OrganizerStats{TotalEvents: len(events)}
	for _, event := range events {
		if event.IsOpen() {
			stats.ActiveEvents++
		}
		regs, err := s.store.ListRegistrationsByEvent(ctx, event.ID)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list registrations")
		}
		stats.TotalRegistrations += len(regs)
		for _, r := range regs {
			if r.Claimed {
				stats.TotalClaimed++
			}
		}
	}
	return stats, nil
}

// SetAttendanceStatus opens or closes the attendance window. Only the owning
// organizer may change it. Opening stamps the start time; closing clears it
// unless configured otherwise.
func (s *Service) SetAttendanceStatus(ctx context.Context, organizerID domain.OrganizerID, eventID domain.EventID, status models.AttendanceStatus) (*models.Event, error) {
	now := requestcontext.Now(ctx)
	event, err := s.store.ExecuteEvent(ctx, eventID,
		func(e *models.Event) error {
			if !e.OwnedBy(organizerID) {
				return dErrors.New(dErrors.CodeForbidden, "Only the event organizer can change attendance")
			}
			return nil
		},
		func(e *models.Event) {
			if status == models.AttendanceOpen {
				e.Open(now)
				return
			}
			e.Close(s.clearStartedAtOnClose)
		},
	)
	if err != nil {
		return nil, translateEventErr(err, "failed to update attendance")
	}

	action := audit.EventAttendanceClosed
	if status == models.AttendanceOpen {
		action = audit.EventAttendanceOpened
	}
	s.metrics.IncAttendanceTransition(status.String())
	s.logAudit(ctx, action, "subject", eventID, "actor_id", organizerID)
	return event, nil
}

// DeleteEvent removes an event and its registrations. Minted badges stay on
// the ledger.
func (s *Service) DeleteEvent(ctx context.Context, organizerID domain.OrganizerID, eventID domain.EventID) error {
	if _, err := s.ownedEvent(ctx, organizerID, eventID); err != nil {
		return err
	}
	if err := s.store.DeleteEvent(ctx, eventID); err != nil {
		return translateEventErr(err, "failed to delete event")
	}
	s.logAudit(ctx, audit.EventEventDeleted, "subject", eventID, "actor_id", organizerID)
	return nil
}

// ListRegistrations returns an event's registrations to its organizer.
func (s *Service) ListRegistrations(ctx context.Context, organizerID domain.OrganizerID, eventID domain.EventID) ([]*models.Registration, error) {
	if _, err := s.ownedEvent(ctx, organizerID, eventID); err != nil {
		return nil, err
	}
	regs, err := s.store.ListRegistrationsByEvent(ctx, eventID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list registrations")
	}
	return regs, nil
}

func (s *Service) ownedEvent(ctx context.Context, organizerID domain.OrganizerID, eventID domain.EventID) (*models.Event, error) {
	event, err := s.store.FindEventByID(ctx, eventID)
	if err != nil {
		return nil, translateEventErr(err, "failed to load event")
	}
	if !event.OwnedBy(organizerID) {
		return nil, dErrors.New(dErrors.CodeForbidden, "Only the event organizer can do this")
	}
	return event, nil
}

// Register signs the student up for the event. wallet overrides the
// student's linked wallet for this registration when set.
func (s *Service) Register(ctx context.Context, studentID domain.StudentID, eventID domain.EventID, wallet string) (*models.Registration, error) {
	event, err := s.store.FindEventByID(ctx, eventID)
	if err != nil {
		return nil, translateEventErr(err, "failed to load event")
	}
	student, err := s.store.FindStudentByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "Student not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load student")
	}
	if wallet = strings.TrimSpace(wallet); wallet == "" {
		wallet = student.WalletAddress
	}

	reg := models.NewRegistration(domain.NewRegistrationID(), event.ID, studentID, wallet, requestcontext.Now(ctx))
	if err := s.store.CreateRegistration(ctx, reg); err != nil {
		switch {
		case errors.Is(err, sentinel.ErrAlreadyUsed):
			return nil, dErrors.New(dErrors.CodeFailedPrecondition, "Already registered")
		case errors.Is(err, sentinel.ErrNotFound):
			return nil, dErrors.New(dErrors.CodeNotFound, "Event not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to register")
	}

	s.logAudit(ctx, audit.EventRegistrationCreated,
		"subject", reg.ID,
		"actor_id", studentID,
		"event_id", eventID,
	)
	return reg, nil
}

// GetRegistration returns the student's own registration for the event.
func (s *Service) GetRegistration(ctx context.Context, studentID domain.StudentID, eventID domain.EventID) (*models.Registration, error) {
	reg, err := s.store.FindRegistration(ctx, eventID, studentID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "Not registered")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load registration")
	}
	return reg, nil
}

// AvailableEvents lists every event with the student's registration, if any.
func (s *Service) AvailableEvents(ctx context.Context, studentID domain.StudentID) ([]models.EventWithRegistration, error) {
	events, err := s.store.ListEvents(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list events")
	}
	regs, err := s.registrationsByEvent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	out := make([]models.EventWithRegistration, 0, len(events))
	for _, event := range events {
		out = append(out, models.EventWithRegistration{Event: event, Registration: regs[event.ID]})
	}
	return out, nil
}

// RegisteredEvents lists events the student registered for but has not yet
// claimed.
func (s *Service) RegisteredEvents(ctx context.Context, studentID domain.StudentID) ([]models.EventWithRegistration, error) {
	return s.studentEvents(ctx, studentID, false)
}

// Badges lists the student's claimed badges.
func (s *Service) Badges(ctx context.Context, studentID domain.StudentID) ([]models.Badge, error) {
	joined, err := s.studentEvents(ctx, studentID, true)
	if err != nil {
		return nil, err
	}
	badges := make([]models.Badge, 0, len(joined))
	for _, j := range joined {
		badges = append(badges, models.Badge{Event: j.Event, Registration: j.Registration})
	}
	return badges, nil
}

func (s *Service) studentEvents(ctx context.Context, studentID domain.StudentID, claimed bool) ([]models.EventWithRegistration, error) {
	regs, err := s.store.ListRegistrationsByStudent(ctx, studentID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list registrations")
	}
	out := make([]models.EventWithRegistration, 0, len(regs))
	for _, reg := range regs {
		if reg.Claimed != claimed {
			continue
		}
		event, err := s.store.FindEventByID(ctx, reg.EventID)
		if errors.Is(err, sentinel.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load event")
		}
		out = append(out, models.EventWithRegistration{Event: event, Registration: reg})
	}
	return out, nil
}

func (s *Service) registrationsByEvent(ctx context.Context, studentID domain.StudentID) (map[domain.EventID]*models.Registration, error) {
	regs, err := s.store.ListRegistrationsByStudent(ctx, studentID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list registrations")
	}
	byEvent := make(map[domain.EventID]*models.Registration, len(regs))
	for _, r := range regs {
		byEvent[r.EventID] = r
	}
	return byEvent, nil
}

// translateEventErr maps store errors for event lookups and mutations.
// Domain errors raised inside ExecuteEvent pass through untouched.
func translateEventErr(err error, msg string) error {
	if _, ok := dErrors.As(err); ok {
		return err
	}
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "Event not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}

func (s *Service) logAudit(ctx context.Context, event audit.AuditEvent, attributes ...any) {
	requestID := requestcontext.RequestID(ctx)
	if s.logger != nil {
		args := append(attributes, "event", string(event), "log_type", "audit", "request_id", requestID)
		s.logger.InfoContext(ctx, string(event), args...)
	}
	if s.auditPublisher == nil {
		return
	}
	if err := s.auditPublisher.Emit(ctx, audit.Event{
		Subject:    attrs.ExtractString(attributes, "subject"),
		ActorID:    attrs.ExtractString(attributes, "actor_id"),
		Action:     string(event),
		Reason:     attrs.ExtractString(attributes, "reason"),
		RequestID:  requestID,
		Attributes: attrs.ToStringMap(attributes, "subject", "actor_id", "reason"),
	}); err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event", "event", string(event), "error", err)
	}
}
