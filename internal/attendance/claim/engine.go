// Package claim issues attendance badges. A claim passes an ordered series of
// checks, then uploads metadata, mints, transfers, and finally marks the
// registration claimed. At most one claim per registration ever succeeds.
package claim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"proofpass/internal/attendance/metrics"
	"proofpass/internal/attendance/models"
	"proofpass/internal/geofence"
	"proofpass/internal/issuer"
	"proofpass/pkg/attrs"
	"proofpass/pkg/domain"
	dErrors "proofpass/pkg/domain-errors"
	"proofpass/pkg/platform/audit"
	"proofpass/pkg/platform/sentinel"
	"proofpass/pkg/requestcontext"
)

// Store is the slice of the attendance repository the engine needs.
type Store interface {
	FindEventByID(ctx context.Context, id domain.EventID) (*models.Event, error)
	FindRegistration(ctx context.Context, eventID domain.EventID, studentID domain.StudentID) (*models.Registration, error)
	FindRegistrationByID(ctx context.Context, id domain.RegistrationID) (*models.Registration, error)
	FindStudentByID(ctx context.Context, id domain.StudentID) (*models.Student, error)
	FindOrganizerByID(ctx context.Context, id domain.OrganizerID) (*models.Organizer, error)
	MarkClaimed(ctx context.Context, id domain.RegistrationID, rec models.ClaimRecord) (*models.Registration, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Request is one student's claim. A nil Location skips the venue check.
type Request struct {
	EventID   domain.EventID
	StudentID domain.StudentID
	Location  *geofence.Point
}

var tracer = otel.Tracer("proofpass/internal/attendance/claim")

// Engine runs claims.
type Engine struct {
	store          Store
	issuer         issuer.Issuer
	locker         Locker
	distance       func(a, b geofence.Point) float64
	auditPublisher AuditPublisher
	logger         *slog.Logger
	metrics        *metrics.Metrics
}

type Option func(*Engine)

// WithLocker replaces the default in-process locker, for example with a
// RedisLocker when several instances share one database.
func WithLocker(l Locker) Option {
	return func(e *Engine) {
		e.locker = l
	}
}

// WithDistance replaces the haversine distance used for the venue check.
func WithDistance(fn func(a, b geofence.Point) float64) Option {
	return func(e *Engine) {
		if fn != nil {
			e.distance = fn
		}
	}
}

func WithAuditPublisher(p AuditPublisher) Option {
	return func(e *Engine) {
		e.auditPublisher = p
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

func New(store Store, iss issuer.Issuer, opts ...Option) *Engine {
	e := &Engine{store: store, issuer: iss, distance: geofence.Distance}
	for _, opt := range opts {
		opt(e)
	}
	if e.locker == nil {
		e.locker = NewKeyedLocker()
	}
	return e
}

// Claim checks, in order: the event exists, its attendance window is open,
// the student is registered, the badge is unclaimed, the student is inside
// the venue radius (when a location is given), and the student has a wallet.
// The first failing check decides the error.
func (e *Engine) Claim(ctx context.Context, req Request) (result *models.ClaimResult, err error) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "claim.Claim", trace.WithAttributes(
		attribute.String("event.id", req.EventID.String()),
		attribute.String("student.id", req.StudentID.String()),
		attribute.Bool("claim.location_provided", req.Location != nil),
	))
	defer func() {
		outcome := "success"
		if err != nil {
			outcome = string(dErrors.CodeOf(err))
			span.RecordError(err)
			span.SetStatus(codes.Error, outcome)
		}
		e.metrics.IncClaimOutcome(outcome)
		e.metrics.ObserveClaimLatency(time.Since(start))
		span.End()
	}()

	event, err := e.store.FindEventByID(ctx, req.EventID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "Event not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load event")
	}
	if !event.IsOpen() {
		return nil, dErrors.New(dErrors.CodeFailedPrecondition, "Attendance window closed")
	}

	reg, err := e.store.FindRegistration(ctx, event.ID, req.StudentID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeFailedPrecondition, "Not registered for this event")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load registration")
	}

	unlock, err := e.locker.Lock(ctx, "claim:"+reg.ID.String())
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to acquire claim lock")
	}
	defer unlock()

	// re-read under the lock; a concurrent claim may have finished
	reg, err = e.store.FindRegistrationByID(ctx, reg.ID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load registration")
	}
	if reg.Claimed {
		return nil, errAlreadyClaimed()
	}

	if req.Location != nil {
		distance := e.distance(*req.Location, event.Venue())
		span.SetAttributes(attribute.Float64("claim.distance_meters", distance))
		if !geofence.WithinRadius(distance, float64(event.RadiusMeters)) {
			rounded := int(math.Round(distance))
			return nil, dErrors.Newf(dErrors.CodeFailedPrecondition,
				"Outside venue radius. Distance: %dm (allowed %dm)", rounded, event.RadiusMeters).
				WithDetail("distance_meters", rounded).
				WithDetail("radius_meters", event.RadiusMeters)
		}
	}

	student, issuerName, err := e.loadParties(ctx, req.StudentID, event.OrganizerID)
	if err != nil {
		return nil, err
	}
	if !student.HasWallet() {
		return nil, dErrors.New(dErrors.CodeFailedPrecondition, "Wallet not connected")
	}
	if event.CollectionID.IsZero() {
		return nil, dErrors.New(dErrors.CodeInternal, "event has no badge collection")
	}

	// Issuer round trips run to completion once started, even if the caller goes away.
	issueCtx := context.WithoutCancel(ctx)
	return e.issue(issueCtx, event, reg, student, issuerName)
}

func (e *Engine) issue(ctx context.Context, event *models.Event, reg *models.Registration, student *models.Student, issuerName string) (*models.ClaimResult, error) {
	metadata := BuildMetadata(event, student, issuerName)

	metadataCID, err := e.issuer.UploadContent(ctx, metadata)
	if err != nil {
		e.logError(ctx, "badge metadata upload failed", err, "registration_id", reg.ID)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to upload badge metadata")
	}

	serial, err := e.issuer.Mint(ctx, event.CollectionID, metadataCID)
	if err != nil {
		e.logError(ctx, "badge mint failed", err, "registration_id", reg.ID, "collection_id", event.CollectionID)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to mint badge")
	}
	e.metrics.IncMinted()
	e.logAudit(ctx, audit.EventBadgeMinted,
		"subject", reg.ID,
		"actor_id", student.ID,
		"event_id", event.ID,
		"collection_id", event.CollectionID,
		"serial", serial,
		"metadata_cid", metadataCID,
	)

	if err := e.issuer.Transfer(ctx, event.CollectionID, serial, student.WalletAddress); err != nil {
		e.metrics.IncOrphaned()
		e.logError(ctx, "badge transfer failed after mint", err,
			"registration_id", reg.ID,
			"collection_id", event.CollectionID,
			"serial", serial,
		)
		e.logAudit(ctx, audit.EventMintOrphaned,
			"subject", reg.ID,
			"actor_id", student.ID,
			"reason", err.Error(),
			"collection_id", event.CollectionID,
			"serial", serial,
			"wallet", student.WalletAddress,
		)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to transfer badge to wallet")
	}

	updated, err := e.store.MarkClaimed(ctx, reg.ID, models.ClaimRecord{
		Serial:      serial,
		MetadataCID: metadataCID,
		ClaimedAt:   requestcontext.Now(ctx),
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, errAlreadyClaimed()
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record claim")
	}

	e.logAudit(ctx, audit.EventBadgeClaimed,
		"subject", reg.ID,
		"actor_id", student.ID,
		"event_id", event.ID,
		"collection_id", event.CollectionID,
		"serial", serial,
	)

	return &models.ClaimResult{
		CollectionID: event.CollectionID,
		Serial:       serial,
		MetadataCID:  metadataCID,
		Registration: updated,
	}, nil
}

// loadParties fetches the claiming student and the issuing organizer's name.
// A missing organizer leaves the issuer name empty.
func (e *Engine) loadParties(ctx context.Context, studentID domain.StudentID, organizerID domain.OrganizerID) (*models.Student, string, error) {
	var (
		student    *models.Student
		issuerName string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s, err := e.store.FindStudentByID(gctx, studentID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "Student not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load student")
		}
		student = s
		return nil
	})
	g.Go(func() error {
		o, err := e.store.FindOrganizerByID(gctx, organizerID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return nil
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load organizer")
		}
		issuerName = o.Name
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, "", err
	}
	return student, issuerName, nil
}

// BuildMetadata assembles the document a badge points at.
func BuildMetadata(event *models.Event, student *models.Student, issuerName string) models.BadgeMetadata {
	image := ""
	if !event.BadgeImageCID.IsZero() {
		image = "ipfs://" + event.BadgeImageCID.String()
	}
	return models.BadgeMetadata{
		Name:        fmt.Sprintf("%s - Proof of Attendance", event.Name),
		Description: "Issued for attending " + event.Name,
		Image:       image,
		Attributes: []models.MetadataAttribute{
			{TraitType: "Event ID", Value: event.ID.String()},
			{TraitType: "Student Profile CID", Value: student.ProfileCID.String()},
			{TraitType: "Issued By", Value: issuerName},
			{TraitType: "Date", Value: event.Date},
		},
	}
}

func errAlreadyClaimed() error {
	return dErrors.New(dErrors.CodeFailedPrecondition, "Badge already claimed")
}

func (e *Engine) logError(ctx context.Context, msg string, err error, args ...any) {
	if e.logger != nil {
		e.logger.ErrorContext(ctx, msg, append(args, "error", err)...)
	}
}

func (e *Engine) logAudit(ctx context.Context, event audit.AuditEvent, attributes ...any) {
	requestID := requestcontext.RequestID(ctx)
	if e.logger != nil {
		args := append(attributes, "event", string(event), "log_type", "audit", "request_id", requestID)
		e.logger.InfoContext(ctx, string(event), args...)
	}
	if e.auditPublisher == nil {
		return
	}
	if err := e.auditPublisher.Emit(ctx, audit.Event{
		Subject:    attrs.ExtractString(attributes, "subject"),
		ActorID:    attrs.ExtractString(attributes, "actor_id"),
		Action:     string(event),
		Reason:     attrs.ExtractString(attributes, "reason"),
		RequestID:  requestID,
		Attributes: attrs.ToStringMap(attributes, "subject", "actor_id", "reason"),
	}); err != nil && e.logger != nil {
		e.logger.WarnContext(ctx, "failed to emit audit event", "event", string(event), "error", err)
	}
}
