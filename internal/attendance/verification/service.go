// Package verification answers public questions about issued badges.
package verification

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"proofpass/internal/attendance/metrics"
	"proofpass/internal/attendance/models"
	"proofpass/pkg/domain"
	dErrors "proofpass/pkg/domain-errors"
	"proofpass/pkg/platform/sentinel"
)

type Store interface {
	FindEventByCollectionID(ctx context.Context, collectionID domain.CollectionID) (*models.Event, error)
	FindClaimedBySerial(ctx context.Context, eventID domain.EventID, serial domain.Serial) (*models.Registration, error)
	FindStudentByID(ctx context.Context, id domain.StudentID) (*models.Student, error)
	FindOrganizerByID(ctx context.Context, id domain.OrganizerID) (*models.Organizer, error)
}

// Service verifies badges. Verification only reads, so repeated calls with
// the same input return the same result.
type Service struct {
	store   Store
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Service)

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

func New(store Store, opts ...Option) *Service {
	s := &Service{store: store}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Verify resolves (collectionID, serial) to the claimed badge it names.
func (s *Service) Verify(ctx context.Context, collectionID domain.CollectionID, serial domain.Serial) (result *models.VerificationResult, err error) {
	defer func() {
		outcome := "verified"
		if err != nil {
			outcome = string(dErrors.CodeOf(err))
		}
		s.metrics.IncVerification(outcome)
	}()

	event, err := s.store.FindEventByCollectionID(ctx, collectionID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "Token not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load event")
	}

	reg, err := s.store.FindClaimedBySerial(ctx, event.ID, serial)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "Badge not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load registration")
	}

	ownerWallet := reg.WalletAddress
	var issuerName string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		student, err := s.store.FindStudentByID(gctx, reg.StudentID)
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if student.HasWallet() {
			ownerWallet = student.WalletAddress
		}
		return nil
	})
	g.Go(func() error {
		organizer, err := s.store.FindOrganizerByID(gctx, event.OrganizerID)
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		issuerName = organizer.Name
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve badge parties")
	}

	return &models.VerificationResult{
		Verified:      true,
		CollectionID:  event.CollectionID,
		Serial:        reg.Serial,
		OwnerWallet:   ownerWallet,
		EventName:     event.Name,
		IssuerName:    issuerName,
		Date:          event.Date,
		BadgeImageRef: event.BadgeImageCID,
		MetadataRef:   reg.MetadataCID,
	}, nil
}
