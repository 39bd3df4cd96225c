// Package issuer mints attendance badges. It combines a content store, which
// holds badge images and metadata, with a ledger that records collections
// and the ownership of minted serials.
package issuer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"proofpass/internal/issuer/content"
	"proofpass/internal/issuer/ledger"
	"proofpass/internal/issuer/metrics"
	"proofpass/pkg/domain"
	"proofpass/pkg/platform/circuit"
	"proofpass/pkg/platform/sentinel"
)

// Issuer is the credential issuer consumed by the attendance services.
// Every call may block on the network; failures are plain errors and callers
// decide how to classify them.
type Issuer interface {
	// CreateCollection provisions a new badge collection.
	CreateCollection(ctx context.Context, name, symbol string) (domain.CollectionID, error)
	// UploadContent stores raw bytes or a structured object and returns its content id.
	UploadContent(ctx context.Context, object any) (domain.ContentID, error)
	// Mint creates one unit in the collection bound to contentRef, owned by the issuer.
	Mint(ctx context.Context, collectionID domain.CollectionID, contentRef domain.ContentID) (domain.Serial, error)
	// Transfer moves a minted unit from the issuer to the recipient wallet.
	Transfer(ctx context.Context, collectionID domain.CollectionID, serial domain.Serial, to string) error
}

// ContentStore persists immutable blobs under content ids.
type ContentStore interface {
	Put(ctx context.Context, data []byte) (domain.ContentID, error)
	Get(ctx context.Context, id domain.ContentID) ([]byte, error)
}

// Ledger records collections, serials and owners.
type Ledger interface {
	CreateCollection(ctx context.Context, name, symbol string) (domain.CollectionID, error)
	Mint(ctx context.Context, collectionID domain.CollectionID, contentRef domain.ContentID) (domain.Serial, error)
	Transfer(ctx context.Context, collectionID domain.CollectionID, serial domain.Serial, to string) error
}

const (
	opCreateCollection = "create_collection"
	opUpload           = "upload"
	opMint             = "mint"
	opTransfer         = "transfer"

	outcomeOK       = "ok"
	outcomeError    = "error"
	outcomeTimeout  = "timeout"
	outcomeRejected = "rejected"
)

var tracer = otel.Tracer("proofpass/internal/issuer")

// Service implements Issuer over a content store and a ledger.
type Service struct {
	content ContentStore
	ledger  Ledger
	timeout time.Duration
	breaker *circuit.Breaker
	logger  *slog.Logger
	metrics *metrics.Metrics
}

var _ Issuer = (*Service)(nil)

type Option func(*Service)

// WithTimeout bounds every issuer call.
func WithTimeout(d time.Duration) Option {
	return func(s *Service) {
		s.timeout = d
	}
}

// WithBreaker guards ledger calls. While the breaker is open, ledger calls
// fail immediately with sentinel.ErrUnavailable.
func WithBreaker(b *circuit.Breaker) Option {
	return func(s *Service) {
		s.breaker = b
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

// New composes a content store and a ledger into an Issuer.
func New(store ContentStore, l Ledger, opts ...Option) *Service {
	s := &Service{content: store, ledger: l}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) CreateCollection(ctx context.Context, name, symbol string) (domain.CollectionID, error) {
	var id domain.CollectionID
	err := s.call(ctx, opCreateCollection, true, []attribute.KeyValue{
		attribute.String("collection.name", name),
	}, func(ctx context.Context) error {
		var err error
		id, err = s.ledger.CreateCollection(ctx, name, symbol)
		return err
	})
	return id, err
}

func (s *Service) UploadContent(ctx context.Context, object any) (domain.ContentID, error) {
	data, err := content.Encode(object)
	if err != nil {
		return "", err
	}
	var id domain.ContentID
	err = s.call(ctx, opUpload, false, []attribute.KeyValue{
		attribute.Int("content.size", len(data)),
	}, func(ctx context.Context) error {
		var err error
		id, err = s.content.Put(ctx, data)
		return err
	})
	return id, err
}

func (s *Service) Mint(ctx context.Context, collectionID domain.CollectionID, contentRef domain.ContentID) (domain.Serial, error) {
	var serial domain.Serial
	err := s.call(ctx, opMint, true, []attribute.KeyValue{
		attribute.String("collection.id", collectionID.String()),
		attribute.String("content.id", contentRef.String()),
	}, func(ctx context.Context) error {
		var err error
		serial, err = s.ledger.Mint(ctx, collectionID, contentRef)
		return err
	})
	return serial, err
}

func (s *Service) Transfer(ctx context.Context, collectionID domain.CollectionID, serial domain.Serial, to string) error {
	return s.call(ctx, opTransfer, true, []attribute.KeyValue{
		attribute.String("collection.id", collectionID.String()),
		attribute.String("badge.serial", serial.String()),
	}, func(ctx context.Context) error {
		return s.ledger.Transfer(ctx, collectionID, serial, to)
	})
}

// call runs fn under the configured timeout inside a span. Ledger calls also
// pass through the breaker.
func (s *Service) call(ctx context.Context, op string, guarded bool, attrs []attribute.KeyValue, fn func(context.Context) error) error {
	ctx, span := tracer.Start(ctx, "issuer."+op, trace.WithAttributes(attrs...))
	defer span.End()

	if guarded && s.breaker != nil && !s.breaker.Allow() {
		s.metrics.IncBreakerRejected(op)
		s.metrics.ObserveCall(op, outcomeRejected, 0)
		err := fmt.Errorf("ledger %s: %w", op, sentinel.ErrUnavailable)
		span.RecordError(err)
		span.SetStatus(codes.Error, "breaker open")
		return err
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)

	if guarded {
		s.recordBreaker(ctx, op, err)
	}

	if err != nil {
		outcome := outcomeError
		if errors.Is(err, context.DeadlineExceeded) {
			outcome = outcomeTimeout
		}
		s.metrics.ObserveCall(op, outcome, elapsed)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("issuer %s: %w", op, err)
	}
	s.metrics.ObserveCall(op, outcomeOK, elapsed)
	return nil
}

func (s *Service) recordBreaker(ctx context.Context, op string, err error) {
	if s.breaker == nil {
		return
	}
	if err == nil || !isLedgerFault(err) {
		if _, change := s.breaker.RecordSuccess(); change.Closed {
			s.metrics.SetBreakerOpen(false)
			s.logInfo(ctx, "ledger breaker closed", "breaker", s.breaker.Name())
		}
		return
	}
	if _, change := s.breaker.RecordFailure(); change.Opened {
		s.metrics.SetBreakerOpen(true)
		s.logWarn(ctx, "ledger breaker opened", "breaker", s.breaker.Name(), "operation", op, "error", err)
	}
}

// isLedgerFault reports whether err means the ledger itself misbehaved, as
// opposed to rejecting a well-formed request on its merits.
func isLedgerFault(err error) bool {
	switch {
	case errors.Is(err, ledger.ErrRecipientNotAssociated),
		errors.Is(err, ledger.ErrInvalidRecipient),
		errors.Is(err, ledger.ErrUnknownSerial):
		return false
	}
	return true
}

func (s *Service) logInfo(ctx context.Context, msg string, args ...any) {
	if s.logger != nil {
		s.logger.InfoContext(ctx, msg, args...)
	}
}

func (s *Service) logWarn(ctx context.Context, msg string, args ...any) {
	if s.logger != nil {
		s.logger.WarnContext(ctx, msg, args...)
	}
}
