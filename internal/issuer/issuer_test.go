package issuer

//go:generate mockgen -source=issuer.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"proofpass/internal/issuer/content"
	"proofpass/internal/issuer/ledger"
	"proofpass/internal/issuer/mocks"
	"proofpass/pkg/domain"
	"proofpass/pkg/platform/circuit"
	"proofpass/pkg/platform/sentinel"
)

type IssuerSuite struct {
	suite.Suite
	ctx context.Context
}

func TestIssuerSuite(t *testing.T) {
	suite.Run(t, new(IssuerSuite))
}

func (s *IssuerSuite) SetupTest() {
	s.ctx = context.Background()
}

func (s *IssuerSuite) TestIssueWithMockLedger() {
	store := content.NewMemory()
	mockLedger := ledger.NewMock()
	svc := New(store, mockLedger)

	collection, err := svc.CreateCollection(s.ctx, "DevFest", "POAP")
	s.Require().NoError(err)
	s.Equal(domain.CollectionID("0.0.1000000"), collection)

	metadataRef, err := svc.UploadContent(s.ctx, map[string]string{"name": "DevFest"})
	s.Require().NoError(err)
	stored, err := store.Get(s.ctx, metadataRef)
	s.Require().NoError(err)
	s.Equal(content.ID(stored), metadataRef)

	serial, err := svc.Mint(s.ctx, collection, metadataRef)
	s.Require().NoError(err)
	s.Equal(domain.Serial("1"), serial)

	s.Require().NoError(svc.Transfer(s.ctx, collection, serial, "0.0.7777"))
	owner, err := mockLedger.Owner(s.ctx, collection, serial)
	s.Require().NoError(err)
	s.Equal("0.0.7777", owner)
}

func (s *IssuerSuite) TestUploadContent() {
	svc := New(content.NewMemory(), ledger.NewMock())

	s.Run("equal objects share an id", func() {
		a, err := svc.UploadContent(s.ctx, map[string]any{"x": 1, "y": "z"})
		s.Require().NoError(err)
		b, err := svc.UploadContent(s.ctx, map[string]any{"y": "z", "x": 1})
		s.Require().NoError(err)
		s.Equal(a, b)
	})

	s.Run("raw bytes are stored as given", func() {
		id, err := svc.UploadContent(s.ctx, []byte("png"))
		s.Require().NoError(err)
		s.Equal(content.ID([]byte("png")), id)
	})

	s.Run("nil object fails", func() {
		_, err := svc.UploadContent(s.ctx, nil)
		s.Error(err)
	})
}

func (s *IssuerSuite) TestTimeout() {
	ctrl := gomock.NewController(s.T())
	l := mocks.NewMockLedger(ctrl)
	l.EXPECT().Mint(gomock.Any(), domain.CollectionID("0.0.1"), domain.ContentID("b3aa")).
		DoAndReturn(func(ctx context.Context, _ domain.CollectionID, _ domain.ContentID) (domain.Serial, error) {
			<-ctx.Done()
			return "", ctx.Err()
		})

	svc := New(content.NewMemory(), l, WithTimeout(20*time.Millisecond))
	_, err := svc.Mint(s.ctx, "0.0.1", "b3aa")
	s.ErrorIs(err, context.DeadlineExceeded)
}

func (s *IssuerSuite) TestBreaker() {
	s.Run("opens after consecutive ledger failures", func() {
		ctrl := gomock.NewController(s.T())
		l := mocks.NewMockLedger(ctrl)
		boom := errors.New("rpc unreachable")
		l.EXPECT().Mint(gomock.Any(), gomock.Any(), gomock.Any()).Return(domain.Serial(""), boom).Times(2)

		breaker := circuit.New("ledger", circuit.WithFailureThreshold(2), circuit.WithCooldown(time.Hour))
		svc := New(content.NewMemory(), l, WithBreaker(breaker))

		for range 2 {
			_, err := svc.Mint(s.ctx, "0.0.1", "b3aa")
			s.ErrorIs(err, boom)
		}
		s.True(breaker.IsOpen())

		_, err := svc.Mint(s.ctx, "0.0.1", "b3aa")
		s.ErrorIs(err, sentinel.ErrUnavailable)
	})

	s.Run("rejections on the merits do not trip it", func() {
		ctrl := gomock.NewController(s.T())
		l := mocks.NewMockLedger(ctrl)
		l.EXPECT().Transfer(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(ledger.ErrRecipientNotAssociated).Times(3)

		breaker := circuit.New("ledger", circuit.WithFailureThreshold(2))
		svc := New(content.NewMemory(), l, WithBreaker(breaker))

		for range 3 {
			err := svc.Transfer(s.ctx, "0.0.1", "1", "0.0.9")
			s.ErrorIs(err, ledger.ErrRecipientNotAssociated)
		}
		s.False(breaker.IsOpen())
	})

	s.Run("content uploads bypass the breaker", func() {
		ctrl := gomock.NewController(s.T())
		l := mocks.NewMockLedger(ctrl)
		breaker := circuit.New("ledger", circuit.WithFailureThreshold(1), circuit.WithCooldown(time.Hour))
		breaker.RecordFailure()
		s.Require().True(breaker.IsOpen())

		svc := New(content.NewMemory(), l, WithBreaker(breaker))
		_, err := svc.UploadContent(s.ctx, []byte("image"))
		s.NoError(err)
	})
}
