package ledger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"proofpass/pkg/domain"
)

type MockLedgerSuite struct {
	suite.Suite
	ledger *Mock
	ctx    context.Context
}

func TestMockLedgerSuite(t *testing.T) {
	suite.Run(t, new(MockLedgerSuite))
}

func (s *MockLedgerSuite) SetupTest() {
	s.ledger = NewMock(WithUnassociated("0.0.blocked"))
	s.ctx = context.Background()
}

func (s *MockLedgerSuite) TestCreateCollection() {
	first, err := s.ledger.CreateCollection(s.ctx, "Hackathon", "POAP")
	s.Require().NoError(err)
	second, err := s.ledger.CreateCollection(s.ctx, "Meetup", "POAP")
	s.Require().NoError(err)

	s.Equal(domain.CollectionID("0.0.1000000"), first)
	s.Equal(domain.CollectionID("0.0.1000001"), second)
}

func (s *MockLedgerSuite) TestMintAndTransfer() {
	collection, err := s.ledger.CreateCollection(s.ctx, "Hackathon", "POAP")
	s.Require().NoError(err)

	s.Run("serials count up per collection", func() {
		one, err := s.ledger.Mint(s.ctx, collection, "b3aa")
		s.Require().NoError(err)
		two, err := s.ledger.Mint(s.ctx, collection, "b3bb")
		s.Require().NoError(err)
		s.Equal(domain.Serial("1"), one)
		s.Equal(domain.Serial("2"), two)
		s.Equal(2, s.ledger.Minted(collection))
	})

	s.Run("transfer moves ownership", func() {
		s.Require().NoError(s.ledger.Transfer(s.ctx, collection, "1", "0.0.5005"))
		owner, err := s.ledger.Owner(s.ctx, collection, "1")
		s.Require().NoError(err)
		s.Equal("0.0.5005", owner)
	})

	s.Run("unassociated recipient is rejected", func() {
		err := s.ledger.Transfer(s.ctx, collection, "2", "0.0.blocked")
		s.ErrorIs(err, ErrRecipientNotAssociated)
		owner, err := s.ledger.Owner(s.ctx, collection, "2")
		s.Require().NoError(err)
		s.Equal("0.0.treasury", owner)
	})

	s.Run("unknown serial is rejected", func() {
		s.ErrorIs(s.ledger.Transfer(s.ctx, collection, "9", "0.0.5005"), ErrUnknownSerial)
		s.ErrorIs(s.ledger.Transfer(s.ctx, "0.0.42", "1", "0.0.5005"), ErrUnknownSerial)
	})

	s.Run("empty recipient is rejected", func() {
		s.ErrorIs(s.ledger.Transfer(s.ctx, collection, "1", " "), ErrInvalidRecipient)
	})
}

func (s *MockLedgerSuite) TestMintIntoPlaceholderCollection() {
	serial, err := s.ledger.Mint(s.ctx, "0.0.4242424", "b3cc")
	s.Require().NoError(err)
	s.Equal(domain.Serial("1"), serial)
}
