package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
	"golang.org/x/crypto/bcrypt"

	"proofpass/internal/attendance/store"
	"proofpass/internal/identity/models"
	"proofpass/internal/issuer"
	"proofpass/internal/issuer/content"
	"proofpass/internal/issuer/ledger"
	"proofpass/internal/issuer/mocks"
	jwttoken "proofpass/internal/jwt_token"
	"proofpass/pkg/domain"
	dErrors "proofpass/pkg/domain-errors"
	"proofpass/pkg/platform/audit"
	"proofpass/pkg/platform/audit/publisher"
	auditmemory "proofpass/pkg/platform/audit/store/memory"
	"proofpass/pkg/requestcontext"
)

type IdentitySuite struct {
	suite.Suite
	ctx     context.Context
	store   *store.InMemory
	content *content.Memory
	audits  *auditmemory.InMemoryStore
	tokens  *jwttoken.JWTService
	service *Service
}

func TestIdentitySuite(t *testing.T) {
	suite.Run(t, new(IdentitySuite))
}

func (s *IdentitySuite) SetupTest() {
	s.ctx = context.Background()
	s.store = store.NewInMemory()
	s.content = content.NewMemory()
	s.audits = auditmemory.NewInMemoryStore()
	s.tokens = jwttoken.NewJWTService("test-key", "proofpass", time.Hour)
	s.service = s.newService(issuer.New(s.content, ledger.NewMock()))
}

func (s *IdentitySuite) newService(iss issuer.Issuer) *Service {
	return New(s.store, s.tokens, iss,
		WithPasswordCost(bcrypt.MinCost),
		WithAuditPublisher(publisher.NewPublisher(s.audits)),
	)
}

func (s *IdentitySuite) registerStudent(wallet string) *models.Session {
	session, err := s.service.RegisterStudent(s.ctx, models.RegisterStudentRequest{
		Email:         "Asha.K@College.edu",
		Password:      "s3cret-pass",
		WalletAddress: wallet,
	})
	s.Require().NoError(err)
	return session
}

func (s *IdentitySuite) TestRegisterOrganizer() {
	s.Run("issues a token carrying id and role", func() {
		session, err := s.service.RegisterOrganizer(s.ctx, models.RegisterOrganizerRequest{
			Email:    "events@psg.example",
			Password: "organizer-pass",
		})
		s.Require().NoError(err)
		s.Equal(domain.RoleOrganizer, session.User.Role)
		s.Equal("Events", session.User.Name)

		claims, err := s.tokens.ValidateToken(session.Token)
		s.Require().NoError(err)
		s.Equal(session.User.ID.String(), claims.Subject)
		s.Equal("organizer", claims.Role)

		stored, err := s.store.FindOrganizerByEmail(s.ctx, "events@psg.example")
		s.Require().NoError(err)
		s.NotEqual("organizer-pass", stored.PasswordHash)
	})

	s.Run("duplicate email conflicts", func() {
		_, err := s.service.RegisterOrganizer(s.ctx, models.RegisterOrganizerRequest{
			Email:    "EVENTS@psg.example",
			Password: "organizer-pass",
		})
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("invalid email is rejected", func() {
		_, err := s.service.RegisterOrganizer(s.ctx, models.RegisterOrganizerRequest{
			Email:    "not-an-email",
			Password: "organizer-pass",
		})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("short password is rejected", func() {
		_, err := s.service.RegisterOrganizer(s.ctx, models.RegisterOrganizerRequest{
			Email:    "other@psg.example",
			Password: "123",
		})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *IdentitySuite) TestRegisterStudent() {
	session := s.registerStudent("0.0.5005")
	s.Equal(domain.RoleStudent, session.User.Role)
	s.Equal("asha.k@college.edu", session.User.Email)
	s.Equal("0.0.5005", session.User.WalletAddress)

	events, err := s.audits.ListByAction(s.ctx, audit.EventStudentRegistered)
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal("true", events[0].Attributes["wallet_linked"])

	_, err = s.service.RegisterStudent(s.ctx, models.RegisterStudentRequest{
		Email:    "asha.k@college.edu",
		Password: "another-pass",
	})
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
}

func (s *IdentitySuite) TestLogin() {
	s.registerStudent("")

	s.Run("valid credentials", func() {
		session, err := s.service.LoginStudent(s.ctx, models.LoginRequest{Email: " asha.k@college.edu ", Password: "s3cret-pass"})
		s.Require().NoError(err)
		s.NotEmpty(session.Token)
		s.Equal(domain.RoleStudent, session.User.Role)
	})

	s.Run("wrong password and unknown email look the same", func() {
		_, wrong := s.service.LoginStudent(s.ctx, models.LoginRequest{Email: "asha.k@college.edu", Password: "nope-nope"})
		_, unknown := s.service.LoginStudent(s.ctx, models.LoginRequest{Email: "ghost@college.edu", Password: "nope-nope"})
		s.True(dErrors.HasCode(wrong, dErrors.CodeUnauthorized))
		s.Equal(wrong.Error(), unknown.Error())
		s.Equal("Invalid credentials", wrong.Error())

		failures, err := s.audits.ListByAction(s.ctx, audit.EventAuthFailed)
		s.Require().NoError(err)
		s.Len(failures, 2)
		s.Equal(audit.CategorySecurity, failures[0].Category)
	})

	s.Run("student credentials do not open the organizer door", func() {
		_, err := s.service.LoginOrganizer(s.ctx, models.LoginRequest{Email: "asha.k@college.edu", Password: "s3cret-pass"})
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}

func (s *IdentitySuite) TestMe() {
	session := s.registerStudent("")
	principal := requestcontext.AuthPrincipal{ID: session.User.ID, Role: domain.RoleStudent}

	account, err := s.service.Me(s.ctx, principal)
	s.Require().NoError(err)
	s.Equal(session.User.ID, account.ID)

	_, err = s.service.Me(s.ctx, requestcontext.AuthPrincipal{ID: uuid.New(), Role: domain.RoleOrganizer})
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *IdentitySuite) TestLinkWallet() {
	session := s.registerStudent("")
	studentID := domain.StudentID(session.User.ID)

	account, err := s.service.LinkWallet(s.ctx, studentID, models.LinkWalletRequest{WalletAddress: " 0.0.7777 "})
	s.Require().NoError(err)
	s.Equal("0.0.7777", account.WalletAddress)

	stored, err := s.store.FindStudentByID(s.ctx, studentID)
	s.Require().NoError(err)
	s.True(stored.HasWallet())

	_, err = s.service.LinkWallet(s.ctx, studentID, models.LinkWalletRequest{WalletAddress: "  "})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = s.service.LinkWallet(s.ctx, domain.NewStudentID(), models.LinkWalletRequest{WalletAddress: "0.0.1"})
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *IdentitySuite) TestUpdateProfile() {
	session := s.registerStudent("0.0.5005")
	studentID := domain.StudentID(session.User.ID)
	req := models.ProfileRequest{Name: "Asha K", College: "PSG Tech", Department: "CSE", RollNumber: "21CS042"}

	account, err := s.service.UpdateProfile(s.ctx, studentID, req)
	s.Require().NoError(err)
	s.Equal("Asha K", account.Name)
	s.False(account.ProfileCID.IsZero())

	_, err = s.content.Get(s.ctx, account.ProfileCID)
	s.NoError(err)

	again, err := s.service.UpdateProfile(s.ctx, studentID, req)
	s.Require().NoError(err)
	s.Equal(account.ProfileCID, again.ProfileCID)

	updated, err := s.audits.ListByAction(s.ctx, audit.EventProfileUpdated)
	s.Require().NoError(err)
	s.Len(updated, 2)
}

func (s *IdentitySuite) TestUpdateProfileUploadFailure() {
	session := s.registerStudent("")
	ctrl := gomock.NewController(s.T())
	iss := mocks.NewMockIssuer(ctrl)
	iss.EXPECT().UploadContent(gomock.Any(), gomock.Any()).Return(domain.ContentID(""), errors.New("store down"))
	svc := s.newService(iss)

	_, err := svc.UpdateProfile(s.ctx, domain.StudentID(session.User.ID), models.ProfileRequest{Name: "Asha"})
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))

	stored, err := s.store.FindStudentByID(s.ctx, domain.StudentID(session.User.ID))
	s.Require().NoError(err)
	s.True(stored.ProfileCID.IsZero())
	s.Empty(stored.Name)
}
