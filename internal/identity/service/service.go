// Package service implements organizer and student accounts: sign-up, login,
// token issuance and student self-service (wallet and profile).
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	attendance "proofpass/internal/attendance/models"
	"proofpass/internal/identity/models"
	"proofpass/internal/identity/password"
	"proofpass/internal/issuer"
	"proofpass/pkg/attrs"
	"proofpass/pkg/domain"
	dErrors "proofpass/pkg/domain-errors"
	"proofpass/pkg/email"
	"proofpass/pkg/platform/audit"
	"proofpass/pkg/platform/sentinel"
	"proofpass/pkg/platform/validation"
	"proofpass/pkg/requestcontext"
)

type Store interface {
	CreateOrganizer(ctx context.Context, o *attendance.Organizer) error
	FindOrganizerByID(ctx context.Context, id domain.OrganizerID) (*attendance.Organizer, error)
	FindOrganizerByEmail(ctx context.Context, email string) (*attendance.Organizer, error)

	CreateStudent(ctx context.Context, s *attendance.Student) error
	FindStudentByID(ctx context.Context, id domain.StudentID) (*attendance.Student, error)
	FindStudentByEmail(ctx context.Context, email string) (*attendance.Student, error)
	ExecuteStudent(ctx context.Context, id domain.StudentID, mutate func(*attendance.Student) error) (*attendance.Student, error)
}

// TokenIssuer signs access tokens for authenticated accounts.
type TokenIssuer interface {
	GenerateAccessToken(userID uuid.UUID, role domain.Role, email string) (string, error)
	TTL() time.Duration
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Service struct {
	store          Store
	tokens         TokenIssuer
	issuer         issuer.Issuer
	passwordCost   int
	auditPublisher AuditPublisher
	logger         *slog.Logger
}

type Option func(*Service)

// WithPasswordCost sets the bcrypt cost for new password hashes.
func WithPasswordCost(cost int) Option {
	return func(s *Service) {
		s.passwordCost = cost
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

// New wires the identity service. iss is used only to publish student
// profiles to the content store.
func New(store Store, tokens TokenIssuer, iss issuer.Issuer, opts ...Option) *Service {
	s := &Service{
		store:        store,
		tokens:       tokens,
		issuer:       iss,
		passwordCost: bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) RegisterOrganizer(ctx context.Context, req models.RegisterOrganizerRequest) (*models.Session, error) {
	req.Email = email.Normalize(req.Email)
	req.Name = strings.TrimSpace(req.Name)
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	if req.Name == "" {
		req.Name = email.DisplayName(req.Email)
	}

	hash, err := password.Hash(req.Password, s.passwordCost)
	if err != nil {
		return nil, err
	}
	organizer := &attendance.Organizer{
		ID:            domain.NewOrganizerID(),
		Name:          req.Name,
		Email:         req.Email,
		PasswordHash:  hash,
		WalletAddress: strings.TrimSpace(req.WalletAddress),
		CreatedAt:     requestcontext.Now(ctx),
	}
	if err := s.store.CreateOrganizer(ctx, organizer); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.New(dErrors.CodeConflict, "Email already registered")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create organizer")
	}

	s.logAudit(ctx, audit.EventOrganizerRegistered,
		"subject", organizer.ID,
		"actor_id", organizer.ID,
	)
	return s.session(models.OrganizerAccount(organizer))
}

func (s *Service) RegisterStudent(ctx context.Context, req models.RegisterStudentRequest) (*models.Session, error) {
	req.Email = email.Normalize(req.Email)
	req.Name = strings.TrimSpace(req.Name)
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	hash, err := password.Hash(req.Password, s.passwordCost)
	if err != nil {
		return nil, err
	}
	student := &attendance.Student{
		ID:            domain.NewStudentID(),
		Email:         req.Email,
		Name:          req.Name,
		PasswordHash:  hash,
		WalletAddress: strings.TrimSpace(req.WalletAddress),
		CreatedAt:     requestcontext.Now(ctx),
	}
	if err := s.store.CreateStudent(ctx, student); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.New(dErrors.CodeConflict, "Email already registered")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create student")
	}

	s.logAudit(ctx, audit.EventStudentRegistered,
		"subject", student.ID,
		"actor_id", student.ID,
		"wallet_linked", student.HasWallet(),
	)
	return s.session(models.StudentAccount(student))
}

func (s *Service) LoginOrganizer(ctx context.Context, req models.LoginRequest) (*models.Session, error) {
	req.Email = email.Normalize(req.Email)
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	organizer, err := s.store.FindOrganizerByEmail(ctx, req.Email)
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load organizer")
	}
	if err != nil {
		return nil, s.invalidCredentials(ctx, domain.RoleOrganizer, req.Email, "unknown email")
	}
	if err := s.checkPassword(ctx, domain.RoleOrganizer, req, organizer.PasswordHash); err != nil {
		return nil, err
	}
	return s.session(models.OrganizerAccount(organizer))
}

func (s *Service) LoginStudent(ctx context.Context, req models.LoginRequest) (*models.Session, error) {
	req.Email = email.Normalize(req.Email)
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	student, err := s.store.FindStudentByEmail(ctx, req.Email)
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load student")
	}
	if err != nil {
		return nil, s.invalidCredentials(ctx, domain.RoleStudent, req.Email, "unknown email")
	}
	if err := s.checkPassword(ctx, domain.RoleStudent, req, student.PasswordHash); err != nil {
		return nil, err
	}
	return s.session(models.StudentAccount(student))
}

func (s *Service) checkPassword(ctx context.Context, role domain.Role, req models.LoginRequest, hash string) error {
	err := password.Verify(req.Password, hash)
	if errors.Is(err, password.ErrMismatch) {
		return s.invalidCredentials(ctx, role, req.Email, "wrong password")
	}
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to verify credentials")
	}
	return nil
}

// invalidCredentials gives unknown emails and wrong passwords the same answer.
func (s *Service) invalidCredentials(ctx context.Context, role domain.Role, emailAddr, reason string) error {
	s.logAudit(ctx, audit.EventAuthFailed,
		"subject", emailAddr,
		"reason", reason,
		"role", role,
	)
	return dErrors.New(dErrors.CodeUnauthorized, "Invalid credentials")
}

func (s *Service) session(account models.Account) (*models.Session, error) {
	token, err := s.tokens.GenerateAccessToken(account.ID, account.Role, account.Email)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue token")
	}
	return &models.Session{
		Token:     token,
		ExpiresAt: time.Now().Add(s.tokens.TTL()),
		User:      account,
	}, nil
}

// Me returns the account behind the authenticated principal.
func (s *Service) Me(ctx context.Context, principal requestcontext.AuthPrincipal) (*models.Account, error) {
	var account models.Account
	switch principal.Role {
	case domain.RoleOrganizer:
		organizer, err := s.store.FindOrganizerByID(ctx, principal.OrganizerID())
		if err != nil {
			return nil, translateAccountErr(err)
		}
		account = models.OrganizerAccount(organizer)
	case domain.RoleStudent:
		student, err := s.store.FindStudentByID(ctx, principal.StudentID())
		if err != nil {
			return nil, translateAccountErr(err)
		}
		account = models.StudentAccount(student)
	default:
		return nil, dErrors.New(dErrors.CodeForbidden, "unsupported role")
	}
	return &account, nil
}

// LinkWallet sets the address badges are transferred to on future claims.
// Existing registrations keep the wallet they were created with.
func (s *Service) LinkWallet(ctx context.Context, studentID domain.StudentID, req models.LinkWalletRequest) (*models.Account, error) {
	req.WalletAddress = strings.TrimSpace(req.WalletAddress)
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	var previous string
	student, err := s.store.ExecuteStudent(ctx, studentID, func(st *attendance.Student) error {
		previous = st.WalletAddress
		st.WalletAddress = req.WalletAddress
		return nil
	})
	if err != nil {
		return nil, translateAccountErr(err)
	}

	s.logAudit(ctx, audit.EventWalletLinked,
		"subject", studentID,
		"actor_id", studentID,
		"replaced", previous != "" && previous != req.WalletAddress,
	)
	account := models.StudentAccount(student)
	return &account, nil
}

// UpdateProfile publishes the profile to the content store and records its
// content id on the student. Badges claimed afterwards reference it.
func (s *Service) UpdateProfile(ctx context.Context, studentID domain.StudentID, req models.ProfileRequest) (*models.Account, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.College = strings.TrimSpace(req.College)
	req.Department = strings.TrimSpace(req.Department)
	req.RollNumber = strings.TrimSpace(req.RollNumber)
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	if _, err := s.store.FindStudentByID(ctx, studentID); err != nil {
		return nil, translateAccountErr(err)
	}

	profileCID, err := s.issuer.UploadContent(ctx, map[string]string{
		"name":       req.Name,
		"college":    req.College,
		"department": req.Department,
		"rollNumber": req.RollNumber,
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to upload profile")
	}

	student, err := s.store.ExecuteStudent(ctx, studentID, func(st *attendance.Student) error {
		st.Name = req.Name
		st.College = req.College
		st.Department = req.Department
		st.RollNumber = req.RollNumber
		st.ProfileCID = profileCID
		return nil
	})
	if err != nil {
		return nil, translateAccountErr(err)
	}

	s.logAudit(ctx, audit.EventProfileUpdated,
		"subject", studentID,
		"actor_id", studentID,
		"profile_cid", profileCID,
	)
	account := models.StudentAccount(student)
	return &account, nil
}

func translateAccountErr(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "User not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load account")
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
