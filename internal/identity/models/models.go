// Package models holds the identity request and response shapes.
package models

import (
	"time"

	"github.com/google/uuid"

	attendance "proofpass/internal/attendance/models"
	"proofpass/pkg/domain"
)

type RegisterOrganizerRequest struct {
	Name          string `json:"name" validate:"max=100"`
	Email         string `json:"email" validate:"required,email,max=254"`
	Password      string `json:"password" validate:"required,min=6,max=72"`
	WalletAddress string `json:"walletAddress" validate:"max=128"`
}

type RegisterStudentRequest struct {
	Name          string `json:"name" validate:"max=100"`
	Email         string `json:"email" validate:"required,email,max=254"`
	Password      string `json:"password" validate:"required,min=6,max=72"`
	WalletAddress string `json:"walletAddress" validate:"max=128"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,max=254"`
	Password string `json:"password" validate:"required,max=72"`
}

type LinkWalletRequest struct {
	WalletAddress string `json:"walletAddress" validate:"required,max=128"`
}

// ProfileRequest is the student's self-declared profile. The same fields are
// published to the content store and referenced from issued badges.
type ProfileRequest struct {
	Name       string `json:"name" validate:"required,max=100"`
	College    string `json:"college" validate:"max=200"`
	Department string `json:"department" validate:"max=200"`
	RollNumber string `json:"rollNumber" validate:"max=64"`
}

// Account is the role-neutral view of an organizer or student.
type Account struct {
	ID            uuid.UUID        `json:"id"`
	Role          domain.Role      `json:"role"`
	Email         string           `json:"email"`
	Name          string           `json:"name,omitempty"`
	WalletAddress string           `json:"walletAddress,omitempty"`
	ProfileCID    domain.ContentID `json:"profileCID,omitempty"`
	College       string           `json:"college,omitempty"`
	Department    string           `json:"department,omitempty"`
	RollNumber    string           `json:"rollNumber,omitempty"`
}

// Session is returned by sign-up and login.
type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      Account   `json:"user"`
}

func OrganizerAccount(o *attendance.Organizer) Account {
	return Account{
		ID:            uuid.UUID(o.ID),
		Role:          domain.RoleOrganizer,
		Email:         o.Email,
		Name:          o.Name,
		WalletAddress: o.WalletAddress,
	}
}

func StudentAccount(s *attendance.Student) Account {
	return Account{
		ID:            uuid.UUID(s.ID),
		Role:          domain.RoleStudent,
		Email:         s.Email,
		Name:          s.Name,
		WalletAddress: s.WalletAddress,
		ProfileCID:    s.ProfileCID,
		College:       s.College,
		Department:    s.Department,
		RollNumber:    s.RollNumber,
	}
}
