package models

import (
	"time"

	"proofpass/pkg/domain"
)

// Organizer owns events and appears as the badge issuer.
type Organizer struct {
	ID            domain.OrganizerID `json:"id"`
	Name          string             `json:"name"`
	Email         string             `json:"email"`
	PasswordHash  string             `json:"-"`
	WalletAddress string             `json:"walletAddress,omitempty"`
	CreatedAt     time.Time          `json:"createdAt"`
}

// Student registers for events and receives badges.
type Student struct {
	ID            domain.StudentID `json:"id"`
	Email         string           `json:"email"`
	PasswordHash  string           `json:"-"`
	WalletAddress string           `json:"walletAddress,omitempty"`
	ProfileCID    domain.ContentID `json:"profileCID,omitempty"`
	Name          string           `json:"name,omitempty"`
	College       string           `json:"college,omitempty"`
	Department    string           `json:"department,omitempty"`
	RollNumber    string           `json:"rollNumber,omitempty"`
	CreatedAt     time.Time        `json:"createdAt"`
}

func (s *Student) HasWallet() bool {
	return s.WalletAddress != ""
}

// User is a legacy username/password account kept for older clients.
type User struct {
	ID           domain.UserID `json:"id"`
	Username     string        `json:"username"`
	PasswordHash string        `json:"-"`
	CreatedAt    time.Time     `json:"createdAt"`
}
