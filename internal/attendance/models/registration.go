package models

import (
	"time"

	"proofpass/pkg/domain"
	dErrors "proofpass/pkg/domain-errors"
)

// Registration records one student's intent to attend one event.
//
// Invariants:
//   - at most one registration per (EventID, StudentID)
//   - Claimed is monotonic
//   - Serial, MetadataCID and ClaimedAt are set only together with Claimed
type Registration struct {
	ID            domain.RegistrationID `json:"id"`
	EventID       domain.EventID        `json:"eventId"`
	StudentID     domain.StudentID      `json:"studentId"`
	WalletAddress string                `json:"studentWallet,omitempty"`
	RegisteredAt  time.Time             `json:"registeredAt"`
	Claimed       bool                  `json:"claimed"`
	ClaimedAt     *time.Time            `json:"claimedAt,omitempty"`
	Serial        domain.Serial         `json:"nftSerial,omitempty"`
	MetadataCID   domain.ContentID      `json:"metadataCID,omitempty"`
}

func NewRegistration(id domain.RegistrationID, eventID domain.EventID, studentID domain.StudentID, wallet string, now time.Time) *Registration {
	return &Registration{
		ID:            id,
		EventID:       eventID,
		StudentID:     studentID,
		WalletAddress: wallet,
		RegisteredAt:  now,
	}
}

// ClaimRecord is the complete set of fields written by a successful claim.
type ClaimRecord struct {
	Serial      domain.Serial
	MetadataCID domain.ContentID
	ClaimedAt   time.Time
}

// Validate rejects partial claim records.
func (c ClaimRecord) Validate() error {
	if c.Serial.IsZero() || c.MetadataCID.IsZero() || c.ClaimedAt.IsZero() {
		return dErrors.New(dErrors.CodeInvariantViolation, "claim requires serial, metadata and timestamp")
	}
	return nil
}

// ApplyClaim marks the registration claimed. Callers must hold the store's
// write lock or run inside its compare-and-swap.
func (r *Registration) ApplyClaim(rec ClaimRecord) {
	claimedAt := rec.ClaimedAt
	r.Claimed = true
	r.ClaimedAt = &claimedAt
	r.Serial = rec.Serial
	r.MetadataCID = rec.MetadataCID
}
