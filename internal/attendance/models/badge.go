package models

import (
	"proofpass/pkg/domain"
)

// BadgeMetadata is the document uploaded to the content store and
// referenced by a minted badge.
type BadgeMetadata struct {
	Name        string              `json:"name" cbor:"name"`
	Description string              `json:"description" cbor:"description"`
	Image       string              `json:"image" cbor:"image"`
	Attributes  []MetadataAttribute `json:"attributes" cbor:"attributes"`
}

type MetadataAttribute struct {
	TraitType string `json:"trait_type" cbor:"trait_type"`
	Value     string `json:"value" cbor:"value"`
}

// ClaimResult is returned by a successful claim.
type ClaimResult struct {
	CollectionID domain.CollectionID `json:"collectionId"`
	Serial       domain.Serial       `json:"serial"`
	MetadataCID  domain.ContentID    `json:"metadataCID"`
	Registration *Registration       `json:"registration"`
}

// VerificationResult is the public statement about one issued badge.
type VerificationResult struct {
	Verified      bool                `json:"verified"`
	CollectionID  domain.CollectionID `json:"collectionId"`
	Serial        domain.Serial       `json:"serial"`
	OwnerWallet   string              `json:"ownerWallet"`
	EventName     string              `json:"eventName"`
	IssuerName    string              `json:"issuerName"`
	Date          string              `json:"date"`
	BadgeImageRef domain.ContentID    `json:"badgeImageRef,omitempty"`
	MetadataRef   domain.ContentID    `json:"metadataRef"`
}

// OrganizerStats summarises an organizer's events.
type OrganizerStats struct {
	TotalEvents        int `json:"totalEvents"`
	TotalRegistrations int `json:"totalRegistrations"`
	TotalClaimed       int `json:"totalClaimed"`
	ActiveEvents       int `json:"activeEvents"`
}

// EventWithRegistration pairs an event with the caller's registration, if any.
type EventWithRegistration struct {
	Event        *Event        `json:"event"`
	Registration *Registration `json:"registration,omitempty"`
}

// Badge is a claimed registration joined with its event for a student's wallet view.
type Badge struct {
	Event        *Event        `json:"event"`
	Registration *Registration `json:"registration"`
}
