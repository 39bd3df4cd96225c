package domain

import (
	"strings"

	dErrors "proofpass/pkg/domain-errors"
)

// Ledger and content-store references are opaque strings minted by external
// collaborators. Distinct types stop a serial from being passed as a
// collection id.
type (
	// CollectionID identifies the ledger grouping a badge is minted under (one per event).
	CollectionID string
	// Serial identifies one minted badge inside its collection.
	Serial string
	// ContentID is a content-addressed reference to an uploaded object.
	ContentID string
)

func (c CollectionID) String() string { return string(c) }
func (s Serial) String() string       { return string(s) }
func (c ContentID) String() string    { return string(c) }

func (c CollectionID) IsZero() bool { return c == "" }
func (s Serial) IsZero() bool       { return s == "" }
func (c ContentID) IsZero() bool    { return c == "" }

// ParseCollectionID validates a collection id supplied by a caller.
func ParseCollectionID(s string) (CollectionID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "collection id is required")
	}
	if len(s) > 128 {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid collection id")
	}
	return CollectionID(s), nil
}

// ParseSerial validates a serial supplied by a caller.
func ParseSerial(s string) (Serial, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "serial is required")
	}
	if len(s) > 78 {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid serial")
	}
	return Serial(s), nil
}
