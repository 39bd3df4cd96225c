// Package ledger implements badge ledgers: the system of record for
// collections, minted serials, and their owners.
package ledger

import "errors"

var (
	// ErrRecipientNotAssociated is returned when the recipient wallet has not
	// opted in to receive units of the collection.
	ErrRecipientNotAssociated = errors.New("recipient not associated with collection")
	// ErrInvalidRecipient is returned for recipients the ledger cannot address.
	ErrInvalidRecipient = errors.New("invalid recipient")
	// ErrUnknownSerial is returned when the serial was never minted in the collection.
	ErrUnknownSerial = errors.New("unknown serial")
	// ErrTransactionFailed is returned when the ledger accepted a transaction
	// but reported it as failed.
	ErrTransactionFailed = errors.New("ledger transaction failed")
)
