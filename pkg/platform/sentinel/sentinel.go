package sentinel

import "errors"

// Sentinel errors for storage facts. Repositories return these (optionally wrapped)
// so services can translate them into coded domain errors:
//   - ErrNotFound: entity does not exist
//   - ErrAlreadyUsed: a unique key is taken (email, username, event+student pair)
//     or a one-shot transition already happened (registration already claimed)
//   - ErrInvalidState: entity is in the wrong state for the requested mutation
//   - ErrConflict: concurrent writer won a race the caller cannot retry blindly
//   - ErrUnavailable: backing service temporarily unavailable
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrAlreadyUsed  = errors.New("already used")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
