package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally wrapped)
// so services can translate them into domain errors or decision reasons.
//
//   - ErrNotFound: entity does not exist in store
//   - ErrConflict: optimistic-concurrency or serialization conflict; safe to retry
//   - ErrAlreadyUsed: idempotency reference already consumed
//   - ErrInvalidState: entity in wrong state for requested operation
//   - ErrUnavailable: store or lock backend temporarily unavailable
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrAlreadyUsed  = errors.New("already used")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
