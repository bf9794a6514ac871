package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally wrapped)
// so the admission service can tell a missing record from a broken backend.
//
// Business outcomes (course full, already applied, not applied) are never errors;
// they travel as rejected decisions.
//
// - ErrNotFound: entity does not exist in store
// - ErrInvalidInput: request is missing a required field
// - ErrConflict: a concurrent writer won the same row
// - ErrInvalidState: entity in wrong state for requested operation
// - ErrUnavailable: backend temporarily unavailable
// - ErrInvariantViolation: ledger and registrations disagree
var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidInput       = errors.New("invalid input")
	ErrConflict           = errors.New("conflict")
	ErrInvalidState       = errors.New("invalid state")
	ErrUnavailable        = errors.New("unavailable")
	ErrInvariantViolation = errors.New("invariant violation")
)
