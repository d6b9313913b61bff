package model

import "errors"

// Common errors used across the application
var (
	// Player / ledger errors
	ErrPlayerNotFound      = errors.New("player not found")
	ErrDuplicatePlayer     = errors.New("player id already exists")
	ErrEmptyPlayerID       = errors.New("player id cannot be empty")
	ErrEmptyName           = errors.New("player name cannot be empty")
	ErrInvalidAmount       = errors.New("amount must be a positive integer")
	ErrUnknownStall        = errors.New("stall has no counter on this record")
	ErrInsufficientBalance = errors.New("insufficient balance")

	// Stall registry errors
	ErrStallNotFound  = errors.New("stall not found")
	ErrDuplicateStall = errors.New("stall id already exists")
	ErrInvalidStallID = errors.New("stall id must be an identifier and not reserved")
	ErrMissingField   = errors.New("required field is empty")

	// Consistency errors from the two-phase stall lifecycle. RolledBack means
	// the compensating step restored a clean state; Unrecoverable means it did
	// not and an operator has to intervene.
	ErrPartialCreateRolledBack    = errors.New("stall change failed and was rolled back")
	ErrPartialCreateUnrecoverable = errors.New("stall change failed and rollback also failed; manual intervention required")

	// Concurrency / infrastructure errors
	ErrPreconditionFailed     = errors.New("record changed since it was read")
	ErrConflictRetryExhausted = errors.New("too many concurrent updates, retry the operation")
	ErrTimeout                = errors.New("operation timed out")

	// Auth errors
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidSession     = errors.New("invalid or expired session")
	ErrForbidden          = errors.New("operation not permitted for this session")
)
