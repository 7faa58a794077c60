package models

import "errors"

var (
	// ErrValidation is returned when input to a write is malformed or out of policy.
	ErrValidation = errors.New("validation error")

	// ErrTransactionNotFound is returned when a point lookup matches no row.
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrStoreUnavailable is returned when the durable store cannot serve a call.
	// Callers may retry.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrInvariantViolation is reported by ledger audits when stored snapshots
	// do not form a running sum. It is never returned while serving requests.
	ErrInvariantViolation = errors.New("ledger invariant violation")
)
