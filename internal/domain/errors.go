package domain

import "errors"

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Domain errors are pure, with no infrastructure dependency.

var (
	// Ledger errors
	ErrQuotaNotFound   = errors.New("quota not found")
	ErrNegativeGoal    = errors.New("goal must not be negative")
	ErrNegativeAmount  = errors.New("amount must not be negative")
	ErrInvalidQuantity = errors.New("quantity must be positive")
	ErrInvalidAmount   = errors.New("amount must be positive")
	ErrUnknownUser     = errors.New("user id is required")
	ErrUnknownItem     = errors.New("item id is required")

	// Snapshot errors
	ErrSnapshotNotFound = errors.New("no ledger snapshot stored")
	ErrSnapshotCorrupt  = errors.New("ledger snapshot is unreadable")
)
