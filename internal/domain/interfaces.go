package domain

import "context"

// ─── Service Interfaces ─────────────────────────────────────────────────────
// These interfaces define boundaries between layers.
// Infrastructure implements them; application layer depends on them.

// SnapshotBackend abstracts durable storage of the encoded ledger document.
type SnapshotBackend interface {
	// ReadSnapshot returns the stored bytes, or ErrSnapshotNotFound.
	ReadSnapshot(ctx context.Context) ([]byte, error)

	// WriteSnapshot replaces the stored snapshot.
	WriteSnapshot(ctx context.Context, data []byte) error

	// Close releases the backend.
	Close() error
}
