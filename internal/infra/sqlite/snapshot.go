package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/quotabot/quotabot/internal/domain"
)

// ─── Snapshot Schema ────────────────────────────────────────────────────────

// SnapshotMigrations returns the ledger schema statements.
// Each string is a single SQL statement (SQLite executes one at a time).
func SnapshotMigrations() []string {
	return []string{
		// The ledger is one document; the row id is pinned to 1.
		`CREATE TABLE IF NOT EXISTS ledger_snapshot (
			id       INTEGER PRIMARY KEY CHECK (id = 1),
			body     TEXT NOT NULL,
			saved_at TEXT NOT NULL DEFAULT (datetime('now'))
		)`,

		// Snapshots that failed to decode, kept for manual recovery
		`CREATE TABLE IF NOT EXISTS ledger_quarantine (
			id             INTEGER PRIMARY KEY AUTOINCREMENT,
			body           TEXT NOT NULL,
			saved_at       TEXT NOT NULL,
			quarantined_at TEXT NOT NULL
		)`,
	}
}

// ─── Snapshot Operations ────────────────────────────────────────────────────

// ReadSnapshot returns the stored document, or domain.ErrSnapshotNotFound.
func (db *DB) ReadSnapshot(ctx context.Context) ([]byte, error) {
	var body string
	err := db.db.QueryRowContext(ctx, `SELECT body FROM ledger_snapshot WHERE id = 1`).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && body == "") {
		return nil, domain.ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	return []byte(body), nil
}

// WriteSnapshot replaces the stored document in one statement.
func (db *DB) WriteSnapshot(ctx context.Context, data []byte) error {
	_, err := db.db.ExecContext(ctx, `
		INSERT INTO ledger_snapshot (id, body, saved_at)
		VALUES (1, ?, datetime('now'))
		ON CONFLICT(id) DO UPDATE SET
			body     = excluded.body,
			saved_at = datetime('now')
	`, string(data))
	if err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

// QuarantineSnapshot moves the stored document into ledger_quarantine and
// returns a locator for the moved row.
func (db *DB) QuarantineSnapshot(ctx context.Context) (string, error) {
	tx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO ledger_quarantine (body, saved_at, quarantined_at)
		SELECT body, saved_at, ? FROM ledger_snapshot WHERE id = 1
	`, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return "", fmt.Errorf("quarantine snapshot: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return "", domain.ErrSnapshotNotFound
	}
	id, err := res.LastInsertId()
	if err != nil {
		return "", err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM ledger_snapshot WHERE id = 1`); err != nil {
		return "", fmt.Errorf("quarantine snapshot: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s#ledger_quarantine/%d", db.path, id), nil
}

// QuarantinedCount returns how many snapshots have been set aside.
func (db *DB) QuarantinedCount(ctx context.Context) (int, error) {
	var n int
	err := db.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM ledger_quarantine`).Scan(&n)
	return n, err
}
