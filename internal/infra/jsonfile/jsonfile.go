// Package jsonfile stores the ledger snapshot as a single JSON file.
package jsonfile

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/quotabot/quotabot/internal/domain"
)

// DefaultName is the snapshot file name inside the data directory.
const DefaultName = "quotas.json"

// File is a snapshot backend backed by one file on disk.
type File struct {
	mu   sync.Mutex
	path string
	now  func() time.Time
}

// New returns a backend writing to path. The file is created on first write.
func New(path string) *File {
	return &File{path: path, now: time.Now}
}

// Path returns the snapshot file location.
func (f *File) Path() string { return f.path }

// ReadSnapshot returns the file contents. A missing or empty file reports
// domain.ErrSnapshotNotFound.
func (f *File) ReadSnapshot(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) || (err == nil && len(data) == 0) {
		return nil, domain.ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.path, err)
	}
	return data, nil
}

// WriteSnapshot replaces the file atomically: the data is written to a
// sibling temp file, synced, then renamed over the target.
func (f *File) WriteSnapshot(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("write %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		cleanup()
		return fmt.Errorf("replace %s: %w", f.path, err)
	}
	return nil
}

// QuarantineSnapshot moves an unreadable snapshot aside so the next write
// does not destroy it. It returns the new location.
func (f *File) QuarantineSnapshot(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	dest := fmt.Sprintf("%s.corrupt-%s", f.path, f.now().UTC().Format("20060102-150405"))
	if err := os.Rename(f.path, dest); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", domain.ErrSnapshotNotFound
		}
		return "", fmt.Errorf("quarantine %s: %w", f.path, err)
	}
	return dest, nil
}

// Close is a no-op; the file is never held open between calls.
func (f *File) Close() error { return nil }
