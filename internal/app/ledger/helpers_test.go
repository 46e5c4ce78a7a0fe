package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/quotabot/quotabot/internal/domain"
)

// 2026-10-11 is a Sunday.
var (
	testWeek    = time.Date(2026, time.October, 11, 0, 0, 0, 0, time.UTC)
	prevWeek    = testWeek.AddDate(0, 0, -7)
	testTuesday = time.Date(2026, time.October, 13, 9, 0, 0, 0, time.UTC)
)

var errDiskFull = errors.New("disk full")

// ─── Test Doubles ───────────────────────────────────────────────────────────

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock(t time.Time) *fakeClock { return &fakeClock{t: t} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}

// memBackend keeps the snapshot in memory and can be told to fail.
type memBackend struct {
	mu          sync.Mutex
	data        []byte
	writes      int
	failWrites  bool
	readErr     error
	quarantined [][]byte
}

func (b *memBackend) ReadSnapshot(ctx context.Context) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.readErr != nil {
		return nil, b.readErr
	}
	if b.data == nil {
		return nil, domain.ErrSnapshotNotFound
	}
	return append([]byte(nil), b.data...), nil
}

func (b *memBackend) WriteSnapshot(ctx context.Context, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failWrites {
		return errDiskFull
	}
	b.data = append([]byte(nil), data...)
	b.writes++
	return nil
}

func (b *memBackend) QuarantineSnapshot(ctx context.Context) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.quarantined = append(b.quarantined, b.data)
	b.data = nil
	b.readErr = nil
	return fmt.Sprintf("mem#%d", len(b.quarantined)), nil
}

func (b *memBackend) Close() error { return nil }

func (b *memBackend) setFailWrites(fail bool) {
	b.mu.Lock()
	b.failWrites = fail
	b.mu.Unlock()
}

func (b *memBackend) writeCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.writes
}

func (b *memBackend) stored() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]byte(nil), b.data...)
}

// ─── Fixtures ───────────────────────────────────────────────────────────────

type testLedger struct {
	backend  *memBackend
	clock    *fakeClock
	store    *Store
	rollover *Rollover
	service  *Service
}

func testOptions(clock *fakeClock) Options {
	return Options{
		Seed: domain.DefaultSeed(),
		Rule: domain.DefaultWeekRule(),
		Now:  clock.Now,
	}
}

func newTestStore(t *testing.T, backend *memBackend, clock *fakeClock) *Store {
	t.Helper()
	s, err := Open(context.Background(), backend, testOptions(clock))
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	return s
}

func newTestLedger(t *testing.T) *testLedger {
	t.Helper()
	l := &testLedger{backend: &memBackend{}, clock: newFakeClock(testTuesday)}
	l.store = newTestStore(t, l.backend, l.clock)
	l.rollover = NewRollover(l.store, domain.DefaultWeekRule(), l.clock.Now)
	l.service = NewService(l.store, l.rollover, DefaultServiceConfig())
	return l
}
