// Package ledger owns the live ledger document: the write-through store,
// the weekly rollover controller and its scheduler, and the command service
// both adapters (HTTP and CLI) call into.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/quotabot/quotabot/internal/domain"
	"github.com/quotabot/quotabot/internal/infra/logging"
	"github.com/quotabot/quotabot/internal/infra/observability"
	"github.com/quotabot/quotabot/internal/infra/snapshot"
)

// Load recovery reasons, used as metric labels.
const (
	recoveryAbsent     = "absent"
	recoveryUnreadable = "unreadable"
	recoveryCorrupt    = "corrupt"
)

// quarantiner is implemented by backends that can set a bad snapshot aside.
type quarantiner interface {
	QuarantineSnapshot(ctx context.Context) (string, error)
}

// Options configures a Store.
type Options struct {
	Seed domain.Seed      // values a fresh document starts from
	Rule domain.WeekRule  // week boundary for fresh documents
	Now  func() time.Time // clock (default: time.Now)
}

func (o Options) withDefaults() Options {
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Rule.Location == nil {
		o.Rule.Location = time.UTC
	}
	return o
}

// Store holds the ledger document in memory and writes every change through
// to the backend. Mutations are applied to a copy that replaces the live
// document only after it has been saved.
type Store struct {
	mu      sync.RWMutex
	backend domain.SnapshotBackend
	opts    Options
	doc     *domain.Document
}

// Open loads the ledger from backend. An absent, unreadable or corrupt
// snapshot is replaced by a fresh default document; an older shape is
// migrated. In both cases the result is saved right away. A failed initial
// save is logged and retried by the next mutation.
func Open(ctx context.Context, backend domain.SnapshotBackend, opts Options) (*Store, error) {
	if backend == nil {
		return nil, errors.New("ledger: nil snapshot backend")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := &Store{backend: backend, opts: opts.withDefaults()}

	doc, reason := s.load(ctx)
	s.doc = doc
	observability.SetWeekStart(doc.WeekStart)

	if reason != "" {
		observability.SnapshotLoadRecoveries.WithLabelValues(reason).Inc()
		if err := s.persist(ctx, doc); err != nil {
			logging.Warn().Err(err).Str("reason", reason).
				Msg("initial ledger save failed, will retry on next change")
		}
	}
	return s, nil
}

// load returns the document to start from and, when it had to be rebuilt or
// migrated, the reason.
func (s *Store) load(ctx context.Context) (*domain.Document, string) {
	fresh := s.fresh()

	data, err := s.backend.ReadSnapshot(ctx)
	switch {
	case errors.Is(err, domain.ErrSnapshotNotFound):
		logging.Info().Time("week_start", fresh.WeekStart).Msg("no ledger snapshot, starting fresh")
		return fresh, recoveryAbsent
	case err != nil:
		logging.Warn().Err(err).Msg("ledger snapshot unreadable, starting from defaults")
		s.quarantine(ctx)
		return fresh, recoveryUnreadable
	}

	doc, origin, err := snapshot.Decode(data, fresh)
	if err != nil {
		logging.Warn().Err(err).Msg("ledger snapshot corrupt, starting from defaults")
		s.quarantine(ctx)
		return fresh, recoveryCorrupt
	}
	if origin.NeedsRewrite() {
		logging.Info().Stringer("origin", origin).Msg("migrating ledger snapshot to current shape")
		return doc, origin.String()
	}
	return doc, ""
}

func (s *Store) quarantine(ctx context.Context) {
	q, ok := s.backend.(quarantiner)
	if !ok {
		return
	}
	dest, err := q.QuarantineSnapshot(ctx)
	if err != nil {
		logging.Warn().Err(err).Msg("could not set bad ledger snapshot aside")
		return
	}
	logging.Warn().Str("dest", dest).Msg("bad ledger snapshot kept for inspection")
}

func (s *Store) fresh() *domain.Document {
	return domain.NewDocument(s.opts.Rule.Boundary(s.opts.Now()), s.opts.Seed)
}

// ─── Persistence ────────────────────────────────────────────────────────────

func (s *Store) persist(ctx context.Context, doc *domain.Document) error {
	start := time.Now()
	data, err := snapshot.Encode(doc)
	if err == nil {
		err = s.backend.WriteSnapshot(ctx, data)
	}
	observability.ObserveSave(start, err)
	return err
}

// Save writes the current document to the backend.
func (s *Store) Save(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.persist(ctx, s.doc); err != nil {
		return fmt.Errorf("save ledger: %w", err)
	}
	return nil
}

// mutate runs fn on a copy of the document, saves the copy, then swaps it in.
// If fn or the save fails the live document is untouched.
func (s *Store) mutate(ctx context.Context, fn func(doc *domain.Document) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.doc.Clone()
	if err := fn(next); err != nil {
		return err
	}
	if err := s.persist(ctx, next); err != nil {
		logging.Error().Err(err).Msg("ledger save failed, change discarded")
		return fmt.Errorf("save ledger: %w", err)
	}
	s.doc = next
	return nil
}

// ─── Reads ──────────────────────────────────────────────────────────────────

// Read calls fn with the live document under a read lock. fn must not
// modify or retain it.
func (s *Store) Read(fn func(doc *domain.Document)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.doc)
}

// Snapshot returns a deep copy of the document.
func (s *Store) Snapshot() *domain.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.Clone()
}

// WeekStart returns the week the counters belong to.
func (s *Store) WeekStart() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.WeekStart
}

// ─── Mutations ──────────────────────────────────────────────────────────────

// AddItemCount adds delta to the user's counter for item, creating it at zero.
// The result never drops below zero. It returns the new count.
func (s *Store) AddItemCount(ctx context.Context, user domain.UserID, item domain.ItemID, delta int64) (int64, error) {
	if err := checkIDs(user, item); err != nil {
		return 0, err
	}
	var out int64
	err := s.mutate(ctx, func(doc *domain.Document) error {
		out = doc.AddCount(user, item, delta)
		return nil
	})
	return out, err
}

// RemoveItemCount subtracts qty from an existing counter. A counter that was
// never created reports domain.ErrQuotaNotFound; a zero counter still counts.
func (s *Store) RemoveItemCount(ctx context.Context, user domain.UserID, item domain.ItemID, qty int64) (int64, error) {
	if err := checkIDs(user, item); err != nil {
		return 0, err
	}
	var out int64
	err := s.mutate(ctx, func(doc *domain.Document) error {
		if !doc.HasCount(user, item) {
			return fmt.Errorf("%s/%s: %w", user, item, domain.ErrQuotaNotFound)
		}
		out = doc.AddCount(user, item, -qty)
		return nil
	})
	return out, err
}

// SetGoal sets the weekly target for item. Zero disables it.
func (s *Store) SetGoal(ctx context.Context, item domain.ItemID, value int64) error {
	if item == "" {
		return domain.ErrUnknownItem
	}
	return s.mutate(ctx, func(doc *domain.Document) error {
		return doc.SetGoal(item, value)
	})
}

// AddSales adds amount (negative to correct) to the user's sales total,
// floored at zero. It returns the new total.
func (s *Store) AddSales(ctx context.Context, user domain.UserID, amount decimal.Decimal) (decimal.Decimal, error) {
	if user == "" {
		return decimal.Zero, domain.ErrUnknownUser
	}
	var out decimal.Decimal
	err := s.mutate(ctx, func(doc *domain.Document) error {
		out = doc.AddSales(user, amount)
		return nil
	})
	return out, err
}

// SetSalesGoal sets the team's weekly sales target.
func (s *Store) SetSalesGoal(ctx context.Context, amount decimal.Decimal) error {
	return s.mutate(ctx, func(doc *domain.Document) error {
		return doc.SetSalesGoal(amount)
	})
}

// resetWeek clears counters and sales and moves the document to weekStart,
// unless it already belongs to that week. It reports whether it reset and
// the week it left.
func (s *Store) resetWeek(ctx context.Context, weekStart time.Time) (bool, time.Time, error) {
	var (
		rolled bool
		prev   time.Time
	)
	s.mu.RLock()
	current := s.doc.IsCurrent(weekStart)
	s.mu.RUnlock()
	if current {
		return false, weekStart, nil
	}

	err := s.mutate(ctx, func(doc *domain.Document) error {
		prev = doc.WeekStart
		if doc.IsCurrent(weekStart) {
			return nil
		}
		doc.Reset(weekStart)
		rolled = true
		return nil
	})
	return rolled, prev, err
}

func checkIDs(user domain.UserID, item domain.ItemID) error {
	if user == "" {
		return domain.ErrUnknownUser
	}
	if item == "" {
		return domain.ErrUnknownItem
	}
	return nil
}
