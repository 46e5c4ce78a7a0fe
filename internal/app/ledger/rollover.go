package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/quotabot/quotabot/internal/domain"
	"github.com/quotabot/quotabot/internal/infra/logging"
	"github.com/quotabot/quotabot/internal/infra/observability"
)

// Trigger names what asked for a rollover check.
type Trigger string

const (
	TriggerCommand  Trigger = "command"  // any ledger command
	TriggerSchedule Trigger = "schedule" // the weekly timer
	TriggerStartup  Trigger = "startup"  // the scheduler's first check
	TriggerManual   Trigger = "manual"   // an operator request
)

// Rollover resets the ledger when the week it belongs to is over.
// Every trigger goes through EnsureCurrent, so a rollover happens once no
// matter how many triggers race for it.
type Rollover struct {
	store *Store
	rule  domain.WeekRule
	now   func() time.Time
}

// NewRollover creates a controller for store. A nil now uses time.Now.
func NewRollover(store *Store, rule domain.WeekRule, now func() time.Time) *Rollover {
	if now == nil {
		now = time.Now
	}
	if rule.Location == nil {
		rule.Location = time.UTC
	}
	return &Rollover{store: store, rule: rule, now: now}
}

// Rule returns the week boundary rule.
func (r *Rollover) Rule() domain.WeekRule { return r.rule }

// NextBoundary returns when the current week ends.
func (r *Rollover) NextBoundary() time.Time { return r.rule.Next(r.now()) }

// EnsureCurrent moves the ledger to the current week if it is behind,
// clearing item counters and sales while keeping goals. It reports whether
// a reset happened. Calling it again in the same week is a no-op.
func (r *Rollover) EnsureCurrent(ctx context.Context, trigger Trigger) (bool, error) {
	boundary := r.rule.Boundary(r.now())

	rolled, prev, err := r.store.resetWeek(ctx, boundary)
	if err != nil {
		logging.Error().Err(err).Str("trigger", string(trigger)).Msg("weekly rollover failed")
		return false, fmt.Errorf("weekly rollover: %w", err)
	}
	if !rolled {
		return false, nil
	}

	observability.RolloversTotal.WithLabelValues(string(trigger)).Inc()
	observability.SetWeekStart(boundary)
	logging.Info().
		Str("trigger", string(trigger)).
		Time("from", prev).
		Time("to", boundary).
		Msg("weekly rollover")
	return true, nil
}
