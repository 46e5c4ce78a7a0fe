package ledger

import (
	"context"
	"time"

	"github.com/quotabot/quotabot/internal/infra/logging"
)

// DefaultRetryDelay is how long the scheduler waits after a failed rollover.
const DefaultRetryDelay = time.Minute

// Scheduler fires the rollover at every week boundary. It implements
// suture.Service and runs under the daemon's supervisor.
type Scheduler struct {
	rollover   *Rollover
	now        func() time.Time
	after      func(time.Duration) <-chan time.Time
	retryDelay time.Duration
}

// NewScheduler creates a scheduler driving r.
func NewScheduler(r *Rollover) *Scheduler {
	return &Scheduler{
		rollover:   r,
		now:        r.now,
		after:      time.After,
		retryDelay: DefaultRetryDelay,
	}
}

// Serve checks once at start-up, then sleeps until each boundary and rolls
// the ledger over. A failed check is retried after the retry delay.
// It returns ctx.Err() on shutdown.
func (s *Scheduler) Serve(ctx context.Context) error {
	log := logging.With().Str("component", s.String()).Logger()
	_, err := s.rollover.EnsureCurrent(ctx, TriggerStartup)
	failed := err != nil

	for {
		now := s.now()
		wait := s.rollover.rule.Next(now).Sub(now)
		if failed {
			wait = min(wait, s.retryDelay)
		}
		log.Debug().Dur("wait", wait).Time("until", now.Add(wait)).Bool("retry", failed).Msg("rollover scheduler sleeping")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.after(wait):
		}

		_, err := s.rollover.EnsureCurrent(ctx, TriggerSchedule)
		failed = err != nil
	}
}

// String names the service in supervisor logs.
func (s *Scheduler) String() string { return "ledger-rollover-scheduler" }
