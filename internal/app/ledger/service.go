package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/quotabot/quotabot/internal/domain"
	"github.com/quotabot/quotabot/internal/infra/logging"
	"github.com/quotabot/quotabot/internal/infra/observability"
)

// Command names, used in logs and as metric labels.
const (
	CmdQuotaAdd         = "quota_add"
	CmdQuotaRemove      = "quota_remove"
	CmdQuotaView        = "quota_view"
	CmdQuotaLeaderboard = "quota_leaderboard"
	CmdGoalSet          = "goal_set"
	CmdGoalView         = "goal_view"
	CmdSalesAdd         = "sales_add"
	CmdSalesMine        = "sales_mine"
	CmdSalesView        = "sales_view"
	CmdSalesRemove      = "sales_remove"
	CmdSalesGoalSet     = "sales_goal_set"
	CmdSalesLeaderboard = "sales_leaderboard"
	CmdState            = "state"
	CmdRollover         = "rollover"
)

// ServiceConfig controls how results are presented.
type ServiceConfig struct {
	BarWidth             int // progress bar cells (default: 10)
	SalesLeaderboardSize int // sellers shown (default: 10)
}

// DefaultServiceConfig returns the presentation defaults.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		BarWidth:             domain.DefaultBarWidth,
		SalesLeaderboardSize: domain.DefaultSalesLeaderboardSize,
	}
}

// ─── Results ────────────────────────────────────────────────────────────────

// QuotaChange is the outcome of adding to or removing from a counter.
type QuotaChange struct {
	User     domain.UserID `json:"user"`
	Item     domain.ItemID `json:"item"`
	Quantity int64         `json:"quantity"`
	Count    int64         `json:"count"`
	Goal     int64         `json:"goal"`
	Percent  int           `json:"percent"`
	Bar      string        `json:"bar"`
}

// ItemLine is one row of a quota report.
type ItemLine struct {
	domain.ItemProgress
	Bar string `json:"bar"`
}

// QuotaReport is a member's progress for the week.
type QuotaReport struct {
	User      domain.UserID         `json:"user"`
	WeekStart time.Time             `json:"week_start"`
	Items     []ItemLine            `json:"items"`
	Untracked []domain.ItemProgress `json:"untracked,omitempty"`
	// AllDone is set when every goal is met and completed rows were hidden.
	AllDone bool `json:"all_done"`
}

// QuotaRow is one line of the quota leaderboard.
type QuotaRow struct {
	domain.QuotaStanding
	Bar string `json:"bar"`
}

// SalesReport is a member's sales against the team goal.
type SalesReport struct {
	domain.SalesSummary
	Bar     string `json:"bar"`
	TeamBar string `json:"team_bar"`
}

// RolloverResult reports a manual rollover check.
type RolloverResult struct {
	Rolled       bool      `json:"rolled"`
	WeekStart    time.Time `json:"week_start"`
	NextRollover time.Time `json:"next_rollover"`
}

// ─── Service ────────────────────────────────────────────────────────────────

// Service executes ledger commands one at a time. Each command first brings
// the ledger to the current week, then reads or mutates it.
type Service struct {
	mu       sync.Mutex
	store    *Store
	rollover *Rollover
	cfg      ServiceConfig
}

// NewService creates a command service.
func NewService(store *Store, rollover *Rollover, cfg ServiceConfig) *Service {
	if cfg.BarWidth <= 0 {
		cfg.BarWidth = domain.DefaultBarWidth
	}
	if cfg.SalesLeaderboardSize <= 0 {
		cfg.SalesLeaderboardSize = domain.DefaultSalesLeaderboardSize
	}
	return &Service{store: store, rollover: rollover, cfg: cfg}
}

// run serializes a command, checks the week and records the outcome.
func (s *Service) run(ctx context.Context, command string, fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.observe(command, func() error {
		if _, err := s.rollover.EnsureCurrent(ctx, TriggerCommand); err != nil {
			return err
		}
		return fn()
	})
}

// observe runs fn under a fresh correlation id, then counts and logs the
// outcome. Callers hold s.mu.
func (s *Service) observe(command string, fn func() error) error {
	start := time.Now()
	id := uuid.NewString()

	err := fn()
	observability.ObserveCommand(command, start, err)

	switch observability.Outcome(err) {
	case observability.OutcomeOK:
		logging.Debug().Str("cmd_id", id).Str("command", command).Dur("took", time.Since(start)).Msg("command done")
	case observability.OutcomeError:
		logging.Error().Err(err).Str("cmd_id", id).Str("command", command).Msg("command failed")
	default:
		logging.Info().Err(err).Str("cmd_id", id).Str("command", command).Msg("command rejected")
	}
	return err
}

// ─── Quotas ─────────────────────────────────────────────────────────────────

// QuotaAdd credits qty units of item to user.
func (s *Service) QuotaAdd(ctx context.Context, user domain.UserID, item domain.ItemID, qty int64) (QuotaChange, error) {
	var out QuotaChange
	err := s.run(ctx, CmdQuotaAdd, func() error {
		if qty <= 0 {
			return domain.ErrInvalidQuantity
		}
		n, err := s.store.AddItemCount(ctx, user, item, qty)
		if err != nil {
			return err
		}
		out = s.quotaChange(user, item, qty, n)
		return nil
	})
	return out, err
}

// QuotaRemove takes qty units of item back from user, never below zero.
func (s *Service) QuotaRemove(ctx context.Context, user domain.UserID, item domain.ItemID, qty int64) (QuotaChange, error) {
	var out QuotaChange
	err := s.run(ctx, CmdQuotaRemove, func() error {
		if qty <= 0 {
			return domain.ErrInvalidQuantity
		}
		n, err := s.store.RemoveItemCount(ctx, user, item, qty)
		if err != nil {
			return err
		}
		out = s.quotaChange(user, item, qty, n)
		return nil
	})
	return out, err
}

func (s *Service) quotaChange(user domain.UserID, item domain.ItemID, qty, count int64) QuotaChange {
	var goal int64
	s.store.Read(func(doc *domain.Document) { goal = doc.Goal(item) })
	return QuotaChange{
		User:     user,
		Item:     item,
		Quantity: qty,
		Count:    count,
		Goal:     goal,
		Percent:  domain.PercentOf(count, goal),
		Bar:      domain.ProgressBar(count, goal, s.cfg.BarWidth),
	}
}

// QuotaView reports user's progress on every goal, most-behind first.
// Met goals are hidden unless showAll.
func (s *Service) QuotaView(ctx context.Context, user domain.UserID, showAll bool) (QuotaReport, error) {
	var out QuotaReport
	err := s.run(ctx, CmdQuotaView, func() error {
		if user == "" {
			return domain.ErrUnknownUser
		}
		s.store.Read(func(doc *domain.Document) {
			out = QuotaReport{User: user, WeekStart: doc.WeekStart}
			for _, p := range domain.UserItemBreakdown(doc, user, showAll) {
				out.Items = append(out.Items, ItemLine{
					ItemProgress: p,
					Bar:          domain.ProgressBar(p.Current, p.Goal, s.cfg.BarWidth),
				})
			}
			out.Untracked = domain.UntrackedItems(doc, user)
			out.AllDone = !showAll && len(out.Items) == 0 && domain.PositiveGoalTotal(doc) > 0
		})
		return nil
	})
	return out, err
}

// QuotaLeaderboard ranks every member with counters.
func (s *Service) QuotaLeaderboard(ctx context.Context) ([]QuotaRow, error) {
	var out []QuotaRow
	err := s.run(ctx, CmdQuotaLeaderboard, func() error {
		s.store.Read(func(doc *domain.Document) {
			for _, st := range domain.QuotaLeaderboard(doc) {
				out = append(out, QuotaRow{
					QuotaStanding: st,
					Bar:           domain.ProgressBar(st.Total, st.GoalTotal, s.cfg.BarWidth),
				})
			}
		})
		return nil
	})
	return out, err
}

// ─── Goals ──────────────────────────────────────────────────────────────────

// GoalSet sets the weekly target for item. Zero stops tracking it.
func (s *Service) GoalSet(ctx context.Context, item domain.ItemID, value int64) (domain.GoalEntry, error) {
	err := s.run(ctx, CmdGoalSet, func() error {
		return s.store.SetGoal(ctx, item, value)
	})
	return domain.GoalEntry{Item: item, Goal: value}, err
}

// GoalView lists every item target in definition order.
func (s *Service) GoalView(ctx context.Context) ([]domain.GoalEntry, error) {
	var out []domain.GoalEntry
	err := s.run(ctx, CmdGoalView, func() error {
		s.store.Read(func(doc *domain.Document) { out = domain.GoalList(doc) })
		return nil
	})
	return out, err
}

// ─── Sales ──────────────────────────────────────────────────────────────────

// SalesAdd records a sale of amount for user.
func (s *Service) SalesAdd(ctx context.Context, user domain.UserID, amount decimal.Decimal) (SalesReport, error) {
	return s.salesChange(ctx, CmdSalesAdd, user, amount, amount)
}

// SalesRemove corrects user's total down by amount, never below zero.
func (s *Service) SalesRemove(ctx context.Context, user domain.UserID, amount decimal.Decimal) (SalesReport, error) {
	return s.salesChange(ctx, CmdSalesRemove, user, amount, amount.Neg())
}

func (s *Service) salesChange(ctx context.Context, command string, user domain.UserID, amount, delta decimal.Decimal) (SalesReport, error) {
	var out SalesReport
	err := s.run(ctx, command, func() error {
		if !amount.IsPositive() {
			return domain.ErrInvalidAmount
		}
		if _, err := s.store.AddSales(ctx, user, delta); err != nil {
			return err
		}
		out = s.salesReport(user)
		return nil
	})
	return out, err
}

// SalesMine reports the caller's own sales and the team's.
func (s *Service) SalesMine(ctx context.Context, user domain.UserID) (SalesReport, error) {
	return s.salesView(ctx, CmdSalesMine, user)
}

// SalesView reports another member's sales.
func (s *Service) SalesView(ctx context.Context, user domain.UserID) (SalesReport, error) {
	return s.salesView(ctx, CmdSalesView, user)
}

func (s *Service) salesView(ctx context.Context, command string, user domain.UserID) (SalesReport, error) {
	var out SalesReport
	err := s.run(ctx, command, func() error {
		if user == "" {
			return domain.ErrUnknownUser
		}
		out = s.salesReport(user)
		return nil
	})
	return out, err
}

func (s *Service) salesReport(user domain.UserID) SalesReport {
	var sum domain.SalesSummary
	s.store.Read(func(doc *domain.Document) { sum = domain.SalesSummaryFor(doc, user) })
	return SalesReport{
		SalesSummary: sum,
		Bar:          domain.AmountBar(sum.Total, sum.Goal, s.cfg.BarWidth),
		TeamBar:      domain.AmountBar(sum.TeamTotal, sum.Goal, s.cfg.BarWidth),
	}
}

// SalesGoalSet sets the team's weekly sales target.
func (s *Service) SalesGoalSet(ctx context.Context, amount decimal.Decimal) (decimal.Decimal, error) {
	err := s.run(ctx, CmdSalesGoalSet, func() error {
		return s.store.SetSalesGoal(ctx, amount)
	})
	return amount, err
}

// SalesLeaderboard ranks the top sellers of the week.
func (s *Service) SalesLeaderboard(ctx context.Context) ([]domain.SalesStanding, error) {
	var out []domain.SalesStanding
	err := s.run(ctx, CmdSalesLeaderboard, func() error {
		s.store.Read(func(doc *domain.Document) {
			out = domain.SalesLeaderboard(doc, s.cfg.SalesLeaderboardSize)
		})
		return nil
	})
	return out, err
}

// ─── Admin ──────────────────────────────────────────────────────────────────

// State returns a copy of the whole ledger document.
func (s *Service) State(ctx context.Context) (*domain.Document, error) {
	var out *domain.Document
	err := s.run(ctx, CmdState, func() error {
		out = s.store.Snapshot()
		return nil
	})
	return out, err
}

// Rollover runs the rollover check on request and reports the week in force.
func (s *Service) Rollover(ctx context.Context) (RolloverResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out RolloverResult
	err := s.observe(CmdRollover, func() error {
		rolled, err := s.rollover.EnsureCurrent(ctx, TriggerManual)
		if err != nil {
			return err
		}
		out = RolloverResult{
			Rolled:       rolled,
			WeekStart:    s.store.WeekStart(),
			NextRollover: s.rollover.NextBoundary(),
		}
		return nil
	})
	return out, err
}
