package domain

import (
	"cmp"
	"math"
	"slices"
	"strings"

	"github.com/shopspring/decimal"
)

// ─── Progress & Leaderboards ────────────────────────────────────────────────
// Pure views over a document snapshot. Sorting is stable everywhere: ties keep
// the order in which users and items were first recorded.

// DefaultSalesLeaderboardSize is how many sellers a sales leaderboard shows.
const DefaultSalesLeaderboardSize = 10

// DefaultBarWidth is the number of cells in a progress bar.
const DefaultBarWidth = 10

// MaxPercent caps percentages for counts far beyond their goal.
const MaxPercent = math.MaxInt32

const (
	barFilled = "█"
	barEmpty  = "░"
)

// ItemProgress is one line of a member's quota breakdown.
type ItemProgress struct {
	Item    ItemID `json:"item"`
	Current int64  `json:"current"`
	Goal    int64  `json:"goal"`
	Percent int    `json:"percent"`
}

// Completed reports whether the goal is met.
func (p ItemProgress) Completed() bool { return p.Percent >= 100 }

// QuotaStanding is a member's position on the quota leaderboard.
type QuotaStanding struct {
	Rank        int    `json:"rank"`
	User        UserID `json:"user"`
	Total       int64  `json:"total"`
	GoalTotal   int64  `json:"goal_total"`
	Percent     int    `json:"percent"`
	FinishedAll bool   `json:"finished_all"`
}

// SalesStanding is a member's position on the sales leaderboard.
type SalesStanding struct {
	Rank  int             `json:"rank"`
	User  UserID          `json:"user"`
	Total decimal.Decimal `json:"total"`
}

// SalesSummary is a member's sales against the shared weekly goal.
type SalesSummary struct {
	User        UserID          `json:"user"`
	Total       decimal.Decimal `json:"total"`
	TeamTotal   decimal.Decimal `json:"team_total"`
	Goal        decimal.Decimal `json:"goal"`
	Percent     int             `json:"percent"`
	TeamPercent int             `json:"team_percent"`
}

// GoalEntry is one weekly item target.
type GoalEntry struct {
	Item ItemID `json:"item"`
	Goal int64  `json:"goal"`
}

// PercentOf returns round(100*current/goal), or 0 when there is no goal.
// The result never exceeds MaxPercent.
func PercentOf(current, goal int64) int {
	if goal <= 0 {
		return 0
	}
	return int(math.Min(math.Round(100*float64(current)/float64(goal)), MaxPercent))
}

// PercentOfAmount is PercentOf for money.
func PercentOfAmount(current, goal decimal.Decimal) int {
	if goal.Sign() <= 0 {
		return 0
	}
	p := current.Mul(decimal.NewFromInt(100)).Div(goal).Round(0)
	if p.GreaterThan(decimal.NewFromInt(MaxPercent)) {
		return MaxPercent
	}
	return int(p.IntPart())
}

// ProgressBar renders width cells, round(min(1, current/goal)*width) of them filled.
func ProgressBar(current, goal int64, width int) string {
	if width <= 0 {
		return ""
	}
	ratio := 0.0
	if goal > 0 {
		ratio = math.Min(1, float64(current)/float64(goal))
	}
	filled := min(max(int(math.Round(ratio*float64(width))), 0), width)
	return strings.Repeat(barFilled, filled) + strings.Repeat(barEmpty, width-filled)
}

// AmountBar is ProgressBar for money.
func AmountBar(current, goal decimal.Decimal, width int) string {
	if width <= 0 {
		return ""
	}
	filled := 0
	if goal.Sign() > 0 {
		ratio := decimal.Min(decimal.NewFromInt(1), current.Div(goal))
		filled = int(ratio.Mul(decimal.NewFromInt(int64(width))).Round(0).IntPart())
	}
	filled = min(max(filled, 0), width)
	return strings.Repeat(barFilled, filled) + strings.Repeat(barEmpty, width-filled)
}

// UserItemBreakdown lists the member's progress on every item with a positive
// goal, most-behind first. Completed items are dropped unless includeCompleted.
func UserItemBreakdown(doc *Document, user UserID, includeCompleted bool) []ItemProgress {
	var out []ItemProgress
	for item, goal := range doc.Goals.All() {
		if goal <= 0 {
			continue
		}
		current := doc.Count(user, item)
		p := ItemProgress{Item: item, Current: current, Goal: goal, Percent: PercentOf(current, goal)}
		if !includeCompleted && p.Completed() {
			continue
		}
		out = append(out, p)
	}
	slices.SortStableFunc(out, func(a, b ItemProgress) int {
		return cmp.Compare(a.Percent, b.Percent)
	})
	return out
}

// UntrackedItems returns the member's counters for items without a positive goal.
func UntrackedItems(doc *Document, user UserID) []ItemProgress {
	var out []ItemProgress
	for item, n := range doc.UserCounts(user).All() {
		if doc.Goal(item) > 0 {
			continue
		}
		out = append(out, ItemProgress{Item: item, Current: n})
	}
	return out
}

// PositiveGoalTotal sums every positive item goal.
func PositiveGoalTotal(doc *Document) int64 {
	var total int64
	for _, goal := range doc.Goals.All() {
		if goal > 0 {
			total = AddCapped(total, goal)
		}
	}
	return total
}

// QuotaLeaderboard ranks every member with counters: members who met every
// positive goal first, then by completion of the summed goals.
func QuotaLeaderboard(doc *Document) []QuotaStanding {
	goalTotal := PositiveGoalTotal(doc)
	var out []QuotaStanding
	for user, counts := range doc.ItemCounters.All() {
		if counts.Len() == 0 {
			continue
		}
		var total int64
		for _, n := range counts.All() {
			total = AddCapped(total, n)
		}
		finished := goalTotal > 0
		for item, goal := range doc.Goals.All() {
			if goal > 0 && counts.GetOr(item, 0) < goal {
				finished = false
				break
			}
		}
		out = append(out, QuotaStanding{
			User:        user,
			Total:       total,
			GoalTotal:   goalTotal,
			Percent:     PercentOf(total, goalTotal),
			FinishedAll: finished,
		})
	}
	slices.SortStableFunc(out, func(a, b QuotaStanding) int {
		if a.FinishedAll != b.FinishedAll {
			if a.FinishedAll {
				return -1
			}
			return 1
		}
		return cmp.Compare(b.Percent, a.Percent)
	})
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}

// SalesLeaderboard ranks members by sales, highest first, keeping at most
// limit entries (DefaultSalesLeaderboardSize when limit <= 0).
func SalesLeaderboard(doc *Document, limit int) []SalesStanding {
	if limit <= 0 {
		limit = DefaultSalesLeaderboardSize
	}
	var out []SalesStanding
	for user, total := range doc.SalesTotals.All() {
		out = append(out, SalesStanding{User: user, Total: total})
	}
	slices.SortStableFunc(out, func(a, b SalesStanding) int {
		return b.Total.Cmp(a.Total)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}

// SalesSummaryFor reports the member's and the team's sales against the goal.
func SalesSummaryFor(doc *Document, user UserID) SalesSummary {
	total := doc.Sales(user)
	team := doc.TeamSales()
	return SalesSummary{
		User:        user,
		Total:       total,
		TeamTotal:   team,
		Goal:        doc.SalesGoal,
		Percent:     PercentOfAmount(total, doc.SalesGoal),
		TeamPercent: PercentOfAmount(team, doc.SalesGoal),
	}
}

// GoalList returns the item goals in the order they were defined.
func GoalList(doc *Document) []GoalEntry {
	out := make([]GoalEntry, 0, doc.Goals.Len())
	for item, goal := range doc.Goals.All() {
		out = append(out, GoalEntry{Item: item, Goal: goal})
	}
	return out
}
