// Package domain contains pure ledger types with ZERO infrastructure imports.
// This is the innermost ring of clean architecture: it depends on nothing
// but value libraries.
package domain

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// DocumentVersion is the on-disk shape written by this build.
// Version 1 is the flat user → item → count snapshot of the first bot.
const DocumentVersion = 2

// ─── Identifiers ────────────────────────────────────────────────────────────

// UserID is the chat platform's member id (a snowflake string on Discord).
type UserID string

// ItemID names a countable category of work, e.g. "cheeseburger".
type ItemID string

// ItemCounts maps items to non-negative integer counts or goals.
type ItemCounts = OrderedMap[ItemID, int64]

// ─── Ledger Document ────────────────────────────────────────────────────────

// Document is the single persisted root of the ledger.
type Document struct {
	Version      int                                 `json:"version"`
	WeekStart    time.Time                           `json:"weekStart"`
	ItemCounters OrderedMap[UserID, *ItemCounts]     `json:"itemCounters"`
	Goals        ItemCounts                          `json:"goals"`
	SalesTotals  OrderedMap[UserID, decimal.Decimal] `json:"salesTotals"`
	SalesGoal    decimal.Decimal                     `json:"salesGoal"`
}

// Seed holds the values a fresh document starts from.
type Seed struct {
	Goals     *ItemCounts
	SalesGoal decimal.Decimal
}

// DefaultSeed returns the goal set the bot ships with.
func DefaultSeed() Seed {
	goals := NewOrderedMap[ItemID, int64]()
	goals.Set("menu", 50)
	goals.Set("cheeseburger", 30)
	goals.Set("frites", 30)
	goals.Set("boisson", 30)
	return Seed{Goals: goals, SalesGoal: decimal.Zero}
}

// NewDocument creates an empty ledger for the week starting at weekStart.
func NewDocument(weekStart time.Time, seed Seed) *Document {
	d := &Document{
		Version:   DocumentVersion,
		WeekStart: weekStart,
		SalesGoal: seed.SalesGoal,
	}
	for item, goal := range seed.Goals.All() {
		d.Goals.Set(item, max(goal, 0))
	}
	if d.SalesGoal.IsNegative() {
		d.SalesGoal = decimal.Zero
	}
	return d
}

// Clone returns a deep copy. Callers outside the store only ever see clones.
func (d *Document) Clone() *Document {
	out := &Document{
		Version:   d.Version,
		WeekStart: d.WeekStart,
		SalesGoal: d.SalesGoal,
	}
	out.ItemCounters = *d.ItemCounters.Clone(func(c *ItemCounts) *ItemCounts { return c.Clone(nil) })
	out.Goals = *d.Goals.Clone(nil)
	out.SalesTotals = *d.SalesTotals.Clone(nil)
	return out
}

// ─── Quotas ─────────────────────────────────────────────────────────────────

// Count returns the user's count for item, zero when absent.
func (d *Document) Count(user UserID, item ItemID) int64 {
	counts, ok := d.ItemCounters.Get(user)
	if !ok {
		return 0
	}
	return counts.GetOr(item, 0)
}

// HasCount reports whether a counter exists for (user, item), even a zero one.
func (d *Document) HasCount(user UserID, item ItemID) bool {
	counts, ok := d.ItemCounters.Get(user)
	return ok && counts.Has(item)
}

// UserCounts returns the user's counters, nil when the user has none.
func (d *Document) UserCounts(user UserID) *ItemCounts {
	counts, _ := d.ItemCounters.Get(user)
	return counts
}

// AddCount adds delta to (user, item), creating the entry at zero,
// and floors the result at zero. It returns the new value.
func (d *Document) AddCount(user UserID, item ItemID, delta int64) int64 {
	counts, ok := d.ItemCounters.Get(user)
	if !ok || counts == nil {
		counts = NewOrderedMap[ItemID, int64]()
		d.ItemCounters.Set(user, counts)
	}
	next := max(AddCapped(counts.GetOr(item, 0), delta), 0)
	counts.Set(item, next)
	return next
}

// AddCapped returns a+b, saturating at the int64 limits instead of wrapping.
func AddCapped(a, b int64) int64 {
	switch {
	case b > 0 && a > math.MaxInt64-b:
		return math.MaxInt64
	case b < 0 && a < math.MinInt64-b:
		return math.MinInt64
	}
	return a + b
}

// ─── Goals ──────────────────────────────────────────────────────────────────

// Goal returns the weekly target for item, zero (no target) when absent.
func (d *Document) Goal(item ItemID) int64 {
	return d.Goals.GetOr(item, 0)
}

// SetGoal overwrites the target for item.
func (d *Document) SetGoal(item ItemID, value int64) error {
	if value < 0 {
		return ErrNegativeGoal
	}
	d.Goals.Set(item, value)
	return nil
}

// ─── Sales ──────────────────────────────────────────────────────────────────

// Sales returns the user's sales total, zero when absent.
func (d *Document) Sales(user UserID) decimal.Decimal {
	return d.SalesTotals.GetOr(user, decimal.Zero)
}

// AddSales adds amount (negative for corrections) to the user's total,
// floors it at zero, and returns the new total.
func (d *Document) AddSales(user UserID, amount decimal.Decimal) decimal.Decimal {
	next := d.Sales(user).Add(amount)
	if next.IsNegative() {
		next = decimal.Zero
	}
	d.SalesTotals.Set(user, next)
	return next
}

// SetSalesGoal overwrites the shared weekly sales target.
func (d *Document) SetSalesGoal(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return ErrNegativeAmount
	}
	d.SalesGoal = amount
	return nil
}

// TeamSales returns the sum of every member's sales this week.
func (d *Document) TeamSales() decimal.Decimal {
	total := decimal.Zero
	for _, amount := range d.SalesTotals.All() {
		total = total.Add(amount)
	}
	return total
}

// ─── Rollover ───────────────────────────────────────────────────────────────

// IsCurrent reports whether the document belongs to the week starting at boundary.
func (d *Document) IsCurrent(boundary time.Time) bool {
	return d.WeekStart.Equal(boundary)
}

// Reset clears counters and sales and moves the document to a new week.
// Goals and the sales goal are kept.
func (d *Document) Reset(weekStart time.Time) {
	d.ItemCounters.Clear()
	d.SalesTotals.Clear()
	d.WeekStart = weekStart
}

// Normalize clamps values that an older or hand-edited snapshot may carry
// (negative counts, goals or amounts) and stamps the current version.
func (d *Document) Normalize() {
	d.Version = DocumentVersion
	for user, counts := range d.ItemCounters.All() {
		if counts == nil {
			d.ItemCounters.Set(user, NewOrderedMap[ItemID, int64]())
			continue
		}
		for item, n := range counts.All() {
			if n < 0 {
				counts.Set(item, 0)
			}
		}
	}
	for item, g := range d.Goals.All() {
		if g < 0 {
			d.Goals.Set(item, 0)
		}
	}
	for user, amount := range d.SalesTotals.All() {
		if amount.IsNegative() {
			d.SalesTotals.Set(user, decimal.Zero)
		}
	}
	if d.SalesGoal.IsNegative() {
		d.SalesGoal = decimal.Zero
	}
}
