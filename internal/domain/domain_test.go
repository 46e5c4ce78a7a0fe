package domain

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

// ─── Document Tests ─────────────────────────────────────────────────────────

var testWeek = time.Date(2026, time.October, 11, 0, 0, 0, 0, time.UTC)

func TestNewDocument_Defaults(t *testing.T) {
	doc := NewDocument(testWeek, DefaultSeed())

	if doc.Version != DocumentVersion {
		t.Errorf("Version = %d, want %d", doc.Version, DocumentVersion)
	}
	if !doc.WeekStart.Equal(testWeek) {
		t.Errorf("WeekStart = %v, want %v", doc.WeekStart, testWeek)
	}
	if doc.ItemCounters.Len() != 0 {
		t.Errorf("ItemCounters.Len() = %d, want 0", doc.ItemCounters.Len())
	}
	if doc.Goal("menu") != 50 {
		t.Errorf("Goal(menu) = %d, want 50", doc.Goal("menu"))
	}
	if !doc.SalesGoal.IsZero() {
		t.Errorf("SalesGoal = %s, want 0", doc.SalesGoal)
	}
}

func TestNewDocument_ClampsNegativeSeed(t *testing.T) {
	goals := NewOrderedMap[ItemID, int64]()
	goals.Set("menu", -5)
	doc := NewDocument(testWeek, Seed{Goals: goals, SalesGoal: decimal.NewFromInt(-10)})

	if doc.Goal("menu") != 0 {
		t.Errorf("Goal(menu) = %d, want 0", doc.Goal("menu"))
	}
	if !doc.SalesGoal.IsZero() {
		t.Errorf("SalesGoal = %s, want 0", doc.SalesGoal)
	}
}

func TestDocument_AddCount_ClampedRunningSum(t *testing.T) {
	tests := []struct {
		name   string
		deltas []int64
		want   int64
	}{
		{"single add", []int64{5}, 5},
		{"add then remove", []int64{5, -3}, 2},
		{"over-subtraction floors", []int64{5, -8}, 0},
		{"floor then add", []int64{-4, 3}, 3},
		{"all negative", []int64{-1, -1}, 0},
		{"oversized add saturates", []int64{5, math.MaxInt64}, math.MaxInt64},
		{"remove from saturated", []int64{math.MaxInt64, math.MaxInt64, -1}, math.MaxInt64 - 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := NewDocument(testWeek, DefaultSeed())
			var got int64
			for _, d := range tt.deltas {
				got = doc.AddCount("u1", "menu", d)
			}
			if got != tt.want {
				t.Errorf("AddCount() = %d, want %d", got, tt.want)
			}
			if doc.Count("u1", "menu") != tt.want {
				t.Errorf("Count() = %d, want %d", doc.Count("u1", "menu"), tt.want)
			}
		})
	}
}

func TestAddCapped(t *testing.T) {
	tests := []struct {
		a, b, want int64
	}{
		{2, 3, 5},
		{5, -8, -3},
		{math.MaxInt64, 1, math.MaxInt64},
		{5, math.MaxInt64, math.MaxInt64},
		{math.MinInt64, -1, math.MinInt64},
		{math.MaxInt64, math.MinInt64, -1},
	}
	for _, tt := range tests {
		if got := AddCapped(tt.a, tt.b); got != tt.want {
			t.Errorf("AddCapped(%d, %d) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestDocument_HasCount_ZeroIsPresent(t *testing.T) {
	doc := NewDocument(testWeek, DefaultSeed())
	if doc.HasCount("u1", "menu") {
		t.Error("HasCount() should be false before any add")
	}
	doc.AddCount("u1", "menu", 2)
	doc.AddCount("u1", "menu", -2)
	if !doc.HasCount("u1", "menu") {
		t.Error("a zero counter must still be present")
	}
	if doc.Count("u1", "menu") != 0 {
		t.Errorf("Count() = %d, want 0", doc.Count("u1", "menu"))
	}
}

func TestDocument_AddSales_Clamps(t *testing.T) {
	doc := NewDocument(testWeek, DefaultSeed())
	doc.AddSales("u1", decimal.NewFromInt(50))
	got := doc.AddSales("u1", decimal.NewFromInt(-80))

	if !got.IsZero() {
		t.Errorf("AddSales() = %s, want 0", got)
	}
	if !doc.Sales("u1").IsZero() {
		t.Errorf("Sales() = %s, want 0", doc.Sales("u1"))
	}
}

func TestDocument_SetGoal_RejectsNegative(t *testing.T) {
	doc := NewDocument(testWeek, DefaultSeed())
	if err := doc.SetGoal("menu", -1); !errors.Is(err, ErrNegativeGoal) {
		t.Errorf("SetGoal(-1) error = %v, want ErrNegativeGoal", err)
	}
	if err := doc.SetGoal("menu", 0); err != nil {
		t.Fatalf("SetGoal(0) error: %v", err)
	}
	if doc.Goal("menu") != 0 {
		t.Errorf("Goal(menu) = %d, want 0", doc.Goal("menu"))
	}
}

func TestDocument_SetSalesGoal_RejectsNegative(t *testing.T) {
	doc := NewDocument(testWeek, DefaultSeed())
	if err := doc.SetSalesGoal(decimal.NewFromInt(-1)); !errors.Is(err, ErrNegativeAmount) {
		t.Errorf("SetSalesGoal(-1) error = %v, want ErrNegativeAmount", err)
	}
}

func TestDocument_Reset_PreservesGoals(t *testing.T) {
	doc := NewDocument(testWeek, DefaultSeed())
	doc.AddCount("u1", "menu", 10)
	doc.AddSales("u1", decimal.NewFromInt(100))
	doc.SetSalesGoal(decimal.NewFromInt(500))

	next := testWeek.AddDate(0, 0, 7)
	doc.Reset(next)

	if doc.ItemCounters.Len() != 0 {
		t.Errorf("ItemCounters.Len() = %d, want 0", doc.ItemCounters.Len())
	}
	if doc.SalesTotals.Len() != 0 {
		t.Errorf("SalesTotals.Len() = %d, want 0", doc.SalesTotals.Len())
	}
	if doc.Goal("menu") != 50 {
		t.Errorf("Goal(menu) = %d, want 50", doc.Goal("menu"))
	}
	if !doc.SalesGoal.Equal(decimal.NewFromInt(500)) {
		t.Errorf("SalesGoal = %s, want 500", doc.SalesGoal)
	}
	if !doc.IsCurrent(next) {
		t.Error("IsCurrent(next) should be true after Reset")
	}
}

func TestDocument_Clone_IsDeep(t *testing.T) {
	doc := NewDocument(testWeek, DefaultSeed())
	doc.AddCount("u1", "menu", 3)

	c := doc.Clone()
	c.AddCount("u1", "menu", 4)
	c.SetGoal("menu", 1)

	if doc.Count("u1", "menu") != 3 {
		t.Errorf("original Count() = %d, want 3", doc.Count("u1", "menu"))
	}
	if doc.Goal("menu") != 50 {
		t.Errorf("original Goal() = %d, want 50", doc.Goal("menu"))
	}
}

func TestDocument_Normalize(t *testing.T) {
	doc := &Document{Version: 1, WeekStart: testWeek}
	counts := NewOrderedMap[ItemID, int64]()
	counts.Set("menu", -3)
	doc.ItemCounters.Set("u1", counts)
	doc.ItemCounters.Set("u2", nil)
	doc.Goals.Set("menu", -1)
	doc.SalesTotals.Set("u1", decimal.NewFromInt(-7))

	doc.Normalize()

	if doc.Version != DocumentVersion {
		t.Errorf("Version = %d, want %d", doc.Version, DocumentVersion)
	}
	if doc.Count("u1", "menu") != 0 {
		t.Errorf("Count(u1, menu) = %d, want 0", doc.Count("u1", "menu"))
	}
	if doc.UserCounts("u2") == nil {
		t.Error("nil counters should be replaced by an empty map")
	}
	if doc.Goal("menu") != 0 {
		t.Errorf("Goal(menu) = %d, want 0", doc.Goal("menu"))
	}
	if !doc.Sales("u1").IsZero() {
		t.Errorf("Sales(u1) = %s, want 0", doc.Sales("u1"))
	}
}

// ─── Error Tests ────────────────────────────────────────────────────────────

func TestSentinelErrors(t *testing.T) {
	errs := []struct {
		name string
		err  error
	}{
		{"ErrQuotaNotFound", ErrQuotaNotFound},
		{"ErrNegativeGoal", ErrNegativeGoal},
		{"ErrNegativeAmount", ErrNegativeAmount},
		{"ErrInvalidQuantity", ErrInvalidQuantity},
		{"ErrSnapshotNotFound", ErrSnapshotNotFound},
		{"ErrSnapshotCorrupt", ErrSnapshotCorrupt},
	}

	for _, tt := range errs {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err == nil {
				t.Fatalf("%s is nil", tt.name)
			}
			if tt.err.Error() == "" {
				t.Errorf("%s.Error() is empty", tt.name)
			}
		})
	}
}
