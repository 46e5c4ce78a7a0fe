package ledger

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"

	"github.com/quotabot/quotabot/internal/domain"
	"github.com/quotabot/quotabot/internal/infra/logging"
	"github.com/quotabot/quotabot/internal/infra/observability"
)

// ─── Quotas ─────────────────────────────────────────────────────────────────

func TestService_QuotaAddAndView(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(t)
	if _, err := l.service.GoalSet(ctx, "itemA", 10); err != nil {
		t.Fatal(err)
	}

	change, err := l.service.QuotaAdd(ctx, "u1", "itemA", 7)
	if err != nil {
		t.Fatalf("QuotaAdd() error: %v", err)
	}
	if change.Count != 7 || change.Goal != 10 || change.Percent != 70 {
		t.Errorf("QuotaAdd() = %+v, want 7/10 at 70%%", change)
	}
	if change.Bar != "███████░░░" {
		t.Errorf("Bar = %q, want 7 filled cells", change.Bar)
	}

	report, err := l.service.QuotaView(ctx, "u1", false)
	if err != nil {
		t.Fatalf("QuotaView() error: %v", err)
	}
	var line *ItemLine
	for i := range report.Items {
		if report.Items[i].Item == "itemA" {
			line = &report.Items[i]
		}
	}
	if line == nil {
		t.Fatal("QuotaView() missing itemA")
	}
	if line.Percent != 70 || line.Bar != "███████░░░" {
		t.Errorf("itemA line = %+v, want 70%% and 7 cells", *line)
	}
	// untouched goals show as 0%, so they sort ahead of itemA
	if report.Items[0].Percent != 0 {
		t.Errorf("first line = %+v, want most-behind first", report.Items[0])
	}
}

func TestService_QuotaViewHidesCompleted(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(t)
	for _, g := range domain.GoalList(l.store.Snapshot()) {
		if _, err := l.service.GoalSet(ctx, g.Item, 0); err != nil {
			t.Fatal(err)
		}
	}
	l.service.GoalSet(ctx, "menu", 2)
	l.service.QuotaAdd(ctx, "u1", "menu", 2)
	l.service.QuotaAdd(ctx, "u1", "glace", 1)

	report, err := l.service.QuotaView(ctx, "u1", false)
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Items) != 0 || !report.AllDone {
		t.Errorf("QuotaView(showAll=false) = %+v, want all done", report)
	}
	if len(report.Untracked) != 1 || report.Untracked[0].Item != "glace" {
		t.Errorf("Untracked = %+v, want glace", report.Untracked)
	}

	report, _ = l.service.QuotaView(ctx, "u1", true)
	if len(report.Items) != 1 || !report.Items[0].Completed() {
		t.Errorf("QuotaView(showAll=true) = %+v, want the completed menu line", report.Items)
	}
}

func TestService_InvalidInput(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(t)

	tests := []struct {
		name string
		run  func() error
		want error
	}{
		{"zero quantity", func() error { _, err := l.service.QuotaAdd(ctx, "u1", "menu", 0); return err }, domain.ErrInvalidQuantity},
		{"negative removal", func() error { _, err := l.service.QuotaRemove(ctx, "u1", "menu", -3); return err }, domain.ErrInvalidQuantity},
		{"missing quota", func() error { _, err := l.service.QuotaRemove(ctx, "u1", "menu", 1); return err }, domain.ErrQuotaNotFound},
		{"negative goal", func() error { _, err := l.service.GoalSet(ctx, "menu", -1); return err }, domain.ErrNegativeGoal},
		{"zero sale", func() error { _, err := l.service.SalesAdd(ctx, "u1", decimal.Zero); return err }, domain.ErrInvalidAmount},
		{"negative sale", func() error { _, err := l.service.SalesAdd(ctx, "u1", decimal.NewFromInt(-4)); return err }, domain.ErrInvalidAmount},
		{"negative sales goal", func() error { _, err := l.service.SalesGoalSet(ctx, decimal.NewFromInt(-1)); return err }, domain.ErrNegativeAmount},
		{"no user", func() error { _, err := l.service.QuotaView(ctx, "", false); return err }, domain.ErrUnknownUser},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.run(); !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestService_QuotaLeaderboard(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(t)
	// default goals: menu 50, cheeseburger 30, frites 30, boisson 30
	l.service.QuotaAdd(ctx, "u1", "menu", 60)
	l.service.QuotaAdd(ctx, "u2", "menu", 50)
	l.service.QuotaAdd(ctx, "u2", "cheeseburger", 30)
	l.service.QuotaAdd(ctx, "u2", "frites", 30)
	l.service.QuotaAdd(ctx, "u2", "boisson", 30)

	rows, err := l.service.QuotaLeaderboard(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("len(rows) = %d, want 2", len(rows))
	}
	if rows[0].User != "u2" || !rows[0].FinishedAll || rows[0].Rank != 1 {
		t.Errorf("rows[0] = %+v, want u2 finished first", rows[0])
	}
	if rows[1].User != "u1" || rows[1].Percent != 43 {
		t.Errorf("rows[1] = %+v, want u1 at 43%%", rows[1])
	}
	if rows[0].Bar != "██████████" {
		t.Errorf("rows[0].Bar = %q, want full", rows[0].Bar)
	}
}

// ─── Sales ──────────────────────────────────────────────────────────────────

func TestService_Sales(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(t)
	l.service.SalesGoalSet(ctx, decimal.NewFromInt(200))

	if _, err := l.service.SalesAdd(ctx, "u1", decimal.NewFromInt(50)); err != nil {
		t.Fatal(err)
	}
	l.service.SalesAdd(ctx, "u2", decimal.NewFromInt(30))

	mine, err := l.service.SalesMine(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if !mine.Total.Equal(decimal.NewFromInt(50)) || !mine.TeamTotal.Equal(decimal.NewFromInt(80)) {
		t.Errorf("SalesMine() = %+v, want 50 of team 80", mine.SalesSummary)
	}
	if mine.Percent != 25 || mine.TeamPercent != 40 {
		t.Errorf("percents = %d/%d, want 25/40", mine.Percent, mine.TeamPercent)
	}
	if mine.TeamBar != "████░░░░░░" {
		t.Errorf("TeamBar = %q, want 4 filled cells", mine.TeamBar)
	}

	removed, err := l.service.SalesRemove(ctx, "u1", decimal.NewFromInt(80))
	if err != nil {
		t.Fatal(err)
	}
	if !removed.Total.IsZero() {
		t.Errorf("SalesRemove() total = %s, want clamped to 0", removed.Total)
	}

	board, err := l.service.SalesLeaderboard(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(board) != 2 || board[0].User != "u2" {
		t.Errorf("SalesLeaderboard() = %+v, want u2 first", board)
	}

	other, err := l.service.SalesView(ctx, "u3")
	if err != nil {
		t.Fatal(err)
	}
	if !other.Total.IsZero() {
		t.Errorf("SalesView(unknown) = %s, want 0", other.Total)
	}
}

// ─── Rollover Path ──────────────────────────────────────────────────────────

func TestService_CommandRollsOverFirst(t *testing.T) {
	ctx := context.Background()
	l := seedLastWeek(t)

	change, err := l.service.QuotaAdd(ctx, "u1", "menu", 1)
	if err != nil {
		t.Fatal(err)
	}
	if change.Count != 1 {
		t.Errorf("Count = %d, want 1 (last week's 12 cleared)", change.Count)
	}
	if !l.store.WeekStart().Equal(testWeek) {
		t.Errorf("WeekStart = %v, want %v", l.store.WeekStart(), testWeek)
	}
}

func TestService_RolloverFailureFailsCommand(t *testing.T) {
	l := seedLastWeek(t)
	l.backend.setFailWrites(true)

	_, err := l.service.GoalView(context.Background())
	if !errors.Is(err, errDiskFull) {
		t.Errorf("GoalView() error = %v, want rollover save failure", err)
	}
}

func TestService_ManualRollover(t *testing.T) {
	ctx := context.Background()
	l := seedLastWeek(t)

	res, err := l.service.Rollover(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Rolled || !res.WeekStart.Equal(testWeek) || !res.NextRollover.Equal(testWeek.AddDate(0, 0, 7)) {
		t.Errorf("Rollover() = %+v", res)
	}
	res, _ = l.service.Rollover(ctx)
	if res.Rolled {
		t.Error("second Rollover() should be a no-op")
	}
}

func TestService_ManualRolloverFailureIsObserved(t *testing.T) {
	var buf bytes.Buffer
	logging.Init(logging.Config{Level: "info", Format: "json", Output: &buf})
	t.Cleanup(func() { logging.Init(logging.DefaultConfig()) })

	l := seedLastWeek(t)
	l.backend.setFailWrites(true)
	failed := observability.CommandsTotal.WithLabelValues(CmdRollover, observability.OutcomeError)
	before := testutil.ToFloat64(failed)

	if _, err := l.service.Rollover(context.Background()); !errors.Is(err, errDiskFull) {
		t.Fatalf("Rollover() error = %v, want %v", err, errDiskFull)
	}
	if d := testutil.ToFloat64(failed) - before; d != 1 {
		t.Errorf("failed rollover commands = %v, want 1", d)
	}

	var line string
	for _, ln := range strings.Split(buf.String(), "\n") {
		if strings.Contains(ln, `"message":"command failed"`) {
			line = ln
		}
	}
	if line == "" {
		t.Fatalf("no command failure logged:\n%s", buf.String())
	}
	if !strings.Contains(line, `"command":"rollover"`) || !strings.Contains(line, `"cmd_id":"`) {
		t.Errorf("failure line = %s, want command and cmd_id fields", line)
	}
}

func TestService_State(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(t)
	l.service.QuotaAdd(ctx, "u1", "menu", 3)

	doc, err := l.service.State(ctx)
	if err != nil {
		t.Fatal(err)
	}
	doc.AddCount("u1", "menu", 10)
	if n := l.store.Snapshot().Count("u1", "menu"); n != 3 {
		t.Errorf("State() leaked the live document: count = %d", n)
	}
}

func TestService_CommandMetrics(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(t)
	ok := observability.CommandsTotal.WithLabelValues(CmdQuotaAdd, observability.OutcomeOK)
	invalid := observability.CommandsTotal.WithLabelValues(CmdQuotaAdd, observability.OutcomeInvalid)
	okBefore, invalidBefore := testutil.ToFloat64(ok), testutil.ToFloat64(invalid)

	l.service.QuotaAdd(ctx, "u1", "menu", 1)
	l.service.QuotaAdd(ctx, "u1", "menu", 0)

	if d := testutil.ToFloat64(ok) - okBefore; d != 1 {
		t.Errorf("ok commands = %v, want 1", d)
	}
	if d := testutil.ToFloat64(invalid) - invalidBefore; d != 1 {
		t.Errorf("invalid commands = %v, want 1", d)
	}
}
