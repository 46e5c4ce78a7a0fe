package cli

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"

	"github.com/quotabot/quotabot/internal/app/ledger"
	"github.com/quotabot/quotabot/internal/domain"
)

// ─── Text Rendering ─────────────────────────────────────────────────────────
// Messages keep the wording the team already knows from the chat bot.

func money(d decimal.Decimal) string { return d.StringFixed(2) }

func day(t time.Time) string { return t.Format("2006-01-02") }

func renderQuotaChange(w io.Writer, c ledger.QuotaChange, added bool) {
	verb := "ajouté(s) à"
	if !added {
		verb = "retiré(s) à"
	}
	fmt.Fprintf(w, "✅ %d %s %s %s\n", c.Quantity, c.Item, verb, c.User)
	if c.Goal > 0 {
		fmt.Fprintf(w, "   %s  %d/%d (%d%%)\n", c.Bar, c.Count, c.Goal, c.Percent)
	} else {
		fmt.Fprintf(w, "   total: %d (pas d'objectif)\n", c.Count)
	}
}

func renderQuotaReport(w io.Writer, r ledger.QuotaReport) {
	fmt.Fprintf(w, "📊 Quotas de %s (semaine du %s)\n", r.User, day(r.WeekStart))
	switch {
	case r.AllDone:
		fmt.Fprintln(w, "🎉 Tous les objectifs sont atteints !")
	case len(r.Items) == 0:
		fmt.Fprintln(w, "Aucun objectif défini.")
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, it := range r.Items {
		mark := ""
		if it.Completed() {
			mark = "✅"
		}
		fmt.Fprintf(tw, "  %s\t%s\t%d/%d\t(%d%%)\t%s\n", it.Item, it.Bar, it.Current, it.Goal, it.Percent, mark)
	}
	tw.Flush()

	for _, it := range r.Untracked {
		fmt.Fprintf(w, "  hors objectif: %s %d\n", it.Item, it.Current)
	}
}

func renderQuotaLeaderboard(w io.Writer, rows []ledger.QuotaRow) {
	if len(rows) == 0 {
		fmt.Fprintln(w, "Aucun quota enregistré cette semaine.")
		return
	}
	fmt.Fprintln(w, "🏆 Classement des quotas")
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, r := range rows {
		mark := ""
		if r.FinishedAll {
			mark = "✅"
		}
		fmt.Fprintf(tw, "  %d.\t%s\t%s\t%d/%d\t(%d%%)\t%s\n", r.Rank, r.User, r.Bar, r.Total, r.GoalTotal, r.Percent, mark)
	}
	tw.Flush()
}

func renderGoals(w io.Writer, goals []domain.GoalEntry) {
	if len(goals) == 0 {
		fmt.Fprintln(w, "Aucun objectif défini.")
		return
	}
	fmt.Fprintln(w, "🎯 Objectifs de la semaine")
	for _, g := range goals {
		fmt.Fprintf(w, "  %s: %d\n", g.Item, g.Goal)
	}
}

func renderSales(w io.Writer, r ledger.SalesReport, withTeam bool) {
	if r.Goal.Sign() <= 0 {
		fmt.Fprintf(w, "💰 Ventes de %s: %s\n", r.User, money(r.Total))
		if withTeam {
			fmt.Fprintf(w, "   équipe: %s\n", money(r.TeamTotal))
		}
		fmt.Fprintln(w, "   Aucun objectif de vente défini.")
		return
	}
	fmt.Fprintf(w, "💰 Ventes de %s: %s / %s (%d%%)\n", r.User, money(r.Total), money(r.Goal), r.Percent)
	fmt.Fprintf(w, "   %s\n", r.Bar)
	if withTeam {
		fmt.Fprintf(w, "   équipe: %s / %s (%d%%)\n", money(r.TeamTotal), money(r.Goal), r.TeamPercent)
		fmt.Fprintf(w, "   %s\n", r.TeamBar)
	}
}

func renderSalesLeaderboard(w io.Writer, rows []domain.SalesStanding) {
	if len(rows) == 0 {
		fmt.Fprintln(w, "Aucune vente enregistrée cette semaine.")
		return
	}
	fmt.Fprintln(w, "🏆 Classement des ventes")
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, r := range rows {
		fmt.Fprintf(tw, "  %d.\t%s\t%s\n", r.Rank, r.User, money(r.Total))
	}
	tw.Flush()
}

func renderRollover(w io.Writer, r ledger.RolloverResult) {
	if r.Rolled {
		fmt.Fprintf(w, "🔄 Nouvelle semaine: compteurs remis à zéro (semaine du %s)\n", day(r.WeekStart))
	} else {
		fmt.Fprintf(w, "Semaine du %s déjà en cours.\n", day(r.WeekStart))
	}
	fmt.Fprintf(w, "Prochaine remise à zéro: %s\n", r.NextRollover.Format("2006-01-02 15:04 MST"))
}
