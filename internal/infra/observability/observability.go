// Package observability holds the ledger's Prometheus metrics.
//
// Metrics are registered on the default registry through promauto and served
// by the API's /metrics endpoint when enabled:
//   - command throughput and latency by command and outcome
//   - weekly rollovers by trigger (command path vs scheduler)
//   - snapshot save latency and failures, load recoveries
package observability

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/quotabot/quotabot/internal/domain"
)

// Outcome labels for command metrics.
const (
	OutcomeOK       = "ok"
	OutcomeNotFound = "not_found"
	OutcomeInvalid  = "invalid"
	OutcomeError    = "error"
)

// ─── Command Metrics ────────────────────────────────────────────────────────

// CommandsTotal counts handled commands.
var CommandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "quotabot",
	Subsystem: "ledger",
	Name:      "commands_total",
	Help:      "Total ledger commands handled, by command and outcome.",
}, []string{"command", "outcome"})

// CommandDuration tracks end-to-end command latency, including the save.
var CommandDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "quotabot",
	Subsystem: "ledger",
	Name:      "command_duration_seconds",
	Help:      "Ledger command latency in seconds.",
	Buckets:   []float64{.0005, .001, .005, .01, .025, .05, .1, .25, 1},
}, []string{"command"})

// ─── Rollover Metrics ───────────────────────────────────────────────────────

// RolloversTotal counts weekly resets by the trigger that performed them.
var RolloversTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "quotabot",
	Subsystem: "ledger",
	Name:      "rollovers_total",
	Help:      "Total weekly rollovers, by trigger (command or schedule).",
}, []string{"trigger"})

// WeekStart exposes the current week-start marker as a Unix timestamp.
var WeekStart = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "quotabot",
	Subsystem: "ledger",
	Name:      "week_start_timestamp_seconds",
	Help:      "Start of the week the ledger counters belong to.",
})

// ─── Snapshot Metrics ───────────────────────────────────────────────────────

// SnapshotSaveDuration tracks write-through save latency.
var SnapshotSaveDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: "quotabot",
	Subsystem: "snapshot",
	Name:      "save_duration_seconds",
	Help:      "Snapshot save latency in seconds.",
	Buckets:   []float64{.0005, .001, .005, .01, .025, .05, .1, .5},
})

// SnapshotSaveFailures counts failed saves.
var SnapshotSaveFailures = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "quotabot",
	Subsystem: "snapshot",
	Name:      "save_failures_total",
	Help:      "Total snapshot saves that failed.",
})

// SnapshotLoadRecoveries counts loads that fell back to or migrated the document.
var SnapshotLoadRecoveries = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "quotabot",
	Subsystem: "snapshot",
	Name:      "load_recoveries_total",
	Help:      "Snapshot loads that substituted defaults or migrated an older shape, by reason.",
}, []string{"reason"})

// ─── Helpers ────────────────────────────────────────────────────────────────

// Outcome classifies a command error into a metric label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, domain.ErrQuotaNotFound):
		return OutcomeNotFound
	case errors.Is(err, domain.ErrNegativeGoal),
		errors.Is(err, domain.ErrNegativeAmount),
		errors.Is(err, domain.ErrInvalidQuantity),
		errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrUnknownUser),
		errors.Is(err, domain.ErrUnknownItem):
		return OutcomeInvalid
	default:
		return OutcomeError
	}
}

// ObserveCommand records one handled command.
func ObserveCommand(command string, start time.Time, err error) {
	CommandsTotal.WithLabelValues(command, Outcome(err)).Inc()
	CommandDuration.WithLabelValues(command).Observe(time.Since(start).Seconds())
}

// ObserveSave records one snapshot save.
func ObserveSave(start time.Time, err error) {
	SnapshotSaveDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		SnapshotSaveFailures.Inc()
	}
}

// SetWeekStart publishes the current week marker.
func SetWeekStart(t time.Time) {
	WeekStart.Set(float64(t.Unix()))
}
