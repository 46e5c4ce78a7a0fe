// Package daemon wires the ledger to its storage, scheduler and HTTP API
// and runs them under a suture supervisor.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/thejerf/suture/v4"

	"github.com/quotabot/quotabot/internal/api"
	"github.com/quotabot/quotabot/internal/app/ledger"
	"github.com/quotabot/quotabot/internal/domain"
	"github.com/quotabot/quotabot/internal/infra/jsonfile"
	"github.com/quotabot/quotabot/internal/infra/logging"
	"github.com/quotabot/quotabot/internal/infra/sqlite"
)

// Daemon holds the wired ledger components.
type Daemon struct {
	cfg      Config
	backend  domain.SnapshotBackend
	store    *ledger.Store
	rollover *ledger.Rollover
	service  *ledger.Service
}

// OpenBackend opens the snapshot backend selected by cfg.
func OpenBackend(cfg Config) (domain.SnapshotBackend, error) {
	switch cfg.Storage.Driver {
	case DriverJSON:
		return jsonfile.New(cfg.StoragePath()), nil
	case DriverSQLite:
		db, err := sqlite.Open(cfg.StoragePath())
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		return db, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

// New loads the ledger and builds the command service. now may be nil.
func New(ctx context.Context, cfg Config, now func() time.Time) (*Daemon, error) {
	rule, err := cfg.Week.Rule()
	if err != nil {
		return nil, err
	}
	backend, err := OpenBackend(cfg)
	if err != nil {
		return nil, err
	}

	store, err := ledger.Open(ctx, backend, ledger.Options{Seed: cfg.Seed(), Rule: rule, Now: now})
	if err != nil {
		backend.Close()
		return nil, err
	}
	rollover := ledger.NewRollover(store, rule, now)
	service := ledger.NewService(store, rollover, ledger.ServiceConfig{
		BarWidth:             cfg.Display.BarWidth,
		SalesLeaderboardSize: cfg.Sales.LeaderboardSize,
	})

	logging.Info().
		Str("driver", cfg.Storage.Driver).
		Str("path", cfg.StoragePath()).
		Time("week_start", store.WeekStart()).
		Time("next_rollover", rollover.NextBoundary()).
		Msg("ledger loaded")

	return &Daemon{
		cfg:      cfg,
		backend:  backend,
		store:    store,
		rollover: rollover,
		service:  service,
	}, nil
}

// Service returns the command service.
func (d *Daemon) Service() *ledger.Service { return d.service }

// Close releases the storage backend.
func (d *Daemon) Close() error { return d.backend.Close() }

// Run serves the rollover scheduler and the HTTP API until ctx is canceled.
func (d *Daemon) Run(ctx context.Context) error {
	root := suture.New("quotabot", suture.Spec{
		EventHook: supervisorHook,
		Timeout:   10 * time.Second,
	})

	root.Add(ledger.NewScheduler(d.rollover))

	srv := api.NewServer(d.service)
	if d.cfg.API.Metrics {
		srv.EnableMetrics()
	}
	root.Add(api.NewHTTPService(&http.Server{
		Addr:              d.cfg.Addr(),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}, 10*time.Second))

	err := root.Serve(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// supervisorHook forwards suture events to the structured logger.
func supervisorHook(e suture.Event) {
	ev := logging.Warn()
	if e.Type() == suture.EventTypeResume {
		ev = logging.Info()
	}
	ev.Fields(e.Map()).Msg(e.String())
}
