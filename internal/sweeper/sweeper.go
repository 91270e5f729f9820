// Package sweeper reconciles reservations abandoned by crashed payment
// handlers: open tokens older than the TTL get released so their quota
// returns to the pool.
package sweeper

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/kastov/vpnshop/internal/clock"
	"github.com/kastov/vpnshop/internal/service"
)

type Sweeper struct {
	ledger    *service.Ledger
	clock     clock.Clock
	ttl       time.Duration
	interval  time.Duration
	scheduler gocron.Scheduler
}

func New(ledger *service.Ledger, clk clock.Clock, ttl, interval time.Duration) *Sweeper {
	return &Sweeper{ledger: ledger, clock: clk, ttl: ttl, interval: interval}
}

func (s *Sweeper) Start(ctx context.Context) error {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return err
	}
	s.scheduler = sched

	_, err = sched.NewJob(
		gocron.DurationJob(s.interval),
		gocron.NewTask(func() {
			s.Sweep(ctx)
		}),
	)
	if err != nil {
		return err
	}

	sched.Start()
	return nil
}

func (s *Sweeper) Stop() {
	if s.scheduler != nil {
		_ = s.scheduler.Shutdown()
	}
}

// Sweep runs one reconciliation pass.
func (s *Sweeper) Sweep(ctx context.Context) {
	cutoff := s.clock.Now().Add(-s.ttl)
	released, err := s.ledger.ReleaseStale(ctx, cutoff)
	if err != nil {
		slog.Error("stale reservation sweep failed", "error", err)
		return
	}
	if released > 0 {
		slog.Info("released stale reservations", "count", released, "cutoff", cutoff)
	}
}
