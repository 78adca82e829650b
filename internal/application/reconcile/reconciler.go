// Package reconcile cancels purchases whose reservation or payment deadline
// passed without the saga moving on.
package reconcile

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/LuongTanDat03/reuse-hub-sub000/internal/domain/transaction"
	"github.com/LuongTanDat03/reuse-hub-sub000/internal/infrastructure/observability"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const lockName = "reconcile:transactions"

// Expirer is the transaction service entry point for one expired purchase.
type Expirer interface {
	Expire(ctx context.Context, id uuid.UUID) (bool, error)
}

// Locker runs fn while holding a named lock shared by every replica.
// It reports false without running fn when another holder has the lock.
type Locker interface {
	Do(ctx context.Context, name string, ttl time.Duration, fn func(ctx context.Context) error) (bool, error)
}

type Config struct {
	Interval  time.Duration
	BatchSize int
	LockTTL   time.Duration
}

type Reconciler struct {
	repo     transaction.Repository
	expirer  Expirer
	locker   Locker
	cfg      Config
	metrics  *observability.Metrics
	logger   zerolog.Logger
	now      func() time.Time
	inFlight atomic.Bool
}

func New(repo transaction.Repository, expirer Expirer, locker Locker, cfg Config, metrics *observability.Metrics, logger zerolog.Logger) *Reconciler {
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = cfg.Interval
	}
	return &Reconciler{
		repo:    repo,
		expirer: expirer,
		locker:  locker,
		cfg:     cfg,
		metrics: metrics,
		logger:  observability.Component(logger, "reconciler"),
		now:     time.Now,
	}
}

// Run ticks until ctx is cancelled.
func (r *Reconciler) Run(ctx context.Context) error {
	r.logger.Info().Dur("interval", r.cfg.Interval).Int("batch_size", r.cfg.BatchSize).Msg("Reconciler started")
	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			r.logger.Info().Msg("Reconciler stopped")
			return nil
		case <-ticker.C:
		}
		if _, err := r.RunOnce(ctx); err != nil {
			r.logger.Error().Err(err).Msg("Reconcile run failed")
		}
	}
}

// RunOnce performs one pass and returns how many transactions it cancelled.
// A pass already running in this process, or one holding the shared lock in
// another, makes this a no-op.
func (r *Reconciler) RunOnce(ctx context.Context) (int, error) {
	if !r.inFlight.CompareAndSwap(false, true) {
		r.recordRun("skipped")
		return 0, nil
	}
	defer r.inFlight.Store(false)

	start := time.Now()
	var cancelled int
	acquired, err := r.locker.Do(ctx, lockName, r.cfg.LockTTL, func(ctx context.Context) error {
		var err error
		cancelled, err = r.sweep(ctx)
		return err
	})
	if r.metrics != nil {
		r.metrics.ReconcilerDuration.Observe(time.Since(start).Seconds())
	}
	switch {
	case err != nil:
		r.recordRun("error")
		return cancelled, err
	case !acquired:
		r.recordRun("locked")
		r.logger.Debug().Msg("Another replica holds the reconcile lock")
		return 0, nil
	}
	r.recordRun("ok")
	return cancelled, nil
}

func (r *Reconciler) sweep(ctx context.Context) (int, error) {
	expired, err := r.repo.ListExpired(ctx, r.now(), r.cfg.BatchSize)
	if err != nil {
		return 0, err
	}
	if len(expired) == 0 {
		return 0, nil
	}

	var cancelled int
	for _, t := range expired {
		if ctx.Err() != nil {
			break
		}
		ok, err := r.expirer.Expire(ctx, t.ID)
		if err != nil {
			// One bad row must not stall the batch; it is picked up next tick.
			r.logger.Error().Err(err).Str("transaction_id", t.ID.String()).Msg("Failed to expire transaction")
			continue
		}
		if ok {
			cancelled++
		}
	}
	if r.metrics != nil {
		r.metrics.ReconcilerCancellations.Add(float64(cancelled))
	}
	r.logger.Info().Int("found", len(expired)).Int("cancelled", cancelled).Msg("Expired transactions reconciled")
	return cancelled, nil
}

func (r *Reconciler) recordRun(result string) {
	if r.metrics != nil {
		r.metrics.ReconcilerRuns.WithLabelValues(result).Inc()
	}
}
