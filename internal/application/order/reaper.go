package order

import (
	"context"
	"time"

	"github.com/Zhima-Mochi/minishop-fashion/internal/application"
	domain "github.com/Zhima-Mochi/minishop-fashion/internal/domain/order"
	"github.com/Zhima-Mochi/minishop-fashion/internal/observability"
	"github.com/Zhima-Mochi/minishop-fashion/internal/observability/logctx"
	"github.com/google/uuid"

	"go.opentelemetry.io/otel/attribute"
)

const (
	useCaseReap = "order.reap_pending"

	reaperLockKey         = "reaper:orders"
	defaultReaperInterval = time.Hour
	defaultPendingTimeout = 24 * time.Hour
	defaultReaperBatch    = 200
	defaultReaperLockTTL  = 5 * time.Minute
)

type ReaperConfig struct {
	Interval       time.Duration
	PendingTimeout time.Duration
	BatchSize      int
	LockTTL        time.Duration
}

// Reaper cancels orders left pending past the payment timeout. With a Locker
// only one instance scans per tick; without one it assumes a single instance.
type Reaper struct {
	orders    domain.Repository
	canceller canceller
	locker    Locker
	cfg       ReaperConfig
	now       func() time.Time
	inst      application.Instruments

	cancelled observability.Counter // reaper_cancelled_orders_total{outcome}
}

func NewReaper(d Deps, locker Locker, cfg ReaperConfig) *Reaper {
	d = d.withDefaults()
	if cfg.Interval <= 0 {
		cfg.Interval = defaultReaperInterval
	}
	if cfg.PendingTimeout <= 0 {
		cfg.PendingTimeout = defaultPendingTimeout
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultReaperBatch
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = defaultReaperLockTTL
	}

	r := &Reaper{
		orders:    d.Orders,
		locker:    locker,
		cfg:       cfg,
		now:       d.Now,
		inst:      application.NewInstruments(d.Tel, "order-reaper"),
		cancelled: d.Tel.Metrics().Counter(observability.MReaperCancelledOrders),
	}
	r.canceller = canceller{orders: d.Orders, publisher: d.Publisher, now: d.Now, inst: &r.inst}
	return r
}

// Run ticks until ctx is done.
func (r *Reaper) Run(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	r.inst.Logger().Info("reaper_started",
		observability.F("interval", r.cfg.Interval.String()),
		observability.F("pending_timeout", r.cfg.PendingTimeout.String()),
	)
	for {
		select {
		case <-ticker.C:
			tickCtx := logctx.With(ctx, r.inst.Logger().With(observability.F("tick_id", uuid.NewString())))
			_, _ = r.RunOnce(tickCtx)
		case <-ctx.Done():
			r.inst.Logger().Info("reaper_stopped")
			return
		}
	}
}

// RunOnce performs one scan and returns how many orders it cancelled.
func (r *Reaper) RunOnce(ctx context.Context) (n int, err error) {
	ctx, p := r.inst.Begin(ctx, useCaseReap, "ReapPendingOrders",
		attribute.String("reaper.pending_timeout", r.cfg.PendingTimeout.String()),
	)
	defer func() {
		p.With(observability.F("cancelled", n))
		p.End(err)
	}()

	if r.locker != nil {
		unlock, acquired, lockErr := r.locker.TryLock(ctx, reaperLockKey, r.cfg.LockTTL)
		if lockErr != nil {
			p.Fail("LOCK_FAILED")
			return 0, lockErr
		}
		if !acquired {
			p.Note("LOCK_HELD_ELSEWHERE")
			return 0, nil
		}
		defer func() {
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				p.Logger().Warn("reaper_unlock_failed", observability.F("error", err))
			}
		}()
	}

	cutoff := r.now().Add(-r.cfg.PendingTimeout)
	stale, err := r.orders.ListStalePending(ctx, cutoff, r.cfg.BatchSize)
	if err != nil {
		p.Fail("REPO_LIST_FAILED")
		return 0, wrapRepositoryError(err)
	}

	failed := 0
	for _, o := range stale {
		if ctx.Err() != nil {
			break
		}
		_, changed, cerr := r.canceller.cancel(ctx, p, o, ReasonPaymentTimeout)
		switch {
		case cerr != nil:
			failed++
			r.cancelled.Add(1, observability.L("outcome", "error"))
			p.Logger().Warn("reaper_cancel_failed",
				observability.F("order_id", o.ID),
				observability.F("error", cerr),
			)
		case changed:
			n++
			r.cancelled.Add(1, observability.L("outcome", "success"))
		}
	}

	if failed > 0 {
		p.Note("PARTIAL_FAILURE")
		p.With(observability.F("failed", failed))
	}
	return n, nil
}
