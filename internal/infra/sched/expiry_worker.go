package sched

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	red "jobboard-billing/internal/infra/redis"
)

const expiryLockKey = "lock:billing:expiry_sweep"

// Sweeper persists expiry for subscriptions whose window has closed.
type Sweeper interface {
	ExpireOverdue(ctx context.Context) (int64, error)
}

// ExpiryWorker periodically runs the expiry sweep. Reads apply expiry lazily,
// so the sweep only keeps stored statuses and gauges honest.
type ExpiryWorker struct {
	interval time.Duration
	sweeper  Sweeper
	locker   red.Locker // optional; nil runs the sweep on every replica
	log      *zerolog.Logger
}

func NewExpiryWorker(interval time.Duration, sweeper Sweeper, locker red.Locker, logger *zerolog.Logger) *ExpiryWorker {
	exprLog := logger.With().Str("component", "ExpiryWorker").Logger()
	return &ExpiryWorker{
		interval: interval,
		sweeper:  sweeper,
		locker:   locker,
		log:      &exprLog,
	}
}

func (w *ExpiryWorker) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Msg("Starting expiry worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping expiry worker")
			return ctx.Err()
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *ExpiryWorker) tick(ctx context.Context) {
	if w.locker != nil {
		token, err := w.locker.TryLock(ctx, expiryLockKey, w.interval)
		if errors.Is(err, red.ErrLockHeld) {
			w.log.Debug().Msg("expiry sweep owned by another replica")
			return
		}
		if err != nil {
			// The sweep is idempotent.
			w.log.Warn().Err(err).Msg("expiry lock unavailable, sweeping anyway")
		} else {
			defer func() {
				if err := w.locker.Unlock(context.Background(), expiryLockKey, token); err != nil {
					w.log.Warn().Err(err).Msg("expiry lock release failed")
				}
			}()
		}
	}

	n, err := w.sweeper.ExpireOverdue(ctx)
	if err != nil {
		w.log.Error().Err(err).Msg("expiry worker error")
		return
	}
	if n > 0 {
		w.log.Info().Int64("count", n).Msg("expired subscriptions finished")
	}
}
