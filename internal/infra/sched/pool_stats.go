package sched

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"jobboard-billing/internal/infra/metrics"
)

// PoolStatsFunc samples connection counts.
type PoolStatsFunc func() (total, idle, inUse int32)

// PgxPoolStats samples a pgx pool.
func PgxPoolStats(pool *pgxpool.Pool) PoolStatsFunc {
	return func() (int32, int32, int32) {
		s := pool.Stat()
		return s.TotalConns(), s.IdleConns(), s.AcquiredConns()
	}
}

// ReportPoolStats publishes pool gauges every interval until ctx is done.
func ReportPoolStats(ctx context.Context, interval time.Duration, sample PoolStatsFunc) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		metrics.SetDBPoolStats(sample())
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
