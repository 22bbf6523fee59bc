package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresLimiter counts requests in fixed one-minute windows stored as rows
// keyed by (identity_key, window_start). The first request of a window races
// through an ON CONFLICT DO NOTHING insert, so concurrent creators converge
// on one row; admission is a single conditional increment, which keeps the
// check-and-increment atomic across server processes.
type PostgresLimiter struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

func NewPostgresLimiter(pool *pgxpool.Pool) *PostgresLimiter {
	return &PostgresLimiter{pool: pool, now: time.Now}
}

func (l *PostgresLimiter) Backend() string { return "postgres" }

func (l *PostgresLimiter) Allow(ctx context.Context, key string, perMinute int) error {
	if perMinute <= 0 {
		return ErrRateLimited
	}

	windowStart := l.now().UTC().Truncate(time.Minute)

	_, err := l.pool.Exec(ctx,
		`INSERT INTO rate_limit_windows (identity_key, window_start, count)
		 VALUES ($1, $2, 0)
		 ON CONFLICT (identity_key, window_start) DO NOTHING`,
		key, windowStart)
	if err != nil {
		return fmt.Errorf("ensuring rate limit window: %w", err)
	}

	tag, err := l.pool.Exec(ctx,
		`UPDATE rate_limit_windows
		 SET count = count + 1
		 WHERE identity_key = $1 AND window_start = $2 AND count < $3`,
		key, windowStart, perMinute)
	if err != nil {
		return fmt.Errorf("incrementing rate limit window: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRateLimited
	}
	return nil
}
