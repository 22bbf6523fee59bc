package ratelimit

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/robfig/cron/v3"
)

// Sweeper deletes expired rate-limit window rows. Windows are only read for
// the current minute, so anything older than two minutes is garbage; without
// the sweep the table grows without bound.
type Sweeper struct {
	pool *pgxpool.Pool
	cron *cron.Cron
}

func NewSweeper(pool *pgxpool.Pool) *Sweeper {
	return &Sweeper{pool: pool, cron: cron.New()}
}

// Start schedules an hourly sweep and runs one immediately.
func (s *Sweeper) Start() error {
	if _, err := s.cron.AddFunc("@hourly", s.sweep); err != nil {
		return err
	}
	s.cron.Start()
	go s.sweep()
	return nil
}

func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Sweeper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	tag, err := s.pool.Exec(ctx,
		`DELETE FROM rate_limit_windows WHERE window_start < NOW() - INTERVAL '2 minutes'`)
	if err != nil {
		slog.Warn("sweeping rate limit windows", "error", err)
		return
	}
	if n := tag.RowsAffected(); n > 0 {
		slog.Debug("swept rate limit windows", "deleted", n)
	}
}
