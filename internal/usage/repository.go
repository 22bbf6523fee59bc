package usage

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository interface {
	GetOrCreate(ctx context.Context, userID uuid.UUID, month string) (*Record, error)
	AddStorage(ctx context.Context, tx pgx.Tx, userID uuid.UUID, month string, bytes, limitBytes int64) (bool, error)
	AddExtractionCall(ctx context.Context, tx pgx.Tx, userID uuid.UUID, month string, limit int) (bool, error)
	ReleaseStorage(ctx context.Context, tx pgx.Tx, userID uuid.UUID, month string, bytes int64) error
}

type postgresRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &postgresRepository{pool: pool}
}

// GetOrCreate returns the user's row for the month, creating it if absent.
func (r *postgresRepository) GetOrCreate(ctx context.Context, userID uuid.UUID, month string) (*Record, error) {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO usage_months (id, user_id, month)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (user_id, month) DO NOTHING`,
		uuid.New(), userID, month)
	if err != nil {
		return nil, fmt.Errorf("ensuring usage month: %w", err)
	}

	var rec Record
	err = r.pool.QueryRow(ctx,
		`SELECT id, user_id, month, storage_bytes, extraction_calls, updated_at
		 FROM usage_months WHERE user_id = $1 AND month = $2`, userID, month,
	).Scan(&rec.ID, &rec.UserID, &rec.Month, &rec.StorageBytes, &rec.ExtractionCalls, &rec.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("fetching usage month: %w", err)
	}
	return &rec, nil
}

// AddStorage increments the month's stored-bytes counter inside the caller's
// transaction, so an upload's artifact row and its usage charge land together.
// The increment is conditional on the ceiling, the same atomic
// check-and-increment the rate limiter uses: two concurrent uploads that both
// passed the advisory check race here, and the loser's update matches no row.
// Returns false when applying the charge would exceed limitBytes.
func (r *postgresRepository) AddStorage(ctx context.Context, tx pgx.Tx, userID uuid.UUID, month string, bytes, limitBytes int64) (bool, error) {
	if err := r.ensureMonth(ctx, tx, userID, month); err != nil {
		return false, err
	}
	tag, err := tx.Exec(ctx,
		`UPDATE usage_months
		 SET storage_bytes = storage_bytes + $3, updated_at = NOW()
		 WHERE user_id = $1 AND month = $2 AND storage_bytes + $3 <= $4`,
		userID, month, bytes, limitBytes)
	if err != nil {
		return false, fmt.Errorf("adding storage usage: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// AddExtractionCall counts one extraction against the month, conditional on
// the call ceiling. Returns false when the month is already at limit.
func (r *postgresRepository) AddExtractionCall(ctx context.Context, tx pgx.Tx, userID uuid.UUID, month string, limit int) (bool, error) {
	if err := r.ensureMonth(ctx, tx, userID, month); err != nil {
		return false, err
	}
	tag, err := tx.Exec(ctx,
		`UPDATE usage_months
		 SET extraction_calls = extraction_calls + 1, updated_at = NOW()
		 WHERE user_id = $1 AND month = $2 AND extraction_calls < $3`,
		userID, month, limit)
	if err != nil {
		return false, fmt.Errorf("adding extraction call: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// ensureMonth creates the month row inside the transaction when the charge
// lands in a month the advisory checks never touched (rollover between check
// and commit).
func (r *postgresRepository) ensureMonth(ctx context.Context, tx pgx.Tx, userID uuid.UUID, month string) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO usage_months (id, user_id, month)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (user_id, month) DO NOTHING`,
		uuid.New(), userID, month)
	if err != nil {
		return fmt.Errorf("ensuring usage month: %w", err)
	}
	return nil
}

// ReleaseStorage refunds bytes when an artifact is deleted in the same month
// it was uploaded. The counter is floored at zero.
func (r *postgresRepository) ReleaseStorage(ctx context.Context, tx pgx.Tx, userID uuid.UUID, month string, bytes int64) error {
	_, err := tx.Exec(ctx,
		`UPDATE usage_months
		 SET storage_bytes = GREATEST(storage_bytes - $3, 0), updated_at = NOW()
		 WHERE user_id = $1 AND month = $2`, userID, month, bytes)
	if err != nil {
		return fmt.Errorf("releasing storage usage: %w", err)
	}
	return nil
}
