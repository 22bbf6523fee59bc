package apikeys

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository interface {
	Create(ctx context.Context, key *APIKey) error
	GetActiveByUser(ctx context.Context, userID uuid.UUID) (*APIKey, error)
	GetByKey(ctx context.Context, key string) (*APIKey, error)
	DeactivateForUser(ctx context.Context, userID uuid.UUID) error
	UpdatePlanForUser(ctx context.Context, userID uuid.UUID, plan string) error
}

const keyColumns = `id, user_id, key, plan, active, monthly_limit, created_at`

type postgresRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &postgresRepository{pool: pool}
}

func (r *postgresRepository) Create(ctx context.Context, key *APIKey) error {
	query := `
		INSERT INTO api_keys (id, user_id, key, plan, active, monthly_limit, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.pool.Exec(ctx, query,
		key.ID, key.UserID, key.Key, key.Plan, key.Active, key.MonthlyLimit, key.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting api key: %w", err)
	}
	return nil
}

func (r *postgresRepository) GetActiveByUser(ctx context.Context, userID uuid.UUID) (*APIKey, error) {
	query := `SELECT ` + keyColumns + ` FROM api_keys WHERE user_id = $1 AND active`
	return r.scanOne(r.pool.QueryRow(ctx, query, userID))
}

func (r *postgresRepository) GetByKey(ctx context.Context, key string) (*APIKey, error) {
	query := `SELECT ` + keyColumns + ` FROM api_keys WHERE key = $1 AND active`
	return r.scanOne(r.pool.QueryRow(ctx, query, key))
}

func (r *postgresRepository) scanOne(row pgx.Row) (*APIKey, error) {
	k := &APIKey{}
	err := row.Scan(&k.ID, &k.UserID, &k.Key, &k.Plan, &k.Active, &k.MonthlyLimit, &k.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying api key: %w", err)
	}
	return k, nil
}

func (r *postgresRepository) DeactivateForUser(ctx context.Context, userID uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE api_keys SET active = FALSE WHERE user_id = $1 AND active`, userID)
	if err != nil {
		return fmt.Errorf("deactivating api keys: %w", err)
	}
	return nil
}

func (r *postgresRepository) UpdatePlanForUser(ctx context.Context, userID uuid.UUID, plan string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE api_keys SET plan = $2 WHERE user_id = $1 AND active`, userID, plan)
	if err != nil {
		return fmt.Errorf("updating api key plan: %w", err)
	}
	return nil
}
