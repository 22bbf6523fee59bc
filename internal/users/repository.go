package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByStripeCustomer(ctx context.Context, customerID string) (*User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	UpdatePlan(ctx context.Context, id uuid.UUID, plan string) error
	UpdatePlanByEmail(ctx context.Context, email, plan string) (bool, error)
	SetStripeCustomer(ctx context.Context, id uuid.UUID, customerID string) error
}

const userColumns = `id, email, password_hash, plan, stripe_customer_id, created_at, updated_at`

type postgresRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &postgresRepository{pool: pool}
}

func (r *postgresRepository) Create(ctx context.Context, user *User) error {
	query := `
		INSERT INTO users (id, email, password_hash, plan, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.pool.Exec(ctx, query,
		user.ID, user.Email, user.PasswordHash, user.Plan, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting user: %w", err)
	}
	return nil
}

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.scanOne(r.pool.QueryRow(ctx, query, id))
}

func (r *postgresRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return r.scanOne(r.pool.QueryRow(ctx, query, email))
}

func (r *postgresRepository) GetByStripeCustomer(ctx context.Context, customerID string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE stripe_customer_id = $1`
	return r.scanOne(r.pool.QueryRow(ctx, query, customerID))
}

func (r *postgresRepository) scanOne(row pgx.Row) (*User, error) {
	user := &User{}
	err := row.Scan(&user.ID, &user.Email, &user.PasswordHash, &user.Plan,
		&user.StripeCustomerID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying user: %w", err)
	}
	return user, nil
}

func (r *postgresRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`

	var exists bool
	err := r.pool.QueryRow(ctx, query, email).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking email existence: %w", err)
	}
	return exists, nil
}

func (r *postgresRepository) UpdatePlan(ctx context.Context, id uuid.UUID, plan string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE users SET plan = $2, updated_at = NOW() WHERE id = $1`, id, plan)
	if err != nil {
		return fmt.Errorf("updating user plan: %w", err)
	}
	return nil
}

func (r *postgresRepository) UpdatePlanByEmail(ctx context.Context, email, plan string) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET plan = $2, updated_at = NOW() WHERE email = $1`, email, plan)
	if err != nil {
		return false, fmt.Errorf("updating user plan by email: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *postgresRepository) SetStripeCustomer(ctx context.Context, id uuid.UUID, customerID string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE users SET stripe_customer_id = $2, updated_at = NOW() WHERE id = $1`, id, customerID)
	if err != nil {
		return fmt.Errorf("setting stripe customer: %w", err)
	}
	return nil
}
