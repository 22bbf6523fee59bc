package uploads

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository interface {
	// CreateTx inserts the artifact inside the caller's transaction so the
	// row commits together with its usage charge.
	CreateTx(ctx context.Context, tx pgx.Tx, a *Artifact) error
	ListNamesByUser(ctx context.Context, userID uuid.UUID) ([]string, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*Artifact, error)
	GetByID(ctx context.Context, userID, id uuid.UUID) (*Artifact, error)
}

const artifactColumns = `id, user_id, filename, size_bytes, storage_key, text_excerpt, extraction, created_at`

type postgresRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &postgresRepository{pool: pool}
}

func (r *postgresRepository) CreateTx(ctx context.Context, tx pgx.Tx, a *Artifact) error {
	query := `
		INSERT INTO artifacts (id, user_id, filename, size_bytes, storage_key, text_excerpt, extraction, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := tx.Exec(ctx, query,
		a.ID, a.UserID, a.Filename, a.SizeBytes, a.StorageKey, a.TextExcerpt, a.Extraction, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting artifact: %w", err)
	}
	return nil
}

func (r *postgresRepository) ListNamesByUser(ctx context.Context, userID uuid.UUID) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT filename FROM artifacts WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing artifact names: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning artifact name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (r *postgresRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*Artifact, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+artifactColumns+` FROM artifacts
		 WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing artifacts: %w", err)
	}
	defer rows.Close()

	var artifacts []*Artifact
	for rows.Next() {
		a := &Artifact{}
		err := rows.Scan(&a.ID, &a.UserID, &a.Filename, &a.SizeBytes, &a.StorageKey,
			&a.TextExcerpt, &a.Extraction, &a.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scanning artifact: %w", err)
		}
		artifacts = append(artifacts, a)
	}
	return artifacts, rows.Err()
}

func (r *postgresRepository) GetByID(ctx context.Context, userID, id uuid.UUID) (*Artifact, error) {
	a := &Artifact{}
	err := r.pool.QueryRow(ctx,
		`SELECT `+artifactColumns+` FROM artifacts WHERE id = $1 AND user_id = $2`, id, userID,
	).Scan(&a.ID, &a.UserID, &a.Filename, &a.SizeBytes, &a.StorageKey,
		&a.TextExcerpt, &a.Extraction, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying artifact: %w", err)
	}
	return a, nil
}
