package users

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/leasedesk/leasedesk/internal/plans"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create registers a new user on the free plan.
func (s *Service) Create(ctx context.Context, email, passwordHash string) (*User, error) {
	now := time.Now()
	user := &User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: passwordHash,
		Plan:         plans.Free,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *Service) GetByEmail(ctx context.Context, email string) (*User, error) {
	return s.repo.GetByEmail(ctx, email)
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return s.repo.ExistsByEmail(ctx, email)
}

func (s *Service) GetByStripeCustomer(ctx context.Context, customerID string) (*User, error) {
	return s.repo.GetByStripeCustomer(ctx, customerID)
}

func (s *Service) UpdatePlan(ctx context.Context, id uuid.UUID, plan string) error {
	return s.repo.UpdatePlan(ctx, id, plan)
}

func (s *Service) SetStripeCustomer(ctx context.Context, id uuid.UUID, customerID string) error {
	return s.repo.SetStripeCustomer(ctx, id, customerID)
}
