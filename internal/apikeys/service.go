package apikeys

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Issue creates a fresh active key binding the user to the given plan.
// Any previously active key is deactivated first, preserving the invariant
// of at most one active binding per user.
func (s *Service) Issue(ctx context.Context, userID uuid.UUID, plan string) (*APIKey, error) {
	secret, err := GenerateKey()
	if err != nil {
		return nil, err
	}

	if err := s.repo.DeactivateForUser(ctx, userID); err != nil {
		return nil, err
	}

	key := &APIKey{
		ID:        uuid.New(),
		UserID:    userID,
		Key:       secret,
		Plan:      plan,
		Active:    true,
		CreatedAt: time.Now(),
	}
	if err := s.repo.Create(ctx, key); err != nil {
		return nil, err
	}
	return key, nil
}

func (s *Service) GetActiveByUser(ctx context.Context, userID uuid.UUID) (*APIKey, error) {
	return s.repo.GetActiveByUser(ctx, userID)
}

// Resolve looks up an active binding by its secret key. Returns nil when the
// key is unknown or revoked.
func (s *Service) Resolve(ctx context.Context, key string) (*APIKey, error) {
	return s.repo.GetByKey(ctx, key)
}

// SyncPlan propagates a billing-driven plan change onto the active binding.
func (s *Service) SyncPlan(ctx context.Context, userID uuid.UUID, plan string) error {
	return s.repo.UpdatePlanForUser(ctx, userID, plan)
}
