package billing

import (
	"context"
	"log/slog"
	"time"

	"github.com/leasedesk/leasedesk/internal/apikeys"
	"github.com/leasedesk/leasedesk/internal/config"
	"github.com/leasedesk/leasedesk/internal/events"
	"github.com/leasedesk/leasedesk/internal/metrics"
	"github.com/leasedesk/leasedesk/internal/plans"
	"github.com/leasedesk/leasedesk/internal/users"
)

// Service applies webhook events to user plans. Events for unknown users are
// ignored: the webhook is best effort and Stripe retries on 5xx only.
type Service struct {
	users     *users.Service
	keys      *apikeys.Service
	publisher *events.Publisher
	cfg       config.StripeConfig
}

func NewService(userSvc *users.Service, keySvc *apikeys.Service, publisher *events.Publisher, cfg config.StripeConfig) *Service {
	return &Service{
		users:     userSvc,
		keys:      keySvc,
		publisher: publisher,
		cfg:       cfg,
	}
}

// PriceFor maps a plan tag to its configured Stripe price ID.
func (s *Service) PriceFor(plan string) string {
	switch plan {
	case plans.Enterprise:
		return s.cfg.PriceIDEnterprise
	default:
		return s.cfg.PriceIDPro
	}
}

// planForPrice is the inverse mapping; unknown price IDs land on pro, the
// lowest paid tier.
func (s *Service) planForPrice(priceID string) string {
	if priceID != "" && priceID == s.cfg.PriceIDEnterprise {
		return plans.Enterprise
	}
	return plans.Pro
}

// HandleEvent mutates plan state for the subscription lifecycle events and
// ignores everything else.
func (s *Service) HandleEvent(ctx context.Context, ev *Event) error {
	metrics.BillingEventsTotal.WithLabelValues(ev.Type).Inc()

	switch ev.Type {
	case "checkout.session.completed", "customer.subscription.created", "customer.subscription.updated":
		return s.applyPlan(ctx, ev, s.planForPrice(ev.PriceID))
	case "customer.subscription.deleted", "invoice.payment_failed":
		return s.applyPlan(ctx, ev, plans.Free)
	default:
		slog.Debug("ignoring billing event", "type", ev.Type)
		return nil
	}
}

func (s *Service) applyPlan(ctx context.Context, ev *Event, plan string) error {
	user, err := s.resolveUser(ctx, ev)
	if err != nil {
		return err
	}
	if user == nil {
		slog.Warn("billing event for unknown user, ignoring",
			"type", ev.Type, "customer", ev.CustomerID, "email", ev.CustomerEmail)
		return nil
	}

	// Remember the customer id so later events resolve without an email.
	if user.StripeCustomerID == nil && ev.CustomerID != "" {
		if err := s.users.SetStripeCustomer(ctx, user.ID, ev.CustomerID); err != nil {
			return err
		}
	}

	if user.Plan == plan {
		return nil
	}

	if err := s.users.UpdatePlan(ctx, user.ID, plan); err != nil {
		return err
	}
	if err := s.keys.SyncPlan(ctx, user.ID, plan); err != nil {
		return err
	}

	slog.Info("plan changed", "user_id", user.ID, "from", user.Plan, "to", plan, "event", ev.Type)
	s.publisher.PublishPlanChange(ctx, events.PlanChangeEvent{
		UserID:    user.ID,
		FromPlan:  user.Plan,
		ToPlan:    plan,
		Source:    ev.Type,
		Timestamp: time.Now(),
	})
	return nil
}

// resolveUser prefers the stored customer id and falls back to the customer
// email from the event.
func (s *Service) resolveUser(ctx context.Context, ev *Event) (*users.User, error) {
	if ev.CustomerID != "" {
		user, err := s.users.GetByStripeCustomer(ctx, ev.CustomerID)
		if err != nil {
			return nil, err
		}
		if user != nil {
			return user, nil
		}
	}
	if ev.CustomerEmail != "" {
		return s.users.GetByEmail(ctx, ev.CustomerEmail)
	}
	return nil, nil
}
