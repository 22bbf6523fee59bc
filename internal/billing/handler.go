package billing

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/leasedesk/leasedesk/internal/api"
	"github.com/leasedesk/leasedesk/internal/auth"
	"github.com/leasedesk/leasedesk/internal/config"
	"github.com/leasedesk/leasedesk/internal/plans"
)

const maxWebhookBody = 1 << 20

type Handler struct {
	provider Provider
	svc      *Service
	cfg      config.StripeConfig
}

func NewHandler(provider Provider, svc *Service, cfg config.StripeConfig) *Handler {
	return &Handler{provider: provider, svc: svc, cfg: cfg}
}

type checkoutRequest struct {
	Plan string `json:"plan"`
}

type sessionResponse struct {
	URL string `json:"url"`
}

func (h *Handler) CreateCheckout(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserClaims(r.Context())
	if claims == nil {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}
	if !h.cfg.CheckoutConfigured() {
		api.HandleError(w, api.ErrNotConfigured)
		return
	}

	// Body is optional; an empty one buys the pro plan.
	var req checkoutRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	if req.Plan == "" {
		req.Plan = plans.Pro
	}
	if req.Plan == plans.Free || !plans.Valid(req.Plan) {
		api.HandleError(w, api.NewBadRequestError("unknown plan"))
		return
	}
	priceID := h.svc.PriceFor(req.Plan)
	if priceID == "" {
		api.HandleError(w, api.ErrNotConfigured)
		return
	}

	url, err := h.provider.CreateCheckoutSession(r.Context(), claims.Email, priceID)
	if err != nil {
		slog.Error("creating checkout session", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSON(w, http.StatusOK, sessionResponse{URL: url})
}

func (h *Handler) CreatePortal(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserClaims(r.Context())
	if claims == nil {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}
	if h.cfg.SecretKey == "" {
		api.HandleError(w, api.ErrNotConfigured)
		return
	}

	user, err := h.svc.users.GetByEmail(r.Context(), claims.Email)
	if err != nil {
		slog.Error("loading user for portal", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}
	if user == nil || user.StripeCustomerID == nil {
		api.HandleError(w, api.NewNotFoundError("no billing account"))
		return
	}

	url, err := h.provider.CreatePortalSession(r.Context(), *user.StripeCustomerID)
	if err != nil {
		slog.Error("creating portal session", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSON(w, http.StatusOK, sessionResponse{URL: url})
}

// Webhook is the public Stripe endpoint. Bad signatures get a 400; handler
// errors get a 500 so Stripe retries.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}

	if err := h.provider.VerifyWebhook(payload, r.Header.Get("Stripe-Signature")); err != nil {
		slog.Warn("webhook signature rejected", "remote", r.RemoteAddr)
		api.HandleError(w, api.NewBadRequestError("invalid signature"))
		return
	}

	event, err := h.provider.ParseEvent(payload)
	if err != nil {
		api.HandleError(w, api.NewBadRequestError("malformed event"))
		return
	}

	if err := h.svc.HandleEvent(r.Context(), event); err != nil {
		slog.Error("handling billing event", "error", err, "type", event.Type)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSONMessage(w, http.StatusOK, "received")
}
