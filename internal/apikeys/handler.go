package apikeys

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/leasedesk/leasedesk/internal/api"
	"github.com/leasedesk/leasedesk/internal/authctx"
	"github.com/leasedesk/leasedesk/internal/users"
)

type Handler struct {
	svc     *Service
	userSvc *users.Service
}

func NewHandler(svc *Service, userSvc *users.Service) *Handler {
	return &Handler{svc: svc, userSvc: userSvc}
}

func (h *Handler) userID(r *http.Request) (uuid.UUID, bool) {
	claims := authctx.GetUserClaims(r.Context())
	if claims == nil {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(claims.UserID)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// Show returns the caller's active key binding.
func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(r)
	if !ok {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	key, err := h.svc.GetActiveByUser(r.Context(), userID)
	if err != nil {
		slog.Error("loading api key", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}
	if key == nil {
		api.HandleError(w, api.ErrNoActiveAPIKey)
		return
	}

	api.JSON(w, http.StatusOK, key)
}

// Rotate revokes the current key and issues a fresh one on the user's plan.
func (h *Handler) Rotate(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(r)
	if !ok {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	user, err := h.userSvc.GetByID(r.Context(), userID)
	if err != nil {
		slog.Error("loading user", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}
	if user == nil {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	key, err := h.svc.Issue(r.Context(), userID, user.Plan)
	if err != nil {
		slog.Error("rotating api key", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSON(w, http.StatusCreated, key)
}
