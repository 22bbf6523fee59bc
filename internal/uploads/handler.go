package uploads

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/leasedesk/leasedesk/internal/api"
	"github.com/leasedesk/leasedesk/internal/auth"
)

// multipart framing overhead allowed on top of the file ceiling
const multipartOverhead = 1 << 20

type Handler struct {
	svc      *Service
	maxBytes int64
}

func NewHandler(svc *Service, maxFileBytes int64) *Handler {
	return &Handler{svc: svc, maxBytes: maxFileBytes}
}

func (h *Handler) userID(r *http.Request) (uuid.UUID, bool) {
	claims := auth.GetUserClaims(r.Context())
	if claims == nil {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(claims.UserID)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(r)
	if !ok {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	// Oversized bodies are cut off at the transport, never fully buffered.
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+multipartOverhead)

	file, header, err := r.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			api.HandleError(w, api.ErrFileTooLarge)
			return
		}
		api.HandleError(w, api.NewBadRequestError("missing file field"))
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			api.HandleError(w, api.ErrFileTooLarge)
			return
		}
		slog.Error("reading upload body", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	artifact, err := h.svc.Upload(r.Context(), userID, header.Filename, content)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.JSON(w, http.StatusCreated, artifact)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(r)
	if !ok {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	summaries, err := h.svc.List(r.Context(), userID)
	if err != nil {
		slog.Error("listing uploads", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSON(w, http.StatusOK, summaries)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(r)
	if !ok {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		api.HandleError(w, api.NewBadRequestError("invalid artifact id"))
		return
	}

	artifact, err := h.svc.Get(r.Context(), userID, id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.JSON(w, http.StatusOK, artifact)
}

func (h *Handler) Quota(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(r)
	if !ok {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	snapshot, err := h.svc.Quota(r.Context(), userID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.JSON(w, http.StatusOK, snapshot)
}
