package middleware

import (
	"log/slog"
	"net/http"

	"github.com/leasedesk/leasedesk/internal/api"
	"github.com/leasedesk/leasedesk/internal/apikeys"
	"github.com/leasedesk/leasedesk/internal/auth"
	"github.com/leasedesk/leasedesk/internal/users"
)

// APIKeyAuth authenticates requests carrying an X-API-Key header by resolving
// the active key binding. Requests without the header fall through to the
// bearer authenticator, so both credentials work on the API surface.
func APIKeyAuth(keySvc *apikeys.Service, userSvc *users.Service, bearer func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		bearerNext := bearer(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rawKey := r.Header.Get("X-API-Key")
			if rawKey == "" {
				bearerNext.ServeHTTP(w, r)
				return
			}

			key, err := keySvc.Resolve(r.Context(), rawKey)
			if err != nil {
				slog.Error("resolving api key", "error", err)
				api.HandleError(w, api.ErrInternalServer)
				return
			}
			if key == nil {
				api.HandleError(w, api.ErrUnauthorized)
				return
			}

			user, err := userSvc.GetByID(r.Context(), key.UserID)
			if err != nil {
				slog.Error("loading api key user", "error", err)
				api.HandleError(w, api.ErrInternalServer)
				return
			}
			if user == nil {
				api.HandleError(w, api.ErrUnauthorized)
				return
			}

			claims := &auth.AccessClaims{UserID: user.ID.String(), Email: user.Email}
			next.ServeHTTP(w, r.WithContext(auth.WithUserClaims(r.Context(), claims)))
		})
	}
}
