package middleware

import (
	"errors"
	"log/slog"
	"net"
	"net/http"

	"github.com/leasedesk/leasedesk/internal/metrics"
	"github.com/leasedesk/leasedesk/internal/ratelimit"
)

// AuthRateLimit bounds unauthenticated /auth traffic per client IP using the
// shared fixed-window limiter. On backend errors it fails open so a degraded
// Redis or Postgres never locks users out of login.
func AuthRateLimit(limiter ratelimit.Limiter, perMinute int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)

			err := limiter.Allow(r.Context(), "auth:"+ip, perMinute)
			switch {
			case err == nil:
				next.ServeHTTP(w, r)
			case errors.Is(err, ratelimit.ErrRateLimited):
				metrics.RateLimitRejectionsTotal.WithLabelValues(limiter.Backend()).Inc()
				w.Header().Set("Retry-After", "60")
				http.Error(w, `{"error":"too many requests"}`, http.StatusTooManyRequests)
			default:
				slog.Warn("auth rate limiter failing open", "error", err, "ip", ip)
				next.ServeHTTP(w, r)
			}
		})
	}
}

func clientIP(r *http.Request) string {
	// Check X-Forwarded-For first (trusted reverse proxy)
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// Take the first IP
		for i := 0; i < len(xff); i++ {
			if xff[i] == ',' {
				return xff[:i]
			}
		}
		return xff
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
