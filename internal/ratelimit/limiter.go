package ratelimit

import (
	"context"
	"errors"
)

// ErrRateLimited is returned when a request exceeds the per-minute ceiling.
var ErrRateLimited = errors.New("rate limit exceeded")

// Limiter bounds requests per identity key to a per-minute ceiling using
// fixed one-minute windows. Allow returns nil when the request is admitted,
// ErrRateLimited when the ceiling is reached, and any other error for
// backend failures. A ceiling of zero or less always denies.
//
// Keys must be namespaced by the caller (e.g. "api:<key>", "auth:<ip>") so
// unrelated counters never collide across call sites or backends.
type Limiter interface {
	Allow(ctx context.Context, key string, perMinute int) error
	Backend() string
}
