// Package authctx holds the request-scoped claims primitives shared by the
// bearer and API-key authenticators, so handler packages can read claims
// without importing the auth package itself.
package authctx

import (
	"context"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const UserClaimsKey contextKey = "user_claims"

type AccessClaims struct {
	UserID string `json:"uid"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// WithUserClaims injects claims resolved by another authenticator, such as
// the API-key middleware.
func WithUserClaims(ctx context.Context, claims *AccessClaims) context.Context {
	return context.WithValue(ctx, UserClaimsKey, claims)
}

func GetUserClaims(ctx context.Context) *AccessClaims {
	claims, _ := ctx.Value(UserClaimsKey).(*AccessClaims)
	return claims
}
