package apikeys

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// APIKey binds a user to a plan tag for API usage accounting. At most one
// key per user is active at a time; the key string is the rate-limit
// identity. MonthlyLimit, when set, overrides the plan's extraction ceiling.
type APIKey struct {
	ID           uuid.UUID `json:"id"`
	UserID       uuid.UUID `json:"user_id"`
	Key          string    `json:"key"`
	Plan         string    `json:"plan"`
	Active       bool      `json:"active"`
	MonthlyLimit *int      `json:"monthly_limit,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// GenerateKey returns a new secret key of the form "sk_" + 32 hex chars.
func GenerateKey() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating api key: %w", err)
	}
	return "sk_" + hex.EncodeToString(buf), nil
}
