package audit

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Entry matches the audit_logs table schema. EventType is the event subject
// suffix ("upload", "auth", "plan"); Details holds the raw event payload.
type Entry struct {
	ID        uuid.UUID       `json:"id"`
	UserID    uuid.UUID       `json:"user_id"`
	EventType string          `json:"event_type"`
	Details   json.RawMessage `json:"details,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// ListParams holds pagination parameters for audit queries.
type ListParams struct {
	Page     int
	PageSize int
}
