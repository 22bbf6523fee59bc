package events

import (
	"time"

	"github.com/google/uuid"
)

// Stream and subject constants.
const (
	StreamEvents = "LEASEDESK_EVENTS"

	SubjectUpload     = "leasedesk.events.upload"
	SubjectAuth       = "leasedesk.events.auth"
	SubjectPlanChange = "leasedesk.events.plan"
)

// UploadEvent records a completed artifact upload.
type UploadEvent struct {
	UserID     uuid.UUID `json:"user_id"`
	ArtifactID uuid.UUID `json:"artifact_id"`
	Filename   string    `json:"filename"`
	SizeBytes  int64     `json:"size_bytes"`
	Timestamp  time.Time `json:"timestamp"`
}

// AuthEvent records login and registration activity.
type AuthEvent struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	EventType string    `json:"event_type"` // registered, logged_in, logged_out
	Timestamp time.Time `json:"timestamp"`
}

// PlanChangeEvent records a billing-driven plan mutation.
type PlanChangeEvent struct {
	UserID    uuid.UUID `json:"user_id"`
	FromPlan  string    `json:"from_plan"`
	ToPlan    string    `json:"to_plan"`
	Source    string    `json:"source"` // webhook event type
	Timestamp time.Time `json:"timestamp"`
}
