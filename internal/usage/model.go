package usage

import (
	"time"

	"github.com/google/uuid"
)

// Record is one user's consumption for one calendar month. Months are keyed
// "YYYY-MM" in UTC; a fresh month starts from a fresh row, so counters never
// need a reset pass.
type Record struct {
	ID              uuid.UUID `json:"id"`
	UserID          uuid.UUID `json:"user_id"`
	Month           string    `json:"month"`
	StorageBytes    int64     `json:"storage_bytes"`
	ExtractionCalls int       `json:"extraction_calls"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Snapshot is the quota view returned to API clients.
type Snapshot struct {
	Month                string `json:"month"`
	Plan                 string `json:"plan"`
	StorageUsedBytes     int64  `json:"storage_used_bytes"`
	StorageLimitBytes    int64  `json:"storage_limit_bytes"`
	ExtractionCallsUsed  int    `json:"extraction_calls_used"`
	ExtractionCallsLimit int    `json:"extraction_calls_limit"`
}

// MonthKey formats t's month as the canonical ledger key, always in UTC.
func MonthKey(t time.Time) string {
	return t.UTC().Format("2006-01")
}
