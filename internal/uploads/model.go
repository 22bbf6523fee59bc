package uploads

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Artifact is a stored document plus its extraction result. Filename is the
// collision-resolved name shown to the user; StorageKey locates the bytes in
// the artifact store.
type Artifact struct {
	ID          uuid.UUID       `json:"id"`
	UserID      uuid.UUID       `json:"user_id"`
	Filename    string          `json:"filename"`
	SizeBytes   int64           `json:"size_bytes"`
	StorageKey  string          `json:"-"`
	TextExcerpt string          `json:"text_excerpt,omitempty"`
	Extraction  json.RawMessage `json:"extraction,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Summary is the listing view: identity plus the headline lease fields.
type Summary struct {
	ID             uuid.UUID `json:"id"`
	Filename       string    `json:"filename"`
	SizeBytes      int64     `json:"size_bytes"`
	CreatedAt      time.Time `json:"created_at"`
	TenantName     *string   `json:"tenant_name"`
	RentAmount     *float64  `json:"rent_amount"`
	LeaseTermYears *float64  `json:"lease_term_years"`
}
