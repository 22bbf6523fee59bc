// Package extraction pulls text out of uploaded documents and asks an LLM to
// identify the standard lease fields.
package extraction

import (
	"context"
	"io"
)

// LeaseFields is the structured result of lease-document extraction. Fields
// the model cannot find stay null; Note carries a human-readable caveat when
// extraction was degraded or skipped.
type LeaseFields struct {
	TenantName         *string  `json:"tenant_name"`
	LandlordName       *string  `json:"landlord_name"`
	PropertyAddress    *string  `json:"property_address"`
	RentAmount         *float64 `json:"rent_amount"`
	LeaseTermYears     *float64 `json:"lease_term_years"`
	RenewalOptions     *string  `json:"renewal_options"`
	EscalationClauses  *string  `json:"escalation_clauses"`
	TerminationClauses *string  `json:"termination_clauses"`
	Note               string   `json:"_note,omitempty"`
}

// TextExtractor turns raw document bytes into plain text plus a short
// excerpt suitable for listings.
type TextExtractor interface {
	Extract(r io.ReaderAt, size int64) (text string, excerpt string, err error)
}

// DocumentExtractor maps document text to lease fields.
type DocumentExtractor interface {
	ExtractLease(ctx context.Context, text string) (*LeaseFields, error)
}

// NullFields returns an all-null result carrying the given note.
func NullFields(note string) *LeaseFields {
	return &LeaseFields{Note: note}
}
