package usage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/leasedesk/leasedesk/internal/plans"
)

var (
	ErrStorageQuotaExceeded = errors.New("monthly storage quota exceeded")
	ErrCallQuotaExceeded    = errors.New("monthly extraction quota exceeded")
)

// Ledger is the per-month consumption accountant. Checks read the current
// month's record and are advisory: they reject obviously over-limit requests
// before any expensive work. Charges run inside the caller's transaction and
// re-check the ceiling atomically in SQL, so concurrent uploads that all pass
// the advisory check can never commit past the limit.
type Ledger struct {
	repo Repository
	now  func() time.Time
}

func NewLedger(repo Repository) *Ledger {
	return &Ledger{repo: repo, now: time.Now}
}

func (l *Ledger) Month() string {
	return MonthKey(l.now())
}

// CallLimit resolves the extraction ceiling for a plan, honoring a per-key
// monthly override when one is set.
func CallLimit(plan string, override *int) int {
	if override != nil {
		return *override
	}
	return plans.Lookup(plan).ExtractionsPerMonth
}

// CheckStorage fails with ErrStorageQuotaExceeded when storing addBytes more
// would push the current month past limitBytes.
func (l *Ledger) CheckStorage(ctx context.Context, userID uuid.UUID, limitBytes, addBytes int64) error {
	rec, err := l.repo.GetOrCreate(ctx, userID, l.Month())
	if err != nil {
		return err
	}
	if rec.StorageBytes+addBytes > limitBytes {
		return ErrStorageQuotaExceeded
	}
	return nil
}

// CheckCalls fails with ErrCallQuotaExceeded when the month's extraction
// calls have reached the limit.
func (l *Ledger) CheckCalls(ctx context.Context, userID uuid.UUID, limit int) error {
	rec, err := l.repo.GetOrCreate(ctx, userID, l.Month())
	if err != nil {
		return err
	}
	if rec.ExtractionCalls >= limit {
		return ErrCallQuotaExceeded
	}
	return nil
}

// ChargeStorage commits bytes against the month, failing with
// ErrStorageQuotaExceeded when the conditional increment loses a race for the
// last headroom under limitBytes.
func (l *Ledger) ChargeStorage(ctx context.Context, tx pgx.Tx, userID uuid.UUID, bytes, limitBytes int64) error {
	applied, err := l.repo.AddStorage(ctx, tx, userID, l.Month(), bytes, limitBytes)
	if err != nil {
		return err
	}
	if !applied {
		return ErrStorageQuotaExceeded
	}
	return nil
}

// ChargeExtraction commits one extraction call, failing with
// ErrCallQuotaExceeded when the month is already at limit.
func (l *Ledger) ChargeExtraction(ctx context.Context, tx pgx.Tx, userID uuid.UUID, limit int) error {
	applied, err := l.repo.AddExtractionCall(ctx, tx, userID, l.Month(), limit)
	if err != nil {
		return err
	}
	if !applied {
		return ErrCallQuotaExceeded
	}
	return nil
}

// RefundStorage returns bytes to the month the artifact was charged against.
func (l *Ledger) RefundStorage(ctx context.Context, tx pgx.Tx, userID uuid.UUID, month string, bytes int64) error {
	return l.repo.ReleaseStorage(ctx, tx, userID, month, bytes)
}

// Snapshot reports current-month consumption against the effective limits.
func (l *Ledger) Snapshot(ctx context.Context, userID uuid.UUID, plan string, callOverride *int) (*Snapshot, error) {
	rec, err := l.repo.GetOrCreate(ctx, userID, l.Month())
	if err != nil {
		return nil, err
	}
	limits := plans.Lookup(plan)
	return &Snapshot{
		Month:                rec.Month,
		Plan:                 plan,
		StorageUsedBytes:     rec.StorageBytes,
		StorageLimitBytes:    limits.StorageBytesPerMonth,
		ExtractionCallsUsed:  rec.ExtractionCalls,
		ExtractionCallsLimit: CallLimit(plan, callOverride),
	}, nil
}
