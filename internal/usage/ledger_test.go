package usage

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leasedesk/leasedesk/internal/plans"
)

type memoryRepository struct {
	records map[string]*Record
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{records: make(map[string]*Record)}
}

func (m *memoryRepository) key(userID uuid.UUID, month string) string {
	return userID.String() + "/" + month
}

func (m *memoryRepository) GetOrCreate(_ context.Context, userID uuid.UUID, month string) (*Record, error) {
	k := m.key(userID, month)
	if rec, ok := m.records[k]; ok {
		copied := *rec
		return &copied, nil
	}
	m.records[k] = &Record{ID: uuid.New(), UserID: userID, Month: month}
	copied := *m.records[k]
	return &copied, nil
}

func (m *memoryRepository) ensure(userID uuid.UUID, month string) *Record {
	k := m.key(userID, month)
	if _, ok := m.records[k]; !ok {
		m.records[k] = &Record{ID: uuid.New(), UserID: userID, Month: month}
	}
	return m.records[k]
}

func (m *memoryRepository) AddStorage(_ context.Context, _ pgx.Tx, userID uuid.UUID, month string, bytes, limitBytes int64) (bool, error) {
	rec := m.ensure(userID, month)
	if rec.StorageBytes+bytes > limitBytes {
		return false, nil
	}
	rec.StorageBytes += bytes
	return true, nil
}

func (m *memoryRepository) AddExtractionCall(_ context.Context, _ pgx.Tx, userID uuid.UUID, month string, limit int) (bool, error) {
	rec := m.ensure(userID, month)
	if rec.ExtractionCalls >= limit {
		return false, nil
	}
	rec.ExtractionCalls++
	return true, nil
}

func (m *memoryRepository) ReleaseStorage(_ context.Context, _ pgx.Tx, userID uuid.UUID, month string, bytes int64) error {
	rec := m.records[m.key(userID, month)]
	rec.StorageBytes -= bytes
	if rec.StorageBytes < 0 {
		rec.StorageBytes = 0
	}
	return nil
}

func newTestLedger(t *testing.T) (*Ledger, *memoryRepository) {
	t.Helper()
	repo := newMemoryRepository()
	ledger := NewLedger(repo)
	ledger.now = func() time.Time {
		return time.Date(2026, time.March, 15, 12, 0, 0, 0, time.UTC)
	}
	return ledger, repo
}

func TestMonthKey(t *testing.T) {
	assert.Equal(t, "2026-03", MonthKey(time.Date(2026, time.March, 31, 23, 59, 0, 0, time.UTC)))

	// Local times are normalized to UTC before keying.
	est := time.FixedZone("EST", -5*3600)
	assert.Equal(t, "2026-04", MonthKey(time.Date(2026, time.March, 31, 23, 0, 0, 0, est)))
}

func TestLedger_CheckStorage(t *testing.T) {
	ledger, _ := newTestLedger(t)
	ctx := context.Background()
	userID := uuid.New()

	t.Run("under limit", func(t *testing.T) {
		assert.NoError(t, ledger.CheckStorage(ctx, userID, 1000, 500))
	})

	t.Run("exactly at limit passes", func(t *testing.T) {
		assert.NoError(t, ledger.CheckStorage(ctx, userID, 1000, 1000))
	})

	t.Run("over limit fails", func(t *testing.T) {
		err := ledger.CheckStorage(ctx, userID, 1000, 1001)
		assert.ErrorIs(t, err, ErrStorageQuotaExceeded)
	})
}

func TestLedger_ChargeAndCheck(t *testing.T) {
	ledger, _ := newTestLedger(t)
	ctx := context.Background()
	userID := uuid.New()

	_, err := ledger.repo.GetOrCreate(ctx, userID, ledger.Month())
	require.NoError(t, err)
	require.NoError(t, ledger.ChargeStorage(ctx, nil, userID, 800, 1000))

	assert.NoError(t, ledger.CheckStorage(ctx, userID, 1000, 200))
	assert.ErrorIs(t, ledger.CheckStorage(ctx, userID, 1000, 201), ErrStorageQuotaExceeded)
}

func TestLedger_CheckCalls(t *testing.T) {
	ledger, _ := newTestLedger(t)
	ctx := context.Background()
	userID := uuid.New()

	for i := 0; i < 3; i++ {
		require.NoError(t, ledger.CheckCalls(ctx, userID, 3))
		require.NoError(t, ledger.ChargeExtraction(ctx, nil, userID, 3))
	}

	assert.ErrorIs(t, ledger.CheckCalls(ctx, userID, 3), ErrCallQuotaExceeded)
}

func TestLedger_MonthRollover(t *testing.T) {
	ledger, _ := newTestLedger(t)
	ctx := context.Background()
	userID := uuid.New()

	_, err := ledger.repo.GetOrCreate(ctx, userID, ledger.Month())
	require.NoError(t, err)
	require.NoError(t, ledger.ChargeStorage(ctx, nil, userID, 1000, 1000))
	require.ErrorIs(t, ledger.CheckStorage(ctx, userID, 1000, 1), ErrStorageQuotaExceeded)

	// A new month starts from a fresh record.
	ledger.now = func() time.Time {
		return time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC)
	}
	assert.NoError(t, ledger.CheckStorage(ctx, userID, 1000, 1000))
}

func TestLedger_RefundStorage(t *testing.T) {
	ledger, _ := newTestLedger(t)
	ctx := context.Background()
	userID := uuid.New()

	_, err := ledger.repo.GetOrCreate(ctx, userID, ledger.Month())
	require.NoError(t, err)
	require.NoError(t, ledger.ChargeStorage(ctx, nil, userID, 500, 1000))
	require.NoError(t, ledger.RefundStorage(ctx, nil, userID, ledger.Month(), 300))

	assert.NoError(t, ledger.CheckStorage(ctx, userID, 1000, 800))

	// Refunds floor at zero, they never go negative.
	require.NoError(t, ledger.RefundStorage(ctx, nil, userID, ledger.Month(), 9999))
	assert.NoError(t, ledger.CheckStorage(ctx, userID, 1000, 1000))
}

func TestLedger_InterleavedChargesNeverOvershoot(t *testing.T) {
	ledger, repo := newTestLedger(t)
	ctx := context.Background()
	userID := uuid.New()

	// Two uploads race: both pass the advisory check against zero usage, but
	// only one conditional charge fits under the 100-byte ceiling.
	require.NoError(t, ledger.CheckStorage(ctx, userID, 100, 60))
	require.NoError(t, ledger.CheckStorage(ctx, userID, 100, 60))

	require.NoError(t, ledger.ChargeStorage(ctx, nil, userID, 60, 100))
	assert.ErrorIs(t, ledger.ChargeStorage(ctx, nil, userID, 60, 100), ErrStorageQuotaExceeded)

	rec, err := repo.GetOrCreate(ctx, userID, ledger.Month())
	require.NoError(t, err)
	assert.Equal(t, int64(60), rec.StorageBytes)
}

func TestLedger_InterleavedCallChargesNeverOvershoot(t *testing.T) {
	ledger, repo := newTestLedger(t)
	ctx := context.Background()
	userID := uuid.New()

	require.NoError(t, ledger.CheckCalls(ctx, userID, 1))
	require.NoError(t, ledger.CheckCalls(ctx, userID, 1))

	require.NoError(t, ledger.ChargeExtraction(ctx, nil, userID, 1))
	assert.ErrorIs(t, ledger.ChargeExtraction(ctx, nil, userID, 1), ErrCallQuotaExceeded)

	rec, err := repo.GetOrCreate(ctx, userID, ledger.Month())
	require.NoError(t, err)
	assert.Equal(t, 1, rec.ExtractionCalls)
}

func TestCallLimit(t *testing.T) {
	assert.Equal(t, plans.Lookup(plans.Free).ExtractionsPerMonth, CallLimit(plans.Free, nil))

	override := 500
	assert.Equal(t, 500, CallLimit(plans.Free, &override))
}

func TestLedger_Snapshot(t *testing.T) {
	ledger, _ := newTestLedger(t)
	ctx := context.Background()
	userID := uuid.New()

	_, err := ledger.repo.GetOrCreate(ctx, userID, ledger.Month())
	require.NoError(t, err)
	require.NoError(t, ledger.ChargeStorage(ctx, nil, userID, 1234, plans.Lookup(plans.Pro).StorageBytesPerMonth))
	require.NoError(t, ledger.ChargeExtraction(ctx, nil, userID, plans.Lookup(plans.Pro).ExtractionsPerMonth))

	snap, err := ledger.Snapshot(ctx, userID, plans.Pro, nil)
	require.NoError(t, err)
	assert.Equal(t, "2026-03", snap.Month)
	assert.Equal(t, plans.Pro, snap.Plan)
	assert.Equal(t, int64(1234), snap.StorageUsedBytes)
	assert.Equal(t, plans.Lookup(plans.Pro).StorageBytesPerMonth, snap.StorageLimitBytes)
	assert.Equal(t, 1, snap.ExtractionCallsUsed)
	assert.Equal(t, plans.Lookup(plans.Pro).ExtractionsPerMonth, snap.ExtractionCallsLimit)
}
