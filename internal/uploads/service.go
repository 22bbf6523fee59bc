package uploads

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/leasedesk/leasedesk/internal/api"
	"github.com/leasedesk/leasedesk/internal/apikeys"
	"github.com/leasedesk/leasedesk/internal/events"
	"github.com/leasedesk/leasedesk/internal/extraction"
	"github.com/leasedesk/leasedesk/internal/metrics"
	"github.com/leasedesk/leasedesk/internal/plans"
	"github.com/leasedesk/leasedesk/internal/ratelimit"
	"github.com/leasedesk/leasedesk/internal/storage"
	"github.com/leasedesk/leasedesk/internal/usage"
)

// TxBeginner starts the transaction that commits an artifact row together
// with its usage charge. Satisfied by pgxpool.Pool.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Service runs the upload pipeline: size ceiling, rate limit, monthly
// quotas, collision naming, content storage, extraction, and the atomic
// usage+artifact commit.
type Service struct {
	repo      Repository
	keys      *apikeys.Service
	ledger    *usage.Ledger
	limiter   ratelimit.Limiter
	store     storage.ArtifactStore
	db        TxBeginner
	text      extraction.TextExtractor
	llm       extraction.DocumentExtractor
	publisher *events.Publisher
	maxBytes  int64
}

func NewService(
	repo Repository,
	keys *apikeys.Service,
	ledger *usage.Ledger,
	limiter ratelimit.Limiter,
	store storage.ArtifactStore,
	db TxBeginner,
	text extraction.TextExtractor,
	llm extraction.DocumentExtractor,
	publisher *events.Publisher,
	maxFileBytes int64,
) *Service {
	return &Service{
		repo:      repo,
		keys:      keys,
		ledger:    ledger,
		limiter:   limiter,
		store:     store,
		db:        db,
		text:      text,
		llm:       llm,
		publisher: publisher,
		maxBytes:  maxFileBytes,
	}
}

func (s *Service) Upload(ctx context.Context, userID uuid.UUID, filename string, content []byte) (*Artifact, error) {
	size := int64(len(content))
	if size > s.maxBytes {
		metrics.UploadsTotal.WithLabelValues("too_large").Inc()
		return nil, api.ErrFileTooLarge
	}

	key, err := s.keys.GetActiveByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if key == nil {
		return nil, api.ErrNoActiveAPIKey
	}
	limits := plans.Lookup(key.Plan)

	if err := s.limiter.Allow(ctx, "rl:api:"+key.Key, limits.RequestsPerMinute); err != nil {
		if errors.Is(err, ratelimit.ErrRateLimited) {
			metrics.RateLimitRejectionsTotal.WithLabelValues(s.limiter.Backend()).Inc()
			metrics.UploadsTotal.WithLabelValues("rate_limited").Inc()
			return nil, api.ErrRateLimitExceeded
		}
		// Backend outage fails open so uploads keep working.
		slog.Warn("rate limit backend unavailable, allowing request", "error", err)
	}

	callLimit := usage.CallLimit(key.Plan, key.MonthlyLimit)
	if err := s.ledger.CheckCalls(ctx, userID, callLimit); err != nil {
		if errors.Is(err, usage.ErrCallQuotaExceeded) {
			metrics.QuotaRejectionsTotal.Inc()
			metrics.UploadsTotal.WithLabelValues("quota_exceeded").Inc()
			return nil, api.ErrQuotaExceeded
		}
		return nil, err
	}

	if err := s.ledger.CheckStorage(ctx, userID, limits.StorageBytesPerMonth, size); err != nil {
		if errors.Is(err, usage.ErrStorageQuotaExceeded) {
			metrics.QuotaRejectionsTotal.Inc()
			metrics.UploadsTotal.WithLabelValues("quota_exceeded").Inc()
			return nil, api.ErrQuotaExceeded
		}
		return nil, err
	}

	var text, excerpt string
	if strings.HasSuffix(strings.ToLower(filename), ".pdf") {
		text, excerpt, err = s.text.Extract(bytes.NewReader(content), size)
		if err != nil {
			metrics.UploadsTotal.WithLabelValues("unparseable").Inc()
			return nil, api.NewBadRequestError("unable to parse file")
		}
	} else {
		text = string(content)
		excerpt = extraction.Excerpt(text)
	}

	fields, err := s.llm.ExtractLease(ctx, text)
	if err != nil {
		// A failed extraction never fails the upload.
		metrics.ExtractionsTotal.WithLabelValues("error").Inc()
		slog.Warn("lease extraction failed", "error", err, "user_id", userID)
		fields = extraction.NullFields("extraction failed: " + err.Error())
	} else {
		metrics.ExtractionsTotal.WithLabelValues("success").Inc()
	}
	rawFields, err := json.Marshal(fields)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.ListNamesByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	storedName := resolveName(filename, existing)
	storageKey := userID.String() + "/" + storedName

	if _, err := s.store.Save(ctx, storageKey, bytes.NewReader(content)); err != nil {
		metrics.UploadsTotal.WithLabelValues("store_error").Inc()
		slog.Error("storing artifact", "error", err, "key", storageKey)
		return nil, api.ErrPersistence
	}

	artifact := &Artifact{
		ID:          uuid.New(),
		UserID:      userID,
		Filename:    storedName,
		SizeBytes:   size,
		StorageKey:  storageKey,
		TextExcerpt: excerpt,
		Extraction:  rawFields,
		CreatedAt:   time.Now(),
	}

	if err := s.commit(ctx, artifact, limits.StorageBytesPerMonth, callLimit); err != nil {
		// Roll the stored bytes back so no orphan outlives the failed commit.
		if derr := s.store.Delete(ctx, storageKey); derr != nil {
			slog.Error("cleaning up stored artifact", "error", derr, "key", storageKey)
		}
		// A concurrent upload may have taken the last quota headroom between
		// the advisory check and the conditional charge.
		if errors.Is(err, usage.ErrStorageQuotaExceeded) || errors.Is(err, usage.ErrCallQuotaExceeded) {
			metrics.QuotaRejectionsTotal.Inc()
			metrics.UploadsTotal.WithLabelValues("quota_exceeded").Inc()
			return nil, api.ErrQuotaExceeded
		}
		metrics.UploadsTotal.WithLabelValues("tx_error").Inc()
		slog.Error("committing upload", "error", err, "user_id", userID)
		return nil, api.ErrPersistence
	}

	metrics.UploadsTotal.WithLabelValues("success").Inc()
	metrics.UploadBytesTotal.Add(float64(size))

	s.publisher.PublishUpload(ctx, events.UploadEvent{
		UserID:     userID,
		ArtifactID: artifact.ID,
		Filename:   artifact.Filename,
		SizeBytes:  artifact.SizeBytes,
		Timestamp:  artifact.CreatedAt,
	})

	return artifact, nil
}

// commit writes the usage charges and artifact row in one transaction. The
// charges are conditional on the plan ceilings, so the month can never end
// up over limit no matter how uploads interleave.
func (s *Service) commit(ctx context.Context, a *Artifact, storageLimit int64, callLimit int) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}

	err = func() error {
		if err := s.ledger.ChargeStorage(ctx, tx, a.UserID, a.SizeBytes, storageLimit); err != nil {
			return err
		}
		if err := s.ledger.ChargeExtraction(ctx, tx, a.UserID, callLimit); err != nil {
			return err
		}
		return s.repo.CreateTx(ctx, tx, a)
	}()
	if err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

// List returns the user's latest artifacts as listing summaries.
func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]*Summary, error) {
	artifacts, err := s.repo.ListByUser(ctx, userID, 50)
	if err != nil {
		return nil, err
	}

	summaries := make([]*Summary, 0, len(artifacts))
	for _, a := range artifacts {
		sum := &Summary{
			ID:        a.ID,
			Filename:  a.Filename,
			SizeBytes: a.SizeBytes,
			CreatedAt: a.CreatedAt,
		}
		if len(a.Extraction) > 0 {
			var fields extraction.LeaseFields
			if err := json.Unmarshal(a.Extraction, &fields); err == nil {
				sum.TenantName = fields.TenantName
				sum.RentAmount = fields.RentAmount
				sum.LeaseTermYears = fields.LeaseTermYears
			}
		}
		summaries = append(summaries, sum)
	}
	return summaries, nil
}

// Get returns one owned artifact with its full extraction.
func (s *Service) Get(ctx context.Context, userID, id uuid.UUID) (*Artifact, error) {
	a, err := s.repo.GetByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, api.ErrNotFound
	}
	return a, nil
}

// Quota reports current-month usage against the caller's effective limits.
func (s *Service) Quota(ctx context.Context, userID uuid.UUID) (*usage.Snapshot, error) {
	key, err := s.keys.GetActiveByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if key == nil {
		return nil, api.ErrNoActiveAPIKey
	}
	return s.ledger.Snapshot(ctx, userID, key.Plan, key.MonthlyLimit)
}
