package resilient

import (
	"context"
	"errors"
	"io"
	"net"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/insolvd/docpipe/internal/core/domain"
	"github.com/insolvd/docpipe/internal/core/ports"
	"github.com/insolvd/docpipe/internal/infrastructure/resilience"
)

// DocumentRepository retries transient persistence failures of status
// writes before the orchestrator gives up and marks the document
// failed. Reads pass through untouched; a stale read is harmless, a
// dropped status write strands the document.
type DocumentRepository struct {
	inner    ports.DocumentRepository
	executor *resilience.Executor
}

func NewDocumentRepository(inner ports.DocumentRepository, executor *resilience.Executor) *DocumentRepository {
	return &DocumentRepository{inner: inner, executor: executor}
}

func (r *DocumentRepository) Create(ctx context.Context, doc *domain.Document) error {
	return r.execute(ctx, "postgres.document_create", func(ctx context.Context) error {
		return r.inner.Create(ctx, doc)
	})
}

func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	return r.inner.GetByID(ctx, id)
}

func (r *DocumentRepository) List(ctx context.Context, filter domain.DocumentFilter) ([]domain.Document, error) {
	return r.inner.List(ctx, filter)
}

func (r *DocumentRepository) UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, extra domain.Metadata) error {
	return r.execute(ctx, "postgres.document_update_status", func(ctx context.Context) error {
		return r.inner.UpdateStatus(ctx, id, status, extra)
	})
}

func (r *DocumentRepository) ResetForRetry(ctx context.Context, id string, extra domain.Metadata) error {
	return r.execute(ctx, "postgres.document_reset", func(ctx context.Context) error {
		return r.inner.ResetForRetry(ctx, id, extra)
	})
}

func (r *DocumentRepository) FindDuplicates(ctx context.Context, ownerID string, fp domain.Fingerprint) ([]domain.Document, error) {
	return r.inner.FindDuplicates(ctx, ownerID, fp)
}

func (r *DocumentRepository) ReplaceContent(ctx context.Context, id, storagePath, contentHash string, sizeBytes int64) error {
	return r.execute(ctx, "postgres.document_replace_content", func(ctx context.Context) error {
		return r.inner.ReplaceContent(ctx, id, storagePath, contentHash, sizeBytes)
	})
}

func (r *DocumentRepository) SetFolder(ctx context.Context, id, folder string) error {
	return r.execute(ctx, "postgres.document_set_folder", func(ctx context.Context) error {
		return r.inner.SetFolder(ctx, id, folder)
	})
}

func (r *DocumentRepository) ListStale(ctx context.Context, cutoff time.Time) ([]domain.Document, error) {
	return r.inner.ListStale(ctx, cutoff)
}

func (r *DocumentRepository) execute(ctx context.Context, operation string, fn func(context.Context) error) error {
	if r.executor == nil {
		return fn(ctx)
	}
	return r.executor.Execute(ctx, operation, fn, ClassifyPostgresError)
}

// AnalysisRepository applies the same write-retry policy to analysis
// persistence, the last fallible step before a document completes.
type AnalysisRepository struct {
	inner    ports.AnalysisRepository
	executor *resilience.Executor
}

func NewAnalysisRepository(inner ports.AnalysisRepository, executor *resilience.Executor) *AnalysisRepository {
	return &AnalysisRepository{inner: inner, executor: executor}
}

func (r *AnalysisRepository) Save(ctx context.Context, result *domain.AnalysisResult) error {
	if r.executor == nil {
		return r.inner.Save(ctx, result)
	}
	return r.executor.Execute(ctx, "postgres.analysis_save", func(ctx context.Context) error {
		return r.inner.Save(ctx, result)
	}, ClassifyPostgresError)
}

func (r *AnalysisRepository) GetCurrentByDocument(ctx context.Context, documentID string) (*domain.AnalysisResult, error) {
	return r.inner.GetCurrentByDocument(ctx, documentID)
}

func (r *AnalysisRepository) SupersedeCurrent(ctx context.Context, documentID string) error {
	if r.executor == nil {
		return r.inner.SupersedeCurrent(ctx, documentID)
	}
	return r.executor.Execute(ctx, "postgres.analysis_supersede", func(ctx context.Context) error {
		return r.inner.SupersedeCurrent(ctx, documentID)
	}, ClassifyPostgresError)
}

// ClassifyPostgresError treats connection loss, serialization
// conflicts, and deadlocks as retryable. Constraint violations and
// domain errors are final.
func ClassifyPostgresError(err error) resilience.ErrorClassification {
	if err == nil {
		return resilience.ErrorClassification{}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
	}
	if domain.IsKind(err, domain.ErrDocumentNotFound) ||
		domain.IsKind(err, domain.ErrVersionNotFound) ||
		domain.IsKind(err, domain.ErrAnalysisNotFound) {
		return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
	}
	if resilience.IsCircuitOpen(err) {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case len(pgErr.Code) >= 2 && pgErr.Code[:2] == "08": // connection exceptions
			return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
		case pgErr.Code == "40001" || pgErr.Code == "40P01": // serialization failure, deadlock
			return resilience.ErrorClassification{Retryable: true, RecordFailure: false}
		default:
			return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, io.EOF) {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}

	return resilience.ErrorClassification{Retryable: false, RecordFailure: true}
}
