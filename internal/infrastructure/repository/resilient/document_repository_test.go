package resilient

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/insolvd/docpipe/internal/core/domain"
	"github.com/insolvd/docpipe/internal/infrastructure/resilience"
)

func TestClassifyPostgresError(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		retryable bool
		record    bool
	}{
		{"nil", nil, false, false},
		{"cancelled context", context.Canceled, false, false},
		{"document not found", domain.WrapError(domain.ErrDocumentNotFound, "get", errors.New("x")), false, false},
		{"connection exception", &pgconn.PgError{Code: "08006"}, true, true},
		{"serialization failure", &pgconn.PgError{Code: "40001"}, true, false},
		{"deadlock", &pgconn.PgError{Code: "40P01"}, true, false},
		{"constraint violation", &pgconn.PgError{Code: "23505"}, false, false},
		{"dropped connection", io.EOF, true, true},
		{"unknown", errors.New("boom"), false, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			class := ClassifyPostgresError(tc.err)
			if class.Retryable != tc.retryable {
				t.Fatalf("Retryable = %v, want %v", class.Retryable, tc.retryable)
			}
			if class.RecordFailure != tc.record {
				t.Fatalf("RecordFailure = %v, want %v", class.RecordFailure, tc.record)
			}
		})
	}
}

type flakyRepo struct {
	domainNotFound bool
	failuresLeft   int
	statusWrites   int
}

func (f *flakyRepo) Create(context.Context, *domain.Document) error { return nil }

func (f *flakyRepo) GetByID(context.Context, string) (*domain.Document, error) {
	return nil, domain.WrapError(domain.ErrDocumentNotFound, "get", errors.New("x"))
}

func (f *flakyRepo) List(context.Context, domain.DocumentFilter) ([]domain.Document, error) {
	return nil, nil
}

func (f *flakyRepo) UpdateStatus(context.Context, string, domain.DocumentStatus, domain.Metadata) error {
	f.statusWrites++
	if f.domainNotFound {
		return domain.WrapError(domain.ErrDocumentNotFound, "update", errors.New("x"))
	}
	if f.failuresLeft > 0 {
		f.failuresLeft--
		return &pgconn.PgError{Code: "08006"}
	}
	return nil
}

func (f *flakyRepo) ResetForRetry(context.Context, string, domain.Metadata) error { return nil }

func (f *flakyRepo) FindDuplicates(context.Context, string, domain.Fingerprint) ([]domain.Document, error) {
	return nil, nil
}

func (f *flakyRepo) ReplaceContent(context.Context, string, string, string, int64) error { return nil }

func (f *flakyRepo) SetFolder(context.Context, string, string) error { return nil }

func (f *flakyRepo) ListStale(context.Context, time.Time) ([]domain.Document, error) {
	return nil, nil
}

func newTestExecutor() *resilience.Executor {
	return resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts:    3,
		RetryInitialBackoff: time.Millisecond,
		RetryMaxBackoff:     2 * time.Millisecond,
		RetryMultiplier:     2,
		BreakerEnabled:      false,
	})
}

func TestUpdateStatusRetriesConnectionLoss(t *testing.T) {
	inner := &flakyRepo{failuresLeft: 2}
	repo := NewDocumentRepository(inner, newTestExecutor())

	err := repo.UpdateStatus(context.Background(), "doc-1", domain.StatusProcessing, nil)
	if err != nil {
		t.Fatalf("UpdateStatus() error = %v", err)
	}
	if inner.statusWrites != 3 {
		t.Fatalf("expected 3 attempts, got %d", inner.statusWrites)
	}
}

func TestUpdateStatusDoesNotRetryNotFound(t *testing.T) {
	inner := &flakyRepo{domainNotFound: true}
	repo := NewDocumentRepository(inner, newTestExecutor())

	err := repo.UpdateStatus(context.Background(), "missing", domain.StatusProcessing, nil)
	if !domain.IsKind(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if inner.statusWrites != 1 {
		t.Fatalf("final error must not be retried, got %d attempts", inner.statusWrites)
	}
}
