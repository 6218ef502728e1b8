package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/insolvd/docpipe/internal/core/domain"
)

func newRepoWithMock(t *testing.T) (*DocumentRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return &DocumentRepository{db: db}, mock, func() { _ = db.Close() }
}

func documentRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "owner_id", "title", "mime_type", "size_bytes", "storage_path",
		"content_hash", "folder", "status", "metadata", "created_at", "updated_at",
	})
}

func TestGetByIDReturnsDomainNotFound(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT id, owner_id, title").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetByIDDecodesMetadata(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	now := time.Now().UTC()
	mock.ExpectQuery("SELECT id, owner_id, title").
		WithArgs("doc-1").
		WillReturnRows(documentRows().AddRow(
			"doc-1", "trustee-1", "form65.pdf", "application/pdf", int64(42), "doc-1_form65.pdf",
			"abc", "", "failed", []byte(`{"error":"oracle timed out","failure_kind":"oracle_timeout"}`), now, now,
		))

	doc, err := repo.GetByID(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if doc.Status != domain.StatusFailed {
		t.Fatalf("expected failed, got %s", doc.Status)
	}
	if kind := doc.Metadata.String(domain.MetaFailureKind); kind != "oracle_timeout" {
		t.Fatalf("expected failure kind decoded, got %q", kind)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestUpdateStatusMergesMetadataAndRequiresRow(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectExec("UPDATE documents").
		WithArgs("doc-1", string(domain.StatusProcessing), []byte(`{"stage":"text_extraction"}`), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateStatus(context.Background(), "doc-1", domain.StatusProcessing, domain.Metadata{
		domain.MetaStage: "text_extraction",
	})
	if err != nil {
		t.Fatalf("UpdateStatus() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestUpdateStatusReturnsDomainNotFoundWhenNoRowsAffected(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectExec("UPDATE documents").
		WithArgs("missing", string(domain.StatusProcessing), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatus(context.Background(), "missing", domain.StatusProcessing, nil)
	if !domain.IsKind(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestResetForRetryClearsErrorKeys(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectExec(`metadata - ARRAY\['error','failure_kind','failed_at'\]`).
		WithArgs("doc-1", string(domain.StatusPending), []byte(`{"retried_at":"2026-08-20T12:00:00Z"}`), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.ResetForRetry(context.Background(), "doc-1", domain.Metadata{
		domain.MetaRetriedAt: "2026-08-20T12:00:00Z",
	})
	if err != nil {
		t.Fatalf("ResetForRetry() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestFindDuplicatesByContentHashWithFallback(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	now := time.Now().UTC()
	mock.ExpectQuery("SELECT id, owner_id, title.* FROM documents WHERE owner_id = .* content_hash").
		WithArgs("trustee-1", "abc123", "form65.pdf", int64(42), "").
		WillReturnRows(documentRows().AddRow(
			"doc-1", "trustee-1", "form65.pdf", "application/pdf", int64(42), "doc-1_form65.pdf",
			"abc123", "", "complete", []byte(`{}`), now, now,
		))

	docs, err := repo.FindDuplicates(context.Background(), "trustee-1", domain.Fingerprint{
		ContentHash: "abc123",
		Title:       "form65.pdf",
		Size:        42,
		MimeType:    "application/pdf",
	})
	if err != nil {
		t.Fatalf("FindDuplicates() error = %v", err)
	}
	if len(docs) != 1 || docs[0].ID != "doc-1" {
		t.Fatalf("expected one candidate, got %+v", docs)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestListStaleQueriesNonTerminalStatuses(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	cutoff := time.Now().UTC().Add(-15 * time.Minute)
	mock.ExpectQuery("WHERE status IN").
		WithArgs("pending", "processing", "processing_financial", cutoff).
		WillReturnRows(documentRows())

	docs, err := repo.ListStale(context.Background(), cutoff)
	if err != nil {
		t.Fatalf("ListStale() error = %v", err)
	}
	if len(docs) != 0 {
		t.Fatalf("expected empty result, got %+v", docs)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
