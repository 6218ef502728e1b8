package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/insolvd/docpipe/internal/core/domain"
)

const documentColumns = "id, owner_id, title, mime_type, size_bytes, storage_path, content_hash, folder, status, metadata, created_at, updated_at"

type DocumentRepository struct {
	db *sql.DB
}

func NewDocumentRepository(db *sql.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func (r *DocumentRepository) Create(ctx context.Context, doc *domain.Document) error {
	metaJSON, err := json.Marshal(orEmptyMeta(doc.Metadata))
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO documents (
	id, owner_id, title, mime_type, size_bytes, storage_path, content_hash, folder, status, metadata, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
`,
		doc.ID, doc.OwnerID, doc.Title, doc.MimeType, doc.SizeBytes, doc.StoragePath,
		doc.ContentHash, doc.Folder, string(doc.Status), metaJSON, doc.CreatedAt, doc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+documentColumns+`
FROM documents
WHERE id = $1
`, id)

	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrDocumentNotFound, "get document", fmt.Errorf("id=%s", id))
		}
		return nil, fmt.Errorf("scan document: %w", err)
	}
	return doc, nil
}

func (r *DocumentRepository) List(ctx context.Context, filter domain.DocumentFilter) ([]domain.Document, error) {
	builder := sq.Select(documentColumns).
		From("documents").
		OrderBy("created_at DESC").
		PlaceholderFormat(sq.Dollar)

	if filter.OwnerID != "" {
		builder = builder.Where(sq.Eq{"owner_id": filter.OwnerID})
	}
	if filter.Status != "" {
		builder = builder.Where(sq.Eq{"status": string(filter.Status)})
	}
	if filter.Folder != "" {
		builder = builder.Where(sq.Eq{"folder": filter.Folder})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list query: %w", err)
	}
	return r.queryDocuments(ctx, query, args...)
}

// FindDuplicates matches on content hash when the incoming fingerprint
// has one; rows stored before hashing (empty content_hash) fall back to
// title+size. False negatives are accepted, the resolver fails open.
func (r *DocumentRepository) FindDuplicates(ctx context.Context, ownerID string, fp domain.Fingerprint) ([]domain.Document, error) {
	builder := sq.Select(documentColumns).
		From("documents").
		Where(sq.Eq{"owner_id": ownerID}).
		OrderBy("created_at DESC").
		PlaceholderFormat(sq.Dollar)

	nameAndSize := sq.And{
		sq.Eq{"title": fp.Title},
		sq.Eq{"size_bytes": fp.Size},
		sq.Eq{"content_hash": ""},
	}
	if fp.HasContentHash() {
		builder = builder.Where(sq.Or{sq.Eq{"content_hash": fp.ContentHash}, nameAndSize})
	} else {
		builder = builder.Where(sq.And{sq.Eq{"title": fp.Title}, sq.Eq{"size_bytes": fp.Size}})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build duplicate query: %w", err)
	}
	return r.queryDocuments(ctx, query, args...)
}

// UpdateStatus merges extra into metadata rather than replacing it;
// keys written by earlier stages survive later writes.
func (r *DocumentRepository) UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, extra domain.Metadata) error {
	metaJSON, err := json.Marshal(orEmptyMeta(extra))
	if err != nil {
		return fmt.Errorf("marshal metadata delta: %w", err)
	}

	result, err := r.db.ExecContext(ctx, `
UPDATE documents
SET status = $2, metadata = metadata || $3::jsonb, updated_at = $4
WHERE id = $1
`, id, string(status), metaJSON, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update document status: %w", err)
	}
	return requireRow(result, "update document status", id)
}

// ResetForRetry clears only the error keys and re-enters pending.
func (r *DocumentRepository) ResetForRetry(ctx context.Context, id string, extra domain.Metadata) error {
	metaJSON, err := json.Marshal(orEmptyMeta(extra))
	if err != nil {
		return fmt.Errorf("marshal metadata delta: %w", err)
	}

	result, err := r.db.ExecContext(ctx, `
UPDATE documents
SET status = $2,
	metadata = (metadata - ARRAY['error','failure_kind','failed_at']::text[]) || $3::jsonb,
	updated_at = $4
WHERE id = $1
`, id, string(domain.StatusPending), metaJSON, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("reset document for retry: %w", err)
	}
	return requireRow(result, "reset document for retry", id)
}

func (r *DocumentRepository) ReplaceContent(ctx context.Context, id, storagePath, contentHash string, sizeBytes int64) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE documents
SET storage_path = $2, content_hash = $3, size_bytes = $4, updated_at = $5
WHERE id = $1
`, id, storagePath, contentHash, sizeBytes, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("replace document content: %w", err)
	}
	return requireRow(result, "replace document content", id)
}

func (r *DocumentRepository) SetFolder(ctx context.Context, id, folder string) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE documents
SET folder = $2, updated_at = $3
WHERE id = $1
`, id, folder, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set document folder: %w", err)
	}
	return requireRow(result, "set document folder", id)
}

func (r *DocumentRepository) ListStale(ctx context.Context, cutoff time.Time) ([]domain.Document, error) {
	return r.queryDocuments(ctx, `
SELECT `+documentColumns+`
FROM documents
WHERE status IN ($1, $2, $3) AND updated_at < $4
`, string(domain.StatusPending), string(domain.StatusProcessing), string(domain.StatusProcessingFinancial), cutoff)
}

func (r *DocumentRepository) queryDocuments(ctx context.Context, query string, args ...any) ([]domain.Document, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Document, 0)
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document row: %w", err)
		}
		out = append(out, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*domain.Document, error) {
	var doc domain.Document
	var metaRaw []byte
	var status string

	err := row.Scan(
		&doc.ID, &doc.OwnerID, &doc.Title, &doc.MimeType, &doc.SizeBytes, &doc.StoragePath,
		&doc.ContentHash, &doc.Folder, &status, &metaRaw, &doc.CreatedAt, &doc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(metaRaw, &doc.Metadata); err != nil {
		return nil, fmt.Errorf("unmarshal metadata: %w", err)
	}
	doc.Status = domain.DocumentStatus(status)
	return &doc, nil
}

func requireRow(result sql.Result, operation, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", operation, err)
	}
	if rows == 0 {
		return domain.WrapError(domain.ErrDocumentNotFound, operation, fmt.Errorf("id=%s", id))
	}
	return nil
}

func orEmptyMeta(m domain.Metadata) domain.Metadata {
	if m == nil {
		return domain.Metadata{}
	}
	return m
}
