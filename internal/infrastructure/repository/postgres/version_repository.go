package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/insolvd/docpipe/internal/core/domain"
)

type VersionRepository struct {
	db *sql.DB
}

func NewVersionRepository(db *sql.DB) *VersionRepository {
	return &VersionRepository{db: db}
}

func (r *VersionRepository) Create(ctx context.Context, v *domain.DocumentVersion) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO document_versions (id, document_id, version_number, storage_path, size_bytes, is_current, change_notes, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
`, v.ID, v.DocumentID, v.VersionNumber, v.StoragePath, v.SizeBytes, v.IsCurrent, v.ChangeNotes, v.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert document version: %w", err)
	}
	return nil
}

func (r *VersionRepository) ListByDocument(ctx context.Context, documentID string) ([]domain.DocumentVersion, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, document_id, version_number, storage_path, size_bytes, is_current, change_notes, created_at
FROM document_versions
WHERE document_id = $1
ORDER BY version_number DESC
`, documentID)
	if err != nil {
		return nil, fmt.Errorf("list document versions: %w", err)
	}
	defer rows.Close()

	out := make([]domain.DocumentVersion, 0)
	for rows.Next() {
		var v domain.DocumentVersion
		if err := rows.Scan(&v.ID, &v.DocumentID, &v.VersionNumber, &v.StoragePath, &v.SizeBytes, &v.IsCurrent, &v.ChangeNotes, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan document version: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate document versions: %w", err)
	}
	return out, nil
}

func (r *VersionRepository) GetByID(ctx context.Context, versionID string) (*domain.DocumentVersion, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, document_id, version_number, storage_path, size_bytes, is_current, change_notes, created_at
FROM document_versions
WHERE id = $1
`, versionID)

	var v domain.DocumentVersion
	err := row.Scan(&v.ID, &v.DocumentID, &v.VersionNumber, &v.StoragePath, &v.SizeBytes, &v.IsCurrent, &v.ChangeNotes, &v.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrVersionNotFound, "get version", fmt.Errorf("id=%s", versionID))
		}
		return nil, fmt.Errorf("scan document version: %w", err)
	}
	return &v, nil
}

// SwitchCurrent clears the old current flag and sets the new one in a
// single transaction, so callers never observe zero or two current
// versions.
func (r *VersionRepository) SwitchCurrent(ctx context.Context, documentID, versionID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin switch tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `
UPDATE document_versions SET is_current = FALSE WHERE document_id = $1 AND is_current
`, documentID); err != nil {
		return fmt.Errorf("clear current version: %w", err)
	}

	result, err := tx.ExecContext(ctx, `
UPDATE document_versions SET is_current = TRUE WHERE id = $1 AND document_id = $2
`, versionID, documentID)
	if err != nil {
		return fmt.Errorf("set current version: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("set current version rows affected: %w", err)
	}
	if rows == 0 {
		return domain.WrapError(domain.ErrVersionNotFound, "switch current version", fmt.Errorf("id=%s", versionID))
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit switch tx: %w", err)
	}
	return nil
}

func (r *VersionRepository) NextVersionNumber(ctx context.Context, documentID string) (int, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT COALESCE(MAX(version_number), 0) + 1 FROM document_versions WHERE document_id = $1
`, documentID)

	var next int
	if err := row.Scan(&next); err != nil {
		return 0, fmt.Errorf("next version number: %w", err)
	}
	return next, nil
}
