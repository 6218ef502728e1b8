package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/insolvd/docpipe/internal/core/domain"
)

type TaskRepository struct {
	db *sql.DB
}

func NewTaskRepository(db *sql.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// UpsertRiskTask inserts a follow-up task, ignoring the write when one
// already exists for (document_id, risk_factor_type). This is what
// makes generator re-runs idempotent.
func (r *TaskRepository) UpsertRiskTask(ctx context.Context, task *domain.FollowUpTask) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO follow_up_tasks (id, document_id, risk_factor_type, title, details, severity, status, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
ON CONFLICT (document_id, risk_factor_type) DO NOTHING
`, task.ID, task.DocumentID, task.RiskFactorType, task.Title, task.Details,
		string(task.Severity), string(task.Status), task.CreatedAt, task.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert risk task: %w", err)
	}
	return nil
}

func (r *TaskRepository) ListByDocument(ctx context.Context, documentID string) ([]domain.FollowUpTask, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, document_id, risk_factor_type, title, details, severity, status, created_at, updated_at
FROM follow_up_tasks
WHERE document_id = $1
ORDER BY created_at DESC
`, documentID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	out := make([]domain.FollowUpTask, 0)
	for rows.Next() {
		var task domain.FollowUpTask
		var severity, status string
		if err := rows.Scan(&task.ID, &task.DocumentID, &task.RiskFactorType, &task.Title, &task.Details,
			&severity, &status, &task.CreatedAt, &task.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		task.Severity = domain.Severity(severity)
		task.Status = domain.TaskStatus(status)
		out = append(out, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tasks: %w", err)
	}
	return out, nil
}

type RecommendationRepository struct {
	db *sql.DB
}

func NewRecommendationRepository(db *sql.DB) *RecommendationRepository {
	return &RecommendationRepository{db: db}
}

func (r *RecommendationRepository) Upsert(ctx context.Context, rec *domain.FolderRecommendation) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO folder_recommendations (document_id, folder, confidence, reason, accepted, created_at)
VALUES ($1,$2,$3,$4,FALSE,$5)
ON CONFLICT (document_id) DO UPDATE
SET folder = EXCLUDED.folder, confidence = EXCLUDED.confidence, reason = EXCLUDED.reason
WHERE NOT folder_recommendations.accepted
`, rec.DocumentID, rec.Folder, rec.Confidence, rec.Reason, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert folder recommendation: %w", err)
	}
	return nil
}

func (r *RecommendationRepository) GetByDocument(ctx context.Context, documentID string) (*domain.FolderRecommendation, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT document_id, folder, confidence, reason, accepted, created_at
FROM folder_recommendations
WHERE document_id = $1
`, documentID)

	var rec domain.FolderRecommendation
	err := row.Scan(&rec.DocumentID, &rec.Folder, &rec.Confidence, &rec.Reason, &rec.Accepted, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrAnalysisNotFound, "get folder recommendation", fmt.Errorf("document_id=%s", documentID))
		}
		return nil, fmt.Errorf("scan folder recommendation: %w", err)
	}
	return &rec, nil
}

func (r *RecommendationRepository) MarkAccepted(ctx context.Context, documentID string) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE folder_recommendations SET accepted = TRUE WHERE document_id = $1
`, documentID)
	if err != nil {
		return fmt.Errorf("mark recommendation accepted: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark recommendation rows affected: %w", err)
	}
	if rows == 0 {
		return domain.WrapError(domain.ErrAnalysisNotFound, "mark recommendation accepted", fmt.Errorf("document_id=%s", documentID))
	}
	return nil
}
