package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/insolvd/docpipe/internal/core/domain"
)

type AnalysisRepository struct {
	db *sql.DB
}

func NewAnalysisRepository(db *sql.DB) *AnalysisRepository {
	return &AnalysisRepository{db: db}
}

// Save supersedes any current result and inserts the new one with its
// risk factors in a single transaction, preserving the invariant that
// a document never has two current analysis results.
func (r *AnalysisRepository) Save(ctx context.Context, result *domain.AnalysisResult) error {
	fieldsJSON, err := json.Marshal(orEmptyFields(result.ExtractedFields))
	if err != nil {
		return fmt.Errorf("marshal extracted fields: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin analysis tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `
UPDATE analysis_results SET superseded = TRUE WHERE document_id = $1 AND NOT superseded
`, result.DocumentID); err != nil {
		return fmt.Errorf("supersede previous analysis: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
INSERT INTO analysis_results (
	id, document_id, form_type, confidence, extracted_fields, compliance_status, overall_risk, reasoning, degraded, superseded, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,FALSE,$10)
`,
		result.ID, result.DocumentID, result.FormType, result.Confidence, fieldsJSON,
		string(result.ComplianceStatus), string(result.OverallRisk), result.Reasoning,
		result.Degraded, result.CreatedAt,
	); err != nil {
		return fmt.Errorf("insert analysis result: %w", err)
	}

	for _, rf := range result.RiskFactors {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO risk_factors (id, analysis_id, factor_type, severity, description, recommendation, regulatory_reference)
VALUES ($1,$2,$3,$4,$5,$6,$7)
`, rf.ID, result.ID, rf.FactorType, string(rf.Severity), rf.Description, rf.Recommendation, rf.RegulatoryReference); err != nil {
			return fmt.Errorf("insert risk factor %s: %w", rf.FactorType, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit analysis tx: %w", err)
	}
	return nil
}

func (r *AnalysisRepository) GetCurrentByDocument(ctx context.Context, documentID string) (*domain.AnalysisResult, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, document_id, form_type, confidence, extracted_fields, compliance_status, overall_risk, reasoning, degraded, superseded, created_at
FROM analysis_results
WHERE document_id = $1 AND NOT superseded
`, documentID)

	var result domain.AnalysisResult
	var fieldsRaw []byte
	var compliance, risk string

	err := row.Scan(
		&result.ID, &result.DocumentID, &result.FormType, &result.Confidence, &fieldsRaw,
		&compliance, &risk, &result.Reasoning, &result.Degraded, &result.Superseded, &result.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrAnalysisNotFound, "get current analysis", fmt.Errorf("document_id=%s", documentID))
		}
		return nil, fmt.Errorf("scan analysis result: %w", err)
	}
	if err := json.Unmarshal(fieldsRaw, &result.ExtractedFields); err != nil {
		return nil, fmt.Errorf("unmarshal extracted fields: %w", err)
	}
	result.ComplianceStatus = domain.ComplianceStatus(compliance)
	result.OverallRisk = domain.Severity(risk)

	factors, err := r.listRiskFactors(ctx, result.ID)
	if err != nil {
		return nil, err
	}
	result.RiskFactors = factors
	return &result, nil
}

func (r *AnalysisRepository) SupersedeCurrent(ctx context.Context, documentID string) error {
	_, err := r.db.ExecContext(ctx, `
UPDATE analysis_results SET superseded = TRUE WHERE document_id = $1 AND NOT superseded
`, documentID)
	if err != nil {
		return fmt.Errorf("supersede current analysis: %w", err)
	}
	return nil
}

func (r *AnalysisRepository) listRiskFactors(ctx context.Context, analysisID string) ([]domain.RiskFactor, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, analysis_id, factor_type, severity, description, recommendation, regulatory_reference
FROM risk_factors
WHERE analysis_id = $1
ORDER BY severity DESC, factor_type
`, analysisID)
	if err != nil {
		return nil, fmt.Errorf("list risk factors: %w", err)
	}
	defer rows.Close()

	out := make([]domain.RiskFactor, 0)
	for rows.Next() {
		var rf domain.RiskFactor
		var severity string
		if err := rows.Scan(&rf.ID, &rf.AnalysisID, &rf.FactorType, &severity, &rf.Description, &rf.Recommendation, &rf.RegulatoryReference); err != nil {
			return nil, fmt.Errorf("scan risk factor: %w", err)
		}
		rf.Severity = domain.Severity(severity)
		out = append(out, rf)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate risk factors: %w", err)
	}
	return out, nil
}

func orEmptyFields(fields map[string]string) map[string]string {
	if fields == nil {
		return map[string]string{}
	}
	return fields
}
