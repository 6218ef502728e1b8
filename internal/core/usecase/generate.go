package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/insolvd/docpipe/internal/core/domain"
	"github.com/insolvd/docpipe/internal/core/ports"
)

// GenerateUseCase consumes a completed analysis result and emits
// follow-up tasks and a folder recommendation. Both outputs are
// idempotent with respect to pipeline re-runs, and neither ever mutates
// document status.
type GenerateUseCase struct {
	tasks       ports.TaskRepository
	recs        ports.RecommendationRepository
	classifier  ports.FolderClassifier
	minSeverity domain.Severity
}

func NewGenerateUseCase(
	tasks ports.TaskRepository,
	recs ports.RecommendationRepository,
	classifier ports.FolderClassifier,
	minSeverity domain.Severity,
) *GenerateUseCase {
	if minSeverity.Rank() == 0 {
		minSeverity = domain.SeverityMedium
	}
	return &GenerateUseCase{
		tasks:       tasks,
		recs:        recs,
		classifier:  classifier,
		minSeverity: minSeverity,
	}
}

func (uc *GenerateUseCase) ForResult(ctx context.Context, doc *domain.Document, result *domain.AnalysisResult, text string) error {
	if err := uc.generateRiskTasks(ctx, doc, result); err != nil {
		return err
	}
	return uc.generateFolderRecommendation(ctx, doc, text)
}

func (uc *GenerateUseCase) generateRiskTasks(ctx context.Context, doc *domain.Document, result *domain.AnalysisResult) error {
	if !doc.Metadata.Bool(domain.MetaAnalysisGenerateTasks, true) {
		return nil
	}
	now := time.Now().UTC()
	for _, rf := range result.RiskFactors {
		if rf.Severity.Rank() < uc.minSeverity.Rank() {
			continue
		}
		task := &domain.FollowUpTask{
			ID:             uuid.NewString(),
			DocumentID:     doc.ID,
			RiskFactorType: rf.FactorType,
			Title:          fmt.Sprintf("Review %s risk: %s", rf.Severity, rf.FactorType),
			Details:        taskDetails(rf),
			Severity:       rf.Severity,
			Status:         domain.TaskOpen,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := uc.tasks.UpsertRiskTask(ctx, task); err != nil {
			return fmt.Errorf("upsert risk task %s: %w", rf.FactorType, err)
		}
	}
	return nil
}

// generateFolderRecommendation records a best-effort suggestion. The
// document is never moved here; acceptance is an explicit user action.
func (uc *GenerateUseCase) generateFolderRecommendation(ctx context.Context, doc *domain.Document, text string) error {
	if uc.classifier == nil {
		return nil
	}
	folder, confidence, reason, ok := uc.classifier.Classify(doc.Title, text)
	if !ok {
		return nil
	}
	rec := &domain.FolderRecommendation{
		DocumentID: doc.ID,
		Folder:     folder,
		Confidence: confidence,
		Reason:     reason,
		CreatedAt:  time.Now().UTC(),
	}
	if err := uc.recs.Upsert(ctx, rec); err != nil {
		return fmt.Errorf("upsert folder recommendation: %w", err)
	}
	return nil
}

func taskDetails(rf domain.RiskFactor) string {
	details := rf.Description
	if rf.Recommendation != "" {
		details += "\nRecommendation: " + rf.Recommendation
	}
	if rf.RegulatoryReference != "" {
		details += "\nRegulatory reference: " + rf.RegulatoryReference
	}
	return details
}
