package usecase

import (
	"context"
	"fmt"

	"github.com/insolvd/docpipe/internal/core/domain"
	"github.com/insolvd/docpipe/internal/core/ports"
)

// AnalyzeDocumentUseCase handles manual analysis invocation. Without
// force, an existing current result short-circuits (no double oracle
// calls). With force, the current result is superseded and the
// pipeline re-enters from pending, where the missing-result guard lets
// the oracle run again.
type AnalyzeDocumentUseCase struct {
	repo     ports.DocumentRepository
	analyses ports.AnalysisRepository
	queue    ports.MessageQueue
}

func NewAnalyzeDocumentUseCase(
	repo ports.DocumentRepository,
	analyses ports.AnalysisRepository,
	queue ports.MessageQueue,
) *AnalyzeDocumentUseCase {
	return &AnalyzeDocumentUseCase{repo: repo, analyses: analyses, queue: queue}
}

// Analyze returns the current result when one exists and force is not
// set. Otherwise it queues a pipeline run and returns nil, indicating
// analysis is in flight.
func (uc *AnalyzeDocumentUseCase) Analyze(ctx context.Context, documentID string, opts domain.AnalysisOptions) (*domain.AnalysisResult, error) {
	doc, err := uc.repo.GetByID(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if !doc.Status.IsTerminal() {
		return nil, domain.WrapError(domain.ErrConflict, "analyze",
			fmt.Errorf("document %s is still %s", doc.ID, doc.Status))
	}

	current, err := uc.analyses.GetCurrentByDocument(ctx, documentID)
	if err != nil && !domain.IsKind(err, domain.ErrAnalysisNotFound) {
		return nil, fmt.Errorf("load current analysis: %w", err)
	}

	if current != nil && !opts.Force {
		return current, nil
	}
	if current != nil {
		if err := uc.analyses.SupersedeCurrent(ctx, documentID); err != nil {
			return nil, fmt.Errorf("supersede current analysis: %w", err)
		}
	}

	// The queue payload is only the document id, so the requested
	// options travel in metadata for the worker to read back.
	if err := uc.repo.ResetForRetry(ctx, documentID, domain.Metadata{
		"reanalysis_requested_at":            nowRFC3339(),
		domain.MetaAnalysisIncludeRisk:       opts.IncludeRiskAssessment,
		domain.MetaAnalysisIncludeCompliance: opts.IncludeComplianceCheck,
		domain.MetaAnalysisGenerateTasks:     opts.GenerateTasks,
	}); err != nil {
		return nil, fmt.Errorf("reset for re-analysis: %w", err)
	}
	if err := uc.queue.PublishProcessDocument(ctx, documentID); err != nil {
		return nil, fmt.Errorf("publish process event: %w", err)
	}
	return nil, nil
}

func (uc *AnalyzeDocumentUseCase) Current(ctx context.Context, documentID string) (*domain.AnalysisResult, error) {
	return uc.analyses.GetCurrentByDocument(ctx, documentID)
}
