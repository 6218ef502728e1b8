package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/insolvd/docpipe/internal/core/domain"
	"github.com/insolvd/docpipe/internal/core/ports"
)

// ProcessDocumentUseCase drives the pipeline state machine:
// pending -> processing -> processing_financial -> complete, with
// failed reachable from any non-terminal state. It is the only writer
// of document status once ingestion begins.
type ProcessDocumentUseCase struct {
	repo      ports.DocumentRepository
	extractor ports.TextExtractor
	oracle    ports.AnalysisOracle
	analyses  ports.AnalysisRepository
	generator *GenerateUseCase
	metrics   ports.PipelineMetrics

	oracleTimeout    time.Duration
	generatorTimeout time.Duration
}

func NewProcessDocumentUseCase(
	repo ports.DocumentRepository,
	extractor ports.TextExtractor,
	oracle ports.AnalysisOracle,
	analyses ports.AnalysisRepository,
	generator *GenerateUseCase,
	oracleTimeout time.Duration,
) *ProcessDocumentUseCase {
	if oracleTimeout <= 0 {
		oracleTimeout = 2 * time.Minute
	}
	return &ProcessDocumentUseCase{
		repo:             repo,
		extractor:        extractor,
		oracle:           oracle,
		analyses:         analyses,
		generator:        generator,
		oracleTimeout:    oracleTimeout,
		generatorTimeout: time.Minute,
	}
}

// InstrumentWith attaches pipeline metrics. Safe to skip; the
// orchestrator runs unobserved without it.
func (uc *ProcessDocumentUseCase) InstrumentWith(m ports.PipelineMetrics) {
	uc.metrics = m
}

func (uc *ProcessDocumentUseCase) ProcessByID(ctx context.Context, documentID string) error {
	doc, err := uc.repo.GetByID(ctx, documentID)
	if err != nil {
		return fmt.Errorf("fetch document by id: %w", err)
	}

	// Queue redelivery of a finished document is a no-op; failed
	// documents re-enter only through an explicit retry.
	if doc.Status.IsTerminal() {
		slog.Info("process_skipped_terminal", "document_id", doc.ID, "status", doc.Status)
		return nil
	}

	// Dedup-of-work guard: an existing current analysis means the
	// oracle already ran for this document. Never re-invoke it
	// implicitly; finish the tail of the pipeline instead.
	existing, err := uc.analyses.GetCurrentByDocument(ctx, doc.ID)
	if err != nil && !domain.IsKind(err, domain.ErrAnalysisNotFound) {
		return fmt.Errorf("check existing analysis: %w", err)
	}
	if existing != nil {
		return uc.completeWithResult(ctx, doc, existing, "", true)
	}

	text, err := uc.runExtraction(ctx, doc)
	if err != nil {
		return uc.failed(ctx, doc.ID, err)
	}

	result, err := uc.runFinancialAnalysis(ctx, doc, text)
	if err != nil {
		return uc.failed(ctx, doc.ID, err)
	}

	return uc.completeWithResult(ctx, doc, result, text, false)
}

// runExtraction performs the pending -> processing transition and the
// text extraction stage.
func (uc *ProcessDocumentUseCase) runExtraction(ctx context.Context, doc *domain.Document) (string, error) {
	if err := uc.mark(ctx, doc.ID, domain.StatusProcessing, domain.Metadata{
		domain.MetaStage:          domain.StageTextExtraction,
		domain.MetaStageEnteredAt: nowRFC3339(),
	}); err != nil {
		return "", err
	}

	stageStart := time.Now()
	text, err := uc.extractor.Extract(ctx, doc)
	if err != nil {
		return "", domain.NewStageFailure(domain.FailureUpload, fmt.Errorf("extract text: %w", err))
	}
	if strings.TrimSpace(text) == "" {
		return "", domain.NewStageFailure(domain.FailureUpload, fmt.Errorf("document %s produced no extractable text", doc.ID))
	}
	uc.observeStage(domain.StageTextExtraction, stageStart)

	if err := uc.mark(ctx, doc.ID, domain.StatusProcessing, domain.Metadata{
		domain.MetaExtractionCompletedAt: nowRFC3339(),
		domain.MetaExtractionCharacters:  len(text),
	}); err != nil {
		return "", err
	}
	return text, nil
}

// runFinancialAnalysis performs the processing -> processing_financial
// transition and the oracle call. The sub-state exists because this is
// the slowest and most failure-prone stage and its progress must be
// independently observable.
func (uc *ProcessDocumentUseCase) runFinancialAnalysis(ctx context.Context, doc *domain.Document, text string) (*domain.AnalysisResult, error) {
	if err := uc.mark(ctx, doc.ID, domain.StatusProcessingFinancial, domain.Metadata{
		domain.MetaStage:             domain.StageFinancialAnalysis,
		domain.MetaStageEnteredAt:    nowRFC3339(),
		domain.MetaFinancialDetected: hasFinancialSignal(text),
	}); err != nil {
		return nil, err
	}

	oracleCtx, cancel := context.WithTimeout(ctx, uc.oracleTimeout)
	defer cancel()

	stageStart := time.Now()
	result, err := uc.oracle.Analyze(oracleCtx, ports.OracleRequest{
		DocumentID:             doc.ID,
		Text:                   text,
		Hints:                  map[string]string{"title": doc.Title, "mime_type": doc.MimeType},
		IncludeRiskAssessment:  doc.Metadata.Bool(domain.MetaAnalysisIncludeRisk, true),
		IncludeComplianceCheck: doc.Metadata.Bool(domain.MetaAnalysisIncludeCompliance, true),
	})
	uc.recordOracleCall(err)
	if err != nil {
		// Malformed oracle output degrades instead of failing so the
		// attempt is preserved for diagnostics and manual review.
		if domain.FailureKindOf(err) == domain.FailureOracleParse {
			slog.Warn("oracle_output_degraded", "document_id", doc.ID, "error", err)
			result = domain.DegradedResult(doc.ID, fmt.Sprintf("oracle output unparseable: %v", err))
		} else {
			return nil, err
		}
	}

	result.ID = uuid.NewString()
	result.DocumentID = doc.ID
	result.CreatedAt = time.Now().UTC()
	for i := range result.RiskFactors {
		result.RiskFactors[i].ID = uuid.NewString()
		result.RiskFactors[i].AnalysisID = result.ID
	}

	if err := uc.analyses.Save(ctx, result); err != nil {
		return nil, domain.NewStageFailure(domain.FailurePersistence, fmt.Errorf("save analysis result: %w", err))
	}

	if err := uc.mark(ctx, doc.ID, domain.StatusProcessingFinancial, domain.Metadata{
		domain.MetaOracleCompletedAt: nowRFC3339(),
	}); err != nil {
		return nil, err
	}
	uc.observeStage(domain.StageFinancialAnalysis, stageStart)
	return result, nil
}

// completeWithResult invokes the downstream generators fire-and-forget
// and moves the document to its terminal complete state. Generator
// failures never revert a completed document.
func (uc *ProcessDocumentUseCase) completeWithResult(
	ctx context.Context,
	doc *domain.Document,
	result *domain.AnalysisResult,
	text string,
	oracleSkipped bool,
) error {
	if uc.generator != nil {
		genCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), uc.generatorTimeout)
		go func() {
			defer cancel()
			if err := uc.generator.ForResult(genCtx, doc, result, text); err != nil {
				slog.Warn("generator_failed", "document_id", doc.ID, "error", err)
			}
		}()
	}

	meta := domain.Metadata{domain.MetaCompletedAt: nowRFC3339()}
	if oracleSkipped {
		meta[domain.MetaOracleSkipped] = true
	}
	if err := uc.mark(ctx, doc.ID, domain.StatusComplete, meta); err != nil {
		return err
	}
	return nil
}

func (uc *ProcessDocumentUseCase) observeStage(stage string, start time.Time) {
	if uc.metrics != nil {
		uc.metrics.ObserveStage(stage, time.Since(start))
	}
}

func (uc *ProcessDocumentUseCase) recordOracleCall(err error) {
	if uc.metrics != nil {
		uc.metrics.RecordOracleCall(err)
	}
}

func (uc *ProcessDocumentUseCase) mark(ctx context.Context, id string, status domain.DocumentStatus, extra domain.Metadata) error {
	if err := uc.repo.UpdateStatus(ctx, id, status, extra); err != nil {
		return domain.NewStageFailure(domain.FailurePersistence, fmt.Errorf("set status=%s: %w", status, err))
	}
	return nil
}

// failed maps a stage error to the terminal failed status, recording
// the reason without touching earlier metadata.
func (uc *ProcessDocumentUseCase) failed(ctx context.Context, id string, stageErr error) error {
	kind := domain.FailureKindOf(stageErr)
	err := uc.repo.UpdateStatus(ctx, id, domain.StatusFailed, domain.Metadata{
		domain.MetaError:       stageErr.Error(),
		domain.MetaFailureKind: string(kind),
		domain.MetaFailedAt:    nowRFC3339(),
	})
	if err != nil {
		return fmt.Errorf("%w; mark failed status: %v", stageErr, err)
	}
	return stageErr
}

func nowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// financialKeywords are the signals that mark risk-bearing content for
// the financial analysis sub-stage.
var financialKeywords = []string{
	"balance", "liabilit", "asset", "creditor", "debtor", "income",
	"expense", "statement of affairs", "proof of claim", "surplus",
	"deficit", "secured", "unsecured", "exemption", "garnish",
}

func hasFinancialSignal(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range financialKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
