package ports

import (
	"context"
	"io"
	"time"

	"github.com/insolvd/docpipe/internal/core/domain"
)

// DocumentRepository persists and reads document state. The pipeline
// orchestrator is the only writer of status once ingestion begins.
type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	List(ctx context.Context, filter domain.DocumentFilter) ([]domain.Document, error)
	// UpdateStatus sets status and merges extra into metadata without
	// dropping existing keys.
	UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, extra domain.Metadata) error
	// ResetForRetry moves failed->pending, clearing only the error keys.
	ResetForRetry(ctx context.Context, id string, extra domain.Metadata) error
	// FindDuplicates returns same-owner documents matching the
	// fingerprint (content hash, with title+size fallback).
	FindDuplicates(ctx context.Context, ownerID string, fp domain.Fingerprint) ([]domain.Document, error)
	// ReplaceContent swaps the stored object reference after a
	// replace resolution or version switch.
	ReplaceContent(ctx context.Context, id, storagePath, contentHash string, sizeBytes int64) error
	SetFolder(ctx context.Context, id, folder string) error
	// ListStale returns non-terminal documents untouched since the
	// cutoff, for the sweeper.
	ListStale(ctx context.Context, cutoff time.Time) ([]domain.Document, error)
}

// VersionRepository persists document revisions.
type VersionRepository interface {
	Create(ctx context.Context, v *domain.DocumentVersion) error
	ListByDocument(ctx context.Context, documentID string) ([]domain.DocumentVersion, error)
	GetByID(ctx context.Context, versionID string) (*domain.DocumentVersion, error)
	// SwitchCurrent atomically clears the old current flag and sets the
	// new one in a single transaction.
	SwitchCurrent(ctx context.Context, documentID, versionID string) error
	NextVersionNumber(ctx context.Context, documentID string) (int, error)
}

// AnalysisRepository persists oracle output.
type AnalysisRepository interface {
	// Save inserts the result and its risk factors, superseding any
	// current result in the same transaction.
	Save(ctx context.Context, result *domain.AnalysisResult) error
	GetCurrentByDocument(ctx context.Context, documentID string) (*domain.AnalysisResult, error)
	// SupersedeCurrent marks the current result superseded without a
	// replacement, used by forced re-analysis.
	SupersedeCurrent(ctx context.Context, documentID string) error
}

// TaskRepository persists generated follow-up work.
type TaskRepository interface {
	// UpsertRiskTask is idempotent on (document_id, risk_factor_type).
	UpsertRiskTask(ctx context.Context, task *domain.FollowUpTask) error
	ListByDocument(ctx context.Context, documentID string) ([]domain.FollowUpTask, error)
}

// RecommendationRepository persists folder suggestions.
type RecommendationRepository interface {
	Upsert(ctx context.Context, rec *domain.FolderRecommendation) error
	GetByDocument(ctx context.Context, documentID string) (*domain.FolderRecommendation, error)
	MarkAccepted(ctx context.Context, documentID string) error
}

// ObjectStorage stores raw document bytes.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// ProcessEvent is the queue payload for one pipeline run. EnqueuedAt
// lets the consumer measure how long the event sat in the queue.
type ProcessEvent struct {
	DocumentID string    `json:"document_id"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// MessageQueue carries process-document events from api to worker.
type MessageQueue interface {
	PublishProcessDocument(ctx context.Context, documentID string) error
	SubscribeProcessDocument(ctx context.Context, handler func(context.Context, ProcessEvent) error) error
}

// PipelineMetrics receives stage timing and oracle outcome signals
// from the pipeline orchestrator.
type PipelineMetrics interface {
	ObserveStage(stage string, duration time.Duration)
	RecordOracleCall(err error)
}

// Fingerprinter derives a stable identity for uploaded content.
type Fingerprinter interface {
	Compute(title, mimeType string, content []byte) domain.Fingerprint
}

// TextExtractor extracts plain text from a stored document.
type TextExtractor interface {
	Extract(ctx context.Context, doc *domain.Document) (string, error)
}

// OracleRequest is the input contract of the analysis oracle.
type OracleRequest struct {
	DocumentID             string            `json:"document_id"`
	Text                   string            `json:"text"`
	Hints                  map[string]string `json:"hints,omitempty"`
	IncludeRiskAssessment  bool              `json:"include_risk_assessment"`
	IncludeComplianceCheck bool              `json:"include_compliance_check"`
}

// AnalysisOracle is the external AI service, a single fallible RPC.
// Failures carry a domain.FailureKind (oracle_timeout,
// oracle_provider_error, oracle_parse_error) via domain.StageFailure.
type AnalysisOracle interface {
	Analyze(ctx context.Context, req OracleRequest) (*domain.AnalysisResult, error)
}

// FolderClassifier suggests a folder for extracted text.
type FolderClassifier interface {
	Classify(title, text string) (folder string, confidence float64, reason string, ok bool)
}
