package domain

import "time"

type DocumentStatus string

const (
	StatusPending             DocumentStatus = "pending"
	StatusProcessing          DocumentStatus = "processing"
	StatusProcessingFinancial DocumentStatus = "processing_financial"
	StatusComplete            DocumentStatus = "complete"
	StatusFailed              DocumentStatus = "failed"
)

func (s DocumentStatus) IsTerminal() bool {
	return s == StatusComplete || s == StatusFailed
}

func (s DocumentStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusProcessingFinancial, StatusComplete, StatusFailed:
		return true
	default:
		return false
	}
}

// Metadata is the durable per-document stage log. Writes are merges:
// a later stage must never drop keys written by an earlier one.
type Metadata map[string]any

func (m Metadata) String(key string) string {
	if m == nil {
		return ""
	}
	v, _ := m[key].(string)
	return v
}

func (m Metadata) Has(key string) bool {
	if m == nil {
		return false
	}
	_, ok := m[key]
	return ok
}

// Bool reads a boolean key, falling back to def when the key is absent
// or holds a non-boolean value.
func (m Metadata) Bool(key string, def bool) bool {
	if m == nil {
		return def
	}
	v, ok := m[key].(bool)
	if !ok {
		return def
	}
	return v
}

// Metadata keys written by the pipeline. Error keys are the only ones
// an explicit retry is allowed to clear.
const (
	MetaStage                 = "stage"
	MetaStageEnteredAt        = "stage_entered_at"
	MetaExtractionCompletedAt = "text_extraction_completed_at"
	MetaExtractionCharacters  = "text_extraction_characters"
	MetaFinancialDetected     = "financial_content_detected"
	MetaOracleCompletedAt     = "oracle_completed_at"
	MetaOracleSkipped         = "oracle_skipped_existing_result"
	MetaCompletedAt           = "completed_at"
	MetaError                 = "error"
	MetaFailureKind           = "failure_kind"
	MetaFailedAt              = "failed_at"
	MetaRetriedAt             = "retried_at"
	MetaRetryCount            = "retry_count"
)

// Analysis invocation options ride in metadata because the queue
// payload carries only the document id; the worker reads them back
// from the record. Absent keys mean the default (true).
const (
	MetaAnalysisIncludeRisk       = "analysis_include_risk"
	MetaAnalysisIncludeCompliance = "analysis_include_compliance"
	MetaAnalysisGenerateTasks     = "analysis_generate_tasks"
)

const (
	StageTextExtraction    = "text_extraction"
	StageFinancialAnalysis = "financial_analysis"
)

// ErrorMetadataKeys lists the keys cleared by the failed->pending retry
// transition. Everything else is retained for diagnostics.
var ErrorMetadataKeys = []string{MetaError, MetaFailureKind, MetaFailedAt}

type Document struct {
	ID          string         `json:"id"`
	OwnerID     string         `json:"owner_id"`
	Title       string         `json:"title"`
	MimeType    string         `json:"mime_type"`
	SizeBytes   int64          `json:"size_bytes"`
	StoragePath string         `json:"storage_path"`
	ContentHash string         `json:"content_hash,omitempty"`
	Folder      string         `json:"folder,omitempty"`
	Status      DocumentStatus `json:"status"`
	Metadata    Metadata       `json:"metadata"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// StatusSnapshot is the polled view of a document's progress.
type StatusSnapshot struct {
	DocumentID string         `json:"document_id"`
	Status     DocumentStatus `json:"status"`
	Progress   int            `json:"progress"`
	Error      string         `json:"error,omitempty"`
	LastUpdate time.Time      `json:"last_update"`
}

// DocumentFilter narrows document list queries.
type DocumentFilter struct {
	OwnerID string
	Status  DocumentStatus
	Folder  string
}
