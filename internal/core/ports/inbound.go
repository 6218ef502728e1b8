package ports

import (
	"context"
	"io"

	"github.com/insolvd/docpipe/internal/core/domain"
)

// UploadOutcome is either a created document or a duplicate prompt
// awaiting a user decision. Duplicate is also set alongside Document
// when the duplicate check failed open, so callers can see the upload
// proceeded unchecked.
type UploadOutcome struct {
	Document  *domain.Document
	Duplicate *domain.DuplicateCheck
}

// DocumentIngestor is the inbound contract for document upload
// orchestration, including duplicate detection.
type DocumentIngestor interface {
	Upload(ctx context.Context, ownerID, title, mimeType string, body io.Reader) (*UploadOutcome, error)
}

// DuplicateResolver applies a user's duplicate decision.
type DuplicateResolver interface {
	Resolve(ctx context.Context, ownerID, title, mimeType string, body io.Reader,
		decision domain.ResolutionDecision, targetDocumentID string) (*domain.Document, error)
}

// DocumentReader is the inbound read model for document state.
type DocumentReader interface {
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	Status(ctx context.Context, id string) (*domain.StatusSnapshot, error)
	List(ctx context.Context, filter domain.DocumentFilter) ([]domain.Document, error)
}

// DocumentProcessor is the inbound contract for asynchronous pipeline
// execution.
type DocumentProcessor interface {
	ProcessByID(ctx context.Context, documentID string) error
}

// LifecycleService owns the externally triggered state transitions.
type LifecycleService interface {
	Retry(ctx context.Context, documentID string) error
	Cancel(ctx context.Context, documentID string) error
}

// AnalysisService exposes manual analysis invocation and reads.
type AnalysisService interface {
	Analyze(ctx context.Context, documentID string, opts domain.AnalysisOptions) (*domain.AnalysisResult, error)
	Current(ctx context.Context, documentID string) (*domain.AnalysisResult, error)
}

// VersionService lists versions and switches the current one.
type VersionService interface {
	List(ctx context.Context, documentID string) ([]domain.DocumentVersion, error)
	Activate(ctx context.Context, documentID, versionID string) error
}

// FolderService surfaces recommendations and explicit moves.
type FolderService interface {
	Recommendation(ctx context.Context, documentID string) (*domain.FolderRecommendation, error)
	AcceptRecommendation(ctx context.Context, documentID string) error
	Move(ctx context.Context, documentID, folder string) error
}
