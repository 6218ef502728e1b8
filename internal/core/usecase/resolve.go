package usecase

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/insolvd/docpipe/internal/core/domain"
	"github.com/insolvd/docpipe/internal/core/ports"
)

type ResolveDuplicateUseCase struct {
	repo        ports.DocumentRepository
	versions    ports.VersionRepository
	storage     ports.ObjectStorage
	queue       ports.MessageQueue
	fingerprint ports.Fingerprinter
}

func NewResolveDuplicateUseCase(
	repo ports.DocumentRepository,
	versions ports.VersionRepository,
	storage ports.ObjectStorage,
	queue ports.MessageQueue,
	fingerprint ports.Fingerprinter,
) *ResolveDuplicateUseCase {
	return &ResolveDuplicateUseCase{
		repo:        repo,
		versions:    versions,
		storage:     storage,
		queue:       queue,
		fingerprint: fingerprint,
	}
}

// Resolve applies a user's decision for a duplicate upload.
//
//	replace: keep the document id, swap the stored bytes, re-enter the
//	         pipeline from pending.
//	version: store the bytes as a new current version of the existing
//	         document and re-enter the pipeline.
//	rename:  mutate the incoming title to avoid the collision and
//	         ingest as a new document.
//	cancel:  no side effects.
func (uc *ResolveDuplicateUseCase) Resolve(
	ctx context.Context,
	ownerID, title, mimeType string,
	body io.Reader,
	decision domain.ResolutionDecision,
	targetDocumentID string,
) (*domain.Document, error) {
	if !decision.IsValid() {
		return nil, domain.WrapError(domain.ErrInvalidInput, "resolve duplicate",
			fmt.Errorf("unknown decision %q", decision))
	}
	if decision == domain.ResolutionCancel {
		return nil, nil
	}

	content, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("read upload body: %w", err)
	}
	if len(content) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "resolve duplicate", fmt.Errorf("empty file"))
	}

	switch decision {
	case domain.ResolutionRename:
		return uc.resolveRename(ctx, ownerID, title, mimeType, content)
	case domain.ResolutionReplace:
		return uc.resolveReplace(ctx, ownerID, targetDocumentID, title, content)
	case domain.ResolutionVersion:
		return uc.resolveVersion(ctx, ownerID, targetDocumentID, title, content)
	default:
		return nil, domain.WrapError(domain.ErrInvalidInput, "resolve duplicate",
			fmt.Errorf("decision %q not applicable", decision))
	}
}

func (uc *ResolveDuplicateUseCase) resolveRename(
	ctx context.Context,
	ownerID, title, mimeType string,
	content []byte,
) (*domain.Document, error) {
	renamed := renameForCollision(title)
	fp := uc.fingerprint.Compute(renamed, mimeType, content)

	id := uuid.NewString()
	storageKey := fmt.Sprintf("%s_%s", id, sanitizeFilename(renamed))
	now := time.Now().UTC()

	if err := uc.storage.Save(ctx, storageKey, bytes.NewReader(content)); err != nil {
		return nil, domain.NewStageFailure(domain.FailureUpload, fmt.Errorf("save to object storage: %w", err))
	}

	doc := &domain.Document{
		ID:          id,
		OwnerID:     ownerID,
		Title:       renamed,
		MimeType:    mimeType,
		SizeBytes:   int64(len(content)),
		StoragePath: storageKey,
		ContentHash: fp.ContentHash,
		Status:      domain.StatusPending,
		Metadata:    domain.Metadata{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := uc.repo.Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("create renamed document: %w", err)
	}
	if err := uc.queue.PublishProcessDocument(ctx, doc.ID); err != nil {
		return nil, fmt.Errorf("publish process event: %w", err)
	}
	return doc, nil
}

func (uc *ResolveDuplicateUseCase) resolveReplace(
	ctx context.Context,
	ownerID, targetID, title string,
	content []byte,
) (*domain.Document, error) {
	target, err := uc.loadTarget(ctx, ownerID, targetID)
	if err != nil {
		return nil, err
	}

	fp := uc.fingerprint.Compute(title, target.MimeType, content)
	storageKey := fmt.Sprintf("%s_%s", target.ID, sanitizeFilename(title))
	if storageKey == target.StoragePath {
		storageKey = fmt.Sprintf("%s_r%d_%s", target.ID, time.Now().UTC().Unix(), sanitizeFilename(title))
	}

	if err := uc.storage.Save(ctx, storageKey, bytes.NewReader(content)); err != nil {
		return nil, domain.NewStageFailure(domain.FailureUpload, fmt.Errorf("save replacement: %w", err))
	}
	if err := uc.storage.Delete(ctx, target.StoragePath); err != nil {
		// The superseded object is orphaned, not load-bearing.
		slog.Warn("delete_replaced_object_failed", "document_id", target.ID, "storage_path", target.StoragePath, "error", err)
	}

	if err := uc.repo.ReplaceContent(ctx, target.ID, storageKey, fp.ContentHash, int64(len(content))); err != nil {
		return nil, fmt.Errorf("replace document content: %w", err)
	}
	if err := uc.repo.ResetForRetry(ctx, target.ID, domain.Metadata{"replaced_at": time.Now().UTC().Format(time.RFC3339)}); err != nil {
		return nil, fmt.Errorf("reset replaced document: %w", err)
	}
	if err := uc.queue.PublishProcessDocument(ctx, target.ID); err != nil {
		return nil, fmt.Errorf("publish process event: %w", err)
	}
	return uc.repo.GetByID(ctx, target.ID)
}

func (uc *ResolveDuplicateUseCase) resolveVersion(
	ctx context.Context,
	ownerID, targetID, title string,
	content []byte,
) (*domain.Document, error) {
	target, err := uc.loadTarget(ctx, ownerID, targetID)
	if err != nil {
		return nil, err
	}

	if err := uc.ensureInitialVersion(ctx, target); err != nil {
		return nil, err
	}

	number, err := uc.versions.NextVersionNumber(ctx, target.ID)
	if err != nil {
		return nil, fmt.Errorf("next version number: %w", err)
	}

	storageKey := fmt.Sprintf("%s_v%d_%s", target.ID, number, sanitizeFilename(title))
	if err := uc.storage.Save(ctx, storageKey, bytes.NewReader(content)); err != nil {
		return nil, domain.NewStageFailure(domain.FailureUpload, fmt.Errorf("save version: %w", err))
	}

	version := &domain.DocumentVersion{
		ID:            uuid.NewString(),
		DocumentID:    target.ID,
		VersionNumber: number,
		StoragePath:   storageKey,
		SizeBytes:     int64(len(content)),
		ChangeNotes:   "uploaded as new version after duplicate prompt",
		CreatedAt:     time.Now().UTC(),
	}
	if err := uc.versions.Create(ctx, version); err != nil {
		return nil, fmt.Errorf("create version: %w", err)
	}
	if err := uc.versions.SwitchCurrent(ctx, target.ID, version.ID); err != nil {
		return nil, fmt.Errorf("switch current version: %w", err)
	}

	fp := uc.fingerprint.Compute(title, target.MimeType, content)
	if err := uc.repo.ReplaceContent(ctx, target.ID, storageKey, fp.ContentHash, int64(len(content))); err != nil {
		return nil, fmt.Errorf("point document at version: %w", err)
	}
	if err := uc.repo.ResetForRetry(ctx, target.ID, domain.Metadata{"versioned_at": version.CreatedAt.Format(time.RFC3339)}); err != nil {
		return nil, fmt.Errorf("reset versioned document: %w", err)
	}
	if err := uc.queue.PublishProcessDocument(ctx, target.ID); err != nil {
		return nil, fmt.Errorf("publish process event: %w", err)
	}
	return uc.repo.GetByID(ctx, target.ID)
}

// ensureInitialVersion backfills a version row for documents created
// before versioning applied to them, so the new upload becomes v2 of an
// existing v1 rather than the only version.
func (uc *ResolveDuplicateUseCase) ensureInitialVersion(ctx context.Context, doc *domain.Document) error {
	existing, err := uc.versions.ListByDocument(ctx, doc.ID)
	if err != nil {
		return fmt.Errorf("list versions: %w", err)
	}
	if len(existing) > 0 {
		return nil
	}
	initial := &domain.DocumentVersion{
		ID:            uuid.NewString(),
		DocumentID:    doc.ID,
		VersionNumber: 1,
		StoragePath:   doc.StoragePath,
		SizeBytes:     doc.SizeBytes,
		IsCurrent:     true,
		ChangeNotes:   "original upload",
		CreatedAt:     doc.CreatedAt,
	}
	if err := uc.versions.Create(ctx, initial); err != nil {
		return fmt.Errorf("backfill initial version: %w", err)
	}
	return nil
}

func (uc *ResolveDuplicateUseCase) loadTarget(ctx context.Context, ownerID, targetID string) (*domain.Document, error) {
	if strings.TrimSpace(targetID) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "resolve duplicate",
			fmt.Errorf("target document id is required"))
	}
	target, err := uc.repo.GetByID(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if target.OwnerID != ownerID {
		return nil, domain.WrapError(domain.ErrDocumentNotFound, "resolve duplicate",
			fmt.Errorf("document %s not owned by %s", targetID, ownerID))
	}
	return target, nil
}

func renameForCollision(title string) string {
	ext := filepath.Ext(title)
	stem := strings.TrimSuffix(title, ext)
	return fmt.Sprintf("%s (copy %s)%s", stem, time.Now().UTC().Format("20060102-150405"), ext)
}
