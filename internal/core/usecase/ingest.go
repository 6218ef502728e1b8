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

type IngestDocumentUseCase struct {
	repo        ports.DocumentRepository
	storage     ports.ObjectStorage
	queue       ports.MessageQueue
	fingerprint ports.Fingerprinter
}

func NewIngestDocumentUseCase(
	repo ports.DocumentRepository,
	storage ports.ObjectStorage,
	queue ports.MessageQueue,
	fingerprint ports.Fingerprinter,
) *IngestDocumentUseCase {
	return &IngestDocumentUseCase{
		repo:        repo,
		storage:     storage,
		queue:       queue,
		fingerprint: fingerprint,
	}
}

// Upload fingerprints the incoming file, checks for duplicates owned by
// the same user, and either creates a pending document and enqueues it
// for processing, or returns the candidate set for a user decision.
// A failing duplicate lookup fails open: a missed duplicate is
// recoverable, a blocked upload is not.
func (uc *IngestDocumentUseCase) Upload(
	ctx context.Context,
	ownerID, title, mimeType string,
	body io.Reader,
) (*ports.UploadOutcome, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload", fmt.Errorf("owner id is required"))
	}

	content, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("read upload body: %w", err)
	}
	if len(content) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload", fmt.Errorf("empty file"))
	}

	fp := uc.fingerprint.Compute(title, mimeType, content)

	var checkFailed bool
	candidates, err := uc.repo.FindDuplicates(ctx, ownerID, fp)
	if err != nil {
		slog.Warn("duplicate_check_failed_open", "owner_id", ownerID, "title", title, "error", err)
		candidates = nil
		checkFailed = true
	}
	if len(candidates) > 0 {
		return &ports.UploadOutcome{
			Duplicate: &domain.DuplicateCheck{Candidates: candidates},
		}, nil
	}

	doc, err := uc.createDocument(ctx, ownerID, title, mimeType, content, fp)
	if err != nil {
		return nil, err
	}
	outcome := &ports.UploadOutcome{Document: doc}
	if checkFailed {
		outcome.Duplicate = &domain.DuplicateCheck{
			Decision:    domain.ResolutionProceed,
			CheckFailed: true,
		}
	}
	return outcome, nil
}

func (uc *IngestDocumentUseCase) createDocument(
	ctx context.Context,
	ownerID, title, mimeType string,
	content []byte,
	fp domain.Fingerprint,
) (*domain.Document, error) {
	id := uuid.NewString()
	storageKey := fmt.Sprintf("%s_%s", id, sanitizeFilename(title))
	now := time.Now().UTC()

	if err := uc.storage.Save(ctx, storageKey, bytes.NewReader(content)); err != nil {
		return nil, domain.NewStageFailure(domain.FailureUpload, fmt.Errorf("save to object storage: %w", err))
	}

	doc := &domain.Document{
		ID:          id,
		OwnerID:     ownerID,
		Title:       title,
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
		return nil, fmt.Errorf("create document record: %w", err)
	}

	if err := uc.queue.PublishProcessDocument(ctx, doc.ID); err != nil {
		return nil, fmt.Errorf("publish process event: %w", err)
	}

	return doc, nil
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" || base == "." {
		return "document.bin"
	}
	return base
}
