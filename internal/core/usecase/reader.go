package usecase

import (
	"context"

	"github.com/insolvd/docpipe/internal/core/domain"
	"github.com/insolvd/docpipe/internal/core/ports"
)

// ReadDocumentUseCase is the polled read model. The status snapshot is
// computed purely from the stored record, so any reconnecting client
// recovers full progress information.
type ReadDocumentUseCase struct {
	repo ports.DocumentRepository
}

func NewReadDocumentUseCase(repo ports.DocumentRepository) *ReadDocumentUseCase {
	return &ReadDocumentUseCase{repo: repo}
}

func (uc *ReadDocumentUseCase) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	return uc.repo.GetByID(ctx, id)
}

func (uc *ReadDocumentUseCase) Status(ctx context.Context, id string) (*domain.StatusSnapshot, error) {
	doc, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &domain.StatusSnapshot{
		DocumentID: doc.ID,
		Status:     doc.Status,
		Progress:   domain.DeriveProgress(doc.Status, doc.Metadata),
		Error:      doc.Metadata.String(domain.MetaError),
		LastUpdate: doc.UpdatedAt,
	}, nil
}

func (uc *ReadDocumentUseCase) List(ctx context.Context, filter domain.DocumentFilter) ([]domain.Document, error) {
	return uc.repo.List(ctx, filter)
}
