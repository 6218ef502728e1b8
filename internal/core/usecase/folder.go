package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/insolvd/docpipe/internal/core/domain"
	"github.com/insolvd/docpipe/internal/core/ports"
)

// FolderUseCase surfaces folder recommendations and performs explicit
// moves. A move is a parent-reference reassignment, reversible by
// moving again; recommendations never move anything on their own.
type FolderUseCase struct {
	repo ports.DocumentRepository
	recs ports.RecommendationRepository
}

func NewFolderUseCase(repo ports.DocumentRepository, recs ports.RecommendationRepository) *FolderUseCase {
	return &FolderUseCase{repo: repo, recs: recs}
}

func (uc *FolderUseCase) Recommendation(ctx context.Context, documentID string) (*domain.FolderRecommendation, error) {
	if _, err := uc.repo.GetByID(ctx, documentID); err != nil {
		return nil, err
	}
	return uc.recs.GetByDocument(ctx, documentID)
}

func (uc *FolderUseCase) AcceptRecommendation(ctx context.Context, documentID string) error {
	rec, err := uc.recs.GetByDocument(ctx, documentID)
	if err != nil {
		return err
	}
	if err := uc.repo.SetFolder(ctx, documentID, rec.Folder); err != nil {
		return fmt.Errorf("move document to recommended folder: %w", err)
	}
	if err := uc.recs.MarkAccepted(ctx, documentID); err != nil {
		return fmt.Errorf("mark recommendation accepted: %w", err)
	}
	return nil
}

func (uc *FolderUseCase) Move(ctx context.Context, documentID, folder string) error {
	if strings.TrimSpace(folder) == "" {
		return domain.WrapError(domain.ErrInvalidInput, "move document", fmt.Errorf("folder is required"))
	}
	if _, err := uc.repo.GetByID(ctx, documentID); err != nil {
		return err
	}
	return uc.repo.SetFolder(ctx, documentID, folder)
}
