package usecase

import (
	"context"
	"fmt"

	"github.com/insolvd/docpipe/internal/core/domain"
	"github.com/insolvd/docpipe/internal/core/ports"
)

// VersionUseCase lists document versions and switches the current one.
type VersionUseCase struct {
	repo     ports.DocumentRepository
	versions ports.VersionRepository
}

func NewVersionUseCase(repo ports.DocumentRepository, versions ports.VersionRepository) *VersionUseCase {
	return &VersionUseCase{repo: repo, versions: versions}
}

func (uc *VersionUseCase) List(ctx context.Context, documentID string) ([]domain.DocumentVersion, error) {
	if _, err := uc.repo.GetByID(ctx, documentID); err != nil {
		return nil, err
	}
	return uc.versions.ListByDocument(ctx, documentID)
}

// Activate atomically flips is_current to the chosen version and points
// the document at that version's stored object.
func (uc *VersionUseCase) Activate(ctx context.Context, documentID, versionID string) error {
	doc, err := uc.repo.GetByID(ctx, documentID)
	if err != nil {
		return err
	}
	version, err := uc.versions.GetByID(ctx, versionID)
	if err != nil {
		return err
	}
	if version.DocumentID != doc.ID {
		return domain.WrapError(domain.ErrVersionNotFound, "activate version",
			fmt.Errorf("version %s does not belong to document %s", versionID, documentID))
	}
	if version.IsCurrent {
		return nil
	}

	if err := uc.versions.SwitchCurrent(ctx, doc.ID, version.ID); err != nil {
		return fmt.Errorf("switch current version: %w", err)
	}
	// Content hash is left empty after a switch; the duplicate check
	// falls back to title+size until the document is re-fingerprinted.
	if err := uc.repo.ReplaceContent(ctx, doc.ID, version.StoragePath, "", version.SizeBytes); err != nil {
		return fmt.Errorf("point document at version: %w", err)
	}
	return nil
}
