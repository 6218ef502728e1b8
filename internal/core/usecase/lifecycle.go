package usecase

import (
	"context"
	"fmt"

	"github.com/insolvd/docpipe/internal/core/domain"
	"github.com/insolvd/docpipe/internal/core/ports"
)

// LifecycleUseCase owns the externally triggered transitions: the
// failed -> pending retry and user cancellation.
type LifecycleUseCase struct {
	repo  ports.DocumentRepository
	queue ports.MessageQueue
}

func NewLifecycleUseCase(repo ports.DocumentRepository, queue ports.MessageQueue) *LifecycleUseCase {
	return &LifecycleUseCase{repo: repo, queue: queue}
}

// Retry moves a failed document back to pending, clearing only the
// error keys from metadata, and re-enters the pipeline from the top.
func (uc *LifecycleUseCase) Retry(ctx context.Context, documentID string) error {
	doc, err := uc.repo.GetByID(ctx, documentID)
	if err != nil {
		return err
	}
	if doc.Status != domain.StatusFailed {
		return domain.WrapError(domain.ErrConflict, "retry",
			fmt.Errorf("document %s is %s, only failed documents can be retried", doc.ID, doc.Status))
	}

	if err := uc.repo.ResetForRetry(ctx, doc.ID, domain.Metadata{
		domain.MetaRetriedAt: nowRFC3339(),
	}); err != nil {
		return fmt.Errorf("reset for retry: %w", err)
	}
	if err := uc.queue.PublishProcessDocument(ctx, doc.ID); err != nil {
		return fmt.Errorf("publish process event: %w", err)
	}
	return nil
}

// Cancel records a user abort as failed/user_cancelled. The record is
// kept, not deleted, to preserve audit history.
func (uc *LifecycleUseCase) Cancel(ctx context.Context, documentID string) error {
	doc, err := uc.repo.GetByID(ctx, documentID)
	if err != nil {
		return err
	}
	if doc.Status.IsTerminal() {
		return domain.WrapError(domain.ErrConflict, "cancel",
			fmt.Errorf("document %s already %s", doc.ID, doc.Status))
	}

	if err := uc.repo.UpdateStatus(ctx, doc.ID, domain.StatusFailed, domain.Metadata{
		domain.MetaError:       "cancelled by user",
		domain.MetaFailureKind: string(domain.FailureUserCancelled),
		domain.MetaFailedAt:    nowRFC3339(),
	}); err != nil {
		return fmt.Errorf("mark cancelled: %w", err)
	}
	return nil
}
