package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/insolvd/docpipe/internal/core/domain"
	"github.com/insolvd/docpipe/internal/core/ports"
)

// SweepStaleUseCase is the server-side safety net behind the client
// stuck-job heuristic: documents that sat in a non-terminal state past
// the deadline are failed with stage_timeout so they never present as
// processing forever.
type SweepStaleUseCase struct {
	repo       ports.DocumentRepository
	staleAfter time.Duration
}

func NewSweepStaleUseCase(repo ports.DocumentRepository, staleAfter time.Duration) *SweepStaleUseCase {
	if staleAfter <= 0 {
		staleAfter = 15 * time.Minute
	}
	return &SweepStaleUseCase{repo: repo, staleAfter: staleAfter}
}

func (uc *SweepStaleUseCase) Run(ctx context.Context) (int, error) {
	cutoff := time.Now().UTC().Add(-uc.staleAfter)
	stale, err := uc.repo.ListStale(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("list stale documents: %w", err)
	}

	swept := 0
	for _, doc := range stale {
		err := uc.repo.UpdateStatus(ctx, doc.ID, domain.StatusFailed, domain.Metadata{
			domain.MetaError:       fmt.Sprintf("stage %s exceeded %s deadline", doc.Metadata.String(domain.MetaStage), uc.staleAfter),
			domain.MetaFailureKind: string(domain.FailureStageTimeout),
			domain.MetaFailedAt:    nowRFC3339(),
		})
		if err != nil {
			slog.Warn("sweep_mark_failed_error", "document_id", doc.ID, "error", err)
			continue
		}
		swept++
	}
	if swept > 0 {
		slog.Info("swept_stale_documents", "count", swept, "stale_after", uc.staleAfter.String())
	}
	return swept, nil
}
