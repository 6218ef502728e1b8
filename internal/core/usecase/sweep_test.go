package usecase

import (
	"context"
	"strings"
	"testing"

	"github.com/insolvd/docpipe/internal/core/domain"
)

func TestSweepFailsStaleDocumentsWithStageTimeout(t *testing.T) {
	stuck := &domain.Document{
		ID:     "doc-1",
		Status: domain.StatusProcessingFinancial,
		Metadata: domain.Metadata{
			domain.MetaStage: "financial_analysis",
		},
	}
	repo := newRepoFake(stuck)
	repo.stale = []domain.Document{*stuck}
	uc := NewSweepStaleUseCase(repo, 0)

	swept, err := uc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if swept != 1 {
		t.Fatalf("expected 1 swept, got %d", swept)
	}

	doc := repo.docs["doc-1"]
	if doc.Status != domain.StatusFailed {
		t.Fatalf("expected failed, got %s", doc.Status)
	}
	if kind := doc.Metadata.String(domain.MetaFailureKind); kind != string(domain.FailureStageTimeout) {
		t.Fatalf("expected stage_timeout kind, got %q", kind)
	}
	if msg := doc.Metadata.String(domain.MetaError); !strings.Contains(msg, "financial_analysis") {
		t.Fatalf("expected error to name the stuck stage, got %q", msg)
	}
}

func TestSweepNothingStale(t *testing.T) {
	repo := newRepoFake()
	uc := NewSweepStaleUseCase(repo, 0)

	swept, err := uc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if swept != 0 {
		t.Fatalf("expected 0 swept, got %d", swept)
	}
	if len(repo.statusCalls) != 0 {
		t.Fatalf("expected no status writes, got %v", repo.statusCalls)
	}
}

func TestSweepMarksEveryStaleDocument(t *testing.T) {
	a := &domain.Document{ID: "doc-1", Status: domain.StatusProcessing, Metadata: domain.Metadata{}}
	b := &domain.Document{ID: "doc-2", Status: domain.StatusProcessing, Metadata: domain.Metadata{}}
	repo := newRepoFake(a, b)
	repo.stale = []domain.Document{*a, *b}
	uc := NewSweepStaleUseCase(repo, 0)

	swept, err := uc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if swept != 2 {
		t.Fatalf("expected both documents swept, got %d", swept)
	}
}
