package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/insolvd/docpipe/internal/config"
	"github.com/insolvd/docpipe/internal/core/domain"
	"github.com/insolvd/docpipe/internal/core/ports"
	"github.com/insolvd/docpipe/internal/core/usecase"
	"github.com/insolvd/docpipe/internal/infrastructure/extract"
	"github.com/insolvd/docpipe/internal/infrastructure/fingerprint"
	"github.com/insolvd/docpipe/internal/infrastructure/oracle"
	"github.com/insolvd/docpipe/internal/infrastructure/queue/nats"
	"github.com/insolvd/docpipe/internal/infrastructure/repository/postgres"
	"github.com/insolvd/docpipe/internal/infrastructure/repository/resilient"
	"github.com/insolvd/docpipe/internal/infrastructure/resilience"
	"github.com/insolvd/docpipe/internal/infrastructure/rules"
	"github.com/insolvd/docpipe/internal/infrastructure/storage/localfs"
)

type App struct {
	Config config.Config

	Queue *nats.Queue

	Documents       ports.DocumentRepository
	Tasks           ports.TaskRepository
	Recommendations ports.RecommendationRepository

	Ingest    ports.DocumentIngestor
	Resolver  ports.DuplicateResolver
	Reader    ports.DocumentReader
	// Processor is the concrete orchestrator so the worker can attach
	// its metrics after bootstrap.
	Processor *usecase.ProcessDocumentUseCase
	Lifecycle ports.LifecycleService
	Analysis  ports.AnalysisService
	Versions  ports.VersionService
	Folders   ports.FolderService
	Sweeper   *usecase.SweepStaleUseCase

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig())

	documents := resilient.NewDocumentRepository(postgres.NewDocumentRepository(db), executor)
	versions := postgres.NewVersionRepository(db)
	analyses := resilient.NewAnalysisRepository(postgres.NewAnalysisRepository(db), executor)
	tasks := postgres.NewTaskRepository(db)
	recommendations := postgres.NewRecommendationRepository(db)

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	oracleClient := oracle.New(cfg.OracleURL, oracle.Options{
		APIKey:             cfg.OracleAPIKey,
		RequestTimeout:     cfg.OracleTimeout,
		ResilienceExecutor: executor,
	})

	classifier, err := loadClassifier(cfg.FolderRulesPath)
	if err != nil {
		queue.Close()
		_ = db.Close()
		return nil, err
	}

	prints := fingerprint.New()
	extractor := extract.New(storage)

	generator := usecase.NewGenerateUseCase(tasks, recommendations, classifier, domain.Severity(cfg.RiskTaskMinSeverity))

	app := &App{
		Config: cfg,
		Queue:  queue,

		Documents:       documents,
		Tasks:           tasks,
		Recommendations: recommendations,

		Ingest:    usecase.NewIngestDocumentUseCase(documents, storage, queue, prints),
		Resolver:  usecase.NewResolveDuplicateUseCase(documents, versions, storage, queue, prints),
		Reader:    usecase.NewReadDocumentUseCase(documents),
		Processor: usecase.NewProcessDocumentUseCase(documents, extractor, oracleClient, analyses, generator, cfg.OracleTimeout),
		Lifecycle: usecase.NewLifecycleUseCase(documents, queue),
		Analysis:  usecase.NewAnalyzeDocumentUseCase(documents, analyses, queue),
		Versions:  usecase.NewVersionUseCase(documents, versions),
		Folders:   usecase.NewFolderUseCase(documents, recommendations),
		Sweeper:   usecase.NewSweepStaleUseCase(documents, cfg.SweepStaleAfter),

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}
	return app, nil
}

func loadClassifier(path string) (*rules.Classifier, error) {
	if path == "" {
		slog.Info("folder_rules_default")
		return rules.Default(), nil
	}
	classifier, err := rules.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load folder rules: %w", err)
	}
	slog.Info("folder_rules_loaded", "path", path)
	return classifier, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
