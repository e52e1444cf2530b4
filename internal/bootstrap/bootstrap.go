// Package bootstrap wires configuration, infrastructure and usecases into a
// runnable application.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shehbaz-7/Learnwave/internal/config"
	"github.com/shehbaz-7/Learnwave/internal/core/domain"
	"github.com/shehbaz-7/Learnwave/internal/core/ports"
	"github.com/shehbaz-7/Learnwave/internal/core/usecase"
	"github.com/shehbaz-7/Learnwave/internal/infrastructure/llm/gemini"
	"github.com/shehbaz-7/Learnwave/internal/infrastructure/partition"
	"github.com/shehbaz-7/Learnwave/internal/infrastructure/queue/nats"
	"github.com/shehbaz-7/Learnwave/internal/infrastructure/remote/drive"
	"github.com/shehbaz-7/Learnwave/internal/infrastructure/resilience"
	"github.com/shehbaz-7/Learnwave/internal/infrastructure/splitter/pdfpage"
	"github.com/shehbaz-7/Learnwave/internal/infrastructure/splitter/transcript"
	"github.com/shehbaz-7/Learnwave/internal/infrastructure/storage/localfs"
	"github.com/shehbaz-7/Learnwave/internal/observability/logging"
	"github.com/shehbaz-7/Learnwave/internal/observability/metrics"
	"github.com/shehbaz-7/Learnwave/internal/status"
)

type App struct {
	Config config.Config
	Logger *slog.Logger

	Queue      *nats.Queue
	Partitions *partition.Provider
	Registry   ports.StatusRegistry
	Metrics    *metrics.IngestMetrics

	SubmitUC   ports.ContentSubmitter
	IngestUC   *usecase.IngestOrchestrator
	QueryUC    ports.SearchService
	DeleteUC   ports.DocumentRemover
	MaintainUC ports.IndexMaintainer
	ModuleUC   *usecase.ModuleGenerator
	StudyUC    *usecase.StudySet
	PullUC     *usecase.PullSync

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	logger := logging.NewJSONLogger("learnwave", cfg.LogLevel)
	slog.SetDefault(logger)

	executor := resilience.NewExecutor(resilience.DefaultConfig(), logger)

	geminiClient := gemini.New(cfg.GeminiBaseURL, cfg.GeminiAPIKey,
		cfg.GeminiGenModel, cfg.GeminiEmbedModel, cfg.GeminiRateLimit, executor)
	analyzer := gemini.NewAnalyzer(geminiClient)
	embedder := gemini.NewEmbedder(geminiClient)
	refiner := gemini.NewRefiner(geminiClient)
	generator := gemini.NewGenerator(geminiClient)

	partitions := partition.NewProvider(cfg.DataDir, cfg.MasterCohort, cfg.Cohorts,
		cfg.EmbedDim, embedder, logger)

	stager, err := localfs.New(cfg.DataDir + "/staging")
	if err != nil {
		return nil, fmt.Errorf("init source stager: %w", err)
	}

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
		Logger:             logger,
	})
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	var remote ports.RemoteStore
	if cfg.DriveCredentialsFile != "" {
		remote, err = drive.New(ctx, cfg.DriveCredentialsFile, logger)
		if err != nil {
			queue.Close()
			return nil, fmt.Errorf("init remote store: %w", err)
		}
	} else {
		logger.Warn("no drive credentials configured, remote sync disabled")
		remote = noopRemote{}
	}

	registry := status.NewRegistry()
	ingestMetrics := metrics.NewIngestMetrics("worker")

	splitters := map[domain.SourceType]ports.Splitter{
		domain.SourcePaged:     pdfpage.NewSplitter(stager, cfg.MinPageTextChars, logger),
		domain.SourceSegmented: transcript.NewSplitter(analyzer, logger),
	}

	ingestUC, err := usecase.NewIngestOrchestrator(partitions, splitters, analyzer,
		stager, remote, registry, ingestMetrics, cfg.AnalyzeWorkers, logger)
	if err != nil {
		queue.Close()
		return nil, fmt.Errorf("init ingest orchestrator: %w", err)
	}

	moduleUC, err := usecase.NewModuleGenerator(partitions, generator, registry,
		cfg.DataDir, cfg.ModuleWorkers, logger)
	if err != nil {
		ingestUC.Release()
		queue.Close()
		return nil, fmt.Errorf("init module generator: %w", err)
	}

	return &App{
		Config:     cfg,
		Logger:     logger,
		Queue:      queue,
		Partitions: partitions,
		Registry:   registry,
		Metrics:    ingestMetrics,

		SubmitUC:   usecase.NewSubmitContent(partitions, stager, queue, registry, logger),
		IngestUC:   ingestUC,
		QueryUC:    usecase.NewQuery(partitions, refiner, generator, logger),
		DeleteUC:   usecase.NewDeleteDocument(partitions, remote, logger),
		MaintainUC: usecase.NewMaintainIndex(partitions, logger),
		ModuleUC:   moduleUC,
		StudyUC:    usecase.NewStudySet(partitions, generator, logger),
		PullUC:     usecase.NewPullSync(cfg.Cohorts, remote, cfg.DataDir, logger),

		closeFn: func() {
			moduleUC.Release()
			ingestUC.Release()
			queue.Close()
			if err := partitions.CloseAll(); err != nil {
				logger.Error("partition shutdown", "error", err)
			}
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

// noopRemote stands in when no remote store is configured. List returns
// nothing and mutations succeed silently, which matches the graceful
// degradation the sync path already promises.
type noopRemote struct{}

func (noopRemote) List(context.Context, string) ([]domain.RemoteFile, error) { return nil, nil }
func (noopRemote) Upload(context.Context, string, string) error              { return nil }
func (noopRemote) Download(context.Context, string, string) error            { return nil }
func (noopRemote) Delete(context.Context, string, string) error              { return nil }
