package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/shehbaz-7/Learnwave/internal/core/domain"
	"github.com/shehbaz-7/Learnwave/internal/core/ports"
	"github.com/shehbaz-7/Learnwave/internal/observability/metrics"
	"github.com/shehbaz-7/Learnwave/internal/status"
)

const serviceName = "ingest"

// IngestOrchestrator runs one submission end to end: split, analyze under a
// bounded pool, commit to the cohort and master partitions, sync artifacts.
//
// Failure semantics: per-unit analysis failures are skipped (all-fail is
// fatal), remote sync failures are logged and survivable, partition commit
// failures are fatal with no rollback of partitions already committed.
type IngestOrchestrator struct {
	partitions ports.PartitionProvider
	splitters  map[domain.SourceType]ports.Splitter
	analyzer   ports.Analyzer
	stager     ports.SourceStager
	remote     ports.RemoteStore
	registry   ports.StatusRegistry
	metrics    *metrics.IngestMetrics
	pool       *ants.Pool
	logger     *slog.Logger
}

func NewIngestOrchestrator(
	partitions ports.PartitionProvider,
	splitters map[domain.SourceType]ports.Splitter,
	analyzer ports.Analyzer,
	stager ports.SourceStager,
	remote ports.RemoteStore,
	registry ports.StatusRegistry,
	ingestMetrics *metrics.IngestMetrics,
	analyzeWorkers int,
	logger *slog.Logger,
) (*IngestOrchestrator, error) {
	if analyzeWorkers <= 0 {
		analyzeWorkers = 10
	}
	pool, err := ants.NewPool(analyzeWorkers)
	if err != nil {
		return nil, fmt.Errorf("create analysis pool: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &IngestOrchestrator{
		partitions: partitions,
		splitters:  splitters,
		analyzer:   analyzer,
		stager:     stager,
		remote:     remote,
		registry:   registry,
		metrics:    ingestMetrics,
		pool:       pool,
		logger:     logger,
	}, nil
}

// Release frees the worker pool. The orchestrator must not be used after.
func (uc *IngestOrchestrator) Release() {
	if uc.pool != nil {
		uc.pool.Release()
	}
}

func (uc *IngestOrchestrator) Process(ctx context.Context, sub domain.Submission) error {
	key := status.DocumentKey(sub.DocumentID)
	started := time.Now()
	uc.metrics.StartDocument()

	err := uc.process(ctx, key, sub)

	uc.metrics.FinishDocument(serviceName, time.Since(started), err)
	if err != nil {
		uc.registry.Set(key, domain.StatusFailed(fmt.Sprintf("Processing failed: %v", err)))
		uc.logger.Error("ingestion failed",
			"document_id", sub.DocumentID, "name", sub.Name, "error", err)
		return err
	}
	uc.registry.Set(key, domain.StatusDone("Processing complete."))
	uc.logger.Info("ingestion complete",
		"document_id", sub.DocumentID, "name", sub.Name, "took", time.Since(started).String())
	return nil
}

func (uc *IngestOrchestrator) process(ctx context.Context, key string, sub domain.Submission) error {
	if sub.SourceType == domain.SourcePaged {
		// The staged original is only needed during this run; the durable
		// copy lives in the partition's remote folder after sync.
		defer func() {
			if err := uc.stager.Remove(context.WithoutCancel(ctx), sub.Source); err != nil {
				uc.logger.Warn("staged source cleanup failed", "path", sub.Source, "error", err)
			}
		}()
	}

	uc.registry.Set(key, domain.StatusProgress("Splitting document..."))
	splitter, ok := uc.splitters[sub.SourceType]
	if !ok {
		return domain.WrapError(domain.ErrInvalidInput, "select splitter",
			fmt.Errorf("no splitter for source type %q", sub.SourceType))
	}
	jobs, err := splitter.Split(ctx, sub)
	if err != nil {
		return fmt.Errorf("split source: %w", err)
	}

	analyzed := uc.analyzeAll(ctx, key, sub, jobs)
	if len(analyzed) == 0 {
		return domain.WrapError(domain.ErrAnalysisFailed, "analyze units",
			fmt.Errorf("all %d units failed analysis", len(jobs)))
	}
	sort.Slice(analyzed, func(i, j int) bool { return analyzed[i].Ordinal < analyzed[j].Ordinal })

	var byteSize int64
	if sub.SourceType == domain.SourcePaged {
		if info, err := os.Stat(sub.Source); err == nil {
			byteSize = info.Size()
		}
	}

	targets := []string{sub.Cohort}
	if master := uc.partitions.Master(); master != sub.Cohort {
		targets = append(targets, master)
	}

	for _, cohort := range targets {
		uc.registry.Set(key, domain.StatusProgress(fmt.Sprintf("Saving to %s library...", cohort)))
		if err := uc.commitPartition(ctx, sub, cohort, analyzed, byteSize); err != nil {
			return fmt.Errorf("commit partition %s: %w", cohort, err)
		}
	}
	return nil
}

// analyzeAll fans unit jobs onto the bounded pool and collects the units
// that analyzed successfully. Segment jobs arrive pre-analyzed and pass
// through without a model call.
func (uc *IngestOrchestrator) analyzeAll(ctx context.Context, key string, sub domain.Submission, jobs []domain.UnitJob) []domain.AnalyzedUnit {
	total := len(jobs)
	results := make([]*domain.AnalyzedUnit, total)

	var wg sync.WaitGroup
	var mu sync.Mutex
	done := 0

	for i, job := range jobs {
		i, job := i, job
		wg.Add(1)
		submitErr := uc.pool.Submit(func() {
			defer wg.Done()
			unit, err := uc.analyzeOne(ctx, sub, job)
			uc.metrics.ObserveUnit(serviceName, string(job.Kind), err)
			if err != nil {
				uc.logger.Error("unit analysis failed, skipping",
					"document_id", sub.DocumentID, "ordinal", job.Ordinal, "error", err)
			} else {
				results[i] = unit
			}

			mu.Lock()
			done++
			uc.registry.Set(key, domain.StatusProgress(
				fmt.Sprintf("Analyzing unit %d/%d...", done, total)))
			mu.Unlock()
		})
		if submitErr != nil {
			wg.Done()
			uc.logger.Error("analysis pool rejected unit",
				"document_id", sub.DocumentID, "ordinal", job.Ordinal, "error", submitErr)
		}
	}
	wg.Wait()

	analyzed := make([]domain.AnalyzedUnit, 0, total)
	for _, r := range results {
		if r != nil {
			analyzed = append(analyzed, *r)
		}
	}
	return analyzed
}

func (uc *IngestOrchestrator) analyzeOne(ctx context.Context, sub domain.Submission, job domain.UnitJob) (*domain.AnalyzedUnit, error) {
	if job.Analysis != "" {
		return &domain.AnalyzedUnit{
			Ordinal:            job.Ordinal,
			StartOffsetSeconds: job.StartOffsetSeconds,
			RawText:            job.Text,
			Analysis:           job.Analysis,
		}, nil
	}

	if job.Kind == domain.KindImage {
		analysis, err := uc.analyzer.AnalyzeExcerpt(ctx, job.ExcerptPath, job.Ordinal, sub.Name)
		if err != nil {
			return nil, fmt.Errorf("visual analysis: %w", err)
		}
		if err := uc.stager.Remove(ctx, job.ExcerptPath); err != nil {
			uc.logger.Warn("excerpt cleanup failed", "path", job.ExcerptPath, "error", err)
		}
		// Image-path units have no trustworthy extracted text; the enhanced
		// section is the searchable text.
		return &domain.AnalyzedUnit{
			Ordinal:  job.Ordinal,
			RawText:  domain.EnhancedText(analysis),
			Analysis: analysis,
		}, nil
	}

	analysis, err := uc.analyzer.AnalyzeText(ctx, job.Text, sub.Name)
	if err != nil {
		return nil, fmt.Errorf("text analysis: %w", err)
	}
	return &domain.AnalyzedUnit{
		Ordinal:  job.Ordinal,
		RawText:  job.Text,
		Analysis: analysis,
	}, nil
}

// commitPartition persists the document and its units into one partition,
// indexes them and syncs the partition's artifacts. The placeholder row
// created at submission time lives in the master partition and is mutated in
// place; every other partition gets a fresh row.
func (uc *IngestOrchestrator) commitPartition(ctx context.Context, sub domain.Submission, cohort string, analyzed []domain.AnalyzedUnit, byteSize int64) error {
	part, err := uc.partitions.Open(ctx, cohort)
	if err != nil {
		return err
	}

	doc, err := uc.upsertDocument(ctx, part, sub, cohort, analyzed, byteSize)
	if err != nil {
		return err
	}

	units := make([]*domain.Unit, len(analyzed))
	now := time.Now().UTC()
	for i, a := range analyzed {
		units[i] = &domain.Unit{
			DocumentID:         doc.ID,
			Ordinal:            a.Ordinal,
			StartOffsetSeconds: a.StartOffsetSeconds,
			RawText:            a.RawText,
			Analysis:           a.Analysis,
			ProcessedAt:        now,
		}
	}
	if err := part.Units().InsertBatch(ctx, units); err != nil {
		return fmt.Errorf("insert units: %w", err)
	}

	if err := part.Index().AddDocument(ctx, doc.ID); err != nil {
		return fmt.Errorf("index document: %w", err)
	}
	uc.metrics.SetIndexSize(serviceName, cohort, part.Index().Size())

	uc.syncPartition(ctx, part, sub)
	return nil
}

func (uc *IngestOrchestrator) upsertDocument(ctx context.Context, part ports.Partition, sub domain.Submission, cohort string, analyzed []domain.AnalyzedUnit, byteSize int64) (*domain.Document, error) {
	if cohort == uc.partitions.Master() {
		doc, err := part.Documents().GetByID(ctx, sub.DocumentID)
		if err != nil {
			return nil, fmt.Errorf("load placeholder: %w", err)
		}
		doc.StoragePath = sub.Source
		doc.UnitCount = len(analyzed)
		doc.ByteSize = byteSize
		doc.Processed = true
		if err := part.Documents().Update(ctx, doc); err != nil {
			return nil, fmt.Errorf("finalize placeholder: %w", err)
		}
		return doc, nil
	}

	doc := &domain.Document{
		UserID:      sub.UserID,
		Name:        sub.Name,
		StoragePath: sub.Source,
		UnitCount:   len(analyzed),
		ByteSize:    byteSize,
		SourceType:  sub.SourceType,
		Processed:   true,
		CreatedAt:   sub.SubmittedAt.UTC(),
	}
	if err := part.Documents().Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("insert document: %w", err)
	}
	return doc, nil
}

// syncPartition uploads the partition's artifacts and, for file-backed
// sources, the original. Failures are logged and counted, never returned:
// the local partition is authoritative and a later sync converges.
func (uc *IngestOrchestrator) syncPartition(ctx context.Context, part ports.Partition, sub domain.Submission) {
	if part.FolderKey() == "" {
		return
	}

	artifacts := part.Artifacts()
	if sub.SourceType == domain.SourcePaged {
		artifacts = append(artifacts, sub.Source)
	}
	for _, path := range artifacts {
		if err := uc.remote.Upload(ctx, path, part.FolderKey()); err != nil {
			uc.metrics.ObserveSyncFailure()
			uc.logger.Error("remote sync failed",
				"partition", part.Name(), "path", path, "error", err)
		}
	}
}
