package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/shehbaz-7/Learnwave/internal/core/domain"
	"github.com/shehbaz-7/Learnwave/internal/core/ports"
	"github.com/shehbaz-7/Learnwave/internal/status"
)

// SubmitContent accepts a new source, creates its placeholder row in the
// master partition and queues the submission for the ingestion worker. The
// request path returns as soon as the publish succeeds.
type SubmitContent struct {
	partitions ports.PartitionProvider
	stager     ports.SourceStager
	queue      ports.SubmissionQueue
	registry   ports.StatusRegistry
	logger     *slog.Logger
}

func NewSubmitContent(
	partitions ports.PartitionProvider,
	stager ports.SourceStager,
	queue ports.SubmissionQueue,
	registry ports.StatusRegistry,
	logger *slog.Logger,
) *SubmitContent {
	if logger == nil {
		logger = slog.Default()
	}
	return &SubmitContent{
		partitions: partitions,
		stager:     stager,
		queue:      queue,
		registry:   registry,
		logger:     logger,
	}
}

func (uc *SubmitContent) SubmitFile(ctx context.Context, name, cohort string, userID int64, body io.Reader) (*domain.Submission, error) {
	if strings.TrimSpace(name) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "submit file",
			fmt.Errorf("empty document name"))
	}

	stagedPath, err := uc.stager.Stage(ctx, uuid.NewString()+"_"+name, body)
	if err != nil {
		return nil, fmt.Errorf("stage upload: %w", err)
	}

	sub, err := uc.enqueue(ctx, name, cohort, userID, stagedPath, domain.SourcePaged)
	if err != nil {
		if removeErr := uc.stager.Remove(ctx, stagedPath); removeErr != nil {
			uc.logger.Warn("staged upload cleanup failed", "path", stagedPath, "error", removeErr)
		}
		return nil, err
	}
	return sub, nil
}

func (uc *SubmitContent) SubmitVideo(ctx context.Context, name, cohort string, userID int64, videoURL string) (*domain.Submission, error) {
	if strings.TrimSpace(videoURL) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "submit video",
			fmt.Errorf("empty video url"))
	}
	return uc.enqueue(ctx, name, cohort, userID, videoURL, domain.SourceSegmented)
}

func (uc *SubmitContent) enqueue(ctx context.Context, name, cohort string, userID int64, source string, sourceType domain.SourceType) (*domain.Submission, error) {
	master, err := uc.partitions.Open(ctx, uc.partitions.Master())
	if err != nil {
		return nil, fmt.Errorf("open master partition: %w", err)
	}

	placeholder := &domain.Document{
		UserID:     userID,
		Name:       name,
		SourceType: sourceType,
		CreatedAt:  time.Now().UTC(),
	}
	if err := master.Documents().Create(ctx, placeholder); err != nil {
		return nil, fmt.Errorf("create placeholder: %w", err)
	}

	sub := domain.Submission{
		DocumentID:  placeholder.ID,
		UserID:      userID,
		Name:        name,
		Source:      source,
		SourceType:  sourceType,
		Cohort:      cohort,
		SubmittedAt: time.Now().UTC(),
	}
	if err := uc.queue.PublishSubmission(ctx, sub); err != nil {
		return nil, fmt.Errorf("publish submission: %w", err)
	}

	uc.registry.Set(status.DocumentKey(sub.DocumentID), domain.StatusProgress("Queued for processing..."))
	uc.logger.Info("submission queued",
		"document_id", sub.DocumentID, "name", name, "cohort", cohort, "type", sourceType)
	return &sub, nil
}
