package ports

import (
	"context"
	"io"

	"github.com/shehbaz-7/Learnwave/internal/core/domain"
)

// ContentSubmitter is the inbound contract for queueing new sources.
type ContentSubmitter interface {
	SubmitFile(ctx context.Context, name, cohort string, userID int64, body io.Reader) (*domain.Submission, error)
	SubmitVideo(ctx context.Context, name, cohort string, userID int64, videoURL string) (*domain.Submission, error)
}

// IngestionProcessor runs one submission through splitting, analysis,
// multi-partition commit, indexing and remote sync.
type IngestionProcessor interface {
	Process(ctx context.Context, sub domain.Submission) error
}

// SearchService answers natural-language queries against the master index.
type SearchService interface {
	Search(ctx context.Context, query string, topK int, filter domain.SearchFilter) ([]domain.SearchResult, error)
	Answer(ctx context.Context, question string, filter domain.SearchFilter) (*domain.Answer, error)
}

// DocumentRemover deletes a document and its index entries everywhere it
// exists.
type DocumentRemover interface {
	Delete(ctx context.Context, documentID int64) error
}

// IndexMaintainer covers the disaster-recovery surface of the index.
type IndexMaintainer interface {
	// Reload re-reads the master index from disk, rebuilding it from the
	// record store when the loaded index is empty but analyzed units exist.
	Reload(ctx context.Context) error
	RebuildPartition(ctx context.Context, cohort string) error
}
