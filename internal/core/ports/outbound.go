package ports

import (
	"context"
	"io"

	"github.com/shehbaz-7/Learnwave/internal/core/domain"
)

// DocumentRepository persists document rows within one partition.
type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.Document) error
	Update(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, id int64) (*domain.Document, error)
	GetByName(ctx context.Context, name string) (*domain.Document, error)
	Delete(ctx context.Context, id int64) error
}

// UnitRepository persists and reads unit rows within one partition.
type UnitRepository interface {
	InsertBatch(ctx context.Context, units []*domain.Unit) error
	ListByDocument(ctx context.Context, documentID int64) ([]domain.Unit, error)
	IDsByDocument(ctx context.Context, documentID int64) ([]int64, error)
	// ListAnalyzed returns every unit whose analysis blob is non-empty,
	// joined with its document's name and source type.
	ListAnalyzed(ctx context.Context) ([]domain.IndexableUnit, error)
	ListAnalyzedByDocument(ctx context.Context, documentID int64) ([]domain.IndexableUnit, error)
}

// IndexManager owns one partition's ANN index and metadata map.
type IndexManager interface {
	Load(ctx context.Context) error
	RebuildFull(ctx context.Context) error
	AddDocument(ctx context.Context, documentID int64) error
	RemoveDocument(ctx context.Context, documentID int64) error
	Search(ctx context.Context, query string, topK int, filter domain.SearchFilter) ([]domain.SearchResult, error)
	Size() int
}

// Partition bundles one cohort's record store, index and local artifacts.
type Partition interface {
	Name() string
	Dir() string
	FolderKey() string
	Documents() DocumentRepository
	Units() UnitRepository
	Index() IndexManager
	// Artifacts lists the partition files the remote sync uploads.
	Artifacts() []string
	Close() error
}

// PartitionProvider opens partitions by cohort name.
type PartitionProvider interface {
	Open(ctx context.Context, cohort string) (Partition, error)
	Master() string
	Cohorts() []string
}

// Splitter turns one submitted source into ordered unit jobs.
type Splitter interface {
	Split(ctx context.Context, sub domain.Submission) ([]domain.UnitJob, error)
}

// Analyzer is the external content-analysis model.
type Analyzer interface {
	AnalyzeText(ctx context.Context, text, filename string) (string, error)
	AnalyzeExcerpt(ctx context.Context, excerptPath string, page int, filename string) (string, error)
	AnalyzeTranscript(ctx context.Context, videoURL string) (string, error)
}

// Embedder builds fixed-dimension vectors for unit texts and query text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// QueryRefiner rewrites a conversational query into a search query.
type QueryRefiner interface {
	RefineQuery(ctx context.Context, query string, history []domain.Exchange) (string, error)
}

// AnswerGenerator produces the cited user-facing answer and free-form
// generations for study aids and interactive modules.
type AnswerGenerator interface {
	GenerateAnswer(ctx context.Context, question string, sources []domain.SearchResult) (string, error)
	GenerateJSON(ctx context.Context, prompt string) (string, error)
	GenerateHTML(ctx context.Context, prompt string) (string, error)
}

// RemoteStore is the remote object-store collaborator. All operations are
// fallible; callers log failures and continue.
type RemoteStore interface {
	List(ctx context.Context, folderKey string) ([]domain.RemoteFile, error)
	Upload(ctx context.Context, localPath, folderKey string) error
	Download(ctx context.Context, fileID, localPath string) error
	Delete(ctx context.Context, name, folderKey string) error
}

// SubmissionQueue carries queued submissions from the request path to the
// ingestion worker.
type SubmissionQueue interface {
	PublishSubmission(ctx context.Context, sub domain.Submission) error
	SubscribeSubmissions(ctx context.Context, handler func(context.Context, domain.Submission) error) error
}

// SourceStager holds uploaded originals until ingestion completes.
type SourceStager interface {
	Stage(ctx context.Context, key string, data io.Reader) (string, error)
	Remove(ctx context.Context, path string) error
}

// StatusRegistry is the process-wide job progress map.
type StatusRegistry interface {
	Set(key string, status domain.JobStatus)
	Get(key string) (domain.JobStatus, bool)
	Clear(key string)
	Snapshot() map[string]domain.JobStatus
}
