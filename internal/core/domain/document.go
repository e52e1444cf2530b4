package domain

import "time"

type SourceType string

const (
	// SourcePaged is a page-oriented source (a PDF file).
	SourcePaged SourceType = "paged"
	// SourceSegmented is a time-segmented source (a video transcript).
	SourceSegmented SourceType = "segmented"
)

// Document is one ingested source. IDs are assigned by the record store on
// insert and are scoped to a single partition: the "same" document committed
// to the cohort and master partitions is two independent rows.
type Document struct {
	ID          int64      `json:"id"`
	UserID      int64      `json:"user_id"`
	Name        string     `json:"name"`
	StoragePath string     `json:"storage_path"`
	UnitCount   int        `json:"unit_count"`
	ByteSize    int64      `json:"byte_size"`
	SourceType  SourceType `json:"source_type"`
	Processed   bool       `json:"processed"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Unit is one analyzable piece of a document: a PDF page or a transcript
// segment. Its record-store ID doubles as the vector index key and is never
// reused once assigned.
type Unit struct {
	ID                 int64     `json:"id"`
	DocumentID         int64     `json:"document_id"`
	Ordinal            int       `json:"ordinal"`
	StartOffsetSeconds int       `json:"start_offset_seconds,omitempty"`
	RawText            string    `json:"raw_text"`
	Analysis           string    `json:"analysis"`
	ProcessedAt        time.Time `json:"processed_at"`
}

type UnitKind string

const (
	// KindText units carry extracted page or segment text for analysis.
	KindText UnitKind = "text"
	// KindImage units carry a staged binary excerpt; the page text extractor
	// produced too little to trust, so the model analyzes the page visually.
	KindImage UnitKind = "image"
)

// UnitJob is the splitter's output: one independently analyzable unit.
// Ordinals start at 1 and are strictly increasing in source order. Segment
// jobs arrive with Analysis pre-filled because the transcript splitter
// analyzes the whole source in one model call; the worker pool passes those
// through without another call.
type UnitJob struct {
	Ordinal            int
	Kind               UnitKind
	Text               string
	Analysis           string
	ExcerptPath        string
	StartOffsetSeconds int
}

// AnalyzedUnit is the worker pool's output for one unit job.
type AnalyzedUnit struct {
	Ordinal            int
	StartOffsetSeconds int
	RawText            string
	Analysis           string
}

// IndexableUnit is a unit joined with the document fields the metadata map
// needs.
type IndexableUnit struct {
	Unit
	DocumentName string
	SourceType   SourceType
}

// Submission describes one queued ingestion. The placeholder document
// already exists in the master partition and is mutated in place there once
// analysis completes.
type Submission struct {
	DocumentID  int64      `json:"document_id"`
	UserID      int64      `json:"user_id"`
	Name        string     `json:"name"`
	Source      string     `json:"source"`
	SourceType  SourceType `json:"source_type"`
	Cohort      string     `json:"cohort"`
	SubmittedAt time.Time  `json:"submitted_at"`
}
