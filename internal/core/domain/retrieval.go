package domain

// UnitMeta is the metadata-map record kept alongside each indexed vector.
// The map's key set must equal the index's id set after every completed
// operation.
type UnitMeta struct {
	DocumentID         int64      `json:"document_id"`
	Ordinal            int        `json:"ordinal"`
	DocumentName       string     `json:"document_name"`
	SourceType         SourceType `json:"source_type"`
	StartOffsetSeconds int        `json:"start_offset_seconds"`
	Content            string     `json:"content"`
}

// SearchFilter narrows search results by source type. The zero value
// matches everything.
type SearchFilter struct {
	SourceType SourceType
}

func (f SearchFilter) Active() bool { return f.SourceType != "" }

func (f SearchFilter) Matches(meta UnitMeta) bool {
	return !f.Active() || meta.SourceType == f.SourceType
}

// SearchResult is one ranked, cited hit.
type SearchResult struct {
	UnitID             int64      `json:"unit_id"`
	DocumentID         int64      `json:"document_id"`
	Ordinal            int        `json:"ordinal"`
	DocumentName       string     `json:"document_name"`
	SourceType         SourceType `json:"source_type"`
	StartOffsetSeconds int        `json:"start_offset_seconds"`
	Content            string     `json:"content"`
	Score              float64    `json:"score"`
	Snippet            string     `json:"snippet"`
}

// Exchange is one prior question/answer pair used as query-refinement
// context.
type Exchange struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Answer is a generated response plus the retrieval context it cited.
type Answer struct {
	Text    string         `json:"text"`
	Sources []SearchResult `json:"sources"`
}
