package flat

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/shehbaz-7/Learnwave/internal/core/domain"
	"github.com/shehbaz-7/Learnwave/internal/core/ports"
)

const (
	IndexFileName = "vector_index.bin"
	MetaFileName  = "unit_meta.json"
)

// Manager keeps one partition's index and metadata map consistent with the
// partition's record store. Every mutating operation ends by saving both
// files; a crash between the two writes is the acknowledged inconsistency
// window, repaired by RebuildFull.
type Manager struct {
	dir      string
	dim      int
	units    ports.UnitRepository
	embedder ports.Embedder
	logger   *slog.Logger

	index *IDIndex
	meta  map[int64]domain.UnitMeta
}

func NewManager(dir string, dim int, units ports.UnitRepository, embedder ports.Embedder, logger *slog.Logger) (*Manager, error) {
	if dir == "" {
		return nil, fmt.Errorf("index manager requires a partition directory")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create partition dir: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		dir:      dir,
		dim:      dim,
		units:    units,
		embedder: embedder,
		logger:   logger,
	}
	m.reset()
	return m, nil
}

func (m *Manager) IndexPath() string { return filepath.Join(m.dir, IndexFileName) }
func (m *Manager) MetaPath() string  { return filepath.Join(m.dir, MetaFileName) }

func (m *Manager) Size() int {
	if m.index == nil {
		return 0
	}
	return m.index.Size()
}

func (m *Manager) reset() {
	m.index = NewIDIndex(m.dim)
	m.meta = make(map[int64]domain.UnitMeta)
}

// Load deserializes the persisted index and metadata map. Missing files
// yield an empty index; unreadable files are treated as corruption and
// replaced by an empty index, never surfaced as an error.
func (m *Manager) Load(_ context.Context) error {
	indexPath, metaPath := m.IndexPath(), m.MetaPath()
	if !fileExists(indexPath) || !fileExists(metaPath) {
		m.reset()
		m.logger.Info("initialized empty index", "dir", m.dir)
		return nil
	}

	index, err := readIndexFile(indexPath)
	if err != nil {
		m.logger.Error("index file unreadable, re-initializing", "path", indexPath, "error", err)
		m.reset()
		return nil
	}
	meta, err := readMetaFile(metaPath)
	if err != nil {
		m.logger.Error("metadata map unreadable, re-initializing", "path", metaPath, "error", err)
		m.reset()
		return nil
	}

	m.index = index
	m.meta = meta
	m.logger.Info("index loaded", "dir", m.dir, "vectors", index.Size())
	return nil
}

// RebuildFull recomputes index and metadata map from every analyzed unit in
// the record store. Transient embedding failures degrade to an unchanged
// on-disk state with a logged error.
func (m *Manager) RebuildFull(ctx context.Context) error {
	units, err := m.units.ListAnalyzed(ctx)
	if err != nil {
		return fmt.Errorf("list analyzed units: %w", err)
	}

	m.reset()
	if len(units) == 0 {
		m.logger.Warn("no analyzed units found, saving empty index", "dir", m.dir)
		return m.save()
	}

	texts := make([]string, len(units))
	ids := make([]int64, len(units))
	for i, u := range units {
		texts[i] = domain.EnhancedText(u.Analysis)
		ids[i] = u.ID
	}

	vectors, err := m.embedder.Embed(ctx, texts)
	if err != nil {
		m.logger.Error("full rebuild aborted, embedding failed", "dir", m.dir, "error", err)
		return nil
	}
	if len(vectors) != len(texts) {
		m.logger.Error("full rebuild aborted, embedder returned wrong count",
			"dir", m.dir, "want", len(texts), "got", len(vectors))
		return nil
	}

	if err := m.index.Add(ids, vectors); err != nil {
		return fmt.Errorf("bulk insert vectors: %w", err)
	}
	for i, u := range units {
		m.meta[u.ID] = metaFor(u, texts[i])
	}

	if err := m.save(); err != nil {
		return err
	}
	m.logger.Info("full index rebuild complete", "dir", m.dir, "vectors", m.index.Size())
	return nil
}

// AddDocument incrementally indexes one document's analyzed units.
// Re-adding the same document re-embeds and re-inserts; avoiding duplicate
// ids is the caller's responsibility.
func (m *Manager) AddDocument(ctx context.Context, documentID int64) error {
	units, err := m.units.ListAnalyzedByDocument(ctx, documentID)
	if err != nil {
		return fmt.Errorf("list units for document %d: %w", documentID, err)
	}
	if len(units) == 0 {
		return nil
	}

	texts := make([]string, len(units))
	ids := make([]int64, len(units))
	for i, u := range units {
		texts[i] = domain.EnhancedText(u.Analysis)
		ids[i] = u.ID
	}

	vectors, err := m.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed %d units: %w", len(texts), err)
	}
	if len(vectors) != len(texts) {
		return fmt.Errorf("embedder returned %d vectors for %d texts", len(vectors), len(texts))
	}

	if err := m.index.Add(ids, vectors); err != nil {
		return fmt.Errorf("insert vectors: %w", err)
	}
	for i, u := range units {
		m.meta[u.ID] = metaFor(u, texts[i])
	}

	if err := m.save(); err != nil {
		return err
	}
	m.logger.Info("document indexed", "dir", m.dir, "document_id", documentID,
		"units", len(units), "vectors", m.index.Size())
	return nil
}

// RemoveDocument drops every vector and metadata entry belonging to the
// document. No-op when the index is empty or the document has no units.
func (m *Manager) RemoveDocument(ctx context.Context, documentID int64) error {
	if m.index.Size() == 0 {
		return nil
	}
	ids, err := m.units.IDsByDocument(ctx, documentID)
	if err != nil {
		return fmt.Errorf("list unit ids for document %d: %w", documentID, err)
	}
	if len(ids) == 0 {
		return nil
	}

	idSet := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		idSet[id] = struct{}{}
	}
	removed := m.index.Remove(idSet)
	for id := range idSet {
		delete(m.meta, id)
	}

	if err := m.save(); err != nil {
		return err
	}
	m.logger.Info("document removed from index", "dir", m.dir, "document_id", documentID,
		"removed", removed, "vectors", m.index.Size())
	return nil
}

// Search embeds the query and returns up to topK filtered hits. Degrades to
// an empty result on an empty index or an embedding failure.
func (m *Manager) Search(ctx context.Context, query string, topK int, filter domain.SearchFilter) ([]domain.SearchResult, error) {
	if m.index.Size() == 0 {
		m.logger.Warn("search against empty index", "dir", m.dir)
		return nil, nil
	}

	queryVector, err := m.embedder.EmbedQuery(ctx, query)
	if err != nil {
		m.logger.Error("query embedding failed", "error", err)
		return nil, nil
	}

	// Over-fetch when filtering so post-filter loss still fills topK.
	searchK := topK
	if filter.Active() {
		searchK = topK * 5
	}
	if searchK > m.index.Size() {
		searchK = m.index.Size()
	}

	candidates, err := m.index.Search(queryVector, searchK)
	if err != nil {
		m.logger.Error("index search failed", "error", err)
		return nil, nil
	}

	results := make([]domain.SearchResult, 0, topK)
	for _, c := range candidates {
		if len(results) >= topK {
			break
		}
		meta, ok := m.meta[c.ID]
		if !ok || !filter.Matches(meta) {
			continue
		}
		results = append(results, domain.SearchResult{
			UnitID:             c.ID,
			DocumentID:         meta.DocumentID,
			Ordinal:            meta.Ordinal,
			DocumentName:       meta.DocumentName,
			SourceType:         meta.SourceType,
			StartOffsetSeconds: meta.StartOffsetSeconds,
			Content:            meta.Content,
			Score:              Score(c.Distance),
			Snippet:            Snippet(meta.Content, query),
		})
	}
	return results, nil
}

func (m *Manager) save() error {
	if err := writeIndexFile(m.IndexPath(), m.index); err != nil {
		return fmt.Errorf("save index file: %w", err)
	}
	if err := writeMetaFile(m.MetaPath(), m.meta); err != nil {
		return fmt.Errorf("save metadata map: %w", err)
	}
	return nil
}

func metaFor(u domain.IndexableUnit, content string) domain.UnitMeta {
	return domain.UnitMeta{
		DocumentID:         u.DocumentID,
		Ordinal:            u.Ordinal,
		DocumentName:       u.DocumentName,
		SourceType:         u.SourceType,
		StartOffsetSeconds: u.StartOffsetSeconds,
		Content:            content,
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
