// Package partition wires one record store and one vector index per cohort
// directory and hands them out as a unit.
package partition

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"

	"github.com/shehbaz-7/Learnwave/internal/core/ports"
	"github.com/shehbaz-7/Learnwave/internal/infrastructure/repository/sqlite"
	"github.com/shehbaz-7/Learnwave/internal/infrastructure/vector/flat"
)

type Provider struct {
	dataDir  string
	master   string
	cohorts  map[string]string
	dim      int
	embedder ports.Embedder
	logger   *slog.Logger

	mu   sync.Mutex
	open map[string]*partition
}

func NewProvider(dataDir, master string, cohorts map[string]string, dim int, embedder ports.Embedder, logger *slog.Logger) *Provider {
	if logger == nil {
		logger = slog.Default()
	}
	return &Provider{
		dataDir:  dataDir,
		master:   master,
		cohorts:  cohorts,
		dim:      dim,
		embedder: embedder,
		logger:   logger,
		open:     make(map[string]*partition),
	}
}

func (p *Provider) Master() string { return p.master }

func (p *Provider) Cohorts() []string {
	names := make([]string, 0, len(p.cohorts))
	for name := range p.cohorts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Open returns the cohort's partition, opening and index-loading it on first
// use. Partitions stay open for the process lifetime; the in-memory index is
// the live one and reopening per call would discard incremental adds.
func (p *Provider) Open(ctx context.Context, cohort string) (ports.Partition, error) {
	folderKey, ok := p.cohorts[cohort]
	if !ok {
		return nil, fmt.Errorf("unknown cohort %q", cohort)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if part, ok := p.open[cohort]; ok {
		return part, nil
	}

	dir := filepath.Join(p.dataDir, "partitions", cohort)
	db, err := sqlite.Open(ctx, filepath.Join(dir, sqlite.LibraryFileName))
	if err != nil {
		return nil, fmt.Errorf("open partition %s: %w", cohort, err)
	}

	units := sqlite.NewUnitRepository(db)
	index, err := flat.NewManager(dir, p.dim, units, p.embedder,
		p.logger.With("partition", cohort))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("open partition %s index: %w", cohort, err)
	}
	if err := index.Load(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("load partition %s index: %w", cohort, err)
	}

	part := &partition{
		name:      cohort,
		dir:       dir,
		folderKey: folderKey,
		db:        db,
		documents: sqlite.NewDocumentRepository(db),
		units:     units,
		index:     index,
	}
	p.open[cohort] = part
	return part, nil
}

// CloseAll closes every opened partition. Used on shutdown.
func (p *Provider) CloseAll() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var firstErr error
	for name, part := range p.open {
		if err := part.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close partition %s: %w", name, err)
		}
		delete(p.open, name)
	}
	return firstErr
}

type partition struct {
	name      string
	dir       string
	folderKey string
	db        *sqlite.DB
	documents ports.DocumentRepository
	units     ports.UnitRepository
	index     *flat.Manager
}

func (p *partition) Name() string                      { return p.name }
func (p *partition) Dir() string                       { return p.dir }
func (p *partition) FolderKey() string                 { return p.folderKey }
func (p *partition) Documents() ports.DocumentRepository { return p.documents }
func (p *partition) Units() ports.UnitRepository       { return p.units }
func (p *partition) Index() ports.IndexManager         { return p.index }

func (p *partition) Artifacts() []string {
	return []string{
		p.db.Path(),
		p.index.IndexPath(),
		p.index.MetaPath(),
	}
}

func (p *partition) Close() error { return p.db.Close() }
