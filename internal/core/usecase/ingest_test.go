package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/shehbaz-7/Learnwave/internal/core/domain"
	"github.com/shehbaz-7/Learnwave/internal/core/ports"
	"github.com/shehbaz-7/Learnwave/internal/observability/metrics"
	"github.com/shehbaz-7/Learnwave/internal/status"
)

type docRepoFake struct {
	mu     sync.Mutex
	nextID int64
	docs   map[int64]*domain.Document
}

func newDocRepoFake() *docRepoFake {
	return &docRepoFake{docs: make(map[int64]*domain.Document)}
}

func (f *docRepoFake) Create(_ context.Context, doc *domain.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	doc.ID = f.nextID
	copyDoc := *doc
	f.docs[doc.ID] = &copyDoc
	return nil
}

func (f *docRepoFake) Update(_ context.Context, doc *domain.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.docs[doc.ID]; !ok {
		return domain.WrapError(domain.ErrDocumentNotFound, "update", errors.New("missing"))
	}
	copyDoc := *doc
	f.docs[doc.ID] = &copyDoc
	return nil
}

func (f *docRepoFake) GetByID(_ context.Context, id int64) (*domain.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrDocumentNotFound, "get", errors.New("missing"))
	}
	copyDoc := *doc
	return &copyDoc, nil
}

func (f *docRepoFake) GetByName(_ context.Context, name string) (*domain.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var best *domain.Document
	for _, doc := range f.docs {
		if doc.Name == name && (best == nil || doc.ID < best.ID) {
			best = doc
		}
	}
	if best == nil {
		return nil, domain.WrapError(domain.ErrDocumentNotFound, "get by name", errors.New("missing"))
	}
	copyDoc := *best
	return &copyDoc, nil
}

func (f *docRepoFake) Delete(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.docs, id)
	return nil
}

type unitRepoFake struct {
	mu        sync.Mutex
	nextID    int64
	units     []domain.Unit
	insertErr error
}

func (f *unitRepoFake) InsertBatch(_ context.Context, units []*domain.Unit) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return f.insertErr
	}
	for _, u := range units {
		f.nextID++
		u.ID = f.nextID
		f.units = append(f.units, *u)
	}
	return nil
}

func (f *unitRepoFake) ListByDocument(_ context.Context, documentID int64) ([]domain.Unit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Unit
	for _, u := range f.units {
		if u.DocumentID == documentID {
			out = append(out, u)
		}
	}
	return out, nil
}

func (f *unitRepoFake) IDsByDocument(_ context.Context, documentID int64) ([]int64, error) {
	units, _ := f.ListByDocument(context.Background(), documentID)
	ids := make([]int64, len(units))
	for i, u := range units {
		ids[i] = u.ID
	}
	return ids, nil
}

func (f *unitRepoFake) ListAnalyzed(context.Context) ([]domain.IndexableUnit, error) {
	return nil, nil
}

func (f *unitRepoFake) ListAnalyzedByDocument(context.Context, int64) ([]domain.IndexableUnit, error) {
	return nil, nil
}

type indexFake struct {
	mu      sync.Mutex
	added   []int64
	removed []int64
	addErr  error
}

func (f *indexFake) Load(context.Context) error        { return nil }
func (f *indexFake) RebuildFull(context.Context) error { return nil }

func (f *indexFake) AddDocument(_ context.Context, documentID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.addErr != nil {
		return f.addErr
	}
	f.added = append(f.added, documentID)
	return nil
}

func (f *indexFake) RemoveDocument(_ context.Context, documentID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, documentID)
	return nil
}

func (f *indexFake) Search(context.Context, string, int, domain.SearchFilter) ([]domain.SearchResult, error) {
	return nil, nil
}

func (f *indexFake) Size() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.added)
}

type partitionFake struct {
	name      string
	folderKey string
	docs      *docRepoFake
	units     *unitRepoFake
	index     *indexFake
}

func (f *partitionFake) Name() string                        { return f.name }
func (f *partitionFake) Dir() string                         { return "/tmp/" + f.name }
func (f *partitionFake) FolderKey() string                   { return f.folderKey }
func (f *partitionFake) Documents() ports.DocumentRepository { return f.docs }
func (f *partitionFake) Units() ports.UnitRepository         { return f.units }
func (f *partitionFake) Index() ports.IndexManager           { return f.index }
func (f *partitionFake) Artifacts() []string {
	return []string{"/tmp/" + f.name + "/library.db"}
}
func (f *partitionFake) Close() error { return nil }

type providerFake struct {
	master     string
	partitions map[string]*partitionFake
}

func newProviderFake(master string, cohorts ...string) *providerFake {
	p := &providerFake{master: master, partitions: make(map[string]*partitionFake)}
	for _, name := range append(cohorts, master) {
		p.partitions[name] = &partitionFake{
			name:      name,
			folderKey: "folder-" + name,
			docs:      newDocRepoFake(),
			units:     &unitRepoFake{},
			index:     &indexFake{},
		}
	}
	return p
}

func (f *providerFake) Open(_ context.Context, cohort string) (ports.Partition, error) {
	part, ok := f.partitions[cohort]
	if !ok {
		return nil, fmt.Errorf("unknown cohort %q", cohort)
	}
	return part, nil
}

func (f *providerFake) Master() string { return f.master }

func (f *providerFake) Cohorts() []string {
	names := make([]string, 0, len(f.partitions))
	for name := range f.partitions {
		names = append(names, name)
	}
	return names
}

type splitterFake struct {
	jobs []domain.UnitJob
	err  error
}

func (f *splitterFake) Split(context.Context, domain.Submission) ([]domain.UnitJob, error) {
	return f.jobs, f.err
}

type analyzerFake struct {
	mu          sync.Mutex
	textErr     error
	excerptErr  error
	textCalls   int
	visualCalls int
}

func (f *analyzerFake) AnalyzeText(_ context.Context, text, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.textErr != nil {
		return "", f.textErr
	}
	f.textCalls++
	return "###TITLE###\nT\n###ENHANCED_TEXT###\nenhanced " + text, nil
}

func (f *analyzerFake) AnalyzeExcerpt(_ context.Context, _ string, page int, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.excerptErr != nil {
		return "", f.excerptErr
	}
	f.visualCalls++
	return fmt.Sprintf("###TITLE###\nT\n###ENHANCED_TEXT###\nvisual page %d", page), nil
}

func (f *analyzerFake) AnalyzeTranscript(context.Context, string) (string, error) {
	return "", errors.New("unexpected AnalyzeTranscript call")
}

type stagerFake struct {
	mu      sync.Mutex
	removed []string
}

func (f *stagerFake) Stage(_ context.Context, key string, _ io.Reader) (string, error) {
	return "/tmp/" + key, nil
}

func (f *stagerFake) Remove(_ context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, path)
	return nil
}

func (f *stagerFake) didRemove(path string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.removed {
		if p == path {
			return true
		}
	}
	return false
}

type remoteFake struct {
	mu        sync.Mutex
	uploads   []string
	uploadErr error
}

func (f *remoteFake) List(context.Context, string) ([]domain.RemoteFile, error) { return nil, nil }

func (f *remoteFake) Upload(_ context.Context, localPath, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.uploadErr != nil {
		return f.uploadErr
	}
	f.uploads = append(f.uploads, localPath)
	return nil
}

func (f *remoteFake) Download(context.Context, string, string) error { return nil }
func (f *remoteFake) Delete(context.Context, string, string) error   { return nil }

type ingestHarness struct {
	orchestrator *IngestOrchestrator
	provider     *providerFake
	analyzer     *analyzerFake
	stager       *stagerFake
	remote       *remoteFake
	registry     *status.Registry
}

func newIngestHarness(t *testing.T, splitter ports.Splitter) *ingestHarness {
	t.Helper()
	provider := newProviderFake("Master", "YearOne")
	analyzer := &analyzerFake{}
	stager := &stagerFake{}
	remote := &remoteFake{}
	registry := status.NewRegistry()

	orchestrator, err := NewIngestOrchestrator(
		provider,
		map[domain.SourceType]ports.Splitter{
			domain.SourcePaged:     splitter,
			domain.SourceSegmented: splitter,
		},
		analyzer, stager, remote, registry,
		metrics.NewIngestMetrics("test"), 4, nil,
	)
	if err != nil {
		t.Fatalf("NewIngestOrchestrator() error = %v", err)
	}
	t.Cleanup(orchestrator.Release)

	return &ingestHarness{
		orchestrator: orchestrator,
		provider:     provider,
		analyzer:     analyzer,
		stager:       stager,
		remote:       remote,
		registry:     registry,
	}
}

func (h *ingestHarness) submission(t *testing.T) domain.Submission {
	t.Helper()
	master := h.provider.partitions["Master"]
	placeholder := &domain.Document{UserID: 7, Name: "notes.pdf", SourceType: domain.SourcePaged, CreatedAt: time.Now().UTC()}
	if err := master.docs.Create(context.Background(), placeholder); err != nil {
		t.Fatalf("create placeholder: %v", err)
	}
	return domain.Submission{
		DocumentID:  placeholder.ID,
		UserID:      7,
		Name:        "notes.pdf",
		Source:      "/tmp/staged-notes.pdf",
		SourceType:  domain.SourcePaged,
		Cohort:      "YearOne",
		SubmittedAt: time.Now().UTC(),
	}
}

func threePageJobs() []domain.UnitJob {
	return []domain.UnitJob{
		{Ordinal: 1, Kind: domain.KindText, Text: "page one has plenty of extracted text"},
		{Ordinal: 2, Kind: domain.KindText, Text: "page two also has plenty of extracted text"},
		{Ordinal: 3, Kind: domain.KindImage, Text: "thin", ExcerptPath: "/tmp/excerpt-p3.pdf"},
	}
}

func TestProcessThreePagesWithImagePath(t *testing.T) {
	h := newIngestHarness(t, &splitterFake{jobs: threePageJobs()})
	sub := h.submission(t)

	if err := h.orchestrator.Process(context.Background(), sub); err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	if h.analyzer.textCalls != 2 || h.analyzer.visualCalls != 1 {
		t.Fatalf("analysis calls = %d text / %d visual, want 2/1",
			h.analyzer.textCalls, h.analyzer.visualCalls)
	}
	if !h.stager.didRemove("/tmp/excerpt-p3.pdf") {
		t.Error("page-3 excerpt not cleaned up")
	}
	if !h.stager.didRemove(sub.Source) {
		t.Error("staged source not cleaned up")
	}

	for _, name := range []string{"YearOne", "Master"} {
		part := h.provider.partitions[name]
		if len(part.units.units) != 3 {
			t.Errorf("partition %s has %d units, want 3", name, len(part.units.units))
		}
		if len(part.index.added) != 1 {
			t.Errorf("partition %s index AddDocument calls = %d, want 1", name, len(part.index.added))
		}
		for i, u := range part.units.units {
			if u.Ordinal != i+1 {
				t.Errorf("partition %s unit %d ordinal = %d", name, i, u.Ordinal)
			}
		}
	}

	// Placeholder mutated in place in the master partition.
	masterDoc, err := h.provider.partitions["Master"].docs.GetByID(context.Background(), sub.DocumentID)
	if err != nil {
		t.Fatalf("master doc lookup: %v", err)
	}
	if !masterDoc.Processed || masterDoc.UnitCount != 3 {
		t.Errorf("placeholder not finalized: %+v", masterDoc)
	}

	// Fresh row inserted in the cohort partition.
	cohortDoc, err := h.provider.partitions["YearOne"].docs.GetByName(context.Background(), "notes.pdf")
	if err != nil {
		t.Fatalf("cohort doc lookup: %v", err)
	}
	if !cohortDoc.Processed || cohortDoc.UnitCount != 3 {
		t.Errorf("cohort row not finalized: %+v", cohortDoc)
	}

	got, ok := h.registry.Get(status.DocumentKey(sub.DocumentID))
	if !ok || !got.Complete || got.Error {
		t.Errorf("terminal status = %+v", got)
	}
}

func TestProcessSkipsFailedUnitsButNotAll(t *testing.T) {
	h := newIngestHarness(t, &splitterFake{jobs: threePageJobs()})
	h.analyzer.excerptErr = errors.New("vision model down")
	sub := h.submission(t)

	if err := h.orchestrator.Process(context.Background(), sub); err != nil {
		t.Fatalf("Process() error = %v, per-unit failures must be skipped", err)
	}
	if len(h.provider.partitions["Master"].units.units) != 2 {
		t.Fatalf("master has %d units, want 2 (image unit skipped)",
			len(h.provider.partitions["Master"].units.units))
	}
}

func TestProcessAllUnitsFailedIsFatal(t *testing.T) {
	h := newIngestHarness(t, &splitterFake{jobs: threePageJobs()})
	h.analyzer.textErr = errors.New("model down")
	h.analyzer.excerptErr = errors.New("model down")
	sub := h.submission(t)

	err := h.orchestrator.Process(context.Background(), sub)
	if !domain.IsKind(err, domain.ErrAnalysisFailed) {
		t.Fatalf("Process() error = %v, want analysis-failed kind", err)
	}
	got, _ := h.registry.Get(status.DocumentKey(sub.DocumentID))
	if !got.Error {
		t.Errorf("status after total failure = %+v", got)
	}
	if !h.stager.didRemove(sub.Source) {
		t.Error("staged source must be cleaned up even on failure")
	}
}

func TestProcessSyncFailureIsNotFatal(t *testing.T) {
	h := newIngestHarness(t, &splitterFake{jobs: threePageJobs()})
	h.remote.uploadErr = errors.New("drive unreachable")
	sub := h.submission(t)

	if err := h.orchestrator.Process(context.Background(), sub); err != nil {
		t.Fatalf("Process() error = %v, sync failures must be survivable", err)
	}
}

func TestProcessCommitFailureIsFatalWithoutRollback(t *testing.T) {
	h := newIngestHarness(t, &splitterFake{jobs: threePageJobs()})
	// Cohort commits cleanly; the master partition's unit insert fails.
	h.provider.partitions["Master"].units.insertErr = errors.New("disk full")
	sub := h.submission(t)

	if err := h.orchestrator.Process(context.Background(), sub); err == nil {
		t.Fatal("Process() must fail when a partition commit fails")
	}
	// No rollback: the cohort partition keeps its committed units.
	if len(h.provider.partitions["YearOne"].units.units) != 3 {
		t.Fatalf("cohort units = %d after master failure, want 3 (no rollback)",
			len(h.provider.partitions["YearOne"].units.units))
	}
}

func TestProcessSplitterErrorIsFatal(t *testing.T) {
	h := newIngestHarness(t, &splitterFake{err: errors.New("unreadable pdf")})
	sub := h.submission(t)

	if err := h.orchestrator.Process(context.Background(), sub); err == nil {
		t.Fatal("Process() must fail when splitting fails")
	}
}
