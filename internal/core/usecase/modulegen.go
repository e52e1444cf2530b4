package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/shehbaz-7/Learnwave/internal/core/domain"
	"github.com/shehbaz-7/Learnwave/internal/core/ports"
	"github.com/shehbaz-7/Learnwave/internal/status"
)

// ModuleGenerator turns an analyzed document into a sequence of
// self-contained interactive HTML modules: one model call designs the
// learning path, then a bounded pool renders each step's module. Finished
// steps land in an on-disk cache keyed by document id.
type ModuleGenerator struct {
	partitions ports.PartitionProvider
	generator  ports.AnswerGenerator
	registry   ports.StatusRegistry
	cacheDir   string
	pool       *ants.Pool
	logger     *slog.Logger
}

func NewModuleGenerator(
	partitions ports.PartitionProvider,
	generator ports.AnswerGenerator,
	registry ports.StatusRegistry,
	dataDir string,
	moduleWorkers int,
	logger *slog.Logger,
) (*ModuleGenerator, error) {
	if moduleWorkers <= 0 {
		moduleWorkers = 5
	}
	pool, err := ants.NewPool(moduleWorkers)
	if err != nil {
		return nil, fmt.Errorf("create module pool: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ModuleGenerator{
		partitions: partitions,
		generator:  generator,
		registry:   registry,
		cacheDir:   filepath.Join(dataDir, "module_cache"),
		pool:       pool,
		logger:     logger,
	}, nil
}

func (uc *ModuleGenerator) Release() {
	if uc.pool != nil {
		uc.pool.Release()
	}
}

// Generate builds the full learning path for a document. Unlike ingestion,
// any step failure fails the whole job: a path with holes is worse than no
// path.
func (uc *ModuleGenerator) Generate(ctx context.Context, documentID int64) error {
	key := status.ModuleKey(documentID)
	if current, ok := uc.registry.Get(key); ok && !current.Complete {
		return domain.WrapError(domain.ErrInvalidInput, "generate modules",
			fmt.Errorf("generation already running for document %d", documentID))
	}
	uc.registry.Set(key, domain.StatusProgress("Generating path structure..."))

	err := uc.generate(ctx, key, documentID)
	if err != nil {
		uc.registry.Set(key, domain.StatusFailed(err.Error()))
		uc.logger.Error("module generation failed", "document_id", documentID, "error", err)
		return err
	}
	return nil
}

func (uc *ModuleGenerator) generate(ctx context.Context, key string, documentID int64) error {
	master, err := uc.partitions.Open(ctx, uc.partitions.Master())
	if err != nil {
		return fmt.Errorf("open master partition: %w", err)
	}
	doc, err := master.Documents().GetByID(ctx, documentID)
	if err != nil {
		return fmt.Errorf("load document: %w", err)
	}
	units, err := master.Units().ListByDocument(ctx, documentID)
	if err != nil {
		return fmt.Errorf("load units: %w", err)
	}

	contentByOrdinal := make(map[int]string, len(units))
	var fullText strings.Builder
	for _, u := range units {
		enhanced := domain.EnhancedText(u.Analysis)
		if enhanced == "" {
			continue
		}
		contentByOrdinal[u.Ordinal] = enhanced
		fullText.WriteString(enhanced)
		fullText.WriteString(" ")
	}
	if strings.TrimSpace(fullText.String()) == "" {
		return domain.WrapError(domain.ErrInvalidInput, "generate modules",
			fmt.Errorf("document %d has no analyzed content", documentID))
	}

	path, err := uc.designPath(ctx, doc.Name, fullText.String())
	if err != nil {
		return err
	}
	uc.registry.Set(key, domain.JobStatus{
		Text:    "Generating modules...",
		Payload: path,
	})

	cacheDir := filepath.Join(uc.cacheDir, strconv.FormatInt(documentID, 10))
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return fmt.Errorf("create module cache dir: %w", err)
	}

	if err := uc.renderSteps(ctx, key, cacheDir, path, contentByOrdinal); err != nil {
		return err
	}

	uc.registry.Set(key, domain.JobStatus{Text: "Complete", Complete: true, Payload: path})
	uc.logger.Info("learning path generated",
		"document_id", documentID, "steps", len(path.Steps))
	return nil
}

func (uc *ModuleGenerator) designPath(ctx context.Context, docName, fullText string) (*domain.LearningPath, error) {
	raw, err := uc.generator.GenerateJSON(ctx, buildPathStructurePrompt(docName, fullText))
	if err != nil {
		return nil, fmt.Errorf("generate path structure: %w", err)
	}
	var path domain.LearningPath
	if err := json.Unmarshal([]byte(raw), &path); err != nil {
		return nil, fmt.Errorf("parse path structure: %w", err)
	}
	if len(path.Steps) == 0 {
		return nil, domain.WrapError(domain.ErrAnalysisFailed, "design path",
			fmt.Errorf("model returned no steps"))
	}
	return &path, nil
}

// renderSteps fans the step renders onto the bounded pool. The step's
// source content is the same-ordinal unit's enhanced text, falling back to
// the step description when the document has no matching unit.
func (uc *ModuleGenerator) renderSteps(ctx context.Context, key, cacheDir string, path *domain.LearningPath, contentByOrdinal map[int]string) error {
	total := len(path.Steps)

	var wg sync.WaitGroup
	var mu sync.Mutex
	rendered := 0
	var firstErr error

	for _, step := range path.Steps {
		step := step
		wg.Add(1)
		submitErr := uc.pool.Submit(func() {
			defer wg.Done()

			content, ok := contentByOrdinal[step.Step]
			if !ok {
				content = step.Title + "\n" + step.Description
			}
			err := uc.renderStep(ctx, cacheDir, step, content)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = fmt.Errorf("render step %d: %w", step.Step, err)
				}
				return
			}
			rendered++
			uc.registry.Set(key, domain.JobStatus{
				Text:    fmt.Sprintf("Generated %d/%d steps...", rendered, total),
				Payload: path,
			})
		})
		if submitErr != nil {
			wg.Done()
			mu.Lock()
			if firstErr == nil {
				firstErr = fmt.Errorf("submit step %d: %w", step.Step, submitErr)
			}
			mu.Unlock()
		}
	}
	wg.Wait()
	return firstErr
}

func (uc *ModuleGenerator) renderStep(ctx context.Context, cacheDir string, step domain.LearningStep, content string) error {
	cachePath := filepath.Join(cacheDir, fmt.Sprintf("step_%d.html", step.Step))
	if _, err := os.Stat(cachePath); err == nil {
		return nil
	}

	html, err := uc.generator.GenerateHTML(ctx, buildModulePrompt(step, content))
	if err != nil {
		return err
	}
	return os.WriteFile(cachePath, []byte(html), 0o644)
}

// Module returns one cached step module.
func (uc *ModuleGenerator) Module(documentID int64, step int) (string, error) {
	raw, err := os.ReadFile(filepath.Join(uc.cacheDir,
		strconv.FormatInt(documentID, 10), fmt.Sprintf("step_%d.html", step)))
	if err != nil {
		return "", fmt.Errorf("read cached module: %w", err)
	}
	return string(raw), nil
}

// DeleteCache drops every cached module for the document so the next
// Generate starts fresh.
func (uc *ModuleGenerator) DeleteCache(documentID int64) error {
	uc.registry.Clear(status.ModuleKey(documentID))
	dir := filepath.Join(uc.cacheDir, strconv.FormatInt(documentID, 10))
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("delete module cache: %w", err)
	}
	return nil
}

func buildPathStructurePrompt(docName, fullText string) string {
	const maxContent = 25000
	if len(fullText) > maxContent {
		fullText = fullText[:maxContent]
	}
	return fmt.Sprintf(`Your Role: You are an expert instructional designer.
Your Task: Analyze the following document content and break it down into a logical, sequential learning path with 5 to 7 distinct steps. The output must be a valid JSON object.

Source Document: %q

JSON Output Requirements:
- The root must be a single JSON object.
- It must contain "path_title": a concise, engaging title for the whole path.
- It must contain "steps": an array of objects, each with "step" (integer from 1), "title" (string) and "description" (one-paragraph string).

---
DOCUMENT CONTENT TO ANALYZE:
%s`, docName, fullText)
}

func buildModulePrompt(step domain.LearningStep, content string) string {
	return fmt.Sprintf(`Your Role: You are a creative technologist building an educational masterpiece. Your output must be a single, complete HTML file and nothing else.

THE TOPIC TO VISUALIZE:
Step %d: %s
---
%s
---

Requirements:
1. Single-file architecture: all HTML, CSS and JavaScript self-contained, no external resources.
2. Smooth, purposeful animation that clarifies the concept.
3. Polished interactivity with immediate visual feedback.
4. Clarity above all: the module must make the topic easier to understand.`, step.Step, step.Title, content)
}
