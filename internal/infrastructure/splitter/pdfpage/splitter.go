// Package pdfpage splits a staged PDF into per-page unit jobs.
package pdfpage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/ledongthuc/pdf"

	"github.com/shehbaz-7/Learnwave/internal/core/domain"
	"github.com/shehbaz-7/Learnwave/internal/core/ports"
)

type Splitter struct {
	stager       ports.SourceStager
	minTextChars int
	logger       *slog.Logger
}

func NewSplitter(stager ports.SourceStager, minTextChars int, logger *slog.Logger) *Splitter {
	if minTextChars <= 0 {
		minTextChars = 100
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Splitter{stager: stager, minTextChars: minTextChars, logger: logger}
}

// Split emits one job per page, in page order. Pages whose extracted text is
// shorter than the configured minimum are staged as binary excerpts so the
// analysis model can read the page visually instead; scanned pages and pure
// figures fall into this path.
func (s *Splitter) Split(ctx context.Context, sub domain.Submission) ([]domain.UnitJob, error) {
	file, reader, err := pdf.Open(sub.Source)
	if err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "open pdf", err)
	}
	defer file.Close()

	total := reader.NumPage()
	if total == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "split pdf",
			fmt.Errorf("%s has no pages", sub.Name))
	}

	jobs := make([]domain.UnitJob, 0, total)
	for pageNum := 1; pageNum <= total; pageNum++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		text := s.pageText(reader, pageNum)
		if s.meetsTextThreshold(text) {
			jobs = append(jobs, domain.UnitJob{
				Ordinal: pageNum,
				Kind:    domain.KindText,
				Text:    text,
			})
			continue
		}

		excerptPath, err := s.stageExcerpt(ctx, sub.Source, pageNum)
		if err != nil {
			return nil, fmt.Errorf("stage excerpt for page %d: %w", pageNum, err)
		}
		s.logger.Info("page below text threshold, staged for visual analysis",
			"document", sub.Name, "page", pageNum, "chars", utf8.RuneCountInString(text))
		jobs = append(jobs, domain.UnitJob{
			Ordinal:     pageNum,
			Kind:        domain.KindImage,
			Text:        text,
			ExcerptPath: excerptPath,
		})
	}
	return jobs, nil
}

// meetsTextThreshold counts characters, not bytes, so multi-byte scripts
// are measured the same as ASCII.
func (s *Splitter) meetsTextThreshold(text string) bool {
	return utf8.RuneCountInString(text) >= s.minTextChars
}

func (s *Splitter) pageText(reader *pdf.Reader, pageNum int) string {
	page := reader.Page(pageNum)
	if page.V.IsNull() {
		return ""
	}
	text, err := page.GetPlainText(nil)
	if err != nil {
		s.logger.Warn("page text extraction failed", "page", pageNum, "error", err)
		return ""
	}
	return strings.TrimSpace(text)
}

// stageExcerpt copies the source under a per-page temp key; the analyzer
// receives the path together with the page number and the ingestion
// orchestrator removes the file after the unit is analyzed.
func (s *Splitter) stageExcerpt(ctx context.Context, sourcePath string, pageNum int) (string, error) {
	src, err := os.Open(sourcePath)
	if err != nil {
		return "", fmt.Errorf("open source: %w", err)
	}
	defer src.Close()

	key := fmt.Sprintf("excerpt_%s_p%d.pdf", uuid.NewString(), pageNum)
	return s.stager.Stage(ctx, key, src)
}
