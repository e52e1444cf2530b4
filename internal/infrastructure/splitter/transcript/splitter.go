// Package transcript splits a video source into timestamped segment jobs.
//
// Unlike the page splitter, the model does the heavy lifting here: one
// holistic analysis call returns the whole transcript already segmented and
// enriched, and this package only parses the delimited response.
package transcript

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/shehbaz-7/Learnwave/internal/core/domain"
	"github.com/shehbaz-7/Learnwave/internal/core/ports"
)

const segmentMarker = "###SEGMENT###"

var timestampLine = regexp.MustCompile(`(?mi)^\s*Timestamp:\s*(.+?)\s*$`)

type Splitter struct {
	analyzer ports.Analyzer
	logger   *slog.Logger
}

func NewSplitter(analyzer ports.Analyzer, logger *slog.Logger) *Splitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Splitter{analyzer: analyzer, logger: logger}
}

// Split requests one holistic analysis of the video and cuts the response on
// the segment marker. A response without the marker degrades to a single
// unit covering the whole source at offset 0.
func (s *Splitter) Split(ctx context.Context, sub domain.Submission) ([]domain.UnitJob, error) {
	raw, err := s.analyzer.AnalyzeTranscript(ctx, sub.Source)
	if err != nil {
		return nil, fmt.Errorf("analyze transcript: %w", err)
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, domain.WrapError(domain.ErrAnalysisFailed, "split transcript",
			fmt.Errorf("empty analysis for %s", sub.Name))
	}

	if !strings.Contains(raw, segmentMarker) {
		s.logger.Warn("segment marker missing, treating whole transcript as one unit",
			"document", sub.Name)
		return []domain.UnitJob{s.job(1, raw)}, nil
	}

	var jobs []domain.UnitJob
	for _, chunk := range strings.Split(raw, segmentMarker) {
		chunk = strings.TrimSpace(chunk)
		if chunk == "" {
			continue
		}
		jobs = append(jobs, s.job(len(jobs)+1, chunk))
	}
	if len(jobs) == 0 {
		return []domain.UnitJob{s.job(1, raw)}, nil
	}
	return jobs, nil
}

func (s *Splitter) job(ordinal int, chunk string) domain.UnitJob {
	offset, body := s.splitTimestamp(chunk)
	return domain.UnitJob{
		Ordinal:            ordinal,
		Kind:               domain.KindText,
		Text:               domain.EnhancedText(body),
		Analysis:           body,
		StartOffsetSeconds: offset,
	}
}

// splitTimestamp strips the leading "Timestamp: <token>" line and parses the
// token. Segments without the line keep offset 0 and their full body.
func (s *Splitter) splitTimestamp(chunk string) (int, string) {
	match := timestampLine.FindStringSubmatchIndex(chunk)
	if match == nil {
		return 0, chunk
	}
	token := chunk[match[2]:match[3]]
	body := strings.TrimSpace(chunk[:match[0]] + chunk[match[1]:])
	return s.parseTimestamp(token), body
}

// parseTimestamp accepts HH:MM:SS, MM:SS or bare SS. Anything else defaults
// to 0 with a warning; a bad timestamp never fails the segment.
func (s *Splitter) parseTimestamp(token string) int {
	token = strings.TrimSpace(token)
	if token == "" {
		return 0
	}
	parts := strings.Split(token, ":")
	if len(parts) > 3 {
		s.logger.Warn("malformed timestamp token, defaulting to 0", "token", token)
		return 0
	}
	total := 0
	for _, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || n < 0 {
			s.logger.Warn("malformed timestamp token, defaulting to 0", "token", token)
			return 0
		}
		total = total*60 + n
	}
	return total
}
