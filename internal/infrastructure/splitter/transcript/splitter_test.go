package transcript

import (
	"context"
	"errors"
	"testing"

	"github.com/shehbaz-7/Learnwave/internal/core/domain"
)

type analyzerFake struct {
	response string
	err      error
}

func (f *analyzerFake) AnalyzeText(context.Context, string, string) (string, error) {
	return "", errors.New("unexpected AnalyzeText call")
}

func (f *analyzerFake) AnalyzeExcerpt(context.Context, string, int, string) (string, error) {
	return "", errors.New("unexpected AnalyzeExcerpt call")
}

func (f *analyzerFake) AnalyzeTranscript(context.Context, string) (string, error) {
	return f.response, f.err
}

func TestParseTimestamp(t *testing.T) {
	s := NewSplitter(&analyzerFake{}, nil)

	tests := []struct {
		token string
		want  int
	}{
		{"01:02:03", 3723},
		{"02:03", 123},
		{"45", 45},
		{"", 0},
		{"garbage", 0},
		{"1:2:3:4", 0},
		{"-5", 0},
	}
	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			if got := s.parseTimestamp(tt.token); got != tt.want {
				t.Fatalf("parseTimestamp(%q) = %d, want %d", tt.token, got, tt.want)
			}
		})
	}
}

func TestSplitSegmentedResponse(t *testing.T) {
	response := "###SEGMENT###\nTimestamp: 00:00\nOpening remarks about sorting.\n" +
		"###SEGMENT###\nTimestamp: 01:30\nQuicksort partitioning walkthrough.\n" +
		"###SEGMENT###\nTimestamp: 01:02:03\nClosing summary."
	s := NewSplitter(&analyzerFake{response: response}, nil)

	jobs, err := s.Split(context.Background(), domain.Submission{Name: "lecture", Source: "https://example.com/v"})
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	if len(jobs) != 3 {
		t.Fatalf("got %d jobs, want 3", len(jobs))
	}

	wantOffsets := []int{0, 90, 3723}
	for i, job := range jobs {
		if job.Ordinal != i+1 {
			t.Errorf("job %d ordinal = %d", i, job.Ordinal)
		}
		if job.StartOffsetSeconds != wantOffsets[i] {
			t.Errorf("job %d offset = %d, want %d", i, job.StartOffsetSeconds, wantOffsets[i])
		}
		if job.Analysis == "" {
			t.Errorf("job %d missing pre-filled analysis", i)
		}
	}
	if jobs[1].Analysis != "Quicksort partitioning walkthrough." {
		t.Errorf("timestamp line not stripped: %q", jobs[1].Analysis)
	}
}

func TestSplitFallsBackToSingleUnit(t *testing.T) {
	s := NewSplitter(&analyzerFake{response: "A plain summary without any markers."}, nil)

	jobs, err := s.Split(context.Background(), domain.Submission{Name: "lecture"})
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	if len(jobs) != 1 {
		t.Fatalf("got %d jobs, want 1 fallback unit", len(jobs))
	}
	if jobs[0].Ordinal != 1 || jobs[0].StartOffsetSeconds != 0 {
		t.Fatalf("fallback unit = %+v", jobs[0])
	}
}

func TestSplitPropagatesAnalyzerError(t *testing.T) {
	s := NewSplitter(&analyzerFake{err: errors.New("model down")}, nil)
	if _, err := s.Split(context.Background(), domain.Submission{Name: "lecture"}); err == nil {
		t.Fatal("expected error")
	}
}

func TestSplitRejectsEmptyResponse(t *testing.T) {
	s := NewSplitter(&analyzerFake{response: "   "}, nil)
	_, err := s.Split(context.Background(), domain.Submission{Name: "lecture"})
	if !domain.IsKind(err, domain.ErrAnalysisFailed) {
		t.Fatalf("expected analysis-failed kind, got %v", err)
	}
}
