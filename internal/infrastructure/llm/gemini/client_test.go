package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shehbaz-7/Learnwave/internal/core/domain"
	"github.com/shehbaz-7/Learnwave/internal/infrastructure/resilience"
)

func testExecutor(maxAttempts int) *resilience.Executor {
	return resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts:    maxAttempts,
		RetryInitialBackoff: time.Millisecond,
		RetryMaxBackoff:     time.Millisecond,
		RetryMultiplier:     1,
		BreakerEnabled:      false,
	}, nil)
}

func newTestClient(t *testing.T, maxAttempts int, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return New(server.URL, "test-key", "gen-model", "embed-model", 1000, testExecutor(maxAttempts))
}

func candidateResponse(texts ...string) string {
	parts := make([]map[string]string, len(texts))
	for i, text := range texts {
		parts[i] = map[string]string{"text": text}
	}
	raw, _ := json.Marshal(map[string]any{
		"candidates": []map[string]any{
			{"content": map[string]any{"parts": parts}},
		},
	})
	return string(raw)
}

func TestAnalyzeTextRequestShape(t *testing.T) {
	var gotPath, gotKey string
	var gotBody []byte
	client := newTestClient(t, 1, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-goog-api-key")
		gotBody, _ = io.ReadAll(r.Body)
		fmt.Fprint(w, candidateResponse("###TITLE###\nT"))
	})

	analysis, err := NewAnalyzer(client).AnalyzeText(context.Background(), "page text here", "notes.pdf")
	if err != nil {
		t.Fatalf("AnalyzeText() error = %v", err)
	}
	if analysis != "###TITLE###\nT" {
		t.Fatalf("AnalyzeText() = %q", analysis)
	}
	if gotPath != "/v1beta/models/gen-model:generateContent" {
		t.Errorf("request path = %q", gotPath)
	}
	if gotKey != "test-key" {
		t.Errorf("api key header = %q", gotKey)
	}

	var req generateRequest
	if err := json.Unmarshal(gotBody, &req); err != nil {
		t.Fatalf("request body is not valid JSON: %v", err)
	}
	if len(req.Contents) != 1 || len(req.Contents[0].Parts) != 1 {
		t.Fatalf("request contents = %+v", req.Contents)
	}
	prompt := req.Contents[0].Parts[0].Text
	if !strings.Contains(prompt, "page text here") || !strings.Contains(prompt, "notes.pdf") {
		t.Errorf("prompt does not carry the text and filename: %q", prompt)
	}
}

func TestGenerateConcatenatesFirstCandidateParts(t *testing.T) {
	client := newTestClient(t, 1, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, candidateResponse("first ", "second"))
	})
	got, err := NewAnalyzer(client).AnalyzeText(context.Background(), "x", "f")
	if err != nil {
		t.Fatalf("AnalyzeText() error = %v", err)
	}
	if got != "first second" {
		t.Fatalf("got %q", got)
	}
}

func TestGenerateNoCandidatesIsAnalysisFailure(t *testing.T) {
	client := newTestClient(t, 1, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"candidates":[]}`)
	})
	_, err := NewAnalyzer(client).AnalyzeText(context.Background(), "x", "f")
	if !domain.IsKind(err, domain.ErrAnalysisFailed) {
		t.Fatalf("error = %v, want analysis-failed kind", err)
	}
}

func TestHTTPErrorCarriesStatusAndBody(t *testing.T) {
	client := newTestClient(t, 1, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":{"message":"invalid argument"}}`)
	})
	_, err := NewAnalyzer(client).AnalyzeText(context.Background(), "x", "f")

	var httpErr *HTTPStatusError
	if !errors.As(err, &httpErr) {
		t.Fatalf("error = %v, want *HTTPStatusError", err)
	}
	if httpErr.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d", httpErr.StatusCode)
	}
	if !strings.Contains(httpErr.Body, "invalid argument") {
		t.Errorf("body not captured: %q", httpErr.Body)
	}
}

func TestRetriesRateLimitedRequests(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, 3, func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, candidateResponse("ok"))
	})

	got, err := NewAnalyzer(client).AnalyzeText(context.Background(), "x", "f")
	if err != nil {
		t.Fatalf("AnalyzeText() error = %v", err)
	}
	if got != "ok" || calls.Load() != 2 {
		t.Fatalf("got %q after %d calls, want ok after 2", got, calls.Load())
	}
}

func TestDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, 3, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	})

	if _, err := NewAnalyzer(client).AnalyzeText(context.Background(), "x", "f"); err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != 1 {
		t.Fatalf("400 retried %d times", calls.Load())
	}
}

func TestEmbedBatch(t *testing.T) {
	var gotPath string
	var gotBody []byte
	client := newTestClient(t, 1, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotBody, _ = io.ReadAll(r.Body)
		fmt.Fprint(w, `{"embeddings":[{"values":[1,2]},{"values":[3,4]}]}`)
	})

	vectors, err := NewEmbedder(client).Embed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if gotPath != "/v1beta/models/embed-model:batchEmbedContents" {
		t.Errorf("request path = %q", gotPath)
	}
	if len(vectors) != 2 || vectors[1][0] != 3 {
		t.Fatalf("vectors = %v", vectors)
	}

	var req struct {
		Requests []embedRequest `json:"requests"`
	}
	if err := json.Unmarshal(gotBody, &req); err != nil {
		t.Fatalf("request body is not valid JSON: %v", err)
	}
	if len(req.Requests) != 2 || req.Requests[0].Model != "models/embed-model" {
		t.Fatalf("embed requests = %+v", req.Requests)
	}
}

func TestEmbedEmptyInputSkipsTheNetwork(t *testing.T) {
	client := newTestClient(t, 1, func(http.ResponseWriter, *http.Request) {
		t.Error("unexpected request for empty input")
	})
	vectors, err := NewEmbedder(client).Embed(context.Background(), nil)
	if err != nil || vectors != nil {
		t.Fatalf("Embed(nil) = %v, %v", vectors, err)
	}
}

func TestRefineQueryWithoutHistoryPassesThrough(t *testing.T) {
	client := newTestClient(t, 1, func(http.ResponseWriter, *http.Request) {
		t.Error("unexpected request without history")
	})
	got, err := NewRefiner(client).RefineQuery(context.Background(), "raw", nil)
	if err != nil || got != "raw" {
		t.Fatalf("RefineQuery() = %q, %v", got, err)
	}
}

func TestRefineQueryFailureFallsBackToOriginal(t *testing.T) {
	client := newTestClient(t, 1, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	history := []domain.Exchange{{Question: "q", Answer: "a"}}
	got, err := NewRefiner(client).RefineQuery(context.Background(), "raw", history)
	if err != nil || got != "raw" {
		t.Fatalf("RefineQuery() = %q, %v; failures must fall back", got, err)
	}
}

func TestGenerateJSONRequestsJSONModeAndUnwraps(t *testing.T) {
	var gotBody []byte
	client := newTestClient(t, 1, func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		fmt.Fprint(w, candidateResponse("Here you go: {\"path_title\":\"T\"} done"))
	})

	got, err := NewGenerator(client).GenerateJSON(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("GenerateJSON() error = %v", err)
	}
	if got != `{"path_title":"T"}` {
		t.Fatalf("GenerateJSON() = %q", got)
	}

	var req generateRequest
	if err := json.Unmarshal(gotBody, &req); err != nil {
		t.Fatalf("request body is not valid JSON: %v", err)
	}
	if req.GenerationConfig == nil || req.GenerationConfig.ResponseMimeType != "application/json" {
		t.Errorf("generationConfig = %+v, want JSON response mode", req.GenerationConfig)
	}
}

func TestGenerateHTMLStripsCodeFence(t *testing.T) {
	client := newTestClient(t, 1, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, candidateResponse("```html\n<section>hi</section>\n```"))
	})
	got, err := NewGenerator(client).GenerateHTML(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("GenerateHTML() error = %v", err)
	}
	if got != "<section>hi</section>" {
		t.Fatalf("GenerateHTML() = %q", got)
	}
}
