// Package gemini implements the analysis, embedding and generation ports
// against the Gemini REST API.
package gemini

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/shehbaz-7/Learnwave/internal/core/domain"
	"github.com/shehbaz-7/Learnwave/internal/infrastructure/resilience"
)

type Client struct {
	baseURL    string
	apiKey     string
	genModel   string
	embedModel string
	httpClient *http.Client
	limiter    *rate.Limiter
	exec       *resilience.Executor
}

// New builds a shared client. requestsPerSecond throttles every outbound
// call because the analysis worker pool fans out aggressively.
func New(baseURL, apiKey, genModel, embedModel string, requestsPerSecond float64, exec *resilience.Executor) *Client {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 2
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		genModel:   genModel,
		embedModel: embedModel,
		httpClient: &http.Client{Timeout: 180 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
		exec:       exec,
	}
}

type Analyzer struct {
	client *Client
}

func NewAnalyzer(client *Client) *Analyzer {
	return &Analyzer{client: client}
}

func (a *Analyzer) AnalyzeText(ctx context.Context, text, filename string) (string, error) {
	return a.client.generateText(ctx, "analyze_text", []part{
		{Text: buildPageAnalysisPrompt(text, filename)},
	})
}

// AnalyzeExcerpt sends the staged source bytes inline and directs the model
// at one page, for pages whose extracted text was too thin to analyze.
func (a *Analyzer) AnalyzeExcerpt(ctx context.Context, excerptPath string, page int, filename string) (string, error) {
	raw, err := os.ReadFile(excerptPath)
	if err != nil {
		return "", fmt.Errorf("read excerpt: %w", err)
	}
	return a.client.generateText(ctx, "analyze_excerpt", []part{
		{Text: buildExcerptAnalysisPrompt(page, filename)},
		{InlineData: &inlineData{
			MimeType: "application/pdf",
			Data:     base64.StdEncoding.EncodeToString(raw),
		}},
	})
}

func (a *Analyzer) AnalyzeTranscript(ctx context.Context, videoURL string) (string, error) {
	return a.client.generateText(ctx, "analyze_transcript", []part{
		{Text: buildTranscriptAnalysisPrompt()},
		{FileData: &fileData{FileURI: videoURL}},
	})
}

type Embedder struct {
	client *Client
}

func NewEmbedder(client *Client) *Embedder {
	return &Embedder{client: client}
}

func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	requests := make([]embedRequest, len(texts))
	for i, text := range texts {
		requests[i] = embedRequest{
			Model:   "models/" + e.client.embedModel,
			Content: content{Parts: []part{{Text: text}}},
		}
	}

	var response struct {
		Embeddings []struct {
			Values []float32 `json:"values"`
		} `json:"embeddings"`
	}
	path := fmt.Sprintf("/v1beta/models/%s:batchEmbedContents", e.client.embedModel)
	err := e.client.call(ctx, "embed", path, map[string]any{"requests": requests}, &response)
	if err != nil {
		return nil, err
	}

	vectors := make([][]float32, len(response.Embeddings))
	for i, emb := range response.Embeddings {
		vectors[i] = emb.Values
	}
	return vectors, nil
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("empty embedding result")
	}
	return vectors[0], nil
}

type Refiner struct {
	client *Client
}

func NewRefiner(client *Client) *Refiner {
	return &Refiner{client: client}
}

// RefineQuery rewrites a conversational follow-up into a standalone search
// query. Any failure degrades to the original query; refinement is an
// optimization, never a gate.
func (r *Refiner) RefineQuery(ctx context.Context, query string, history []domain.Exchange) (string, error) {
	if len(history) == 0 {
		return query, nil
	}
	refined, err := r.client.generateText(ctx, "refine_query", []part{
		{Text: buildRefinePrompt(query, history)},
	})
	if err != nil || strings.TrimSpace(refined) == "" {
		return query, nil
	}
	return strings.TrimSpace(refined), nil
}

type Generator struct {
	client *Client
}

func NewGenerator(client *Client) *Generator {
	return &Generator{client: client}
}

func (g *Generator) GenerateAnswer(ctx context.Context, question string, sources []domain.SearchResult) (string, error) {
	return g.client.generateText(ctx, "generate_answer", []part{
		{Text: buildAnswerPrompt(question, sources)},
	})
}

func (g *Generator) GenerateJSON(ctx context.Context, prompt string) (string, error) {
	raw, err := g.client.generate(ctx, "generate_json", generateRequest{
		Contents:         []content{{Parts: []part{{Text: prompt}}}},
		GenerationConfig: &generationConfig{ResponseMimeType: "application/json"},
	})
	if err != nil {
		return "", err
	}
	return extractJSONObject(raw), nil
}

func (g *Generator) GenerateHTML(ctx context.Context, prompt string) (string, error) {
	raw, err := g.client.generateText(ctx, "generate_html", []part{{Text: prompt}})
	if err != nil {
		return "", err
	}
	return stripCodeFence(raw), nil
}

func (c *Client) generateText(ctx context.Context, operation string, parts []part) (string, error) {
	return c.generate(ctx, operation, generateRequest{
		Contents: []content{{Parts: parts}},
	})
}

func (c *Client) generate(ctx context.Context, operation string, req generateRequest) (string, error) {
	var response struct {
		Candidates []struct {
			Content content `json:"content"`
		} `json:"candidates"`
	}
	path := fmt.Sprintf("/v1beta/models/%s:generateContent", c.genModel)
	if err := c.call(ctx, operation, path, req, &response); err != nil {
		return "", err
	}

	var out strings.Builder
	for _, candidate := range response.Candidates {
		for _, p := range candidate.Content.Parts {
			out.WriteString(p.Text)
		}
		break
	}
	text := strings.TrimSpace(out.String())
	if text == "" {
		return "", domain.WrapError(domain.ErrAnalysisFailed, operation,
			fmt.Errorf("model returned no candidates"))
	}
	return text, nil
}

func extractJSONObject(raw string) string {
	start := strings.IndexAny(raw, "{[")
	end := strings.LastIndexAny(raw, "}]")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}

// stripCodeFence unwraps a ```html ... ``` block when the model adds one.
func stripCodeFence(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```html")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
