package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/shehbaz-7/Learnwave/internal/core/domain"
	"github.com/shehbaz-7/Learnwave/internal/core/ports"
)

const defaultTopK = 5

// Query answers questions against the master partition's index. Retrieval
// degrades rather than fails: a refinement error falls back to the raw
// query, and search problems yield an uncited answer instead of an error.
type Query struct {
	partitions ports.PartitionProvider
	refiner    ports.QueryRefiner
	generator  ports.AnswerGenerator
	logger     *slog.Logger

	histMu  sync.Mutex
	history []domain.Exchange
	maxHist int
}

func NewQuery(partitions ports.PartitionProvider, refiner ports.QueryRefiner, generator ports.AnswerGenerator, logger *slog.Logger) *Query {
	if logger == nil {
		logger = slog.Default()
	}
	return &Query{
		partitions: partitions,
		refiner:    refiner,
		generator:  generator,
		logger:     logger,
		maxHist:    6,
	}
}

func (uc *Query) Search(ctx context.Context, query string, topK int, filter domain.SearchFilter) ([]domain.SearchResult, error) {
	if topK <= 0 {
		topK = defaultTopK
	}
	master, err := uc.partitions.Open(ctx, uc.partitions.Master())
	if err != nil {
		return nil, fmt.Errorf("open master partition: %w", err)
	}
	return master.Index().Search(ctx, query, topK, filter)
}

func (uc *Query) Answer(ctx context.Context, question string, filter domain.SearchFilter) (*domain.Answer, error) {
	searchQuery, err := uc.refiner.RefineQuery(ctx, question, uc.recentHistory())
	if err != nil || searchQuery == "" {
		searchQuery = question
	}

	sources, err := uc.Search(ctx, searchQuery, defaultTopK, filter)
	if err != nil {
		uc.logger.Error("retrieval failed, answering without context", "error", err)
		sources = nil
	}

	text, err := uc.generator.GenerateAnswer(ctx, question, sources)
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}

	uc.remember(question, text)
	return &domain.Answer{Text: text, Sources: sources}, nil
}

func (uc *Query) recentHistory() []domain.Exchange {
	uc.histMu.Lock()
	defer uc.histMu.Unlock()
	out := make([]domain.Exchange, len(uc.history))
	copy(out, uc.history)
	return out
}

func (uc *Query) remember(question, answer string) {
	uc.histMu.Lock()
	defer uc.histMu.Unlock()
	uc.history = append(uc.history, domain.Exchange{Question: question, Answer: answer})
	if len(uc.history) > uc.maxHist {
		uc.history = uc.history[len(uc.history)-uc.maxHist:]
	}
}
