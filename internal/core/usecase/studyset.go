package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shehbaz-7/Learnwave/internal/core/domain"
	"github.com/shehbaz-7/Learnwave/internal/core/ports"
)

// StudySet generates quizzes, flashcards and answer explanations over a
// document's analyzed text. Pure model calls over record-store content, no
// index involvement.
type StudySet struct {
	partitions ports.PartitionProvider
	generator  ports.AnswerGenerator
	logger     *slog.Logger
}

type StudySetRequest struct {
	DocumentID    int64
	SetType       string // "quiz" or "flashcards"
	Difficulty    string // "easy", "medium", "hard"
	QuestionCount int
}

func NewStudySet(partitions ports.PartitionProvider, generator ports.AnswerGenerator, logger *slog.Logger) *StudySet {
	if logger == nil {
		logger = slog.Default()
	}
	return &StudySet{partitions: partitions, generator: generator, logger: logger}
}

// Generate returns the raw study-set JSON produced by the model. The JSON
// shape depends on the requested set type; callers pass it through to their
// consumers untouched.
func (uc *StudySet) Generate(ctx context.Context, req StudySetRequest) (json.RawMessage, error) {
	if req.QuestionCount <= 0 {
		req.QuestionCount = 10
	}

	doc, text, err := uc.documentText(ctx, req.DocumentID)
	if err != nil {
		return nil, err
	}

	raw, err := uc.generator.GenerateJSON(ctx, buildStudySetPrompt(doc.Name, text, req))
	if err != nil {
		return nil, fmt.Errorf("generate study set: %w", err)
	}
	if !json.Valid([]byte(raw)) {
		return nil, domain.WrapError(domain.ErrAnalysisFailed, "generate study set",
			fmt.Errorf("model returned invalid json"))
	}
	return json.RawMessage(raw), nil
}

// Explain returns a one-sentence explanation for why an answer is correct,
// grounded only in the document's text.
func (uc *StudySet) Explain(ctx context.Context, documentID int64, question, correctAnswer string) (string, error) {
	_, text, err := uc.documentText(ctx, documentID)
	if err != nil {
		return "", err
	}
	explanation, err := uc.generator.GenerateAnswer(ctx,
		buildExplanationPrompt(question, correctAnswer, text), nil)
	if err != nil {
		return "", fmt.Errorf("generate explanation: %w", err)
	}
	return explanation, nil
}

func (uc *StudySet) documentText(ctx context.Context, documentID int64) (*domain.Document, string, error) {
	master, err := uc.partitions.Open(ctx, uc.partitions.Master())
	if err != nil {
		return nil, "", fmt.Errorf("open master partition: %w", err)
	}
	doc, err := master.Documents().GetByID(ctx, documentID)
	if err != nil {
		return nil, "", fmt.Errorf("load document: %w", err)
	}
	units, err := master.Units().ListByDocument(ctx, documentID)
	if err != nil {
		return nil, "", fmt.Errorf("load units: %w", err)
	}

	var text strings.Builder
	for _, u := range units {
		if enhanced := domain.EnhancedText(u.Analysis); enhanced != "" {
			text.WriteString(enhanced)
			text.WriteString(" ")
		}
	}
	if strings.TrimSpace(text.String()) == "" {
		return nil, "", domain.WrapError(domain.ErrInvalidInput, "study set",
			fmt.Errorf("document %d has no analyzed content", documentID))
	}
	return doc, text.String(), nil
}

func buildStudySetPrompt(docName, text string, req StudySetRequest) string {
	const maxContent = 25000
	if len(text) > maxContent {
		text = text[:maxContent]
	}

	var typeSpec string
	if req.SetType == "quiz" {
		typeSpec = fmt.Sprintf(`- "questions": an array of exactly %d unique multiple-choice question objects, each with "question_text", "options" (array of 4 strings) and "correct_answer" (the string exactly matching the correct option).`, req.QuestionCount)
	} else {
		typeSpec = fmt.Sprintf(`- "flashcards": an array of exactly %d unique flashcard objects, each with "front" (term, concept or question) and "back" (definition, explanation or answer).`, req.QuestionCount)
	}

	difficulty := map[string]string{
		"easy":   "definitions and key terms",
		"medium": "understanding of core concepts and processes",
		"hard":   "application, analysis, and synthesis of different concepts",
	}[req.Difficulty]
	if difficulty == "" {
		difficulty = "understanding of core concepts"
	}

	return fmt.Sprintf(`Your Role: You are a study-aid generator. Produce a valid JSON object from the document text below.

Source Document: %q
Target difficulty: questions should test %s.

JSON Output Requirements:
%s

---
DOCUMENT TEXT:
%s`, docName, difficulty, typeSpec, text)
}

func buildExplanationPrompt(question, correctAnswer, text string) string {
	const maxContent = 25000
	if len(text) > maxContent {
		text = text[:maxContent]
	}
	return fmt.Sprintf(`Based only on the provided document text, give a concise, one-sentence explanation for why the answer to the following question is correct.

Document Text:
%s

Question: %q
Correct Answer: %q`, text, question, correctAnswer)
}
