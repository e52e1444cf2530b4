package gemini

import (
	"fmt"
	"strings"

	"github.com/shehbaz-7/Learnwave/internal/core/domain"
)

const analysisFieldSpec = `###TITLE###
(A concise, descriptive title for this content. Max 10 words.)
###QUESTIONS###
(3-5 implicit questions this content answers, the questions a user would ask to find it.)
###TOPICS###
(A comma-separated list of the main keywords, concepts and named entities.)
###ENHANCED_TEXT###
(The most critical part for vector search. Start with the exact phrase "Source Filename: %s". Then provide a detailed, comprehensive description of the content, rich enough to fully represent it for embedding.)`

func buildPageAnalysisPrompt(pageText, filename string) string {
	return fmt.Sprintf(`Your Role: You are an automated indexing agent. You analyze and structure content so it can be embedded and discovered in a semantic vector database.
Your Task: Analyze the document page text below and fill in the fields exactly as specified.
Source Filename: %s

%s
---
TEXT TO ANALYZE:
%s`, filename, fmt.Sprintf(analysisFieldSpec, filename), pageText)
}

func buildExcerptAnalysisPrompt(page int, filename string) string {
	return fmt.Sprintf(`Your Role: You are an automated indexing agent with OCR capabilities. You analyze and structure content from a PDF page so it can be embedded and discovered in a semantic vector database.
Your Task: Read page %d of the attached PDF. Transcribe all visible text and describe any images, diagrams or structural elements, then fill in the fields exactly as specified.
Source Filename: %s

%s`, page, filename, fmt.Sprintf(analysisFieldSpec, filename))
}

func buildTranscriptAnalysisPrompt() string {
	return `You are a video indexing agent. Watch the provided video and create a detailed, time-stamped summary.
Follow these instructions precisely:
1. Divide the video into logical segments, each approximately 60-90 seconds long.
2. For each segment, create a block of text.
3. Each block MUST start with the line ###SEGMENT### followed on the next line by "Timestamp: <start time as HH:MM:SS>".
4. After the timestamp, provide a detailed summary of that segment: key spoken points, visual elements, and any text shown on screen.`
}

func buildRefinePrompt(query string, history []domain.Exchange) string {
	var historyBuilder strings.Builder
	for _, exchange := range history {
		fmt.Fprintf(&historyBuilder, "User: %s\nAssistant: %s\n", exchange.Question, exchange.Answer)
	}

	return fmt.Sprintf(`Based on the conversation history and the latest user query, generate a single comprehensive search query capturing the user's full intent, optimized for a semantic vector database search.

Conversation History:
%s
Latest User Query: %q

Optimized Search Query:`, historyBuilder.String(), query)
}

func buildAnswerPrompt(question string, sources []domain.SearchResult) string {
	var contextBuilder strings.Builder
	if len(sources) == 0 {
		contextBuilder.WriteString("No relevant context found.\n")
	}
	for _, src := range sources {
		fmt.Fprintf(&contextBuilder,
			"Context from Document ID %d, Unit %d:\n%s\n[CITATION:%d:%d]\n\n",
			src.DocumentID, src.Ordinal, src.Content, src.DocumentID, src.Ordinal)
	}

	return fmt.Sprintf(`You answer user questions from the CONTEXT below, supplementing gaps with your own knowledge when necessary.

CONTEXT:
%s
USER QUESTION:
%q

INSTRUCTIONS:
1. Use the CONTEXT as your primary base. Cite every fact drawn from it as [CITATION:document_id:unit] placed immediately after the sentence's punctuation.
2. When the context is partial, expand on it with your own knowledge, but never cite your own knowledge.
3. If the context contains no relevant information, say so before answering from general knowledge.
4. Format the answer in clear Markdown.`, contextBuilder.String(), question)
}
