package domain

import "strings"

// Section markers in the analysis model's delimited output. A section runs
// from its marker to the next "###" occurrence or end of text.
const (
	SectionTitle        = "TITLE"
	SectionQuestions    = "QUESTIONS"
	SectionTopics       = "TOPICS"
	SectionEnhancedText = "ENHANCED_TEXT"

	sectionBoundary = "###"
)

// Analysis is the structured form of one unit's analysis blob, parsed once
// right after the model call returns instead of re-splitting the raw text at
// every use site.
type Analysis struct {
	Title        string
	Questions    string
	Topics       string
	EnhancedText string
	Raw          string
}

// ParseAnalysis splits a delimited analysis blob into its sections. Missing
// markers yield empty fields except EnhancedText, which falls back to the
// whole blob so every unit keeps searchable content.
func ParseAnalysis(raw string) Analysis {
	return Analysis{
		Title:        ExtractSection(raw, SectionTitle),
		Questions:    ExtractSection(raw, SectionQuestions),
		Topics:       ExtractSection(raw, SectionTopics),
		EnhancedText: EnhancedText(raw),
		Raw:          raw,
	}
}

// ExtractSection returns the named section's content, or "" when the marker
// is absent.
func ExtractSection(text, name string) string {
	marker := sectionBoundary + name + sectionBoundary
	start := strings.Index(text, marker)
	if start < 0 {
		return ""
	}
	start += len(marker)
	rest := text[start:]
	if end := strings.Index(rest, sectionBoundary); end >= 0 {
		rest = rest[:end]
	}
	return strings.TrimSpace(rest)
}

// EnhancedText extracts the canonical embedding input of an analysis blob.
// Unlike ExtractSection it degrades to the entire blob when the marker is
// missing.
func EnhancedText(raw string) string {
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, sectionBoundary+SectionEnhancedText+sectionBoundary) {
		return strings.TrimSpace(raw)
	}
	return ExtractSection(raw, SectionEnhancedText)
}
