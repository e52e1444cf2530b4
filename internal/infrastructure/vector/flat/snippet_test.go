package flat

import (
	"strings"
	"testing"
)

func TestSnippetCentersOnMatch(t *testing.T) {
	content := strings.Repeat("a", 500) + "needle" + strings.Repeat("b", 494)
	got := Snippet(content, "NEEDLE")

	if !strings.HasPrefix(got, "...") || !strings.HasSuffix(got, "...") {
		t.Fatalf("expected ellipses on both sides, got %q", got)
	}
	body := strings.TrimSuffix(strings.TrimPrefix(got, "..."), "...")
	if len(body) != snippetLength {
		t.Fatalf("snippet body length = %d, want %d", len(body), snippetLength)
	}
	if !strings.Contains(body, "needle") {
		t.Fatalf("snippet does not contain the match: %q", body)
	}
}

func TestSnippetMatchNearStart(t *testing.T) {
	content := "needle" + strings.Repeat("x", 1000)
	got := Snippet(content, "needle")
	if strings.HasPrefix(got, "...") {
		t.Fatalf("unexpected leading ellipsis for match at offset 0: %q", got)
	}
	if !strings.HasSuffix(got, "...") {
		t.Fatalf("expected trailing ellipsis: %q", got)
	}
}

func TestSnippetNoMatchUsesLeadingWindow(t *testing.T) {
	content := strings.Repeat("y", 400)
	got := Snippet(content, "absent")
	if !strings.HasSuffix(got, "...") {
		t.Fatalf("expected trailing ellipsis: %q", got)
	}
	if len(got) != snippetLength+3 {
		t.Fatalf("len = %d, want %d", len(got), snippetLength+3)
	}
}

func TestSnippetShortContentReturnedWhole(t *testing.T) {
	if got := Snippet("short text", ""); got != "short text" {
		t.Fatalf("got %q", got)
	}
	if got := Snippet("", "q"); got != "" {
		t.Fatalf("got %q", got)
	}
}
