package flat

import "strings"

const snippetLength = 250

// Snippet extracts a window of content around the first case-insensitive
// occurrence of query, with ellipsis markers on whichever sides were
// truncated. No match yields the leading window.
func Snippet(content, query string) string {
	if content == "" {
		return ""
	}
	if query == "" {
		if len(content) <= snippetLength {
			return content
		}
		return content[:snippetLength] + "..."
	}

	start := 0
	if pos := strings.Index(strings.ToLower(content), strings.ToLower(query)); pos >= 0 {
		start = pos - snippetLength/2
		if start < 0 {
			start = 0
		}
	}
	end := start + snippetLength
	if end > len(content) {
		end = len(content)
	}

	out := content[start:end]
	if start > 0 {
		out = "..." + out
	}
	if end < len(content) {
		out = out + "..."
	}
	return out
}
