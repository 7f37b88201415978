package analysis

import "strings"

const fence = "```"

// RecoverJSON pulls a JSON object out of a model reply that may be wrapped in
// a markdown code fence and surrounded by prose.
//
// It returns the substring from the first '{' to the last '}' inclusive and
// true. When no such pair exists it returns the trimmed input and false, and
// leaves the verdict to the decoder. RecoverJSON is idempotent.
func RecoverJSON(text string) (string, bool) {
	trimmed := strings.TrimSpace(text)
	body := stripFence(trimmed)

	start := strings.Index(body, "{")
	end := strings.LastIndex(body, "}")
	if start < 0 || end < start {
		return trimmed, false
	}
	return body[start : end+1], true
}

// stripFence removes an opening ``` line (including any language tag) and a
// closing ``` if present.
func stripFence(s string) string {
	if !strings.HasPrefix(s, fence) {
		return s
	}
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, fence)
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, fence)
	return strings.TrimSpace(s)
}
