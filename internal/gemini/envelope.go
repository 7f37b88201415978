package gemini

import (
	"encoding/json"
	"fmt"
	"strings"
)

// blockingFinishReasons are candidate finish reasons that mean the provider
// withheld the answer.
var blockingFinishReasons = map[string]bool{
	"SAFETY":             true,
	"BLOCKLIST":          true,
	"PROHIBITED_CONTENT": true,
	"SPII":               true,
	"RECITATION":         true,
}

// ExtractText returns the model's text from a generateContent envelope.
//
// Only the first candidate is read; its parts' text values are concatenated
// in order. Empty text is never a result: a prompt-level blockReason, or a
// blocking finishReason on the first candidate, yields *BlockedContentError. An envelope
// with neither text nor a block indicator yields *NoContentError, and a body
// that is not a JSON object yields *MalformedEnvelopeError.
//
// The envelope is walked as a generic tree so that unknown or missing fields
// never fail the parse.
func ExtractText(raw string) (string, error) {
	var doc any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return "", &MalformedEnvelopeError{Cause: err}
	}
	root, ok := doc.(map[string]any)
	if !ok {
		return "", &MalformedEnvelopeError{Cause: fmt.Errorf("envelope is %s, not an object", jsonKind(doc))}
	}

	candidate := firstCandidate(root)
	if text := candidateText(candidate); text != "" {
		return text, nil
	}

	if feedback, ok := root["promptFeedback"].(map[string]any); ok {
		if reason, _ := feedback["blockReason"].(string); reason != "" {
			return "", &BlockedContentError{
				Reason:        reason,
				SafetyDetails: safetyDetails(feedback["safetyRatings"]),
			}
		}
	}
	if candidate != nil {
		if reason, _ := candidate["finishReason"].(string); blockingFinishReasons[reason] {
			return "", &BlockedContentError{
				Reason:        reason,
				SafetyDetails: safetyDetails(candidate["safetyRatings"]),
			}
		}
	}

	return "", &NoContentError{RawEnvelope: raw}
}

func firstCandidate(root map[string]any) map[string]any {
	candidates, _ := root["candidates"].([]any)
	if len(candidates) == 0 {
		return nil
	}
	c, _ := candidates[0].(map[string]any)
	return c
}

// candidateText concatenates content.parts[*].text.
func candidateText(candidate map[string]any) string {
	if candidate == nil {
		return ""
	}
	content, _ := candidate["content"].(map[string]any)
	parts, _ := content["parts"].([]any)

	var sb strings.Builder
	for _, p := range parts {
		part, _ := p.(map[string]any)
		if text, ok := part["text"].(string); ok {
			sb.WriteString(text)
		}
	}
	return sb.String()
}

func safetyDetails(ratings any) string {
	if ratings == nil {
		return "N/A"
	}
	b, err := json.Marshal(ratings)
	if err != nil {
		return "N/A"
	}
	return string(b)
}

func jsonKind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case []any:
		return "an array"
	case string:
		return "a string"
	case float64:
		return "a number"
	case bool:
		return "a boolean"
	default:
		return fmt.Sprintf("%T", v)
	}
}
