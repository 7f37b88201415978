package gemini

import (
	"errors"
	"strings"
	"testing"
)

// ════════════════════════════════════════════════════════════════════
// envelope.go: ExtractText
// ════════════════════════════════════════════════════════════════════

func TestExtractText(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "single part",
			raw:  `{"candidates":[{"content":{"parts":[{"text":"{\"ticker\":\"AAPL\"}"}]}}]}`,
			want: `{"ticker":"AAPL"}`,
		},
		{
			name: "parts concatenated in order",
			raw:  `{"candidates":[{"content":{"parts":[{"text":"{\"a\":"},{"text":"1}"}]}}]}`,
			want: `{"a":1}`,
		},
		{
			name: "only first candidate is used",
			raw:  `{"candidates":[{"content":{"parts":[{"text":"first"}]}},{"content":{"parts":[{"text":"second"}]}}]}`,
			want: "first",
		},
		{
			name: "non-text parts skipped",
			raw:  `{"candidates":[{"content":{"parts":[{"inlineData":{}},{"text":"hello"}]}}]}`,
			want: "hello",
		},
		{
			name: "unknown fields ignored",
			raw:  `{"candidates":[{"content":{"parts":[{"text":"x"}],"role":"model"},"finishReason":"STOP","index":0}],"usageMetadata":{"totalTokenCount":3},"modelVersion":"v"}`,
			want: "x",
		},
		{
			name: "text wins over block reason",
			raw:  `{"candidates":[{"content":{"parts":[{"text":"partial"}]}}],"promptFeedback":{"blockReason":"SAFETY"}}`,
			want: "partial",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractText(tt.raw)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractTextBlocked(t *testing.T) {
	raw := `{"promptFeedback":{"blockReason":"SAFETY","safetyRatings":[{"category":"HARM_CATEGORY_DANGEROUS_CONTENT","probability":"HIGH"}]}}`

	_, err := ExtractText(raw)
	var be *BlockedContentError
	if !errors.As(err, &be) {
		t.Fatalf("expected *BlockedContentError, got %T: %v", err, err)
	}
	if be.Reason != "SAFETY" {
		t.Errorf("reason: got %q", be.Reason)
	}
	if !strings.Contains(be.SafetyDetails, "HARM_CATEGORY_DANGEROUS_CONTENT") {
		t.Errorf("safety details: got %q", be.SafetyDetails)
	}
}

func TestExtractTextBlockedWithoutRatings(t *testing.T) {
	_, err := ExtractText(`{"candidates":[],"promptFeedback":{"blockReason":"OTHER"}}`)
	var be *BlockedContentError
	if !errors.As(err, &be) {
		t.Fatalf("expected *BlockedContentError, got %T: %v", err, err)
	}
	if be.SafetyDetails != "N/A" {
		t.Errorf("safety details: got %q, want N/A", be.SafetyDetails)
	}
}

func TestExtractTextEmptyPartWithBlockReason(t *testing.T) {
	for _, raw := range []string{
		`{"candidates":[{"content":{"parts":[{"text":""}]}}],"promptFeedback":{"blockReason":"SAFETY"}}`,
		`{"candidates":[{"content":{"parts":[{"text":""}]},"finishReason":"SAFETY"}]}`,
	} {
		text, err := ExtractText(raw)
		var be *BlockedContentError
		if !errors.As(err, &be) {
			t.Errorf("%s: expected *BlockedContentError, got text=%q err=%v", raw, text, err)
			continue
		}
		if be.Reason != "SAFETY" {
			t.Errorf("%s: reason: got %q", raw, be.Reason)
		}
	}
}

func TestExtractTextBlockingFinishReason(t *testing.T) {
	raw := `{"candidates":[{"finishReason":"SAFETY","safetyRatings":[{"category":"HARM_CATEGORY_HARASSMENT","probability":"MEDIUM"}]}]}`

	_, err := ExtractText(raw)
	var be *BlockedContentError
	if !errors.As(err, &be) {
		t.Fatalf("expected *BlockedContentError, got %T: %v", err, err)
	}
	if be.Reason != "SAFETY" || !strings.Contains(be.SafetyDetails, "HARASSMENT") {
		t.Errorf("unexpected blocked error: %+v", be)
	}
}

func TestExtractTextNoContent(t *testing.T) {
	for _, raw := range []string{
		`{"candidates":[]}`,
		`{}`,
		`{"candidates":[{"content":{"parts":[]}}]}`,
		`{"candidates":[{"finishReason":"MAX_TOKENS"}]}`,
		`{"candidates":"not-a-list"}`,
		`{"candidates":[{"content":{"parts":[{"text":""}]}}]}`,
		`{"candidates":[{"content":{"parts":[{"text":""},{"text":""}]},"finishReason":"STOP"}]}`,
	} {
		_, err := ExtractText(raw)
		var nc *NoContentError
		if !errors.As(err, &nc) {
			t.Errorf("%s: expected *NoContentError, got %T: %v", raw, err, err)
			continue
		}
		if nc.RawEnvelope != raw {
			t.Errorf("%s: raw envelope not kept", raw)
		}
	}
}

func TestExtractTextMalformed(t *testing.T) {
	for _, raw := range []string{
		`not json`,
		`{"candidates":[`,
		`[]`,
		`null`,
		`"text"`,
	} {
		_, err := ExtractText(raw)
		var me *MalformedEnvelopeError
		if !errors.As(err, &me) {
			t.Errorf("%q: expected *MalformedEnvelopeError, got %T: %v", raw, err, err)
		}
	}
}
