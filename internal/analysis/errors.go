package analysis

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/seenimoa/stocklens/internal/gemini"
	"github.com/seenimoa/stocklens/pkg/models"
)

// ErrorCode classifies analysis failures for callers that need to react to
// the kind of error rather than its text.
type ErrorCode string

const (
	ErrCodeInvalidInput      ErrorCode = "INVALID_INPUT"
	ErrCodeConfiguration     ErrorCode = "CONFIGURATION_ERROR"
	ErrCodeTransport         ErrorCode = "TRANSPORT_ERROR"
	ErrCodeEmptyResponse     ErrorCode = "EMPTY_RESPONSE"
	ErrCodeMalformedEnvelope ErrorCode = "MALFORMED_ENVELOPE"
	ErrCodeBlockedContent    ErrorCode = "BLOCKED_CONTENT"
	ErrCodeNoContent         ErrorCode = "NO_CONTENT"
	ErrCodeDecode            ErrorCode = "DECODE_ERROR"
	ErrCodeInternal          ErrorCode = "INTERNAL_ERROR"
)

// IsClientError reports whether the caller, not the system, is at fault.
func (c ErrorCode) IsClientError() bool {
	return c == ErrCodeInvalidInput || c == ErrCodeConfiguration
}

// HTTPStatus maps the code to a response status.
func (c ErrorCode) HTTPStatus() int {
	if c.IsClientError() {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// InputError reports a request that cannot be analyzed, such as an empty ticker.
type InputError struct {
	Message string
}

func (e *InputError) Error() string { return e.Message }

// ConfigError reports missing or placeholder credentials.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string { return e.Message }

// DecodeError reports recovered text that does not satisfy the analysis schema.
// RawText is kept for logs only.
type DecodeError struct {
	RawText string
	Cause   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode analysis JSON: %v", e.Cause)
}

func (e *DecodeError) Unwrap() error { return e.Cause }

// Stage names a step of the analysis pipeline.
type Stage string

const (
	StagePrompting  Stage = "prompting"
	StageCalling    Stage = "calling"
	StageExtracting Stage = "extracting"
	StageRecovering Stage = "recovering"
	StageDecoding   Stage = "decoding"
)

// StageError wraps a pipeline failure with the request it belongs to.
// The wrapped error keeps its type so CodeOf still classifies it.
type StageError struct {
	Ticker  string
	Kind    models.AnalysisKind
	Stage   Stage
	Snippet string // truncated offending text, empty when unsafe to show
	Err     error
}

func (e *StageError) Error() string {
	msg := fmt.Sprintf("%s analysis for %s failed while %s: %v", e.Kind, e.Ticker, e.Stage, e.Err)
	if e.Snippet != "" {
		msg += fmt.Sprintf(" (text: %q)", e.Snippet)
	}
	return msg
}

func (e *StageError) Unwrap() error { return e.Err }

// CodeOf classifies err. It returns "" for nil.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	var (
		inputErr     *InputError
		configErr    *ConfigError
		decodeErr    *DecodeError
		transportErr *gemini.TransportError
		emptyErr     *gemini.EmptyResponseError
		malformedErr *gemini.MalformedEnvelopeError
		blockedErr   *gemini.BlockedContentError
		noContentErr *gemini.NoContentError
	)
	switch {
	case errors.As(err, &inputErr):
		return ErrCodeInvalidInput
	case errors.As(err, &configErr):
		return ErrCodeConfiguration
	case errors.As(err, &blockedErr):
		return ErrCodeBlockedContent
	case errors.As(err, &noContentErr):
		return ErrCodeNoContent
	case errors.As(err, &malformedErr):
		return ErrCodeMalformedEnvelope
	case errors.As(err, &emptyErr):
		return ErrCodeEmptyResponse
	case errors.As(err, &transportErr):
		return ErrCodeTransport
	case errors.As(err, &decodeErr):
		return ErrCodeDecode
	default:
		return ErrCodeInternal
	}
}

// UserMessage renders err for end users. It never includes provider payloads,
// raw model text or credentials.
func UserMessage(err error) string {
	switch CodeOf(err) {
	case ErrCodeInvalidInput:
		var e *InputError
		errors.As(err, &e)
		return e.Message
	case ErrCodeConfiguration:
		var e *ConfigError
		errors.As(err, &e)
		return e.Message
	case ErrCodeTransport:
		var e *gemini.TransportError
		errors.As(err, &e)
		switch {
		case e.Timeout():
			return "Failed to get analysis from Gemini: request timed out"
		case e.Unreachable():
			return "Failed to get analysis from Gemini: service unreachable"
		default:
			return fmt.Sprintf("Failed to get analysis from Gemini (HTTP Error %d)", e.StatusCode)
		}
	case ErrCodeEmptyResponse:
		return "Received empty response body from Gemini API."
	case ErrCodeMalformedEnvelope:
		return "Gemini returned a response that could not be parsed."
	case ErrCodeBlockedContent:
		var e *gemini.BlockedContentError
		errors.As(err, &e)
		return fmt.Sprintf("Gemini response blocked. Reason: %s", e.Reason)
	case ErrCodeNoContent:
		return "Could not extract text content from Gemini response."
	case ErrCodeDecode:
		return "Failed to process JSON for Gemini analysis."
	case "":
		return ""
	default:
		return "Internal error while generating analysis."
	}
}
