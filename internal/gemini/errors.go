package gemini

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/seenimoa/stocklens/pkg/utils"
)

// maxErrorBody bounds how much provider text is echoed in error strings.
const maxErrorBody = 300

// TransportError reports a failed exchange with the provider. Exactly one of
// StatusCode (provider rejected the call) or Cause (provider unreachable) is set.
type TransportError struct {
	StatusCode int
	Body       string // raw response body, for diagnostics only
	Message    string // provider's error.message when the body carried one
	Cause      error
}

func (e *TransportError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("gemini: provider unreachable: %v", e.Cause)
	}
	msg := e.Message
	if msg == "" {
		msg = utils.Truncate(e.Body, maxErrorBody)
	}
	return fmt.Sprintf("gemini: HTTP %d: %s", e.StatusCode, msg)
}

func (e *TransportError) Unwrap() error { return e.Cause }

// Unreachable reports whether the provider was never reached (DNS, connect,
// timeout, read failure) as opposed to having answered with an error status.
func (e *TransportError) Unreachable() bool { return e.Cause != nil }

// Timeout reports whether the call failed on a deadline.
func (e *TransportError) Timeout() bool {
	if e.Cause == nil {
		return false
	}
	if errors.Is(e.Cause, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(e.Cause, &netErr) && netErr.Timeout()
}

// Retryable reports whether repeating the call may succeed: network failures
// other than caller cancellation, rate limiting and server-side errors.
func (e *TransportError) Retryable() bool {
	if e.Cause != nil {
		return !errors.Is(e.Cause, context.Canceled)
	}
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// EmptyResponseError reports a 200 response with an empty or blank body.
type EmptyResponseError struct{}

func (e *EmptyResponseError) Error() string {
	return "gemini: received empty response body"
}

// MalformedEnvelopeError reports a response body that is not a JSON object.
type MalformedEnvelopeError struct {
	Cause error
}

func (e *MalformedEnvelopeError) Error() string {
	return fmt.Sprintf("gemini: malformed response envelope: %v", e.Cause)
}

func (e *MalformedEnvelopeError) Unwrap() error { return e.Cause }

// BlockedContentError reports that the provider refused to answer on safety
// grounds. It is terminal: retrying the same prompt will not help.
type BlockedContentError struct {
	Reason        string
	SafetyDetails string // JSON text of the safety ratings, or "N/A"
}

func (e *BlockedContentError) Error() string {
	return fmt.Sprintf("gemini: response blocked. Reason: %s. Safety Ratings: %s", e.Reason, e.SafetyDetails)
}

// NoContentError reports an envelope that parsed but carried no text and no
// block indicator. RawEnvelope is kept for logs and must not reach end users.
type NoContentError struct {
	RawEnvelope string
}

func (e *NoContentError) Error() string {
	return "gemini: could not extract text content from response"
}
