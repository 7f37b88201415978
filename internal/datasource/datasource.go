// Package datasource fetches raw market data for the analysis endpoints.
// Responses are passed through unparsed; the service never models prices.
package datasource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// QuoteSource fetches the raw quote document for a ticker.
type QuoteSource interface {
	// Name returns the human-readable name of this data source.
	Name() string

	// FetchQuote returns the provider's quote body for ticker, unparsed.
	FetchQuote(ctx context.Context, ticker string) (string, error)

	// FetchDailySeries returns the provider's daily price series for ticker,
	// unparsed. outputSize is "compact" or "full".
	FetchDailySeries(ctx context.Context, ticker, outputSize string) (string, error)
}

// --- Sentinel errors ---

// ErrEmptySymbol is returned when the ticker is blank.
var ErrEmptySymbol = errors.New("stock symbol cannot be empty")

// ErrNotConfigured is returned when the source has no API key.
var ErrNotConfigured = errors.New("alpha vantage API key is not configured")

// FetchError reports a non-2xx response from the provider.
type FetchError struct {
	StatusCode int
	Status     string
	Message    string
}

func (e *FetchError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("HTTP %s", e.Status)
	}
	return fmt.Sprintf("HTTP %s: %s", e.Status, e.Message)
}

// --- Shared HTTP client helpers ---

// DefaultUserAgent is the user agent string used for HTTP requests.
const DefaultUserAgent = "stocklens/1.0 (+https://github.com/seenimoa/stocklens)"

const (
	defaultTimeout = 30 * time.Second
	maxBodySize    = 16 << 20
	maxErrorBody   = 1024
)

// doGet performs a GET request and returns the whole body. secrets are
// scrubbed from transport errors, which otherwise embed the request URL.
func doGet(ctx context.Context, client *http.Client, rawURL string, secrets ...string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %s", scrub(err.Error(), secrets))
	}
	req.Header.Set("User-Agent", DefaultUserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return "", errors.New(scrub(err.Error(), secrets))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return "", &FetchError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Message:    strings.TrimSpace(scrub(string(body), secrets)),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return "", fmt.Errorf("read response: %s", scrub(err.Error(), secrets))
	}
	return string(body), nil
}

func scrub(s string, secrets []string) string {
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		s = strings.ReplaceAll(s, url.QueryEscape(secret), "REDACTED")
		s = strings.ReplaceAll(s, secret, "REDACTED")
	}
	return s
}
