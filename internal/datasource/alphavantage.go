package datasource

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/seenimoa/stocklens/pkg/utils"
)

// DefaultAlphaVantageURL is the Alpha Vantage query endpoint.
const DefaultAlphaVantageURL = "https://www.alphavantage.co/query"

// Output sizes for FetchDailySeries.
const (
	OutputCompact = "compact"
	OutputFull    = "full"
)

// AlphaVantage fetches quotes and daily series from Alpha Vantage.
type AlphaVantage struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// AlphaVantageOption configures the source.
type AlphaVantageOption func(*AlphaVantage)

// WithAlphaVantageHTTPClient sets a custom HTTP client.
func WithAlphaVantageHTTPClient(client *http.Client) AlphaVantageOption {
	return func(a *AlphaVantage) { a.client = client }
}

// NewAlphaVantage creates a source. An empty baseURL selects the public
// endpoint; a non-positive timeout selects the package default.
func NewAlphaVantage(apiKey, baseURL string, timeout time.Duration, opts ...AlphaVantageOption) *AlphaVantage {
	if baseURL == "" {
		baseURL = DefaultAlphaVantageURL
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	a := &AlphaVantage{
		apiKey:  strings.TrimSpace(apiKey),
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Name returns the data source name.
func (a *AlphaVantage) Name() string { return "Alpha Vantage" }

// FetchQuote returns the GLOBAL_QUOTE document for ticker.
func (a *AlphaVantage) FetchQuote(ctx context.Context, ticker string) (string, error) {
	return a.query(ctx, ticker, url.Values{"function": {"GLOBAL_QUOTE"}})
}

// FetchDailySeries returns the TIME_SERIES_DAILY document for ticker.
// Unknown output sizes fall back to compact.
func (a *AlphaVantage) FetchDailySeries(ctx context.Context, ticker, outputSize string) (string, error) {
	return a.query(ctx, ticker, url.Values{
		"function":   {"TIME_SERIES_DAILY"},
		"outputsize": {NormalizeOutputSize(outputSize)},
	})
}

// NormalizeOutputSize returns "full" for "full" and "compact" otherwise.
func NormalizeOutputSize(s string) string {
	if strings.EqualFold(strings.TrimSpace(s), OutputFull) {
		return OutputFull
	}
	return OutputCompact
}

func (a *AlphaVantage) query(ctx context.Context, ticker string, params url.Values) (string, error) {
	symbol := utils.NormalizeTicker(ticker)
	if symbol == "" {
		return "", ErrEmptySymbol
	}
	if a.apiKey == "" {
		return "", ErrNotConfigured
	}

	params.Set("symbol", symbol)
	params.Set("apikey", a.apiKey)

	body, err := doGet(ctx, a.client, a.baseURL+"?"+params.Encode(), a.apiKey)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(body) == "" {
		return "{}", nil
	}
	return body, nil
}
