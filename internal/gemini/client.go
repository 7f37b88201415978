// Package gemini talks to Google's Generative Language REST API: it sends a
// single-prompt generateContent request and recovers the text from the
// response envelope.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	DefaultModel   = "gemini-1.5-flash"

	defaultTimeout  = 60 * time.Second
	maxResponseBody = 4 << 20
)

// Config configures a Client. It is passed explicitly so the pipeline can be
// exercised without a running process or ambient settings.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// RawEnvelope is the unmodified provider response.
type RawEnvelope struct {
	Body       string
	StatusCode int
}

// Client executes generateContent calls. It performs no retries.
type Client struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

// Option configures the client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) { c.client = client }
}

// New creates a client. An empty API key is accepted here; callers validate
// credentials before issuing requests so that a misconfiguration is reported
// per request instead of at startup.
func New(cfg Config, opts ...Option) *Client {
	c := &Client{
		apiKey:  strings.TrimSpace(cfg.APIKey),
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		model:   strings.TrimSpace(cfg.Model),
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.model == "" {
		c.model = DefaultModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	c.client = &http.Client{Timeout: timeout}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Model returns the model the client calls.
func (c *Client) Model() string { return c.model }

// ── Wire types ──

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type errorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Generate sends prompt as a single user content block and returns the raw
// response envelope. Failures are *TransportError or *EmptyResponseError.
func (c *Client) Generate(ctx context.Context, prompt string) (*RawEnvelope, error) {
	body, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("gemini: build request: %s", c.redact(err.Error()))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &TransportError{Cause: c.redactErr(err)}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, &TransportError{Cause: fmt.Errorf("read response: %w", c.redactErr(err))}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &TransportError{
			StatusCode: resp.StatusCode,
			Body:       string(data),
			Message:    providerMessage(data),
		}
	}
	if strings.TrimSpace(string(data)) == "" {
		return nil, &EmptyResponseError{}
	}

	return &RawEnvelope{Body: string(data), StatusCode: resp.StatusCode}, nil
}

func (c *Client) endpoint() string {
	return fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		c.baseURL, url.PathEscape(c.model), url.QueryEscape(c.apiKey))
}

// redactErr strips the API key from errors that embed the request URL.
func (c *Client) redactErr(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return &url.Error{Op: urlErr.Op, URL: c.redact(urlErr.URL), Err: urlErr.Err}
	}
	return err
}

func (c *Client) redact(s string) string {
	if c.apiKey == "" {
		return s
	}
	s = strings.ReplaceAll(s, url.QueryEscape(c.apiKey), "REDACTED")
	return strings.ReplaceAll(s, c.apiKey, "REDACTED")
}

// providerMessage pulls error.message out of Google's standard error body.
func providerMessage(body []byte) string {
	var apiErr errorResponse
	if json.Unmarshal(body, &apiErr) != nil {
		return ""
	}
	return strings.TrimSpace(apiErr.Error.Message)
}
