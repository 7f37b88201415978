// Package analysis turns a ticker into a validated qualitative stock analysis
// by prompting Gemini, recovering the JSON object from its reply and decoding
// it into the result schema. Results are cached per kind and ticker.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/seenimoa/stocklens/internal/config"
	"github.com/seenimoa/stocklens/internal/gemini"
	"github.com/seenimoa/stocklens/internal/infra"
	"github.com/seenimoa/stocklens/internal/prompts"
	"github.com/seenimoa/stocklens/pkg/models"
	"github.com/seenimoa/stocklens/pkg/utils"
)

const (
	maxSnippet          = 200
	defaultRetryBackoff = 500 * time.Millisecond
)

// Generator sends one prompt to the generative endpoint.
type Generator interface {
	Generate(ctx context.Context, prompt string) (*gemini.RawEnvelope, error)
}

// Config holds the settings the service validates and consumes.
type Config struct {
	APIKey     string
	ProjectID  string
	Templates  prompts.Templates
	MaxRetries int
}

// Event types published to observers.
const (
	EventCompleted = "analysis.completed"
	EventFailed    = "analysis.failed"
)

// Event describes a finished analysis call.
type Event struct {
	Type       string              `json:"type"`
	Kind       models.AnalysisKind `json:"kind"`
	Ticker     string              `json:"ticker"`
	Cached     bool                `json:"cached"`
	Code       ErrorCode           `json:"code,omitempty"`
	Error      string              `json:"error,omitempty"`
	DurationMs int64               `json:"duration_ms"`
}

// Service runs the analysis pipeline. It is safe for concurrent use.
type Service struct {
	gen        Generator
	apiKey     string
	projectID  string
	templates  prompts.Templates
	maxRetries int
	backoff    time.Duration

	cache   *infra.Cache[any]
	group   singleflight.Group
	limiter *infra.RateLimiter
	log     logrus.FieldLogger
	notify  func(Event)

	warnProjectOnce sync.Once
}

// Option configures the service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(s *Service) { s.log = log }
}

// WithCache sets the result cache.
func WithCache(c *infra.Cache[any]) Option {
	return func(s *Service) { s.cache = c }
}

// WithRateLimiter throttles outbound calls. A nil limiter disables throttling.
func WithRateLimiter(rl *infra.RateLimiter) Option {
	return func(s *Service) { s.limiter = rl }
}

// WithRetryBackoff sets the base delay between retries; it doubles per attempt.
func WithRetryBackoff(d time.Duration) Option {
	return func(s *Service) { s.backoff = d }
}

// WithObserver registers a callback invoked after every analysis call.
func WithObserver(fn func(Event)) Option {
	return func(s *Service) { s.notify = fn }
}

// NewService creates a service. Credentials are checked per call, so a
// service built with a missing API key still reports a ConfigError.
func NewService(gen Generator, cfg Config, opts ...Option) *Service {
	s := &Service{
		gen:        gen,
		apiKey:     cfg.APIKey,
		projectID:  cfg.ProjectID,
		templates:  cfg.Templates.Merge(prompts.Default()),
		maxRetries: max(cfg.MaxRetries, 0),
		backoff:    defaultRetryBackoff,
		cache:      infra.NewCache[any](0),
		log:        logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Context returns the overall context analysis for ticker.
func (s *Service) Context(ctx context.Context, ticker string) (*models.ContextAnalysis, error) {
	v, err := s.Analyze(ctx, models.KindContext, ticker)
	if err != nil {
		return nil, err
	}
	return v.(*models.ContextAnalysis), nil
}

// Trend returns the trend analysis for ticker.
func (s *Service) Trend(ctx context.Context, ticker string) (*models.TrendAnalysis, error) {
	v, err := s.Analyze(ctx, models.KindTrend, ticker)
	if err != nil {
		return nil, err
	}
	return v.(*models.TrendAnalysis), nil
}

// Competitor returns the competitor analysis for ticker.
func (s *Service) Competitor(ctx context.Context, ticker string) (*models.CompetitorAnalysis, error) {
	v, err := s.Analyze(ctx, models.KindCompetitor, ticker)
	if err != nil {
		return nil, err
	}
	return v.(*models.CompetitorAnalysis), nil
}

// Analyze returns the analysis of the given kind, from cache when present.
// The result is a *models.ContextAnalysis, *models.TrendAnalysis or
// *models.CompetitorAnalysis. Failures are never cached.
func (s *Service) Analyze(ctx context.Context, kind models.AnalysisKind, ticker string) (any, error) {
	start := time.Now()
	req, err := s.precheck(kind, ticker)
	if err != nil {
		s.publish(models.AnalysisRequest{Kind: kind, Ticker: ticker}, start, false, err)
		return nil, err
	}

	key := cacheKey(req)
	if v, ok := s.cache.Get(key); ok {
		s.log.WithFields(logrus.Fields{"ticker": req.Ticker, "kind": req.Kind}).Debug("Analysis cache hit")
		s.publish(req, start, true, nil)
		return v, nil
	}

	v, err, _ := s.group.Do(key, func() (any, error) {
		if v, ok := s.cache.Get(key); ok {
			return v, nil
		}
		result, err := s.run(ctx, req)
		if err != nil {
			return nil, err
		}
		s.cache.Set(key, result)
		return result, nil
	})
	s.publish(req, start, false, err)
	if err != nil {
		return nil, err
	}
	return v, nil
}

// FlushCache drops every cached result and returns how many were removed.
func (s *Service) FlushCache() int {
	n := s.cache.Flush()
	s.log.WithField("entries", n).Info("Analysis cache flushed")
	return n
}

// InvalidateTicker drops the cached results of every kind for ticker and
// returns how many live entries were removed.
func (s *Service) InvalidateTicker(ticker string) int {
	ticker = utils.NormalizeTicker(ticker)
	n := 0
	for _, kind := range models.AnalysisKinds {
		if s.cache.Invalidate(cacheKey(models.AnalysisRequest{Kind: kind, Ticker: ticker})) {
			n++
		}
	}
	s.log.WithFields(logrus.Fields{"ticker": ticker, "entries": n}).Info("Cached analyses invalidated")
	return n
}

// RunCacheCleanup sweeps expired results every interval until ctx is canceled.
func (s *Service) RunCacheCleanup(ctx context.Context, interval time.Duration) {
	s.cache.RunCleanup(ctx, interval, func(n int) {
		if n > 0 {
			s.log.WithField("entries", n).Debug("Expired analyses swept")
		}
	})
}

// CachedKeys lists cached "kind:TICKER" keys.
func (s *Service) CachedKeys() []string {
	return s.cache.Keys()
}

// precheck validates the request before any outbound call.
func (s *Service) precheck(kind models.AnalysisKind, ticker string) (models.AnalysisRequest, error) {
	req := models.AnalysisRequest{Ticker: utils.NormalizeTicker(ticker), Kind: kind}
	if req.Ticker == "" {
		return req, &InputError{Message: "Ticker symbol cannot be empty."}
	}
	if !utils.IsValidTicker(req.Ticker) {
		return req, &InputError{Message: fmt.Sprintf("Invalid ticker symbol %q.", req.Ticker)}
	}
	if _, err := s.templates.For(kind); err != nil {
		return req, &InputError{Message: err.Error()}
	}
	if config.IsPlaceholder(s.apiKey) {
		return req, &ConfigError{Message: "Gemini API key is not configured or is a placeholder. Set gemini.api_key or STOCKLENS_GEMINI_API_KEY."}
	}
	if config.IsPlaceholderProjectID(s.projectID) {
		s.warnProjectOnce.Do(func() {
			s.log.WithField("project_id", s.projectID).Warn("Gemini project id is not configured; continuing without it")
		})
	}
	return req, nil
}

// run executes prompting, calling, extracting, recovering and decoding.
func (s *Service) run(ctx context.Context, req models.AnalysisRequest) (any, error) {
	log := s.log.WithFields(logrus.Fields{"ticker": req.Ticker, "kind": req.Kind})

	template, err := s.templates.For(req.Kind)
	if err != nil {
		return nil, s.fail(log, req, StagePrompting, "", err)
	}
	prompt := prompts.Render(template, req.Ticker)

	log.Debug("Requesting analysis from Gemini")
	env, err := s.call(ctx, log, prompt)
	if err != nil {
		return nil, s.fail(log, req, StageCalling, "", err)
	}

	text, err := gemini.ExtractText(env.Body)
	if err != nil {
		var noContent *gemini.NoContentError
		if errors.As(err, &noContent) {
			log.WithField("envelope", utils.Truncate(noContent.RawEnvelope, 1000)).Debug("Envelope without content")
		}
		return nil, s.fail(log, req, StageExtracting, "", err)
	}

	recovered, ok := RecoverJSON(text)
	if !ok {
		log.WithFields(logrus.Fields{
			"stage": StageRecovering,
			"text":  utils.Truncate(text, maxSnippet),
		}).Warn("No JSON object found in Gemini reply")
	}

	result, err := Decode(req.Kind, recovered)
	if err != nil {
		return nil, s.fail(log, req, StageDecoding, utils.Truncate(recovered, maxSnippet), err)
	}
	s.checkTicker(log, req, result)

	log.Info("Analysis completed")
	return result, nil
}

// call issues the Gemini request, retrying retryable transport failures.
func (s *Service) call(ctx context.Context, log logrus.FieldLogger, prompt string) (*gemini.RawEnvelope, error) {
	var lastErr error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if attempt > 0 {
			delay := s.backoff << (attempt - 1)
			log.WithError(lastErr).WithFields(logrus.Fields{"attempt": attempt + 1, "delay": delay}).Warn("Retrying Gemini call")
			select {
			case <-ctx.Done():
				return nil, &gemini.TransportError{Cause: ctx.Err()}
			case <-time.After(delay):
			}
		}

		if err := s.limiter.Wait(ctx); err != nil {
			return nil, &gemini.TransportError{Cause: err}
		}

		env, err := s.gen.Generate(ctx, prompt)
		if err == nil {
			return env, nil
		}
		lastErr = err

		var te *gemini.TransportError
		if !errors.As(err, &te) || !te.Retryable() {
			return nil, err
		}
	}
	return nil, lastErr
}

// fail logs a stage failure and wraps it.
func (s *Service) fail(log logrus.FieldLogger, req models.AnalysisRequest, stage Stage, snippet string, err error) error {
	serr := &StageError{Ticker: req.Ticker, Kind: req.Kind, Stage: stage, Snippet: snippet, Err: err}
	log.WithError(err).WithFields(logrus.Fields{"stage": stage, "code": CodeOf(err)}).Error("Analysis failed")
	return serr
}

// checkTicker warns when the model answered for a different symbol.
func (s *Service) checkTicker(log logrus.FieldLogger, req models.AnalysisRequest, result any) {
	var got string
	switch r := result.(type) {
	case *models.ContextAnalysis:
		got = models.StringValue(r.Ticker)
	case *models.TrendAnalysis:
		got = models.StringValue(r.Ticker)
	case *models.CompetitorAnalysis:
		got = models.StringValue(r.Ticker)
	}
	if utils.NormalizeTicker(got) != req.Ticker {
		log.WithField("reply_ticker", got).Warn("Gemini reply names a different ticker")
	}
}

func (s *Service) publish(req models.AnalysisRequest, start time.Time, cached bool, err error) {
	if s.notify == nil {
		return
	}
	ev := Event{
		Type:       EventCompleted,
		Kind:       req.Kind,
		Ticker:     req.Ticker,
		Cached:     cached,
		DurationMs: time.Since(start).Milliseconds(),
	}
	if err != nil {
		ev.Type = EventFailed
		ev.Code = CodeOf(err)
		ev.Error = UserMessage(err)
	}
	s.notify(ev)
}

func cacheKey(req models.AnalysisRequest) string {
	return string(req.Kind) + ":" + req.Ticker
}
