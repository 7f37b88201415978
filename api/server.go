// Package api provides the HTTP REST API server for stocklens.
//
// It exposes endpoints for combined quote and context analysis, trend and
// competitor analysis, raw daily series, cache control and WebSocket
// notifications of finished analyses.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"

	"github.com/seenimoa/stocklens/internal/analysis"
	"github.com/seenimoa/stocklens/internal/config"
	"github.com/seenimoa/stocklens/internal/datasource"
	"github.com/seenimoa/stocklens/pkg/models"
)

// Analyzer is the analysis pipeline the handlers call.
type Analyzer interface {
	Context(ctx context.Context, ticker string) (*models.ContextAnalysis, error)
	Trend(ctx context.Context, ticker string) (*models.TrendAnalysis, error)
	Competitor(ctx context.Context, ticker string) (*models.CompetitorAnalysis, error)
	FlushCache() int
	InvalidateTicker(ticker string) int
	CachedKeys() []string
}

// Server is the HTTP API server.
type Server struct {
	router   chi.Router
	cfg      *config.Config
	analyzer Analyzer
	quotes   datasource.QuoteSource
	wsHub    *WSHub
	log      logrus.FieldLogger
	version  string
	timeout  time.Duration
}

// Option configures the server.
type Option func(*Server)

// WithHub sets the WebSocket hub. The caller owns running it.
func WithHub(h *WSHub) Option {
	return func(s *Server) { s.wsHub = h }
}

// WithLogger sets the logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(s *Server) { s.log = log }
}

// WithVersion sets the version reported by /health.
func WithVersion(v string) Option {
	return func(s *Server) { s.version = v }
}

// WithRequestTimeout bounds each request.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *Server) { s.timeout = d }
}

// NewServer creates a configured API server with all routes and middleware.
func NewServer(cfg *config.Config, analyzer Analyzer, quotes datasource.QuoteSource, opts ...Option) *Server {
	srv := &Server{
		cfg:      cfg,
		analyzer: analyzer,
		quotes:   quotes,
		log:      logrus.StandardLogger(),
		version:  "dev",
		timeout:  120 * time.Second,
	}
	for _, opt := range opts {
		opt(srv)
	}
	if srv.wsHub == nil {
		srv.wsHub = NewWSHub(srv.log)
	}
	srv.router = srv.buildRouter()
	return srv
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// Hub returns the WebSocket hub.
func (s *Server) Hub() *WSHub {
	return s.wsHub
}

// ListenAndServe serves until ctx is canceled, then shuts down gracefully.
// It also runs the WebSocket hub for the lifetime of the server.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: s.timeout + 10*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	hubCtx, stopHub := context.WithCancel(ctx)
	defer stopHub()
	go s.wsHub.Run(hubCtx)

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", addr).Info("API server listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

// buildRouter configures all routes and middleware.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.log))
	r.Use(recoverer(s.log))

	// CORS
	origins := []string{"*"}
	if s.cfg != nil && len(s.cfg.API.CORSOrigins) > 0 {
		origins = s.cfg.API.CORSOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", s.handleHealth)

	// WebSocket sits outside the timeout middleware; connections are long-lived.
	r.Get("/ws", s.handleWebSocket)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(s.timeout))

		r.Route("/api/analyze", func(r chi.Router) {
			r.Delete("/cache", s.handleFlushCache)
			r.Delete("/cache/{symbol}", s.handleInvalidateCache)
			r.Get("/competitors/{symbol}", s.handleCompetitors)
			r.Get("/trends/{symbol}", s.handleTrends)
			r.Get("/historical/{symbol}", s.handleHistorical)
			r.Get("/{symbol}", s.handleStockAnalysis)
		})

		r.Route("/api/config", func(r chi.Router) {
			r.Get("/", s.handleGetConfig)
			r.Get("/keys", s.handleGetConfigKeys)
		})
	})

	return r
}

// ============================================================
// Response helpers
// ============================================================

// APIResponse is the envelope for health, config and error responses.
// Analysis results are returned bare, matching what the web UI expects.
type APIResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
}

// HealthStatus is the /health payload.
type HealthStatus struct {
	Status       string `json:"status"`
	Version      string `json:"version"`
	Model        string `json:"model,omitempty"`
	CacheEntries int    `json:"cache_entries"`
	WSClients    int    `json:"ws_clients"`
	Time         string `json:"time"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := HealthStatus{
		Status:    "ok",
		Version:   s.version,
		WSClients: s.wsHub.ClientCount(),
		Time:      time.Now().UTC().Format(time.RFC3339),
	}
	if s.cfg != nil {
		status.Model = s.cfg.Gemini.Model
	}
	if s.analyzer != nil {
		status.CacheEntries = len(s.analyzer.CachedKeys())
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: status})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.WithError(err).Warn("failed to write JSON response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, APIResponse{
		Success: false,
		Error:   msg,
	})
}

// writeAnalysisError maps a pipeline failure to a status and a message that
// is safe to show to users.
func writeAnalysisError(w http.ResponseWriter, err error) {
	code := analysis.CodeOf(err)
	writeJSON(w, code.HTTPStatus(), APIResponse{
		Success: false,
		Error:   analysis.UserMessage(err),
		Code:    string(code),
	})
}
