package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/seenimoa/stocklens/internal/datasource"
	"github.com/seenimoa/stocklens/pkg/models"
	"github.com/seenimoa/stocklens/pkg/utils"
)

const errEmptySymbol = "Stock symbol cannot be empty."

// ============================================================
// Analysis handlers
// ============================================================

// handleStockAnalysis returns the raw quote together with the context
// analysis. Both are fetched concurrently; the analysis is cached even when
// the quote fails.
func (s *Server) handleStockAnalysis(w http.ResponseWriter, r *http.Request) {
	ticker, ok := symbolParam(w, r)
	if !ok {
		return
	}

	var (
		g           errgroup.Group
		quote       string
		quoteErr    error
		contextInfo *models.ContextAnalysis
		analysisErr error
	)
	g.Go(func() error {
		quote, quoteErr = s.quotes.FetchQuote(r.Context(), ticker)
		return nil
	})
	g.Go(func() error {
		contextInfo, analysisErr = s.analyzer.Context(r.Context(), ticker)
		return nil
	})
	g.Wait()

	if quoteErr != nil {
		s.log.WithError(quoteErr).WithField("ticker", ticker).Warn("Quote fetch failed")
		writeQuoteError(w, quoteErr)
		return
	}
	if analysisErr != nil {
		writeAnalysisError(w, analysisErr)
		return
	}

	writeJSON(w, http.StatusOK, models.StockAnalysisResponse{
		QuoteData:       rawJSON(quote),
		ContextAnalysis: contextInfo,
	})
}

func (s *Server) handleCompetitors(w http.ResponseWriter, r *http.Request) {
	ticker, ok := symbolParam(w, r)
	if !ok {
		return
	}
	result, err := s.analyzer.Competitor(r.Context(), ticker)
	if err != nil {
		writeAnalysisError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleTrends(w http.ResponseWriter, r *http.Request) {
	ticker, ok := symbolParam(w, r)
	if !ok {
		return
	}
	result, err := s.analyzer.Trend(r.Context(), ticker)
	if err != nil {
		writeAnalysisError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleHistorical passes the provider's daily series through unparsed.
func (s *Server) handleHistorical(w http.ResponseWriter, r *http.Request) {
	ticker, ok := symbolParam(w, r)
	if !ok {
		return
	}
	timeframe := datasource.NormalizeOutputSize(r.URL.Query().Get("timeframe"))

	body, err := s.quotes.FetchDailySeries(r.Context(), ticker, timeframe)
	if err != nil {
		s.log.WithError(err).WithField("ticker", ticker).Warn("Daily series fetch failed")
		writeQuoteError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(rawJSON(body))
}

func (s *Server) handleFlushCache(w http.ResponseWriter, r *http.Request) {
	n := s.analyzer.FlushCache()
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    map[string]int{"flushed": n},
	})
}

func (s *Server) handleInvalidateCache(w http.ResponseWriter, r *http.Request) {
	ticker, ok := symbolParam(w, r)
	if !ok {
		return
	}
	n := s.analyzer.InvalidateTicker(ticker)
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    map[string]any{"ticker": ticker, "invalidated": n},
	})
}

// ============================================================
// Helpers
// ============================================================

// symbolParam reads and normalizes the {symbol} path parameter.
func symbolParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	ticker := utils.NormalizeTicker(chi.URLParam(r, "symbol"))
	if ticker == "" {
		writeError(w, http.StatusBadRequest, errEmptySymbol)
		return "", false
	}
	return ticker, true
}

// writeQuoteError maps market-data failures. Provider rejections are
// reported as a bad gateway with the provider's status.
func writeQuoteError(w http.ResponseWriter, err error) {
	var fe *datasource.FetchError
	switch {
	case errors.Is(err, datasource.ErrEmptySymbol):
		writeError(w, http.StatusBadRequest, errEmptySymbol)
	case errors.Is(err, datasource.ErrNotConfigured):
		writeError(w, http.StatusBadRequest, "Alpha Vantage API key is not configured.")
	case errors.As(err, &fe):
		writeError(w, http.StatusBadGateway, fmt.Sprintf("Error fetching stock data: %s", fe.Error()))
	default:
		writeError(w, http.StatusBadGateway, "Error fetching stock data: provider unreachable")
	}
}

// rawJSON embeds a provider body verbatim when it is valid JSON, and as a
// JSON string otherwise, so the response document stays well-formed.
func rawJSON(body string) json.RawMessage {
	if json.Valid([]byte(body)) {
		return json.RawMessage(body)
	}
	quoted, _ := json.Marshal(body)
	return quoted
}
