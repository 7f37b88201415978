// Configuration inspection endpoints.

package api

import (
	"net/http"

	"github.com/seenimoa/stocklens/internal/config"
)

// ConfigView is the JSON shape of GET /api/config. Credentials are masked.
type ConfigView struct {
	Gemini struct {
		Model      string `json:"model"`
		ProjectID  string `json:"project_id"`
		Location   string `json:"location"`
		BaseURL    string `json:"base_url"`
		TimeoutSec int    `json:"timeout_sec"`
		MaxRetries int    `json:"max_retries"`
		RPM        int    `json:"rpm"`
		APIKey     string `json:"api_key,omitempty"`
	} `json:"gemini"`
	AlphaVantage struct {
		BaseURL    string `json:"base_url"`
		TimeoutSec int    `json:"timeout_sec"`
		APIKey     string `json:"api_key,omitempty"`
	} `json:"alphavantage"`
	CacheTTLSec int      `json:"cache_ttl_sec"`
	CORSOrigins []string `json:"cors_origins"`
}

// newConfigView copies the running configuration without secrets.
func newConfigView(cfg *config.Config) ConfigView {
	var v ConfigView
	v.Gemini.Model = cfg.Gemini.Model
	v.Gemini.ProjectID = cfg.Gemini.ProjectID
	v.Gemini.Location = cfg.Gemini.Location
	v.Gemini.BaseURL = cfg.Gemini.BaseURL
	v.Gemini.TimeoutSec = cfg.Gemini.TimeoutSec
	v.Gemini.MaxRetries = cfg.Gemini.MaxRetries
	v.Gemini.RPM = cfg.Gemini.RPM
	if cfg.Gemini.APIKey != "" {
		v.Gemini.APIKey = config.MaskKey(cfg.Gemini.APIKey)
	}
	v.AlphaVantage.BaseURL = cfg.AlphaVantage.BaseURL
	v.AlphaVantage.TimeoutSec = cfg.AlphaVantage.TimeoutSec
	if cfg.AlphaVantage.APIKey != "" {
		v.AlphaVantage.APIKey = config.MaskKey(cfg.AlphaVantage.APIKey)
	}
	v.CacheTTLSec = cfg.Cache.TTLSec
	v.CORSOrigins = cfg.API.CORSOrigins
	return v
}

// handleGetConfig returns the current (running) configuration.
func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	if s.cfg == nil {
		writeError(w, http.StatusServiceUnavailable, "configuration not loaded")
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    newConfigView(s.cfg),
	})
}

// handleGetConfigKeys returns the status of all sensitive API keys.
func (s *Server) handleGetConfigKeys(w http.ResponseWriter, r *http.Request) {
	if s.cfg == nil {
		writeError(w, http.StatusServiceUnavailable, "configuration not loaded")
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    config.CheckAPIKeys(s.cfg),
	})
}
