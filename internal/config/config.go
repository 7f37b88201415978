// Package config handles configuration loading for stocklens.
// It supports YAML config files with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Default values that callers compare against to detect unconfigured settings.
const (
	DefaultGeminiModel     = "gemini-1.5-flash"
	DefaultGeminiProjectID = "default-project-id"
	DefaultGeminiBaseURL   = "https://generativelanguage.googleapis.com/v1beta"
	DefaultAlphaVantageURL = "https://www.alphavantage.co/query"
)

// Config represents the complete application configuration.
type Config struct {
	Gemini       GeminiConfig       `mapstructure:"gemini"       yaml:"gemini"`
	AlphaVantage AlphaVantageConfig `mapstructure:"alphavantage" yaml:"alphavantage"`
	Prompts      PromptsConfig      `mapstructure:"prompts"      yaml:"prompts"`
	Cache        CacheConfig        `mapstructure:"cache"        yaml:"cache"`
	API          APIConfig          `mapstructure:"api"          yaml:"api"`
	Logging      LoggingConfig      `mapstructure:"logging"      yaml:"logging"`
}

// GeminiConfig holds the generative-AI provider settings.
type GeminiConfig struct {
	APIKey     string `mapstructure:"api_key"     yaml:"api_key"`
	Model      string `mapstructure:"model"       yaml:"model"`
	ProjectID  string `mapstructure:"project_id"  yaml:"project_id"` // informational, warn-only
	Location   string `mapstructure:"location"    yaml:"location"`
	BaseURL    string `mapstructure:"base_url"    yaml:"base_url"`
	TimeoutSec int    `mapstructure:"timeout_sec" yaml:"timeout_sec"`
	MaxRetries int    `mapstructure:"max_retries" yaml:"max_retries"`
	RPM        int    `mapstructure:"rpm"         yaml:"rpm"` // 0 disables throttling
	Burst      int    `mapstructure:"burst"       yaml:"burst"`
}

// Timeout returns the per-call deadline for the generative endpoint.
func (g GeminiConfig) Timeout() time.Duration {
	return time.Duration(g.TimeoutSec) * time.Second
}

// AlphaVantageConfig holds the market-quote provider settings.
type AlphaVantageConfig struct {
	APIKey     string `mapstructure:"api_key"     yaml:"api_key"`
	BaseURL    string `mapstructure:"base_url"    yaml:"base_url"`
	TimeoutSec int    `mapstructure:"timeout_sec" yaml:"timeout_sec"`
}

// Timeout returns the per-call deadline for quote fetches.
func (a AlphaVantageConfig) Timeout() time.Duration {
	return time.Duration(a.TimeoutSec) * time.Second
}

// PromptsConfig points at prompt templates. Inline values win over File,
// which wins over the built-in templates.
type PromptsConfig struct {
	File       string `mapstructure:"file"       yaml:"file"`
	Context    string `mapstructure:"context"    yaml:"context"`
	Trend      string `mapstructure:"trend"      yaml:"trend"`
	Competitor string `mapstructure:"competitor" yaml:"competitor"`
}

// CacheConfig holds analysis cache settings.
type CacheConfig struct {
	TTLSec int `mapstructure:"ttl_sec" yaml:"ttl_sec"` // 0 = keep for the process lifetime
}

// TTL returns the cache entry lifetime; zero means no expiry.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSec) * time.Second
}

// APIConfig holds HTTP API server settings.
type APIConfig struct {
	Host        string   `mapstructure:"host"         yaml:"host"`
	Port        int      `mapstructure:"port"         yaml:"port"`
	CORSOrigins []string `mapstructure:"cors_origins" yaml:"cors_origins"`
}

// Addr returns the listen address.
func (a APIConfig) Addr() string {
	return fmt.Sprintf("%s:%d", a.Host, a.Port)
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `mapstructure:"format" yaml:"format"` // "text" or "json"
}

// Load reads the configuration from file and environment variables.
// Config file search order:
//  1. ./config/config.yaml (project root)
//  2. ~/.stocklens/config.yaml (home directory)
//  3. /etc/stocklens/config.yaml (system)
//
// Environment variables override config file values.
// Format: STOCKLENS_<SECTION>_<KEY>, e.g., STOCKLENS_GEMINI_API_KEY
func Load() (*Config, error) {
	v := newViper()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(filepath.Join(homeDir(), ".stocklens"))
	v.AddConfigPath("/etc/stocklens")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// No config file: defaults + env vars only.
	}

	return decode(v)
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}

	return decode(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("STOCKLENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	overrideFromEnv(&cfg)
	return &cfg, nil
}

// setDefaults sets sensible defaults for all config values.
func setDefaults(v *viper.Viper) {
	// Gemini defaults
	v.SetDefault("gemini.model", DefaultGeminiModel)
	v.SetDefault("gemini.project_id", DefaultGeminiProjectID)
	v.SetDefault("gemini.location", "us-central1")
	v.SetDefault("gemini.base_url", DefaultGeminiBaseURL)
	v.SetDefault("gemini.timeout_sec", 60)
	v.SetDefault("gemini.max_retries", 0)
	v.SetDefault("gemini.rpm", 60)
	v.SetDefault("gemini.burst", 5)

	// Alpha Vantage defaults
	v.SetDefault("alphavantage.base_url", DefaultAlphaVantageURL)
	v.SetDefault("alphavantage.timeout_sec", 15)

	// Cache defaults
	v.SetDefault("cache.ttl_sec", 0)

	// API defaults
	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.cors_origins", []string{"http://localhost:4200"})

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// overrideFromEnv explicitly reads sensitive keys from environment variables.
// AutomaticEnv only applies to keys viper already knows about, and the
// credentials deliberately have no default.
func overrideFromEnv(cfg *Config) {
	if key := os.Getenv("STOCKLENS_GEMINI_API_KEY"); key != "" {
		cfg.Gemini.APIKey = key
	}
	if id := os.Getenv("STOCKLENS_GEMINI_PROJECT_ID"); id != "" {
		cfg.Gemini.ProjectID = id
	}
	if key := os.Getenv("STOCKLENS_ALPHAVANTAGE_API_KEY"); key != "" {
		cfg.AlphaVantage.APIKey = key
	}
}

// homeDir returns the user's home directory.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
