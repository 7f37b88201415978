package config

import (
	"os"
	"strings"
)

// APIKeySource represents where an API key comes from.
type APIKeySource string

const (
	KeySourceEnv    APIKeySource = "env"
	KeySourceConfig APIKeySource = "config"
	KeySourceNone   APIKeySource = "none"
)

// KeyStatus represents the status of an API key.
type KeyStatus struct {
	Name          string       `json:"name"`
	Source        APIKeySource `json:"source"`
	IsSet         bool         `json:"is_set"`
	IsPlaceholder bool         `json:"is_placeholder,omitempty"`
	Masked        string       `json:"masked,omitempty"` // e.g., "AIz...x9Q"
}

// placeholderValues are values shipped in sample configs that must never be
// sent to a provider.
var placeholderValues = map[string]bool{
	"YOUR_API_KEY":        true,
	"YOUR_GEMINI_API_KEY": true,
	"YOUR-API-KEY":        true,
	"CHANGEME":            true,
	"CHANGE_ME":           true,
	"REPLACE_ME":          true,
	"XXX":                 true,
	"TODO":                true,
}

// IsPlaceholder reports whether a credential is empty or a template value
// such as "YOUR_API_KEY" or "<gemini-key>".
func IsPlaceholder(value string) bool {
	v := strings.TrimSpace(value)
	if v == "" {
		return true
	}
	if strings.HasPrefix(v, "<") && strings.HasSuffix(v, ">") {
		return true
	}
	if strings.HasPrefix(v, "${") && strings.HasSuffix(v, "}") {
		return true
	}
	return placeholderValues[strings.ToUpper(v)]
}

// IsPlaceholderProjectID reports whether the Gemini project id was left unset.
func IsPlaceholderProjectID(id string) bool {
	id = strings.TrimSpace(id)
	return id == "" || id == DefaultGeminiProjectID || IsPlaceholder(id)
}

// CheckAPIKeys returns the status of all required API keys.
func CheckAPIKeys(cfg *Config) []KeyStatus {
	return []KeyStatus{
		checkKey("Gemini API Key", cfg.Gemini.APIKey, "STOCKLENS_GEMINI_API_KEY"),
		checkKey("Alpha Vantage API Key", cfg.AlphaVantage.APIKey, "STOCKLENS_ALPHAVANTAGE_API_KEY"),
	}
}

// checkKey checks if a key is set and where it came from.
func checkKey(name, value, envVar string) KeyStatus {
	status := KeyStatus{
		Name:  name,
		IsSet: value != "",
	}

	if value == "" {
		status.Source = KeySourceNone
		return status
	}

	if os.Getenv(envVar) != "" {
		status.Source = KeySourceEnv
	} else {
		status.Source = KeySourceConfig
	}
	status.IsPlaceholder = IsPlaceholder(value)
	status.Masked = MaskKey(value)
	return status
}

// MaskKey masks an API key for display, showing only first 3 and last 3 chars.
func MaskKey(key string) string {
	if len(key) <= 8 {
		return "***"
	}
	return key[:3] + "..." + key[len(key)-3:]
}
