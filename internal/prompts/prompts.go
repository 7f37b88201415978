// Package prompts renders per-kind prompt templates for the generative model.
package prompts

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/seenimoa/stocklens/pkg/models"
)

// Placeholder tokens understood by Render.
const (
	PlaceholderTicker      = "{TICKER}"
	PlaceholderCompanyName = "{COMPANY_NAME}"
)

// Placeholders lists every token Render resolves.
var Placeholders = []string{PlaceholderTicker, PlaceholderCompanyName}

//go:embed prompts.yaml
var builtinYAML []byte

// Templates holds one prompt template per analysis kind.
type Templates struct {
	Context    string `yaml:"context"`
	Trend      string `yaml:"trend"`
	Competitor string `yaml:"competitor"`
}

// Default returns the built-in templates.
func Default() Templates {
	t, err := Parse(builtinYAML)
	if err != nil {
		// The embedded file is part of the binary; failing here is a build defect.
		panic(fmt.Sprintf("prompts: built-in templates: %v", err))
	}
	return t
}

// Parse decodes templates from YAML. Kinds missing from the document are left empty.
func Parse(data []byte) (Templates, error) {
	var t Templates
	if err := yaml.Unmarshal(data, &t); err != nil {
		return Templates{}, fmt.Errorf("prompts: parse templates: %w", err)
	}
	return t, nil
}

// LoadFile reads templates from a YAML file and fills any kind the file does
// not define from the built-in set.
func LoadFile(path string) (Templates, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Templates{}, fmt.Errorf("prompts: read %s: %w", path, err)
	}
	t, err := Parse(data)
	if err != nil {
		return Templates{}, err
	}
	return t.Merge(Default()), nil
}

// Merge returns t with every empty template taken from fallback.
func (t Templates) Merge(fallback Templates) Templates {
	if strings.TrimSpace(t.Context) == "" {
		t.Context = fallback.Context
	}
	if strings.TrimSpace(t.Trend) == "" {
		t.Trend = fallback.Trend
	}
	if strings.TrimSpace(t.Competitor) == "" {
		t.Competitor = fallback.Competitor
	}
	return t
}

// For returns the template for a kind.
func (t Templates) For(kind models.AnalysisKind) (string, error) {
	switch kind {
	case models.KindContext:
		return t.Context, nil
	case models.KindTrend:
		return t.Trend, nil
	case models.KindCompetitor:
		return t.Competitor, nil
	}
	return "", fmt.Errorf("prompts: no template for kind %q", kind)
}

// Render substitutes the ticker into template. The company name is not
// resolved separately, so {COMPANY_NAME} also receives the ticker. Tokens
// absent from the template are simply absent from the output.
func Render(template, ticker string) string {
	return strings.NewReplacer(
		PlaceholderCompanyName, ticker,
		PlaceholderTicker, ticker,
	).Replace(template)
}
