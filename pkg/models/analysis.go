package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// AnalysisKind identifies which qualitative assessment is requested for a stock.
type AnalysisKind string

const (
	KindContext    AnalysisKind = "context"
	KindTrend      AnalysisKind = "trend"
	KindCompetitor AnalysisKind = "competitor"
)

// AnalysisKinds lists every supported kind in a stable order.
var AnalysisKinds = []AnalysisKind{KindContext, KindTrend, KindCompetitor}

// ParseAnalysisKind maps user input ("trend", "Trends", "competitors") to a kind.
func ParseAnalysisKind(s string) (AnalysisKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "context", "":
		return KindContext, nil
	case "trend", "trends":
		return KindTrend, nil
	case "competitor", "competitors":
		return KindCompetitor, nil
	}
	return "", fmt.Errorf("unknown analysis kind %q", s)
}

// AnalysisRequest is a single inbound analysis call.
type AnalysisRequest struct {
	Ticker string       `json:"ticker"`
	Kind   AnalysisKind `json:"kind"`
}

// Every field of the analysis DTOs is required to be present in the model's
// reply. Strings are pointers so that a present empty string ("") can be told
// apart from an absent or null field; collections are required to be non-null
// but may be empty.

// String returns a pointer to s.
func String(s string) *string { return &s }

// StringValue returns *p, or "" when p is nil.
func StringValue(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// ── Context ──

// ContextFactor is one named qualitative factor, e.g. "Size Category" → "Large-cap".
type ContextFactor struct {
	FactorName    *string `json:"factorName" validate:"required"`
	Determination *string `json:"determination" validate:"required"`
	Explanation   *string `json:"explanation" validate:"required"`
}

// ContextAnalysis is the overall stock context: size, growth stage, sector
// position and similar factors, in the order the model emitted them.
type ContextAnalysis struct {
	Ticker  *string         `json:"ticker" validate:"required"`
	Factors []ContextFactor `json:"factors" validate:"required,dive"`
}

// ── Trend ──

// TrendDirection is a direction label ("Improving", "Stable", "Declining")
// with its supporting analysis.
type TrendDirection struct {
	Direction *string `json:"direction" validate:"required"`
	Analysis  *string `json:"analysis" validate:"required"`
}

// TrendAnalysis describes the financial trends of a company.
type TrendAnalysis struct {
	Ticker                 *string         `json:"ticker" validate:"required"`
	ProfitabilityTrend     *TrendDirection `json:"profitabilityTrend" validate:"required"`
	GrowthTrend            *TrendDirection `json:"growthTrend" validate:"required"`
	FinancialHealthTrend   *TrendDirection `json:"financialHealthTrend" validate:"required"`
	OverallTrendAssessment *string         `json:"overallTrendAssessment" validate:"required"`
}

// ── Competitor ──

// Competitor is a single peer company. Ticker is "" for private companies.
type Competitor struct {
	Name              *string           `json:"name" validate:"required"`
	Ticker            *string           `json:"ticker" validate:"required"`
	KeyStrengths      []string          `json:"keyStrengths" validate:"required"`
	KeyWeaknesses     []string          `json:"keyWeaknesses" validate:"required"`
	ComparisonMetrics map[string]string `json:"comparisonMetrics" validate:"required"`
}

// CompetitorAnalysis lists the main competitors and the stock's position among them.
type CompetitorAnalysis struct {
	Ticker              *string      `json:"ticker" validate:"required"`
	Competitors         []Competitor `json:"competitors" validate:"required,dive"`
	CompetitivePosition *string      `json:"competitivePosition" validate:"required"`
}

// StockAnalysisResponse combines the raw provider quote with the context analysis.
// The quote is embedded verbatim; it is never parsed.
type StockAnalysisResponse struct {
	QuoteData       json.RawMessage  `json:"quoteData"`
	ContextAnalysis *ContextAnalysis `json:"contextAnalysis"`
}
