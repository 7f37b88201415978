package models

import (
	"encoding/json"
	"strings"
	"testing"
)

// ── Kind Tests ──

func TestParseAnalysisKind(t *testing.T) {
	tests := []struct {
		in      string
		want    AnalysisKind
		wantErr bool
	}{
		{"context", KindContext, false},
		{"", KindContext, false},
		{"Trend", KindTrend, false},
		{" trends ", KindTrend, false},
		{"competitor", KindCompetitor, false},
		{"COMPETITORS", KindCompetitor, false},
		{"sentiment", "", true},
	}
	for _, tt := range tests {
		got, err := ParseAnalysisKind(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseAnalysisKind(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseAnalysisKind(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestAnalysisKindsStableOrder(t *testing.T) {
	if len(AnalysisKinds) != 3 || AnalysisKinds[0] != KindContext || AnalysisKinds[2] != KindCompetitor {
		t.Errorf("unexpected kinds: %v", AnalysisKinds)
	}
}

// ── Wire Name Tests ──

func TestTrendAnalysisFieldNames(t *testing.T) {
	data, err := json.Marshal(TrendAnalysis{Ticker: String("AAPL"), OverallTrendAssessment: String("Positive")})
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{`"ticker"`, `"profitabilityTrend"`, `"growthTrend"`, `"financialHealthTrend"`, `"overallTrendAssessment"`} {
		if !strings.Contains(string(data), name) {
			t.Errorf("missing %s in %s", name, data)
		}
	}
}

func TestCompetitorKeepsEmptyValues(t *testing.T) {
	data, _ := json.Marshal(Competitor{
		Name:              String("Private Co"),
		Ticker:            String(""),
		KeyStrengths:      []string{},
		KeyWeaknesses:     []string{},
		ComparisonMetrics: map[string]string{},
	})
	for _, frag := range []string{`"ticker":""`, `"keyStrengths":[]`, `"keyWeaknesses":[]`, `"comparisonMetrics":{}`} {
		if !strings.Contains(string(data), frag) {
			t.Errorf("missing %s in %s", frag, data)
		}
	}
}

func TestStringHelpers(t *testing.T) {
	if StringValue(nil) != "" {
		t.Error("StringValue(nil) should be empty")
	}
	if p := String("x"); p == nil || StringValue(p) != "x" {
		t.Errorf("String/StringValue mismatch: %v", p)
	}
}

func TestContextFactorOrderPreserved(t *testing.T) {
	in := `{"ticker":"MSFT","factors":[
		{"factorName":"Size Category","determination":"Mega-cap","explanation":"a"},
		{"factorName":"Growth Stage","determination":"Mature","explanation":"b"},
		{"factorName":"Dividend Profile","determination":"Payer","explanation":"c"}]}`
	var ca ContextAnalysis
	if err := json.Unmarshal([]byte(in), &ca); err != nil {
		t.Fatal(err)
	}
	want := []string{"Size Category", "Growth Stage", "Dividend Profile"}
	for i, f := range ca.Factors {
		if StringValue(f.FactorName) != want[i] {
			t.Errorf("factor %d: got %q, want %q", i, StringValue(f.FactorName), want[i])
		}
	}
}

func TestStockAnalysisResponseEmbedsQuote(t *testing.T) {
	resp := StockAnalysisResponse{
		QuoteData:       json.RawMessage(`{"Global Quote":{"05. price":"10.00"}}`),
		ContextAnalysis: &ContextAnalysis{Ticker: String("IBM")},
	}
	data, err := json.Marshal(resp)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"quoteData":{"Global Quote":{"05. price":"10.00"}}`) {
		t.Errorf("quote not embedded verbatim: %s", data)
	}
	if !strings.Contains(string(data), `"contextAnalysis":{"ticker":"IBM"`) {
		t.Errorf("context missing: %s", data)
	}
}
