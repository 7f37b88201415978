package prompts

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/seenimoa/stocklens/pkg/models"
)

func TestRender(t *testing.T) {
	tests := []struct {
		name     string
		template string
		ticker   string
		want     string
	}{
		{"both tokens", "Analyze {COMPANY_NAME} ({TICKER})", "AAPL", "Analyze AAPL (AAPL)"},
		{"repeated", "{TICKER}/{TICKER}", "MSFT", "MSFT/MSFT"},
		{"no tokens", "plain prompt", "IBM", "plain prompt"},
		{"only company", "About {COMPANY_NAME}", "TSLA", "About TSLA"},
		{"unknown token kept", "{SECTOR} of {TICKER}", "NVDA", "{SECTOR} of NVDA"},
		{"empty template", "", "AAPL", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Render(tt.template, tt.ticker); got != tt.want {
				t.Errorf("Render() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDefaultTemplatesResolveAllPlaceholders(t *testing.T) {
	tpl := Default()
	for _, kind := range models.AnalysisKinds {
		text, err := tpl.For(kind)
		if err != nil {
			t.Fatalf("For(%s): %v", kind, err)
		}
		if !strings.Contains(text, PlaceholderTicker) {
			t.Errorf("%s template does not reference %s", kind, PlaceholderTicker)
		}
		for _, ticker := range []string{"AAPL", "BRK-B", "X"} {
			out := Render(text, ticker)
			for _, p := range Placeholders {
				if strings.Contains(out, p) {
					t.Errorf("%s/%s: unresolved %s", kind, ticker, p)
				}
			}
			if !strings.Contains(out, ticker) {
				t.Errorf("%s/%s: ticker missing from prompt", kind, ticker)
			}
		}
	}
}

func TestForUnknownKind(t *testing.T) {
	if _, err := Default().For("sentiment"); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}

func TestMerge(t *testing.T) {
	custom := Templates{Trend: "custom trend {TICKER}"}
	merged := custom.Merge(Default())
	if merged.Trend != "custom trend {TICKER}" {
		t.Errorf("Trend overridden: %q", merged.Trend)
	}
	if merged.Context != Default().Context || merged.Competitor != Default().Competitor {
		t.Error("missing kinds should fall back to built-ins")
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompts.yaml")
	body := "context: |\n  Context for {TICKER}\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	tpl, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if tpl.Context != "Context for {TICKER}\n" {
		t.Errorf("Context: %q", tpl.Context)
	}
	if tpl.Trend == "" || tpl.Competitor == "" {
		t.Error("kinds absent from file should come from built-ins")
	}
}

func TestLoadFileErrors(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("context: [unterminated"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(path); err == nil {
		t.Error("expected parse error")
	}
}
