// stocklens: qualitative stock analysis backed by Gemini and Alpha Vantage.
//
// Main CLI entrypoint using cobra command framework.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/seenimoa/stocklens/api"
	"github.com/seenimoa/stocklens/internal/analysis"
	"github.com/seenimoa/stocklens/internal/config"
	"github.com/seenimoa/stocklens/internal/datasource"
	"github.com/seenimoa/stocklens/internal/gemini"
	"github.com/seenimoa/stocklens/internal/infra"
	"github.com/seenimoa/stocklens/internal/logging"
	"github.com/seenimoa/stocklens/internal/prompts"
	"github.com/seenimoa/stocklens/pkg/models"
	"github.com/seenimoa/stocklens/pkg/utils"
)

// Build-time variables (set via -ldflags).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Global config and logger, set by the root command.
var (
	cfg *config.Config
	log *logrus.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "stocklens",
	Short: "stocklens: qualitative stock analysis with Gemini",
	Long: `stocklens combines a raw Alpha Vantage quote with structured,
Gemini-generated assessments of a stock: its overall context,
its financial trends and its competitive landscape.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		configFile, _ := cmd.Flags().GetString("config")
		if configFile != "" {
			cfg, err = config.LoadFromFile(configFile)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		level := cfg.Logging.Level
		if override, _ := cmd.Flags().GetString("log-level"); override != "" {
			level = override
		}
		log = logging.New(level, cfg.Logging.Format)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(quoteCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(statusCmd)
}

// --- Wiring ---

// newService builds the analysis pipeline from cfg.
func newService(opts ...analysis.Option) (*analysis.Service, error) {
	templates := prompts.Templates{
		Context:    cfg.Prompts.Context,
		Trend:      cfg.Prompts.Trend,
		Competitor: cfg.Prompts.Competitor,
	}
	if cfg.Prompts.File != "" {
		fromFile, err := prompts.LoadFile(cfg.Prompts.File)
		if err != nil {
			return nil, err
		}
		templates = templates.Merge(fromFile)
	}

	client := gemini.New(gemini.Config{
		APIKey:  cfg.Gemini.APIKey,
		Model:   cfg.Gemini.Model,
		BaseURL: cfg.Gemini.BaseURL,
		Timeout: cfg.Gemini.Timeout(),
	})

	base := []analysis.Option{
		analysis.WithLogger(log),
		analysis.WithCache(infra.NewCache[any](cfg.Cache.TTL())),
		analysis.WithRateLimiter(infra.NewRateLimiter(cfg.Gemini.RPM, cfg.Gemini.Burst)),
	}
	return analysis.NewService(client, analysis.Config{
		APIKey:     cfg.Gemini.APIKey,
		ProjectID:  cfg.Gemini.ProjectID,
		Templates:  templates,
		MaxRetries: cfg.Gemini.MaxRetries,
	}, append(base, opts...)...), nil
}

func newQuoteSource() *datasource.AlphaVantage {
	return datasource.NewAlphaVantage(cfg.AlphaVantage.APIKey, cfg.AlphaVantage.BaseURL, cfg.AlphaVantage.Timeout())
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

// --- Version Command ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	// Skip config loading.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("stocklens %s\n", version)
		fmt.Printf("  commit:  %s\n", commit)
		fmt.Printf("  built:   %s\n", date)
	},
}

// --- Analyze Command ---

var analyzeCmd = &cobra.Command{
	Use:   "analyze <context|trend|competitor> <ticker>",
	Short: "Run one analysis on a stock and print the JSON result",
	Example: `  stocklens analyze context AAPL
  stocklens analyze trends msft
  stocklens analyze competitors NVDA`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := models.ParseAnalysisKind(args[0])
		if err != nil {
			return err
		}

		svc, err := newService()
		if err != nil {
			return err
		}

		ctx, stop := signalContext()
		defer stop()

		result, err := svc.Analyze(ctx, kind, args[1])
		if err != nil {
			return fmt.Errorf("%s analysis failed [%s]: %s", kind, analysis.CodeOf(err), analysis.UserMessage(err))
		}
		return printJSON(result)
	},
}

// --- Quote Command ---

var quoteCmd = &cobra.Command{
	Use:   "quote <ticker>",
	Short: "Fetch the raw Alpha Vantage quote or daily series",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		daily, _ := cmd.Flags().GetBool("daily")
		outputSize, _ := cmd.Flags().GetString("timeframe")
		ticker := utils.NormalizeTicker(args[0])

		ctx, stop := signalContext()
		defer stop()

		src := newQuoteSource()
		var (
			body string
			err  error
		)
		if daily {
			body, err = src.FetchDailySeries(ctx, ticker, datasource.NormalizeOutputSize(outputSize))
		} else {
			body, err = src.FetchQuote(ctx, ticker)
		}
		if err != nil {
			return fmt.Errorf("quote for %s: %w", ticker, err)
		}
		fmt.Println(body)
		return nil
	},
}

func init() {
	quoteCmd.Flags().Bool("daily", false, "fetch the daily time series instead of the latest quote")
	quoteCmd.Flags().String("timeframe", datasource.OutputCompact, "daily series size: compact or full")
}

// --- Serve Command (API Server) ---

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		if port, _ := cmd.Flags().GetInt("port"); port > 0 {
			cfg.API.Port = port
		}
		timeout, _ := cmd.Flags().GetDuration("request-timeout")

		hub := api.NewWSHub(log)
		svc, err := newService(analysis.WithObserver(hub.PublishEvent))
		if err != nil {
			return err
		}

		for _, k := range config.CheckAPIKeys(cfg) {
			if !k.IsSet || k.IsPlaceholder {
				log.WithField("key", k.Name).Warn("API key missing or placeholder; affected endpoints will fail")
			}
		}

		srv := api.NewServer(cfg, svc, newQuoteSource(),
			api.WithHub(hub),
			api.WithLogger(log),
			api.WithVersion(version),
			api.WithRequestTimeout(timeout),
		)

		ctx, stop := signalContext()
		defer stop()
		if ttl := cfg.Cache.TTL(); ttl > 0 {
			go svc.RunCacheCleanup(ctx, ttl)
		}
		return srv.ListenAndServe(ctx, cfg.API.Addr())
	},
}

func init() {
	serveCmd.Flags().Int("port", 0, "listen port (overrides api.port)")
	serveCmd.Flags().Duration("request-timeout", 120*time.Second, "per-request deadline for analysis routes")
}

// --- Status Command ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show configuration and API key status",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("═══════════════════════════════════════")
		fmt.Println("  stocklens: System Status")
		fmt.Println("═══════════════════════════════════════")
		fmt.Printf("  Version:       %s (%s)\n", version, commit)
		fmt.Println()

		fmt.Println("  Configuration:")
		fmt.Printf("    Gemini Model:  %s\n", cfg.Gemini.Model)
		fmt.Printf("    Project ID:    %s\n", cfg.Gemini.ProjectID)
		fmt.Printf("    Rate Limit:    %d rpm (burst %d)\n", cfg.Gemini.RPM, cfg.Gemini.Burst)
		fmt.Printf("    Cache TTL:     %s\n", ttlLabel(cfg.Cache.TTL()))
		fmt.Printf("    API Server:    %s\n", cfg.API.Addr())
		fmt.Println()

		fmt.Println("  API Keys:")
		for _, k := range config.CheckAPIKeys(cfg) {
			status := "❌ not set"
			switch {
			case k.IsSet && k.IsPlaceholder:
				status = fmt.Sprintf("⚠️  placeholder (%s)", k.Source)
			case k.IsSet:
				status = fmt.Sprintf("✅ set (%s: %s)", k.Source, k.Masked)
			}
			fmt.Printf("    %-25s %s\n", k.Name+":", status)
		}
		if config.IsPlaceholderProjectID(cfg.Gemini.ProjectID) {
			fmt.Println()
			fmt.Println("  ⚠️  Gemini project id is unset; analysis still runs.")
		}

		fmt.Println("═══════════════════════════════════════")
		return nil
	},
}

func ttlLabel(d time.Duration) string {
	if d <= 0 {
		return "process lifetime"
	}
	return d.String()
}
