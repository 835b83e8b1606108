package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/aluiziolira/go-scrape-leads/api"
	"github.com/aluiziolira/go-scrape-leads/config"
	"github.com/aluiziolira/go-scrape-leads/discovery"
	"github.com/aluiziolira/go-scrape-leads/models"
	"github.com/aluiziolira/go-scrape-leads/pipeline"
	"github.com/aluiziolira/go-scrape-leads/scraper"
	"github.com/aluiziolira/go-scrape-leads/search"
	"github.com/briandowns/spinner"
	charmlog "github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const usage = `usage: leadscout <command> [flags] [target...]

commands:
  serve    run the HTTP API
  scan     scan a website and likely contact pages
  deep     mine search results for addresses tied to a domain
  scrape   scan starting from an exact page URL
  bulk     scan many targets from -input or arguments and write a report

run "leadscout <command> -h" for the flags of a command.
`

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		fmt.Fprint(os.Stderr, usage)
		return 2
	}
	command := args[0]
	switch command {
	case "serve", "scan", "deep", "scrape", "bulk":
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", command, usage)
		return 2
	}

	if err := loadDotEnv(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
		return 1
	}

	cfg, rest, err := parseConfig(command, args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 2
	}

	logger, level := newLogger(cfg.Verbose)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level.Level())

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics := scraper.NewMetrics()
	fetcher, err := scraper.New(cfg, metrics)
	if err != nil {
		slog.Error("initialising fetcher", slog.Any("error", err))
		return 1
	}
	if closer, ok := fetcher.(io.Closer); ok {
		defer func() {
			if err := closer.Close(); err != nil {
				slog.Warn("close fetcher", slog.Any("error", err))
			}
		}()
	}
	searcher, err := search.New(cfg)
	if err != nil {
		slog.Error("initialising search provider", slog.Any("error", err))
		return 1
	}
	engine, err := discovery.New(cfg, fetcher, searcher, metrics)
	if err != nil {
		slog.Error("initialising engine", slog.Any("error", err))
		return 1
	}

	switch command {
	case "serve":
		return serve(ctx, cfg, engine, metrics)
	case "bulk":
		return bulk(ctx, cfg, engine, metrics, rest)
	}

	if len(rest) != 1 {
		fmt.Fprintf(os.Stderr, "%s needs exactly one target\n", command)
		return 2
	}
	do := map[string]func(context.Context, string) *models.Result{
		"scan":   engine.ScanWebsite,
		"deep":   engine.DeepSearch,
		"scrape": engine.Scrape,
	}[command]
	return oneShot(ctx, command, rest[0], do)
}

// loadDotEnv loads path when it exists. Variables already set in the
// environment win.
func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// parseConfig layers flags over environment over defaults and returns the
// positional arguments.
func parseConfig(command string, args []string) (*config.Config, []string, error) {
	cfg := config.DefaultConfig()
	if err := config.LoadEnv(cfg); err != nil {
		return nil, nil, fmt.Errorf("invalid environment: %w", err)
	}

	fs := flag.NewFlagSet(command, flag.ContinueOnError)
	fs.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "Per-fetch timeout")
	fs.IntVar(&cfg.Parallelism, "parallel", cfg.Parallelism, "Concurrent fetches or queries per request")
	fs.DurationVar(&cfg.Delay, "delay", cfg.Delay, "Pause before each fetch")
	fs.DurationVar(&cfg.RandomDelay, "random-delay", cfg.RandomDelay, "Random jitter added to the pause")
	fs.StringVar(&cfg.UserAgent, "user-agent", cfg.UserAgent, "User-Agent header for fetches")
	fs.BoolVar(&cfg.RespectRobotsTxt, "respect-robots", cfg.RespectRobotsTxt, "Respect robots.txt directives")
	fs.BoolVar(&cfg.RenderJS, "render-js", cfg.RenderJS, "Fetch pages with headless Chrome")
	fs.DurationVar(&cfg.RenderWait, "render-wait", cfg.RenderWait, "Extra wait after page load when rendering")
	fs.IntVar(&cfg.MaxSubpages, "max-subpages", cfg.MaxSubpages, "Subpages to visit per scan (max 4)")
	fs.StringVar(&cfg.ScanPolicy, "scan-policy", cfg.ScanPolicy, "Scan policy: first_hit or exhaustive")
	fs.StringVar(&cfg.SearchProvider, "provider", cfg.SearchProvider, "Search provider: google, brave, duckduckgo, or rss")
	fs.DurationVar(&cfg.SearchTimeout, "search-timeout", cfg.SearchTimeout, "Per-query search timeout")
	fs.IntVar(&cfg.MaxQueries, "max-queries", cfg.MaxQueries, "Search queries per deep search (max 4)")
	fs.IntVar(&cfg.ResultsPerQuery, "results-per-query", cfg.ResultsPerQuery, "Search results requested per query")
	fs.StringVar(&cfg.RelevancePolicy, "relevance", cfg.RelevancePolicy, "Deep search relevance: strict, webmail, or none")
	fs.IntVar(&cfg.MaxResults, "max-results", cfg.MaxResults, "Maximum leads per result")
	fs.StringVar(&cfg.InputFile, "input", cfg.InputFile, "Bulk input file, one target per line or CSV")
	fs.StringVar(&cfg.OutputFile, "output", cfg.OutputFile, "Bulk output file path")
	fs.StringVar(&cfg.OutputFormat, "format", cfg.OutputFormat, "Bulk output format: csv, json, or dual")
	fs.IntVar(&cfg.Workers, "workers", cfg.Workers, "Bulk worker count")
	fs.IntVar(&cfg.BatchSize, "batch-size", cfg.BatchSize, "Bulk results per output write")
	fs.Float64Var(&cfg.BulkRate, "rate", cfg.BulkRate, "Bulk targets started per second (0 = unpaced)")
	fs.BoolVar(&cfg.BulkDeep, "deep", cfg.BulkDeep, "Bulk mode runs deep search instead of a website scan")
	fs.StringVar(&cfg.ListenAddr, "listen", cfg.ListenAddr, "API listen address")
	fs.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "Prometheus metrics listen address for bulk runs (e.g. :9090)")
	fs.Func("allowed-origins", "Comma separated CORS origins", func(v string) error {
		cfg.AllowedOrigins = nil
		for _, origin := range strings.Split(v, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, origin)
			}
		}
		return nil
	})
	fs.BoolVar(&cfg.Verbose, "v", cfg.Verbose, "Enable verbose logging")

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	cfg.ScanPolicy = strings.ToLower(cfg.ScanPolicy)
	cfg.SearchProvider = strings.ToLower(cfg.SearchProvider)
	cfg.RelevancePolicy = strings.ToLower(cfg.RelevancePolicy)
	cfg.OutputFormat = strings.ToLower(cfg.OutputFormat)
	return cfg, fs.Args(), nil
}

func serve(ctx context.Context, cfg *config.Config, engine *discovery.Engine, metrics *scraper.Metrics) int {
	if !cfg.HasSearchCredentials() {
		slog.Warn("search provider has no credentials; deep search will report a configuration error",
			slog.String("provider", cfg.SearchProvider),
		)
	}
	if err := api.NewServer(cfg, engine, metrics).ListenAndServe(ctx); err != nil {
		slog.Error("api server failed", slog.Any("error", err))
		return 1
	}
	return 0
}

func oneShot(ctx context.Context, command, target string, do func(context.Context, string) *models.Result) int {
	var spin *spinner.Spinner
	if isTerminal(os.Stderr) {
		spin = spinner.New(spinner.CharSets[9], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
		spin.Suffix = fmt.Sprintf(" %s %s", command, target)
		spin.Start()
	}
	result := do(ctx, target)
	if spin != nil {
		spin.Stop()
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		slog.Error("write result", slog.Any("error", err))
		return 1
	}
	if result.Status == models.StatusError {
		return 1
	}
	return 0
}

func bulk(ctx context.Context, cfg *config.Config, engine *discovery.Engine, metrics *scraper.Metrics, args []string) int {
	targets := args
	if cfg.InputFile != "" {
		fromFile, err := pipeline.ReadTargetsFile(cfg.InputFile)
		if err != nil {
			slog.Error("reading targets", slog.Any("error", err))
			return 1
		}
		targets = append(fromFile, targets...)
	}
	if len(targets) == 0 {
		fmt.Fprintln(os.Stderr, "bulk needs -input or target arguments")
		return 2
	}

	writer, err := pipeline.NewWriter(cfg.OutputFormat, cfg.OutputFile)
	if err != nil {
		slog.Error("creating writer", slog.Any("error", err))
		return 1
	}
	defer func() {
		if err := writer.Close(); err != nil {
			slog.Error("close writer", slog.Any("error", err))
		}
	}()

	var metricsServer *http.Server
	if cfg.MetricsAddr != "" {
		metricsServer = &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", slog.Any("error", err))
			}
		}()
		slog.Info("metrics server enabled", slog.String("addr", cfg.MetricsAddr))
	}

	runner := pipeline.Runner(engine.ScanWebsite)
	if cfg.BulkDeep {
		runner = engine.DeepSearch
	}

	slog.Info("starting bulk run",
		slog.Int("targets", len(targets)),
		slog.Int("workers", cfg.Workers),
		slog.Bool("deep", cfg.BulkDeep),
	)

	p := pipeline.NewPipeline(ctx, runner, writer, cfg)
	p.Metrics = metrics
	p.Start(cfg.Workers)
	if cfg.Verbose {
		p.StartMetricsReporting(10 * time.Second)
	}

	startTime := time.Now()
	for _, target := range targets {
		if err := p.Process(target); err != nil {
			slog.Warn("bulk intake stopped", slog.Any("error", err))
			break
		}
	}

	if err := p.Close(); err != nil {
		slog.Error("pipeline shutdown failed", slog.Any("error", err))
		return 1
	}
	if err := writer.Validate(); err != nil {
		slog.Error("output validation failed", slog.Any("error", err))
		return 1
	}

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("metrics server shutdown failed", slog.Any("error", err))
		}
		cancel()
	}

	printSummary(p.GetMetrics(), time.Since(startTime), cfg.OutputFile)
	return 0
}

func printSummary(metrics map[string]interface{}, duration time.Duration, outputFile string) {
	separator := "--------------------------------------------------"
	fmt.Println("\n" + separator)
	fmt.Println("Bulk scan complete")

	processed, _ := metrics["processed_targets"].(int64)
	leads, _ := metrics["leads"].(int64)
	fmt.Printf("  Targets:       %d\n", processed)
	fmt.Printf("  Leads:         %d\n", leads)
	if byStatus, ok := metrics["by_status"].(map[string]int); ok && len(byStatus) > 0 {
		fmt.Printf("  By status:     %v\n", byStatus)
	}
	if skipped, ok := metrics["skipped"].(map[string]int); ok && len(skipped) > 0 {
		fmt.Printf("  Skipped:       %v\n", skipped)
	}
	perSec := 0.0
	if duration.Seconds() > 0 {
		perSec = float64(processed) / duration.Seconds()
	}
	fmt.Printf("  Duration:      %v\n", duration)
	fmt.Printf("  Targets/sec:   %.2f\n", perSec)
	fmt.Printf("  Output file:   %s\n", outputFile)
	fmt.Println(separator)
}

func newLogger(verbose bool) (*slog.Logger, *slog.LevelVar) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	var handler slog.Handler
	if isTerminal(os.Stderr) {
		charmLevel := charmlog.InfoLevel
		if verbose {
			charmLevel = charmlog.DebugLevel
		}
		handler = charmlog.NewWithOptions(os.Stderr, charmlog.Options{
			ReportTimestamp: true,
			TimeFormat:      time.Kitchen,
			Level:           charmLevel,
		})
	} else {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}

	return slog.New(handler), level
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
