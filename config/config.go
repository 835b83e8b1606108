package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Scan policies control how many pages a fast scan visits.
const (
	ScanFirstHit   = "first_hit"
	ScanExhaustive = "exhaustive"
)

// Hard caps on outbound work per request.
const (
	MaxSubpagesLimit = 4
	MaxQueriesLimit  = 4
	MaxResultsLimit  = 50
)

// Config holds scanner configuration.
type Config struct {
	// Fetching
	Timeout          time.Duration
	Parallelism      int
	Delay            time.Duration
	RandomDelay      time.Duration
	UserAgent        string
	RespectRobotsTxt bool
	RenderJS         bool
	RenderWait       time.Duration

	// Fast scan
	MaxSubpages  int
	SubpagePaths []string
	ScanPolicy   string

	// Deep search
	SearchProvider  string // google, brave, duckduckgo, or rss
	GoogleAPIKey    string
	GoogleCX        string
	BraveAPIKey     string
	SearchTimeout   time.Duration
	MaxQueries      int
	ResultsPerQuery int
	RelevancePolicy string // strict, webmail, or none

	MaxResults int

	// Bulk mode
	InputFile          string
	OutputFile         string
	OutputFormat       string // csv, json, or dual
	Workers            int
	BatchSize          int
	PipelineBufferSize int
	DedupeMaxSize      int
	BulkRate           float64
	BulkDeep           bool

	// Serving
	ListenAddr     string
	MetricsAddr    string
	AllowedOrigins []string

	Verbose bool
}

// DefaultConfig returns conservative defaults.
func DefaultConfig() *Config {
	return &Config{
		Timeout:          10 * time.Second,
		Parallelism:      8,
		Delay:            0,
		RandomDelay:      0,
		UserAgent:        "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/117.0.0.0 Safari/537.36",
		RespectRobotsTxt: false,
		RenderJS:         false,
		RenderWait:       0,

		MaxSubpages:  2,
		SubpagePaths: []string{"/contact", "/about", "/contact-us", "/team"},
		ScanPolicy:   ScanFirstHit,

		SearchProvider:  "google",
		SearchTimeout:   15 * time.Second,
		MaxQueries:      3,
		ResultsPerQuery: 10,
		RelevancePolicy: "strict",

		MaxResults: 10,

		OutputFile:         "output/leads.csv",
		OutputFormat:       "csv",
		Workers:            4,
		BatchSize:          16,
		PipelineBufferSize: 256,
		DedupeMaxSize:      100000,
		BulkRate:           0,

		ListenAddr:     ":8080",
		AllowedOrigins: []string{"*"},
	}
}

// Validate ensures all configuration values are coherent. Search
// credentials are not checked; their absence is reported per deep search.
func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.Parallelism <= 0 {
		return fmt.Errorf("parallelism must be positive")
	}
	if c.Delay < 0 {
		return fmt.Errorf("delay cannot be negative")
	}
	if c.RandomDelay < 0 {
		return fmt.Errorf("random delay cannot be negative")
	}
	if c.RenderWait < 0 {
		return fmt.Errorf("render wait cannot be negative")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}

	if c.MaxSubpages < 0 || c.MaxSubpages > MaxSubpagesLimit {
		return fmt.Errorf("max subpages must be between 0 and %d", MaxSubpagesLimit)
	}
	for _, p := range c.SubpagePaths {
		if !strings.HasPrefix(p, "/") {
			return fmt.Errorf("subpage path %q must start with /", p)
		}
	}
	if c.ScanPolicy != ScanFirstHit && c.ScanPolicy != ScanExhaustive {
		return fmt.Errorf("scan policy must be %s or %s", ScanFirstHit, ScanExhaustive)
	}

	switch c.SearchProvider {
	case "google", "brave", "duckduckgo", "rss":
	default:
		return fmt.Errorf("search provider must be google, brave, duckduckgo, or rss")
	}
	if c.SearchTimeout <= 0 {
		return fmt.Errorf("search timeout must be positive")
	}
	if c.MaxQueries <= 0 || c.MaxQueries > MaxQueriesLimit {
		return fmt.Errorf("max queries must be between 1 and %d", MaxQueriesLimit)
	}
	if c.ResultsPerQuery <= 0 || c.ResultsPerQuery > 10 {
		return fmt.Errorf("results per query must be between 1 and 10")
	}
	switch c.RelevancePolicy {
	case "strict", "webmail", "none":
	default:
		return fmt.Errorf("relevance policy must be strict, webmail, or none")
	}

	if c.MaxResults <= 0 || c.MaxResults > MaxResultsLimit {
		return fmt.Errorf("max results must be between 1 and %d", MaxResultsLimit)
	}

	if c.OutputFormat != "csv" && c.OutputFormat != "json" && c.OutputFormat != "dual" {
		return fmt.Errorf("output format must be csv, json, or dual")
	}
	if c.Workers <= 0 {
		return fmt.Errorf("workers must be positive")
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive")
	}
	if c.PipelineBufferSize <= 0 {
		return fmt.Errorf("pipeline buffer size must be positive")
	}
	if c.DedupeMaxSize <= 0 {
		return fmt.Errorf("dedupe max size must be positive")
	}
	if c.BulkRate < 0 {
		return fmt.Errorf("bulk rate cannot be negative")
	}

	for _, origin := range c.AllowedOrigins {
		if origin == "*" {
			continue
		}
		parsed, err := url.Parse(origin)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("invalid allowed origin %q", origin)
		}
	}

	return nil
}

// HasSearchCredentials reports whether the selected provider has the keys
// it needs.
func (c *Config) HasSearchCredentials() bool {
	switch c.SearchProvider {
	case "google":
		return c.GoogleAPIKey != "" && c.GoogleCX != ""
	case "brave":
		return c.BraveAPIKey != ""
	default:
		return true
	}
}
