// Package discovery drives fetches and searches for one target and turns
// what they return into a ranked, deduplicated set of leads.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/aluiziolira/go-scrape-leads/config"
	"github.com/aluiziolira/go-scrape-leads/models"
	"github.com/aluiziolira/go-scrape-leads/parser"
	"github.com/aluiziolira/go-scrape-leads/scraper"
	"github.com/aluiziolira/go-scrape-leads/search"
)

// Request modes, used as metric and log labels.
const (
	ModeScan   = "scan"
	ModeDeep   = "deep_search"
	ModeScrape = "scrape"
)

// Source labels reported in results.
const (
	SourceWebsiteScan = "Website Scan"
	SourcePageScrape  = "Page Scrape"
)

// ErrUnreachable is returned when no page or query produced a response.
var ErrUnreachable = errors.New("no source could be fetched")

// ErrNoSearcher is returned by DeepSearch on an engine built without a
// search provider.
var ErrNoSearcher = errors.New("no search provider configured")

// ErrNoFetcher is returned by page scans on an engine built without a
// fetcher.
var ErrNoFetcher = errors.New("no fetcher configured")

// Engine runs discovery requests. It holds no per-request state and is safe
// for concurrent use.
type Engine struct {
	cfg      *config.Config
	fetcher  scraper.Fetcher
	searcher search.Searcher
	metrics  *scraper.Metrics
	policy   RelevancePolicy
}

// New builds an engine. fetcher or searcher may be nil, in which case the
// modes that need them report a configuration error.
func New(cfg *config.Config, fetcher scraper.Fetcher, searcher search.Searcher, metrics *scraper.Metrics) (*Engine, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	policy, err := PolicyByName(cfg.RelevancePolicy)
	if err != nil {
		return nil, err
	}
	return &Engine{
		cfg:      cfg,
		fetcher:  fetcher,
		searcher: searcher,
		metrics:  metrics,
		policy:   policy,
	}, nil
}

// Policy returns the relevance policy applied to deep-search results.
func (e *Engine) Policy() RelevancePolicy {
	return e.policy
}

type runFunc func(ctx context.Context, res *models.Result) ([]models.Lead, error)

// execute runs fn at the request boundary: every failure, including a
// panic, becomes a well-formed error result.
func (e *Engine) execute(ctx context.Context, mode, source, raw string, fn runFunc) (res *models.Result) {
	if ctx == nil {
		ctx = context.Background()
	}
	start := time.Now()
	res = &models.Result{
		Source:    source,
		Target:    raw,
		Leads:     []models.Lead{},
		ScannedAt: start.UTC(),
	}

	defer func() {
		if r := recover(); r != nil {
			slog.Error("discovery panic",
				slog.String("mode", mode),
				slog.String("target", raw),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())),
			)
			setError(res, models.ErrorInternal, fmt.Sprintf("internal error: %v", r))
		}
		res.Duration = time.Since(start)
		e.metrics.ObserveRequest(mode, string(res.Status), res.Duration)
		for _, lead := range res.Leads {
			e.metrics.AddLeads(string(lead.Confidence), 1)
		}

		attrs := []any{
			slog.String("mode", mode),
			slog.String("target", raw),
			slog.String("status", string(res.Status)),
			slog.Int("leads", len(res.Leads)),
			slog.Duration("duration", res.Duration),
		}
		if res.Error != nil {
			attrs = append(attrs, slog.String("error_kind", string(res.Error.Kind)), slog.String("error", res.Error.Message))
		}
		slog.Info("discovery finished", attrs...)
	}()

	leads, err := fn(ctx, res)
	if err != nil {
		setError(res, errorKind(err), err.Error())
		return res
	}

	res.Leads = Merge(leads, e.cfg.MaxResults)
	if len(res.Leads) == 0 {
		res.Status = models.StatusNoResults
	} else {
		res.Status = models.StatusSuccess
	}
	return res
}

func setError(res *models.Result, kind models.ErrorKind, message string) {
	res.Status = models.StatusError
	res.Leads = []models.Lead{}
	res.Error = &models.ErrorInfo{Kind: kind, Message: message}
}

func errorKind(err error) models.ErrorKind {
	var perr *search.ProviderError
	switch {
	case errors.Is(err, search.ErrMissingCredentials), errors.Is(err, ErrNoSearcher), errors.Is(err, ErrNoFetcher):
		return models.ErrorConfiguration
	case errors.Is(err, parser.ErrInvalidTarget):
		return models.ErrorInvalidTarget
	case errors.As(err, &perr):
		return models.ErrorProvider
	case errors.Is(err, ErrUnreachable):
		return models.ErrorFetch
	default:
		return models.ErrorInternal
	}
}

// panicError carries a panic recovered inside a worker goroutine.
type panicError struct {
	value any
	stack []byte
}

func (p *panicError) Error() string {
	return fmt.Sprintf("internal error: %v", p.value)
}

// guard converts a panic in fn into a returned *panicError so that worker
// goroutines cannot take the process down.
func guard(fn func() error) func() error {
	return func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				perr := &panicError{value: r, stack: debug.Stack()}
				slog.Error("worker panic", slog.Any("panic", r), slog.String("stack", string(perr.stack)))
				err = perr
			}
		}()
		return fn()
	}
}

func classifyAll(emails []string, source, domain string) []models.Lead {
	leads := make([]models.Lead, 0, len(emails))
	for _, email := range emails {
		leads = append(leads, models.NewLead(email, source, parser.Classify(email, domain)))
	}
	return leads
}
