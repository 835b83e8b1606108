// Package scraper fetches pages for the discovery engine.
package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net"
	"net/http"
	"time"

	"github.com/aluiziolira/go-scrape-leads/config"
	"github.com/aluiziolira/go-scrape-leads/models"
	"github.com/gocolly/colly/v2"
)

// Fetcher retrieves one URL. Implementations must honour ctx cancellation
// and must not retry.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*models.Page, error)
}

// New returns the fetcher selected by cfg.
func New(cfg *config.Config, metrics *Metrics) (Fetcher, error) {
	if cfg.RenderJS {
		return NewBrowserFetcher(cfg, metrics), nil
	}
	return NewHTTPFetcher(cfg, metrics)
}

// HTTPFetcher wraps a colly collector. Each fetch runs on a clone so
// callbacks never leak between requests. Clones share the HTTP backend,
// which keeps no cookie jar and no limit rules.
type HTTPFetcher struct {
	cfg       *config.Config
	collector *colly.Collector
	Metrics   *Metrics
}

// NewHTTPFetcher builds a fetcher configured from cfg.
func NewHTTPFetcher(cfg *config.Config, metrics *Metrics) (*HTTPFetcher, error) {
	collector := colly.NewCollector(
		colly.UserAgent(cfg.UserAgent),
		colly.AllowURLRevisit(),
		colly.MaxBodySize(10*1024*1024),
	)

	collector.SetRequestTimeout(cfg.Timeout)
	collector.DisableCookies()
	collector.IgnoreRobotsTxt = !cfg.RespectRobotsTxt
	collector.WithTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	})

	return &HTTPFetcher{
		cfg:       cfg,
		collector: collector,
		Metrics:   metrics,
	}, nil
}

// WithTransport replaces the HTTP transport used by every fetch.
func (f *HTTPFetcher) WithTransport(rt http.RoundTripper) {
	f.collector.WithTransport(rt)
}

type fetchOutcome struct {
	page *models.Page
	err  error
}

// Fetch issues a single GET. Non-2xx responses are returned as typed errors.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (*models.Page, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := f.pause(ctx); err != nil {
		f.Metrics.IncFetch("cancelled")
		return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}

	c := f.collector.Clone()
	c.Context = ctx
	var (
		page       *models.Page
		statusCode int
	)
	c.OnResponse(func(r *colly.Response) {
		page = &models.Page{
			URL:         r.Request.URL.String(),
			StatusCode:  r.StatusCode,
			ContentType: r.Headers.Get("Content-Type"),
			Body:        r.Body,
		}
	})
	c.OnError(func(r *colly.Response, _ error) {
		if r != nil {
			statusCode = r.StatusCode
		}
	})

	start := time.Now()
	done := make(chan fetchOutcome, 1)
	go func() {
		err := c.Visit(rawURL)
		done <- fetchOutcome{page: page, err: err}
	}()

	var out fetchOutcome
	select {
	case <-ctx.Done():
	case out = <-done:
	}
	if err := ctx.Err(); err != nil {
		f.Metrics.IncFetch("cancelled")
		return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	f.Metrics.ObserveDuration(time.Since(start))

	if out.err == nil && out.page == nil {
		out.err = fmt.Errorf("no response")
	}
	if out.err != nil {
		classified := ClassifyError(out.err, statusCode)
		category := ErrorTypeLabel(classified)
		f.Metrics.IncFetch("error")
		f.Metrics.IncError(category)
		slog.Debug("fetch failed",
			slog.String("url", rawURL),
			slog.Int("status", statusCode),
			slog.String("category", category),
			slog.Any("error", out.err),
		)
		return nil, fmt.Errorf("fetch %s: %w", rawURL, classified)
	}

	f.Metrics.IncFetch("ok")
	slog.Debug("fetched page",
		slog.String("url", out.page.URL),
		slog.Int("status", out.page.StatusCode),
		slog.Int("bytes", len(out.page.Body)),
	)
	return out.page, nil
}

// pause waits Delay plus up to RandomDelay of jitter before a fetch.
func (f *HTTPFetcher) pause(ctx context.Context) error {
	wait := f.cfg.Delay
	if f.cfg.RandomDelay > 0 {
		wait += rand.N(f.cfg.RandomDelay)
	}
	if wait <= 0 {
		return nil
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
