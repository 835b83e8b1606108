package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aluiziolira/go-scrape-leads/config"
	"github.com/aluiziolira/go-scrape-leads/models"
	"github.com/chromedp/chromedp"
)

// BrowserFetcher renders pages in headless Chrome so that script-built
// contact sections are visible. The browser starts lazily on first fetch.
type BrowserFetcher struct {
	cfg     *config.Config
	Metrics *Metrics

	once          sync.Once
	startErr      error
	browserCtx    context.Context
	allocCancel   context.CancelFunc
	browserCancel context.CancelFunc
}

// NewBrowserFetcher builds a fetcher that drives Chrome through chromedp.
func NewBrowserFetcher(cfg *config.Config, metrics *Metrics) *BrowserFetcher {
	return &BrowserFetcher{cfg: cfg, Metrics: metrics}
}

func (b *BrowserFetcher) start() error {
	b.once.Do(func() {
		opts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.DisableGPU,
			chromedp.NoSandbox,
			chromedp.Headless,
			chromedp.UserAgent(b.cfg.UserAgent),
		)
		var allocCtx context.Context
		allocCtx, b.allocCancel = chromedp.NewExecAllocator(context.Background(), opts...)
		b.browserCtx, b.browserCancel = chromedp.NewContext(allocCtx)
		// Tabs created from browserCtx share this browser process.
		if err := chromedp.Run(b.browserCtx); err != nil {
			b.startErr = fmt.Errorf("start browser: %w", err)
		}
	})
	return b.startErr
}

// Fetch navigates a fresh tab to rawURL and returns the rendered markup.
func (b *BrowserFetcher) Fetch(ctx context.Context, rawURL string) (*models.Page, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := b.start(); err != nil {
		return nil, err
	}

	tabCtx, cancel := chromedp.NewContext(b.browserCtx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	timeoutCtx, timeoutCancel := context.WithTimeout(tabCtx, b.cfg.Timeout)
	defer timeoutCancel()

	start := time.Now()
	resp, err := chromedp.RunResponse(timeoutCtx,
		chromedp.Navigate(rawURL),
		chromedp.WaitReady("body"),
	)
	if err != nil {
		return nil, b.fail(ctx, rawURL, 0, err)
	}
	statusCode := 0
	contentType := ""
	if resp != nil {
		statusCode = int(resp.Status)
		contentType = resp.MimeType
	}
	if statusCode >= 300 {
		return nil, b.fail(ctx, rawURL, statusCode, fmt.Errorf("http status %d", statusCode))
	}

	tasks := []chromedp.Action{}
	if b.cfg.RenderWait > 0 {
		tasks = append(tasks, chromedp.Sleep(b.cfg.RenderWait))
	}
	var pageHTML, location string
	tasks = append(tasks,
		chromedp.OuterHTML("html", &pageHTML),
		chromedp.Location(&location),
	)
	if err := chromedp.Run(timeoutCtx, tasks...); err != nil {
		return nil, b.fail(ctx, rawURL, statusCode, err)
	}

	b.Metrics.ObserveDuration(time.Since(start))
	b.Metrics.IncFetch("ok")
	if location == "" {
		location = rawURL
	}
	return &models.Page{
		URL:         location,
		StatusCode:  statusCode,
		ContentType: contentType,
		Body:        []byte(pageHTML),
	}, nil
}

func (b *BrowserFetcher) fail(ctx context.Context, rawURL string, statusCode int, err error) error {
	if ctx.Err() != nil {
		b.Metrics.IncFetch("cancelled")
		return fmt.Errorf("render %s: %w", rawURL, ctx.Err())
	}
	classified := ClassifyError(err, statusCode)
	category := ErrorTypeLabel(classified)
	b.Metrics.IncFetch("error")
	b.Metrics.IncError(category)
	slog.Debug("render failed",
		slog.String("url", rawURL),
		slog.String("category", category),
		slog.Any("error", err),
	)
	return fmt.Errorf("render %s: %w", rawURL, classified)
}

// Close shuts the browser down.
func (b *BrowserFetcher) Close() error {
	if b.browserCancel != nil {
		b.browserCancel()
	}
	if b.allocCancel != nil {
		b.allocCancel()
	}
	return nil
}
