package search

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/aluiziolira/go-scrape-leads/config"
	"github.com/aluiziolira/go-scrape-leads/models"
	"github.com/mmcdole/gofeed"
)

// BingRSSEndpoint returns web results as an RSS channel when format=rss.
const BingRSSEndpoint = "https://www.bing.com/search"

// RSS reads results from a search engine's RSS output. It needs no
// credentials.
type RSS struct {
	Client    *http.Client
	Endpoint  string
	UserAgent string
	Limit     int
}

// NewRSS builds the Bing RSS provider.
func NewRSS(cfg *config.Config) *RSS {
	return &RSS{
		Client:    newClient(cfg),
		Endpoint:  BingRSSEndpoint,
		UserAgent: cfg.UserAgent,
		Limit:     cfg.ResultsPerQuery,
	}
}

func (r *RSS) Name() string { return "rss" }

func (r *RSS) Configured() error { return nil }

func (r *RSS) Search(ctx context.Context, query string) ([]models.SearchResult, error) {
	params := url.Values{}
	params.Set("format", "rss")
	params.Set("q", query)

	status, body, err := get(ctx, r.Client, r.Endpoint+"?"+params.Encode(), http.Header{
		"User-Agent": {r.UserAgent},
		"Accept":     {"application/rss+xml, application/xml;q=0.9, text/xml;q=0.8"},
	})
	if err != nil {
		return nil, fmt.Errorf("rss search: %w", err)
	}
	if status != http.StatusOK {
		return nil, &ProviderError{Provider: r.Name(), Code: status, Message: http.StatusText(status)}
	}

	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse rss feed: %w", err)
	}

	results := make([]models.SearchResult, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		snippet := item.Description
		if snippet == "" {
			snippet = item.Content
		}
		results = append(results, models.SearchResult{
			Title:   plainText(item.Title),
			Snippet: plainText(snippet),
			Link:    strings.TrimSpace(item.Link),
		})
	}
	return truncate(results, r.Limit), nil
}
