package search

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/aluiziolira/go-scrape-leads/config"
	"github.com/aluiziolira/go-scrape-leads/models"
)

// DuckDuckGoEndpoint serves the script-free results page.
const DuckDuckGoEndpoint = "https://html.duckduckgo.com/html/"

// DuckDuckGo scrapes the HTML results page. It needs no credentials.
type DuckDuckGo struct {
	Client    *http.Client
	Endpoint  string
	UserAgent string
	Limit     int
}

// NewDuckDuckGo builds an unauthenticated DuckDuckGo provider.
func NewDuckDuckGo(cfg *config.Config) *DuckDuckGo {
	return &DuckDuckGo{
		Client:    newClient(cfg),
		Endpoint:  DuckDuckGoEndpoint,
		UserAgent: cfg.UserAgent,
		Limit:     cfg.ResultsPerQuery,
	}
}

func (d *DuckDuckGo) Name() string { return "duckduckgo" }

func (d *DuckDuckGo) Configured() error { return nil }

// Search fetches one results page. DuckDuckGo answers 202 with a challenge
// page when it throttles a client; that is reported as a provider error.
func (d *DuckDuckGo) Search(ctx context.Context, query string) ([]models.SearchResult, error) {
	status, body, err := get(ctx, d.Client, d.Endpoint+"?q="+url.QueryEscape(query), http.Header{
		"User-Agent": {d.UserAgent},
		"Accept":     {"text/html"},
	})
	if err != nil {
		return nil, fmt.Errorf("duckduckgo search: %w", err)
	}
	if status == http.StatusAccepted || status == http.StatusTooManyRequests {
		return nil, &ProviderError{Provider: d.Name(), Code: status, Message: "request throttled"}
	}
	if status != http.StatusOK {
		return nil, &ProviderError{Provider: d.Name(), Code: status, Message: http.StatusText(status)}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse duckduckgo page: %w", err)
	}

	var results []models.SearchResult
	doc.Find(".result").Each(func(_ int, s *goquery.Selection) {
		if s.HasClass("result--ad") {
			return
		}
		anchor := s.Find(".result__a").First()
		href, ok := anchor.Attr("href")
		if !ok {
			return
		}
		results = append(results, models.SearchResult{
			Title:   strings.Join(strings.Fields(anchor.Text()), " "),
			Snippet: strings.Join(strings.Fields(s.Find(".result__snippet").First().Text()), " "),
			Link:    resolveDuckDuckGoURL(href),
		})
	})
	return truncate(results, d.Limit), nil
}

// resolveDuckDuckGoURL unwraps the /l/?uddg= redirect used on result links.
func resolveDuckDuckGoURL(href string) string {
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	return href
}
