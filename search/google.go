package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/aluiziolira/go-scrape-leads/config"
	"github.com/aluiziolira/go-scrape-leads/models"
	"github.com/samber/lo"
)

// GoogleEndpoint is the Custom Search JSON API.
const GoogleEndpoint = "https://www.googleapis.com/customsearch/v1"

// Google queries the Custom Search JSON API with an API key and engine ID.
type Google struct {
	Client   *http.Client
	Endpoint string
	APIKey   string
	CX       string
	Num      int
}

// NewGoogle builds a Google provider from cfg.
func NewGoogle(cfg *config.Config) *Google {
	return &Google{
		Client:   newClient(cfg),
		Endpoint: GoogleEndpoint,
		APIKey:   cfg.GoogleAPIKey,
		CX:       cfg.GoogleCX,
		Num:      cfg.ResultsPerQuery,
	}
}

func (g *Google) Name() string { return "google" }

// Configured reports whether both the key and the engine ID are present.
func (g *Google) Configured() error {
	if g.APIKey == "" || g.CX == "" {
		return fmt.Errorf("%w: google needs GOOGLE_API_KEY and GOOGLE_CX", ErrMissingCredentials)
	}
	return nil
}

type googleItem struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

type googleResponse struct {
	Items []googleItem `json:"items"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Search runs one query. An "error" object in the payload, or any non-200
// status, is returned as a *ProviderError.
func (g *Google) Search(ctx context.Context, query string) ([]models.SearchResult, error) {
	if err := g.Configured(); err != nil {
		return nil, err
	}

	num := g.Num
	if num <= 0 || num > 10 {
		num = 10
	}
	params := url.Values{}
	params.Set("key", g.APIKey)
	params.Set("cx", g.CX)
	params.Set("q", query)
	params.Set("num", strconv.Itoa(num))

	status, body, err := get(ctx, g.Client, g.Endpoint+"?"+params.Encode(), http.Header{
		"Accept": {"application/json"},
	})
	if err != nil {
		return nil, fmt.Errorf("google search: %w", err)
	}

	var payload googleResponse
	decodeErr := json.Unmarshal(body, &payload)
	if decodeErr == nil && payload.Error != nil {
		return nil, &ProviderError{Provider: g.Name(), Code: payload.Error.Code, Message: payload.Error.Message}
	}
	if status != http.StatusOK {
		return nil, &ProviderError{Provider: g.Name(), Code: status, Message: http.StatusText(status)}
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("decode google response: %w", decodeErr)
	}

	results := lo.Map(payload.Items, func(item googleItem, _ int) models.SearchResult {
		return models.SearchResult{Title: item.Title, Snippet: item.Snippet, Link: item.Link}
	})
	return truncate(results, num), nil
}
