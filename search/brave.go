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

// BraveEndpoint is the Brave web search API.
const BraveEndpoint = "https://api.search.brave.com/res/v1/web/search"

// Brave queries the Brave Search API with a subscription token.
type Brave struct {
	Client   *http.Client
	Endpoint string
	APIKey   string
	Count    int
}

// NewBrave builds a Brave provider from cfg.
func NewBrave(cfg *config.Config) *Brave {
	return &Brave{
		Client:   newClient(cfg),
		Endpoint: BraveEndpoint,
		APIKey:   cfg.BraveAPIKey,
		Count:    cfg.ResultsPerQuery,
	}
}

func (b *Brave) Name() string { return "brave" }

func (b *Brave) Configured() error {
	if b.APIKey == "" {
		return fmt.Errorf("%w: brave needs BRAVE_SEARCH_API_KEY", ErrMissingCredentials)
	}
	return nil
}

type braveResult struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description"`
}

type braveResponse struct {
	Web struct {
		Results []braveResult `json:"results"`
	} `json:"web"`
	Error *struct {
		Code   string `json:"code"`
		Detail string `json:"detail"`
		Status int    `json:"status"`
	} `json:"error"`
}

func (b *Brave) Search(ctx context.Context, query string) ([]models.SearchResult, error) {
	if err := b.Configured(); err != nil {
		return nil, err
	}

	count := b.Count
	if count <= 0 || count > 20 {
		count = 10
	}
	params := url.Values{}
	params.Set("q", query)
	params.Set("count", strconv.Itoa(count))

	status, body, err := get(ctx, b.Client, b.Endpoint+"?"+params.Encode(), http.Header{
		"Accept":               {"application/json"},
		"X-Subscription-Token": {b.APIKey},
	})
	if err != nil {
		return nil, fmt.Errorf("brave search: %w", err)
	}

	var payload braveResponse
	decodeErr := json.Unmarshal(body, &payload)
	if decodeErr == nil && payload.Error != nil {
		code := payload.Error.Status
		if code == 0 {
			code = status
		}
		message := payload.Error.Detail
		if message == "" {
			message = payload.Error.Code
		}
		return nil, &ProviderError{Provider: b.Name(), Code: code, Message: message}
	}
	if status != http.StatusOK {
		return nil, &ProviderError{Provider: b.Name(), Code: status, Message: http.StatusText(status)}
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("decode brave response: %w", decodeErr)
	}

	results := lo.Map(payload.Web.Results, func(item braveResult, _ int) models.SearchResult {
		return models.SearchResult{
			Title:   plainText(item.Title),
			Snippet: plainText(item.Description),
			Link:    item.URL,
		}
	})
	return truncate(results, count), nil
}
