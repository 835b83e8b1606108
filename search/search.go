// Package search implements the search capability used by deep search.
package search

import (
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"regexp"
	"strings"

	"github.com/aluiziolira/go-scrape-leads/config"
	"github.com/aluiziolira/go-scrape-leads/models"
)

// ErrMissingCredentials is returned by Configured when a keyed provider has
// no keys. Callers must check it before issuing any query.
var ErrMissingCredentials = errors.New("search credentials not configured")

// ProviderError is an error payload reported by the provider itself, such as
// an exhausted quota or a rejected key.
type ProviderError struct {
	Provider string
	Code     int
	Message  string
}

func (e *ProviderError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("%s: provider error %d: %s", e.Provider, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: provider error: %s", e.Provider, e.Message)
}

// Searcher runs one query against a search provider.
type Searcher interface {
	Name() string
	Configured() error
	Search(ctx context.Context, query string) ([]models.SearchResult, error)
}

// New returns the provider selected by cfg.SearchProvider.
func New(cfg *config.Config) (Searcher, error) {
	switch cfg.SearchProvider {
	case "google":
		return NewGoogle(cfg), nil
	case "brave":
		return NewBrave(cfg), nil
	case "duckduckgo":
		return NewDuckDuckGo(cfg), nil
	case "rss":
		return NewRSS(cfg), nil
	default:
		return nil, fmt.Errorf("unknown search provider %q", cfg.SearchProvider)
	}
}

const maxResponseBytes = 4 << 20

func newClient(cfg *config.Config) *http.Client {
	return &http.Client{Timeout: cfg.SearchTimeout}
}

// get issues a GET and returns the status and a size-capped body.
func get(ctx context.Context, client *http.Client, rawURL string, header http.Header) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, nil, err
	}
	for key, values := range header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, body, nil
}

// tagPattern matches simple element tags. It does not match bracketed
// addresses like <jane@acme.com>, which must survive into the snippet text.
var tagPattern = regexp.MustCompile(`</?[a-zA-Z][a-zA-Z0-9]*(\s[^<>]*)?/?>`)

// plainText drops highlight markup such as <strong> and decodes entities.
func plainText(s string) string {
	s = tagPattern.ReplaceAllString(s, "")
	return strings.Join(strings.Fields(html.UnescapeString(s)), " ")
}

func truncate(results []models.SearchResult, n int) []models.SearchResult {
	if n > 0 && len(results) > n {
		return results[:n]
	}
	return results
}
