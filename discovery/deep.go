package discovery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aluiziolira/go-scrape-leads/config"
	"github.com/aluiziolira/go-scrape-leads/models"
	"github.com/aluiziolira/go-scrape-leads/parser"
	"github.com/aluiziolira/go-scrape-leads/search"
	"golang.org/x/sync/errgroup"
)

var providerLabels = map[string]string{
	"google":     "Google",
	"brave":      "Brave",
	"duckduckgo": "DuckDuckGo",
	"rss":        "Bing RSS",
}

// DeepSearchSource is the result source label for a provider.
func DeepSearchSource(provider string) string {
	label, ok := providerLabels[provider]
	if !ok {
		label = provider
	}
	return strings.TrimSpace(label + " Deep Search")
}

// BuildQueries returns up to limit search queries for target, most
// productive first. limit is clamped to [1, MaxQueriesLimit].
func BuildQueries(target models.Target, limit int) []string {
	limit = min(max(limit, 1), config.MaxQueriesLimit)
	d := target.Domain

	queries := []string{
		fmt.Sprintf(`site:linkedin.com/in/ OR site:%s "%s" "email" "@ %s" (CEO OR Founder)`, d, d, d),
		fmt.Sprintf(`"@%s" (CEO OR Founder OR Owner OR Director OR "Head of")`, d),
	}
	if target.Company != "" {
		queries = append(queries, fmt.Sprintf(`"%s" contact email "@%s"`, target.Company, d))
	}
	queries = append(queries, fmt.Sprintf(`site:%s (contact OR about OR team) email`, d))

	if len(queries) > limit {
		queries = queries[:limit]
	}
	return queries
}

type queryOutcome struct {
	query   string
	results []models.SearchResult
	err     error
}

// DeepSearch mines search-result titles and snippets for addresses that the
// relevance policy ties to the target. Missing credentials fail before any
// query is sent.
func (e *Engine) DeepSearch(ctx context.Context, raw string) *models.Result {
	source := "Deep Search"
	if e.searcher != nil {
		source = DeepSearchSource(e.searcher.Name())
	}
	return e.execute(ctx, ModeDeep, source, raw, func(ctx context.Context, res *models.Result) ([]models.Lead, error) {
		if e.searcher == nil {
			return nil, ErrNoSearcher
		}
		if err := e.searcher.Configured(); err != nil {
			return nil, err
		}

		target, err := parser.NormalizeTarget(raw)
		if err != nil {
			return nil, err
		}
		res.Domain = target.Domain

		queries := BuildQueries(target, e.cfg.MaxQueries)
		outcomes, err := e.runQueries(ctx, queries)
		if err != nil {
			return nil, err
		}
		res.QueriesRun = len(queries)

		var (
			leads     []models.Lead
			failures  []error
			seenLinks = make(map[string]struct{})
		)
		for _, out := range outcomes {
			if out.err != nil {
				failures = append(failures, out.err)
				slog.Warn("search query failed",
					slog.String("provider", e.searcher.Name()),
					slog.String("query", out.query),
					slog.Any("error", out.err),
				)
				continue
			}
			for _, item := range out.results {
				origin := item.Link
				if origin == "" {
					origin = e.searcher.Name() + ": " + out.query
				}
				emails := parser.FilterNoise(parser.ExtractText(item.Title + " " + item.Snippet))
				var kept []string
				for _, email := range emails {
					if e.policy.Keep(email, target.Domain) {
						kept = append(kept, email)
					}
				}
				leads = append(leads, classifyAll(kept, origin, target.Domain)...)

				if item.Link == "" {
					continue
				}
				if _, dup := seenLinks[item.Link]; dup {
					continue
				}
				seenLinks[item.Link] = struct{}{}
				res.RelatedLinks = append(res.RelatedLinks, models.RelatedLink{Title: item.Title, Link: item.Link})
			}
		}

		if len(failures) == len(outcomes) {
			return nil, allQueriesFailed(ctx, failures)
		}
		return leads, nil
	})
}

func (e *Engine) runQueries(ctx context.Context, queries []string) ([]queryOutcome, error) {
	outcomes := make([]queryOutcome, len(queries))
	g := new(errgroup.Group)
	g.SetLimit(max(e.cfg.Parallelism, 1))
	for i, query := range queries {
		g.Go(guard(func() error {
			qctx, cancel := context.WithTimeout(ctx, e.cfg.SearchTimeout)
			defer cancel()

			results, err := e.searcher.Search(qctx, query)
			outcome := "ok"
			if err != nil {
				outcome = "error"
				var perr *search.ProviderError
				if errors.As(err, &perr) {
					outcome = "provider_error"
				}
			}
			e.metrics.IncSearch(e.searcher.Name(), outcome)
			outcomes[i] = queryOutcome{query: query, results: results, err: err}
			return nil
		}))
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

// allQueriesFailed picks the error reported when no query succeeded. A
// provider-reported error wins over transport failures.
func allQueriesFailed(ctx context.Context, failures []error) error {
	for _, err := range failures {
		var perr *search.ProviderError
		if errors.As(err, &perr) {
			return fmt.Errorf("search quota exceeded or provider error: %w", perr)
		}
	}
	if ctx.Err() != nil {
		return fmt.Errorf("%w: %v", ErrUnreachable, ctx.Err())
	}
	if len(failures) == 0 {
		return ErrUnreachable
	}
	return fmt.Errorf("%w: all search queries failed: %v", ErrUnreachable, failures[0])
}
