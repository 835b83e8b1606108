package discovery

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"slices"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/aluiziolira/go-scrape-leads/config"
	"github.com/aluiziolira/go-scrape-leads/models"
	"github.com/aluiziolira/go-scrape-leads/parser"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
)

// SubpageKeywords select in-page links worth following, in priority order.
var SubpageKeywords = []string{
	"contact", "kontakt", "impressum", "team", "about", "leadership", "people", "staff",
}

// fetchTarget is one page to retrieve. Origin is the page a discovered link
// was found on; conventional paths have no origin.
type fetchTarget struct {
	URL    string
	Origin string
	rank   int
}

// pageOutcome is the explicit result of one page: either err is set and the
// page contributes nothing, or leads holds what the page yielded.
type pageOutcome struct {
	target fetchTarget
	leads  []models.Lead
	title  string
	links  []fetchTarget
	err    error
}

// ScanWebsite fetches the site's home page and a bounded set of likely
// contact pages and extracts leads from them.
func (e *Engine) ScanWebsite(ctx context.Context, raw string) *models.Result {
	return e.execute(ctx, ModeScan, SourceWebsiteScan, raw, func(ctx context.Context, res *models.Result) ([]models.Lead, error) {
		target, err := parser.NormalizeTarget(raw)
		if err != nil {
			return nil, err
		}
		res.Domain = target.Domain
		return e.crawl(ctx, target, target.BaseURL+"/", res)
	})
}

// Scrape behaves like ScanWebsite but starts from the exact page supplied
// instead of the site root.
func (e *Engine) Scrape(ctx context.Context, raw string) *models.Result {
	return e.execute(ctx, ModeScrape, SourcePageScrape, raw, func(ctx context.Context, res *models.Result) ([]models.Lead, error) {
		target, err := parser.NormalizeTarget(raw)
		if err != nil {
			return nil, err
		}
		res.Domain = target.Domain
		return e.crawl(ctx, target, target.StartURL, res)
	})
}

func (e *Engine) crawl(ctx context.Context, target models.Target, startURL string, res *models.Result) ([]models.Lead, error) {
	if e.fetcher == nil {
		return nil, ErrNoFetcher
	}

	var (
		leads   []models.Lead
		fetched int
	)
	home := e.fetchPage(ctx, target, fetchTarget{URL: startURL}, true)
	if home.err != nil {
		slog.Warn("start page fetch failed",
			slog.String("url", startURL),
			slog.Any("error", home.err),
		)
	} else {
		fetched++
		res.MetaTitle = home.title
		leads = append(leads, home.leads...)
	}

	subpages := e.subpages(target, startURL, home.links)
	firstHit := e.cfg.ScanPolicy != config.ScanExhaustive

	switch {
	case firstHit && len(leads) > 0:
		// Done: the start page already produced a lead.
	case firstHit:
		for _, sub := range subpages {
			if ctx.Err() != nil {
				break
			}
			out := e.fetchPage(ctx, target, sub, false)
			if out.err != nil {
				logSubpageFailure(out)
				continue
			}
			fetched++
			leads = append(leads, out.leads...)
			if len(leads) > 0 {
				break
			}
		}
	default:
		outcomes := make([]pageOutcome, len(subpages))
		g := new(errgroup.Group)
		g.SetLimit(max(e.cfg.Parallelism, 1))
		for i, sub := range subpages {
			g.Go(guard(func() error {
				outcomes[i] = e.fetchPage(ctx, target, sub, false)
				return nil
			}))
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		for _, out := range outcomes {
			if out.err != nil {
				logSubpageFailure(out)
				continue
			}
			fetched++
			leads = append(leads, out.leads...)
		}
	}

	res.PagesFetched = fetched
	if fetched == 0 {
		cause := home.err
		if ctx.Err() != nil {
			cause = ctx.Err()
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrUnreachable, startURL, cause)
	}
	return leads, nil
}

func logSubpageFailure(out pageOutcome) {
	slog.Debug("subpage skipped",
		slog.String("url", out.target.URL),
		slog.String("origin", out.target.Origin),
		slog.Any("error", out.err),
	)
}

// fetchPage fetches and extracts one page. Extraction problems are logged
// and leave the page with no leads; only fetch failures set err.
func (e *Engine) fetchPage(ctx context.Context, target models.Target, ft fetchTarget, discover bool) pageOutcome {
	out := pageOutcome{target: ft}
	page, err := e.fetcher.Fetch(ctx, ft.URL)
	if err != nil {
		out.err = err
		return out
	}

	source := page.URL
	if source == "" {
		source = ft.URL
	}

	var emails []string
	if page.IsPDF() {
		emails, err = parser.ExtractPDF(page.Body)
		if err != nil {
			slog.Warn("pdf extraction failed", slog.String("url", source), slog.Any("error", err))
		}
	} else {
		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.Body))
		if err != nil {
			slog.Warn("html parse failed", slog.String("url", source), slog.Any("error", err))
		} else {
			emails = parser.ExtractHTML(doc)
			out.title = parser.PageTitle(doc)
			if discover {
				out.links = discoverLinks(doc, source, target.Domain)
			}
		}
	}

	out.leads = classifyAll(parser.FilterNoise(emails), source, target.Domain)
	return out
}

// discoverLinks returns same-site links whose path or anchor text contains
// a subpage keyword, ordered by keyword priority then document order.
func discoverLinks(doc *goquery.Document, pageURL, domain string) []fetchTarget {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil
	}

	var links []fetchTarget
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href := strings.TrimSpace(s.AttrOr("href", ""))
		if href == "" || strings.HasPrefix(href, "#") {
			return
		}
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		abs := base.ResolveReference(ref)
		if abs.Scheme != "http" && abs.Scheme != "https" {
			return
		}
		if !parser.SameSite(abs.Hostname(), domain) {
			return
		}
		abs.Fragment = ""

		rank := keywordRank(strings.ToLower(abs.Path), strings.ToLower(s.Text()))
		if rank < 0 {
			return
		}
		links = append(links, fetchTarget{URL: abs.String(), Origin: pageURL, rank: rank})
	})

	slices.SortStableFunc(links, func(a, b fetchTarget) int { return a.rank - b.rank })
	return links
}

func keywordRank(path, text string) int {
	for i, keyword := range SubpageKeywords {
		if strings.Contains(path, keyword) || strings.Contains(text, keyword) {
			return i
		}
	}
	return -1
}

// subpages merges discovered links with the conventional paths, drops the
// start page and duplicates, and caps the list at MaxSubpages.
func (e *Engine) subpages(target models.Target, startURL string, discovered []fetchTarget) []fetchTarget {
	limit := min(e.cfg.MaxSubpages, config.MaxSubpagesLimit)
	if limit <= 0 {
		return nil
	}

	candidates := slices.Clone(discovered)
	for _, path := range e.cfg.SubpagePaths {
		candidates = append(candidates, fetchTarget{URL: target.BaseURL + path})
	}

	startKey := urlKey(startURL)
	candidates = lo.Filter(candidates, func(ft fetchTarget, _ int) bool {
		return urlKey(ft.URL) != startKey
	})
	candidates = lo.UniqBy(candidates, func(ft fetchTarget) string {
		return urlKey(ft.URL)
	})

	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates
}

// urlKey is the comparison form of a URL: lower-case scheme and host, no
// "www.", no fragment, no trailing slash.
func urlKey(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	host := strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	path := strings.TrimSuffix(u.EscapedPath(), "/")
	key := strings.ToLower(u.Scheme) + "://" + host + path
	if u.RawQuery != "" {
		key += "?" + u.RawQuery
	}
	return key
}
