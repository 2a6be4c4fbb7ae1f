// Package websearch looks up render errors on the web and condenses the top pages
// into research context for the next revision.
package websearch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/aretw0/reel/internal/textutil"
	"github.com/aretw0/reel/pkg/ports"
)

const (
	defaultSearchURL = "https://html.duckduckgo.com/html/"
	userAgent        = "Mozilla/5.0 (compatible; reel/1.0)"
	maxPageBytes     = 2 << 20
)

// preferred sources are ranked ahead of everything else.
var preferred = []string{"manim.community", "stackoverflow.com", "github.com", "docs."}

// Config bounds the search.
type Config struct {
	Enabled    bool          `mapstructure:"enabled"`
	MaxResults int           `mapstructure:"max_results"`
	MaxChars   int           `mapstructure:"max_chars"`
	Timeout    time.Duration `mapstructure:"timeout"`
	// SearchURL overrides the DuckDuckGo HTML endpoint.
	SearchURL string `mapstructure:"search_url"`
}

// Result is one search hit.
type Result struct {
	Title   string
	URL     string
	Snippet string
}

// Researcher implements ports.Researcher.
type Researcher struct {
	http      *http.Client
	searchURL string
	results   int
	chars     int
	logger    *slog.Logger
}

var _ ports.Researcher = (*Researcher)(nil)

// New creates a researcher.
func New(cfg Config, logger *slog.Logger) *Researcher {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	r := &Researcher{
		http:      &http.Client{Timeout: cfg.Timeout},
		searchURL: cfg.SearchURL,
		results:   cfg.MaxResults,
		chars:     cfg.MaxChars,
		logger:    logger,
	}
	if r.searchURL == "" {
		r.searchURL = defaultSearchURL
	}
	if r.results <= 0 {
		r.results = 3
	}
	if r.chars <= 0 {
		r.chars = 15000
	}
	if cfg.Timeout <= 0 {
		r.http.Timeout = 30 * time.Second
	}
	return r
}

// Query builds the search query for a diagnostic.
func Query(diagnostic string) string {
	return "manim python error " + textutil.ConciseError(diagnostic)
}

// Research searches for the diagnostic and returns the text of the top pages.
// Pages that cannot be fetched fall back to their search snippet.
func (r *Researcher) Research(ctx context.Context, diagnostic string) (string, error) {
	results, err := r.Search(ctx, Query(diagnostic))
	if err != nil {
		return "", err
	}
	if len(results) == 0 {
		return "", nil
	}
	if len(results) > r.results {
		results = results[:r.results]
	}

	pages := make([]string, len(results))
	g, gctx := errgroup.WithContext(ctx)
	for i, res := range results {
		g.Go(func() error {
			text, err := r.page(gctx, res.URL)
			if err != nil {
				r.logger.DebugContext(ctx, "page fetch failed", "url", res.URL, "error", err)
				text = res.Snippet
			}
			pages[i] = text
			return nil
		})
	}
	_ = g.Wait()

	var b strings.Builder
	for i, res := range results {
		if strings.TrimSpace(pages[i]) == "" {
			continue
		}
		fmt.Fprintf(&b, "Source %d: %s\nURL: %s\n%s\n\n", i+1, res.Title, res.URL, pages[i])
	}
	return strings.TrimSpace(b.String()), nil
}

// Search runs the query and ranks preferred sources first.
func (r *Researcher) Search(ctx context.Context, query string) ([]Result, error) {
	u := r.searchURL + "?" + url.Values{"q": {query}}.Encode()
	body, err := r.get(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	defer body.Close()

	results, err := parseResults(body)
	if err != nil {
		return nil, fmt.Errorf("parse search results: %w", err)
	}
	slices.SortStableFunc(results, func(a, b Result) int {
		return rank(a.URL) - rank(b.URL)
	})
	return results, nil
}

func rank(u string) int {
	for _, p := range preferred {
		if strings.Contains(u, p) {
			return 0
		}
	}
	return 1
}

func (r *Researcher) page(ctx context.Context, u string) (string, error) {
	body, err := r.get(ctx, u)
	if err != nil {
		return "", err
	}
	defer body.Close()
	return extractText(io.LimitReader(body, maxPageBytes), r.chars)
}

func (r *Researcher) get(ctx context.Context, u string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	resp, err := r.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return resp.Body, nil
}
