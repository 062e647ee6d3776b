package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/nao1215/contactscan/internal/extract"
	"github.com/nao1215/contactscan/internal/fetch"
	"github.com/nao1215/contactscan/internal/filter"
	"github.com/nao1215/contactscan/internal/model"
	"golang.org/x/sync/errgroup"
)

// Engine crawls one site layer by layer: every URL discovered on layer n
// is fetched on layer n+1, until the frontier is empty or the depth bound
// is passed.
type Engine struct {
	fetcher fetch.Fetcher
	cfg     settings
}

// NewEngine creates an Engine that fetches pages with fetcher.
func NewEngine(fetcher fetch.Fetcher, opts ...Option) (*Engine, error) {
	cfg := defaultSettings()
	for _, opt := range opts {
		opt(&cfg)
	}
	return newEngine(fetcher, cfg)
}

func newEngine(fetcher fetch.Fetcher, cfg settings) (*Engine, error) {
	if fetcher == nil {
		return nil, ErrNilFetcher
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.complete()
	return &Engine{fetcher: fetcher, cfg: cfg}, nil
}

// NewState creates a CrawlState for seedURL with a fresh link filter built
// from the engine's link filter options.
func (e *Engine) NewState(seedURL string) (*CrawlState, error) {
	linkFilter, err := filter.NewLinkFilter(e.cfg.strategy, seedURL, e.cfg.linkOptions)
	if err != nil {
		return nil, err
	}
	return NewCrawlState(seedURL, e.cfg.emailFilter, linkFilter), nil
}

// Run processes layers until the frontier is empty or the depth bound is
// exceeded, and returns the site's result.
//
// Cancellation is checked between layers. A cancelled crawl returns the
// result accumulated so far together with the context error.
func (e *Engine) Run(ctx context.Context, state *CrawlState) (*model.SiteResult, error) {
	result := state.result
	if result.Stats.StartedAt.IsZero() {
		result.Stats.StartedAt = time.Now()
	}
	logger := e.cfg.logger.With("site", state.seed)
	logger.Info("starting crawl", "max_depth", e.cfg.maxDepth)

	for len(state.frontier) > 0 && state.depth <= e.cfg.maxDepth {
		if err := ctx.Err(); err != nil {
			return e.cancelled(state, logger, err)
		}
		e.runLayer(ctx, state)
	}
	// A layer cut short by cancellation may leave an empty frontier behind.
	if err := ctx.Err(); err != nil {
		return e.cancelled(state, logger, err)
	}

	e.finish(state)
	logger.Info("crawl completed",
		"pages", result.Stats.PagesFetched,
		"emails", result.EmailCount(),
		"fetch_errors", result.Stats.FetchErrors,
		"depth", state.depth,
	)
	return result, nil
}

func (e *Engine) cancelled(state *CrawlState, logger *slog.Logger, err error) (*model.SiteResult, error) {
	state.result.Stats.Cancelled = true
	e.finish(state)
	logger.Warn("crawl cancelled", "depth", state.depth, "error", err)
	return state.result, err
}

func (e *Engine) finish(state *CrawlState) {
	state.result.Stats.Depth = state.depth
	state.result.Stats.FinishedAt = time.Now()
}

// pageOutcome is the fetched and extracted content of one page.
type pageOutcome struct {
	extraction *extract.Extraction
	fetchErr   error
	extractErr error
}

// runLayer processes the current frontier and advances the depth by one.
// Pages may be fetched in parallel, but their results are merged in
// discovery order.
func (e *Engine) runLayer(ctx context.Context, state *CrawlState) {
	layer := state.takeLayer()
	e.cfg.logger.Debug("processing layer",
		"site", state.seed,
		"depth", state.depth,
		"urls", len(layer),
	)

	outcomes := e.fetchLayer(ctx, layer)
	for i, pageURL := range layer {
		e.merge(state, pageURL, outcomes[i])
	}
	state.depth++
}

// fetchLayer fetches and extracts every URL of a layer. Outcomes are
// returned in the order of layer.
func (e *Engine) fetchLayer(ctx context.Context, layer []string) []pageOutcome {
	outcomes := make([]pageOutcome, len(layer))

	if e.cfg.concurrency <= 1 || len(layer) <= 1 {
		for i, pageURL := range layer {
			outcomes[i] = e.processPage(ctx, pageURL)
		}
		return outcomes
	}

	var g errgroup.Group
	g.SetLimit(e.cfg.concurrency)
	for i, pageURL := range layer {
		g.Go(func() error {
			// Page failures are recorded in the outcome, never returned,
			// so one bad page does not stop the others.
			outcomes[i] = e.processPage(ctx, pageURL)
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // goroutines always return nil
	return outcomes
}

// processPage fetches pageURL and runs the extractor on its content.
func (e *Engine) processPage(ctx context.Context, pageURL string) pageOutcome {
	e.cfg.logger.Debug("fetching page", "url", pageURL)

	content, err := e.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return pageOutcome{fetchErr: fetch.NewFetchError(pageURL, err)}
	}

	extraction, err := e.extract(content)
	if err != nil {
		return pageOutcome{extractErr: err}
	}
	return pageOutcome{extraction: extraction}
}

// extract runs the extractor, turning a panic into an error.
func (e *Engine) extract(content string) (extraction *extract.Extraction, err error) {
	defer func() {
		if r := recover(); r != nil {
			extraction = nil
			err = fmt.Errorf("%w: extractor panic: %v", extract.ErrMalformedContent, r)
		}
	}()

	extraction, err = e.cfg.extractor.Extract(content)
	if err == nil && extraction == nil {
		err = fmt.Errorf("%w: extractor returned no result", extract.ErrMalformedContent)
	}
	return extraction, err
}

// merge folds one page's outcome into the site state.
func (e *Engine) merge(state *CrawlState, pageURL string, outcome pageOutcome) {
	result := state.result

	switch {
	case outcome.fetchErr != nil:
		result.Stats.FetchErrors++
		level := slog.LevelWarn
		if errors.Is(outcome.fetchErr, context.Canceled) {
			level = slog.LevelDebug
		}
		e.cfg.logger.Log(context.Background(), level, "failed to fetch page",
			"url", pageURL,
			"error", outcome.fetchErr,
		)
		return
	case outcome.extractErr != nil:
		result.Stats.ExtractErrors++
		e.cfg.logger.Warn("failed to extract page",
			"url", pageURL,
			"error", outcome.extractErr,
		)
		return
	}

	ex := outcome.extraction
	result.Stats.PagesFetched++

	for _, address := range state.emailFilter.Filter(ex.Emails) {
		if result.AddEmail(address, pageURL) {
			e.cfg.logger.Debug("found email", "email", address, "url", pageURL)
		}
	}

	result.MergePlatformData(ex.PlatformData)
	result.AddPage(pageURL, ex.Meta)

	candidates := ex.Links
	if e.cfg.pageRelativeLinks {
		candidates = resolveLinks(pageURL, candidates)
	}
	links := state.linkFilter.Filter(candidates)
	if limit := e.cfg.maxLinksPerPage; limit >= 0 && len(links) > limit {
		links = links[:limit]
	}
	for _, link := range links {
		state.visit(link)
	}
}

// resolveLinks makes relative hrefs absolute against pageURL. Absolute,
// fragment-only and unparsable hrefs are returned unchanged so the link
// filter still sees and drops them.
func resolveLinks(pageURL string, hrefs []string) []string {
	base, err := url.Parse(pageURL)
	if err != nil {
		return hrefs
	}
	resolved := make([]string, len(hrefs))
	for i, href := range hrefs {
		resolved[i] = href
		trimmed := strings.TrimSpace(href)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		ref, err := url.Parse(trimmed)
		if err != nil || ref.IsAbs() {
			continue
		}
		resolved[i] = base.ResolveReference(ref).String()
	}
	return resolved
}
