package crawler

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nao1215/contactscan/internal/fetch"
	"github.com/nao1215/contactscan/internal/model"
	"golang.org/x/sync/errgroup"
)

// Coordinator crawls many sites with one fetcher and remembers finished
// sites. Submitting a seed URL again returns the remembered result
// without fetching anything.
//
// A Coordinator is safe for concurrent use. Each site gets its own
// CrawlState and link filter.
type Coordinator struct {
	fetcher fetch.Fetcher
	base    settings
	logger  *slog.Logger

	mu       sync.Mutex
	results  map[string]*model.SiteResult
	inflight map[string]*siteCall
	order    []string
}

// siteCall tracks a crawl in progress so concurrent submissions of the
// same seed wait for it.
type siteCall struct {
	done   chan struct{}
	result *model.SiteResult
	err    error
}

// NewCoordinator creates a Coordinator. Invalid options are reported here,
// before any crawling.
func NewCoordinator(fetcher fetch.Fetcher, opts ...Option) (*Coordinator, error) {
	cfg := defaultSettings()
	for _, opt := range opts {
		opt(&cfg)
	}
	if fetcher == nil {
		return nil, ErrNilFetcher
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.complete()

	return &Coordinator{
		fetcher:  fetcher,
		base:     cfg,
		logger:   cfg.logger,
		results:  make(map[string]*model.SiteResult),
		inflight: make(map[string]*siteCall),
		order:    make([]string, 0),
	}, nil
}

// Process crawls seedURL, or returns its result if it was crawled before.
//
// A crawl that fails or is cancelled is not remembered, so the seed can be
// submitted again. A cancelled crawl still returns its partial result.
func (c *Coordinator) Process(ctx context.Context, seedURL string) (*model.SiteResult, error) {
	seedURL = strings.TrimSpace(seedURL)
	if seedURL == "" {
		return nil, ErrEmptyURL
	}

	c.mu.Lock()
	if result, ok := c.results[seedURL]; ok {
		c.mu.Unlock()
		c.logger.Debug("returning cached result", "site", seedURL)
		return result, nil
	}
	if call, ok := c.inflight[seedURL]; ok {
		c.mu.Unlock()
		select {
		case <-call.done:
			return call.result, call.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	call := &siteCall{done: make(chan struct{})}
	c.inflight[seedURL] = call
	c.mu.Unlock()

	result, err := c.crawl(ctx, seedURL)

	c.mu.Lock()
	delete(c.inflight, seedURL)
	if err == nil {
		c.results[seedURL] = result
		c.order = append(c.order, seedURL)
	}
	c.mu.Unlock()

	call.result, call.err = result, err
	close(call.done)
	return result, err
}

// crawl runs a fresh crawl of seedURL with the site's settings.
func (c *Coordinator) crawl(ctx context.Context, seedURL string) (*model.SiteResult, error) {
	cfg := c.base
	if cfg.siteOptions != nil {
		for _, opt := range cfg.siteOptions(seedURL) {
			opt(&cfg)
		}
	}

	engine, err := newEngine(c.fetcher, cfg)
	if err != nil {
		return nil, fmt.Errorf("invalid options for %s: %w", seedURL, err)
	}
	state, err := engine.NewState(seedURL)
	if err != nil {
		return nil, err
	}
	return engine.Run(ctx, state)
}

// ProcessBatch returns a sequence that processes urls one at a time in
// input order, yielding each site's result as it finishes. Nothing is
// crawled until the sequence is ranged over, and it can be ranged over
// only once. Iteration stops after the context is cancelled.
func (c *Coordinator) ProcessBatch(ctx context.Context, urls []string) iter.Seq2[*model.SiteResult, error] {
	var used atomic.Bool
	return func(yield func(*model.SiteResult, error) bool) {
		if used.Swap(true) {
			return
		}
		for _, u := range urls {
			result, err := c.Process(ctx, u)
			if !yield(result, err) {
				return
			}
			if ctx.Err() != nil {
				return
			}
		}
	}
}

// ProcessConcurrent crawls up to n sites at the same time. Results are
// returned in the order of urls; a site that failed has a nil entry (or a
// partial result if it was cancelled) and its error is included in the
// joined error.
func (c *Coordinator) ProcessConcurrent(ctx context.Context, urls []string, n int) ([]*model.SiteResult, error) {
	if n < 1 {
		return nil, ErrInvalidConcurrency
	}

	c.logger.Info("starting batch processing",
		"total_sites", len(urls),
		"concurrency", n,
	)
	startTime := time.Now()

	results := make([]*model.SiteResult, len(urls))
	errs := make([]error, len(urls))

	var g errgroup.Group
	g.SetLimit(n)
	for i, u := range urls {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				errs[i] = fmt.Errorf("%s: %w", u, err)
				return nil
			}

			result, err := c.Process(ctx, u)
			results[i] = result
			if err != nil {
				c.logger.Warn("site failed", "site", u, "error", err)
				errs[i] = fmt.Errorf("%s: %w", u, err)
			}
			// Don't return the error to errgroup, the other sites keep going.
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // goroutines always return nil

	c.logger.Info("batch processing completed",
		"total_sites", len(urls),
		"duration", time.Since(startTime),
	)
	return results, errors.Join(errs...)
}

// Result returns the remembered result of seedURL.
func (c *Coordinator) Result(seedURL string) (*model.SiteResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	result, ok := c.results[strings.TrimSpace(seedURL)]
	return result, ok
}

// Sites returns the seed URLs with a remembered result, in the order
// their crawls finished.
func (c *Coordinator) Sites() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	sites := make([]string, len(c.order))
	copy(sites, c.order)
	return sites
}
