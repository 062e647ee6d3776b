package crawler

import (
	"log/slog"

	"github.com/nao1215/contactscan/internal/extract"
	"github.com/nao1215/contactscan/internal/filter"
)

const (
	// DefaultMaxDepth is the number of link layers followed from the seed.
	DefaultMaxDepth = 10

	// UnlimitedLinks disables the per-page cap on followed links.
	UnlimitedLinks = -1
)

// settings holds everything an Engine needs to crawl one site.
type settings struct {
	maxDepth        int
	maxLinksPerPage int
	concurrency     int
	strategy        filter.Strategy
	linkOptions     filter.LinkOptions
	emailFilter     filter.EmailFilter
	extractor       extract.Extractor
	logger          *slog.Logger
	siteOptions     SiteOptionsFunc

	// pageRelativeLinks resolves relative links against the page they
	// were found on instead of the seed URL.
	pageRelativeLinks bool
}

func defaultSettings() settings {
	return settings{
		maxDepth:        DefaultMaxDepth,
		maxLinksPerPage: UnlimitedLinks,
		concurrency:     1,
		strategy:        filter.StrategyDefault,
	}
}

// complete fills in collaborators that were not configured.
func (s *settings) complete() {
	if s.emailFilter == nil {
		s.emailFilter = filter.NewDefaultEmailFilter()
	}
	if s.extractor == nil {
		s.extractor = extract.NewHTMLExtractor()
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
}

func (s *settings) validate() error {
	if s.maxDepth < 0 {
		return ErrInvalidDepth
	}
	if s.concurrency < 1 {
		return ErrInvalidConcurrency
	}
	if !s.strategy.IsValid() {
		return filter.ErrUnknownLinkFilter
	}
	return nil
}

// Option configures an Engine or a Coordinator.
type Option func(*settings)

// SiteOptionsFunc returns extra options for one seed URL. They are applied
// on top of the Coordinator's options when that site is crawled.
type SiteOptionsFunc func(seedURL string) []Option

// WithMaxDepth sets how many layers of links are followed from the seed.
// 0 fetches only the seed page.
func WithMaxDepth(depth int) Option {
	return func(s *settings) {
		s.maxDepth = depth
	}
}

// WithMaxLinksPerPage caps how many accepted links of one page are
// followed. A negative value means no cap.
func WithMaxLinksPerPage(n int) Option {
	return func(s *settings) {
		s.maxLinksPerPage = n
	}
}

// WithConcurrency sets how many pages of a layer are fetched in parallel.
func WithConcurrency(n int) Option {
	return func(s *settings) {
		s.concurrency = n
	}
}

// WithLinkFilter selects the link filter strategy and its options.
func WithLinkFilter(strategy filter.Strategy, opts filter.LinkOptions) Option {
	return func(s *settings) {
		s.strategy = strategy
		s.linkOptions = opts
	}
}

// WithEmailFilter sets the filter applied to candidate emails.
func WithEmailFilter(f filter.EmailFilter) Option {
	return func(s *settings) {
		s.emailFilter = f
	}
}

// WithExtractor replaces the default HTML extractor.
func WithExtractor(e extract.Extractor) Option {
	return func(s *settings) {
		s.extractor = e
	}
}

// WithPageRelativeLinks resolves relative links against the URL of the
// page they appear on before the link filter sees them. By default they
// are resolved against the seed URL.
func WithPageRelativeLinks(enabled bool) Option {
	return func(s *settings) {
		s.pageRelativeLinks = enabled
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		s.logger = logger
	}
}

// WithSiteOptions registers per-site overrides. Only the Coordinator uses it.
func WithSiteOptions(fn SiteOptionsFunc) Option {
	return func(s *settings) {
		s.siteOptions = fn
	}
}
