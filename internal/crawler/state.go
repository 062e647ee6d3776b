package crawler

import (
	"slices"

	"github.com/nao1215/contactscan/internal/filter"
	"github.com/nao1215/contactscan/internal/model"
)

// CrawlState is the mutable state of one site's crawl. It is owned by a
// single Engine.Run call and must not be shared between sites.
type CrawlState struct {
	seed        string
	depth       int
	frontier    []string
	visited     map[string]struct{}
	result      *model.SiteResult
	emailFilter filter.EmailFilter
	linkFilter  filter.LinkFilter
}

// NewCrawlState creates the state for crawling seedURL. The seed is the
// only URL of the first layer and is already marked as visited.
func NewCrawlState(seedURL string, emailFilter filter.EmailFilter, linkFilter filter.LinkFilter) *CrawlState {
	s := &CrawlState{
		seed:        seedURL,
		visited:     make(map[string]struct{}),
		result:      model.NewSiteResult(seedURL),
		emailFilter: emailFilter,
		linkFilter:  linkFilter,
	}
	s.visit(seedURL)
	return s
}

// Seed returns the seed URL.
func (s *CrawlState) Seed() string {
	return s.seed
}

// Depth returns the number of layers processed so far.
func (s *CrawlState) Depth() int {
	return s.depth
}

// Frontier returns a copy of the URLs waiting to be processed.
func (s *CrawlState) Frontier() []string {
	return slices.Clone(s.frontier)
}

// Visited reports whether url has been accepted for this site.
func (s *CrawlState) Visited(url string) bool {
	_, ok := s.visited[url]
	return ok
}

// Result returns the result accumulated so far.
func (s *CrawlState) Result() *model.SiteResult {
	return s.result
}

// visit marks url as visited and queues it for the next layer.
// It returns false if url was accepted before.
func (s *CrawlState) visit(url string) bool {
	if _, ok := s.visited[url]; ok {
		return false
	}
	s.visited[url] = struct{}{}
	s.frontier = append(s.frontier, url)
	s.result.AddVisited(url)
	return true
}

// takeLayer returns the current frontier and starts an empty one.
func (s *CrawlState) takeLayer() []string {
	layer := s.frontier
	s.frontier = nil
	return layer
}
