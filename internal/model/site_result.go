package model

import "time"

// CrawlStats records what happened while a site was crawled.
// Per-page failures are only observable here and in the logs.
type CrawlStats struct {
	// PagesFetched is the number of pages fetched and extracted successfully.
	PagesFetched int `json:"pages_fetched"`

	// FetchErrors is the number of pages whose fetch failed.
	FetchErrors int `json:"fetch_errors"`

	// ExtractErrors is the number of fetched pages the extractor rejected.
	ExtractErrors int `json:"extract_errors"`

	// Depth is the number of layers processed.
	Depth int `json:"depth"`

	// StartedAt is when the crawl of the site started.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt is when the crawl terminated. Zero while running.
	FinishedAt time.Time `json:"finished_at,omitzero"`

	// Cancelled is true when the crawl was abandoned between layers.
	Cancelled bool `json:"cancelled,omitempty"`
}

// Duration returns how long the crawl took, or zero if it has not finished.
func (s CrawlStats) Duration() time.Duration {
	if s.FinishedAt.IsZero() {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}

// SiteResult is the accumulated output of crawling one seed URL.
type SiteResult struct {
	// URL is the seed URL the crawl started from.
	URL string `json:"url"`

	// Emails maps each accepted address to the first page it was seen on.
	Emails map[string]string `json:"emails"`

	// EmailList holds the same addresses as Emails in first-seen order.
	EmailList []Email `json:"email_list"`

	// PlatformData holds every platform identifier found on the site.
	PlatformData PlatformData `json:"platform_data"`

	// Pages maps each successfully fetched URL to its metadata.
	Pages map[string]PageMeta `json:"pages,omitempty"`

	// Visited lists every URL accepted for this site in acceptance order.
	// The seed URL is always first.
	Visited []string `json:"visited"`

	// Stats holds counters about the crawl.
	Stats CrawlStats `json:"stats"`
}

// NewSiteResult creates an empty result for the given seed URL.
func NewSiteResult(seedURL string) *SiteResult {
	return &SiteResult{
		URL:          seedURL,
		Emails:       make(map[string]string),
		EmailList:    make([]Email, 0),
		PlatformData: NewPlatformData(),
		Pages:        make(map[string]PageMeta),
		Visited:      make([]string, 0),
	}
}

// AddEmail records address as found on url. The first URL recorded for an
// address is kept; later calls for the same address return false.
func (r *SiteResult) AddEmail(address, url string) bool {
	if _, ok := r.Emails[address]; ok {
		return false
	}
	r.Emails[address] = url
	r.EmailList = append(r.EmailList, NewEmail(address, url))
	return true
}

// HasEmail reports whether address has been recorded.
func (r *SiteResult) HasEmail(address string) bool {
	_, ok := r.Emails[address]
	return ok
}

// EmailSource returns the URL an address was first seen on.
func (r *SiteResult) EmailSource(address string) (string, bool) {
	url, ok := r.Emails[address]
	return url, ok
}

// MergePlatformData folds one page's platform data into the result.
func (r *SiteResult) MergePlatformData(data PlatformData) {
	r.PlatformData.Merge(data)
}

// AddPage stores the metadata of a fetched page.
func (r *SiteResult) AddPage(url string, meta PageMeta) {
	r.Pages[url] = meta
}

// AddVisited appends url to the visited list.
func (r *SiteResult) AddVisited(url string) {
	r.Visited = append(r.Visited, url)
}

// EmailCount returns the number of distinct accepted addresses.
func (r *SiteResult) EmailCount() int {
	return len(r.EmailList)
}
