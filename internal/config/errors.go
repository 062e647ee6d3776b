package config

import "errors"

// Configuration validation errors returned by Config.Validate.
var (
	// ErrNoTarget is returned when no seed URL is specified.
	ErrNoTarget = errors.New("no target specified: provide one or more seed URLs")

	// ErrInvalidTimeout is returned when the timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidCrawlDepth is returned when the crawl depth is negative.
	// Depth 0 fetches only the seed page.
	ErrInvalidCrawlDepth = errors.New("invalid crawl depth: must be non-negative")

	// ErrInvalidBatchSize is returned when the number of sites crawled at
	// the same time is not positive.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")

	// ErrInvalidConcurrency is returned when the number of parallel
	// fetches per layer is not positive.
	ErrInvalidConcurrency = errors.New("invalid concurrency: must be positive")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified. Only one output format can be used at a time.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrUnknownFetcher is returned when the fetcher is neither "http" nor
	// "browser".
	ErrUnknownFetcher = errors.New("unknown fetcher: must be \"http\" or \"browser\"")

	// ErrInvalidRetries is returned when the retry count is negative.
	ErrInvalidRetries = errors.New("invalid retries: must be non-negative")

	// ErrInvalidCacheSize is returned when the page cache size is negative.
	ErrInvalidCacheSize = errors.New("invalid cache size: must be non-negative")

	// ErrInvalidBrowserWait is returned when the browser settle time is negative.
	ErrInvalidBrowserWait = errors.New("invalid browser wait: must be non-negative")

	// ErrInvalidPattern is returned when a platform pattern in the config
	// file lacks a name or does not compile.
	ErrInvalidPattern = errors.New("invalid platform pattern")
)
