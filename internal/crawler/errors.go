package crawler

import "errors"

var (
	// ErrInvalidDepth is returned when the maximum crawl depth is negative.
	ErrInvalidDepth = errors.New("crawl depth must be zero or greater")

	// ErrInvalidConcurrency is returned when the number of parallel
	// fetches per layer is less than one.
	ErrInvalidConcurrency = errors.New("concurrency must be at least 1")

	// ErrNilFetcher is returned when no fetcher was supplied.
	ErrNilFetcher = errors.New("fetcher is required")

	// ErrEmptyURL is returned when an empty seed URL is submitted.
	ErrEmptyURL = errors.New("seed URL is empty")
)
