// Package store persists finished crawl results in SQLite so that earlier
// runs can be listed and searched.
//
// Each saved SiteResult becomes one row of site_results holding summary
// columns and the full result as JSON. Every email of the result is also
// written to the emails table so addresses can be searched across runs.
//
// The store is only written after a site has finished. The crawler never
// reads from it; re-crawling a seed in a new process always fetches again.
package store
