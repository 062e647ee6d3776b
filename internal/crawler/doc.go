// Package crawler implements the layered crawl of a site and the
// coordination of many sites.
//
// # Architecture
//
// An Engine crawls one site breadth by depth. Its mutable state lives in a
// CrawlState: the current depth, the frontier of URLs for the next layer,
// the set of visited URLs and the SiteResult being accumulated. Each layer
// is processed in three steps:
//
//  1. every URL of the frontier is fetched and extracted, optionally in
//     parallel
//  2. the pages are merged into the result in discovery order (emails,
//     platform data, page metadata)
//  3. accepted links that were never visited form the next frontier
//
// The crawl stops when the frontier is empty or the depth bound is passed.
// A failing page is counted and logged, and the crawl continues.
//
// The Coordinator owns one CrawlState per seed URL and remembers finished
// results, so a seed submitted twice is crawled once.
//
// # Usage
//
//	fetcher, _ := fetch.NewHTTPFetcher()
//	coord, err := crawler.NewCoordinator(fetcher,
//		crawler.WithMaxDepth(2),
//		crawler.WithLinkFilter(filter.StrategyContactInfo, filter.LinkOptions{}),
//	)
//	if err != nil {
//		return err
//	}
//	result, err := coord.Process(ctx, "https://example.com")
package crawler
