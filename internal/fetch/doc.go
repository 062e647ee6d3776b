// Package fetch retrieves raw page content for the crawler.
//
// HTTPFetcher uses net/http with optional SOCKS5 proxying, cookie and
// header injection and retries. BrowserFetcher renders pages with headless
// Chrome through chromedp. CachingFetcher deduplicates fetches across
// sites within one process.
package fetch
