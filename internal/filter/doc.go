// Package filter decides which candidate emails are kept and which
// candidate links are followed during a crawl.
//
// Both kinds of filter are plain functions of their input: given the same
// candidates they return the same accepted subset, in the same order.
// Link filters hold the scope of one site (its seed URL and options) but
// never remember what they returned before. Remembering which URLs were
// already seen is the crawler's job.
//
// Two link filter strategies exist:
//   - StrategyDefault keeps every http(s) link inside the site's scope.
//   - StrategyContactInfo additionally narrows the links to pages that look
//     like contact or about pages.
package filter
