// Package extract turns the raw content of a single page into candidate
// email addresses, candidate links, platform identifiers and page metadata.
//
// Extraction is best effort. Malformed HTML never produces an error; the
// extractor returns whatever it could recognize and empty collections
// otherwise. Nothing here decides whether an email is real or whether a
// link should be followed; that is the job of the filter package.
//
// # Usage
//
//	ex := extract.NewHTMLExtractor()
//	result, err := ex.Extract(pageSource)
//	// result.Emails, result.Links, result.PlatformData, result.Meta
//
// The extractor is safe for concurrent use and is meant to be built once
// and shared by every crawl.
package extract
