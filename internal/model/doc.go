// Package model defines the data structures shared by the crawler, the
// report writers and the result store.
//
// This package contains the following main types:
//   - SiteResult: everything collected from one seed URL
//   - Email: an accepted address and the page it was first seen on
//   - PlatformData: platform identifiers found by pattern matching
//   - PageMeta: title, description and meta tags of a fetched page
//
// The types are serializable to JSON for report output and database
// storage.
package model
