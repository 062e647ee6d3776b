// Package config provides configuration structures and utilities for
// contactscan. It defines the crawl settings, fetcher settings, report
// preferences and the per-site overrides read from the .contactscan file.
package config
