// Package log provides secure logging built on top of the standard slog
// package.
//
// SecureHandler wraps any slog.Handler and masks sensitive values before
// they are written:
//   - HTTP headers and cookies configured per site
//   - tokens and secrets detected by key name or value pattern
//   - user:password credentials inside URLs, such as proxy addresses
//
// With WithEmailRedaction, the local part of every email address is
// masked too (j***@example.com), so logs of a crawl can be shared without
// exposing the addresses that were collected.
//
// # Usage
//
//	logger := log.NewSecureLogger(os.Stderr, verbose, log.WithEmailRedaction(true))
//	slog.SetDefault(logger)
package log
