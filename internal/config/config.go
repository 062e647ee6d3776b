package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/nao1215/contactscan/internal/filter"
)

// Default configuration values.
const (
	// DefaultTimeout is the per-request timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultCrawlDepth is the number of link layers followed from a seed.
	DefaultCrawlDepth = 10

	// DefaultMaxLinksPerPage disables the per-page link cap.
	DefaultMaxLinksPerPage = -1

	// DefaultConcurrency is the number of pages of one layer fetched in
	// parallel. 1 keeps crawling sequential.
	DefaultConcurrency = 1

	// DefaultBatchSize is the number of sites crawled at the same time.
	DefaultBatchSize = 4

	// DefaultRetries is how many times a temporary fetch failure is retried.
	DefaultRetries = 1

	// DefaultRetryDelay is the wait between retries.
	DefaultRetryDelay = 2 * time.Second

	// AppName is the application name used for XDG directory paths.
	AppName = "contactscan"

	// DefaultUserAgent identifies contactscan in HTTP requests.
	DefaultUserAgent = "contactscan/1.0 (+https://github.com/nao1215/contactscan)"

	// DefaultCacheSize is the number of fetched pages kept in memory so a
	// page shared by several sites is downloaded once.
	DefaultCacheSize = 64

	// DefaultMaxBodySize limits the maximum response body size to read.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB

	// FetcherHTTP fetches pages with a plain HTTP client.
	FetcherHTTP = "http"

	// FetcherBrowser renders pages in headless Chrome.
	FetcherBrowser = "browser"

	// DefaultFetcher is the fetcher used when none is configured.
	DefaultFetcher = FetcherHTTP
)

// Config holds all configuration options for contactscan. It is populated
// from CLI flags and the configuration file and passed down explicitly.
type Config struct {
	// Targets is the list of seed URLs to crawl.
	Targets []string

	// Timeout is the per-request timeout.
	Timeout time.Duration

	// CrawlDepth is the number of link layers followed from each seed.
	// Depth 0 means only fetch the seed page.
	CrawlDepth int

	// MaxLinksPerPage caps how many accepted links of one page are
	// followed. Negative means no cap.
	MaxLinksPerPage int

	// LinkFilter selects the link filter strategy ("default" or "contact").
	LinkFilter string

	// AllowedDomains are extra hosts treated as part of every site.
	AllowedDomains []string

	// IncludeSubdomains also follows links to subdomains of the seed host.
	IncludeSubdomains bool

	// BlockedEmailDomains are email domains never reported.
	BlockedEmailDomains []string

	// SkipRoleAccounts drops addresses like noreply@ and postmaster@.
	SkipRoleAccounts bool

	// PageRelativeLinks resolves relative links against the page they
	// appear on. By default they are resolved against the seed URL.
	PageRelativeLinks bool

	// Concurrency is the number of pages of one layer fetched in parallel.
	Concurrency int

	// BatchSize is the number of sites crawled at the same time.
	BatchSize int

	// Fetcher is "http" or "browser".
	Fetcher string

	// ProxyAddress is a SOCKS5 proxy in "host:port" form. Empty means
	// direct connections.
	ProxyAddress string

	// Retries is how many times a temporary fetch failure is retried.
	Retries int

	// RetryDelay is the wait between retries.
	RetryDelay time.Duration

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string

	// MaxBodySize is the maximum response body size in bytes to read.
	MaxBodySize int64

	// CacheSize is the number of fetched pages kept in memory. 0 disables
	// the cache.
	CacheSize int

	// BrowserWait is how long the browser fetcher waits after the page
	// body is ready before reading the DOM.
	BrowserWait time.Duration

	// ChromePath is the Chrome binary used by the browser fetcher. Empty
	// means the one found on PATH.
	ChromePath string

	// Verbose enables detailed log output using slog.LevelDebug.
	// When false, only warnings and errors are logged.
	Verbose bool

	// RedactEmails masks the local part of email addresses in logs.
	RedactEmails bool

	// Progress shows a spinner on stderr while sites are crawled.
	Progress bool

	// ConfigFilePath is the path to the configuration file.
	// If empty, the tool searches for .contactscan in the current directory
	// and then in the user's home directory.
	ConfigFilePath string

	// SiteConfigs holds site-specific configurations loaded from the config file.
	SiteConfigs *File

	// JSONReport outputs the results as JSON.
	// Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport outputs GitHub Flavored Markdown with tables and a
	// pie chart. Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile is the output file path for the report.
	// When set, the report is written to this file instead of stdout.
	ReportFile string

	// DBDir is the directory of the SQLite result database.
	DBDir string

	// SaveToDB stores every finished site in the result database.
	SaveToDB bool
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		Timeout:         DefaultTimeout,
		CrawlDepth:      DefaultCrawlDepth,
		MaxLinksPerPage: DefaultMaxLinksPerPage,
		LinkFilter:      filter.StrategyDefault.String(),
		Concurrency:     DefaultConcurrency,
		BatchSize:       DefaultBatchSize,
		Fetcher:         DefaultFetcher,
		Retries:         DefaultRetries,
		RetryDelay:      DefaultRetryDelay,
		UserAgent:       DefaultUserAgent,
		MaxBodySize:     DefaultMaxBodySize,
		CacheSize:       DefaultCacheSize,
		DBDir:           XDGDataDir(),
	}
}

// XDGDataDir returns the XDG data directory for contactscan.
// On Linux: ~/.local/share/contactscan
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for contactscan.
// On Linux: ~/.config/contactscan
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Strategy returns the parsed link filter strategy.
func (c *Config) Strategy() (filter.Strategy, error) {
	return filter.ParseStrategy(c.LinkFilter)
}

// LinkOptions returns the global link filter options.
func (c *Config) LinkOptions() filter.LinkOptions {
	return filter.LinkOptions{
		AllowedDomains:    c.AllowedDomains,
		IncludeSubdomains: c.IncludeSubdomains,
	}
}

// Validate checks if the configuration is valid and returns the first
// problem found.
func (c *Config) Validate() error {
	if len(c.Targets) == 0 {
		return ErrNoTarget
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.CrawlDepth < 0 {
		return ErrInvalidCrawlDepth
	}
	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}
	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}
	if c.Retries < 0 {
		return ErrInvalidRetries
	}
	if c.CacheSize < 0 {
		return ErrInvalidCacheSize
	}
	if c.BrowserWait < 0 {
		return ErrInvalidBrowserWait
	}
	if c.Fetcher != FetcherHTTP && c.Fetcher != FetcherBrowser {
		return fmt.Errorf("%w: %q", ErrUnknownFetcher, c.Fetcher)
	}
	if _, err := c.Strategy(); err != nil {
		return err
	}
	if c.SiteConfigs != nil {
		if err := c.SiteConfigs.Validate(); err != nil {
			return err
		}
	}
	return nil
}
