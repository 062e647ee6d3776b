package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/briandowns/spinner"
	"github.com/nao1215/contactscan/internal/config"
	"github.com/nao1215/contactscan/internal/crawler"
	"github.com/nao1215/contactscan/internal/extract"
	"github.com/nao1215/contactscan/internal/fetch"
	"github.com/nao1215/contactscan/internal/filter"
	"github.com/nao1215/contactscan/internal/log"
	"github.com/nao1215/contactscan/internal/model"
	"github.com/nao1215/contactscan/internal/report"
	"github.com/nao1215/contactscan/internal/store"
	"github.com/spf13/cobra"
)

// NewScanCmd creates the scan command.
func NewScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan [url...]",
		Short: "Crawl websites and collect contact information",
		Long: `Scan crawls each seed URL breadth-first and reports:
- Email addresses with the page they were first seen on
- Social platform identifiers (Twitter/X, GitHub, LinkedIn, ...)
- Page metadata (title, description, language, meta tags)

Examples:
  # Scan a single site
  contactscan scan https://example.com

  # Only follow links that look like contact pages, two layers deep
  contactscan scan --filter contact --depth 2 https://example.com

  # Scan seeds from a file, eight sites at a time
  contactscan scan --list seeds.txt --batch 8

  # Render JavaScript-heavy sites with headless Chrome
  contactscan scan --fetcher browser https://spa.example.com

  # Write a Markdown report and keep the results for 'contactscan history'
  contactscan scan -m -o report.md --save https://example.com

Configuration file (.contactscan) example:
  sites:
    example.com:
      cookie: "session_id=abc123"
      headers:
        Authorization: "Bearer token"
      depth: 5
      linkFilter: contact`,
		Args: cobra.ArbitraryArgs,
		RunE: runScanCmd,
	}

	// Crawl flags
	cmd.Flags().IntP("depth", "d", config.DefaultCrawlDepth,
		"Number of link layers followed from each seed (0 fetches only the seed)")
	cmd.Flags().Int("max-links", config.DefaultMaxLinksPerPage,
		"Maximum links followed from one page (-1 for no limit)")
	cmd.Flags().String("filter", filter.StrategyDefault.String(),
		`Link filter: "default" follows every on-site link, "contact" only contact-like links`)
	cmd.Flags().StringSlice("allow-domain", nil,
		"Extra host treated as part of every site (repeatable)")
	cmd.Flags().Bool("include-subdomains", false,
		"Also follow links to subdomains of the seed host")
	cmd.Flags().StringSlice("block-email-domain", nil,
		"Never report addresses at this domain (repeatable)")
	cmd.Flags().Bool("skip-role-accounts", false,
		"Drop role addresses such as noreply@ and postmaster@")
	cmd.Flags().Bool("page-relative-links", false,
		"Resolve relative links against the page they appear on instead of the seed URL")
	cmd.Flags().IntP("concurrency", "n", config.DefaultConcurrency,
		"Pages of one layer fetched in parallel")
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of sites crawled at the same time (1 processes them in order)")
	cmd.Flags().StringP("list", "l", "",
		"Read seed URLs from a file, one per line")

	// Fetch flags
	cmd.Flags().String("fetcher", config.DefaultFetcher,
		`Page fetcher: "http" or "browser" (headless Chrome)`)
	cmd.Flags().StringP("proxy", "x", "",
		"SOCKS5 proxy address (e.g., 127.0.0.1:9050)")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each request")
	cmd.Flags().String("user-agent", config.DefaultUserAgent,
		"User-Agent header sent with every request")
	cmd.Flags().Int("retries", config.DefaultRetries,
		"Retries for network errors and 5xx/429 responses")
	cmd.Flags().Duration("retry-delay", config.DefaultRetryDelay,
		"Wait between retries")
	cmd.Flags().Int("cache-size", config.DefaultCacheSize,
		"Fetched pages kept in memory and shared between sites (0 disables the cache)")
	cmd.Flags().Duration("browser-wait", 0,
		"With --fetcher browser, wait this long after the page loads before reading it")
	cmd.Flags().String("chrome-path", "",
		"With --fetcher browser, the Chrome binary to run (default: found on PATH)")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .contactscan in current or home directory)")

	// Output flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")
	cmd.Flags().BoolP("save", "s", false,
		"Save results to the history database")
	cmd.Flags().Bool("progress", false,
		"Show a progress spinner on stderr")
	cmd.Flags().Bool("redact-emails", false,
		"Mask email addresses in log output")

	return cmd
}

func runScanCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cmd.ErrOrStderr(), cfg)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runScan(ctx, cfg, logger, cmd.OutOrStdout(), cmd.ErrOrStderr())
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig creates a Config from cobra command flags.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	var err error
	if cfg.CrawlDepth, err = flags.GetInt("depth"); err != nil {
		return nil, err
	}
	if cfg.MaxLinksPerPage, err = flags.GetInt("max-links"); err != nil {
		return nil, err
	}
	if cfg.LinkFilter, err = flags.GetString("filter"); err != nil {
		return nil, err
	}
	if cfg.AllowedDomains, err = flags.GetStringSlice("allow-domain"); err != nil {
		return nil, err
	}
	if cfg.IncludeSubdomains, err = flags.GetBool("include-subdomains"); err != nil {
		return nil, err
	}
	if cfg.BlockedEmailDomains, err = flags.GetStringSlice("block-email-domain"); err != nil {
		return nil, err
	}
	if cfg.SkipRoleAccounts, err = flags.GetBool("skip-role-accounts"); err != nil {
		return nil, err
	}
	if cfg.PageRelativeLinks, err = flags.GetBool("page-relative-links"); err != nil {
		return nil, err
	}
	if cfg.Concurrency, err = flags.GetInt("concurrency"); err != nil {
		return nil, err
	}
	if cfg.BatchSize, err = flags.GetInt("batch"); err != nil {
		return nil, err
	}
	if cfg.Fetcher, err = flags.GetString("fetcher"); err != nil {
		return nil, err
	}
	if cfg.ProxyAddress, err = flags.GetString("proxy"); err != nil {
		return nil, err
	}
	if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
		return nil, err
	}
	if cfg.UserAgent, err = flags.GetString("user-agent"); err != nil {
		return nil, err
	}
	if cfg.Retries, err = flags.GetInt("retries"); err != nil {
		return nil, err
	}
	if cfg.RetryDelay, err = flags.GetDuration("retry-delay"); err != nil {
		return nil, err
	}
	if cfg.CacheSize, err = flags.GetInt("cache-size"); err != nil {
		return nil, err
	}
	if cfg.BrowserWait, err = flags.GetDuration("browser-wait"); err != nil {
		return nil, err
	}
	if cfg.ChromePath, err = flags.GetString("chrome-path"); err != nil {
		return nil, err
	}
	if cfg.JSONReport, err = flags.GetBool("json"); err != nil {
		return nil, err
	}
	if cfg.MarkdownReport, err = flags.GetBool("markdown"); err != nil {
		return nil, err
	}
	if cfg.ReportFile, err = flags.GetString("output"); err != nil {
		return nil, err
	}
	if cfg.SaveToDB, err = flags.GetBool("save"); err != nil {
		return nil, err
	}
	if cfg.Progress, err = flags.GetBool("progress"); err != nil {
		return nil, err
	}
	if cfg.RedactEmails, err = flags.GetBool("redact-emails"); err != nil {
		return nil, err
	}
	if cfg.ConfigFilePath, err = flags.GetString("config"); err != nil {
		return nil, err
	}
	cfg.Verbose = getVerboseFlag(cmd)

	// An explicit config path must exist; otherwise a missing file just
	// means no site overrides.
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	switch {
	case configPath != "":
		cfg.SiteConfigs, err = config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	case cfg.ConfigFilePath != "":
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	default:
		cfg.SiteConfigs = &config.File{
			Sites: make(map[string]config.SiteConfig),
		}
	}

	cfg.Targets = append(cfg.Targets, args...)

	listPath, err := flags.GetString("list")
	if err != nil {
		return nil, err
	}
	if listPath != "" {
		seeds, err := readSeedList(listPath)
		if err != nil {
			return nil, err
		}
		cfg.Targets = append(cfg.Targets, seeds...)
	}

	return cfg, nil
}

// readSeedList reads one URL per line. Blank lines and lines starting
// with '#' are skipped.
func readSeedList(path string) ([]string, error) {
	f, err := os.Open(path) //nolint:gosec // User-provided list path is intentional
	if err != nil {
		return nil, fmt.Errorf("failed to open seed list: %w", err)
	}
	defer f.Close()

	var seeds []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		seeds = append(seeds, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read seed list: %w", err)
	}
	return seeds, nil
}

// setupLogger creates a secure structured logger on w.
func setupLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	return log.NewSecureLogger(w, cfg.Verbose, log.WithEmailRedaction(cfg.RedactEmails))
}

// runScan crawls every target and writes the report.
func runScan(ctx context.Context, cfg *config.Config, logger *slog.Logger, stdout, stderr io.Writer) error {
	if len(cfg.Targets) == 0 {
		return config.ErrNoTarget
	}

	logger.Info("starting scan",
		"targets", len(cfg.Targets),
		"fetcher", cfg.Fetcher,
		"depth", cfg.CrawlDepth,
		"batch_size", cfg.BatchSize,
		"save_to_db", cfg.SaveToDB,
	)

	fetcher, closeFetcher, err := newFetcher(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeFetcher(); err != nil {
			logger.Warn("failed to close fetcher", "error", err)
		}
	}()

	coordinator, err := newCoordinator(cfg, fetcher, logger)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	var db *store.ResultDB
	if cfg.SaveToDB {
		db, err = store.Open(cfg.DBDir, store.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		logger.Info("database opened", "path", db.Path())
	}

	progress := newProgress(cfg, stderr, len(cfg.Targets))
	defer progress.stop()

	startTime := time.Now()
	results, crawlErr := crawlTargets(ctx, cfg, coordinator, progress)
	progress.stop()

	logger.Info("scan finished",
		"sites", len(results),
		"duration", time.Since(startTime).Round(time.Millisecond),
	)

	for _, r := range results {
		if err := saveResult(ctx, db, r, logger); err != nil {
			logger.Error("failed to save result", "site", r.URL, "error", err)
		}
	}

	if err := outputReport(cfg, results, stdout); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	if crawlErr != nil {
		return fmt.Errorf("some sites could not be crawled: %w", crawlErr)
	}
	return nil
}

// crawlTargets runs the coordinator over every target. With a batch size
// of one the sites are crawled in input order; otherwise up to BatchSize
// sites run at once. Only non-nil results are returned.
func crawlTargets(ctx context.Context, cfg *config.Config, c *crawler.Coordinator, p *progress) ([]*model.SiteResult, error) {
	var (
		results []*model.SiteResult
		errs    []error
	)

	if cfg.BatchSize == 1 {
		i := 0
		for result, err := range c.ProcessBatch(ctx, cfg.Targets) {
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", cfg.Targets[i], err))
			}
			if result != nil {
				results = append(results, result)
			}
			i++
			p.done(i)
		}
		return results, errors.Join(errs...)
	}

	all, err := c.ProcessConcurrent(ctx, cfg.Targets, cfg.BatchSize)
	for _, r := range all {
		if r != nil {
			results = append(results, r)
		}
	}
	p.done(len(cfg.Targets))
	return results, err
}

// newFetcher builds the page fetcher described by cfg. The returned
// function releases its resources.
//
// HTTP fetching routes each host with a cookie or headers in the config
// file to its own HTTPFetcher. Unless cfg.CacheSize is 0, the fetcher is
// wrapped in a bounded CachingFetcher so a page shared by several sites
// is fetched once.
func newFetcher(cfg *config.Config, logger *slog.Logger) (fetch.Fetcher, func() error, error) {
	noop := func() error { return nil }

	if cfg.Fetcher == config.FetcherBrowser {
		if hasSiteCredentials(cfg.SiteConfigs) {
			logger.Warn("cookies and headers from the config file are ignored by the browser fetcher")
		}
		opts := []fetch.BrowserOption{
			fetch.WithBrowserTimeout(cfg.Timeout),
			fetch.WithBrowserUserAgent(cfg.UserAgent),
			fetch.WithWaitTime(cfg.BrowserWait),
		}
		if cfg.ProxyAddress != "" {
			opts = append(opts, fetch.WithBrowserProxy(cfg.ProxyAddress))
		}
		if cfg.ChromePath != "" {
			opts = append(opts, fetch.WithExecPath(cfg.ChromePath))
		}
		b, err := fetch.NewBrowserFetcher(opts...)
		if err != nil {
			return nil, noop, fmt.Errorf("failed to start browser: %w", err)
		}
		return withCache(b, cfg.CacheSize), b.Close, nil
	}

	var defaults config.SiteConfig
	if cfg.SiteConfigs != nil {
		defaults = cfg.SiteConfigs.Defaults
	}
	fallback, err := fetch.NewHTTPFetcher(httpOptions(cfg, defaults)...)
	if err != nil {
		return nil, noop, err
	}

	router := fetch.NewHostRouter(fallback)
	if cfg.SiteConfigs != nil {
		for key := range cfg.SiteConfigs.Sites {
			host := siteHost(key)
			sc := cfg.SiteConfigs.GetSiteConfig(key)
			if host == "" || (sc.Cookie == "" && len(sc.Headers) == 0) {
				continue
			}
			f, err := fetch.NewHTTPFetcher(httpOptions(cfg, sc)...)
			if err != nil {
				return nil, noop, fmt.Errorf("site %s: %w", key, err)
			}
			router.Route(host, f)
		}
	}
	logger.Debug("http fetcher ready", "site_routes", router.Len())

	return withCache(router, cfg.CacheSize), noop, nil
}

// withCache wraps f in a CachingFetcher holding size pages. Size 0
// returns f unchanged.
func withCache(f fetch.Fetcher, size int) fetch.Fetcher {
	if size <= 0 {
		return f
	}
	return fetch.NewCachingFetcher(f, size)
}

// httpOptions returns the HTTPFetcher options for one site.
func httpOptions(cfg *config.Config, sc config.SiteConfig) []fetch.HTTPOption {
	opts := []fetch.HTTPOption{
		fetch.WithTimeout(cfg.Timeout),
		fetch.WithUserAgent(cfg.UserAgent),
		fetch.WithMaxBodySize(cfg.MaxBodySize),
		fetch.WithRetries(cfg.Retries, cfg.RetryDelay),
	}
	if cfg.ProxyAddress != "" {
		opts = append(opts, fetch.WithProxy(cfg.ProxyAddress))
	}
	if sc.Cookie != "" {
		opts = append(opts, fetch.WithCookie(sc.Cookie))
	}
	if len(sc.Headers) > 0 {
		opts = append(opts, fetch.WithHeaders(sc.Headers))
	}
	return opts
}

// siteHost returns the host a config file key refers to. Keys are either
// seed URLs or bare host names.
func siteHost(key string) string {
	if u, err := url.Parse(key); err == nil && u.Host != "" {
		return u.Hostname()
	}
	host, _, _ := strings.Cut(key, "/")
	return host
}

func hasSiteCredentials(cf *config.File) bool {
	if cf == nil {
		return false
	}
	if cf.Defaults.Cookie != "" || len(cf.Defaults.Headers) > 0 {
		return true
	}
	for _, sc := range cf.Sites {
		if sc.Cookie != "" || len(sc.Headers) > 0 {
			return true
		}
	}
	return false
}

// newCoordinator builds the crawl coordinator from the global settings and
// the per-site overrides of the config file.
func newCoordinator(cfg *config.Config, fetcher fetch.Fetcher, logger *slog.Logger) (*crawler.Coordinator, error) {
	strategy, err := cfg.Strategy()
	if err != nil {
		return nil, err
	}

	opts := []crawler.Option{
		crawler.WithMaxDepth(cfg.CrawlDepth),
		crawler.WithMaxLinksPerPage(cfg.MaxLinksPerPage),
		crawler.WithConcurrency(cfg.Concurrency),
		crawler.WithLinkFilter(strategy, cfg.LinkOptions()),
		crawler.WithLogger(logger),
		crawler.WithSiteOptions(siteOptions(cfg, strategy)),
		crawler.WithExtractor(newExtractor(cfg)),
		crawler.WithPageRelativeLinks(cfg.PageRelativeLinks),
	}
	if ef := emailFilter(cfg); ef != nil {
		opts = append(opts, crawler.WithEmailFilter(ef))
	}

	return crawler.NewCoordinator(fetcher, opts...)
}

// newExtractor returns the page extractor with the config file's extra
// platform patterns. Patterns were compiled once by Config.Validate.
func newExtractor(cfg *config.Config) *extract.HTMLExtractor {
	if cfg.SiteConfigs == nil || len(cfg.SiteConfigs.Patterns) == 0 {
		return extract.NewHTMLExtractor()
	}
	patterns := make([]extract.Pattern, 0, len(cfg.SiteConfigs.Patterns))
	for _, pc := range cfg.SiteConfigs.Patterns {
		patterns = append(patterns, extract.NewPattern(pc.Platform, pc.Source, pc.Regexp))
	}
	return extract.NewHTMLExtractor(extract.WithExtraPatterns(patterns...))
}

// siteOptions translates the config file entry of a seed into crawler
// options.
func siteOptions(cfg *config.Config, global filter.Strategy) crawler.SiteOptionsFunc {
	return func(seedURL string) []crawler.Option {
		sc := cfg.SiteConfigs.GetSiteConfig(seedURL)

		var opts []crawler.Option
		if sc.Depth != nil {
			opts = append(opts, crawler.WithMaxDepth(*sc.Depth))
		}
		if sc.MaxLinksPerPage != nil {
			opts = append(opts, crawler.WithMaxLinksPerPage(*sc.MaxLinksPerPage))
		}

		strategy := global
		if sc.LinkFilter != "" {
			if s, err := filter.ParseStrategy(sc.LinkFilter); err == nil {
				strategy = s
			}
		}
		opts = append(opts, crawler.WithLinkFilter(strategy, sc.MergedLinkOptions(cfg.LinkOptions())))
		return opts
	}
}

// emailFilter returns the configured email filter, or nil for the default.
func emailFilter(cfg *config.Config) filter.EmailFilter {
	if len(cfg.BlockedEmailDomains) == 0 && !cfg.SkipRoleAccounts {
		return nil
	}
	var opts []filter.DomainEmailFilterOption
	if len(cfg.BlockedEmailDomains) > 0 {
		opts = append(opts, filter.WithBlockedDomains(cfg.BlockedEmailDomains...))
	}
	if cfg.SkipRoleAccounts {
		opts = append(opts, filter.WithRoleAccounts())
	}
	return filter.NewDomainEmailFilter(opts...)
}

// outputReport writes the results in the requested format to the report
// file, or to stdout when no file is configured.
func outputReport(cfg *config.Config, results []*model.SiteResult, stdout io.Writer) error {
	output := stdout
	if cfg.ReportFile != "" {
		dir := filepath.Dir(cfg.ReportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}

		// Reports contain harvested addresses; keep them owner-only.
		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		output = f
	}

	_, err := newReportWriter(cfg, output).Write(results)
	return err
}

// newReportWriter picks the writer for the configured format.
func newReportWriter(cfg *config.Config, output io.Writer) report.Writer {
	switch {
	case cfg.JSONReport:
		return report.NewJSONWriter(output, report.WithPrettyPrint(), report.WithVersion(getVersion()))
	case cfg.MarkdownReport:
		return report.NewMarkdownWriter(output)
	default:
		return report.NewTextWriter(output, report.WithVerbose(cfg.Verbose))
	}
}

// saveResult stores one result. If db is nil, this function is a no-op.
func saveResult(ctx context.Context, db *store.ResultDB, result *model.SiteResult, logger *slog.Logger) error {
	if db == nil {
		return nil
	}

	// Saving must not be skipped just because the scan was interrupted.
	ctx = context.WithoutCancel(ctx)

	id, err := db.SaveResult(ctx, result)
	if err != nil {
		return err
	}

	logger.Info("result saved to database", "site", result.URL, "id", id)
	return nil
}

// progress shows a spinner on stderr while sites are crawled. A nil
// *progress does nothing.
type progress struct {
	s     *spinner.Spinner
	total int
}

func newProgress(cfg *config.Config, w io.Writer, total int) *progress {
	if !cfg.Progress {
		return nil
	}
	s := spinner.New(spinner.CharSets[9], 100*time.Millisecond, spinner.WithWriter(w))
	s.Suffix = fmt.Sprintf(" crawling %d site(s)...", total)
	s.Start()
	return &progress{s: s, total: total}
}

func (p *progress) done(n int) {
	if p == nil {
		return
	}
	p.s.Lock()
	p.s.Suffix = fmt.Sprintf(" [%d/%d] sites done", n, p.total)
	p.s.Unlock()
}

func (p *progress) stop() {
	if p == nil {
		return
	}
	p.s.Stop()
}
