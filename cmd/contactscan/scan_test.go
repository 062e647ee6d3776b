package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/contactscan/internal/config"
	"github.com/nao1215/contactscan/internal/fetch"
	"github.com/nao1215/contactscan/internal/log"
	"github.com/nao1215/contactscan/internal/report"
)

// newSiteServer serves a two-page site. The contact page only shows its
// address when the request carries cookie, if cookie is not empty.
func newSiteServer(t *testing.T, cookie string) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, `<html lang="en"><head><title>Acme</title></head><body>
<a href="/contact">Contact</a>
<a href="https://twitter.com/acme">Twitter</a>
<p>info@acme.test</p>
</body></html>`)
	})
	mux.HandleFunc("/contact", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if cookie != "" && r.Header.Get("Cookie") != cookie {
			fmt.Fprint(w, `<html><body>Please log in</body></html>`)
			return
		}
		fmt.Fprint(w, `<html><head><title>Contact</title></head><body><p>hello@acme.test</p></body></html>`)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestConfig(t *testing.T, targets ...string) *config.Config {
	t.Helper()

	cfg := config.NewConfig()
	cfg.Targets = targets
	cfg.Retries = 0
	cfg.BatchSize = 1
	cfg.Timeout = 5 * time.Second
	cfg.DBDir = t.TempDir()
	cfg.SiteConfigs = &config.File{Sites: make(map[string]config.SiteConfig)}
	return cfg
}

func decodeReport(t *testing.T, data []byte) report.JSONReport {
	t.Helper()

	var rep report.JSONReport
	if err := json.Unmarshal(data, &rep); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, data)
	}
	return rep
}

func TestNewScanCmd(t *testing.T) {
	t.Parallel()

	cmd := NewScanCmd()

	if !strings.HasPrefix(cmd.Use, "scan") {
		t.Errorf("expected use to start with 'scan', got %q", cmd.Use)
	}

	flags := []struct {
		name      string
		shorthand string
		defValue  string
	}{
		{"depth", "d", "10"},
		{"max-links", "", "-1"},
		{"filter", "", "default"},
		{"concurrency", "n", "1"},
		{"batch", "b", "4"},
		{"list", "l", ""},
		{"fetcher", "", "http"},
		{"proxy", "x", ""},
		{"timeout", "t", "30s"},
		{"retries", "", "1"},
		{"config", "c", ""},
		{"json", "j", "false"},
		{"markdown", "m", "false"},
		{"output", "o", ""},
		{"save", "s", "false"},
		{"progress", "", "false"},
		{"redact-emails", "", "false"},
	}

	for _, tt := range flags {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			flag := cmd.Flags().Lookup(tt.name)
			if flag == nil {
				t.Fatalf("expected %s flag", tt.name)
			}
			if flag.Shorthand != tt.shorthand {
				t.Errorf("expected shorthand %q, got %q", tt.shorthand, flag.Shorthand)
			}
			if flag.DefValue != tt.defValue {
				t.Errorf("expected default %q, got %q", tt.defValue, flag.DefValue)
			}
		})
	}
}

func TestBuildConfig(t *testing.T) {
	t.Parallel()

	t.Run("reads flags", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), "config.yaml")
		if err := os.WriteFile(configPath, []byte("sites:\n  example.com:\n    depth: 2\n"), 0600); err != nil {
			t.Fatalf("write: %v", err)
		}

		cmd := NewScanCmd()
		err := cmd.ParseFlags([]string{
			"-d", "3",
			"--max-links", "5",
			"--filter", "contact",
			"--allow-domain", "cdn.example.com",
			"--include-subdomains",
			"--block-email-domain", "spam.test",
			"--skip-role-accounts",
			"-n", "4",
			"-b", "2",
			"--fetcher", "browser",
			"-x", "127.0.0.1:9050",
			"-t", "10s",
			"--retries", "3",
			"--cache-size", "0",
			"--browser-wait", "500ms",
			"--chrome-path", "/usr/bin/chromium",
			"--page-relative-links",
			"-m",
			"-o", "out.md",
			"-s",
			"-c", configPath,
		})
		if err != nil {
			t.Fatalf("parse flags: %v", err)
		}

		cfg, err := buildConfig(cmd, []string{"https://example.com"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if cfg.CrawlDepth != 3 || cfg.MaxLinksPerPage != 5 || cfg.LinkFilter != "contact" {
			t.Errorf("unexpected crawl settings: %+v", cfg)
		}
		if len(cfg.AllowedDomains) != 1 || !cfg.IncludeSubdomains {
			t.Errorf("unexpected scope settings: %v %v", cfg.AllowedDomains, cfg.IncludeSubdomains)
		}
		if len(cfg.BlockedEmailDomains) != 1 || !cfg.SkipRoleAccounts {
			t.Errorf("unexpected email settings: %v %v", cfg.BlockedEmailDomains, cfg.SkipRoleAccounts)
		}
		if cfg.Concurrency != 4 || cfg.BatchSize != 2 {
			t.Errorf("unexpected concurrency: %d %d", cfg.Concurrency, cfg.BatchSize)
		}
		if cfg.Fetcher != config.FetcherBrowser || cfg.ProxyAddress != "127.0.0.1:9050" {
			t.Errorf("unexpected fetch settings: %q %q", cfg.Fetcher, cfg.ProxyAddress)
		}
		if cfg.Timeout != 10*time.Second || cfg.Retries != 3 {
			t.Errorf("unexpected timeout/retries: %v %d", cfg.Timeout, cfg.Retries)
		}
		if cfg.CacheSize != 0 || cfg.BrowserWait != 500*time.Millisecond || cfg.ChromePath != "/usr/bin/chromium" {
			t.Errorf("unexpected cache/browser settings: %d %v %q", cfg.CacheSize, cfg.BrowserWait, cfg.ChromePath)
		}
		if !cfg.PageRelativeLinks {
			t.Error("expected PageRelativeLinks to be set")
		}
		if !cfg.MarkdownReport || cfg.ReportFile != "out.md" || !cfg.SaveToDB {
			t.Errorf("unexpected output settings: %+v", cfg)
		}
		if len(cfg.Targets) != 1 || cfg.Targets[0] != "https://example.com" {
			t.Errorf("unexpected targets: %v", cfg.Targets)
		}
		sc := cfg.SiteConfigs.GetSiteConfig("https://example.com")
		if sc.Depth == nil || *sc.Depth != 2 {
			t.Errorf("expected site depth 2 from config file, got %v", sc.Depth)
		}
		if err := cfg.Validate(); err != nil {
			t.Errorf("expected valid config: %v", err)
		}
	})

	t.Run("explicit missing config file", func(t *testing.T) {
		t.Parallel()

		cmd := NewScanCmd()
		if err := cmd.ParseFlags([]string{"-c", filepath.Join(t.TempDir(), "missing.yaml")}); err != nil {
			t.Fatalf("parse flags: %v", err)
		}

		_, err := buildConfig(cmd, []string{"https://example.com"})
		if !errors.Is(err, config.ErrConfigNotFound) {
			t.Errorf("expected ErrConfigNotFound, got %v", err)
		}
	})

	t.Run("invalid config file", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), "config.yaml")
		if err := os.WriteFile(configPath, []byte("sites: [unclosed"), 0600); err != nil {
			t.Fatalf("write: %v", err)
		}

		cmd := NewScanCmd()
		if err := cmd.ParseFlags([]string{"-c", configPath}); err != nil {
			t.Fatalf("parse flags: %v", err)
		}
		if _, err := buildConfig(cmd, nil); err == nil {
			t.Error("expected parse error")
		}
	})

	t.Run("seed list", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		listPath := filepath.Join(dir, "seeds.txt")
		content := "# seeds\nhttps://a.example\n\n  https://b.example  \n"
		if err := os.WriteFile(listPath, []byte(content), 0600); err != nil {
			t.Fatalf("write: %v", err)
		}
		configPath := filepath.Join(dir, "config.yaml")
		if err := os.WriteFile(configPath, []byte("sites: {}\n"), 0600); err != nil {
			t.Fatalf("write: %v", err)
		}

		cmd := NewScanCmd()
		if err := cmd.ParseFlags([]string{"-l", listPath, "-c", configPath}); err != nil {
			t.Fatalf("parse flags: %v", err)
		}

		cfg, err := buildConfig(cmd, []string{"https://first.example"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := []string{"https://first.example", "https://a.example", "https://b.example"}
		if strings.Join(cfg.Targets, " ") != strings.Join(want, " ") {
			t.Errorf("expected targets %v, got %v", want, cfg.Targets)
		}
	})

	t.Run("missing seed list", func(t *testing.T) {
		t.Parallel()

		cmd := NewScanCmd()
		if err := cmd.ParseFlags([]string{"-l", filepath.Join(t.TempDir(), "none.txt")}); err != nil {
			t.Fatalf("parse flags: %v", err)
		}
		if _, err := buildConfig(cmd, nil); err == nil {
			t.Error("expected error for missing seed list")
		}
	})
}

func TestRunScanCmdValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		args    []string
		wantErr error
	}{
		{"no targets", []string{"-c", "/dev/null"}, config.ErrNoTarget},
		{"conflicting formats", []string{"-c", "/dev/null", "-j", "-m", "https://example.com"}, config.ErrConflictingReportFormats},
		{"unknown fetcher", []string{"-c", "/dev/null", "--fetcher", "curl", "https://example.com"}, config.ErrUnknownFetcher},
		{"negative depth", []string{"-c", "/dev/null", "--depth=-1", "https://example.com"}, config.ErrInvalidCrawlDepth},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cmd := NewScanCmd()
			cmd.SetOut(io.Discard)
			cmd.SetErr(io.Discard)
			cmd.SetArgs(tt.args)

			err := cmd.Execute()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestRunScan(t *testing.T) {
	t.Parallel()

	t.Run("crawls site and writes JSON report", func(t *testing.T) {
		t.Parallel()

		srv := newSiteServer(t, "")
		cfg := newTestConfig(t, srv.URL)
		cfg.JSONReport = true

		var stdout bytes.Buffer
		if err := runScan(context.Background(), cfg, log.Discard(), &stdout, io.Discard); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		rep := decodeReport(t, stdout.Bytes())
		if len(rep.Sites) != 1 {
			t.Fatalf("expected 1 site, got %d", len(rep.Sites))
		}
		site := rep.Sites[0]
		if site.URL != srv.URL {
			t.Errorf("expected site %q, got %q", srv.URL, site.URL)
		}
		if got := site.Emails["hello@acme.test"]; got != srv.URL+"/contact" {
			t.Errorf("expected hello@ from contact page, got %q", got)
		}
		if got := site.Emails["info@acme.test"]; got != srv.URL {
			t.Errorf("expected info@ from seed, got %q", got)
		}
		if _, ok := site.PlatformData["twitter"]; !ok {
			t.Error("expected twitter platform data")
		}
		if site.Stats.PagesFetched != 2 {
			t.Errorf("expected 2 pages fetched, got %d", site.Stats.PagesFetched)
		}
	})

	t.Run("depth zero fetches only the seed", func(t *testing.T) {
		t.Parallel()

		srv := newSiteServer(t, "")
		cfg := newTestConfig(t, srv.URL)
		cfg.JSONReport = true
		cfg.CrawlDepth = 0

		var stdout bytes.Buffer
		if err := runScan(context.Background(), cfg, log.Discard(), &stdout, io.Discard); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		site := decodeReport(t, stdout.Bytes()).Sites[0]
		if _, ok := site.Emails["hello@acme.test"]; ok {
			t.Error("contact page must not be fetched at depth 0")
		}
	})

	t.Run("site cookie reaches the server", func(t *testing.T) {
		t.Parallel()

		srv := newSiteServer(t, "session=ok")
		cfg := newTestConfig(t, srv.URL)
		cfg.JSONReport = true
		cfg.SiteConfigs.Sites[srv.URL] = config.SiteConfig{Cookie: "session=ok"}

		var stdout bytes.Buffer
		if err := runScan(context.Background(), cfg, log.Discard(), &stdout, io.Discard); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		site := decodeReport(t, stdout.Bytes()).Sites[0]
		if _, ok := site.Emails["hello@acme.test"]; !ok {
			t.Error("expected authenticated contact page to be crawled")
		}
	})

	t.Run("per-site depth override", func(t *testing.T) {
		t.Parallel()

		srv := newSiteServer(t, "")
		cfg := newTestConfig(t, srv.URL)
		cfg.JSONReport = true
		zero := 0
		cfg.SiteConfigs.Sites[srv.URL] = config.SiteConfig{Depth: &zero}

		var stdout bytes.Buffer
		if err := runScan(context.Background(), cfg, log.Discard(), &stdout, io.Discard); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		site := decodeReport(t, stdout.Bytes()).Sites[0]
		if len(site.Visited) != 1 {
			t.Errorf("expected only the seed to be visited, got %v", site.Visited)
		}
	})

	t.Run("concurrent batch keeps input order", func(t *testing.T) {
		t.Parallel()

		a := newSiteServer(t, "")
		b := newSiteServer(t, "")
		cfg := newTestConfig(t, a.URL, b.URL)
		cfg.JSONReport = true
		cfg.BatchSize = 2

		var stdout bytes.Buffer
		if err := runScan(context.Background(), cfg, log.Discard(), &stdout, io.Discard); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		rep := decodeReport(t, stdout.Bytes())
		if len(rep.Sites) != 2 || rep.Sites[0].URL != a.URL || rep.Sites[1].URL != b.URL {
			t.Errorf("unexpected site order: %+v", rep.Sites)
		}
	})

	t.Run("invalid seed is reported after the others", func(t *testing.T) {
		t.Parallel()

		srv := newSiteServer(t, "")
		cfg := newTestConfig(t, "ftp://example.com", srv.URL)
		cfg.JSONReport = true

		var stdout bytes.Buffer
		err := runScan(context.Background(), cfg, log.Discard(), &stdout, io.Discard)
		if err == nil {
			t.Fatal("expected error for invalid seed")
		}

		rep := decodeReport(t, stdout.Bytes())
		if len(rep.Sites) != 1 || rep.Sites[0].URL != srv.URL {
			t.Errorf("expected the valid site in the report, got %+v", rep.Sites)
		}
	})

	t.Run("writes report file and saves history", func(t *testing.T) {
		t.Parallel()

		srv := newSiteServer(t, "")
		cfg := newTestConfig(t, srv.URL)
		cfg.MarkdownReport = true
		cfg.SaveToDB = true
		cfg.ReportFile = filepath.Join(t.TempDir(), "reports", "out.md")

		var stdout bytes.Buffer
		if err := runScan(context.Background(), cfg, log.Discard(), &stdout, io.Discard); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if stdout.Len() != 0 {
			t.Error("expected nothing on stdout when writing to a file")
		}

		content, err := os.ReadFile(cfg.ReportFile)
		if err != nil {
			t.Fatalf("read report: %v", err)
		}
		if !strings.Contains(string(content), "# Contactscan Report") {
			t.Error("expected markdown report")
		}
		info, err := os.Stat(cfg.ReportFile)
		if err != nil {
			t.Fatalf("stat: %v", err)
		}
		if perm := info.Mode().Perm(); perm != 0600 {
			t.Errorf("expected permissions 0600, got %o", perm)
		}

		var out bytes.Buffer
		history := NewHistoryCmd()
		history.SetOut(&out)
		history.SetArgs([]string{"--db-dir", cfg.DBDir, "--email", "HELLO@acme.test"})
		if err := history.Execute(); err != nil {
			t.Fatalf("history: %v", err)
		}
		if !strings.Contains(out.String(), srv.URL+"/contact") {
			t.Errorf("expected stored email source, got %q", out.String())
		}
	})

	t.Run("no targets", func(t *testing.T) {
		t.Parallel()

		cfg := newTestConfig(t)
		err := runScan(context.Background(), cfg, log.Discard(), io.Discard, io.Discard)
		if !errors.Is(err, config.ErrNoTarget) {
			t.Errorf("expected ErrNoTarget, got %v", err)
		}
	})
}

func TestSiteHost(t *testing.T) {
	t.Parallel()

	tests := []struct {
		key  string
		want string
	}{
		{"example.com", "example.com"},
		{"https://www.example.com/en/", "www.example.com"},
		{"http://127.0.0.1:8080", "127.0.0.1"},
		{"example.com/path", "example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Parallel()
			if got := siteHost(tt.key); got != tt.want {
				t.Errorf("siteHost(%q) = %q, want %q", tt.key, got, tt.want)
			}
		})
	}
}

func TestEmailFilter(t *testing.T) {
	t.Parallel()

	t.Run("default when nothing is configured", func(t *testing.T) {
		t.Parallel()
		if f := emailFilter(config.NewConfig()); f != nil {
			t.Errorf("expected nil filter, got %T", f)
		}
	})

	t.Run("blocked domains and role accounts", func(t *testing.T) {
		t.Parallel()

		cfg := config.NewConfig()
		cfg.BlockedEmailDomains = []string{"spam.test"}
		cfg.SkipRoleAccounts = true

		got := emailFilter(cfg).Filter([]string{"a@spam.test", "noreply@ok.test", "b@ok.test"})
		if len(got) != 1 || got[0] != "b@ok.test" {
			t.Errorf("expected [b@ok.test], got %v", got)
		}
	})
}

func TestSiteOptions(t *testing.T) {
	t.Parallel()

	depth := 2
	cfg := config.NewConfig()
	cfg.SiteConfigs = &config.File{
		Sites: map[string]config.SiteConfig{
			"example.com": {Depth: &depth, LinkFilter: "contact"},
		},
	}

	fn := siteOptions(cfg, 0)
	if got := len(fn("https://example.com/")); got != 2 {
		t.Errorf("expected depth and link filter options, got %d", got)
	}
	if got := len(fn("https://other.example/")); got != 1 {
		t.Errorf("expected only the link filter option, got %d", got)
	}
}

func TestHasSiteCredentials(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cf   *config.File
		want bool
	}{
		{"nil", nil, false},
		{"empty", &config.File{}, false},
		{"default cookie", &config.File{Defaults: config.SiteConfig{Cookie: "a=1"}}, true},
		{"site headers", &config.File{Sites: map[string]config.SiteConfig{
			"example.com": {Headers: map[string]string{"X-Key": "v"}},
		}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := hasSiteCredentials(tt.cf); got != tt.want {
				t.Errorf("hasSiteCredentials() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWithCache(t *testing.T) {
	t.Parallel()

	next := fetch.FetcherFunc(func(_ context.Context, url string) (string, error) {
		return url, nil
	})

	if _, ok := withCache(next, 0).(*fetch.CachingFetcher); ok {
		t.Error("cache size 0 must disable the cache")
	}
	if _, ok := withCache(next, 8).(*fetch.CachingFetcher); !ok {
		t.Error("expected a CachingFetcher for a positive cache size")
	}
}

func TestNewExtractor(t *testing.T) {
	t.Parallel()

	cfg := config.NewConfig()
	cfg.SiteConfigs = &config.File{
		Patterns: []config.PatternConfig{
			{Platform: "mastodon", Source: "user", Regexp: `https://mastodon\.social/@(?P<user>\w+)`},
		},
	}

	result, err := newExtractor(cfg).Extract(`https://mastodon.social/@gopher https://twitter.com/acme`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	fields, ok := result.PlatformData.Get("mastodon", "user", "https://mastodon.social/@gopher")
	if !ok || fields["user"] != "gopher" {
		t.Errorf("expected the configured pattern to match, got %v", result.PlatformData)
	}
	if _, ok := result.PlatformData["twitter"]; !ok {
		t.Error("expected the built-in patterns to stay active")
	}
}
