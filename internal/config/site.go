package config

import (
	"fmt"
	"maps"
	"net/url"
	"regexp"
	"strings"

	"github.com/nao1215/contactscan/internal/filter"
)

// SiteConfig holds site-specific configuration for a single seed.
// Zero values mean "inherit".
type SiteConfig struct {
	// Cookie is an HTTP cookie to use when crawling this site.
	// Format: "name=value" or "name1=value1; name2=value2"
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are custom HTTP headers to include in requests to this site.
	Headers map[string]string `yaml:"headers,omitempty"`

	// Depth overrides the global crawl depth for this site.
	Depth *int `yaml:"depth,omitempty"`

	// MaxLinksPerPage overrides the global per-page link cap.
	MaxLinksPerPage *int `yaml:"maxLinksPerPage,omitempty"`

	// LinkFilter overrides the link filter strategy ("default" or "contact").
	LinkFilter string `yaml:"linkFilter,omitempty"`

	// LinkOptions scope and shape the followed links.
	filter.LinkOptions `yaml:",inline"`
}

// File represents the structure of the .contactscan configuration file.
type File struct {
	// Sites maps a seed URL or a host name to its configuration.
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Defaults contains default site configuration applied to all sites
	// unless overridden in the site-specific configuration.
	Defaults SiteConfig `yaml:"defaults,omitempty"`

	// Patterns are platform patterns added to the built-in ones.
	Patterns []PatternConfig `yaml:"patterns,omitempty"`
}

// PatternConfig is a user-defined platform pattern. Named groups of
// Regexp become the fields of each match.
type PatternConfig struct {
	Platform string `yaml:"platform"`
	Source   string `yaml:"source"`
	Regexp   string `yaml:"regexp"`
}

// GetSiteConfig returns the configuration for a seed URL, merged over
// the defaults. Sites are looked up by the exact seed URL first, then by
// host name with and without a leading "www.".
func (cf *File) GetSiteConfig(seedURL string) SiteConfig {
	if cf == nil {
		return SiteConfig{}
	}
	if siteConfig, ok := cf.lookup(seedURL); ok {
		return mergeSiteConfig(cf.Defaults, siteConfig)
	}
	return cf.Defaults
}

// lookup finds the site entry matching seedURL.
func (cf *File) lookup(seedURL string) (SiteConfig, bool) {
	if siteConfig, ok := cf.Sites[seedURL]; ok {
		return siteConfig, true
	}

	u, err := url.Parse(seedURL)
	if err != nil || u.Host == "" {
		return SiteConfig{}, false
	}
	host := strings.ToLower(u.Hostname())
	for _, key := range []string{host, strings.TrimPrefix(host, "www."), "www." + host} {
		if siteConfig, ok := cf.Sites[key]; ok {
			return siteConfig, true
		}
	}
	return SiteConfig{}, false
}

// Validate checks every site entry.
func (cf *File) Validate() error {
	check := func(name string, sc SiteConfig) error {
		if sc.Depth != nil && *sc.Depth < 0 {
			return fmt.Errorf("site %s: %w", name, ErrInvalidCrawlDepth)
		}
		if sc.LinkFilter != "" {
			if _, err := filter.ParseStrategy(sc.LinkFilter); err != nil {
				return fmt.Errorf("site %s: %w", name, err)
			}
		}
		return nil
	}

	if err := check("defaults", cf.Defaults); err != nil {
		return err
	}
	for name, sc := range cf.Sites {
		if err := check(name, sc); err != nil {
			return err
		}
	}
	for i, pc := range cf.Patterns {
		if pc.Platform == "" || pc.Source == "" {
			return fmt.Errorf("%w: patterns[%d] needs a platform and a source", ErrInvalidPattern, i)
		}
		if _, err := regexp.Compile(pc.Regexp); err != nil {
			return fmt.Errorf("%w: %s.%s: %w", ErrInvalidPattern, pc.Platform, pc.Source, err)
		}
	}
	return nil
}

// mergeSiteConfig merges default config with site-specific overrides.
func mergeSiteConfig(defaults, override SiteConfig) SiteConfig {
	result := defaults

	if override.Cookie != "" {
		result.Cookie = override.Cookie
	}
	if override.Depth != nil {
		result.Depth = override.Depth
	}
	if override.MaxLinksPerPage != nil {
		result.MaxLinksPerPage = override.MaxLinksPerPage
	}
	if override.LinkFilter != "" {
		result.LinkFilter = override.LinkFilter
	}
	if len(override.Headers) > 0 {
		headers := make(map[string]string, len(defaults.Headers)+len(override.Headers))
		maps.Copy(headers, defaults.Headers)
		maps.Copy(headers, override.Headers)
		result.Headers = headers
	}
	if len(override.AllowedDomains) > 0 {
		result.AllowedDomains = override.AllowedDomains
	}
	if override.IncludeSubdomains {
		result.IncludeSubdomains = true
	}
	if len(override.IgnorePatterns) > 0 {
		result.IgnorePatterns = override.IgnorePatterns
	}
	if len(override.FollowPatterns) > 0 {
		result.FollowPatterns = override.FollowPatterns
	}
	if len(override.ContactKeywords) > 0 {
		result.ContactKeywords = override.ContactKeywords
	}
	if override.UseDefaultFallback {
		result.UseDefaultFallback = true
	}

	return result
}

// MergedLinkOptions returns the site's link filter options on top of the
// global ones. Site allowed domains are added to the global list.
func (sc SiteConfig) MergedLinkOptions(global filter.LinkOptions) filter.LinkOptions {
	opts := sc.LinkOptions
	opts.AllowedDomains = append(append([]string{}, global.AllowedDomains...), sc.AllowedDomains...)
	opts.IncludeSubdomains = sc.IncludeSubdomains || global.IncludeSubdomains
	return opts
}
