package filter

import (
	"fmt"
	"net/url"
	"strings"
)

// LinkFilter returns the links a crawler should follow out of candidates.
// Returned links are absolute, de-duplicated within the call and in input
// order.
type LinkFilter interface {
	Filter(candidates []string) []string
}

// LinkFilterFunc adapts a function to the LinkFilter interface.
type LinkFilterFunc func(candidates []string) []string

// Filter calls f(candidates).
func (f LinkFilterFunc) Filter(candidates []string) []string {
	return f(candidates)
}

// LinkOptions configures link filters. The zero value scopes the filter
// to the seed URL's host.
type LinkOptions struct {
	// AllowedDomains are extra host names treated as part of the site.
	AllowedDomains []string `yaml:"allowedDomains,omitempty"`

	// IncludeSubdomains also accepts subdomains of the seed host and of
	// AllowedDomains.
	IncludeSubdomains bool `yaml:"includeSubdomains,omitempty"`

	// IgnorePatterns are URL path globs never followed.
	IgnorePatterns []string `yaml:"ignorePatterns,omitempty"`

	// FollowPatterns, when set, are the only URL path globs followed.
	FollowPatterns []string `yaml:"followPatterns,omitempty"`

	// ContactKeywords overrides the path keywords of the contact-info
	// strategy.
	ContactKeywords []string `yaml:"contactKeywords,omitempty"`

	// UseDefaultFallback makes the contact-info strategy return every
	// in-scope link when none of them looks like a contact page.
	UseDefaultFallback bool `yaml:"useDefaultFallback,omitempty"`
}

// skippedSchemes are link prefixes that never point at a crawlable page.
var skippedSchemes = []string{"javascript:", "mailto:", "tel:", "data:", "sms:", "ftp:"}

// DefaultLinkFilter keeps http(s) links that stay within the seed's site.
type DefaultLinkFilter struct {
	seed    *url.URL
	seedRaw string
	seedKey string
	scope   *hostScope
	opts    LinkOptions
}

// NewDefaultLinkFilter creates a DefaultLinkFilter for seedURL.
func NewDefaultLinkFilter(seedURL string, opts LinkOptions) (*DefaultLinkFilter, error) {
	seed, err := parseSeed(seedURL)
	if err != nil {
		return nil, err
	}
	return &DefaultLinkFilter{
		seed:    seed,
		seedRaw: seedURL,
		seedKey: normalizeURL(seed),
		scope:   newHostScope(seed.Host, opts.AllowedDomains, opts.IncludeSubdomains),
		opts:    opts,
	}, nil
}

// Filter implements LinkFilter.
//
// Links are resolved against the seed URL, fragments are removed and the
// scheme and host are lower-cased. A link that normalizes to the seed URL
// is returned exactly as the seed was given so callers can deduplicate
// against it.
func (f *DefaultLinkFilter) Filter(candidates []string) []string {
	out := make([]string, 0, len(candidates))
	seen := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		link, ok := f.accept(c)
		if !ok || seen[link] {
			continue
		}
		seen[link] = true
		out = append(out, link)
	}
	return out
}

// accept returns the normalized form of candidate and whether it is kept.
func (f *DefaultLinkFilter) accept(candidate string) (string, bool) {
	href := strings.TrimSpace(candidate)
	if href == "" || strings.HasPrefix(href, "#") {
		return "", false
	}
	lower := strings.ToLower(href)
	for _, scheme := range skippedSchemes {
		if strings.HasPrefix(lower, scheme) {
			return "", false
		}
	}

	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	resolved := f.seed.ResolveReference(ref)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return "", false
	}
	if !f.scope.contains(resolved.Host) {
		return "", false
	}
	if !allowedByPatterns(resolved.Path, f.opts.IgnorePatterns, f.opts.FollowPatterns) {
		return "", false
	}

	normalized := normalizeURL(resolved)
	if normalized == f.seedKey {
		return f.seedRaw, true
	}
	return normalized, true
}

// parseSeed validates a seed URL.
func parseSeed(seedURL string) (*url.URL, error) {
	seed, err := url.Parse(strings.TrimSpace(seedURL))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSeedURL, err)
	}
	if (seed.Scheme != "http" && seed.Scheme != "https") || seed.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSeedURL, seedURL)
	}
	return seed, nil
}

// normalizeURL returns u without fragment, with lower-case scheme and
// host, and with "/" as the path of a bare host.
func normalizeURL(u *url.URL) string {
	n := *u
	n.Fragment = ""
	n.RawFragment = ""
	n.Scheme = strings.ToLower(n.Scheme)
	n.Host = strings.ToLower(n.Host)
	if n.Path == "" && n.Opaque == "" {
		n.Path = "/"
	}
	return n.String()
}

// hostScope decides whether a host belongs to a site.
type hostScope struct {
	hosts      map[string]bool
	subdomains bool
}

func newHostScope(seedHost string, allowed []string, subdomains bool) *hostScope {
	s := &hostScope{hosts: make(map[string]bool), subdomains: subdomains}
	s.add(seedHost)
	for _, d := range allowed {
		s.add(d)
	}
	return s
}

func (s *hostScope) add(host string) {
	host = strings.ToLower(strings.TrimSpace(host))
	if host == "" {
		return
	}
	s.hosts[strings.TrimPrefix(host, "www.")] = true
}

func (s *hostScope) contains(host string) bool {
	host = strings.TrimPrefix(strings.ToLower(host), "www.")
	if s.hosts[host] {
		return true
	}
	if !s.subdomains {
		return false
	}
	for h := range s.hosts {
		if strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}

var (
	_ LinkFilter = (*DefaultLinkFilter)(nil)
	_ LinkFilter = LinkFilterFunc(nil)
)
