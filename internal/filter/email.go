package filter

import (
	"strings"
)

// EmailFilter returns the accepted subset of candidate emails.
type EmailFilter interface {
	Filter(candidates []string) []string
}

// EmailFilterFunc adapts a function to the EmailFilter interface.
type EmailFilterFunc func(candidates []string) []string

// Filter calls f(candidates).
func (f EmailFilterFunc) Filter(candidates []string) []string {
	return f(candidates)
}

// DefaultEmailFilter accepts every candidate.
type DefaultEmailFilter struct{}

// NewDefaultEmailFilter creates a DefaultEmailFilter.
func NewDefaultEmailFilter() *DefaultEmailFilter {
	return &DefaultEmailFilter{}
}

// Filter returns a copy of candidates.
func (DefaultEmailFilter) Filter(candidates []string) []string {
	out := make([]string, len(candidates))
	copy(out, candidates)
	return out
}

// defaultRoleLocalParts are local parts of addresses nobody reads.
var defaultRoleLocalParts = []string{
	"noreply", "no-reply", "donotreply", "do-not-reply",
	"postmaster", "mailer-daemon", "abuse", "hostmaster", "webmaster",
}

// assetExtensions are top-level "domains" produced by retina image names
// like logo@2x.png that happen to match the email grammar.
var assetExtensions = map[string]bool{
	"png": true, "jpg": true, "jpeg": true, "gif": true, "svg": true,
	"webp": true, "avif": true, "ico": true, "bmp": true,
	"css": true, "js": true, "mp4": true, "webm": true, "pdf": true,
}

// DomainEmailFilter rejects addresses that are unlikely to reach a person:
// blocked domains, role accounts and asset file names.
type DomainEmailFilter struct {
	blockedDomains map[string]bool
	roleLocalParts map[string]bool
	rejectRoles    bool
}

// DomainEmailFilterOption configures a DomainEmailFilter.
type DomainEmailFilterOption func(*DomainEmailFilter)

// WithBlockedDomains rejects addresses at the given domains.
// Comparison is case-insensitive.
func WithBlockedDomains(domains ...string) DomainEmailFilterOption {
	return func(f *DomainEmailFilter) {
		for _, d := range domains {
			f.blockedDomains[strings.ToLower(strings.TrimSpace(d))] = true
		}
	}
}

// WithRoleAccounts enables rejection of role accounts such as
// noreply@ or postmaster@. If localParts is empty the built-in list is used.
func WithRoleAccounts(localParts ...string) DomainEmailFilterOption {
	return func(f *DomainEmailFilter) {
		f.rejectRoles = true
		if len(localParts) == 0 {
			localParts = defaultRoleLocalParts
		}
		for _, lp := range localParts {
			f.roleLocalParts[strings.ToLower(lp)] = true
		}
	}
}

// NewDomainEmailFilter creates a DomainEmailFilter.
func NewDomainEmailFilter(opts ...DomainEmailFilterOption) *DomainEmailFilter {
	f := &DomainEmailFilter{
		blockedDomains: make(map[string]bool),
		roleLocalParts: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Filter returns the accepted candidates in input order without duplicates.
func (f *DomainEmailFilter) Filter(candidates []string) []string {
	out := make([]string, 0, len(candidates))
	seen := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		if seen[c] || !f.accept(c) {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}

func (f *DomainEmailFilter) accept(address string) bool {
	at := strings.LastIndex(address, "@")
	if at <= 0 || at == len(address)-1 {
		return false
	}
	local := strings.ToLower(strings.Trim(address[:at], `"`))
	domain := strings.ToLower(address[at+1:])

	if dot := strings.LastIndex(domain, "."); dot >= 0 && assetExtensions[domain[dot+1:]] {
		return false
	}
	if f.blockedDomains[domain] {
		return false
	}
	if f.rejectRoles && f.roleLocalParts[local] {
		return false
	}
	return true
}

var (
	_ EmailFilter = DefaultEmailFilter{}
	_ EmailFilter = (*DomainEmailFilter)(nil)
	_ EmailFilter = EmailFilterFunc(nil)
)
