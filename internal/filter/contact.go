package filter

import (
	"net/url"
	"strings"
)

// DefaultContactKeywords are URL path fragments that suggest a page
// carrying contact information.
var DefaultContactKeywords = []string{
	"about", "about-us", "aboutus",
	"contact", "contact-us", "contactus",
	"sitemap", "site-map",
	"impressum", "imprint", "kontakt",
	"team",
}

// ContactInfoLinkFilter narrows in-scope links to pages whose path looks
// like a contact or about page. It is meant for callers who only want the
// contact details of a site rather than full coverage.
type ContactInfoLinkFilter struct {
	base     *DefaultLinkFilter
	keywords []string
	fallback bool
}

// NewContactInfoLinkFilter creates a ContactInfoLinkFilter for seedURL.
func NewContactInfoLinkFilter(seedURL string, opts LinkOptions) (*ContactInfoLinkFilter, error) {
	base, err := NewDefaultLinkFilter(seedURL, opts)
	if err != nil {
		return nil, err
	}

	keywords := opts.ContactKeywords
	if len(keywords) == 0 {
		keywords = DefaultContactKeywords
	}
	lowered := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			lowered = append(lowered, k)
		}
	}

	return &ContactInfoLinkFilter{
		base:     base,
		keywords: lowered,
		fallback: opts.UseDefaultFallback,
	}, nil
}

// Filter implements LinkFilter.
func (f *ContactInfoLinkFilter) Filter(candidates []string) []string {
	scoped := f.base.Filter(candidates)
	out := make([]string, 0, len(scoped))
	for _, link := range scoped {
		if f.looksLikeContact(link) {
			out = append(out, link)
		}
	}
	if len(out) == 0 && f.fallback {
		return scoped
	}
	return out
}

// looksLikeContact reports whether the link's path contains a keyword.
// Only the path is inspected so a host name like contact-corp.example
// does not make every link match.
func (f *ContactInfoLinkFilter) looksLikeContact(link string) bool {
	u, err := url.Parse(link)
	if err != nil {
		return false
	}
	path := strings.ToLower(u.Path)
	for _, k := range f.keywords {
		if strings.Contains(path, k) {
			return true
		}
	}
	return false
}

var _ LinkFilter = (*ContactInfoLinkFilter)(nil)
