package extract

import (
	"regexp"
	"strings"

	"github.com/nao1215/contactscan/internal/model"
)

// Pattern recognizes one kind of identifier on one platform.
type Pattern struct {
	// Platform is the platform name, e.g. "twitter".
	Platform string

	// Source is the pattern name within the platform, e.g. "user".
	Source string

	// Regexp matches the identifier. Named groups become the fields of
	// each match.
	Regexp *regexp.Regexp

	// Reject, if set, drops matches whose fields it returns true for.
	// RE2 has no look-ahead, so exclusions are expressed here.
	Reject func(model.Fields) bool
}

// NewPattern compiles expr into a Pattern. It panics if expr is invalid,
// like regexp.MustCompile.
func NewPattern(platform, source, expr string) Pattern {
	return Pattern{
		Platform: platform,
		Source:   source,
		Regexp:   regexp.MustCompile(expr),
	}
}

// withReject returns a copy of p that drops matches rejected by fn.
func (p Pattern) withReject(fn func(model.Fields) bool) Pattern {
	p.Reject = fn
	return p
}

// fieldHasPrefix returns a Reject function dropping matches whose field
// starts with one of prefixes.
func fieldHasPrefix(field string, prefixes ...string) func(model.Fields) bool {
	return func(f model.Fields) bool {
		v, ok := f[field]
		if !ok {
			return false
		}
		for _, prefix := range prefixes {
			if strings.HasPrefix(v, prefix) {
				return true
			}
		}
		return false
	}
}

// queryTail matches an optional query string without running past the
// end of the surrounding attribute or text.
const queryTail = `(?:\?[^\s"'<>]*)`

// DefaultPatterns returns the built-in platform patterns.
// Matching is case-sensitive.
func DefaultPatterns() []Pattern {
	return []Pattern{
		NewPattern("angellist", "company",
			`(?:https?:)?//angel\.co/company/(?P<company>[A-z0-9_-]+)(?:/(?P<company_subpage>[A-z0-9-]+))?`),
		NewPattern("angellist", "job",
			`(?:https?:)?//angel\.co/company/(?P<company>[A-z0-9_-]+)/jobs/(?P<job_permalink>(?P<job_id>[0-9]+)-(?P<job_slug>[A-z0-9-]+))`),
		NewPattern("angellist", "user",
			`(?:https?:)?//angel\.co/(?P<type>u|p)/(?P<user>[A-z0-9_-]+)`),

		NewPattern("crunchbase", "company",
			`(?:https?:)?//(?:www\.)?crunchbase\.com/organization/(?P<organization>[A-z0-9_-]+)`),
		NewPattern("crunchbase", "person",
			`(?:https?:)?//(?:www\.)?crunchbase\.com/person/(?P<person>[A-z0-9_-]+)`),

		NewPattern("github", "repository",
			`(?:https?:)?//(?:www\.)?github\.com/(?P<owner>[A-Za-z0-9_-]+)/(?P<repository>[A-Za-z0-9_.-]+)`).
			withReject(fieldHasPrefix("owner", "orgs", "sponsors", "features", "about", "login")),
		NewPattern("github", "user",
			`(?:https?:)?//(?:www\.)?github\.com/(?P<username>[A-Za-z0-9_-]+)/?`).
			withReject(fieldHasPrefix("username", "features", "about", "login", "pricing")),

		NewPattern("linkedin", "company",
			`(?:https?:)?//(?:[\w]+\.)?linkedin\.com/company/(?P<company_permalink>[A-z0-9.-]+)/?`),
		NewPattern("linkedin", "post",
			`(?:https?:)?//(?:[\w]+\.)?linkedin\.com/feed/update/urn:li:activity:(?P<activity_id>[0-9]+)/?`),
		NewPattern("linkedin", "profile",
			`(?:https?:)?//(?:[\w]+\.)?linkedin\.com/in/(?P<permalink>[\w\x{00c0}-\x{00ff}%-]+)/?`),
		NewPattern("linkedin", "profile_pub",
			`(?:https?:)?//(?:[\w]+\.)?linkedin\.com/pub/(?P<permalink_pub>[A-z0-9_-]+)(?:/[A-z0-9]+){3}/?`),

		NewPattern("medium", "post",
			`(?:https?:)?//medium\.com/(?:(?:@(?P<username>[A-z0-9]+))|(?P<publication>[a-z-]+))/(?P<slug>[a-z0-9-]+)-(?P<post_id>[A-z0-9]+)`+queryTail+`?`),
		NewPattern("medium", "subpost",
			`(?:https?:)?//(?P<publication>[a-z-]+)\.medium\.com/(?P<slug>[a-z0-9-]+)-(?P<post_id>[A-z0-9]+)`+queryTail+`?`).
			withReject(fieldHasPrefix("publication", "www")),
		NewPattern("medium", "user",
			`(?:https?:)?//medium\.com/@(?P<username>[A-z0-9]+)`+queryTail+`?`),
		NewPattern("medium", "userid",
			`(?:https?:)?//medium\.com/u/(?P<user_id>[A-z0-9]+)`+queryTail),

		NewPattern("twitter", "status",
			`(?:https?:)?//(?:[A-z]+\.)?(?:twitter|x)\.com/@?(?P<username>[A-z0-9_]+)/status/(?P<tweet_id>[0-9]+)/?`),
		NewPattern("twitter", "user",
			`(?:https?:)?//(?:[A-z]+\.)?(?:twitter|x)\.com/@?(?P<username>[A-z0-9_]+)/?`).
			withReject(fieldHasPrefix("username", "home", "share", "privacy", "tos", "intent")),
	}
}

// matchPatterns runs every pattern over content and collects the
// matches into a PlatformData. Platforms and sources without a match are
// left out.
func matchPatterns(patterns []Pattern, content string) model.PlatformData {
	data := model.NewPlatformData()
	for _, p := range patterns {
		names := p.Regexp.SubexpNames()
		for _, loc := range p.Regexp.FindAllStringSubmatchIndex(content, -1) {
			fields := make(model.Fields)
			for i, name := range names {
				if i == 0 || name == "" {
					continue
				}
				start, end := loc[2*i], loc[2*i+1]
				if start < 0 {
					continue
				}
				fields[name] = content[start:end]
			}
			if p.Reject != nil && p.Reject(fields) {
				continue
			}
			data.Set(p.Platform, p.Source, content[loc[0]:loc[1]], fields)
		}
	}
	return data
}
