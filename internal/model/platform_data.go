package model

import "sort"

// Fields maps a named capture group to the text it captured.
// Groups that did not participate in a match are absent.
type Fields map[string]string

// PlatformData is the nested platform -> source -> matched text -> fields
// structure produced by pattern matching against page content.
//
// Example:
//
//	{"twitter": {"user": {"https://twitter.com/acme": {"username": "acme"}}}}
type PlatformData map[string]map[string]map[string]Fields

// NewPlatformData returns an empty PlatformData.
func NewPlatformData() PlatformData {
	return make(PlatformData)
}

// Set records fields for (platform, source, match), creating the
// intermediate maps when needed. The previous value is replaced.
func (p PlatformData) Set(platform, source, match string, fields Fields) {
	sources, ok := p[platform]
	if !ok {
		sources = make(map[string]map[string]Fields)
		p[platform] = sources
	}
	matches, ok := sources[source]
	if !ok {
		matches = make(map[string]Fields)
		sources[source] = matches
	}
	matches[match] = fields.clone()
}

// Get returns the fields stored for (platform, source, match).
func (p PlatformData) Get(platform, source, match string) (Fields, bool) {
	fields, ok := p[platform][source][match]
	return fields, ok
}

// Merge folds other into p.
//
// A triple missing from p is inserted. A triple already present is
// overwritten only when other's fields are non-empty, so an empty mapping
// never replaces a populated one.
func (p PlatformData) Merge(other PlatformData) {
	for platform, sources := range other {
		for source, matches := range sources {
			for match, fields := range matches {
				if _, exists := p.Get(platform, source, match); exists && len(fields) == 0 {
					continue
				}
				p.Set(platform, source, match, fields)
			}
		}
	}
}

// MatchCount returns the total number of distinct matched strings.
func (p PlatformData) MatchCount() int {
	n := 0
	for _, sources := range p {
		for _, matches := range sources {
			n += len(matches)
		}
	}
	return n
}

// Platforms returns platform names in lexical order.
func (p PlatformData) Platforms() []string {
	names := make([]string, 0, len(p))
	for name := range p {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Sources returns the source names of a platform in lexical order.
func (p PlatformData) Sources(platform string) []string {
	names := make([]string, 0, len(p[platform]))
	for name := range p[platform] {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Matches returns the matched strings of (platform, source) in lexical order.
func (p PlatformData) Matches(platform, source string) []string {
	matches := p[platform][source]
	names := make([]string, 0, len(matches))
	for name := range matches {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (f Fields) clone() Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}
