package extract

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"github.com/nao1215/contactscan/internal/model"
)

// ErrMalformedContent is returned when page content cannot be read at all.
// Ordinary broken markup never produces it.
var ErrMalformedContent = errors.New("malformed page content")

// Extraction is everything recognized on one page.
type Extraction struct {
	// Emails are substrings matching the email grammar, in page order,
	// duplicates included.
	Emails []string

	// Links are the raw href values of <a> elements in document order.
	// They are not resolved or validated.
	Links []string

	// PlatformData holds platform identifiers found in the content.
	PlatformData model.PlatformData

	// Meta is the page metadata.
	Meta model.PageMeta
}

// Extractor extracts data from raw page content.
// Implementations must be safe for concurrent use.
type Extractor interface {
	Extract(content string) (*Extraction, error)
}

// HTMLExtractor is the default Extractor. Emails and platform identifiers
// are matched against the raw source, so addresses inside attributes and
// scripts are found too. Links and metadata come from the parsed document.
type HTMLExtractor struct {
	patterns []Pattern
}

// Option configures an HTMLExtractor.
type Option func(*HTMLExtractor)

// WithPatterns replaces the platform patterns.
func WithPatterns(patterns ...Pattern) Option {
	return func(e *HTMLExtractor) {
		e.patterns = patterns
	}
}

// WithExtraPatterns appends platform patterns to the defaults.
func WithExtraPatterns(patterns ...Pattern) Option {
	return func(e *HTMLExtractor) {
		e.patterns = append(e.patterns, patterns...)
	}
}

// NewHTMLExtractor creates an HTMLExtractor using DefaultPatterns unless
// overridden by options.
func NewHTMLExtractor(opts ...Option) *HTMLExtractor {
	e := &HTMLExtractor{
		patterns: DefaultPatterns(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract implements Extractor.
func (e *HTMLExtractor) Extract(content string) (*Extraction, error) {
	doc, err := html.Parse(strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedContent, err)
	}

	result := &Extraction{
		Emails:       FindEmails(content),
		Links:        make([]string, 0),
		PlatformData: matchPatterns(e.patterns, content),
		Meta:         model.PageMeta{MetaTags: make(map[string]string)},
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			processElement(n, result)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	if result.Meta.Description == "" {
		result.Meta.Description = result.Meta.MetaTags["og:description"]
	}
	if len(result.Meta.MetaTags) == 0 {
		result.Meta.MetaTags = nil
	}

	return result, nil
}

// processElement records links and metadata carried by one element.
func processElement(n *html.Node, result *Extraction) {
	switch n.Data {
	case "a":
		if href, ok := getAttr(n, "href"); ok {
			result.Links = append(result.Links, href)
		}

	case "html":
		if lang, ok := getAttr(n, "lang"); ok {
			result.Meta.Language = strings.TrimSpace(lang)
		}

	case "title":
		if result.Meta.Title == "" && n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
			result.Meta.Title = strings.TrimSpace(n.FirstChild.Data)
		}

	case "meta":
		name, _ := getAttr(n, "name")
		if name == "" {
			name, _ = getAttr(n, "property") // OpenGraph
		}
		content, _ := getAttr(n, "content")
		if name == "" || content == "" {
			return
		}
		name = strings.ToLower(name)
		result.Meta.MetaTags[name] = content
		if name == "description" {
			result.Meta.Description = content
		}

	case "link":
		rel, _ := getAttr(n, "rel")
		if strings.EqualFold(strings.TrimSpace(rel), "canonical") {
			result.Meta.Canonical, _ = getAttr(n, "href")
		}
	}
}

// getAttr retrieves an attribute value from an HTML node.
func getAttr(n *html.Node, key string) (string, bool) {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val, true
		}
	}
	return "", false
}

var _ Extractor = (*HTMLExtractor)(nil)
