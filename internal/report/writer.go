package report

import (
	"io"
	"strings"

	"github.com/nao1215/contactscan/internal/model"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Writer defines the interface for report output.
type Writer interface {
	// Write outputs the results to the configured destination.
	// Returns the number of bytes written and any error encountered.
	Write(results []*model.SiteResult) (int, error)
}

// MultiWriter writes to multiple Writers in order.
// This is useful for outputting to both terminal and file.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the results to all configured Writers.
// Returns the total bytes written across all writers.
// Stops on first error encountered.
func (m *MultiWriter) Write(results []*model.SiteResult) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(results)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// platformTitle turns a platform key such as "twitter" or "github_pages"
// into a display name.
func platformTitle(platform string) string {
	// cases.Caser keeps state, so each call gets its own.
	caser := cases.Title(language.English)
	return caser.String(separators.Replace(platform))
}

var separators = strings.NewReplacer("_", " ", "-", " ")

// nonNil drops nil entries so writers can range without checks.
func nonNil(results []*model.SiteResult) []*model.SiteResult {
	out := make([]*model.SiteResult, 0, len(results))
	for _, r := range results {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}

// status describes how a crawl ended.
func status(r *model.SiteResult) string {
	switch {
	case r.Stats.Cancelled:
		return "cancelled (partial results)"
	case r.Stats.PagesFetched == 0 && r.Stats.FetchErrors > 0:
		return "unreachable"
	default:
		return "complete"
	}
}

// truncateString truncates a string to maxLen bytes with ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
