package report

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/nao1215/contactscan/internal/model"
)

// TextWriter outputs human-readable text reports for terminal display.
type TextWriter struct {
	baseWriter

	// verbose adds visited pages and their metadata to the output.
	verbose bool

	// showEmpty prints sections that have no entries.
	showEmpty bool
}

// TextWriterOption configures a TextWriter.
type TextWriterOption func(*TextWriter)

// WithVerbose enables verbose output with page metadata.
func WithVerbose(verbose bool) TextWriterOption {
	return func(w *TextWriter) {
		w.verbose = verbose
	}
}

// WithShowEmpty configures the writer to show empty sections.
func WithShowEmpty(show bool) TextWriterOption {
	return func(w *TextWriter) {
		w.showEmpty = show
	}
}

// NewTextWriter creates a TextWriter that outputs to the given writer.
func NewTextWriter(output io.Writer, opts ...TextWriterOption) *TextWriter {
	w := &TextWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs every site result in human-readable format.
func (w *TextWriter) Write(results []*model.SiteResult) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb)
	for _, r := range nonNil(results) {
		w.writeSite(&sb, r)
	}
	w.writeFooter(&sb, nonNil(results))

	return w.output.Write([]byte(sb.String()))
}

func (w *TextWriter) writeHeader(sb *strings.Builder) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                        CONTACTSCAN REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}

// writeSite writes one site's section.
func (w *TextWriter) writeSite(sb *strings.Builder, r *model.SiteResult) {
	sb.WriteString("\n")
	fmt.Fprintf(sb, "Site:          %s\n", r.URL)
	if !r.Stats.StartedAt.IsZero() {
		fmt.Fprintf(sb, "Scan Date:     %s\n", r.Stats.StartedAt.Format("2006-01-02 15:04:05 MST"))
	}
	fmt.Fprintf(sb, "Pages Fetched: %d (errors: %d)\n", r.Stats.PagesFetched, r.Stats.FetchErrors)
	fmt.Fprintf(sb, "Depth Reached: %d\n", r.Stats.Depth)
	fmt.Fprintf(sb, "Status:        %s\n", status(r))
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")

	w.writeEmails(sb, r)
	w.writePlatforms(sb, r)
	if w.verbose {
		w.writePages(sb, r)
	}
}

func (w *TextWriter) writeEmails(sb *strings.Builder, r *model.SiteResult) {
	if len(r.EmailList) == 0 {
		if w.showEmpty {
			sb.WriteString("\nEMAILS\n  (none)\n")
		}
		return
	}

	fmt.Fprintf(sb, "\nEMAILS (%d)\n", len(r.EmailList))
	for _, e := range r.EmailList {
		fmt.Fprintf(sb, "  %-40s %s\n", e.Address, e.URL)
	}
}

func (w *TextWriter) writePlatforms(sb *strings.Builder, r *model.SiteResult) {
	if len(r.PlatformData) == 0 {
		if w.showEmpty {
			sb.WriteString("\nPLATFORMS\n  (none)\n")
		}
		return
	}

	sb.WriteString("\nPLATFORMS\n")
	for _, platform := range r.PlatformData.Platforms() {
		fmt.Fprintf(sb, "  [%s]\n", platformTitle(platform))
		for _, source := range r.PlatformData.Sources(platform) {
			for _, match := range r.PlatformData.Matches(platform, source) {
				fields, _ := r.PlatformData.Get(platform, source, match)
				fmt.Fprintf(sb, "    %s: %s%s\n", source, match, formatFields(fields))
			}
		}
	}
}

// writePages lists every fetched page in visit order with its title.
func (w *TextWriter) writePages(sb *strings.Builder, r *model.SiteResult) {
	if len(r.Pages) == 0 {
		return
	}

	fmt.Fprintf(sb, "\nPAGES (%d)\n", len(r.Pages))
	for _, u := range r.Visited {
		meta, ok := r.Pages[u]
		if !ok {
			continue
		}
		fmt.Fprintf(sb, "  %s\n", u)
		if meta.Title != "" {
			fmt.Fprintf(sb, "    Title:       %s\n", meta.Title)
		}
		if meta.Description != "" {
			fmt.Fprintf(sb, "    Description: %s\n", truncateString(meta.Description, 80))
		}
		if meta.Language != "" {
			fmt.Fprintf(sb, "    Language:    %s\n", meta.Language)
		}
	}
}

func (w *TextWriter) writeFooter(sb *strings.Builder, results []*model.SiteResult) {
	emails := 0
	for _, r := range results {
		emails += r.EmailCount()
	}

	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	fmt.Fprintf(sb, "Sites: %d  Emails: %d\n", len(results), emails)
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}

// formatFields renders capture groups as " (k=v, k=v)" in key order.
func formatFields(fields model.Fields) string {
	if len(fields) == 0 {
		return ""
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + fields[k]
	}
	return " (" + strings.Join(parts, ", ") + ")"
}
