package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/nao1215/contactscan/internal/model"
	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
)

// MarkdownWriter outputs results as a Markdown document for sharing.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs all results in Markdown format.
func (w *MarkdownWriter) Write(results []*model.SiteResult) (int, error) {
	results = nonNil(results)
	md := markdown.NewMarkdown(w.output)

	md.H1("Contactscan Report")
	md.PlainText("")

	w.writeSummary(md, results)
	for _, r := range results {
		w.writeSite(md, r)
	}
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeSummary writes one table row per site and an overall alert.
func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, results []*model.SiteResult) {
	md.H2("Summary")
	md.PlainText("")

	if len(results) == 0 {
		md.Note("No sites were crawled.")
		md.PlainText("")
		return
	}

	rows := make([][]string, 0, len(results))
	emails := 0
	for _, r := range results {
		emails += r.EmailCount()
		rows = append(rows, []string{
			"`" + r.URL + "`",
			strconv.Itoa(r.Stats.PagesFetched),
			strconv.Itoa(r.Stats.FetchErrors),
			strconv.Itoa(r.EmailCount()),
			strconv.Itoa(r.PlatformData.MatchCount()),
			status(r),
		})
	}

	md.Table(markdown.TableSet{
		Header: []string{"Site", "Pages", "Fetch Errors", "Emails", "Platform Matches", "Status"},
		Rows:   rows,
	})
	md.PlainText("")

	if emails == 0 {
		md.Note("No email addresses were found.")
	} else {
		md.Tip(fmt.Sprintf("%d email address(es) found across %d site(s).", emails, len(results)))
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writeSite(md *markdown.Markdown, r *model.SiteResult) {
	md.H2(r.URL)
	md.PlainText("")

	if r.Stats.Cancelled {
		md.Warningf("Crawl was cancelled after %d layer(s); results are partial.", r.Stats.Depth)
		md.PlainText("")
	}

	w.writeEmails(md, r)
	w.writePlatforms(md, r)
}

func (w *MarkdownWriter) writeEmails(md *markdown.Markdown, r *model.SiteResult) {
	md.H3("Emails")
	md.PlainText("")

	if len(r.EmailList) == 0 {
		md.PlainText("No email addresses found.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(r.EmailList))
	for i, e := range r.EmailList {
		rows[i] = []string{e.Address, truncateString(e.URL, 60)}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Address", "First Seen On"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writePlatforms writes a pie chart of matches per platform followed by a
// table per platform.
func (w *MarkdownWriter) writePlatforms(md *markdown.Markdown, r *model.SiteResult) {
	md.H3("Platforms")
	md.PlainText("")

	platforms := r.PlatformData.Platforms()
	if len(platforms) == 0 {
		md.PlainText("No platform identifiers found.")
		md.PlainText("")
		return
	}

	if len(platforms) > 1 {
		w.writePieChart(md, r.PlatformData)
	}

	for _, platform := range platforms {
		md.PlainTextf("**%s**", platformTitle(platform))
		md.PlainText("")

		var rows [][]string
		for _, source := range r.PlatformData.Sources(platform) {
			for _, match := range r.PlatformData.Matches(platform, source) {
				fields, _ := r.PlatformData.Get(platform, source, match)
				value := formatFields(fields)
				if value == "" {
					value = "-"
				}
				rows = append(rows, []string{source, truncateString(match, 60), value})
			}
		}
		md.Table(markdown.TableSet{
			Header: []string{"Source", "Match", "Fields"},
			Rows:   rows,
		})
		md.PlainText("")
	}
}

// writePieChart writes a mermaid pie chart of matches per platform.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, data model.PlatformData) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Platform Matches"),
		piechart.WithShowData(true),
	)

	for _, platform := range data.Platforms() {
		n := 0
		for _, source := range data.Sources(platform) {
			n += len(data[platform][source])
		}
		if n > 0 {
			chart.LabelAndIntValue(platformTitle(platform), uint64(n))
		}
	}

	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainText("*Report generated by [contactscan](https://github.com/nao1215/contactscan)*")
}
