package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/nao1215/contactscan/internal/config"
	"github.com/nao1215/contactscan/internal/model"
	"github.com/nao1215/contactscan/internal/report"
	"github.com/nao1215/contactscan/internal/store"
	"github.com/spf13/cobra"
)

// NewHistoryCmd creates the history command.
// This command reads results saved by 'contactscan scan --save'.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [url]",
		Short: "Show results saved by previous scans",
		Long: `History reads the results stored with 'contactscan scan --save'.

Without arguments it lists every stored crawl. With a seed URL it lists the
crawls of that site, and --show prints the most recent one as a report.

Examples:
  # List all stored crawls
  contactscan history

  # List the crawls of one site
  contactscan history https://example.com

  # Print the latest crawl of a site as Markdown
  contactscan history --show -m https://example.com

  # Find where an address was seen
  contactscan history --email info@example.com

  # List all sites in the database
  contactscan history --list-sites`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().Bool("show", false,
		"Print the latest stored result of the given site as a report")
	cmd.Flags().Int64("id", 0,
		"Print the stored result with this ID as a report")
	cmd.Flags().StringP("email", "e", "",
		"Search stored results for an email address")
	cmd.Flags().BoolP("list-sites", "L", false,
		"List all sites in the database")
	cmd.Flags().BoolP("json", "j", false,
		"Print reports in JSON format")
	cmd.Flags().BoolP("markdown", "m", false,
		"Print reports in Markdown format")
	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Directory of the history database")

	return cmd
}

// historyOptions holds the parsed flags of the history command.
type historyOptions struct {
	site      string
	show      bool
	id        int64
	email     string
	listSites bool
	json      bool
	markdown  bool
	dbDir     string
}

func parseHistoryOptions(cmd *cobra.Command, args []string) (historyOptions, error) {
	var (
		opts historyOptions
		err  error
	)
	flags := cmd.Flags()

	if opts.show, err = flags.GetBool("show"); err != nil {
		return opts, err
	}
	if opts.id, err = flags.GetInt64("id"); err != nil {
		return opts, err
	}
	if opts.email, err = flags.GetString("email"); err != nil {
		return opts, err
	}
	if opts.listSites, err = flags.GetBool("list-sites"); err != nil {
		return opts, err
	}
	if opts.json, err = flags.GetBool("json"); err != nil {
		return opts, err
	}
	if opts.markdown, err = flags.GetBool("markdown"); err != nil {
		return opts, err
	}
	if opts.dbDir, err = flags.GetString("db-dir"); err != nil {
		return opts, err
	}
	if len(args) > 0 {
		opts.site = args[0]
	}

	// Validate before opening the database so bad flags never create it.
	if opts.json && opts.markdown {
		return opts, config.ErrConflictingReportFormats
	}
	if opts.show && opts.site == "" {
		return opts, errors.New("--show requires a site URL")
	}
	return opts, nil
}

func runHistoryCmd(cmd *cobra.Command, args []string) error {
	opts, err := parseHistoryOptions(cmd, args)
	if err != nil {
		return err
	}

	db, err := store.Open(opts.dbDir, store.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := commandContext(cmd)
	out := cmd.OutOrStdout()

	switch {
	case opts.listSites:
		sites, err := db.ListSites(ctx)
		if err != nil {
			return err
		}
		printSites(out, sites)
		return nil

	case opts.email != "":
		hits, err := db.SearchEmail(ctx, opts.email)
		if err != nil {
			return err
		}
		printEmailHits(out, opts.email, hits)
		return nil

	case opts.id != 0:
		result, err := db.ResultByID(ctx, opts.id)
		if err != nil {
			return fmt.Errorf("result %d: %w", opts.id, err)
		}
		return writeHistoryReport(out, opts, result)

	case opts.show:
		result, err := db.LatestResult(ctx, opts.site)
		if err != nil {
			return fmt.Errorf("%s: %w", opts.site, err)
		}
		return writeHistoryReport(out, opts, result)

	default:
		summaries, err := db.ListResults(ctx, opts.site)
		if err != nil {
			return err
		}
		printSummaries(out, opts.site, summaries)
		return nil
	}
}

func writeHistoryReport(out io.Writer, opts historyOptions, result *model.SiteResult) error {
	var w report.Writer
	switch {
	case opts.json:
		w = report.NewJSONWriter(out, report.WithPrettyPrint())
	case opts.markdown:
		w = report.NewMarkdownWriter(out)
	default:
		w = report.NewTextWriter(out)
	}
	_, err := w.Write([]*model.SiteResult{result})
	return err
}

func printSites(out io.Writer, sites []string) {
	if len(sites) == 0 {
		fmt.Fprintln(out, "No sites in the database.")
		return
	}

	fmt.Fprintf(out, "Crawled sites (%d):\n\n", len(sites))
	for _, site := range sites {
		fmt.Fprintf(out, "  • %s\n", site)
	}
}

func printSummaries(out io.Writer, site string, summaries []store.ResultSummary) {
	if len(summaries) == 0 {
		if site == "" {
			fmt.Fprintln(out, "No stored results.")
		} else {
			fmt.Fprintf(out, "No stored results for %s\n", site)
		}
		return
	}

	if site == "" {
		fmt.Fprintf(out, "Stored results (%d):\n\n", len(summaries))
	} else {
		fmt.Fprintf(out, "Stored results for %s (%d):\n\n", site, len(summaries))
	}
	fmt.Fprintf(out, "  %-6s  %-20s  %-6s  %-6s  %-6s  %s\n", "ID", "Finished", "Pages", "Errors", "Emails", "Site")
	for _, s := range summaries {
		fmt.Fprintf(out, "  %-6d  %-20s  %-6d  %-6d  %-6d  %s\n",
			s.ID,
			s.FinishedAt.Local().Format("2006-01-02 15:04:05"),
			s.PagesFetched,
			s.FetchErrors,
			s.EmailCount,
			s.SeedURL,
		)
	}
}

func printEmailHits(out io.Writer, address string, hits []store.EmailHit) {
	if len(hits) == 0 {
		fmt.Fprintf(out, "%s was not found in stored results\n", address)
		return
	}

	fmt.Fprintf(out, "%s found in %d stored result(s):\n\n", address, len(hits))
	for _, h := range hits {
		fmt.Fprintf(out, "  [%d] %s  %s\n", h.ResultID, h.FinishedAt.Local().Format("2006-01-02 15:04:05"), h.SeedURL)
		fmt.Fprintf(out, "       first seen on %s\n", h.SourceURL)
	}
}
