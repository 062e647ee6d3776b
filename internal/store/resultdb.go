package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/contactscan/internal/model"
)

// DBFileName is the name of the database file inside the data directory.
const DBFileName = "contactscan.db"

// timeLayout stores timestamps with a fixed width so that they sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

var (
	// ErrNotFound is returned when no stored result matches a query.
	ErrNotFound = errors.New("result not found")

	// ErrNilResult is returned when SaveResult is called with nil.
	ErrNilResult = errors.New("result is nil")
)

// ResultDB provides SQLite-based storage for site results.
type ResultDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures ResultDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a ResultDB in dbDir.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*ResultDB, error) {
	dbPath := filepath.Join(dbDir, DBFileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s: %w", dbPath, ErrNotFound)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else if err := os.MkdirAll(dbDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// mode=rw refuses to create a missing file, mode=rwc allows it.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	rdb := &ResultDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close() //nolint:errcheck // already failing
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := rdb.createTables(); err != nil {
		_ = db.Close() //nolint:errcheck // already failing
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return rdb, nil
}

// Path returns the database file path.
func (rdb *ResultDB) Path() string {
	return rdb.dbPath
}

// Close closes the database connection.
func (rdb *ResultDB) Close() error {
	return rdb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (rdb *ResultDB) createTables() error {
	schema := `
	-- One row per finished crawl of a seed URL
	CREATE TABLE IF NOT EXISTS site_results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		seed_url TEXT NOT NULL,
		finished_at TEXT NOT NULL,
		pages_fetched INTEGER NOT NULL DEFAULT 0,
		fetch_errors INTEGER NOT NULL DEFAULT 0,
		email_count INTEGER NOT NULL DEFAULT 0,
		result_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_results_seed ON site_results(seed_url);
	CREATE INDEX IF NOT EXISTS idx_results_finished ON site_results(finished_at);

	-- Emails of each stored result, for searching across runs
	CREATE TABLE IF NOT EXISTS emails (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		site_id INTEGER NOT NULL REFERENCES site_results(id) ON DELETE CASCADE,
		address TEXT NOT NULL,
		source_url TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_emails_address ON emails(address);
	CREATE INDEX IF NOT EXISTS idx_emails_site ON emails(site_id);
	`

	_, err := rdb.db.ExecContext(context.Background(), schema)
	return err
}

// SaveResult stores a finished site result and returns its ID.
func (rdb *ResultDB) SaveResult(ctx context.Context, result *model.SiteResult) (int64, error) {
	if result == nil {
		return 0, ErrNilResult
	}

	resultJSON, err := json.Marshal(result)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize result: %w", err)
	}

	finishedAt := result.Stats.FinishedAt
	if finishedAt.IsZero() {
		finishedAt = time.Now()
	}

	tx, err := rdb.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	res, err := tx.ExecContext(ctx, `
	INSERT INTO site_results (seed_url, finished_at, pages_fetched, fetch_errors, email_count, result_json)
	VALUES (?, ?, ?, ?, ?, ?)
	`,
		result.URL,
		finishedAt.UTC().Format(timeLayout),
		result.Stats.PagesFetched,
		result.Stats.FetchErrors,
		result.EmailCount(),
		string(resultJSON),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to save result: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get result id: %w", err)
	}

	for _, email := range result.EmailList {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO emails (site_id, address, source_url) VALUES (?, ?, ?)`,
			id, email.Address, email.URL,
		); err != nil {
			return 0, fmt.Errorf("failed to save email %s: %w", email.Address, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit result: %w", err)
	}
	return id, nil
}

// LatestResult returns the most recently finished result for seedURL.
func (rdb *ResultDB) LatestResult(ctx context.Context, seedURL string) (*model.SiteResult, error) {
	query := `
	SELECT result_json FROM site_results
	WHERE seed_url = ?
	ORDER BY finished_at DESC, id DESC
	LIMIT 1
	`
	return rdb.queryResult(ctx, query, seedURL)
}

// ResultByID returns a stored result by its database ID.
func (rdb *ResultDB) ResultByID(ctx context.Context, id int64) (*model.SiteResult, error) {
	return rdb.queryResult(ctx, `SELECT result_json FROM site_results WHERE id = ?`, id)
}

func (rdb *ResultDB) queryResult(ctx context.Context, query string, args ...any) (*model.SiteResult, error) {
	var resultJSON string
	err := rdb.db.QueryRowContext(ctx, query, args...).Scan(&resultJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get result: %w", err)
	}

	var result model.SiteResult
	if err := json.Unmarshal([]byte(resultJSON), &result); err != nil {
		return nil, fmt.Errorf("failed to parse result: %w", err)
	}
	return &result, nil
}

// ResultSummary describes a stored result without loading it.
type ResultSummary struct {
	// ID is the unique identifier of the result in the database.
	ID int64

	// SeedURL is the crawled seed.
	SeedURL string

	// FinishedAt is when the crawl finished.
	FinishedAt time.Time

	// PagesFetched is the number of pages fetched successfully.
	PagesFetched int

	// FetchErrors is the number of pages that failed.
	FetchErrors int

	// EmailCount is the number of distinct addresses found.
	EmailCount int
}

// ListResults returns summaries of stored results, newest first. An empty
// seedURL lists the results of every site.
func (rdb *ResultDB) ListResults(ctx context.Context, seedURL string) ([]ResultSummary, error) {
	var b strings.Builder
	b.WriteString(`SELECT id, seed_url, finished_at, pages_fetched, fetch_errors, email_count FROM site_results`)
	args := make([]any, 0, 1)
	if seedURL != "" {
		b.WriteString(` WHERE seed_url = ?`)
		args = append(args, seedURL)
	}
	b.WriteString(` ORDER BY finished_at DESC, id DESC`)

	rows, err := rdb.db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}
	defer rows.Close()

	var summaries []ResultSummary
	for rows.Next() {
		var s ResultSummary
		var finishedAt string
		if err := rows.Scan(&s.ID, &s.SeedURL, &finishedAt, &s.PagesFetched, &s.FetchErrors, &s.EmailCount); err != nil {
			return nil, fmt.Errorf("failed to scan result summary: %w", err)
		}
		s.FinishedAt = parseTimestamp(finishedAt)
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

// ListSites returns every seed URL with at least one stored result.
func (rdb *ResultDB) ListSites(ctx context.Context) ([]string, error) {
	rows, err := rdb.db.QueryContext(ctx, `SELECT DISTINCT seed_url FROM site_results ORDER BY seed_url`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sites: %w", err)
	}
	defer rows.Close()

	var sites []string
	for rows.Next() {
		var site string
		if err := rows.Scan(&site); err != nil {
			return nil, fmt.Errorf("failed to scan site: %w", err)
		}
		sites = append(sites, site)
	}
	return sites, rows.Err()
}

// EmailHit is one stored occurrence of an email address.
type EmailHit struct {
	// Address is the stored address.
	Address string

	// SourceURL is the page the address was first found on.
	SourceURL string

	// SeedURL is the site the address belongs to.
	SeedURL string

	// ResultID is the stored result containing the address.
	ResultID int64

	// FinishedAt is when that crawl finished.
	FinishedAt time.Time
}

// SearchEmail finds stored occurrences of address, newest first. The
// comparison ignores case.
func (rdb *ResultDB) SearchEmail(ctx context.Context, address string) ([]EmailHit, error) {
	query := `
	SELECT e.address, e.source_url, r.seed_url, r.id, r.finished_at
	FROM emails e
	JOIN site_results r ON r.id = e.site_id
	WHERE lower(e.address) = lower(?)
	ORDER BY r.finished_at DESC, r.id DESC
	`

	rows, err := rdb.db.QueryContext(ctx, query, strings.TrimSpace(address))
	if err != nil {
		return nil, fmt.Errorf("failed to search email: %w", err)
	}
	defer rows.Close()

	var hits []EmailHit
	for rows.Next() {
		var h EmailHit
		var finishedAt string
		if err := rows.Scan(&h.Address, &h.SourceURL, &h.SeedURL, &h.ResultID, &finishedAt); err != nil {
			return nil, fmt.Errorf("failed to scan email hit: %w", err)
		}
		h.FinishedAt = parseTimestamp(finishedAt)
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

// timestampFormats contains the timestamp formats that SQLite may return.
// More specific formats come first.
var timestampFormats = []string{
	timeLayout,
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999",
}

// parseTimestamp parses a stored timestamp, returning the zero time if no
// format matches.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
