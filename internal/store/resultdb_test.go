package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nao1215/contactscan/internal/model"
)

// setupTestDB creates a temporary database for testing.
func setupTestDB(t *testing.T) *ResultDB {
	t.Helper()

	db, err := Open(t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}

// newResult builds a finished result for seed with the given emails.
func newResult(seed string, finishedAt time.Time, emails ...string) *model.SiteResult {
	r := model.NewSiteResult(seed)
	r.AddVisited(seed)
	for _, e := range emails {
		r.AddEmail(e, seed+"/contact")
	}
	r.PlatformData.Set("twitter", "user", "https://twitter.com/acme", model.Fields{"username": "acme"})
	r.AddPage(seed, model.PageMeta{Title: "Acme"})
	r.Stats.PagesFetched = 3
	r.Stats.FetchErrors = 1
	r.Stats.StartedAt = finishedAt.Add(-time.Minute)
	r.Stats.FinishedAt = finishedAt
	return r
}

// TestOpen tests database opening and creation.
func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("creates database in new directory", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "newdir", "subdir")
		db, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		if _, err := os.Stat(filepath.Join(dbDir, DBFileName)); os.IsNotExist(err) {
			t.Error("database file was not created")
		}
		if db.Path() != filepath.Join(dbDir, DBFileName) {
			t.Errorf("unexpected path %q", db.Path())
		}
	})

	t.Run("CreateIfNotExists=false returns error when database does not exist", func(t *testing.T) {
		t.Parallel()

		_, err := Open(filepath.Join(t.TempDir(), "missing"), Options{CreateIfNotExists: false})
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("CreateIfNotExists=false opens existing database", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		db, err := Open(dir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to create database: %v", err)
		}
		_ = db.Close()

		db, err = Open(dir, Options{CreateIfNotExists: false, EnableWAL: true})
		if err != nil {
			t.Fatalf("failed to reopen database: %v", err)
		}
		_ = db.Close()
	})
}

func TestResultDB_SaveAndLoad(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := setupTestDB(t)

	finished := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	original := newResult("https://example.com", finished, "info@example.com", "jane@example.com")

	id, err := db.SaveResult(ctx, original)
	if err != nil {
		t.Fatalf("failed to save result: %v", err)
	}
	if id <= 0 {
		t.Errorf("expected positive id, got %d", id)
	}

	loaded, err := db.LatestResult(ctx, "https://example.com")
	if err != nil {
		t.Fatalf("failed to load result: %v", err)
	}
	if loaded.URL != original.URL {
		t.Errorf("expected URL %q, got %q", original.URL, loaded.URL)
	}
	if len(loaded.EmailList) != 2 || loaded.EmailList[0].Address != "info@example.com" {
		t.Errorf("unexpected email list %v", loaded.EmailList)
	}
	if loaded.Emails["jane@example.com"] != "https://example.com/contact" {
		t.Errorf("unexpected email source %q", loaded.Emails["jane@example.com"])
	}
	if fields, ok := loaded.PlatformData.Get("twitter", "user", "https://twitter.com/acme"); !ok || fields["username"] != "acme" {
		t.Errorf("unexpected platform data %v", loaded.PlatformData)
	}
	if loaded.Pages["https://example.com"].Title != "Acme" {
		t.Errorf("unexpected pages %v", loaded.Pages)
	}
	if !loaded.Stats.FinishedAt.Equal(finished) {
		t.Errorf("expected finished %v, got %v", finished, loaded.Stats.FinishedAt)
	}

	byID, err := db.ResultByID(ctx, id)
	if err != nil {
		t.Fatalf("failed to load by id: %v", err)
	}
	if byID.URL != original.URL {
		t.Errorf("unexpected result by id %q", byID.URL)
	}
}

func TestResultDB_NotFound(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := setupTestDB(t)

	if _, err := db.LatestResult(ctx, "https://nothing.example"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := db.ResultByID(ctx, 42); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := db.SaveResult(ctx, nil); !errors.Is(err, ErrNilResult) {
		t.Errorf("expected ErrNilResult, got %v", err)
	}
}

func TestResultDB_History(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := setupTestDB(t)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	saves := []*model.SiteResult{
		newResult("https://example.com", base, "old@example.com"),
		newResult("https://other.example", base.Add(time.Hour), "x@other.example"),
		newResult("https://example.com", base.Add(2*time.Hour), "new@example.com", "old@example.com"),
	}
	for _, r := range saves {
		if _, err := db.SaveResult(ctx, r); err != nil {
			t.Fatalf("failed to save result: %v", err)
		}
	}

	t.Run("latest result is the newest", func(t *testing.T) {
		latest, err := db.LatestResult(ctx, "https://example.com")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !latest.HasEmail("new@example.com") {
			t.Errorf("expected newest result, got %v", latest.Emails)
		}
	})

	t.Run("list results of one site", func(t *testing.T) {
		summaries, err := db.ListResults(ctx, "https://example.com")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(summaries) != 2 {
			t.Fatalf("expected 2 summaries, got %d", len(summaries))
		}
		if summaries[0].EmailCount != 2 || summaries[1].EmailCount != 1 {
			t.Errorf("expected newest first, got %+v", summaries)
		}
		if summaries[0].PagesFetched != 3 || summaries[0].FetchErrors != 1 {
			t.Errorf("unexpected counters %+v", summaries[0])
		}
		if !summaries[0].FinishedAt.Equal(base.Add(2 * time.Hour)) {
			t.Errorf("unexpected finished time %v", summaries[0].FinishedAt)
		}
	})

	t.Run("list all results", func(t *testing.T) {
		summaries, err := db.ListResults(ctx, "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(summaries) != 3 {
			t.Errorf("expected 3 summaries, got %d", len(summaries))
		}
	})

	t.Run("list sites", func(t *testing.T) {
		sites, err := db.ListSites(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(sites) != 2 || sites[0] != "https://example.com" || sites[1] != "https://other.example" {
			t.Errorf("unexpected sites %v", sites)
		}
	})

	t.Run("search email ignores case", func(t *testing.T) {
		hits, err := db.SearchEmail(ctx, "OLD@example.com")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(hits) != 2 {
			t.Fatalf("expected 2 hits, got %d", len(hits))
		}
		if hits[0].SeedURL != "https://example.com" || hits[0].SourceURL != "https://example.com/contact" {
			t.Errorf("unexpected hit %+v", hits[0])
		}
		if !hits[0].FinishedAt.After(hits[1].FinishedAt) {
			t.Error("expected newest hit first")
		}
	})

	t.Run("search unknown email", func(t *testing.T) {
		hits, err := db.SearchEmail(ctx, "nobody@example.com")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(hits) != 0 {
			t.Errorf("expected no hits, got %v", hits)
		}
	})
}

func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		zero bool
	}{
		{"2026-03-01T12:00:00.000000000Z", false},
		{"2026-03-01T12:00:00Z", false},
		{"2026-03-01 12:00:00", false},
		{"not a time", true},
	}
	for _, tt := range tests {
		if got := parseTimestamp(tt.in); got.IsZero() != tt.zero {
			t.Errorf("parseTimestamp(%q) = %v", tt.in, got)
		}
	}
}
