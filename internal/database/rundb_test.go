package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/ocrdlp/ocrdlp/internal/model"
)

// openTestDB creates a RunDB in a temporary directory.
func openTestDB(t *testing.T) *RunDB {
	t.Helper()

	rdb, err := Open(t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() {
		if err := rdb.Close(); err != nil {
			t.Errorf("failed to close database: %v", err)
		}
	})
	return rdb
}

// createTestRunReport builds a run report with downloads and a summary.
func createTestRunReport(query string) *model.RunReport {
	report := model.NewRunReport(query, "serper")
	report.URLs = []string{"https://example.com/a.jpg", "https://example.com/b.jpg"}
	report.Downloads = []model.DownloadRecord{
		{SourceURL: report.URLs[0], LocalPath: "dataset/image_000001.jpg", SizeBytes: 1024, ContentType: "image/jpeg"},
		{SourceURL: report.URLs[1], LocalPath: "dataset/image_000002.jpg", SizeBytes: 2048, ContentType: "image/png"},
	}
	report.Records = []model.ClassificationRecord{
		{DocumentCategory: "invoice"},
	}
	report.Summary = &model.ValidationSummary{
		TotalRecords: 1,
		ValidCount:   1,
	}
	report.Finish()
	return report
}

func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("creates database with default options", func(t *testing.T) {
		t.Parallel()
		openTestDB(t)
	})

	t.Run("fails when database missing and creation disabled", func(t *testing.T) {
		t.Parallel()

		opts := Options{CreateIfNotExists: false}
		if _, err := Open(filepath.Join(t.TempDir(), "nodir"), opts); err == nil {
			t.Fatal("expected error opening nonexistent database without create option")
		}
	})
}

func TestSaveRunReport(t *testing.T) {
	t.Parallel()

	t.Run("round-trips a run report", func(t *testing.T) {
		t.Parallel()

		rdb := openTestDB(t)
		ctx := context.Background()
		report := createTestRunReport("invoice documents")

		if err := rdb.SaveRunReport(ctx, report); err != nil {
			t.Fatalf("failed to save report: %v", err)
		}

		got, err := rdb.GetRunReportByID(ctx, report.ID)
		if err != nil {
			t.Fatalf("failed to get report: %v", err)
		}
		if got == nil {
			t.Fatal("expected report, got nil")
		}
		if got.Query != "invoice documents" {
			t.Errorf("query = %q, want %q", got.Query, "invoice documents")
		}
		if got.DownloadCount() != 2 {
			t.Errorf("download count = %d, want 2", got.DownloadCount())
		}
		if got.Summary == nil || got.Summary.ValidCount != 1 {
			t.Error("expected summary with valid count 1")
		}
	})

	t.Run("saving the same run twice updates in place", func(t *testing.T) {
		t.Parallel()

		rdb := openTestDB(t)
		ctx := context.Background()
		report := createTestRunReport("receipt photos")

		if err := rdb.SaveRunReport(ctx, report); err != nil {
			t.Fatalf("failed to save report: %v", err)
		}

		report.Records = append(report.Records, model.ClassificationRecord{DocumentCategory: "receipt"})
		if err := rdb.SaveRunReport(ctx, report); err != nil {
			t.Fatalf("failed to re-save report: %v", err)
		}

		history, err := rdb.GetRunHistory(ctx, "receipt photos")
		if err != nil {
			t.Fatalf("failed to get history: %v", err)
		}
		if len(history) != 1 {
			t.Fatalf("history has %d entries, want 1", len(history))
		}
		if history[0].CountSummary["classified"] != 2 {
			t.Errorf("classified count = %d, want 2", history[0].CountSummary["classified"])
		}
	})

	t.Run("missing run returns nil without error", func(t *testing.T) {
		t.Parallel()

		rdb := openTestDB(t)

		got, err := rdb.GetRunReportByID(context.Background(), "no-such-run")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != nil {
			t.Error("expected nil report for unknown run ID")
		}
	})
}

func TestGetLatestRunReport(t *testing.T) {
	t.Parallel()

	t.Run("returns the newest run for a query", func(t *testing.T) {
		t.Parallel()

		rdb := openTestDB(t)
		ctx := context.Background()

		first := createTestRunReport("passport scans")
		if err := rdb.SaveRunReport(ctx, first); err != nil {
			t.Fatal(err)
		}

		second := createTestRunReport("passport scans")
		second.Engine = "unsplash"
		if err := rdb.SaveRunReport(ctx, second); err != nil {
			t.Fatal(err)
		}

		got, err := rdb.GetLatestRunReport(ctx, "passport scans")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got == nil {
			t.Fatal("expected report, got nil")
		}
		// Both runs are stored within the same second; either ID is the
		// latest, but it must be one of the two saved runs.
		if got.ID != first.ID && got.ID != second.ID {
			t.Errorf("unexpected run ID %q", got.ID)
		}
	})

	t.Run("returns nil for an unknown query", func(t *testing.T) {
		t.Parallel()

		rdb := openTestDB(t)

		got, err := rdb.GetLatestRunReport(context.Background(), "never ran")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != nil {
			t.Error("expected nil report for unknown query")
		}
	})
}

func TestListQueries(t *testing.T) {
	t.Parallel()

	rdb := openTestDB(t)
	ctx := context.Background()

	for _, q := range []string{"bank cards", "aadhaar cards", "bank cards"} {
		report := createTestRunReport(q)
		if err := rdb.SaveRunReport(ctx, report); err != nil {
			t.Fatal(err)
		}
	}

	queries, err := rdb.ListQueries(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(queries) != 2 {
		t.Fatalf("got %d queries, want 2: %v", len(queries), queries)
	}
	if queries[0] != "aadhaar cards" || queries[1] != "bank cards" {
		t.Errorf("queries = %v, want sorted [aadhaar cards, bank cards]", queries)
	}
}

func TestHasRecentDownload(t *testing.T) {
	t.Parallel()

	rdb := openTestDB(t)
	ctx := context.Background()

	record := &model.DownloadRecord{
		SourceURL:   "https://example.com/recent.jpg",
		LocalPath:   "dataset/image_000001.jpg",
		SizeBytes:   512,
		ContentType: "image/jpeg",
	}
	if _, err := rdb.InsertDownloadRecord(ctx, "run-1", record); err != nil {
		t.Fatalf("failed to insert download: %v", err)
	}

	recent, err := rdb.HasRecentDownload(ctx, record.SourceURL, time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !recent {
		t.Error("expected download inserted just now to count as recent")
	}

	recent, err = rdb.HasRecentDownload(ctx, "https://example.com/never.jpg", time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if recent {
		t.Error("expected unknown URL to not count as recent")
	}
}

func TestGetRunHistory(t *testing.T) {
	t.Parallel()

	rdb := openTestDB(t)
	ctx := context.Background()

	report := createTestRunReport("driving licences")
	if err := rdb.SaveRunReport(ctx, report); err != nil {
		t.Fatal(err)
	}

	history, err := rdb.GetRunHistory(ctx, "driving licences")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("history has %d entries, want 1", len(history))
	}

	meta := history[0]
	if meta.ID != report.ID {
		t.Errorf("metadata ID = %q, want %q", meta.ID, report.ID)
	}
	if meta.Engine != "serper" {
		t.Errorf("metadata engine = %q, want %q", meta.Engine, "serper")
	}
	if meta.CountSummary["urls"] != 2 {
		t.Errorf("url count = %d, want 2", meta.CountSummary["urls"])
	}
	if meta.CountSummary["valid"] != 1 {
		t.Errorf("valid count = %d, want 1", meta.CountSummary["valid"])
	}
	if meta.Timestamp.IsZero() {
		t.Error("metadata timestamp should parse")
	}
}
