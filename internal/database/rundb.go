package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/ocrdlp/ocrdlp/internal/model"
)

// RunDB provides SQLite-based storage for download history and run reports.
// It manages connection pooling and provides methods for CRUD operations.
//
// Design decision: We use a single database file for all runs rather than
// one file per query. This lets cross-run queries (was this URL already
// downloaded?) stay cheap and keeps backup/restore a single-file affair.
type RunDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures RunDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent performance.
	// This is recommended for most use cases.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a RunDB at the specified directory.
// If CreateIfNotExists is true, the directory and database file are created.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*RunDB, error) {
	dbPath := filepath.Join(dbDir, "ocrdlp.db")

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// modernc.org/sqlite connection string: mode=rw prevents creating new
	// files, mode=rwc allows creation.
	var dsn string
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	} else {
		dsn = dbPath + "?mode=rw"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer; a single connection avoids
	// SQLITE_BUSY under concurrent writes.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	rdb := &RunDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := rdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return rdb, nil
}

// Close closes the database connection.
func (rdb *RunDB) Close() error {
	return rdb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (rdb *RunDB) createTables() error {
	schema := `
	-- Download records store individual image fetches across all runs
	CREATE TABLE IF NOT EXISTS downloads (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		source_url TEXT NOT NULL,
		local_path TEXT NOT NULL,
		run_id TEXT NOT NULL,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
		size_bytes INTEGER,
		content_type TEXT,
		UNIQUE(source_url, run_id)
	);

	CREATE INDEX IF NOT EXISTS idx_downloads_url ON downloads(source_url);
	CREATE INDEX IF NOT EXISTS idx_downloads_run ON downloads(run_id);
	CREATE INDEX IF NOT EXISTS idx_downloads_timestamp ON downloads(timestamp);

	-- Run reports store complete run results as JSON
	CREATE TABLE IF NOT EXISTS run_reports (
		id TEXT PRIMARY KEY,
		query TEXT NOT NULL,
		engine TEXT NOT NULL,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
		report_json TEXT NOT NULL,
		count_summary TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_reports_query ON run_reports(query);
	CREATE INDEX IF NOT EXISTS idx_reports_timestamp ON run_reports(timestamp);
	`

	_, err := rdb.db.ExecContext(context.Background(), schema)
	return err
}

// InsertDownloadRecord inserts or updates a download record for a run.
// Uses UPSERT to handle duplicates (same URL + run).
func (rdb *RunDB) InsertDownloadRecord(ctx context.Context, runID string, record *model.DownloadRecord) (int64, error) {
	query := `
	INSERT INTO downloads (source_url, local_path, run_id, size_bytes, content_type)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(source_url, run_id) DO UPDATE SET
		local_path = excluded.local_path,
		size_bytes = excluded.size_bytes,
		content_type = excluded.content_type,
		timestamp = CURRENT_TIMESTAMP
	`

	result, err := rdb.db.ExecContext(ctx, query,
		record.SourceURL,
		record.LocalPath,
		runID,
		record.SizeBytes,
		record.ContentType,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert download record: %w", err)
	}

	return result.LastInsertId()
}

// HasRecentDownload checks if a URL was downloaded within the specified
// duration, in any run.
func (rdb *RunDB) HasRecentDownload(ctx context.Context, url string, duration time.Duration) (bool, error) {
	query := `
	SELECT COUNT(*) FROM downloads
	WHERE source_url = ? AND timestamp > datetime('now', ?)
	`

	// SQLite datetime modifier format
	modifier := fmt.Sprintf("-%d seconds", int(duration.Seconds()))

	var count int
	err := rdb.db.QueryRowContext(ctx, query, url, modifier).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check recent download: %w", err)
	}

	return count > 0, nil
}

// SaveRunReport saves a complete run report as JSON, along with its
// download records.
func (rdb *RunDB) SaveRunReport(ctx context.Context, report *model.RunReport) error {
	if report.Error != nil && report.ErrorMessage == "" {
		report.ErrorMessage = report.Error.Error()
	}

	reportJSON, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to serialize report: %w", err)
	}

	countSummary := map[string]int{
		"urls":       report.URLCount(),
		"downloads":  report.DownloadCount(),
		"classified": len(report.Records),
		"valid":      0,
		"invalid":    0,
	}
	if report.Summary != nil {
		countSummary["valid"] = report.Summary.ValidCount
		countSummary["invalid"] = report.Summary.InvalidCount
	}
	countJSON, _ := json.Marshal(countSummary) //nolint:errcheck,errchkjson // countSummary is a simple map; Marshal won't fail

	query := `
	INSERT INTO run_reports (id, query, engine, report_json, count_summary)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		report_json = excluded.report_json,
		count_summary = excluded.count_summary,
		timestamp = CURRENT_TIMESTAMP
	`

	_, err = rdb.db.ExecContext(ctx, query,
		report.ID,
		report.Query,
		report.Engine,
		string(reportJSON),
		string(countJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to save run report: %w", err)
	}

	for i := range report.Downloads {
		if _, err := rdb.InsertDownloadRecord(ctx, report.ID, &report.Downloads[i]); err != nil {
			return err
		}
	}

	return nil
}

// GetLatestRunReport retrieves the most recent run report for a query.
// Returns nil without error when the query has no recorded run.
func (rdb *RunDB) GetLatestRunReport(ctx context.Context, searchQuery string) (*model.RunReport, error) {
	query := `
	SELECT report_json FROM run_reports
	WHERE query = ?
	ORDER BY timestamp DESC
	LIMIT 1
	`

	var reportJSON string
	err := rdb.db.QueryRowContext(ctx, query, searchQuery).Scan(&reportJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run report: %w", err)
	}

	var report model.RunReport
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}

	return &report, nil
}

// GetRunReportByID retrieves a run report by its run ID.
// Returns nil without error when no such run exists.
func (rdb *RunDB) GetRunReportByID(ctx context.Context, id string) (*model.RunReport, error) {
	query := `
	SELECT report_json FROM run_reports
	WHERE id = ?
	`

	var reportJSON string
	err := rdb.db.QueryRowContext(ctx, query, id).Scan(&reportJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run report: %w", err)
	}

	var report model.RunReport
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}

	return &report, nil
}

// ListQueries returns all distinct queries with recorded runs.
func (rdb *RunDB) ListQueries(ctx context.Context) ([]string, error) {
	query := `
	SELECT DISTINCT query FROM run_reports
	ORDER BY query
	`

	rows, err := rdb.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list queries: %w", err)
	}
	defer rows.Close()

	var queries []string
	for rows.Next() {
		var q string
		if err := rows.Scan(&q); err != nil {
			return nil, fmt.Errorf("failed to scan query: %w", err)
		}
		queries = append(queries, q)
	}

	return queries, rows.Err()
}

// RunReportMetadata contains summary information about a stored run.
// This is used for displaying run history without loading the full report.
type RunReportMetadata struct {
	// ID is the run identifier.
	ID string

	// Query is the search query of the run.
	Query string

	// Engine is the search engine used.
	Engine string

	// Timestamp is when the run was stored.
	Timestamp time.Time

	// CountSummary contains per-stage counts (urls, downloads, classified,
	// valid, invalid).
	CountSummary map[string]int
}

// GetRunHistory retrieves run metadata for a query, newest first.
// This is more efficient than loading full reports when only metadata is needed.
func (rdb *RunDB) GetRunHistory(ctx context.Context, searchQuery string) ([]RunReportMetadata, error) {
	query := `
	SELECT id, query, engine, timestamp, count_summary
	FROM run_reports
	WHERE query = ?
	ORDER BY timestamp DESC
	`

	rows, err := rdb.db.QueryContext(ctx, query, searchQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to get run history: %w", err)
	}
	defer rows.Close()

	var results []RunReportMetadata
	for rows.Next() {
		var meta RunReportMetadata
		var timestamp string
		var countJSON sql.NullString

		if err := rows.Scan(&meta.ID, &meta.Query, &meta.Engine, &timestamp, &countJSON); err != nil {
			return nil, fmt.Errorf("failed to scan metadata: %w", err)
		}

		meta.Timestamp = parseTimestamp(timestamp)

		if countJSON.Valid && countJSON.String != "" {
			if err := json.Unmarshal([]byte(countJSON.String), &meta.CountSummary); err != nil {
				meta.CountSummary = make(map[string]int)
			}
		} else {
			meta.CountSummary = make(map[string]int)
		}

		results = append(results, meta)
	}

	return results, rows.Err()
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	"2006-01-02 15:04:05",     // SQLite default datetime format
	"2006-01-02T15:04:05Z",    // ISO 8601 with Z suffix
	"2006-01-02T15:04:05",     // ISO 8601 without timezone
	time.RFC3339,              // Full RFC3339 format
	time.RFC3339Nano,          // RFC3339 with nanoseconds
	"2006-01-02 15:04:05.999", // SQLite with milliseconds
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// SQLite may return timestamps in different formats depending on configuration.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
