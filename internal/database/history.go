package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/cannibalscan/internal/model"
)

// FileName is the name of the database file inside the data directory.
const FileName = "cannibalscan.db"

// ErrNotFound is returned when no stored analysis matches the query.
var ErrNotFound = errors.New("analysis not found")

// Analysis sources.
const (
	SourceCSV           = "csv"
	SourceSearchConsole = "search-console"
	SourceImport        = "import"
)

// HistoryDB stores fetched analyses in SQLite.
type HistoryDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures HistoryDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent performance.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a HistoryDB in the given directory.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*HistoryDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

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

	// mode=rw refuses to create a missing file.
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

	hdb := &HistoryDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := hdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return hdb, nil
}

// Path returns the database file path.
func (hdb *HistoryDB) Path() string {
	return hdb.dbPath
}

// Close closes the database connection.
func (hdb *HistoryDB) Close() error {
	return hdb.db.Close()
}

func (hdb *HistoryDB) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS analyses (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		source TEXT NOT NULL,
		site TEXT NOT NULL DEFAULT '',
		timestamp DATETIME NOT NULL,
		similarity_threshold REAL NOT NULL,
		group_count INTEGER NOT NULL,
		total_keywords INTEGER NOT NULL DEFAULT 0,
		cannibalization_count INTEGER NOT NULL DEFAULT 0,
		analysis_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_analyses_site ON analyses(site);
	CREATE INDEX IF NOT EXISTS idx_analyses_timestamp ON analyses(timestamp);
	`

	_, err := hdb.db.ExecContext(context.Background(), schema)
	return err
}

// AnalysisRecord is the summary of a stored analysis.
// It is used for displaying history without loading the full analysis.
type AnalysisRecord struct {
	// ID is the unique identifier of the analysis in the database.
	ID int64

	// Source is one of SourceCSV, SourceSearchConsole or SourceImport.
	Source string

	// Site is the Search Console property, or the CSV file name.
	Site string

	// Timestamp is when the analysis was fetched.
	Timestamp time.Time

	// Threshold is the similarity threshold of the analysis.
	Threshold float64

	// GroupCount is the number of keyword groups returned by the backend.
	GroupCount int

	// TotalKeywords and CannibalizationCount come from the analysis stats, when present.
	TotalKeywords        int
	CannibalizationCount int
}

// SaveAnalysis stores an analysis and returns its ID.
// A zero timestamp is replaced by the current time.
func (hdb *HistoryDB) SaveAnalysis(ctx context.Context, source, site string, at time.Time, analysis *model.AnalysisReport) (int64, error) {
	if analysis == nil {
		return 0, errors.New("cannot save a nil analysis")
	}

	analysisJSON, err := json.Marshal(analysis)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize analysis: %w", err)
	}

	if at.IsZero() {
		at = time.Now()
	}

	var total, cannibalized int
	if analysis.Stats != nil {
		total = analysis.Stats.TotalKeywords
		cannibalized = analysis.Stats.CannibalizationCount
	}

	query := `
	INSERT INTO analyses (source, site, timestamp, similarity_threshold, group_count,
		total_keywords, cannibalization_count, analysis_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := hdb.db.ExecContext(ctx, query,
		source,
		site,
		at.UTC().Format(timestampFormats[0]),
		analysis.Threshold(),
		len(analysis.Groups),
		total,
		cannibalized,
		string(analysisJSON),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to save analysis: %w", err)
	}

	return result.LastInsertId()
}

// ListAnalyses returns the stored analyses, newest first.
// An empty site lists every site.
func (hdb *HistoryDB) ListAnalyses(ctx context.Context, site string, limit int) ([]AnalysisRecord, error) {
	query := `
	SELECT id, source, site, timestamp, similarity_threshold, group_count,
		total_keywords, cannibalization_count
	FROM analyses
	WHERE 1=1
	`
	args := make([]any, 0, 2)

	if site != "" {
		query += " AND site = ?"
		args = append(args, site)
	}

	query += " ORDER BY timestamp DESC, id DESC"

	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := hdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list analyses: %w", err)
	}
	defer rows.Close()

	var records []AnalysisRecord
	for rows.Next() {
		var rec AnalysisRecord
		var timestamp string

		err := rows.Scan(
			&rec.ID,
			&rec.Source,
			&rec.Site,
			&timestamp,
			&rec.Threshold,
			&rec.GroupCount,
			&rec.TotalKeywords,
			&rec.CannibalizationCount,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan analysis: %w", err)
		}

		rec.Timestamp = parseTimestamp(timestamp)
		records = append(records, rec)
	}

	return records, rows.Err()
}

// GetAnalysis retrieves an analysis by its database ID.
func (hdb *HistoryDB) GetAnalysis(ctx context.Context, id int64) (*model.AnalysisReport, error) {
	query := `SELECT analysis_json FROM analyses WHERE id = ?`
	return hdb.queryAnalysis(ctx, query, id)
}

// Latest retrieves the most recent analysis. An empty site matches any site.
func (hdb *HistoryDB) Latest(ctx context.Context, site string) (*model.AnalysisReport, error) {
	query := `SELECT analysis_json FROM analyses`
	args := make([]any, 0, 1)
	if site != "" {
		query += " WHERE site = ?"
		args = append(args, site)
	}
	query += " ORDER BY timestamp DESC, id DESC LIMIT 1"
	return hdb.queryAnalysis(ctx, query, args...)
}

// DeleteAnalysis removes a stored analysis.
func (hdb *HistoryDB) DeleteAnalysis(ctx context.Context, id int64) error {
	result, err := hdb.db.ExecContext(ctx, `DELETE FROM analyses WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete analysis: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete analysis: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	return nil
}

func (hdb *HistoryDB) queryAnalysis(ctx context.Context, query string, args ...any) (*model.AnalysisReport, error) {
	var analysisJSON string
	err := hdb.db.QueryRowContext(ctx, query, args...).Scan(&analysisJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get analysis: %w", err)
	}

	var analysis model.AnalysisReport
	if err := json.Unmarshal([]byte(analysisJSON), &analysis); err != nil {
		return nil, fmt.Errorf("failed to parse analysis: %w", err)
	}

	return &analysis, nil
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The first one is also the format written by SaveAnalysis.
var timestampFormats = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05",
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999",
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
