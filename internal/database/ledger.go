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

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/thlarsen/sitemirror/internal/model"
)

// FileName is the name of the database file inside the data directory.
const FileName = "sitemirror.db"

// ErrRunNotFound is returned when no run matches the requested ID.
var ErrRunNotFound = errors.New("run not found")

// Ledger provides SQLite-based storage for localize runs and the outcome
// of every asset they touched.
//
// The ledger is a record, not a cache: whether an asset is downloaded is
// decided by the presence of its file on disk alone.
type Ledger struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures Ledger behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging, so the history command can
	// read while a run is writing.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a Ledger in dbDir.
// If CreateIfNotExists is true, the directory and database file are created.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*Ledger, error) {
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

	l := &Ledger{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := l.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return l, nil
}

// Close closes the database connection.
func (l *Ledger) Close() error {
	return l.db.Close()
}

// Path returns the database file path.
func (l *Ledger) Path() string {
	return l.dbPath
}

// createTables creates the database schema if it doesn't exist.
func (l *Ledger) createTables() error {
	schema := `
	-- One row per localize run
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		root TEXT NOT NULL,
		matcher TEXT NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT,
		summary_json TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);

	-- One row per asset localization attempt
	CREATE TABLE IF NOT EXISTS assets (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL REFERENCES runs(id),
		url TEXT NOT NULL,
		filename TEXT,
		kind TEXT NOT NULL,
		page TEXT NOT NULL,
		bytes INTEGER DEFAULT 0,
		cached INTEGER DEFAULT 0,
		error TEXT,
		timestamp TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_assets_run ON assets(run_id);
	CREATE INDEX IF NOT EXISTS idx_assets_url ON assets(url);
	`

	_, err := l.db.ExecContext(context.Background(), schema)
	return err
}

// RunRecord is a stored run without its assets.
type RunRecord struct {
	ID         string
	Root       string
	Matcher    string
	StartedAt  time.Time
	FinishedAt time.Time
	Summary    model.RunSummary
}

// Finished reports whether FinishRun was called for the run. A run that
// was interrupted stays unfinished.
func (r RunRecord) Finished() bool {
	return !r.FinishedAt.IsZero()
}

// NewRunID returns a new random run identifier.
func NewRunID() string {
	return uuid.NewString()
}

// StartRun inserts a row for report. A report without a RunID is given one.
func (l *Ledger) StartRun(ctx context.Context, report *model.RunReport) error {
	if report.RunID == "" {
		report.RunID = NewRunID()
	}

	query := `
	INSERT INTO runs (id, root, matcher, started_at)
	VALUES (?, ?, ?, ?)
	`

	_, err := l.db.ExecContext(ctx, query,
		report.RunID,
		report.Root,
		report.Matcher,
		formatTimestamp(report.StartedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to start run: %w", err)
	}

	return nil
}

// RecordAsset stores one asset outcome of run runID.
func (l *Ledger) RecordAsset(ctx context.Context, runID string, rec model.AssetRecord) error {
	ts := rec.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	query := `
	INSERT INTO assets (run_id, url, filename, kind, page, bytes, cached, error, timestamp)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := l.db.ExecContext(ctx, query,
		runID,
		rec.URL,
		rec.Filename,
		string(rec.Kind),
		rec.Page,
		rec.Bytes,
		rec.Cached,
		rec.Error,
		formatTimestamp(ts),
	)
	if err != nil {
		return fmt.Errorf("failed to record asset: %w", err)
	}

	return nil
}

// FinishRun stores the end time and summary counters of report.
func (l *Ledger) FinishRun(ctx context.Context, report *model.RunReport) error {
	summaryJSON, err := json.Marshal(report.Summary())
	if err != nil {
		return fmt.Errorf("failed to serialize summary: %w", err)
	}

	finished := report.FinishedAt
	if finished.IsZero() {
		finished = time.Now()
	}

	result, err := l.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, summary_json = ? WHERE id = ?`,
		formatTimestamp(finished),
		string(summaryJSON),
		report.RunID,
	)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, report.RunID)
	}

	return nil
}

const runColumns = `id, root, matcher, started_at, finished_at, summary_json`

// ListRuns returns the most recent runs first. A limit of zero or less
// returns every run.
func (l *Ledger) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC, rowid DESC`
	args := make([]any, 0, 1)
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// LatestRun returns the most recent run, or nil when the ledger is empty.
func (l *Ledger) LatestRun(ctx context.Context) (*RunRecord, error) {
	runs, err := l.ListRuns(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, nil
	}
	return &runs[0], nil
}

// GetRun returns the run with the given ID. A unique prefix of an ID is
// accepted as well, so the short IDs printed by the history command work.
func (l *Ledger) GetRun(ctx context.Context, id string) (*RunRecord, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: empty id", ErrRunNotFound)
	}

	rows, err := l.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs WHERE id = ? OR substr(id, 1, ?) = ? LIMIT 2`,
		id, len(id), id)
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	defer rows.Close()

	var matches []RunRecord
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		if run.ID == id {
			return &run, nil
		}
		matches = append(matches, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	case 1:
		return &matches[0], nil
	default:
		return nil, fmt.Errorf("%w: prefix %s is ambiguous", ErrRunNotFound, id)
	}
}

// RunAssets returns every asset recorded for runID in insertion order.
func (l *Ledger) RunAssets(ctx context.Context, runID string) ([]model.AssetRecord, error) {
	return l.queryAssets(ctx, `WHERE run_id = ?`, runID)
}

// FailedAssets returns the assets of runID that could not be localized.
func (l *Ledger) FailedAssets(ctx context.Context, runID string) ([]model.AssetRecord, error) {
	return l.queryAssets(ctx, `WHERE run_id = ? AND error IS NOT NULL AND error != ''`, runID)
}

func (l *Ledger) queryAssets(ctx context.Context, where string, args ...any) ([]model.AssetRecord, error) {
	query := `
	SELECT url, filename, kind, page, bytes, cached, error, timestamp
	FROM assets ` + where + `
	ORDER BY id
	`

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query assets: %w", err)
	}
	defer rows.Close()

	var records []model.AssetRecord
	for rows.Next() {
		var (
			rec       model.AssetRecord
			filename  sql.NullString
			kind      string
			errText   sql.NullString
			timestamp string
		)
		if err := rows.Scan(&rec.URL, &filename, &kind, &rec.Page, &rec.Bytes, &rec.Cached, &errText, &timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan asset: %w", err)
		}
		rec.Filename = filename.String
		rec.Kind = model.AssetKind(kind)
		rec.Error = errText.String
		rec.Timestamp = parseTimestamp(timestamp)
		records = append(records, rec)
	}

	return records, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (RunRecord, error) {
	var (
		run         RunRecord
		startedAt   string
		finishedAt  sql.NullString
		summaryJSON sql.NullString
	)
	if err := s.Scan(&run.ID, &run.Root, &run.Matcher, &startedAt, &finishedAt, &summaryJSON); err != nil {
		return RunRecord{}, fmt.Errorf("failed to scan run: %w", err)
	}

	run.StartedAt = parseTimestamp(startedAt)
	if finishedAt.Valid {
		run.FinishedAt = parseTimestamp(finishedAt.String)
	}
	if summaryJSON.Valid && summaryJSON.String != "" {
		// A malformed summary leaves the counters at zero.
		_ = json.Unmarshal([]byte(summaryJSON.String), &run.Summary) //nolint:errcheck // see above
	}

	return run, nil
}

// timestampLayout has a fixed width so stored timestamps sort as text.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// timestampFormats contains the timestamp formats that may be stored.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	timestampLayout,
	"2006-01-02 15:04:05",  // SQLite default datetime format
	"2006-01-02T15:04:05Z", // ISO 8601 with Z suffix
	time.RFC3339Nano,
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
