package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/pageloader/internal/model"
)

// FileName is the database file created inside the database directory.
const FileName = "pageloader.db"

// ErrLoadNotFound is returned by GetLoad for an unknown ID.
var ErrLoadNotFound = errors.New("load not found")

// timeLayout stores timestamps as fixed-width UTC text so that they sort
// chronologically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// HistoryDB stores the results of past page loads.
type HistoryDB struct {
	db     *sql.DB
	dbPath string
}

// Options configures HistoryDB behavior.
type Options struct {
	// CreateIfNotExists creates the directory and database file if needed.
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

// Open opens or creates the history database in dbDir.
// With CreateIfNotExists unset, a missing database is an error and nothing
// is created.
func Open(dbDir string, opts Options) (*HistoryDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	dsn := dbPath + "?mode=rwc"
	if opts.CreateIfNotExists {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	} else {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
		dsn = dbPath + "?mode=rw"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	hdb := &HistoryDB{db: db, dbPath: dbPath}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close() //nolint:errcheck // pragma error takes precedence
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := hdb.createTables(); err != nil {
		_ = db.Close() //nolint:errcheck // schema error takes precedence
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return hdb, nil
}

// Close closes the database connection.
func (h *HistoryDB) Close() error {
	return h.db.Close()
}

// Path returns the database file path.
func (h *HistoryDB) Path() string {
	return h.dbPath
}

func (h *HistoryDB) createTables() error {
	schema := `
	-- One row per page load
	CREATE TABLE IF NOT EXISTS loads (
		id TEXT PRIMARY KEY,
		url TEXT NOT NULL,
		output_dir TEXT NOT NULL,
		document_path TEXT,
		resource_dir TEXT,
		started_at TEXT NOT NULL,
		finished_at TEXT,
		error TEXT,
		resource_count INTEGER DEFAULT 0,
		failed_count INTEGER DEFAULT 0,
		total_bytes INTEGER DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_loads_url ON loads(url);
	CREATE INDEX IF NOT EXISTS idx_loads_started ON loads(started_at);

	-- One row per resource download task of a load
	CREATE TABLE IF NOT EXISTS resources (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		load_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		link TEXT NOT NULL,
		url TEXT NOT NULL,
		local_path TEXT NOT NULL,
		status TEXT NOT NULL,
		status_code INTEGER,
		bytes INTEGER DEFAULT 0,
		error TEXT,
		UNIQUE(load_id, position)
	);

	CREATE INDEX IF NOT EXISTS idx_resources_load ON resources(load_id);
	`

	_, err := h.db.ExecContext(context.Background(), schema)
	return err
}

// SaveLoadResult stores result and its resources. Saving a result with an
// existing ID replaces the earlier copy.
func (h *HistoryDB) SaveLoadResult(ctx context.Context, result *model.LoadResult) (err error) {
	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback() //nolint:errcheck // original error takes precedence
		}
	}()

	loadQuery := `
	INSERT INTO loads (id, url, output_dir, document_path, resource_dir, started_at, finished_at, error, resource_count, failed_count, total_bytes)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		url = excluded.url,
		output_dir = excluded.output_dir,
		document_path = excluded.document_path,
		resource_dir = excluded.resource_dir,
		started_at = excluded.started_at,
		finished_at = excluded.finished_at,
		error = excluded.error,
		resource_count = excluded.resource_count,
		failed_count = excluded.failed_count,
		total_bytes = excluded.total_bytes
	`

	if _, err = tx.ExecContext(ctx, loadQuery,
		result.ID,
		result.URL,
		result.OutputDir,
		result.DocumentPath,
		result.ResourceDir,
		formatTimestamp(result.StartedAt),
		formatTimestamp(result.FinishedAt),
		result.Error,
		len(result.Resources),
		result.FailedCount(),
		result.TotalBytes(),
	); err != nil {
		return fmt.Errorf("failed to save load: %w", err)
	}

	if _, err = tx.ExecContext(ctx, "DELETE FROM resources WHERE load_id = ?", result.ID); err != nil {
		return fmt.Errorf("failed to replace resources: %w", err)
	}

	resourceQuery := `
	INSERT INTO resources (load_id, position, link, url, local_path, status, status_code, bytes, error)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	for i, res := range result.Resources {
		if _, err = tx.ExecContext(ctx, resourceQuery,
			result.ID,
			i,
			res.Link,
			res.URL,
			res.LocalPath,
			string(res.Status),
			res.StatusCode,
			res.Bytes,
			res.Error,
		); err != nil {
			return fmt.Errorf("failed to save resource %s: %w", res.URL, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit load: %w", err)
	}
	return nil
}

// ListLoads returns stored loads, newest first. A non-empty pageURL keeps
// only loads of that URL; a positive limit caps the number of rows.
func (h *HistoryDB) ListLoads(ctx context.Context, pageURL string, limit int) ([]model.LoadSummary, error) {
	query := `
	SELECT id, url, output_dir, started_at, finished_at, error, resource_count, failed_count, total_bytes
	FROM loads
	WHERE 1=1
	`
	args := make([]any, 0, 2)

	if pageURL != "" {
		query += " AND url = ?"
		args = append(args, pageURL)
	}

	query += " ORDER BY started_at DESC"

	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list loads: %w", err)
	}
	defer rows.Close()

	summaries := make([]model.LoadSummary, 0)
	for rows.Next() {
		var (
			s          model.LoadSummary
			startedAt  string
			finishedAt sql.NullString
			loadErr    sql.NullString
		)
		if err := rows.Scan(&s.ID, &s.URL, &s.OutputDir, &startedAt, &finishedAt, &loadErr, &s.Resources, &s.Failed, &s.TotalBytes); err != nil {
			return nil, fmt.Errorf("failed to scan load: %w", err)
		}
		s.StartedAt = parseTimestamp(startedAt)
		s.FinishedAt = parseTimestamp(finishedAt.String)
		s.Error = loadErr.String
		summaries = append(summaries, s)
	}

	return summaries, rows.Err()
}

// GetLoad returns the stored load with the given ID, resources included.
// It returns ErrLoadNotFound when there is none.
func (h *HistoryDB) GetLoad(ctx context.Context, id string) (*model.LoadResult, error) {
	query := `
	SELECT id, url, output_dir, document_path, resource_dir, started_at, finished_at, error
	FROM loads
	WHERE id = ?
	`

	var (
		result                    model.LoadResult
		documentPath, resourceDir sql.NullString
		startedAt                 string
		finishedAt, loadErr       sql.NullString
	)
	err := h.db.QueryRowContext(ctx, query, id).Scan(
		&result.ID,
		&result.URL,
		&result.OutputDir,
		&documentPath,
		&resourceDir,
		&startedAt,
		&finishedAt,
		&loadErr,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrLoadNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get load: %w", err)
	}

	result.DocumentPath = documentPath.String
	result.ResourceDir = resourceDir.String
	result.StartedAt = parseTimestamp(startedAt)
	result.FinishedAt = parseTimestamp(finishedAt.String)
	result.Error = loadErr.String

	resources, err := h.getResources(ctx, id)
	if err != nil {
		return nil, err
	}
	result.Resources = resources

	return &result, nil
}

func (h *HistoryDB) getResources(ctx context.Context, loadID string) ([]model.ResourceResult, error) {
	query := `
	SELECT link, url, local_path, status, status_code, bytes, error
	FROM resources
	WHERE load_id = ?
	ORDER BY position
	`

	rows, err := h.db.QueryContext(ctx, query, loadID)
	if err != nil {
		return nil, fmt.Errorf("failed to get resources: %w", err)
	}
	defer rows.Close()

	resources := make([]model.ResourceResult, 0)
	for rows.Next() {
		var (
			res        model.ResourceResult
			status     string
			statusCode sql.NullInt64
			resErr     sql.NullString
		)
		if err := rows.Scan(&res.Link, &res.URL, &res.LocalPath, &status, &statusCode, &res.Bytes, &resErr); err != nil {
			return nil, fmt.Errorf("failed to scan resource: %w", err)
		}
		res.Status = model.ResourceStatus(status)
		res.StatusCode = int(statusCode.Int64)
		res.Error = resErr.String
		resources = append(resources, res)
	}

	return resources, rows.Err()
}

// ListURLs returns every loaded page URL in alphabetical order.
func (h *HistoryDB) ListURLs(ctx context.Context) ([]string, error) {
	rows, err := h.db.QueryContext(ctx, "SELECT DISTINCT url FROM loads ORDER BY url")
	if err != nil {
		return nil, fmt.Errorf("failed to list urls: %w", err)
	}
	defer rows.Close()

	urls := make([]string, 0)
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("failed to scan url: %w", err)
		}
		urls = append(urls, u)
	}

	return urls, rows.Err()
}

// formatTimestamp renders t for storage. The zero time is stored as "".
func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

// timestampFormats are tried in order by parseTimestamp.
var timestampFormats = []string{
	timeLayout,
	time.RFC3339Nano,
	"2006-01-02 15:04:05", // SQLite CURRENT_TIMESTAMP
}

// parseTimestamp parses a stored timestamp, returning the zero time for
// empty or unknown values.
func parseTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
