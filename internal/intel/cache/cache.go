// Package cache mirrors the latest read view into a local SQLite file.
//
// The ledger can only answer point reads, so every live listing costs one
// index read plus one record read per id. The cache keeps the most recent
// snapshot in an embedded database (WAL mode, concurrent readers) so the
// dashboard, `list --cached`, and offline work can query without touching
// the ledger at all.
//
// The cache also remembers every record id it has ever mirrored. That
// history outlives index damage: doctor diffs it against the live index
// to find orphaned records and re-append them.
//
// The cache is always a replica, never a source of truth; a refresh
// replaces its contents wholesale.
package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/seymourandrew3mx-68/CybercrimeInfra-FHE/internal/intel/schema"
	"github.com/seymourandrew3mx-68/CybercrimeInfra-FHE/internal/intel/view"
)

// ErrNotFound is returned when a record id is not in the mirror.
var ErrNotFound = errors.New("record not in cache")

// Cache wraps the embedded SQLite mirror.
type Cache struct {
	conn *sql.DB
	path string
}

// Open creates or opens the mirror database at path and ensures its
// schema exists. Callers must Close when done.
func Open(path string) (*Cache, error) {
	if path == "" {
		return nil, fmt.Errorf("cache requires a database path")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}
	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping cache database: %w", err)
	}

	c := &Cache{conn: conn, path: path}

	// WAL keeps dashboard reads flowing while a refresh replaces the
	// snapshot.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	if err := c.initSchema(context.Background()); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

// Path returns the database file path.
func (c *Cache) Path() string {
	return c.path
}

// Close checkpoints the WAL and closes the database.
func (c *Cache) Close() error {
	if c.conn == nil {
		return nil
	}
	if _, err := c.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to checkpoint cache WAL: %v\n", err)
	}
	err := c.conn.Close()
	c.conn = nil
	if err != nil {
		return fmt.Errorf("failed to close cache database: %w", err)
	}
	return nil
}

func (c *Cache) initSchema(ctx context.Context) error {
	ddl := `
	CREATE TABLE IF NOT EXISTS records (
		id           TEXT PRIMARY KEY,
		submitter    TEXT NOT NULL,
		crime_type   TEXT NOT NULL,
		threat_level TEXT NOT NULL,
		status       TEXT NOT NULL,
		created_at   INTEGER NOT NULL,
		ciphertext   BLOB NOT NULL
	);

	-- Every id ever mirrored, kept across refreshes. Doctor diffs this
	-- against the live index to find orphans.
	CREATE TABLE IF NOT EXISTS seen_ids (
		id         TEXT PRIMARY KEY,
		first_seen TEXT NOT NULL
	);

	-- Ids the last refresh could not resolve, for doctor visibility.
	CREATE TABLE IF NOT EXISTS skips (
		id     TEXT PRIMARY KEY,
		reason TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS cache_meta (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_records_status ON records(status);
	CREATE INDEX IF NOT EXISTS idx_records_threat ON records(threat_level);
	CREATE INDEX IF NOT EXISTS idx_records_created ON records(created_at DESC);
	`

	if _, err := c.conn.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("failed to initialize cache schema: %w", err)
	}
	return nil
}

// ReplaceSnapshot swaps the mirrored records for the given snapshot in
// one transaction and extends the seen-id history.
func (c *Cache) ReplaceSnapshot(ctx context.Context, snap *view.Snapshot) error {
	tx, err := c.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin cache transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM records"); err != nil {
		return fmt.Errorf("failed to clear cache records: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM skips"); err != nil {
		return fmt.Errorf("failed to clear cache skips: %w", err)
	}

	insert := `
	INSERT INTO records (id, submitter, crime_type, threat_level, status, created_at, ciphertext)
	VALUES (?, ?, ?, ?, ?, ?, ?)`

	seen := `
	INSERT INTO seen_ids (id, first_seen)
	VALUES (?, ?)
	ON CONFLICT(id) DO NOTHING`

	now := time.Now().UTC().Format(time.RFC3339)
	for _, rec := range snap.Records {
		if _, err := tx.ExecContext(ctx, insert,
			rec.ID, rec.Submitter, rec.CrimeType,
			string(rec.ThreatLevel), string(rec.Status),
			rec.CreatedAt, rec.Ciphertext,
		); err != nil {
			return fmt.Errorf("failed to mirror record %s: %w", rec.ID, err)
		}
		if _, err := tx.ExecContext(ctx, seen, rec.ID, now); err != nil {
			return fmt.Errorf("failed to remember id %s: %w", rec.ID, err)
		}
	}

	for _, skip := range snap.Skipped {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO skips (id, reason) VALUES (?, ?) ON CONFLICT(id) DO UPDATE SET reason = excluded.reason",
			skip.ID, skip.Reason,
		); err != nil {
			return fmt.Errorf("failed to record skip %s: %w", skip.ID, err)
		}
	}

	refreshedAt := snap.RefreshedAt.UTC().Format(time.RFC3339)
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO cache_meta (key, value) VALUES ('refreshed_at', ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		refreshedAt,
	); err != nil {
		return fmt.Errorf("failed to stamp refresh time: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit cache refresh: %w", err)
	}
	return nil
}

// List returns mirrored records passing the filter, newest first.
func (c *Cache) List(ctx context.Context, f view.Filter) ([]*schema.Record, error) {
	var conditions []string
	var args []any

	if f.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, string(f.Status))
	}
	if f.ThreatLevel != "" {
		conditions = append(conditions, "threat_level = ?")
		args = append(args, string(f.ThreatLevel))
	}
	if f.Query != "" {
		conditions = append(conditions, "(crime_type LIKE ? COLLATE NOCASE OR id LIKE ? COLLATE NOCASE)")
		pattern := "%" + f.Query + "%"
		args = append(args, pattern, pattern)
	}
	if !f.CreatedSince.IsZero() {
		conditions = append(conditions, "created_at >= ?")
		args = append(args, f.CreatedSince.Unix())
	}

	query := `
	SELECT id, submitter, crime_type, threat_level, status, created_at, ciphertext
	FROM records`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC, id ASC"

	rows, err := c.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query cache: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// Get returns one mirrored record, or ErrNotFound.
func (c *Cache) Get(ctx context.Context, id string) (*schema.Record, error) {
	row := c.conn.QueryRowContext(ctx, `
	SELECT id, submitter, crime_type, threat_level, status, created_at, ciphertext
	FROM records WHERE id = ?`, id)

	rec, err := scanRecord(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("record %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read cached record %s: %w", id, err)
	}
	return rec, nil
}

// Count returns the number of mirrored records.
func (c *Cache) Count(ctx context.Context) (int, error) {
	var count int
	if err := c.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM records").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count cached records: %w", err)
	}
	return count, nil
}

// SeenIDs returns every record id the cache has ever mirrored, sorted.
func (c *Cache) SeenIDs(ctx context.Context) ([]string, error) {
	rows, err := c.conn.QueryContext(ctx, "SELECT id FROM seen_ids ORDER BY id ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query seen ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan seen id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating seen ids: %w", err)
	}
	return ids, nil
}

// Skips returns the unresolved ids from the last mirrored refresh.
func (c *Cache) Skips(ctx context.Context) ([]view.SkippedRecord, error) {
	rows, err := c.conn.QueryContext(ctx, "SELECT id, reason FROM skips ORDER BY id ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query skips: %w", err)
	}
	defer rows.Close()

	var skips []view.SkippedRecord
	for rows.Next() {
		var s view.SkippedRecord
		if err := rows.Scan(&s.ID, &s.Reason); err != nil {
			return nil, fmt.Errorf("failed to scan skip: %w", err)
		}
		skips = append(skips, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating skips: %w", err)
	}
	return skips, nil
}

// RefreshedAt returns when the mirror was last replaced, or the zero
// time if no refresh has landed yet.
func (c *Cache) RefreshedAt(ctx context.Context) (time.Time, error) {
	var value string
	err := c.conn.QueryRowContext(ctx,
		"SELECT value FROM cache_meta WHERE key = 'refreshed_at'").Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, nil
		}
		return time.Time{}, fmt.Errorf("failed to read refresh stamp: %w", err)
	}

	ts, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("malformed refresh stamp %q: %w", value, err)
	}
	return ts, nil
}

func scanRecords(rows *sql.Rows) ([]*schema.Record, error) {
	var records []*schema.Record
	for rows.Next() {
		rec, err := scanRecord(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating records: %w", err)
	}
	return records, nil
}

func scanRecord(scan func(dest ...any) error) (*schema.Record, error) {
	var rec schema.Record
	var threat, status string
	if err := scan(&rec.ID, &rec.Submitter, &rec.CrimeType, &threat, &status, &rec.CreatedAt, &rec.Ciphertext); err != nil {
		return nil, err
	}
	rec.ThreatLevel = schema.ThreatLevel(threat)
	rec.Status = schema.Status(status)
	return &rec, nil
}
