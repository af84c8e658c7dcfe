// Package sqlite implements the ledger Client on an embedded libSQL
// database file.
//
// A single table holds the key space; upserts give the per-key atomic
// overwrite the contract requires. This backend suits one machine shared
// by several local processes, or trials that need persistence without a
// server.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/tursodatabase/go-libsql"

	"github.com/seymourandrew3mx-68/CybercrimeInfra-FHE/internal/ledger"
)

func init() {
	ledger.Register(ledger.TypeSQLite, func(cfg ledger.Config) (ledger.Client, error) {
		return Open(cfg.SQLite.Path)
	})
}

// Client is a libSQL-backed ledger client.
type Client struct {
	db   *sql.DB
	path string
}

// Open opens (creating if needed) the database file at path and ensures
// the key-value table exists.
func Open(path string) (*Client, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite ledger requires a database path")
	}

	db, err := sql.Open("libsql", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Serialize access through a single connection; libSQL handles its
	// own locking but concurrent writers through one pool connection
	// avoid SQLITE_BUSY churn.
	db.SetMaxOpenConns(1)

	client := &Client{db: db, path: path}
	if err := client.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}

	return client, nil
}

func (c *Client) ensureSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS ledger_kv (
		key        TEXT PRIMARY KEY,
		value      BLOB NOT NULL,
		updated_at TEXT NOT NULL
	);`

	if _, err := c.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create ledger table: %w", err)
	}
	return nil
}

// Name returns the backend type.
func (c *Client) Name() ledger.Type {
	return ledger.TypeSQLite
}

// IsAvailable pings the database.
func (c *Client) IsAvailable(ctx context.Context) bool {
	return c.db.PingContext(ctx) == nil
}

// GetData fetches the value under key. A missing row yields nil, nil.
func (c *Client) GetData(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := c.db.QueryRowContext(ctx, "SELECT value FROM ledger_kv WHERE key = ?", key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("sqlite get %s: %v: %w", key, err, ledger.ErrUnavailable)
	}
	if len(value) == 0 {
		return nil, nil
	}
	return value, nil
}

// SetData upserts the value under key.
func (c *Client) SetData(ctx context.Context, key string, value []byte) error {
	query := `
	INSERT INTO ledger_kv (key, value, updated_at)
	VALUES (?, ?, ?)
	ON CONFLICT(key) DO UPDATE SET
		value = excluded.value,
		updated_at = excluded.updated_at`

	now := time.Now().UTC().Format(time.RFC3339)
	if _, err := c.db.ExecContext(ctx, query, key, value, now); err != nil {
		return fmt.Errorf("sqlite set %s: %v: %w", key, err, ledger.ErrUnavailable)
	}
	return nil
}

// Close closes the database handle.
func (c *Client) Close() error {
	return c.db.Close()
}
