package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/mwantia/mediameta/indexer"
	"github.com/mwantia/mediameta/indexer/sqlquery"
	"github.com/tidwall/btree"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// SQLiteBackend stores items in an SQLite database:
//
// Layer 1: In-memory B-tree for fast path → ID lookups
// Layer 2: media_items, one row per indexed file
// Layer 3: media_values, one row per file and native key
type SQLiteBackend struct {
	indexer.Broadcaster
	mu sync.RWMutex
	db *sql.DB

	// In-memory B-tree for fast path lookups
	paths *btree.Map[string, string]
}

// NewSQLiteBackend opens the database at dbPath, ":memory:" keeps it in memory.
func NewSQLiteBackend(dbPath string) (*SQLiteBackend, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	// A single connection keeps pragmas and in-memory databases consistent.
	db.SetMaxOpenConns(1)

	// Enable foreign keys for referential integrity
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, err
	}

	backend := &SQLiteBackend{
		db:    db,
		paths: btree.NewMap[string, string](0),
	}

	if err := backend.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return backend, nil
}

// initSchema creates the database schema.
func (sb *SQLiteBackend) initSchema() error {
	for _, stmt := range sqlquery.Schema() {
		if _, err := sb.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Returns the identifier name defined for this backend
func (*SQLiteBackend) Name() string {
	return "sqlite"
}

// Open verifies the connection and loads every path into the B-tree.
func (sb *SQLiteBackend) Open(ctx context.Context) error {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	if err := sb.db.PingContext(ctx); err != nil {
		return err
	}

	rows, err := sb.db.QueryContext(ctx, "SELECT path, id FROM media_items")
	if err != nil {
		return err
	}
	defer rows.Close()

	sb.paths.Clear()
	for rows.Next() {
		var path, id string
		if err := rows.Scan(&path, &id); err != nil {
			return err
		}
		sb.paths.Set(path, id)
	}

	return rows.Err()
}

// Close is part of the lifecycle behaviour and gets called when closing this backend.
func (sb *SQLiteBackend) Close(ctx context.Context) error {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	sb.paths.Clear()
	return sb.db.Close()
}

// GetCapabilities returns a list of capabilities supported by this backend.
func (sb *SQLiteBackend) GetCapabilities() *indexer.Capabilities {
	return indexer.NewCapabilities(
		indexer.CapabilityQuery,
		indexer.CapabilityUnique,
		indexer.CapabilityWrite,
		indexer.CapabilityNotify,
		indexer.CapabilityPersistent,
		indexer.CapabilityAtomic,
	)
}
