// Package sqlquery builds the SQL shared by the relational indexer backends. Items live in an
// entity-attribute-value layout: one row per item and one row per item and key.
package sqlquery

import (
	"strconv"
	"strings"
)

type Dialect struct {
	Name string
	// Placeholder renders the n-th (1 based) bind parameter.
	Placeholder func(n int) string
	// Number renders an expression that reads the leading number of a text expression, 0 when
	// there is none.
	Number func(expr string) string
	// Text renders an expression compared byte-wise.
	Text func(expr string) string
	// NoLimit is the LIMIT value that means unlimited.
	NoLimit string
}

var SQLite = Dialect{
	Name:        "sqlite",
	Placeholder: func(n int) string { return "?" + strconv.Itoa(n) },
	Number: func(expr string) string {
		return "COALESCE(CAST(" + expr + " AS REAL), 0)"
	},
	Text:    func(expr string) string { return expr },
	NoLimit: "-1",
}

var Postgres = Dialect{
	Name:        "postgres",
	Placeholder: func(n int) string { return "$" + strconv.Itoa(n) },
	Number: func(expr string) string {
		return `COALESCE(CAST(substring(` + expr + ` from '^\s*([-+]?[0-9]+(\.[0-9]*)?|[-+]?\.[0-9]+)') AS DOUBLE PRECISION), 0)`
	},
	Text:    func(expr string) string { return expr + ` COLLATE "C"` },
	NoLimit: "ALL",
}

// Rebind replaces every '?' of query with the dialect's numbered placeholders.
func (d Dialect) Rebind(query string) string {
	var sb strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			sb.WriteString(d.Placeholder(n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// Schema returns the statements that create the tables. They are idempotent.
func Schema() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS media_items (
			id TEXT PRIMARY KEY,
			path TEXT NOT NULL UNIQUE,
			service INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS media_values (
			item_id TEXT NOT NULL REFERENCES media_items(id) ON DELETE CASCADE,
			key TEXT NOT NULL,
			value TEXT NOT NULL,
			PRIMARY KEY (item_id, key)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_media_items_service ON media_items(service)`,
		`CREATE INDEX IF NOT EXISTS idx_media_values_key ON media_values(key, value)`,
	}
}

// Statements used by the write paths, in '?' form. Run them through Rebind.
const (
	StmtItemID       = `SELECT id FROM media_items WHERE path = ?`
	StmtItemService  = `SELECT id, service FROM media_items WHERE path = ?`
	StmtInsertItem   = `INSERT INTO media_items (id, path, service) VALUES (?, ?, ?)`
	StmtUpdateItem   = `UPDATE media_items SET service = ? WHERE id = ?`
	StmtDeleteItem   = `DELETE FROM media_items WHERE id = ?`
	StmtDeleteValues = `DELETE FROM media_values WHERE item_id = ?`
	StmtReadValue    = `SELECT value FROM media_values WHERE item_id = ? AND key = ?`
	StmtUpsertValue  = `INSERT INTO media_values (item_id, key, value) VALUES (?, ?, ?)
		ON CONFLICT (item_id, key) DO UPDATE SET value = excluded.value`
	StmtStats = `SELECT service, COUNT(*) FROM media_items GROUP BY service`
)
