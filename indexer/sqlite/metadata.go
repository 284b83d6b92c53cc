package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mwantia/mediameta/data"
	"github.com/mwantia/mediameta/indexer"
	"github.com/mwantia/mediameta/indexer/eval"
	"github.com/mwantia/mediameta/indexer/sqlquery"
)

var dialect = sqlquery.SQLite

func (sb *SQLiteBackend) Query(ctx context.Context, q *indexer.Query) ([]data.Row, error) {
	query, args, err := sqlquery.Select(dialect, q.Service, q.Keys, q.Filter, q.Sort, q.Offset, q.Count)
	if err != nil {
		return nil, err
	}

	sb.mu.RLock()
	defer sb.mu.RUnlock()

	return sb.selectRows(ctx, query, args, len(q.Keys))
}

func (sb *SQLiteBackend) UniqueValues(ctx context.Context, q *indexer.UniqueQuery) ([]data.Row, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	keys := q.Keys()
	query, args, err := sqlquery.Select(dialect, q.Service, keys, q.Filter, nil, 0, 0)
	if err != nil {
		return nil, err
	}

	sb.mu.RLock()
	rows, err := sb.selectRows(ctx, query, args, len(keys))
	sb.mu.RUnlock()
	if err != nil {
		return nil, err
	}

	return eval.Group(sqlquery.Items(rows, keys), q, true), nil
}

func (sb *SQLiteBackend) selectRows(ctx context.Context, query string, args []any, width int) ([]data.Row, error) {
	rows, err := sb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query items: %w", err)
	}
	defer rows.Close()

	var result []data.Row
	for rows.Next() {
		var path string
		var service int
		values := make([]string, width)

		dest := make([]any, 0, width+2)
		dest = append(dest, &path, &service)
		for i := range values {
			dest = append(dest, &values[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}

		row := make(data.Row, 0, width+2)
		row = append(row, path, data.Service(service).String())
		row = append(row, values...)
		result = append(result, row)
	}

	return result, rows.Err()
}

func (sb *SQLiteBackend) GetMetadata(ctx context.Context, paths []string, keys []string) ([]data.Row, error) {
	query, args := sqlquery.Lookup(dialect, paths, keys)

	sb.mu.RLock()
	defer sb.mu.RUnlock()

	rows, err := sb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata: %w", err)
	}
	defer rows.Close()

	found := make(map[string]data.Row, len(paths))
	for rows.Next() {
		var path string
		values := make([]string, len(keys))

		dest := make([]any, 0, len(keys)+1)
		dest = append(dest, &path)
		for i := range values {
			dest = append(dest, &values[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		found[path] = values
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	result := make([]data.Row, len(paths))
	for i, path := range paths {
		result[i] = found[path]
	}
	return result, nil
}

func (sb *SQLiteBackend) SetMetadata(ctx context.Context, path string, keys []string, values []string) error {
	if len(keys) != len(values) {
		return data.ErrInvalid
	}

	sb.mu.Lock()
	service, err := sb.withTx(ctx, func(tx *sql.Tx) (data.Service, error) {
		var id string
		var service int
		err := tx.QueryRowContext(ctx, dialect.Rebind(sqlquery.StmtItemService), path).Scan(&id, &service)
		if errors.Is(err, sql.ErrNoRows) {
			return 0, data.ErrNotExist
		}
		if err != nil {
			return 0, err
		}

		for i, key := range keys {
			if _, err := tx.ExecContext(ctx, dialect.Rebind(sqlquery.StmtUpsertValue), id, key, values[i]); err != nil {
				return 0, fmt.Errorf("failed to write %s: %w", key, err)
			}
		}
		return data.Service(service), nil
	})
	sb.mu.Unlock()
	if err != nil {
		return err
	}

	sb.Publish(indexer.ChangeEvent{Kind: indexer.ChangeUpdated, Service: service, Path: path})
	return nil
}

func (sb *SQLiteBackend) Stats(ctx context.Context) (map[data.Service]int, error) {
	sb.mu.RLock()
	defer sb.mu.RUnlock()

	rows, err := sb.db.QueryContext(ctx, sqlquery.StmtStats)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := make(map[data.Service]int)
	for rows.Next() {
		var service, count int
		if err := rows.Scan(&service, &count); err != nil {
			return nil, err
		}
		stats[data.Service(service)] = count
	}
	return stats, rows.Err()
}

func (sb *SQLiteBackend) Put(ctx context.Context, item *indexer.Item) error {
	if err := item.Validate(); err != nil {
		return err
	}

	stored := item.Clone()
	stored.Normalize(time.Now())

	sb.mu.Lock()
	kind := indexer.ChangeAdded
	_, err := sb.withTx(ctx, func(tx *sql.Tx) (data.Service, error) {
		var id string
		err := tx.QueryRowContext(ctx, dialect.Rebind(sqlquery.StmtItemID), stored.Path).Scan(&id)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			if stored.ID == "" {
				stored.ID = uuid.Must(uuid.NewV7()).String()
			}
			if _, err := tx.ExecContext(ctx, dialect.Rebind(sqlquery.StmtInsertItem), stored.ID, stored.Path, int(stored.Service)); err != nil {
				return 0, fmt.Errorf("failed to insert item: %w", err)
			}
		case err != nil:
			return 0, err
		default:
			kind = indexer.ChangeUpdated
			stored.ID = id

			stored.Inherit(func(key string) string {
				var value string
				if err := tx.QueryRowContext(ctx, dialect.Rebind(sqlquery.StmtReadValue), id, key).Scan(&value); err != nil {
					return ""
				}
				return value
			})
			if _, err := tx.ExecContext(ctx, dialect.Rebind(sqlquery.StmtUpdateItem), int(stored.Service), id); err != nil {
				return 0, fmt.Errorf("failed to update item: %w", err)
			}
			if _, err := tx.ExecContext(ctx, dialect.Rebind(sqlquery.StmtDeleteValues), id); err != nil {
				return 0, fmt.Errorf("failed to clear values: %w", err)
			}
		}

		for key, value := range stored.Values {
			if _, err := tx.ExecContext(ctx, dialect.Rebind(sqlquery.StmtUpsertValue), stored.ID, key, value); err != nil {
				return 0, fmt.Errorf("failed to write %s: %w", key, err)
			}
		}
		return stored.Service, nil
	})
	if err == nil {
		sb.paths.Set(stored.Path, stored.ID)
	}
	sb.mu.Unlock()
	if err != nil {
		return err
	}

	sb.Publish(indexer.ChangeEvent{Kind: kind, Service: stored.Service, Path: stored.Path})
	return nil
}

func (sb *SQLiteBackend) Delete(ctx context.Context, path string) error {
	sb.mu.Lock()
	id, exists := sb.paths.Get(path)
	if !exists {
		sb.mu.Unlock()
		return data.ErrNotExist
	}

	service, err := sb.withTx(ctx, func(tx *sql.Tx) (data.Service, error) {
		var service int
		if err := tx.QueryRowContext(ctx, dialect.Rebind(sqlquery.StmtItemService), path).Scan(&id, &service); err != nil {
			return 0, err
		}
		if _, err := tx.ExecContext(ctx, dialect.Rebind(sqlquery.StmtDeleteValues), id); err != nil {
			return 0, err
		}
		if _, err := tx.ExecContext(ctx, dialect.Rebind(sqlquery.StmtDeleteItem), id); err != nil {
			return 0, err
		}
		return data.Service(service), nil
	})
	if err == nil {
		sb.paths.Delete(path)
	}
	sb.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}

	sb.Publish(indexer.ChangeEvent{Kind: indexer.ChangeRemoved, Service: service, Path: path})
	return nil
}

func (sb *SQLiteBackend) withTx(ctx context.Context, fn func(tx *sql.Tx) (data.Service, error)) (data.Service, error) {
	tx, err := sb.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}

	service, err := fn(tx)
	if err != nil {
		tx.Rollback()
		return 0, err
	}
	return service, tx.Commit()
}
