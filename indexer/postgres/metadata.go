package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/mwantia/mediameta/data"
	"github.com/mwantia/mediameta/indexer"
	"github.com/mwantia/mediameta/indexer/eval"
	"github.com/mwantia/mediameta/indexer/sqlquery"
)

var dialect = sqlquery.Postgres

func (pb *PostgresBackend) Query(ctx context.Context, q *indexer.Query) ([]data.Row, error) {
	query, args, err := sqlquery.Select(dialect, q.Service, q.Keys, q.Filter, q.Sort, q.Offset, q.Count)
	if err != nil {
		return nil, err
	}

	return pb.selectRows(ctx, query, args, len(q.Keys))
}

func (pb *PostgresBackend) UniqueValues(ctx context.Context, q *indexer.UniqueQuery) ([]data.Row, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	keys := q.Keys()
	query, args, err := sqlquery.Select(dialect, q.Service, keys, q.Filter, nil, 0, 0)
	if err != nil {
		return nil, err
	}

	rows, err := pb.selectRows(ctx, query, args, len(keys))
	if err != nil {
		return nil, err
	}

	return eval.Group(sqlquery.Items(rows, keys), q, true), nil
}

func (pb *PostgresBackend) selectRows(ctx context.Context, query string, args []any, width int) ([]data.Row, error) {
	rows, err := pb.pool.Query(ctx, query, args...)
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

func (pb *PostgresBackend) GetMetadata(ctx context.Context, paths []string, keys []string) ([]data.Row, error) {
	query, args := sqlquery.Lookup(dialect, paths, keys)

	rows, err := pb.pool.Query(ctx, query, args...)
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

func (pb *PostgresBackend) SetMetadata(ctx context.Context, path string, keys []string, values []string) error {
	if len(keys) != len(values) {
		return data.ErrInvalid
	}

	var service int
	err := pgx.BeginFunc(ctx, pb.pool, func(tx pgx.Tx) error {
		var id string
		err := tx.QueryRow(ctx, dialect.Rebind(sqlquery.StmtItemService), path).Scan(&id, &service)
		if errors.Is(err, pgx.ErrNoRows) {
			return data.ErrNotExist
		}
		if err != nil {
			return err
		}

		for i, key := range keys {
			if _, err := tx.Exec(ctx, dialect.Rebind(sqlquery.StmtUpsertValue), id, key, values[i]); err != nil {
				return fmt.Errorf("failed to write %s: %w", key, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	pb.Publish(indexer.ChangeEvent{Kind: indexer.ChangeUpdated, Service: data.Service(service), Path: path})
	return nil
}

func (pb *PostgresBackend) Stats(ctx context.Context) (map[data.Service]int, error) {
	rows, err := pb.pool.Query(ctx, sqlquery.StmtStats)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := make(map[data.Service]int)
	for rows.Next() {
		var service int
		var count int64
		if err := rows.Scan(&service, &count); err != nil {
			return nil, err
		}
		stats[data.Service(service)] = int(count)
	}
	return stats, rows.Err()
}

func (pb *PostgresBackend) Put(ctx context.Context, item *indexer.Item) error {
	if err := item.Validate(); err != nil {
		return err
	}

	stored := item.Clone()
	stored.Normalize(time.Now())

	pb.mu.Lock()
	defer pb.mu.Unlock()

	kind := indexer.ChangeAdded
	err := pgx.BeginFunc(ctx, pb.pool, func(tx pgx.Tx) error {
		var id string
		err := tx.QueryRow(ctx, dialect.Rebind(sqlquery.StmtItemID), stored.Path).Scan(&id)
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			if stored.ID == "" {
				stored.ID = uuid.Must(uuid.NewV7()).String()
			}
			if _, err := tx.Exec(ctx, dialect.Rebind(sqlquery.StmtInsertItem), stored.ID, stored.Path, int(stored.Service)); err != nil {
				return fmt.Errorf("failed to insert item: %w", err)
			}
		case err != nil:
			return err
		default:
			kind = indexer.ChangeUpdated
			stored.ID = id

			stored.Inherit(func(key string) string {
				var value string
				if err := tx.QueryRow(ctx, dialect.Rebind(sqlquery.StmtReadValue), id, key).Scan(&value); err != nil {
					return ""
				}
				return value
			})
			if _, err := tx.Exec(ctx, dialect.Rebind(sqlquery.StmtUpdateItem), int(stored.Service), id); err != nil {
				return fmt.Errorf("failed to update item: %w", err)
			}
			if _, err := tx.Exec(ctx, dialect.Rebind(sqlquery.StmtDeleteValues), id); err != nil {
				return fmt.Errorf("failed to clear values: %w", err)
			}
		}

		for key, value := range stored.Values {
			if _, err := tx.Exec(ctx, dialect.Rebind(sqlquery.StmtUpsertValue), stored.ID, key, value); err != nil {
				return fmt.Errorf("failed to write %s: %w", key, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	pb.paths.Set(stored.Path, stored.ID)
	pb.Publish(indexer.ChangeEvent{Kind: kind, Service: stored.Service, Path: stored.Path})
	return nil
}

func (pb *PostgresBackend) Delete(ctx context.Context, path string) error {
	pb.mu.Lock()
	defer pb.mu.Unlock()

	var service int
	err := pgx.BeginFunc(ctx, pb.pool, func(tx pgx.Tx) error {
		var id string
		err := tx.QueryRow(ctx, dialect.Rebind(sqlquery.StmtItemService), path).Scan(&id, &service)
		if errors.Is(err, pgx.ErrNoRows) {
			return data.ErrNotExist
		}
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, dialect.Rebind(sqlquery.StmtDeleteValues), id); err != nil {
			return err
		}
		_, err = tx.Exec(ctx, dialect.Rebind(sqlquery.StmtDeleteItem), id)
		return err
	})
	if err != nil {
		return err
	}

	pb.paths.Delete(path)
	pb.Publish(indexer.ChangeEvent{Kind: indexer.ChangeRemoved, Service: data.Service(service), Path: path})
	return nil
}
