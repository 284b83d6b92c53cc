package consul

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/consul/api"
	"github.com/mwantia/mediameta/data"
	"github.com/mwantia/mediameta/indexer"
	"github.com/mwantia/mediameta/indexer/eval"
)

func (cb *ConsulBackend) Query(ctx context.Context, q *indexer.Query) ([]data.Row, error) {
	if err := q.Filter.Validate(); err != nil {
		return nil, err
	}

	items, err := cb.list(ctx)
	if err != nil {
		return nil, err
	}
	return eval.Select(items, q), nil
}

func (cb *ConsulBackend) UniqueValues(ctx context.Context, q *indexer.UniqueQuery) ([]data.Row, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	items, err := cb.list(ctx)
	if err != nil {
		return nil, err
	}
	return eval.Group(items, q, false), nil
}

func (cb *ConsulBackend) GetMetadata(ctx context.Context, paths []string, keys []string) ([]data.Row, error) {
	rows := make([]data.Row, len(paths))
	for i, path := range paths {
		item, _, err := cb.get(ctx, path)
		if err != nil {
			return nil, err
		}
		rows[i] = eval.Project(item, keys)
	}
	return rows, nil
}

// SetMetadata rewrites the item with check-and-set. A concurrent writer makes it fail with
// data.ErrConflict and nothing is written.
func (cb *ConsulBackend) SetMetadata(ctx context.Context, path string, keys []string, values []string) error {
	if len(keys) != len(values) {
		return data.ErrInvalid
	}

	item, index, err := cb.get(ctx, path)
	if err != nil {
		return err
	}
	if item == nil {
		return data.ErrNotExist
	}

	for i, key := range keys {
		item.Values[key] = values[i]
	}
	if err := cb.cas(ctx, item, index); err != nil {
		return err
	}

	cb.Publish(indexer.ChangeEvent{Kind: indexer.ChangeUpdated, Service: item.Service, Path: path})
	return nil
}

func (cb *ConsulBackend) Stats(ctx context.Context) (map[data.Service]int, error) {
	items, err := cb.list(ctx)
	if err != nil {
		return nil, err
	}

	stats := make(map[data.Service]int)
	for _, item := range items {
		stats[item.Service]++
	}
	return stats, nil
}

func (cb *ConsulBackend) Put(ctx context.Context, item *indexer.Item) error {
	if err := item.Validate(); err != nil {
		return err
	}

	stored := item.Clone()
	stored.Normalize(time.Now())

	previous, index, err := cb.get(ctx, stored.Path)
	if err != nil {
		return err
	}

	kind := indexer.ChangeAdded
	if previous != nil {
		kind = indexer.ChangeUpdated
		stored.ID = previous.ID
		stored.Inherit(previous.Value)
	} else if stored.ID == "" {
		stored.ID = uuid.Must(uuid.NewV7()).String()
	}

	if err := cb.cas(ctx, stored, index); err != nil {
		return err
	}

	cb.Publish(indexer.ChangeEvent{Kind: kind, Service: stored.Service, Path: stored.Path})
	return nil
}

func (cb *ConsulBackend) Delete(ctx context.Context, path string) error {
	item, index, err := cb.get(ctx, path)
	if err != nil {
		return err
	}
	if item == nil {
		return data.ErrNotExist
	}

	opts := (&api.WriteOptions{}).WithContext(ctx)
	ok, _, err := cb.kv.DeleteCAS(&api.KVPair{Key: cb.buildKey(path), ModifyIndex: index}, opts)
	if err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}
	if !ok {
		return data.ErrConflict
	}

	cb.Publish(indexer.ChangeEvent{Kind: indexer.ChangeRemoved, Service: item.Service, Path: path})
	return nil
}

// get returns the item stored for path with its modify index, nil when it is missing.
func (cb *ConsulBackend) get(ctx context.Context, path string) (*indexer.Item, uint64, error) {
	opts := (&api.QueryOptions{}).WithContext(ctx)
	pair, _, err := cb.kv.Get(cb.buildKey(path), opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read item: %w", err)
	}
	if pair == nil {
		return nil, 0, nil
	}

	item, err := decode(pair)
	if err != nil {
		return nil, 0, err
	}
	return item, pair.ModifyIndex, nil
}

// list returns every stored item ordered by path.
func (cb *ConsulBackend) list(ctx context.Context) ([]*indexer.Item, error) {
	opts := (&api.QueryOptions{}).WithContext(ctx)
	pairs, _, err := cb.kv.List(cb.itemsPrefix(), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}

	items := make([]*indexer.Item, 0, len(pairs))
	for _, pair := range pairs {
		item, err := decode(pair)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	sort.Slice(items, func(i, j int) bool {
		return items[i].Path < items[j].Path
	})
	return items, nil
}

// cas writes item if its entry still has the given modify index. Index 0 only creates.
func (cb *ConsulBackend) cas(ctx context.Context, item *indexer.Item, index uint64) error {
	value, err := json.Marshal(item)
	if err != nil {
		return err
	}

	pair := &api.KVPair{
		Key:         cb.buildKey(item.Path),
		Value:       value,
		ModifyIndex: index,
	}

	opts := (&api.WriteOptions{}).WithContext(ctx)
	ok, _, err := cb.kv.CAS(pair, opts)
	if err != nil {
		return fmt.Errorf("failed to write item: %w", err)
	}
	if !ok {
		return data.ErrConflict
	}
	return nil
}

func decode(pair *api.KVPair) (*indexer.Item, error) {
	var item indexer.Item
	if err := json.Unmarshal(pair.Value, &item); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", pair.Key, err)
	}
	if item.Values == nil {
		item.Values = make(map[string]string)
	}
	return &item, nil
}
