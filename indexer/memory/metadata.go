package memory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/mwantia/mediameta/data"
	"github.com/mwantia/mediameta/indexer"
	"github.com/mwantia/mediameta/indexer/eval"
)

func (mb *MemoryBackend) Query(ctx context.Context, q *indexer.Query) ([]data.Row, error) {
	if err := q.Filter.Validate(); err != nil {
		return nil, err
	}

	mb.mu.RLock()
	defer mb.mu.RUnlock()

	return eval.Select(mb.snapshot(), q), nil
}

func (mb *MemoryBackend) UniqueValues(ctx context.Context, q *indexer.UniqueQuery) ([]data.Row, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	mb.mu.RLock()
	defer mb.mu.RUnlock()

	return eval.Group(mb.snapshot(), q, false), nil
}

func (mb *MemoryBackend) GetMetadata(ctx context.Context, paths []string, keys []string) ([]data.Row, error) {
	mb.mu.RLock()
	defer mb.mu.RUnlock()

	rows := make([]data.Row, len(paths))
	for i, path := range paths {
		rows[i] = eval.Project(mb.lookup(path), keys)
	}
	return rows, nil
}

func (mb *MemoryBackend) SetMetadata(ctx context.Context, path string, keys []string, values []string) error {
	if len(keys) != len(values) {
		return data.ErrInvalid
	}

	mb.mu.Lock()
	item := mb.lookup(path)
	if item == nil {
		mb.mu.Unlock()
		return data.ErrNotExist
	}
	for i, key := range keys {
		item.Values[key] = values[i]
	}
	service := item.Service
	mb.mu.Unlock()

	mb.Publish(indexer.ChangeEvent{Kind: indexer.ChangeUpdated, Service: service, Path: path})
	return nil
}

func (mb *MemoryBackend) Stats(ctx context.Context) (map[data.Service]int, error) {
	mb.mu.RLock()
	defer mb.mu.RUnlock()

	stats := make(map[data.Service]int)
	for _, item := range mb.items {
		stats[item.Service]++
	}
	return stats, nil
}

func (mb *MemoryBackend) Put(ctx context.Context, item *indexer.Item) error {
	if err := item.Validate(); err != nil {
		return err
	}

	stored := item.Clone()
	stored.Normalize(time.Now())

	mb.mu.Lock()
	kind := indexer.ChangeAdded
	if id, exists := mb.paths.Get(stored.Path); exists {
		kind = indexer.ChangeUpdated
		stored.ID = id
		if previous := mb.items[id]; previous != nil {
			stored.Inherit(previous.Value)
		}
	} else if stored.ID == "" {
		stored.ID = uuid.Must(uuid.NewV7()).String()
	}

	mb.paths.Set(stored.Path, stored.ID)
	mb.items[stored.ID] = stored
	mb.mu.Unlock()

	mb.Publish(indexer.ChangeEvent{Kind: kind, Service: stored.Service, Path: stored.Path})
	return nil
}

func (mb *MemoryBackend) Delete(ctx context.Context, path string) error {
	mb.mu.Lock()
	id, exists := mb.paths.Delete(path)
	if !exists {
		mb.mu.Unlock()
		return data.ErrNotExist
	}
	item := mb.items[id]
	delete(mb.items, id)
	mb.mu.Unlock()

	if item != nil {
		mb.Publish(indexer.ChangeEvent{Kind: indexer.ChangeRemoved, Service: item.Service, Path: path})
	}
	return nil
}

func (mb *MemoryBackend) lookup(path string) *indexer.Item {
	id, exists := mb.paths.Get(path)
	if !exists {
		return nil
	}
	return mb.items[id]
}
