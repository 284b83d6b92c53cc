package memory

import (
	"context"
	"sync"

	"github.com/mwantia/mediameta/indexer"
	"github.com/tidwall/btree"
)

// MemoryBackend keeps every item in process memory, ordered by path.
type MemoryBackend struct {
	indexer.Broadcaster
	mu sync.RWMutex

	paths *btree.Map[string, string]
	items map[string]*indexer.Item
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		paths: btree.NewMap[string, string](0),
		items: make(map[string]*indexer.Item),
	}
}

// Returns the identifier name defined for this backend
func (*MemoryBackend) Name() string {
	return "memory"
}

// Open is part of the lifecycle behaviour and gets called when opening this backend.
func (mb *MemoryBackend) Open(ctx context.Context) error {
	return nil
}

// Close drops every item.
func (mb *MemoryBackend) Close(ctx context.Context) error {
	mb.mu.Lock()
	defer mb.mu.Unlock()

	mb.paths.Clear()
	for id := range mb.items {
		delete(mb.items, id)
	}

	return nil
}

// GetCapabilities returns a list of capabilities supported by this backend.
func (mb *MemoryBackend) GetCapabilities() *indexer.Capabilities {
	return indexer.NewCapabilities(
		indexer.CapabilityQuery,
		indexer.CapabilityUnique,
		indexer.CapabilityWrite,
		indexer.CapabilityNotify,
		indexer.CapabilityAtomic,
	)
}

// snapshot returns the items in path order. Callers hold the read lock.
func (mb *MemoryBackend) snapshot() []*indexer.Item {
	result := make([]*indexer.Item, 0, mb.paths.Len())
	mb.paths.Scan(func(_ string, id string) bool {
		if item, ok := mb.items[id]; ok {
			result = append(result, item)
		}
		return true
	})
	return result
}
