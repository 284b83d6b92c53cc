package indexer

import (
	"sync"

	"github.com/mwantia/mediameta/data"
)

type ChangeKind string

const (
	ChangeAdded   ChangeKind = "added"
	ChangeUpdated ChangeKind = "updated"
	ChangeRemoved ChangeKind = "removed"
)

type ChangeEvent struct {
	Kind    ChangeKind   `json:"kind"`
	Service data.Service `json:"service"`
	Path    string       `json:"path"`
}

// Broadcaster fans change events out to subscribers. The zero value is ready to use.
type Broadcaster struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]func(ChangeEvent)
}

func (b *Broadcaster) Subscribe(fn func(ChangeEvent)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.subs == nil {
		b.subs = make(map[int]func(ChangeEvent))
	}
	id := b.nextID
	b.nextID++
	b.subs[id] = fn

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()

		delete(b.subs, id)
	}
}

// Publish calls every subscriber synchronously.
func (b *Broadcaster) Publish(event ChangeEvent) {
	b.mu.RLock()
	subs := make([]func(ChangeEvent), 0, len(b.subs))
	for _, fn := range b.subs {
		subs = append(subs, fn)
	}
	b.mu.RUnlock()

	for _, fn := range subs {
		fn(event)
	}
}
