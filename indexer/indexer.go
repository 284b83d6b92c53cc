// Package indexer defines the content indexer the source reads from and writes to.
package indexer

import (
	"context"

	"github.com/mwantia/mediameta/data"
)

// Backend is used as lifecycle entrypoint for indexer implementations.
type Backend interface {
	// Name returns the identifier name defined for this backend
	Name() string
	// Open prepares the backend, e.g. connects and creates the schema.
	Open(ctx context.Context) error
	// Close releases every resource held by the backend.
	Close(ctx context.Context) error

	// GetCapabilities returns a list of capabilities supported by this backend.
	GetCapabilities() *Capabilities
}

// Indexer answers metadata queries over the indexed items. Keys are native key names such as
// "Audio:Title".
type Indexer interface {
	Backend

	// Query returns one row [path, service, values of q.Keys...] per matching item.
	Query(ctx context.Context, q *Query) ([]data.Row, error)
	// UniqueValues returns one row [value, aggregates...] per distinct value of q.Key.
	UniqueValues(ctx context.Context, q *UniqueQuery) ([]data.Row, error)
	// GetMetadata returns the values of keys for each path, nil rows for unknown paths.
	GetMetadata(ctx context.Context, paths []string, keys []string) ([]data.Row, error)
	// SetMetadata writes every key of one item or none of them.
	SetMetadata(ctx context.Context, path string, keys []string, values []string) error
	// Stats returns the number of items per service.
	Stats(ctx context.Context) (map[data.Service]int, error)
}

// Writer adds and removes items, it is used by the scanner.
type Writer interface {
	Put(ctx context.Context, item *Item) error
	Delete(ctx context.Context, path string) error
}

// Notifier reports changes of the indexed content.
type Notifier interface {
	Subscribe(fn func(ChangeEvent)) (unsubscribe func())
}

// Store is what every backend in this module implements.
type Store interface {
	Indexer
	Writer
	Notifier
}
