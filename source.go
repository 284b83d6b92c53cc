// Package mediameta translates abstract media metadata keys into content indexer queries and
// assembles the indexer results into metadata records for songs, videos, playlists and the
// category containers built on top of them.
package mediameta

import (
	"context"
	"fmt"
	"sync"

	"github.com/mwantia/mediameta/art"
	"github.com/mwantia/mediameta/cache"
	"github.com/mwantia/mediameta/data"
	"github.com/mwantia/mediameta/indexer"
	"github.com/mwantia/mediameta/keys"
	"github.com/mwantia/mediameta/log"
	"github.com/mwantia/mediameta/metrics"
)

// Source answers browse and metadata requests from an indexer.
type Source struct {
	mu  sync.RWMutex
	log *log.Logger

	id       string
	indexer  indexer.Indexer
	registry *keys.Registry
	locator  art.Locator
	metrics  *metrics.Metrics
	observer Observer

	playlistDuration PlaylistDurationFunc
	concurrency      int

	unsubscribe func()
	progress    progress
}

func NewSource(idx indexer.Indexer, opts ...SourceOption) (*Source, error) {
	if idx == nil {
		return nil, fmt.Errorf("%w: indexer must not be nil", data.ErrInvalid)
	}

	options := newDefaultSourceOptions()
	for _, opt := range opts {
		if err := opt(options); err != nil {
			return nil, err
		}
	}

	logger := options.Logger
	if logger == nil {
		logger = log.NewLogger("source", options.LogLevel, options.LogFile, options.NoTerminalLog)
	}

	return &Source{
		log:              logger.With("source", options.ID),
		id:               options.ID,
		indexer:          idx,
		registry:         options.Registry,
		locator:          options.Locator,
		metrics:          options.Metrics,
		observer:         options.Observer,
		playlistDuration: options.PlaylistDuration,
		concurrency:      options.Concurrency,
		progress:         progress{percent: -1},
	}, nil
}

// ID returns the prefix of every object id of this source.
func (s *Source) ID() string {
	return s.id
}

// Open opens the indexer and starts forwarding its change events to the observer.
func (s *Source) Open(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.indexer.Open(ctx); err != nil {
		return fmt.Errorf("failed to open indexer %s: %w", s.indexer.Name(), err)
	}

	if notifier, ok := s.indexer.(indexer.Notifier); ok && s.unsubscribe == nil {
		s.unsubscribe = notifier.Subscribe(s.handleChange)
	}

	s.log.Debug("Opened indexer '%s'", s.indexer.Name())
	return nil
}

// Close stops the change events and closes the indexer.
func (s *Source) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}

	return s.indexer.Close(ctx)
}

// ObjectID formats o for this source.
func (s *Source) ObjectID(o ObjectID) string {
	return o.Format(s.id)
}

// ParseObjectID parses an object id of this source.
func (s *Source) ParseObjectID(id string) (ObjectID, error) {
	return ParseObjectID(s.id, id)
}

func (s *Source) newCache(service data.Service, shape cache.Shape) *cache.ResultCache {
	return cache.New(service, shape, cache.WithRegistry(s.registry), cache.WithLocator(s.locator))
}

// native resolves the indexer name of k for service, "" when there is none.
func (s *Source) native(k keys.Key, service data.Service) string {
	native, _ := s.registry.ResolveNative(k, service)
	return native.Name
}

func (s *Source) query(ctx context.Context, q *indexer.Query) ([]data.Row, error) {
	s.metrics.IndexerCall(s.indexer.Name(), "query")
	return s.indexer.Query(ctx, q)
}

func (s *Source) uniqueValues(ctx context.Context, q *indexer.UniqueQuery) ([]data.Row, error) {
	s.metrics.IndexerCall(s.indexer.Name(), "unique")
	return s.indexer.UniqueValues(ctx, q)
}

func (s *Source) getMetadata(ctx context.Context, paths []string, native []string) ([]data.Row, error) {
	s.metrics.IndexerCall(s.indexer.Name(), "get-metadata")
	return s.indexer.GetMetadata(ctx, paths, native)
}

func (s *Source) stats(ctx context.Context) (map[data.Service]int, error) {
	s.metrics.IndexerCall(s.indexer.Name(), "stats")
	return s.indexer.Stats(ctx)
}

// Keys returns the names of every key a request may ask for.
func (s *Source) Keys() []string {
	return s.registry.Names(s.registry.All())
}
