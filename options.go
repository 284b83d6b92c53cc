package mediameta

import (
	"context"
	"fmt"
	"strings"

	"github.com/mwantia/mediameta/art"
	"github.com/mwantia/mediameta/keys"
	"github.com/mwantia/mediameta/log"
	"github.com/mwantia/mediameta/metrics"
)

// PlaylistDurationFunc computes the duration in seconds of a playlist clip, or of every playlist
// when objectID is the playlists container. It is called when the indexed duration is stale.
type PlaylistDurationFunc func(ctx context.Context, objectID string) (int, error)

type SourceOptions struct {
	ID            string
	LogLevel      log.LogLevel
	LogFile       string
	NoTerminalLog bool
	// Logger replaces the logger built from the log options.
	Logger *log.Logger

	Registry         *keys.Registry
	Locator          art.Locator
	Metrics          *metrics.Metrics
	Observer         Observer
	PlaylistDuration PlaylistDurationFunc

	// Concurrency bounds the indexer calls a single GetMetadata runs at once.
	Concurrency int
}

type SourceOption func(*SourceOptions) error

func newDefaultSourceOptions() *SourceOptions {
	return &SourceOptions{
		ID:          DefaultSourceID,
		LogLevel:    log.Info,
		Registry:    keys.Default(),
		Locator:     art.None{},
		Concurrency: 4,
	}
}

func WithSourceID(id string) SourceOption {
	return func(opts *SourceOptions) error {
		if id == "" || strings.Contains(id, objectIDSeparator) {
			return fmt.Errorf("invalid source id %q", id)
		}
		opts.ID = id
		return nil
	}
}

func WithLogLevel(logLevel log.LogLevel) SourceOption {
	return func(opts *SourceOptions) error {
		opts.LogLevel = logLevel
		return nil
	}
}

func WithoutTerminalLog() SourceOption {
	return func(opts *SourceOptions) error {
		opts.NoTerminalLog = true
		return nil
	}
}

func WithLogFile(logFile string) SourceOption {
	return func(opts *SourceOptions) error {
		opts.LogFile = logFile
		return nil
	}
}

func WithLogger(logger *log.Logger) SourceOption {
	return func(opts *SourceOptions) error {
		opts.Logger = logger
		return nil
	}
}

func WithRegistry(registry *keys.Registry) SourceOption {
	return func(opts *SourceOptions) error {
		if registry == nil {
			return fmt.Errorf("registry must not be nil")
		}
		opts.Registry = registry
		return nil
	}
}

func WithLocator(locator art.Locator) SourceOption {
	return func(opts *SourceOptions) error {
		if locator == nil {
			locator = art.None{}
		}
		opts.Locator = locator
		return nil
	}
}

func WithMetrics(m *metrics.Metrics) SourceOption {
	return func(opts *SourceOptions) error {
		opts.Metrics = m
		return nil
	}
}

func WithObserver(observer Observer) SourceOption {
	return func(opts *SourceOptions) error {
		opts.Observer = observer
		return nil
	}
}

func WithPlaylistDuration(fn PlaylistDurationFunc) SourceOption {
	return func(opts *SourceOptions) error {
		opts.PlaylistDuration = fn
		return nil
	}
}

func WithConcurrency(n int) SourceOption {
	return func(opts *SourceOptions) error {
		if n < 1 {
			return fmt.Errorf("concurrency must be at least 1, got %d", n)
		}
		opts.Concurrency = n
		return nil
	}
}
