package main

import (
	"context"
	"fmt"

	"github.com/mwantia/mediameta/art"
	"github.com/mwantia/mediameta/art/local"
	"github.com/mwantia/mediameta/art/s3"
	"github.com/mwantia/mediameta/config"
	"github.com/mwantia/mediameta/indexer"
	"github.com/mwantia/mediameta/indexer/consul"
	"github.com/mwantia/mediameta/indexer/memory"
	"github.com/mwantia/mediameta/indexer/postgres"
	"github.com/mwantia/mediameta/indexer/sqlite"
)

// newStore creates the indexer backend selected by cfg.Type. The store is not opened yet.
func newStore(ctx context.Context, cfg config.IndexerConfig) (indexer.Store, error) {
	switch cfg.Type {
	case "memory":
		return memory.NewMemoryBackend(), nil
	case "sqlite":
		store, err := sqlite.NewSQLiteBackend(cfg.SQLite.Path)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "postgres":
		store, err := postgres.NewPostgresBackend(ctx, cfg.Postgres.DSN)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "consul":
		store, err := consul.NewConsulBackend(&consul.ConsulBackendConfig{
			Address:    cfg.Consul.Address,
			Token:      cfg.Consul.Token,
			Datacenter: cfg.Consul.Datacenter,
			Namespace:  cfg.Consul.Namespace,
			Prefix:     cfg.Consul.Prefix,
		})
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown indexer type '%s'", cfg.Type)
	}
}

// newLocator creates the art locator selected by cfg.Type, art.None when it is empty.
func newLocator(cfg config.ArtConfig) (art.Locator, error) {
	switch cfg.Type {
	case "", "none":
		return art.None{}, nil
	case "local":
		return local.NewLocator(cfg.Local.AlbumDir, cfg.Local.ThumbnailDir), nil
	case "s3":
		locator, err := s3.NewLocator(cfg.S3.Endpoint, cfg.S3.Bucket, cfg.S3.AccessKey, cfg.S3.SecretKey, cfg.S3.Prefix, cfg.S3.UseSSL)
		if err != nil {
			return nil, fmt.Errorf("failed to create s3 client: %w", err)
		}
		return locator, nil
	default:
		return nil, fmt.Errorf("unknown art type '%s'", cfg.Type)
	}
}
