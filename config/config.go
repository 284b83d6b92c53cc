// Package config loads the YAML configuration of the mediameta binary.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mwantia/mediameta/log"
)

type Config struct {
	SourceID string        `yaml:"source_id"`
	Log      LogConfig     `yaml:"log"`
	Indexer  IndexerConfig `yaml:"indexer"`
	Art      ArtConfig     `yaml:"art"`
	Server   ServerConfig  `yaml:"server"`
	Scanner  ScannerConfig `yaml:"scanner"`
}

type LogConfig struct {
	Level      log.LogLevel `yaml:"level"`
	File       string       `yaml:"file"`
	NoTerminal bool         `yaml:"no_terminal"`
}

// IndexerConfig selects one indexer backend by Type.
type IndexerConfig struct {
	// Type is one of memory, sqlite, postgres or consul.
	Type     string         `yaml:"type"`
	SQLite   SQLiteConfig   `yaml:"sqlite"`
	Postgres PostgresConfig `yaml:"postgres"`
	Consul   ConsulConfig   `yaml:"consul"`
}

type SQLiteConfig struct {
	Path string `yaml:"path"`
}

type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

type ConsulConfig struct {
	Address    string `yaml:"address"`
	Token      string `yaml:"token"`
	Datacenter string `yaml:"datacenter"`
	Namespace  string `yaml:"namespace"`
	Prefix     string `yaml:"prefix"`
}

// ArtConfig selects where album art and thumbnails are looked up. An empty Type disables art.
type ArtConfig struct {
	Type  string         `yaml:"type"`
	Local LocalArtConfig `yaml:"local"`
	S3    S3ArtConfig    `yaml:"s3"`
}

type LocalArtConfig struct {
	AlbumDir     string `yaml:"album_dir"`
	ThumbnailDir string `yaml:"thumbnail_dir"`
}

type S3ArtConfig struct {
	Endpoint  string `yaml:"endpoint"`
	Bucket    string `yaml:"bucket"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Prefix    string `yaml:"prefix"`
	UseSSL    bool   `yaml:"use_ssl"`
}

type ServerConfig struct {
	Address         string        `yaml:"address"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MetricsPath     string        `yaml:"metrics_path"`
}

type ScannerConfig struct {
	Roots []string `yaml:"roots"`
	Prune bool     `yaml:"prune"`
	// Interval rescans periodically while serving; zero scans once at startup.
	Interval time.Duration `yaml:"interval"`
	// Watch follows file system events while serving.
	Watch    bool          `yaml:"watch"`
	Debounce time.Duration `yaml:"debounce"`
}

// Load reads the file at path. An empty path yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Config{Log: LogConfig{Level: log.Info}}

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	setDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func setDefaults(cfg *Config) {
	if cfg.SourceID == "" {
		cfg.SourceID = "localtagfs"
	}

	if cfg.Indexer.Type == "" {
		cfg.Indexer.Type = "memory"
	}
	if cfg.Indexer.SQLite.Path == "" {
		cfg.Indexer.SQLite.Path = "mediameta.db"
	}
	if cfg.Indexer.Consul.Address == "" {
		cfg.Indexer.Consul.Address = "127.0.0.1:8500"
	}
	if cfg.Indexer.Consul.Prefix == "" {
		cfg.Indexer.Consul.Prefix = "mediameta/"
	}

	if cfg.Server.Address == "" {
		cfg.Server.Address = ":8080"
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 10 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 30 * time.Second
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 15 * time.Second
	}
	if cfg.Server.MetricsPath == "" {
		cfg.Server.MetricsPath = "/metrics"
	}
}

func (c *Config) Validate() error {
	var errs []error

	if c.SourceID == "" || strings.Contains(c.SourceID, "::") {
		errs = append(errs, fmt.Errorf("source_id %q is invalid", c.SourceID))
	}

	switch c.Indexer.Type {
	case "memory", "sqlite", "consul":
	case "postgres":
		if c.Indexer.Postgres.DSN == "" {
			errs = append(errs, fmt.Errorf("indexer.postgres.dsn is required"))
		}
	default:
		errs = append(errs, fmt.Errorf("indexer.type %q is unknown", c.Indexer.Type))
	}

	switch c.Art.Type {
	case "", "none":
	case "local":
		if c.Art.Local.AlbumDir == "" && c.Art.Local.ThumbnailDir == "" {
			errs = append(errs, fmt.Errorf("art.local needs album_dir or thumbnail_dir"))
		}
	case "s3":
		if c.Art.S3.Endpoint == "" || c.Art.S3.Bucket == "" {
			errs = append(errs, fmt.Errorf("art.s3.endpoint and art.s3.bucket are required"))
		}
	default:
		errs = append(errs, fmt.Errorf("art.type %q is unknown", c.Art.Type))
	}

	if !strings.HasPrefix(c.Server.MetricsPath, "/") {
		errs = append(errs, fmt.Errorf("server.metrics_path must start with '/'"))
	}
	if c.Scanner.Interval < 0 {
		errs = append(errs, fmt.Errorf("scanner.interval must not be negative"))
	}
	if c.Scanner.Debounce < 0 {
		errs = append(errs, fmt.Errorf("scanner.debounce must not be negative"))
	}

	return errors.Join(errs...)
}
