package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/mwantia/mediameta"
	"github.com/mwantia/mediameta/cmd"
	"github.com/mwantia/mediameta/cmd/builtin"
	"github.com/mwantia/mediameta/config"
	"github.com/mwantia/mediameta/log"
	"github.com/mwantia/mediameta/metrics"
	"github.com/mwantia/mediameta/scanner"
	"github.com/mwantia/mediameta/server"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// splitGlobal separates "--config <file>" from the command line.
func splitGlobal(args []string) (configPath string, rest []string, err error) {
	for len(args) > 0 {
		switch args[0] {
		case "-config", "--config":
			if len(args) < 2 {
				return "", nil, fmt.Errorf("flag %s requires a value", args[0])
			}
			configPath = args[1]
			args = args[2:]
		default:
			return configPath, args, nil
		}
	}
	return configPath, args, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	configPath, args, err := splitGlobal(args)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}
	if configPath == "" {
		configPath = os.Getenv("MEDIAMETA_CONFIG")
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	logger := log.NewLogger("mediameta", cfg.Log.Level, cfg.Log.File, cfg.Log.NoTerminal)

	store, err := newStore(ctx, cfg.Indexer)
	if err != nil {
		logger.Error("Failed to create indexer: %v", err)
		return 1
	}
	locator, err := newLocator(cfg.Art)
	if err != nil {
		logger.Error("Failed to create art locator: %v", err)
		return 1
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewMetrics(registry)

	source, err := mediameta.NewSource(store,
		mediameta.WithSourceID(cfg.SourceID),
		mediameta.WithLogger(logger.Named("source")),
		mediameta.WithLocator(locator),
		mediameta.WithMetrics(m),
	)
	if err != nil {
		logger.Error("Failed to create source: %v", err)
		return 1
	}

	if err := source.Open(ctx); err != nil {
		logger.Error("Failed to open source: %v", err)
		return 1
	}
	defer source.Close(context.Background())

	var scan builtin.Scanner
	if len(cfg.Scanner.Roots) > 0 {
		sc, err := scanner.New(store, cfg.Scanner.Roots,
			scanner.WithLogger(logger.Named("scanner")),
			scanner.WithMetrics(m),
			scanner.WithPrune(cfg.Scanner.Prune),
			scanner.WithProgress(func(p scanner.Progress) {
				source.IndexProgress(p.Indexing, p.Done, p.Remaining, p.Elapsed)
			}),
		)
		if err != nil {
			logger.Error("Failed to create scanner: %v", err)
			return 1
		}
		scan = sc
	}

	srv := server.New(source, cfg.Server,
		server.WithLogger(logger.Named("server")),
		server.WithGatherer(registry),
	)

	manager := cmd.NewManager(source)
	err = builtin.Register(manager,
		&builtin.ScanCommand{Scanner: scan},
		&builtin.ServeCommand{
			Server:   srv,
			Scanner:  scan,
			Interval: cfg.Scanner.Interval,
			Watch:    cfg.Scanner.Watch,
			Debounce: cfg.Scanner.Debounce,
			Logger:   logger.Named("serve"),
		},
	)
	if err != nil {
		logger.Error("Failed to register commands: %v", err)
		return 1
	}

	if len(args) == 0 || args[0] == "help" {
		fmt.Fprintln(stdout, "usage: mediameta [--config file] <command> [flags] [args]")
		fmt.Fprintln(stdout)
		manager.Usage(stdout)
		return 0
	}

	code, err := manager.Execute(ctx, stdout, args...)
	if err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", args[0], err)
	}
	return code
}
