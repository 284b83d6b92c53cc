package builtin

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/mwantia/mediameta/cmd"
	"github.com/mwantia/mediameta/log"
	"golang.org/x/sync/errgroup"
)

// Server serves the HTTP API until ctx is cancelled.
type Server interface {
	ListenAndServe(ctx context.Context) error
}

// Watcher follows file system changes below the media roots.
type Watcher interface {
	Watch(ctx context.Context, debounce time.Duration) error
}

// ServeCommand runs the HTTP API and rescans the media roots every Interval. With Watch set
// and a Scanner implementing Watcher, file system changes are indexed as they happen.
type ServeCommand struct {
	Server   Server
	Scanner  Scanner
	Interval time.Duration
	Watch    bool
	Debounce time.Duration
	Logger   *log.Logger
}

func (*ServeCommand) Name() string        { return "serve" }
func (*ServeCommand) Description() string { return "Serve the HTTP API and keep the index up to date" }
func (*ServeCommand) Usage() string       { return "serve [--no-scan]" }

func (sc *ServeCommand) Execute(ctx context.Context, api cmd.API, args *cmd.CommandArgs, writer io.Writer) (int, error) {
	if sc.Server == nil {
		return 1, fmt.Errorf("no server configured")
	}

	logger := sc.Logger
	if logger == nil {
		logger = log.Discard()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return sc.Server.ListenAndServe(gctx)
	})

	if sc.Scanner != nil && !args.Bool("no-scan") {
		g.Go(func() error {
			sc.rescan(gctx, logger)
			return nil
		})

		if watcher, ok := sc.Scanner.(Watcher); ok && sc.Watch {
			g.Go(func() error {
				return watcher.Watch(gctx, sc.Debounce)
			})
		}
	}

	if err := g.Wait(); err != nil {
		return 1, err
	}
	return 0, nil
}

// rescan scans once and then on every tick until ctx is done. Failures are logged only.
func (sc *ServeCommand) rescan(ctx context.Context, logger *log.Logger) {
	scan := func() {
		if err := sc.Scanner.Scan(ctx); err != nil && ctx.Err() == nil {
			logger.Warn("Scan failed: %v", err)
		}
	}

	scan()
	if sc.Interval <= 0 {
		return
	}

	ticker := time.NewTicker(sc.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			scan()
		}
	}
}

func (*ServeCommand) GetFlags() *cmd.CommandFlagSet {
	return &cmd.CommandFlagSet{
		Flags: map[string]*cmd.CommandFlag{
			"no-scan": {Name: "no-scan", Type: "bool", Description: "Do not scan the media roots"},
		},
	}
}
