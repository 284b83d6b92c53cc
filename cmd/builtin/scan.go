package builtin

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/mwantia/mediameta/cmd"
)

// Scanner indexes the media roots.
type Scanner interface {
	Scan(ctx context.Context) error
}

// ScanCommand runs one scan of the configured media roots.
type ScanCommand struct {
	Scanner Scanner
}

func (*ScanCommand) Name() string        { return "scan" }
func (*ScanCommand) Description() string { return "Index the configured media roots once" }
func (*ScanCommand) Usage() string       { return "scan" }

func (sc *ScanCommand) Execute(ctx context.Context, api cmd.API, args *cmd.CommandArgs, writer io.Writer) (int, error) {
	if sc.Scanner == nil {
		return 1, fmt.Errorf("no media roots configured")
	}

	start := time.Now()
	if err := sc.Scanner.Scan(ctx); err != nil {
		fmt.Fprintf(writer, "scan finished with errors after %v\n", time.Since(start).Round(time.Millisecond))
		return 1, err
	}

	fmt.Fprintf(writer, "scan finished after %v\n", time.Since(start).Round(time.Millisecond))
	return 0, nil
}

func (*ScanCommand) GetFlags() *cmd.CommandFlagSet {
	return nil
}
