package builtin

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/mwantia/mediameta/cmd"
	"github.com/mwantia/mediameta/data"
)

// SetCommand writes metadata of a clip.
type SetCommand struct{}

func (*SetCommand) Name() string        { return "set" }
func (*SetCommand) Description() string { return "Write writable metadata keys of a clip" }
func (*SetCommand) Usage() string       { return "set <object-id> key=value..." }

func (*SetCommand) Execute(ctx context.Context, api cmd.API, args *cmd.CommandArgs, writer io.Writer) (int, error) {
	if len(args.Args) < 2 {
		return 2, fmt.Errorf("set requires an object id and at least one key=value pair")
	}

	values, err := parseAssignments(args.Args[1:])
	if err != nil {
		return 2, err
	}

	failed, err := api.SetMetadata(ctx, args.Args[0], values)
	for _, key := range failed {
		fmt.Fprintf(writer, "failed: %s\n", key)
	}
	if err != nil {
		return 1, err
	}

	fmt.Fprintf(writer, "updated %d keys\n", len(values))
	return 0, nil
}

func (*SetCommand) GetFlags() *cmd.CommandFlagSet {
	return nil
}

// parseAssignments reads key=value pairs; integer values become Long values.
func parseAssignments(pairs []string) (data.Record, error) {
	values := make(data.Record, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid assignment %q, expected key=value", pair)
		}

		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			values.Set(key, data.LongValue(n))
		} else {
			values.Set(key, data.StringValue(value))
		}
	}
	return values, nil
}
