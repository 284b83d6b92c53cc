package builtin

import (
	"context"
	"fmt"
	"io"

	"github.com/mwantia/mediameta/cmd"
)

// KeysCommand lists the metadata keys of the source.
type KeysCommand struct{}

func (*KeysCommand) Name() string        { return "keys" }
func (*KeysCommand) Description() string { return "List the metadata keys the source understands" }
func (*KeysCommand) Usage() string       { return "keys [-j]" }

func (*KeysCommand) Execute(ctx context.Context, api cmd.API, args *cmd.CommandArgs, writer io.Writer) (int, error) {
	keys := api.Keys()
	if args.Bool("json") {
		if err := writeJSON(writer, keys); err != nil {
			return 1, err
		}
		return 0, nil
	}

	for _, key := range keys {
		fmt.Fprintln(writer, key)
	}
	return 0, nil
}

func (*KeysCommand) GetFlags() *cmd.CommandFlagSet {
	return &cmd.CommandFlagSet{
		Flags: map[string]*cmd.CommandFlag{
			"json": jsonFlag(),
		},
	}
}
