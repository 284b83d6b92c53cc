package builtin

import (
	"context"
	"fmt"
	"io"

	"github.com/mwantia/mediameta/cmd"
)

// MetadataCommand prints metadata of one or more objects.
type MetadataCommand struct{}

func (*MetadataCommand) Name() string        { return "metadata" }
func (*MetadataCommand) Description() string { return "Print metadata of objects" }
func (*MetadataCommand) Usage() string       { return "metadata -k title,duration [-j] <object-id>..." }

func (*MetadataCommand) Execute(ctx context.Context, api cmd.API, args *cmd.CommandArgs, writer io.Writer) (int, error) {
	if len(args.Args) == 0 {
		return 2, fmt.Errorf("metadata requires at least one object id")
	}

	result, err := api.GetMetadata(ctx, args.Args, args.List("keys"))
	if result == nil && err != nil {
		return 1, err
	}

	if args.Bool("json") {
		if werr := writeJSON(writer, result); werr != nil {
			return 1, werr
		}
	} else {
		for _, objectID := range args.Args {
			record, ok := result[objectID]
			if !ok {
				continue
			}
			writeRecord(writer, objectID, record)
		}
	}

	// Objects that resolved are printed before the first failure is reported.
	if err != nil {
		return 1, err
	}
	return 0, nil
}

func (*MetadataCommand) GetFlags() *cmd.CommandFlagSet {
	return &cmd.CommandFlagSet{
		Flags: map[string]*cmd.CommandFlag{
			"keys": {Name: "keys", Short: "k", Type: "string", Required: true, Description: "Comma separated metadata keys"},
			"json": jsonFlag(),
		},
	}
}
