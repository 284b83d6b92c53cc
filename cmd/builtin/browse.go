package builtin

import (
	"context"
	"fmt"
	"io"

	"github.com/mwantia/mediameta"
	"github.com/mwantia/mediameta/cmd"
	"github.com/mwantia/mediameta/indexer"
)

// BrowseCommand lists the children of a container.
type BrowseCommand struct{}

func (*BrowseCommand) Name() string { return "browse" }

func (*BrowseCommand) Description() string {
	return "List the children of a container object"
}

func (*BrowseCommand) Usage() string {
	return "browse [-k title,artist] [-f '(artist=A)'] [--sort=-duration] [-o 0] [-c 20] [-j] [object-id]"
}

func (*BrowseCommand) Execute(ctx context.Context, api cmd.API, args *cmd.CommandArgs, writer io.Writer) (int, error) {
	if len(args.Args) > 1 {
		return 2, fmt.Errorf("browse takes at most one object id")
	}

	objectID := mediameta.ObjectID{Category: mediameta.CategoryRoot}.Format(api.ID())
	if len(args.Args) == 1 {
		objectID = args.Args[0]
	}

	req := &mediameta.BrowseRequest{
		Keys:   args.List("keys"),
		Sort:   args.List("sort"),
		Offset: args.Int("offset"),
		Count:  args.Int("count"),
	}
	if req.Offset < 0 || req.Count < 0 {
		return 2, fmt.Errorf("offset and count must not be negative")
	}

	if text := args.String("filter"); text != "" {
		filter, err := indexer.ParseFilter(text)
		if err != nil {
			return 2, err
		}
		req.Filter = filter
	}

	entries, err := api.Browse(ctx, objectID, req)
	if err != nil {
		return 1, err
	}

	if args.Bool("json") {
		if err := writeJSON(writer, entries); err != nil {
			return 1, err
		}
		return 0, nil
	}

	for _, entry := range entries {
		writeRecord(writer, entry.ObjectID, entry.Metadata)
	}
	return 0, nil
}

func (*BrowseCommand) GetFlags() *cmd.CommandFlagSet {
	return &cmd.CommandFlagSet{
		Flags: map[string]*cmd.CommandFlag{
			"keys":   {Name: "keys", Short: "k", Type: "string", Description: "Comma separated metadata keys"},
			"filter": {Name: "filter", Short: "f", Type: "string", Description: "Filter expression"},
			"sort":   {Name: "sort", Short: "s", Type: "string", Description: "Comma separated sort keys, '-' prefix for descending"},
			"offset": {Name: "offset", Short: "o", Type: "int", Default: int64(0), Description: "Index of the first child"},
			"count":  {Name: "count", Short: "c", Type: "int", Default: int64(0), Description: "Maximum number of children, 0 for all"},
			"json":   jsonFlag(),
		},
	}
}
