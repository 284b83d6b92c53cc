package cmd

import (
	"context"
	"io"

	"github.com/mwantia/mediameta"
	"github.com/mwantia/mediameta/data"
)

// API is the part of the source commands work with.
type API interface {
	// ID returns the prefix of every object id the source hands out.
	ID() string

	// Keys returns every metadata key name the source understands.
	Keys() []string

	// Browse lists the children of objectID.
	Browse(ctx context.Context, objectID string, req *mediameta.BrowseRequest) ([]mediameta.Entry, error)

	// GetMetadata resolves keys for every object id.
	// The returned map holds the objects that resolved, even when an error is returned.
	GetMetadata(ctx context.Context, objectIDs []string, keys []string) (map[string]data.Record, error)

	// SetMetadata writes values to one clip and returns the keys that could not be written.
	SetMetadata(ctx context.Context, objectID string, values data.Record) ([]string, error)
}

// Command represents an executable command of the mediameta binary.
type Command interface {
	// Name returns the command identifier
	Name() string

	// Description returns human-readable help text
	Description() string

	// Usage returns a usage string for help (e.g. "browse -k title [object-id]")
	Usage() string

	// Execute runs the command with parsed arguments
	// The writer parameter is where command output should be written
	// Returns exit code (0 = success) and error message
	Execute(ctx context.Context, api API, args *CommandArgs, writer io.Writer) (int, error)

	// GetFlags returns the flag set for this command (this is optional)
	GetFlags() *CommandFlagSet
}
