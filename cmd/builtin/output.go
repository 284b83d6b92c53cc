package builtin

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/mwantia/mediameta/cmd"
	"github.com/mwantia/mediameta/data"
)

func jsonFlag() *cmd.CommandFlag {
	return &cmd.CommandFlag{Name: "json", Short: "j", Type: "bool", Description: "Print JSON instead of text"}
}

func writeJSON(writer io.Writer, v any) error {
	enc := json.NewEncoder(writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeRecord prints the record keys in name order, one per line.
func writeRecord(writer io.Writer, objectID string, record data.Record) {
	fmt.Fprintln(writer, objectID)
	if record == nil {
		fmt.Fprintln(writer, "  (not found)")
		return
	}

	names := make([]string, 0, len(record))
	for name := range record {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		fmt.Fprintf(writer, "  %s: %s\n", name, record[name].String())
	}
}
