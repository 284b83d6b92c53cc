// Package builtin holds the commands of the mediameta binary.
package builtin

import (
	"github.com/mwantia/mediameta/cmd"
)

// Register adds the query commands plus the given extra commands to m.
func Register(m *cmd.Manager, extra ...cmd.Command) error {
	commands := append([]cmd.Command{
		&KeysCommand{},
		&BrowseCommand{},
		&MetadataCommand{},
		&SetCommand{},
	}, extra...)

	for _, c := range commands {
		if err := m.Register(c); err != nil {
			return err
		}
	}
	return nil
}
