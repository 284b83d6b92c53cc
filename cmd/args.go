package cmd

import "strings"

// CommandArgs contains parsed command arguments
type CommandArgs struct {
	// Positional arguments (command-specific)
	Args []string

	// Parsed flags, keyed by the flag set key
	Flags map[string]any

	// Raw unparsed arguments
	Raw []string
}

// String returns the flag value as string or "" when unset.
func (a *CommandArgs) String(name string) string {
	if v, ok := a.Flags[name].(string); ok {
		return v
	}
	return ""
}

// Int returns the flag value as int or 0 when unset.
func (a *CommandArgs) Int(name string) int {
	switch v := a.Flags[name].(type) {
	case int64:
		return int(v)
	case int:
		return v
	}
	return 0
}

// Bool reports whether a bool flag was given.
func (a *CommandArgs) Bool(name string) bool {
	v, _ := a.Flags[name].(bool)
	return v
}

// List splits a comma separated flag value, dropping empty parts.
func (a *CommandArgs) List(name string) []string {
	var result []string
	for _, part := range strings.Split(a.String(name), ",") {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}
	return result
}

// CommandFlagSet defines the expected flags for a command
type CommandFlagSet struct {
	Flags map[string]*CommandFlag
}

// CommandFlag represents a single command-line flag
type CommandFlag struct {
	Name        string `json:"name"`              // e.g., "keys"
	Short       string `json:"short"`             // Single-char shorthand (e.g., "k")
	Type        string `json:"type"`              // "string", "bool", "int"
	Default     any    `json:"default,omitempty"` // Default value
	Required    bool   `json:"required"`          // Must be provided
	Description string `json:"description"`       // Help text
}
