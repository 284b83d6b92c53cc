package cmd

import (
	"fmt"
	"strconv"
	"strings"
)

// Parser parses user-defined arguments into flags
type Parser struct {
	flagSet *CommandFlagSet
	long    map[string]string
	short   map[string]string
}

// NewParser returns a parser for flagSet; nil accepts positional arguments only.
func NewParser(flagSet *CommandFlagSet) *Parser {
	if flagSet == nil {
		flagSet = &CommandFlagSet{Flags: make(map[string]*CommandFlag)}
	}

	p := &Parser{
		flagSet: flagSet,
		long:    make(map[string]string, len(flagSet.Flags)),
		short:   make(map[string]string, len(flagSet.Flags)),
	}
	for key, flag := range flagSet.Flags {
		p.long[flag.Name] = key
		if flag.Short != "" {
			p.short[flag.Short] = key
		}
	}
	return p
}

// Parse splits raw into flags and positional arguments. Values may follow as the next
// argument, after '=' for long flags or attached for short flags ("-c5").
// Everything after "--" is positional.
func (p *Parser) Parse(raw []string) (*CommandArgs, error) {
	args := &CommandArgs{
		Flags: make(map[string]any),
		Raw:   raw,
	}

	for key, flag := range p.flagSet.Flags {
		if flag.Default != nil {
			args.Flags[key] = flag.Default
		}
	}

	for i := 0; i < len(raw); i++ {
		arg := raw[i]

		var (
			consumed int
			err      error
		)
		switch {
		case arg == "--":
			args.Args = append(args.Args, raw[i+1:]...)
			return args, p.checkRequired(args)
		case strings.HasPrefix(arg, "--"):
			consumed, err = p.parseLong(args, arg, raw[i+1:])
		case strings.HasPrefix(arg, "-") && len(arg) > 1 && !isNumber(arg):
			consumed, err = p.parseShort(args, arg, raw[i+1:])
		default:
			args.Args = append(args.Args, arg)
		}

		if err != nil {
			return nil, err
		}
		i += consumed
	}

	return args, p.checkRequired(args)
}

// parseLong handles "--name", "--name=value" and "--name value". It returns the number of
// following arguments used as value.
func (p *Parser) parseLong(args *CommandArgs, arg string, next []string) (int, error) {
	name, value, hasValue := strings.Cut(strings.TrimPrefix(arg, "--"), "=")

	key, exists := p.long[name]
	if !exists {
		return 0, fmt.Errorf("unknown flag: --%s", name)
	}
	flag := p.flagSet.Flags[key]

	if flag.Type == "bool" {
		args.Flags[key] = !hasValue || parseBool(value)
		return 0, nil
	}

	consumed := 0
	if !hasValue {
		if len(next) == 0 || !isValue(next[0]) {
			return 0, fmt.Errorf("flag --%s requires a value", name)
		}
		value, consumed = next[0], 1
	}

	v, err := coerce(value, flag.Type)
	if err != nil {
		return 0, fmt.Errorf("flag --%s: %w", name, err)
	}
	args.Flags[key] = v
	return consumed, nil
}

// parseShort handles grouped short flags ("-jc 5"); the first flag taking a value ends the
// group and uses the rest of the group or the next argument.
func (p *Parser) parseShort(args *CommandArgs, arg string, next []string) (int, error) {
	group := arg[1:]

	for j, r := range group {
		name := string(r)
		key, exists := p.short[name]
		if !exists {
			return 0, fmt.Errorf("unknown flag: -%s", name)
		}
		flag := p.flagSet.Flags[key]

		if flag.Type == "bool" {
			args.Flags[key] = true
			continue
		}

		value, consumed := group[j+len(name):], 0
		if value == "" {
			if len(next) == 0 || !isValue(next[0]) {
				return 0, fmt.Errorf("flag -%s requires a value", name)
			}
			value, consumed = next[0], 1
		}

		v, err := coerce(value, flag.Type)
		if err != nil {
			return 0, fmt.Errorf("flag -%s: %w", name, err)
		}
		args.Flags[key] = v
		return consumed, nil
	}

	return 0, nil
}

func (p *Parser) checkRequired(args *CommandArgs) error {
	for key, flag := range p.flagSet.Flags {
		if !flag.Required {
			continue
		}
		if _, ok := args.Flags[key]; ok {
			continue
		}

		if flag.Short != "" {
			return fmt.Errorf("required flag: -%s / --%s", flag.Short, flag.Name)
		}
		return fmt.Errorf("required flag: --%s", flag.Name)
	}
	return nil
}

// isValue reports whether arg can be consumed as a flag value.
func isValue(arg string) bool {
	return !strings.HasPrefix(arg, "-") || isNumber(arg)
}

func isNumber(arg string) bool {
	_, err := strconv.ParseInt(arg, 10, 64)
	return err == nil
}

func parseBool(value string) bool {
	return value == "true" || value == "1" || value == "yes"
}

func coerce(value string, typeStr string) (any, error) {
	switch typeStr {
	case "int":
		v, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid integer %q", value)
		}
		return v, nil
	case "bool":
		return parseBool(value), nil
	default:
		return value, nil
	}
}
