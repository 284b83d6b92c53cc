package indexer

import (
	"fmt"
	"strings"

	"github.com/mwantia/mediameta/data"
)

// ParseFilter reads filters such as "(&(artist=Madonna)(!(year<2000)))".
//
//	(k=v)   equals, a trailing unescaped '*' turns it into a prefix match
//	(k~v)   contains
//	(k<v)   less than
//	(k>v)   greater than
//	(k?)    key has a value
//	(&...)  (|...)  (!x)
//
// Backslash escapes the next character inside values.
func ParseFilter(text string) (*Filter, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}

	p := &filterParser{input: text}
	f, err := p.parse()
	if err != nil {
		return nil, err
	}
	if p.pos != len(p.input) {
		return nil, p.errorf("trailing input")
	}
	return f, nil
}

type filterParser struct {
	input string
	pos   int
}

func (p *filterParser) errorf(format string, args ...any) error {
	return fmt.Errorf("%w: filter at offset %d: %s", data.ErrInvalid, p.pos, fmt.Sprintf(format, args...))
}

func (p *filterParser) peek() byte {
	if p.pos < len(p.input) {
		return p.input[p.pos]
	}
	return 0
}

func (p *filterParser) expect(c byte) error {
	if p.peek() != c {
		return p.errorf("expected %q", c)
	}
	p.pos++
	return nil
}

func (p *filterParser) parse() (*Filter, error) {
	if err := p.expect('('); err != nil {
		return nil, err
	}

	var f *Filter
	switch p.peek() {
	case '&', '|':
		op := FilterAnd
		if p.peek() == '|' {
			op = FilterOr
		}
		p.pos++

		var children []*Filter
		for p.peek() == '(' {
			child, err := p.parse()
			if err != nil {
				return nil, err
			}
			children = append(children, child)
		}
		if len(children) == 0 {
			return nil, p.errorf("empty %s filter", op)
		}
		f = &Filter{Op: op, Children: children}
	case '!':
		p.pos++
		child, err := p.parse()
		if err != nil {
			return nil, err
		}
		f = Not(child)
	default:
		comparison, err := p.parseComparison()
		if err != nil {
			return nil, err
		}
		f = comparison
	}

	if err := p.expect(')'); err != nil {
		return nil, err
	}
	return f, nil
}

func (p *filterParser) parseComparison() (*Filter, error) {
	start := p.pos
	for p.pos < len(p.input) && !strings.ContainsRune("=~<>?()", rune(p.input[p.pos])) {
		p.pos++
	}
	key := strings.TrimSpace(p.input[start:p.pos])
	if key == "" {
		return nil, p.errorf("missing key")
	}

	symbol := p.peek()
	switch symbol {
	case '?':
		p.pos++
		return Exists(key), nil
	case '=', '~', '<', '>':
		p.pos++
	default:
		return nil, p.errorf("missing operator after %q", key)
	}

	var sb strings.Builder
	wildcard := false
	for p.pos < len(p.input) && p.input[p.pos] != ')' {
		c := p.input[p.pos]
		switch {
		case c == '\\' && p.pos+1 < len(p.input):
			p.pos++
			sb.WriteByte(p.input[p.pos])
		case c == '(':
			return nil, p.errorf("unescaped '('")
		case c == '*' && p.pos+1 < len(p.input) && p.input[p.pos+1] == ')':
			wildcard = true
		default:
			sb.WriteByte(c)
		}
		p.pos++
	}
	value := sb.String()

	switch symbol {
	case '~':
		return Contains(key, value), nil
	case '<':
		return Less(key, value), nil
	case '>':
		return Greater(key, value), nil
	}
	if wildcard {
		if value == "" {
			return Exists(key), nil
		}
		return Prefix(key, value), nil
	}
	return Equals(key, value), nil
}
