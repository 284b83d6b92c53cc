package indexer

import (
	"fmt"
	"strings"

	"github.com/mwantia/mediameta/data"
)

type FilterOp string

const (
	FilterAnd FilterOp = "and"
	FilterOr  FilterOp = "or"
	FilterNot FilterOp = "not"

	FilterEquals   FilterOp = "eq"
	FilterContains FilterOp = "contains"
	FilterPrefix   FilterOp = "prefix"
	FilterLess     FilterOp = "lt"
	FilterGreater  FilterOp = "gt"
	FilterIn       FilterOp = "in"
	FilterExists   FilterOp = "exists"
)

func (op FilterOp) logical() bool {
	return op == FilterAnd || op == FilterOr || op == FilterNot
}

// Filter is a tree of logical nodes over key comparisons. A nil Filter matches everything.
type Filter struct {
	Op       FilterOp  `json:"op"`
	Key      string    `json:"key,omitempty"`
	Value    string    `json:"value,omitempty"`
	Values   []string  `json:"values,omitempty"`
	Numeric  bool      `json:"numeric,omitempty"`
	Children []*Filter `json:"children,omitempty"`
}

// And drops nil children and collapses to the single remaining child.
func And(children ...*Filter) *Filter {
	return logical(FilterAnd, children)
}

func Or(children ...*Filter) *Filter {
	return logical(FilterOr, children)
}

func logical(op FilterOp, children []*Filter) *Filter {
	kept := make([]*Filter, 0, len(children))
	for _, child := range children {
		if child != nil {
			kept = append(kept, child)
		}
	}
	switch len(kept) {
	case 0:
		return nil
	case 1:
		return kept[0]
	default:
		return &Filter{Op: op, Children: kept}
	}
}

func Not(child *Filter) *Filter {
	return &Filter{Op: FilterNot, Children: []*Filter{child}}
}

func Equals(key, value string) *Filter {
	return &Filter{Op: FilterEquals, Key: key, Value: value}
}

func Contains(key, value string) *Filter {
	return &Filter{Op: FilterContains, Key: key, Value: value}
}

func Prefix(key, value string) *Filter {
	return &Filter{Op: FilterPrefix, Key: key, Value: value}
}

func Less(key, value string) *Filter {
	return &Filter{Op: FilterLess, Key: key, Value: value}
}

func Greater(key, value string) *Filter {
	return &Filter{Op: FilterGreater, Key: key, Value: value}
}

func In(key string, values ...string) *Filter {
	return &Filter{Op: FilterIn, Key: key, Values: values}
}

func Exists(key string) *Filter {
	return &Filter{Op: FilterExists, Key: key}
}

func (f *Filter) Validate() error {
	if f == nil {
		return nil
	}

	switch f.Op {
	case FilterAnd, FilterOr:
		if len(f.Children) == 0 {
			return fmt.Errorf("%w: %s filter without children", data.ErrInvalid, f.Op)
		}
	case FilterNot:
		if len(f.Children) != 1 {
			return fmt.Errorf("%w: not filter needs exactly one child", data.ErrInvalid)
		}
	case FilterEquals, FilterContains, FilterPrefix, FilterLess, FilterGreater, FilterIn, FilterExists:
		if f.Key == "" {
			return fmt.Errorf("%w: %s filter without key", data.ErrInvalid, f.Op)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown filter op %q", data.ErrInvalid, f.Op)
	}

	for _, child := range f.Children {
		if child == nil {
			return fmt.Errorf("%w: nil filter child", data.ErrInvalid)
		}
		if err := child.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Keys returns the keys the filter compares, without duplicates.
func (f *Filter) Keys() []string {
	var result []string
	seen := make(map[string]bool)
	f.walk(func(node *Filter) {
		if !node.Op.logical() && !seen[node.Key] {
			seen[node.Key] = true
			result = append(result, node.Key)
		}
	})
	return result
}

func (f *Filter) walk(fn func(*Filter)) {
	if f == nil {
		return
	}
	fn(f)
	for _, child := range f.Children {
		child.walk(fn)
	}
}

// Translate returns a copy with every key replaced through fn. fn also decides whether a
// comparison is numeric.
func (f *Filter) Translate(fn func(key string) (native string, numeric bool, err error)) (*Filter, error) {
	if f == nil {
		return nil, nil
	}

	clone := *f
	if !f.Op.logical() {
		native, numeric, err := fn(f.Key)
		if err != nil {
			return nil, err
		}
		clone.Key = native
		clone.Numeric = numeric
		clone.Values = append([]string(nil), f.Values...)
		return &clone, nil
	}

	clone.Children = make([]*Filter, len(f.Children))
	for i, child := range f.Children {
		translated, err := child.Translate(fn)
		if err != nil {
			return nil, err
		}
		clone.Children[i] = translated
	}
	return &clone, nil
}

// String renders the filter in the syntax ParseFilter reads.
func (f *Filter) String() string {
	if f == nil {
		return ""
	}

	var sb strings.Builder
	switch f.Op {
	case FilterAnd, FilterOr, FilterNot:
		sb.WriteString("(")
		sb.WriteString(map[FilterOp]string{FilterAnd: "&", FilterOr: "|", FilterNot: "!"}[f.Op])
		for _, child := range f.Children {
			sb.WriteString(child.String())
		}
		sb.WriteString(")")
	case FilterIn:
		parts := make([]string, len(f.Values))
		for i, v := range f.Values {
			parts[i] = "(" + f.Key + "=" + escapeFilterValue(v) + ")"
		}
		if len(parts) == 1 {
			return parts[0]
		}
		return "(|" + strings.Join(parts, "") + ")"
	case FilterExists:
		return "(" + f.Key + "?)"
	case FilterPrefix:
		return "(" + f.Key + "=" + escapeFilterValue(f.Value) + "*)"
	default:
		symbol := map[FilterOp]string{FilterEquals: "=", FilterContains: "~", FilterLess: "<", FilterGreater: ">"}[f.Op]
		return "(" + f.Key + symbol + escapeFilterValue(f.Value) + ")"
	}
	return sb.String()
}

func escapeFilterValue(v string) string {
	var sb strings.Builder
	for _, r := range v {
		switch r {
		case '(', ')', '\\', '*':
			sb.WriteRune('\\')
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
