package sqlquery

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mwantia/mediameta/data"
	"github.com/mwantia/mediameta/indexer"
	"github.com/mwantia/mediameta/indexer/eval"
)

type builder struct {
	d       Dialect
	args    []any
	aliases map[string]string
	joins   []string
}

func newBuilder(d Dialect) *builder {
	return &builder{d: d, aliases: make(map[string]string)}
}

func (b *builder) arg(v any) string {
	b.args = append(b.args, v)
	return b.d.Placeholder(len(b.args))
}

// column returns the value expression of key, joining media_values on first use.
func (b *builder) column(key string) string {
	alias, ok := b.aliases[key]
	if !ok {
		alias = "v" + strconv.Itoa(len(b.joins))
		b.aliases[key] = alias
		b.joins = append(b.joins, fmt.Sprintf("LEFT JOIN media_values %s ON %s.item_id = i.id AND %s.key = %s",
			alias, alias, alias, b.arg(key)))
	}
	return alias + ".value"
}

func (b *builder) from() string {
	return "FROM media_items i " + strings.Join(b.joins, " ")
}

func (b *builder) where(f *indexer.Filter) (string, error) {
	switch f.Op {
	case indexer.FilterAnd, indexer.FilterOr:
		parts := make([]string, len(f.Children))
		for i, child := range f.Children {
			part, err := b.where(child)
			if err != nil {
				return "", err
			}
			parts[i] = part
		}
		glue := " AND "
		if f.Op == indexer.FilterOr {
			glue = " OR "
		}
		return "(" + strings.Join(parts, glue) + ")", nil
	case indexer.FilterNot:
		part, err := b.where(f.Children[0])
		if err != nil {
			return "", err
		}
		// Missing values never match a comparison, so NOT must treat NULL as false.
		return "(COALESCE(" + part + ", FALSE) = FALSE)", nil
	}

	col := b.column(f.Key)
	switch f.Op {
	case indexer.FilterEquals, indexer.FilterLess, indexer.FilterGreater:
		symbol := map[indexer.FilterOp]string{indexer.FilterEquals: "=", indexer.FilterLess: "<", indexer.FilterGreater: ">"}[f.Op]
		if f.Numeric {
			return fmt.Sprintf("(%s IS NOT NULL AND %s %s %s)", col, b.d.Number(col), symbol, b.arg(eval.Number(f.Value))), nil
		}
		return fmt.Sprintf("(%s %s %s)", b.d.Text(col), symbol, b.d.Text(b.arg(f.Value))), nil
	case indexer.FilterContains:
		return fmt.Sprintf("(LOWER(%s) LIKE %s ESCAPE '\\')", col, b.arg("%"+escapeLike(strings.ToLower(f.Value))+"%")), nil
	case indexer.FilterPrefix:
		p := b.arg(f.Value)
		return fmt.Sprintf("(SUBSTR(%s, 1, LENGTH(%s)) = %s)", col, p, p), nil
	case indexer.FilterIn:
		if len(f.Values) == 0 {
			return "(1 = 0)", nil
		}
		params := make([]string, len(f.Values))
		for i, v := range f.Values {
			params[i] = b.arg(v)
		}
		return fmt.Sprintf("(%s IN (%s))", col, strings.Join(params, ", ")), nil
	case indexer.FilterExists:
		return fmt.Sprintf("(%s IS NOT NULL AND %s <> '')", col, col), nil
	default:
		return "", fmt.Errorf("%w: unknown filter op %q", data.ErrInvalid, f.Op)
	}
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// Select renders a query whose rows are [path, service, values of keys...]. Missing values
// are empty strings.
func Select(d Dialect, service data.Service, keys []string, filter *indexer.Filter, sort []indexer.SortField, offset, count int) (string, []any, error) {
	if err := filter.Validate(); err != nil {
		return "", nil, err
	}
	b := newBuilder(d)

	columns := make([]string, 0, len(keys)+2)
	columns = append(columns, "i.path", "i.service")
	for _, key := range keys {
		columns = append(columns, "COALESCE("+b.column(key)+", '')")
	}

	conditions := []string{"i.service = " + b.arg(int(service))}
	if filter != nil {
		cond, err := b.where(filter)
		if err != nil {
			return "", nil, err
		}
		conditions = append(conditions, cond)
	}

	order := make([]string, 0, len(sort)+1)
	for _, field := range sort {
		expr := "COALESCE(" + b.column(field.Key) + ", '')"
		if field.Numeric {
			expr = b.d.Number(b.column(field.Key))
		} else {
			expr = b.d.Text(expr)
		}
		if field.Order == indexer.SortDesc {
			expr += " DESC"
		}
		order = append(order, expr)
	}
	order = append(order, b.d.Text("i.path"))

	query := fmt.Sprintf("SELECT %s %s WHERE %s ORDER BY %s%s",
		strings.Join(columns, ", "), b.from(), strings.Join(conditions, " AND "), strings.Join(order, ", "), b.page(offset, count))
	return query, b.args, nil
}

func (b *builder) page(offset, count int) string {
	if count <= 0 && offset <= 0 {
		return ""
	}
	limit := b.d.NoLimit
	if count > 0 {
		limit = b.arg(count)
	}
	clause := " LIMIT " + limit
	if offset > 0 {
		clause += " OFFSET " + b.arg(offset)
	}
	return clause
}

// Lookup renders a query whose rows are [path, values of keys...] for the given paths.
func Lookup(d Dialect, paths []string, keys []string) (string, []any) {
	b := newBuilder(d)

	columns := make([]string, 0, len(keys)+1)
	columns = append(columns, "i.path")
	for _, key := range keys {
		columns = append(columns, "COALESCE("+b.column(key)+", '')")
	}

	params := make([]string, len(paths))
	for i, path := range paths {
		params[i] = b.arg(path)
	}
	if len(params) == 0 {
		params = append(params, "NULL")
	}

	query := fmt.Sprintf("SELECT %s %s WHERE i.path IN (%s)", strings.Join(columns, ", "), b.from(), strings.Join(params, ", "))
	return query, b.args
}
