// Package eval evaluates indexer queries over items held in memory. Backends that cannot push a
// query down share it so every backend answers with the same semantics.
package eval

import (
	"sort"
	"strconv"
	"strings"

	"github.com/mwantia/mediameta/data"
	"github.com/mwantia/mediameta/indexer"
)

// Match reports whether item satisfies f. A nil filter matches every item.
func Match(f *indexer.Filter, item *indexer.Item) bool {
	if f == nil {
		return true
	}

	switch f.Op {
	case indexer.FilterAnd:
		for _, child := range f.Children {
			if !Match(child, item) {
				return false
			}
		}
		return true
	case indexer.FilterOr:
		for _, child := range f.Children {
			if Match(child, item) {
				return true
			}
		}
		return false
	case indexer.FilterNot:
		return len(f.Children) == 1 && !Match(f.Children[0], item)
	}

	value, exists := item.Values[f.Key]
	switch f.Op {
	case indexer.FilterEquals:
		return exists && Compare(value, f.Value, f.Numeric) == 0
	case indexer.FilterContains:
		return exists && strings.Contains(strings.ToLower(value), strings.ToLower(f.Value))
	case indexer.FilterPrefix:
		return exists && strings.HasPrefix(value, f.Value)
	case indexer.FilterLess:
		return exists && Compare(value, f.Value, f.Numeric) < 0
	case indexer.FilterGreater:
		return exists && Compare(value, f.Value, f.Numeric) > 0
	case indexer.FilterIn:
		if !exists {
			return false
		}
		for _, candidate := range f.Values {
			if value == candidate {
				return true
			}
		}
		return false
	case indexer.FilterExists:
		return exists && value != ""
	default:
		return false
	}
}

// Compare orders two values as text or, when numeric, by their leading number.
func Compare(a, b string, numeric bool) int {
	if numeric {
		x, y := Number(a), Number(b)
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		default:
			return 0
		}
	}
	return strings.Compare(a, b)
}

// Number parses the leading decimal number of s, 0 when there is none.
func Number(s string) float64 {
	s = strings.TrimSpace(s)
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	dot := false
	for end < len(s) {
		c := s[end]
		if c == '.' && !dot {
			dot = true
		} else if c < '0' || c > '9' {
			break
		}
		end++
	}

	f, err := strconv.ParseFloat(strings.TrimSuffix(s[:end], "."), 64)
	if err != nil {
		return 0
	}
	return f
}

// Filter returns the items of service that match f, keeping their order.
func Filter(items []*indexer.Item, service data.Service, f *indexer.Filter) []*indexer.Item {
	result := make([]*indexer.Item, 0, len(items))
	for _, item := range items {
		if item.Service == service && Match(f, item) {
			result = append(result, item)
		}
	}
	return result
}

// Sort orders items by fields, falling back to the path.
func Sort(items []*indexer.Item, fields []indexer.SortField) {
	sort.SliceStable(items, func(i, j int) bool {
		for _, field := range fields {
			c := Compare(items[i].Value(field.Key), items[j].Value(field.Key), field.Numeric)
			if c == 0 {
				continue
			}
			if field.Order == indexer.SortDesc {
				return c > 0
			}
			return c < 0
		}
		return items[i].Path < items[j].Path
	})
}

// Project returns the values of keys for item, nil for a nil item.
func Project(item *indexer.Item, keys []string) data.Row {
	if item == nil {
		return nil
	}
	row := make(data.Row, len(keys))
	for i, key := range keys {
		row[i] = item.Value(key)
	}
	return row
}

// Select answers a query: rows are [path, service, values...].
func Select(items []*indexer.Item, q *indexer.Query) []data.Row {
	matched := Filter(items, q.Service, q.Filter)
	Sort(matched, q.Sort)
	matched = indexer.Page(matched, q.Offset, q.Count)

	rows := make([]data.Row, len(matched))
	for i, item := range matched {
		row := make(data.Row, 0, len(q.Keys)+2)
		row = append(row, item.Path, item.Service.String())
		row = append(row, Project(item, q.Keys)...)
		rows[i] = row
	}
	return rows
}

// Group answers a unique query over items that already passed the filter when prefiltered is
// set, and over all items otherwise.
func Group(items []*indexer.Item, q *indexer.UniqueQuery, prefiltered bool) []data.Row {
	if !prefiltered {
		items = Filter(items, q.Service, q.Filter)
	}

	groups := make(map[string][]*indexer.Item)
	for _, item := range items {
		value := item.Value(q.Key)
		if value == "" {
			continue
		}
		groups[value] = append(groups[value], item)
	}

	values := make([]string, 0, len(groups))
	for value := range groups {
		values = append(values, value)
	}
	sort.Strings(values)
	values = indexer.Page(values, q.Offset, q.Count)

	rows := make([]data.Row, len(values))
	for i, value := range values {
		row := make(data.Row, 0, len(q.Aggregates)+1)
		row = append(row, value)
		for _, agg := range q.Aggregates {
			row = append(row, Aggregate(groups[value], agg))
		}
		rows[i] = row
	}
	return rows
}

// Aggregate evaluates one aggregate over the items of a group.
func Aggregate(items []*indexer.Item, agg indexer.Aggregate) string {
	switch agg.Func {
	case indexer.AggregateSum:
		var total int64
		for _, item := range items {
			total += int64(Number(item.Value(agg.Key)))
		}
		return strconv.FormatInt(total, 10)
	case indexer.AggregateCount:
		if agg.Key == indexer.CountAll {
			return strconv.Itoa(len(items))
		}
		return strconv.Itoa(len(distinct(items, agg.Key)))
	case indexer.AggregateConcat:
		return strings.Join(distinct(items, agg.Key), indexer.ConcatDelimiter)
	default:
		return ""
	}
}

func distinct(items []*indexer.Item, key string) []string {
	seen := make(map[string]bool)
	var values []string
	for _, item := range items {
		value := item.Value(key)
		if value == "" || seen[value] {
			continue
		}
		seen[value] = true
		values = append(values, value)
	}
	sort.Strings(values)
	return values
}
