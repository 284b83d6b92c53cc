package indexer

import (
	"fmt"

	"github.com/mwantia/mediameta/data"
)

type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

type SortField struct {
	Key   string    `json:"key"`
	Order SortOrder `json:"order"`
	// Numeric compares values as numbers instead of text.
	Numeric bool `json:"numeric,omitempty"`
}

type Query struct {
	Service data.Service `json:"service"`
	Keys    []string     `json:"keys"`
	Filter  *Filter      `json:"filter,omitempty"`
	// Sort defaults to the item path.
	Sort []SortField `json:"sort,omitempty"`

	// Skip this many results during pagination
	Offset int `json:"offset"`
	// Max results to return (<= 0 = unlimited)
	Count int `json:"count"`
}

type AggregateFunc string

const (
	// AggregateSum adds up the integer values.
	AggregateSum AggregateFunc = "SUM"
	// AggregateCount counts distinct non-empty values, or items for CountAll.
	AggregateCount AggregateFunc = "COUNT"
	// AggregateConcat joins the distinct non-empty values in ascending order.
	AggregateConcat AggregateFunc = "CONCAT"
)

// CountAll is the COUNT key that counts items.
const CountAll = "*"

// ConcatDelimiter separates the values of a CONCAT aggregate.
const ConcatDelimiter = "|"

type Aggregate struct {
	Func AggregateFunc `json:"func"`
	Key  string        `json:"key"`
}

func (a Aggregate) String() string {
	return fmt.Sprintf("%s(%s)", a.Func, a.Key)
}

// UniqueQuery groups the items of a service by the value of Key. Items without a value are not
// part of any group. Groups are ordered by value.
type UniqueQuery struct {
	Service    data.Service `json:"service"`
	Key        string       `json:"key"`
	Aggregates []Aggregate  `json:"aggregates,omitempty"`
	Filter     *Filter      `json:"filter,omitempty"`

	Offset int `json:"offset"`
	Count  int `json:"count"`
}

// Validate rejects aggregates and keys the backends cannot evaluate.
func (q *UniqueQuery) Validate() error {
	if q.Key == "" {
		return fmt.Errorf("%w: unique query without key", data.ErrInvalid)
	}
	for _, agg := range q.Aggregates {
		switch agg.Func {
		case AggregateSum, AggregateConcat:
			if agg.Key == "" || agg.Key == CountAll {
				return fmt.Errorf("%w: %s needs a key", data.ErrInvalid, agg)
			}
		case AggregateCount:
			if agg.Key == "" {
				return fmt.Errorf("%w: %s needs a key", data.ErrInvalid, agg)
			}
		default:
			return fmt.Errorf("%w: unknown aggregate %q", data.ErrInvalid, agg.Func)
		}
	}
	return q.Filter.Validate()
}

// Keys returns every key a unique query reads, grouping key first.
func (q *UniqueQuery) Keys() []string {
	result := []string{q.Key}
	seen := map[string]bool{q.Key: true}
	for _, agg := range q.Aggregates {
		if agg.Key != CountAll && !seen[agg.Key] {
			seen[agg.Key] = true
			result = append(result, agg.Key)
		}
	}
	return result
}

// Page applies offset and count to a result list.
func Page[T any](rows []T, offset, count int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(rows) {
		return rows[:0]
	}
	rows = rows[offset:]
	if count > 0 && count < len(rows) {
		rows = rows[:count]
	}
	return rows
}
