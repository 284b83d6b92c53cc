package cache

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/mwantia/mediameta/data"
	"github.com/mwantia/mediameta/keys"
)

// BuildRecords assembles one record per attached row, and a single record when no rows are
// attached. Rows that resolve to nothing become nil records. paths, when given, is aligned with
// the rows and names the file of each row for the title fallback.
func (c *ResultCache) BuildRecords(ctx context.Context, requested keys.KeySet, paths []string) []data.Record {
	count := max(1, len(c.rows))
	records := make([]data.Record, count)

	for row := 0; row < count; row++ {
		record := data.Record{}
		if c.shape == ShapeUniqueAggregate && c.unique != keys.NoKey {
			c.emit(ctx, record, c.unique, row, false, false)
		}

		for _, k := range requested.Keys() {
			if k == keys.Title {
				c.emitTitle(ctx, record, row, paths)
				continue
			}
			c.emit(ctx, record, k, row, false, false)
		}

		if len(record) > 0 {
			records[row] = record
		}
	}
	return records
}

// BuildAggregateRecord assembles the record of a container from row 0. Duration and child-count
// keys are folded over all rows.
func (c *ResultCache) BuildAggregateRecord(ctx context.Context, countChildCount bool, requested keys.KeySet) data.Record {
	record := data.Record{}
	if c.shape == ShapeUniqueAggregate && c.unique != keys.NoKey {
		c.emit(ctx, record, c.unique, 0, false, false)
	}

	for _, k := range requested.Keys() {
		c.emit(ctx, record, k, 0, true, countChildCount)
	}
	return record
}

func (c *ResultCache) emit(ctx context.Context, record data.Record, k keys.Key, row int, aggregate, countMode bool) {
	d, ok := c.registry.Descriptor(k)
	if !ok {
		return
	}

	switch d.Kind {
	case data.KindString:
		if value, ok := c.GetString(ctx, k, row); ok {
			putString(record, d, value)
		}
	case data.KindInt:
		if aggregate && (d.Role == keys.RoleChildCount || d.Role == keys.RoleDuration) {
			if _, ok := c.ColumnIndexOf(k); !ok {
				return
			}
			if value := c.AggregateInt(k, countMode); d.AllowEmpty || value > 0 {
				record.Set(d.Name, data.IntValue(value))
			}
			return
		}
		if value := c.GetInt(k, row); value != NoInt && (d.AllowEmpty || value > 0) {
			record.Set(d.Name, data.IntValue(value))
		}
	case data.KindLong:
		if value := c.GetLong(k, row); d.AllowEmpty || value > 0 {
			record.Set(d.Name, data.LongValue(value))
		}
	case data.KindFloat:
		if value := c.GetFloat(k, row); d.AllowEmpty || value > 0 {
			record.Set(d.Name, data.FloatValue(value))
		}
	case data.KindBool:
		record.Set(d.Name, data.BoolValue(c.GetBool(k, row)))
	}
}

func (c *ResultCache) emitTitle(ctx context.Context, record data.Record, row int, paths []string) {
	d, _ := c.registry.Descriptor(keys.Title)

	title, ok := c.GetString(ctx, keys.Title, row)
	if title == "" && c.shape != ShapeUniqueAggregate {
		if fallback, found := c.titleFromFile(ctx, row, paths); found {
			title, ok = fallback, true
		}
	}
	if ok {
		putString(record, d, title)
	}
}

// titleFromFile derives a title from the file name of the row: the base name without its last
// extension. Rows the indexer did not find have no file name.
func (c *ResultCache) titleFromFile(ctx context.Context, row int, paths []string) (string, bool) {
	if len(c.rows) > 0 {
		if row < 0 || row >= len(c.rows) {
			return "", false
		}
		if _, found := c.rows[row].Cell(0); !found {
			return "", false
		}
	}

	var filename string
	if uri, ok := c.GetString(ctx, keys.Uri, row); ok && uri != "" {
		path, ok := PathFromURI(uri)
		if !ok {
			return "", false
		}
		filename = path
	} else if row >= 0 && row < len(paths) {
		filename = paths[row]
	}
	if filename == "" {
		return "", false
	}

	base := filepath.Base(filename)
	if dot := strings.LastIndex(base, "."); dot >= 0 {
		base = base[:dot]
	}
	return base, true
}

func putString(record data.Record, d *keys.Descriptor, value string) {
	if value == "" && !d.AllowEmpty {
		return
	}
	if strings.Contains(value, Delimiter) {
		value = VariousValues
	}
	record.Set(d.Name, data.StringValue(value))
}
