package cache

import (
	"context"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mwantia/mediameta/art"
	"github.com/mwantia/mediameta/keys"
)

// GetString resolves k for row: precomputed values first, then derivation links, art lookups and
// finally the raw indexer cell. ok is false when there is no value.
func (c *ResultCache) GetString(ctx context.Context, k keys.Key, row int) (string, bool) {
	return c.getString(ctx, k, row, 0)
}

func (c *ResultCache) getString(ctx context.Context, k keys.Key, row, depth int) (string, bool) {
	s := c.slot(k)
	if s == nil || depth > keys.MaxKeys {
		return "", false
	}

	switch s.kind {
	case slotString:
		return s.str, true
	case slotInt:
		return strconv.Itoa(s.num), true
	case slotDerived:
		return c.getString(ctx, s.from, row, depth+1)
	}

	d, _ := c.registry.Descriptor(k)
	switch d.Source {
	case keys.SourceAlbumArt:
		return c.albumArt(ctx, k, row, depth)
	case keys.SourceThumbnail:
		uri, ok := c.getString(ctx, keys.Uri, row, depth+1)
		if !ok {
			return "", false
		}
		return c.locator.Thumbnail(ctx, uri, art.SizeCropped)
	}

	value, ok := c.cell(k, row)
	if !ok {
		return "", false
	}
	if d.Role == keys.RoleUri {
		return FileURI(value)
	}
	return value, true
}

func (c *ResultCache) albumArt(ctx context.Context, k keys.Key, row, depth int) (string, bool) {
	switch k {
	case keys.AlbumArt:
		album, ok := c.getString(ctx, keys.Album, row, depth+1)
		if !ok || album == "" {
			return "", false
		}
		for _, candidate := range strings.Split(album, Delimiter) {
			if uri, found := c.locator.AlbumArt(ctx, candidate); found {
				return uri, true
			}
		}
		return "", false
	case keys.AlbumArtLarge:
		return c.getString(ctx, keys.AlbumArt, row, depth+1)
	default:
		uri, ok := c.getString(ctx, keys.AlbumArt, row, depth+1)
		if !ok {
			return "", false
		}
		return c.locator.Thumbnail(ctx, uri, art.SizeCropped)
	}
}

// cell returns the raw text of k in row. The grouping key of a unique-aggregate cache always
// lives in column 0. Rows without an identity cell are items the indexer did not find.
func (c *ResultCache) cell(k keys.Key, row int) (string, bool) {
	column := 0
	if c.shape != ShapeUniqueAggregate || k != c.unique {
		var ok bool
		if column, ok = c.ColumnIndexOf(k); !ok {
			return "", false
		}
	}

	if row < 0 || row >= len(c.rows) {
		return "", false
	}
	r := c.rows[row]
	if _, ok := r.Cell(0); !ok {
		return "", false
	}
	return r.Cell(column)
}

// GetInt returns NoInt when k has no value.
func (c *ResultCache) GetInt(k keys.Key, row int) int {
	text, ok := c.numericText(k, row, 0)
	if !ok {
		return NoInt
	}
	return int(parseLeadingInt(text))
}

func (c *ResultCache) GetLong(k keys.Key, row int) int64 {
	text, ok := c.numericText(k, row, 0)
	if !ok {
		return 0
	}
	return parseLeadingInt(text)
}

func (c *ResultCache) GetFloat(k keys.Key, row int) float64 {
	text, ok := c.numericText(k, row, 0)
	if !ok {
		return 0
	}
	return parseLeadingFloat(text)
}

// GetBool is true only for the raw text "0", the indexer stores flags inverted.
func (c *ResultCache) GetBool(k keys.Key, row int) bool {
	text, ok := c.numericText(k, row, 0)
	return ok && text == "0"
}

func (c *ResultCache) numericText(k keys.Key, row, depth int) (string, bool) {
	s := c.slot(k)
	if s == nil || depth > keys.MaxKeys {
		return "", false
	}

	switch s.kind {
	case slotString:
		return s.str, true
	case slotInt:
		return strconv.Itoa(s.num), true
	case slotDerived:
		return c.numericText(s.from, row, depth+1)
	}
	return c.cell(k, row)
}

// AggregateInt folds k over every row. In count mode childcount-1 is the number of rows.
func (c *ResultCache) AggregateInt(k keys.Key, countMode bool) int {
	if countMode && k == keys.ChildCount1 {
		return len(c.rows)
	}

	total := 0
	for row := range c.rows {
		value := c.GetInt(k, row)
		if value == 0 || value == NoInt {
			continue
		}
		total += value
	}
	return total
}

// FileURI turns an absolute path into a file URI. Values that already are file URIs pass
// through unchanged.
func FileURI(value string) (string, bool) {
	if strings.HasPrefix(value, "file://") {
		return value, true
	}
	if value == "" || !filepath.IsAbs(value) {
		return "", false
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(value)}).String(), true
}

// PathFromURI is the inverse of FileURI.
func PathFromURI(uri string) (string, bool) {
	u, err := url.Parse(uri)
	if err != nil || u.Scheme != "file" || u.Path == "" {
		return "", false
	}
	return filepath.FromSlash(u.Path), true
}

// parseLeadingInt reads an optionally signed run of digits after leading spaces. Text without
// digits is 0.
func parseLeadingInt(text string) int64 {
	s := strings.TrimLeft(text, " \t\n\r\v\f")
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0
	}

	n, err := strconv.ParseInt(s[:end], 10, 64)
	if err != nil {
		if s[0] == '-' {
			return -1 << 63
		}
		return 1<<63 - 1
	}
	return n
}

// parseLeadingFloat reads the longest decimal prefix of text. Text without one is 0.
func parseLeadingFloat(text string) float64 {
	s := strings.TrimLeft(text, " \t\n\r\v\f")
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	mantissa := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
		mantissa++
	}
	if end < len(s) && s[end] == '.' {
		end++
		for end < len(s) && s[end] >= '0' && s[end] <= '9' {
			end++
			mantissa++
		}
	}
	if mantissa == 0 {
		return 0
	}
	if end < len(s) && (s[end] == 'e' || s[end] == 'E') {
		exp := end + 1
		if exp < len(s) && (s[exp] == '+' || s[exp] == '-') {
			exp++
		}
		digits := exp
		for exp < len(s) && s[exp] >= '0' && s[exp] <= '9' {
			exp++
		}
		if exp > digits {
			end = exp
		}
	}

	f, err := strconv.ParseFloat(s[:end], 64)
	if err != nil {
		return 0
	}
	return f
}
