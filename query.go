package mediameta

import (
	"fmt"
	"strings"

	"github.com/mwantia/mediameta/cache"
	"github.com/mwantia/mediameta/data"
	"github.com/mwantia/mediameta/indexer"
	"github.com/mwantia/mediameta/keys"
)

// translateFilter rewrites a filter over abstract key names into native names of service.
func (s *Source) translateFilter(f *indexer.Filter, service data.Service) (*indexer.Filter, error) {
	if f == nil {
		return nil, nil
	}
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", data.ErrInvalidRequest, err)
	}

	return f.Translate(func(name string) (string, bool, error) {
		k, ok := s.registry.Lookup(name)
		if !ok {
			return "", false, fmt.Errorf("%w: unknown key %q in filter", data.ErrInvalidRequest, name)
		}
		native, ok := s.registry.ResolveNative(k, service)
		if !ok {
			return "", false, fmt.Errorf("%w: %s has no %s mapping", data.ErrUnsupportedMetadataKey, name, service)
		}
		return native.Name, native.Type.Numeric(), nil
	})
}

// parseSort reads sort keys of the form "key", "+key" (ascending) and "-key" (descending). Keys
// that are unknown or have no mapping for service are dropped.
func (s *Source) parseSort(fields []string, service data.Service) []indexer.SortField {
	result := make([]indexer.SortField, 0, len(fields))
	for _, field := range fields {
		order := indexer.SortAsc
		switch {
		case strings.HasPrefix(field, "-"):
			order = indexer.SortDesc
			field = field[1:]
		case strings.HasPrefix(field, "+"):
			field = field[1:]
		}

		k, ok := s.registry.Lookup(strings.TrimSpace(field))
		if !ok {
			s.log.Debug("Dropping unknown sort key '%s'", field)
			continue
		}
		native, ok := s.registry.ResolveNative(k, service)
		if !ok {
			continue
		}
		result = append(result, indexer.SortField{
			Key:     native.Name,
			Order:   order,
			Numeric: native.Type.Numeric(),
		})
	}
	return result
}

// aggregates builds one aggregate per admitted key, in column order. targets[level-1] is the key
// counted by childcount-<level>; levels past the end count items.
func (s *Source) aggregates(c *cache.ResultCache, targets []string) []indexer.Aggregate {
	result := []indexer.Aggregate{}
	for _, k := range c.Requested().Keys() {
		d, ok := s.registry.Descriptor(k)
		if !ok {
			continue
		}

		switch d.Role {
		case keys.RoleDuration:
			result = append(result, indexer.Aggregate{Func: indexer.AggregateSum, Key: s.native(k, c.Service())})
		case keys.RoleChildCount:
			target := indexer.CountAll
			if level := s.registry.ChildCountLevel(k); level >= 1 && level <= len(targets) {
				target = targets[level-1]
			}
			result = append(result, indexer.Aggregate{Func: indexer.AggregateCount, Key: target})
		default:
			result = append(result, indexer.Aggregate{Func: indexer.AggregateConcat, Key: s.native(k, c.Service())})
		}
	}
	return result
}

// categoryFilter restricts the music service to the given genre, artist and album.
func (s *Source) categoryFilter(genre, artist, album string) *indexer.Filter {
	var filters []*indexer.Filter
	if genre != "" {
		filters = append(filters, indexer.Equals(s.native(keys.Genre, data.ServiceMusic), genre))
	}
	if artist != "" {
		filters = append(filters, indexer.Equals(s.native(keys.Artist, data.ServiceMusic), artist))
	}
	if album != "" {
		filters = append(filters, indexer.Equals(s.native(keys.Album, data.ServiceMusic), album))
	}
	return combineFilters(filters...)
}

// combineFilters joins the non-nil filters with AND.
func combineFilters(filters ...*indexer.Filter) *indexer.Filter {
	var present []*indexer.Filter
	for _, f := range filters {
		if f != nil {
			present = append(present, f)
		}
	}

	switch len(present) {
	case 0:
		return nil
	case 1:
		return present[0]
	default:
		return indexer.And(present...)
	}
}

// hasAlbumKey reports whether requested needs the album of a row.
func hasAlbumKey(requested keys.KeySet) bool {
	return requested.Has(keys.Album) ||
		requested.Has(keys.AlbumArt) ||
		requested.Has(keys.AlbumArtSmall) ||
		requested.Has(keys.AlbumArtMedium) ||
		requested.Has(keys.AlbumArtLarge)
}
