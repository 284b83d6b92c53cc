// Package cache holds the per-request result cache that maps abstract keys onto indexer rows,
// precomputed constants and derived values, and assembles output records from it.
package cache

import (
	"fmt"
	"math"

	"github.com/mwantia/mediameta/art"
	"github.com/mwantia/mediameta/data"
	"github.com/mwantia/mediameta/keys"
)

// Shape is the layout of the rows a cache receives.
type Shape int

const (
	// ShapeRawQuery rows are [path, service, keys...].
	ShapeRawQuery Shape = iota
	// ShapeUniqueAggregate rows are [unique value, aggregates...].
	ShapeUniqueAggregate
	// ShapeGetMetadata rows are [keys...].
	ShapeGetMetadata
)

func (s Shape) String() string {
	switch s {
	case ShapeRawQuery:
		return "raw-query"
	case ShapeUniqueAggregate:
		return "unique-aggregate"
	case ShapeGetMetadata:
		return "get-metadata"
	default:
		return "unknown"
	}
}

func (s Shape) offset() int {
	switch s {
	case ShapeRawQuery:
		return 2
	case ShapeUniqueAggregate:
		return 1
	default:
		return 0
	}
}

const (
	// Delimiter separates multiple values inside one indexer cell.
	Delimiter = "|"
	// VariousValues replaces a cell that holds several values.
	VariousValues = "(various)"
	// NoInt is returned by GetInt when a key has no value.
	NoInt = math.MaxInt
)

type slotKind int

const (
	slotEmpty slotKind = iota
	slotString
	slotInt
	slotDerived
)

type slot struct {
	kind slotKind
	str  string
	num  int
	from keys.Key
}

// ResultCache is built for a single request and must not be shared between goroutines.
type ResultCache struct {
	registry *keys.Registry
	locator  art.Locator

	service   data.Service
	shape     Shape
	requested keys.KeySet
	unique    keys.Key
	slots     [keys.MaxKeys]slot
	rows      []data.Row
}

// Option configures a ResultCache.
type Option func(*ResultCache)

// WithRegistry replaces the default key registry.
func WithRegistry(r *keys.Registry) Option {
	return func(c *ResultCache) {
		if r != nil {
			c.registry = r
		}
	}
}

// WithLocator sets the locator used for album art and thumbnail keys.
func WithLocator(l art.Locator) Option {
	return func(c *ResultCache) {
		if l != nil {
			c.locator = l
		}
	}
}

// New returns an empty cache for rows of shape coming from service.
func New(service data.Service, shape Shape, opts ...Option) *ResultCache {
	c := &ResultCache{
		registry: keys.Default(),
		locator:  art.None{},
		service:  service,
		shape:    shape,
		unique:   keys.NoKey,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *ResultCache) Service() data.Service { return c.service }

func (c *ResultCache) Shape() Shape { return c.shape }

// Requested returns the keys that will be sent to the indexer.
func (c *ResultCache) Requested() keys.KeySet { return c.requested }

// Unique returns the grouping key of a unique-aggregate cache.
func (c *ResultCache) Unique() (keys.Key, bool) {
	return c.unique, c.unique != keys.NoKey
}

// AddKey admits k, and whatever it depends on, into the indexer request. Keys the current
// service or shape cannot serve are dropped or turned into precomputed values. Child-count keys
// deeper than maxLevel are dropped.
func (c *ResultCache) AddKey(k keys.Key, maxLevel int) {
	if c.requested.Has(k) {
		return
	}
	d, ok := c.registry.Descriptor(k)
	if !ok {
		return
	}

	if d.DependsOn != keys.NoKey {
		c.AddKey(d.DependsOn, maxLevel)
	}

	if d.Role == keys.RoleChildCount {
		level := c.registry.ChildCountLevel(k)
		if level < 1 || level > maxLevel {
			return
		}
	}

	if _, native := d.Native(c.service); !native && d.Role != keys.RoleChildCount {
		return
	}

	if c.shape == ShapeUniqueAggregate {
		switch {
		case d.Role == keys.RoleChildCount, d.Role == keys.RoleDuration, d.Role == keys.RoleMime:
		case d.Source == keys.SourceAlbumArt:
		default:
			return
		}
	}

	if c.shape != ShapeUniqueAggregate && d.Role == keys.RoleChildCount && c.service != data.ServicePlaylist {
		c.AddPrecomputedInt(k, 0)
		return
	}

	if d.Role == keys.RoleMime && (c.service == data.ServicePlaylist || c.shape == ShapeUniqueAggregate) {
		c.AddPrecomputedString(k, string(data.ContentTypeContainer))
		return
	}

	if d.Role == keys.RoleTitle && c.shape != ShapeUniqueAggregate {
		c.AddKey(keys.Uri, maxLevel)
	}

	c.requested = c.requested.With(k)
}

// AddKeys admits every member of set in ascending id order.
func (c *ResultCache) AddKeys(set keys.KeySet, maxLevel int) {
	for _, k := range set.Keys() {
		c.AddKey(k, maxLevel)
	}
}

// AddUnique sets the grouping key. A mime grouping key is answered with the container type.
func (c *ResultCache) AddUnique(k keys.Key) {
	if d, ok := c.registry.Descriptor(k); ok && d.Role == keys.RoleMime {
		c.AddPrecomputedString(k, string(data.ContentTypeContainer))
		return
	}
	c.unique = k
}

// AddConcat requests k as a concatenated aggregate, bypassing the admission rules.
func (c *ResultCache) AddConcat(k keys.Key) {
	if _, ok := c.registry.Descriptor(k); ok {
		c.requested = c.requested.With(k)
	}
}

// AddPrecomputedString stores a fixed string for k unless k already has a slot.
func (c *ResultCache) AddPrecomputedString(k keys.Key, value string) {
	if s := c.slot(k); s != nil && s.kind == slotEmpty {
		*s = slot{kind: slotString, str: value}
	}
}

// AddPrecomputedInt stores a fixed integer for k unless k already has a slot.
func (c *ResultCache) AddPrecomputedInt(k keys.Key, value int) {
	if s := c.slot(k); s != nil && s.kind == slotEmpty {
		*s = slot{kind: slotInt, num: value}
	}
}

// AddDerived makes reads of k return the value of from. Links that would close a cycle fail.
func (c *ResultCache) AddDerived(k, from keys.Key) error {
	s := c.slot(k)
	if s == nil || c.slot(from) == nil {
		return fmt.Errorf("%w: unknown key in derivation %d <- %d", data.ErrInvalid, k, from)
	}
	if s.kind != slotEmpty {
		return nil
	}

	for cur, depth := from, 0; depth <= keys.MaxKeys; depth++ {
		if cur == k {
			return fmt.Errorf("%w: %v <- %v", data.ErrDerivationCycle, k, from)
		}
		next := c.slots[cur]
		if next.kind != slotDerived {
			break
		}
		cur = next.from
	}

	*s = slot{kind: slotDerived, from: from}
	return nil
}

// AttachRows hands the indexer result to the cache.
func (c *ResultCache) AttachRows(rows []data.Row) {
	c.rows = rows
}

func (c *ResultCache) Rows() []data.Row { return c.rows }

// ColumnIndexOf returns the column holding k in every row, false when k was not admitted.
func (c *ResultCache) ColumnIndexOf(k keys.Key) (int, bool) {
	if !c.requested.Has(k) {
		return -1, false
	}
	return c.shape.offset() + c.requested.Rank(k), true
}

// KeyExists reports whether k is the grouping key or was admitted.
func (c *ResultCache) KeyExists(k keys.Key) bool {
	return k != keys.NoKey && (k == c.unique || c.requested.Has(k))
}

// NativeKeys returns the indexer names of the admitted keys, in column order.
func (c *ResultCache) NativeKeys() []string {
	names := make([]string, 0, c.requested.Len())
	for _, k := range c.requested.Keys() {
		native, _ := c.registry.ResolveNative(k, c.service)
		names = append(names, native.Name)
	}
	return names
}

func (c *ResultCache) slot(k keys.Key) *slot {
	if _, ok := c.registry.Descriptor(k); !ok || k >= keys.MaxKeys {
		return nil
	}
	return &c.slots[k]
}
