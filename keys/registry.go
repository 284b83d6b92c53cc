package keys

import (
	"fmt"
	"sync"

	"github.com/mwantia/mediameta/data"
)

// AllKeysName is the sentinel key name that requests every public key.
const AllKeysName = "*"

// MaxChildCountLevel is the deepest child-count key.
const MaxChildCountLevel = int(ChildCount4-ChildCount1) + 1

// Registry is the read-only table of key descriptors.
type Registry struct {
	descriptors []Descriptor
	byName      map[string]Key
	all         KeySet
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// Default returns the process-wide registry, built on first use.
func Default() *Registry {
	defaultOnce.Do(func() {
		r, err := NewRegistry(defaultTable())
		if err != nil {
			panic(fmt.Sprintf("keys: invalid default table: %v", err))
		}
		defaultRegistry = r
	})
	return defaultRegistry
}

// NewRegistry validates a descriptor table. Ids must be dense and ordered, names unique and
// dependencies acyclic. Descriptors without a dependency must set DependsOn to NoKey.
func NewRegistry(table []Descriptor) (*Registry, error) {
	if len(table) > MaxKeys {
		return nil, fmt.Errorf("%w: %d keys exceed the %d bit key set", data.ErrInvalid, len(table), MaxKeys)
	}

	r := &Registry{
		descriptors: make([]Descriptor, len(table)),
		byName:      make(map[string]Key, len(table)),
	}

	for i, d := range table {
		if d.ID != Key(i) {
			return nil, fmt.Errorf("%w: descriptor %q has id %d at position %d", data.ErrInvalid, d.Name, d.ID, i)
		}
		if d.Name == "" || d.Name == AllKeysName {
			return nil, fmt.Errorf("%w: descriptor %d has invalid name %q", data.ErrInvalid, i, d.Name)
		}
		if _, exists := r.byName[d.Name]; exists {
			return nil, fmt.Errorf("%w: duplicate key name %q", data.ErrInvalid, d.Name)
		}
		r.descriptors[i] = d
		r.byName[d.Name] = d.ID
		if !d.Internal {
			r.all = r.all.With(d.ID)
		}
	}

	for _, d := range r.descriptors {
		if d.DependsOn != NoKey && (d.DependsOn < 0 || int(d.DependsOn) >= len(table)) {
			return nil, fmt.Errorf("%w: key %q depends on unknown id %d", data.ErrInvalid, d.Name, d.DependsOn)
		}
	}

	if err := r.checkCycles(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Registry) checkCycles() error {
	for _, d := range r.descriptors {
		var seen KeySet
		for cur := d.ID; cur != NoKey; cur = r.descriptors[cur].DependsOn {
			if seen.Has(cur) {
				return fmt.Errorf("%w: dependency cycle through key %q", data.ErrDerivationCycle, d.Name)
			}
			seen = seen.With(cur)
		}
	}
	return nil
}

func (r *Registry) Len() int { return len(r.descriptors) }

func (r *Registry) Lookup(name string) (Key, bool) {
	k, ok := r.byName[name]
	return k, ok
}

func (r *Registry) Descriptor(k Key) (*Descriptor, bool) {
	if k < 0 || int(k) >= len(r.descriptors) {
		return nil, false
	}
	return &r.descriptors[k], true
}

func (r *Registry) Name(k Key) string {
	if d, ok := r.Descriptor(k); ok {
		return d.Name
	}
	return ""
}

// ResolveNative returns the indexer key for k in service, or false when the key has no indexer
// representation there.
func (r *Registry) ResolveNative(k Key, service data.Service) (NativeKey, bool) {
	d, ok := r.Descriptor(k)
	if !ok {
		return NativeKey{}, false
	}
	return d.Native(service)
}

func (r *Registry) IsWritable(k Key) bool {
	d, ok := r.Descriptor(k)
	return ok && d.Writable
}

// ChildCountLevel returns 1 for childcount-1 up to MaxChildCountLevel, 0 for other keys.
func (r *Registry) ChildCountLevel(k Key) int {
	d, ok := r.Descriptor(k)
	if !ok || d.Role != RoleChildCount {
		return 0
	}
	return int(k-ChildCount1) + 1
}

// All returns every key that is not internal.
func (r *Registry) All() KeySet { return r.all }

// Compile turns key names into a set. The sentinel expands to All, unknown names are ignored.
func (r *Registry) Compile(names []string) KeySet {
	var set KeySet
	for _, name := range names {
		if name == AllKeysName {
			return r.all
		}
		if k, ok := r.byName[name]; ok {
			set = set.With(k)
		}
	}
	return set
}

// Names returns the names of the members of set in ascending id order.
func (r *Registry) Names(set KeySet) []string {
	names := make([]string, 0, set.Len())
	for _, k := range set.Keys() {
		if d, ok := r.Descriptor(k); ok {
			names = append(names, d.Name)
		}
	}
	return names
}

// ChildCountKey returns the child-count key for level, or NoKey when out of range.
func ChildCountKey(level int) Key {
	if level < 1 || level > MaxChildCountLevel {
		return NoKey
	}
	return ChildCount1 + Key(level-1)
}
