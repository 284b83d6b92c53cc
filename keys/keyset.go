package keys

import (
	"math/bits"
	"strings"
)

// KeySet is a bitmask over key ids: bit i is set when key i is part of the set.
type KeySet uint64

// Of returns the set holding exactly ks.
func Of(ks ...Key) KeySet {
	var s KeySet
	for _, k := range ks {
		s = s.With(k)
	}
	return s
}

func (s KeySet) Has(k Key) bool {
	if !k.valid() {
		return false
	}
	return s&(1<<uint(k)) != 0
}

func (s KeySet) With(k Key) KeySet {
	if !k.valid() {
		return s
	}
	return s | 1<<uint(k)
}

func (s KeySet) Without(k Key) KeySet {
	if !k.valid() {
		return s
	}
	return s &^ (1 << uint(k))
}

func (s KeySet) Union(o KeySet) KeySet { return s | o }

func (s KeySet) Intersect(o KeySet) KeySet { return s & o }

func (s KeySet) Len() int { return bits.OnesCount64(uint64(s)) }

func (s KeySet) Empty() bool { return s == 0 }

// Only reports whether k is the single member of s.
func (s KeySet) Only(k Key) bool {
	return k.valid() && s == 1<<uint(k)
}

// Rank returns the number of members with an id lower than k.
func (s KeySet) Rank(k Key) int {
	if !k.valid() {
		return 0
	}
	return bits.OnesCount64(uint64(s) & (1<<uint(k) - 1))
}

// Keys returns the members in ascending id order.
func (s KeySet) Keys() []Key {
	result := make([]Key, 0, s.Len())
	for rest := uint64(s); rest != 0; rest &= rest - 1 {
		result = append(result, Key(bits.TrailingZeros64(rest)))
	}
	return result
}

func (s KeySet) String() string {
	names := make([]string, 0, s.Len())
	for _, k := range s.Keys() {
		names = append(names, k.String())
	}
	return "{" + strings.Join(names, ",") + "}"
}
