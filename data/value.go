package data

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Kind is the type of a metadata value.
type Kind int

const (
	KindString Kind = iota
	KindInt
	KindLong
	KindFloat
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindLong:
		return "long"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	default:
		return "unknown"
	}
}

// Value is a typed metadata value. The zero Value is an empty string.
type Value struct {
	kind Kind
	s    string
	i    int64
	f    float64
	b    bool
}

func StringValue(s string) Value { return Value{kind: KindString, s: s} }
func IntValue(i int) Value       { return Value{kind: KindInt, i: int64(i)} }
func LongValue(i int64) Value    { return Value{kind: KindLong, i: i} }
func FloatValue(f float64) Value { return Value{kind: KindFloat, f: f} }
func BoolValue(b bool) Value     { return Value{kind: KindBool, b: b} }

func (v Value) Kind() Kind { return v.kind }

func (v Value) Str() (string, bool) { return v.s, v.kind == KindString }

func (v Value) Int() (int, bool) {
	if v.kind != KindInt {
		return 0, false
	}
	return int(v.i), true
}

func (v Value) Long() (int64, bool) {
	switch v.kind {
	case KindLong, KindInt:
		return v.i, true
	default:
		return 0, false
	}
}

func (v Value) Float() (float64, bool) {
	if v.kind != KindFloat {
		return 0, false
	}
	return v.f, true
}

func (v Value) Bool() (bool, bool) {
	if v.kind != KindBool {
		return false, false
	}
	return v.b, true
}

// String formats the value the way it is written to an indexer.
func (v Value) String() string {
	switch v.kind {
	case KindInt, KindLong:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'f', -1, 64)
	case KindBool:
		if v.b {
			return "1"
		}
		return "0"
	default:
		return v.s
	}
}

func (v Value) Equal(o Value) bool {
	return v == o
}

func (v Value) GoString() string {
	return fmt.Sprintf("%s(%s)", v.kind, v.String())
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindInt, KindLong:
		return json.Marshal(v.i)
	case KindFloat:
		return json.Marshal(v.f)
	case KindBool:
		return json.Marshal(v.b)
	default:
		return json.Marshal(v.s)
	}
}

// UnmarshalJSON maps JSON numbers to Long when integral and Float otherwise.
func (v *Value) UnmarshalJSON(raw []byte) error {
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return err
	}

	switch t := decoded.(type) {
	case string:
		*v = StringValue(t)
	case bool:
		*v = BoolValue(t)
	case float64:
		if t == math.Trunc(t) && math.Abs(t) < math.MaxInt64 {
			*v = LongValue(int64(t))
		} else {
			*v = FloatValue(t)
		}
	default:
		return fmt.Errorf("%w: unsupported metadata value %s", ErrInvalid, string(raw))
	}
	return nil
}

// Record maps external key names to values. A nil Record is the placeholder for an empty row.
type Record map[string]Value

func (r Record) Set(key string, v Value) {
	r[key] = v
}

func (r Record) Get(key string) (Value, bool) {
	v, ok := r[key]
	return v, ok
}
