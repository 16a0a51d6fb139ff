package storage

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Kind enumerates the closed set of column value kinds.
type Kind uint8

const (
	NullKind Kind = iota
	IntKind
	FloatKind
	TextKind
	BoolKind
	RecordKind
)

var kindToString = map[Kind]string{
	NullKind:   "NULL",
	IntKind:    "INT",
	FloatKind:  "FLOAT",
	TextKind:   "TEXT",
	BoolKind:   "BOOL",
	RecordKind: "RECORD",
}

func (k Kind) String() string {
	if s, ok := kindToString[k]; ok {
		return s
	}
	return "UNKNOWN"
}

// Value is a single dynamically typed cell. Only the field matching kind is
// meaningful. The zero Value is NULL.
type Value struct {
	kind Kind
	i    int64
	f    float64
	s    string
	b    bool
	rec  Record
}

func Null() Value               { return Value{} }
func Int(v int64) Value         { return Value{kind: IntKind, i: v} }
func Float(v float64) Value     { return Value{kind: FloatKind, f: v} }
func Text(v string) Value       { return Value{kind: TextKind, s: v} }
func Bool(v bool) Value         { return Value{kind: BoolKind, b: v} }
func Nested(rec Record) Value   { return Value{kind: RecordKind, rec: rec.Clone()} }
func (v Value) Kind() Kind      { return v.kind }
func (v Value) IsNull() bool    { return v.kind == NullKind }
func (v Value) isNumeric() bool { return v.kind == IntKind || v.kind == FloatKind }

// Of converts a native Go value into a Value.
func Of(v any) (Value, error) {
	switch x := v.(type) {
	case nil:
		return Null(), nil
	case Value:
		return x, nil
	case int:
		return Int(int64(x)), nil
	case int8:
		return Int(int64(x)), nil
	case int16:
		return Int(int64(x)), nil
	case int32:
		return Int(int64(x)), nil
	case int64:
		return Int(x), nil
	case uint:
		return Int(int64(x)), nil
	case uint8:
		return Int(int64(x)), nil
	case uint16:
		return Int(int64(x)), nil
	case uint32:
		return Int(int64(x)), nil
	case uint64:
		if x > math.MaxInt64 {
			return Value{}, fmt.Errorf("%w: %d overflows INT", ErrTypeMismatch, x)
		}
		return Int(int64(x)), nil
	case float32:
		return Float(float64(x)), nil
	case float64:
		return Float(x), nil
	case string:
		return Text(x), nil
	case bool:
		return Bool(x), nil
	case Record:
		return Nested(x), nil
	case map[string]any:
		rec, err := RecordFromMap(x, nil)
		if err != nil {
			return Value{}, err
		}
		return Value{kind: RecordKind, rec: rec}, nil
	}
	return Value{}, fmt.Errorf("%w: unsupported Go type %T", ErrTypeMismatch, v)
}

// MustOf is like Of but panics on unsupported types. Intended for literals.
func MustOf(v any) Value {
	val, err := Of(v)
	if err != nil {
		panic(err)
	}
	return val
}

// AsInt returns the integer value; floats are truncated.
func (v Value) AsInt() (int64, bool) {
	switch v.kind {
	case IntKind:
		return v.i, true
	case FloatKind:
		return int64(v.f), true
	}
	return 0, false
}

// AsFloat returns the numeric value widened to float64.
func (v Value) AsFloat() (float64, bool) {
	switch v.kind {
	case IntKind:
		return float64(v.i), true
	case FloatKind:
		return v.f, true
	}
	return 0, false
}

func (v Value) AsText() (string, bool) { return v.s, v.kind == TextKind }
func (v Value) AsBool() (bool, bool)   { return v.b, v.kind == BoolKind }

func (v Value) AsRecord() (Record, bool) {
	if v.kind != RecordKind {
		return nil, false
	}
	return v.rec.Clone(), true
}

// Truthy reports whether v counts as true in a WHERE or HAVING position.
// NULL is never true.
func (v Value) Truthy() bool {
	switch v.kind {
	case BoolKind:
		return v.b
	case IntKind:
		return v.i != 0
	case FloatKind:
		return v.f != 0
	case TextKind:
		return v.s != ""
	case RecordKind:
		return len(v.rec) > 0
	}
	return false
}

// Equal reports value equality. INT and FLOAT compare numerically; NULL
// equals only NULL.
func (v Value) Equal(o Value) bool {
	if v.isNumeric() && o.isNumeric() {
		if v.kind == IntKind && o.kind == IntKind {
			return v.i == o.i
		}
		a, _ := v.AsFloat()
		b, _ := o.AsFloat()
		return a == b
	}
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case NullKind:
		return true
	case TextKind:
		return v.s == o.s
	case BoolKind:
		return v.b == o.b
	case RecordKind:
		return v.rec.Equal(o.rec)
	}
	return false
}

// Compare orders two values. NULL and mismatched kinds are incomparable.
func (v Value) Compare(o Value) (int, error) {
	if v.IsNull() || o.IsNull() {
		return 0, fmt.Errorf("%w: cannot compare with NULL", ErrTypeMismatch)
	}
	if v.isNumeric() && o.isNumeric() {
		if v.kind == IntKind && o.kind == IntKind {
			return cmpOrdered(v.i, o.i), nil
		}
		a, _ := v.AsFloat()
		b, _ := o.AsFloat()
		return cmpOrdered(a, b), nil
	}
	if v.kind != o.kind {
		return 0, fmt.Errorf("%w: incomparable %s and %s", ErrTypeMismatch, v.kind, o.kind)
	}
	switch v.kind {
	case TextKind:
		return strings.Compare(v.s, o.s), nil
	case BoolKind:
		switch {
		case v.b == o.b:
			return 0, nil
		case !v.b:
			return -1, nil
		}
		return 1, nil
	}
	return 0, fmt.Errorf("%w: %s values are not ordered", ErrTypeMismatch, v.kind)
}

func cmpOrdered[T int64 | float64](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// maxExactInt is the largest magnitude at which every int64 is exactly
// representable as a float64.
const maxExactInt = 1 << 53

// Key returns a string that is identical for Equal values. It is used to
// partition rows into groups. INTs beyond 2^53 that round to the same
// float64 share a key.
func (v Value) Key() string {
	switch v.kind {
	case NullKind:
		return "n"
	case IntKind:
		// Beyond 2^53 Equal compares with FLOAT through float64, so key on
		// that image too.
		if v.i > maxExactInt || v.i < -maxExactInt {
			return Float(float64(v.i)).Key()
		}
		return "d" + strconv.FormatInt(v.i, 10)
	case FloatKind:
		if v.f == math.Trunc(v.f) && math.Abs(v.f) < 1<<63 {
			return "d" + strconv.FormatInt(int64(v.f), 10)
		}
		return "f" + strconv.FormatFloat(v.f, 'g', -1, 64)
	case TextKind:
		return "s" + strconv.Quote(v.s)
	case BoolKind:
		return "b" + strconv.FormatBool(v.b)
	}
	parts := make([]string, len(v.rec))
	for i, f := range v.rec {
		parts[i] = strconv.Quote(f.Name) + "=" + f.Value.Key()
	}
	sort.Strings(parts)
	return "r{" + strings.Join(parts, "\x1f") + "}"
}

// Any returns the native Go view: nil, int64, float64, string, bool, or
// map[string]any for nested records.
func (v Value) Any() any {
	switch v.kind {
	case IntKind:
		return v.i
	case FloatKind:
		return v.f
	case TextKind:
		return v.s
	case BoolKind:
		return v.b
	case RecordKind:
		return v.rec.Map()
	}
	return nil
}

func (v Value) String() string {
	switch v.kind {
	case NullKind:
		return "NULL"
	case IntKind:
		return strconv.FormatInt(v.i, 10)
	case FloatKind:
		return strconv.FormatFloat(v.f, 'f', -1, 64)
	case TextKind:
		return strconv.Quote(v.s)
	case BoolKind:
		return strconv.FormatBool(v.b)
	}
	return v.rec.String()
}

func (v Value) MarshalJSON() ([]byte, error) {
	if v.kind == RecordKind {
		return v.rec.MarshalJSON()
	}
	return json.Marshal(v.Any())
}
