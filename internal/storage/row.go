package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/samber/lo"
)

// Field is one named column value inside a Record.
type Field struct {
	Name  string
	Value Value
}

// Record is an ordered mapping of column name to Value. Setting an existing
// name replaces its value in place, preserving column order.
type Record []Field

// RecordOf builds a Record from alternating name, value arguments. Values
// are converted with Of.
//
//	rec, err := storage.RecordOf("name", "Alice", "boss", nil)
func RecordOf(pairs ...any) (Record, error) {
	if len(pairs)%2 != 0 {
		return nil, fmt.Errorf("%w: odd number of name/value arguments", ErrTypeMismatch)
	}
	rec := make(Record, 0, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		name, ok := pairs[i].(string)
		if !ok {
			return nil, fmt.Errorf("%w: column name must be a string, got %T", ErrTypeMismatch, pairs[i])
		}
		v, err := Of(pairs[i+1])
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", name, err)
		}
		rec = rec.Set(name, v)
	}
	return rec, nil
}

// MustRecord is like RecordOf but panics on error.
func MustRecord(pairs ...any) Record {
	rec, err := RecordOf(pairs...)
	if err != nil {
		panic(err)
	}
	return rec
}

// RecordFromMap converts a native map. Columns follow order; names missing
// from order are appended in sorted order.
func RecordFromMap(m map[string]any, order []string) (Record, error) {
	names := lo.Filter(order, func(name string, _ int) bool {
		_, ok := m[name]
		return ok
	})
	rest := lo.Without(lo.Keys(m), names...)
	sort.Strings(rest)
	names = append(names, rest...)

	rec := make(Record, 0, len(names))
	for _, name := range names {
		v, err := Of(m[name])
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", name, err)
		}
		rec = append(rec, Field{Name: name, Value: v})
	}
	return rec, nil
}

func (r Record) index(name string) int {
	for i, f := range r {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// Lookup returns the value stored under name.
func (r Record) Lookup(name string) (Value, bool) {
	if i := r.index(name); i >= 0 {
		return r[i].Value, true
	}
	return Value{}, false
}

// Set returns r with name bound to v. The receiver's backing array may be
// reused; callers that share a Record must Clone first.
func (r Record) Set(name string, v Value) Record {
	if i := r.index(name); i >= 0 {
		r[i].Value = v
		return r
	}
	return append(r, Field{Name: name, Value: v})
}

func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	copy(out, r)
	return out
}

func (r Record) Names() []string {
	return lo.Map(r, func(f Field, _ int) string { return f.Name })
}

// Equal compares column mappings; column order is not significant.
func (r Record) Equal(o Record) bool {
	if len(r) != len(o) {
		return false
	}
	for _, f := range r {
		ov, ok := o.Lookup(f.Name)
		if !ok || !f.Value.Equal(ov) {
			return false
		}
	}
	return true
}

// Map returns a native map view of the record.
func (r Record) Map() map[string]any {
	m := make(map[string]any, len(r))
	for _, f := range r {
		m[f.Name] = f.Value.Any()
	}
	return m
}

func (r Record) String() string {
	parts := lo.Map(r, func(f Field, _ int) string { return fmt.Sprintf("%q: %s", f.Name, f.Value) })
	return "{" + strings.Join(parts, ", ") + "}"
}

// MarshalJSON writes the record as a JSON object in column order.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		v, err := f.Value.MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Row is an immutable record tagged with the name of the table (or alias) it
// came from. Rows synthesized by a query carry an empty table name.
type Row struct {
	table string
	rec   Record
}

// NewRow copies rec, so later changes to rec never leak into the Row.
func NewRow(table string, rec Record) Row {
	return Row{table: table, rec: rec.Clone()}
}

func (r Row) Table() string     { return r.table }
func (r Row) Len() int          { return len(r.rec) }
func (r Row) Columns() []string { return r.rec.Names() }
func (r Row) Record() Record    { return r.rec.Clone() }
func (r Row) Map() map[string]any {
	return r.rec.Map()
}

func (r Row) Values() []Value {
	return lo.Map(r.rec, func(f Field, _ int) Value { return f.Value })
}

// Lookup is the dynamic lookup-by-name accessor.
func (r Row) Lookup(name string) (Value, bool) { return r.rec.Lookup(name) }

// Get returns the named column or an ErrUnknownAttribute error.
func (r Row) Get(name string) (Value, error) {
	if v, ok := r.rec.Lookup(name); ok {
		return v, nil
	}
	return Value{}, fmt.Errorf("%w: column %q not in row %s (columns %v)", ErrUnknownAttribute, name, r.label(), r.Columns())
}

func (r Row) label() string {
	if r.table == "" {
		return "<anonymous>"
	}
	return fmt.Sprintf("%q", r.table)
}

// Equal compares origin name and column mapping.
func (r Row) Equal(o Row) bool {
	return r.table == o.table && r.rec.Equal(o.rec)
}

// SameColumns compares only the column mapping, ignoring the origin name.
func (r Row) SameColumns(o Row) bool { return r.rec.Equal(o.rec) }

func (r Row) String() string {
	return fmt.Sprintf("Row(%q, %s)", r.table, r.rec)
}

func (r Row) MarshalJSON() ([]byte, error) { return r.rec.MarshalJSON() }
