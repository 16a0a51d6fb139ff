package storage

import (
	"fmt"
	"iter"
	"slices"

	"github.com/samber/lo"
)

// Table is a named, mutable, re-iterable collection of records. It is the
// only stateful entity: queries read from it and DML writes to it. Rows
// produced by iteration are copies and never observe later mutation.
type Table struct {
	name   string
	rows   []Record
	schema []string
}

// NewTable creates a table. data and schema may be nil; without a schema the
// column names are inferred from the first record on first request.
func NewTable(name string, data []Record, schema []string) *Table {
	t := &Table{name: name, schema: slices.Clone(schema)}
	t.Load(data)
	return t
}

func (t *Table) Name() string { return t.name }
func (t *Table) Len() int     { return len(t.rows) }

// Load replaces all stored records.
func (t *Table) Load(data []Record) {
	t.rows = lo.Map(data, func(rec Record, _ int) Record { return rec.Clone() })
}

// ColumnNames returns the explicit schema, or infers and caches it from the
// first stored record.
func (t *Table) ColumnNames() ([]string, error) {
	if t.schema == nil {
		if len(t.rows) == 0 {
			return nil, fmt.Errorf("%w: %q", ErrEmptyTable, t.name)
		}
		t.schema = t.rows[0].Names()
	}
	return slices.Clone(t.schema), nil
}

// All yields every record as a Row tagged with the table name.
func (t *Table) All() iter.Seq[Row] { return t.AliasAll(t.name) }

// AliasAll yields every record as a Row tagged with alias.
func (t *Table) AliasAll(alias string) iter.Seq[Row] {
	return func(yield func(Row) bool) {
		for _, rec := range t.rows {
			if !yield(NewRow(alias, rec)) {
				return
			}
		}
	}
}

// Rows returns a snapshot of all rows.
func (t *Table) Rows() []Row { return slices.Collect(t.All()) }

// Records returns copies of the stored records.
func (t *Table) Records() []Record {
	return lo.Map(t.rows, func(rec Record, _ int) Record { return rec.Clone() })
}

// Append adds records verbatim. No schema check is made.
func (t *Table) Append(recs ...Record) {
	for _, rec := range recs {
		t.rows = append(t.rows, rec.Clone())
	}
}

// Update calls fn with a row view of each record. Records for which fn
// reports a change are replaced by the returned record. All replacements are
// applied only after every record was visited without error.
func (t *Table) Update(fn func(Row) (Record, bool, error)) (int, error) {
	changed := make(map[int]Record)
	for i, rec := range t.rows {
		next, ok, err := fn(NewRow(t.name, rec))
		if err != nil {
			return 0, err
		}
		if ok {
			changed[i] = next.Clone()
		}
	}
	for i, rec := range changed {
		t.rows[i] = rec
	}
	return len(changed), nil
}

// DeleteWhere rebuilds the storage without the records matched by fn.
func (t *Table) DeleteWhere(fn func(Row) (bool, error)) (int, error) {
	kept := make([]Record, 0, len(t.rows))
	for _, rec := range t.rows {
		drop, err := fn(NewRow(t.name, rec))
		if err != nil {
			return 0, err
		}
		if !drop {
			kept = append(kept, rec)
		}
	}
	deleted := len(t.rows) - len(kept)
	t.rows = kept
	return deleted, nil
}

// FromRows materializes a row sequence into a new table.
func FromRows(name string, rows iter.Seq2[Row, error]) (*Table, error) {
	t := &Table{name: name}
	for row, err := range rows {
		if err != nil {
			return nil, err
		}
		t.rows = append(t.rows, row.rec.Clone())
	}
	return t, nil
}

func (t *Table) String() string {
	return fmt.Sprintf("Table(%q, %d rows)", t.name, len(t.rows))
}
