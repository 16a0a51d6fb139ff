// Package testhelper loads YAML test fixtures: named tables plus the
// expected output of query cases. The same tables can be mirrored into a
// SQL database to compute baseline results.
package testhelper

import (
	"database/sql"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/SimonWaldherr/funcsql/internal/storage"
)

// TableSpec is a table in column/row form.
type TableSpec struct {
	Cols []string `yaml:"cols"`
	Rows [][]any  `yaml:"rows"`
}

// Case is the expected result of one query. Rows are in result order and
// aligned with Cols.
type Case struct {
	ID          string    `yaml:"id"`
	Description string    `yaml:"description"`
	Expected    TableSpec `yaml:"expected"`
}

// Fixture mirrors a testdata/*.yml file.
type Fixture struct {
	Tables map[string]TableSpec `yaml:"tables"`
	Cases  []Case               `yaml:"cases"`
}

func Load(path string) (*Fixture, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	var f Fixture
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return &f, nil
}

// Records converts the rows into records, one per row.
func (s TableSpec) Records() ([]storage.Record, error) {
	out := make([]storage.Record, 0, len(s.Rows))
	for i, row := range s.Rows {
		if len(row) != len(s.Cols) {
			return nil, fmt.Errorf("row %d has %d values for %d columns", i, len(row), len(s.Cols))
		}
		pairs := make([]any, 0, 2*len(row))
		for j, v := range row {
			pairs = append(pairs, s.Cols[j], v)
		}
		rec, err := storage.RecordOf(pairs...)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// Table builds a fresh table, so tests that mutate it stay independent.
func (f *Fixture) Table(name string) (*storage.Table, error) {
	ts, ok := f.Tables[name]
	if !ok {
		return nil, fmt.Errorf("fixture has no table %q", name)
	}
	recs, err := ts.Records()
	if err != nil {
		return nil, fmt.Errorf("table %s: %w", name, err)
	}
	return storage.NewTable(name, recs, ts.Cols), nil
}

func (f *Fixture) Case(id string) (Case, error) {
	for _, c := range f.Cases {
		if c.ID == id {
			return c, nil
		}
	}
	return Case{}, fmt.Errorf("fixture has no case %q", id)
}

// Diff reports the first difference between the expected rows and got, or
// nil when they match in order, columns and values.
func (s TableSpec) Diff(got []storage.Row) error {
	want, err := s.Records()
	if err != nil {
		return err
	}
	return DiffRecords(want, got)
}

// DiffRecords compares records with rows. Column order matters; numeric
// values compare by value.
func DiffRecords(want []storage.Record, got []storage.Row) error {
	if len(want) != len(got) {
		return fmt.Errorf("row count differs: expected %d, got %d\ngot: %v", len(want), len(got), got)
	}
	for i, w := range want {
		g := got[i].Record()
		if strings.Join(w.Names(), ",") != strings.Join(g.Names(), ",") {
			return fmt.Errorf("columns differ at row %d: expected %v, got %v", i, w.Names(), g.Names())
		}
		if !w.Equal(g) {
			return fmt.Errorf("mismatch at row %d: expected %s, got %s", i, w, g)
		}
	}
	return nil
}

// CreateSQL mirrors the named fixture tables into db. Column types are
// inferred from the rows: INTEGER, then REAL, else TEXT.
func (f *Fixture) CreateSQL(db *sql.DB, names ...string) error {
	for _, name := range names {
		ts, ok := f.Tables[name]
		if !ok {
			return fmt.Errorf("fixture has no table %q", name)
		}
		cols := make([]string, len(ts.Cols))
		for i, c := range ts.Cols {
			cols[i] = fmt.Sprintf("%s %s", c, columnType(ts.Rows, i))
		}
		if _, err := db.Exec(fmt.Sprintf("CREATE TABLE %s (%s)", name, strings.Join(cols, ", "))); err != nil {
			return fmt.Errorf("create %s: %w", name, err)
		}
		marks := strings.TrimSuffix(strings.Repeat("?, ", len(ts.Cols)), ", ")
		ins := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", name, strings.Join(ts.Cols, ", "), marks)
		for _, row := range ts.Rows {
			if _, err := db.Exec(ins, row...); err != nil {
				return fmt.Errorf("insert into %s: %w", name, err)
			}
		}
	}
	return nil
}

func columnType(rows [][]any, i int) string {
	colType := "TEXT"
	for _, row := range rows {
		if i >= len(row) {
			continue
		}
		switch row[i].(type) {
		case int, int64:
			if colType == "TEXT" {
				colType = "INTEGER"
			}
		case float64:
			colType = "REAL"
		case string:
			// string forces TEXT
			return "TEXT"
		}
	}
	return colType
}

// QuerySQL runs a query and converts the result set into records, keeping
// the select-list column order.
func QuerySQL(db *sql.DB, query string, args ...any) ([]storage.Record, error) {
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var out []storage.Record
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		rec := make(storage.Record, 0, len(cols))
		for i, c := range cols {
			v := vals[i]
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			sv, err := storage.Of(v)
			if err != nil {
				return nil, fmt.Errorf("column %s: %w", c, err)
			}
			rec = append(rec, storage.Field{Name: c, Value: sv})
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
