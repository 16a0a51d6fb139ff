package engine

import (
	"fmt"

	"github.com/SimonWaldherr/funcsql/internal/storage"
)

// DML operators mutate a Table eagerly when Exec is called. Records are not
// checked against the table's schema.

// Insert appends records to a table.
//
//	n, err := engine.NewInsert().Into(t).Values(rec1, rec2).Exec()
type Insert struct {
	table *storage.Table
	data  []storage.Record
}

func NewInsert() *Insert { return &Insert{} }

func (i *Insert) Into(t *storage.Table) *Insert {
	i.table = t
	return i
}

func (i *Insert) Values(recs ...storage.Record) *Insert {
	i.data = append(i.data, recs...)
	return i
}

// Exec appends the records and returns how many were added.
func (i *Insert) Exec() (int, error) {
	if i.table == nil {
		return 0, fmt.Errorf("%w: INSERT requires a target table", ErrInvalidClause)
	}
	i.table.Append(i.data...)
	return len(i.data), nil
}

type assignment struct {
	column string
	expr   RowExpr
}

// Update rewrites columns of matching rows. Every assignment sees the row
// as it was before the update. Without Where, every row matches.
type Update struct {
	table *storage.Table
	set   []assignment
	where RowExpr
	err   error
}

func NewUpdate(t *storage.Table) *Update {
	u := &Update{table: t}
	if t == nil {
		u.err = fmt.Errorf("%w: UPDATE requires a target table", ErrInvalidClause)
	}
	return u
}

// Set assigns column; repeated calls add assignments.
func (u *Update) Set(column string, e RowExpr) *Update {
	if (column == "" || e == nil) && u.err == nil {
		u.err = fmt.Errorf("%w: SET requires a column and an expression", ErrInvalidClause)
	}
	u.set = append(u.set, assignment{column: column, expr: e})
	return u
}

func (u *Update) Where(cond RowExpr) *Update {
	u.where = cond
	return u
}

// Exec applies the update and returns the number of rows changed. On error
// the table is left untouched.
func (u *Update) Exec() (int, error) {
	if u.err != nil {
		return 0, u.err
	}
	if len(u.set) == 0 {
		return 0, fmt.Errorf("%w: UPDATE without SET", ErrInvalidClause)
	}
	return u.table.Update(func(row storage.Row) (storage.Record, bool, error) {
		ok, err := matches(u.where, row)
		if err != nil || !ok {
			return nil, false, err
		}
		rec := row.Record()
		for _, a := range u.set {
			v, err := a.expr(row)
			if err != nil {
				return nil, false, fmt.Errorf("set %q: %w", a.column, err)
			}
			rec = rec.Set(a.column, v)
		}
		return rec, true, nil
	})
}

// Delete removes matching rows. Without Where, the table is emptied.
type Delete struct {
	table *storage.Table
	where RowExpr
}

func NewDelete() *Delete { return &Delete{} }

func (d *Delete) From(t *storage.Table) *Delete {
	d.table = t
	return d
}

func (d *Delete) Where(cond RowExpr) *Delete {
	d.where = cond
	return d
}

// Exec removes the matching rows and returns how many were deleted.
func (d *Delete) Exec() (int, error) {
	if d.table == nil {
		return 0, fmt.Errorf("%w: DELETE requires a target table", ErrInvalidClause)
	}
	return d.table.DeleteWhere(func(row storage.Row) (bool, error) { return matches(d.where, row) })
}

func matches(cond RowExpr, row storage.Row) (bool, error) {
	if cond == nil {
		return true, nil
	}
	v, err := cond(row)
	if err != nil {
		return false, fmt.Errorf("where: %w", err)
	}
	return toTri(v) == tvTrue, nil
}
