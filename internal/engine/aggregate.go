package engine

import (
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"

	"github.com/SimonWaldherr/funcsql/internal/storage"
)

// Wildcard selects every row for an aggregate, as in COUNT(*).
const Wildcard = "*"

// Reducer folds the values of one group into a single value.
type Reducer func(values []storage.Value) (storage.Value, error)

// Aggregate pairs a Reducer with the select-list value it reduces. Three
// selector forms exist:
//
//	NewAggregate(Sum, "value")          // a column computed by the SELECT list
//	NewAggregateExpr(Sum, Col("t", "v")) // an inline expression
//	NewAggregate(Count, Wildcard)       // every row
//
// The last two inject a hidden column into the SELECT list; the hidden
// column never appears in grouped output.
type Aggregate struct {
	reduce Reducer
	column string
	inject Expr
}

// NewAggregate reduces the named select-list column, or every row when
// column is Wildcard.
func NewAggregate(fn Reducer, column string) *Aggregate {
	if column == Wildcard {
		return &Aggregate{
			reduce: fn,
			column: hiddenColumnName(),
			inject: func(*CompositeRow) (storage.Value, error) { return storage.Bool(true), nil },
		}
	}
	return &Aggregate{reduce: fn, column: column}
}

// NewAggregateExpr reduces an expression evaluated against each composite.
func NewAggregateExpr(fn Reducer, e Expr) *Aggregate {
	return &Aggregate{reduce: fn, column: hiddenColumnName(), inject: e}
}

// hiddenColumnName returns a fresh identifier that cannot collide with a
// user column name.
func hiddenColumnName() string {
	u := uuid.New()
	return "_" + hex.EncodeToString(u[:])
}

// Column is the select-list column the aggregate reads.
func (a *Aggregate) Column() string { return a.column }

// Injected returns the hidden select item this aggregate adds, if any.
func (a *Aggregate) Injected() (string, Expr, bool) {
	if a.inject == nil {
		return "", nil, false
	}
	return a.column, a.inject, true
}

// Value reduces the aggregate's column over rows.
func (a *Aggregate) Value(rows []storage.Row) (storage.Value, error) {
	values := make([]storage.Value, len(rows))
	for i, r := range rows {
		v, err := r.Get(a.column)
		if err != nil {
			return storage.Value{}, err
		}
		values[i] = v
	}
	v, err := a.reduce(values)
	if err != nil {
		return storage.Value{}, fmt.Errorf("aggregate over %q: %w", a.column, err)
	}
	return v, nil
}
