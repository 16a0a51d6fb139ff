package engine

import (
	"context"
	"fmt"
	"iter"

	"github.com/SimonWaldherr/funcsql/internal/storage"
)

// Subquery helpers. Pass WithOuter to correlate a subquery with the
// composite of an enclosing query.

// FetchFirstValue returns the first column of the first row, as used by a
// scalar subquery. ok is false when q produced no rows.
func FetchFirstValue(ctx context.Context, q Query, opts ...Option) (v storage.Value, ok bool, err error) {
	for row, err := range Fetch(ctx, q, opts...) {
		if err != nil {
			return storage.Value{}, false, err
		}
		return firstValue(row), true, nil
	}
	return storage.Null(), false, nil
}

// FetchAllValues lazily yields the first column of every row, as used by
// x IN (SELECT ...). Stopping early stops the underlying fetch.
func FetchAllValues(ctx context.Context, q Query, opts ...Option) iter.Seq2[storage.Value, error] {
	return func(yield func(storage.Value, error) bool) {
		for row, err := range Fetch(ctx, q, opts...) {
			if err != nil {
				yield(storage.Value{}, err)
				return
			}
			if !yield(firstValue(row), nil) {
				return
			}
		}
	}
}

func firstValue(row storage.Row) storage.Value {
	if vals := row.Values(); len(vals) > 0 {
		return vals[0]
	}
	return storage.Null()
}

// FetchTable materializes q for use as a subquery in a FROM clause, which
// is scanned once per outer row.
func FetchTable(ctx context.Context, name string, q Query, opts ...Option) (*storage.Table, error) {
	return FromQuery(ctx, name, q, opts...)
}

// FromQuery evaluates q eagerly into a new table called name.
func FromQuery(ctx context.Context, name string, q Query, opts ...Option) (*storage.Table, error) {
	t, err := storage.FromRows(name, Fetch(ctx, q, opts...))
	if err != nil {
		return nil, fmt.Errorf("table %s: %w", name, err)
	}
	return t, nil
}

// Exists reports whether q, correlated with outer, yields any row. A nil
// outer runs q uncorrelated.
func Exists(outer *CompositeRow, q Query) (bool, error) {
	var opts []Option
	if outer != nil {
		opts = append(opts, WithOuter(outer))
	}
	next, stop := iter.Pull2(Fetch(outer.Context(), q, opts...))
	defer stop()
	_, err, ok := next()
	if err != nil {
		return false, err
	}
	return ok, nil
}

// ExistsExpr is EXISTS (q) as a WHERE predicate, correlated with the
// composite being filtered.
func ExistsExpr(q Query) Expr {
	return func(c *CompositeRow) (storage.Value, error) {
		ok, err := Exists(c, q)
		if err != nil {
			return storage.Value{}, err
		}
		return storage.Bool(ok), nil
	}
}

// ScalarExpr is a correlated scalar subquery. No rows yields NULL.
func ScalarExpr(q Query) Expr {
	return func(c *CompositeRow) (storage.Value, error) {
		v, _, err := FetchFirstValue(c.Context(), q, WithOuter(c))
		return v, err
	}
}

// InExpr is e IN (q). A NULL operand yields NULL, as does a miss against a
// list containing NULL.
func InExpr(e Expr, q Query) Expr {
	return func(c *CompositeRow) (storage.Value, error) {
		v, err := e(c)
		if err != nil {
			return storage.Value{}, err
		}
		if v.IsNull() {
			return storage.Null(), nil
		}
		sawNull := false
		for candidate, err := range FetchAllValues(c.Context(), q, WithOuter(c)) {
			if err != nil {
				return storage.Value{}, err
			}
			if candidate.IsNull() {
				sawNull = true
				continue
			}
			if v.Equal(candidate) {
				return storage.Bool(true), nil
			}
		}
		if sawNull {
			return storage.Null(), nil
		}
		return storage.Bool(false), nil
	}
}
