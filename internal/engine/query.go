package engine

import (
	"context"
	"iter"

	"github.com/SimonWaldherr/funcsql/internal/storage"
)

// Query is the closed set of query representations: *Select, *Values and
// *With. Building a Query never evaluates it; Fetch does.
type Query interface {
	// Err reports the first builder misuse recorded on the query.
	Err() error
	String() string

	fetch(e *env) iter.Seq2[storage.Row, error]
	// clone deep-copies the query. With rewriteUnion set, an attached union
	// is reclassified as recursive.
	clone(rewriteUnion bool) Query
}

// unionQuery is implemented by the representations that can carry a union.
type unionQuery interface {
	Query
	unionRef() *unionClause
	withoutUnion() Query
}

// unionClause is a query attached with Union. Whether it concatenates or
// recurses is decided by the container: a WITH binding marks it recursive.
type unionClause struct {
	query     Query
	recursive bool
}

func (u *unionClause) clone() *unionClause {
	if u == nil {
		return nil
	}
	return &unionClause{query: u.query.clone(false), recursive: u.recursive}
}

// Item is one entry of a SELECT or VALUES list.
type Item struct {
	name string
	expr Expr
	agg  *Aggregate
	star bool
}

// As names an expression: expr AS name.
func As(name string, e Expr) Item { return Item{name: name, expr: e} }

// AggAs names an aggregate: agg(...) AS name.
func AggAs(name string, a *Aggregate) Item { return Item{name: name, agg: a} }

// Star is SELECT *. It expands to the columns of every FROM-clause table at
// evaluation time, the later table winning on a name collision.
func Star() Item { return Item{star: true} }

func (it Item) Name() string { return it.name }

type namedExpr struct {
	name string
	expr Expr
}

type namedAgg struct {
	name string
	agg  *Aggregate
}

// setExpr binds name in an ordered expression list; rebinding keeps the
// original position.
func setExpr(list []namedExpr, name string, e Expr) []namedExpr {
	for i := range list {
		if list[i].name == name {
			list[i].expr = e
			return list
		}
	}
	return append(list, namedExpr{name: name, expr: e})
}

// Fetch evaluates q lazily. No work happens until the sequence is ranged
// over; iteration stops at the first error.
func Fetch(ctx context.Context, q Query, opts ...Option) iter.Seq2[storage.Row, error] {
	return func(yield func(storage.Row, error) bool) {
		e := newEnv(ctx, opts...)
		for row, err := range q.fetch(e) {
			if !yield(row, err) || err != nil {
				return
			}
		}
	}
}

// FetchAll evaluates q and collects every row.
func FetchAll(ctx context.Context, q Query, opts ...Option) ([]storage.Row, error) {
	return Collect(Fetch(ctx, q, opts...))
}

// Collect drains a row sequence.
func Collect(seq iter.Seq2[storage.Row, error]) ([]storage.Row, error) {
	var rows []storage.Row
	for row, err := range seq {
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// failed is a sequence that yields only err.
func failed(err error) iter.Seq2[storage.Row, error] {
	return func(yield func(storage.Row, error) bool) { yield(storage.Row{}, err) }
}
