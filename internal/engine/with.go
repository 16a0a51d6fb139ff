package engine

import (
	"context"
	"fmt"
	"iter"
	"strings"

	"github.com/SimonWaldherr/funcsql/internal/storage"
)

// Binding is one named common table expression.
type Binding struct {
	name  string
	query Query
}

// CTE binds name to q inside a With. A union carried by q becomes
// recursive.
func CTE(name string, q Query) Binding { return Binding{name: name, query: q} }

// With evaluates its bindings in declaration order, each seeing the tables
// of the bindings before it, then fetches the target query against them.
//
//	q := engine.NewWith(
//	    engine.CTE("cnt", engine.NewValues(engine.As("x", engine.Val(1))).Union(
//	        engine.NewSelect(engine.As("x", engine.Add(engine.Col("cnt", "x"), engine.Val(1)))).
//	            FromCTE("cnt").
//	            Where(engine.Lt(engine.Col("cnt", "x"), engine.Val(10))))),
//	).Select(engine.Star()).FromCTE("cnt")
type With struct {
	bindings []Binding
	target   Query
	err      error
}

func NewWith(bindings ...Binding) *With {
	w := &With{}
	seen := map[string]bool{}
	for _, b := range bindings {
		switch {
		case b.name == "":
			w.fail("CTE without a name")
			continue
		case b.query == nil:
			w.fail("CTE %q has no query", b.name)
			continue
		case seen[b.name]:
			w.fail("duplicate CTE %q", b.name)
			continue
		}
		seen[b.name] = true
		w.bindings = append(w.bindings, Binding{name: b.name, query: b.query.clone(true)})
	}
	return w
}

func (w *With) fail(format string, args ...any) {
	if w.err == nil {
		w.err = fmt.Errorf("%w: "+format, append([]any{ErrInvalidClause}, args...)...)
	}
}

func (w *With) Err() error {
	if w.err != nil {
		return w.err
	}
	for _, b := range w.bindings {
		if err := b.query.Err(); err != nil {
			return fmt.Errorf("CTE %s: %w", b.name, err)
		}
	}
	if w.target == nil {
		return fmt.Errorf("%w: WITH has no target query", ErrInvalidClause)
	}
	return w.target.Err()
}

// Query sets the target query.
func (w *With) Query(q Query) *With {
	if q == nil {
		w.fail("WITH target must be a query")
		return w
	}
	w.target = q
	return w
}

// Select sets a new SELECT as the target. The clause methods below then
// apply to it.
func (w *With) Select(items ...Item) *With { return w.Query(NewSelect(items...)) }

// sel returns the target SELECT the clause methods act on.
func (w *With) sel(clause string) *Select {
	if s, ok := w.target.(*Select); ok {
		return s
	}
	w.fail("%s requires a SELECT target", clause)
	return nil
}

func (w *With) apply(clause string, fn func(*Select)) *With {
	if s := w.sel(clause); s != nil {
		fn(s)
	}
	return w
}

func (w *With) From(tables ...*storage.Table) *With {
	return w.apply("FROM", func(s *Select) { s.From(tables...) })
}

func (w *With) FromAs(alias string, t *storage.Table) *With {
	return w.apply("FROM", func(s *Select) { s.FromAs(alias, t) })
}

func (w *With) FromCTE(name string) *With {
	return w.apply("FROM", func(s *Select) { s.FromCTE(name) })
}

func (w *With) FromCTEAs(alias, name string) *With {
	return w.apply("FROM", func(s *Select) { s.FromCTEAs(alias, name) })
}

func (w *With) Join(t *storage.Table, on Expr) *With {
	return w.apply("JOIN", func(s *Select) { s.Join(t, on) })
}

func (w *With) JoinAs(alias string, t *storage.Table, on Expr) *With {
	return w.apply("JOIN", func(s *Select) { s.JoinAs(alias, t, on) })
}

func (w *With) JoinCTE(name string, on Expr) *With {
	return w.apply("JOIN", func(s *Select) { s.JoinCTE(name, on) })
}

func (w *With) JoinCTEAs(alias, name string, on Expr) *With {
	return w.apply("JOIN", func(s *Select) { s.JoinCTEAs(alias, name, on) })
}

func (w *With) Where(cond Expr) *With {
	return w.apply("WHERE", func(s *Select) { s.Where(cond) })
}

func (w *With) GroupBy(names ...string) *With {
	return w.apply("GROUP BY", func(s *Select) { s.GroupBy(names...) })
}

func (w *With) GroupByExprs(items ...Item) *With {
	return w.apply("GROUP BY", func(s *Select) { s.GroupByExprs(items...) })
}

func (w *With) Having(cond RowExpr) *With {
	return w.apply("HAVING", func(s *Select) { s.Having(cond) })
}

// Union attaches a plain union to the target; it concatenates.
func (w *With) Union(q Query) *With {
	return w.apply("UNION", func(s *Select) { s.Union(q) })
}

func (w *With) Clone() *With { return w.clone(false).(*With) }

func (w *With) clone(bool) Query {
	c := &With{err: w.err}
	c.bindings = make([]Binding, len(w.bindings))
	for i, b := range w.bindings {
		c.bindings[i] = Binding{name: b.name, query: b.query.clone(false)}
	}
	if w.target != nil {
		c.target = w.target.clone(false)
	}
	return c
}

func (w *With) All(ctx context.Context, opts ...Option) iter.Seq2[storage.Row, error] {
	return Fetch(ctx, w, opts...)
}

func (w *With) fetch(e *env) iter.Seq2[storage.Row, error] {
	if err := w.Err(); err != nil {
		return failed(err)
	}
	return func(yield func(storage.Row, error) bool) {
		scope := e
		for _, b := range w.bindings {
			t, err := b.materialize(scope)
			if err != nil {
				yield(storage.Row{}, fmt.Errorf("CTE %s: %w", b.name, err))
				return
			}
			scope.log.Debug("cte", "name", b.name, "rows", t.Len())
			scope = scope.withCTE(b.name, t)
		}
		for row, err := range w.target.fetch(scope) {
			if !yield(row, err) || err != nil {
				return
			}
		}
	}
}

// materialize evaluates the binding into a table named after it. A union
// must refer back to the binding through a pending FROM reference.
func (b Binding) materialize(e *env) (*storage.Table, error) {
	uq, ok := b.query.(unionQuery)
	if !ok || uq.unionRef() == nil {
		return storage.FromRows(b.name, b.query.fetch(e))
	}
	step, ok := uq.unionRef().query.(*Select)
	if !ok || step.pending() != b.name {
		return nil, fmt.Errorf("%w: union in CTE %q does not reference %q", ErrUnsupportedUnion, b.name, b.name)
	}
	return storage.FromRows(b.name, fetchRecursive(e, b.name, uq.withoutUnion(), step))
}

func (w *With) String() string {
	parts := make([]string, len(w.bindings))
	for i, b := range w.bindings {
		parts[i] = fmt.Sprintf("%s=%s", b.name, b.query)
	}
	target := "<none>"
	if w.target != nil {
		target = w.target.String()
	}
	return fmt.Sprintf("With(%s).Query(%s)", strings.Join(parts, ", "), target)
}
