package engine

import (
	"context"
	"fmt"
	"iter"
	"slices"
	"strings"

	"github.com/SimonWaldherr/funcsql/internal/storage"
)

// Values is a single-row VALUES list. As a WITH binding it may carry a
// recursive union: VALUES (...) UNION SELECT ... FROM cte.
type Values struct {
	items []namedExpr
	union *unionClause
	err   error
}

// NewValues builds a VALUES row from named expressions. Star and aggregate
// items are rejected.
func NewValues(items ...Item) *Values {
	v := &Values{}
	for _, it := range items {
		switch {
		case it.star, it.agg != nil:
			v.fail("VALUES accepts only named expressions")
		case it.name == "" || it.expr == nil:
			v.fail("VALUES item must have a name and an expression")
		default:
			v.items = setExpr(v.items, it.name, it.expr)
		}
	}
	return v
}

func (v *Values) fail(format string, args ...any) {
	if v.err == nil {
		v.err = fmt.Errorf("%w: "+format, append([]any{ErrInvalidClause}, args...)...)
	}
}

func (v *Values) Err() error { return v.err }

// Union attaches q. It only takes effect as a recursive union inside a
// WITH binding; a plain union on VALUES is ignored at fetch time.
func (v *Values) Union(q Query) *Values {
	if q == nil {
		v.fail("UNION requires a query")
		return v
	}
	v.union = &unionClause{query: q}
	return v
}

func (v *Values) Clone() *Values { return v.cloneValues(false) }

func (v *Values) clone(rewriteUnion bool) Query { return v.cloneValues(rewriteUnion) }

func (v *Values) cloneValues(rewriteUnion bool) *Values {
	c := *v
	c.items = slices.Clone(v.items)
	c.union = v.union.clone()
	if rewriteUnion && c.union != nil {
		c.union.recursive = true
	}
	return &c
}

func (v *Values) unionRef() *unionClause { return v.union }

func (v *Values) withoutUnion() Query {
	c := v.cloneValues(false)
	c.union = nil
	return c
}

func (v *Values) All(ctx context.Context, opts ...Option) iter.Seq2[storage.Row, error] {
	return Fetch(ctx, v, opts...)
}

func (v *Values) fetch(e *env) iter.Seq2[storage.Row, error] {
	if v.err != nil {
		return failed(v.err)
	}
	if v.union != nil {
		if v.union.recursive {
			return failed(fmt.Errorf("%w: recursive union outside of a WITH binding", ErrUnsupportedUnion))
		}
		e.log.Warn("ignoring union attached to VALUES outside of a WITH binding", "query", v.String())
	}
	return func(yield func(storage.Row, error) bool) {
		c := newCompositeRow(e, nil, nil)
		var rec storage.Record
		for _, ne := range v.items {
			val, err := ne.expr(c)
			if err != nil {
				yield(storage.Row{}, fmt.Errorf("values %q: %w", ne.name, err))
				return
			}
			rec = rec.Set(ne.name, val)
		}
		yield(storage.NewRow("", rec), nil)
	}
}

func (v *Values) String() string {
	names := make([]string, len(v.items))
	for i, ne := range v.items {
		names[i] = ne.name
	}
	s := fmt.Sprintf("Values(%s)", strings.Join(names, ", "))
	if v.union != nil {
		kind := "Union"
		if v.union.recursive {
			kind = "RecursiveUnion"
		}
		s += fmt.Sprintf(".%s(%s)", kind, v.union.query)
	}
	return s
}
