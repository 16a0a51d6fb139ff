package engine

import (
	"context"
	"fmt"
	"iter"
	"slices"
	"strings"

	"github.com/SimonWaldherr/funcsql/internal/storage"
)

// Select accumulates the clauses of a SELECT query.
//
//	q := engine.NewSelect(
//	    engine.As("name", engine.Col("n", "name")),
//	    engine.As("value", engine.Col("v", "c2")),
//	).
//	    FromAs("n", names).
//	    JoinAs("v", values, engine.Eq(engine.Col("n", "code"), engine.Col("v", "c1")))
//
// Clauses may be added in any order, except that Having needs a prior
// GroupBy. Misuse is recorded and reported by Err and by Fetch.
type Select struct {
	star    bool
	items   []Item
	simple  []namedExpr
	aggs    []namedAgg
	from    []fromEntry
	where   []Expr
	groupBy []string
	byExprs bool
	having  RowExpr
	union   *unionClause
	err     error
}

// fromEntry is one FROM-clause member. A non-empty cte marks a pending
// reference resolved against the CTE environment at fetch time.
type fromEntry struct {
	alias string
	table *storage.Table
	cte   string
}

// NewSelect starts a query with the given select list.
func NewSelect(items ...Item) *Select {
	s := &Select{}
	for _, it := range items {
		s.addItem(it)
	}
	return s
}

func (s *Select) addItem(it Item) {
	s.items = append(s.items, it)
	switch {
	case it.star:
		s.star = true
	case it.name == "":
		s.fail("select item without a name")
	case it.agg != nil:
		s.aggs = append(s.aggs, namedAgg{name: it.name, agg: it.agg})
		if col, e, ok := it.agg.Injected(); ok {
			s.simple = setExpr(s.simple, col, e)
		}
	case it.expr != nil:
		s.simple = setExpr(s.simple, it.name, it.expr)
	default:
		s.fail("select item %q has no expression", it.name)
	}
}

func (s *Select) fail(format string, args ...any) {
	if s.err == nil {
		s.err = fmt.Errorf("%w: "+format, append([]any{ErrInvalidClause}, args...)...)
	}
}

func (s *Select) Err() error { return s.err }

func (s *Select) addFrom(entry fromEntry) {
	if entry.cte != "" && entry.cte != s.pending() && s.pending() != "" {
		s.fail("only one CTE reference per query is supported (have %q, adding %q)", s.pending(), entry.cte)
		return
	}
	for i := range s.from {
		if s.from[i].alias == entry.alias {
			s.from[i] = entry
			return
		}
	}
	s.from = append(s.from, entry)
}

// pending returns the CTE name referenced by the FROM clause, if any.
func (s *Select) pending() string {
	for _, f := range s.from {
		if f.cte != "" {
			return f.cte
		}
	}
	return ""
}

// From adds tables under their own names.
func (s *Select) From(tables ...*storage.Table) *Select {
	for _, t := range tables {
		if t == nil {
			s.fail("FROM requires a table")
			continue
		}
		s.addFrom(fromEntry{alias: t.Name(), table: t})
	}
	return s
}

// FromAs adds a table under an alias, as needed for self-joins.
func (s *Select) FromAs(alias string, t *storage.Table) *Select {
	if alias == "" || t == nil {
		s.fail("FROM alias requires both an alias and a table")
		return s
	}
	s.addFrom(fromEntry{alias: alias, table: t})
	return s
}

// FromCTE references a table by CTE name. It resolves only inside a With.
func (s *Select) FromCTE(name string) *Select { return s.FromCTEAs(name, name) }

// FromCTEAs references a CTE under an alias. Its rows are reachable by both
// the alias and the CTE name.
func (s *Select) FromCTEAs(alias, name string) *Select {
	if alias == "" || name == "" {
		s.fail("FROM CTE reference requires a name")
		return s
	}
	s.addFrom(fromEntry{alias: alias, cte: name})
	return s
}

// Join adds a table and its ON condition. It is a cartesian product plus a
// WHERE condition.
func (s *Select) Join(t *storage.Table, on Expr) *Select {
	if t == nil {
		s.fail("JOIN requires a table")
		return s
	}
	return s.join(fromEntry{alias: t.Name(), table: t}, on)
}

func (s *Select) JoinAs(alias string, t *storage.Table, on Expr) *Select {
	if alias == "" || t == nil {
		s.fail("JOIN alias requires both an alias and a table")
		return s
	}
	return s.join(fromEntry{alias: alias, table: t}, on)
}

func (s *Select) JoinCTE(name string, on Expr) *Select { return s.JoinCTEAs(name, name, on) }

func (s *Select) JoinCTEAs(alias, name string, on Expr) *Select {
	if alias == "" || name == "" {
		s.fail("JOIN CTE reference requires a name")
		return s
	}
	return s.join(fromEntry{alias: alias, cte: name}, on)
}

func (s *Select) join(entry fromEntry, on Expr) *Select {
	if on == nil {
		s.fail("JOIN %q requires an ON condition", entry.alias)
		return s
	}
	s.addFrom(entry)
	s.where = append(s.where, on)
	return s
}

// Where adds a condition; multiple conditions are ANDed.
func (s *Select) Where(cond Expr) *Select {
	if cond == nil {
		s.fail("WHERE requires a condition")
		return s
	}
	s.where = append(s.where, cond)
	return s
}

// GroupBy groups by names computed in the select list.
func (s *Select) GroupBy(names ...string) *Select {
	switch {
	case len(names) == 0:
		s.fail("GROUP BY requires at least one name")
	case s.byExprs:
		s.fail("GROUP BY takes either names or named expressions, not both")
	default:
		s.groupBy = slices.Clone(names)
	}
	return s
}

// GroupByExprs groups by named expressions, adding them to the select list.
func (s *Select) GroupByExprs(items ...Item) *Select {
	if len(items) == 0 {
		s.fail("GROUP BY requires at least one expression")
		return s
	}
	if len(s.groupBy) > 0 && !s.byExprs {
		s.fail("GROUP BY takes either names or named expressions, not both")
		return s
	}
	names := make([]string, 0, len(items))
	for _, it := range items {
		if it.star || it.agg != nil || it.expr == nil || it.name == "" {
			s.fail("GROUP BY expression %q must be a named plain expression", it.name)
			return s
		}
		s.simple = setExpr(s.simple, it.name, it.expr)
		names = append(names, it.name)
	}
	s.groupBy = names
	s.byExprs = true
	return s
}

// Having filters grouped rows.
func (s *Select) Having(cond RowExpr) *Select {
	switch {
	case len(s.groupBy) == 0:
		s.fail("HAVING requires a GROUP BY clause")
	case cond == nil:
		s.fail("HAVING requires a condition")
	default:
		s.having = cond
	}
	return s
}

// Union attaches q. At the top level the results are concatenated; as a
// WITH binding the union becomes recursive.
func (s *Select) Union(q Query) *Select {
	if q == nil {
		s.fail("UNION requires a query")
		return s
	}
	s.union = &unionClause{query: q}
	return s
}

// Clone returns an independent copy of the query.
func (s *Select) Clone() *Select { return s.cloneSelect(false) }

func (s *Select) clone(rewriteUnion bool) Query { return s.cloneSelect(rewriteUnion) }

func (s *Select) cloneSelect(rewriteUnion bool) *Select {
	c := *s
	c.items = slices.Clone(s.items)
	c.simple = slices.Clone(s.simple)
	c.aggs = slices.Clone(s.aggs)
	c.from = slices.Clone(s.from)
	c.where = slices.Clone(s.where)
	c.groupBy = slices.Clone(s.groupBy)
	c.union = s.union.clone()
	if rewriteUnion && c.union != nil {
		c.union.recursive = true
	}
	return &c
}

func (s *Select) unionRef() *unionClause { return s.union }

func (s *Select) withoutUnion() Query {
	c := s.cloneSelect(false)
	c.union = nil
	return c
}

// All is Fetch(ctx, s).
func (s *Select) All(ctx context.Context, opts ...Option) iter.Seq2[storage.Row, error] {
	return Fetch(ctx, s, opts...)
}

func (s *Select) String() string {
	var sb strings.Builder
	cols := make([]string, 0, len(s.items))
	for _, it := range s.items {
		if it.star {
			cols = append(cols, "*")
		} else {
			cols = append(cols, it.name)
		}
	}
	fmt.Fprintf(&sb, "Select(%s)", strings.Join(cols, ", "))
	if len(s.from) > 0 {
		from := make([]string, len(s.from))
		for i, f := range s.from {
			switch {
			case f.cte != "" && f.cte != f.alias:
				from[i] = fmt.Sprintf("%s AS %s", f.cte, f.alias)
			case f.cte != "":
				from[i] = f.cte
			case f.table.Name() != f.alias:
				from[i] = fmt.Sprintf("%s AS %s", f.table.Name(), f.alias)
			default:
				from[i] = f.alias
			}
		}
		fmt.Fprintf(&sb, ".From(%s)", strings.Join(from, ", "))
	}
	if len(s.where) > 0 {
		fmt.Fprintf(&sb, ".Where(%d conditions)", len(s.where))
	}
	if len(s.groupBy) > 0 {
		fmt.Fprintf(&sb, ".GroupBy(%s)", strings.Join(s.groupBy, ", "))
	}
	if s.having != nil {
		sb.WriteString(".Having(...)")
	}
	if s.union != nil {
		kind := "Union"
		if s.union.recursive {
			kind = "RecursiveUnion"
		}
		fmt.Fprintf(&sb, ".%s(%s)", kind, s.union.query)
	}
	return sb.String()
}
