package engine

import (
	"fmt"
	"iter"
	"strings"

	"github.com/SimonWaldherr/funcsql/internal/storage"
)

// The SELECT pipeline: Having(Group(Select(Where(From(tables))))). Stages
// consumed once stay lazy; grouping is the only stage that buffers.

func (s *Select) fetch(e *env) iter.Seq2[storage.Row, error] {
	if s.err != nil {
		return failed(s.err)
	}
	if s.union != nil && s.union.recursive {
		return failed(fmt.Errorf("%w: recursive union outside of a WITH binding", ErrUnsupportedUnion))
	}
	rows := s.havingFilter(s.groupReduce(s.selectMap(s.whereFilter(s.fromProduct(e)))))
	if s.union == nil {
		return rows
	}
	return concat(rows, s.union.query.fetch(e))
}

func concat(seqs ...iter.Seq2[storage.Row, error]) iter.Seq2[storage.Row, error] {
	return func(yield func(storage.Row, error) bool) {
		for _, seq := range seqs {
			for row, err := range seq {
				if !yield(row, err) || err != nil {
					return
				}
			}
		}
	}
}

// fromProduct enumerates the cartesian product of the FROM clause in
// nested-loop order, the rightmost table varying fastest. An empty FROM
// clause yields a single empty composite.
func (s *Select) fromProduct(e *env) iter.Seq2[*CompositeRow, error] {
	return func(yield func(*CompositeRow, error) bool) {
		sources := make([][]storage.Row, len(s.from))
		also := make([]string, len(s.from))
		for i, f := range s.from {
			t := f.table
			if f.cte != "" {
				var err error
				if t, err = e.resolve(f.cte); err != nil {
					yield(nil, err)
					return
				}
				if f.cte != f.alias {
					also[i] = f.cte
				}
			}
			for row := range t.AliasAll(f.alias) {
				sources[i] = append(sources[i], row)
			}
			if len(sources[i]) == 0 {
				return
			}
		}

		idx := make([]int, len(sources))
		for {
			if err := checkCtx(e.ctx); err != nil {
				yield(nil, err)
				return
			}
			rows := make([]storage.Row, len(sources))
			for i, src := range sources {
				rows[i] = src[idx[i]]
			}
			if !yield(newCompositeRow(e, rows, also), nil) {
				return
			}
			// Advance the odometer.
			i := len(idx) - 1
			for ; i >= 0; i-- {
				idx[i]++
				if idx[i] < len(sources[i]) {
					break
				}
				idx[i] = 0
			}
			if i < 0 {
				return
			}
		}
	}
}

// whereFilter keeps composites for which every WHERE predicate is true. NULL
// results reject the composite.
func (s *Select) whereFilter(in iter.Seq2[*CompositeRow, error]) iter.Seq2[*CompositeRow, error] {
	if len(s.where) == 0 {
		return in
	}
	return func(yield func(*CompositeRow, error) bool) {
	next:
		for c, err := range in {
			if err != nil {
				yield(nil, err)
				return
			}
			for _, pred := range s.where {
				v, err := pred(c)
				if err != nil {
					yield(nil, err)
					return
				}
				if toTri(v) != tvTrue {
					continue next
				}
			}
			if !yield(c, nil) {
				return
			}
		}
	}
}

// selectMap evaluates the select list per composite. Star columns come first,
// followed by the named expressions in declaration order.
func (s *Select) selectMap(in iter.Seq2[*CompositeRow, error]) iter.Seq2[storage.Row, error] {
	return func(yield func(storage.Row, error) bool) {
		for c, err := range in {
			if err != nil {
				yield(storage.Row{}, err)
				return
			}
			row, err := s.projectOne(c)
			if !yield(row, err) || err != nil {
				return
			}
		}
	}
}

func (s *Select) projectOne(c *CompositeRow) (storage.Row, error) {
	var rec storage.Record
	if s.star {
		rec = c.Star()
	}
	for _, ne := range s.simple {
		v, err := ne.expr(c)
		if err != nil {
			return storage.Row{}, fmt.Errorf("select %q: %w", ne.name, err)
		}
		rec = rec.Set(ne.name, v)
	}
	return storage.NewRow("", rec), nil
}

type group struct {
	key  storage.Record
	rows []storage.Row
}

// groupReduce partitions rows by the GROUP BY key in first-occurrence order, or
// treats all rows as one group when only aggregates are present. Without
// either, rows pass through untouched.
func (s *Select) groupReduce(in iter.Seq2[storage.Row, error]) iter.Seq2[storage.Row, error] {
	if len(s.groupBy) == 0 && len(s.aggs) == 0 {
		return in
	}
	return func(yield func(storage.Row, error) bool) {
		var groups []*group
		index := map[string]*group{}
		if len(s.groupBy) == 0 {
			groups = append(groups, &group{})
		}
		for row, err := range in {
			if err != nil {
				yield(storage.Row{}, err)
				return
			}
			if len(s.groupBy) == 0 {
				groups[0].rows = append(groups[0].rows, row)
				continue
			}
			key := make(storage.Record, 0, len(s.groupBy))
			parts := make([]string, len(s.groupBy))
			for i, name := range s.groupBy {
				v, err := row.Get(name)
				if err != nil {
					yield(storage.Row{}, fmt.Errorf("group by: %w", err))
					return
				}
				key = append(key, storage.Field{Name: name, Value: v})
				parts[i] = name + "=" + v.Key()
			}
			k := strings.Join(parts, "\x1f")
			g, ok := index[k]
			if !ok {
				g = &group{key: key}
				index[k] = g
				groups = append(groups, g)
			}
			g.rows = append(g.rows, row)
		}
		for _, g := range groups {
			row, err := s.aggregateMap(g)
			if !yield(row, err) || err != nil {
				return
			}
		}
	}
}

// aggregateMap emits the group keys followed by every aggregate result.
func (s *Select) aggregateMap(g *group) (storage.Row, error) {
	rec := g.key.Clone()
	for _, na := range s.aggs {
		v, err := na.agg.Value(g.rows)
		if err != nil {
			return storage.Row{}, fmt.Errorf("select %q: %w", na.name, err)
		}
		rec = rec.Set(na.name, v)
	}
	return storage.NewRow("", rec), nil
}

func (s *Select) havingFilter(in iter.Seq2[storage.Row, error]) iter.Seq2[storage.Row, error] {
	if s.having == nil {
		return in
	}
	return func(yield func(storage.Row, error) bool) {
		for row, err := range in {
			if err != nil {
				yield(storage.Row{}, err)
				return
			}
			v, err := s.having(row)
			if err != nil {
				yield(storage.Row{}, fmt.Errorf("having: %w", err))
				return
			}
			if toTri(v) != tvTrue {
				continue
			}
			if !yield(row, nil) {
				return
			}
		}
	}
}
