package engine

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/SimonWaldherr/funcsql/internal/storage"
)

// CompositeRow is one element of the FROM-clause product: a Row per table
// or alias, addressable by name. For correlated subqueries it also exposes
// the rows of the enclosing query, shadowed by same-named rows of its own.
type CompositeRow struct {
	rows  []storage.Row
	names map[string]storage.Row
	env   *env
}

// NewCompositeRow joins rows without an enclosing context.
func NewCompositeRow(rows ...storage.Row) *CompositeRow {
	return newCompositeRow(newEnv(context.Background()), rows, nil)
}

// newCompositeRow builds a composite inside e. also[i], when non-empty, is an
// additional name under which rows[i] is reachable.
func newCompositeRow(e *env, rows []storage.Row, also []string) *CompositeRow {
	c := &CompositeRow{rows: rows, names: make(map[string]storage.Row, len(rows)), env: e}
	if e.outer != nil {
		maps.Copy(c.names, e.outer.names)
	}
	for i, r := range rows {
		c.names[r.Table()] = r
		if i < len(also) && also[i] != "" {
			c.names[also[i]] = r
		}
	}
	return c
}

// Row returns the row bound to a table name or alias.
func (c *CompositeRow) Row(name string) (storage.Row, error) {
	if r, ok := c.names[name]; ok {
		return r, nil
	}
	return storage.Row{}, fmt.Errorf("%w: %q is not a table or alias in this query (have %v)", ErrUnknownAttribute, name, c.Names())
}

// Get is shorthand for Row(table) followed by Get(column).
func (c *CompositeRow) Get(table, column string) (storage.Value, error) {
	r, err := c.Row(table)
	if err != nil {
		return storage.Value{}, err
	}
	return r.Get(column)
}

// Star flattens the columns of the composite's own rows into one record.
// On a name collision the later table wins. Rows inherited from an
// enclosing query are not included.
func (c *CompositeRow) Star() storage.Record {
	var out storage.Record
	for _, r := range c.rows {
		for _, f := range r.Record() {
			out = out.Set(f.Name, f.Value)
		}
	}
	return out
}

// Names lists every visible table or alias name, sorted.
func (c *CompositeRow) Names() []string {
	return slices.Sorted(maps.Keys(c.names))
}

// Context returns the context of the fetch that produced c. Subqueries run
// from inside expressions should use it.
func (c *CompositeRow) Context() context.Context {
	if c == nil || c.env == nil {
		return context.Background()
	}
	return c.env.ctx
}

func (c *CompositeRow) String() string {
	names := c.Names()
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = fmt.Sprintf("%q: %s", n, c.names[n])
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
