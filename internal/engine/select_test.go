package engine_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SimonWaldherr/funcsql/internal/engine"
	"github.com/SimonWaldherr/funcsql/internal/storage"
)

func TestSelect_Join(t *testing.T) {
	db := newDatabase(t)
	q := engine.NewSelect(
		engine.As("name", col("n", "name")),
		engine.As("value", col("v", "c2")),
	).
		FromAs("n", db.names).
		FromAs("v", db.values).
		Where(engine.Eq(col("n", "code"), col("v", "c1")))
	db.expect(t, "join", q)
}

func TestSelect_JoinOn(t *testing.T) {
	db := newDatabase(t)
	q := engine.NewSelect(
		engine.As("name", col("n", "name")),
		engine.As("value", col("v", "c2")),
	).
		FromAs("n", db.names).
		JoinAs("v", db.values, engine.Eq(col("n", "code"), col("v", "c1"))).
		Where(engine.Lt(col("v", "c2"), val(42.0)))
	db.expect(t, "join_on", q)

	// Joining a table by its own name.
	q = engine.NewSelect(
		engine.As("name", col("n", "name")),
		engine.As("value", col("values", "c2")),
	).
		FromAs("n", db.names).
		Join(db.values, engine.Eq(col("n", "code"), col("values", "c1")))
	db.expect(t, "join", q)
}

func TestSelect_CartesianProduct(t *testing.T) {
	db := newDatabase(t)
	db.expect(t, "cart_prod", engine.NewSelect(engine.Star()).From(db.values, db.names))
}

func TestSelect_StarCollision(t *testing.T) {
	a := storage.NewTable("a", []storage.Record{storage.MustRecord("id", 1, "x", "a")}, nil)
	b := storage.NewTable("b", []storage.Record{storage.MustRecord("id", 2, "y", "b")}, nil)

	got := fetchMaps(t, engine.NewSelect(engine.Star()).From(a, b))
	assert.Equal(t, []map[string]any{{"id": int64(2), "x": "a", "y": "b"}}, got)

	rows, err := engine.FetchAll(context.Background(),
		engine.NewSelect(engine.Star(), engine.As("sum", engine.Add(col("a", "id"), col("b", "id")))).From(a, b))
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "x", "y", "sum"}, rows[0].Columns())
}

func TestSelect_EmptyTableYieldsNothing(t *testing.T) {
	db := newDatabase(t)
	empty := storage.NewTable("empty", nil, nil)
	rows, err := engine.FetchAll(context.Background(), engine.NewSelect(engine.Star()).From(db.names, empty))
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestSelect_NoFrom(t *testing.T) {
	got := fetchMaps(t, engine.NewSelect(engine.As("x", val(1)), engine.As("y", engine.Div(val(1), val(4)))))
	assert.Equal(t, []map[string]any{{"x": int64(1), "y": 0.25}}, got)
}

func TestSelect_GroupBy(t *testing.T) {
	db := newDatabase(t)

	t.Run("by select column", func(t *testing.T) {
		q := engine.NewSelect(
			engine.As("key", col("raw", "group")),
			engine.As("value", col("raw", "value")),
			engine.AggAs("total", engine.NewAggregate(engine.Sum, "value")),
		).From(db.raw).GroupBy("key")
		db.expect(t, "group_by", q)
	})

	t.Run("aggregate over expression", func(t *testing.T) {
		q := engine.NewSelect(
			engine.As("key", col("raw", "group")),
			engine.AggAs("total", engine.NewAggregateExpr(engine.Sum, col("raw", "value"))),
		).From(db.raw).GroupBy("key")
		db.expect(t, "group_by", q)
	})

	t.Run("named group expression", func(t *testing.T) {
		q := engine.NewSelect(
			engine.AggAs("total", engine.NewAggregateExpr(engine.Sum, col("raw", "value"))),
		).From(db.raw).GroupByExprs(engine.As("key", col("raw", "group")))
		db.expect(t, "group_by", q)
	})
}

func TestSelect_AggregateWithoutGroupBy(t *testing.T) {
	db := newDatabase(t)
	q := engine.NewSelect(
		engine.As("value", col("raw", "value")),
		engine.AggAs("n", engine.NewAggregate(engine.Count, engine.Wildcard)),
		engine.AggAs("distinct", engine.NewAggregate(engine.Distinct(engine.Count), "value")),
		engine.AggAs("mean", engine.NewAggregate(engine.Mean, "value")),
		engine.AggAs("max", engine.NewAggregate(engine.Max, "value")),
	).From(db.raw)
	assert.Equal(t, []map[string]any{
		{"n": int64(4), "distinct": int64(3), "mean": 1.75, "max": int64(3)},
	}, fetchMaps(t, q))

	// An empty input still forms one group.
	empty := storage.NewTable("empty", nil, nil)
	q = engine.NewSelect(
		engine.AggAs("n", engine.NewAggregate(engine.Count, engine.Wildcard)),
		engine.AggAs("total", engine.NewAggregateExpr(engine.Sum, col("empty", "v"))),
	).From(empty)
	assert.Equal(t, []map[string]any{{"n": int64(0), "total": int64(0)}}, fetchMaps(t, q))
}

func TestSelect_WildcardCountIgnoresNulls(t *testing.T) {
	db := newDatabase(t)
	q := engine.NewSelect(
		engine.As("boss", col("org", "boss")),
		engine.AggAs("rows", engine.NewAggregate(engine.Count, engine.Wildcard)),
		engine.AggAs("bosses", engine.NewAggregate(engine.Count, "boss")),
	).From(db.org)
	assert.Equal(t, []map[string]any{{"rows": int64(7), "bosses": int64(6)}}, fetchMaps(t, q))
}

func TestSelect_Having(t *testing.T) {
	db := newDatabase(t)
	counted := func(min int) *engine.Select {
		return engine.NewSelect(
			engine.As("key", col("raw", "group")),
			engine.AggAs("count", engine.NewAggregate(engine.Count, engine.Wildcard)),
		).From(db.raw).GroupBy("key").
			Having(engine.RowCompare(">", engine.Field("count"), engine.RowVal(min)))
	}
	assert.Len(t, fetchMaps(t, counted(0)), 2)
	assert.Empty(t, fetchMaps(t, counted(2)))
}

func TestSelect_Union(t *testing.T) {
	db := newDatabase(t)
	q := engine.NewSelect(
		engine.As("name", col("names", "name")),
		engine.As("code", col("names", "code")),
	).From(db.names).Union(
		engine.NewSelect(
			engine.As("name", col("values", "c1")),
			engine.As("code", col("values", "c2")),
		).From(db.values))
	db.expect(t, "union", q)
}

func TestSelect_CloneAndIdempotence(t *testing.T) {
	tbl := storage.NewTable("t", []storage.Record{storage.MustRecord("a", 42)}, nil)
	s1 := engine.NewSelect(engine.As("a", col("t", "a"))).From(tbl)
	s2 := s1.Clone()
	s2.Where(engine.Eq(col("t", "a"), val(0)))

	assert.Equal(t, []map[string]any{{"a": int64(42)}}, fetchMaps(t, s1))
	assert.Empty(t, fetchMaps(t, s2))
	assert.Equal(t, fetchMaps(t, s1), fetchMaps(t, s1))
}

func TestSelect_AllIsLazy(t *testing.T) {
	calls := 0
	tbl := storage.NewTable("t", []storage.Record{
		storage.MustRecord("a", 1), storage.MustRecord("a", 2), storage.MustRecord("a", 3),
	}, nil)
	q := engine.NewSelect(engine.As("a", func(c *engine.CompositeRow) (storage.Value, error) {
		calls++
		return c.Get("t", "a")
	})).From(tbl)

	seq := q.All(context.Background())
	assert.Zero(t, calls)
	for row, err := range seq {
		require.NoError(t, err)
		v, _ := row.Get("a")
		assert.Equal(t, storage.Int(1), v)
		break
	}
	assert.Equal(t, 1, calls)
}

func TestSelect_ContextCancelled(t *testing.T) {
	db := newDatabase(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := engine.FetchAll(ctx, engine.NewSelect(engine.Star()).From(db.names))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSelect_Errors(t *testing.T) {
	db := newDatabase(t)
	tests := []struct {
		name string
		q    *engine.Select
		want error
	}{
		{"having without group by", engine.NewSelect(engine.Star()).From(db.raw).Having(engine.RowVal(true)), engine.ErrInvalidClause},
		{"group by both forms", engine.NewSelect(engine.As("k", col("raw", "group"))).From(db.raw).
			GroupBy("k").GroupByExprs(engine.As("g", col("raw", "group"))), engine.ErrInvalidClause},
		{"group by names after exprs", engine.NewSelect().From(db.raw).
			GroupByExprs(engine.As("g", col("raw", "group"))).GroupBy("g"), engine.ErrInvalidClause},
		{"aggregate as group expression", engine.NewSelect().From(db.raw).
			GroupByExprs(engine.AggAs("n", engine.NewAggregate(engine.Count, engine.Wildcard))), engine.ErrInvalidClause},
		{"join without table", engine.NewSelect(engine.Star()).JoinAs("x", nil, val(true)), engine.ErrInvalidClause},
		{"join without alias", engine.NewSelect(engine.Star()).JoinAs("", db.names, val(true)), engine.ErrInvalidClause},
		{"join without condition", engine.NewSelect(engine.Star()).Join(db.names, nil), engine.ErrInvalidClause},
		{"two pending references", engine.NewSelect(engine.Star()).FromCTE("a").FromCTE("b"), engine.ErrInvalidClause},
		{"unnamed item", engine.NewSelect(engine.As("", val(1))), engine.ErrInvalidClause},
		{"unknown alias", engine.NewSelect(engine.As("x", col("nope", "c"))).From(db.names), engine.ErrUnknownAttribute},
		{"unknown column", engine.NewSelect(engine.As("x", col("names", "nope"))).From(db.names), engine.ErrUnknownAttribute},
		{"pending reference outside WITH", engine.NewSelect(engine.Star()).FromCTE("the_codes"), engine.ErrUnresolvedReference},
		{"sum of text", engine.NewSelect(engine.AggAs("s", engine.NewAggregateExpr(engine.Sum, col("names", "name")))).From(db.names), engine.ErrTypeMismatch},
		{"group by unknown name", engine.NewSelect(engine.As("k", col("raw", "group"))).From(db.raw).GroupBy("nope"), engine.ErrUnknownAttribute},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := engine.FetchAll(context.Background(), tt.q)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestSelect_ErrReportsBuilderMisuse(t *testing.T) {
	q := engine.NewSelect(engine.Star()).Having(engine.RowVal(true))
	assert.ErrorIs(t, q.Err(), engine.ErrInvalidClause)
	assert.NoError(t, engine.NewSelect(engine.Star()).Err())
}

func TestSelect_String(t *testing.T) {
	db := newDatabase(t)
	q := engine.NewSelect(engine.Star(), engine.As("x", val(1))).
		FromAs("n", db.names).
		FromCTEAs("c", "the_codes").
		Where(val(true)).
		GroupBy("x")
	assert.Equal(t, `Select(*, x).From(names AS n, the_codes AS c).Where(1 conditions).GroupBy(x)`, q.String())
}
