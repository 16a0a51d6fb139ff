package engine_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SimonWaldherr/funcsql/internal/engine"
	"github.com/SimonWaldherr/funcsql/internal/storage"
)

func TestExists(t *testing.T) {
	db := newDatabase(t)
	matching := func(c2 float64) *engine.Select {
		return engine.NewSelect(engine.Star()).
			From(db.names).
			Where(func(nc *engine.CompositeRow) (storage.Value, error) {
				ok, err := engine.Exists(nc, engine.NewSelect(engine.Star()).
					From(db.values).
					Where(engine.And(
						engine.Eq(col("values", "c2"), val(c2)),
						engine.Eq(col("names", "code"), col("values", "c1")),
					)))
				return storage.Bool(ok), err
			})
	}
	db.expect(t, "exists_found", matching(42.0))
	assert.Empty(t, fetchMaps(t, matching(1337.0)))
}

func TestExistsExpr_SelfReference(t *testing.T) {
	db := newDatabase(t)
	// The subquery reads org under its own name; the outer row stays
	// reachable as o.
	q := engine.NewSelect(engine.As("name", col("o", "name"))).
		FromAs("o", db.org).
		Where(engine.Not(engine.ExistsExpr(
			engine.NewSelect(engine.Star()).From(db.org).
				Where(engine.Eq(col("org", "boss"), col("o", "name"))))))
	assert.Equal(t, []map[string]any{
		{"name": "Dave"}, {"name": "Emma"}, {"name": "Fred"}, {"name": "Gail"},
	}, fetchMaps(t, q))
}

func TestEmptySubquery(t *testing.T) {
	db := newDatabase(t)
	q := engine.NewSelect(engine.Star()).
		From(db.names).
		Where(engine.Eq(col("names", "code"), engine.ScalarExpr(
			engine.NewSelect(engine.As("name", col("values", "c1"))).
				From(db.values).
				Where(engine.Eq(col("values", "c2"), val(1337.0))))))
	assert.Empty(t, fetchMaps(t, q))
}

func TestFetchFirstValue(t *testing.T) {
	db := newDatabase(t)
	ctx := context.Background()

	v, ok, err := engine.FetchFirstValue(ctx, engine.NewSelect(engine.As("name", col("names", "name"))).From(db.names))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, storage.Text("Life"), v)

	v, ok, err = engine.FetchFirstValue(ctx, engine.NewSelect(engine.Star()).From(storage.NewTable("empty", nil, nil)))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.True(t, v.IsNull())

	_, _, err = engine.FetchFirstValue(ctx, engine.NewSelect(engine.Star()).FromCTE("nope"))
	assert.ErrorIs(t, err, engine.ErrUnresolvedReference)
}

func TestFetchAllValues(t *testing.T) {
	db := newDatabase(t)
	var vals []storage.Value
	for v, err := range engine.FetchAllValues(context.Background(),
		engine.NewSelect(engine.As("c1", col("values", "c1"))).From(db.values).
			Where(engine.Lt(col("values", "c2"), val(40)))) {
		require.NoError(t, err)
		vals = append(vals, v)
	}
	assert.Equal(t, []storage.Value{storage.Int(2), storage.Int(3)}, vals)

	for _, err := range engine.FetchAllValues(context.Background(), engine.NewSelect(engine.Star()).FromCTE("nope")) {
		assert.ErrorIs(t, err, engine.ErrUnresolvedReference)
	}
}

// counting wraps e and counts its evaluations.
func counting(n *int, e engine.Expr) engine.Expr {
	return func(c *engine.CompositeRow) (storage.Value, error) {
		*n++
		return e(c)
	}
}

func TestFetchAllValues_StopsEarly(t *testing.T) {
	db := newDatabase(t)
	var evaluated int
	q := engine.NewSelect(engine.As("name", counting(&evaluated, col("names", "name")))).From(db.names)
	for v, err := range engine.FetchAllValues(context.Background(), q) {
		require.NoError(t, err)
		assert.Equal(t, storage.Text("Life"), v)
		break
	}
	assert.Equal(t, 1, evaluated)
}

func TestInExpr_StopsAtFirstMatch(t *testing.T) {
	db := newDatabase(t)
	var evaluated int
	codes := engine.NewSelect(engine.As("code", counting(&evaluated, col("names", "code")))).From(db.names)
	q := engine.NewValues(engine.As("found", engine.InExpr(val(1), codes)))
	assert.Equal(t, []map[string]any{{"found": true}}, fetchMaps(t, q))
	assert.Equal(t, 1, evaluated)
}

func TestExists_WithoutOuter(t *testing.T) {
	db := newDatabase(t)
	ok, err := engine.Exists(nil, engine.NewSelect(engine.Star()).From(db.names))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = engine.Exists(nil, engine.NewSelect(engine.Star()).From(storage.NewTable("empty", nil, nil)))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOptions_OuterDoesNotOverrideExplicitSettings(t *testing.T) {
	db := newDatabase(t)
	codes, err := engine.FromQuery(context.Background(), "the_codes",
		engine.NewSelect(engine.As("code", col("names", "code"))).From(db.names))
	require.NoError(t, err)

	outer := engine.NewCompositeRow()
	q := engine.NewSelect(engine.Star()).FromCTE("the_codes")
	rows, err := engine.FetchAll(context.Background(), q,
		engine.WithCTEs(engine.CTEEnv{"the_codes": codes}), engine.WithOuter(outer))
	require.NoError(t, err)
	assert.Len(t, rows, codes.Len())

	_, err = engine.FetchAll(context.Background(), infinite(),
		engine.WithMaxDepth(2), engine.WithOuter(outer))
	require.ErrorIs(t, err, engine.ErrNonTerminatingRecursion)
	assert.Contains(t, err.Error(), "exceeded 2 iterations")
}

func TestInExpr(t *testing.T) {
	db := newDatabase(t)
	small := engine.NewSelect(engine.As("c1", col("values", "c1"))).From(db.values).
		Where(engine.Lt(col("values", "c2"), val(40)))
	q := engine.NewSelect(engine.As("name", col("names", "name"))).
		From(db.names).
		Where(engine.InExpr(col("names", "code"), small))
	assert.Equal(t, []map[string]any{{"name": "Pi"}, {"name": "Ee"}}, fetchMaps(t, q))

	// NOT IN against a list holding NULL is never true.
	bosses := engine.NewSelect(engine.As("boss", col("org", "boss"))).From(db.org)
	q = engine.NewSelect(engine.As("name", col("o", "name"))).
		FromAs("o", db.org).
		Where(engine.Not(engine.InExpr(col("o", "name"), bosses)))
	assert.Empty(t, fetchMaps(t, q))
}

func TestFetchTable(t *testing.T) {
	db := newDatabase(t)
	high, err := engine.FetchTable(context.Background(), "high",
		engine.NewSelect(engine.As("c1", col("values", "c1"))).From(db.values).
			Where(engine.Gt(col("values", "c2"), val(3))))
	require.NoError(t, err)
	assert.Equal(t, "high", high.Name())
	assert.Equal(t, 2, high.Len())

	// The materialized table is scanned once per outer row.
	q := engine.NewSelect(engine.As("pair", engine.Concat(col("a", "c1"), val("-"), col("b", "c1")))).
		FromAs("a", high).FromAs("b", high)
	assert.Len(t, fetchMaps(t, q), 4)
}

func TestScalarExpr_Correlated(t *testing.T) {
	db := newDatabase(t)
	q := engine.NewSelect(
		engine.As("name", col("names", "name")),
		engine.As("value", engine.ScalarExpr(
			engine.NewSelect(engine.As("c2", col("values", "c2"))).From(db.values).
				Where(engine.Eq(col("values", "c1"), col("names", "code"))))),
	).From(db.names)
	db.expect(t, "join", q)
}
