package engine_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/SimonWaldherr/funcsql/internal/engine"
	"github.com/SimonWaldherr/funcsql/internal/storage"
	"github.com/SimonWaldherr/funcsql/internal/testhelper"
)

func loadFixture(t *testing.T, name string) *testhelper.Fixture {
	t.Helper()
	f, err := testhelper.Load(filepath.Join("testdata", name))
	require.NoError(t, err)
	return f
}

type database struct {
	fixture *testhelper.Fixture
	values  *storage.Table
	names   *storage.Table
	raw     *storage.Table
	org     *storage.Table
}

func newDatabase(t *testing.T) database {
	t.Helper()
	f := loadFixture(t, "tables.yml")
	table := func(name string) *storage.Table {
		tbl, err := f.Table(name)
		require.NoError(t, err)
		return tbl
	}
	return database{
		fixture: f,
		values:  table("values"),
		names:   table("names"),
		raw:     table("raw"),
		org:     table("org"),
	}
}

// expect fetches q and compares the rows with the fixture case id.
func (db database) expect(t *testing.T, id string, q engine.Query, opts ...engine.Option) {
	t.Helper()
	c, err := db.fixture.Case(id)
	require.NoError(t, err)
	rows, err := engine.FetchAll(context.Background(), q, opts...)
	require.NoError(t, err)
	require.NoError(t, c.Expected.Diff(rows), c.Description)
}

func fetchMaps(t *testing.T, q engine.Query, opts ...engine.Option) []map[string]any {
	t.Helper()
	rows, err := engine.FetchAll(context.Background(), q, opts...)
	require.NoError(t, err)
	out := make([]map[string]any, len(rows))
	for i, r := range rows {
		out[i] = r.Map()
	}
	return out
}

func col(table, column string) engine.Expr { return engine.Col(table, column) }
func val(v any) engine.Expr                { return engine.Val(v) }
