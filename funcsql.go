// Package funcsql is an embedded, in-memory relational query engine. Queries
// are built programmatically from Go closures and evaluated directly over
// in-memory tables; there is no SQL text and no database process.
//
// # Basic Usage
//
// Build tables, compose a query, and range over the lazily produced rows:
//
//	names := funcsql.NewTable("names", []funcsql.Record{
//	    funcsql.MustRecord("code", 1, "name", "Life"),
//	    funcsql.MustRecord("code", 2, "name", "Pi"),
//	}, nil)
//
//	q := funcsql.Select(funcsql.As("name", funcsql.Col("names", "name"))).
//	    From(names).
//	    Where(funcsql.Gt(funcsql.Col("names", "code"), funcsql.Val(1)))
//
//	for row, err := range q.All(ctx) {
//	    if err != nil {
//	        return err
//	    }
//	    fmt.Println(row.Get("name"))
//	}
//
// # Grouping
//
// Aggregates reduce a select-list column, an inline expression, or every
// row (Wildcard):
//
//	q := funcsql.Select(
//	    funcsql.As("key", funcsql.Col("raw", "group")),
//	    funcsql.As("value", funcsql.Col("raw", "value")),
//	    funcsql.AggAs("total", funcsql.Agg(funcsql.Sum, "value")),
//	).From(raw).GroupBy("key")
//
// # Common Table Expressions
//
// A union inside a WITH binding is recursive. It is evaluated breadth first
// until an iteration adds no rows:
//
//	q := funcsql.With(
//	    funcsql.CTE("cnt", funcsql.Values(funcsql.As("x", funcsql.Val(1))).Union(
//	        funcsql.Select(funcsql.As("x", funcsql.Add(funcsql.Col("cnt", "x"), funcsql.Val(1)))).
//	            FromCTE("cnt").
//	            Where(funcsql.Lt(funcsql.Col("cnt", "x"), funcsql.Val(10))))),
//	).Select(funcsql.Star()).FromCTE("cnt")
//
// # Data Modification
//
// Insert, Update and Delete act eagerly on a Table:
//
//	funcsql.Update(names).
//	    Set("name", funcsql.RowVal("Tau")).
//	    Where(funcsql.RowCompare("=", funcsql.Field("code"), funcsql.RowVal(2))).
//	    Exec()
package funcsql

import (
	"context"
	"io"
	"iter"
	"log/slog"

	"github.com/SimonWaldherr/funcsql/internal/config"
	"github.com/SimonWaldherr/funcsql/internal/engine"
	"github.com/SimonWaldherr/funcsql/internal/exporter"
	"github.com/SimonWaldherr/funcsql/internal/storage"
)

// ============================================================================
// Core Types - Re-exported from internal packages for public API
// ============================================================================

// Value is a single dynamically typed cell: NULL, INT, FLOAT, TEXT, BOOL or a
// nested record.
type Value = storage.Value

// Kind enumerates the value kinds.
type Kind = storage.Kind

// Field is one named value of a Record.
type Field = storage.Field

// Record is an ordered mapping of column name to Value.
type Record = storage.Record

// Row is an immutable record tagged with its origin table or alias.
type Row = storage.Row

// Table is a named, mutable, re-iterable collection of records.
type Table = storage.Table

// CompositeRow is one element of the FROM-clause product, addressable by
// table name or alias.
type CompositeRow = engine.CompositeRow

// Query is implemented by *SelectQuery, *ValuesQuery and *WithQuery.
type Query = engine.Query

type (
	SelectQuery = engine.Select
	ValuesQuery = engine.Values
	WithQuery   = engine.With
	Binding     = engine.Binding
	Item        = engine.Item
)

// Expr computes a value from a CompositeRow; RowExpr from a single Row.
type (
	Expr    = engine.Expr
	RowExpr = engine.RowExpr
)

// Aggregate pairs a Reducer with the column or expression it reduces.
type (
	Aggregate = engine.Aggregate
	Reducer   = engine.Reducer
)

type (
	InsertStmt = engine.Insert
	UpdateStmt = engine.Update
	DeleteStmt = engine.Delete
)

// Option configures a single fetch.
type Option = engine.Option

// CTEEnv maps CTE names to materialized tables.
type CTEEnv = engine.CTEEnv

// Config holds evaluation settings such as the recursion bound.
type Config = config.Config

// Value kinds
const (
	NullKind   = storage.NullKind
	IntKind    = storage.IntKind
	FloatKind  = storage.FloatKind
	TextKind   = storage.TextKind
	BoolKind   = storage.BoolKind
	RecordKind = storage.RecordKind
)

// Wildcard makes an aggregate count every row, as in COUNT(*).
const Wildcard = engine.Wildcard

// ============================================================================
// Errors
// ============================================================================

var (
	ErrUnresolvedReference     = engine.ErrUnresolvedReference
	ErrInvalidClause           = engine.ErrInvalidClause
	ErrUnsupportedUnion        = engine.ErrUnsupportedUnion
	ErrNonTerminatingRecursion = engine.ErrNonTerminatingRecursion
	ErrUnknownAttribute        = storage.ErrUnknownAttribute
	ErrEmptyTable              = storage.ErrEmptyTable
	ErrTypeMismatch            = storage.ErrTypeMismatch
)

// ============================================================================
// Tables and Records
// ============================================================================

// NewTable creates a table. data and schema may be nil.
func NewTable(name string, data []Record, schema []string) *Table {
	return storage.NewTable(name, data, schema)
}

// RecordOf builds a Record from alternating name, value arguments.
func RecordOf(pairs ...any) (Record, error) { return storage.RecordOf(pairs...) }

// MustRecord is like RecordOf but panics on error.
func MustRecord(pairs ...any) Record { return storage.MustRecord(pairs...) }

// RecordFromMap converts a native map using order for the column order.
func RecordFromMap(m map[string]any, order []string) (Record, error) {
	return storage.RecordFromMap(m, order)
}

// ValueOf converts a native Go value.
func ValueOf(v any) (Value, error) { return storage.Of(v) }

// ============================================================================
// Queries
// ============================================================================

// Select starts a SELECT query.
func Select(items ...Item) *SelectQuery { return engine.NewSelect(items...) }

// Values builds a one-row VALUES query.
func Values(items ...Item) *ValuesQuery { return engine.NewValues(items...) }

// With binds common table expressions for a target query.
func With(bindings ...Binding) *WithQuery { return engine.NewWith(bindings...) }

// CTE binds name to q inside With.
func CTE(name string, q Query) Binding { return engine.CTE(name, q) }

// As names an expression in a select list.
func As(name string, e Expr) Item { return engine.As(name, e) }

// AggAs names an aggregate in a select list.
func AggAs(name string, a *Aggregate) Item { return engine.AggAs(name, a) }

// Star is SELECT *.
func Star() Item { return engine.Star() }

// Agg reduces a select-list column, or every row for Wildcard.
func Agg(fn Reducer, column string) *Aggregate { return engine.NewAggregate(fn, column) }

// AggExpr reduces an inline expression.
func AggExpr(fn Reducer, e Expr) *Aggregate { return engine.NewAggregateExpr(fn, e) }

// Built-in reducers. All of them skip NULL values.
var (
	Count = engine.Count
	Sum   = engine.Sum
	Mean  = engine.Mean
	Min   = engine.Min
	Max   = engine.Max
	Stdev = engine.Stdev
)

// Distinct applies fn to the distinct values of a group.
func Distinct(fn Reducer) Reducer { return engine.Distinct(fn) }

// ============================================================================
// Evaluation
// ============================================================================

// Fetch evaluates q lazily.
func Fetch(ctx context.Context, q Query, opts ...Option) iter.Seq2[Row, error] {
	return engine.Fetch(ctx, q, opts...)
}

// FetchAll evaluates q and collects the rows.
func FetchAll(ctx context.Context, q Query, opts ...Option) ([]Row, error) {
	return engine.FetchAll(ctx, q, opts...)
}

func FetchFirstValue(ctx context.Context, q Query, opts ...Option) (Value, bool, error) {
	return engine.FetchFirstValue(ctx, q, opts...)
}

// FetchAllValues lazily yields the first column of every row.
func FetchAllValues(ctx context.Context, q Query, opts ...Option) iter.Seq2[Value, error] {
	return engine.FetchAllValues(ctx, q, opts...)
}

func FetchTable(ctx context.Context, name string, q Query, opts ...Option) (*Table, error) {
	return engine.FetchTable(ctx, name, q, opts...)
}

// Exists reports whether q, correlated with outer, yields any row.
func Exists(outer *CompositeRow, q Query) (bool, error) { return engine.Exists(outer, q) }

var (
	WithOuter    = engine.WithOuter
	WithCTEs     = engine.WithCTEs
	WithLogger   = engine.WithLogger
	WithMaxDepth = engine.WithMaxDepth
	WithConfig   = engine.WithConfig
)

// DefaultConfig returns the default evaluation settings.
func DefaultConfig() Config { return config.Default() }

// LoadConfig reads settings from a YAML file.
func LoadConfig(path string) (Config, error) { return config.Load(path) }

// NewLogger returns a text logger writing to w at cfg's level.
func NewLogger(cfg Config, w io.Writer) *slog.Logger { return config.NewLogger(cfg, w) }

// ============================================================================
// Data Modification
// ============================================================================

// Insert starts an INSERT: Insert().Into(t).Values(recs...).Exec().
func Insert() *InsertStmt { return engine.NewInsert() }

// Update starts an UPDATE: Update(t).Set(col, e).Where(cond).Exec().
func Update(t *Table) *UpdateStmt { return engine.NewUpdate(t) }

// Delete starts a DELETE: Delete().From(t).Where(cond).Exec().
func Delete() *DeleteStmt { return engine.NewDelete() }

// ============================================================================
// Export
// ============================================================================

// ExportOptions controls the CSV and JSON writers.
type ExportOptions = exporter.Options

// ExportCSV writes rows as CSV. The header is the union of the row columns.
func ExportCSV(w io.Writer, rows iter.Seq2[Row, error], opts ExportOptions) error {
	return exporter.ExportCSV(w, rows, opts)
}

func ExportJSON(w io.Writer, rows iter.Seq2[Row, error], opts ExportOptions) error {
	return exporter.ExportJSON(w, rows, opts)
}

func ExportXML(w io.Writer, rows iter.Seq2[Row, error]) error {
	return exporter.ExportXML(w, rows)
}
