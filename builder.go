// Package funcsql - Expression helpers
//
// This file re-exports the closure constructors used to build select items,
// WHERE and JOIN conditions, HAVING conditions and DML assignments.

package funcsql

import "github.com/SimonWaldherr/funcsql/internal/engine"

// ============================================================================
// Column References and Literals
// ============================================================================

// Col references table.column inside a query; table is a name or alias.
//
// Example:
//
//	funcsql.Eq(funcsql.Col("n", "code"), funcsql.Col("v", "c1"))
func Col(table, column string) Expr { return engine.Col(table, column) }

// Val is a literal value.
func Val(value any) Expr { return engine.Val(value) }

// Null is the NULL literal.
func Null() Expr { return engine.Null() }

// Field references a column of a plain Row (HAVING, DML).
func Field(name string) RowExpr { return engine.Field(name) }

// RowVal is a literal for HAVING and DML.
func RowVal(value any) RowExpr { return engine.RowVal(value) }

// RowCompare compares two RowExprs with =, <>, <, <=, > or >=.
func RowCompare(op string, left, right RowExpr) RowExpr {
	return engine.RowCompare(op, left, right)
}

// ============================================================================
// Comparison Operators
// ============================================================================

func Eq(left, right Expr) Expr { return engine.Eq(left, right) }
func Ne(left, right Expr) Expr { return engine.Ne(left, right) }
func Lt(left, right Expr) Expr { return engine.Lt(left, right) }
func Le(left, right Expr) Expr { return engine.Le(left, right) }
func Gt(left, right Expr) Expr { return engine.Gt(left, right) }
func Ge(left, right Expr) Expr { return engine.Ge(left, right) }

// ============================================================================
// Logical Operators
// ============================================================================

// And is true when every operand is true; NULL propagates as in SQL.
func And(exprs ...Expr) Expr { return engine.And(exprs...) }

// Or is true when any operand is true.
func Or(exprs ...Expr) Expr { return engine.Or(exprs...) }

func Not(expr Expr) Expr { return engine.Not(expr) }

// ============================================================================
// NULL Checks
// ============================================================================

func IsNull(expr Expr) Expr    { return engine.IsNull(expr) }
func IsNotNull(expr Expr) Expr { return engine.IsNotNull(expr) }

// ============================================================================
// Arithmetic and Text
// ============================================================================

func Add(left, right Expr) Expr { return engine.Add(left, right) }
func Sub(left, right Expr) Expr { return engine.Sub(left, right) }
func Mul(left, right Expr) Expr { return engine.Mul(left, right) }

// Div always yields FLOAT; dividing by zero is an error.
func Div(left, right Expr) Expr { return engine.Div(left, right) }

// Concat joins the text form of its operands.
func Concat(exprs ...Expr) Expr { return engine.Concat(exprs...) }

// ============================================================================
// Subqueries
// ============================================================================

// ExistsExpr is EXISTS (q), correlated with the row being filtered.
//
// Example:
//
//	funcsql.Select(funcsql.As("name", funcsql.Col("e", "name"))).
//	    FromAs("e", employees).
//	    Where(funcsql.ExistsExpr(
//	        funcsql.Select(funcsql.Star()).FromAs("d", departments).
//	            Where(funcsql.Eq(funcsql.Col("d", "id"), funcsql.Col("e", "department_id")))))
func ExistsExpr(q Query) Expr { return engine.ExistsExpr(q) }

// Scalar is a correlated scalar subquery; no rows yields NULL.
func Scalar(q Query) Expr { return engine.ScalarExpr(q) }

// In is expr IN (q).
func In(expr Expr, q Query) Expr { return engine.InExpr(expr, q) }
