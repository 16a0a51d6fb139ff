package engine

import (
	"fmt"
	"math"
	"strings"

	"github.com/SimonWaldherr/funcsql/internal/storage"
)

// Expr computes a value from one element of the FROM-clause product. It is
// the closure form of an SQL expression and is used for select items, WHERE
// and JOIN conditions, and GROUP BY expressions.
type Expr func(c *CompositeRow) (storage.Value, error)

// RowExpr computes a value from a single Row. HAVING conditions see the
// grouped result rows; DML conditions and assignments see table rows.
type RowExpr func(r storage.Row) (storage.Value, error)

// Col references table.column, where table is a table name or alias.
func Col(table, column string) Expr {
	return func(c *CompositeRow) (storage.Value, error) { return c.Get(table, column) }
}

// Val is a literal. Unsupported Go types surface as an error at evaluation.
func Val(v any) Expr {
	val, err := storage.Of(v)
	return func(*CompositeRow) (storage.Value, error) { return val, err }
}

func Null() Expr { return Val(nil) }

// Field references a column of a plain Row.
func Field(name string) RowExpr {
	return func(r storage.Row) (storage.Value, error) { return r.Get(name) }
}

// RowVal is a literal usable where a RowExpr is expected.
func RowVal(v any) RowExpr {
	val, err := storage.Of(v)
	return func(storage.Row) (storage.Value, error) { return val, err }
}

// RowCompare applies a comparison operator (=, <>, <, <=, >, >=) to two
// RowExprs, as needed in HAVING and DML conditions.
func RowCompare(op string, left, right RowExpr) RowExpr {
	return func(r storage.Row) (storage.Value, error) {
		lv, err := left(r)
		if err != nil {
			return storage.Value{}, err
		}
		rv, err := right(r)
		if err != nil {
			return storage.Value{}, err
		}
		return Compare(op, lv, rv)
	}
}

// -------------------- Comparison --------------------

func Eq(left, right Expr) Expr { return compareOp("=", left, right) }
func Ne(left, right Expr) Expr { return compareOp("<>", left, right) }
func Lt(left, right Expr) Expr { return compareOp("<", left, right) }
func Le(left, right Expr) Expr { return compareOp("<=", left, right) }
func Gt(left, right Expr) Expr { return compareOp(">", left, right) }
func Ge(left, right Expr) Expr { return compareOp(">=", left, right) }

func compareOp(op string, left, right Expr) Expr {
	return func(c *CompositeRow) (storage.Value, error) {
		lv, rv, err := evalPair(c, left, right)
		if err != nil {
			return storage.Value{}, err
		}
		return Compare(op, lv, rv)
	}
}

// Compare applies an SQL comparison operator. A NULL operand yields NULL.
// Equality between different kinds is false; ordering them is an error.
func Compare(op string, lv, rv storage.Value) (storage.Value, error) {
	if lv.IsNull() || rv.IsNull() {
		return storage.Null(), nil
	}
	switch op {
	case "=":
		return storage.Bool(lv.Equal(rv)), nil
	case "<>", "!=":
		return storage.Bool(!lv.Equal(rv)), nil
	}
	cmp, err := lv.Compare(rv)
	if err != nil {
		return storage.Value{}, err
	}
	switch op {
	case "<":
		return storage.Bool(cmp < 0), nil
	case "<=":
		return storage.Bool(cmp <= 0), nil
	case ">":
		return storage.Bool(cmp > 0), nil
	case ">=":
		return storage.Bool(cmp >= 0), nil
	}
	return storage.Value{}, fmt.Errorf("unknown comparison operator: %s", op)
}

// -------------------- Logic (three-valued) --------------------

const (
	tvFalse = iota
	tvTrue
	tvUnknown
)

func toTri(v storage.Value) int {
	if v.IsNull() {
		return tvUnknown
	}
	if v.Truthy() {
		return tvTrue
	}
	return tvFalse
}

func triToValue(t int) storage.Value {
	switch t {
	case tvTrue:
		return storage.Bool(true)
	case tvFalse:
		return storage.Bool(false)
	}
	return storage.Null()
}

// And short-circuits on the first false operand.
func And(exprs ...Expr) Expr {
	return func(c *CompositeRow) (storage.Value, error) {
		result := tvTrue
		for _, e := range exprs {
			v, err := e(c)
			if err != nil {
				return storage.Value{}, err
			}
			switch toTri(v) {
			case tvFalse:
				return storage.Bool(false), nil
			case tvUnknown:
				result = tvUnknown
			}
		}
		return triToValue(result), nil
	}
}

// Or short-circuits on the first true operand.
func Or(exprs ...Expr) Expr {
	return func(c *CompositeRow) (storage.Value, error) {
		result := tvFalse
		for _, e := range exprs {
			v, err := e(c)
			if err != nil {
				return storage.Value{}, err
			}
			switch toTri(v) {
			case tvTrue:
				return storage.Bool(true), nil
			case tvUnknown:
				result = tvUnknown
			}
		}
		return triToValue(result), nil
	}
}

func Not(e Expr) Expr {
	return func(c *CompositeRow) (storage.Value, error) {
		v, err := e(c)
		if err != nil {
			return storage.Value{}, err
		}
		switch toTri(v) {
		case tvTrue:
			return storage.Bool(false), nil
		case tvFalse:
			return storage.Bool(true), nil
		}
		return storage.Null(), nil
	}
}

func IsNull(e Expr) Expr {
	return func(c *CompositeRow) (storage.Value, error) {
		v, err := e(c)
		if err != nil {
			return storage.Value{}, err
		}
		return storage.Bool(v.IsNull()), nil
	}
}

func IsNotNull(e Expr) Expr { return Not(IsNull(e)) }

// -------------------- Arithmetic --------------------

func Add(left, right Expr) Expr { return arithOp("+", left, right) }
func Sub(left, right Expr) Expr { return arithOp("-", left, right) }
func Mul(left, right Expr) Expr { return arithOp("*", left, right) }
func Div(left, right Expr) Expr { return arithOp("/", left, right) }

func arithOp(op string, left, right Expr) Expr {
	return func(c *CompositeRow) (storage.Value, error) {
		lv, rv, err := evalPair(c, left, right)
		if err != nil {
			return storage.Value{}, err
		}
		return Arith(op, lv, rv)
	}
}

// Arith applies +, -, * or /. INT op INT stays INT except for division,
// which always yields FLOAT. A NULL operand yields NULL.
func Arith(op string, lv, rv storage.Value) (storage.Value, error) {
	if lv.IsNull() || rv.IsNull() {
		return storage.Null(), nil
	}
	if lv.Kind() == storage.IntKind && rv.Kind() == storage.IntKind {
		li, _ := lv.AsInt()
		ri, _ := rv.AsInt()
		var (
			n  int64
			ok bool
		)
		switch op {
		case "+":
			n, ok = addInt(li, ri)
		case "-":
			n, ok = subInt(li, ri)
		case "*":
			n, ok = mulInt(li, ri)
		}
		if op == "+" || op == "-" || op == "*" {
			if !ok {
				return storage.Value{}, fmt.Errorf("%w: integer overflow in %d %s %d", ErrTypeMismatch, li, op, ri)
			}
			return storage.Int(n), nil
		}
	}
	lf, lok := lv.AsFloat()
	rf, rok := rv.AsFloat()
	if !lok || !rok {
		return storage.Value{}, fmt.Errorf("%w: %s expects numeric operands, got %s and %s", ErrTypeMismatch, op, lv.Kind(), rv.Kind())
	}
	switch op {
	case "+":
		return storage.Float(lf + rf), nil
	case "-":
		return storage.Float(lf - rf), nil
	case "*":
		return storage.Float(lf * rf), nil
	case "/":
		if rf == 0 {
			return storage.Value{}, fmt.Errorf("%w: division by zero", ErrTypeMismatch)
		}
		return storage.Float(lf / rf), nil
	}
	return storage.Value{}, fmt.Errorf("unknown arithmetic operator: %s", op)
}

// addInt, subInt and mulInt report false when the INT result would wrap.
func addInt(a, b int64) (int64, bool) {
	r := a + b
	return r, (r > a) == (b > 0)
}

func subInt(a, b int64) (int64, bool) {
	r := a - b
	return r, (r < a) == (b > 0)
}

func mulInt(a, b int64) (int64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	r := a * b
	if r/b != a || (a == -1 && b == math.MinInt64) || (b == -1 && a == math.MinInt64) {
		return r, false
	}
	return r, true
}

// Concat joins the text form of its operands. NULL operands yield NULL.
func Concat(exprs ...Expr) Expr {
	return func(c *CompositeRow) (storage.Value, error) {
		var sb strings.Builder
		for _, e := range exprs {
			v, err := e(c)
			if err != nil {
				return storage.Value{}, err
			}
			if v.IsNull() {
				return storage.Null(), nil
			}
			if s, ok := v.AsText(); ok {
				sb.WriteString(s)
			} else {
				sb.WriteString(v.String())
			}
		}
		return storage.Text(sb.String()), nil
	}
}

func evalPair(c *CompositeRow, left, right Expr) (storage.Value, storage.Value, error) {
	lv, err := left(c)
	if err != nil {
		return storage.Value{}, storage.Value{}, err
	}
	rv, err := right(c)
	if err != nil {
		return storage.Value{}, storage.Value{}, err
	}
	return lv, rv, nil
}
