package engine

import (
	"errors"

	"github.com/SimonWaldherr/funcsql/internal/storage"
)

var (
	// ErrUnresolvedReference reports a FROM reference by CTE name that has no
	// CTE environment to resolve against, or is missing from it.
	ErrUnresolvedReference = errors.New("unresolved table reference")
	// ErrInvalidClause reports a builder call that conflicts with the query's
	// other clauses.
	ErrInvalidClause = errors.New("invalid clause combination")
	// ErrUnsupportedUnion reports a union the engine cannot evaluate where it
	// appears.
	ErrUnsupportedUnion = errors.New("unsupported union")
	// ErrNonTerminatingRecursion reports a recursive CTE that exceeded the
	// configured iteration bound.
	ErrNonTerminatingRecursion = errors.New("recursive query did not terminate")

	ErrUnknownAttribute = storage.ErrUnknownAttribute
	ErrEmptyTable       = storage.ErrEmptyTable
	ErrTypeMismatch     = storage.ErrTypeMismatch
)
