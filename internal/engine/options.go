package engine

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/SimonWaldherr/funcsql/internal/config"
	"github.com/SimonWaldherr/funcsql/internal/storage"
)

// CTEEnv maps CTE names to their materialized tables.
type CTEEnv map[string]*storage.Table

// env is the evaluation environment threaded through one fetch: the
// caller's context, the enclosing row for correlated subqueries, and the
// CTE tables visible to pending FROM references.
type env struct {
	ctx      context.Context
	outer    *CompositeRow
	ctes     CTEEnv
	maxDepth int
	log      *slog.Logger
	level    *slog.Level

	// settings given explicitly, which an outer row must not override
	ctesSet, depthSet, logSet bool
}

// Option configures a single Fetch. Options may be given in any order.
type Option func(*env)

// WithOuter evaluates the query as a correlated subquery of c. The rows of c
// stay visible by name unless shadowed by the subquery's own tables. CTE
// tables, depth bound and logger are inherited from c's fetch unless set by
// another option.
func WithOuter(c *CompositeRow) Option {
	return func(e *env) { e.outer = c }
}

// WithCTEs supplies the tables that pending FROM references resolve to.
func WithCTEs(ctes CTEEnv) Option {
	return func(e *env) {
		e.ctes = ctes
		e.ctesSet = true
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(e *env) {
		if l != nil {
			e.log = l
			e.logSet = true
		}
	}
}

// WithMaxDepth bounds the number of iterations of every recursive CTE.
func WithMaxDepth(n int) Option {
	return func(e *env) {
		if n > 0 {
			e.maxDepth = n
			e.depthSet = true
		}
	}
}

// WithConfig applies the recursion bound and log level of cfg. The level
// filters whatever logger the fetch ends up with.
func WithConfig(cfg config.Config) Option {
	return func(e *env) {
		if cfg.MaxRecursionDepth > 0 {
			e.maxDepth = cfg.MaxRecursionDepth
			e.depthSet = true
		}
		if cfg.LogLevel != "" {
			level := cfg.SlogLevel()
			e.level = &level
		}
	}
}

func newEnv(ctx context.Context, opts ...Option) *env {
	if ctx == nil {
		ctx = context.Background()
	}
	e := &env{
		ctx:      ctx,
		maxDepth: config.DefaultMaxRecursionDepth,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if o := e.outer; o != nil && o.env != nil {
		if !e.ctesSet {
			e.ctes = o.env.ctes
		}
		if !e.depthSet {
			e.maxDepth = o.env.maxDepth
		}
		if !e.logSet {
			e.log = o.env.log
		}
	}
	if e.level != nil {
		e.log = config.Leveled(e.log, *e.level)
	}
	return e
}

// withCTE returns a copy of e whose CTE environment is extended by name.
func (e *env) withCTE(name string, t *storage.Table) *env {
	next := *e
	next.ctes = maps.Clone(e.ctes)
	if next.ctes == nil {
		next.ctes = CTEEnv{}
	}
	next.ctes[name] = t
	return &next
}

func (e *env) resolve(name string) (*storage.Table, error) {
	if e.ctes == nil {
		return nil, fmt.Errorf("%w: %q used outside of a WITH query", ErrUnresolvedReference, name)
	}
	t, ok := e.ctes[name]
	if !ok {
		return nil, fmt.Errorf("%w: no CTE named %q (have %v)", ErrUnresolvedReference, name, slices.Sorted(maps.Keys(e.ctes)))
	}
	return t, nil
}

func checkCtx(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
