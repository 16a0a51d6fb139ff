package engine

import (
	"fmt"
	"iter"

	"github.com/samber/lo"

	"github.com/SimonWaldherr/funcsql/internal/storage"
)

// fetchRecursive computes the fixed point of seed UNION step, where step
// reads the CTE name. Each iteration binds only the previous iteration's
// rows (the frontier) under name, so rows are emitted level by level.
//
// Candidates equal to a frontier row are dropped; this is the only
// deduplication performed. Evaluation fails once the iteration count
// exceeds the environment's depth bound.
func fetchRecursive(e *env, name string, seed Query, step *Select) iter.Seq2[storage.Row, error] {
	return func(yield func(storage.Row, error) bool) {
		var frontier []storage.Row
		for row, err := range seed.fetch(e) {
			if err != nil {
				yield(storage.Row{}, err)
				return
			}
			frontier = append(frontier, row)
			if !yield(row, nil) {
				return
			}
		}

		for depth := 1; ; depth++ {
			if depth > e.maxDepth {
				yield(storage.Row{}, fmt.Errorf("%w: CTE %q exceeded %d iterations", ErrNonTerminatingRecursion, name, e.maxDepth))
				return
			}
			if err := checkCtx(e.ctx); err != nil {
				yield(storage.Row{}, err)
				return
			}
			table := storage.NewTable(name, records(frontier), nil)
			candidates, err := Collect(step.fetch(e.withCTE(name, table)))
			if err != nil {
				yield(storage.Row{}, err)
				return
			}
			next := lo.Reject(candidates, func(c storage.Row, _ int) bool {
				return lo.ContainsBy(frontier, c.SameColumns)
			})
			e.log.Debug("next_rows", "cte", name, "depth", depth, "rows", records(next))
			if len(next) == 0 {
				return
			}
			for _, row := range next {
				if !yield(row, nil) {
					return
				}
			}
			frontier = next
		}
	}
}

func records(rows []storage.Row) []storage.Record {
	return lo.Map(rows, func(r storage.Row, _ int) storage.Record { return r.Record() })
}
