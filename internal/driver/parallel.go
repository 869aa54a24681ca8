package driver

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// CompileAll compiles every input, fanning units out over workers goroutines
// (GOMAXPROCS when workers is zero). Results keep input order. A unit's
// diagnostics never fail the batch; only input-level errors do, and the
// first one cancels the remaining units.
func CompileAll(ctx context.Context, opts Options, inputs []Input, workers int) ([]*Result, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	p := NewPipeline(opts)
	results := make([]*Result, len(inputs))

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)
	for i := range inputs {
		i := i
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := p.Compile(inputs[i])
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
