package morsr

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// BatchInput is one feature vector to push through the engine.
type BatchInput struct {
	ID       string    `yaml:"id"`
	Domain   string    `yaml:"domain"`
	Features []float64 `yaml:"features"`
}

// BatchOutcome pairs an input with its result or error.
type BatchOutcome struct {
	Input  BatchInput
	Result *Result
	Err    error
}

// RunBatch processes independent inputs concurrently with at most parallelism
// sweeps in flight (<= 0 means one per input). Outcomes keep input order.
// Per-input failures (e.g. an invalid feature vector) are reported in the
// outcome; only context cancellation aborts the batch.
func RunBatch(ctx context.Context, e *Engine, inputs []BatchInput, parallelism int) ([]BatchOutcome, error) {
	outcomes := make([]BatchOutcome, len(inputs))
	g, gctx := errgroup.WithContext(ctx)
	if parallelism > 0 {
		g.SetLimit(parallelism)
	}
	for i, in := range inputs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := e.Process(gctx, in.Features, in.Domain)
			if err != nil {
				err = fmt.Errorf("input %d (%s): %w", i, in.ID, err)
			}
			outcomes[i] = BatchOutcome{Input: in, Result: res, Err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return outcomes, err
	}
	return outcomes, ctx.Err()
}
