package runner

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/bhtraj/internal/monitoring"
	"github.com/banshee-data/bhtraj/internal/trajectory"
)

// BatchOptions describes a set of independent runs of one configuration.
type BatchOptions struct {
	Label string
	Runs  int
	Steps int
	// Parallel bounds the number of runs in flight. Values below one mean
	// one run at a time.
	Parallel int
	// ProgressEvery is passed through to each run's Controller.
	ProgressEvery int
	// NewOracle builds a fresh oracle for run i. It is called once per run
	// so that no oracle state is shared between runs.
	NewOracle func(ctx context.Context, run int) (Oracle, error)
}

func (o BatchOptions) validate() error {
	switch {
	case o.Label == "":
		return fmt.Errorf("%w: empty label", ErrInvalidArgument)
	case o.Runs < 1:
		return fmt.Errorf("%w: run count must be at least 1, got %d", ErrInvalidArgument, o.Runs)
	case o.Steps < 1:
		return fmt.Errorf("%w: step count must be at least 1, got %d", ErrInvalidArgument, o.Steps)
	case o.NewOracle == nil:
		return fmt.Errorf("%w: no oracle factory", ErrInvalidArgument)
	}
	return nil
}

// RunBatch executes opts.Runs independent runs and appends each completed
// run to store as soon as it finishes. The first failure cancels the runs
// still in flight; they stop after their current step. Records appended
// before the failure remain in the store and are returned alongside the
// error, indexed by run number with nil for runs that did not complete.
func RunBatch(ctx context.Context, store Appender, opts BatchOptions) ([]*trajectory.Record, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if store == nil {
		return nil, fmt.Errorf("%w: nil store", ErrInvalidArgument)
	}

	parallel := opts.Parallel
	if parallel < 1 {
		parallel = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)

	var mu sync.Mutex
	records := make([]*trajectory.Record, opts.Runs)

	for i := 0; i < opts.Runs; i++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			oracle, err := opts.NewOracle(gctx, i)
			if err != nil {
				return fmt.Errorf("%w: run %d: start oracle: %w", ErrOracleFailure, i, err)
			}
			if closer, ok := oracle.(interface{ Close() error }); ok {
				defer func() {
					if err := closer.Close(); err != nil {
						monitoring.Logf("run %d: close oracle: %v", i, err)
					}
				}()
			}

			c := NewController(fmt.Sprintf("%s#%d", opts.Label, i), opts.ProgressEvery)
			rec, err := c.RunAndRecord(gctx, store, opts.Label, oracle, opts.Steps)
			if err != nil {
				return fmt.Errorf("run %d: %w", i, err)
			}

			mu.Lock()
			records[i] = rec
			mu.Unlock()
			return nil
		})
	}

	err := g.Wait()
	return records, err
}
