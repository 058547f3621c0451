// Package runner drives basin-hopping runs against a stepping oracle and
// hands the finished trajectories to a store.
package runner

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/banshee-data/bhtraj/internal/monitoring"
	"github.com/banshee-data/bhtraj/internal/trajectory"
)

var (
	// ErrInvalidArgument is returned for malformed caller input such as a
	// step count below one or an empty label.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrOracleFailure wraps an error raised by the oracle mid-run.
	ErrOracleFailure = errors.New("oracle failure")
	// ErrOracleContractViolation is returned when the oracle reports a best
	// energy that increases or is not a finite number.
	ErrOracleContractViolation = errors.New("oracle contract violation")
)

// Oracle is one optimizer instance. Step advances it by one basin-hopping
// step and returns the energy of the state it accepted. CurrentBestEnergy
// returns the lowest energy the oracle has found so far.
//
// Oracles are stateful and must not be shared between concurrent runs.
type Oracle interface {
	Step() (float64, error)
	CurrentBestEnergy() (float64, error)
}

// Appender persists a completed run and returns its id.
type Appender interface {
	Append(label string, best, accepted []float64) (string, error)
}

// DefaultProgressEvery matches the optimizer's usual print frequency.
const DefaultProgressEvery = 100

// Controller executes runs. The zero value runs silently.
type Controller struct {
	// ProgressEvery logs a progress line every ProgressEvery steps. Zero or
	// negative disables progress logging.
	ProgressEvery int
	// Tag prefixes progress lines, typically "label#run".
	Tag string
}

// NewController returns a controller logging progress every progressEvery
// steps under tag.
func NewController(tag string, progressEvery int) *Controller {
	return &Controller{Tag: tag, ProgressEvery: progressEvery}
}

// Run executes exactly nSteps oracle steps and returns the unlabelled,
// not-yet-persisted record. ctx is checked between steps only; a step in
// progress is never interrupted. On any failure no record is returned.
func (c *Controller) Run(ctx context.Context, oracle Oracle, nSteps int) (*trajectory.Record, error) {
	if nSteps < 1 {
		return nil, fmt.Errorf("%w: step count must be at least 1, got %d", ErrInvalidArgument, nSteps)
	}
	if oracle == nil {
		return nil, fmt.Errorf("%w: nil oracle", ErrInvalidArgument)
	}

	best := make([]float64, 0, nSteps)
	accepted := make([]float64, 0, nSteps)

	for i := 0; i < nSteps; i++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("run cancelled after %d of %d steps: %w", i, nSteps, err)
		}

		e, err := oracle.Step()
		if err != nil {
			return nil, fmt.Errorf("%w: step %d: %w", ErrOracleFailure, i, err)
		}
		b, err := oracle.CurrentBestEnergy()
		if err != nil {
			return nil, fmt.Errorf("%w: best energy after step %d: %w", ErrOracleFailure, i, err)
		}

		if math.IsNaN(e) || math.IsInf(e, 0) {
			return nil, fmt.Errorf("%w: accepted energy at step %d is %g", ErrOracleContractViolation, i, e)
		}
		if math.IsNaN(b) || math.IsInf(b, 0) {
			return nil, fmt.Errorf("%w: best energy at step %d is %g", ErrOracleContractViolation, i, b)
		}
		if i > 0 && b > best[i-1] {
			return nil, fmt.Errorf("%w: best energy rose from %g to %g at step %d", ErrOracleContractViolation, best[i-1], b, i)
		}

		accepted = append(accepted, e)
		best = append(best, b)

		if c.ProgressEvery > 0 && (i+1)%c.ProgressEvery == 0 {
			c.logf("step %d/%d best=%g accepted=%g", i+1, nSteps, b, e)
		}
	}

	rec, err := trajectory.New("", best, accepted)
	if err != nil {
		// unreachable unless the checks above drift from trajectory.Validate
		return nil, fmt.Errorf("%w: %w", ErrOracleContractViolation, err)
	}
	return rec, nil
}

// RunAndRecord runs the oracle and appends the result to store under label.
// The store is only called after a successful run. The returned record
// carries the label and the id the store assigned.
func (c *Controller) RunAndRecord(ctx context.Context, store Appender, label string, oracle Oracle, nSteps int) (*trajectory.Record, error) {
	if label == "" {
		return nil, fmt.Errorf("%w: empty label", ErrInvalidArgument)
	}
	if store == nil {
		return nil, fmt.Errorf("%w: nil store", ErrInvalidArgument)
	}

	rec, err := c.Run(ctx, oracle, nSteps)
	if err != nil {
		return nil, err
	}

	id, err := store.Append(label, rec.BestEnergies, rec.AcceptedEnergies)
	if err != nil {
		return nil, fmt.Errorf("append %s trajectory: %w", label, err)
	}
	rec.ID = id
	rec.Label = label

	c.logf("finished %d steps: final best energy %g (id %s)", rec.Length, rec.FinalBestEnergy, id)
	return rec, nil
}

func (c *Controller) logf(format string, v ...interface{}) {
	if c.Tag == "" {
		monitoring.Logf(format, v...)
		return
	}
	monitoring.Runf(c.Tag, format, v...)
}
