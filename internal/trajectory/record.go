// Package trajectory defines the persisted shape of one completed
// basin-hopping run: the best-so-far energy series, the accepted-state energy
// series and the summary values derived from them.
package trajectory

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrInvalidRecord is returned when a pair of trajectories does not satisfy
// the record invariants.
var ErrInvalidRecord = errors.New("invalid trajectory record")

// Record is one completed run. Records are immutable once built by New.
type Record struct {
	ID               string    `json:"id"`
	Label            string    `json:"label"`
	BestEnergies     []float64 `json:"best_energy_trajectory"`
	AcceptedEnergies []float64 `json:"accepted_energy_trajectory"`
	FinalBestEnergy  float64   `json:"final_best_energy"`
	Length           int       `json:"length"`
	CreatedAt        time.Time `json:"created_at"`
}

// Summary is the per-run row shown when listing a label.
type Summary struct {
	ID              string    `json:"id"`
	Label           string    `json:"label"`
	Length          int       `json:"length"`
	FinalBestEnergy float64   `json:"final_best_energy"`
	CreatedAt       time.Time `json:"created_at"`
}

// New validates the two series and returns a record holding private copies of
// them. ID and CreatedAt are left for the store to assign.
func New(label string, best, accepted []float64) (*Record, error) {
	if err := Validate(best, accepted); err != nil {
		return nil, err
	}
	return &Record{
		Label:            label,
		BestEnergies:     append([]float64(nil), best...),
		AcceptedEnergies: append([]float64(nil), accepted...),
		FinalBestEnergy:  best[len(best)-1],
		Length:           len(best),
	}, nil
}

// Validate checks that both series are non-empty, of equal length, finite,
// and that best is non-increasing.
func Validate(best, accepted []float64) error {
	if len(best) == 0 || len(accepted) == 0 {
		return fmt.Errorf("%w: empty trajectory", ErrInvalidRecord)
	}
	if len(best) != len(accepted) {
		return fmt.Errorf("%w: length mismatch (best=%d, accepted=%d)", ErrInvalidRecord, len(best), len(accepted))
	}
	if i, ok := Finite(best); !ok {
		return fmt.Errorf("%w: best energy at step %d is not finite", ErrInvalidRecord, i)
	}
	if i, ok := Finite(accepted); !ok {
		return fmt.Errorf("%w: accepted energy at step %d is not finite", ErrInvalidRecord, i)
	}
	if i, ok := NonIncreasing(best); !ok {
		return fmt.Errorf("%w: best energy increases at step %d (%g > %g)", ErrInvalidRecord, i, best[i], best[i-1])
	}
	return nil
}

// Validate re-checks a record, including its derived fields.
func (r *Record) Validate() error {
	if err := Validate(r.BestEnergies, r.AcceptedEnergies); err != nil {
		return err
	}
	if r.Length != len(r.BestEnergies) {
		return fmt.Errorf("%w: length %d does not match %d steps", ErrInvalidRecord, r.Length, len(r.BestEnergies))
	}
	if last := r.BestEnergies[len(r.BestEnergies)-1]; r.FinalBestEnergy != last {
		return fmt.Errorf("%w: final best energy %g does not match last step %g", ErrInvalidRecord, r.FinalBestEnergy, last)
	}
	return nil
}

// Summary returns the listing row for r.
func (r *Record) Summary() Summary {
	return Summary{
		ID:              r.ID,
		Label:           r.Label,
		Length:          r.Length,
		FinalBestEnergy: r.FinalBestEnergy,
		CreatedAt:       r.CreatedAt,
	}
}

// NonIncreasing reports whether xs never increases. On failure it returns the
// first index i where xs[i] > xs[i-1].
func NonIncreasing(xs []float64) (int, bool) {
	for i := 1; i < len(xs); i++ {
		if xs[i] > xs[i-1] {
			return i, false
		}
	}
	return -1, true
}

// Finite reports whether every value is a finite number. On failure it
// returns the index of the first NaN or infinity.
func Finite(xs []float64) (int, bool) {
	for i, x := range xs {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return i, false
		}
	}
	return -1, true
}

// RunningMin returns the prefix minimum of xs.
func RunningMin(xs []float64) []float64 {
	out := make([]float64, len(xs))
	for i, x := range xs {
		if i == 0 || x < out[i-1] {
			out[i] = x
		} else {
			out[i] = out[i-1]
		}
	}
	return out
}
