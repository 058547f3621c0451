// Package aggregate reads all trajectories for a label and derives the
// cross-run comparison data used by the list, plot and serve commands.
package aggregate

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/bhtraj/internal/trajectory"
)

// ErrNoRecords is returned by computations that need at least one run.
var ErrNoRecords = errors.New("no trajectories")

// Querier is the read side of a trajectory store.
type Querier interface {
	Query(label string) ([]*trajectory.Record, error)
}

// Aggregator is the read-only view consumers use to fetch runs for comparison.
type Aggregator struct {
	q Querier
}

// New returns an Aggregator reading from q.
func New(q Querier) *Aggregator {
	return &Aggregator{q: q}
}

// Records returns every stored run for label, unchanged.
func (a *Aggregator) Records(label string) ([]*trajectory.Record, error) {
	return a.q.Query(label)
}

// Stats summarises the final best energies of a set of runs.
type Stats struct {
	Label         string  `json:"label"`
	Runs          int     `json:"runs"`
	MeanFinal     float64 `json:"mean_final_best_energy"`
	StdDevFinal   float64 `json:"stddev_final_best_energy"`
	MinFinal      float64 `json:"min_final_best_energy"`
	MaxFinal      float64 `json:"max_final_best_energy"`
	MedianFinal   float64 `json:"median_final_best_energy"`
	MeanLength    float64 `json:"mean_length"`
	BestRunID     string  `json:"best_run_id"`
	HitsOfMinimum int     `json:"hits_of_minimum"`
}

// HitTolerance is the energy difference under which two final energies are
// treated as the same minimum.
const HitTolerance = 1e-6

// Stats fetches the runs for label and summarises them.
func (a *Aggregator) Stats(label string) (Stats, error) {
	records, err := a.q.Query(label)
	if err != nil {
		return Stats{}, err
	}
	s, err := Compute(records)
	if err != nil {
		return Stats{}, fmt.Errorf("%s: %w", label, err)
	}
	s.Label = label
	return s, nil
}

// Compute summarises records. The standard deviation is the sample standard
// deviation and is zero for a single run.
func Compute(records []*trajectory.Record) (Stats, error) {
	if len(records) == 0 {
		return Stats{}, ErrNoRecords
	}

	finals := make([]float64, len(records))
	lengths := make([]float64, len(records))
	for i, r := range records {
		finals[i] = r.FinalBestEnergy
		lengths[i] = float64(r.Length)
	}

	s := Stats{
		Runs:       len(records),
		MeanFinal:  stat.Mean(finals, nil),
		MinFinal:   floats.Min(finals),
		MaxFinal:   floats.Max(finals),
		MeanLength: stat.Mean(lengths, nil),
	}
	if len(finals) > 1 {
		s.StdDevFinal = stat.StdDev(finals, nil)
	}
	bestIdx := floats.MinIdx(finals)
	s.BestRunID = records[bestIdx].ID

	for _, f := range finals {
		if math.Abs(f-s.MinFinal) <= HitTolerance {
			s.HitsOfMinimum++
		}
	}

	s.MedianFinal = median(finals)

	return s, nil
}

// median averages the two middle values when len(xs) is even.
func median(xs []float64) float64 {
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return stat.Mean(sorted[mid-1:mid+1], nil)
}

// Summarize returns the per-run summary rows in input order.
func Summarize(records []*trajectory.Record) []trajectory.Summary {
	out := make([]trajectory.Summary, len(records))
	for i, r := range records {
		out[i] = r.Summary()
	}
	return out
}

// BestEnvelope returns, for each step, the lowest best energy reached by any
// run at that step. Runs of different lengths are truncated to the shortest.
func BestEnvelope(records []*trajectory.Record) []float64 {
	n := shortest(records)
	if n == 0 {
		return nil
	}
	env := append([]float64(nil), records[0].BestEnergies[:n]...)
	for _, r := range records[1:] {
		for i := 0; i < n; i++ {
			env[i] = math.Min(env[i], r.BestEnergies[i])
		}
	}
	return env
}

// MeanBest returns the step-wise mean of the best energy across runs,
// truncated to the shortest run.
func MeanBest(records []*trajectory.Record) []float64 {
	n := shortest(records)
	if n == 0 {
		return nil
	}
	mean := make([]float64, n)
	column := make([]float64, len(records))
	for i := 0; i < n; i++ {
		for j, r := range records {
			column[j] = r.BestEnergies[i]
		}
		mean[i] = stat.Mean(column, nil)
	}
	return mean
}

// StepsToReach returns the number of steps rec needed for its best energy to
// come within tol of target, and false if it never did.
func StepsToReach(rec *trajectory.Record, target, tol float64) (int, bool) {
	for i, b := range rec.BestEnergies {
		if b <= target+tol {
			return i + 1, true
		}
	}
	return 0, false
}

func shortest(records []*trajectory.Record) int {
	if len(records) == 0 {
		return 0
	}
	n := records[0].Length
	for _, r := range records[1:] {
		n = min(n, r.Length)
	}
	return n
}
