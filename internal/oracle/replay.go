package oracle

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/banshee-data/bhtraj/internal/trajectory"
)

// ErrExhausted is returned by Replay.Step once every recorded step has been
// replayed.
var ErrExhausted = errors.New("replay exhausted")

// Replay steps through a previously recorded trajectory. It is used to import
// runs produced outside this tool and as a deterministic engine in tests.
type Replay struct {
	accepted []float64
	best     []float64
	next     int
}

// NewReplay returns an oracle replaying accepted. When best is nil the best
// energies are the running minimum of accepted.
func NewReplay(accepted, best []float64) (*Replay, error) {
	if len(accepted) == 0 {
		return nil, errors.New("replay: no steps")
	}
	if best == nil {
		best = trajectory.RunningMin(accepted)
	}
	if len(best) != len(accepted) {
		return nil, fmt.Errorf("replay: %d accepted energies but %d best energies", len(accepted), len(best))
	}
	return &Replay{accepted: accepted, best: best}, nil
}

// Len returns the number of recorded steps.
func (r *Replay) Len() int {
	return len(r.accepted)
}

func (r *Replay) Step() (float64, error) {
	if r.next >= len(r.accepted) {
		return 0, fmt.Errorf("%w after %d steps", ErrExhausted, len(r.accepted))
	}
	e := r.accepted[r.next]
	r.next++
	return e, nil
}

func (r *Replay) CurrentBestEnergy() (float64, error) {
	if r.next == 0 {
		return 0, errors.New("replay: no step taken yet")
	}
	return r.best[r.next-1], nil
}

// ReadCSV reads a recorded trajectory with one step per row in the form
// "accepted" or "accepted,best". A first row that does not parse as numbers
// is treated as a header. Either every row has a best column or none does;
// best is nil in the latter case.
func ReadCSV(r io.Reader) (accepted, best []float64, err error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.Comment = '#'

	width := 0
	for row := 1; ; row++ {
		fields, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("read trajectory csv: %w", err)
		}

		values, perr := parseRow(fields)
		if perr != nil {
			if row == 1 {
				continue
			}
			return nil, nil, fmt.Errorf("row %d: %w", row, perr)
		}

		if width == 0 {
			width = len(values)
			if width > 2 {
				return nil, nil, fmt.Errorf("row %d: expected 1 or 2 columns, got %d", row, width)
			}
		} else if len(values) != width {
			return nil, nil, fmt.Errorf("row %d: expected %d columns, got %d", row, width, len(values))
		}

		accepted = append(accepted, values[0])
		if width == 2 {
			best = append(best, values[1])
		}
	}

	if len(accepted) == 0 {
		return nil, nil, errors.New("trajectory csv has no rows")
	}
	return accepted, best, nil
}

func parseRow(fields []string) ([]float64, error) {
	values := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return values, nil
}
