package trajectory

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Parallel()

	best := []float64{5.0, 3.0, 3.0, 3.0, 1.0}
	accepted := []float64{5.0, 3.0, 3.0, 7.0, 1.0}

	rec, err := New("lj75", best, accepted)
	require.NoError(t, err)

	assert.Equal(t, "lj75", rec.Label)
	assert.Equal(t, 5, rec.Length)
	assert.Equal(t, 1.0, rec.FinalBestEnergy)
	assert.Equal(t, best, rec.BestEnergies)
	assert.Equal(t, accepted, rec.AcceptedEnergies)
	assert.Empty(t, rec.ID)
	require.NoError(t, rec.Validate())

	// the record keeps its own copy of the series
	best[0] = -100
	assert.Equal(t, 5.0, rec.BestEnergies[0])
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		best     []float64
		accepted []float64
		wantErr  bool
	}{
		{name: "single step", best: []float64{-1}, accepted: []float64{-1}},
		{name: "plateau", best: []float64{2, 2, 2}, accepted: []float64{2, 9, 4}},
		{name: "empty", best: nil, accepted: nil, wantErr: true},
		{name: "empty accepted", best: []float64{1}, accepted: nil, wantErr: true},
		{name: "length mismatch", best: []float64{3, 2}, accepted: []float64{3}, wantErr: true},
		{name: "best increases", best: []float64{3, 2, 2.5}, accepted: []float64{3, 2, 2.5}, wantErr: true},
		{name: "nan best", best: []float64{math.NaN()}, accepted: []float64{1}, wantErr: true},
		{name: "inf accepted", best: []float64{1}, accepted: []float64{math.Inf(1)}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.best, tt.accepted)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidRecord)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRecordValidateDerivedFields(t *testing.T) {
	t.Parallel()

	rec, err := New("blj100", []float64{4, 2}, []float64{4, 2})
	require.NoError(t, err)

	bad := *rec
	bad.FinalBestEnergy = 4
	assert.ErrorIs(t, bad.Validate(), ErrInvalidRecord)

	bad = *rec
	bad.Length = 3
	assert.ErrorIs(t, bad.Validate(), ErrInvalidRecord)
}

func TestNonIncreasing(t *testing.T) {
	t.Parallel()

	i, ok := NonIncreasing([]float64{3, 3, 1, 0})
	assert.True(t, ok)
	assert.Equal(t, -1, i)

	i, ok = NonIncreasing([]float64{3, 1, 2, 0})
	assert.False(t, ok)
	assert.Equal(t, 2, i)
}

func TestRunningMin(t *testing.T) {
	t.Parallel()

	got := RunningMin([]float64{5, 3, 3, 7, 1})
	assert.Equal(t, []float64{5, 3, 3, 3, 1}, got)
	assert.Empty(t, RunningMin(nil))
}

func TestSummary(t *testing.T) {
	t.Parallel()

	rec, err := New("blj30", []float64{-10, -12}, []float64{-10, -12})
	require.NoError(t, err)
	rec.ID = "abc"

	s := rec.Summary()
	assert.Equal(t, Summary{ID: "abc", Label: "blj30", Length: 2, FinalBestEnergy: -12}, s)
}
