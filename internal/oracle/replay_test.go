package oracle

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/bhtraj/internal/runner"
)

func TestReplayDerivesBest(t *testing.T) {
	r, err := NewReplay([]float64{5, 3, 3, 7, 1}, nil)
	require.NoError(t, err)
	assert.Equal(t, 5, r.Len())

	_, err = r.CurrentBestEnergy()
	assert.Error(t, err)

	rec, err := (&runner.Controller{}).Run(context.Background(), r, r.Len())
	require.NoError(t, err)
	assert.Equal(t, []float64{5, 3, 3, 3, 1}, rec.BestEnergies)
	assert.Equal(t, 1.0, rec.FinalBestEnergy)

	_, err = r.Step()
	assert.ErrorIs(t, err, ErrExhausted)
}

func TestReplayExplicitBest(t *testing.T) {
	// best comes from a minima database and may be lower than any accepted state
	r, err := NewReplay([]float64{-1, -2}, []float64{-3, -4})
	require.NoError(t, err)

	rec, err := (&runner.Controller{}).Run(context.Background(), r, 2)
	require.NoError(t, err)
	assert.Equal(t, []float64{-3, -4}, rec.BestEnergies)
}

func TestReplayRunsPastEnd(t *testing.T) {
	r, err := NewReplay([]float64{1}, nil)
	require.NoError(t, err)

	_, err = (&runner.Controller{}).Run(context.Background(), r, 2)
	assert.ErrorIs(t, err, runner.ErrOracleFailure)
	assert.ErrorIs(t, err, ErrExhausted)
}

func TestNewReplayErrors(t *testing.T) {
	_, err := NewReplay(nil, nil)
	assert.Error(t, err)
	_, err = NewReplay([]float64{1, 2}, []float64{1})
	assert.Error(t, err)
}

func TestReadCSV(t *testing.T) {
	tests := []struct {
		name         string
		in           string
		wantAccepted []float64
		wantBest     []float64
	}{
		{
			name:         "accepted only",
			in:           "5\n3\n7\n",
			wantAccepted: []float64{5, 3, 7},
		},
		{
			name:         "header and best",
			in:           "accepted,best\n5,5\n3,3\n7,3\n",
			wantAccepted: []float64{5, 3, 7},
			wantBest:     []float64{5, 3, 3},
		},
		{
			name:         "comments and spaces",
			in:           "# lj75 run 3\n-1.5, -1.5\n-2.25, -2.25\n",
			wantAccepted: []float64{-1.5, -2.25},
			wantBest:     []float64{-1.5, -2.25},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			accepted, best, err := ReadCSV(strings.NewReader(tt.in))
			require.NoError(t, err)
			assert.Equal(t, tt.wantAccepted, accepted)
			assert.Equal(t, tt.wantBest, best)
		})
	}
}

func TestReadCSVErrors(t *testing.T) {
	for name, in := range map[string]string{
		"empty":         "",
		"header only":   "accepted\n",
		"ragged":        "1,1\n2\n",
		"bad value":     "1\nabc\n",
		"too many cols": "1,2,3\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, _, err := ReadCSV(strings.NewReader(in))
			assert.Error(t, err)
		})
	}
}
