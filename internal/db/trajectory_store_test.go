package db

import (
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/bhtraj/internal/monitoring"
	"github.com/banshee-data/bhtraj/internal/trajectory"
)

func TestMain(m *testing.M) {
	monitoring.SetLogger(nil)
	m.Run()
}

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "bh_traj_test.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func appendRun(t *testing.T, db *DB, label string, best, accepted []float64) string {
	t.Helper()
	id, err := db.Append(label, best, accepted)
	require.NoError(t, err)
	return id
}

func TestAppendThenQuery(t *testing.T) {
	db := setupTestDB(t)

	best := []float64{5.0, 3.0, 3.0, 3.0, 1.0}
	accepted := []float64{5.0, 3.0, 3.0, 7.0, 1.0}
	id := appendRun(t, db, "lj75", best, accepted)
	assert.NotEmpty(t, id)

	recs, err := db.Query("lj75")
	require.NoError(t, err)
	require.Len(t, recs, 1)

	rec := recs[0]
	assert.Equal(t, id, rec.ID)
	assert.Equal(t, "lj75", rec.Label)
	assert.Equal(t, 5, rec.Length)
	assert.Equal(t, 1.0, rec.FinalBestEnergy)
	assert.False(t, rec.CreatedAt.IsZero())
	if diff := cmp.Diff(best, rec.BestEnergies); diff != "" {
		t.Errorf("best energies mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(accepted, rec.AcceptedEnergies); diff != "" {
		t.Errorf("accepted energies mismatch (-want +got):\n%s", diff)
	}
}

func TestQueryFiltersByLabel(t *testing.T) {
	db := setupTestDB(t)

	for i := 0; i < 3; i++ {
		appendRun(t, db, "lj75", []float64{float64(-i), float64(-i - 1)}, []float64{float64(-i), float64(-i - 1)})
	}
	for i := 0; i < 2; i++ {
		appendRun(t, db, "blj100", []float64{1, 0}, []float64{1, 0})
	}

	recs, err := db.Query("lj75")
	require.NoError(t, err)
	require.Len(t, recs, 3)
	for i, r := range recs {
		assert.Equal(t, "lj75", r.Label)
		// insertion order
		assert.Equal(t, float64(-i-1), r.FinalBestEnergy)
	}

	recs, err = db.Query("blj100")
	require.NoError(t, err)
	assert.Len(t, recs, 2)
}

func TestQueryNoMatchReturnsEmpty(t *testing.T) {
	db := setupTestDB(t)
	appendRun(t, db, "lj75", []float64{1}, []float64{1})

	recs, err := db.Query("LJ75")
	require.NoError(t, err)
	assert.NotNil(t, recs)
	assert.Empty(t, recs)
}

func TestAppendRejectsInvalidRecords(t *testing.T) {
	db := setupTestDB(t)
	appendRun(t, db, "lj75", []float64{2, 1}, []float64{2, 1})

	tests := []struct {
		name     string
		label    string
		best     []float64
		accepted []float64
	}{
		{"length mismatch", "lj75", []float64{3, 2, 1}, []float64{3, 2}},
		{"empty", "lj75", []float64{}, []float64{}},
		{"best increases", "lj75", []float64{1, 2}, []float64{1, 2}},
		{"empty label", "", []float64{1}, []float64{1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := db.Append(tt.label, tt.best, tt.accepted)
			assert.ErrorIs(t, err, trajectory.ErrInvalidRecord)
			assert.Empty(t, id)

			n, err := db.Count("lj75")
			require.NoError(t, err)
			assert.Equal(t, 1, n, "store must be unchanged")
		})
	}
}

func TestGet(t *testing.T) {
	db := setupTestDB(t)
	id := appendRun(t, db, "blj30", []float64{-4, -5}, []float64{-4, -5})

	rec, err := db.Get(id)
	require.NoError(t, err)
	assert.Equal(t, "blj30", rec.Label)
	assert.Equal(t, []float64{-4, -5}, rec.BestEnergies)

	_, err = db.Get("does-not-exist")
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestLabels(t *testing.T) {
	db := setupTestDB(t)

	labels, err := db.Labels()
	require.NoError(t, err)
	assert.Empty(t, labels)

	appendRun(t, db, "lj75", []float64{-1}, []float64{-1})
	appendRun(t, db, "lj75", []float64{-3}, []float64{-3})
	appendRun(t, db, "blj100", []float64{-2}, []float64{-2})

	labels, err = db.Labels()
	require.NoError(t, err)
	assert.Equal(t, []LabelSummary{
		{Label: "blj100", Runs: 1, BestFinalEnergy: -2},
		{Label: "lj75", Runs: 2, BestFinalEnergy: -3},
	}, labels)
}

func TestClosedStore(t *testing.T) {
	db, err := NewDB(MemoryLocation)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	_, err = db.Append("lj75", []float64{1}, []float64{1})
	assert.ErrorIs(t, err, ErrStoreClosed)

	_, err = db.Query("lj75")
	assert.ErrorIs(t, err, ErrStoreClosed)

	_, err = db.Labels()
	assert.ErrorIs(t, err, ErrStoreClosed)

	assert.ErrorIs(t, db.Close(), ErrStoreClosed)
}

func TestConcurrentAppends(t *testing.T) {
	db := setupTestDB(t)

	const writers = 8
	const steps = 50

	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			best := make([]float64, steps)
			accepted := make([]float64, steps)
			for i := range best {
				best[i] = float64(-w*steps - i)
				accepted[i] = best[i] + 0.5
			}
			if _, err := db.Append(fmt.Sprintf("run-%d", w%2), best, accepted); err != nil {
				errs <- err
			}
		}(w)
	}

	// concurrent readers must never observe a partial record
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 20; i++ {
			recs, err := db.Query("run-0")
			if err != nil {
				errs <- err
				return
			}
			for _, r := range recs {
				if r.Length != steps || len(r.BestEnergies) != steps {
					errs <- fmt.Errorf("partial record %s: %d steps", r.ID, len(r.BestEnergies))
					return
				}
			}
		}
	}()

	wg.Wait()
	<-done
	close(errs)
	for err := range errs {
		t.Error(err)
	}

	n0, err := db.Count("run-0")
	require.NoError(t, err)
	n1, err := db.Count("run-1")
	require.NoError(t, err)
	assert.Equal(t, writers, n0+n1)
}

func TestMemoryStoresAreIndependent(t *testing.T) {
	a, err := NewDB(MemoryLocation)
	require.NoError(t, err)
	defer a.Close()
	b, err := NewDB(MemoryLocation)
	require.NoError(t, err)
	defer b.Close()

	_, err = a.Append("lj75", []float64{1}, []float64{1})
	require.NoError(t, err)

	n, err := b.Count("lj75")
	require.NoError(t, err)
	assert.Zero(t, n)

	recs, err := a.Query("lj75")
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}
