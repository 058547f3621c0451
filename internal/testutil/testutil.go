// Package testutil provides shared test fixtures: in-memory stores seeded with
// synthetic trajectories and small HTTP helpers.
package testutil

import (
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/banshee-data/bhtraj/internal/db"
	"github.com/banshee-data/bhtraj/internal/trajectory"
)

// Trajectory returns a deterministic synthetic run of n steps. The accepted
// energy oscillates around a decaying baseline offset by seed, and best is
// its running minimum.
func Trajectory(seed, n int) (best, accepted []float64) {
	accepted = make([]float64, n)
	for i := range accepted {
		base := -float64(seed) - 10*(1-math.Exp(-float64(i)/8))
		accepted[i] = base + 0.5*math.Sin(float64(i+seed))
	}
	return trajectory.RunningMin(accepted), accepted
}

// NewMemoryStore opens a private in-memory store closed at test cleanup.
func NewMemoryStore(t *testing.T) *db.DB {
	t.Helper()
	store, err := db.NewDB(db.MemoryLocation)
	if err != nil {
		t.Fatalf("open memory store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// Seed appends runs synthetic trajectories of steps steps under label and
// returns their ids in insertion order.
func Seed(t *testing.T, store *db.DB, label string, runs, steps int) []string {
	t.Helper()
	ids := make([]string, runs)
	for i := range ids {
		best, accepted := Trajectory(i, steps)
		id, err := store.Append(label, best, accepted)
		if err != nil {
			t.Fatalf("seed %s run %d: %v", label, i, err)
		}
		ids[i] = id
	}
	return ids
}

// AssertStatusCode checks that the response status code matches expected.
func AssertStatusCode(t *testing.T, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("status code = %d, want %d", got, want)
	}
}

// Do sends a request with method and target to h and returns the recorder.
func Do(h http.Handler, method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

// DecodeJSON unmarshals the recorder body into v.
func DecodeJSON(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}
