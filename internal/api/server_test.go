package api

import (
	"bytes"
	"image/png"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/bhtraj/internal/db"
	"github.com/banshee-data/bhtraj/internal/monitoring"
	"github.com/banshee-data/bhtraj/internal/testutil"
	"github.com/banshee-data/bhtraj/internal/trajectory"
)

func TestMain(m *testing.M) {
	monitoring.SetLogger(nil)
	m.Run()
}

func setupServer(t *testing.T) (*db.DB, http.Handler) {
	t.Helper()
	store := testutil.NewMemoryStore(t)
	testutil.Seed(t, store, "lj75", 3, 40)
	testutil.Seed(t, store, "blj100", 2, 25)
	return store, LoggingMiddleware(NewServer(store).ServeMux())
}

func TestListLabels(t *testing.T) {
	_, h := setupServer(t)

	rec := testutil.Do(h, http.MethodGet, "/api/labels")
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var labels []db.LabelSummary
	testutil.DecodeJSON(t, rec, &labels)
	require.Len(t, labels, 2)
	assert.Equal(t, "blj100", labels[0].Label)
	assert.Equal(t, 2, labels[0].Runs)
	assert.Equal(t, "lj75", labels[1].Label)
	assert.Equal(t, 3, labels[1].Runs)
}

func TestListTrajectories(t *testing.T) {
	_, h := setupServer(t)

	rec := testutil.Do(h, http.MethodGet, "/api/trajectories?label=lj75")
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)

	var records []trajectory.Record
	testutil.DecodeJSON(t, rec, &records)
	require.Len(t, records, 3)
	for _, r := range records {
		assert.Equal(t, "lj75", r.Label)
		assert.Len(t, r.BestEnergies, 40)
		assert.NoError(t, r.Validate())
	}

	rec = testutil.Do(h, http.MethodGet, "/api/trajectories?label=lj75&summary=true")
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
	var rows []trajectory.Summary
	testutil.DecodeJSON(t, rec, &rows)
	require.Len(t, rows, 3)
	assert.Equal(t, records[0].ID, rows[0].ID)
	assert.NotContains(t, rec.Body.String(), "best_energy_trajectory")
}

func TestListTrajectoriesUnknownLabel(t *testing.T) {
	_, h := setupServer(t)
	rec := testutil.Do(h, http.MethodGet, "/api/trajectories?label=blj30")
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))
}

func TestGetTrajectory(t *testing.T) {
	store, h := setupServer(t)
	recs, err := store.Query("blj100")
	require.NoError(t, err)

	rec := testutil.Do(h, http.MethodGet, "/api/trajectories/"+recs[1].ID)
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
	var got trajectory.Record
	testutil.DecodeJSON(t, rec, &got)
	assert.Equal(t, recs[1].ID, got.ID)
	assert.Equal(t, recs[1].AcceptedEnergies, got.AcceptedEnergies)

	rec = testutil.Do(h, http.MethodGet, "/api/trajectories/nope")
	testutil.AssertStatusCode(t, rec.Code, http.StatusNotFound)
}

func TestShowStats(t *testing.T) {
	_, h := setupServer(t)

	rec := testutil.Do(h, http.MethodGet, "/api/stats?label=lj75&envelope=true")
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)

	var resp statsResponse
	testutil.DecodeJSON(t, rec, &resp)
	assert.Equal(t, "lj75", resp.Label)
	assert.Equal(t, 3, resp.Runs)
	assert.Len(t, resp.BestEnvelope, 40)
	assert.Len(t, resp.MeanBest, 40)
	assert.LessOrEqual(t, resp.MinFinal, resp.MeanFinal)

	rec = testutil.Do(h, http.MethodGet, "/api/stats?label=blj30")
	testutil.AssertStatusCode(t, rec.Code, http.StatusNotFound)
}

func TestBadRequests(t *testing.T) {
	_, h := setupServer(t)

	for _, path := range []string{"/api/trajectories", "/api/stats", "/charts/overlay", "/charts/overlay.png"} {
		rec := testutil.Do(h, http.MethodGet, path)
		testutil.AssertStatusCode(t, rec.Code, http.StatusBadRequest)
		var body map[string]string
		testutil.DecodeJSON(t, rec, &body)
		assert.Contains(t, body["error"], "label")
	}

	rec := testutil.Do(h, http.MethodPost, "/api/labels")
	testutil.AssertStatusCode(t, rec.Code, http.StatusMethodNotAllowed)
	rec = testutil.Do(h, http.MethodDelete, "/api/trajectories?label=lj75")
	testutil.AssertStatusCode(t, rec.Code, http.StatusMethodNotAllowed)
}

func TestOverlayCharts(t *testing.T) {
	_, h := setupServer(t)

	rec := testutil.Do(h, http.MethodGet, "/charts/overlay?label=lj75")
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "run 2")

	rec = testutil.Do(h, http.MethodGet, "/charts/overlay.png?label=blj100")
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	_, err := png.Decode(bytes.NewReader(rec.Body.Bytes()))
	assert.NoError(t, err)

	rec = testutil.Do(h, http.MethodGet, "/charts/overlay.png?label=blj30")
	testutil.AssertStatusCode(t, rec.Code, http.StatusNotFound)
}

func TestClosedStore(t *testing.T) {
	store, h := setupServer(t)
	require.NoError(t, store.Close())

	rec := testutil.Do(h, http.MethodGet, "/api/labels")
	testutil.AssertStatusCode(t, rec.Code, http.StatusServiceUnavailable)
	rec = testutil.Do(h, http.MethodGet, "/api/trajectories?label=lj75")
	testutil.AssertStatusCode(t, rec.Code, http.StatusServiceUnavailable)
}

func TestStatusCodeColor(t *testing.T) {
	assert.Equal(t, colorBoldGreen+"200"+colorReset, statusCodeColor(200))
	assert.Equal(t, colorYellow+"304"+colorReset, statusCodeColor(304))
	assert.Equal(t, colorBoldRed+"404"+colorReset, statusCodeColor(404))
	assert.Equal(t, colorBoldRed+"503"+colorReset, statusCodeColor(503))
	assert.Equal(t, "101", statusCodeColor(101))
}
