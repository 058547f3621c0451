package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"

	"github.com/banshee-data/bhtraj/internal/aggregate"
	"github.com/banshee-data/bhtraj/internal/chart"
)

func (s *Server) listLabels(w http.ResponseWriter, r *http.Request) {
	if !requireGET(w, r) {
		return
	}
	labels, err := s.store.Labels()
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, labels)
}

// listTrajectories returns every run for ?label=. With ?summary=true only the
// per-run summary rows are returned.
func (s *Server) listTrajectories(w http.ResponseWriter, r *http.Request) {
	if !requireGET(w, r) {
		return
	}
	label, ok := requireLabel(w, r)
	if !ok {
		return
	}

	records, err := s.agg.Records(label)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	if r.URL.Query().Get("summary") == "true" {
		writeJSON(w, http.StatusOK, aggregate.Summarize(records))
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) getTrajectory(w http.ResponseWriter, r *http.Request) {
	if !requireGET(w, r) {
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/api/trajectories/")
	if id == "" || strings.Contains(id, "/") {
		writeJSONError(w, http.StatusNotFound, "not found")
		return
	}

	rec, err := s.store.Get(id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

type statsResponse struct {
	aggregate.Stats
	BestEnvelope []float64 `json:"best_envelope,omitempty"`
	MeanBest     []float64 `json:"mean_best,omitempty"`
}

func (s *Server) showStats(w http.ResponseWriter, r *http.Request) {
	if !requireGET(w, r) {
		return
	}
	label, ok := requireLabel(w, r)
	if !ok {
		return
	}

	records, err := s.agg.Records(label)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	stats, err := aggregate.Compute(records)
	if err != nil {
		writeStoreError(w, fmt.Errorf("%s: %w", label, err))
		return
	}
	stats.Label = label

	resp := statsResponse{Stats: stats}
	if r.URL.Query().Get("envelope") == "true" {
		resp.BestEnvelope = aggregate.BestEnvelope(records)
		resp.MeanBest = aggregate.MeanBest(records)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) overlayHTML(w http.ResponseWriter, r *http.Request) {
	if !requireGET(w, r) {
		return
	}
	label, ok := requireLabel(w, r)
	if !ok {
		return
	}
	records, err := s.agg.Records(label)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if len(records) == 0 {
		writeJSONError(w, http.StatusNotFound, fmt.Sprintf("no trajectories for label %q", label))
		return
	}

	var buf bytes.Buffer
	opts := chart.HTMLOptions{
		AssetsHost:   s.AssetsHost,
		HideAccepted: r.URL.Query().Get("accepted") == "false",
	}
	if err := chart.WriteOverlayHTML(&buf, label, records, opts); err != nil {
		writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("render error: %v", err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) overlayPNG(w http.ResponseWriter, r *http.Request) {
	if !requireGET(w, r) {
		return
	}
	label, ok := requireLabel(w, r)
	if !ok {
		return
	}
	records, err := s.agg.Records(label)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if len(records) == 0 {
		writeJSONError(w, http.StatusNotFound, fmt.Sprintf("no trajectories for label %q", label))
		return
	}

	var buf bytes.Buffer
	if err := chart.WriteOverlayPNG(&buf, label, records); err != nil {
		writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("render error: %v", err))
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", chart.FileName(label, "png")))
	_, _ = w.Write(buf.Bytes())
}
