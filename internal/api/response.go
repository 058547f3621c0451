package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/banshee-data/bhtraj/internal/aggregate"
	"github.com/banshee-data/bhtraj/internal/db"
	"github.com/banshee-data/bhtraj/internal/monitoring"
)

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		monitoring.Logf("failed to encode json response: %v", err)
	}
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeStoreError maps store and aggregation errors to a status code.
func writeStoreError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, db.ErrRecordNotFound), errors.Is(err, aggregate.ErrNoRecords):
		status = http.StatusNotFound
	case errors.Is(err, db.ErrStoreClosed), errors.Is(err, db.ErrStoreUnavailable):
		status = http.StatusServiceUnavailable
	}
	writeJSONError(w, status, err.Error())
}

// requireGET rejects anything but GET and HEAD. It reports whether the
// request may proceed.
func requireGET(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return false
	}
	return true
}

// requireLabel returns the label query parameter, writing a 400 when it is
// missing.
func requireLabel(w http.ResponseWriter, r *http.Request) (string, bool) {
	label := r.URL.Query().Get("label")
	if label == "" {
		writeJSONError(w, http.StatusBadRequest, "missing 'label' parameter")
		return "", false
	}
	return label, true
}
