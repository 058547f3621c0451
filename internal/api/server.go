// Package api serves the read-only HTTP view of a trajectory store: JSON
// endpoints for labels, runs and statistics, plus overlay charts.
package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/banshee-data/bhtraj/internal/aggregate"
	"github.com/banshee-data/bhtraj/internal/db"
	"github.com/banshee-data/bhtraj/internal/monitoring"
	"github.com/banshee-data/bhtraj/internal/trajectory"
)

// ANSI escape codes for status colouring in the request log
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

// Store is the read side of the trajectory store used by the server.
type Store interface {
	Query(label string) ([]*trajectory.Record, error)
	Get(id string) (*trajectory.Record, error)
	Labels() ([]db.LabelSummary, error)
}

type Server struct {
	store Store
	agg   *aggregate.Aggregator

	// AssetsHost is passed to the HTML chart renderer when set.
	AssetsHost string
}

func NewServer(store Store) *Server {
	return &Server{
		store: store,
		agg:   aggregate.New(store),
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		monitoring.Logf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/labels", s.listLabels)
	mux.HandleFunc("/api/trajectories", s.listTrajectories)
	mux.HandleFunc("/api/trajectories/", s.getTrajectory)
	mux.HandleFunc("/api/stats", s.showStats)
	mux.HandleFunc("/charts/overlay", s.overlayHTML)
	mux.HandleFunc("/charts/overlay.png", s.overlayPNG)
	return mux
}
