// Package server exposes the path-finding core over HTTP: a single-request
// JSON endpoint, an SSE endpoint that streams progress through a batch of
// requests, and a Prometheus /metrics endpoint. Grounded on the teacher's
// server.go for its overall shape (an Options struct, a Server holding
// shared read-only state, a Serve() that registers handlers on the default
// mux, and an SSE handler that flushes one JSON event per line) — the event
// vocabulary changes from bus-simulation events (arrive/board/alight/move)
// to path-finding progress events (result/error/done).
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/jwmdev/transitpath/internal/pathfinder"
	"github.com/jwmdev/transitpath/internal/request"
)

// Options configures the server instance.
type Options struct {
	MetricsAddr string
}

// Server answers HTTP requests against a shared, read-only PathFinder.
type Server struct {
	PF  *pathfinder.PathFinder
	Log zerolog.Logger
	Opt Options
}

// New constructs a Server over pf.
func New(pf *pathfinder.PathFinder, log zerolog.Logger, opt Options) *Server {
	return &Server{PF: pf, Log: log, Opt: opt}
}

// Serve registers HTTP handlers on the default mux.
func (s *Server) Serve() {
	http.HandleFunc("/api/pathfind", s.handlePathfind)
	http.HandleFunc("/api/pathfind/stream", s.handlePathfindStream)
	http.Handle("/metrics", promhttp.Handler())
}

// handlePathfind answers a single path-finding request: POST a JSON
// request.PathSpecification, get back a pathfinder.Result.
func (s *Server) handlePathfind(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	if r.Method == http.MethodOptions {
		w.WriteHeader(204)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var spec request.PathSpecification
	if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}

	res, err := s.PF.FindPath(r.Context(), &spec)
	if err != nil {
		s.Log.Warn().Err(err).Str("person_trip_id", spec.PersonTripID).Msg("server: FindPath failed")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(res)
}

// handlePathfindStream answers a POST'd JSON array of PathSpecifications as
// an SSE stream: one "result" event per request as it finishes, then a
// "done" event once every request has been answered.
func (s *Server) handlePathfindStream(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "stream unsupported", http.StatusInternalServerError)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var specs []*request.PathSpecification
	if err := json.NewDecoder(r.Body).Decode(&specs); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}

	flush := func(event string, payload any) {
		b, _ := json.Marshal(payload)
		w.Write([]byte("event: " + event + "\n"))
		w.Write([]byte("data: "))
		w.Write(b)
		w.Write([]byte("\n\n"))
		flusher.Flush()
	}

	ctx := r.Context()
	start := time.Now()
	succeeded := 0
	for i, spec := range specs {
		select {
		case <-ctx.Done():
			return
		default:
		}
		res, err := s.PF.FindPath(ctx, spec)
		if err != nil {
			flush("error", map[string]any{"index": i, "person_trip_id": spec.PersonTripID, "error": err.Error()})
			continue
		}
		if res.Code == request.RetSuccess {
			succeeded++
		}
		flush("result", map[string]any{
			"index": i, "person_trip_id": spec.PersonTripID,
			"ret_code": res.Code.String(), "num_paths": len(res.Paths), "perf": res.Perf,
		})
	}
	flush("done", map[string]any{
		"requested": len(specs), "succeeded": succeeded, "elapsed_ms": time.Since(start).Milliseconds(),
	})
}
