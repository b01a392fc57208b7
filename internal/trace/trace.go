// Package trace emits the optional per-request trace artifacts spec §6
// describes: a structured per-iteration log, a labels CSV, a
// stop-label-iteration CSV, and (stochastic mode only) an append-only
// path-set CSV shared across requests. Tracing is strictly a side effect —
// nothing here feeds back into labeling or extraction (spec.md line 174) —
// so a Recorder's methods never return an error the caller must act on;
// write failures are logged and swallowed.
//
// Grounded on sim/report.go's CSV-writing idiom (directory-or-file path
// resolution, timestamped filenames) generalized from one end-of-run
// summary to one CSV row per labeling event, plus zerolog for the
// human-readable iteration log the teacher's `[trace]`/`buslog` Printf
// lines informally played the same role for.
package trace

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/jwmdev/transitpath/internal/config"
	"github.com/jwmdev/transitpath/internal/request"
	"github.com/jwmdev/transitpath/internal/transit"
)

// Recorder accumulates the trace artifacts for a single request. A nil
// *Recorder is valid and every method on it is a no-op, so call sites don't
// need to branch on spec.Trace themselves.
type Recorder struct {
	log    zerolog.Logger
	labels *csv.Writer
	stops  *csv.Writer
	paths  *appendWriter

	labelsFile *os.File
	stopsFile  *os.File

	iteration int
}

// appendWriter serializes writes to a file shared across many requests'
// Recorders (the path-set file is append-only across a whole run, §6).
type appendWriter struct {
	mu sync.Mutex
	f  *os.File
	w  *csv.Writer
}

var pathSetWriter *appendWriter
var pathSetOnce sync.Once

// NewRecorder opens the per-request trace files under cfg.Dir and returns a
// Recorder, or nil if tracing is disabled (cfg.Enabled is false or
// spec.Trace is false). Directory creation and file-open failures are
// logged at Warn and degrade to a no-op Recorder rather than failing the
// request — tracing must never change the algorithm's outputs.
func NewRecorder(cfg config.TracingConfig, spec *request.PathSpecification, log zerolog.Logger) *Recorder {
	if !cfg.Enabled || !spec.Trace {
		return nil
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		log.Warn().Err(err).Str("dir", cfg.Dir).Msg("trace: mkdir failed, tracing disabled for this request")
		return nil
	}

	base := requestBaseName(spec)
	sublog := log.With().Str("person_trip_id", spec.PersonTripID).Int("iteration", spec.Iteration).Logger()

	r := &Recorder{log: sublog}

	if f, w, err := openCSV(filepath.Join(cfg.Dir, base+".labels.csv"),
		[]string{"label_iteration", "link", "node_id", "time", "mode", "trip_id", "link_time", "link_cost", "cost", "AB"}); err != nil {
		sublog.Warn().Err(err).Msg("trace: open labels CSV failed")
	} else {
		r.labelsFile, r.labels = f, w
	}

	if f, w, err := openCSV(filepath.Join(cfg.Dir, base+".stop_iterations.csv"),
		[]string{"label_iteration", "node_id", "side", "process_count", "hyperpath_cost"}); err != nil {
		sublog.Warn().Err(err).Msg("trace: open stop-label-iteration CSV failed")
	} else {
		r.stopsFile, r.stops = f, w
	}

	if spec.Hyperpath {
		pathSetOnce.Do(func() {
			pathSetWriter = newAppendWriter(filepath.Join(cfg.Dir, "path_set.csv"),
				[]string{"iteration", "person_id", "path_id", "cost", "probability", "boards", "trips", "alights"})
		})
		r.paths = pathSetWriter
	}

	sublog.Debug().
		Int64("preferred_time", int64(spec.PreferredTime)).
		Bool("outbound", spec.Outbound).
		Bool("hyperpath", spec.Hyperpath).
		Msg("trace: request echo")

	return r
}

func requestBaseName(spec *request.PathSpecification) string {
	id := spec.PersonTripID
	if id == "" {
		id = spec.PersonID
	}
	if id == "" {
		id = strconv.Itoa(spec.Iteration)
	}
	return fmt.Sprintf("%s.%d", sanitizeFileComponent(id), spec.PathfindingIteration)
}

func sanitizeFileComponent(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			out = append(out, r)
		default:
			out = append(out, '_')
		}
	}
	if len(out) == 0 {
		return "request"
	}
	return string(out)
}

func openCSV(path string, header []string) (*os.File, *csv.Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		f.Close()
		return nil, nil, err
	}
	return f, w, nil
}

func newAppendWriter(path string, header []string) *appendWriter {
	needsHeader := true
	if fi, err := os.Stat(path); err == nil && fi.Size() > 0 {
		needsHeader = false
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil
	}
	w := csv.NewWriter(f)
	if needsHeader {
		_ = w.Write(header)
		w.Flush()
	}
	return &appendWriter{f: f, w: w}
}

// PopStop logs one labeling-loop pop (spec.md line 58: "Debug per
// pop/push when tracing is enabled").
func (r *Recorder) PopStop(stop transit.StopID, side transit.Side, cost float64) {
	if r == nil {
		return
	}
	r.iteration++
	r.log.Debug().
		Int("label_iteration", r.iteration).
		Int64("node_id", int64(stop)).
		Bool("trip_side", bool(side)).
		Float64("cost", cost).
		Msg("pop")
}

// WriteLabel appends one row to the labels CSV: a single relaxed link
// discovered during this labeling iteration.
func (r *Recorder) WriteLabel(link int, nodeID transit.StopID, t float64, mode transit.LinkMode, tripID transit.TripID, linkTime, linkCost, cost float64, ab string) {
	if r == nil || r.labels == nil {
		return
	}
	row := []string{
		strconv.Itoa(r.iteration),
		strconv.Itoa(link),
		strconv.Itoa(int(nodeID)),
		strconv.FormatFloat(t, 'f', 3, 64),
		mode.String(),
		strconv.Itoa(int(tripID)),
		strconv.FormatFloat(linkTime, 'f', 3, 64),
		strconv.FormatFloat(linkCost, 'f', 6, 64),
		strconv.FormatFloat(cost, 'f', 6, 64),
		ab,
	}
	if err := r.labels.Write(row); err != nil {
		r.log.Warn().Err(err).Msg("trace: write labels row failed")
	}
}

// WriteStopIteration appends one row to the stop-label-iteration CSV:
// a (stop, side) pop and the process count/hyperpath cost it left behind.
func (r *Recorder) WriteStopIteration(stop transit.StopID, side transit.Side, processCount int, hyperpathCost float64) {
	if r == nil || r.stops == nil {
		return
	}
	row := []string{
		strconv.Itoa(r.iteration),
		strconv.Itoa(int(stop)),
		sideLabel(side),
		strconv.Itoa(processCount),
		strconv.FormatFloat(hyperpathCost, 'f', 6, 64),
	}
	if err := r.stops.Write(row); err != nil {
		r.log.Warn().Err(err).Msg("trace: write stop-iteration row failed")
	}
}

func sideLabel(side transit.Side) string {
	if side == transit.TripSide {
		return "trip"
	}
	return "non_trip"
}

// WritePathSetEntry appends one row to the shared, append-only path-set
// file (stochastic mode only, spec.md line 273).
func (r *Recorder) WritePathSetEntry(spec *request.PathSpecification, pathID int, cost, probability float64, boards, trips, alights int) {
	if r == nil || r.paths == nil {
		return
	}
	r.paths.mu.Lock()
	defer r.paths.mu.Unlock()
	row := []string{
		strconv.Itoa(spec.Iteration),
		spec.PersonID,
		strconv.Itoa(pathID),
		strconv.FormatFloat(cost, 'f', 6, 64),
		strconv.FormatFloat(probability, 'f', 8, 64),
		strconv.Itoa(boards),
		strconv.Itoa(trips),
		strconv.Itoa(alights),
	}
	if err := r.paths.w.Write(row); err != nil {
		r.log.Warn().Err(err).Msg("trace: write path-set row failed")
		return
	}
	r.paths.w.Flush()
}

// Close flushes and closes this request's per-request files. The shared
// path-set file is left open for the process lifetime.
func (r *Recorder) Close() {
	if r == nil {
		return
	}
	if r.labels != nil {
		r.labels.Flush()
	}
	if r.labelsFile != nil {
		r.labelsFile.Close()
	}
	if r.stops != nil {
		r.stops.Flush()
	}
	if r.stopsFile != nil {
		r.stopsFile.Close()
	}
}

// timestamp formats the current time as a filename suffix in the same
// layout as sim/report.go's timestamped-report convention (report.go in
// this repo formats its own suffix the same way).
func timestamp() string {
	return time.Now().Format("20060102-150405")
}

// Timestamp exposes timestamp() to other packages; no package in this repo
// calls it.
func Timestamp() string { return timestamp() }
