// Package pathfinder ties the labeling loop together: it drives a
// queue.LabelStopQueue and a hyperlink.StopStates through
// transfer/trip relaxation (§4.4), then extracts one deterministic path or
// a stochastic path set (§4.5) and prices each with path.Path.CalculateCost.
//
// Grounded on driver/batch.go's event-loop shape (a priority queue drained
// to completion, each pop fanning out to a handful of "what changed"
// callbacks) generalized from discrete-event simulation to label
// relaxation.
package pathfinder

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/jwmdev/transitpath/internal/config"
	"github.com/jwmdev/transitpath/internal/hyperlink"
	"github.com/jwmdev/transitpath/internal/obs"
	"github.com/jwmdev/transitpath/internal/path"
	"github.com/jwmdev/transitpath/internal/queue"
	"github.com/jwmdev/transitpath/internal/request"
	"github.com/jwmdev/transitpath/internal/supply"
	"github.com/jwmdev/transitpath/internal/trace"
	"github.com/jwmdev/transitpath/internal/transit"
)

// PathFinder answers one request at a time against a shared, read-only
// supply.Tables. It carries no per-request state between calls: every
// FindPath allocates its own queue and StopStates.
type PathFinder struct {
	tables  supply.Tables
	cfg     *config.Config
	log     zerolog.Logger
	metrics *obs.Metrics
}

// New constructs a PathFinder over tables, configured by cfg.
func New(tables supply.Tables, cfg *config.Config, log zerolog.Logger, metrics *obs.Metrics) *PathFinder {
	return &PathFinder{tables: tables, cfg: cfg, log: log, metrics: metrics}
}

// PathResult pairs an extracted path with the metadata the request contract
// returns alongside it (§6 External interfaces).
type PathResult struct {
	Path *path.Path
	Info request.PathInfo
}

// Result is the full outcome of FindPath.
type Result struct {
	Code  request.RetCode
	Paths []PathResult
	Perf  request.PerformanceInfo
}

// FindPath runs the labeling loop for spec, then extracts either a single
// deterministic path or a stochastic path set (§4.5), recording performance
// counters throughout.
func (pf *PathFinder) FindPath(ctx context.Context, spec *request.PathSpecification) (Result, error) {
	ss := hyperlink.NewStopStates(spec.Outbound, spec.Hyperpath, pf.cfg.Pathfinding.Theta, pf.cfg.Pathfinding.Window)
	q := queue.New()
	tr := trace.NewRecorder(pf.cfg.Tracing, spec, pf.log)
	defer tr.Close()

	labelStart := time.Now()
	if err := pf.initializeStopStates(ss, spec, q); err != nil {
		pf.metrics.RequestFailed("init_stop_states")
		return Result{Code: request.RetFailInitStopStates}, nil
	}

	iterations, maxProcessCount, err := pf.labelStops(ctx, ss, spec, q, tr)
	if err != nil && !errors.Is(err, context.Canceled) {
		pf.metrics.RequestFailed("label_stops")
		return Result{Code: request.RetFailSetReachable}, err
	}
	labelingTime := time.Since(labelStart)
	if pf.metrics != nil {
		pf.metrics.LabelIterations.Add(float64(iterations))
		pf.metrics.StopProcessCount.Observe(float64(maxProcessCount))
		pf.metrics.LabelDuration.Observe(labelingTime.Seconds())
	}

	terminal, ok := pf.finalizeTazState(ss, spec)
	if !ok {
		pf.metrics.RequestFailed("end_not_found")
		return Result{Code: request.RetFailEndNotFound, Perf: request.PerformanceInfo{
			LabelIterations: iterations, MaxProcessCount: maxProcessCount, LabelingTime: labelingTime,
		}}, nil
	}

	enumStart := time.Now()
	var results []PathResult
	if spec.Hyperpath {
		results, err = pf.extractStochastic(ss, spec, terminal, tr)
	} else {
		results, err = pf.extractDeterministic(ss, spec, terminal)
	}
	enumTime := time.Since(enumStart)
	if pf.metrics != nil {
		pf.metrics.EnumerateDuration.Observe(enumTime.Seconds())
	}

	perf := request.PerformanceInfo{
		LabelIterations: iterations, MaxProcessCount: maxProcessCount,
		LabelingTime: labelingTime, EnumerationTime: enumTime,
	}

	if err != nil {
		pf.metrics.RequestFailed("no_paths_gen")
		return Result{Code: request.RetFailNoPathsGen, Perf: perf}, nil
	}
	if len(results) == 0 {
		pf.metrics.RequestFailed("no_path_prob")
		return Result{Code: request.RetFailNoPathProb, Perf: perf}, nil
	}

	return Result{Code: request.RetSuccess, Paths: results, Perf: perf}, nil
}

// otherTAZ is the end of the request that labeling must reach: the origin
// for an outbound scan (which starts at the destination), the destination
// for an inbound scan.
func (pf *PathFinder) otherTAZ(spec *request.PathSpecification) transit.StopID {
	if spec.Outbound {
		return spec.OriginTAZID
	}
	return spec.DestinationTAZID
}

func demandModeString(spec *request.PathSpecification, dt transit.DemandModeType) string {
	switch dt {
	case transit.DemandAccess:
		return spec.AccessMode
	case transit.DemandEgress:
		return spec.EgressMode
	case transit.DemandTransfer:
		return spec.TransitMode
	default:
		return spec.TransitMode
	}
}

// terminalMode returns the StopStateKey mode used for the leg that
// connects a stop to the TAZ a direction starts or ends at: access
// (outbound's origin, inbound's own start) or egress (outbound's own
// start, inbound's destination). Here it specifically answers "what mode
// finalizeTazState inserts", which is access for outbound (reaching the
// origin) and egress for inbound (reaching the destination).
func terminalMode(outbound bool) transit.LinkMode {
	if outbound {
		return transit.ModeAccess
	}
	return transit.ModeEgress
}

func terminalDemandType(outbound bool) transit.DemandModeType {
	if outbound {
		return transit.DemandAccess
	}
	return transit.DemandEgress
}
