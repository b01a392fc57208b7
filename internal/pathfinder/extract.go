package pathfinder

import (
	"errors"
	"math"
	"math/rand"

	"github.com/jwmdev/transitpath/internal/costmodel"
	"github.com/jwmdev/transitpath/internal/hyperlink"
	"github.com/jwmdev/transitpath/internal/path"
	"github.com/jwmdev/transitpath/internal/request"
	"github.com/jwmdev/transitpath/internal/trace"
	"github.com/jwmdev/transitpath/internal/transit"
)

// maxPathLinks bounds an extraction walk so a malformed supply table (a
// cycle of zero-cost transfers, say) fails loudly instead of looping
// forever.
const maxPathLinks = 256

// finalizeTazState closes the loop at the scan's far end: for every stop
// labeling actually reached, it asks whether that stop also has a
// configured access/egress leg to otherTAZ and, if so, inserts the
// resulting terminal StopState into a fresh Hyperlink keyed at otherTAZ
// itself (§4.4.4 "finalize the TAZ state"). It returns false (RET_FAIL_END
// NOT_FOUND) when no stop reached has any such leg.
func (pf *PathFinder) finalizeTazState(ss *hyperlink.StopStates, spec *request.PathSpecification) (*hyperlink.Hyperlink, bool) {
	otherTAZ := pf.otherTAZ(spec)
	mode := terminalMode(spec.Outbound)
	demandType := terminalDemandType(spec.Outbound)

	modes := pf.tables.AccessEgressModesForTAZ(otherTAZ, demandType)
	if len(modes) == 0 {
		return nil, false
	}

	terminal := hyperlink.New(otherTAZ, spec.Outbound, spec.Hyperpath, pf.cfg.Pathfinding.Theta, pf.cfg.Pathfinding.Window)
	found := false

	for _, stop := range ss.Stops() {
		h, ok := ss.Get(stop)
		if !ok {
			continue
		}
		best, ok := h.LowestCostStopState(transit.NonTripSide)
		if !ok {
			continue
		}
		queryTime := best.DeparrTime
		if !spec.Outbound {
			queryTime = best.ArrdepTime
		}

		for _, sm := range modes {
			for _, l := range pf.tables.AccessEgress(otherTAZ, sm, queryTime) {
				if l.StopID != stop {
					continue
				}
				walk := l.Attributes["time_min"]
				var dep, arr float64
				if spec.Outbound {
					arr = best.DeparrTime
					dep = arr - walk
				} else {
					dep = best.ArrdepTime
					arr = dep + walk
				}

				ns := &hyperlink.StopState{
					Key:        hyperlink.StopStateKey{Mode: mode, TripOrSupplyMode: int(sm), SuccPredStop: stop},
					DeparrTime: dep,
					ArrdepTime: arr,
					LinkTime:   walk,
					Cost:       best.Cost,
				}
				if wt, ok := pf.tables.Weights(spec.UserClass, spec.Purpose, demandType, demandModeString(spec, demandType), sm); ok {
					cost, _ := costmodel.Tally(wt, map[string]float64{"time_min": walk})
					ns.LinkCost = cost
					ns.Cost = best.Cost + cost
				}

				changed, _ := terminal.AddLink(ns, true)
				if changed {
					found = true
				}
			}
		}
	}

	if !found {
		return nil, false
	}
	return terminal, true
}

// chainStep is one link discovered while walking backward from the
// terminal toward the scan origin: the stop whose Hyperlink held it, paired
// with the state itself.
type chainStep struct {
	stopID transit.StopID
	state  *hyperlink.StopState
}

// walkChain traces one path back from terminal through ss, alternating
// sides at every stop: a non-trip link's predecessor is found on the trip
// side at the stop it names, and a trip link's predecessor is found back on
// the non-trip side, mirroring how the labeling loop alternated the two
// while building them forward (§4.5.1). The returned chain runs terminal
// first, scan-origin last — the reverse of the order Path.AddLink expects,
// since construction always extends from the scan seed toward the terminal
// leg finalizeTazState bridged in.
func (pf *PathFinder) walkChain(ss *hyperlink.StopStates, spec *request.PathSpecification, first *hyperlink.StopState, choose func(h *hyperlink.Hyperlink, side transit.Side, prev *hyperlink.StopState) (*hyperlink.StopState, bool)) ([]chainStep, error) {
	scanSeedMode := terminalMode(!spec.Outbound)

	chain := []chainStep{{first.Key.SuccPredStop, first}}
	cur := first.Key.SuccPredStop
	prevWasTrip := false

	for chain[len(chain)-1].state.Key.Mode != scanSeedMode {
		if len(chain) > maxPathLinks {
			return nil, errors.New("pathfinder: path exceeded maximum link count, supply table likely cyclic")
		}
		h, ok := ss.Get(cur)
		if !ok {
			return nil, errors.New("pathfinder: extraction reached an unlabeled stop")
		}
		side := transit.TripSide
		if prevWasTrip {
			side = transit.NonTripSide
		}
		st, ok := choose(h, side, chain[len(chain)-1].state)
		if !ok {
			return nil, errors.New("pathfinder: extraction found no candidate on the expected side")
		}
		chain = append(chain, chainStep{cur, st})
		cur = st.Key.SuccPredStop
		prevWasTrip = st.IsTrip()
	}

	return chain, nil
}

// buildPath replays chain (terminal first) into a fresh Path in the
// construction order Path.AddLink expects: scan-seed link first, terminal
// link last.
func buildPath(outbound, enumerating bool, chain []chainStep) (*path.Path, error) {
	p := path.New(outbound, enumerating)
	for i := len(chain) - 1; i >= 0; i-- {
		if !p.AddLink(chain[i].stopID, chain[i].state) {
			return nil, errors.New("pathfinder: path infeasible during extraction")
		}
	}
	if !p.Done() {
		return nil, errors.New("pathfinder: extracted path did not reach its terminal leg")
	}
	return p, nil
}

// extractDeterministic traces the single cheapest path back from terminal's
// lowest-cost arrival (§4.5.1).
func (pf *PathFinder) extractDeterministic(ss *hyperlink.StopStates, spec *request.PathSpecification, terminal *hyperlink.Hyperlink) ([]PathResult, error) {
	state, ok := terminal.LowestCostStopState(transit.NonTripSide)
	if !ok {
		return nil, errors.New("pathfinder: terminal hyperlink has no state to extract from")
	}

	chain, err := pf.walkChain(ss, spec, state, func(h *hyperlink.Hyperlink, side transit.Side, _ *hyperlink.StopState) (*hyperlink.StopState, bool) {
		return h.LowestCostStopState(side)
	})
	if err != nil {
		return nil, err
	}

	p, err := buildPath(spec.Outbound, false, chain)
	if err != nil {
		return nil, err
	}
	if err := p.CalculateCost(pf.tables, spec, &pf.cfg.Pathfinding); err != nil {
		return nil, err
	}

	return []PathResult{{
		Path: p,
		Info: request.PathInfo{
			Cost:            p.Cost,
			Fare:            p.Fare,
			Probability:     1.0,
			Count:           1,
			CapacityProblem: p.CapacityProblem,
		},
	}}, nil
}

// extractStochastic draws StochPathsetSize independent samples from the
// hyperpath, each a random walk that alternates UnconditionalChoose (at the
// terminal) and ConditionalChoose (everywhere else), deduplicates them into
// a path.PathSet, recomputes every unique path's cost from scratch, and
// derives each one's probability from the recomputed-cost logsum —
// exp(-θ·cost)/Σexp(-θ·cost) — not from how often the sampler happened to
// draw it (§4.5.2). Paths whose logsum-normalized probability falls below
// MinPathProbability are dropped, the rest ordered most-probable-first and
// capped at MaxNumPaths.
func (pf *PathFinder) extractStochastic(ss *hyperlink.StopStates, spec *request.PathSpecification, terminal *hyperlink.Hyperlink, tr *trace.Recorder) ([]PathResult, error) {
	cfg := pf.cfg.Pathfinding
	rng := rand.New(rand.NewSource(stochSeed(spec)))

	set := path.NewPathSet()
	draws := 0

	for i := 0; i < cfg.StochPathsetSize; i++ {
		p, ok := pf.sampleOnePath(ss, spec, terminal, rng)
		if !ok {
			continue
		}
		draws++
		set.Add(p)
	}

	if draws == 0 {
		return nil, errors.New("pathfinder: no stochastic draw produced a feasible path")
	}

	entries := set.Entries()
	for _, e := range entries {
		if err := e.Path.CalculateCost(pf.tables, spec, &cfg); err != nil {
			return nil, err
		}
	}

	var logsum float64
	for _, e := range entries {
		if e.Path.Cost > 0 {
			logsum += math.Exp(-cfg.Theta * e.Path.Cost)
		}
	}
	if logsum == 0 {
		// Numerical degeneracy (§7): surfaces as RET_FAIL_NO_PATH_PROB via
		// the caller's empty-results check, not as an error.
		return nil, nil
	}

	results := make([]PathResult, 0, len(entries))
	for _, e := range entries {
		prob := math.Exp(-cfg.Theta*e.Path.Cost) / logsum
		if prob < cfg.MinPathProbability {
			continue
		}
		results = append(results, PathResult{
			Path: e.Path,
			Info: request.PathInfo{
				Cost:            e.Path.Cost,
				Fare:            e.Path.Fare,
				Probability:     prob,
				Count:           e.Count,
				CapacityProblem: e.Path.CapacityProblem,
			},
		})
	}
	sortResultsByProbability(results)
	if len(results) > cfg.MaxNumPaths {
		results = results[:cfg.MaxNumPaths]
	}

	for i, r := range results {
		boards, trips, alights := countLegs(r.Path)
		tr.WritePathSetEntry(spec, i, r.Info.Cost, r.Info.Probability, boards, trips, alights)
	}

	return results, nil
}

// countLegs tallies the board/trip/alight counts the path-set trace row
// carries: one board and one alight per transit leg, trips counted the
// same way since this repo has no direct-transfer-without-alighting mode.
func countLegs(p *path.Path) (boards, trips, alights int) {
	for _, l := range p.Links {
		if l.State.Key.Mode == transit.ModeTransit {
			boards++
			trips++
			alights++
		}
	}
	return boards, trips, alights
}

// sampleOnePath draws one random walk from terminal back to the scan
// origin, forbidding immediate re-boarding of whichever trip the previous
// step chose (§4.2.2). It returns ok=false when a draw runs dry (no
// admissible mass on the side it needed) or produces an infeasible chain,
// in which case the caller simply discards that draw rather than failing
// the whole request.
func (pf *PathFinder) sampleOnePath(ss *hyperlink.StopStates, spec *request.PathSpecification, terminal *hyperlink.Hyperlink, rng *rand.Rand) (*path.Path, bool) {
	state, ok := terminal.UnconditionalChoose(transit.NonTripSide, rng)
	if !ok {
		return nil, false
	}

	var lastTripID transit.TripID
	var hasLastTripID bool
	if state.IsTrip() {
		lastTripID = state.TripID()
		hasLastTripID = true
	}

	chain, err := pf.walkChain(ss, spec, state, func(h *hyperlink.Hyperlink, side transit.Side, prev *hyperlink.StopState) (*hyperlink.StopState, bool) {
		st, ok := h.ConditionalChoose(side, prev, lastTripID, hasLastTripID, rng)
		if !ok {
			return nil, false
		}
		if st.IsTrip() {
			lastTripID = st.TripID()
			hasLastTripID = true
		}
		return st, true
	})
	if err != nil {
		return nil, false
	}

	// The sampled chain has the same terminal-first shape as a deterministic
	// one, so it is replayed with the same (non-enumerating) construction
	// order.
	p, err := buildPath(spec.Outbound, false, chain)
	if err != nil {
		return nil, false
	}
	return p, true
}

// sortResultsByProbability orders results most-probable-first with a stable
// insertion sort, so results of equal probability keep the order in which
// the path set first saw them.
func sortResultsByProbability(results []PathResult) {
	for i := 1; i < len(results); i++ {
		for j := i; j > 0; j-- {
			a, b := results[j-1], results[j]
			if a.Info.Probability >= b.Info.Probability {
				break
			}
			results[j-1], results[j] = b, a
		}
	}
}

// stochSeed derives a deterministic PRNG seed from the request so repeated
// calls with the same PathSpecification reproduce the same stochastic
// path set (invariant 10).
func stochSeed(spec *request.PathSpecification) int64 {
	h := int64(1469598103934665603)
	mix := func(v int64) {
		h ^= v
		h *= 1099511628211
	}
	mix(int64(spec.OriginTAZID))
	mix(int64(spec.DestinationTAZID))
	mix(int64(spec.Iteration))
	mix(int64(spec.PathfindingIteration))
	mix(int64(spec.PreferredTime * 1000))
	if spec.Outbound {
		mix(1)
	}
	return h
}
