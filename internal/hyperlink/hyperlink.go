package hyperlink

import (
	"math/rand"

	"github.com/jwmdev/transitpath/internal/transit"
)

// Hyperlink owns the two LinkSets of a single stop: the trip side
// (populated from TRANSIT links) and the non-trip side (ACCESS, EGRESS,
// TRANSFER). §3 "Hyperlink (per stop)".
type Hyperlink struct {
	StopID    transit.StopID
	Outbound  bool
	Hyperpath bool // false = deterministic (keep only the lowest-cost link per side)
	Theta     float64
	Window    float64

	Trip    *LinkSet
	NonTrip *LinkSet
}

// New constructs a Hyperlink with both sides initialized to the MaxCost
// sentinel (§4.2 Construction).
func New(stop transit.StopID, outbound, hyperpath bool, theta, window float64) *Hyperlink {
	return &Hyperlink{
		StopID:    stop,
		Outbound:  outbound,
		Hyperpath: hyperpath,
		Theta:     theta,
		Window:    window,
		Trip:      newLinkSet(),
		NonTrip:   newLinkSet(),
	}
}

// Size returns Trip.Size() + NonTrip.Size().
func (h *Hyperlink) Size() int { return h.Trip.Size() + h.NonTrip.Size() }

// Side returns the LinkSet for side.
func (h *Hyperlink) Side(side transit.Side) *LinkSet {
	if side == transit.TripSide {
		return h.Trip
	}
	return h.NonTrip
}

// HyperpathCost returns the requested side's log-sum cost.
func (h *Hyperlink) HyperpathCost(side transit.Side) float64 {
	return h.Side(side).HyperpathCost()
}

// LowestCostStopState returns the side's cheapest state.
func (h *Hyperlink) LowestCostStopState(side transit.Side) (*StopState, bool) {
	return h.Side(side).LowestCostStopState()
}

// isExemptMode reports whether mode is the window-exempt terminal mode for
// this Hyperlink's direction: access on outbound, egress on inbound (§3
// invariants, §4.2 step 1).
func (h *Hyperlink) isExemptMode(mode transit.LinkMode) bool {
	if h.Outbound {
		return mode == transit.ModeAccess
	}
	return mode == transit.ModeEgress
}

// AddLink inserts or replaces new_state on the side its mode selects
// (§4.2 addLink). isFinalLabelingLink marks the link as the terminal
// access/egress leg added during PathFinder.finalizeTazState, which is
// exempt from the window check regardless of mode (§4.2 step 1).
//
// Returns stateChanged (whether the side's anchor moved or its
// hyperpath_cost changed by more than transit.CostEqualEpsilon) and
// rejected (purely diagnostic: true if the new link was discarded without
// being inserted).
func (h *Hyperlink) AddLink(newState *StopState, isFinalLabelingLink bool) (stateChanged bool, rejected bool) {
	side := newState.Key.Mode.Side()
	ls := h.Side(side)

	if !h.Hyperpath {
		return h.addDeterministic(ls, newState)
	}
	return h.addStochastic(ls, newState, isFinalLabelingLink)
}

func (h *Hyperlink) addDeterministic(ls *LinkSet, ns *StopState) (bool, bool) {
	if ls.Size() > 0 {
		lowest, _ := ls.LowestCostStopState()
		if ns.Cost >= lowest.Cost {
			return false, true
		}
	}
	oldCost := ls.HyperpathCost()
	ls.clear()
	ls.insert(ns, h.Theta)
	ls.hasAnchor = true
	ls.anchorDep = ns.DeparrTime
	ls.anchorKey = ns.Key
	ls.recomputeHyperpathCost(h.Theta)
	h.recomputeProbabilities(ls)
	_ = oldCost
	return true, false
}

func (h *Hyperlink) addStochastic(ls *LinkSet, ns *StopState, isFinalLabelingLink bool) (bool, bool) {
	exempt := isFinalLabelingLink || h.isExemptMode(ns.Key.Mode)

	// The reject is one-sided: a time more than W on the far side of the
	// anchor is discarded, while a time past the anchor in the other
	// direction is accepted and moves the anchor (step 4 below).
	if !exempt && ls.hasAnchor {
		if (h.Outbound && ns.DeparrTime < ls.anchorDep-h.Window) || (!h.Outbound && ns.DeparrTime > ls.anchorDep+h.Window) {
			return false, true
		}
	}

	oldAnchorTime, hadAnchor := ls.anchorDep, ls.hasAnchor
	oldHyperpathCost := ls.HyperpathCost()

	if old, exists := ls.Get(ns.Key); exists {
		wasAnchor := hadAnchor && old.Key == ls.anchorKey
		ls.remove(old, h.Theta)
		if wasAnchor {
			ls.rescanAnchor(h.Outbound)
		}
	}
	ls.insert(ns, h.Theta)

	anchorMoved := false
	if ls.extendsAnchor(h.Outbound, ns.DeparrTime) {
		ls.hasAnchor = true
		ls.anchorDep = ns.DeparrTime
		ls.anchorKey = ns.Key
		if !hadAnchor || oldAnchorTime != ls.anchorDep {
			anchorMoved = true
		}
		ls.prune(h.Theta, h.Window, func(key StopStateKey) bool { return h.isExemptMode(key.Mode) })
	}

	ls.recomputeHyperpathCost(h.Theta)
	h.recomputeProbabilities(ls)

	changed := anchorMoved || absDiff(ls.HyperpathCost(), oldHyperpathCost) > transit.CostEqualEpsilon
	return changed, false
}

func absDiff(a, b float64) float64 {
	if a < b {
		return b - a
	}
	return a - b
}

// BestGuessLink walks the non-trip side in cost-ascending order and returns
// the first state whose time is on-or-past tripDeparr in the direction of
// travel; if none qualifies, it returns the cheapest non-trip state
// (§4.2.4). The bool result is false only when the non-trip side is empty.
func (h *Hyperlink) BestGuessLink(tripDeparr float64) (*StopState, bool) {
	ls := h.NonTrip
	for _, s := range ls.States() {
		if h.Outbound {
			if s.DeparrTime >= tripDeparr {
				return s, true
			}
		} else {
			if s.DeparrTime <= tripDeparr {
				return s, true
			}
		}
	}
	return ls.LowestCostStopState()
}

// LatestDepartureEarliestArrival returns the side's window anchor.
func (h *Hyperlink) LatestDepartureEarliestArrival(side transit.Side) (float64, bool) {
	return h.Side(side).AnchorTime()
}

// UnconditionalChoose draws a state from side using the side-local
// unconditional probabilities of §4.2.1. ok is false if the side has no
// admissible mass (max_cum_prob_i == 0).
func (h *Hyperlink) UnconditionalChoose(side transit.Side, rng *rand.Rand) (*StopState, bool) {
	ls := h.Side(side)
	if ls.MaxCumProbI() <= 0 {
		return nil, false
	}
	r := rng.Int63n(ls.MaxCumProbI())
	for _, s := range ls.States() {
		if s.CumProbI >= r {
			return s, true
		}
	}
	return nil, false
}
