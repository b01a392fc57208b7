package hyperlink

import (
	"math"
	"sort"

	"github.com/jwmdev/transitpath/internal/transit"
)

// LinkSet is one side (trip or non-trip) of a Hyperlink: a bijective
// key->state map, a cost-ascending index for iteration and the
// lowest-cost/window-anchor lookups, and the log-sum-exp reduction to a
// single hyperpath cost (§3 "LinkSet (per side)").
type LinkSet struct {
	entries map[StopStateKey]*StopState
	// order holds the same *StopState values as entries, kept sorted by
	// (Cost ascending, seq ascending) so iteration, LowestCostStopState
	// and probability construction all see the same stable order (§9
	// "Floating-point in map keys": a (cost, insertion_counter) key avoids
	// ambiguity).
	order   []*StopState
	nextSeq uint64

	sumExpCost    float64
	hyperpathCost float64

	hasAnchor bool
	anchorKey StopStateKey
	anchorDep float64

	processCount int
	maxCumProbI  int64
}

func newLinkSet() *LinkSet {
	return &LinkSet{
		entries:       make(map[StopStateKey]*StopState),
		hyperpathCost: transit.MaxCost,
	}
}

// Size returns the number of states on this side.
func (ls *LinkSet) Size() int { return len(ls.order) }

// HyperpathCost returns the side's current log-sum cost, clamped per §3/§5.
func (ls *LinkSet) HyperpathCost() float64 { return ls.hyperpathCost }

// ProcessCount returns how many times the labeling loop has popped this
// side from the LabelStopQueue for this stop.
func (ls *LinkSet) ProcessCount() int { return ls.processCount }

// IncProcessCount increments the side's process count.
func (ls *LinkSet) IncProcessCount() { ls.processCount++ }

// AnchorTime returns the side's latest_dep_earliest_arr window anchor.
func (ls *LinkSet) AnchorTime() (float64, bool) { return ls.anchorDep, ls.hasAnchor }

// AnchorKey returns the key of the state currently producing the anchor.
func (ls *LinkSet) AnchorKey() (StopStateKey, bool) { return ls.anchorKey, ls.hasAnchor }

// States returns the side's states in cost-ascending (ties: insertion)
// order. Callers must not mutate the returned slice.
func (ls *LinkSet) States() []*StopState { return ls.order }

// Get looks up a state by key.
func (ls *LinkSet) Get(key StopStateKey) (*StopState, bool) {
	s, ok := ls.entries[key]
	return s, ok
}

// LowestCostStopState returns the state at the head of the cost-ascending
// index (§4.2.5), or false if the side is empty.
func (ls *LinkSet) LowestCostStopState() (*StopState, bool) {
	if len(ls.order) == 0 {
		return nil, false
	}
	return ls.order[0], true
}

// MaxCumProbI returns the final cumulative integer probability recorded for
// the side (§4.2.1).
func (ls *LinkSet) MaxCumProbI() int64 { return ls.maxCumProbI }

func less(a, b *StopState) bool {
	if a.Cost != b.Cost {
		return a.Cost < b.Cost
	}
	return a.seq < b.seq
}

func (ls *LinkSet) insertSorted(ss *StopState) {
	i := sort.Search(len(ls.order), func(i int) bool { return less(ss, ls.order[i]) })
	ls.order = append(ls.order, nil)
	copy(ls.order[i+1:], ls.order[i:])
	ls.order[i] = ss
	ls.entries[ss.Key] = ss
}

func (ls *LinkSet) removeFromOrder(ss *StopState) {
	for i, v := range ls.order {
		if v == ss {
			ls.order = append(ls.order[:i], ls.order[i+1:]...)
			break
		}
	}
	delete(ls.entries, ss.Key)
}

// insert adds a brand-new state, updating sum_exp_cost.
func (ls *LinkSet) insert(ss *StopState, theta float64) {
	ls.nextSeq++
	ss.seq = ls.nextSeq
	ls.insertSorted(ss)
	ls.sumExpCost += math.Exp(-theta * ss.Cost)
}

// remove deletes an existing state, updating sum_exp_cost.
func (ls *LinkSet) remove(ss *StopState, theta float64) {
	ls.sumExpCost -= math.Exp(-theta * ss.Cost)
	if ls.sumExpCost < 0 {
		ls.sumExpCost = 0
	}
	ls.removeFromOrder(ss)
}

// clear empties the side entirely (deterministic mode's "replace the
// single kept link").
func (ls *LinkSet) clear() {
	ls.entries = make(map[StopStateKey]*StopState)
	ls.order = nil
	ls.sumExpCost = 0
	ls.hasAnchor = false
	ls.hyperpathCost = transit.MaxCost
}

// recomputeHyperpathCost derives hyperpath_cost from the current
// sum_exp_cost (§3 invariant, §5 numerical policy): MaxCost if the side is
// empty/degenerate, else max(-(1/theta) ln(sum_exp_cost), MinCost).
func (ls *LinkSet) recomputeHyperpathCost(theta float64) {
	if len(ls.order) == 0 || ls.sumExpCost <= 0 {
		ls.hyperpathCost = transit.MaxCost
		return
	}
	c := -(1.0 / theta) * math.Log(ls.sumExpCost)
	if c < transit.MinCost {
		c = transit.MinCost
	}
	ls.hyperpathCost = c
}

// rescanAnchor recomputes the window anchor from scratch by scanning every
// current entry — used when the state that had been producing the anchor
// was just removed (§4.2 step 3).
func (ls *LinkSet) rescanAnchor(outbound bool) {
	ls.hasAnchor = false
	for _, s := range ls.order {
		if !ls.hasAnchor {
			ls.anchorDep, ls.anchorKey, ls.hasAnchor = s.DeparrTime, s.Key, true
			continue
		}
		if (outbound && s.DeparrTime > ls.anchorDep) || (!outbound && s.DeparrTime < ls.anchorDep) {
			ls.anchorDep, ls.anchorKey = s.DeparrTime, s.Key
		}
	}
}

// extendsAnchor reports whether candidateDep would move the anchor further
// from the preferred time than the current anchor (§4.2 step 4): larger on
// outbound, smaller on inbound.
func (ls *LinkSet) extendsAnchor(outbound bool, candidateDep float64) bool {
	if !ls.hasAnchor {
		return true
	}
	if outbound {
		return candidateDep > ls.anchorDep
	}
	return candidateDep < ls.anchorDep
}

// withinWindow reports whether t is inside [anchor-W, anchor+W]. Called only
// once an anchor exists.
func (ls *LinkSet) withinWindow(window, t float64) bool {
	if !ls.hasAnchor {
		return true
	}
	return t >= ls.anchorDep-window && t <= ls.anchorDep+window
}

// prune removes every entry (other than exempt ones) whose DeparrTime falls
// outside the current window, returning the number pruned (§4.2 step 4).
// exempt reports whether a key's mode is the window-exempt terminal mode for
// this side/direction (final access on outbound / final egress on inbound).
func (ls *LinkSet) prune(theta, window float64, exempt func(StopStateKey) bool) int {
	if !ls.hasAnchor {
		return 0
	}
	pruned := 0
	kept := ls.order[:0:0]
	for _, s := range ls.order {
		if exempt(s.Key) || ls.withinWindow(window, s.DeparrTime) {
			kept = append(kept, s)
			continue
		}
		ls.sumExpCost -= math.Exp(-theta * s.Cost)
		if ls.sumExpCost < 0 {
			ls.sumExpCost = 0
		}
		delete(ls.entries, s.Key)
		pruned++
	}
	ls.order = kept
	return pruned
}
