package hyperlink

import (
	"math"
	"math/rand"

	"github.com/jwmdev/transitpath/internal/transit"
)

// ProbScale is the integer scale used to build cumulative integer
// probabilities (§4.2.1): "a large integer such as the maximum the
// platform offers from a uniform PRNG". math/rand's Int63n accepts any
// int64 upper bound, so we use the largest value that keeps headroom for
// summation without overflowing int64.
const ProbScale = int64(1) << 40

// recomputeProbabilities derives each state's unconditional probability and
// the side's cumulative integer distribution (§4.2.1), run after every
// AddLink mutation.
func (h *Hyperlink) recomputeProbabilities(ls *LinkSet) {
	hc := ls.HyperpathCost()
	denomExp := math.Exp(-h.Theta * hc)
	var cum int64
	for _, s := range ls.States() {
		p := 0.0
		if denomExp > 0 {
			p = math.Exp(-h.Theta*s.Cost) / denomExp
		}
		if math.IsNaN(p) {
			p = 0
		}
		s.Probability = p
		cum += int64(p * float64(ProbScale))
		s.CumProbI = cum
	}
	ls.maxCumProbI = cum
}

// ConditionalCandidate wraps a non-trip/trip candidate state for
// §4.2.2/§4.2.3; it carries no probability of its own.
type ConditionalCandidate struct {
	State *StopState
}

// ConditionalChoose implements §4.2.2 (conditional probabilities given the
// previously-chosen link) and §4.2.3 (chooseState) together: filter
// admissible candidates on side, build a fresh cumulative distribution over
// just those, then draw. lastTripID/hasLastTripID let the caller forbid
// re-boarding the same trip.
func (h *Hyperlink) ConditionalChoose(side transit.Side, prev *StopState, lastTripID transit.TripID, hasLastTripID bool, rng *rand.Rand) (*StopState, bool) {
	ls := h.Side(side)
	type cand struct {
		s   *StopState
		exp float64
	}
	cands := make([]cand, 0, ls.Size())
	var denom float64
	for _, s := range ls.States() {
		if s.Cost >= transit.MaxCost {
			continue
		}
		if h.Outbound {
			if s.DeparrTime < prev.ArrdepTime {
				continue
			}
		} else {
			if s.DeparrTime > prev.ArrdepTime {
				continue
			}
		}
		if hasLastTripID && s.Key.Mode == transit.ModeTransit && s.TripID() == lastTripID {
			continue
		}
		e := math.Exp(-h.Theta * s.Cost)
		cands = append(cands, cand{s: s, exp: e})
		denom += e
	}
	if denom <= 0 || len(cands) == 0 {
		return nil, false
	}
	var cum int64
	var maxCum int64
	cumOf := make(map[StopStateKey]int64, len(cands))
	for _, c := range cands {
		p := c.exp / denom
		cum += int64(p * float64(ProbScale))
		cumOf[c.s.Key] = cum
		maxCum = cum
	}
	if maxCum <= 0 {
		return nil, false
	}
	r := rng.Int63n(maxCum)
	for _, c := range cands {
		if cumOf[c.s.Key] >= r {
			return c.s, true
		}
	}
	return nil, false
}
