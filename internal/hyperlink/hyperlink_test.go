package hyperlink

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwmdev/transitpath/internal/transit"
)

func nonTripState(stop transit.StopID, mode transit.LinkMode, t, cost float64) *StopState {
	return &StopState{
		Key:        StopStateKey{Mode: mode, SuccPredStop: stop},
		DeparrTime: t,
		ArrdepTime: t,
		Cost:       cost,
	}
}

// TestHyperlink_ScenarioC reproduces spec §8 Scenario C exactly: window
// pruning with θ=1.0, W=30.
func TestHyperlink_ScenarioC(t *testing.T) {
	h := New(1, true /* outbound */, true /* hyperpath */, 1.0, 30.0)

	changed, rejected := h.AddLink(nonTripState(2, transit.ModeTransfer, 100, 5), false)
	require.False(t, rejected)
	require.True(t, changed)
	anchor, ok := h.LatestDepartureEarliestArrival(transit.NonTripSide)
	require.True(t, ok)
	assert.Equal(t, 100.0, anchor)

	// t=120 (distinct predecessor stop => distinct key): new anchor=120,
	// nothing pruned since 100 >= 120-30=90.
	_, rejected = h.AddLink(nonTripState(3, transit.ModeTransfer, 120, 6), false)
	require.False(t, rejected)
	anchor, _ = h.LatestDepartureEarliestArrival(transit.NonTripSide)
	assert.Equal(t, 120.0, anchor)
	assert.Equal(t, 2, h.NonTrip.Size())

	// t=151 (another distinct key): new anchor=151, prune t=100 and t=120
	// since both are < 151-30=121.
	_, rejected = h.AddLink(nonTripState(4, transit.ModeTransfer, 151, 7), false)
	require.False(t, rejected)
	anchor, _ = h.LatestDepartureEarliestArrival(transit.NonTripSide)
	assert.Equal(t, 151.0, anchor)

	states := h.NonTrip.States()
	require.Len(t, states, 1)
	times := map[float64]bool{}
	for _, s := range states {
		times[s.DeparrTime] = true
	}
	assert.False(t, times[120.0])
	assert.True(t, times[151.0])
	assert.False(t, times[100.0])
}

// TestHyperlink_SumExpCostConsistency is spec §8 invariant 4.
func TestHyperlink_SumExpCostConsistency(t *testing.T) {
	h := New(1, true, true, 1.0, 1000.0) // huge window: no pruning interferes
	costs := []float64{4.2, 1.0, 7.7, 2.2, 9.9}
	for i, c := range costs {
		h.AddLink(nonTripState(transit.StopID(2+i), transit.ModeTransfer, float64(i), c), false)
	}
	want := 0.0
	for _, s := range h.NonTrip.States() {
		want += math.Exp(-1.0 * s.Cost)
	}
	assert.InDelta(t, want, h.NonTrip.sumExpCost, 1e-9)
}

// TestHyperlink_HyperpathCostFormula is spec §8 invariant 5.
func TestHyperlink_HyperpathCostFormula(t *testing.T) {
	h := New(1, true, true, 1.0, 1000.0)
	h.AddLink(nonTripState(2, transit.ModeTransfer, 0, 50.0), false)
	hc := h.HyperpathCost(transit.NonTripSide)
	assert.GreaterOrEqual(t, hc, transit.MinCost)
	exact := -1.0 * math.Log(h.NonTrip.sumExpCost)
	if exact < transit.MinCost {
		exact = transit.MinCost
	}
	assert.InDelta(t, exact, hc, 1e-9)
}

// TestHyperlink_DeterministicKeepsLowestOnly exercises §4.2 deterministic
// mode: only the lowest-cost link on a side survives.
func TestHyperlink_DeterministicKeepsLowestOnly(t *testing.T) {
	h := New(1, true, false /* deterministic */, 1.0, 30.0)
	changed, rejected := h.AddLink(nonTripState(2, transit.ModeTransfer, 10, 8.0), false)
	assert.True(t, changed)
	assert.False(t, rejected)

	// Worse cost: rejected, side untouched.
	changed, rejected = h.AddLink(nonTripState(3, transit.ModeTransfer, 10, 9.0), false)
	assert.False(t, changed)
	assert.True(t, rejected)
	require.Equal(t, 1, h.NonTrip.Size())

	// Better cost: accepted, replaces.
	changed, rejected = h.AddLink(nonTripState(3, transit.ModeTransfer, 10, 4.0), false)
	assert.True(t, changed)
	assert.False(t, rejected)
	require.Equal(t, 1, h.NonTrip.Size())
	lowest, _ := h.NonTrip.LowestCostStopState()
	assert.Equal(t, 4.0, lowest.Cost)
}

// TestHyperlink_ProbabilityNormalization is spec §8 invariant 7.
func TestHyperlink_ProbabilityNormalization(t *testing.T) {
	h := New(1, true, true, 1.0, 1000.0)
	h.AddLink(nonTripState(2, transit.ModeTransfer, 0, 2.0), false)
	h.AddLink(nonTripState(3, transit.ModeTransfer, 1, 5.0), false)
	h.AddLink(nonTripState(4, transit.ModeTransfer, 2, 1.0), false)

	sum := 0.0
	lastCum := int64(-1)
	for _, s := range h.NonTrip.States() {
		sum += s.Probability
		assert.GreaterOrEqual(t, s.CumProbI, lastCum)
		lastCum = s.CumProbI
	}
	assert.InDelta(t, 1.0, sum, 1e-6)
	assert.Equal(t, h.NonTrip.MaxCumProbI(), lastCum)
}
