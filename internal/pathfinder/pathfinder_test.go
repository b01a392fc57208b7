package pathfinder

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwmdev/transitpath/internal/config"
	"github.com/jwmdev/transitpath/internal/obs"
	"github.com/jwmdev/transitpath/internal/request"
	"github.com/jwmdev/transitpath/internal/supply"
	"github.com/jwmdev/transitpath/internal/transit"
)

const (
	tazOrigin transit.StopID = 100
	tazDest   transit.StopID = 200
	stopS1    transit.StopID = 10
	stopS2    transit.StopID = 20
)

func linearWeight(coef float64) supply.WeightFunc {
	return supply.WeightFunc{Kind: supply.WeightLinear, Coefficient: coef}
}

// buildScenarioASupply is the §8 Scenario A network: one trip from s1 to
// s2, a 5-minute access leg into s1 from the origin TAZ and a 5-minute
// egress leg out of s2 into the destination TAZ, every weight the identity
// on its one attribute so generalized cost reduces to elapsed minutes.
func buildScenarioASupply(t *testing.T) *supply.InMemory {
	t.Helper()
	tbl, err := supply.NewBuilder().
		AddTrip(&supply.Trip{
			ID:         1,
			Attributes: supply.TripAttributes{SupplyMode: 1},
			StopTimes: []supply.StopTime{
				{Seq: 1, StopID: stopS1, DepartMin: 480, ArriveMin: 480, Overcap: -1},
				{Seq: 2, StopID: stopS2, DepartMin: 490, ArriveMin: 490, Overcap: -1},
			},
		}).
		AddAccessEgress(supply.AccessEgressLink{
			TAZID: tazOrigin, SupplyMode: 1, StopID: stopS1,
			StartMin: 0, EndMin: 1440, Attributes: map[string]float64{"time_min": 5},
		}, transit.DemandAccess).
		AddAccessEgress(supply.AccessEgressLink{
			TAZID: tazDest, SupplyMode: 1, StopID: stopS2,
			StartMin: 0, EndMin: 1440, Attributes: map[string]float64{"time_min": 5},
		}, transit.DemandEgress).
		AddWeights("u", "p", transit.DemandAccess, "walk", 1, supply.WeightTable{"time_min": linearWeight(1)}).
		AddWeights("u", "p", transit.DemandTransit, "bus", 1, supply.WeightTable{"in_vehicle_time_min": linearWeight(1)}).
		AddWeights("u", "p", transit.DemandEgress, "walk", 1, supply.WeightTable{"time_min": linearWeight(1)}).
		Build()
	require.NoError(t, err)
	return tbl
}

func newTestPathFinder(tables supply.Tables) *PathFinder {
	cfg := config.Default()
	log := obs.NewLogger(cfg.Logging)
	metrics := obs.NewMetrics(prometheus.NewRegistry())
	return New(tables, cfg, log, metrics)
}

// TestFindPath_ScenarioA reproduces spec §8 Scenario A end to end: a
// trivial deterministic outbound request returns the single access/trip/
// egress path at cost 20.
func TestFindPath_ScenarioA(t *testing.T) {
	tables := buildScenarioASupply(t)
	pf := newTestPathFinder(tables)

	spec := &request.PathSpecification{
		Outbound: true, UserClass: "u", Purpose: "p",
		AccessMode: "walk", TransitMode: "bus", EgressMode: "walk",
		OriginTAZID: tazOrigin, DestinationTAZID: tazDest,
		PreferredTime: 495,
	}

	result, err := pf.FindPath(context.Background(), spec)
	require.NoError(t, err)
	require.Equal(t, request.RetSuccess, result.Code)
	require.Len(t, result.Paths, 1)

	p := result.Paths[0].Path
	require.Len(t, p.Links, 3)
	assert.Equal(t, transit.ModeAccess, p.Links[0].State.Key.Mode)
	assert.Equal(t, 475.0, p.Links[0].State.DeparrTime)
	assert.Equal(t, 480.0, p.Links[0].State.ArrdepTime)
	assert.Equal(t, transit.ModeTransit, p.Links[1].State.Key.Mode)
	assert.Equal(t, 480.0, p.Links[1].State.DeparrTime)
	assert.Equal(t, 490.0, p.Links[1].State.ArrdepTime)
	assert.Equal(t, transit.ModeEgress, p.Links[2].State.Key.Mode)
	assert.Equal(t, 490.0, p.Links[2].State.DeparrTime)
	assert.Equal(t, 495.0, p.Links[2].State.ArrdepTime)

	assert.InDelta(t, 20.0, result.Paths[0].Info.Cost, 1e-9)
	assert.Equal(t, 1.0, result.Paths[0].Info.Probability)
	assert.False(t, result.Paths[0].Info.CapacityProblem)
}

// TestFindPath_ScenarioA_Inbound mirrors Scenario A in the inbound
// direction: the scan starts at the origin TAZ and labels forward in time,
// producing the same three links in true chronological order.
func TestFindPath_ScenarioA_Inbound(t *testing.T) {
	tables := buildScenarioASupply(t)
	pf := newTestPathFinder(tables)

	spec := &request.PathSpecification{
		Outbound: false, UserClass: "u", Purpose: "p",
		AccessMode: "walk", TransitMode: "bus", EgressMode: "walk",
		OriginTAZID: tazOrigin, DestinationTAZID: tazDest,
		PreferredTime: 475,
	}

	result, err := pf.FindPath(context.Background(), spec)
	require.NoError(t, err)
	require.Equal(t, request.RetSuccess, result.Code)
	require.Len(t, result.Paths, 1)

	p := result.Paths[0].Path
	require.Len(t, p.Links, 3)
	assert.Equal(t, transit.ModeAccess, p.Links[0].State.Key.Mode)
	assert.Equal(t, transit.ModeTransit, p.Links[1].State.Key.Mode)
	assert.Equal(t, transit.ModeEgress, p.Links[2].State.Key.Mode)
	assert.InDelta(t, 20.0, result.Paths[0].Info.Cost, 1e-9)
}

// TestFindPath_NoEndReachable exercises RET_FAIL_END_NOT_FOUND: the scan
// seeds fine from the destination TAZ but no stop it labels has an
// access link back to an origin TAZ that was never configured.
func TestFindPath_NoEndReachable(t *testing.T) {
	tables := buildScenarioASupply(t)
	pf := newTestPathFinder(tables)

	spec := &request.PathSpecification{
		Outbound: true, UserClass: "u", Purpose: "p",
		AccessMode: "walk", TransitMode: "bus", EgressMode: "walk",
		OriginTAZID: transit.StopID(999), DestinationTAZID: tazDest,
		PreferredTime: 495,
	}

	result, err := pf.FindPath(context.Background(), spec)
	require.NoError(t, err)
	assert.Equal(t, request.RetFailEndNotFound, result.Code)
	assert.Empty(t, result.Paths)
}

// TestFindPath_NoInitStopStates exercises RET_FAIL_INIT_STOP_STATES: the
// scan-origin TAZ (the destination, for an outbound request) has no
// configured access/egress modes at all, so the scan can't even seed.
func TestFindPath_NoInitStopStates(t *testing.T) {
	tables := buildScenarioASupply(t)
	pf := newTestPathFinder(tables)

	spec := &request.PathSpecification{
		Outbound: true, UserClass: "u", Purpose: "p",
		AccessMode: "walk", TransitMode: "bus", EgressMode: "walk",
		OriginTAZID: tazOrigin, DestinationTAZID: transit.StopID(999),
		PreferredTime: 495,
	}
	result, err := pf.FindPath(context.Background(), spec)
	require.NoError(t, err)
	assert.Equal(t, request.RetFailInitStopStates, result.Code)
}

// TestFindPath_Stochastic_Deterministic reproduces invariant 10: two
// stochastic draws against an identical PathSpecification produce the same
// path set and the same per-path probabilities, since stochSeed derives the
// PRNG seed purely from request fields.
func TestFindPath_Stochastic_Deterministic(t *testing.T) {
	tables := buildScenarioASupply(t)
	pf := newTestPathFinder(tables)

	spec := &request.PathSpecification{
		Outbound: true, UserClass: "u", Purpose: "p",
		AccessMode: "walk", TransitMode: "bus", EgressMode: "walk",
		OriginTAZID: tazOrigin, DestinationTAZID: tazDest,
		PreferredTime: 495, Hyperpath: true,
	}

	first, err := pf.FindPath(context.Background(), spec)
	require.NoError(t, err)
	require.Equal(t, request.RetSuccess, first.Code)
	require.NotEmpty(t, first.Paths)

	second, err := pf.FindPath(context.Background(), spec)
	require.NoError(t, err)
	require.Equal(t, request.RetSuccess, second.Code)
	require.Len(t, second.Paths, len(first.Paths))

	for i := range first.Paths {
		assert.Equal(t, first.Paths[i].Path.Signature(), second.Paths[i].Path.Signature())
		assert.InDelta(t, first.Paths[i].Info.Probability, second.Paths[i].Info.Probability, 1e-12)
		assert.InDelta(t, first.Paths[i].Info.Cost, second.Paths[i].Info.Cost, 1e-9)
	}

	// With only one feasible path in this network, the single draw-able
	// path must absorb all probability mass.
	require.Len(t, first.Paths, 1)
	assert.InDelta(t, 1.0, first.Paths[0].Info.Probability, 1e-9)
}
