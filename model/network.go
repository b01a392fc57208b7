package model

import (
	"fmt"
	"math"

	"github.com/jwmdev/transitpath/internal/supply"
	"github.com/jwmdev/transitpath/internal/transit"
)

// earthRadiusKM is the mean radius used by the haversine distance below,
// which the distances subcommand (cmd/pathfind/distances.go) also uses for
// stop-to-stop distances.
const earthRadiusKM = 6371.0088

// Haversine returns the great-circle distance between two lat/lng points in
// kilometers.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	rad := math.Pi / 180
	dLat := (lat2 - lat1) * rad
	dLon := (lon2 - lon1) * rad
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*rad)*math.Cos(lat2*rad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKM * math.Asin(math.Sqrt(a))
}

// Schedule is the headway-based trip generator config a Corridor is turned
// into supply.Trip rows with. It stands in for the GTFS-style
// frequencies.txt/stop_times.txt pair the core's Non-goals (§1) put out of
// scope for actual schedule ingestion; this is the minimal generator that
// lets the bundled CLI and tests exercise a nontrivial network without one.
type Schedule struct {
	SupplyMode     string
	UserClass      string
	Purpose        string
	FirstDepartMin float64
	LastDepartMin  float64
	HeadwayMin     float64
	AvgSpeedKmph   float64
	DwellMin       float64
	WalkSpeedKmph  float64
	TransferRadius float64 // km; stops within this distance across corridors get a walk transfer
	FarePeriod     string
	FarePrice      float64
}

// NetworkBuilder turns a set of Corridors plus a Schedule into a
// supply.InMemory, renumbering every public-facing stop/trip/mode/fare id
// through a shared supply.Registry so stops shared by two corridors (a
// transfer point) collapse onto the same dense transit.StopID.
type NetworkBuilder struct {
	reg   *supply.Registry
	sched Schedule
	b     *supply.Builder

	stopLat map[transit.StopID]float64
	stopLon map[transit.StopID]float64
}

// NewNetworkBuilder starts a builder over a fresh Registry and an empty
// supply table set.
func NewNetworkBuilder(sched Schedule) *NetworkBuilder {
	return &NetworkBuilder{
		reg:     supply.NewRegistry(),
		sched:   sched,
		b:       supply.NewBuilder(),
		stopLat: make(map[transit.StopID]float64),
		stopLon: make(map[transit.StopID]float64),
	}
}

func (nb *NetworkBuilder) stopKey(corridorID, stopID int) string {
	return fmt.Sprintf("%d:%d", corridorID, stopID)
}

// AddCorridor generates one trip per headway slot along corridor, each stop
// itself doubling as the TAZ it is accessed/egressed through (zero-time
// access link), and registers every stop's position for the
// cross-corridor transfer pass AddTransfers performs afterward.
func (nb *NetworkBuilder) AddCorridor(c *Corridor) error {
	if nb.sched.HeadwayMin <= 0 {
		return fmt.Errorf("model: schedule headway must be positive, got %v", nb.sched.HeadwayMin)
	}
	mode := nb.reg.SupplyModeID(nb.sched.SupplyMode)
	fare := nb.reg.FarePeriodID(nb.sched.FarePeriod)

	denseStops := make([]transit.StopID, len(c.Stops))
	for i, s := range c.Stops {
		id := nb.reg.StopID(nb.stopKey(c.ID, s.ID))
		denseStops[i] = id
		nb.stopLat[id] = s.Latitude
		nb.stopLon[id] = s.Longitude

		nb.b.AddAccessEgress(supply.AccessEgressLink{
			TAZID: id, SupplyMode: mode, StopID: id,
			StartMin: 0, EndMin: transit.MinutesPerDay,
			Attributes: map[string]float64{"time_min": 0},
		}, transit.DemandAccess)
		nb.b.AddAccessEgress(supply.AccessEgressLink{
			TAZID: id, SupplyMode: mode, StopID: id,
			StartMin: 0, EndMin: transit.MinutesPerDay,
			Attributes: map[string]float64{"time_min": 0},
		}, transit.DemandEgress)
	}

	for depart := nb.sched.FirstDepartMin; depart <= nb.sched.LastDepartMin; depart += nb.sched.HeadwayMin {
		tripID := nb.reg.TripID(fmt.Sprintf("%s:%d@%.0f", c.Name, c.ID, depart))
		stopTimes := make([]supply.StopTime, 0, len(c.Stops))

		t := depart
		for i, s := range c.Stops {
			arrive := t
			if i > 0 {
				t += nb.sched.DwellMin
			}
			depTime := t
			stopTimes = append(stopTimes, supply.StopTime{
				Seq: transit.SeqNum(i + 1), StopID: denseStops[i],
				ArriveMin: arrive, DepartMin: depTime,
				ShapeDistTrav: s.CumulativeDist,
			})
			if i+1 < len(c.Stops) {
				legHours := s.DistanceToNext / nb.sched.AvgSpeedKmph
				t += legHours * 60
			}
		}

		nb.b.AddTrip(&supply.Trip{
			ID: tripID,
			Attributes: supply.TripAttributes{
				RouteID:    c.ID,
				SupplyMode: mode,
				FarePeriodOf: func(transit.StopID, transit.StopID) (transit.FarePeriodID, bool) {
					return fare, true
				},
			},
			StopTimes: stopTimes,
		})
	}

	return nil
}

// AddTransfers scans every stop pair registered so far and adds a
// bidirectional walk transfer wherever the great-circle distance is within
// the schedule's TransferRadius, so riders can interchange between
// corridors that don't share a physical stop ID.
func (nb *NetworkBuilder) AddTransfers() {
	ids := make([]transit.StopID, 0, len(nb.stopLat))
	for id := range nb.stopLat {
		ids = append(ids, id)
	}
	for i := range ids {
		for j := i + 1; j < len(ids); j++ {
			a, bID := ids[i], ids[j]
			dist := Haversine(nb.stopLat[a], nb.stopLon[a], nb.stopLat[bID], nb.stopLon[bID])
			if dist > nb.sched.TransferRadius {
				continue
			}
			walkMin := (dist / nb.sched.WalkSpeedKmph) * 60
			attrs := map[string]float64{"time_min": walkMin}
			nb.b.AddTransfer(supply.Transfer{FromStopID: a, ToStopID: bID, Attributes: attrs})
			nb.b.AddTransfer(supply.Transfer{FromStopID: bID, ToStopID: a, Attributes: attrs})
		}
	}
}

// AddDefaultWeights registers a linear generalized-cost table for the
// access/egress/transfer/transit demand types against the schedule's supply
// mode, so a freshly built network is immediately usable without a separate
// weight-file loader.
func (nb *NetworkBuilder) AddDefaultWeights() {
	mode := nb.reg.SupplyModeID(nb.sched.SupplyMode)
	uc, purpose := nb.sched.UserClass, nb.sched.Purpose

	nb.b.AddWeights(uc, purpose, transit.DemandAccess, nb.sched.SupplyMode, mode, supply.WeightTable{
		"time_min": {Kind: supply.WeightLinear, Coefficient: 1.5},
	})
	nb.b.AddWeights(uc, purpose, transit.DemandEgress, nb.sched.SupplyMode, mode, supply.WeightTable{
		"time_min": {Kind: supply.WeightLinear, Coefficient: 1.5},
	})
	nb.b.AddWeights(uc, purpose, transit.DemandTransfer, nb.sched.SupplyMode, mode, supply.WeightTable{
		"time_min":         {Kind: supply.WeightLinear, Coefficient: 2.0},
		"transfer_penalty": {Kind: supply.WeightLinear, Coefficient: 1.0},
	})
	nb.b.AddWeights(uc, purpose, transit.DemandTransit, nb.sched.SupplyMode, mode, supply.WeightTable{
		"in_vehicle_time_min": {Kind: supply.WeightLinear, Coefficient: 1.0},
		"bump_buffer_min":     {Kind: supply.WeightLinear, Coefficient: 1.0},
	})

	nb.b.AddFarePeriod(supply.FarePeriod{
		ID: nb.reg.FarePeriodID(nb.sched.FarePeriod), Price: nb.sched.FarePrice,
		Transfers: 1, TransferDuration: 90,
	})
}

// Build finalizes the generated network, returning any accumulated
// construction error from the underlying supply.Builder.
func (nb *NetworkBuilder) Build() (*supply.InMemory, error) {
	return nb.b.Build()
}

// Registry exposes the renumbering registry so a caller can translate a
// public corridor/stop id back into the dense transit.StopID a
// request.PathSpecification needs (origin/destination TAZ ids), e.g.
// nb.Registry().StopID(fmt.Sprintf("%d:%d", corridorID, stopID)).
func (nb *NetworkBuilder) Registry() *supply.Registry {
	return nb.reg
}
