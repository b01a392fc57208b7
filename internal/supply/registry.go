package supply

import "github.com/jwmdev/transitpath/internal/transit"

// Registry renumbers public-facing string IDs to the dense integers the
// core operates on exclusively (§3 "Stop and Trip identifiers"). It is the
// renumbering half of supply load; adapted from the teacher's
// model/route_loader.go, which builds dense Route/BusStop structs from a
// string-keyed JSON file but (being a bus simulator, not a multi-agency
// transit network) never needed a general string->int table.
type Registry struct {
	stopIDs map[string]transit.StopID
	tripIDs map[string]transit.TripID
	modeIDs map[string]transit.SupplyModeID
	fareIDs map[string]transit.FarePeriodID

	nextStop transit.StopID
	nextTrip transit.TripID
	nextMode transit.SupplyModeID
	nextFare transit.FarePeriodID
}

// NewRegistry returns an empty renumbering registry.
func NewRegistry() *Registry {
	return &Registry{
		stopIDs: make(map[string]transit.StopID),
		tripIDs: make(map[string]transit.TripID),
		modeIDs: make(map[string]transit.SupplyModeID),
		fareIDs: make(map[string]transit.FarePeriodID),
	}
}

// StopID returns the dense ID for a public stop ID, allocating one on first
// use.
func (r *Registry) StopID(public string) transit.StopID {
	if id, ok := r.stopIDs[public]; ok {
		return id
	}
	r.nextStop++
	r.stopIDs[public] = r.nextStop
	return r.nextStop
}

// TripID returns the dense ID for a public trip ID, allocating one on first
// use.
func (r *Registry) TripID(public string) transit.TripID {
	if id, ok := r.tripIDs[public]; ok {
		return id
	}
	r.nextTrip++
	r.tripIDs[public] = r.nextTrip
	return r.nextTrip
}

// SupplyModeID returns the dense ID for a public supply-mode name,
// allocating one on first use.
func (r *Registry) SupplyModeID(public string) transit.SupplyModeID {
	if id, ok := r.modeIDs[public]; ok {
		return id
	}
	r.nextMode++
	r.modeIDs[public] = r.nextMode
	return r.nextMode
}

// FarePeriodID returns the dense ID for a public fare-period name,
// allocating one on first use.
func (r *Registry) FarePeriodID(public string) transit.FarePeriodID {
	if id, ok := r.fareIDs[public]; ok {
		return id
	}
	r.nextFare++
	r.fareIDs[public] = r.nextFare
	return r.nextFare
}
