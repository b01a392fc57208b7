// Package supply models the read-only, process-lifetime network tables the
// path-finding core consults during labeling: trips and their stop times,
// access/egress/transfer links, fare rules, user-class weights, and the
// capacity bump-wait snapshot. Spec §1 places parsing of the underlying
// input files out of scope for the core; this package is the "external
// collaborator via interfaces" the core programs against (the Tables
// interface), plus one concrete in-memory implementation adapted from the
// teacher's JSON loaders (model/route_loader.go, model/fleet.go) for tests
// and the bundled CLI.
package supply

import (
	"math"

	"github.com/jwmdev/transitpath/internal/transit"
)

// StopTime is one row of a trip's schedule.
type StopTime struct {
	Seq           transit.SeqNum
	StopID        transit.StopID
	ArriveMin     float64
	DepartMin     float64
	ShapeDistTrav float64
	// Overcap is the precomputed snapshot value from the simulation
	// feedback loop (out of scope for the core, §1 Non-goals); ">= 0"
	// historically flags "at capacity" in the source despite the natural
	// reading being "> 0" — see DESIGN.md open question.
	Overcap float64
}

// TripAttributes are the trip-level attributes consulted by tallyLinkCost
// in addition to per-leg in-vehicle-time/wait (schedule adherence inputs,
// route/mode metadata).
type TripAttributes struct {
	RouteID      int
	SupplyMode   transit.SupplyModeID
	FarePeriodOf func(boardStop, alightStop transit.StopID) (transit.FarePeriodID, bool)
}

// Trip is a scheduled vehicle run: a dense ID, its attributes and its
// stop-time rows in sequence order (dense, starting at 1, per §6).
type Trip struct {
	ID         transit.TripID
	Attributes TripAttributes
	StopTimes  []StopTime // index 0 is seq 1
}

// StopTimeAt returns the StopTime at 1-based sequence seq, or false if out
// of range.
func (t *Trip) StopTimeAt(seq transit.SeqNum) (StopTime, bool) {
	idx := int(seq) - 1
	if idx < 0 || idx >= len(t.StopTimes) {
		return StopTime{}, false
	}
	return t.StopTimes[idx], true
}

// AccessEgressLink is one row of the (taz, supply_mode, stop, [start,end))
// access/egress table.
type AccessEgressLink struct {
	TAZID      transit.StopID
	SupplyMode transit.SupplyModeID
	StopID     transit.StopID
	StartMin   float64
	EndMin     float64
	Attributes map[string]float64
}

// contains reports whether t (already fixed into [0,1440)) falls within
// [start,end) using the "first entry whose window contains the query time"
// resolution rule (§6).
func (l AccessEgressLink) contains(t float64) bool {
	return t >= l.StartMin && t < l.EndMin
}

// Transfer is one direction of a configured stop-to-stop walk transfer.
type Transfer struct {
	FromStopID transit.StopID
	ToStopID   transit.StopID
	Attributes map[string]float64
}

// FarePeriod is a fare-period row: its base price and the rules governing
// free re-boards within the period.
type FarePeriod struct {
	ID               transit.FarePeriodID
	Price            float64
	Transfers        int     // max re-boards within TransferDuration that remain free; <=0 means "no free re-boards"
	TransferDuration float64 // minutes; <0 means unlimited
}

// FareTransferRuleType is the kind of adjustment applied when a board
// crosses from one fare period into another.
type FareTransferRuleType int

const (
	FareTransferFree FareTransferRuleType = iota
	FareTransferDiscount
	FareTransferSetCost
)

// FareTransferRule adjusts the fare when boarding crosses fare periods.
type FareTransferRule struct {
	FromFarePeriod transit.FarePeriodID
	ToFarePeriod   transit.FarePeriodID
	Type           FareTransferRuleType
	Amount         float64 // DISCOUNT: amount subtracted; SET_COST: absolute fare
}

// WeightFunc computes one named generalized-cost term from an attribute
// value. The design admits nonlinear weight types (§4.4.6) even though the
// deployed weight files use only Linear.
type WeightFunc struct {
	Kind        WeightKind
	Coefficient float64
	LogBase     float64 // Logarithmic
	LogisticMax float64 // Logistic
	LogisticMid float64 // Logistic
}

type WeightKind int

const (
	WeightLinear WeightKind = iota
	WeightExponential
	WeightLogarithmic
	WeightLogistic
)

// Apply evaluates the weight against an attribute value.
func (w WeightFunc) Apply(attr float64) float64 {
	switch w.Kind {
	case WeightLinear:
		return w.Coefficient * attr
	case WeightExponential:
		return w.Coefficient * math.Exp(attr)
	case WeightLogarithmic:
		base := w.LogBase
		if base <= 0 || base == 1 {
			base = math.E
		}
		return w.Coefficient * (math.Log(attr+1) / math.Log(base))
	case WeightLogistic:
		return w.Coefficient * (w.LogisticMax / (1 + math.Exp(-(attr-w.LogisticMid))))
	default:
		return w.Coefficient * attr
	}
}

// WeightTable maps named attributes (e.g. "in_vehicle_time_min",
// "wait_time_min", "transfer_penalty") to the weight function applied to
// them, for one (user_class, purpose, demand_mode_type, demand_mode,
// supply_mode) combination.
type WeightTable map[string]WeightFunc

// BumpWaitKey addresses a single bump-wait snapshot entry.
type BumpWaitKey struct {
	TripID transit.TripID
	Seq    transit.SeqNum
	StopID transit.StopID
}
