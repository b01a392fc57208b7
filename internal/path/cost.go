package path

import (
	"fmt"
	"math"

	"github.com/jwmdev/transitpath/internal/config"
	"github.com/jwmdev/transitpath/internal/costmodel"
	"github.com/jwmdev/transitpath/internal/request"
	"github.com/jwmdev/transitpath/internal/supply"
	"github.com/jwmdev/transitpath/internal/transit"
)

// boardAlight returns the boarding and alighting stop of a transit link:
// the pair of stops the trip connects across this hop. A transit StopState
// is keyed under the newly-discovered adjacent stop, with Key.SuccPredStop
// naming the stop labeling already held a candidate for (§4.4.3). Outbound
// labeling discovers the board stop and points back to the already-labeled
// alight stop; inbound discovers the alight stop and points back to the
// already-labeled board stop.
func boardAlight(outbound bool, stopID transit.StopID, predSucc transit.StopID) (board, alight transit.StopID) {
	if outbound {
		return stopID, predSucc
	}
	return predSucc, stopID
}

// CalculateCost re-derives every link's fare and generalized cost from the
// current supply tables (§4.3.2), overwriting whatever values the labeling
// loop tallied. Labeling's own running cost only has to be good enough to
// order candidates in the priority queue; a path actually returned to a
// caller is re-priced against the full fare-period/transfer-rule/capacity
// rules once its link sequence is fixed.
func (p *Path) CalculateCost(tables supply.Tables, spec *request.PathSpecification, pf *config.PathfindingConfig) error {
	p.Cost = 0
	p.Fare = 0
	p.CapacityProblem = false

	boardsInPeriod := map[transit.FarePeriodID]int{}
	firstBoardTime := map[transit.FarePeriodID]float64{}
	var lastFarePeriod transit.FarePeriodID
	var haveLastFarePeriod bool

	for i := range p.Links {
		link := &p.Links[i]
		s := &link.State

		var demandType transit.DemandModeType
		var demandMode string
		var supplyMode transit.SupplyModeID
		attrs := map[string]float64{}

		switch s.Key.Mode {
		case transit.ModeAccess:
			demandType = transit.DemandAccess
			demandMode = spec.AccessMode
			supplyMode = s.SupplyModeID()
			attrs["time_min"] = s.LinkTime
			// Schedule adherence on the access link applies inbound only
			// (outbound's analogue is arrive_late_min on the egress link).
			if i == 0 && !p.Outbound {
				depart := depOf(p.Outbound, s)
				early := spec.PreferredTime - depart
				attrs["depart_early_min"] = clamp(early, 0, pf.DepartEarlyAllowedMin)
			}

		case transit.ModeEgress:
			demandType = transit.DemandEgress
			demandMode = spec.EgressMode
			supplyMode = s.SupplyModeID()
			attrs["time_min"] = s.LinkTime
			if i == len(p.Links)-1 && p.Outbound {
				arrive := arrOf(p.Outbound, s)
				late := arrive - spec.PreferredTime
				attrs["arrive_late_min"] = clamp(late, 0, pf.ArriveLateAllowedMin)
			}

		case transit.ModeTransfer:
			demandType = transit.DemandTransfer
			demandMode = spec.TransitMode
			supplyMode = s.SupplyModeID()
			attrs["time_min"] = s.LinkTime

		case transit.ModeTransit:
			demandType = transit.DemandTransit
			demandMode = spec.TransitMode
			trip, ok := tables.Trip(s.TripID())
			if !ok {
				return fmt.Errorf("path: calculate cost: trip %d not found", s.TripID())
			}
			supplyMode = trip.Attributes.SupplyMode

			board, alight := boardAlight(p.Outbound, link.StopID, s.Key.SuccPredStop)
			attrs["in_vehicle_time_min"] = math.Max(0, s.LinkTime)

			if trip.Attributes.FarePeriodOf != nil {
				if fp, ok := trip.Attributes.FarePeriodOf(board, alight); ok {
					boardTime := depOf(p.Outbound, s)
					fare := applyFarePeriod(tables, fp, boardTime, haveLastFarePeriod, lastFarePeriod, boardsInPeriod, firstBoardTime)
					s.LinkFare = fare
					s.FarePeriod = fp
					s.HasFarePeriod = true
					lastFarePeriod = fp
					haveLastFarePeriod = true
				}
			}

			if overcapped(trip, board) {
				p.CapacityProblem = true
				attrs["bump_buffer_min"] = pf.BumpBuffer
			}
		}

		if wt, ok := tables.Weights(spec.UserClass, spec.Purpose, demandType, demandMode, supplyMode); ok {
			cost, _ := costmodel.Tally(wt, attrs)
			s.LinkCost = cost
		}

		p.Cost += s.LinkCost
		p.Fare += s.LinkFare
	}

	return nil
}

// applyFarePeriod prices one transit board against the fare-period table
// (§4.3.2): a first board into a period pays its base price; a re-board
// into the same period within its transfer window and count is free; a
// board into a different period checks for a configured transfer rule
// before falling back to the new period's base price.
func applyFarePeriod(
	tables supply.Tables,
	fp transit.FarePeriodID,
	boardTime float64,
	haveLast bool,
	lastFP transit.FarePeriodID,
	boardsInPeriod map[transit.FarePeriodID]int,
	firstBoardTime map[transit.FarePeriodID]float64,
) float64 {
	period, havePeriod := tables.FarePeriod(fp)

	if !haveLast {
		boardsInPeriod[fp] = 1
		firstBoardTime[fp] = boardTime
		if havePeriod {
			return period.Price
		}
		return 0
	}

	if lastFP == fp {
		elapsed := boardTime - firstBoardTime[fp]
		withinWindow := period.TransferDuration < 0 || elapsed <= period.TransferDuration
		if havePeriod && boardsInPeriod[fp] <= period.Transfers && withinWindow {
			boardsInPeriod[fp]++
			return 0
		}
		boardsInPeriod[fp] = 1
		firstBoardTime[fp] = boardTime
		if havePeriod {
			return period.Price
		}
		return 0
	}

	boardsInPeriod[fp] = 1
	firstBoardTime[fp] = boardTime
	rule, haveRule := tables.FareTransferRule(lastFP, fp)
	if !haveRule {
		if havePeriod {
			return period.Price
		}
		return 0
	}
	switch rule.Type {
	case supply.FareTransferFree:
		return 0
	case supply.FareTransferDiscount:
		return math.Max(0, period.Price-rule.Amount)
	case supply.FareTransferSetCost:
		return rule.Amount
	default:
		if havePeriod {
			return period.Price
		}
		return 0
	}
}

// overcapped reports whether a trip's boarding stop-time snapshot flags
// this board as capacity-constrained. The snapshot's Overcap field follows
// the source's historical ">= 0 means at capacity" convention rather than
// the more natural "> 0" reading; see DESIGN.md.
func overcapped(trip *supply.Trip, board transit.StopID) bool {
	for _, st := range trip.StopTimes {
		if st.StopID == board {
			return st.Overcap >= 0
		}
	}
	return false
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
