package pathfinder

import (
	"context"
	"errors"

	"github.com/jwmdev/transitpath/internal/costmodel"
	"github.com/jwmdev/transitpath/internal/hyperlink"
	"github.com/jwmdev/transitpath/internal/queue"
	"github.com/jwmdev/transitpath/internal/request"
	"github.com/jwmdev/transitpath/internal/supply"
	"github.com/jwmdev/transitpath/internal/trace"
	"github.com/jwmdev/transitpath/internal/transit"
)

// initializeStopStates seeds the queue from the scan origin — the
// destination TAZ for an outbound request, the origin TAZ for inbound —
// inserting one terminal (egress/access) StopState per configured supply
// mode into the stop at the far end of that link (§4.4.1). It fails with
// RET_FAIL_INIT_STOP_STATES when the TAZ has no configured access/egress
// modes at all.
func (pf *PathFinder) initializeStopStates(ss *hyperlink.StopStates, spec *request.PathSpecification, q *queue.LabelStopQueue) error {
	scanTAZ := spec.DestinationTAZID
	demandType := transit.DemandEgress
	mode := transit.ModeEgress
	if !spec.Outbound {
		scanTAZ = spec.OriginTAZID
		demandType = transit.DemandAccess
		mode = transit.ModeAccess
	}

	modes := pf.tables.AccessEgressModesForTAZ(scanTAZ, demandType)
	if len(modes) == 0 {
		return errors.New("pathfinder: no access/egress modes configured for scan-origin TAZ")
	}

	seeded := false
	for _, sm := range modes {
		for _, l := range pf.tables.AccessEgress(scanTAZ, sm, spec.PreferredTime) {
			walk := l.Attributes["time_min"]
			var dep, arr float64
			if spec.Outbound {
				arr = spec.PreferredTime
				dep = arr - walk
			} else {
				dep = spec.PreferredTime
				arr = dep + walk
			}
			state := &hyperlink.StopState{
				Key:        hyperlink.StopStateKey{Mode: mode, TripOrSupplyMode: int(sm), SuccPredStop: scanTAZ},
				DeparrTime: dep,
				ArrdepTime: arr,
				LinkTime:   walk,
			}
			if wt, ok := pf.tables.Weights(spec.UserClass, spec.Purpose, demandType, demandModeString(spec, demandType), sm); ok {
				cost, _ := costmodel.Tally(wt, map[string]float64{"time_min": walk})
				state.LinkCost = cost
				state.Cost = cost
			}

			h := ss.GetOrCreate(l.StopID)
			changed, _ := h.AddLink(state, true)
			if changed {
				q.Push(state.Cost, l.StopID, mode.Side())
				seeded = true
			}
		}
	}
	if !seeded {
		return errors.New("pathfinder: scan-origin TAZ has no reachable stops within its access/egress windows")
	}
	return nil
}

// labelStops drains q, relaxing transfers and trips at every popped
// (stop, side) until the queue empties or the context is cancelled (§4.4.3).
func (pf *PathFinder) labelStops(ctx context.Context, ss *hyperlink.StopStates, spec *request.PathSpecification, q *queue.LabelStopQueue, tr *trace.Recorder) (iterations, maxProcessCount int, err error) {
	for {
		select {
		case <-ctx.Done():
			return iterations, maxProcessCount, ctx.Err()
		default:
		}

		entry, perr := q.PopTop()
		if perr != nil {
			if errors.Is(perr, queue.ErrEmpty) {
				return iterations, maxProcessCount, nil
			}
			return iterations, maxProcessCount, perr
		}
		iterations++
		tr.PopStop(entry.Stop, entry.Side, entry.Label)

		h, ok := ss.Get(entry.Stop)
		if !ok {
			continue
		}
		ls := h.Side(entry.Side)
		ls.IncProcessCount()
		if pc := ls.ProcessCount(); pc > maxProcessCount {
			maxProcessCount = pc
		}
		tr.WriteStopIteration(entry.Stop, entry.Side, ls.ProcessCount(), ls.HyperpathCost())
		if spec.Hyperpath && ls.ProcessCount() > pf.cfg.Pathfinding.StochMaxStopProcessCount {
			continue
		}

		if entry.Side == transit.NonTripSide {
			pf.updateStopStatesForTransfers(ss, spec, q, entry.Stop, transit.NonTripSide, tr)
			pf.updateStopStatesForTrips(ss, spec, q, entry.Stop, tr)
		} else {
			// A trip-side arrival can also be transferred away from
			// directly (the rider alights and walks), without needing to
			// re-board first.
			pf.updateStopStatesForTransfers(ss, spec, q, entry.Stop, transit.TripSide, tr)
		}
	}
}

// updateStopStatesForTransfers relaxes every configured transfer out of (or
// into, for inbound requests) stop, based on stop's best state on side
// (§4.4.3). side is NonTripSide for an ordinary walk-in arrival, or
// TripSide when a rider alights from a trip directly into a transfer
// without first being recorded as a non-trip arrival.
func (pf *PathFinder) updateStopStatesForTransfers(ss *hyperlink.StopStates, spec *request.PathSpecification, q *queue.LabelStopQueue, stop transit.StopID, side transit.Side, tr *trace.Recorder) {
	h, ok := ss.Get(stop)
	if !ok {
		return
	}
	best, ok := h.LowestCostStopState(side)
	if !ok {
		return
	}

	// The canonical zero-walk self-transfer (§4.4.3): every stop can always
	// relax to a non-trip arrival at itself, at no walk time. This is what
	// lets a trip-side candidate become visible to onward trip/transfer
	// relaxation and to finalizeTazState, even when no explicit transfer
	// row links it to anywhere else.
	pf.relaxTransfer(ss, spec, q, stop, stop, map[string]float64{"time_min": 0}, best, tr)

	transfers := pf.tables.Transfers(stop, spec.Outbound)
	for _, xfer := range transfers {
		to := xfer.ToStopID
		if !spec.Outbound {
			to = xfer.FromStopID
		}
		pf.relaxTransfer(ss, spec, q, stop, to, xfer.Attributes, best, tr)
	}
}

func (pf *PathFinder) relaxTransfer(ss *hyperlink.StopStates, spec *request.PathSpecification, q *queue.LabelStopQueue, from, to transit.StopID, attrs map[string]float64, best *hyperlink.StopState, tr *trace.Recorder) {
	walk := attrs["time_min"]
	var dep, arr float64
	if spec.Outbound {
		arr = best.DeparrTime
		dep = arr - walk
	} else {
		dep = best.ArrdepTime
		arr = dep + walk
	}

	ns := &hyperlink.StopState{
		Key:        hyperlink.StopStateKey{Mode: transit.ModeTransfer, TripOrSupplyMode: 0, SuccPredStop: from},
		DeparrTime: dep,
		ArrdepTime: arr,
		LinkTime:   walk,
		Cost:       best.Cost,
	}
	if wt, ok := pf.tables.Weights(spec.UserClass, spec.Purpose, transit.DemandTransfer, spec.TransitMode, 0); ok {
		cost, _ := costmodel.Tally(wt, map[string]float64{"time_min": walk, "transfer_penalty": pf.cfg.Pathfinding.ZeroWalkTransferPenalty})
		ns.LinkCost = cost
		ns.Cost = best.Cost + cost
	}

	h := ss.GetOrCreate(to)
	changed, _ := h.AddLink(ns, false)
	if changed {
		q.Push(ns.Cost, to, transit.NonTripSide)
		tr.WriteLabel(0, to, dep, transit.ModeTransfer, 0, walk, ns.LinkCost, ns.Cost, sideABLabel(spec.Outbound))
	}
}

// sideABLabel reports the "AB" direction column the labels CSV carries
// (spec.md line 273): which physical end of the link the scan discovered
// first, "A" for outbound (destination-to-origin), "B" for inbound.
func sideABLabel(outbound bool) string {
	if outbound {
		return "A"
	}
	return "B"
}

// updateStopStatesForTrips finds every trip serving stop and, for each
// trip, relaxes to *every* earlier board candidate (outbound) or later
// alight candidate (inbound) along that same trip — not just the single
// adjacent stop — so a continuous same-vehicle ride of any length becomes
// one direct trip link instead of a chain of single-hop legs glued by
// zero-walk self-transfers (§4.4.3; matches the original's
// start_seq/end_seq board/alight sweep). The wait time is computed once per
// trip from the hyperlink's best-guess non-trip link (§4.2.4), substituted
// for a preferred-delay cost when that best guess is the terminal
// egress/access link. The bump-wait capacity rule (§4.4.5) adds BUMP_BUFFER
// to the relaxed cost when the boarding would be turned away by the
// simulation-feedback snapshot.
func (pf *PathFinder) updateStopStatesForTrips(ss *hyperlink.StopStates, spec *request.PathSpecification, q *queue.LabelStopQueue, stop transit.StopID, tr *trace.Recorder) {
	h, ok := ss.Get(stop)
	if !ok {
		return
	}
	best, ok := h.LowestCostStopState(transit.NonTripSide)
	if !ok {
		return
	}
	dirFactor := transit.DirFactor(spec.Outbound)

	for _, tst := range pf.tables.StopTimesAt(stop) {
		trip, ok := pf.tables.Trip(tst.TripID)
		if !ok {
			continue
		}
		wt, ok := pf.tables.Weights(spec.UserClass, spec.Purpose, transit.DemandTransit, spec.TransitMode, trip.Attributes.SupplyMode)
		if !ok {
			continue
		}

		seq := tst.Seq
		// arrdep is this trip's scheduled time at the already-labeled
		// stop: arrival for outbound, departure for inbound.
		arrdep := tst.ArriveMin
		if !spec.Outbound {
			arrdep = tst.DepartMin
		}
		if spec.Outbound && arrdep > best.DeparrTime {
			continue // would arrive after the already-labeled state: infeasible
		}
		if !spec.Outbound && arrdep < best.ArrdepTime {
			continue
		}

		bestGuess, ok := h.BestGuessLink(arrdep)
		if !ok {
			continue
		}
		waitTime := (bestGuess.DeparrTime - arrdep) * dirFactor

		// Terminal best guess: outbound egress or inbound access means
		// this hyperlink's non-trip side is the scan-seeded terminal
		// link, so wait_time isn't a real wait — it's folded into a
		// preferred-delay cost against the egress/access weight table
		// instead (§4.4.3).
		terminalBestGuess := (spec.Outbound && bestGuess.Key.Mode == transit.ModeEgress) ||
			(!spec.Outbound && bestGuess.Key.Mode == transit.ModeAccess)
		var delayCost float64
		if terminalBestGuess {
			delayDemand, delayModeStr := transit.DemandEgress, spec.EgressMode
			if !spec.Outbound {
				delayDemand, delayModeStr = transit.DemandAccess, spec.AccessMode
			}
			if dwt, ok := pf.tables.Weights(spec.UserClass, spec.Purpose, delayDemand, delayModeStr, bestGuess.SupplyModeID()); ok {
				delayCost, _ = costmodel.Tally(dwt, map[string]float64{"time_min": 0, "preferred_delay_min": waitTime})
			}
		}

		var bumped bool
		if bw, ok := pf.tables.BumpWait(supply.BumpWaitKey{TripID: tst.TripID, Seq: seq, StopID: stop}); ok {
			bumped = (spec.Outbound && arrdep <= bw) || (!spec.Outbound && arrdep >= bw)
		}

		startSeq, endSeq := 1, int(seq)-1
		if !spec.Outbound {
			startSeq, endSeq = int(seq)+1, len(trip.StopTimes)
		}
		for s := startSeq; s <= endSeq; s++ {
			cand, ok := trip.StopTimeAt(transit.SeqNum(s))
			if !ok {
				continue
			}

			deparr := cand.DepartMin
			if !spec.Outbound {
				deparr = cand.ArriveMin
			}
			// the schedule crossed midnight
			if spec.Outbound && arrdep < deparr {
				deparr -= transit.MinutesPerDay
			} else if !spec.Outbound && deparr < arrdep {
				deparr += transit.MinutesPerDay
			}
			ivt := (arrdep - deparr) * dirFactor

			attrs := map[string]float64{"in_vehicle_time_min": ivt, "wait_time_min": waitTime}
			if terminalBestGuess {
				attrs["wait_time_min"] = 0
			}
			if bestGuess.Key.Mode == transit.ModeAccess || bestGuess.Key.Mode == transit.ModeEgress {
				attrs["transfer_penalty"] = 0
			} else {
				attrs["transfer_penalty"] = 1
			}
			if bumped {
				attrs["bump_buffer_min"] = pf.cfg.Pathfinding.BumpBuffer
			}

			linkCost, _ := costmodel.Tally(wt, attrs)
			linkCost += delayCost

			ns := &hyperlink.StopState{
				Key:        hyperlink.StopStateKey{Mode: transit.ModeTransit, TripOrSupplyMode: int(tst.TripID), SuccPredStop: stop, SeqOnTrip: cand.Seq, SeqOnPredTrip: seq},
				DeparrTime: deparr,
				ArrdepTime: arrdep,
				LinkTime:   ivt + waitTime,
				LinkCost:   linkCost,
				Cost:       best.Cost + linkCost,
			}

			boardAlightStop := cand.StopID
			adjH := ss.GetOrCreate(boardAlightStop)
			changed, _ := adjH.AddLink(ns, false)
			if changed {
				q.Push(ns.Cost, boardAlightStop, transit.TripSide)
				tr.WriteLabel(0, boardAlightStop, deparr, transit.ModeTransit, tst.TripID, ivt+waitTime, ns.LinkCost, ns.Cost, sideABLabel(spec.Outbound))
			}
		}
	}
}

