// Package path builds and costs a single rider path: an ordered chain of
// access/transit/transfer/egress links threaded together from the
// StopStates a PathFinder's labeling loop produced. Grounded on the same
// windowed-link idiom as internal/hyperlink (ScottDaniels-tegu's
// gizmos/path.go composes a Path from Pledge-like hop records in much the
// same shape), adapted to the chronological/reverse-chronological
// construction rules spec.md §4.3.1 describes for the four direction x
// extraction-mode combinations.
package path

import (
	"github.com/jwmdev/transitpath/internal/hyperlink"
	"github.com/jwmdev/transitpath/internal/transit"
)

// Link pairs the stop a StopState was registered under with the state
// itself. Path owns its own copy of each StopState so that later mutation
// of the originating Hyperlink (by further labeling on other requests)
// never reaches back into an already-extracted path.
type Link struct {
	StopID transit.StopID
	State  hyperlink.StopState
}

// Path is a single candidate itinerary, stored internally in true
// chronological order (index 0 = earliest link) regardless of which end
// construction extended. §4.3.1 describes the two construction orders in
// terms of "append to the path"; here that is modeled as append-at-tail for
// the chronological order and prepend-at-head for the reverse-chronological
// one, so CalculateCost (§4.3.2) can always iterate Links left to right.
type Path struct {
	Outbound    bool
	Enumerating bool // selects the construction order (see chronoOrder); the pathfinder's extraction replays every chain scan-seed first and builds with false in both modes

	Links []Link

	Cost            float64
	Fare            float64
	CapacityProblem bool
}

// New starts an empty path for one extraction.
func New(outbound, enumerating bool) *Path {
	return &Path{Outbound: outbound, Enumerating: enumerating}
}

// chronoOrder reports whether this path is built by appending links in
// increasing time order (true) or decreasing time order (false), per the
// (outbound, enumerating) table in §4.3.1.
func (p *Path) chronoOrder() bool {
	return (!p.Outbound && !p.Enumerating) || (p.Outbound && p.Enumerating)
}

func depOf(outbound bool, s *hyperlink.StopState) float64 {
	if outbound {
		return s.DeparrTime
	}
	return s.ArrdepTime
}

func arrOf(outbound bool, s *hyperlink.StopState) float64 {
	if outbound {
		return s.ArrdepTime
	}
	return s.DeparrTime
}

func setDep(outbound bool, s *hyperlink.StopState, v float64) {
	if outbound {
		s.DeparrTime = v
	} else {
		s.ArrdepTime = v
	}
}

func setArr(outbound bool, s *hyperlink.StopState, v float64) {
	if outbound {
		s.ArrdepTime = v
	} else {
		s.DeparrTime = v
	}
}

// tripDuration returns arr-dep, unwrapping a midnight crossing: a trip
// whose schedule spans the service-day boundary reports its far endpoint
// smaller than its near one in raw minutes-after-midnight, so the naive
// subtraction goes negative and must be corrected by a full day.
func tripDuration(dep, arr float64) float64 {
	d := arr - dep
	if d < 0 {
		d += transit.MinutesPerDay
	}
	return d
}

// AddLink appends state (owned under stopID) to the path, applying the
// chronological fix-up rules of §4.3.1 against whichever link is currently
// adjacent to the insertion point. It returns false if the fix-up finds the
// link infeasible (negative duration, or a trip boarding scheduled before
// its preceding link arrives) in which case the caller should discard the
// whole path rather than keep extending it.
func (p *Path) AddLink(stopID transit.StopID, state *hyperlink.StopState) bool {
	ns := *state // Path owns its own copy

	if len(p.Links) == 0 {
		p.Links = []Link{{StopID: stopID, State: ns}}
		p.Cost += ns.LinkCost
		p.Fare += ns.LinkFare
		return true
	}

	var feasible bool
	if p.chronoOrder() {
		feasible = p.addChrono(stopID, &ns)
	} else {
		feasible = p.addReverseChrono(stopID, &ns)
	}
	p.Cost += ns.LinkCost
	p.Fare += ns.LinkFare
	return feasible
}

func (p *Path) addChrono(stopID transit.StopID, ns *hyperlink.StopState) bool {
	prevLink := &p.Links[len(p.Links)-1]
	prev := &prevLink.State
	outbound := p.Outbound
	feasible := true

	switch {
	case ns.Key.Mode == transit.ModeTransit && prev.Key.Mode == transit.ModeAccess && len(p.Links) == 1:
		// Access preceding first trip: stretch the access leg so its
		// arrival lands exactly on the trip's scheduled departure,
		// eliminating a phantom wait at boarding.
		schedDep := depOf(outbound, ns)
		setArr(outbound, prev, schedDep)
		setDep(outbound, prev, schedDep-prev.LinkTime)
		ns.LinkTime = tripDuration(depOf(outbound, ns), arrOf(outbound, ns))
		if ns.LinkTime < 0 {
			feasible = false
		}

	case ns.Key.Mode == transit.ModeTransit:
		// Trip after anything: its own duration includes whatever wait
		// elapsed since the previous link's arrival. A trip whose schedule
		// crosses midnight reports arrdep < deparr in raw minutes-after-
		// midnight; tripDuration unwraps that the same way trip relaxation
		// does.
		ns.LinkTime = tripDuration(arrOf(outbound, prev), arrOf(outbound, ns))
		if ns.LinkTime < 0 || depOf(outbound, ns) < arrOf(outbound, prev) {
			feasible = false
		}

	case ns.Key.Mode == transit.ModeTransfer || ns.Key.Mode == transit.ModeEgress:
		setDep(outbound, ns, arrOf(outbound, prev))
		setArr(outbound, ns, depOf(outbound, ns)+ns.LinkTime)
		if ns.LinkTime < 0 {
			feasible = false
		}
	}

	p.Links = append(p.Links, Link{StopID: stopID, State: *ns})
	return feasible
}

func (p *Path) addReverseChrono(stopID transit.StopID, ns *hyperlink.StopState) bool {
	head := &p.Links[0].State
	outbound := p.Outbound
	feasible := true

	switch {
	case ns.Key.Mode == transit.ModeAccess && head.Key.Mode == transit.ModeTransit:
		// Access being added last: snap its arrival to the adjacent
		// trip's scheduled departure, same stretch as the chrono case
		// mirrored.
		schedDep := depOf(outbound, head)
		setArr(outbound, ns, schedDep)
		setDep(outbound, ns, arrOf(outbound, ns)-ns.LinkTime)
		head.LinkTime = arrOf(outbound, head) - depOf(outbound, head)
		if ns.LinkTime < 0 || head.LinkTime < 0 {
			feasible = false
		}

	case ns.Key.Mode == transit.ModeTransit:
		// Trip being added: assume no wait first, then realize any wait
		// against an already-placed transfer by shifting the transfer to
		// depart the instant this trip arrives and pushing the
		// difference onto the trip two entries back.
		ns.LinkTime = tripDuration(depOf(outbound, ns), arrOf(outbound, ns))
		if ns.LinkTime < 0 {
			feasible = false
		}
		if head.Key.Mode == transit.ModeTransfer && len(p.Links) >= 2 {
			transferState := &p.Links[0].State
			priorTrip := &p.Links[1].State
			oldTransferDep := depOf(outbound, transferState)
			newTransferDep := arrOf(outbound, ns)
			setDep(outbound, transferState, newTransferDep)
			setArr(outbound, transferState, newTransferDep+transferState.LinkTime)
			wait := oldTransferDep - newTransferDep
			priorTrip.LinkTime += wait
			if wait < 0 || priorTrip.LinkTime < 0 {
				feasible = false
			}
		}

	case ns.Key.Mode == transit.ModeTransfer || ns.Key.Mode == transit.ModeEgress:
		setArr(outbound, ns, depOf(outbound, head))
		setDep(outbound, ns, arrOf(outbound, ns)-ns.LinkTime)
		if ns.LinkTime < 0 {
			feasible = false
		}
	}

	p.Links = append([]Link{{StopID: stopID, State: *ns}}, p.Links...)
	return feasible
}

// isTerminalMode reports whether m is the mode of the link added last
// during construction: the leg PathFinder.finalizeTazState bridges in,
// access outbound (the scan starts at the destination and finishes at the
// origin), egress inbound (the mirror image).
func (p *Path) isTerminalMode(m transit.LinkMode) bool {
	if p.Outbound {
		return m == transit.ModeAccess
	}
	return m == transit.ModeEgress
}

// Done reports whether the path has reached its terminal leg. Extraction
// loops (§4.5.1, §4.5.2) stop appending once this is true.
func (p *Path) Done() bool {
	if len(p.Links) == 0 {
		return false
	}
	var m transit.LinkMode
	if p.chronoOrder() {
		m = p.Links[len(p.Links)-1].State.Key.Mode
	} else {
		m = p.Links[0].State.Key.Mode
	}
	return p.isTerminalMode(m)
}

// Signature is a stable per-link identity string used for path-set
// de-duplication (§4.3.3): two paths with the same sequence of
// (stop, mode, trip-or-supply-mode) triples are the same path regardless of
// cost, which may differ slightly due to floating point recomputation.
func (p *Path) Signature() string {
	buf := make([]byte, 0, len(p.Links)*12)
	for _, l := range p.Links {
		buf = appendInt(buf, int64(l.StopID))
		buf = append(buf, ':')
		buf = appendInt(buf, int64(l.State.Key.Mode))
		buf = append(buf, ':')
		buf = appendInt(buf, int64(l.State.Key.TripOrSupplyMode))
		buf = append(buf, '|')
	}
	return string(buf)
}

func appendInt(buf []byte, v int64) []byte {
	if v == 0 {
		return append(buf, '0')
	}
	neg := v < 0
	if neg {
		v = -v
		buf = append(buf, '-')
	}
	start := len(buf)
	for v > 0 {
		buf = append(buf, byte('0'+v%10))
		v /= 10
	}
	// reverse the digits just written
	for i, j := start, len(buf)-1; i < j; i, j = i+1, j-1 {
		buf[i], buf[j] = buf[j], buf[i]
	}
	return buf
}

// Equal reports whether a and b traverse the same sequence of links.
func Equal(a, b *Path) bool { return a.Signature() == b.Signature() }

// Less orders paths by cost, then link count, then lexicographically by
// (stop, mode, trip-or-supply-mode) per link (§4.3.3), giving a
// deterministic order for a PathSet's output regardless of draw order.
func Less(a, b *Path) bool {
	if a.Cost != b.Cost {
		return a.Cost < b.Cost
	}
	if len(a.Links) != len(b.Links) {
		return len(a.Links) < len(b.Links)
	}
	for i := range a.Links {
		ai, bi := a.Links[i], b.Links[i]
		if ai.StopID != bi.StopID {
			return ai.StopID < bi.StopID
		}
		if ai.State.Key.Mode != bi.State.Key.Mode {
			return ai.State.Key.Mode < bi.State.Key.Mode
		}
		if ai.State.Key.TripOrSupplyMode != bi.State.Key.TripOrSupplyMode {
			return ai.State.Key.TripOrSupplyMode < bi.State.Key.TripOrSupplyMode
		}
	}
	return false
}
