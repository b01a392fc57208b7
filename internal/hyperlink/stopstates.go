package hyperlink

import "github.com/jwmdev/transitpath/internal/transit"

// StopStates is the mapping stop_id -> Hyperlink, created lazily on first
// insert for a stop (§3). Each (request, direction) allocates a fresh
// StopStates; supply tables are read-only and shared, but this structure is
// request-local.
type StopStates struct {
	outbound  bool
	hyperpath bool
	theta     float64
	window    float64

	byStop map[transit.StopID]*Hyperlink
}

// NewStopStates returns an empty StopStates for one request/direction.
func NewStopStates(outbound, hyperpathMode bool, theta, window float64) *StopStates {
	return &StopStates{
		outbound:  outbound,
		hyperpath: hyperpathMode,
		theta:     theta,
		window:    window,
		byStop:    make(map[transit.StopID]*Hyperlink),
	}
}

// Get returns the Hyperlink for stop without creating one.
func (ss *StopStates) Get(stop transit.StopID) (*Hyperlink, bool) {
	h, ok := ss.byStop[stop]
	return h, ok
}

// GetOrCreate returns the Hyperlink for stop, constructing one with this
// StopStates' shared direction/mode/theta/window on first touch.
func (ss *StopStates) GetOrCreate(stop transit.StopID) *Hyperlink {
	h, ok := ss.byStop[stop]
	if !ok {
		h = New(stop, ss.outbound, ss.hyperpath, ss.theta, ss.window)
		ss.byStop[stop] = h
	}
	return h
}

// Len returns the number of stops touched so far.
func (ss *StopStates) Len() int { return len(ss.byStop) }

// Stops returns every stop touched so far, in no particular order.
func (ss *StopStates) Stops() []transit.StopID {
	out := make([]transit.StopID, 0, len(ss.byStop))
	for s := range ss.byStop {
		out = append(out, s)
	}
	return out
}
