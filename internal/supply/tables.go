package supply

import (
	"fmt"
	"sort"

	"github.com/jwmdev/transitpath/internal/transit"
)

// Tables is the external collaborator interface the PathFinder programs
// against. Spec §1 explicitly keeps input-file parsing and schema
// validation out of the core's scope; InMemory below is a concrete,
// fully-validated implementation used by the bundled CLI and by tests, but
// any Tables implementation (e.g. one backed by mmap'd columnar files) can
// stand in for it without the core changing.
type Tables interface {
	Trip(id transit.TripID) (*Trip, bool)
	// StopTimesAt returns, for a stop, all (trip, seq) pairs serving it —
	// the reverse index used during trip relaxation.
	StopTimesAt(stop transit.StopID) []TripStopTime

	// AccessEgress resolves the supply links for (taz, mode, stop) whose
	// window contains fix_time_range(queryTime).
	AccessEgress(taz transit.StopID, mode transit.SupplyModeID, queryTime float64) []AccessEgressLink
	// AccessEgressModesForTAZ lists the supply modes configured for a TAZ
	// and demand mode type, used by PathFinder.initializeStopStates.
	AccessEgressModesForTAZ(taz transit.StopID, demandType transit.DemandModeType) []transit.SupplyModeID

	// Transfers returns configured transfers from (outbound) or to
	// (inbound) a stop, excluding the canonical self-transfer (callers add
	// that separately, per §4.4.3).
	Transfers(stop transit.StopID, outbound bool) []Transfer

	FarePeriod(id transit.FarePeriodID) (FarePeriod, bool)
	FareTransferRule(from, to transit.FarePeriodID) (FareTransferRule, bool)

	// Weights looks up the named weight table for a combination of
	// request attributes and a supply mode.
	Weights(userClass, purpose string, demandType transit.DemandModeType, demandMode string, supplyMode transit.SupplyModeID) (WeightTable, bool)

	// BumpWait returns the latest time a bumped would-be passenger began
	// waiting at (trip, seq, stop), if the simulation-feedback snapshot has
	// an entry.
	BumpWait(key BumpWaitKey) (float64, bool)
}

// TripStopTime pairs a trip with one of its stop-time rows, as returned by
// the reverse stop->trips index.
type TripStopTime struct {
	TripID transit.TripID
	StopTime
}

// InMemory is a fully in-memory Tables built from already-renumbered dense
// IDs. Loaders that parse the original string-keyed input files (out of
// scope for the core, §1) populate an InMemory via the Registry in
// registry.go and the Builder below.
type InMemory struct {
	trips           map[transit.TripID]*Trip
	stopIndex       map[transit.StopID][]TripStopTime
	accessEgress    map[accessEgressKey][]AccessEgressLink
	accessEgressModes map[accessEgressModeKey][]transit.SupplyModeID
	transfersFrom   map[transit.StopID][]Transfer
	transfersTo     map[transit.StopID][]Transfer
	farePeriods     map[transit.FarePeriodID]FarePeriod
	fareTransfers   map[[2]transit.FarePeriodID]FareTransferRule
	weights         map[weightKey]WeightTable
	bumpWait        map[BumpWaitKey]float64
}

type accessEgressKey struct {
	taz  transit.StopID
	mode transit.SupplyModeID
}

type accessEgressModeKey struct {
	taz        transit.StopID
	demandType transit.DemandModeType
}

type weightKey struct {
	userClass  string
	purpose    string
	demandType transit.DemandModeType
	demandMode string
	supplyMode transit.SupplyModeID
}

// NewInMemory returns an empty table set ready for a Builder to populate.
func NewInMemory() *InMemory {
	return &InMemory{
		trips:             make(map[transit.TripID]*Trip),
		stopIndex:         make(map[transit.StopID][]TripStopTime),
		accessEgress:      make(map[accessEgressKey][]AccessEgressLink),
		accessEgressModes: make(map[accessEgressModeKey][]transit.SupplyModeID),
		transfersFrom:     make(map[transit.StopID][]Transfer),
		transfersTo:       make(map[transit.StopID][]Transfer),
		farePeriods:       make(map[transit.FarePeriodID]FarePeriod),
		fareTransfers:     make(map[[2]transit.FarePeriodID]FareTransferRule),
		weights:           make(map[weightKey]WeightTable),
		bumpWait:          make(map[BumpWaitKey]float64),
	}
}

func (m *InMemory) Trip(id transit.TripID) (*Trip, bool) {
	t, ok := m.trips[id]
	return t, ok
}

func (m *InMemory) StopTimesAt(stop transit.StopID) []TripStopTime {
	return m.stopIndex[stop]
}

func (m *InMemory) AccessEgress(taz transit.StopID, mode transit.SupplyModeID, queryTime float64) []AccessEgressLink {
	fixed := transit.FixTimeRange(queryTime)
	links := m.accessEgress[accessEgressKey{taz: taz, mode: mode}]
	out := make([]AccessEgressLink, 0, 1)
	seen := map[transit.StopID]bool{}
	for _, l := range links {
		// Resolves, per stop, the first entry whose window contains the
		// query time.
		if !seen[l.StopID] && l.contains(fixed) {
			seen[l.StopID] = true
			out = append(out, l)
		}
	}
	return out
}

func (m *InMemory) AccessEgressModesForTAZ(taz transit.StopID, demandType transit.DemandModeType) []transit.SupplyModeID {
	return m.accessEgressModes[accessEgressModeKey{taz: taz, demandType: demandType}]
}

func (m *InMemory) Transfers(stop transit.StopID, outbound bool) []Transfer {
	if outbound {
		return m.transfersFrom[stop]
	}
	return m.transfersTo[stop]
}

func (m *InMemory) FarePeriod(id transit.FarePeriodID) (FarePeriod, bool) {
	fp, ok := m.farePeriods[id]
	return fp, ok
}

func (m *InMemory) FareTransferRule(from, to transit.FarePeriodID) (FareTransferRule, bool) {
	r, ok := m.fareTransfers[[2]transit.FarePeriodID{from, to}]
	return r, ok
}

func (m *InMemory) Weights(userClass, purpose string, demandType transit.DemandModeType, demandMode string, supplyMode transit.SupplyModeID) (WeightTable, bool) {
	wt, ok := m.weights[weightKey{userClass, purpose, demandType, demandMode, supplyMode}]
	return wt, ok
}

func (m *InMemory) BumpWait(key BumpWaitKey) (float64, bool) {
	v, ok := m.bumpWait[key]
	return v, ok
}

// Builder populates an InMemory. Methods return the Builder to allow
// chaining, matching the teacher's route/fleet loader style of building up
// a struct field by field from decoded JSON.
type Builder struct {
	tables *InMemory
	err    error
}

// NewBuilder starts a Builder over an empty InMemory.
func NewBuilder() *Builder {
	return &Builder{tables: NewInMemory()}
}

func (b *Builder) fail(err error) *Builder {
	if b.err == nil {
		b.err = err
	}
	return b
}

// AddTrip registers a trip and indexes its stop times for reverse lookup.
// Sequence numbers must be dense starting at 1 (§6); StopTimes is assumed
// already ordered by Seq.
func (b *Builder) AddTrip(t *Trip) *Builder {
	if b.err != nil {
		return b
	}
	for i, st := range t.StopTimes {
		if int(st.Seq) != i+1 {
			return b.fail(fmt.Errorf("supply: trip %d stop time %d has non-dense seq %d", t.ID, i, st.Seq))
		}
	}
	b.tables.trips[t.ID] = t
	for _, st := range t.StopTimes {
		b.tables.stopIndex[st.StopID] = append(b.tables.stopIndex[st.StopID], TripStopTime{TripID: t.ID, StopTime: st})
	}
	return b
}

// AddAccessEgress registers one access/egress supply link and its
// (taz, mode) -> demand-type membership for initializeStopStates' mode
// enumeration.
func (b *Builder) AddAccessEgress(l AccessEgressLink, demandType transit.DemandModeType) *Builder {
	if b.err != nil {
		return b
	}
	key := accessEgressKey{taz: l.TAZID, mode: l.SupplyMode}
	b.tables.accessEgress[key] = append(b.tables.accessEgress[key], l)
	sort.Slice(b.tables.accessEgress[key], func(i, j int) bool {
		return b.tables.accessEgress[key][i].StartMin < b.tables.accessEgress[key][j].StartMin
	})
	mkey := accessEgressModeKey{taz: l.TAZID, demandType: demandType}
	modes := b.tables.accessEgressModes[mkey]
	for _, m := range modes {
		if m == l.SupplyMode {
			return b
		}
	}
	b.tables.accessEgressModes[mkey] = append(modes, l.SupplyMode)
	return b
}

// AddTransfer registers a transfer in both directional indices.
func (b *Builder) AddTransfer(t Transfer) *Builder {
	if b.err != nil {
		return b
	}
	b.tables.transfersFrom[t.FromStopID] = append(b.tables.transfersFrom[t.FromStopID], t)
	b.tables.transfersTo[t.ToStopID] = append(b.tables.transfersTo[t.ToStopID], t)
	return b
}

func (b *Builder) AddFarePeriod(fp FarePeriod) *Builder {
	if b.err != nil {
		return b
	}
	b.tables.farePeriods[fp.ID] = fp
	return b
}

func (b *Builder) AddFareTransferRule(r FareTransferRule) *Builder {
	if b.err != nil {
		return b
	}
	b.tables.fareTransfers[[2]transit.FarePeriodID{r.FromFarePeriod, r.ToFarePeriod}] = r
	return b
}

func (b *Builder) AddWeights(userClass, purpose string, demandType transit.DemandModeType, demandMode string, supplyMode transit.SupplyModeID, wt WeightTable) *Builder {
	if b.err != nil {
		return b
	}
	b.tables.weights[weightKey{userClass, purpose, demandType, demandMode, supplyMode}] = wt
	return b
}

func (b *Builder) AddBumpWait(key BumpWaitKey, latestTime float64) *Builder {
	if b.err != nil {
		return b
	}
	b.tables.bumpWait[key] = latestTime
	return b
}

// Build finalizes the table set, returning any accumulated construction
// error.
func (b *Builder) Build() (*InMemory, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.tables, nil
}
