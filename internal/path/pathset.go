package path

// Entry is one distinct path in a PathSet together with how many times the
// stochastic sampler drew it (§4.5.2).
type Entry struct {
	Path  *Path
	Count int
}

// PathSet accumulates distinct sampled paths, de-duplicating by Signature
// (§4.3.3) and preserving first-seen order so output is deterministic for a
// fixed random seed regardless of map iteration order.
type PathSet struct {
	byKey map[string]*Entry
	order []string
}

// NewPathSet returns an empty set.
func NewPathSet() *PathSet {
	return &PathSet{byKey: make(map[string]*Entry)}
}

// Add records one draw of p, merging into an existing entry if an
// equivalent path (§4.3.3 Equal) was already recorded.
func (ps *PathSet) Add(p *Path) {
	key := p.Signature()
	if e, ok := ps.byKey[key]; ok {
		e.Count++
		return
	}
	ps.byKey[key] = &Entry{Path: p, Count: 1}
	ps.order = append(ps.order, key)
}

// Len returns the number of distinct paths recorded.
func (ps *PathSet) Len() int { return len(ps.order) }

// Entries returns the recorded paths in first-seen order.
func (ps *PathSet) Entries() []*Entry {
	out := make([]*Entry, 0, len(ps.order))
	for _, k := range ps.order {
		out = append(out, ps.byKey[k])
	}
	return out
}
