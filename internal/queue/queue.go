// Package queue implements LabelStopQueue, the lazy-invalidation
// min-priority queue the labeling loop pops from (spec §4.1). Physical
// deletion from a binary heap is O(n); instead, a push that supersedes an
// already-valid entry leaves the stale heap record in place, and a side
// table decides at pop time whether a popped record is still the
// authoritative one for its (stop, side) pair. This is the same
// lazy-decrease-key-via-container/heap idiom as the teacher's
// driver/batch.go eventPQ (bus-arrival ordering) and
// katalvlaran-lvlath/dijkstra, which documents the same trick explicitly:
// "lazy decrease-key: pushing duplicates into the heap and ignoring stale
// entries".
package queue

import (
	"container/heap"
	"errors"
	"fmt"

	"github.com/jwmdev/transitpath/internal/transit"
)

// Entry is one (label, stop, side) triple as returned by PopTop.
type Entry struct {
	Label float64
	Stop  transit.StopID
	Side  transit.Side
}

// ErrEmpty is returned by PopTop when the queue has no valid entries left,
// as a typed error rather than an index panic. The labeling loop treats it
// as the signal that labeling is finished.
var ErrEmpty = errors.New("queue: pop on empty LabelStopQueue")

// ErrUnexpectedState signals the §7 "Queue invariant violation" fatal
// condition: a heap record whose (stop,side) has no side-table entry at
// all. This can only happen if a caller mutated the queue outside its
// public API, which the design treats as a programming bug.
type ErrUnexpectedState struct {
	Stop transit.StopID
	Side transit.Side
}

func (e *ErrUnexpectedState) Error() string {
	return fmt.Sprintf("queue: unexpected state for (stop=%d, side=%s): no side-table entry", e.Stop, e.Side)
}

type key struct {
	stop transit.StopID
	side transit.Side
}

type sideEntry struct {
	bestLabel     float64
	valid         bool
	physicalCount int
}

type heapItem struct {
	label float64
	stop  transit.StopID
	side  transit.Side
}

type itemHeap []heapItem

func (h itemHeap) Len() int { return len(h) }

// Less implements the total ordering of §4.1: label ascending, then stop_id
// ascending, then trip-side before non-trip-side ("is_trip then plain").
func (h itemHeap) Less(i, j int) bool {
	a, b := h[i], h[j]
	if a.label != b.label {
		return a.label < b.label
	}
	if a.stop != b.stop {
		return a.stop < b.stop
	}
	// trip (true) sorts before non-trip (false).
	if a.side != b.side {
		return a.side == transit.TripSide
	}
	return false
}

func (h itemHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *itemHeap) Push(x any) {
	*h = append(*h, x.(heapItem))
}

func (h *itemHeap) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	*h = old[:n-1]
	return it
}

// LabelStopQueue is the lazy-invalidation priority queue of §4.1. The zero
// value is not usable; construct with New.
type LabelStopQueue struct {
	heap       itemHeap
	table      map[key]*sideEntry
	validCount int
}

// New returns an empty LabelStopQueue.
func New() *LabelStopQueue {
	return &LabelStopQueue{
		heap:  make(itemHeap, 0),
		table: make(map[key]*sideEntry),
	}
}

// Push registers a candidate label for (stop, side). A push with a label no
// better than the currently-valid one for that (stop,side) is a no-op, per
// §4.1.
func (q *LabelStopQueue) Push(label float64, stop transit.StopID, side transit.Side) {
	k := key{stop: stop, side: side}
	e, exists := q.table[k]
	if !exists {
		heap.Push(&q.heap, heapItem{label: label, stop: stop, side: side})
		q.table[k] = &sideEntry{bestLabel: label, valid: true, physicalCount: 1}
		q.validCount++
		return
	}
	if !e.valid {
		heap.Push(&q.heap, heapItem{label: label, stop: stop, side: side})
		e.bestLabel = label
		e.valid = true
		e.physicalCount++
		q.validCount++
		return
	}
	if label < e.bestLabel {
		heap.Push(&q.heap, heapItem{label: label, stop: stop, side: side})
		e.bestLabel = label
		e.physicalCount++
		// valid_count unchanged: the previous valid entry remains in the
		// heap but is now stale (its label no longer matches bestLabel)
		// and will be skipped on pop.
		return
	}
	// label >= e.bestLabel: worse or equal, no-op.
}

// PopTop removes and returns the lowest-label valid entry. Stale records
// (superseded by a later, better push) are discarded transparently while
// scanning. Returns ErrEmpty if no valid entry remains, and
// *ErrUnexpectedState if a popped heap record has no side-table entry at
// all (a queue invariant violation, §7).
func (q *LabelStopQueue) PopTop() (Entry, error) {
	for len(q.heap) > 0 {
		top := q.heap[0]
		k := key{stop: top.stop, side: top.side}
		e, ok := q.table[k]
		if !ok {
			return Entry{}, &ErrUnexpectedState{Stop: top.stop, Side: top.side}
		}
		if !e.valid || e.bestLabel != top.label {
			// stale: physically discard and keep scanning.
			heap.Pop(&q.heap)
			e.physicalCount--
			continue
		}
		heap.Pop(&q.heap)
		e.valid = false
		e.physicalCount--
		q.validCount--
		return Entry{Label: top.label, Stop: top.stop, Side: top.side}, nil
	}
	return Entry{}, ErrEmpty
}

// Size returns the number of currently-valid (stop,side) entries.
func (q *LabelStopQueue) Size() int { return q.validCount }

// Empty reports whether Size() == 0.
func (q *LabelStopQueue) Empty() bool { return q.validCount == 0 }
