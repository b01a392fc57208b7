package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwmdev/transitpath/internal/transit"
)

// TestQueue_ScenarioB exercises spec §8 Scenario B verbatim.
func TestQueue_ScenarioB(t *testing.T) {
	q := New()
	q.Push(5, 1, transit.NonTripSide)
	q.Push(3, 1, transit.NonTripSide)
	q.Push(7, 2, transit.NonTripSide)

	e1, err := q.PopTop()
	require.NoError(t, err)
	assert.Equal(t, Entry{Label: 3, Stop: 1, Side: transit.NonTripSide}, e1)

	e2, err := q.PopTop()
	require.NoError(t, err)
	assert.Equal(t, Entry{Label: 7, Stop: 2, Side: transit.NonTripSide}, e2)

	_, err = q.PopTop()
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestQueue_WorsePushIsNoOp(t *testing.T) {
	q := New()
	q.Push(3, 1, transit.NonTripSide)
	q.Push(5, 1, transit.NonTripSide) // worse, no-op
	assert.Equal(t, 1, q.Size())
	e, err := q.PopTop()
	require.NoError(t, err)
	assert.Equal(t, 3.0, e.Label)
}

func TestQueue_RepushAfterPopStartsFresh(t *testing.T) {
	q := New()
	q.Push(3, 1, transit.NonTripSide)
	_, err := q.PopTop()
	require.NoError(t, err)
	assert.True(t, q.Empty())

	q.Push(9, 1, transit.NonTripSide)
	assert.Equal(t, 1, q.Size())
	e, err := q.PopTop()
	require.NoError(t, err)
	assert.Equal(t, 9.0, e.Label)
}

func TestQueue_TripAndNonTripAreIndependentSides(t *testing.T) {
	q := New()
	q.Push(4, 1, transit.TripSide)
	q.Push(4, 1, transit.NonTripSide)
	assert.Equal(t, 2, q.Size())
}

// TestQueue_Invariant1_ValidCount property-tests spec §8 invariant 1: size()
// always equals the number of (stop,side) pairs whose latest push has not
// yet been popped.
func TestQueue_Invariant1_ValidCount(t *testing.T) {
	q := New()
	valid := map[key]float64{}

	ops := []struct {
		label float64
		stop  transit.StopID
		side  transit.Side
		pop   bool
	}{
		{10, 1, transit.NonTripSide, false},
		{5, 1, transit.NonTripSide, false},
		{8, 2, transit.TripSide, false},
		{1, 2, transit.TripSide, false},
		{3, 3, transit.NonTripSide, false},
		{0, 0, 0, true},
		{0, 0, 0, true},
		{7, 1, transit.NonTripSide, false},
		{0, 0, 0, true},
	}
	for _, op := range ops {
		if op.pop {
			if len(valid) == 0 {
				_, err := q.PopTop()
				assert.ErrorIs(t, err, ErrEmpty)
				continue
			}
			_, err := q.PopTop()
			require.NoError(t, err)
			// remove the minimum from our reference model
			var minK key
			minV := 0.0
			first := true
			for k, v := range valid {
				if first || v < minV {
					minK, minV, first = k, v, false
				}
			}
			delete(valid, minK)
		} else {
			k := key{stop: op.stop, side: op.side}
			if cur, ok := valid[k]; !ok || op.label < cur {
				valid[k] = op.label
			}
			q.Push(op.label, op.stop, op.side)
		}
		assert.Equal(t, len(valid), q.Size())
	}
}

// TestQueue_Invariant2_MinLabelNonDecreasing checks spec §8 invariant 2.
func TestQueue_Invariant2_MinLabelNonDecreasing(t *testing.T) {
	q := New()
	labels := []float64{12, 4, 9, 1, 20, 2}
	for i, l := range labels {
		q.Push(l, transit.StopID(i), transit.NonTripSide)
	}
	last := -1.0
	for {
		e, err := q.PopTop()
		if err != nil {
			break
		}
		assert.GreaterOrEqual(t, e.Label, last)
		last = e.Label
	}
}
