// Package costmodel implements tallyLinkCost (spec §4.4.6), the
// generalized-cost evaluator shared by the labeling loop's stochastic cost
// computations and Path.CalculateCost's from-scratch recomputation.
package costmodel

import "github.com/jwmdev/transitpath/internal/supply"

// MissingAttribute is returned (accumulated, not raised) when a named
// weight has no corresponding entry in attrs. Per §7 "Attribute missing in
// tallyLinkCost: logged; the weight's contribution is zero; not fatal",
// the caller logs these and continues; the cost tally simply omits the
// term.
type MissingAttribute struct {
	Weight string
}

// Tally computes generalized cost = sum over named weights w_i of
// w_i(attr_i). Missing attributes contribute zero and are reported back to
// the caller for logging rather than failing the computation.
func Tally(weights supply.WeightTable, attrs map[string]float64) (cost float64, missing []MissingAttribute) {
	for name, w := range weights {
		v, ok := attrs[name]
		if !ok {
			missing = append(missing, MissingAttribute{Weight: name})
			continue
		}
		cost += w.Apply(v)
	}
	return cost, missing
}
