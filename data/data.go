// Package data holds small, hand-tuned default tables the bundled CLI wires
// into a generated network when no weight-file loader is configured.
package data

// TimePeriodMultiplier maps a period id (1..6) to a default time-of-day
// demand weight bucket: 1 = very early off-peak, 2 = morning peak,
// 3 = late morning, 4 = mid-day, 5 = evening peak, 6 = late evening.
// Carried over from the teacher's passenger-arrival-rate multiplier table;
// here the bundled CLI divides a generated network's headway by the entry
// for its --period flag instead of scaling a Poisson arrival rate.
var TimePeriodMultiplier = map[int]float64{
	1: 0.3,
	2: 1.6,
	3: 0.9,
	4: 0.8,
	5: 1.4,
	6: 0.5,
}
