// Package report writes the end-of-run summary for a batch of path-finding
// requests, in the CSV + console shape sim/report.go used for a bus
// simulation's per-bus distance/cost table — generalized here to one row per
// request and a run-level summary row.
package report

import (
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/jwmdev/transitpath/internal/pathfinder"
	"github.com/jwmdev/transitpath/internal/request"
)

// RequestOutcome pairs one path-finding request's identity with its result,
// the unit WriteCSVReport / PrintConsoleReport iterate over.
type RequestOutcome struct {
	PersonID     string
	PersonTripID string
	Outbound     bool
	Result       pathfinder.Result
}

// Summary carries run-level aggregates alongside the per-request outcomes.
type Summary struct {
	Requested int
	Succeeded int
	Failed    int
	AvgCost   float64
	TotalTime time.Duration
}

// Summarize computes a Summary from a slice of outcomes.
func Summarize(outcomes []RequestOutcome, elapsed time.Duration) Summary {
	sum := Summary{Requested: len(outcomes), TotalTime: elapsed}
	var costTotal float64
	for _, o := range outcomes {
		if o.Result.Code != request.RetSuccess || len(o.Result.Paths) == 0 {
			sum.Failed++
			continue
		}
		sum.Succeeded++
		costTotal += o.Result.Paths[0].Info.Cost
	}
	if sum.Succeeded > 0 {
		sum.AvgCost = costTotal / float64(sum.Succeeded)
	}
	return sum
}

// WriteCSVReport writes a CSV report to reportPath (or a directory, in which
// case a timestamped file is created inside it; if reportPath already names
// a file, a timestamp is suffixed before its extension).
func WriteCSVReport(reportPath string, outcomes []RequestOutcome, sum Summary) (string, error) {
	if reportPath == "" {
		return "", nil
	}
	ts := time.Now().Format("20060102-150405")
	outPath := reportPath
	if fi, err := os.Stat(outPath); err == nil && fi.IsDir() {
		outPath = filepath.Join(outPath, fmt.Sprintf("report-%s.csv", ts))
	} else if outPath != "" {
		ext := filepath.Ext(outPath)
		base := outPath[:len(outPath)-len(ext)]
		outPath = fmt.Sprintf("%s-%s%s", base, ts, ext)
	}
	f, err := os.Create(outPath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	round2 := func(x float64) float64 { return math.Round(x*100) / 100 }

	fmt.Fprintln(f, "section,person_id,person_trip_id,outbound,ret_code,num_paths,cost,label_iterations,timestamp")
	for _, o := range outcomes {
		cost := 0.0
		numPaths := len(o.Result.Paths)
		if numPaths > 0 {
			cost = round2(o.Result.Paths[0].Info.Cost)
		}
		fmt.Fprintf(f, "request,%s,%s,%t,%s,%d,%.2f,%d,%s\n",
			o.PersonID, o.PersonTripID, o.Outbound, o.Result.Code, numPaths, cost,
			o.Result.Perf.LabelIterations, ts)
	}
	fmt.Fprintf(f, "summary,,,,,,%.2f,,%s\n", round2(sum.AvgCost), ts)
	log.Printf("CSV report written to %s", outPath)
	return outPath, nil
}

// PrintConsoleReport prints a human-readable summary to stdout.
func PrintConsoleReport(sum Summary) {
	fmt.Println("=== Batch Path-Finding Report ===")
	fmt.Printf("Requests: %d\n", sum.Requested)
	fmt.Printf("Succeeded: %d\n", sum.Succeeded)
	fmt.Printf("Failed: %d\n", sum.Failed)
	fmt.Printf("Average cost (first path): %.2f\n", sum.AvgCost)
	fmt.Printf("Elapsed: %s\n", sum.TotalTime)
}
