// Package driver runs a headless batch of path-finding requests against a
// PathFinder, fanning them out across a bounded worker pool. Grounded on the
// teacher's batch.go: a headless entrypoint that mirrors the SSE server's
// logic but runs to completion with no real-time sleeps and produces the
// same Summary/report shape at the end.
package driver

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jwmdev/transitpath/internal/pathfinder"
	"github.com/jwmdev/transitpath/internal/request"
	"github.com/jwmdev/transitpath/report"
)

// Options configures a batch run.
type Options struct {
	// Concurrency bounds how many FindPath calls run at once. <= 0 means 1.
	Concurrency int
	ReportPath  string
	Trace       bool
}

// Run executes every request in specs against pf using a bounded worker
// pool, keeping the outcomes in the order of specs, and returns the batch
// summary.
// Unlike the teacher's single long event loop, each request here is
// independent (the core answers one request at a time with no shared
// mutable state, §1), so parallelism is a plain fan-out/fan-in instead of a
// priority queue of simulated-time events.
func Run(ctx context.Context, pf *pathfinder.PathFinder, specs []*request.PathSpecification, opt Options) (report.Summary, error) {
	if len(specs) == 0 {
		return report.Summary{}, fmt.Errorf("driver: no requests to run")
	}
	workers := opt.Concurrency
	if workers <= 0 {
		workers = 1
	}

	start := time.Now()
	outcomes := make([]report.RequestOutcome, len(specs))

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				spec := specs[i]
				spec.Trace = spec.Trace || opt.Trace
				res, err := pf.FindPath(ctx, spec)
				if err != nil {
					res = pathfinder.Result{Code: request.RetFailSetReachable}
				}
				outcomes[i] = report.RequestOutcome{
					PersonID: spec.PersonID, PersonTripID: spec.PersonTripID,
					Outbound: spec.Outbound, Result: res,
				}
			}
		}()
	}
	for i := range specs {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	elapsed := time.Since(start)
	sum := report.Summarize(outcomes, elapsed)

	if opt.ReportPath != "" {
		if _, err := report.WriteCSVReport(opt.ReportPath, outcomes, sum); err != nil {
			return sum, fmt.Errorf("driver: write report: %w", err)
		}
	}
	report.PrintConsoleReport(sum)

	return sum, nil
}
