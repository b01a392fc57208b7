package main

import (
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/jwmdev/transitpath/data"
	"github.com/jwmdev/transitpath/internal/config"
	"github.com/jwmdev/transitpath/internal/obs"
	"github.com/jwmdev/transitpath/internal/pathfinder"
	"github.com/jwmdev/transitpath/model"
)

// buildNetwork loads every corridor JSON file in corridorPaths, generates a
// supply.InMemory from them under sched (scaled by the period's default
// demand multiplier), and wraps the result in a PathFinder. This is the
// CLI's stand-in for the input-file parsing spec §1 puts out of scope for
// the core itself.
func buildNetwork(corridorPaths []string, sched model.Schedule, period int, cfg *config.Config, log zerolog.Logger, metrics *obs.Metrics) (*pathfinder.PathFinder, *model.NetworkBuilder, error) {
	if len(corridorPaths) == 0 {
		return nil, nil, fmt.Errorf("pathfind: at least one corridor file is required")
	}

	if mult, ok := data.TimePeriodMultiplier[period]; ok && mult > 0 {
		// Higher demand periods run shorter headways: demand multiplier
		// scales inversely onto trip frequency.
		sched.HeadwayMin = sched.HeadwayMin / mult
	}

	nb := model.NewNetworkBuilder(sched)
	for i, p := range corridorPaths {
		f, err := os.Open(p)
		if err != nil {
			return nil, nil, fmt.Errorf("pathfind: open corridor file %s: %w", p, err)
		}
		corridor, err := model.LoadCorridorFromReader(f, i+1)
		f.Close()
		if err != nil {
			return nil, nil, fmt.Errorf("pathfind: load corridor file %s: %w", p, err)
		}
		if err := nb.AddCorridor(corridor); err != nil {
			return nil, nil, fmt.Errorf("pathfind: build corridor from %s: %w", p, err)
		}
	}
	nb.AddTransfers()
	nb.AddDefaultWeights()

	tables, err := nb.Build()
	if err != nil {
		return nil, nil, fmt.Errorf("pathfind: build supply tables: %w", err)
	}

	pf := pathfinder.New(tables, cfg, log, metrics)
	return pf, nb, nil
}

// newMetrics registers the core's Prometheus instruments against the
// default registry so promhttp.Handler (wired in server.Serve) can expose
// them.
func newMetrics() *obs.Metrics {
	return obs.NewMetrics(prometheus.DefaultRegisterer)
}
