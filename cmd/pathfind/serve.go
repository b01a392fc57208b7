package main

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/jwmdev/transitpath/internal/config"
	"github.com/jwmdev/transitpath/internal/obs"
	"github.com/jwmdev/transitpath/model"
	"github.com/jwmdev/transitpath/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Args:  cobra.NoArgs,
	Short: "Serve path-finding requests over HTTP",
	Long: `Serve loads one or more corridor files, generates a schedule-based network
from them, and answers path-finding requests at /api/pathfind (single
request) and /api/pathfind/stream (SSE, a batch of requests), with
instrumentation exposed at /metrics.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringArray("corridor", nil, "corridor JSON file (repeatable)")
	serveCmd.Flags().String("addr", ":8080", "HTTP listen address")
	serveCmd.Flags().Int("period", 2, "default time-of-day period id (see data.TimePeriodMultiplier)")
	serveCmd.Flags().Float64("headway-min", 10, "base headway between trips, minutes")
	serveCmd.Flags().Float64("speed-kmph", 25, "average in-vehicle speed, km/h")
	serveCmd.Flags().Float64("dwell-min", 0.5, "dwell time at intermediate stops, minutes")
	serveCmd.Flags().Float64("transfer-radius-km", 0.4, "max walk distance for a cross-corridor transfer, km")
}

func runServe(cmd *cobra.Command, _ []string) error {
	corridors, _ := cmd.Flags().GetStringArray("corridor")
	addr, _ := cmd.Flags().GetString("addr")
	period, _ := cmd.Flags().GetInt("period")
	headway, _ := cmd.Flags().GetFloat64("headway-min")
	speed, _ := cmd.Flags().GetFloat64("speed-kmph")
	dwell, _ := cmd.Flags().GetFloat64("dwell-min")
	radius, _ := cmd.Flags().GetFloat64("transfer-radius-km")

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log := obs.NewLogger(cfg.Logging)
	metrics := newMetrics()

	sched := model.Schedule{
		SupplyMode: "bus", UserClass: "default", Purpose: "other",
		FirstDepartMin: 0, LastDepartMin: 1439,
		HeadwayMin: headway, AvgSpeedKmph: speed, DwellMin: dwell,
		WalkSpeedKmph: 4.8, TransferRadius: radius,
		FarePeriod: "standard", FarePrice: 1.0,
	}
	pf, _, err := buildNetwork(corridors, sched, period, cfg, log, metrics)
	if err != nil {
		return err
	}

	srv := server.New(pf, log, server.Options{MetricsAddr: addr})
	srv.Serve()

	log.Info().Str("addr", addr).Int("corridors", len(corridors)).Msg("pathfind: serving")
	return http.ListenAndServe(addr, nil)
}
