package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jwmdev/transitpath/driver"
	"github.com/jwmdev/transitpath/internal/config"
	"github.com/jwmdev/transitpath/internal/obs"
	"github.com/jwmdev/transitpath/internal/request"
	"github.com/jwmdev/transitpath/model"
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Args:  cobra.NoArgs,
	Short: "Run a headless batch of path-finding requests",
	Long: `Batch loads one or more corridor files into a generated network, reads a
JSON array of PathSpecification requests, answers every one across a bounded
worker pool, and writes a CSV + console summary report.`,
	RunE: runBatch,
}

func init() {
	batchCmd.Flags().StringArray("corridor", nil, "corridor JSON file (repeatable)")
	batchCmd.Flags().String("requests", "", "path to a JSON array of request.PathSpecification")
	batchCmd.Flags().Int("period", 2, "default time-of-day period id (see data.TimePeriodMultiplier)")
	batchCmd.Flags().Float64("headway-min", 10, "base headway between trips, minutes")
	batchCmd.Flags().Float64("speed-kmph", 25, "average in-vehicle speed, km/h")
	batchCmd.Flags().Float64("dwell-min", 0.5, "dwell time at intermediate stops, minutes")
	batchCmd.Flags().Float64("transfer-radius-km", 0.4, "max walk distance for a cross-corridor transfer, km")
	batchCmd.Flags().Int("concurrency", 4, "number of concurrent FindPath workers")
	batchCmd.Flags().String("report", "", "CSV report output path or directory")
	batchCmd.Flags().Bool("trace", false, "force per-request tracing on for every request in the batch")
}

func runBatch(cmd *cobra.Command, _ []string) error {
	corridors, _ := cmd.Flags().GetStringArray("corridor")
	requestsPath, _ := cmd.Flags().GetString("requests")
	period, _ := cmd.Flags().GetInt("period")
	headway, _ := cmd.Flags().GetFloat64("headway-min")
	speed, _ := cmd.Flags().GetFloat64("speed-kmph")
	dwell, _ := cmd.Flags().GetFloat64("dwell-min")
	radius, _ := cmd.Flags().GetFloat64("transfer-radius-km")
	concurrency, _ := cmd.Flags().GetInt("concurrency")
	reportPath, _ := cmd.Flags().GetString("report")
	trace, _ := cmd.Flags().GetBool("trace")

	if requestsPath == "" {
		return fmt.Errorf("--requests is required")
	}

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
	cfg.Tracing.Enabled = cfg.Tracing.Enabled || trace

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

	b, err := os.ReadFile(requestsPath)
	if err != nil {
		return fmt.Errorf("read requests file: %w", err)
	}
	var specs []*request.PathSpecification
	if err := json.Unmarshal(b, &specs); err != nil {
		return fmt.Errorf("parse requests file: %w", err)
	}

	_, err = driver.Run(context.Background(), pf, specs, driver.Options{
		Concurrency: concurrency, ReportPath: reportPath, Trace: trace,
	})
	return err
}
