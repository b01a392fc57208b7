// Command pathfind is the bundled CLI for the transit path-finding core: it
// loads (or generates) a supply.Tables, then serves it over HTTP, runs a
// headless batch of requests, or recomputes stop-to-stop distances in a
// corridor file.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
	version = "dev"
)

var rootCmd = &cobra.Command{
	Use:   "pathfind",
	Short: "Schedule-based transit path-finding engine",
	Long: `pathfind answers shortest/least-generalized-cost path queries over a
schedule-based transit network: deterministic lowest-cost extraction or
stochastic hyperpath sampling, served over HTTP or run as a headless batch.`,
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is built-in defaults)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose (debug) logging")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(distancesCmd)
}

// Commands are defined in separate files:
// - serveCmd in serve.go
// - batchCmd in batch.go
// - distancesCmd in distances.go

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
