package main

import (
	"encoding/json"
	"fmt"
	"math"
	"os"

	"github.com/spf13/cobra"

	"github.com/jwmdev/transitpath/model"
)

// distStop/distPin/distRouteFile mirror the raw corridor JSON shape
// model/route_loader.go parses, kept local to this command since recomputing
// distance_next_stop in place needs round-tripping the full document
// (including fields the Corridor/Stop domain types don't carry, like the
// free-text note), not just what LoadCorridorFromReader extracts.
type distStop struct {
	StopID          int     `json:"stop_id"`
	StopName        string  `json:"stop_name"`
	Lat             float64 `json:"latitute"`
	Lng             float64 `json:"longtude"`
	DistanceNextRaw float64 `json:"distance_next_stop"`
}

type distPin struct {
	LeftStopID  int     `json:"left_stop_id"`
	RightStopID int     `json:"right_stop_id"`
	Lat         float64 `json:"latitute"`
	Lng         float64 `json:"longtude"`
}

type distRouteFile struct {
	Route         string     `json:"route"`
	Direction     string     `json:"direction"`
	UnitDistance  string     `json:"unit_distance"`
	TotalDistance float64    `json:"total_distance_km"`
	Stops         []distStop `json:"stops"`
	Pins          []distPin  `json:"pins"`
	Note          string     `json:"note"`
}

var distancesCmd = &cobra.Command{
	Use:   "distances <corridor.json>",
	Args:  cobra.ExactArgs(1),
	Short: "Recompute stop-to-stop distances in a corridor file from stop/pin coordinates",
	Long: `Distances rewrites a corridor JSON file's distance_next_stop fields (and its
total_distance_km) from the great-circle distance between consecutive
stops, routing through any pins configured between them.`,
	RunE: runDistances,
}

func runDistances(_ *cobra.Command, args []string) error {
	path := args[0]
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	var rf distRouteFile
	if err := json.Unmarshal(b, &rf); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	pinsByPair := make(map[[2]int][]distPin)
	for _, p := range rf.Pins {
		key := [2]int{p.LeftStopID, p.RightStopID}
		pinsByPair[key] = append(pinsByPair[key], p)
	}

	var total float64
	for i := 0; i < len(rf.Stops)-1; i++ {
		a, bStop := rf.Stops[i], rf.Stops[i+1]
		seq := [][2]float64{{a.Lat, a.Lng}}
		for _, p := range pinsByPair[[2]int{a.StopID, bStop.StopID}] {
			seq = append(seq, [2]float64{p.Lat, p.Lng})
		}
		seq = append(seq, [2]float64{bStop.Lat, bStop.Lng})

		var segDist float64
		for j := 0; j < len(seq)-1; j++ {
			segDist += model.Haversine(seq[j][0], seq[j][1], seq[j+1][0], seq[j+1][1])
		}
		rf.Stops[i].DistanceNextRaw = math.Round(segDist*1000) / 1000
		total += segDist
	}
	if n := len(rf.Stops); n > 0 {
		rf.Stops[n-1].DistanceNextRaw = 0
	}
	rf.TotalDistance = math.Round(total*1000) / 1000

	out, err := json.MarshalIndent(rf, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	fmt.Printf("Updated distances. New total_distance_km=%.3f\n", rf.TotalDistance)
	return nil
}
