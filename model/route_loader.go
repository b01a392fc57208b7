package model

import (
	"encoding/json"
	"fmt"
	"io"
)

// raw structures matching the corridor JSON file shape.
type rawRoute struct {
	Name            string    `json:"route"`
	Direction       string    `json:"direction"`
	UnitDistance    string    `json:"unit_distance"`
	TotalDistanceKM float64   `json:"total_distance_km"`
	Stops           []rawStop `json:"stops"`
	Pins            []rawPin  `json:"pins"`
}

type rawStop struct {
	StopID       int     `json:"stop_id"`
	StopName     string  `json:"stop_name"`
	Lat          float64 `json:"latitute"`
	Lng          float64 `json:"longtude"`
	DistanceNext float64 `json:"distance_next_stop"`
	AllowLayover bool    `json:"allow_layover"`
}

type rawPin struct {
	LeftStopID  int     `json:"left_stop_id"`
	RightStopID int     `json:"right_stop_id"`
	Lat         float64 `json:"latitute"`
	Lng         float64 `json:"longtude"`
}

// LoadCorridorFromReader parses a corridor JSON (kimara_kivukoni_stops.json
// format) and builds a Corridor.
func LoadCorridorFromReader(r io.Reader, id int) (*Corridor, error) {
	dec := json.NewDecoder(r)
	var raw rawRoute
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode corridor: %w", err)
	}
	corridor := &Corridor{
		ID:              id,
		Name:            raw.Name,
		Direction:       raw.Direction,
		TotalDistanceKM: raw.TotalDistanceKM,
		UnitDistance:    raw.UnitDistance,
		Stops:           make([]*Stop, 0, len(raw.Stops)),
		Pins:            make([]*RoutePin, 0, len(raw.Pins)),
	}
	var cumulative float64
	for _, s := range raw.Stops {
		st := &Stop{
			ID:             s.StopID,
			Name:           s.StopName,
			CorridorID:     id,
			Latitude:       s.Lat,
			Longitude:      s.Lng,
			DistanceToNext: s.DistanceNext,
			CumulativeDist: cumulative,
			AllowLayover:   s.AllowLayover,
		}
		cumulative += s.DistanceNext
		corridor.Stops = append(corridor.Stops, st)
	}
	for _, p := range raw.Pins {
		corridor.Pins = append(corridor.Pins, &RoutePin{
			LeftStopID: p.LeftStopID, RightStopID: p.RightStopID, Latitude: p.Lat, Longitude: p.Lng,
		})
	}
	return corridor, nil
}
