package model

// RoutePin is an intermediate waypoint between two stops, used only to
// improve the great-circle distance estimate between them (see the
// distances subcommand, cmd/pathfind/distances.go); it carries no schedule information of its
// own.
type RoutePin struct {
	LeftStopID  int
	RightStopID int
	Latitude    float64
	Longitude   float64
}

// Corridor models an ordered sequence of stops in one direction of travel —
// the static geography a Schedule turns into trips. Renamed from the
// teacher's bus-simulation Route: a Corridor no longer carries fleet or
// passenger state, only the stop sequence and distances a network loader
// needs to generate supply.Trip rows.
type Corridor struct {
	ID              int         `json:"id"`
	Name            string      `json:"route"`
	Direction       string      `json:"direction"`
	TotalDistanceKM float64     `json:"total_distance_km"`
	UnitDistance    string      `json:"unit_distance"`
	Stops           []*Stop     `json:"stops"`
	Pins            []*RoutePin `json:"-"`
}

// GetStop returns the stop by id, or nil.
func (c *Corridor) GetStop(id int) *Stop {
	for _, s := range c.Stops {
		if s.ID == id {
			return s
		}
	}
	return nil
}

// IndexOf returns the index of stop id in sequence, or -1.
func (c *Corridor) IndexOf(id int) int {
	for i, s := range c.Stops {
		if s.ID == id {
			return i
		}
	}
	return -1
}

// NextStopID returns the id of the stop following current, or 0 at the end.
func (c *Corridor) NextStopID(current int) int {
	idx := c.IndexOf(current)
	if idx == -1 || idx+1 >= len(c.Stops) {
		return 0
	}
	return c.Stops[idx+1].ID
}

// PreviousStopID returns the id of the stop preceding current, or 0 at the start.
func (c *Corridor) PreviousStopID(current int) int {
	idx := c.IndexOf(current)
	if idx <= 0 {
		return 0
	}
	return c.Stops[idx-1].ID
}
