// Package trajectories aligns a schedule's timed stop sequence with its
// shape polyline, producing a GeoJSON-like LineString whose points carry
// arrival and departure times.
package trajectories

import (
	"context"
	"encoding/json"
	"math"
	"slices"

	"github.com/gtfskit/gtfskit/pkg/gtfs"
	"github.com/gtfskit/gtfskit/pkg/schedules"
	"github.com/gtfskit/gtfskit/pkg/shapes"
	"github.com/gtfskit/gtfskit/pkg/stops"
	"github.com/gtfskit/gtfskit/pkg/store"
)

// Coordinate is one point of a trajectory. It marshals as a 5-element
// position [lon, lat, altitude, arrival, departure], which deliberately
// exceeds the 3 elements GeoJSON allows; the extra elements carry per-point
// timing. Arrival and Departure are nil where no time could be derived.
type Coordinate struct {
	Longitude float64
	Latitude  float64
	Arrival   *int64
	Departure *int64

	helper bool
}

func (c Coordinate) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{c.Longitude, c.Latitude, nil, c.Arrival, c.Departure})
}

func (c *Coordinate) UnmarshalJSON(data []byte) error {
	raw := []any{&c.Longitude, &c.Latitude, new(any), &c.Arrival, &c.Departure}
	return json.Unmarshal(data, &raw)
}

func (c Coordinate) position() position {
	return position{c.Longitude, c.Latitude}
}

// LineString is the geometry of a trajectory.
type LineString struct {
	Type        string       `json:"type"`
	Coordinates []Coordinate `json:"coordinates"`
}

// Properties identifies the schedule and shape a trajectory was built from.
type Properties struct {
	ID         string `json:"id"`
	ShapeID    string `json:"shapeId"`
	ScheduleID string `json:"scheduleId"`
	TripID     string `json:"tripId,omitempty"`
	ServiceID  string `json:"serviceId,omitempty"`
}

// Trajectory is a GeoJSON-like Feature: the shape polyline with times
// assigned to every point, matched, interpolated or extrapolated.
type Trajectory struct {
	Type       string     `json:"type"`
	Properties Properties `json:"properties"`
	Geometry   LineString `json:"geometry"`
}

// Build matches a schedule's stops onto a shape and fills in per-point
// times. Times are relative to the schedule's first arrival, like the
// schedule's own arrays. Stops further than 300m from the shape are not
// snapped; their surroundings get interpolated times instead.
func Build(ctx context.Context, shapeID string, shape []shapes.Point, schedule schedules.Schedule, locations store.Store[stops.Location]) (Trajectory, error) {
	pts := make([]Coordinate, len(shape))
	for i, p := range shape {
		pts[i] = Coordinate{Longitude: p.Longitude, Latitude: p.Latitude}
	}

	stopLocs := make([]position, len(schedule.Stops))
	for i, stopID := range schedule.Stops {
		loc, ok, err := locations.Get(ctx, stopID)
		if err != nil {
			return Trajectory{}, err
		}
		if !ok {
			return Trajectory{}, gtfs.Invalidf("no location for stop %q", stopID)
		}
		stopLocs[i] = position{loc[0], loc[1]}
	}

	arrival := func(i int) *int64 { return timePtr(schedule.Arrivals[i]) }
	departure := func(i int) *int64 { return timePtr(schedule.Departures[i]) }

	// Stops lying geometrically before the shape's start or after its end
	// get a synthetic helper point at their own location, so their times
	// take part in interpolation. Helpers are removed again at the end.
	firstStop, lastStop := 0, len(stopLocs)-1
	if len(pts) >= 2 && len(stopLocs) > 0 {
		_, dist, atA, _ := nearestOnSegment(stopLocs[0], pts[0].position(), pts[1].position())
		if atA && dist > 0 {
			helper := Coordinate{
				Longitude: stopLocs[0][0],
				Latitude:  stopLocs[0][1],
				Arrival:   arrival(0),
				Departure: departure(0),
				helper:    true,
			}
			pts = slices.Insert(pts, 0, helper)
			firstStop = 1
		}

		n := len(pts)
		_, dist, _, atB := nearestOnSegment(stopLocs[lastStop], pts[n-2].position(), pts[n-1].position())
		if atB && dist > 0 {
			helper := Coordinate{
				Longitude: stopLocs[lastStop][0],
				Latitude:  stopLocs[lastStop][1],
				Arrival:   arrival(lastStop),
				Departure: departure(lastStop),
				helper:    true,
			}
			pts = append(pts, helper)
			lastStop--
		}
	}

	shapePos := make([]position, len(pts))
	for i, p := range pts {
		shapePos[i] = p.position()
	}
	var matchable []position
	if firstStop <= lastStop {
		matchable = stopLocs[firstStop : lastStop+1]
	}

	inserted := 0
	for m := range matchPointsWithShape(shapePos, matchable) {
		stop := firstStop + m.PointIdx
		if m.SegStart == m.SegEnd {
			pts[m.SegStart+inserted].Arrival = arrival(stop)
			pts[m.SegStart+inserted].Departure = departure(stop)
			continue
		}
		foot := Coordinate{
			Longitude: m.Nearest[0],
			Latitude:  m.Nearest[1],
			Arrival:   arrival(stop),
			Departure: departure(stop),
		}
		pts = slices.Insert(pts, m.SegEnd+inserted, foot)
		inserted++
	}

	interpolateTimes(pts)
	extrapolateTimes(pts)

	pts = slices.DeleteFunc(pts, func(c Coordinate) bool { return c.helper })

	return Trajectory{
		Type: "Feature",
		Properties: Properties{
			ShapeID:    shapeID,
			ScheduleID: schedule.ID,
		},
		Geometry: LineString{Type: "LineString", Coordinates: pts},
	}, nil
}

func timePtr(t int64) *int64 {
	if t == gtfs.NoTime {
		return nil
	}
	return &t
}

// interpolateTimes fills runs of untimed points strictly between two timed
// points, assuming constant speed along the polyline.
func interpolateTimes(pts []Coordinate) {
	prev := -1
	for i := range pts {
		if pts[i].Arrival == nil {
			continue
		}
		if prev >= 0 && i-prev > 1 {
			from := *pts[prev].Arrival
			if pts[prev].Departure != nil {
				from = *pts[prev].Departure
			}
			dTime := float64(*pts[i].Arrival - from)

			total := 0.0
			dists := make([]float64, i-prev)
			for j := prev + 1; j <= i; j++ {
				dists[j-prev-1] = distanceKm(pts[j-1].position(), pts[j].position())
				total += dists[j-prev-1]
			}
			if total > 0 {
				run := 0.0
				for j := prev + 1; j < i; j++ {
					run += dists[j-prev-1]
					t := int64(math.Round(float64(from) + dTime*run/total))
					pts[j].Arrival = &t
					dep := t
					pts[j].Departure = &dep
				}
			}
		}
		prev = i
	}
}

// extrapolateTimes projects the local velocity of the nearest two timed
// points outward, filling untimed points before the first timed point and
// after the last. With fewer than two timed points nothing can be derived
// and the points stay untimed.
func extrapolateTimes(pts []Coordinate) {
	var timed []int
	for i := range pts {
		if pts[i].Arrival != nil {
			timed = append(timed, i)
		}
	}
	if len(timed) < 2 {
		return
	}

	pathDist := func(from, to int) float64 {
		total := 0.0
		for j := from + 1; j <= to; j++ {
			total += distanceKm(pts[j-1].position(), pts[j].position())
		}
		return total
	}

	f0, f1 := timed[0], timed[1]
	if dist := pathDist(f0, f1); f0 > 0 && dist > 0 {
		secsPerKm := float64(*pts[f1].Arrival-*pts[f0].Arrival) / dist
		for i := f0 - 1; i >= 0; i-- {
			t := int64(math.Round(float64(*pts[f0].Arrival) - pathDist(i, f0)*secsPerKm))
			arr, dep := t, t
			pts[i].Arrival = &arr
			pts[i].Departure = &dep
		}
	}

	l0, l1 := timed[len(timed)-2], timed[len(timed)-1]
	if dist := pathDist(l0, l1); l1 < len(pts)-1 && dist > 0 {
		secsPerKm := float64(*pts[l1].Arrival-*pts[l0].Arrival) / dist
		anchor := *pts[l1].Arrival
		if pts[l1].Departure != nil {
			anchor = *pts[l1].Departure
		}
		for i := l1 + 1; i < len(pts); i++ {
			t := int64(math.Round(float64(anchor) + pathDist(l1, i)*secsPerKm))
			arr, dep := t, t
			pts[i].Arrival = &arr
			pts[i].Departure = &dep
		}
	}
}
