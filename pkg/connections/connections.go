// Package connections expands assembled stop sequences into directed hops
// between consecutive stops, both trip-relative and as a calendar-resolved
// stream sorted by departure.
package connections

import (
	"iter"

	"github.com/gtfskit/gtfskit/pkg/feed"
	"github.com/gtfskit/gtfskit/pkg/gtfs"
	"github.com/gtfskit/gtfskit/pkg/stoptimes"
)

// Connection is one directed hop of a vehicle between two consecutive stops.
// Departure and Arrival are in seconds since noon-minus-12h of the service
// day for trip-relative connections, and unix timestamps for resolved ones.
type Connection struct {
	TripID       string `json:"tripId"`
	FromStop     string `json:"fromStop"`
	Departure    int64  `json:"departure"`
	ToStop       string `json:"toStop"`
	Arrival      int64  `json:"arrival"`
	RouteID      string `json:"routeId,omitempty"`
	ServiceID    string `json:"serviceId,omitempty"`
	HeadwayBased bool   `json:"headwayBased,omitempty"`
}

// fromTrip expands one assembled trip into its connections: one scheduled
// connection per adjacent stop pair, plus one virtual run of the whole
// pattern per headway window repetition.
func fromTrip(t stoptimes.TripStopTimes) []Connection {
	var conns []Connection

	for i := 1; i < len(t.Stops); i++ {
		conns = append(conns, Connection{
			TripID:    t.TripID,
			FromStop:  t.Stops[i-1],
			Departure: t.Departures[i-1],
			ToStop:    t.Stops[i],
			Arrival:   t.Arrivals[i],
			RouteID:   t.RouteID,
			ServiceID: t.ServiceID,
		})
	}

	if len(t.Arrivals) == 0 {
		return conns
	}
	t0 := t.Arrivals[0]
	for _, w := range t.HeadwayWindows {
		for start := w.Start; start < w.End; start += w.Headway {
			for i := 1; i < len(t.Stops); i++ {
				conns = append(conns, Connection{
					TripID:       t.TripID,
					FromStop:     t.Stops[i-1],
					Departure:    shift(t.Departures[i-1], start-t0),
					ToStop:       t.Stops[i],
					Arrival:      shift(t.Arrivals[i], start-t0),
					RouteID:      t.RouteID,
					ServiceID:    t.ServiceID,
					HeadwayBased: true,
				})
			}
		}
	}
	return conns
}

func shift(t, by int64) int64 {
	if t == gtfs.NoTime {
		return gtfs.NoTime
	}
	return t + by
}

// Compute yields, per trip, the batch of trip-relative connections derived
// from its stop sequence and headway windows.
func Compute(rd feed.Reader, filters feed.Filters) iter.Seq2[[]Connection, error] {
	return func(yield func([]Connection, error) bool) {
		for t, err := range stoptimes.ReadStopTimes(rd, filters) {
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(fromTrip(t), nil) {
				return
			}
		}
	}
}
