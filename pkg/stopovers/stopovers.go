// Package stopovers resolves every halt of every trip against the calendar:
// one record per (trip, served date, stop), with absolute arrival and
// departure instants.
package stopovers

import (
	"context"
	"iter"

	"github.com/rs/zerolog/log"

	"github.com/gtfskit/gtfskit/pkg/calendar"
	"github.com/gtfskit/gtfskit/pkg/civiltime"
	"github.com/gtfskit/gtfskit/pkg/feed"
	"github.com/gtfskit/gtfskit/pkg/gtfs"
	"github.com/gtfskit/gtfskit/pkg/stops"
	"github.com/gtfskit/gtfskit/pkg/stoptimes"
	"github.com/gtfskit/gtfskit/pkg/store"
)

// Stopover is one halt of one trip on one service day. Arrival and Departure
// are unix timestamps, or gtfs.NoTime where the feed omits the value.
type Stopover struct {
	StopID       string    `json:"stopId"`
	TripID       string    `json:"tripId"`
	ServiceID    string    `json:"serviceId"`
	RouteID      string    `json:"routeId"`
	StartOfTrip  gtfs.Date `json:"startOfTrip"`
	Arrival      int64     `json:"arrival"`
	Departure    int64     `json:"departure"`
	HeadwayBased bool      `json:"headwayBased,omitempty"`
}

// Options configures Compute.
type Options struct {
	// Timezone is the feed's default IANA timezone, used for stops without
	// their own stop_timezone. Required.
	Timezone string
	// Timezones overrides the stop → timezone lookup. Read from the feed
	// when nil.
	Timezones store.Store[string]
}

// Compute yields all stopovers of the feed. Trips referencing an unknown
// service are skipped.
func Compute(ctx context.Context, rd feed.Reader, filters feed.Filters, opt Options) iter.Seq2[Stopover, error] {
	return func(yield func(Stopover, error) bool) {
		fail := func(err error) {
			yield(Stopover{}, err)
		}
		if opt.Timezone == "" {
			fail(gtfs.Invalidf("a default feed timezone is required"))
			return
		}

		services, err := calendar.ReadServices(rd, filters, calendar.ReadOptions{})
		if err != nil {
			fail(err)
			return
		}

		timezones := opt.Timezones
		if timezones == nil {
			timezones = store.NewMemory[string]()
			if err := stops.ReadTimezones(ctx, rd, filters, timezones); err != nil {
				fail(err)
				return
			}
		}

		resolver := civiltime.NewResolver()
		resolve := func(stopID string, day gtfs.Date, seconds int64) (int64, error) {
			if seconds == gtfs.NoTime {
				return gtfs.NoTime, nil
			}
			tz, ok, err := timezones.Get(ctx, stopID)
			if err != nil {
				return 0, err
			}
			if !ok || tz == "" {
				tz = opt.Timezone
			}
			return resolver.Resolve(tz, day, seconds)
		}

		for t, err := range stoptimes.ReadStopTimes(rd, filters) {
			if err != nil {
				fail(err)
				return
			}

			days, ok := services[t.ServiceID]
			if !ok {
				log.Debug().
					Str("trip", t.TripID).
					Str("service", t.ServiceID).
					Msg("Skipping trip with unknown service")
				continue
			}

			var t0 int64
			if len(t.Arrivals) > 0 {
				t0 = t.Arrivals[0]
			}

			for _, day := range days {
				for i := range t.Stops {
					arr, err := resolve(t.Stops[i], day, t.Arrivals[i])
					if err != nil {
						fail(err)
						return
					}
					dep, err := resolve(t.Stops[i], day, t.Departures[i])
					if err != nil {
						fail(err)
						return
					}
					s := Stopover{
						StopID:      t.Stops[i],
						TripID:      t.TripID,
						ServiceID:   t.ServiceID,
						RouteID:     t.RouteID,
						StartOfTrip: day,
						Arrival:     arr,
						Departure:   dep,
					}
					if !yield(s, nil) {
						return
					}
				}

				for _, w := range t.HeadwayWindows {
					for start := w.Start; start < w.End; start += w.Headway {
						for i := range t.Stops {
							arr, err := resolve(t.Stops[i], day, shift(t.Arrivals[i], start-t0))
							if err != nil {
								fail(err)
								return
							}
							dep, err := resolve(t.Stops[i], day, shift(t.Departures[i], start-t0))
							if err != nil {
								fail(err)
								return
							}
							s := Stopover{
								StopID:       t.Stops[i],
								TripID:       t.TripID,
								ServiceID:    t.ServiceID,
								RouteID:      t.RouteID,
								StartOfTrip:  day,
								Arrival:      arr,
								Departure:    dep,
								HeadwayBased: true,
							}
							if !yield(s, nil) {
								return
							}
						}
					}
				}
			}
		}
	}
}

func shift(t, by int64) int64 {
	if t == gtfs.NoTime {
		return gtfs.NoTime
	}
	return t + by
}
