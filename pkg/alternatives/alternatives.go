// Package alternatives searches deduplicated schedules for trips running
// between two stops within a time window.
package alternatives

import (
	"context"
	"iter"
	"slices"

	"github.com/gtfskit/gtfskit/pkg/civiltime"
	"github.com/gtfskit/gtfskit/pkg/feed"
	"github.com/gtfskit/gtfskit/pkg/gtfs"
	"github.com/gtfskit/gtfskit/pkg/schedules"
	"github.com/gtfskit/gtfskit/pkg/stops"
	"github.com/gtfskit/gtfskit/pkg/store"
)

// Alternative is one trip departing FromStop no earlier and arriving at
// ToStop no later than the requested window. Departure and Arrival are unix
// timestamps.
type Alternative struct {
	TripID    string `json:"tripId"`
	RouteID   string `json:"routeId"`
	ServiceID string `json:"serviceId"`
	Departure int64  `json:"departure"`
	Arrival   int64  `json:"arrival"`
}

type tripInfo struct {
	ServiceID string `json:"serviceId"`
	RouteID   string `json:"routeId"`
}

// Finder answers alternative-trip queries against one feed. Building it
// reads trips and stop timezones once; Find itself touches no feed files.
type Finder struct {
	timezone  string
	timezones store.Store[string]
	trips     store.Store[tripInfo]
	services  map[string][]gtfs.Date
	schedules store.Store[schedules.Schedule]
	resolver  *civiltime.Resolver
}

// NewFinder prepares a Finder. timezone is the feed's default IANA timezone,
// services maps service IDs to their served dates.
func NewFinder(ctx context.Context, rd feed.Reader, timezone string, services map[string][]gtfs.Date, scheds store.Store[schedules.Schedule]) (*Finder, error) {
	if timezone == "" {
		return nil, gtfs.Invalidf("a default feed timezone is required")
	}

	timezones := store.NewMemory[string]()
	if err := stops.ReadTimezones(ctx, rd, feed.Filters{}, timezones); err != nil {
		return nil, err
	}

	trips := store.NewMemory[tripInfo]()
	for t, err := range rd.Trips() {
		if err != nil {
			return nil, err
		}
		err = trips.Set(ctx, t.ID, tripInfo{ServiceID: t.ServiceID, RouteID: t.RouteID})
		if err != nil {
			return nil, err
		}
	}

	return &Finder{
		timezone:  timezone,
		timezones: timezones,
		trips:     trips,
		services:  services,
		schedules: scheds,
		resolver:  civiltime.NewResolver(),
	}, nil
}

func (f *Finder) timezoneOf(ctx context.Context, stopID string) (string, error) {
	tz, ok, err := f.timezones.Get(ctx, stopID)
	if err != nil {
		return "", err
	}
	if !ok || tz == "" {
		return f.timezone, nil
	}
	return tz, nil
}

// Find yields every trip serving fromStop then toStop, in that direction,
// departing at or after notBefore and arriving at or before notAfter (unix
// timestamps). The sequence is lazy; callers stop iterating once they have
// enough.
func (f *Finder) Find(ctx context.Context, fromStop string, notBefore int64, toStop string, notAfter int64) iter.Seq2[Alternative, error] {
	return func(yield func(Alternative, error) bool) {
		fail := func(err error) {
			yield(Alternative{}, err)
		}
		if fromStop == "" || toStop == "" {
			fail(gtfs.Invalidf("fromStop and toStop must be non-empty"))
			return
		}
		if fromStop == toStop {
			fail(gtfs.Invalidf("fromStop and toStop must be different"))
			return
		}
		if notBefore >= notAfter {
			fail(gtfs.Invalidf("the departure bound must lie before the arrival bound"))
			return
		}

		fromTz, err := f.timezoneOf(ctx, fromStop)
		if err != nil {
			fail(err)
			return
		}
		toTz, err := f.timezoneOf(ctx, toStop)
		if err != nil {
			fail(err)
			return
		}

		for sched, err := range f.schedules.Values(ctx) {
			if err != nil {
				fail(err)
				return
			}

			fromIdx := slices.Index(sched.Stops, fromStop)
			if fromIdx < 0 {
				continue
			}
			toIdx := slices.Index(sched.Stops, toStop)
			if toIdx < 0 || toIdx < fromIdx {
				continue
			}

			// relative duration already longer than the window, prune
			// before resolving any dates
			relDep := sched.Departures[fromIdx]
			relArr := sched.Arrivals[toIdx]
			if relDep == gtfs.NoTime || relArr == gtfs.NoTime {
				continue
			}
			if relArr-relDep > notAfter-notBefore {
				continue
			}

			for _, ref := range sched.Trips {
				trip, ok, err := f.trips.Get(ctx, ref.TripID)
				if err != nil {
					fail(err)
					return
				}
				if !ok {
					continue
				}
				dates, ok := f.services[trip.ServiceID]
				if !ok {
					continue
				}

				for _, date := range dates {
					dep, err := f.resolver.Resolve(fromTz, date, ref.Start+relDep)
					if err != nil {
						fail(err)
						return
					}
					if dep < notBefore {
						continue
					}
					arr, err := f.resolver.Resolve(toTz, date, ref.Start+relArr)
					if err != nil {
						fail(err)
						return
					}
					if arr > notAfter {
						continue
					}

					alt := Alternative{
						TripID:    ref.TripID,
						RouteID:   trip.RouteID,
						ServiceID: trip.ServiceID,
						Departure: dep,
						Arrival:   arr,
					}
					if !yield(alt, nil) {
						return
					}
				}
			}
		}
	}
}
