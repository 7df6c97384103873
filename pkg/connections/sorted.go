package connections

import (
	"context"
	"iter"
	"slices"

	"github.com/rs/zerolog/log"

	"github.com/gtfskit/gtfskit/pkg/calendar"
	"github.com/gtfskit/gtfskit/pkg/civiltime"
	"github.com/gtfskit/gtfskit/pkg/feed"
	"github.com/gtfskit/gtfskit/pkg/gtfs"
	"github.com/gtfskit/gtfskit/pkg/stops"
	"github.com/gtfskit/gtfskit/pkg/store"
)

// SortedOptions configures ComputeSorted.
type SortedOptions struct {
	// Timezone is the feed's default IANA timezone, used for stops without
	// their own stop_timezone. Required.
	Timezone string
	// Services overrides the service → dates lookup. Computed from the feed
	// when nil.
	Services map[string][]gtfs.Date
	// Timezones overrides the stop → timezone lookup. Read from the feed
	// when nil.
	Timezones store.Store[string]
}

// ComputeSorted resolves every trip's connections against every date its
// service runs on and yields them sorted by absolute departure. The feed is
// organized by trip, not by time, so the whole set is collected and sorted
// before the first connection is yielded. Stop-level timezones take
// precedence over the feed default; cross-border feeds rely on that.
func ComputeSorted(ctx context.Context, rd feed.Reader, filters feed.Filters, opt SortedOptions) iter.Seq2[Connection, error] {
	return func(yield func(Connection, error) bool) {
		fail := func(err error) {
			yield(Connection{}, err)
		}
		if opt.Timezone == "" {
			fail(gtfs.Invalidf("a default feed timezone is required"))
			return
		}

		services := opt.Services
		if services == nil {
			var err error
			services, err = calendar.ReadServices(rd, filters, calendar.ReadOptions{})
			if err != nil {
				fail(err)
				return
			}
		}

		timezones := opt.Timezones
		if timezones == nil {
			timezones = store.NewMemory[string]()
			if err := stops.ReadTimezones(ctx, rd, filters, timezones); err != nil {
				fail(err)
				return
			}
		}
		timezoneOf := func(stopID string) (string, error) {
			tz, ok, err := timezones.Get(ctx, stopID)
			if err != nil {
				return "", err
			}
			if !ok || tz == "" {
				return opt.Timezone, nil
			}
			return tz, nil
		}

		resolver := civiltime.NewResolver()
		var sorted []Connection
		for batch, err := range Compute(rd, filters) {
			if err != nil {
				fail(err)
				return
			}
			for _, c := range batch {
				days, ok := services[c.ServiceID]
				if !ok {
					log.Debug().
						Str("trip", c.TripID).
						Str("service", c.ServiceID).
						Msg("Skipping connection of trip with unknown service")
					continue
				}
				if c.Departure == gtfs.NoTime || c.Arrival == gtfs.NoTime {
					continue
				}

				depTz, err := timezoneOf(c.FromStop)
				if err != nil {
					fail(err)
					return
				}
				arrTz, err := timezoneOf(c.ToStop)
				if err != nil {
					fail(err)
					return
				}

				for _, day := range days {
					resolved := c
					resolved.Departure, err = resolver.Resolve(depTz, day, c.Departure)
					if err != nil {
						fail(err)
						return
					}
					resolved.Arrival, err = resolver.Resolve(arrTz, day, c.Arrival)
					if err != nil {
						fail(err)
						return
					}
					sorted = append(sorted, resolved)
				}
			}
		}

		slices.SortStableFunc(sorted, func(a, b Connection) int {
			switch {
			case a.Departure < b.Departure:
				return -1
			case a.Departure > b.Departure:
				return 1
			}
			return 0
		})
		for _, c := range sorted {
			if !yield(c, nil) {
				return
			}
		}
	}
}
