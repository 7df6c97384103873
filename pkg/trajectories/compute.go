package trajectories

import (
	"context"
	"encoding/binary"
	"iter"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/pool"

	"github.com/gtfskit/gtfskit/pkg/feed"
	"github.com/gtfskit/gtfskit/pkg/schedules"
	"github.com/gtfskit/gtfskit/pkg/shapes"
	"github.com/gtfskit/gtfskit/pkg/stops"
	"github.com/gtfskit/gtfskit/pkg/store"
)

type tripInfo struct {
	ShapeID   string `json:"shapeId"`
	ServiceID string `json:"serviceId"`
}

// Options configures Compute.
type Options struct {
	// Locations overrides the stop → location lookup. Read from the feed
	// when nil.
	Locations store.Store[stops.Location]
	// Schedules overrides the schedule store given to the deduplicator.
	Schedules store.Store[schedules.Schedule]
}

// Compute builds one trajectory per trip of every schedule that has a shape.
// The trips, stops and shapes tables are independent of the schedule
// computation and are read concurrently with it.
func Compute(ctx context.Context, rd feed.Reader, filters feed.Filters, opt Options) iter.Seq2[Trajectory, error] {
	filters = filters.WithDefaults()

	return func(yield func(Trajectory, error) bool) {
		fail := func(err error) {
			yield(Trajectory{}, err)
		}

		trips := map[string]tripInfo{}
		locations := opt.Locations
		shapesByID := map[string][]shapes.Point{}
		var scheds store.Store[schedules.Schedule]

		p := pool.New().WithErrors().WithContext(ctx)
		p.Go(func(ctx context.Context) error {
			for t, err := range rd.Trips() {
				if err != nil {
					return err
				}
				if !filters.Trip(t) {
					continue
				}
				trips[t.ID] = tripInfo{ShapeID: t.ShapeID, ServiceID: t.ServiceID}
			}
			return nil
		})
		if locations == nil {
			locations = store.NewMemory[stops.Location]()
			p.Go(func(ctx context.Context) error {
				return stops.ReadLocations(ctx, rd, filters, locations)
			})
		}
		p.Go(func(ctx context.Context) error {
			for shape, err := range shapes.Read(rd, filters) {
				if err != nil {
					return err
				}
				shapesByID[shape.ID] = shape.Points
			}
			return nil
		})
		p.Go(func(ctx context.Context) error {
			var err error
			scheds, err = schedules.Compute(ctx, rd, filters, schedules.Options{Store: opt.Schedules})
			return err
		})
		if err := p.Wait(); err != nil {
			fail(err)
			return
		}

		for schedule, err := range scheds.Values(ctx) {
			if err != nil {
				fail(err)
				return
			}
			sig := temporalSignature(schedule)

			for _, ref := range schedule.Trips {
				trip, ok := trips[ref.TripID]
				if !ok || trip.ShapeID == "" || trip.ServiceID == "" {
					log.Debug().
						Str("trip", ref.TripID).
						Msg("Skipping trip without shape or service")
					continue
				}
				shape, ok := shapesByID[trip.ShapeID]
				if !ok {
					log.Debug().
						Str("trip", ref.TripID).
						Str("shape", trip.ShapeID).
						Msg("Skipping trip, shape not found")
					continue
				}

				tr, err := Build(ctx, trip.ShapeID, shape, schedule, locations)
				if err != nil {
					fail(err)
					return
				}
				tr.Properties.ID = sig + "-" + trip.ShapeID
				tr.Properties.TripID = ref.TripID
				tr.Properties.ServiceID = trip.ServiceID
				if !yield(tr, nil) {
					return
				}
			}
		}
	}
}

// temporalSignature distinguishes schedules by their stops and timing. The
// stop list alone would not do, two trips may serve the same stops with
// vastly different timing.
func temporalSignature(s schedules.Schedule) string {
	h := xxhash.New()
	var buf [8]byte
	writeInt := func(v int64) {
		binary.LittleEndian.PutUint64(buf[:], uint64(v))
		h.Write(buf[:])
	}
	for _, stop := range s.Stops {
		h.WriteString(stop)
		h.Write([]byte{0})
	}
	h.Write([]byte{1})
	for _, v := range s.Arrivals {
		writeInt(v)
	}
	h.Write([]byte{1})
	for _, v := range s.Departures {
		writeInt(v)
	}
	return strconv.FormatUint(h.Sum64(), 16)
}
