// Package schedules deduplicates trips into trip-start-relative timing
// patterns. Two trips with identical stop lists and identical relative
// timing collapse into one Schedule regardless of their absolute start
// times, which is the main space saving for large feeds.
package schedules

import (
	"context"
	"encoding/binary"
	"strconv"

	"github.com/cespare/xxhash/v2"

	"github.com/gtfskit/gtfskit/pkg/feed"
	"github.com/gtfskit/gtfskit/pkg/gtfs"
	"github.com/gtfskit/gtfskit/pkg/stoptimes"
	"github.com/gtfskit/gtfskit/pkg/store"
)

// TripRef names one trip following a schedule, and the absolute offset of
// its first arrival.
type TripRef struct {
	TripID string `json:"tripId"`
	Start  int64  `json:"start"`
}

// Schedule is one deduplicated timing pattern. Stops, Arrivals and
// Departures are immutable once the schedule exists; Trips grows as further
// matching trips are found. Times are relative to the first arrival.
type Schedule struct {
	ID             string                    `json:"id"`
	Trips          []TripRef                 `json:"trips"`
	Stops          []string                  `json:"stops"`
	Arrivals       []int64                   `json:"arrivals"`
	Departures     []int64                   `json:"departures"`
	HeadwayWindows []stoptimes.HeadwayWindow `json:"headwayWindows"`
}

// Signature computes the deduplication key over a relative timing pattern.
func Signature(stops []string, arrivals, departures []int64, windows []stoptimes.HeadwayWindow) string {
	h := xxhash.New()
	var buf [8]byte
	writeInt := func(v int64) {
		binary.LittleEndian.PutUint64(buf[:], uint64(v))
		h.Write(buf[:])
	}
	for _, s := range stops {
		h.WriteString(s)
		h.Write([]byte{0})
	}
	h.Write([]byte{1})
	for _, v := range arrivals {
		writeInt(v)
	}
	h.Write([]byte{1})
	for _, v := range departures {
		writeInt(v)
	}
	h.Write([]byte{1})
	for _, w := range windows {
		writeInt(w.Start)
		writeInt(w.End)
		writeInt(w.Headway)
	}
	return strconv.FormatUint(h.Sum64(), 16)
}

// Options configures Compute.
type Options struct {
	// Store receives the schedules, keyed by signature. Defaults to an
	// in-memory store.
	Store store.Store[Schedule]
	// Signature overrides the deduplication key function.
	Signature func(stops []string, arrivals, departures []int64, windows []stoptimes.HeadwayWindow) string
}

// Compute runs the Stop-Time Assembler over the whole feed and merges every
// trip into its schedule. It is an accumulator, not a stream transform: the
// returned store is complete only once Compute returns. Every accepted trip
// ends up in exactly one schedule's trip list.
func Compute(ctx context.Context, rd feed.Reader, filters feed.Filters, opt Options) (store.Store[Schedule], error) {
	schedules := opt.Store
	if schedules == nil {
		schedules = store.NewMemory[Schedule]()
	}
	signature := opt.Signature
	if signature == nil {
		signature = Signature
	}

	for assembled, err := range stoptimes.ReadStopTimes(rd, filters) {
		if err != nil {
			return nil, err
		}

		var start int64
		if len(assembled.Arrivals) > 0 {
			start = assembled.Arrivals[0]
		}
		arrivals := relativeTo(assembled.Arrivals, start)
		departures := relativeTo(assembled.Departures, start)

		id := signature(assembled.Stops, arrivals, departures, assembled.HeadwayWindows)
		ref := TripRef{TripID: assembled.TripID, Start: start}
		err = schedules.Update(ctx, id, func(schedule Schedule, ok bool) (Schedule, bool) {
			if !ok {
				return Schedule{
					ID:             id,
					Trips:          []TripRef{ref},
					Stops:          assembled.Stops,
					Arrivals:       arrivals,
					Departures:     departures,
					HeadwayWindows: assembled.HeadwayWindows,
				}, true
			}
			schedule.Trips = append(schedule.Trips, ref)
			return schedule, true
		})
		if err != nil {
			return nil, err
		}
	}

	return schedules, nil
}

func relativeTo(times []int64, start int64) []int64 {
	relative := make([]int64, len(times))
	for i, t := range times {
		if t == gtfs.NoTime {
			relative[i] = gtfs.NoTime
			continue
		}
		relative[i] = t - start
	}
	return relative
}
