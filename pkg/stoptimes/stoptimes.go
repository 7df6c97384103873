// Package stoptimes assembles per-trip stop sequences from the trips,
// stop_times and frequencies tables via a single-pass sort-merge join.
package stoptimes

import (
	"errors"
	"iter"
	"slices"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/gtfskit/gtfskit/pkg/feed"
	"github.com/gtfskit/gtfskit/pkg/gtfs"
)

// HeadwayWindow describes frequency-based service: the trip's relative
// pattern repeats every Headway seconds for virtual start times in
// [Start, End).
type HeadwayWindow struct {
	Start   int64 `json:"start"`
	End     int64 `json:"end"`
	Headway int64 `json:"headway"`
}

// TripStopTimes is the assembled stop sequence of one trip: parallel arrays
// sorted by stop_sequence, times in seconds since noon-minus-12h of the
// service day. A trip with exact-times frequency rows contains one
// chronological repetition per run, flattened; headway-based windows stay
// metadata for consumers to expand on demand.
type TripStopTimes struct {
	TripID    string
	RouteID   string
	ServiceID string
	ShapeID   string

	Stops      []string
	Arrivals   []int64
	Departures []int64

	HeadwayWindows []HeadwayWindow
}

type run struct {
	stops []string
	arrs  []int64
	deps  []int64
}

// counted passes a stream through while tracking the current 1-based file
// row (header included) in *row.
func counted[T any](items iter.Seq2[T, error], row *int) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for item, err := range items {
			if err == nil {
				*row++
			}
			if !yield(item, err) {
				return
			}
		}
	}
}

// ReadStopTimes merge-joins trips against stop_times and frequencies. All
// three streams must be sorted by trip_id; stop_times rows may appear out of
// sequence order within a trip and are sorted defensively. Duplicate
// stop_sequence values and overlapping headway windows are data errors. A
// missing frequencies table is treated as empty.
func ReadStopTimes(rd feed.Reader, filters feed.Filters) iter.Seq2[TripStopTimes, error] {
	filters = filters.WithDefaults()

	return func(yield func(TripStopTimes, error) bool) {
		fail := func(err error) {
			yield(TripStopTimes{}, err)
		}

		checkTrips := feed.ExpectSorting("trips.txt", func(a, b gtfs.Trip) int {
			return strings.Compare(a.ID, b.ID)
		})
		checkStopTimes := feed.ExpectSorting("stop_times.txt", func(a, b gtfs.StopTime) int {
			return strings.Compare(a.TripID, b.TripID)
		})
		checkFrequencies := feed.ExpectSorting("frequencies.txt", func(a, b gtfs.Frequency) int {
			return strings.Compare(a.TripID, b.TripID)
		})

		stRow := 1
		matchStopTimes, stopStopTimes := Matching(func(t gtfs.Trip, s gtfs.StopTime) int {
			return strings.Compare(t.ID, s.TripID)
		}, counted(rd.StopTimes(), &stRow))
		defer stopStopTimes()

		freqRow := 1
		matchFrequencies, stopFrequencies := Matching(func(t gtfs.Trip, f gtfs.Frequency) int {
			return strings.Compare(t.ID, f.TripID)
		}, counted(rd.Frequencies(), &freqRow))
		defer stopFrequencies()

		for t, err := range rd.Trips() {
			if err != nil {
				fail(err)
				return
			}
			if !filters.Trip(t) {
				continue
			}
			if err := checkTrips(t); err != nil {
				fail(err)
				return
			}

			var seqs []int64
			base := run{}
			for s, err := range matchStopTimes(t) {
				if err != nil {
					fail(err)
					return
				}
				if !filters.StopTime(s) {
					continue
				}
				if err := checkStopTimes(s); err != nil {
					fail(err)
					return
				}

				seq, err := strconv.ParseInt(s.StopSequence, 10, 64)
				if err != nil {
					fail(feed.WithRow("stop_times.txt", stRow, gtfs.Invalidf("stop_sequence must be an integer, got %q", s.StopSequence)))
					return
				}
				arr, err := gtfs.ParseTime(s.ArrivalTime)
				if err != nil {
					fail(feed.WithRow("stop_times.txt", stRow, err))
					return
				}
				dep, err := gtfs.ParseTime(s.DepartureTime)
				if err != nil {
					fail(feed.WithRow("stop_times.txt", stRow, err))
					return
				}

				i, dup := slices.BinarySearch(seqs, seq)
				if dup {
					fail(feed.WithRow("stop_times.txt", stRow, gtfs.Invalidf("trip %q has two stop_times rows with stop_sequence %d", t.ID, seq)))
					return
				}
				seqs = slices.Insert(seqs, i, seq)
				base.stops = slices.Insert(base.stops, i, s.StopID)
				base.arrs = slices.Insert(base.arrs, i, arr)
				base.deps = slices.Insert(base.deps, i, dep)
			}

			runs := []run{base}
			var windows []HeadwayWindow
			for f, err := range matchFrequencies(t) {
				if err != nil {
					if errors.Is(err, feed.ErrNotFound) {
						break // no frequencies table, treat as empty
					}
					fail(err)
					return
				}
				if !filters.FrequenciesRow(f) {
					continue
				}
				if err := checkFrequencies(f); err != nil {
					fail(err)
					return
				}

				window, err := parseFrequency(f)
				if err != nil {
					fail(feed.WithRow("frequencies.txt", freqRow, err))
					return
				}

				if f.ExactTimes == "" || f.ExactTimes == "0" {
					// Frequency-based service: operators maintain
					// predetermined headways, there is no fixed schedule.
					i, _ := slices.BinarySearchFunc(windows, window, func(a, b HeadwayWindow) int {
						return int(a.Start - b.Start)
					})
					windows = slices.Insert(windows, i, window)
					continue
				}

				// Exact-times service: a compressed fixed schedule, one run
				// per repetition.
				if len(base.stops) == 0 || base.arrs[0] == gtfs.NoTime {
					log.Debug().
						Str("trip", t.ID).
						Msg("Skipping exact-times frequency row, trip has no usable first arrival")
					continue
				}
				t0 := base.arrs[0]
				for start := window.Start; start < window.End; start += window.Headway {
					repetition := run{
						stops: slices.Clone(base.stops),
						arrs:  make([]int64, len(base.arrs)),
						deps:  make([]int64, len(base.deps)),
					}
					for i := range base.arrs {
						repetition.arrs[i] = shiftTime(base.arrs[i], start-t0)
						repetition.deps[i] = shiftTime(base.deps[i], start-t0)
					}
					runs = append(runs, repetition)
				}
			}

			for i := 1; i < len(windows); i++ {
				if windows[i].Start < windows[i-1].End {
					fail(gtfs.Invalidf("trip %q has overlapping headway windows [%d, %d) and [%d, %d)",
						t.ID, windows[i-1].Start, windows[i-1].End, windows[i].Start, windows[i].End))
					return
				}
			}

			// sort runs chronologically, flatten into one sequence
			slices.SortStableFunc(runs, func(a, b run) int {
				if len(a.arrs) == 0 || len(b.arrs) == 0 {
					return len(a.arrs) - len(b.arrs)
				}
				return int(a.arrs[0] - b.arrs[0])
			})
			assembled := TripStopTimes{
				TripID:         t.ID,
				RouteID:        t.RouteID,
				ServiceID:      t.ServiceID,
				ShapeID:        t.ShapeID,
				HeadwayWindows: windows,
			}
			for _, r := range runs {
				assembled.Stops = append(assembled.Stops, r.stops...)
				assembled.Arrivals = append(assembled.Arrivals, r.arrs...)
				assembled.Departures = append(assembled.Departures, r.deps...)
			}

			if !yield(assembled, nil) {
				return
			}
		}
	}
}

func parseFrequency(f gtfs.Frequency) (HeadwayWindow, error) {
	start, err := gtfs.ParseTime(f.StartTime)
	if err != nil {
		return HeadwayWindow{}, err
	}
	end, err := gtfs.ParseTime(f.EndTime)
	if err != nil {
		return HeadwayWindow{}, err
	}
	if start == gtfs.NoTime || end == gtfs.NoTime {
		return HeadwayWindow{}, gtfs.Invalidf("frequencies rows must have start_time and end_time")
	}
	headway, err := strconv.ParseInt(f.HeadwaySecs, 10, 64)
	if err != nil || headway <= 0 {
		return HeadwayWindow{}, gtfs.Invalidf("headway_secs must be a positive integer, got %q", f.HeadwaySecs)
	}
	return HeadwayWindow{Start: start, End: end, Headway: headway}, nil
}

func shiftTime(t, by int64) int64 {
	if t == gtfs.NoTime {
		return gtfs.NoTime
	}
	return t + by
}
