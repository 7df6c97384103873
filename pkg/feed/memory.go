package feed

import (
	"fmt"
	"iter"
	"slices"

	"github.com/gtfskit/gtfskit/pkg/gtfs"
)

// MemoryReader serves already-materialized rows. Used by tests and by
// callers that obtained rows from somewhere other than a CSV feed.
type MemoryReader struct {
	TripRows         []gtfs.Trip
	StopTimeRows     []gtfs.StopTime
	CalendarRows     []gtfs.Calendar
	CalendarDateRows []gtfs.CalendarDate
	FrequencyRows    []gtfs.Frequency
	ShapeRows        []gtfs.ShapePoint
	StopRows         []gtfs.Stop
	PathwayRows      []gtfs.Pathway

	// Absent lists table names ("frequencies", "calendar", ...) that should
	// behave as missing files rather than empty ones.
	Absent []string
}

func memTable[T any](r *MemoryReader, table string, rows []T) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		if slices.Contains(r.Absent, table) {
			var zero T
			yield(zero, fmt.Errorf("%s.txt: %w", table, ErrNotFound))
			return
		}
		for _, row := range rows {
			if !yield(row, nil) {
				return
			}
		}
	}
}

func (r *MemoryReader) Trips() iter.Seq2[gtfs.Trip, error] {
	return memTable(r, "trips", r.TripRows)
}

func (r *MemoryReader) StopTimes() iter.Seq2[gtfs.StopTime, error] {
	return memTable(r, "stop_times", r.StopTimeRows)
}

func (r *MemoryReader) Calendars() iter.Seq2[gtfs.Calendar, error] {
	return memTable(r, "calendar", r.CalendarRows)
}

func (r *MemoryReader) CalendarDates() iter.Seq2[gtfs.CalendarDate, error] {
	return memTable(r, "calendar_dates", r.CalendarDateRows)
}

func (r *MemoryReader) Frequencies() iter.Seq2[gtfs.Frequency, error] {
	return memTable(r, "frequencies", r.FrequencyRows)
}

func (r *MemoryReader) Shapes() iter.Seq2[gtfs.ShapePoint, error] {
	return memTable(r, "shapes", r.ShapeRows)
}

func (r *MemoryReader) Stops() iter.Seq2[gtfs.Stop, error] {
	return memTable(r, "stops", r.StopRows)
}

func (r *MemoryReader) Pathways() iter.Seq2[gtfs.Pathway, error] {
	return memTable(r, "pathways", r.PathwayRows)
}
