// Package feed gives streaming access to the tables of a GTFS schedule feed.
//
// Every table is exposed as a lazy, single-pass sequence. Consumers that stop
// iterating cause no further reads. Optional tables signal their absence with
// ErrNotFound so callers can distinguish "no such file" from real I/O errors.
package feed

import (
	"errors"
	"iter"

	"github.com/gtfskit/gtfskit/pkg/gtfs"
)

// ErrNotFound is yielded (wrapped) by a table sequence whose backing file
// does not exist in the feed.
var ErrNotFound = errors.New("table not found in feed")

// Reader reads the tables of one feed. Implementations must return rows in
// file order.
type Reader interface {
	Trips() iter.Seq2[gtfs.Trip, error]
	StopTimes() iter.Seq2[gtfs.StopTime, error]
	Calendars() iter.Seq2[gtfs.Calendar, error]
	CalendarDates() iter.Seq2[gtfs.CalendarDate, error]
	Frequencies() iter.Seq2[gtfs.Frequency, error]
	Shapes() iter.Seq2[gtfs.ShapePoint, error]
	Stops() iter.Seq2[gtfs.Stop, error]
	Pathways() iter.Seq2[gtfs.Pathway, error]
}
