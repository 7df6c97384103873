package feed

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"iter"
	"os"
	"path/filepath"

	"github.com/gtfskit/gtfskit/pkg/gtfs"
)

// DirReader reads a feed from a directory of .txt files.
type DirReader struct {
	path string
}

func NewDirReader(path string) *DirReader {
	return &DirReader{path: path}
}

func (r *DirReader) open(file string) func() (io.ReadCloser, error) {
	return func() (io.ReadCloser, error) {
		f, err := os.Open(filepath.Join(r.path, file))
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", file, ErrNotFound)
		}
		return f, err
	}
}

func (r *DirReader) Trips() iter.Seq2[gtfs.Trip, error] {
	return decodeTable[gtfs.Trip]("trips.txt", r.open("trips.txt"))
}

func (r *DirReader) StopTimes() iter.Seq2[gtfs.StopTime, error] {
	return decodeTable[gtfs.StopTime]("stop_times.txt", r.open("stop_times.txt"))
}

func (r *DirReader) Calendars() iter.Seq2[gtfs.Calendar, error] {
	return decodeTable[gtfs.Calendar]("calendar.txt", r.open("calendar.txt"))
}

func (r *DirReader) CalendarDates() iter.Seq2[gtfs.CalendarDate, error] {
	return decodeTable[gtfs.CalendarDate]("calendar_dates.txt", r.open("calendar_dates.txt"))
}

func (r *DirReader) Frequencies() iter.Seq2[gtfs.Frequency, error] {
	return decodeTable[gtfs.Frequency]("frequencies.txt", r.open("frequencies.txt"))
}

func (r *DirReader) Shapes() iter.Seq2[gtfs.ShapePoint, error] {
	return decodeTable[gtfs.ShapePoint]("shapes.txt", r.open("shapes.txt"))
}

func (r *DirReader) Stops() iter.Seq2[gtfs.Stop, error] {
	return decodeTable[gtfs.Stop]("stops.txt", r.open("stops.txt"))
}

func (r *DirReader) Pathways() iter.Seq2[gtfs.Pathway, error] {
	return decodeTable[gtfs.Pathway]("pathways.txt", r.open("pathways.txt"))
}
