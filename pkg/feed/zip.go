package feed

import (
	"archive/zip"
	"fmt"
	"io"
	"iter"

	"github.com/gtfskit/gtfskit/pkg/gtfs"
)

// ZipReader reads a feed from a zip archive, the usual distribution format.
type ZipReader struct {
	archive *zip.ReadCloser
}

func NewZipReader(path string) (*ZipReader, error) {
	archive, err := zip.OpenReader(path)
	if err != nil {
		return nil, err
	}
	return &ZipReader{archive: archive}, nil
}

func (r *ZipReader) Close() error {
	return r.archive.Close()
}

func (r *ZipReader) open(file string) func() (io.ReadCloser, error) {
	return func() (io.ReadCloser, error) {
		for _, entry := range r.archive.File {
			if entry.Name == file {
				return entry.Open()
			}
		}
		return nil, fmt.Errorf("%s: %w", file, ErrNotFound)
	}
}

func (r *ZipReader) Trips() iter.Seq2[gtfs.Trip, error] {
	return decodeTable[gtfs.Trip]("trips.txt", r.open("trips.txt"))
}

func (r *ZipReader) StopTimes() iter.Seq2[gtfs.StopTime, error] {
	return decodeTable[gtfs.StopTime]("stop_times.txt", r.open("stop_times.txt"))
}

func (r *ZipReader) Calendars() iter.Seq2[gtfs.Calendar, error] {
	return decodeTable[gtfs.Calendar]("calendar.txt", r.open("calendar.txt"))
}

func (r *ZipReader) CalendarDates() iter.Seq2[gtfs.CalendarDate, error] {
	return decodeTable[gtfs.CalendarDate]("calendar_dates.txt", r.open("calendar_dates.txt"))
}

func (r *ZipReader) Frequencies() iter.Seq2[gtfs.Frequency, error] {
	return decodeTable[gtfs.Frequency]("frequencies.txt", r.open("frequencies.txt"))
}

func (r *ZipReader) Shapes() iter.Seq2[gtfs.ShapePoint, error] {
	return decodeTable[gtfs.ShapePoint]("shapes.txt", r.open("shapes.txt"))
}

func (r *ZipReader) Stops() iter.Seq2[gtfs.Stop, error] {
	return decodeTable[gtfs.Stop]("stops.txt", r.open("stops.txt"))
}

func (r *ZipReader) Pathways() iter.Seq2[gtfs.Pathway, error] {
	return decodeTable[gtfs.Pathway]("pathways.txt", r.open("pathways.txt"))
}
