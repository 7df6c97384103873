package feed

import (
	"encoding/csv"
	"errors"
	"io"
	"iter"
	"sync"

	"github.com/gocarina/gocsv"
)

var csvReaderSetup sync.Once

// Allow records with missing trailing columns, which are common in
// real-world feeds.
func setupCSVReader() {
	csvReaderSetup.Do(func() {
		gocsv.SetCSVReader(func(in io.Reader) gocsv.CSVReader {
			r := csv.NewReader(in)
			r.FieldsPerRecord = -1
			return r
		})
	})
}

var errStopDecoding = errors.New("stop decoding")

// decodeTable streams a CSV table into row structs of type T. The open
// callback is invoked lazily on first pull, so constructing the sequence is
// free and an absent optional table only surfaces once iterated.
func decodeTable[T any](file string, open func() (io.ReadCloser, error)) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T

		f, err := open()
		if err != nil {
			yield(zero, err)
			return
		}
		defer f.Close()

		setupCSVReader()
		row := 1 // the header line
		err = gocsv.UnmarshalToCallbackWithError(f, func(record T) error {
			row++
			if !yield(record, nil) {
				return errStopDecoding
			}
			return nil
		})
		if err != nil && !errors.Is(err, errStopDecoding) {
			yield(zero, &RowError{File: file, Row: row + 1, Err: err})
		}
	}
}
