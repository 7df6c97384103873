package feed

import (
	"fmt"
)

// RowError annotates a row-level processing error with the file name and the
// 1-based row number (counting the header line), so problems in large feeds
// can be located without halting on every row elsewhere.
type RowError struct {
	File string
	Row  int
	Err  error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("%s:%d: %v", e.File, e.Row, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}

// WithRow wraps err unless it is nil.
func WithRow(file string, row int, err error) error {
	if err == nil {
		return nil
	}
	return &RowError{File: file, Row: row, Err: err}
}

// SortingError reports that a stream violated its required sort order
// mid-join. The enclosing join is presumed structurally invalid and is not
// retried.
type SortingError struct {
	File        string
	Row         int
	PreviousRow any
	OffendingRow any
}

func (e *SortingError) Error() string {
	return fmt.Sprintf("%s is not sorted as needed (row %d)", e.File, e.Row)
}

// ExpectSorting returns a per-row check that fails with a SortingError as
// soon as two consecutive rows compare out of order.
func ExpectSorting[T any](file string, cmp func(a, b T) int) func(T) error {
	var prev T
	seen := false
	row := 0
	return func(v T) error {
		row++
		if seen && cmp(prev, v) > 0 {
			return &SortingError{
				File:         file,
				Row:          row,
				PreviousRow:  prev,
				OffendingRow: v,
			}
		}
		prev = v
		seen = true
		return nil
	}
}
