// Package shapes reads the shapes table, grouping rows into whole polylines.
package shapes

import (
	"iter"
	"strconv"
	"strings"

	"github.com/gtfskit/gtfskit/pkg/feed"
	"github.com/gtfskit/gtfskit/pkg/gtfs"
)

// Point is one vertex of a shape polyline.
type Point struct {
	Longitude    float64 `json:"lon"`
	Latitude     float64 `json:"lat"`
	Sequence     int64   `json:"sequence"`
	DistTraveled float64 `json:"distTraveled,omitempty"`
}

// Shape is one whole polyline, points in sequence order.
type Shape struct {
	ID     string  `json:"id"`
	Points []Point `json:"points"`
}

// Read yields one Shape per shape_id. The table must be sorted by
// (shape_id, shape_pt_sequence).
func Read(rd feed.Reader, filters feed.Filters) iter.Seq2[Shape, error] {
	filters = filters.WithDefaults()

	return func(yield func(Shape, error) bool) {
		checkSorting := feed.ExpectSorting("shapes.txt", func(a, b gtfs.ShapePoint) int {
			if c := strings.Compare(a.ShapeID, b.ShapeID); c != 0 {
				return c
			}
			seqA, _ := strconv.ParseInt(a.Sequence, 10, 64)
			seqB, _ := strconv.ParseInt(b.Sequence, 10, 64)
			return int(seqA - seqB)
		})

		current := Shape{}
		row := 1
		for s, err := range rd.Shapes() {
			if err != nil {
				yield(Shape{}, err)
				return
			}
			row++
			if !filters.ShapePoint(s) {
				continue
			}
			if err := checkSorting(s); err != nil {
				yield(Shape{}, err)
				return
			}

			if s.ShapeID != current.ID {
				if len(current.Points) > 0 {
					if !yield(current, nil) {
						return
					}
				}
				current = Shape{ID: s.ShapeID}
			}

			seq, err := strconv.ParseInt(s.Sequence, 10, 64)
			if err != nil {
				yield(Shape{}, feed.WithRow("shapes.txt", row, gtfs.Invalidf("shape_pt_sequence must be an integer, got %q", s.Sequence)))
				return
			}
			point := Point{
				Longitude: s.Longitude,
				Latitude:  s.Latitude,
				Sequence:  seq,
			}
			if s.DistTraveled != "" {
				dist, err := strconv.ParseFloat(s.DistTraveled, 64)
				if err != nil {
					yield(Shape{}, feed.WithRow("shapes.txt", row, gtfs.Invalidf("shape_dist_traveled must be a number, got %q", s.DistTraveled)))
					return
				}
				point.DistTraveled = dist
			}
			current.Points = append(current.Points, point)
		}

		if len(current.Points) > 0 {
			yield(current, nil)
		}
	}
}
