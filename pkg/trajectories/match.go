package trajectories

import (
	"iter"
	"math"
)

// match assigns one point to a location on the shape. SegStart == SegEnd
// means the point snapped onto that shape vertex; SegStart+1 == SegEnd means
// Nearest is the perpendicular foot in the interior of the segment
// (SegStart, SegEnd), to be inserted before index SegEnd.
type match struct {
	SegStart int
	SegEnd   int
	Nearest  position
	Distance float64
	PointIdx int
}

// matchCutoffKm is how far a point may sit from the shape and still be
// snapped onto it. Points further away are left for interpolation.
const matchCutoffKm = 0.3

// matchPointsWithShape walks the shape segment by segment and greedily
// assigns each point, in order, to the place where the shape stops
// approaching it: the moment the distance to the current point grows again,
// the previous segment's nearest location wins. An exact hit on a shape
// vertex short-circuits.
func matchPointsWithShape(shape []position, points []position) iter.Seq[match] {
	return func(yield func(match) bool) {
		pointsIdx := 0
		prevPrevDistance := math.Inf(1)
		prevDistance := math.Inf(1)
		iPrevNearest := -1
		var prevNearest position

		reset := func() {
			prevPrevDistance = math.Inf(1)
			prevDistance = math.Inf(1)
			iPrevNearest = -1
			pointsIdx++
		}

		for i := 1; i < len(shape) && pointsIdx < len(points); i++ {
			pt := points[pointsIdx]
			nearest, dist, atA, atB := nearestOnSegment(pt, shape[i-1], shape[i])

			iNearest := -1
			if atA {
				iNearest = i - 1
			} else if atB {
				iNearest = i
			}

			if dist == 0 && iNearest >= 0 {
				if !yield(match{iNearest, iNearest, shape[iNearest], 0, pointsIdx}) {
					return
				}
				reset()
				i-- // nearest was this segment, reconsider it for the next point
				continue
			}

			// The shape came closest to the point during the previous
			// segment and is moving away again.
			if prevDistance < prevPrevDistance && dist >= prevDistance && prevDistance < matchCutoffKm {
				m := match{iPrevNearest, iPrevNearest, prevNearest, prevDistance, pointsIdx}
				if iPrevNearest < 0 {
					// perpendicular foot in the previous segment's interior
					m.SegStart = i - 2
					m.SegEnd = i - 1
				}
				if !yield(m) {
					return
				}
				reset()
				i--
				continue
			}

			prevPrevDistance = prevDistance
			prevDistance = dist
			prevNearest = nearest
			if atA {
				iPrevNearest = i - 1
			} else if atB {
				iPrevNearest = i
			} else {
				iPrevNearest = -1
			}
		}
	}
}
