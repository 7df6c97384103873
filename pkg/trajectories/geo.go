package trajectories

import (
	"github.com/golang/geo/s2"
)

const earthRadiusKm = 6371.0088

// position is a [longitude, latitude] pair, GeoJSON order.
type position [2]float64

func (p position) s2Point() s2.Point {
	return s2.PointFromLatLng(s2.LatLngFromDegrees(p[1], p[0]))
}

func distanceKm(a, b position) float64 {
	return a.s2Point().Distance(b.s2Point()).Radians() * earthRadiusKm
}

// nearestOnSegment returns the point of the segment [a, b] closest to pt and
// its distance in km. atA/atB report whether that point is an endpoint; an
// interior result is the perpendicular foot on the segment.
func nearestOnSegment(pt, a, b position) (nearest position, distKm float64, atA, atB bool) {
	p := pt.s2Point()
	pa := a.s2Point()
	pb := b.s2Point()

	distToA := p.Distance(pa).Radians() * earthRadiusKm
	if distToA == 0 {
		return a, 0, true, false
	}
	distToB := p.Distance(pb).Radians() * earthRadiusKm
	if distToB == 0 {
		return b, 0, false, true
	}

	projected := s2.Project(p, pa, pb)
	dist := p.Distance(projected).Radians() * earthRadiusKm
	if dist < distToA && dist < distToB {
		ll := s2.LatLngFromPoint(projected)
		return position{ll.Lng.Degrees(), ll.Lat.Degrees()}, dist, false, false
	}
	if distToA < distToB {
		return a, distToA, true, false
	}
	return b, distToB, false, true
}
