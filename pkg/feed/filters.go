package feed

import (
	"github.com/gtfskit/gtfskit/pkg/gtfs"
)

// Filters holds one acceptance predicate per row kind. A nil predicate
// accepts every row.
type Filters struct {
	Trip             func(gtfs.Trip) bool
	StopTime         func(gtfs.StopTime) bool
	Service          func(gtfs.Calendar) bool
	ServiceException func(gtfs.CalendarDate) bool
	FrequenciesRow   func(gtfs.Frequency) bool
	ShapePoint       func(gtfs.ShapePoint) bool
	Stop             func(gtfs.Stop) bool
	Pathway          func(gtfs.Pathway) bool
}

func acceptAll[T any](f func(T) bool) func(T) bool {
	if f != nil {
		return f
	}
	return func(T) bool { return true }
}

// WithDefaults fills every nil predicate with accept-all.
func (f Filters) WithDefaults() Filters {
	return Filters{
		Trip:             acceptAll(f.Trip),
		StopTime:         acceptAll(f.StopTime),
		Service:          acceptAll(f.Service),
		ServiceException: acceptAll(f.ServiceException),
		FrequenciesRow:   acceptAll(f.FrequenciesRow),
		ShapePoint:       acceptAll(f.ShapePoint),
		Stop:             acceptAll(f.Stop),
		Pathway:          acceptAll(f.Pathway),
	}
}
