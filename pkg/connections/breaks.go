package connections

import (
	"context"
	"iter"

	"github.com/gtfskit/gtfskit/pkg/store"
)

// ServiceBreak is a gap in service between two stops: no vehicle left
// FromStop towards ToStop between Start and End. RouteID and ServiceID
// describe the connection the break follows.
type ServiceBreak struct {
	FromStop  string `json:"fromStop"`
	ToStop    string `json:"toStop"`
	Start     int64  `json:"start"`
	End       int64  `json:"end"`
	Duration  int64  `json:"duration"`
	RouteID   string `json:"routeId"`
	ServiceID string `json:"serviceId"`
}

// BreaksOptions configures ServiceBreaks.
type BreaksOptions struct {
	// MinLength is the smallest gap reported, in seconds. Defaults to 600.
	MinLength int64
	// Store tracks the previous departure per stop pair. Defaults to an
	// in-memory store.
	Store store.Store[LastDeparture]
}

// LastDeparture is the per-stop-pair tracking record.
type LastDeparture struct {
	Departure int64  `json:"departure"`
	RouteID   string `json:"routeId"`
	ServiceID string `json:"serviceId"`
}

// ServiceBreaks scans a departure-sorted connection stream and yields every
// gap of at least MinLength between consecutive departures of the same
// (fromStop, toStop) pair. Gaps before the first and after the last
// connection of a pair are not detected, the stream has no boundary markers.
func ServiceBreaks(ctx context.Context, conns iter.Seq2[Connection, error], opt BreaksOptions) iter.Seq2[ServiceBreak, error] {
	minLength := opt.MinLength
	if minLength <= 0 {
		minLength = 10 * 60
	}
	prevDeps := opt.Store
	if prevDeps == nil {
		prevDeps = store.NewMemory[LastDeparture]()
	}

	return func(yield func(ServiceBreak, error) bool) {
		for c, err := range conns {
			if err != nil {
				yield(ServiceBreak{}, err)
				return
			}

			key := c.FromStop + "-" + c.ToStop
			prev, ok, err := prevDeps.Get(ctx, key)
			if err != nil {
				yield(ServiceBreak{}, err)
				return
			}

			if ok && c.Departure-prev.Departure >= minLength {
				brk := ServiceBreak{
					FromStop:  c.FromStop,
					ToStop:    c.ToStop,
					Start:     prev.Departure,
					End:       c.Departure,
					Duration:  c.Departure - prev.Departure,
					RouteID:   prev.RouteID,
					ServiceID: prev.ServiceID,
				}
				if !yield(brk, nil) {
					return
				}
			}

			err = prevDeps.Set(ctx, key, LastDeparture{
				Departure: c.Departure,
				RouteID:   c.RouteID,
				ServiceID: c.ServiceID,
			})
			if err != nil {
				yield(ServiceBreak{}, err)
				return
			}
		}
	}
}
