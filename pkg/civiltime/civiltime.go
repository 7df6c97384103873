// Package civiltime turns feed-local times of day into absolute instants.
//
// GTFS measures times from "noon minus 12h" of the service day rather than
// from civil midnight: midnight is ambiguous or nonexistent on days with a
// DST transition, noon never is. Adding the time-of-day value in real
// elapsed seconds to that anchor also makes values beyond 24:00:00 roll into
// the following civil day for free.
package civiltime

import (
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/gtfskit/gtfskit/pkg/gtfs"
)

// Resolver resolves (timezone, service day, seconds) tuples to unix
// timestamps. It keeps bounded LRU caches of loaded zones and per-day base
// instants; one Resolver should live for one pipeline run.
type Resolver struct {
	zones *lru.Cache[string, *time.Location]
	bases *lru.Cache[string, int64]
}

func NewResolver() *Resolver {
	zones, err := lru.New[string, *time.Location](100)
	if err != nil {
		panic(err)
	}
	bases, err := lru.New[string, int64](100)
	if err != nil {
		panic(err)
	}
	return &Resolver{zones: zones, bases: bases}
}

func (r *Resolver) location(timezone string) (*time.Location, error) {
	if loc, ok := r.zones.Get(timezone); ok {
		return loc, nil
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, gtfs.Invalidf("unknown timezone %q", timezone)
	}
	r.zones.Add(timezone, loc)
	return loc, nil
}

// base returns "local noon of date, minus 12 hours" as a unix timestamp.
func (r *Resolver) base(timezone string, date gtfs.Date) (int64, error) {
	key := fmt.Sprintf("%s-%s", timezone, date)
	if base, ok := r.bases.Get(key); ok {
		return base, nil
	}

	loc, err := r.location(timezone)
	if err != nil {
		return 0, err
	}
	noon := time.Date(date.Year, date.Month, date.Day, 12, 0, 0, 0, loc)
	base := noon.Add(-12 * time.Hour).Unix()

	r.bases.Add(key, base)
	return base, nil
}

// Resolve computes the absolute instant of a time-of-day value (seconds,
// possibly beyond 86400) on the given service day in the given IANA
// timezone.
func (r *Resolver) Resolve(timezone string, date gtfs.Date, seconds int64) (int64, error) {
	if timezone == "" {
		return 0, gtfs.Invalidf("timezone must be a non-empty string")
	}
	base, err := r.base(timezone, date)
	if err != nil {
		return 0, err
	}
	return base + seconds, nil
}
