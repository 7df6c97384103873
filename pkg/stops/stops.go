// Package stops reads the stops table: locations, station hierarchy and
// per-stop timezones.
package stops

import (
	"context"

	"github.com/gtfskit/gtfskit/pkg/feed"
	"github.com/gtfskit/gtfskit/pkg/gtfs"
	"github.com/gtfskit/gtfskit/pkg/store"
)

// Location is a [longitude, latitude] pair.
type Location [2]float64

func isStopOrStation(s gtfs.Stop) bool {
	switch s.Type {
	case "", gtfs.LocationTypeStop, gtfs.LocationTypeStation:
		return true
	}
	return false
}

// ReadLocations fills st with stop ID → [lon, lat] for every stop and
// station. Entrances, generic nodes and boarding areas are skipped.
func ReadLocations(ctx context.Context, rd feed.Reader, filters feed.Filters, st store.Store[Location]) error {
	filters = filters.WithDefaults()
	for s, err := range rd.Stops() {
		if err != nil {
			return err
		}
		if !isStopOrStation(s) || !filters.Stop(s) {
			continue
		}
		if err := st.Set(ctx, s.ID, Location{s.Longitude, s.Latitude}); err != nil {
			return err
		}
	}
	return nil
}

// ReadTimezones fills st with stop ID → stop_timezone. A station's timezone
// takes precedence over its platforms' own values. Stops without any
// timezone get an empty string; callers
// fall back to the feed's default timezone.
func ReadTimezones(ctx context.Context, rd feed.Reader, filters feed.Filters, st store.Store[string]) error {
	filters = filters.WithDefaults()

	parents := map[string]string{}
	for s, err := range rd.Stops() {
		if err != nil {
			return err
		}
		if !isStopOrStation(s) || !filters.Stop(s) {
			continue
		}
		if err := st.Set(ctx, s.ID, s.Timezone); err != nil {
			return err
		}
		if s.Type != gtfs.LocationTypeStation && s.Parent != "" {
			parents[s.ID] = s.Parent
		}
	}

	for id, parentID := range parents {
		parentTz, ok, err := st.Get(ctx, parentID)
		if err != nil {
			return err
		}
		if ok && parentTz != "" {
			if err := st.Set(ctx, id, parentTz); err != nil {
				return err
			}
		}
	}
	return nil
}

// ReadStations fills st with stop ID → station ID, resolving parent_station
// one level per pass order (a platform whose parent appeared earlier in the
// file resolves to the parent's own station).
func ReadStations(ctx context.Context, rd feed.Reader, filters feed.Filters, st store.Store[string]) error {
	filters = filters.WithDefaults()
	for s, err := range rd.Stops() {
		if err != nil {
			return err
		}
		if !filters.Stop(s) {
			continue
		}

		stationID := s.ID
		if s.Parent != "" {
			stationID = s.Parent
			if resolved, ok, err := st.Get(ctx, s.Parent); err != nil {
				return err
			} else if ok {
				stationID = resolved
			}
		}
		if err := st.Set(ctx, s.ID, stationID); err != nil {
			return err
		}
	}
	return nil
}

// Record is one stop with, for stations, the IDs of its child stops.
type Record struct {
	gtfs.Stop
	ChildStops []string
}

// ReadHierarchy reads all stops and stations and links platforms to their
// parent stations. Generic nodes and boarding areas are not supported yet
// and are skipped.
func ReadHierarchy(rd feed.Reader, filters feed.Filters) (map[string]*Record, error) {
	filters = filters.WithDefaults()

	records := map[string]*Record{}
	for s, err := range rd.Stops() {
		if err != nil {
			return nil, err
		}
		if s.Type == gtfs.LocationTypeGenericNode || s.Type == gtfs.LocationTypeBoardingArea {
			continue
		}
		if !filters.Stop(s) {
			continue
		}
		records[s.ID] = &Record{Stop: s}
	}

	for id, record := range records {
		isStop := record.Type == "" || record.Type == gtfs.LocationTypeStop
		if !isStop || record.Parent == "" {
			continue
		}
		if station, ok := records[record.Parent]; ok {
			station.ChildStops = append(station.ChildStops, id)
		}
	}
	return records, nil
}
