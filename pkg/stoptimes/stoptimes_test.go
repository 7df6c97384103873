package stoptimes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gtfskit/gtfskit/pkg/feed"
	"github.com/gtfskit/gtfskit/pkg/gtfs"
)

func st(trip, stop, seq, arr, dep string) gtfs.StopTime {
	return gtfs.StopTime{
		TripID: trip, StopID: stop, StopSequence: seq,
		ArrivalTime: arr, DepartureTime: dep,
	}
}

func collectTrips(t *testing.T, rd feed.Reader) map[string]TripStopTimes {
	t.Helper()
	out := map[string]TripStopTimes{}
	for trip, err := range ReadStopTimes(rd, feed.Filters{}) {
		require.NoError(t, err)
		out[trip.TripID] = trip
	}
	return out
}

func TestReadStopTimes(t *testing.T) {
	rd := &feed.MemoryReader{
		TripRows: []gtfs.Trip{
			{ID: "a1", RouteID: "A", ServiceID: "sA", ShapeID: "shpA"},
			{ID: "b1", RouteID: "B", ServiceID: "sB"},
		},
		StopTimeRows: []gtfs.StopTime{
			st("a1", "s1", "1", "08:00:00", "08:01:00"),
			st("a1", "s2", "2", "08:10:00", "08:11:00"),
			st("a1", "s3", "3", "08:20:00", "08:21:00"),
			st("b1", "s3", "1", "09:00:00", "09:00:30"),
			st("b1", "s1", "2", "09:30:00", "09:31:00"),
		},
		Absent: []string{"frequencies"},
	}

	trips := collectTrips(t, rd)
	require.Len(t, trips, 2)

	a1 := trips["a1"]
	assert.Equal(t, "A", a1.RouteID)
	assert.Equal(t, "sA", a1.ServiceID)
	assert.Equal(t, "shpA", a1.ShapeID)
	assert.Equal(t, []string{"s1", "s2", "s3"}, a1.Stops)
	assert.Equal(t, []int64{8 * 3600, 8*3600 + 600, 8*3600 + 1200}, a1.Arrivals)
	assert.Equal(t, []int64{8*3600 + 60, 8*3600 + 660, 8*3600 + 1260}, a1.Departures)
	assert.Empty(t, a1.HeadwayWindows)

	assert.Equal(t, []string{"s3", "s1"}, trips["b1"].Stops)
}

func TestReadStopTimesSortsRowsWithinTrip(t *testing.T) {
	// rows of one trip out of sequence order are tolerated and sorted
	rd := &feed.MemoryReader{
		TripRows: []gtfs.Trip{{ID: "a1"}},
		StopTimeRows: []gtfs.StopTime{
			st("a1", "s3", "30", "08:20:00", ""),
			st("a1", "s1", "10", "08:00:00", ""),
			st("a1", "s2", "20", "08:10:00", ""),
		},
		Absent: []string{"frequencies"},
	}

	a1 := collectTrips(t, rd)["a1"]
	assert.Equal(t, []string{"s1", "s2", "s3"}, a1.Stops)
	assert.Equal(t, []int64{gtfs.NoTime, gtfs.NoTime, gtfs.NoTime}, a1.Departures)
}

func TestReadStopTimesDuplicateSequence(t *testing.T) {
	rd := &feed.MemoryReader{
		TripRows: []gtfs.Trip{{ID: "a1"}},
		StopTimeRows: []gtfs.StopTime{
			st("a1", "s1", "1", "08:00:00", ""),
			st("a1", "s2", "1", "08:10:00", ""),
		},
		Absent: []string{"frequencies"},
	}

	var got error
	for _, err := range ReadStopTimes(rd, feed.Filters{}) {
		if err != nil {
			got = err
			break
		}
	}
	require.Error(t, got)
	var vErr *gtfs.ValidationError
	assert.ErrorAs(t, got, &vErr)
	var rErr *feed.RowError
	require.ErrorAs(t, got, &rErr)
	assert.Equal(t, "stop_times.txt", rErr.File)
	assert.Equal(t, 3, rErr.Row)
}

func TestReadStopTimesUnsortedTrips(t *testing.T) {
	rd := &feed.MemoryReader{
		TripRows: []gtfs.Trip{{ID: "b1"}, {ID: "a1"}},
		Absent:   []string{"frequencies"},
	}

	var got error
	for _, err := range ReadStopTimes(rd, feed.Filters{}) {
		if err != nil {
			got = err
			break
		}
	}
	var sErr *feed.SortingError
	require.ErrorAs(t, got, &sErr)
	assert.Equal(t, "trips.txt", sErr.File)
}

func TestReadStopTimesDropsOrphanRows(t *testing.T) {
	// stop_times rows referencing an unknown trip are dropped
	rd := &feed.MemoryReader{
		TripRows: []gtfs.Trip{{ID: "b1"}},
		StopTimeRows: []gtfs.StopTime{
			st("a1", "s1", "1", "08:00:00", ""),
			st("b1", "s1", "1", "09:00:00", ""),
		},
		Absent: []string{"frequencies"},
	}

	trips := collectTrips(t, rd)
	require.Len(t, trips, 1)
	assert.Equal(t, []string{"s1"}, trips["b1"].Stops)
}

func TestReadStopTimesHeadwayWindows(t *testing.T) {
	rd := &feed.MemoryReader{
		TripRows: []gtfs.Trip{{ID: "a1"}},
		StopTimeRows: []gtfs.StopTime{
			st("a1", "s1", "1", "08:00:00", "08:00:00"),
			st("a1", "s2", "2", "08:10:00", "08:10:00"),
		},
		FrequencyRows: []gtfs.Frequency{
			{TripID: "a1", StartTime: "12:00:00", EndTime: "13:00:00", HeadwaySecs: "600", ExactTimes: "0"},
			{TripID: "a1", StartTime: "09:00:00", EndTime: "10:00:00", HeadwaySecs: "300"},
		},
	}

	a1 := collectTrips(t, rd)["a1"]
	// windows are carried as metadata, sorted by start, not materialized
	assert.Equal(t, []string{"s1", "s2"}, a1.Stops)
	assert.Equal(t, []HeadwayWindow{
		{Start: 9 * 3600, End: 10 * 3600, Headway: 300},
		{Start: 12 * 3600, End: 13 * 3600, Headway: 600},
	}, a1.HeadwayWindows)
}

func TestReadStopTimesExactTimesExpansion(t *testing.T) {
	rd := &feed.MemoryReader{
		TripRows: []gtfs.Trip{{ID: "a1"}},
		StopTimeRows: []gtfs.StopTime{
			st("a1", "s1", "1", "08:00:00", "08:00:30"),
			st("a1", "s2", "2", "08:10:00", "08:10:30"),
		},
		FrequencyRows: []gtfs.Frequency{
			// 3 repetitions: 09:00, 09:20, 09:40
			{TripID: "a1", StartTime: "09:00:00", EndTime: "10:00:00", HeadwaySecs: "1200", ExactTimes: "1"},
		},
	}

	a1 := collectTrips(t, rd)["a1"]
	assert.Empty(t, a1.HeadwayWindows)

	// base run plus one run per repetition, flattened chronologically
	require.Len(t, a1.Stops, 8)
	assert.Equal(t, []string{"s1", "s2", "s1", "s2", "s1", "s2", "s1", "s2"}, a1.Stops)
	assert.Equal(t, []int64{
		8 * 3600, 8*3600 + 600,
		9 * 3600, 9*3600 + 600,
		9*3600 + 1200, 9*3600 + 1800,
		9*3600 + 2400, 9*3600 + 3000,
	}, a1.Arrivals)
	// departures keep their offset relative to the run's first arrival
	assert.Equal(t, int64(9*3600+30), a1.Departures[2])
}

func TestReadStopTimesOverlappingWindows(t *testing.T) {
	rd := &feed.MemoryReader{
		TripRows: []gtfs.Trip{{ID: "a1"}},
		StopTimeRows: []gtfs.StopTime{
			st("a1", "s1", "1", "08:00:00", ""),
			st("a1", "s2", "2", "08:10:00", ""),
		},
		FrequencyRows: []gtfs.Frequency{
			{TripID: "a1", StartTime: "09:00:00", EndTime: "10:00:00", HeadwaySecs: "600"},
			{TripID: "a1", StartTime: "09:30:00", EndTime: "10:30:00", HeadwaySecs: "600"},
		},
	}

	var got error
	for _, err := range ReadStopTimes(rd, feed.Filters{}) {
		if err != nil {
			got = err
			break
		}
	}
	require.Error(t, got)
	var vErr *gtfs.ValidationError
	assert.ErrorAs(t, got, &vErr)
	assert.Contains(t, got.Error(), "overlapping")
}

func TestReadStopTimesFilters(t *testing.T) {
	rd := &feed.MemoryReader{
		TripRows: []gtfs.Trip{{ID: "a1", RouteID: "A"}, {ID: "b1", RouteID: "B"}},
		StopTimeRows: []gtfs.StopTime{
			st("a1", "s1", "1", "08:00:00", ""),
			st("b1", "s1", "1", "09:00:00", ""),
		},
		Absent: []string{"frequencies"},
	}

	filters := feed.Filters{Trip: func(t gtfs.Trip) bool { return t.RouteID == "A" }}
	var ids []string
	for trip, err := range ReadStopTimes(rd, filters) {
		require.NoError(t, err)
		ids = append(ids, trip.TripID)
	}
	assert.Equal(t, []string{"a1"}, ids)
}
