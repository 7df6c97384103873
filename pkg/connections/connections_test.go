package connections

import (
	"context"
	"testing"
	"time"

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

func twoStopFeed() *feed.MemoryReader {
	return &feed.MemoryReader{
		TripRows: []gtfs.Trip{{ID: "a1", RouteID: "A", ServiceID: "daily"}},
		StopTimeRows: []gtfs.StopTime{
			st("a1", "s1", "1", "08:00:00", "08:01:00"),
			st("a1", "s2", "2", "08:10:00", "08:11:00"),
			st("a1", "s3", "3", "08:20:00", "08:21:00"),
		},
		CalendarRows: []gtfs.Calendar{{
			ServiceID: "daily", Monday: "1",
			StartDate: "20240304", EndDate: "20240310",
		}},
		Absent: []string{"frequencies"},
	}
}

func TestCompute(t *testing.T) {
	var batches [][]Connection
	for batch, err := range Compute(twoStopFeed(), feed.Filters{}) {
		require.NoError(t, err)
		batches = append(batches, batch)
	}
	require.Len(t, batches, 1)

	conns := batches[0]
	require.Len(t, conns, 2)
	assert.Equal(t, Connection{
		TripID: "a1", RouteID: "A", ServiceID: "daily",
		FromStop: "s1", Departure: 8*3600 + 60,
		ToStop: "s2", Arrival: 8*3600 + 600,
	}, conns[0])
	assert.Equal(t, "s2", conns[1].FromStop)
	assert.Equal(t, "s3", conns[1].ToStop)
}

func TestComputeHeadwayBased(t *testing.T) {
	rd := twoStopFeed()
	rd.Absent = nil
	rd.FrequencyRows = []gtfs.Frequency{
		// two virtual runs at 10:00 and 10:30
		{TripID: "a1", StartTime: "10:00:00", EndTime: "11:00:00", HeadwaySecs: "1800", ExactTimes: "0"},
	}

	var conns []Connection
	for batch, err := range Compute(rd, feed.Filters{}) {
		require.NoError(t, err)
		conns = append(conns, batch...)
	}
	// 2 scheduled + 2 runs × 2 hops
	require.Len(t, conns, 6)

	assert.False(t, conns[0].HeadwayBased)
	assert.False(t, conns[1].HeadwayBased)
	for _, c := range conns[2:] {
		assert.True(t, c.HeadwayBased)
	}

	// first virtual run shifted so its first arrival is 10:00
	assert.Equal(t, int64(10*3600+60), conns[2].Departure)
	assert.Equal(t, int64(10*3600+600), conns[2].Arrival)
	assert.Equal(t, int64(10*3600+1800+60), conns[4].Departure)
}

func TestComputeSortedIsSortedByDeparture(t *testing.T) {
	rd := twoStopFeed()
	rd.TripRows = append(rd.TripRows, gtfs.Trip{ID: "b1", RouteID: "B", ServiceID: "daily"})
	rd.StopTimeRows = append(rd.StopTimeRows,
		st("b1", "s2", "1", "07:00:00", "07:05:00"),
		st("b1", "s3", "2", "07:30:00", "07:31:00"),
	)

	ctx := context.Background()
	var conns []Connection
	sorted := ComputeSorted(ctx, rd, feed.Filters{}, SortedOptions{Timezone: "Europe/Berlin"})
	for c, err := range sorted {
		require.NoError(t, err)
		conns = append(conns, c)
	}

	// one Monday served, 4 hops
	require.Len(t, conns, 4)
	for i := 1; i < len(conns); i++ {
		assert.LessOrEqual(t, conns[i-1].Departure, conns[i].Departure)
	}
	assert.Equal(t, "b1", conns[0].TripID)

	// absolute instants: 2024-03-04 07:05 Berlin
	loc, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)
	want := time.Date(2024, time.March, 4, 7, 5, 0, 0, loc).Unix()
	assert.Equal(t, want, conns[0].Departure)
}

func TestComputeSortedStopTimezoneOverride(t *testing.T) {
	rd := twoStopFeed()
	rd.StopRows = []gtfs.Stop{
		{ID: "s1", Timezone: "Europe/Lisbon"}, // one hour behind Berlin
		{ID: "s2"},
		{ID: "s3"},
	}

	ctx := context.Background()
	var conns []Connection
	sorted := ComputeSorted(ctx, rd, feed.Filters{}, SortedOptions{Timezone: "Europe/Berlin"})
	for c, err := range sorted {
		require.NoError(t, err)
		conns = append(conns, c)
	}
	require.Len(t, conns, 2)

	lisbon, err := time.LoadLocation("Europe/Lisbon")
	require.NoError(t, err)
	berlin, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	var fromS1 Connection
	for _, c := range conns {
		if c.FromStop == "s1" {
			fromS1 = c
		}
	}
	require.NotZero(t, fromS1.Departure)

	// departure from s1 resolved in the stop's own zone, arrival at s2 in
	// the feed default
	assert.Equal(t, time.Date(2024, time.March, 4, 8, 1, 0, 0, lisbon).Unix(), fromS1.Departure)
	assert.Equal(t, time.Date(2024, time.March, 4, 8, 10, 0, 0, berlin).Unix(), fromS1.Arrival)
}

func TestComputeSortedSkipsUnknownService(t *testing.T) {
	rd := twoStopFeed()
	rd.TripRows = []gtfs.Trip{{ID: "a1", RouteID: "A", ServiceID: "nope"}}

	var conns []Connection
	sorted := ComputeSorted(context.Background(), rd, feed.Filters{}, SortedOptions{Timezone: "Europe/Berlin"})
	for c, err := range sorted {
		require.NoError(t, err)
		conns = append(conns, c)
	}
	assert.Empty(t, conns)
}

func TestComputeSortedRequiresTimezone(t *testing.T) {
	var got error
	for _, err := range ComputeSorted(context.Background(), twoStopFeed(), feed.Filters{}, SortedOptions{}) {
		got = err
		break
	}
	require.Error(t, got)
}
