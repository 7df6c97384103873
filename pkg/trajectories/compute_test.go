package trajectories

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gtfskit/gtfskit/pkg/feed"
	"github.com/gtfskit/gtfskit/pkg/gtfs"
)

func TestCompute(t *testing.T) {
	rd := &feed.MemoryReader{
		TripRows: []gtfs.Trip{
			{ID: "a1", RouteID: "A", ServiceID: "svc", ShapeID: "sh1"},
			{ID: "noshape", RouteID: "A", ServiceID: "svc"},
		},
		StopTimeRows: []gtfs.StopTime{
			{TripID: "a1", StopID: "s1", StopSequence: "1", ArrivalTime: "08:00:00", DepartureTime: "08:00:00"},
			{TripID: "a1", StopID: "s2", StopSequence: "2", ArrivalTime: "08:01:00", DepartureTime: "08:01:00"},
			{TripID: "a1", StopID: "s3", StopSequence: "3", ArrivalTime: "08:02:00", DepartureTime: "08:02:00"},
			{TripID: "noshape", StopID: "s1", StopSequence: "1", ArrivalTime: "09:00:00", DepartureTime: "09:00:00"},
			{TripID: "noshape", StopID: "s3", StopSequence: "2", ArrivalTime: "09:02:00", DepartureTime: "09:02:00"},
		},
		StopRows: []gtfs.Stop{
			{ID: "s1", Longitude: 0, Latitude: 0},
			{ID: "s2", Longitude: 0.001, Latitude: 0},
			{ID: "s3", Longitude: 0.002, Latitude: 0},
		},
		ShapeRows: []gtfs.ShapePoint{
			{ShapeID: "sh1", Sequence: "1", Longitude: 0, Latitude: 0},
			{ShapeID: "sh1", Sequence: "2", Longitude: 0.001, Latitude: 0},
			{ShapeID: "sh1", Sequence: "3", Longitude: 0.002, Latitude: 0},
		},
		Absent: []string{"frequencies"},
	}

	var all []Trajectory
	for tr, err := range Compute(context.Background(), rd, feed.Filters{}, Options{}) {
		require.NoError(t, err)
		all = append(all, tr)
	}

	// the shapeless trip is skipped
	require.Len(t, all, 1)
	tr := all[0]
	assert.Equal(t, "a1", tr.Properties.TripID)
	assert.Equal(t, "sh1", tr.Properties.ShapeID)
	assert.Equal(t, "svc", tr.Properties.ServiceID)
	assert.True(t, strings.HasSuffix(tr.Properties.ID, "-sh1"))

	pts := tr.Geometry.Coordinates
	require.Len(t, pts, 3)
	for i, want := range []int64{0, 60, 120} {
		require.NotNil(t, pts[i].Arrival, i)
		assert.Equal(t, want, *pts[i].Arrival, i)
	}
}
