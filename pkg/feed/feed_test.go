package feed

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gtfskit/gtfskit/pkg/gtfs"
)

func writeFeed(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func TestDirReader(t *testing.T) {
	dir := writeFeed(t, map[string]string{
		"trips.txt": "route_id,service_id,trip_id\nA,sA,a1\nA,sA,a2\nB,sB,b1\n",
		"stops.txt": "stop_id,stop_name,stop_lat,stop_lon\ns1,One,52.5,13.4\ns2,Two,52.6,13.5\n",
	})
	rd := NewDirReader(dir)

	var tripIDs []string
	for trip, err := range rd.Trips() {
		require.NoError(t, err)
		tripIDs = append(tripIDs, trip.ID)
	}
	assert.Equal(t, []string{"a1", "a2", "b1"}, tripIDs)

	var stops []gtfs.Stop
	for s, err := range rd.Stops() {
		require.NoError(t, err)
		stops = append(stops, s)
	}
	require.Len(t, stops, 2)
	assert.Equal(t, 52.5, stops[0].Latitude)
	assert.Equal(t, 13.4, stops[0].Longitude)
}

func TestDirReaderMissingTable(t *testing.T) {
	rd := NewDirReader(writeFeed(t, map[string]string{
		"trips.txt": "route_id,service_id,trip_id\nA,sA,a1\n",
	}))

	for _, err := range rd.Frequencies() {
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrNotFound)
		break
	}
}

func TestDirReaderUnevenColumns(t *testing.T) {
	// extra and missing columns must not fail the whole read
	rd := NewDirReader(writeFeed(t, map[string]string{
		"trips.txt": "route_id,service_id,trip_id,unknown_col\nA,sA,a1,x\nB,sB,b1,y\n",
	}))

	var tripIDs []string
	for trip, err := range rd.Trips() {
		require.NoError(t, err)
		tripIDs = append(tripIDs, trip.ID)
	}
	assert.Equal(t, []string{"a1", "b1"}, tripIDs)
}

func TestDirReaderStopsEarly(t *testing.T) {
	rd := NewDirReader(writeFeed(t, map[string]string{
		"trips.txt": "route_id,service_id,trip_id\nA,sA,a1\nA,sA,a2\nB,sB,b1\n",
	}))

	n := 0
	for _, err := range rd.Trips() {
		require.NoError(t, err)
		n++
		break
	}
	assert.Equal(t, 1, n)
}

func TestMemoryReaderAbsent(t *testing.T) {
	rd := &MemoryReader{
		TripRows: []gtfs.Trip{{ID: "a1"}},
		Absent:   []string{"frequencies"},
	}

	for _, err := range rd.Frequencies() {
		assert.ErrorIs(t, err, ErrNotFound)
		break
	}
	for trip, err := range rd.Trips() {
		require.NoError(t, err)
		assert.Equal(t, "a1", trip.ID)
	}
}

func TestExpectSorting(t *testing.T) {
	check := ExpectSorting("trips.txt", func(a, b gtfs.Trip) int {
		return strings.Compare(a.ID, b.ID)
	})

	require.NoError(t, check(gtfs.Trip{ID: "a"}))
	require.NoError(t, check(gtfs.Trip{ID: "b"}))
	require.NoError(t, check(gtfs.Trip{ID: "b"})) // ties are fine

	err := check(gtfs.Trip{ID: "a"})
	require.Error(t, err)
	var sErr *SortingError
	require.ErrorAs(t, err, &sErr)
	assert.Equal(t, "trips.txt", sErr.File)
	assert.Equal(t, 4, sErr.Row)
}

func TestRowError(t *testing.T) {
	cause := errors.New("boom")
	err := WithRow("stop_times.txt", 17, cause)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "stop_times.txt:17")

	assert.NoError(t, WithRow("stop_times.txt", 17, nil))
}

func TestFiltersWithDefaults(t *testing.T) {
	f := Filters{Trip: func(t gtfs.Trip) bool { return t.ID != "skip" }}.WithDefaults()

	assert.False(t, f.Trip(gtfs.Trip{ID: "skip"}))
	assert.True(t, f.Trip(gtfs.Trip{ID: "keep"}))
	assert.True(t, f.StopTime(gtfs.StopTime{}))
	assert.True(t, f.Stop(gtfs.Stop{}))
	assert.True(t, f.Pathway(gtfs.Pathway{}))
}
