package gtfs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate("20240311")
	require.NoError(t, err)
	assert.Equal(t, Date{Year: 2024, Month: time.March, Day: 11}, d)
	assert.Equal(t, "2024-03-11", d.String())
	assert.Equal(t, "20240311", d.Gtfs())
	assert.Equal(t, time.Monday, d.Weekday())

	for _, invalid := range []string{"", "2024031", "2024-03-11", "20241311", "20240300"} {
		_, err := ParseDate(invalid)
		assert.Error(t, err, invalid)
		var vErr *ValidationError
		assert.ErrorAs(t, err, &vErr, invalid)
	}
}

func TestDateArithmetic(t *testing.T) {
	d := Date{Year: 2024, Month: time.February, Day: 28}
	assert.Equal(t, Date{Year: 2024, Month: time.February, Day: 29}, d.AddDays(1))
	assert.Equal(t, Date{Year: 2024, Month: time.March, Day: 1}, d.AddDays(2))

	assert.True(t, d.Before(d.AddDays(1)))
	assert.False(t, d.AddDays(1).Before(d))
	assert.Equal(t, 0, d.Compare(d))
}

func TestParseTime(t *testing.T) {
	cases := map[string]int64{
		"00:00:00":  0,
		"8:30":      8*3600 + 30*60,
		"08:30:15":  8*3600 + 30*60 + 15,
		"24:00:00":  24 * 3600,
		"25:35:00":  25*3600 + 35*60,
		"123:59:59": 123*3600 + 59*60 + 59,
	}
	for input, want := range cases {
		got, err := ParseTime(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got, input)
	}

	got, err := ParseTime("")
	require.NoError(t, err)
	assert.Equal(t, NoTime, got)

	for _, invalid := range []string{"8", "8:3", "08:61:00", "08:00:61", "abc", "1:23:45:67"} {
		_, err := ParseTime(invalid)
		assert.Error(t, err, invalid)
	}
}
