// Package calendar resolves GTFS weekly service patterns and exception
// overlays into sorted lists of served civil dates.
package calendar

import (
	"fmt"
	"slices"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/gtfskit/gtfskit/pkg/gtfs"
)

// Weekdays is a weekly service pattern, indexed by time.Weekday
// (Sunday == 0).
type Weekdays [7]bool

// ParseWeekdays reads the seven flag columns of a calendar row. Flags must be
// '0' or '1'.
func ParseWeekdays(c gtfs.Calendar) (Weekdays, error) {
	columns := [7]struct {
		name  string
		value string
	}{
		{"sunday", c.Sunday},
		{"monday", c.Monday},
		{"tuesday", c.Tuesday},
		{"wednesday", c.Wednesday},
		{"thursday", c.Thursday},
		{"friday", c.Friday},
		{"saturday", c.Saturday},
	}
	var weekdays Weekdays
	for i, col := range columns {
		switch col.value {
		case "1":
			weekdays[i] = true
		case "0", "":
			weekdays[i] = false
		default:
			return Weekdays{}, gtfs.Invalidf("calendar.%s must be 0 or 1, got %q", col.name, col.value)
		}
	}
	return weekdays, nil
}

// DatesBetween enumerates every date in [start, end] whose weekday flag is
// set, in ascending order.
func DatesBetween(start, end gtfs.Date, weekdays Weekdays) []gtfs.Date {
	var dates []gtfs.Date
	for d := start; d.Compare(end) <= 0; d = d.AddDays(1) {
		if weekdays[d.Weekday()] {
			dates = append(dates, d)
		}
	}
	return dates
}

// Cache memoizes DatesBetween results. Pattern expansion is pure, so
// identical (range, weekdays) inputs across many service rows can share one
// enumeration. The cache is bounded LRU and owned by the caller; its
// lifetime should be one pipeline run.
type Cache struct {
	dates *lru.Cache[string, []gtfs.Date]
}

func NewCache(size int) *Cache {
	dates, err := lru.New[string, []gtfs.Date](size)
	if err != nil {
		panic(err) // only fails for size <= 0
	}
	return &Cache{dates: dates}
}

func (c *Cache) datesBetween(start, end gtfs.Date, weekdays Weekdays) []gtfs.Date {
	key := fmt.Sprintf("%s-%s-%v", start, end, weekdays)
	if cached, ok := c.dates.Get(key); ok {
		return slices.Clone(cached)
	}
	dates := DatesBetween(start, end, weekdays)
	c.dates.Add(key, slices.Clone(dates))
	return dates
}
