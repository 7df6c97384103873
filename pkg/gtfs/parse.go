package gtfs

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// ValidationError marks malformed input to one of the pure parsing or
// resolution functions. It is never recovered from.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Invalidf builds a ValidationError.
func Invalidf(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// Date is a civil calendar date, not tied to any timezone.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

var dateFormat = regexp.MustCompile(`^\d{8}$`)

// ParseDate parses a GTFS YYYYMMDD date.
func ParseDate(s string) (Date, error) {
	if !dateFormat.MatchString(s) {
		return Date{}, Invalidf("date must be YYYYMMDD, got %q", s)
	}
	year, _ := strconv.Atoi(s[0:4])
	month, _ := strconv.Atoi(s[4:6])
	day, _ := strconv.Atoi(s[6:8])
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return Date{}, Invalidf("date %q is out of range", s)
	}
	return Date{Year: year, Month: time.Month(month), Day: day}, nil
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// Gtfs returns the date in the feed's own YYYYMMDD format.
func (d Date) Gtfs() string {
	return fmt.Sprintf("%04d%02d%02d", d.Year, d.Month, d.Day)
}

// Midnight returns civil midnight of the date in the given zone. Note that on
// DST transition days this is not a safe anchor for time-of-day arithmetic,
// see the civiltime package.
func (d Date) Midnight(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

func (d Date) Weekday() time.Weekday {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC).Weekday()
}

func (d Date) AddDays(n int) Date {
	t := time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

func (d Date) Compare(o Date) int {
	switch {
	case d.Year != o.Year:
		return d.Year - o.Year
	case d.Month != o.Month:
		return int(d.Month) - int(o.Month)
	default:
		return d.Day - o.Day
	}
}

func (d Date) Before(o Date) bool {
	return d.Compare(o) < 0
}

// NoTime marks a stop_times row without an arrival/departure value. Feeds may
// leave these empty for stops whose times are meant to be interpolated.
const NoTime int64 = -1

var timeFormat = regexp.MustCompile(`^\d{1,3}:\d{2}(:\d{2})?$`)

// ParseTime parses a GTFS H(H)(H):MM(:SS) time of day into seconds. Values
// beyond 24:00:00 are allowed and roll over into the following civil day.
// An empty string yields NoTime.
func ParseTime(s string) (int64, error) {
	if s == "" {
		return NoTime, nil
	}
	if !timeFormat.MatchString(s) {
		return 0, Invalidf("time must be (h)hh:mm(:ss), got %q", s)
	}
	var hours, minutes, seconds int64
	parts := [3]string{}
	n := 0
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ':' {
			parts[n] = s[start:i]
			n++
			start = i + 1
		}
	}
	hours, _ = strconv.ParseInt(parts[0], 10, 64)
	minutes, _ = strconv.ParseInt(parts[1], 10, 64)
	if n == 3 {
		seconds, _ = strconv.ParseInt(parts[2], 10, 64)
	}
	if minutes > 59 || seconds > 59 {
		return 0, Invalidf("time %q is out of range", s)
	}
	return hours*3600 + minutes*60 + seconds, nil
}
