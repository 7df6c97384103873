package calendar

import (
	"errors"
	"slices"

	"github.com/rs/zerolog/log"

	"github.com/gtfskit/gtfskit/pkg/feed"
	"github.com/gtfskit/gtfskit/pkg/gtfs"
)

// ReadOptions configures ReadServices.
type ReadOptions struct {
	// Cache, when set, memoizes pattern expansion across service rows.
	Cache *Cache
}

// ReadServices reads calendar and calendar_dates and returns, per service
// ID, the ascending list of dates the service runs on.
//
// Either table may be missing; only the absence of both is an error. An
// added exception for a service without a calendar row creates the service,
// so exception-only feeds resolve correctly. Adding an already-served date
// and removing an absent one are no-ops, and exceptions outside the
// pattern's nominal date range are honored.
func ReadServices(rd feed.Reader, filters feed.Filters, opt ReadOptions) (map[string][]gtfs.Date, error) {
	filters = filters.WithDefaults()

	expand := DatesBetween
	if opt.Cache != nil {
		expand = opt.Cache.datesBetween
	}

	services := map[string][]gtfs.Date{}

	calendarPresent := true
	row := 1
	for c, err := range rd.Calendars() {
		if err != nil {
			if errors.Is(err, feed.ErrNotFound) {
				calendarPresent = false
				break
			}
			return nil, err
		}
		row++
		if !filters.Service(c) {
			continue
		}

		weekdays, err := ParseWeekdays(c)
		if err != nil {
			return nil, feed.WithRow("calendar.txt", row, err)
		}
		start, err := gtfs.ParseDate(c.StartDate)
		if err != nil {
			return nil, feed.WithRow("calendar.txt", row, err)
		}
		end, err := gtfs.ParseDate(c.EndDate)
		if err != nil {
			return nil, feed.WithRow("calendar.txt", row, err)
		}

		services[c.ServiceID] = expand(start, end, weekdays)
	}

	exceptionsPresent := true
	row = 1
	for e, err := range rd.CalendarDates() {
		if err != nil {
			if errors.Is(err, feed.ErrNotFound) {
				exceptionsPresent = false
				break
			}
			return nil, err
		}
		row++
		if !filters.ServiceException(e) {
			continue
		}

		date, err := gtfs.ParseDate(e.Date)
		if err != nil {
			return nil, feed.WithRow("calendar_dates.txt", row, err)
		}

		dates := services[e.ServiceID]
		i, present := slices.BinarySearchFunc(dates, date, gtfs.Date.Compare)
		switch e.ExceptionType {
		case gtfs.ExceptionTypeRemoved:
			if present {
				services[e.ServiceID] = slices.Delete(dates, i, i+1)
			}
		case gtfs.ExceptionTypeAdded:
			if !present {
				services[e.ServiceID] = slices.Insert(dates, i, date)
			}
		default:
			log.Debug().
				Str("service", e.ServiceID).
				Str("exception_type", e.ExceptionType).
				Msg("Skipping exception with unknown type")
		}
	}

	if !calendarPresent && !exceptionsPresent {
		return nil, gtfs.Invalidf("no calendar source available, neither calendar.txt nor calendar_dates.txt exists")
	}

	return services, nil
}
