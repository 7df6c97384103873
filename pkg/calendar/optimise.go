package calendar

import (
	"errors"
	"iter"
	"slices"
	"strings"

	"github.com/gtfskit/gtfskit/pkg/feed"
	"github.com/gtfskit/gtfskit/pkg/gtfs"
)

// Optimised is the minimal weekday-pattern rendition of one service: a
// calendar row whose flags follow the majority weekday usage, plus the
// exception rows needed to express the remaining deviations.
type Optimised struct {
	ServiceID  string
	Changed    bool
	Calendar   gtfs.Calendar
	Exceptions []gtfs.CalendarDate
}

func setWeekdayFlags(c *gtfs.Calendar, flags Weekdays) {
	columns := [7]*string{
		&c.Sunday, &c.Monday, &c.Tuesday, &c.Wednesday,
		&c.Thursday, &c.Friday, &c.Saturday,
	}
	for i, col := range columns {
		if flags[i] {
			*col = "1"
		} else {
			*col = "0"
		}
	}
}

// Optimise re-derives, per service, the weekday pattern that covers the
// majority of its served dates and expresses everything else as exceptions.
// Services that only exist as exceptions get a synthesized calendar row
// spanning their served dates.
func Optimise(rd feed.Reader, filters feed.Filters, opt ReadOptions) iter.Seq2[Optimised, error] {
	return func(yield func(Optimised, error) bool) {
		services, err := ReadServices(rd, filters, opt)
		if err != nil {
			yield(Optimised{}, err)
			return
		}

		rows := map[string]gtfs.Calendar{}
		var order []string
		filters = filters.WithDefaults()
		for c, err := range rd.Calendars() {
			if err != nil {
				if errors.Is(err, feed.ErrNotFound) {
					break
				}
				yield(Optimised{}, err)
				return
			}
			if !filters.Service(c) {
				continue
			}
			rows[c.ServiceID] = c
			order = append(order, c.ServiceID)
		}
		fromRows := len(order)
		for serviceID := range services {
			if _, ok := rows[serviceID]; !ok {
				order = append(order, serviceID)
			}
		}
		slices.Sort(order[fromRows:]) // exception-only services, deterministic

		for _, serviceID := range order {
			dates := services[serviceID]
			row, hasRow := rows[serviceID]
			if !hasRow {
				if len(dates) == 0 {
					continue
				}
				row = gtfs.Calendar{
					ServiceID: serviceID,
					StartDate: dates[0].Gtfs(),
					EndDate:   dates[len(dates)-1].Gtfs(),
				}
			}

			optimised, err := optimiseService(serviceID, row, dates)
			if err != nil {
				yield(Optimised{}, err)
				return
			}
			if !yield(optimised, nil) {
				return
			}
		}
	}
}

func optimiseService(serviceID string, row gtfs.Calendar, dates []gtfs.Date) (Optimised, error) {
	start, err := gtfs.ParseDate(row.StartDate)
	if err != nil {
		return Optimised{}, err
	}
	end, err := gtfs.ParseDate(row.EndDate)
	if err != nil {
		return Optimised{}, err
	}

	served := map[gtfs.Date]bool{}
	for _, d := range dates {
		served[d] = true
	}

	// majority rule per weekday within the nominal range
	var total, have [7]int
	for d := start; d.Compare(end) <= 0; d = d.AddDays(1) {
		wd := d.Weekday()
		total[wd]++
		if served[d] {
			have[wd]++
		}
	}
	var flags Weekdays
	for wd := range flags {
		flags[wd] = have[wd] > total[wd]/2
	}

	previous, err := ParseWeekdays(row)
	if err != nil {
		return Optimised{}, err
	}

	var exceptions []gtfs.CalendarDate
	for d := start; d.Compare(end) <= 0; d = d.AddDays(1) {
		covered := flags[d.Weekday()]
		if covered == served[d] {
			continue
		}
		exceptionType := gtfs.ExceptionTypeRemoved
		if served[d] {
			exceptionType = gtfs.ExceptionTypeAdded
		}
		exceptions = append(exceptions, gtfs.CalendarDate{
			ServiceID:     serviceID,
			Date:          d.Gtfs(),
			ExceptionType: exceptionType,
		})
	}
	// served dates outside the nominal range stay as additions
	for _, d := range dates {
		if d.Before(start) || end.Before(d) {
			exceptions = append(exceptions, gtfs.CalendarDate{
				ServiceID:     serviceID,
				Date:          d.Gtfs(),
				ExceptionType: gtfs.ExceptionTypeAdded,
			})
		}
	}
	slices.SortFunc(exceptions, func(a, b gtfs.CalendarDate) int {
		return strings.Compare(a.Date, b.Date)
	})

	setWeekdayFlags(&row, flags)
	return Optimised{
		ServiceID:  serviceID,
		Changed:    flags != previous,
		Calendar:   row,
		Exceptions: exceptions,
	}, nil
}
