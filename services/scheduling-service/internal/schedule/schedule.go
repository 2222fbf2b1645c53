package schedule

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Day is one weekday entry of a weekly schedule.
type Day struct {
	IsWorking bool  `json:"is_working"`
	Start     Clock `json:"start"`
	End       Clock `json:"end"`
}

// Weekly is indexed by time.Weekday (Sunday = 0).
type Weekly [7]Day

// Hours is a working window on one date, half-open [Start, End).
type Hours struct {
	Start Clock
	End   Clock
}

func (h Hours) Minutes() int {
	return int(h.End - h.Start)
}

// Exception overrides the weekly entry for one date. It is either Open or Closed.
type Exception interface {
	isException()
}

// Open replaces the weekly hours for a date.
type Open struct {
	Start Clock
	End   Clock
}

// Closed marks a date as not working regardless of the weekly entry.
type Closed struct{}

func (Open) isException()   {}
func (Closed) isException() {}

// Schedule is a staff member's weekly hours plus date exceptions.
type Schedule struct {
	Weekly     Weekly
	Exceptions map[Date]Exception
}

// FromWeekly returns a schedule with no exceptions.
func FromWeekly(w Weekly) Schedule {
	return Schedule{Weekly: w}
}

// HoursFor returns the working hours on date. An exception for the date wins
// over the weekly entry.
func HoursFor(date Date, s Schedule) (Hours, bool) {
	if ex, ok := s.Exceptions[date]; ok {
		switch e := ex.(type) {
		case Open:
			if e.Start >= e.End {
				return Hours{}, false
			}
			return Hours{Start: e.Start, End: e.End}, true
		case Closed:
			return Hours{}, false
		}
	}
	day := s.Weekly[date.Weekday()]
	if !day.IsWorking || day.Start >= day.End {
		return Hours{}, false
	}
	return Hours{Start: day.Start, End: day.End}, true
}

func IsDateAvailable(date Date, s Schedule) bool {
	_, ok := HoursFor(date, s)
	return ok
}

var ErrInvalidSchedule = errors.New("invalid schedule")

// Validate reports the first malformed entry.
func (s Schedule) Validate() error {
	for wd, day := range s.Weekly {
		if !day.IsWorking {
			continue
		}
		if !day.Start.Valid() || !day.End.Valid() || day.Start >= day.End {
			return fmt.Errorf("%w: %s start must be before end", ErrInvalidSchedule, strings.ToLower(time.Weekday(wd).String()))
		}
	}
	for _, date := range s.ExceptionDates() {
		switch e := s.Exceptions[date].(type) {
		case Open:
			if !e.Start.Valid() || !e.End.Valid() || e.Start >= e.End {
				return fmt.Errorf("%w: exception %s start must be before end", ErrInvalidSchedule, date)
			}
		case Closed:
		default:
			return fmt.Errorf("%w: exception %s has no hours", ErrInvalidSchedule, date)
		}
	}
	return nil
}

// ExceptionDates returns exception dates in calendar order.
func (s Schedule) ExceptionDates() []Date {
	dates := make([]Date, 0, len(s.Exceptions))
	for d := range s.Exceptions {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates
}

func (d Date) Before(o Date) bool {
	if d.Year != o.Year {
		return d.Year < o.Year
	}
	if d.Month != o.Month {
		return d.Month < o.Month
	}
	return d.Day < o.Day
}

// DefaultWeekly is Monday to Friday 09:00-17:00, weekends closed.
func DefaultWeekly() Weekly {
	var w Weekly
	for wd := time.Monday; wd <= time.Friday; wd++ {
		w[wd] = Day{IsWorking: true, Start: 9 * 60, End: 17 * 60}
	}
	return w
}

var weekdayNames = map[string]time.Weekday{
	"sun": time.Sunday,
	"mon": time.Monday,
	"tue": time.Tuesday,
	"wed": time.Wednesday,
	"thu": time.Thursday,
	"fri": time.Friday,
	"sat": time.Saturday,
}

// ParseWeekly parses "mon=09:00-17:00,tue=09:00-17:00,sat=closed". Days not
// listed are closed. An empty string yields DefaultWeekly.
func ParseWeekly(raw string) (Weekly, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultWeekly(), nil
	}
	var w Weekly
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, value, ok := strings.Cut(part, "=")
		if !ok {
			return Weekly{}, fmt.Errorf("business hours entry %q: want day=HH:MM-HH:MM", part)
		}
		wd, ok := weekdayNames[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return Weekly{}, fmt.Errorf("business hours entry %q: unknown day", part)
		}
		value = strings.TrimSpace(value)
		if strings.EqualFold(value, "closed") {
			w[wd] = Day{}
			continue
		}
		from, to, ok := strings.Cut(value, "-")
		if !ok {
			return Weekly{}, fmt.Errorf("business hours entry %q: want HH:MM-HH:MM", part)
		}
		start, err := ParseClock(strings.TrimSpace(from))
		if err != nil {
			return Weekly{}, err
		}
		end, err := ParseClock(strings.TrimSpace(to))
		if err != nil {
			return Weekly{}, err
		}
		if start >= end {
			return Weekly{}, fmt.Errorf("business hours entry %q: start must be before end", part)
		}
		w[wd] = Day{IsWorking: true, Start: start, End: end}
	}
	return w, nil
}
