package availability

import (
	"time"

	"github.com/md-rashed-zaman/salonsched/services/scheduling-service/internal/model"
	"github.com/md-rashed-zaman/salonsched/services/scheduling-service/internal/schedule"
)

const DefaultGranularity = 15

// Interval is an occupied [Start, End) window on one date.
type Interval struct {
	Start schedule.Clock
	End   schedule.Clock
}

// Slots returns the start times on date where a booking of requiredMinutes
// fits inside the working hours of s and overlaps none of booked.
//
// Candidates run from the opening time in granularity steps; a granularity of
// zero or less means DefaultGranularity. The result is ascending.
func Slots(date schedule.Date, s schedule.Schedule, requiredMinutes int, booked []Interval, granularity int) []schedule.Clock {
	if requiredMinutes <= 0 {
		return nil
	}
	hours, ok := schedule.HoursFor(date, s)
	if !ok {
		return nil
	}
	if granularity <= 0 {
		granularity = DefaultGranularity
	}

	var slots []schedule.Clock
	for t := hours.Start; t.Add(requiredMinutes) <= hours.End; t = t.Add(granularity) {
		if !overlapsAny(t, t.Add(requiredMinutes), booked) {
			slots = append(slots, t)
		}
	}
	return slots
}

func overlapsAny(start, end schedule.Clock, busy []Interval) bool {
	for _, b := range busy {
		// Half-open intervals: [start,end) overlaps [b.Start,b.End) iff start < b.End && b.Start < end.
		if start < b.End && b.Start < end {
			return true
		}
	}
	return false
}

// Booked returns the occupied intervals of the blocking appointments in appts.
// Callers pass appointments of one staff member on one date.
func Booked(appts []model.Appointment) []Interval {
	out := make([]Interval, 0, len(appts))
	for _, a := range appts {
		if !a.Status.Blocking() || a.DurationMinutes <= 0 {
			continue
		}
		out = append(out, Interval{Start: a.Time, End: a.End()})
	}
	return out
}

// Contains reports whether t is one of slots.
func Contains(slots []schedule.Clock, t schedule.Clock) bool {
	for _, s := range slots {
		if s == t {
			return true
		}
		if s > t {
			return false
		}
	}
	return false
}

// DropPast removes slots on date that start before now, evaluated in loc.
func DropPast(date schedule.Date, slots []schedule.Clock, now time.Time, loc *time.Location) []schedule.Clock {
	out := slots[:0:0]
	for _, s := range slots {
		if date.At(s, loc).Before(now) {
			continue
		}
		out = append(out, s)
	}
	return out
}
