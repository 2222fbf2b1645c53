package schedule

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestParseClock(t *testing.T) {
	c, err := ParseClock("09:30")
	if err != nil {
		t.Fatalf("ParseClock: %v", err)
	}
	if c != 570 || c.String() != "09:30" {
		t.Fatalf("unexpected clock %d %s", c, c)
	}
	if c, _ := ParseClock("24:00"); c != EndOfDay {
		t.Fatalf("expected 24:00 to parse as end of day, got %d", c)
	}
	if _, err := ParseClock("9.30"); err == nil {
		t.Fatal("expected error for malformed clock")
	}
}

func TestHoursForWeeklyAndExceptions(t *testing.T) {
	s := FromWeekly(DefaultWeekly())
	monday := MustDate("2026-03-02")
	saturday := MustDate("2026-03-07")

	h, ok := HoursFor(monday, s)
	if !ok || h.Start != MustClock("09:00") || h.End != MustClock("17:00") {
		t.Fatalf("unexpected monday hours %+v ok=%v", h, ok)
	}
	if IsDateAvailable(saturday, s) {
		t.Fatal("expected saturday closed")
	}

	s.Exceptions = map[Date]Exception{
		monday:   Closed{},
		saturday: Open{Start: MustClock("10:00"), End: MustClock("14:00")},
	}
	if IsDateAvailable(monday, s) {
		t.Fatal("closed exception should win over weekly hours")
	}
	h, ok = HoursFor(saturday, s)
	if !ok || h.Start != MustClock("10:00") || h.End != MustClock("14:00") {
		t.Fatalf("open exception should win over weekly closed day, got %+v ok=%v", h, ok)
	}
	if h.Minutes() != 240 {
		t.Fatalf("expected 240 minutes, got %d", h.Minutes())
	}
}

func TestValidate(t *testing.T) {
	s := FromWeekly(DefaultWeekly())
	if err := s.Validate(); err != nil {
		t.Fatalf("default weekly should be valid: %v", err)
	}

	s.Weekly[time.Tuesday] = Day{IsWorking: true, Start: MustClock("17:00"), End: MustClock("09:00")}
	if err := s.Validate(); !errors.Is(err, ErrInvalidSchedule) {
		t.Fatalf("expected ErrInvalidSchedule, got %v", err)
	}

	s = FromWeekly(DefaultWeekly())
	s.Exceptions = map[Date]Exception{MustDate("2026-03-03"): Open{Start: 600, End: 600}}
	if err := s.Validate(); !errors.Is(err, ErrInvalidSchedule) {
		t.Fatalf("expected ErrInvalidSchedule for empty exception window, got %v", err)
	}

	s.Exceptions = map[Date]Exception{MustDate("2026-03-03"): nil}
	if err := s.Validate(); err == nil {
		t.Fatal("expected error for nil exception")
	}
}

func TestParseWeekly(t *testing.T) {
	w, err := ParseWeekly("mon=09:00-17:00, sat=10:00-14:00, sun=closed")
	if err != nil {
		t.Fatalf("ParseWeekly: %v", err)
	}
	if !w[time.Monday].IsWorking || w[time.Monday].End != MustClock("17:00") {
		t.Fatalf("unexpected monday %+v", w[time.Monday])
	}
	if !w[time.Saturday].IsWorking || w[time.Saturday].Start != MustClock("10:00") {
		t.Fatalf("unexpected saturday %+v", w[time.Saturday])
	}
	if w[time.Tuesday].IsWorking || w[time.Sunday].IsWorking {
		t.Fatal("unlisted and closed days should not be working")
	}

	if w, _ := ParseWeekly(""); w != DefaultWeekly() {
		t.Fatal("empty value should yield default hours")
	}

	for _, bad := range []string{"mon", "xyz=09:00-10:00", "mon=10:00", "mon=12:00-09:00"} {
		if _, err := ParseWeekly(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestScheduleJSONRoundTrip(t *testing.T) {
	in := FromWeekly(DefaultWeekly())
	in.Exceptions = map[Date]Exception{
		MustDate("2026-12-25"): Closed{},
		MustDate("2026-12-24"): Open{Start: MustClock("09:00"), End: MustClock("12:00")},
	}
	b, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var out Schedule
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.Weekly != in.Weekly {
		t.Fatalf("weekly mismatch: %+v", out.Weekly)
	}
	if _, ok := out.Exceptions[MustDate("2026-12-25")].(Closed); !ok {
		t.Fatalf("expected closed exception, got %#v", out.Exceptions[MustDate("2026-12-25")])
	}
	open, ok := out.Exceptions[MustDate("2026-12-24")].(Open)
	if !ok || open.End != MustClock("12:00") {
		t.Fatalf("unexpected open exception %#v", out.Exceptions[MustDate("2026-12-24")])
	}

	if err := json.Unmarshal([]byte(`{"weekly":{},"exceptions":{"2026-01-01":{}}}`), &out); err == nil {
		t.Fatal("expected error for exception without hours")
	}
}

func TestDateHelpers(t *testing.T) {
	d := MustDate("2026-02-28")
	if d.AddDays(1).String() != "2026-03-01" {
		t.Fatalf("unexpected AddDays result %s", d.AddDays(1))
	}
	if d.Weekday() != time.Saturday {
		t.Fatalf("unexpected weekday %s", d.Weekday())
	}
	at := d.At(MustClock("14:30"), time.UTC)
	if at.Hour() != 14 || at.Minute() != 30 || DateOf(at) != d {
		t.Fatalf("unexpected instant %s", at)
	}
}
