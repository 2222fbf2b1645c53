package conflict

import (
	"testing"

	"github.com/md-rashed-zaman/salonsched/services/scheduling-service/internal/model"
	"github.com/md-rashed-zaman/salonsched/services/scheduling-service/internal/schedule"
)

var (
	clock  = schedule.MustClock
	monday = schedule.MustDate("2026-03-02")
)

func appt(id, staff string, date schedule.Date, at string, mins int, st model.Status) model.Appointment {
	return model.Appointment{ID: id, StaffID: staff, Date: date, Time: clock(at), DurationMinutes: mins, Status: st}
}

func TestFindReturnsAllOverlapsSorted(t *testing.T) {
	all := []model.Appointment{
		appt("late", "alex", monday, "10:30", 30, model.StatusPending),
		appt("early", "alex", monday, "09:45", 30, model.StatusConfirmed),
		appt("touching", "alex", monday, "11:00", 30, model.StatusConfirmed),
		appt("cancelled", "alex", monday, "10:00", 60, model.StatusCancelled),
		appt("rejected", "alex", monday, "10:00", 60, model.StatusRejected),
		appt("other-staff", "sam", monday, "10:00", 60, model.StatusConfirmed),
		appt("other-day", "alex", monday.AddDays(1), "10:00", 60, model.StatusConfirmed),
	}
	candidate := appt("new", "alex", monday, "10:00", 60, model.StatusPending)

	got := Find(candidate, all)
	if len(got) != 2 {
		t.Fatalf("expected 2 conflicts, got %d: %+v", len(got), got)
	}
	if got[0].ID != "early" || got[1].ID != "late" {
		t.Fatalf("unexpected order: %s, %s", got[0].ID, got[1].ID)
	}
}

func TestFindExcludesSelf(t *testing.T) {
	existing := appt("a1", "alex", monday, "10:00", 45, model.StatusConfirmed)
	moved := existing
	moved.Time = clock("10:15")

	if got := Find(moved, []model.Appointment{existing}); len(got) != 0 {
		t.Fatalf("an appointment must not conflict with itself, got %+v", got)
	}
}

func TestFindHalfOpen(t *testing.T) {
	existing := []model.Appointment{appt("a", "alex", monday, "10:00", 45, model.StatusConfirmed)}
	if got := Find(appt("", "alex", monday, "09:15", 45, model.StatusPending), existing); len(got) != 0 {
		t.Fatalf("ending at 10:00 must not conflict, got %+v", got)
	}
	if got := Find(appt("", "alex", monday, "10:45", 15, model.StatusPending), existing); len(got) != 0 {
		t.Fatalf("starting at 10:45 must not conflict, got %+v", got)
	}
	if got := Find(appt("", "alex", monday, "10:44", 15, model.StatusPending), existing); len(got) != 1 {
		t.Fatalf("starting at 10:44 must conflict, got %+v", got)
	}
}

func TestBadges(t *testing.T) {
	appts := []model.Appointment{
		appt("a", "alex", monday, "10:00", 60, model.StatusConfirmed),
		appt("b", "alex", monday, "10:30", 60, model.StatusPending),
		appt("c", "alex", monday, "10:45", 15, model.StatusEmergency),
		appt("d", "alex", monday, "12:00", 30, model.StatusConfirmed),
		appt("x", "alex", monday, "10:00", 60, model.StatusCancelled),
		appt("s", "sam", monday, "10:00", 60, model.StatusConfirmed),
	}
	badges := Badges(appts)

	if len(badges["a"]) != 2 || badges["a"][0] != "b" || badges["a"][1] != "c" {
		t.Fatalf("unexpected badges for a: %v", badges["a"])
	}
	if len(badges["b"]) != 2 || len(badges["c"]) != 2 {
		t.Fatalf("unexpected badges: %v", badges)
	}
	for _, id := range []string{"d", "x", "s"} {
		if _, ok := badges[id]; ok {
			t.Fatalf("did not expect badge for %s: %v", id, badges[id])
		}
	}
}
