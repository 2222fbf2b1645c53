package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/md-rashed-zaman/salonsched/services/scheduling-service/internal/model"
	"github.com/md-rashed-zaman/salonsched/services/scheduling-service/internal/outbox"
	"github.com/md-rashed-zaman/salonsched/services/scheduling-service/internal/schedule"
)

func TestMemoryAppointments(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	monday := schedule.MustDate("2026-03-02")

	a := model.Appointment{ID: "a1", StaffID: "alex", Date: monday, Time: schedule.MustClock("11:00"), SelectedExtraIDs: []string{"wash"}}
	b := model.Appointment{ID: "a2", StaffID: "alex", Date: monday, Time: schedule.MustClock("09:00")}
	c := model.Appointment{ID: "a3", StaffID: "sam", Date: monday, Time: schedule.MustClock("10:00")}
	for _, appt := range []model.Appointment{a, b, c} {
		if err := m.SaveAppointment(ctx, appt, outbox.Event{EventType: outbox.EventBooked, AggregateID: appt.ID}); err != nil {
			t.Fatalf("save: %v", err)
		}
	}

	got, err := m.ListAppointments(ctx, DayFilter{StaffID: "alex", Date: monday})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 || got[0].ID != "a2" || got[1].ID != "a1" {
		t.Fatalf("unexpected list %+v", got)
	}
	all, _ := m.ListAppointments(ctx, DayFilter{Date: monday})
	if len(all) != 3 {
		t.Fatalf("expected 3 appointments across staff, got %d", len(all))
	}

	got[1].SelectedExtraIDs[0] = "mutated"
	stored, err := m.GetAppointment(ctx, "a1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.SelectedExtraIDs[0] != "wash" {
		t.Fatal("stored appointment must not alias caller slices")
	}

	if err := m.DeleteAppointment(ctx, "a1", outbox.Event{EventType: outbox.EventDeleted}); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := m.GetAppointment(ctx, "a1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := m.DeleteAppointment(ctx, "a1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
	if n := len(m.Events()); n != 4 {
		t.Fatalf("expected 4 recorded events, got %d", n)
	}
}

func TestMemorySchedulesAndCatalog(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	if _, ok, err := m.GetSchedule(ctx, "alex"); ok || err != nil {
		t.Fatalf("expected no stored schedule, ok=%v err=%v", ok, err)
	}
	s := schedule.FromWeekly(schedule.DefaultWeekly())
	s.Exceptions = map[schedule.Date]schedule.Exception{schedule.MustDate("2026-12-25"): schedule.Closed{}}
	if err := m.PutSchedule(ctx, "alex", s); err != nil {
		t.Fatalf("put schedule: %v", err)
	}
	s.Exceptions[schedule.MustDate("2026-12-26")] = schedule.Closed{}

	got, ok, err := m.GetSchedule(ctx, "alex")
	if err != nil || !ok {
		t.Fatalf("get schedule: ok=%v err=%v", ok, err)
	}
	if len(got.Exceptions) != 1 {
		t.Fatalf("stored schedule must not alias caller map, got %d exceptions", len(got.Exceptions))
	}

	if err := m.PutStaff(ctx, model.Staff{ID: "alex", Name: "Alex", IsActive: true}); err != nil {
		t.Fatalf("put staff: %v", err)
	}
	if _, err := m.GetStaff(ctx, "nobody"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	svc := model.Service{ID: "haircut", DurationMinutes: 30, Extras: []model.Extra{{ID: "wash", DurationMinutes: 15}}}
	if err := m.PutService(ctx, svc); err != nil {
		t.Fatalf("put service: %v", err)
	}
	list, _ := m.ListServices(ctx)
	if len(list) != 1 || len(list[0].Extras) != 1 {
		t.Fatalf("unexpected services %+v", list)
	}
	staff, _ := m.ListStaff(ctx)
	if len(staff) != 1 || staff[0].Name != "Alex" {
		t.Fatalf("unexpected staff %+v", staff)
	}
}
