package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/salonsched/libs/config"
	"github.com/md-rashed-zaman/salonsched/libs/db"
	"github.com/md-rashed-zaman/salonsched/services/scheduling-service/internal/model"
	"github.com/md-rashed-zaman/salonsched/services/scheduling-service/internal/outbox"
	"github.com/md-rashed-zaman/salonsched/services/scheduling-service/internal/schedule"
)

// Runs against a database with migrations/001_init.sql applied.
func TestPostgresRoundTrip(t *testing.T) {
	url, err := config.RequiredString("TEST_DATABASE_URL")
	if err != nil {
		t.Skip(err)
	}
	ctx := context.Background()
	pool, err := db.Open(ctx, url, db.Options{MaxConns: 2})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer pool.Close()

	p := NewPostgres(pool, outbox.NewRepository())
	staffID := "pg-" + uuid.NewString()[:8]
	if err := p.PutStaff(ctx, model.Staff{ID: staffID, Name: "PG", IsActive: true}); err != nil {
		t.Fatalf("put staff: %v", err)
	}

	sched := schedule.FromWeekly(schedule.DefaultWeekly())
	sched.Exceptions = map[schedule.Date]schedule.Exception{
		schedule.MustDate("2026-12-24"): schedule.Open{Start: schedule.MustClock("09:00"), End: schedule.MustClock("12:00")},
		schedule.MustDate("2026-12-25"): schedule.Closed{},
	}
	if err := p.PutSchedule(ctx, staffID, sched); err != nil {
		t.Fatalf("put schedule: %v", err)
	}
	got, ok, err := p.GetSchedule(ctx, staffID)
	if err != nil || !ok {
		t.Fatalf("get schedule ok=%v err=%v", ok, err)
	}
	if got.Weekly != sched.Weekly || len(got.Exceptions) != 2 {
		t.Fatalf("unexpected schedule %+v", got)
	}

	now := time.Now().UTC().Truncate(time.Second)
	a := model.Appointment{
		ID:               uuid.NewString(),
		StaffID:          staffID,
		ServiceID:        "haircut",
		CustomerName:     "Jo",
		SelectedExtraIDs: []string{"wash"},
		Date:             schedule.MustDate("2026-03-02"),
		Time:             schedule.MustClock("10:00"),
		DurationMinutes:  45,
		Status:           model.StatusConfirmed,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	evt, _ := outbox.AppointmentEvent(outbox.EventBooked, a, nil, now)
	if err := p.SaveAppointment(ctx, a, evt); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := p.GetAppointment(ctx, a.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if loaded.Date != a.Date || loaded.Time != a.Time || loaded.Status != a.Status || len(loaded.SelectedExtraIDs) != 1 {
		t.Fatalf("unexpected appointment %+v", loaded)
	}
	list, err := p.ListAppointments(ctx, DayFilter{StaffID: staffID, Date: a.Date})
	if err != nil || len(list) != 1 {
		t.Fatalf("list: %v %+v", err, list)
	}

	if err := p.DeleteAppointment(ctx, a.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := p.GetAppointment(ctx, a.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := p.GetAppointment(ctx, "not-a-uuid"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for malformed id, got %v", err)
	}
}
