package placement

import (
	"context"
	"io"
	"log/slog"
	"slices"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/md-rashed-zaman/salonsched/services/scheduling-service/internal/lifecycle"
	"github.com/md-rashed-zaman/salonsched/services/scheduling-service/internal/model"
	"github.com/md-rashed-zaman/salonsched/services/scheduling-service/internal/schedule"
	"github.com/md-rashed-zaman/salonsched/services/scheduling-service/internal/storage"
)

// interleavedStore runs commit once, right after the first appointment read,
// standing in for a request that commits between two steps of another.
type interleavedStore struct {
	*storage.Memory
	fired  bool
	commit func()
}

func (s *interleavedStore) GetAppointment(ctx context.Context, id string) (model.Appointment, error) {
	a, err := s.Memory.GetAppointment(ctx, id)
	if !s.fired && s.commit != nil {
		s.fired = true
		s.commit()
	}
	return a, err
}

// missingServices hides services from the catalog as if they were deleted.
type missingServices struct {
	*storage.Memory
	gone map[string]bool
}

func (m *missingServices) GetService(ctx context.Context, id string) (model.Service, error) {
	if m.gone[id] {
		return model.Service{}, storage.ErrNotFound
	}
	return m.Memory.GetService(ctx, id)
}

// rewire rebuilds f.svc on top of other appointment and catalog stores.
func (f *fixture) rewire(appts storage.AppointmentStore, catalog storage.CatalogStore) {
	f.svc = New(Config{
		Appointments: appts,
		Schedules:    f.store,
		Catalog:      catalog,
		Guard:        lifecycle.NewGuard(lifecycle.DefaultMinNotice, func() time.Time { return f.now }),
		Location:     time.UTC,
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func (f *fixture) stored(t *testing.T, id string) model.Appointment {
	t.Helper()
	a, err := f.store.GetAppointment(context.Background(), id)
	if err != nil {
		t.Fatalf("get %s: %v", id, err)
	}
	return a
}

func TestMoveDoesNotUndoConcurrentCancel(t *testing.T) {
	f := newFixture(t, time.Date(2026, 2, 20, 8, 0, 0, 0, time.UTC))
	booked := f.book(t, PlaceRequest{StaffID: "alex", ServiceID: "haircut", Date: monday, Time: schedule.MustClock("10:00"), Origin: OriginAdminForm})
	id := booked.Appointment.ID

	store := &interleavedStore{Memory: f.store}
	f.rewire(store, f.store)
	store.commit = func() {
		if _, err := f.svc.Cancel(context.Background(), id); err != nil {
			t.Fatalf("cancel: %v", err)
		}
	}

	_, err := f.svc.Place(context.Background(), PlaceRequest{AppointmentID: id, Date: monday, Time: schedule.MustClock("11:00"), Origin: OriginCalendarDrop})
	r := wantRejection(t, err, KindValidation)
	if r.Reason != ReasonCancelled {
		t.Fatalf("unexpected reason %q", r.Reason)
	}
	got := f.stored(t, id)
	if got.Status != model.StatusCancelled || got.CancelledAt == nil || got.Time != schedule.MustClock("10:00") {
		t.Fatalf("cancellation was overwritten: %+v", got)
	}
}

func TestCancelKeepsConcurrentMove(t *testing.T) {
	f := newFixture(t, time.Date(2026, 2, 20, 8, 0, 0, 0, time.UTC))
	booked := f.book(t, PlaceRequest{StaffID: "alex", ServiceID: "haircut", Date: monday, Time: schedule.MustClock("10:00"), Origin: OriginAdminForm})
	id := booked.Appointment.ID

	store := &interleavedStore{Memory: f.store}
	f.rewire(store, f.store)
	store.commit = func() {
		if _, err := f.svc.Place(context.Background(), PlaceRequest{AppointmentID: id, Date: monday, Time: schedule.MustClock("14:00"), Origin: OriginCalendarDrop}); err != nil {
			t.Fatalf("move: %v", err)
		}
	}

	if _, err := f.svc.Cancel(context.Background(), id); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	got := f.stored(t, id)
	if got.Status != model.StatusCancelled || got.Time != schedule.MustClock("14:00") {
		t.Fatalf("expected the moved appointment to be cancelled at 14:00, got %+v", got)
	}
}

func TestStatusUpdateFollowsStaffReassignment(t *testing.T) {
	f := newFixture(t, time.Date(2026, 2, 20, 8, 0, 0, 0, time.UTC))
	booked := f.book(t, PlaceRequest{StaffID: "alex", ServiceID: "haircut", Date: monday, Time: schedule.MustClock("10:00"), Origin: OriginAdminForm})
	id := booked.Appointment.ID

	store := &interleavedStore{Memory: f.store}
	f.rewire(store, f.store)
	store.commit = func() {
		if _, err := f.svc.Place(context.Background(), PlaceRequest{AppointmentID: id, StaffID: "sam", Date: monday, Time: schedule.MustClock("10:00"), Origin: OriginAdminForm}); err != nil {
			t.Fatalf("reassign: %v", err)
		}
	}

	res, err := f.svc.UpdateStatus(context.Background(), id, model.StatusCompleted)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	got := f.stored(t, id)
	if got.StaffID != "sam" || got.Status != model.StatusCompleted || res.Appointment.StaffID != "sam" {
		t.Fatalf("reassignment was lost: stored %+v result %+v", got, res.Appointment)
	}
}

func TestLockStaffSortsAndDeduplicates(t *testing.T) {
	f := newFixture(t, time.Date(2026, 2, 20, 8, 0, 0, 0, time.UTC))
	rec := &recordingLocker{}
	f.svc.locker = rec
	unlock, err := f.svc.lockStaff(context.Background(), "sam", "", "alex", "sam")
	if err != nil {
		t.Fatalf("lock: %v", err)
	}
	unlock()
	want := []string{"lock staff:alex", "lock staff:sam", "unlock staff:sam", "unlock staff:alex"}
	if !slices.Equal(rec.calls, want) {
		t.Fatalf("expected %v, got %v", want, rec.calls)
	}
}

type recordingLocker struct {
	calls []string
}

func (r *recordingLocker) Lock(_ context.Context, key string) (func(), error) {
	r.calls = append(r.calls, "lock "+key)
	return func() { r.calls = append(r.calls, "unlock "+key) }, nil
}

func TestDeletedServiceKeepsRecordedDuration(t *testing.T) {
	f := newFixture(t, time.Date(2026, 2, 20, 8, 0, 0, 0, time.UTC))
	booked := f.book(t, PlaceRequest{
		StaffID:          "alex",
		ServiceID:        "haircut",
		SelectedExtraIDs: []string{"wash"},
		Date:             monday,
		Time:             schedule.MustClock("10:00"),
		Origin:           OriginAdminForm,
	})
	id := booked.Appointment.ID

	f.rewire(f.store, &missingServices{Memory: f.store, gone: map[string]bool{"haircut": true}})

	res, err := f.svc.Place(context.Background(), PlaceRequest{AppointmentID: id, Date: monday, Time: schedule.MustClock("11:00"), Origin: OriginCalendarDrop})
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	if res.Appointment.DurationMinutes != 45 || res.Appointment.TotalPriceCents != 3500 {
		t.Fatalf("expected recorded 45 min / 3500, got %d / %d", res.Appointment.DurationMinutes, res.Appointment.TotalPriceCents)
	}
	if res.Appointment.Time != schedule.MustClock("11:00") || res.Appointment.ServiceID != "haircut" {
		t.Fatalf("unexpected moved appointment %+v", res.Appointment)
	}

	_, err = f.svc.Place(context.Background(), PlaceRequest{
		AppointmentID:    id,
		SelectedExtraIDs: []string{},
		Date:             monday,
		Time:             schedule.MustClock("12:00"),
		Origin:           OriginAdminForm,
	})
	r := wantRejection(t, err, KindValidation)
	if r.Reason != "unknown service" {
		t.Fatalf("unexpected reason %q", r.Reason)
	}
	if got := f.stored(t, id); got.Time != schedule.MustClock("11:00") || len(got.SelectedExtraIDs) != 1 {
		t.Fatalf("rejected edit changed the record: %+v", got)
	}
}

func TestQueriesAreTraced(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec)))

	f := newFixture(t, time.Date(2026, 2, 20, 8, 0, 0, 0, time.UTC))
	ctx := context.Background()
	if _, err := f.svc.FindConflicts(ctx, model.Appointment{StaffID: "alex", ServiceID: "haircut", Date: monday, Time: schedule.MustClock("10:00")}); err != nil {
		t.Fatalf("conflicts: %v", err)
	}
	if _, err := f.svc.Board(ctx, "alex", monday); err != nil {
		t.Fatalf("board: %v", err)
	}
	if _, err := f.svc.Board(ctx, "alex", schedule.Date{}); err == nil {
		t.Fatal("expected board to reject an empty date")
	}

	counts := map[string]int{}
	rejected := false
	for _, span := range rec.Ended() {
		counts[span.Name()]++
		for _, kv := range span.Attributes() {
			if span.Name() == "placement.Board" && kv.Key == "placement.rejection" && kv.Value.AsString() == string(KindValidation) {
				rejected = true
			}
		}
	}
	if counts["placement.FindConflicts"] != 1 || counts["placement.Board"] != 2 {
		t.Fatalf("unexpected spans %v", counts)
	}
	if !rejected {
		t.Fatal("expected the rejected board call to carry its rejection kind")
	}
}
