package placement

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/md-rashed-zaman/salonsched/services/scheduling-service/internal/availability"
	"github.com/md-rashed-zaman/salonsched/services/scheduling-service/internal/conflict"
	"github.com/md-rashed-zaman/salonsched/services/scheduling-service/internal/duration"
	"github.com/md-rashed-zaman/salonsched/services/scheduling-service/internal/lifecycle"
	"github.com/md-rashed-zaman/salonsched/services/scheduling-service/internal/model"
	"github.com/md-rashed-zaman/salonsched/services/scheduling-service/internal/schedule"
	"github.com/md-rashed-zaman/salonsched/services/scheduling-service/internal/storage"
)

type SlotQuery struct {
	StaffID          string
	ServiceID        string
	SelectedExtraIDs []string
	Date             schedule.Date
	// Granularity overrides the configured step when positive.
	Granularity int
	// ExcludeAppointmentID frees the slot of an appointment being moved.
	ExcludeAppointmentID string
	// DropPast removes start times that already passed.
	DropPast bool
}

type Availability struct {
	StaffID         string           `json:"staff_id"`
	ServiceID       string           `json:"service_id"`
	Date            schedule.Date    `json:"date"`
	DurationMinutes int              `json:"duration_minutes"`
	Slots           []schedule.Clock `json:"slots"`
}

// AvailableSlots lists the start times a customer could book.
func (s *Service) AvailableSlots(ctx context.Context, q SlotQuery) (out Availability, err error) {
	ctx, span := tracer.Start(ctx, "placement.AvailableSlots", trace.WithAttributes(
		attribute.String("placement.staff_id", q.StaffID),
		attribute.String("placement.date", q.Date.String()),
	))
	defer func() { endSpan(span, err) }()

	if q.Date.IsZero() {
		return Availability{}, reject(KindValidation, "date is required", nil)
	}
	if _, err := s.staff(ctx, q.StaffID); err != nil {
		return Availability{}, err
	}
	svc, err := s.service(ctx, q.ServiceID)
	if err != nil {
		return Availability{}, err
	}
	minutes := duration.Resolve(svc, q.SelectedExtraIDs)

	sched, _, err := s.StaffSchedule(ctx, q.StaffID)
	if err != nil {
		return Availability{}, err
	}
	day, err := s.dayAppointments(ctx, q.StaffID, q.Date)
	if err != nil {
		return Availability{}, err
	}
	granularity := q.Granularity
	if granularity <= 0 {
		granularity = s.granularity
	}
	slots := availability.Slots(q.Date, sched, minutes, availability.Booked(without(day, q.ExcludeAppointmentID)), granularity)
	if q.DropPast {
		slots = availability.DropPast(q.Date, slots, s.guard.Now(), s.loc)
	}
	if slots == nil {
		slots = []schedule.Clock{}
	}
	span.SetAttributes(attribute.Int("placement.slots", len(slots)))
	return Availability{
		StaffID:         q.StaffID,
		ServiceID:       svc.ID,
		Date:            q.Date,
		DurationMinutes: minutes,
		Slots:           slots,
	}, nil
}

// FindConflicts returns the stored appointments candidate would overlap. A
// candidate without DurationMinutes is sized from its service and extras.
func (s *Service) FindConflicts(ctx context.Context, candidate model.Appointment) (found []model.Appointment, err error) {
	ctx, span := tracer.Start(ctx, "placement.FindConflicts", trace.WithAttributes(
		attribute.String("placement.staff_id", candidate.StaffID),
		attribute.String("placement.date", candidate.Date.String()),
	))
	defer func() { endSpan(span, err) }()

	if candidate.StaffID == "" || candidate.Date.IsZero() {
		return nil, reject(KindValidation, "staff_id and date are required", nil)
	}
	if candidate.DurationMinutes <= 0 {
		svc, err := s.service(ctx, candidate.ServiceID)
		if err != nil {
			return nil, err
		}
		candidate.DurationMinutes = duration.Resolve(svc, candidate.SelectedExtraIDs)
	}
	if candidate.Status == "" {
		candidate.Status = model.StatusPending
	}
	day, err := s.dayAppointments(ctx, candidate.StaffID, candidate.Date)
	if err != nil {
		return nil, err
	}
	found = conflict.Find(candidate, day)
	if found == nil {
		found = []model.Appointment{}
	}
	span.SetAttributes(attribute.Int("placement.conflicts", len(found)))
	return found, nil
}

// BoardEntry is one row of the day calendar.
type BoardEntry struct {
	model.Appointment
	EndTime        schedule.Clock `json:"end"`
	Conflicts      []string       `json:"conflicts,omitempty"`
	ActionsAllowed bool           `json:"actions_allowed"`
}

// Board lists the appointments on date, for one staff member or all of them
// when staffID is empty, with conflict badges.
func (s *Service) Board(ctx context.Context, staffID string, date schedule.Date) (_ []BoardEntry, err error) {
	ctx, span := tracer.Start(ctx, "placement.Board", trace.WithAttributes(
		attribute.String("placement.staff_id", staffID),
		attribute.String("placement.date", date.String()),
	))
	defer func() { endSpan(span, err) }()

	if date.IsZero() {
		return nil, reject(KindValidation, "date is required", nil)
	}
	appts, err := s.appts.ListAppointments(ctx, storage.DayFilter{StaffID: staffID, Date: date})
	if err != nil {
		return nil, fmt.Errorf("list appointments on %s: %w", date, err)
	}
	badges := conflict.Badges(appts)
	out := make([]BoardEntry, 0, len(appts))
	for _, a := range appts {
		out = append(out, BoardEntry{
			Appointment:    a,
			EndTime:        a.End(),
			Conflicts:      badges[a.ID],
			ActionsAllowed: !lifecycle.Terminal(a.Status),
		})
	}
	return out, nil
}

func (s *Service) service(ctx context.Context, id string) (model.Service, error) {
	if id == "" {
		return model.Service{}, reject(KindValidation, "service_id is required", nil)
	}
	svc, err := s.catalog.GetService(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return model.Service{}, reject(KindValidation, "unknown service", err)
	}
	if err != nil {
		return model.Service{}, fmt.Errorf("load service %s: %w", id, err)
	}
	return svc, nil
}
