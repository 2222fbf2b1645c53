package placement

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/md-rashed-zaman/salonsched/services/scheduling-service/internal/availability"
	"github.com/md-rashed-zaman/salonsched/services/scheduling-service/internal/conflict"
	"github.com/md-rashed-zaman/salonsched/services/scheduling-service/internal/duration"
	"github.com/md-rashed-zaman/salonsched/services/scheduling-service/internal/lifecycle"
	"github.com/md-rashed-zaman/salonsched/services/scheduling-service/internal/model"
	"github.com/md-rashed-zaman/salonsched/services/scheduling-service/internal/outbox"
	"github.com/md-rashed-zaman/salonsched/services/scheduling-service/internal/schedule"
	"github.com/md-rashed-zaman/salonsched/services/scheduling-service/internal/storage"
)

// PlaceRequest books a new appointment (AppointmentID empty) or edits/moves an
// existing one. On edits, an empty ServiceID, nil SelectedExtraIDs and empty
// customer fields keep the stored values.
type PlaceRequest struct {
	AppointmentID    string
	StaffID          string
	ServiceID        string
	SelectedExtraIDs []string
	Date             schedule.Date
	Time             schedule.Clock
	CustomerName     string
	CustomerEmail    string
	CustomerPhone    string
	Notes            string
	Origin           Origin
}

type Result struct {
	Appointment model.Appointment
	// Conflicts are overlapping appointments of the same staff member. They
	// never block an admin placement.
	Conflicts []model.Appointment
	// NoOp is set when an existing appointment was dropped onto its own slot.
	NoOp bool
}

// Place validates and stores a booking or move.
func (s *Service) Place(ctx context.Context, req PlaceRequest) (res Result, err error) {
	ctx, span := tracer.Start(ctx, "placement.Place", trace.WithAttributes(
		attribute.String("placement.origin", string(req.Origin)),
		attribute.String("placement.staff_id", req.StaffID),
		attribute.String("placement.date", req.Date.String()),
	))
	defer func() { endSpan(span, err) }()

	if !req.Origin.Valid() {
		return Result{}, reject(KindValidation, fmt.Sprintf("unknown origin %q", req.Origin), nil)
	}
	if req.Date.IsZero() {
		return Result{}, reject(KindValidation, "date is required", nil)
	}
	if !req.Time.Valid() || req.Time == schedule.EndOfDay {
		return Result{}, reject(KindValidation, "invalid time", nil)
	}

	// The record and the target calendar are read under the locks of both
	// the current and the requested staff member.
	var existing *model.Appointment
	if req.AppointmentID != "" {
		a, unlock, err := s.lockAppointment(ctx, req.AppointmentID, strings.TrimSpace(req.StaffID))
		if err != nil {
			return Result{}, err
		}
		defer unlock()
		if slotOnlyDrop(a, req) {
			return Result{Appointment: a, NoOp: true}, nil
		}
		if a.Status == model.StatusCancelled {
			return Result{}, reject(KindValidation, ReasonCancelled, nil)
		}
		existing = &a
	} else {
		unlock, err := s.lockStaff(ctx, strings.TrimSpace(req.StaffID))
		if err != nil {
			return Result{}, err
		}
		defer unlock()
	}

	cand, err := s.candidate(ctx, req, existing)
	if err != nil {
		return Result{}, err
	}

	if existing != nil && unchanged(*existing, cand) {
		return Result{Appointment: *existing, NoOp: true}, nil
	}

	day, err := s.dayAppointments(ctx, cand.StaffID, cand.Date)
	if err != nil {
		return Result{}, err
	}
	conflicts := conflict.Find(cand, day)

	sched, _, err := s.StaffSchedule(ctx, cand.StaffID)
	if err != nil {
		return Result{}, err
	}
	if !schedule.IsDateAvailable(cand.Date, sched) {
		s.logger.Info("placement rejected", "reason", ReasonDateUnavailable, "staff_id", cand.StaffID, "date", cand.Date.String(), "origin", req.Origin)
		return Result{}, reject(KindAvailability, ReasonDateUnavailable, nil)
	}
	if req.Origin.CustomerInitiated() {
		booked := availability.Booked(without(day, cand.ID))
		slots := availability.Slots(cand.Date, sched, cand.DurationMinutes, booked, s.granularity)
		slots = availability.DropPast(cand.Date, slots, s.guard.Now(), s.loc)
		if !availability.Contains(slots, cand.Time) {
			s.logger.Info("placement rejected", "reason", ReasonSlotUnavailable, "staff_id", cand.StaffID, "date", cand.Date.String(), "time", cand.Time.String(), "origin", req.Origin)
			return Result{}, reject(KindAvailability, ReasonSlotUnavailable, nil)
		}
	}

	moved := existing != nil && (existing.Date != cand.Date || existing.Time != cand.Time)
	if moved {
		if err := s.guard.CheckReschedule(cand.Start(s.loc)); err != nil {
			return Result{}, noticeRejection(err)
		}
	}

	now := s.guard.Now().UTC()
	eventType := outbox.EventUpdated
	switch {
	case existing == nil:
		cand.Status = lifecycle.InitialStatus(req.Origin.CustomerInitiated())
		cand.CreatedAt = now
		eventType = outbox.EventBooked
	case moved:
		cand.Status = model.StatusRescheduled
		eventType = outbox.EventRescheduled
	}
	cand.UpdatedAt = now

	evt, err := outbox.AppointmentEvent(eventType, cand, existing, now)
	if err != nil {
		return Result{}, fmt.Errorf("build %s event: %w", eventType, err)
	}
	if err := s.appts.SaveAppointment(ctx, cand, evt); err != nil {
		return Result{}, fmt.Errorf("save appointment %s: %w", cand.ID, err)
	}

	if len(conflicts) > 0 {
		s.logger.Warn("appointment overlaps existing bookings",
			"appointment_id", cand.ID,
			"staff_id", cand.StaffID,
			"date", cand.Date.String(),
			"conflicts", conflictIDs(conflicts),
			"origin", req.Origin,
		)
	}
	return Result{Appointment: cand, Conflicts: conflicts}, nil
}

// candidate builds the appointment a request would store, resolving the
// occupied minutes and price from the service catalog.
func (s *Service) candidate(ctx context.Context, req PlaceRequest, existing *model.Appointment) (model.Appointment, error) {
	var a model.Appointment
	if existing != nil {
		a = *existing
	} else {
		a.ID = uuid.NewString()
	}

	if req.StaffID != "" {
		a.StaffID = strings.TrimSpace(req.StaffID)
	}
	st, err := s.staff(ctx, a.StaffID)
	if err != nil {
		return model.Appointment{}, err
	}
	if !st.IsActive && req.Origin.CustomerInitiated() {
		return model.Appointment{}, reject(KindValidation, "staff member is not taking bookings", nil)
	}

	serviceID := strings.TrimSpace(req.ServiceID)
	if serviceID == "" {
		serviceID = a.ServiceID
	}
	if serviceID == "" {
		return model.Appointment{}, reject(KindValidation, "service_id is required", nil)
	}
	extras := req.SelectedExtraIDs
	if extras == nil {
		extras = a.SelectedExtraIDs
	}

	svc, err := s.catalog.GetService(ctx, serviceID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		// A deleted service keeps its recorded duration on untouched bookings.
		if existing == nil || serviceID != existing.ServiceID || !slices.Equal(extras, existing.SelectedExtraIDs) {
			return model.Appointment{}, reject(KindValidation, "unknown service", err)
		}
	case err != nil:
		return model.Appointment{}, fmt.Errorf("load service %s: %w", serviceID, err)
	default:
		a.ServiceID = svc.ID
		a.SelectedExtraIDs = duration.Known(svc, extras)
		a.DurationMinutes = duration.Resolve(svc, a.SelectedExtraIDs)
		a.TotalPriceCents = duration.Price(svc, a.SelectedExtraIDs)
	}
	if a.DurationMinutes <= 0 {
		return model.Appointment{}, reject(KindValidation, "service has no duration", nil)
	}

	a.Date = req.Date
	a.Time = req.Time
	if v := strings.TrimSpace(req.CustomerName); v != "" {
		a.CustomerName = v
	}
	if v := strings.TrimSpace(req.CustomerEmail); v != "" {
		a.CustomerEmail = v
	}
	if v := strings.TrimSpace(req.CustomerPhone); v != "" {
		a.CustomerPhone = v
	}
	if v := strings.TrimSpace(req.Notes); v != "" {
		a.Notes = v
	}
	if existing == nil && a.CustomerName == "" {
		return model.Appointment{}, reject(KindValidation, "customer_name is required", nil)
	}
	if a.End() > schedule.EndOfDay {
		return model.Appointment{}, reject(KindValidation, "appointment runs past midnight", nil)
	}
	return a, nil
}

// slotOnlyDrop reports a request that only names a slot, and the slot is the
// one a already occupies.
func slotOnlyDrop(a model.Appointment, req PlaceRequest) bool {
	staffID := strings.TrimSpace(req.StaffID)
	if staffID == "" {
		staffID = a.StaffID
	}
	serviceID := strings.TrimSpace(req.ServiceID)
	return staffID == a.StaffID && req.Date == a.Date && req.Time == a.Time &&
		(serviceID == "" || serviceID == a.ServiceID) &&
		req.SelectedExtraIDs == nil &&
		req.CustomerName == "" && req.CustomerEmail == "" && req.CustomerPhone == "" && req.Notes == ""
}

// unchanged reports whether storing b over a would change nothing.
func unchanged(a, b model.Appointment) bool {
	return a.StaffID == b.StaffID &&
		a.Date == b.Date &&
		a.Time == b.Time &&
		a.ServiceID == b.ServiceID &&
		a.DurationMinutes == b.DurationMinutes &&
		a.TotalPriceCents == b.TotalPriceCents &&
		slices.Equal(a.SelectedExtraIDs, b.SelectedExtraIDs) &&
		a.CustomerName == b.CustomerName &&
		a.CustomerEmail == b.CustomerEmail &&
		a.CustomerPhone == b.CustomerPhone &&
		a.Notes == b.Notes
}

func noticeRejection(err error) error {
	if errors.Is(err, lifecycle.ErrNoticeWindow) {
		return reject(KindNotice, err.Error(), err)
	}
	return err
}

func conflictIDs(list []model.Appointment) []string {
	ids := make([]string, len(list))
	for i, a := range list {
		ids[i] = a.ID
	}
	return ids
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		if r, ok := AsRejection(err); ok {
			span.SetAttributes(attribute.String("placement.rejection", string(r.Kind)))
		} else {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}
	span.End()
}
