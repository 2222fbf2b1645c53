package placement

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/md-rashed-zaman/salonsched/services/scheduling-service/internal/conflict"
	"github.com/md-rashed-zaman/salonsched/services/scheduling-service/internal/lifecycle"
	"github.com/md-rashed-zaman/salonsched/services/scheduling-service/internal/model"
	"github.com/md-rashed-zaman/salonsched/services/scheduling-service/internal/outbox"
	"github.com/md-rashed-zaman/salonsched/services/scheduling-service/internal/storage"
)

// Cancel marks an appointment cancelled. Cancelling inside the notice window
// is rejected; cancelling an already cancelled appointment changes nothing.
func (s *Service) Cancel(ctx context.Context, id string) (res Result, err error) {
	ctx, span := tracer.Start(ctx, "placement.Cancel", trace.WithAttributes(attribute.String("appointment.id", id)))
	defer func() { endSpan(span, err) }()

	a, unlock, err := s.lockAppointment(ctx, id)
	if err != nil {
		return Result{}, err
	}
	defer unlock()

	return s.cancelLocked(ctx, a)
}

func (s *Service) cancelLocked(ctx context.Context, a model.Appointment) (Result, error) {
	if a.Status == model.StatusCancelled {
		return Result{Appointment: a, NoOp: true}, nil
	}
	prev := a
	if err := s.guard.Cancel(&a, s.loc); err != nil {
		s.logger.Info("cancel rejected", "appointment_id", a.ID, "start", a.Start(s.loc))
		return Result{}, noticeRejection(err)
	}
	evt, err := outbox.AppointmentEvent(outbox.EventCancelled, a, &prev, a.UpdatedAt)
	if err != nil {
		return Result{}, fmt.Errorf("build cancel event: %w", err)
	}
	if err := s.appts.SaveAppointment(ctx, a, evt); err != nil {
		return Result{}, fmt.Errorf("save appointment %s: %w", a.ID, err)
	}
	return Result{Appointment: a}, nil
}

// UpdateStatus sets an appointment's status. Any known status may follow any
// other; a change to cancelled goes through the cancel guard. Restoring a
// blocking status returns the overlaps it causes as conflicts.
func (s *Service) UpdateStatus(ctx context.Context, id string, status model.Status) (res Result, err error) {
	ctx, span := tracer.Start(ctx, "placement.UpdateStatus", trace.WithAttributes(
		attribute.String("appointment.id", id),
		attribute.String("appointment.status", string(status)),
	))
	defer func() { endSpan(span, err) }()

	a, unlock, err := s.lockAppointment(ctx, id)
	if err != nil {
		return Result{}, err
	}
	defer unlock()

	if err := lifecycle.CanTransition(a.Status, status); err != nil {
		return Result{}, reject(KindValidation, err.Error(), err)
	}

	if status == model.StatusCancelled {
		return s.cancelLocked(ctx, a)
	}
	if status == a.Status {
		return Result{Appointment: a, NoOp: true}, nil
	}

	prev := a
	now := s.guard.Now().UTC()
	a.Status = status
	a.CancelledAt = nil
	a.UpdatedAt = now

	var conflicts []model.Appointment
	if status.Blocking() && !prev.Status.Blocking() {
		day, err := s.dayAppointments(ctx, a.StaffID, a.Date)
		if err != nil {
			return Result{}, err
		}
		conflicts = conflict.Find(a, day)
	}

	evt, err := outbox.AppointmentEvent(outbox.EventStatusChanged, a, &prev, now)
	if err != nil {
		return Result{}, fmt.Errorf("build status event: %w", err)
	}
	if err := s.appts.SaveAppointment(ctx, a, evt); err != nil {
		return Result{}, fmt.Errorf("save appointment %s: %w", a.ID, err)
	}
	if len(conflicts) > 0 {
		s.logger.Warn("restored appointment overlaps existing bookings", "appointment_id", a.ID, "conflicts", conflictIDs(conflicts))
	}
	return Result{Appointment: a, Conflicts: conflicts}, nil
}

// Delete removes an appointment record. It is the admin escape hatch and
// bypasses the notice guard.
func (s *Service) Delete(ctx context.Context, id string) (err error) {
	ctx, span := tracer.Start(ctx, "placement.Delete", trace.WithAttributes(attribute.String("appointment.id", id)))
	defer func() { endSpan(span, err) }()

	a, unlock, err := s.lockAppointment(ctx, id)
	if err != nil {
		return err
	}
	defer unlock()

	evt, err := outbox.AppointmentEvent(outbox.EventDeleted, a, nil, s.guard.Now())
	if err != nil {
		return fmt.Errorf("build delete event: %w", err)
	}
	if err := s.appts.DeleteAppointment(ctx, a.ID, evt); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return reject(KindNotFound, "appointment not found", err)
		}
		return fmt.Errorf("delete appointment %s: %w", a.ID, err)
	}
	s.logger.Info("appointment deleted", "appointment_id", a.ID, "staff_id", a.StaffID)
	return nil
}
