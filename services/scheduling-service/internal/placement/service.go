// Package placement applies bookings, moves, cancellations and status changes
// to appointments. It composes the pure schedule, duration, availability,
// conflict and lifecycle packages with the stores, and serializes commits per
// staff member through a locking.Locker.
package placement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/md-rashed-zaman/salonsched/services/scheduling-service/internal/availability"
	"github.com/md-rashed-zaman/salonsched/services/scheduling-service/internal/lifecycle"
	"github.com/md-rashed-zaman/salonsched/services/scheduling-service/internal/locking"
	"github.com/md-rashed-zaman/salonsched/services/scheduling-service/internal/model"
	"github.com/md-rashed-zaman/salonsched/services/scheduling-service/internal/schedule"
	"github.com/md-rashed-zaman/salonsched/services/scheduling-service/internal/storage"
)

var tracer = otel.Tracer("scheduling-service/placement")

// Origin is where a placement request comes from. Customer-initiated origins
// are held to the published slots; admin origins only need a working day.
type Origin string

const (
	OriginBookingForm    Origin = "booking_form"
	OriginAdminForm      Origin = "admin_form"
	OriginCalendarDrop   Origin = "calendar_drop"
	OriginCustomerPortal Origin = "customer_portal"
)

func ParseOrigin(s string) (Origin, error) {
	o := Origin(s)
	if !o.Valid() {
		return "", fmt.Errorf("unknown origin %q", s)
	}
	return o, nil
}

func (o Origin) Valid() bool {
	switch o {
	case OriginBookingForm, OriginAdminForm, OriginCalendarDrop, OriginCustomerPortal:
		return true
	}
	return false
}

func (o Origin) CustomerInitiated() bool {
	return o == OriginBookingForm || o == OriginCustomerPortal
}

type Config struct {
	Appointments storage.AppointmentStore
	Schedules    storage.ScheduleStore
	Catalog      storage.CatalogStore
	// Locker defaults to an in-process keyed mutex.
	Locker locking.Locker
	Guard  lifecycle.Guard
	// BusinessHours supplies the weekly schedule for staff without one.
	BusinessHours func() schedule.Weekly
	Location      *time.Location
	Granularity   int
	Logger        *slog.Logger
}

type Service struct {
	appts         storage.AppointmentStore
	schedules     storage.ScheduleStore
	catalog       storage.CatalogStore
	locker        locking.Locker
	guard         lifecycle.Guard
	businessHours func() schedule.Weekly
	loc           *time.Location
	granularity   int
	logger        *slog.Logger
}

func New(cfg Config) *Service {
	s := &Service{
		appts:         cfg.Appointments,
		schedules:     cfg.Schedules,
		catalog:       cfg.Catalog,
		locker:        cfg.Locker,
		guard:         cfg.Guard,
		businessHours: cfg.BusinessHours,
		loc:           cfg.Location,
		granularity:   cfg.Granularity,
		logger:        cfg.Logger,
	}
	if s.locker == nil {
		s.locker = locking.NewKeyedMutex()
	}
	if s.guard.Now == nil {
		s.guard = lifecycle.NewGuard(lifecycle.DefaultMinNotice, nil)
	}
	if s.businessHours == nil {
		s.businessHours = schedule.DefaultWeekly
	}
	if s.loc == nil {
		s.loc = time.UTC
	}
	if s.granularity <= 0 {
		s.granularity = availability.DefaultGranularity
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Location is the business time zone appointment dates and times are read in.
func (s *Service) Location() *time.Location { return s.loc }

// StaffSchedule returns the stored schedule of staffID, or the business hours
// when none is stored. stored reports which one it is.
func (s *Service) StaffSchedule(ctx context.Context, staffID string) (sched schedule.Schedule, stored bool, err error) {
	sched, ok, err := s.schedules.GetSchedule(ctx, staffID)
	if err != nil {
		return schedule.Schedule{}, false, fmt.Errorf("load schedule for %s: %w", staffID, err)
	}
	if !ok {
		return schedule.FromWeekly(s.businessHours()), false, nil
	}
	return sched, true, nil
}

// SetStaffSchedule replaces the schedule of an existing staff member.
func (s *Service) SetStaffSchedule(ctx context.Context, staffID string, sched schedule.Schedule) error {
	if _, err := s.staff(ctx, staffID); err != nil {
		return err
	}
	if err := sched.Validate(); err != nil {
		return reject(KindValidation, err.Error(), err)
	}
	unlock, err := s.lockStaff(ctx, staffID)
	if err != nil {
		return err
	}
	defer unlock()
	return s.schedules.PutSchedule(ctx, staffID, sched)
}

// lockAttempts bounds how often lockAppointment chases an appointment that
// keeps moving between staff members.
const lockAttempts = 3

// lockStaff locks the calendars of staffIDs in sorted order and returns a
// func releasing them in reverse.
func (s *Service) lockStaff(ctx context.Context, staffIDs ...string) (func(), error) {
	keys := make([]string, 0, len(staffIDs))
	for _, id := range staffIDs {
		if id != "" {
			keys = append(keys, locking.StaffKey(id))
		}
	}
	slices.Sort(keys)
	keys = slices.Compact(keys)

	unlocks := make([]func(), 0, len(keys))
	release := func() {
		for i := len(unlocks) - 1; i >= 0; i-- {
			unlocks[i]()
		}
	}
	for _, key := range keys {
		unlock, err := s.locker.Lock(ctx, key)
		if err != nil {
			release()
			return nil, fmt.Errorf("lock %s: %w", key, err)
		}
		unlocks = append(unlocks, unlock)
	}
	return release, nil
}

// lockAppointment locks the calendar holding appointment id, plus the
// calendars of extraStaff, and returns the record as read under those locks.
func (s *Service) lockAppointment(ctx context.Context, id string, extraStaff ...string) (model.Appointment, func(), error) {
	for range lockAttempts {
		seen, err := s.appointment(ctx, id)
		if err != nil {
			return model.Appointment{}, nil, err
		}
		unlock, err := s.lockStaff(ctx, append([]string{seen.StaffID}, extraStaff...)...)
		if err != nil {
			return model.Appointment{}, nil, err
		}
		cur, err := s.appointment(ctx, id)
		if err != nil {
			unlock()
			return model.Appointment{}, nil, err
		}
		if cur.StaffID == seen.StaffID {
			return cur, unlock, nil
		}
		unlock()
	}
	return model.Appointment{}, nil, fmt.Errorf("lock appointment %s: staff changed %d times while locking", id, lockAttempts)
}

func (s *Service) staff(ctx context.Context, id string) (model.Staff, error) {
	if id == "" {
		return model.Staff{}, reject(KindValidation, "staff_id is required", nil)
	}
	st, err := s.catalog.GetStaff(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return model.Staff{}, reject(KindValidation, "unknown staff member", err)
	}
	if err != nil {
		return model.Staff{}, fmt.Errorf("load staff %s: %w", id, err)
	}
	return st, nil
}

func (s *Service) appointment(ctx context.Context, id string) (model.Appointment, error) {
	if id == "" {
		return model.Appointment{}, reject(KindValidation, "appointment id is required", nil)
	}
	a, err := s.appts.GetAppointment(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return model.Appointment{}, reject(KindNotFound, "appointment not found", err)
	}
	if err != nil {
		return model.Appointment{}, fmt.Errorf("load appointment %s: %w", id, err)
	}
	return a, nil
}

// dayAppointments lists staffID's appointments on date.
func (s *Service) dayAppointments(ctx context.Context, staffID string, date schedule.Date) ([]model.Appointment, error) {
	day, err := s.appts.ListAppointments(ctx, storage.DayFilter{StaffID: staffID, Date: date})
	if err != nil {
		return nil, fmt.Errorf("list appointments for %s on %s: %w", staffID, date, err)
	}
	return day, nil
}

func without(appts []model.Appointment, id string) []model.Appointment {
	if id == "" {
		return appts
	}
	out := make([]model.Appointment, 0, len(appts))
	for _, a := range appts {
		if a.ID != id {
			out = append(out, a)
		}
	}
	return out
}
