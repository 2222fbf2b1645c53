// Package storage holds the appointment, schedule and catalog stores used by
// placement. Memory backs tests and single-node runs without DATABASE_URL;
// the Postgres repositories back everything else.
package storage

import (
	"context"
	"errors"

	"github.com/md-rashed-zaman/salonsched/services/scheduling-service/internal/model"
	"github.com/md-rashed-zaman/salonsched/services/scheduling-service/internal/outbox"
	"github.com/md-rashed-zaman/salonsched/services/scheduling-service/internal/schedule"
)

var ErrNotFound = errors.New("not found")

// DayFilter selects appointments on one date. An empty StaffID means all staff.
type DayFilter struct {
	StaffID string
	Date    schedule.Date
}

type AppointmentStore interface {
	GetAppointment(ctx context.Context, id string) (model.Appointment, error)
	ListAppointments(ctx context.Context, f DayFilter) ([]model.Appointment, error)
	// SaveAppointment inserts or replaces a by id and records events atomically.
	SaveAppointment(ctx context.Context, a model.Appointment, events ...outbox.Event) error
	DeleteAppointment(ctx context.Context, id string, events ...outbox.Event) error
}

type ScheduleStore interface {
	// GetSchedule reports ok=false when the staff member has no stored schedule.
	GetSchedule(ctx context.Context, staffID string) (s schedule.Schedule, ok bool, err error)
	PutSchedule(ctx context.Context, staffID string, s schedule.Schedule) error
}

type CatalogStore interface {
	GetStaff(ctx context.Context, id string) (model.Staff, error)
	ListStaff(ctx context.Context) ([]model.Staff, error)
	PutStaff(ctx context.Context, s model.Staff) error
	GetService(ctx context.Context, id string) (model.Service, error)
	ListServices(ctx context.Context) ([]model.Service, error)
	PutService(ctx context.Context, s model.Service) error
}
