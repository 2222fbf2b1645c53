package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/md-rashed-zaman/salonsched/services/scheduling-service/internal/model"
	"github.com/md-rashed-zaman/salonsched/services/scheduling-service/internal/outbox"
	"github.com/md-rashed-zaman/salonsched/services/scheduling-service/internal/schedule"
)

// Memory implements every store in process. Values are copied in and out so
// callers cannot mutate stored records.
type Memory struct {
	mu           sync.RWMutex
	appointments map[string]model.Appointment
	schedules    map[string]schedule.Schedule
	staff        map[string]model.Staff
	services     map[string]model.Service
	events       []outbox.Event
}

func NewMemory() *Memory {
	return &Memory{
		appointments: map[string]model.Appointment{},
		schedules:    map[string]schedule.Schedule{},
		staff:        map[string]model.Staff{},
		services:     map[string]model.Service{},
	}
}

func (m *Memory) GetAppointment(_ context.Context, id string) (model.Appointment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.appointments[id]
	if !ok {
		return model.Appointment{}, ErrNotFound
	}
	return cloneAppointment(a), nil
}

func (m *Memory) ListAppointments(_ context.Context, f DayFilter) ([]model.Appointment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.Appointment
	for _, a := range m.appointments {
		if a.Date != f.Date {
			continue
		}
		if f.StaffID != "" && a.StaffID != f.StaffID {
			continue
		}
		out = append(out, cloneAppointment(a))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Time != out[j].Time {
			return out[i].Time < out[j].Time
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *Memory) SaveAppointment(_ context.Context, a model.Appointment, events ...outbox.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.appointments[a.ID] = cloneAppointment(a)
	m.events = append(m.events, events...)
	return nil
}

func (m *Memory) DeleteAppointment(_ context.Context, id string, events ...outbox.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.appointments[id]; !ok {
		return ErrNotFound
	}
	delete(m.appointments, id)
	m.events = append(m.events, events...)
	return nil
}

// Events returns the events recorded so far, oldest first.
func (m *Memory) Events() []outbox.Event {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]outbox.Event, len(m.events))
	copy(out, m.events)
	return out
}

func (m *Memory) GetSchedule(_ context.Context, staffID string) (schedule.Schedule, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.schedules[staffID]
	if !ok {
		return schedule.Schedule{}, false, nil
	}
	return cloneSchedule(s), true, nil
}

func (m *Memory) PutSchedule(_ context.Context, staffID string, s schedule.Schedule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.schedules[staffID] = cloneSchedule(s)
	return nil
}

func (m *Memory) GetStaff(_ context.Context, id string) (model.Staff, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.staff[id]
	if !ok {
		return model.Staff{}, ErrNotFound
	}
	return s, nil
}

func (m *Memory) ListStaff(_ context.Context) ([]model.Staff, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.Staff, 0, len(m.staff))
	for _, s := range m.staff {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) PutStaff(_ context.Context, s model.Staff) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.staff[s.ID] = s
	return nil
}

func (m *Memory) GetService(_ context.Context, id string) (model.Service, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.services[id]
	if !ok {
		return model.Service{}, ErrNotFound
	}
	return cloneService(s), nil
}

func (m *Memory) ListServices(_ context.Context) ([]model.Service, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.Service, 0, len(m.services))
	for _, s := range m.services {
		out = append(out, cloneService(s))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) PutService(_ context.Context, s model.Service) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.services[s.ID] = cloneService(s)
	return nil
}

func cloneAppointment(a model.Appointment) model.Appointment {
	if a.SelectedExtraIDs != nil {
		a.SelectedExtraIDs = append([]string(nil), a.SelectedExtraIDs...)
	}
	if a.CancelledAt != nil {
		t := *a.CancelledAt
		a.CancelledAt = &t
	}
	return a
}

func cloneService(s model.Service) model.Service {
	if s.Extras != nil {
		s.Extras = append([]model.Extra(nil), s.Extras...)
	}
	return s
}

func cloneSchedule(s schedule.Schedule) schedule.Schedule {
	if s.Exceptions == nil {
		return s
	}
	ex := make(map[schedule.Date]schedule.Exception, len(s.Exceptions))
	for d, e := range s.Exceptions {
		ex[d] = e
	}
	s.Exceptions = ex
	return s
}

var (
	_ AppointmentStore = (*Memory)(nil)
	_ ScheduleStore    = (*Memory)(nil)
	_ CatalogStore     = (*Memory)(nil)
)
