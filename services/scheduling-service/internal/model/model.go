package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/md-rashed-zaman/salonsched/services/scheduling-service/internal/schedule"
)

type Status string

const (
	StatusPending     Status = "pending"
	StatusConfirmed   Status = "confirmed"
	StatusCompleted   Status = "completed"
	StatusCancelled   Status = "cancelled"
	StatusRescheduled Status = "rescheduled"
	StatusRejected    Status = "rejected"
	StatusNoShow      Status = "no-show"
	StatusEmergency   Status = "emergency"
)

var statuses = []Status{
	StatusPending,
	StatusConfirmed,
	StatusCompleted,
	StatusCancelled,
	StatusRescheduled,
	StatusRejected,
	StatusNoShow,
	StatusEmergency,
}

func Statuses() []Status {
	out := make([]Status, len(statuses))
	copy(out, statuses)
	return out
}

// ParseStatus accepts wire values case-insensitively; "noshow" and "no_show"
// are accepted for no-show.
func ParseStatus(s string) (Status, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	if v == "noshow" || v == "no_show" {
		v = string(StatusNoShow)
	}
	for _, st := range statuses {
		if string(st) == v {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown status %q", s)
}

func (s Status) Valid() bool {
	for _, st := range statuses {
		if s == st {
			return true
		}
	}
	return false
}

// Blocking reports whether an appointment in this status occupies its slot.
func (s Status) Blocking() bool {
	return s != StatusCancelled && s != StatusRejected
}

type Extra struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	DurationMinutes int    `json:"duration_minutes"`
	PriceCents      int64  `json:"price_cents"`
}

type Service struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	DurationMinutes int     `json:"duration_minutes"`
	PriceCents      int64   `json:"price_cents"`
	Extras          []Extra `json:"extras"`
}

func (s Service) Validate() error {
	if strings.TrimSpace(s.ID) == "" {
		return fmt.Errorf("service id required")
	}
	if s.DurationMinutes < 1 {
		return fmt.Errorf("service %s: duration must be at least 1 minute", s.ID)
	}
	seen := map[string]struct{}{}
	for _, e := range s.Extras {
		if strings.TrimSpace(e.ID) == "" {
			return fmt.Errorf("service %s: extra id required", s.ID)
		}
		if _, dup := seen[e.ID]; dup {
			return fmt.Errorf("service %s: duplicate extra %s", s.ID, e.ID)
		}
		seen[e.ID] = struct{}{}
		if e.DurationMinutes < 0 {
			return fmt.Errorf("service %s: extra %s has negative duration", s.ID, e.ID)
		}
	}
	return nil
}

type Staff struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	IsActive bool   `json:"is_active"`
}

type Appointment struct {
	ID               string         `json:"id"`
	StaffID          string         `json:"staff_id"`
	ServiceID        string         `json:"service_id"`
	CustomerName     string         `json:"customer_name"`
	CustomerEmail    string         `json:"customer_email,omitempty"`
	CustomerPhone    string         `json:"customer_phone,omitempty"`
	SelectedExtraIDs []string       `json:"selected_extra_ids"`
	Date             schedule.Date  `json:"date"`
	Time             schedule.Clock `json:"time"`
	DurationMinutes  int            `json:"duration_minutes"`
	Status           Status         `json:"status"`
	TotalPriceCents  int64          `json:"total_price_cents"`
	Notes            string         `json:"notes,omitempty"`
	CancelledAt      *time.Time     `json:"cancelled_at,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// End is the exclusive end of the occupied interval.
func (a Appointment) End() schedule.Clock {
	return a.Time.Add(a.DurationMinutes)
}

// Overlaps reports whether the half-open intervals of a and b intersect.
// Staff and date are not compared.
func (a Appointment) Overlaps(b Appointment) bool {
	return a.Time < b.End() && a.End() > b.Time
}

// Start returns the start instant of a in loc.
func (a Appointment) Start(loc *time.Location) time.Time {
	return a.Date.At(a.Time, loc)
}
