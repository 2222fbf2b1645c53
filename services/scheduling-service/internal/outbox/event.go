package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/salonsched/services/scheduling-service/internal/model"
)

const (
	EventBooked        = "scheduling.appointment.booked.v1"
	EventRescheduled   = "scheduling.appointment.rescheduled.v1"
	EventUpdated       = "scheduling.appointment.updated.v1"
	EventCancelled     = "scheduling.appointment.cancelled.v1"
	EventStatusChanged = "scheduling.appointment.status_changed.v1"
	EventDeleted       = "scheduling.appointment.deleted.v1"
)

// Event is the domain event envelope written to the outbox table.
// The Kafka topic name equals EventType.
type Event struct {
	EventID       string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

type appointmentPayload struct {
	AppointmentID    string   `json:"appointment_id"`
	StaffID          string   `json:"staff_id"`
	ServiceID        string   `json:"service_id"`
	CustomerName     string   `json:"customer_name"`
	CustomerEmail    string   `json:"customer_email,omitempty"`
	CustomerPhone    string   `json:"customer_phone,omitempty"`
	SelectedExtraIDs []string `json:"selected_extra_ids"`
	Date             string   `json:"date"`
	Time             string   `json:"time"`
	DurationMinutes  int      `json:"duration_minutes"`
	Status           string   `json:"status"`
	TotalPriceCents  int64    `json:"total_price_cents"`
	PreviousStaffID  string   `json:"previous_staff_id,omitempty"`
	PreviousDate     string   `json:"previous_date,omitempty"`
	PreviousTime     string   `json:"previous_time,omitempty"`
	PreviousStatus   string   `json:"previous_status,omitempty"`
	OccurredAt       string   `json:"occurred_at"`
}

// AppointmentEvent builds an event for a. prev, when non-nil, is the record
// before the change and fills the previous_* fields.
func AppointmentEvent(eventType string, a model.Appointment, prev *model.Appointment, at time.Time) (Event, error) {
	p := appointmentPayload{
		AppointmentID:    a.ID,
		StaffID:          a.StaffID,
		ServiceID:        a.ServiceID,
		CustomerName:     a.CustomerName,
		CustomerEmail:    a.CustomerEmail,
		CustomerPhone:    a.CustomerPhone,
		SelectedExtraIDs: a.SelectedExtraIDs,
		Date:             a.Date.String(),
		Time:             a.Time.String(),
		DurationMinutes:  a.DurationMinutes,
		Status:           string(a.Status),
		TotalPriceCents:  a.TotalPriceCents,
		OccurredAt:       at.UTC().Format(time.RFC3339),
	}
	if p.SelectedExtraIDs == nil {
		p.SelectedExtraIDs = []string{}
	}
	if prev != nil {
		p.PreviousStaffID = prev.StaffID
		p.PreviousDate = prev.Date.String()
		p.PreviousTime = prev.Time.String()
		p.PreviousStatus = string(prev.Status)
	}
	payload, err := json.Marshal(p)
	if err != nil {
		return Event{}, err
	}
	return Event{
		EventID:       uuid.NewString(),
		AggregateType: "appointment",
		AggregateID:   a.ID,
		EventType:     eventType,
		Payload:       payload,
	}, nil
}
