package lifecycle

import (
	"errors"
	"fmt"
	"time"

	"github.com/md-rashed-zaman/salonsched/services/scheduling-service/internal/model"
)

const DefaultMinNotice = 24 * time.Hour

var (
	ErrNoticeWindow  = errors.New("inside minimum notice window")
	ErrUnknownStatus = errors.New("unknown status")
)

// NoticeError is returned when a cancel or reschedule falls inside the
// minimum notice window. Its message is shown to the customer.
type NoticeError struct {
	Action    string
	MinNotice time.Duration
}

func (e *NoticeError) Error() string {
	return fmt.Sprintf("Appointments can only be %s at least %s in advance", e.Action, formatNotice(e.MinNotice))
}

func (e *NoticeError) Unwrap() error { return ErrNoticeWindow }

func formatNotice(d time.Duration) string {
	hours := int(d / time.Hour)
	if d%time.Hour == 0 {
		if hours == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", hours)
	}
	return d.String()
}

// Guard applies the advance-notice rules.
type Guard struct {
	MinNotice time.Duration
	Now       func() time.Time
}

func NewGuard(minNotice time.Duration, now func() time.Time) Guard {
	if minNotice < 0 {
		minNotice = DefaultMinNotice
	}
	if now == nil {
		now = time.Now
	}
	return Guard{MinNotice: minNotice, Now: now}
}

// CheckCancel rejects cancelling an appointment that starts within MinNotice.
func (g Guard) CheckCancel(start time.Time) error {
	if start.Sub(g.Now()) < g.MinNotice {
		return &NoticeError{Action: "cancelled", MinNotice: g.MinNotice}
	}
	return nil
}

// CheckReschedule rejects a move whose new start is within MinNotice.
func (g Guard) CheckReschedule(newStart time.Time) error {
	if newStart.Sub(g.Now()) < g.MinNotice {
		return &NoticeError{Action: "rescheduled", MinNotice: g.MinNotice}
	}
	return nil
}

// CanTransition allows any known status to follow any other. Admins correct
// records freely; only the notice guards restrict changes.
func CanTransition(from, to model.Status) error {
	if !from.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownStatus, from)
	}
	if !to.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownStatus, to)
	}
	return nil
}

// Terminal reports statuses for which clients offer no further actions.
func Terminal(s model.Status) bool {
	return s == model.StatusCompleted || s == model.StatusCancelled
}

// InitialStatus is the status a new booking starts in.
func InitialStatus(customerInitiated bool) model.Status {
	if customerInitiated {
		return model.StatusPending
	}
	return model.StatusConfirmed
}

// Cancel marks a as cancelled at now after checking the notice guard.
func (g Guard) Cancel(a *model.Appointment, loc *time.Location) error {
	if err := g.CheckCancel(a.Start(loc)); err != nil {
		return err
	}
	now := g.Now().UTC()
	a.Status = model.StatusCancelled
	a.CancelledAt = &now
	a.UpdatedAt = now
	return nil
}
