package placement

import "errors"

type Kind string

const (
	KindValidation   Kind = "validation"
	KindNotFound     Kind = "not_found"
	KindAvailability Kind = "availability"
	KindNotice       Kind = "notice"
)

const (
	ReasonDateUnavailable = "This date is not available for the assigned staff member"
	ReasonSlotUnavailable = "slot unavailable"
	ReasonCancelled       = "appointment is cancelled; restore its status before moving it"
)

// Rejection is a user-facing refusal. Reason is safe to show to the caller.
type Rejection struct {
	Kind   Kind
	Reason string
	Err    error
}

func (r *Rejection) Error() string { return r.Reason }

func (r *Rejection) Unwrap() error { return r.Err }

func reject(kind Kind, reason string, err error) *Rejection {
	return &Rejection{Kind: kind, Reason: reason, Err: err}
}

// AsRejection unwraps err to a Rejection when it is one.
func AsRejection(err error) (*Rejection, bool) {
	var r *Rejection
	if errors.As(err, &r) {
		return r, true
	}
	return nil, false
}
