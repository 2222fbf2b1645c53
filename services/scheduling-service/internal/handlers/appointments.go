package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/md-rashed-zaman/salonsched/libs/httpx"
	"github.com/md-rashed-zaman/salonsched/services/scheduling-service/internal/model"
	"github.com/md-rashed-zaman/salonsched/services/scheduling-service/internal/placement"
)

type placeRequest struct {
	AppointmentID    string   `json:"appointment_id"`
	StaffID          string   `json:"staff_id"`
	ServiceID        string   `json:"service_id"`
	SelectedExtraIDs []string `json:"selected_extra_ids"`
	Date             string   `json:"date"`
	Time             string   `json:"time"`
	CustomerName     string   `json:"customer_name"`
	CustomerEmail    string   `json:"customer_email"`
	CustomerPhone    string   `json:"customer_phone"`
	Notes            string   `json:"notes"`
	Origin           string   `json:"origin"`
}

type placeResponse struct {
	Appointment model.Appointment   `json:"appointment"`
	Conflicts   []model.Appointment `json:"conflicts"`
	NoOp        bool                `json:"no_op"`
}

type appointmentIDRequest struct {
	AppointmentID string `json:"appointment_id"`
}

type statusRequest struct {
	AppointmentID string `json:"appointment_id"`
	Status        string `json:"status"`
}

type conflictsRequest struct {
	AppointmentID    string   `json:"appointment_id"`
	StaffID          string   `json:"staff_id"`
	ServiceID        string   `json:"service_id"`
	SelectedExtraIDs []string `json:"selected_extra_ids"`
	Date             string   `json:"date"`
	Time             string   `json:"time"`
	DurationMinutes  int      `json:"duration_minutes"`
}

// Slots lists bookable start times. Slots that already started are dropped.
func (h *Handler) Slots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	q := r.URL.Query()
	date, err := parseDate(q.Get("date"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	granularity := 0
	if raw := strings.TrimSpace(q.Get("granularity")); raw != "" {
		granularity, err = strconv.Atoi(raw)
		if err != nil || granularity <= 0 || granularity > 240 {
			http.Error(w, "invalid granularity", http.StatusBadRequest)
			return
		}
	}

	out, err := h.placement.AvailableSlots(r.Context(), placement.SlotQuery{
		StaffID:              strings.TrimSpace(q.Get("staff_id")),
		ServiceID:            strings.TrimSpace(q.Get("service_id")),
		SelectedExtraIDs:     splitIDs(q.Get("extras")),
		Date:                 date,
		Granularity:          granularity,
		ExcludeAppointmentID: strings.TrimSpace(q.Get("exclude_appointment_id")),
		DropPast:             true,
	})
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) Conflicts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req conflictsRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	at, err := parseTime(req.Time)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	found, err := h.placement.FindConflicts(r.Context(), model.Appointment{
		ID:               strings.TrimSpace(req.AppointmentID),
		StaffID:          strings.TrimSpace(req.StaffID),
		ServiceID:        strings.TrimSpace(req.ServiceID),
		SelectedExtraIDs: req.SelectedExtraIDs,
		Date:             date,
		Time:             at,
		DurationMinutes:  req.DurationMinutes,
	})
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"conflicts": found})
}

// Book creates an appointment from the booking form, the admin form or the
// customer portal. Customer tokens always book as customer_portal unless
// they name booking_form.
func (h *Handler) Book(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodePlace(w, r)
	if !ok {
		return
	}
	if req.AppointmentID != "" {
		http.Error(w, "appointment_id is not allowed on create; use /api/v1/appointments/move", http.StatusBadRequest)
		return
	}
	if req.Origin == "" {
		req.Origin = placement.OriginAdminForm
	}
	h.place(w, r, req, http.StatusCreated)
}

// Move edits or reschedules an existing appointment. Calendar drag-and-drop
// sends only staff_id, date and time.
func (h *Handler) Move(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodePlace(w, r)
	if !ok {
		return
	}
	if req.AppointmentID == "" {
		http.Error(w, "appointment_id is required", http.StatusBadRequest)
		return
	}
	if req.Origin == "" {
		req.Origin = placement.OriginCalendarDrop
	}
	h.place(w, r, req, http.StatusOK)
}

func (h *Handler) decodePlace(w http.ResponseWriter, r *http.Request) (placement.PlaceRequest, bool) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return placement.PlaceRequest{}, false
	}
	var body placeRequest
	if err := httpx.DecodeJSON(r, &body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return placement.PlaceRequest{}, false
	}
	date, err := parseDate(body.Date)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return placement.PlaceRequest{}, false
	}
	at, err := parseTime(body.Time)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return placement.PlaceRequest{}, false
	}

	var origin placement.Origin
	if raw := strings.TrimSpace(body.Origin); raw != "" {
		origin, err = placement.ParseOrigin(raw)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return placement.PlaceRequest{}, false
		}
	}
	if isCustomer(r) && !origin.CustomerInitiated() {
		origin = placement.OriginCustomerPortal
	}

	return placement.PlaceRequest{
		AppointmentID:    strings.TrimSpace(body.AppointmentID),
		StaffID:          body.StaffID,
		ServiceID:        body.ServiceID,
		SelectedExtraIDs: body.SelectedExtraIDs,
		Date:             date,
		Time:             at,
		CustomerName:     body.CustomerName,
		CustomerEmail:    body.CustomerEmail,
		CustomerPhone:    body.CustomerPhone,
		Notes:            body.Notes,
		Origin:           origin,
	}, true
}

func (h *Handler) place(w http.ResponseWriter, r *http.Request, req placement.PlaceRequest, created int) {
	res, err := h.placement.Place(r.Context(), req)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	status := created
	if res.NoOp {
		status = http.StatusOK
	}
	writePlaced(w, status, res)
}

func writePlaced(w http.ResponseWriter, status int, res placement.Result) {
	conflicts := res.Conflicts
	if conflicts == nil {
		conflicts = []model.Appointment{}
	}
	httpx.WriteJSON(w, status, placeResponse{Appointment: res.Appointment, Conflicts: conflicts, NoOp: res.NoOp})
}

func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req appointmentIDRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	res, err := h.placement.Cancel(r.Context(), strings.TrimSpace(req.AppointmentID))
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	writePlaced(w, http.StatusOK, res)
}

func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req statusRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	status, err := model.ParseStatus(req.Status)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	res, err := h.placement.UpdateStatus(r.Context(), strings.TrimSpace(req.AppointmentID), status)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	writePlaced(w, http.StatusOK, res)
}

// Board lists one day of appointments with conflict badges.
func (h *Handler) Board(w http.ResponseWriter, r *http.Request) {
	if isCustomer(r) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}
	q := r.URL.Query()
	date, err := parseDate(q.Get("date"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	entries, err := h.placement.Board(r.Context(), strings.TrimSpace(q.Get("staff_id")), date)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"date": date, "appointments": entries})
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.URL.Query().Get("id"))
	if id == "" {
		http.Error(w, "id is required", http.StatusBadRequest)
		return
	}
	if err := h.placement.Delete(r.Context(), id); err != nil {
		h.writeErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
