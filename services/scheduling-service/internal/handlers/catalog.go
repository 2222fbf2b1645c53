package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/md-rashed-zaman/salonsched/libs/httpx"
	"github.com/md-rashed-zaman/salonsched/services/scheduling-service/internal/model"
	"github.com/md-rashed-zaman/salonsched/services/scheduling-service/internal/schedule"
	"github.com/md-rashed-zaman/salonsched/services/scheduling-service/internal/storage"
)

type scheduleResponse struct {
	StaffID  string            `json:"staff_id"`
	Stored   bool              `json:"stored"`
	Schedule schedule.Schedule `json:"schedule"`
}

// StaffSchedule reads (GET) or replaces (PUT) the working hours of a staff
// member. Without a stored schedule GET returns the business hours.
func (h *Handler) StaffSchedule(w http.ResponseWriter, r *http.Request) {
	staffID := strings.TrimSpace(r.URL.Query().Get("staff_id"))
	if staffID == "" {
		http.Error(w, "staff_id is required", http.StatusBadRequest)
		return
	}

	switch r.Method {
	case http.MethodGet:
		if _, err := h.catalog.GetStaff(r.Context(), staffID); err != nil {
			h.catalogErr(w, r, err)
			return
		}
		sched, stored, err := h.placement.StaffSchedule(r.Context(), staffID)
		if err != nil {
			h.writeErr(w, r, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, scheduleResponse{StaffID: staffID, Stored: stored, Schedule: sched})
	case http.MethodPut:
		var sched schedule.Schedule
		if err := httpx.DecodeJSON(r, &sched); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := h.placement.SetStaffSchedule(r.Context(), staffID, sched); err != nil {
			h.writeErr(w, r, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, scheduleResponse{StaffID: staffID, Stored: true, Schedule: sched})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) Staff(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		list, err := h.catalog.ListStaff(r.Context())
		if err != nil {
			h.writeErr(w, r, err)
			return
		}
		if list == nil {
			list = []model.Staff{}
		}
		httpx.WriteJSON(w, http.StatusOK, map[string]any{"staff": list})
	case http.MethodPut:
		var s model.Staff
		if err := httpx.DecodeJSON(r, &s); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		s.ID = strings.TrimSpace(s.ID)
		s.Name = strings.TrimSpace(s.Name)
		if s.ID == "" || s.Name == "" {
			http.Error(w, "id and name are required", http.StatusBadRequest)
			return
		}
		if err := h.catalog.PutStaff(r.Context(), s); err != nil {
			h.writeErr(w, r, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, s)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) Services(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		list, err := h.catalog.ListServices(r.Context())
		if err != nil {
			h.writeErr(w, r, err)
			return
		}
		if list == nil {
			list = []model.Service{}
		}
		httpx.WriteJSON(w, http.StatusOK, map[string]any{"services": list})
	case http.MethodPut:
		var s model.Service
		if err := httpx.DecodeJSON(r, &s); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		s.ID = strings.TrimSpace(s.ID)
		if err := s.Validate(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := h.catalog.PutService(r.Context(), s); err != nil {
			h.writeErr(w, r, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, s)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) catalogErr(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		http.Error(w, "staff member not found", http.StatusNotFound)
		return
	}
	h.writeErr(w, r, err)
}
