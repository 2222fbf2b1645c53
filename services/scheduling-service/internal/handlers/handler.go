package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/md-rashed-zaman/salonsched/libs/auth"
	"github.com/md-rashed-zaman/salonsched/libs/httpx"
	"github.com/md-rashed-zaman/salonsched/services/scheduling-service/internal/placement"
	"github.com/md-rashed-zaman/salonsched/services/scheduling-service/internal/schedule"
	"github.com/md-rashed-zaman/salonsched/services/scheduling-service/internal/storage"
)

// Access wraps a route so only callers with one of roles reach it. No roles
// means the route is public.
type Access func(h http.Handler, roles ...string) http.Handler

// Open performs no checks. It is used when JWT_SECRET is unset.
func Open(h http.Handler, _ ...string) http.Handler { return h }

// RequireToken builds an Access that verifies bearer tokens with v.
func RequireToken(v *auth.Verifier) Access {
	return func(h http.Handler, roles ...string) http.Handler {
		if len(roles) == 0 {
			return h
		}
		return auth.RequireAuth(auth.RequireRole(h, roles...), v)
	}
}

type Handler struct {
	placement *placement.Service
	catalog   storage.CatalogStore
	logger    *slog.Logger
}

func New(p *placement.Service, catalog storage.CatalogStore, logger *slog.Logger) *Handler {
	return &Handler{placement: p, catalog: catalog, logger: logger}
}

// Register mounts the scheduling API on mux.
func (h *Handler) Register(mux *http.ServeMux, access Access) {
	if access == nil {
		access = Open
	}
	anyone := []string{auth.RoleAdmin, auth.RoleStaff, auth.RoleCustomer}
	team := []string{auth.RoleAdmin, auth.RoleStaff}

	mux.Handle("/api/v1/slots", access(http.HandlerFunc(h.Slots)))
	mux.Handle("/api/v1/conflicts", access(http.HandlerFunc(h.Conflicts), team...))
	mux.Handle("/api/v1/appointments", access(http.HandlerFunc(h.Appointments), anyone...))
	mux.Handle("/api/v1/appointments/move", access(http.HandlerFunc(h.Move), anyone...))
	mux.Handle("/api/v1/appointments/cancel", access(http.HandlerFunc(h.Cancel), anyone...))
	mux.Handle("/api/v1/appointments/status", access(http.HandlerFunc(h.UpdateStatus), team...))
	mux.Handle("/api/v1/staff/schedule", access(http.HandlerFunc(h.StaffSchedule), team...))
	mux.Handle("/api/v1/staff", access(http.HandlerFunc(h.Staff), team...))
	mux.Handle("/api/v1/services", access(http.HandlerFunc(h.Services), team...))
}

// Appointments dispatches the collection route: GET lists the day board,
// POST books, DELETE removes (admins only when tokens are in use).
func (h *Handler) Appointments(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.Board(w, r)
	case http.MethodPost:
		h.Book(w, r)
	case http.MethodDelete:
		if c := auth.ClaimsFromContext(r.Context()); c != nil && c.Role != auth.RoleAdmin {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		h.Delete(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) writeErr(w http.ResponseWriter, r *http.Request, err error) {
	if rej, ok := placement.AsRejection(err); ok {
		writeRejection(w, rej)
		return
	}
	h.logger.Error("request failed", "path", r.URL.Path, "err", err, "request_id", httpx.RequestIDFromContext(r.Context()))
	httpx.WriteError(w, http.StatusInternalServerError, "internal error")
}

type rejectionBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

func writeRejection(w http.ResponseWriter, rej *placement.Rejection) {
	httpx.WriteJSON(w, rejectionStatus(rej.Kind), rejectionBody{Error: rej.Reason, Kind: string(rej.Kind)})
}

func rejectionStatus(k placement.Kind) int {
	switch k {
	case placement.KindNotFound:
		return http.StatusNotFound
	case placement.KindAvailability, placement.KindNotice:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadRequest
	}
}

func isCustomer(r *http.Request) bool {
	c := auth.ClaimsFromContext(r.Context())
	return c != nil && c.Role == auth.RoleCustomer
}

func parseDate(raw string) (schedule.Date, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return schedule.Date{}, errors.New("date is required")
	}
	d, err := schedule.ParseDate(raw)
	if err != nil {
		return schedule.Date{}, errors.New("invalid date, want YYYY-MM-DD")
	}
	return d, nil
}

func parseTime(raw string) (schedule.Clock, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, errors.New("time is required")
	}
	c, err := schedule.ParseClock(raw)
	if err != nil {
		return 0, errors.New("invalid time, want HH:MM")
	}
	return c, nil
}

func splitIDs(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
