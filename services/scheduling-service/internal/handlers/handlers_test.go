package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/md-rashed-zaman/salonsched/libs/auth"
	"github.com/md-rashed-zaman/salonsched/services/scheduling-service/internal/lifecycle"
	"github.com/md-rashed-zaman/salonsched/services/scheduling-service/internal/model"
	"github.com/md-rashed-zaman/salonsched/services/scheduling-service/internal/placement"
	"github.com/md-rashed-zaman/salonsched/services/scheduling-service/internal/storage"
)

const testSecret = "test-secret"

func newTestServer(t *testing.T, access Access) (*httptest.Server, *storage.Memory) {
	t.Helper()
	ctx := context.Background()
	store := storage.NewMemory()
	if err := store.PutStaff(ctx, model.Staff{ID: "alex", Name: "Alex", IsActive: true}); err != nil {
		t.Fatalf("seed staff: %v", err)
	}
	if err := store.PutService(ctx, model.Service{
		ID: "haircut", Name: "Haircut", DurationMinutes: 30, PriceCents: 3000,
		Extras: []model.Extra{{ID: "wash", Name: "Wash", DurationMinutes: 15, PriceCents: 500}},
	}); err != nil {
		t.Fatalf("seed service: %v", err)
	}

	now := time.Date(2026, 2, 27, 8, 0, 0, 0, time.UTC)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := placement.New(placement.Config{
		Appointments: store,
		Schedules:    store,
		Catalog:      store,
		Guard:        lifecycle.NewGuard(lifecycle.DefaultMinNotice, func() time.Time { return now }),
		Logger:       logger,
	})

	mux := http.NewServeMux()
	New(svc, store, logger).Register(mux, access)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, store
}

func doJSON(t *testing.T, method, url, token string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	var out map[string]any
	_ = json.Unmarshal(raw, &out)
	return resp, out
}

func token(t *testing.T, role string) string {
	t.Helper()
	tok, err := auth.SignHS256(auth.Claims{Role: role}, testSecret, time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return tok
}

func TestBookMoveCancelFlow(t *testing.T) {
	srv, _ := newTestServer(t, Open)

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/v1/appointments", "", map[string]any{
		"staff_id": "alex", "service_id": "haircut", "selected_extra_ids": []string{"wash"},
		"date": "2026-03-02", "time": "10:00", "customer_name": "Jo", "origin": "booking_form",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%v)", resp.StatusCode, body)
	}
	appt := body["appointment"].(map[string]any)
	id := appt["id"].(string)
	if appt["status"] != "pending" || appt["time"] != "10:00" || appt["duration_minutes"].(float64) != 45 {
		t.Fatalf("unexpected appointment %v", appt)
	}

	// Taken slot for another customer.
	resp, body = doJSON(t, http.MethodPost, srv.URL+"/api/v1/appointments", "", map[string]any{
		"staff_id": "alex", "service_id": "haircut", "date": "2026-03-02", "time": "10:15",
		"customer_name": "Kim", "origin": "customer_portal",
	})
	if resp.StatusCode != http.StatusUnprocessableEntity || body["error"] != "slot unavailable" || body["kind"] != "availability" {
		t.Fatalf("expected 422 slot unavailable, got %d %v", resp.StatusCode, body)
	}

	resp, body = doJSON(t, http.MethodPost, srv.URL+"/api/v1/appointments/move", "", map[string]any{
		"appointment_id": id, "staff_id": "alex", "date": "2026-03-02", "time": "10:00",
	})
	if resp.StatusCode != http.StatusOK || body["no_op"] != true {
		t.Fatalf("expected no-op move, got %d %v", resp.StatusCode, body)
	}

	resp, body = doJSON(t, http.MethodPost, srv.URL+"/api/v1/appointments/move", "", map[string]any{
		"appointment_id": id, "date": "2026-03-03", "time": "11:00",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("move: %d %v", resp.StatusCode, body)
	}
	if moved := body["appointment"].(map[string]any); moved["status"] != "rescheduled" || moved["date"] != "2026-03-03" {
		t.Fatalf("unexpected moved appointment %v", moved)
	}

	resp, body = doJSON(t, http.MethodPost, srv.URL+"/api/v1/appointments/cancel", "", map[string]any{"appointment_id": id})
	if resp.StatusCode != http.StatusOK || body["appointment"].(map[string]any)["status"] != "cancelled" {
		t.Fatalf("cancel: %d %v", resp.StatusCode, body)
	}

	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/api/v1/appointments/cancel", "", map[string]any{"appointment_id": "missing"})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestSlotsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, Open)

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/api/v1/slots?staff_id=alex&service_id=haircut&extras=wash&date=2026-03-02&granularity=60", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("slots: %d %v", resp.StatusCode, body)
	}
	slots := body["slots"].([]any)
	if len(slots) != 8 || slots[0] != "09:00" || slots[7] != "16:00" {
		t.Fatalf("unexpected slots %v", slots)
	}

	resp, body = doJSON(t, http.MethodGet, srv.URL+"/api/v1/slots?staff_id=alex&service_id=haircut&date=2026-03-01", "", nil)
	if resp.StatusCode != http.StatusOK || len(body["slots"].([]any)) != 0 {
		t.Fatalf("closed day should have no slots: %d %v", resp.StatusCode, body)
	}

	resp, _ = doJSON(t, http.MethodGet, srv.URL+"/api/v1/slots?staff_id=alex&service_id=haircut&date=03/02/2026", "", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed date, got %d", resp.StatusCode)
	}
	resp, _ = doJSON(t, http.MethodGet, srv.URL+"/api/v1/slots?staff_id=nobody&service_id=haircut&date=2026-03-02", "", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown staff, got %d", resp.StatusCode)
	}
}

func TestBoardAndConflicts(t *testing.T) {
	srv, _ := newTestServer(t, Open)
	for _, at := range []string{"10:00", "10:15"} {
		resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/v1/appointments", "", map[string]any{
			"staff_id": "alex", "service_id": "haircut", "date": "2026-03-02", "time": at,
			"customer_name": "Jo", "origin": "admin_form",
		})
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("book %s: %d %v", at, resp.StatusCode, body)
		}
	}

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/v1/conflicts", "", map[string]any{
		"staff_id": "alex", "service_id": "haircut", "date": "2026-03-02", "time": "10:20",
	})
	if resp.StatusCode != http.StatusOK || len(body["conflicts"].([]any)) != 2 {
		t.Fatalf("conflicts: %d %v", resp.StatusCode, body)
	}

	resp, body = doJSON(t, http.MethodGet, srv.URL+"/api/v1/appointments?staff_id=alex&date=2026-03-02", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("board: %d %v", resp.StatusCode, body)
	}
	rows := body["appointments"].([]any)
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %v", rows)
	}
	first := rows[0].(map[string]any)
	if first["end"] != "10:30" || first["actions_allowed"] != true || len(first["conflicts"].([]any)) != 1 {
		t.Fatalf("unexpected row %v", first)
	}

	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/api/v1/appointments/status", "", map[string]any{
		"appointment_id": first["id"], "status": "completed",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status update: %d", resp.StatusCode)
	}
	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/api/v1/appointments/status", "", map[string]any{
		"appointment_id": first["id"], "status": "archived",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown status, got %d", resp.StatusCode)
	}

	resp, _ = doJSON(t, http.MethodDelete, srv.URL+"/api/v1/appointments?id="+first["id"].(string), "", nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete: %d", resp.StatusCode)
	}
}

func TestScheduleAndCatalogRoutes(t *testing.T) {
	srv, _ := newTestServer(t, Open)

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/api/v1/staff/schedule?staff_id=alex", "", nil)
	if resp.StatusCode != http.StatusOK || body["stored"] != false {
		t.Fatalf("get schedule: %d %v", resp.StatusCode, body)
	}

	resp, body = doJSON(t, http.MethodPut, srv.URL+"/api/v1/staff/schedule?staff_id=alex", "", map[string]any{
		"weekly": map[string]any{
			"mon": map[string]any{"is_working": true, "start": "10:00", "end": "14:00"},
		},
		"exceptions": map[string]any{"2026-03-03": map[string]any{"start": "12:00", "end": "13:00"}},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("put schedule: %d %v", resp.StatusCode, body)
	}
	resp, body = doJSON(t, http.MethodGet, srv.URL+"/api/v1/slots?staff_id=alex&service_id=haircut&date=2026-03-03&granularity=30", "", nil)
	if resp.StatusCode != http.StatusOK || len(body["slots"].([]any)) != 2 {
		t.Fatalf("exception hours should give 2 slots: %d %v", resp.StatusCode, body)
	}

	resp, _ = doJSON(t, http.MethodPut, srv.URL+"/api/v1/staff/schedule?staff_id=alex", "", map[string]any{
		"weekly": map[string]any{"mon": map[string]any{"is_working": true, "start": "14:00", "end": "10:00"}},
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for inverted hours, got %d", resp.StatusCode)
	}
	resp, _ = doJSON(t, http.MethodGet, srv.URL+"/api/v1/staff/schedule?staff_id=nobody", "", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown staff, got %d", resp.StatusCode)
	}

	resp, _ = doJSON(t, http.MethodPut, srv.URL+"/api/v1/services", "", map[string]any{"id": "color", "name": "Color", "duration_minutes": 0})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for zero duration, got %d", resp.StatusCode)
	}
	resp, _ = doJSON(t, http.MethodPut, srv.URL+"/api/v1/staff", "", map[string]any{"id": "sam", "name": "Sam", "is_active": true})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("put staff: %d", resp.StatusCode)
	}
	resp, body = doJSON(t, http.MethodGet, srv.URL+"/api/v1/staff", "", nil)
	if resp.StatusCode != http.StatusOK || len(body["staff"].([]any)) != 2 {
		t.Fatalf("list staff: %d %v", resp.StatusCode, body)
	}
}

func TestRoleAccess(t *testing.T) {
	srv, store := newTestServer(t, RequireToken(auth.NewVerifier(testSecret, nil)))

	resp, _ := doJSON(t, http.MethodGet, srv.URL+"/api/v1/slots?staff_id=alex&service_id=haircut&date=2026-03-02", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("slots are public, got %d", resp.StatusCode)
	}
	resp, _ = doJSON(t, http.MethodGet, srv.URL+"/api/v1/appointments?date=2026-03-02", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.StatusCode)
	}

	customer := token(t, auth.RoleCustomer)
	resp, _ = doJSON(t, http.MethodGet, srv.URL+"/api/v1/staff", customer, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for customer on staff list, got %d", resp.StatusCode)
	}

	// A customer asking for an admin origin is held to the published slots.
	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/v1/appointments", customer, map[string]any{
		"staff_id": "alex", "service_id": "haircut", "date": "2026-03-02", "time": "10:05",
		"customer_name": "Jo", "origin": "admin_form",
	})
	if resp.StatusCode != http.StatusUnprocessableEntity || body["error"] != "slot unavailable" {
		t.Fatalf("expected slot check for customer, got %d %v", resp.StatusCode, body)
	}

	admin := token(t, auth.RoleAdmin)
	resp, body = doJSON(t, http.MethodPost, srv.URL+"/api/v1/appointments", admin, map[string]any{
		"staff_id": "alex", "service_id": "haircut", "date": "2026-03-02", "time": "10:05",
		"customer_name": "Jo", "origin": "admin_form",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("admin booking: %d %v", resp.StatusCode, body)
	}
	id := body["appointment"].(map[string]any)["id"].(string)

	staff := token(t, auth.RoleStaff)
	resp, _ = doJSON(t, http.MethodDelete, srv.URL+"/api/v1/appointments?id="+id, staff, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("only admins delete, got %d", resp.StatusCode)
	}
	resp, _ = doJSON(t, http.MethodDelete, srv.URL+"/api/v1/appointments?id="+id, admin, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("admin delete: %d", resp.StatusCode)
	}
	if _, err := store.GetAppointment(context.Background(), id); err == nil {
		t.Fatal("appointment should be gone")
	}
}
