package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"github.com/hackgods/shop-slot-scheduling/internal/appointment"
	"github.com/hackgods/shop-slot-scheduling/internal/config"
	redisclient "github.com/hackgods/shop-slot-scheduling/internal/redis"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	cfg := config.Config{AllowNonStandardBookings: true, DriftLookaheadDays: 7}
	svc := appointment.NewService(appointment.NewMemoryRepository(), redisclient.NewLocalSlotLocker(), cfg, zerolog.Nop())

	up := PingFunc(func(context.Context) error { return nil })
	return NewRouter(RouterConfig{
		Service:  svc,
		Postgres: up,
		Redis:    up,
		Logger:   zerolog.Nop(),
		Env:      "test",
		Version:  "dev",
	})
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rec.Body.String())
	}
	return v
}

func bookingRequest(date, clock string) AppointmentRequest {
	return AppointmentRequest{
		CustomerName:       "Lee Jiwon",
		VehiclePlate:       "34NA7788",
		Phone:              "010-2222-3333",
		ServiceDescription: "brake pads",
		Date:               date,
		Time:               clock,
	}
}

func TestCreateAndGetAppointment(t *testing.T) {
	h := newTestRouter(t)

	rec := do(t, h, http.MethodPost, "/appointments", bookingRequest("2026-03-10", "10:00"))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header")
	}
	created := decode[AppointmentResponse](t, rec)
	if created.ID != 1 || created.Status != "PENDING" || created.Time != "10:00" || created.Date != "2026-03-10" {
		t.Fatalf("unexpected appointment %+v", created)
	}

	rec = do(t, h, http.MethodGet, "/appointments/1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := decode[AppointmentResponse](t, rec); got.CustomerName != "Lee Jiwon" {
		t.Fatalf("unexpected appointment %+v", got)
	}

	rec = do(t, h, http.MethodGet, "/appointments?from=2026-03-01&to=2026-03-31", nil)
	if list := decode[[]AppointmentResponse](t, rec); len(list) != 1 {
		t.Fatalf("expected one appointment in March, got %d", len(list))
	}
}

func TestCreateAppointment_Errors(t *testing.T) {
	h := newTestRouter(t)

	tests := []struct {
		name   string
		body   any
		status int
		code   string
	}{
		{"bad json", "not an object", http.StatusBadRequest, "invalid_request_body"},
		{"bad date", bookingRequest("10/03/2026", "10:00"), http.StatusBadRequest, "invalid_appointment"},
		{"bad time", bookingRequest("2026-03-10", "25:00"), http.StatusBadRequest, "invalid_appointment"},
		{"missing fields", AppointmentRequest{Date: "2026-03-10", Time: "10:00"}, http.StatusBadRequest, "missing_fields"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/appointments", tt.body)
			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d: %s", tt.status, rec.Code, rec.Body.String())
			}
			if got := decode[ErrorResponse](t, rec); got.Error != tt.code {
				t.Fatalf("expected error %q, got %q", tt.code, got.Error)
			}
		})
	}
}

func TestCreateAppointment_SlotFullConflict(t *testing.T) {
	h := newTestRouter(t)

	if rec := do(t, h, http.MethodPost, "/appointments", bookingRequest("2026-03-10", "11:00")); rec.Code != http.StatusCreated {
		t.Fatalf("first booking: %d", rec.Code)
	}
	rec := do(t, h, http.MethodPost, "/appointments", bookingRequest("2026-03-10", "11:00"))
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	if got := decode[ErrorResponse](t, rec); got.Error != "slot_full" {
		t.Fatalf("expected slot_full, got %q", got.Error)
	}

	do(t, h, http.MethodPost, "/appointments/1/cancel", nil)
	if rec := do(t, h, http.MethodPost, "/appointments", bookingRequest("2026-03-10", "11:00")); rec.Code != http.StatusConflict {
		t.Fatalf("cancelled booking still holds the slot, expected 409, got %d", rec.Code)
	}

	board := decode[BoardResponse](t, do(t, h, http.MethodGet, "/schedule/2026-03-10/board", nil))
	slot := board.Slots[2]
	if slot.Time != "11:00" || slot.Occupancy != 1 || slot.Active != 0 || !slot.Full || slot.Remaining != 0 {
		t.Fatalf("unexpected 11:00 slot %+v", slot)
	}
}

func TestStatusActions(t *testing.T) {
	h := newTestRouter(t)
	do(t, h, http.MethodPost, "/appointments", bookingRequest("2026-03-10", "09:00"))

	rec := do(t, h, http.MethodPost, "/appointments/1/start", nil)
	if got := decode[AppointmentResponse](t, rec); got.Status != "IN_PROGRESS" {
		t.Fatalf("expected IN_PROGRESS, got %s", got.Status)
	}

	rec = do(t, h, http.MethodPost, "/appointments/1/complete", nil)
	if got := decode[AppointmentResponse](t, rec); got.Status != "COMPLETED" {
		t.Fatalf("expected COMPLETED, got %s", got.Status)
	}

	rec = do(t, h, http.MethodPost, "/appointments/1/start", nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for invalid transition, got %d", rec.Code)
	}

	rec = do(t, h, http.MethodPost, "/appointments/7/cancel", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}

	rec = do(t, h, http.MethodPost, "/appointments/abc/cancel", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad id, got %d", rec.Code)
	}
}

func TestUpdateAndDeleteAppointment(t *testing.T) {
	h := newTestRouter(t)
	do(t, h, http.MethodPost, "/appointments", bookingRequest("2026-03-10", "09:00"))

	edit := bookingRequest("2026-03-11", "13:00")
	edit.Note = "bring spare key"
	rec := do(t, h, http.MethodPut, "/appointments/1", edit)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := decode[AppointmentResponse](t, rec); got.Date != "2026-03-11" || got.Time != "13:00" || got.Note != "bring spare key" {
		t.Fatalf("unexpected edit %+v", got)
	}

	if rec := do(t, h, http.MethodDelete, "/appointments/1", nil); rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/appointments/1", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", rec.Code)
	}
}

func TestBoardAndStats(t *testing.T) {
	h := newTestRouter(t)
	do(t, h, http.MethodPost, "/appointments", bookingRequest("2026-03-10", "09:00"))
	do(t, h, http.MethodPost, "/appointments", bookingRequest("2026-03-10", "09:20"))
	do(t, h, http.MethodPost, "/appointments/1/complete", nil)

	rec := do(t, h, http.MethodGet, "/schedule/2026-03-10/board", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	board := decode[BoardResponse](t, rec)
	if len(board.Slots) != 9 || board.Slots[0].Time != "09:00" || board.Slots[0].Occupancy != 1 {
		t.Fatalf("unexpected board slots %+v", board.Slots)
	}
	if len(board.NonStandard) != 1 || board.NonStandard[0].Time != "09:20" || board.Total != 2 {
		t.Fatalf("expected 09:20 as non-standard, got %+v", board.NonStandard)
	}

	rec = do(t, h, http.MethodGet, "/schedule/2026-03-10/stats", nil)
	st := decode[StatsResponse](t, rec)
	if st.Total != 2 || st.Completed != 1 || st.CompletionRate != 50 {
		t.Fatalf("unexpected stats %+v", st)
	}

	if rec := do(t, h, http.MethodGet, "/schedule/tomorrow/board", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad date, got %d", rec.Code)
	}
}

func TestCalendar(t *testing.T) {
	h := newTestRouter(t)
	do(t, h, http.MethodPost, "/appointments", bookingRequest("2026-04-02", "10:00"))

	rec := do(t, h, http.MethodGet, "/calendar/2026/3", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	cal := decode[CalendarResponse](t, rec)
	if len(cal.Cells) != 35 || cal.Cells[0].Date != "2026-03-01" {
		t.Fatalf("unexpected grid: %d cells starting %v", len(cal.Cells), cal.Cells[0].Date)
	}
	last := cal.Cells[len(cal.Cells)-1]
	if last.InMonth {
		t.Fatal("trailing padding cell marked in month")
	}
	// April 2 is in the trailing padding row and still carries its booking.
	if padded := cal.Cells[32]; padded.Date != "2026-04-02" || len(padded.Appointments) != 1 {
		t.Fatalf("expected April 2 padding cell with one booking, got %+v", padded)
	}

	if rec := do(t, h, http.MethodGet, "/calendar/2026/13", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for month 13, got %d", rec.Code)
	}
}

func TestPolicySettings(t *testing.T) {
	h := newTestRouter(t)

	rec := do(t, h, http.MethodGet, "/settings/policy", nil)
	p := decode[PolicyResponse](t, rec)
	if p.DayStart != "09:00" || p.DayEnd != "18:00" || len(p.Slots) != 9 {
		t.Fatalf("unexpected default policy %+v", p)
	}

	rec = do(t, h, http.MethodPut, "/settings/policy", PolicyPayload{
		DayStart: "08:30", DayEnd: "12:00", IntervalMinutes: 30, CapacityPerSlot: 0,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	p = decode[PolicyResponse](t, rec)
	if p.CapacityPerSlot != 1 || len(p.Slots) != 7 || p.Slots[6] != "11:30" {
		t.Fatalf("unexpected saved policy %+v", p)
	}

	rec = do(t, h, http.MethodPut, "/settings/policy", PolicyPayload{
		DayStart: "12:00", DayEnd: "12:00", IntervalMinutes: 30, CapacityPerSlot: 2,
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty day, got %d", rec.Code)
	}
}

func TestHoursSettings(t *testing.T) {
	h := newTestRouter(t)

	rec := do(t, h, http.MethodGet, "/settings/hours", nil)
	if got := decode[HoursPayload](t, rec); len(got.Days) != 0 {
		t.Fatalf("expected no stored hours, got %+v", got)
	}

	days := []DayHoursPayload{{Weekday: "sunday", Open: false}}
	for _, name := range []string{"mon", "tue", "wed", "thu", "fri", "sat"} {
		days = append(days, DayHoursPayload{Weekday: name, Open: true, Start: "10:00", End: "16:00"})
	}
	rec = do(t, h, http.MethodPut, "/settings/hours", HoursPayload{Days: days})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	// 2026-03-15 is a Sunday.
	board := decode[BoardResponse](t, do(t, h, http.MethodGet, "/schedule/2026-03-15/board", nil))
	if !board.Closed || len(board.Slots) != 0 {
		t.Fatalf("expected closed Sunday, got %+v", board)
	}
	board = decode[BoardResponse](t, do(t, h, http.MethodGet, "/schedule/2026-03-16/board", nil))
	if len(board.Slots) != 6 || board.Slots[0].Time != "10:00" {
		t.Fatalf("expected Monday 10:00-16:00, got %+v", board.Slots)
	}

	rec = do(t, h, http.MethodPut, "/settings/hours", HoursPayload{Days: days[:3]})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for partial week, got %d", rec.Code)
	}
}

func TestReadiness(t *testing.T) {
	down := PingFunc(func(context.Context) error { return errors.New("connection refused") })
	up := PingFunc(func(context.Context) error { return nil })

	tests := []struct {
		name     string
		postgres Pinger
		redis    Pinger
		status   int
		want     string
	}{
		{"all up", up, up, http.StatusOK, "ok"},
		{"redis down", up, down, http.StatusOK, "degraded"},
		{"postgres down", down, up, http.StatusServiceUnavailable, "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(tt.postgres, tt.redis, "test", "dev")
			rec := httptest.NewRecorder()
			h.Readiness(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, rec.Code)
			}
			if got := decode[ReadinessResponse](t, rec); got.Status != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got.Status)
			}
		})
	}
}
