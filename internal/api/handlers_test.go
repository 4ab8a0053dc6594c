package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/careops/clinic-scheduling/internal/config"
	"github.com/careops/clinic-scheduling/internal/schedule"
	"github.com/careops/clinic-scheduling/internal/testfixtures"
)

type testEnv struct {
	router  http.Handler
	repo    *testfixtures.Repository
	doctor  uuid.UUID
	patient uuid.UUID
}

// The test date is a Monday; the default fixture rule opens 09:00-12:00.
const testDate = "2026-09-07"

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	repo := testfixtures.NewRepository()
	cfg := config.Config{SlotDuration: 30 * time.Minute, NoShowGrace: time.Hour}
	svc := schedule.NewService(repo, testfixtures.NewLocker(), cfg)

	env := &testEnv{
		repo:    repo,
		doctor:  repo.AddDoctor("Dr. Imani"),
		patient: repo.AddPatient("Lee Soto"),
	}
	env.router = NewRouter(RouterConfig{Service: svc, Env: "test", Version: "test"})

	start, _ := schedule.ParseTimeOfDay("09:00")
	end, _ := schedule.ParseTimeOfDay("12:00")
	repo.AddRule(schedule.AvailabilityRule{
		DoctorID: env.doctor,
		Weekday:  time.Monday,
		Start:    start,
		End:      end,
		Enabled:  true,
	})

	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode request body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return v
}

func (e *testEnv) book(t *testing.T, start string) AppointmentResponse {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/appointments", BookAppointmentRequest{
		DoctorID:  e.doctor.String(),
		PatientID: e.patient.String(),
		Date:      testDate,
		Start:     start,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("book %s: status %d body %s", start, rec.Code, rec.Body.String())
	}
	return decodeBody[AppointmentResponse](t, rec)
}

func TestListSlotsEndpoint(t *testing.T) {
	t.Run("open day", func(t *testing.T) {
		env := newTestEnv(t)

		rec := env.do(t, http.MethodGet, fmt.Sprintf("/doctors/%s/slots?date=%s", env.doctor, testDate), nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("status %d, body %s", rec.Code, rec.Body.String())
		}

		resp := decodeBody[SlotListResponse](t, rec)
		if len(resp.Slots) != 6 {
			t.Fatalf("got %d slots, want 6", len(resp.Slots))
		}
		if resp.Slots[0].Start != "09:00" || resp.Slots[5].Start != "11:30" {
			t.Errorf("unexpected slot bounds: first=%s last=%s", resp.Slots[0].Start, resp.Slots[5].Start)
		}
	})

	t.Run("day off reports no availability", func(t *testing.T) {
		env := newTestEnv(t)

		rec := env.do(t, http.MethodGet, fmt.Sprintf("/doctors/%s/slots?date=2026-09-06", env.doctor), nil) // a Sunday
		if rec.Code != http.StatusNotFound {
			t.Fatalf("status %d, want 404", rec.Code)
		}
		resp := decodeBody[ErrorResponse](t, rec)
		if resp.Error != "no_availability" {
			t.Errorf("error code = %q, want no_availability", resp.Error)
		}
	})

	t.Run("fully booked reports conflict", func(t *testing.T) {
		env := newTestEnv(t)
		for _, start := range []string{"09:00", "09:30", "10:00", "10:30", "11:00", "11:30"} {
			env.book(t, start)
		}

		rec := env.do(t, http.MethodGet, fmt.Sprintf("/doctors/%s/slots?date=%s", env.doctor, testDate), nil)
		if rec.Code != http.StatusConflict {
			t.Fatalf("status %d, want 409", rec.Code)
		}
		resp := decodeBody[ErrorResponse](t, rec)
		if resp.Error != "fully_booked" {
			t.Errorf("error code = %q, want fully_booked", resp.Error)
		}
	})

	t.Run("bad date", func(t *testing.T) {
		env := newTestEnv(t)
		rec := env.do(t, http.MethodGet, fmt.Sprintf("/doctors/%s/slots?date=september", env.doctor), nil)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status %d, want 400", rec.Code)
		}
	})

	t.Run("bad doctor id", func(t *testing.T) {
		env := newTestEnv(t)
		rec := env.do(t, http.MethodGet, "/doctors/not-a-uuid/slots?date="+testDate, nil)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status %d, want 400", rec.Code)
		}
	})
}

func TestBookAppointmentEndpoint(t *testing.T) {
	t.Run("creates and reads back", func(t *testing.T) {
		env := newTestEnv(t)

		appt := env.book(t, "09:30")
		if appt.Status != "scheduled" {
			t.Errorf("status = %q, want scheduled", appt.Status)
		}
		if appt.End != "10:00" {
			t.Errorf("end = %q, want 10:00", appt.End)
		}

		rec := env.do(t, http.MethodGet, "/appointments/"+appt.ID.String(), nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("get: status %d", rec.Code)
		}
		got := decodeBody[AppointmentResponse](t, rec)
		if got.ID != appt.ID {
			t.Errorf("round trip id mismatch: %s vs %s", got.ID, appt.ID)
		}
	})

	t.Run("double booking conflicts", func(t *testing.T) {
		env := newTestEnv(t)
		env.book(t, "09:30")

		rec := env.do(t, http.MethodPost, "/appointments", BookAppointmentRequest{
			DoctorID:  env.doctor.String(),
			PatientID: env.patient.String(),
			Date:      testDate,
			Start:     "09:30",
		})
		if rec.Code != http.StatusConflict {
			t.Fatalf("status %d, want 409", rec.Code)
		}
		resp := decodeBody[ErrorResponse](t, rec)
		if resp.Error != "slot_no_longer_available" {
			t.Errorf("error code = %q, want slot_no_longer_available", resp.Error)
		}
	})

	t.Run("unknown patient", func(t *testing.T) {
		env := newTestEnv(t)
		rec := env.do(t, http.MethodPost, "/appointments", BookAppointmentRequest{
			DoctorID:  env.doctor.String(),
			PatientID: uuid.NewString(),
			Date:      testDate,
			Start:     "09:30",
		})
		if rec.Code != http.StatusNotFound {
			t.Fatalf("status %d, want 404", rec.Code)
		}
	})

	t.Run("malformed body", func(t *testing.T) {
		env := newTestEnv(t)
		req := httptest.NewRequest(http.MethodPost, "/appointments", bytes.NewBufferString("{"))
		rec := httptest.NewRecorder()
		env.router.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status %d, want 400", rec.Code)
		}
	})
}

func TestRescheduleEndpoint(t *testing.T) {
	env := newTestEnv(t)
	appt := env.book(t, "10:00")

	t.Run("same slot succeeds", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/appointments/"+appt.ID.String()+"/reschedule", RescheduleRequest{
			Date:  testDate,
			Start: "10:00",
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("status %d, body %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("move to free slot", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/appointments/"+appt.ID.String()+"/reschedule", RescheduleRequest{
			Date:  testDate,
			Start: "11:00",
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("status %d, body %s", rec.Code, rec.Body.String())
		}
		got := decodeBody[AppointmentResponse](t, rec)
		if got.Start != "11:00" {
			t.Errorf("start = %q, want 11:00", got.Start)
		}
	})

	t.Run("occupied slot conflicts", func(t *testing.T) {
		env := newTestEnv(t)
		a := env.book(t, "10:00")
		env.book(t, "10:30")

		rec := env.do(t, http.MethodPost, "/appointments/"+a.ID.String()+"/reschedule", RescheduleRequest{
			Date:  testDate,
			Start: "10:30",
		})
		if rec.Code != http.StatusConflict {
			t.Fatalf("status %d, want 409", rec.Code)
		}
	})
}

func TestLifecycleEndpoints(t *testing.T) {
	env := newTestEnv(t)

	t.Run("confirm then complete", func(t *testing.T) {
		appt := env.book(t, "09:00")

		rec := env.do(t, http.MethodPost, "/appointments/"+appt.ID.String()+"/confirm", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("confirm: status %d", rec.Code)
		}
		got := decodeBody[AppointmentResponse](t, rec)
		if got.Status != "confirmed" {
			t.Errorf("status = %q, want confirmed", got.Status)
		}

		rec = env.do(t, http.MethodPost, "/appointments/"+appt.ID.String()+"/complete", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("complete: status %d", rec.Code)
		}
	})

	t.Run("terminal transition conflicts", func(t *testing.T) {
		appt := env.book(t, "09:30")

		rec := env.do(t, http.MethodPost, "/appointments/"+appt.ID.String()+"/cancel", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("cancel: status %d", rec.Code)
		}

		rec = env.do(t, http.MethodPost, "/appointments/"+appt.ID.String()+"/confirm", nil)
		if rec.Code != http.StatusConflict {
			t.Fatalf("confirm after cancel: status %d, want 409", rec.Code)
		}
		resp := decodeBody[ErrorResponse](t, rec)
		if resp.Error != "invalid_status_transition" {
			t.Errorf("error code = %q, want invalid_status_transition", resp.Error)
		}
	})

	t.Run("cancel frees the slot", func(t *testing.T) {
		appt := env.book(t, "10:00")

		rec := env.do(t, http.MethodPost, "/appointments/"+appt.ID.String()+"/cancel", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("cancel: status %d", rec.Code)
		}

		env.book(t, "10:00")
	})

	t.Run("no-show endpoint", func(t *testing.T) {
		appt := env.book(t, "11:00")

		rec := env.do(t, http.MethodPost, "/appointments/"+appt.ID.String()+"/no-show", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("no-show: status %d", rec.Code)
		}
		got := decodeBody[AppointmentResponse](t, rec)
		if got.Status != "no_show" {
			t.Errorf("status = %q, want no_show", got.Status)
		}
	})
}

func TestAvailabilityEndpoints(t *testing.T) {
	t.Run("create and list", func(t *testing.T) {
		env := newTestEnv(t)

		rec := env.do(t, http.MethodPost, fmt.Sprintf("/doctors/%s/availability", env.doctor), AvailabilityRuleRequest{
			Weekday: int(time.Friday),
			Start:   "13:00",
			End:     "17:00",
		})
		if rec.Code != http.StatusCreated {
			t.Fatalf("create: status %d, body %s", rec.Code, rec.Body.String())
		}
		created := decodeBody[AvailabilityRuleResponse](t, rec)
		if !created.Enabled {
			t.Error("rule should default to enabled")
		}

		rec = env.do(t, http.MethodGet, fmt.Sprintf("/doctors/%s/availability", env.doctor), nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("list: status %d", rec.Code)
		}
		rules := decodeBody[[]AvailabilityRuleResponse](t, rec)
		if len(rules) != 2 {
			t.Fatalf("got %d rules, want 2 (fixture Monday plus new Friday)", len(rules))
		}
	})

	t.Run("inverted window is unprocessable", func(t *testing.T) {
		env := newTestEnv(t)

		rec := env.do(t, http.MethodPost, fmt.Sprintf("/doctors/%s/availability", env.doctor), AvailabilityRuleRequest{
			Weekday: int(time.Friday),
			Start:   "17:00",
			End:     "09:00",
		})
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("status %d, want 422", rec.Code)
		}
		resp := decodeBody[ErrorResponse](t, rec)
		if resp.Error != "invalid_interval" {
			t.Errorf("error code = %q, want invalid_interval", resp.Error)
		}
	})

	t.Run("update disables a rule", func(t *testing.T) {
		env := newTestEnv(t)

		rec := env.do(t, http.MethodGet, fmt.Sprintf("/doctors/%s/availability", env.doctor), nil)
		rules := decodeBody[[]AvailabilityRuleResponse](t, rec)
		if len(rules) != 1 {
			t.Fatalf("got %d rules, want 1", len(rules))
		}

		disabled := false
		rec = env.do(t, http.MethodPut, "/availability/"+rules[0].ID.String(), AvailabilityRuleRequest{
			Weekday: rules[0].Weekday,
			Start:   rules[0].Start,
			End:     rules[0].End,
			Enabled: &disabled,
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("update: status %d, body %s", rec.Code, rec.Body.String())
		}

		rec = env.do(t, http.MethodGet, fmt.Sprintf("/doctors/%s/slots?date=%s", env.doctor, testDate), nil)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("slots after disable: status %d, want 404", rec.Code)
		}
	})
}

func TestDayAppointmentsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.book(t, "09:00")
	env.book(t, "10:30")

	rec := env.do(t, http.MethodGet, fmt.Sprintf("/doctors/%s/appointments?date=%s", env.doctor, testDate), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}

	appts := decodeBody[[]AppointmentResponse](t, rec)
	if len(appts) != 2 {
		t.Fatalf("got %d appointments, want 2", len(appts))
	}
}
