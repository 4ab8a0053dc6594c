package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/careops/clinic-scheduling/internal/schedule"
)

func parseUUIDParam(r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	return id, err == nil
}

func parseDate(s string) (time.Time, bool) {
	d, err := time.Parse("2006-01-02", s)
	return d, err == nil
}

func listSlotsHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, ok := parseUUIDParam(r, "doctorID")
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctorID must be a valid UUID")
			return
		}

		date, ok := parseDate(r.URL.Query().Get("date"))
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
			return
		}

		slots, err := svc.ListAvailableSlots(r.Context(), doctorID, date)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		resp := SlotListResponse{
			DoctorID: doctorID,
			Date:     date.Format("2006-01-02"),
			Slots:    make([]SlotResponse, 0, len(slots)),
		}
		for _, s := range slots {
			resp.Slots = append(resp.Slots, toSlotResponse(s))
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func listDayAppointmentsHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, ok := parseUUIDParam(r, "doctorID")
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctorID must be a valid UUID")
			return
		}

		date, ok := parseDate(r.URL.Query().Get("date"))
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
			return
		}

		appts, err := svc.ListDayAppointments(r.Context(), doctorID, date)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		resp := make([]AppointmentResponse, 0, len(appts))
		for i := range appts {
			resp = append(resp, toAppointmentResponse(&appts[i]))
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func bookAppointmentHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req BookAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		doctorID, err := uuid.Parse(req.DoctorID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor_id must be a valid UUID")
			return
		}

		patientID, err := uuid.Parse(req.PatientID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id must be a valid UUID")
			return
		}

		date, ok := parseDate(req.Date)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
			return
		}

		start, err := schedule.ParseTimeOfDay(req.Start)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_start", "start must be HH:MM")
			return
		}

		appt, err := svc.CommitBooking(r.Context(), schedule.BookingRequest{
			PatientID: patientID,
			DoctorID:  doctorID,
			Date:      date,
			Start:     start,
			Purpose:   req.Purpose,
			Notes:     req.Notes,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
	}
}

func getAppointmentHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseUUIDParam(r, "id")
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		appt, err := svc.GetAppointment(r.Context(), id)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func rescheduleAppointmentHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseUUIDParam(r, "id")
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		var req RescheduleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		date, ok := parseDate(req.Date)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
			return
		}

		start, err := schedule.ParseTimeOfDay(req.Start)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_start", "start must be HH:MM")
			return
		}

		appt, err := svc.RescheduleAppointment(r.Context(), id, date, start)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

// transitionHandler builds one handler per lifecycle endpoint; the target
// status is fixed by the route, the transition table does the gatekeeping.
func transitionHandler(svc *schedule.Service, to schedule.AppointmentStatus) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseUUIDParam(r, "id")
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		appt, err := svc.TransitionStatus(r.Context(), id, to)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func listAvailabilityHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, ok := parseUUIDParam(r, "doctorID")
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctorID must be a valid UUID")
			return
		}

		rules, err := svc.ListAvailability(r.Context(), doctorID)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		resp := make([]AvailabilityRuleResponse, 0, len(rules))
		for i := range rules {
			resp = append(resp, toRuleResponse(&rules[i]))
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func decodeRule(w http.ResponseWriter, r *http.Request) (schedule.AvailabilityRule, bool) {
	var req AvailabilityRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return schedule.AvailabilityRule{}, false
	}

	start, err := schedule.ParseTimeOfDay(req.Start)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_start", "start must be HH:MM")
		return schedule.AvailabilityRule{}, false
	}

	end, err := schedule.ParseTimeOfDay(req.End)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_end", "end must be HH:MM")
		return schedule.AvailabilityRule{}, false
	}

	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	return schedule.AvailabilityRule{
		Weekday: time.Weekday(req.Weekday),
		Start:   start,
		End:     end,
		Enabled: enabled,
		Notes:   req.Notes,
	}, true
}

func createAvailabilityHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, ok := parseUUIDParam(r, "doctorID")
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctorID must be a valid UUID")
			return
		}

		rule, ok := decodeRule(w, r)
		if !ok {
			return
		}
		rule.DoctorID = doctorID

		created, err := svc.CreateAvailabilityRule(r.Context(), rule)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toRuleResponse(created))
	}
}

func updateAvailabilityHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ruleID, ok := parseUUIDParam(r, "ruleID")
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_rule_id", "ruleID must be a valid UUID")
			return
		}

		rule, ok := decodeRule(w, r)
		if !ok {
			return
		}
		rule.ID = ruleID

		updated, err := svc.UpdateAvailabilityRule(r.Context(), rule)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toRuleResponse(updated))
	}
}
