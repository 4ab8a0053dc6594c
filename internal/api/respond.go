package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/careops/clinic-scheduling/internal/schedule"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}

// writeServiceError maps the engine's sentinel errors onto HTTP. Every
// business outcome in the taxonomy is a 4xx the UI renders as a message;
// only unexpected storage failures become 500s.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, schedule.ErrDoctorNotFound):
		writeError(w, http.StatusNotFound, "doctor_not_found", err.Error())
	case errors.Is(err, schedule.ErrPatientNotFound):
		writeError(w, http.StatusNotFound, "patient_not_found", err.Error())
	case errors.Is(err, schedule.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, schedule.ErrRuleNotFound):
		writeError(w, http.StatusNotFound, "availability_rule_not_found", err.Error())
	case errors.Is(err, schedule.ErrNoAvailability):
		writeError(w, http.StatusNotFound, "no_availability", "doctor is not scheduled to work this day")
	case errors.Is(err, schedule.ErrFullyBooked):
		writeError(w, http.StatusConflict, "fully_booked", "every slot on this day is taken")
	case errors.Is(err, schedule.ErrSlotNoLongerAvailable):
		writeError(w, http.StatusConflict, "slot_no_longer_available", "someone just took that time, please pick another")
	case errors.Is(err, schedule.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "invalid_status_transition", err.Error())
	case errors.Is(err, schedule.ErrInvalidInterval):
		writeError(w, http.StatusUnprocessableEntity, "invalid_interval", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
