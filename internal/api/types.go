package api

import (
	"github.com/google/uuid"

	"github.com/careops/clinic-scheduling/internal/schedule"
)

type BookAppointmentRequest struct {
	DoctorID  string  `json:"doctor_id"`
	PatientID string  `json:"patient_id"`
	Date      string  `json:"date"`  // YYYY-MM-DD
	Start     string  `json:"start"` // HH:MM
	Purpose   string  `json:"purpose,omitempty"`
	Notes     *string `json:"notes,omitempty"`
}

type RescheduleRequest struct {
	Date  string `json:"date"`
	Start string `json:"start"`
}

type AvailabilityRuleRequest struct {
	Weekday int     `json:"weekday"` // 0 = Sunday
	Start   string  `json:"start"`
	End     string  `json:"end"`
	Enabled *bool   `json:"enabled,omitempty"`
	Notes   *string `json:"notes,omitempty"`
}

type SlotResponse struct {
	Date  string `json:"date"`
	Start string `json:"start"`
	End   string `json:"end"`
}

type SlotListResponse struct {
	DoctorID uuid.UUID      `json:"doctor_id"`
	Date     string         `json:"date"`
	Slots    []SlotResponse `json:"slots"`
}

type AppointmentResponse struct {
	ID        uuid.UUID `json:"id"`
	DoctorID  uuid.UUID `json:"doctor_id"`
	PatientID uuid.UUID `json:"patient_id"`
	Date      string    `json:"date"`
	Start     string    `json:"start"`
	End       string    `json:"end"`
	Purpose   string    `json:"purpose,omitempty"`
	Notes     *string   `json:"notes,omitempty"`
	Status    string    `json:"status"`
}

type AvailabilityRuleResponse struct {
	ID       uuid.UUID `json:"id"`
	DoctorID uuid.UUID `json:"doctor_id"`
	Weekday  int       `json:"weekday"`
	Start    string    `json:"start"`
	End      string    `json:"end"`
	Enabled  bool      `json:"enabled"`
	Notes    *string   `json:"notes,omitempty"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func toSlotResponse(s schedule.TimeSlot) SlotResponse {
	return SlotResponse{
		Date:  s.Date.Format("2006-01-02"),
		Start: s.Start.String(),
		End:   s.End.String(),
	}
}

func toAppointmentResponse(a *schedule.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:        a.ID,
		DoctorID:  a.DoctorID,
		PatientID: a.PatientID,
		Date:      a.Date.Format("2006-01-02"),
		Start:     a.Start.String(),
		End:       a.End.String(),
		Purpose:   a.Purpose,
		Notes:     a.Notes,
		Status:    string(a.Status),
	}
}

func toRuleResponse(r *schedule.AvailabilityRule) AvailabilityRuleResponse {
	return AvailabilityRuleResponse{
		ID:       r.ID,
		DoctorID: r.DoctorID,
		Weekday:  int(r.Weekday),
		Start:    r.Start.String(),
		End:      r.End.String(),
		Enabled:  r.Enabled,
		Notes:    r.Notes,
	}
}
