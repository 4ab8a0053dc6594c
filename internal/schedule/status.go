package schedule

import "errors"

type AppointmentStatus string

const (
	StatusScheduled AppointmentStatus = "scheduled"
	StatusConfirmed AppointmentStatus = "confirmed"
	StatusCompleted AppointmentStatus = "completed"
	StatusCancelled AppointmentStatus = "cancelled"
	StatusNoShow    AppointmentStatus = "no_show"
)

var ErrInvalidTransition = errors.New("invalid status transition")

// transitions is the closed lifecycle table. Completed, Cancelled and
// NoShow are terminal.
var transitions = map[AppointmentStatus][]AppointmentStatus{
	StatusScheduled: {StatusConfirmed, StatusCompleted, StatusCancelled, StatusNoShow},
	StatusConfirmed: {StatusCompleted, StatusCancelled, StatusNoShow},
	StatusCompleted: {},
	StatusCancelled: {},
	StatusNoShow:    {},
}

func (s AppointmentStatus) Valid() bool {
	_, ok := transitions[s]
	return ok
}

func (s AppointmentStatus) Terminal() bool {
	next, ok := transitions[s]
	return ok && len(next) == 0
}

func (s AppointmentStatus) CanTransitionTo(to AppointmentStatus) bool {
	for _, n := range transitions[s] {
		if n == to {
			return true
		}
	}
	return false
}

// Occupies reports whether an appointment in this status blocks its slot.
// Everything except Cancelled occupies: a completed or no-show visit still
// happened in its interval and must not be double-booked after the fact.
func (s AppointmentStatus) Occupies() bool {
	return s != StatusCancelled
}
