package schedule

import (
	"testing"
	"time"
)

func TestStatusTransitions(t *testing.T) {
	allowed := map[AppointmentStatus][]AppointmentStatus{
		StatusScheduled: {StatusConfirmed, StatusCompleted, StatusCancelled, StatusNoShow},
		StatusConfirmed: {StatusCompleted, StatusCancelled, StatusNoShow},
		StatusCompleted: {},
		StatusCancelled: {},
		StatusNoShow:    {},
	}

	all := []AppointmentStatus{StatusScheduled, StatusConfirmed, StatusCompleted, StatusCancelled, StatusNoShow}

	for from, targets := range allowed {
		ok := make(map[AppointmentStatus]bool)
		for _, to := range targets {
			ok[to] = true
		}
		for _, to := range all {
			got := from.CanTransitionTo(to)
			if got != ok[to] {
				t.Errorf("%s -> %s: CanTransitionTo = %v, want %v", from, to, got, ok[to])
			}
		}
	}

	t.Run("terminal states reject everything", func(t *testing.T) {
		for _, from := range []AppointmentStatus{StatusCompleted, StatusCancelled, StatusNoShow} {
			if !from.Terminal() {
				t.Errorf("%s should be terminal", from)
			}
			for _, to := range all {
				if from.CanTransitionTo(to) {
					t.Errorf("terminal %s must not transition to %s", from, to)
				}
			}
		}
	})

	t.Run("self transition is rejected", func(t *testing.T) {
		if StatusScheduled.CanTransitionTo(StatusScheduled) {
			t.Error("scheduled -> scheduled should not be allowed")
		}
	})

	t.Run("unknown status is invalid", func(t *testing.T) {
		if AppointmentStatus("booked").Valid() {
			t.Error("arbitrary string should not be a valid status")
		}
	})
}

func TestOccupies(t *testing.T) {
	cases := map[AppointmentStatus]bool{
		StatusScheduled: true,
		StatusConfirmed: true,
		StatusCompleted: true,
		StatusNoShow:    true,
		StatusCancelled: false,
	}
	for status, want := range cases {
		if got := status.Occupies(); got != want {
			t.Errorf("%s.Occupies() = %v, want %v", status, got, want)
		}
	}
}

func TestIsUpcoming(t *testing.T) {
	now := time.Date(2026, 9, 7, 10, 0, 0, 0, time.UTC)
	date := DateOf(now)

	mk := func(start string, status AppointmentStatus) *Appointment {
		return &Appointment{
			Date:   date,
			Start:  mustTime(t, start),
			End:    mustTime(t, start) + 30,
			Status: status,
		}
	}

	if !mk("10:30", StatusScheduled).IsUpcoming(now) {
		t.Error("future scheduled appointment should be upcoming")
	}
	if mk("10:30", StatusCancelled).IsUpcoming(now) {
		t.Error("cancelled appointment is never upcoming")
	}
	if mk("09:30", StatusScheduled).IsUpcoming(now) {
		t.Error("past appointment is not upcoming")
	}
	if mk("10:00", StatusScheduled).IsUpcoming(now) {
		t.Error("an appointment starting exactly now is not strictly in the future")
	}

	tomorrow := &Appointment{Date: date.AddDate(0, 0, 1), Start: mustTime(t, "08:00"), End: mustTime(t, "08:30"), Status: StatusConfirmed}
	if !tomorrow.IsUpcoming(now) {
		t.Error("tomorrow's confirmed appointment should be upcoming")
	}
}
