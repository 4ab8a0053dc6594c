package schedule

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func testAppointment(t *testing.T, date time.Time, start, end string, status AppointmentStatus) Appointment {
	t.Helper()
	return Appointment{
		ID:        uuid.New(),
		PatientID: uuid.New(),
		DoctorID:  uuid.New(),
		Date:      DateOf(date),
		Start:     mustTime(t, start),
		End:       mustTime(t, end),
		Status:    status,
	}
}

func TestIsFree(t *testing.T) {
	date := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)
	slot := func(start, end string) TimeSlot {
		return TimeSlot{Date: DateOf(date), Start: mustTime(t, start), End: mustTime(t, end)}
	}

	t.Run("no appointments means free", func(t *testing.T) {
		if !IsFree(slot("09:00", "09:30"), nil, nil) {
			t.Fatal("empty day should be free")
		}
	})

	t.Run("back to back booking is legal", func(t *testing.T) {
		existing := []Appointment{testAppointment(t, date, "09:00", "09:30", StatusScheduled)}
		if !IsFree(slot("09:30", "10:00"), existing, nil) {
			t.Fatal("appointment ending at 09:30 must not block the 09:30 slot")
		}
		if !IsFree(slot("08:30", "09:00"), existing, nil) {
			t.Fatal("appointment starting at 09:00 must not block a slot ending at 09:00")
		}
	})

	t.Run("partial overlap blocks both neighbours", func(t *testing.T) {
		existing := []Appointment{testAppointment(t, date, "09:15", "09:45", StatusScheduled)}
		if IsFree(slot("09:00", "09:30"), existing, nil) {
			t.Error("09:00-09:30 should be blocked by 09:15-09:45")
		}
		if IsFree(slot("09:30", "10:00"), existing, nil) {
			t.Error("09:30-10:00 should be blocked by 09:15-09:45")
		}
		if IsFree(slot("09:15", "09:45"), existing, nil) {
			t.Error("exact overlap should be blocked")
		}
	})

	t.Run("one minute of overlap blocks the whole slot", func(t *testing.T) {
		existing := []Appointment{testAppointment(t, date, "09:29", "09:59", StatusConfirmed)}
		if IsFree(slot("09:00", "09:30"), existing, nil) {
			t.Error("a single overlapping minute must block the candidate")
		}
	})

	t.Run("cancellation frees the slot", func(t *testing.T) {
		existing := []Appointment{testAppointment(t, date, "09:15", "09:45", StatusCancelled)}
		if !IsFree(slot("09:00", "09:30"), existing, nil) {
			t.Error("cancelled appointment must not block 09:00-09:30")
		}
		if !IsFree(slot("09:30", "10:00"), existing, nil) {
			t.Error("cancelled appointment must not block 09:30-10:00")
		}
	})

	t.Run("completed and no-show still occupy", func(t *testing.T) {
		for _, status := range []AppointmentStatus{StatusCompleted, StatusNoShow} {
			existing := []Appointment{testAppointment(t, date, "09:00", "09:30", status)}
			if IsFree(slot("09:00", "09:30"), existing, nil) {
				t.Errorf("%s appointment should still block its historical slot", status)
			}
		}
	})

	t.Run("self exclusion on reschedule", func(t *testing.T) {
		appt := testAppointment(t, date, "10:00", "10:30", StatusScheduled)
		existing := []Appointment{appt}

		if IsFree(slot("10:00", "10:30"), existing, nil) {
			t.Error("without exclusion the occupied slot must be blocked")
		}
		if !IsFree(slot("10:00", "10:30"), existing, &appt.ID) {
			t.Error("with exclusion the appointment must not conflict with itself")
		}

		other := uuid.New()
		if IsFree(slot("10:00", "10:30"), existing, &other) {
			t.Error("excluding an unrelated id must not free the slot")
		}
	})
}

func TestFilterFree(t *testing.T) {
	date := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)

	candidates, err := GenerateSlots(date, mustTime(t, "09:00"), mustTime(t, "11:00"), 30*time.Minute)
	if err != nil {
		t.Fatalf("GenerateSlots: %v", err)
	}

	existing := []Appointment{
		testAppointment(t, date, "09:15", "09:45", StatusScheduled),
		testAppointment(t, date, "10:30", "11:00", StatusCancelled),
	}

	free := FilterFree(candidates, existing, nil)

	want := []string{"10:00", "10:30"}
	if len(free) != len(want) {
		t.Fatalf("got %d free slots, want %d", len(free), len(want))
	}
	for i, s := range free {
		if s.Start.String() != want[i] {
			t.Errorf("free slot %d starts at %s, want %s", i, s.Start, want[i])
		}
	}
}
