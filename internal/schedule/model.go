package schedule

import (
	"time"

	"github.com/google/uuid"
)

type Doctor struct {
	ID        uuid.UUID
	Name      string
	Specialty *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Patient struct {
	ID        uuid.UUID
	Name      string
	Email     *string
	Phone     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// AvailabilityRule is a recurring weekly window during which a doctor
// accepts appointments. Rules are written by administrative staff; the
// booking engine only reads them. A doctor may have several rules on the
// same weekday, each treated as an independent window.
type AvailabilityRule struct {
	ID        uuid.UUID
	DoctorID  uuid.UUID
	Weekday   time.Weekday
	Start     TimeOfDay
	End       TimeOfDay
	Enabled   bool
	Notes     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TimeSlot is a bookable candidate interval, half-open [Start, End).
// Slots are derived per request and never persisted.
type TimeSlot struct {
	Date  time.Time
	Start TimeOfDay
	End   TimeOfDay
}

// Overlaps reports whether the slot intersects [start, end) under the
// half-open rule, so back-to-back intervals do not overlap.
func (s TimeSlot) Overlaps(start, end TimeOfDay) bool {
	return s.Start < end && start < s.End
}

type Appointment struct {
	ID        uuid.UUID
	PatientID uuid.UUID
	DoctorID  uuid.UUID
	Date      time.Time
	Start     TimeOfDay
	End       TimeOfDay
	Purpose   string
	Notes     *string
	Status    AppointmentStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Slot returns the interval the appointment occupies.
func (a *Appointment) Slot() TimeSlot {
	return TimeSlot{Date: a.Date, Start: a.Start, End: a.End}
}

// IsUpcoming reports whether the appointment is still ahead of now:
// not cancelled and starting strictly in the future.
func (a *Appointment) IsUpcoming(now time.Time) bool {
	return a.Status != StatusCancelled && a.Start.On(a.Date).After(now)
}

type EventLog struct {
	ID            int64
	EventType     string
	AppointmentID *uuid.UUID
	Payload       []byte
	CreatedAt     time.Time
}
