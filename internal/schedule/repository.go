package schedule

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrDoctorNotFound      = errors.New("doctor not found")
	ErrPatientNotFound     = errors.New("patient not found")
	ErrRuleNotFound        = errors.New("availability rule not found")
	ErrAppointmentNotFound = errors.New("appointment not found")

	// ErrSlotTaken is the storage-level conflict signal: the insert or
	// update collided with a non-cancelled appointment holding the same
	// (doctor, date, start).
	ErrSlotTaken = errors.New("slot already taken")
)

// Repository contains all DB interactions needed by the booking engine.
type Repository interface {
	GetDoctorByID(ctx context.Context, id uuid.UUID) (*Doctor, error)
	GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error)

	// Availability calendar
	ListRulesForWeekday(ctx context.Context, doctorID uuid.UUID, weekday time.Weekday) ([]AvailabilityRule, error)
	ListRulesForDoctor(ctx context.Context, doctorID uuid.UUID) ([]AvailabilityRule, error)
	GetRuleByID(ctx context.Context, id uuid.UUID) (*AvailabilityRule, error)
	CreateRule(ctx context.Context, rule AvailabilityRule) (*AvailabilityRule, error)
	UpdateRule(ctx context.Context, rule AvailabilityRule) (*AvailabilityRule, error)

	// Conflict detection working set: every appointment for the doctor on
	// the date, cancelled ones included.
	ListAppointmentsForDay(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]Appointment, error)
	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error)

	// Booking commits. Both return ErrSlotTaken on a slot collision.
	InsertAppointment(ctx context.Context, a Appointment) (*Appointment, error)
	UpdateAppointmentSlot(ctx context.Context, id uuid.UUID, date time.Time, start, end TimeOfDay) (*Appointment, error)

	// Compare-and-swap status update: fails with ErrAppointmentNotFound
	// when the row is not in the expected from status anymore.
	UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to AppointmentStatus) (*Appointment, error)

	// No-show sweep
	FindOverdueScheduled(ctx context.Context, cutoff time.Time) ([]Appointment, error)

	// Event logging
	InsertEvent(ctx context.Context, ev EventLog) error
}
