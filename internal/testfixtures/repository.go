// Package testfixtures provides in-memory stand-ins for the engine's
// storage and locking collaborators so booking behavior can be tested
// without Postgres or Redis.
package testfixtures

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/careops/clinic-scheduling/internal/schedule"
)

// Repository is an in-memory schedule.Repository. It enforces the same
// slot uniqueness the Postgres partial index does, so booking races
// resolve the way they would against the real store.
type Repository struct {
	mu       sync.Mutex
	doctors  map[uuid.UUID]schedule.Doctor
	patients map[uuid.UUID]schedule.Patient
	rules    map[uuid.UUID]schedule.AvailabilityRule
	appts    map[uuid.UUID]schedule.Appointment
	events   []schedule.EventLog
}

func NewRepository() *Repository {
	return &Repository{
		doctors:  make(map[uuid.UUID]schedule.Doctor),
		patients: make(map[uuid.UUID]schedule.Patient),
		rules:    make(map[uuid.UUID]schedule.AvailabilityRule),
		appts:    make(map[uuid.UUID]schedule.Appointment),
	}
}

// Seeding helpers

func (r *Repository) AddDoctor(name string) uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := uuid.New()
	r.doctors[id] = schedule.Doctor{ID: id, Name: name}
	return id
}

func (r *Repository) AddPatient(name string) uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := uuid.New()
	r.patients[id] = schedule.Patient{ID: id, Name: name}
	return id
}

func (r *Repository) AddRule(rule schedule.AvailabilityRule) uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rule.ID == uuid.Nil {
		rule.ID = uuid.New()
	}
	r.rules[rule.ID] = rule
	return rule.ID
}

// Events returns a copy of the recorded event log.
func (r *Repository) Events() []schedule.EventLog {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]schedule.EventLog, len(r.events))
	copy(out, r.events)
	return out
}

// schedule.Repository implementation

func (r *Repository) GetDoctorByID(_ context.Context, id uuid.UUID) (*schedule.Doctor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.doctors[id]
	if !ok {
		return nil, schedule.ErrDoctorNotFound
	}
	return &d, nil
}

func (r *Repository) GetPatientByID(_ context.Context, id uuid.UUID) (*schedule.Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.patients[id]
	if !ok {
		return nil, schedule.ErrPatientNotFound
	}
	return &p, nil
}

func (r *Repository) ListRulesForWeekday(_ context.Context, doctorID uuid.UUID, weekday time.Weekday) ([]schedule.AvailabilityRule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []schedule.AvailabilityRule
	for _, rule := range r.rules {
		if rule.DoctorID == doctorID && rule.Weekday == weekday && rule.Enabled {
			out = append(out, rule)
		}
	}
	return out, nil
}

func (r *Repository) ListRulesForDoctor(_ context.Context, doctorID uuid.UUID) ([]schedule.AvailabilityRule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []schedule.AvailabilityRule
	for _, rule := range r.rules {
		if rule.DoctorID == doctorID {
			out = append(out, rule)
		}
	}
	return out, nil
}

func (r *Repository) GetRuleByID(_ context.Context, id uuid.UUID) (*schedule.AvailabilityRule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rule, ok := r.rules[id]
	if !ok {
		return nil, schedule.ErrRuleNotFound
	}
	return &rule, nil
}

func (r *Repository) CreateRule(_ context.Context, rule schedule.AvailabilityRule) (*schedule.AvailabilityRule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rule.ID == uuid.Nil {
		rule.ID = uuid.New()
	}
	now := time.Now()
	rule.CreatedAt = now
	rule.UpdatedAt = now
	r.rules[rule.ID] = rule
	return &rule, nil
}

func (r *Repository) UpdateRule(_ context.Context, rule schedule.AvailabilityRule) (*schedule.AvailabilityRule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.rules[rule.ID]
	if !ok {
		return nil, schedule.ErrRuleNotFound
	}
	rule.DoctorID = existing.DoctorID
	rule.CreatedAt = existing.CreatedAt
	rule.UpdatedAt = time.Now()
	r.rules[rule.ID] = rule
	return &rule, nil
}

func (r *Repository) ListAppointmentsForDay(_ context.Context, doctorID uuid.UUID, date time.Time) ([]schedule.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	day := schedule.DateOf(date)
	var out []schedule.Appointment
	for _, a := range r.appts {
		if a.DoctorID == doctorID && a.Date.Equal(day) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *Repository) GetAppointmentByID(_ context.Context, id uuid.UUID) (*schedule.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.appts[id]
	if !ok {
		return nil, schedule.ErrAppointmentNotFound
	}
	return &a, nil
}

func (r *Repository) slotTakenLocked(doctorID uuid.UUID, date time.Time, start schedule.TimeOfDay, excludeID uuid.UUID) bool {
	for _, a := range r.appts {
		if a.ID == excludeID {
			continue
		}
		if a.DoctorID == doctorID && a.Date.Equal(date) && a.Start == start && a.Status.Occupies() {
			return true
		}
	}
	return false
}

func (r *Repository) InsertAppointment(_ context.Context, a schedule.Appointment) (*schedule.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.Date = schedule.DateOf(a.Date)
	if r.slotTakenLocked(a.DoctorID, a.Date, a.Start, a.ID) {
		return nil, schedule.ErrSlotTaken
	}
	now := time.Now()
	a.CreatedAt = now
	a.UpdatedAt = now
	r.appts[a.ID] = a
	return &a, nil
}

func (r *Repository) UpdateAppointmentSlot(_ context.Context, id uuid.UUID, date time.Time, start, end schedule.TimeOfDay) (*schedule.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.appts[id]
	if !ok {
		return nil, schedule.ErrAppointmentNotFound
	}
	day := schedule.DateOf(date)
	if r.slotTakenLocked(a.DoctorID, day, start, id) {
		return nil, schedule.ErrSlotTaken
	}
	a.Date = day
	a.Start = start
	a.End = end
	a.UpdatedAt = time.Now()
	r.appts[id] = a
	return &a, nil
}

func (r *Repository) UpdateAppointmentStatus(_ context.Context, id uuid.UUID, from, to schedule.AppointmentStatus) (*schedule.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.appts[id]
	if !ok || a.Status != from {
		return nil, schedule.ErrAppointmentNotFound
	}
	a.Status = to
	a.UpdatedAt = time.Now()
	r.appts[id] = a
	return &a, nil
}

func (r *Repository) FindOverdueScheduled(_ context.Context, cutoff time.Time) ([]schedule.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cutDate := schedule.DateOf(cutoff)
	cutMin := schedule.TimeOfDay(cutoff.Hour()*60 + cutoff.Minute())
	var out []schedule.Appointment
	for _, a := range r.appts {
		if a.Status != schedule.StatusScheduled {
			continue
		}
		if a.Date.Before(cutDate) || (a.Date.Equal(cutDate) && a.End <= cutMin) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *Repository) InsertEvent(_ context.Context, ev schedule.EventLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}
