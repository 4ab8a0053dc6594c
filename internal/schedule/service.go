package schedule

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/careops/clinic-scheduling/internal/config"
	redisclient "github.com/careops/clinic-scheduling/internal/redis"
)

const (
	EventBookingCommitted   = "BOOKING_COMMITTED"
	EventBookingRescheduled = "BOOKING_RESCHEDULED"
	EventStatusChanged      = "STATUS_CHANGED"
	EventNoShowSwept        = "NOSHOW_SWEPT"
)

var (
	// ErrNoAvailability: the doctor has no enabled rule for that weekday.
	ErrNoAvailability = errors.New("doctor has no availability on this day")
	// ErrFullyBooked: rules exist but every slot is occupied.
	ErrFullyBooked = errors.New("doctor is fully booked on this day")
	// ErrSlotNoLongerAvailable: the requested slot was lost between query
	// and commit. The caller re-queries fresh availability before retrying.
	ErrSlotNoLongerAvailable = errors.New("slot is no longer available")
)

type Service struct {
	repo   Repository
	locker redisclient.Locker
	cfg    config.Config
}

func NewService(repo Repository, locker redisclient.Locker, cfg config.Config) *Service {
	return &Service{
		repo:   repo,
		locker: locker,
		cfg:    cfg,
	}
}

// BookingRequest asks for a new appointment in the slot starting at Start
// on Date. The slot length is the configured slot duration.
type BookingRequest struct {
	PatientID uuid.UUID
	DoctorID  uuid.UUID
	Date      time.Time
	Start     TimeOfDay
	Purpose   string
	Notes     *string
}

func (s *Service) slotMinutes() TimeOfDay {
	return TimeOfDay(s.cfg.SlotDuration / time.Minute)
}

// ListAvailableSlots returns the free slots for a doctor on a date, in
// chronological order. Returns ErrNoAvailability when the doctor has no
// enabled rule for that weekday and ErrFullyBooked when rules exist but
// every slot is occupied, so callers can message the two differently.
func (s *Service) ListAvailableSlots(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]TimeSlot, error) {
	if _, err := s.repo.GetDoctorByID(ctx, doctorID); err != nil {
		if errors.Is(err, ErrDoctorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load doctor: %w", err)
	}

	return s.freeSlots(ctx, doctorID, date, nil)
}

// freeSlots recomputes the currently-free slots: enabled rules for the
// weekday, candidates per window, conflict filter over the day's
// appointments. Every commit path re-runs this inside the critical
// section; a slot list computed earlier is never trusted.
func (s *Service) freeSlots(ctx context.Context, doctorID uuid.UUID, date time.Time, excludeID *uuid.UUID) ([]TimeSlot, error) {
	day := DateOf(date)

	rules, err := s.repo.ListRulesForWeekday(ctx, doctorID, day.Weekday())
	if err != nil {
		return nil, fmt.Errorf("load availability rules: %w", err)
	}
	if len(rules) == 0 {
		return nil, ErrNoAvailability
	}

	// Each rule is an independent window; overlapping rules may emit the
	// same candidate twice, deduplicated after sorting.
	var candidates []TimeSlot
	for _, rule := range rules {
		slots, err := GenerateSlots(day, rule.Start, rule.End, s.cfg.SlotDuration)
		if err != nil {
			return nil, fmt.Errorf("generate slots for rule %s: %w", rule.ID, err)
		}
		candidates = append(candidates, slots...)
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Start < candidates[j].Start
	})
	candidates = dedupeSlots(candidates)

	existing, err := s.repo.ListAppointmentsForDay(ctx, doctorID, day)
	if err != nil {
		return nil, fmt.Errorf("load appointments: %w", err)
	}

	free := FilterFree(candidates, existing, excludeID)
	if len(free) == 0 {
		return nil, ErrFullyBooked
	}
	return free, nil
}

func dedupeSlots(sorted []TimeSlot) []TimeSlot {
	out := sorted[:0]
	for i, s := range sorted {
		if i > 0 && s.Start == sorted[i-1].Start && s.End == sorted[i-1].End {
			continue
		}
		out = append(out, s)
	}
	return out
}

func containsSlot(slots []TimeSlot, start, end TimeOfDay) bool {
	for _, s := range slots {
		if s.Start == start && s.End == end {
			return true
		}
	}
	return false
}

// CommitBooking validates the requested slot against current availability
// and persists a Scheduled appointment. Availability is re-checked inside
// a per (doctor, date) critical section, and the storage layer keeps a
// uniqueness constraint on (doctor, date, start) among non-cancelled rows,
// so two concurrent requests for the same slot resolve to exactly one
// success and one ErrSlotNoLongerAvailable.
func (s *Service) CommitBooking(ctx context.Context, req BookingRequest) (*Appointment, error) {
	if _, err := s.repo.GetPatientByID(ctx, req.PatientID); err != nil {
		if errors.Is(err, ErrPatientNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load patient: %w", err)
	}
	if _, err := s.repo.GetDoctorByID(ctx, req.DoctorID); err != nil {
		if errors.Is(err, ErrDoctorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load doctor: %w", err)
	}

	end := req.Start + s.slotMinutes()
	if !req.Start.Valid() || !end.Valid() || req.Start >= end {
		return nil, ErrInvalidInterval
	}

	var created *Appointment

	err := s.locker.WithScheduleLock(ctx, req.DoctorID, DateOf(req.Date), func(lockCtx context.Context) error {
		free, err := s.freeSlots(lockCtx, req.DoctorID, req.Date, nil)
		if err != nil {
			if errors.Is(err, ErrFullyBooked) {
				return ErrSlotNoLongerAvailable
			}
			return err
		}
		if !containsSlot(free, req.Start, end) {
			return ErrSlotNoLongerAvailable
		}

		appt, err := s.repo.InsertAppointment(lockCtx, Appointment{
			PatientID: req.PatientID,
			DoctorID:  req.DoctorID,
			Date:      DateOf(req.Date),
			Start:     req.Start,
			End:       end,
			Purpose:   req.Purpose,
			Notes:     req.Notes,
			Status:    StatusScheduled,
		})
		if err != nil {
			if errors.Is(err, ErrSlotTaken) {
				return ErrSlotNoLongerAvailable
			}
			return fmt.Errorf("insert appointment: %w", err)
		}

		created = appt

		s.logEvent(lockCtx, appt.ID, EventBookingCommitted, map[string]any{
			"doctor_id":  req.DoctorID.String(),
			"patient_id": req.PatientID.String(),
			"date":       DateOf(req.Date).Format("2006-01-02"),
			"start":      req.Start.String(),
			"end":        end.String(),
		})

		return nil
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrSlotNoLongerAvailable
		}
		return nil, err
	}

	return created, nil
}

// RescheduleAppointment moves an existing appointment to a new slot,
// re-validated as a fresh booking with the appointment's own prior
// placement excluded from conflict testing. Status is preserved; terminal
// appointments cannot move.
func (s *Service) RescheduleAppointment(ctx context.Context, id uuid.UUID, date time.Time, start TimeOfDay) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load appointment: %w", err)
	}
	if appt.Status.Terminal() {
		return nil, ErrInvalidTransition
	}

	end := start + s.slotMinutes()
	if !start.Valid() || !end.Valid() || start >= end {
		return nil, ErrInvalidInterval
	}

	var updated *Appointment

	err = s.locker.WithScheduleLock(ctx, appt.DoctorID, DateOf(date), func(lockCtx context.Context) error {
		free, err := s.freeSlots(lockCtx, appt.DoctorID, date, &appt.ID)
		if err != nil {
			if errors.Is(err, ErrFullyBooked) {
				return ErrSlotNoLongerAvailable
			}
			return err
		}
		if !containsSlot(free, start, end) {
			return ErrSlotNoLongerAvailable
		}

		moved, err := s.repo.UpdateAppointmentSlot(lockCtx, appt.ID, DateOf(date), start, end)
		if err != nil {
			if errors.Is(err, ErrSlotTaken) {
				return ErrSlotNoLongerAvailable
			}
			return fmt.Errorf("move appointment: %w", err)
		}

		updated = moved

		s.logEvent(lockCtx, moved.ID, EventBookingRescheduled, map[string]any{
			"from_date":  appt.Date.Format("2006-01-02"),
			"from_start": appt.Start.String(),
			"to_date":    DateOf(date).Format("2006-01-02"),
			"to_start":   start.String(),
		})

		return nil
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrSlotNoLongerAvailable
		}
		return nil, err
	}

	return updated, nil
}

// TransitionStatus applies one lifecycle transition. The update is a
// compare-and-swap on the loaded status, so a row that moved concurrently
// fails rather than skipping a state.
func (s *Service) TransitionStatus(ctx context.Context, id uuid.UUID, to AppointmentStatus) (*Appointment, error) {
	if !to.Valid() {
		return nil, ErrInvalidTransition
	}

	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load appointment: %w", err)
	}
	if !appt.Status.CanTransitionTo(to) {
		return nil, ErrInvalidTransition
	}

	updated, err := s.repo.UpdateAppointmentStatus(ctx, id, appt.Status, to)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			// The row left the expected status between load and update.
			return nil, ErrInvalidTransition
		}
		return nil, fmt.Errorf("update status: %w", err)
	}

	s.logEvent(ctx, updated.ID, EventStatusChanged, map[string]any{
		"from": string(appt.Status),
		"to":   string(to),
	})

	return updated, nil
}

// CancelAppointment soft-cancels: the row stays for history, the slot is
// freed for rebooking.
func (s *Service) CancelAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.TransitionStatus(ctx, id, StatusCancelled)
}

// SweepNoShows is intended to be called by the worker periodically. It
// marks Scheduled appointments whose end passed more than the configured
// grace ago as NoShow. Confirmed appointments are left for front-desk
// judgment.
func (s *Service) SweepNoShows(ctx context.Context) error {
	cutoff := time.Now().Add(-s.cfg.NoShowGrace)

	overdue, err := s.repo.FindOverdueScheduled(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("find overdue scheduled appointments: %w", err)
	}

	for _, appt := range overdue {
		_, err := s.repo.UpdateAppointmentStatus(ctx, appt.ID, StatusScheduled, StatusNoShow)
		if err != nil && !errors.Is(err, ErrAppointmentNotFound) {
			log.Printf("failed to mark appointment %s as no-show: %v", appt.ID, err)
			continue
		}
		s.logEvent(ctx, appt.ID, EventNoShowSwept, map[string]any{
			"reason": "worker",
		})
	}

	return nil
}

// GetAppointment retrieves an appointment by ID
func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get appointment: %w", err)
	}
	return appt, nil
}

// ListDayAppointments retrieves a doctor's appointments for one date
func (s *Service) ListDayAppointments(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]Appointment, error) {
	if _, err := s.repo.GetDoctorByID(ctx, doctorID); err != nil {
		if errors.Is(err, ErrDoctorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load doctor: %w", err)
	}

	appts, err := s.repo.ListAppointmentsForDay(ctx, doctorID, date)
	if err != nil {
		return nil, fmt.Errorf("list day appointments: %w", err)
	}
	return appts, nil
}

// ListAvailability returns all of a doctor's rules, enabled or not.
func (s *Service) ListAvailability(ctx context.Context, doctorID uuid.UUID) ([]AvailabilityRule, error) {
	if _, err := s.repo.GetDoctorByID(ctx, doctorID); err != nil {
		if errors.Is(err, ErrDoctorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load doctor: %w", err)
	}

	rules, err := s.repo.ListRulesForDoctor(ctx, doctorID)
	if err != nil {
		return nil, fmt.Errorf("list availability rules: %w", err)
	}
	return rules, nil
}

// CreateAvailabilityRule validates and stores a new weekly window.
func (s *Service) CreateAvailabilityRule(ctx context.Context, rule AvailabilityRule) (*AvailabilityRule, error) {
	if err := validateRule(rule); err != nil {
		return nil, err
	}
	if _, err := s.repo.GetDoctorByID(ctx, rule.DoctorID); err != nil {
		if errors.Is(err, ErrDoctorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load doctor: %w", err)
	}

	created, err := s.repo.CreateRule(ctx, rule)
	if err != nil {
		return nil, fmt.Errorf("create availability rule: %w", err)
	}
	return created, nil
}

// UpdateAvailabilityRule rewrites an existing rule in place.
func (s *Service) UpdateAvailabilityRule(ctx context.Context, rule AvailabilityRule) (*AvailabilityRule, error) {
	if err := validateRule(rule); err != nil {
		return nil, err
	}
	if _, err := s.repo.GetRuleByID(ctx, rule.ID); err != nil {
		return nil, fmt.Errorf("load availability rule: %w", err)
	}

	updated, err := s.repo.UpdateRule(ctx, rule)
	if err != nil {
		return nil, fmt.Errorf("update availability rule: %w", err)
	}
	return updated, nil
}

func validateRule(rule AvailabilityRule) error {
	if rule.Weekday < time.Sunday || rule.Weekday > time.Saturday {
		return ErrInvalidInterval
	}
	if !rule.Start.Valid() || !rule.End.Valid() || rule.Start >= rule.End {
		return ErrInvalidInterval
	}
	return nil
}

func (s *Service) logEvent(ctx context.Context, appointmentID uuid.UUID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("failed to marshal event payload for %s: %v", eventType, err)
		data = nil
	}

	apptID := appointmentID

	ev := EventLog{
		EventType:     eventType,
		AppointmentID: &apptID,
		Payload:       data,
		CreatedAt:     time.Now(),
	}

	if err := s.repo.InsertEvent(ctx, ev); err != nil {
		log.Printf("failed to insert event log %s for appointment %s: %v", eventType, appointmentID, err)
	}
}
