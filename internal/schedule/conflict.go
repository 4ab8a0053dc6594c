package schedule

import "github.com/google/uuid"

// IsFree reports whether the candidate slot is unblocked by any occupying
// appointment in existing. The caller scopes existing to one doctor and
// one date; cancelled appointments never block. excludeID, when non-nil,
// drops that appointment from consideration so an appointment being
// rescheduled cannot conflict with its own prior placement.
func IsFree(candidate TimeSlot, existing []Appointment, excludeID *uuid.UUID) bool {
	for i := range existing {
		a := &existing[i]
		if excludeID != nil && a.ID == *excludeID {
			continue
		}
		if !a.Status.Occupies() {
			continue
		}
		if candidate.Overlaps(a.Start, a.End) {
			return false
		}
	}
	return true
}

// FilterFree keeps the candidates that survive IsFree, preserving order.
func FilterFree(candidates []TimeSlot, existing []Appointment, excludeID *uuid.UUID) []TimeSlot {
	var free []TimeSlot
	for _, c := range candidates {
		if IsFree(c, existing, excludeID) {
			free = append(free, c)
		}
	}
	return free
}
