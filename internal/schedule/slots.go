package schedule

import (
	"errors"
	"time"
)

var ErrInvalidInterval = errors.New("invalid time interval")

// GenerateSlots cuts the half-open window [start, end) on the given date
// into contiguous slots of slotDuration. A trailing remainder shorter than
// slotDuration is dropped, never offered. The result is in chronological
// order.
func GenerateSlots(date time.Time, start, end TimeOfDay, slotDuration time.Duration) ([]TimeSlot, error) {
	step := TimeOfDay(slotDuration / time.Minute)
	if step <= 0 {
		return nil, ErrInvalidInterval
	}
	if !start.Valid() || !end.Valid() || start >= end {
		return nil, ErrInvalidInterval
	}

	day := DateOf(date)
	var slots []TimeSlot
	for cursor := start; cursor+step <= end; cursor += step {
		slots = append(slots, TimeSlot{Date: day, Start: cursor, End: cursor + step})
	}
	return slots, nil
}
