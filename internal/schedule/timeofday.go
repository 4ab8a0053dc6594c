package schedule

import (
	"fmt"
	"strings"
	"time"
)

// TimeOfDay is a clock time expressed as minutes since midnight on the
// facility-local clock. 24:00 (1440) is a legal interval end.
type TimeOfDay int

const minutesPerDay = 24 * 60

// ParseTimeOfDay parses "HH:MM" (24h clock). Exactly two digits on each
// side, nothing else: every accepted value round-trips through String.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	hh, mm, ok := strings.Cut(s, ":")
	if !ok || len(hh) != 2 || len(mm) != 2 {
		return 0, fmt.Errorf("time of day %q must be HH:MM", s)
	}

	h, err := twoDigits(hh)
	if err != nil {
		return 0, fmt.Errorf("time of day %q must be HH:MM", s)
	}
	m, err := twoDigits(mm)
	if err != nil {
		return 0, fmt.Errorf("time of day %q must be HH:MM", s)
	}

	if m > 59 || h*60+m > minutesPerDay {
		return 0, fmt.Errorf("time of day %q out of range", s)
	}
	return TimeOfDay(h*60 + m), nil
}

func twoDigits(s string) (int, error) {
	var n int
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("not a digit: %q", c)
		}
		n = n*10 + int(c-'0')
	}
	return n, nil
}

func (t TimeOfDay) Valid() bool {
	return t >= 0 && t <= minutesPerDay
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// On places the time of day on a civil date.
func (t TimeOfDay) On(date time.Time) time.Time {
	return DateOf(date).Add(time.Duration(t) * time.Minute)
}

// DateOf truncates an instant to its civil date. The engine keeps every
// date at midnight UTC so that two dates compare with Equal regardless of
// where the value came from.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
