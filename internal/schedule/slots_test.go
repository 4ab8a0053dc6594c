package schedule

import (
	"errors"
	"testing"
	"time"
)

func mustTime(t *testing.T, s string) TimeOfDay {
	t.Helper()
	tod, err := ParseTimeOfDay(s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return tod
}

func TestGenerateSlots(t *testing.T) {
	date := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC) // a Monday

	t.Run("morning window yields exact sequence", func(t *testing.T) {
		slots, err := GenerateSlots(date, mustTime(t, "09:00"), mustTime(t, "12:00"), 30*time.Minute)
		if err != nil {
			t.Fatalf("GenerateSlots: %v", err)
		}

		want := []string{"09:00", "09:30", "10:00", "10:30", "11:00", "11:30"}
		if len(slots) != len(want) {
			t.Fatalf("got %d slots, want %d", len(slots), len(want))
		}
		for i, s := range slots {
			if s.Start.String() != want[i] {
				t.Errorf("slot %d starts at %s, want %s", i, s.Start, want[i])
			}
			if s.End-s.Start != 30 {
				t.Errorf("slot %d has length %d minutes, want 30", i, s.End-s.Start)
			}
			if !s.Date.Equal(date) {
				t.Errorf("slot %d has date %s, want %s", i, s.Date, date)
			}
		}
	})

	t.Run("trailing partial interval is dropped", func(t *testing.T) {
		slots, err := GenerateSlots(date, mustTime(t, "09:00"), mustTime(t, "10:15"), 30*time.Minute)
		if err != nil {
			t.Fatalf("GenerateSlots: %v", err)
		}
		if len(slots) != 2 {
			t.Fatalf("got %d slots, want 2 (the 10:00-10:15 remainder must not be offered)", len(slots))
		}
		if last := slots[len(slots)-1]; last.End.String() != "10:00" {
			t.Errorf("last slot ends at %s, want 10:00", last.End)
		}
	})

	t.Run("window shorter than a slot yields nothing", func(t *testing.T) {
		slots, err := GenerateSlots(date, mustTime(t, "09:00"), mustTime(t, "09:20"), 30*time.Minute)
		if err != nil {
			t.Fatalf("GenerateSlots: %v", err)
		}
		if len(slots) != 0 {
			t.Fatalf("got %d slots, want 0", len(slots))
		}
	})

	t.Run("slots are contiguous and ordered", func(t *testing.T) {
		slots, err := GenerateSlots(date, mustTime(t, "08:00"), mustTime(t, "18:00"), 15*time.Minute)
		if err != nil {
			t.Fatalf("GenerateSlots: %v", err)
		}
		for i := 1; i < len(slots); i++ {
			if slots[i].Start != slots[i-1].End {
				t.Fatalf("slot %d starts at %s but previous ends at %s", i, slots[i].Start, slots[i-1].End)
			}
		}
	})

	t.Run("inverted window fails", func(t *testing.T) {
		_, err := GenerateSlots(date, mustTime(t, "12:00"), mustTime(t, "09:00"), 30*time.Minute)
		if !errors.Is(err, ErrInvalidInterval) {
			t.Fatalf("got %v, want ErrInvalidInterval", err)
		}
	})

	t.Run("empty window fails", func(t *testing.T) {
		_, err := GenerateSlots(date, mustTime(t, "09:00"), mustTime(t, "09:00"), 30*time.Minute)
		if !errors.Is(err, ErrInvalidInterval) {
			t.Fatalf("got %v, want ErrInvalidInterval", err)
		}
	})

	t.Run("non-positive duration fails", func(t *testing.T) {
		_, err := GenerateSlots(date, mustTime(t, "09:00"), mustTime(t, "12:00"), 0)
		if !errors.Is(err, ErrInvalidInterval) {
			t.Fatalf("got %v, want ErrInvalidInterval", err)
		}
		_, err = GenerateSlots(date, mustTime(t, "09:00"), mustTime(t, "12:00"), -time.Hour)
		if !errors.Is(err, ErrInvalidInterval) {
			t.Fatalf("got %v, want ErrInvalidInterval", err)
		}
	})
}

func TestParseTimeOfDay(t *testing.T) {
	cases := []struct {
		in      string
		want    TimeOfDay
		wantErr bool
	}{
		{"00:00", 0, false},
		{"09:30", 570, false},
		{"23:59", 1439, false},
		{"24:00", 1440, false},
		{"24:01", 0, true},
		{"09:60", 0, true},
		{"garbage", 0, true},
		{"09:30xyz", 0, true},
		{"9:30", 0, true},
		{"09:3", 0, true},
		{"ab:cd", 0, true},
		{"-9:30", 0, true},
		{"09:30:00", 0, true},
	}

	for _, tc := range cases {
		got, err := ParseTimeOfDay(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseTimeOfDay(%q): expected error, got %v", tc.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseTimeOfDay(%q): %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseTimeOfDay(%q) = %d, want %d", tc.in, got, tc.want)
		}
		if got.String() != tc.in {
			t.Errorf("round trip %q -> %q", tc.in, got.String())
		}
	}
}
