package schedule

import (
	"testing"
	"time"
)

func TestNewWeek(t *testing.T) {
	t.Parallel()

	week := NewWeek()

	for day := time.Sunday; day <= time.Saturday; day++ {
		slot := week.Slot(day)
		if slot.Weekday != day {
			t.Errorf("slot %d has weekday %s, want %s", day, slot.Weekday, day)
		}
		if slot.Recurs {
			t.Errorf("slot %s recurs, want non-recurring baseline", day)
		}
		if len(slot.Intervals) != 0 {
			t.Errorf("slot %s has %d intervals, want none", day, len(slot.Intervals))
		}
	}
	if len(week.ActiveSlots()) != 0 {
		t.Errorf("empty week has active slots")
	}
}

func TestIsNonRecurringSlotFor(t *testing.T) {
	t.Parallel()

	first := mustDate(t, "2024-01-03") // Wednesday

	if !IsNonRecurringSlotFor(first, DaySlot{Weekday: time.Wednesday}) {
		t.Errorf("Wednesday slot should match a Wednesday first session date")
	}
	if IsNonRecurringSlotFor(first, DaySlot{Weekday: time.Monday}) {
		t.Errorf("Monday slot should not match a Wednesday first session date")
	}
}

func TestEnsureIntervals(t *testing.T) {
	t.Parallel()

	t.Run("empty set gets a midnight placeholder", func(t *testing.T) {
		t.Parallel()
		got := EnsureIntervals(nil)
		if len(got) != 1 {
			t.Fatalf("EnsureIntervals(nil) returned %d intervals, want 1", len(got))
		}
		if got[0].Start != Midnight || got[0].End != Midnight {
			t.Fatalf("placeholder interval = %v, want midnight to midnight", got[0])
		}
	})

	t.Run("populated set passes through", func(t *testing.T) {
		t.Parallel()
		intervals := []TimeInterval{{Start: NewTimeOfDay(9, 0), End: NewTimeOfDay(10, 0)}}
		got := EnsureIntervals(intervals)
		if len(got) != 1 || got[0] != intervals[0] {
			t.Fatalf("EnsureIntervals modified populated set: %v", got)
		}
	})
}

func TestTimeOfDayClock(t *testing.T) {
	t.Parallel()

	tests := []struct {
		time TimeOfDay
		want string
	}{
		{NewTimeOfDay(0, 0), "12:00 AM"},
		{NewTimeOfDay(9, 5), "9:05 AM"},
		{NewTimeOfDay(12, 0), "12:00 PM"},
		{NewTimeOfDay(15, 30), "3:30 PM"},
	}

	for _, tt := range tests {
		if got := tt.time.Clock(); got != tt.want {
			t.Errorf("Clock(%s) = %q, want %q", tt.time, got, tt.want)
		}
	}
}

func TestParseDateAndTimeOfDay(t *testing.T) {
	t.Parallel()

	d, err := ParseDate("2024-02-29")
	if err != nil {
		t.Fatalf("ParseDate returned error: %v", err)
	}
	if d.Weekday() != time.Thursday {
		t.Errorf("2024-02-29 weekday = %s, want Thursday", d.Weekday())
	}
	if got := d.AddDays(1); got != NewDate(2024, time.March, 1) {
		t.Errorf("AddDays(1) = %s, want 2024-03-01", got)
	}

	if _, err := ParseDate("02/29/2024"); err == nil {
		t.Errorf("ParseDate accepted a non-ISO value")
	}

	tod, err := ParseTimeOfDay("15:04")
	if err != nil {
		t.Fatalf("ParseTimeOfDay returned error: %v", err)
	}
	if tod.Hour() != 15 || tod.Minute() != 4 {
		t.Errorf("ParseTimeOfDay = %d:%d, want 15:04", tod.Hour(), tod.Minute())
	}
	if _, err := ParseTimeOfDay("25:00"); err == nil {
		t.Errorf("ParseTimeOfDay accepted an out-of-range hour")
	}
}
