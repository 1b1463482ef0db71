package schedule

import (
	"testing"
	"time"
)

func TestMissingAttendance(t *testing.T) {
	t.Parallel()

	t.Run("never reports today or future dates", func(t *testing.T) {
		t.Parallel()

		sessions := []SessionWindow{{
			SessionID:    "session-1",
			FirstSession: mustDate(t, "2024-01-01"),
			LastSession:  mustDate(t, "2024-01-29"),
			Weekdays:     []time.Weekday{time.Monday},
		}}

		got := MissingAttendance(sessions, nil, mustDate(t, "2024-01-10"))

		want := dates("2024-01-01", "2024-01-08")
		if len(got) != len(want) {
			t.Fatalf("MissingAttendance returned %v, want dates %v", got, want)
		}
		for i, record := range got {
			if record.SessionID != "session-1" {
				t.Errorf("record %d has session %q, want session-1", i, record.SessionID)
			}
			if record.InstanceDate != want[i] {
				t.Errorf("record %d has date %s, want %s", i, record.InstanceDate, want[i])
			}
		}
	})

	t.Run("bounded by last session date", func(t *testing.T) {
		t.Parallel()

		sessions := []SessionWindow{{
			SessionID:    "session-1",
			FirstSession: mustDate(t, "2024-01-01"),
			LastSession:  mustDate(t, "2024-01-08"),
			Weekdays:     []time.Weekday{time.Monday},
		}}

		got := MissingAttendance(sessions, nil, mustDate(t, "2024-03-01"))

		if len(got) != 2 {
			t.Fatalf("MissingAttendance returned %d records, want 2", len(got))
		}
		last := got[len(got)-1].InstanceDate
		if last != mustDate(t, "2024-01-08") {
			t.Fatalf("last missing date is %s, want 2024-01-08", last)
		}
	})

	t.Run("recorded and blackout dates are not missing", func(t *testing.T) {
		t.Parallel()

		sessions := []SessionWindow{{
			SessionID:       "session-1",
			FirstSession:    mustDate(t, "2024-01-01"),
			LastSession:     mustDate(t, "2024-01-31"),
			Weekdays:        []time.Weekday{time.Monday},
			AttendanceDates: dates("2024-01-08"),
			BlackoutDates:   dates("2024-01-22"),
		}}
		orgBlackouts := dates("2024-01-15")

		got := MissingAttendance(sessions, orgBlackouts, mustDate(t, "2024-01-30"))

		want := dates("2024-01-01", "2024-01-29")
		if len(got) != len(want) {
			t.Fatalf("MissingAttendance returned %v, want dates %v", got, want)
		}
		for i, record := range got {
			if record.InstanceDate != want[i] {
				t.Errorf("record %d has date %s, want %s", i, record.InstanceDate, want[i])
			}
		}
	})

	t.Run("spans multiple weekday patterns and sessions", func(t *testing.T) {
		t.Parallel()

		sessions := []SessionWindow{
			{
				SessionID:    "session-1",
				FirstSession: mustDate(t, "2024-01-01"),
				LastSession:  mustDate(t, "2024-01-12"),
				Weekdays:     []time.Weekday{time.Monday, time.Wednesday},
			},
			{
				SessionID:       "session-2",
				FirstSession:    mustDate(t, "2024-01-02"),
				LastSession:     mustDate(t, "2024-01-12"),
				Weekdays:        []time.Weekday{time.Tuesday},
				AttendanceDates: dates("2024-01-02", "2024-01-09"),
			},
		}

		got := MissingAttendance(sessions, nil, mustDate(t, "2024-01-15"))

		counts := make(map[string]int)
		for _, record := range got {
			counts[record.SessionID]++
			if record.InstanceDate.After(mustDate(t, "2024-01-14")) {
				t.Errorf("record %v is newer than yesterday", record)
			}
		}
		if counts["session-1"] != 4 {
			t.Errorf("session-1 has %d missing dates, want 4", counts["session-1"])
		}
		if counts["session-2"] != 0 {
			t.Errorf("session-2 has %d missing dates, want 0", counts["session-2"])
		}
	})
}
