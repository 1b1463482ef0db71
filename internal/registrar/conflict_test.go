package registrar

import (
	"strings"
	"testing"
	"time"

	"github.com/example/grant-tracker/internal/schedule"
)

func interval(startHour, endHour int) schedule.TimeInterval {
	return schedule.TimeInterval{
		Start: schedule.NewTimeOfDay(startHour, 0),
		End:   schedule.NewTimeOfDay(endHour, 0),
	}
}

func halfPast(startHour, endHour int) schedule.TimeInterval {
	return schedule.TimeInterval{
		Start: schedule.NewTimeOfDay(startHour, 30),
		End:   schedule.NewTimeOfDay(endHour, 30),
	}
}

func TestResolveConflicts(t *testing.T) {
	t.Parallel()

	existing := []Registration{{
		StudentSchoolYearID: "ssy-1",
		StudentName:         "Maria Lopez",
		Weekday:             time.Tuesday,
		Intervals:           []schedule.TimeInterval{interval(9, 10)},
	}}

	t.Run("overlap on the same weekday conflicts", func(t *testing.T) {
		t.Parallel()

		proposed := []ProposedDay{{
			DayScheduleID: "day-1",
			Weekday:       time.Tuesday,
			Intervals:     []schedule.TimeInterval{halfPast(9, 10)},
		}}

		conflicts := ResolveConflicts(existing, proposed)

		if len(conflicts) != 1 {
			t.Fatalf("ResolveConflicts returned %v, want one conflict", conflicts)
		}
		want := "Maria Lopez has a conflict with an existing registration on Tuesday from 9:00 AM to 10:00 AM"
		if conflicts[0] != want {
			t.Fatalf("conflict message = %q, want %q", conflicts[0], want)
		}
	})

	t.Run("adjacent interval does not conflict", func(t *testing.T) {
		t.Parallel()

		proposed := []ProposedDay{{
			DayScheduleID: "day-1",
			Weekday:       time.Tuesday,
			Intervals:     []schedule.TimeInterval{interval(10, 11)},
		}}

		if conflicts := ResolveConflicts(existing, proposed); len(conflicts) != 0 {
			t.Fatalf("adjacent interval produced conflicts: %v", conflicts)
		}
	})

	t.Run("same time on another weekday does not conflict", func(t *testing.T) {
		t.Parallel()

		proposed := []ProposedDay{{
			DayScheduleID: "day-1",
			Weekday:       time.Thursday,
			Intervals:     []schedule.TimeInterval{interval(9, 10)},
		}}

		if conflicts := ResolveConflicts(existing, proposed); len(conflicts) != 0 {
			t.Fatalf("different weekday produced conflicts: %v", conflicts)
		}
	})

	t.Run("exact duplicate conflicts", func(t *testing.T) {
		t.Parallel()

		duplicates := []Registration{{
			StudentSchoolYearID: "ssy-2",
			StudentName:         "Devon Clark",
			Weekday:             time.Wednesday,
			Intervals:           []schedule.TimeInterval{interval(9, 10)},
		}}
		proposed := []ProposedDay{{
			DayScheduleID: "day-2",
			Weekday:       time.Wednesday,
			Intervals:     []schedule.TimeInterval{interval(9, 10), interval(9, 10)},
		}}

		conflicts := ResolveConflicts(duplicates, proposed)

		if len(conflicts) != 2 {
			t.Fatalf("ResolveConflicts returned %d conflicts, want one per duplicate interval", len(conflicts))
		}
		for _, message := range conflicts {
			if !strings.Contains(message, "Devon Clark") || !strings.Contains(message, "Wednesday") {
				t.Errorf("conflict message %q missing student or weekday", message)
			}
		}
	})

	t.Run("no existing registrations never conflicts", func(t *testing.T) {
		t.Parallel()

		proposed := []ProposedDay{{
			DayScheduleID: "day-1",
			Weekday:       time.Monday,
			Intervals:     []schedule.TimeInterval{interval(8, 16)},
		}}

		if conflicts := ResolveConflicts(nil, proposed); len(conflicts) != 0 {
			t.Fatalf("empty registration set produced conflicts: %v", conflicts)
		}
	})
}
