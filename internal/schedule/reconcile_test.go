package schedule

import (
	"testing"
	"time"
)

func weekWith(t *testing.T, slots ...DaySlot) WeeklySchedule {
	t.Helper()
	week := NewWeek()
	for _, slot := range slots {
		slot.Recurs = true
		week.SetSlot(slot)
	}
	return week
}

func TestReconcileWeek_Unchanged(t *testing.T) {
	t.Parallel()

	morning := TimeInterval{Start: NewTimeOfDay(9, 0), End: NewTimeOfDay(10, 0)}
	afternoon := TimeInterval{Start: NewTimeOfDay(14, 0), End: NewTimeOfDay(15, 0)}

	old := []DaySchedule{
		{ID: "day-mon", Weekday: time.Monday, Intervals: []TimeInterval{afternoon, morning}},
		{ID: "day-wed", Weekday: time.Wednesday, Intervals: []TimeInterval{morning}},
	}
	proposed := weekWith(t,
		DaySlot{Weekday: time.Monday, Intervals: []TimeInterval{morning, afternoon}},
		DaySlot{Weekday: time.Wednesday, Intervals: []TimeInterval{morning}},
	)

	diff := ReconcileWeek(old, proposed)

	if !diff.Unchanged {
		t.Fatalf("identical schedules produced a diff: %+v", diff)
	}
	if len(diff.Add) != 0 || len(diff.Update) != 0 || len(diff.Remove) != 0 {
		t.Fatalf("unchanged diff carries operations: %+v", diff)
	}
}

func TestReconcileWeek_AddUpdateRemove(t *testing.T) {
	t.Parallel()

	morning := TimeInterval{Start: NewTimeOfDay(9, 0), End: NewTimeOfDay(10, 0)}
	evening := TimeInterval{Start: NewTimeOfDay(17, 0), End: NewTimeOfDay(18, 0)}

	old := []DaySchedule{
		{ID: "day-mon", Weekday: time.Monday, Intervals: []TimeInterval{morning}},
		{ID: "day-fri", Weekday: time.Friday, Intervals: []TimeInterval{morning}},
	}
	proposed := weekWith(t,
		DaySlot{Weekday: time.Monday, Intervals: []TimeInterval{evening}},
		DaySlot{Weekday: time.Tuesday, Intervals: []TimeInterval{morning}},
	)

	diff := ReconcileWeek(old, proposed)

	if diff.Unchanged {
		t.Fatalf("changed schedules reported unchanged")
	}
	if len(diff.Update) != 1 || diff.Update[0].DayScheduleID != "day-mon" {
		t.Fatalf("update set = %+v, want day-mon updated in place", diff.Update)
	}
	if diff.Update[0].Intervals[0] != evening {
		t.Fatalf("update intervals = %v, want wholesale replacement with %v", diff.Update[0].Intervals, evening)
	}
	if len(diff.Add) != 1 || diff.Add[0].Weekday != time.Tuesday {
		t.Fatalf("add set = %+v, want a fresh Tuesday slot", diff.Add)
	}
	if len(diff.Remove) != 1 || diff.Remove[0].ID != "day-fri" {
		t.Fatalf("remove set = %+v, want day-fri removed", diff.Remove)
	}
}

func TestReconcileWeek_IntervalChangeOnSharedDayIsNotUnchanged(t *testing.T) {
	t.Parallel()

	old := []DaySchedule{
		{ID: "day-mon", Weekday: time.Monday, Intervals: []TimeInterval{{Start: NewTimeOfDay(9, 0), End: NewTimeOfDay(10, 0)}}},
	}
	proposed := weekWith(t,
		DaySlot{Weekday: time.Monday, Intervals: []TimeInterval{{Start: NewTimeOfDay(9, 0), End: NewTimeOfDay(11, 0)}}},
	)

	diff := ReconcileWeek(old, proposed)

	if diff.Unchanged {
		t.Fatalf("interval change reported unchanged")
	}
	if len(diff.Update) != 1 {
		t.Fatalf("update set = %+v, want the Monday slot updated", diff.Update)
	}
}

func TestReconcileWeek_SlotWithoutIntervalsIsInactive(t *testing.T) {
	t.Parallel()

	old := []DaySchedule{
		{ID: "day-mon", Weekday: time.Monday, Intervals: []TimeInterval{{Start: NewTimeOfDay(9, 0), End: NewTimeOfDay(10, 0)}}},
	}
	week := NewWeek()
	week.SetSlot(DaySlot{Weekday: time.Monday, Recurs: true}) // recurs but no intervals

	diff := ReconcileWeek(old, week)

	if diff.Unchanged {
		t.Fatalf("emptied Monday slot reported unchanged")
	}
	if len(diff.Remove) != 1 || diff.Remove[0].ID != "day-mon" {
		t.Fatalf("remove set = %+v, want day-mon removed", diff.Remove)
	}
}
