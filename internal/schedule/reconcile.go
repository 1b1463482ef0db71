package schedule

import "time"

// SlotUpdate describes a weekday present both before and after a schedule
// edit: the existing day schedule keeps its identity (so registrations
// pointing at it survive) while its intervals are replaced wholesale.
type SlotUpdate struct {
	DayScheduleID string
	Weekday       time.Weekday
	Intervals     []TimeInterval
}

// WeekDiff is the minimal set of persistence operations that turns a
// session's stored day schedules into a newly submitted weekly schedule.
type WeekDiff struct {
	Unchanged bool
	Add       []DaySlot
	Update    []SlotUpdate
	Remove    []DaySchedule
}

// ReconcileWeek diffs a session's persisted day schedules against a newly
// submitted weekly schedule, per weekday:
//
//   - present in both: update in place, keeping the stored identity and
//     replacing all intervals;
//   - present only in the new schedule: insert a fresh day schedule with no
//     registrations;
//   - present only in the old schedule: remove the day schedule and its
//     intervals. Whether registrations still attached to a removed day
//     block the edit is the caller's policy, not this diff's.
//
// When the submitted schedule matches the stored one (same weekdays, same
// interval sets), the diff reports Unchanged and nothing should be
// persisted.
func ReconcileWeek(old []DaySchedule, proposed WeeklySchedule) WeekDiff {
	oldByDay := make(map[time.Weekday]DaySchedule, len(old))
	for _, day := range old {
		oldByDay[day.Weekday] = day
	}

	diff := WeekDiff{}
	equal := true

	for day := time.Sunday; day <= time.Saturday; day++ {
		slot := proposed[day]
		active := slot.Recurs && len(slot.Intervals) > 0
		existing, had := oldByDay[day]

		switch {
		case active && had:
			if !intervalsEqual(existing.Intervals, slot.Intervals) {
				equal = false
			}
			diff.Update = append(diff.Update, SlotUpdate{
				DayScheduleID: existing.ID,
				Weekday:       day,
				Intervals:     sortedIntervals(slot.Intervals),
			})
		case active:
			equal = false
			diff.Add = append(diff.Add, DaySlot{
				Weekday:   day,
				Recurs:    true,
				Intervals: sortedIntervals(slot.Intervals),
			})
		case had:
			equal = false
			diff.Remove = append(diff.Remove, existing)
		}
	}

	if equal {
		return WeekDiff{Unchanged: true}
	}
	return diff
}
