package schedule

import (
	"sort"
	"time"
)

// DaySchedule is a persisted weekday slot of a session, holding the time
// intervals students attend on that day. For a recurring session the slot
// repeats every Weekday within the session window; for a non-recurring
// session exactly one DaySchedule exists, pinned to the weekday of the
// session's single date.
type DaySchedule struct {
	ID        string
	Weekday   time.Weekday
	Intervals []TimeInterval
}

// DaySlot is one editable weekday entry of a weekly schedule form.
type DaySlot struct {
	Weekday   time.Weekday
	Recurs    bool
	Intervals []TimeInterval
}

// WeeklySchedule holds exactly seven weekday slots, Sunday through
// Saturday.
type WeeklySchedule [7]DaySlot

// NewWeek returns the baseline weekly schedule: one slot per weekday, none
// recurring, no intervals.
func NewWeek() WeeklySchedule {
	var week WeeklySchedule
	for day := time.Sunday; day <= time.Saturday; day++ {
		week[day] = DaySlot{Weekday: day}
	}
	return week
}

// Slot returns the entry for the given weekday.
func (w WeeklySchedule) Slot(day time.Weekday) DaySlot {
	return w[day]
}

// SetSlot replaces the entry for the slot's weekday.
func (w *WeeklySchedule) SetSlot(slot DaySlot) {
	w[slot.Weekday] = slot
}

// ActiveSlots returns the recurring slots that carry at least one interval,
// in weekday order.
func (w WeeklySchedule) ActiveSlots() []DaySlot {
	var active []DaySlot
	for day := time.Sunday; day <= time.Saturday; day++ {
		slot := w[day]
		if slot.Recurs && len(slot.Intervals) > 0 {
			active = append(active, slot)
		}
	}
	return active
}

// IsNonRecurringSlotFor reports whether the slot is the single slot a
// non-recurring session occupies: the one matching the weekday of the
// session's first (and only) session date.
func IsNonRecurringSlotFor(firstSessionDate Date, slot DaySlot) bool {
	return slot.Weekday == firstSessionDate.Weekday()
}

// EnsureIntervals substitutes a single midnight-to-midnight placeholder when
// a persisted day schedule carries no intervals, so forms and validation
// stay well-defined for records predating interval capture.
func EnsureIntervals(intervals []TimeInterval) []TimeInterval {
	if len(intervals) > 0 {
		return intervals
	}
	return []TimeInterval{{Start: Midnight, End: Midnight}}
}

// sortedIntervals returns a copy ordered by start then end time, for
// set-equality comparisons.
func sortedIntervals(intervals []TimeInterval) []TimeInterval {
	out := make([]TimeInterval, len(intervals))
	copy(out, intervals)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Start == out[j].Start {
			return out[i].End < out[j].End
		}
		return out[i].Start < out[j].Start
	})
	return out
}

// intervalsEqual reports whether two interval sets hold the same
// start/end pairs, ignoring order.
func intervalsEqual(a, b []TimeInterval) bool {
	if len(a) != len(b) {
		return false
	}
	as, bs := sortedIntervals(a), sortedIntervals(b)
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}
