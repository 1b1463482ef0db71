package schedule

import "time"

// OpenDates computes the calendar dates on which attendance may still be
// recorded for one weekday pattern of a session.
//
// Starting from the first occurrence of weekday on or after sessionStart,
// dates are collected in seven-day steps through sessionEnd inclusive.
// Dates already carrying an attendance record and organization blackout
// dates are removed. The result is ascending and is empty, not an error,
// when the window holds no occurrences or every occurrence is excluded.
func OpenDates(weekday time.Weekday, sessionStart, sessionEnd Date, attendanceDates, blackoutDates []Date) []Date {
	excluded := make(map[Date]struct{}, len(attendanceDates)+len(blackoutDates))
	for _, d := range attendanceDates {
		excluded[d] = struct{}{}
	}
	for _, d := range blackoutDates {
		excluded[d] = struct{}{}
	}

	open := make([]Date, 0)
	current := firstOccurrence(weekday, sessionStart)
	for !current.After(sessionEnd) {
		if _, ok := excluded[current]; !ok {
			open = append(open, current)
		}
		current = current.AddDays(7)
	}
	return open
}

// firstOccurrence returns the first date on or after start that falls on
// the requested weekday, wrapping across the seven-day cycle when the
// start date's weekday is already past the target.
func firstOccurrence(weekday time.Weekday, start Date) Date {
	offset := (int(weekday) - int(start.Weekday()) + 7) % 7
	return start.AddDays(offset)
}
