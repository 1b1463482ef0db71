package schedule

import "time"

// SessionWindow is the slice of a session the missing-attendance scanner
// needs: its active date range, the weekday patterns it meets on, the
// dates attendance was already recorded, and any session-specific blackout
// dates.
type SessionWindow struct {
	SessionID       string
	FirstSession    Date
	LastSession     Date
	Weekdays        []time.Weekday
	AttendanceDates []Date
	BlackoutDates   []Date
}

// MissingRecord marks a date on which a session should have an attendance
// record but does not.
type MissingRecord struct {
	SessionID    string
	InstanceDate Date
}

// MissingAttendance walks every session's weekday patterns from the first
// occurrence of each weekday through min(yesterday, lastSession) and
// reports each date that has neither an attendance record nor a blackout.
// Today and future dates are never reported; attendance for the current
// day is still open for entry.
func MissingAttendance(sessions []SessionWindow, organizationBlackouts []Date, today Date) []MissingRecord {
	yesterday := today.AddDays(-1)

	missing := make([]MissingRecord, 0)
	for _, session := range sessions {
		endBound := session.LastSession
		if yesterday.Before(endBound) {
			endBound = yesterday
		}

		recorded := make(map[Date]struct{}, len(session.AttendanceDates))
		for _, d := range session.AttendanceDates {
			recorded[d] = struct{}{}
		}
		blackout := make(map[Date]struct{}, len(organizationBlackouts)+len(session.BlackoutDates))
		for _, d := range organizationBlackouts {
			blackout[d] = struct{}{}
		}
		for _, d := range session.BlackoutDates {
			blackout[d] = struct{}{}
		}

		for _, weekday := range session.Weekdays {
			current := firstOccurrence(weekday, session.FirstSession)
			for !current.After(endBound) {
				_, hasRecord := recorded[current]
				_, isBlackout := blackout[current]
				if !hasRecord && !isBlackout {
					missing = append(missing, MissingRecord{
						SessionID:    session.SessionID,
						InstanceDate: current,
					})
				}
				current = current.AddDays(7)
			}
		}
	}
	return missing
}
