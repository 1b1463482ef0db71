package registrar

import (
	"fmt"
	"time"

	"github.com/example/grant-tracker/internal/schedule"
)

// Registration is an existing student registration in the scope a proposed
// registration must be checked against: one day schedule's weekday and
// intervals, plus the student it belongs to.
type Registration struct {
	StudentSchoolYearID string
	StudentName         string
	Weekday             time.Weekday
	Intervals           []schedule.TimeInterval
}

// ProposedDay is one day schedule of the session a student is being
// registered into.
type ProposedDay struct {
	DayScheduleID string
	Weekday       time.Weekday
	Intervals     []schedule.TimeInterval
}

// ResolveConflicts compares every interval of each proposed day against
// every interval of every existing registration sharing that weekday and
// returns one human-readable message per collision, suitable for direct
// display. An empty result means the registration may proceed; any result
// at all means none of the proposed days may be persisted.
func ResolveConflicts(existing []Registration, proposed []ProposedDay) []string {
	byDay := make(map[time.Weekday][]Registration, len(existing))
	for _, registration := range existing {
		byDay[registration.Weekday] = append(byDay[registration.Weekday], registration)
	}

	var conflicts []string
	for day := time.Sunday; day <= time.Saturday; day++ {
		sameDay := byDay[day]
		if len(sameDay) == 0 {
			continue
		}
		for _, proposedDay := range proposed {
			if proposedDay.Weekday != day {
				continue
			}
			for _, candidate := range proposedDay.Intervals {
				for _, registration := range sameDay {
					for _, held := range registration.Intervals {
						if schedule.Conflicts(held, candidate) {
							conflicts = append(conflicts, conflictMessage(registration, day, held))
						}
					}
				}
			}
		}
	}
	return conflicts
}

func conflictMessage(registration Registration, day time.Weekday, held schedule.TimeInterval) string {
	return fmt.Sprintf("%s has a conflict with an existing registration on %s from %s to %s",
		registration.StudentName, day, held.Start.Clock(), held.End.Clock())
}
