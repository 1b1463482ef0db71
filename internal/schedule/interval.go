package schedule

// TimeInterval is a start/end pair of wall-clock times within one day.
// The type itself does not require Start < End; an inverted interval is
// representable and is flagged by input validation rather than rejected
// here.
type TimeInterval struct {
	Start TimeOfDay
	End   TimeOfDay
}

// Conflicts reports whether a candidate interval collides with an existing
// one. Two intervals collide when they overlap as open intervals, or when
// they are exactly identical. The identity clause is deliberate: two
// registrations with byte-identical bounds are a duplicate entry even when
// the bounds are zero-width and would not overlap in the open-interval
// sense.
func Conflicts(existing, candidate TimeInterval) bool {
	if existing.Start < candidate.End && existing.End > candidate.Start {
		return true
	}
	return existing.Start == candidate.Start && existing.End == candidate.End
}
