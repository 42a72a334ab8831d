package schedule

import "dental-registration/catalog"

// Overlaps reports whether [s1,e1) and [s2,e2) intersect. Spans that only
// touch (e1 == s2) do not overlap.
func Overlaps(s1, e1, s2, e2 Clock) bool {
	return s1 < e2 && s2 < e1
}

// FindConflict returns the first active entry on the candidate's weekday
// whose span overlaps the candidate. The caller guarantees
// candidate.Start < candidate.End.
func FindConflict(existing []Entry, candidate Candidate) (Entry, bool) {
	day := catalog.NormalizeWeekday(candidate.Weekday)
	for _, e := range existing {
		if !e.Active || catalog.NormalizeWeekday(e.Weekday) != day {
			continue
		}
		if Overlaps(e.Start, e.End, candidate.Start, candidate.End) {
			return e, true
		}
	}
	return Entry{}, false
}

// HasConflict reports whether candidate overlaps any active entry on the
// same weekday.
func HasConflict(existing []Entry, candidate Candidate) bool {
	_, found := FindConflict(existing, candidate)
	return found
}
