package quota

import "time"

// Period is a billing window [Start, End) aligned to a UTC calendar month.
type Period struct {
	Start time.Time
	End   time.Time
}

// PeriodFor returns the calendar month containing t.
func PeriodFor(t time.Time) Period {
	t = t.UTC()
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	return Period{Start: start, End: start.AddDate(0, 1, 0)}
}

func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && t.Before(p.End)
}
