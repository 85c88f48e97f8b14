package core

import "time"

// windowMonths is the number of calendar months covered by one verification.
const windowMonths = 6

// monthCutoffDay is the day of the month from which the current month is
// treated as incomplete: statements pasted late in the month rarely cover the
// full cycle, so from day 25 the window shifts back by one month.
const monthCutoffDay = 25

// ResolveWindow computes the months in scope for the given reference date,
// oldest first. The reference date is used verbatim; callers that care about
// timezones must resolve them before calling.
func ResolveWindow(ref time.Time) []Month {
	end := time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, time.UTC)
	if ref.Day() >= monthCutoffDay {
		end = end.AddDate(0, -1, 0)
	}
	months := make([]Month, 0, windowMonths)
	for i := windowMonths - 1; i >= 0; i-- {
		t := end.AddDate(0, -i, 0)
		months = append(months, Month{Year: t.Year(), Month: t.Month()})
	}
	return months
}
