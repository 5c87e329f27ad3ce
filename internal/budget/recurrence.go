package budget

import "time"

// Due days past the 28th are treated as the 28th so every month has one.
const maxDueDay = 28

var defaultQuarterMonths = QuarterMonths{1, 4, 7, 10}

// FallsInPeriod reports whether the bill's due date lands inside [start, end].
//
// Quarterly and annual candidates always use the year of start, so a period
// spanning New Year never matches a due month from the following year.
func FallsInPeriod(b Bill, start, end time.Time) bool {
	if !b.IsActive {
		return false
	}
	start, end = CivilDate(start), CivilDate(end)
	day := clampDueDay(b.DueDay)
	within := func(due time.Time) bool {
		return !due.Before(start) && !due.After(end)
	}

	switch b.Frequency {
	case FrequencyQuarterly:
		months := b.QuarterMonths
		if len(months) == 0 {
			months = defaultQuarterMonths
		}
		for _, m := range months {
			if within(dueDate(start.Year(), m, day)) {
				return true
			}
		}
		return false
	case FrequencyAnnual:
		m := b.AnnualMonth
		if m == 0 {
			m = 1
		}
		return within(dueDate(start.Year(), m, day))
	default:
		// Both the start month and the end month candidates are tried so a
		// period crossing a month boundary catches either due date.
		if within(dueDate(start.Year(), int(start.Month()), day)) {
			return true
		}
		return within(dueDate(end.Year(), int(end.Month()), day))
	}
}

// BillsInPeriod returns the bills that naturally fall in p, in input order.
func BillsInPeriod(bills []Bill, p Period) []Bill {
	var out []Bill
	for _, b := range bills {
		if FallsInPeriod(b, p.Start, p.End) {
			out = append(out, b)
		}
	}
	return out
}

func clampDueDay(day int) int {
	if day > maxDueDay {
		return maxDueDay
	}
	if day < 1 {
		return 1
	}
	return day
}

func dueDate(year, month, day int) time.Time {
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}
