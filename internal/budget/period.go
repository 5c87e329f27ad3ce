package budget

import (
	"fmt"
	"strings"
	"time"
)

const (
	// PeriodLength is the number of days in a pay period, end inclusive.
	PeriodLength = 14
	// DefaultPeriodCount is the window the dashboard and calendar work with.
	DefaultPeriodCount = 6

	lookbackPeriods = 2
	dateLayout      = "2006-01-02"
)

// Period is a derived pay period. It is never persisted.
type Period struct {
	Start     time.Time
	End       time.Time
	Label     string
	IsCurrent bool
}

// Key identifies the period externally (YYYY-MM-DD of its start).
func (p Period) Key() string {
	return FormatKey(p.Start)
}

// Contains reports whether the calendar day of t falls inside the period.
func (p Period) Contains(t time.Time) bool {
	day := CivilDate(t)
	return !day.Before(p.Start) && !day.After(p.End)
}

// CivilDate drops the time of day and zone of t, keeping its calendar date.
// Civil dates are represented at UTC midnight so day arithmetic is exact.
func CivilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(raw string) (time.Time, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, fmt.Errorf("date %q must be YYYY-MM-DD", raw)
	}
	return t, nil
}

// FormatKey formats a calendar date as YYYY-MM-DD.
func FormatKey(t time.Time) string {
	return t.Format(dateLayout)
}

// GeneratePeriods tiles 14-day periods from anchor and returns count of them,
// starting two periods before the one containing now.
func GeneratePeriods(anchor time.Time, count int, now time.Time) []Period {
	if count <= 0 {
		return nil
	}

	today := CivilDate(now)
	start := CivilDate(anchor)

	// Align start to the tile containing today. Equivalent to stepping back
	// while start is in the future, then forward while the period ends before today.
	// Both are UTC midnights; Unix seconds avoid Duration's ~292 year limit.
	days := int((today.Unix() - start.Unix()) / 86400)
	start = start.AddDate(0, 0, floorDiv(days, PeriodLength)*PeriodLength)
	start = start.AddDate(0, 0, -lookbackPeriods*PeriodLength)

	out := make([]Period, 0, count)
	for i := 0; i < count; i++ {
		end := start.AddDate(0, 0, PeriodLength-1)
		out = append(out, Period{
			Start:     start,
			End:       end,
			Label:     periodLabel(start, end),
			IsCurrent: !start.After(today) && !end.Before(today),
		})
		start = start.AddDate(0, 0, PeriodLength)
	}
	return out
}

func periodLabel(start, end time.Time) string {
	return start.Format("Jan 2") + " – " + end.Format("Jan 2")
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// Window is a generated period sequence with the current, next and previous
// periods resolved.
type Window struct {
	Periods      []Period
	CurrentIndex int
}

// LocateWindow resolves the current period. When no generated period contains
// now, the period at the lookback offset is treated as current.
func LocateWindow(periods []Period) (Window, bool) {
	if len(periods) == 0 {
		return Window{}, false
	}
	idx := -1
	for i, p := range periods {
		if p.IsCurrent {
			idx = i
			break
		}
	}
	if idx < 0 {
		idx = lookbackPeriods
		if idx >= len(periods) {
			idx = len(periods) - 1
		}
	}
	return Window{Periods: periods, CurrentIndex: idx}, true
}

func (w Window) Current() Period {
	return w.Periods[w.CurrentIndex]
}

func (w Window) Next() (Period, bool) {
	if w.CurrentIndex+1 >= len(w.Periods) {
		return Period{}, false
	}
	return w.Periods[w.CurrentIndex+1], true
}

func (w Window) Previous() (Period, bool) {
	if w.CurrentIndex <= 0 {
		return Period{}, false
	}
	return w.Periods[w.CurrentIndex-1], true
}

// WindowAt generates the default window around the period containing at.
func WindowAt(settings Settings, at time.Time) (Window, error) {
	anchor, err := ParseDate(settings.FirstPayDate)
	if err != nil {
		return Window{}, fmt.Errorf("first pay date: %w", err)
	}
	w, ok := LocateWindow(GeneratePeriods(anchor, DefaultPeriodCount, at))
	if !ok {
		return Window{}, fmt.Errorf("no pay periods generated")
	}
	return w, nil
}
