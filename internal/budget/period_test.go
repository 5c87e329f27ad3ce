package budget

import (
	"testing"
	"time"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestGeneratePeriodsContiguous(t *testing.T) {
	t.Parallel()

	periods := GeneratePeriods(day(2026, 1, 9), 6, day(2026, 1, 15))
	if len(periods) != 6 {
		t.Fatalf("len(periods) = %d, want 6", len(periods))
	}
	for i, p := range periods {
		if got := p.End.Sub(p.Start); got != 13*24*time.Hour {
			t.Fatalf("period %d spans %v, want 13 days", i, got)
		}
		if i == 0 {
			continue
		}
		if want := periods[i-1].End.AddDate(0, 0, 1); !p.Start.Equal(want) {
			t.Fatalf("period %d starts %s, want %s", i, FormatKey(p.Start), FormatKey(want))
		}
	}
}

func TestGeneratePeriodsLooksBackTwoPeriods(t *testing.T) {
	t.Parallel()

	periods := GeneratePeriods(day(2026, 1, 9), 6, day(2026, 1, 15))
	if got := periods[0].Key(); got != "2025-12-12" {
		t.Fatalf("periods[0].Key() = %q, want %q", got, "2025-12-12")
	}
	if !periods[2].IsCurrent {
		t.Fatalf("periods[2].IsCurrent = false, want true")
	}
	if got := periods[2].Label; got != "Jan 9 – Jan 22" {
		t.Fatalf("periods[2].Label = %q, want %q", got, "Jan 9 – Jan 22")
	}
}

func TestGeneratePeriodsAtMostOneCurrent(t *testing.T) {
	t.Parallel()

	anchor := day(2026, 1, 9)
	for offset := -40; offset <= 400; offset += 3 {
		now := anchor.AddDate(0, 0, offset).Add(17 * time.Hour)
		current := 0
		for _, p := range GeneratePeriods(anchor, 6, now) {
			if p.IsCurrent {
				current++
				if !p.Contains(now) {
					t.Fatalf("offset %d: current period %s does not contain now", offset, p.Key())
				}
			}
		}
		if current != 1 {
			t.Fatalf("offset %d: %d current periods, want 1", offset, current)
		}
	}
}

func TestGeneratePeriodsEndDayIsCurrent(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 22, 23, 30, 0, 0, time.UTC)
	periods := GeneratePeriods(day(2026, 1, 9), 6, now)
	if !periods[2].IsCurrent || periods[2].Key() != "2026-01-09" {
		t.Fatalf("current on last day = %s (%v), want 2026-01-09", periods[2].Key(), periods[2].IsCurrent)
	}
}

func TestGeneratePeriodsFutureAnchor(t *testing.T) {
	t.Parallel()

	anchor := day(2026, 6, 5)
	w, ok := LocateWindow(GeneratePeriods(anchor, 6, day(2026, 1, 15)))
	if !ok {
		t.Fatalf("LocateWindow() ok = false")
	}
	cur := w.Current()
	if got := cur.Key(); got != "2026-01-02" {
		t.Fatalf("current key = %q, want %q", got, "2026-01-02")
	}
	if days := int(anchor.Sub(cur.Start).Hours() / 24); days%PeriodLength != 0 {
		t.Fatalf("current start is %d days from anchor, not on the tiling", days)
	}
}

func TestGeneratePeriodsDistantAnchor(t *testing.T) {
	t.Parallel()

	today := day(2026, 1, 15)
	for _, anchor := range []time.Time{day(1700, 1, 1), day(2400, 1, 7)} {
		periods := GeneratePeriods(anchor, 6, today)
		cur := periods[lookbackPeriods]
		if !cur.IsCurrent || cur.Start.After(today) || cur.End.Before(today) {
			t.Fatalf("anchor %s: current period %s..%s does not hold %s",
				FormatKey(anchor), FormatKey(cur.Start), FormatKey(cur.End), FormatKey(today))
		}
		if off := (cur.Start.Unix() - anchor.Unix()) / 86400; off%PeriodLength != 0 {
			t.Fatalf("anchor %s: period %s is off the 14-day grid", FormatKey(anchor), cur.Key())
		}
	}
}

func TestLocateWindowFallsBackWithoutCurrent(t *testing.T) {
	t.Parallel()

	periods := GeneratePeriods(day(2026, 1, 9), 2, day(2026, 1, 15))
	for _, p := range periods {
		if p.IsCurrent {
			t.Fatalf("period %s unexpectedly current", p.Key())
		}
	}
	w, ok := LocateWindow(periods)
	if !ok {
		t.Fatalf("LocateWindow() ok = false")
	}
	if w.CurrentIndex != 1 {
		t.Fatalf("CurrentIndex = %d, want 1", w.CurrentIndex)
	}
	if _, ok := w.Next(); ok {
		t.Fatalf("Next() ok = true, want false")
	}
}

func TestWindowAtRejectsBadAnchor(t *testing.T) {
	t.Parallel()

	if _, err := WindowAt(Settings{FirstPayDate: "09/01/2026"}, day(2026, 1, 15)); err == nil {
		t.Fatalf("WindowAt() error = nil, want error")
	}
}

func TestPeriodAt(t *testing.T) {
	t.Parallel()

	settings := Settings{FirstPayDate: "2026-01-09"}
	p, err := PeriodAt(settings, "2026-03-06")
	if err != nil {
		t.Fatalf("PeriodAt() error = %v", err)
	}
	if got := FormatKey(p.End); got != "2026-03-19" {
		t.Fatalf("PeriodAt().End = %q, want %q", got, "2026-03-19")
	}
	if _, err := PeriodAt(settings, "2026-03-07"); err == nil {
		t.Fatalf("PeriodAt(misaligned) error = nil, want error")
	}
}
