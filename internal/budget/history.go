package budget

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// HistoryEntry is the frozen summary written when a period is closed.
type HistoryEntry struct {
	PeriodKey         string          `json:"periodKey"`
	Label             string          `json:"label"`
	ClosedAt          time.Time       `json:"closedAt"`
	NetPay            decimal.Decimal `json:"netPay"`
	BillsTotal        decimal.Decimal `json:"billsTotal"`
	SavingsGoalsTotal decimal.Decimal `json:"savingsGoalsTotal"`
	AdjustmentsTotal  decimal.Decimal `json:"adjustmentsTotal"`
	Adjustments       []Adjustment    `json:"adjustments"`
	Saved             decimal.Decimal `json:"saved"`
}

// Ledger is the period history, sorted ascending by period key.
type Ledger []HistoryEntry

// Upsert returns a new ledger with entry replacing any entry for the same period.
func (l Ledger) Upsert(entry HistoryEntry) Ledger {
	out := make(Ledger, 0, len(l)+1)
	for _, e := range l {
		if e.PeriodKey != entry.PeriodKey {
			out = append(out, e)
		}
	}
	out = append(out, entry)
	sort.SliceStable(out, func(i, j int) bool { return out[i].PeriodKey < out[j].PeriodKey })
	return out
}

// Remove returns a new ledger without the entry for periodKey.
func (l Ledger) Remove(periodKey string) Ledger {
	out := make(Ledger, 0, len(l))
	for _, e := range l {
		if e.PeriodKey != periodKey {
			out = append(out, e)
		}
	}
	return out
}

func (l Ledger) Find(periodKey string) (HistoryEntry, bool) {
	for _, e := range l {
		if e.PeriodKey == periodKey {
			return e, true
		}
	}
	return HistoryEntry{}, false
}

func (l Ledger) Len() int { return len(l) }

func (l Ledger) TotalSaved() decimal.Decimal {
	total := decimal.Zero
	for _, e := range l {
		total = total.Add(e.Saved)
	}
	return total
}

// AverageSaved is zero for an empty ledger.
func (l Ledger) AverageSaved() decimal.Decimal {
	if len(l) == 0 {
		return decimal.Zero
	}
	return l.TotalSaved().Div(decimal.NewFromInt(int64(len(l)))).Round(2)
}

// BestSaved returns the entry with the largest saved amount.
func (l Ledger) BestSaved() (HistoryEntry, bool) {
	if len(l) == 0 {
		return HistoryEntry{}, false
	}
	best := l[0]
	for _, e := range l[1:] {
		if e.Saved.GreaterThan(best.Saved) {
			best = e
		}
	}
	return best, true
}
