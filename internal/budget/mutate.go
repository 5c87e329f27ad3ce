package budget

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var newID = uuid.NewString

// The reducers below take a snapshot and return a new one. The input is never
// modified. Each takes the period key it acts on explicitly.

// TogglePaid flips the paid flag of a bill's allocation.
func TogglePaid(s Snapshot, key, billID string) Snapshot {
	return s.withPeriod(key, func(r *PeriodRecord) {
		a := r.Bills[billID]
		a.Paid = !a.Paid
		r.Bills[billID] = a
	})
}

// UpdateActual records the confirmed amount. A nil value clears it back to
// unconfirmed.
func UpdateActual(s Snapshot, key, billID string, actual *decimal.Decimal) (Snapshot, error) {
	if actual != nil && actual.IsNegative() {
		return s, fmt.Errorf("%w: actual amount %s is negative", ErrInvalidAmount, actual)
	}
	return s.withPeriod(key, func(r *PeriodRecord) {
		a := r.Bills[billID]
		if actual == nil {
			a.Actual = nil
		} else {
			a.Actual = decimalPtr(*actual)
		}
		r.Bills[billID] = a
	}), nil
}

// DeferBill pushes the whole bill to the next period. It unmarks the bill as
// paid and replaces any split.
func DeferBill(s Snapshot, key, billID string) Snapshot {
	return s.withPeriod(key, func(r *PeriodRecord) {
		a := r.Bills[billID]
		a.Status = Deferred()
		a.Paid = false
		r.Bills[billID] = a
	})
}

func UndoDefer(s Snapshot, key, billID string) Snapshot {
	return resetStatus(s, key, billID, StatusDeferred)
}

// SplitBill pays amount now and pushes the remainder to the next period.
// The amount must lie strictly between zero and the bill amount.
func SplitBill(s Snapshot, key, billID string, amount decimal.Decimal) (Snapshot, error) {
	b, ok := s.BillByID(billID)
	if !ok {
		return s, fmt.Errorf("%w: %s", ErrUnknownBill, billID)
	}
	if !amount.IsPositive() || !amount.LessThan(b.Amount) {
		return s, fmt.Errorf("%w: split %s must be between 0 and %s", ErrInvalidAmount, amount, b.Amount)
	}
	return s.withPeriod(key, func(r *PeriodRecord) {
		a := r.Bills[billID]
		a.Status = Split(amount)
		r.Bills[billID] = a
	}), nil
}

func UndoSplit(s Snapshot, key, billID string) Snapshot {
	return resetStatus(s, key, billID, StatusSplit)
}

// PayEarly pulls a bill due in the next period into the period keyed by key.
// With a prepay strictly between zero and the bill amount only that part is
// charged now; any other prepay pays the bill in full.
func PayEarly(s Snapshot, key, billID string, prepay *decimal.Decimal) (Snapshot, error) {
	b, ok := s.BillByID(billID)
	if !ok {
		return s, fmt.Errorf("%w: %s", ErrUnknownBill, billID)
	}
	entry := NewAllocation(b)
	entry.Status = PaidEarly(nil)
	if prepay != nil && prepay.IsPositive() && prepay.LessThan(b.Amount) {
		entry.Status = PaidEarly(prepay)
		entry.Actual = decimalPtr(*prepay)
	}
	return s.withPeriod(key, func(r *PeriodRecord) {
		r.Bills[billID] = entry
	}), nil
}

// UndoPayEarly removes a pay-early along with the amounts it wrote.
func UndoPayEarly(s Snapshot, key, billID string) Snapshot {
	a, ok := s.Period(key).Allocation(billID)
	if !ok || !a.Status.IsPaidEarly() {
		return s
	}
	return s.withPeriod(key, func(r *PeriodRecord) {
		a := r.Bills[billID]
		a.Status = Normal()
		a.Planned = nil
		a.Actual = nil
		r.Bills[billID] = a
	})
}

func resetStatus(s Snapshot, key, billID string, kind StatusKind) Snapshot {
	a, ok := s.Period(key).Allocation(billID)
	if !ok || a.Status.Kind() != kind {
		return s
	}
	return s.withPeriod(key, func(r *PeriodRecord) {
		a := r.Bills[billID]
		a.Status = Normal()
		r.Bills[billID] = a
	})
}

// AddAdjustment appends a signed cash delta to the period.
func AddAdjustment(s Snapshot, key, label string, amount decimal.Decimal) (Snapshot, Adjustment, error) {
	label = NormalizeLabel(label)
	if label == "" {
		return s, Adjustment{}, ErrEmptyLabel
	}
	if amount.IsZero() {
		return s, Adjustment{}, fmt.Errorf("%w: adjustment amount must not be zero", ErrInvalidAmount)
	}
	adj := Adjustment{ID: newID(), Label: label, Amount: amount}
	next := s.withPeriod(key, func(r *PeriodRecord) {
		r.Adjustments = append(r.Adjustments, adj)
	})
	return next, adj, nil
}

// RemoveAdjustment drops the adjustment with the given id, if present.
func RemoveAdjustment(s Snapshot, key, adjID string) Snapshot {
	return s.withPeriod(key, func(r *PeriodRecord) {
		kept := r.Adjustments[:0]
		for _, a := range r.Adjustments {
			if a.ID != adjID {
				kept = append(kept, a)
			}
		}
		r.Adjustments = kept
	})
}

// SetNetPayOverride replaces the default net pay for one period. Nil clears
// the override.
func SetNetPayOverride(s Snapshot, key string, netPay *decimal.Decimal) (Snapshot, error) {
	if netPay != nil && !netPay.IsPositive() {
		return s, fmt.Errorf("%w: net pay must be greater than 0", ErrInvalidAmount)
	}
	return s.withPeriod(key, func(r *PeriodRecord) {
		if netPay == nil {
			r.NetPayOverride = nil
			return
		}
		r.NetPayOverride = decimalPtr(*netPay)
	}), nil
}

// ClosePeriod records the period's totals in the history ledger and marks it
// closed. Closing an already closed period refreshes its ledger entry.
func ClosePeriod(s Snapshot, key string, closedAt time.Time) (Snapshot, HistoryEntry, error) {
	d, err := ReconcilePeriod(s, key)
	if err != nil {
		return s, HistoryEntry{}, err
	}
	t := d.Totals
	entry := HistoryEntry{
		PeriodKey:         key,
		Label:             d.Current.Label,
		ClosedAt:          closedAt.UTC(),
		NetPay:            t.NetPay,
		BillsTotal:        t.BillsTotal,
		SavingsGoalsTotal: t.SavingsTotal,
		AdjustmentsTotal:  t.AdjustmentsTotal,
		Adjustments:       append([]Adjustment{}, d.Adjustments...),
		Saved:             t.Remaining,
	}
	next := s.withPeriod(key, func(r *PeriodRecord) {
		r.Closed = true
	})
	next.PeriodHistory = s.PeriodHistory.Upsert(entry)
	return next, entry, nil
}

// ReopenPeriod removes the period's ledger entry and clears the closed flag.
func ReopenPeriod(s Snapshot, key string) Snapshot {
	next := s.withPeriod(key, func(r *PeriodRecord) {
		r.Closed = false
	})
	next.PeriodHistory = s.PeriodHistory.Remove(key)
	return next
}

// NormalizeLabel trims a label and collapses inner runs of whitespace.
func NormalizeLabel(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
