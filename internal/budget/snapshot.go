package budget

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// Adjustment is an ad-hoc signed delta: positive is extra income, negative an
// unplanned expense.
type Adjustment struct {
	ID     string          `json:"id"`
	Label  string          `json:"label"`
	Amount decimal.Decimal `json:"amount"`
}

const (
	keyAdjustments    = "_adjustments"
	keyNetPayOverride = "_netPayOverride"
	keyClosed         = "_closed"
)

// PeriodRecord is everything stored for one period: per-bill allocations plus
// the period-level extras.
type PeriodRecord struct {
	Bills          map[string]Allocation
	Adjustments    []Adjustment
	NetPayOverride *decimal.Decimal
	Closed         bool
}

// Allocation returns the entry for billID, if any.
func (r PeriodRecord) Allocation(billID string) (Allocation, bool) {
	a, ok := r.Bills[billID]
	return a, ok
}

func (r PeriodRecord) clone() PeriodRecord {
	out := PeriodRecord{
		Bills:          make(map[string]Allocation, len(r.Bills)),
		NetPayOverride: r.NetPayOverride,
		Closed:         r.Closed,
	}
	for id, a := range r.Bills {
		out.Bills[id] = a
	}
	if r.Adjustments != nil {
		out.Adjustments = append([]Adjustment(nil), r.Adjustments...)
	}
	return out
}

func (r PeriodRecord) MarshalJSON() ([]byte, error) {
	fields := make(map[string]any, len(r.Bills)+3)
	for id, a := range r.Bills {
		fields[id] = a
	}
	if r.Adjustments != nil {
		fields[keyAdjustments] = r.Adjustments
	}
	if r.NetPayOverride != nil {
		fields[keyNetPayOverride] = r.NetPayOverride
	}
	if r.Closed {
		fields[keyClosed] = true
	}
	return json.Marshal(fields)
}

func (r *PeriodRecord) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("decode period record: %w", err)
	}

	out := PeriodRecord{Bills: make(map[string]Allocation, len(fields))}
	for key, raw := range fields {
		switch key {
		case keyAdjustments:
			if err := json.Unmarshal(raw, &out.Adjustments); err != nil {
				return fmt.Errorf("decode %s: %w", key, err)
			}
		case keyNetPayOverride:
			var v *decimal.Decimal
			if err := json.Unmarshal(raw, &v); err != nil {
				return fmt.Errorf("decode %s: %w", key, err)
			}
			out.NetPayOverride = v
		case keyClosed:
			var v *bool
			if err := json.Unmarshal(raw, &v); err != nil {
				return fmt.Errorf("decode %s: %w", key, err)
			}
			out.Closed = v != nil && *v
		default:
			var a Allocation
			if err := json.Unmarshal(raw, &a); err != nil {
				return fmt.Errorf("decode allocation %q: %w", key, err)
			}
			out.Bills[key] = a
		}
	}
	*r = out
	return nil
}

// Allocations maps period keys to period records.
type Allocations map[string]PeriodRecord

// Snapshot is the whole planner state exchanged with persistence.
type Snapshot struct {
	Settings      Settings    `json:"settings"`
	Bills         []Bill      `json:"bills"`
	Goals         []Goal      `json:"goals"`
	Allocations   Allocations `json:"allocations"`
	PeriodHistory Ledger      `json:"periodHistory"`
}

// DecodeSnapshot parses a JSON snapshot, filling empty collections.
func DecodeSnapshot(data []byte) (Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return s.normalized(), nil
}

// Encode serializes the snapshot to JSON.
func (s Snapshot) Encode() ([]byte, error) {
	data, err := json.Marshal(s.normalized())
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return data, nil
}

func (s Snapshot) normalized() Snapshot {
	if s.Bills == nil {
		s.Bills = []Bill{}
	}
	if s.Goals == nil {
		s.Goals = []Goal{}
	}
	if s.Allocations == nil {
		s.Allocations = Allocations{}
	}
	if s.PeriodHistory == nil {
		s.PeriodHistory = Ledger{}
	}
	sort.SliceStable(s.PeriodHistory, func(i, j int) bool {
		return s.PeriodHistory[i].PeriodKey < s.PeriodHistory[j].PeriodKey
	})
	return s
}

// Clone returns a copy sharing no mutable state with s.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{
		Settings:      s.Settings,
		Bills:         append([]Bill(nil), s.Bills...),
		Goals:         append([]Goal(nil), s.Goals...),
		Allocations:   make(Allocations, len(s.Allocations)),
		PeriodHistory: append(Ledger(nil), s.PeriodHistory...),
	}
	for key, rec := range s.Allocations {
		out.Allocations[key] = rec.clone()
	}
	return out
}

// Period returns the stored record for key, or an empty one.
func (s Snapshot) Period(key string) PeriodRecord {
	return s.Allocations[key]
}

// BillByID looks up a bill, active or not.
func (s Snapshot) BillByID(id string) (Bill, bool) {
	for _, b := range s.Bills {
		if b.ID == id {
			return b, true
		}
	}
	return Bill{}, false
}

func (s Snapshot) ActiveBills() []Bill {
	var out []Bill
	for _, b := range s.Bills {
		if b.IsActive {
			out = append(out, b)
		}
	}
	return out
}

func (s Snapshot) ActiveGoals() []Goal {
	var out []Goal
	for _, g := range s.Goals {
		if g.IsActive {
			out = append(out, g)
		}
	}
	return out
}

// withPeriod returns a copy of s where only the record for key has been
// copied and handed to fn. Other records are shared; they are never mutated
// in place.
func (s Snapshot) withPeriod(key string, fn func(*PeriodRecord)) Snapshot {
	next := s
	next.Allocations = make(Allocations, len(s.Allocations)+1)
	for k, rec := range s.Allocations {
		next.Allocations[k] = rec
	}
	rec := s.Allocations[key].clone()
	fn(&rec)
	next.Allocations[key] = rec
	return next
}

// DefaultSnapshot is the first-run data set.
func DefaultSnapshot() Snapshot {
	money := func(v string) decimal.Decimal { return decimal.RequireFromString(v) }
	monthly := func(id, name string, t BillType, amount string, due int) Bill {
		return Bill{
			ID:          id,
			Name:        name,
			BillType:    t,
			Amount:      money(amount),
			DueDay:      due,
			Frequency:   FrequencyMonthly,
			AnnualMonth: 1,
			IsActive:    true,
		}
	}
	return Snapshot{
		Settings: Settings{
			DefaultNetPay: money("2847.50"),
			PayFrequency:  PayBiweekly,
			FirstPayDate:  "2026-01-09",
		},
		Bills: []Bill{
			monthly("bill-rent-001", "Rent", BillFixed, "1450", 1),
			monthly("bill-electric-002", "Electric", BillVariable, "89.50", 5),
			monthly("bill-internet-003", "Internet", BillFixed, "65", 8),
			monthly("bill-phone-004", "Phone", BillFixed, "45", 12),
			monthly("bill-carins-005", "Car Insurance", BillFixed, "142", 15),
			monthly("bill-visa-006", "Visa Card", BillVariable, "500", 20),
		},
		Goals: []Goal{
			{ID: "goal-emergency-001", Name: "Emergency Fund", Icon: "🛡️", TargetAmount: money("10000"), CurrentBalance: money("4200"), PerCheckAmount: money("200"), IsActive: true},
			{ID: "goal-vacation-002", Name: "Vacation", Icon: "✈️", TargetAmount: money("3000"), CurrentBalance: money("1850"), PerCheckAmount: money("150"), IsActive: true},
			{ID: "goal-laptop-003", Name: "New Laptop", Icon: "💻", TargetAmount: money("2000"), CurrentBalance: money("800"), PerCheckAmount: money("100"), IsActive: true},
		},
		Allocations:   Allocations{},
		PeriodHistory: Ledger{},
	}
}
