package budget

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

type StatusKind int

const (
	StatusNormal StatusKind = iota
	StatusDeferred
	StatusSplit
	StatusPaidEarly
)

func (k StatusKind) String() string {
	switch k {
	case StatusDeferred:
		return "deferred"
	case StatusSplit:
		return "split"
	case StatusPaidEarly:
		return "paid early"
	default:
		return "normal"
	}
}

// AllocationStatus is the per-period adjustment applied to a bill. Exactly one
// kind is active at a time; setting one replaces the others.
type AllocationStatus struct {
	kind   StatusKind
	amount decimal.Decimal
	// prepay marks a partial pay-early; amount holds the prepaid part.
	prepay bool
}

func Normal() AllocationStatus {
	return AllocationStatus{}
}

func Deferred() AllocationStatus {
	return AllocationStatus{kind: StatusDeferred}
}

func Split(amount decimal.Decimal) AllocationStatus {
	return AllocationStatus{kind: StatusSplit, amount: amount}
}

// PaidEarly pulls a bill forward. A nil prepay pays it in full.
func PaidEarly(prepay *decimal.Decimal) AllocationStatus {
	s := AllocationStatus{kind: StatusPaidEarly}
	if prepay != nil {
		s.amount = *prepay
		s.prepay = true
	}
	return s
}

func (s AllocationStatus) Kind() StatusKind { return s.kind }

func (s AllocationStatus) IsDeferred() bool { return s.kind == StatusDeferred }

func (s AllocationStatus) IsPaidEarly() bool { return s.kind == StatusPaidEarly }

// SplitAmount returns the part of the bill paid in this period.
func (s AllocationStatus) SplitAmount() (decimal.Decimal, bool) {
	if s.kind != StatusSplit {
		return decimal.Zero, false
	}
	return s.amount, true
}

// Prepay returns the partial amount of a pay-early status.
func (s AllocationStatus) Prepay() (decimal.Decimal, bool) {
	if s.kind != StatusPaidEarly || !s.prepay {
		return decimal.Zero, false
	}
	return s.amount, true
}

// FullyPaidEarly reports a pay-early with no partial prepay.
func (s AllocationStatus) FullyPaidEarly() bool {
	return s.kind == StatusPaidEarly && !s.prepay
}

func (s AllocationStatus) Equal(other AllocationStatus) bool {
	return s.kind == other.kind && s.prepay == other.prepay && s.amount.Equal(other.amount)
}

// Allocation is the per-period, per-bill record.
type Allocation struct {
	Planned *decimal.Decimal
	// Actual is nil until the amount is confirmed.
	Actual *decimal.Decimal
	Paid   bool
	Status AllocationStatus
}

// NewAllocation is the lazily created entry for a bill in a period.
func NewAllocation(b Bill) Allocation {
	a := Allocation{Planned: decimalPtr(b.Amount)}
	if b.Fixed() {
		a.Actual = decimalPtr(b.Amount)
	}
	return a
}

// allocationJSON is the flat wire shape: the status union is spread over
// optional sibling fields.
type allocationJSON struct {
	Planned      *decimal.Decimal `json:"planned,omitempty"`
	Actual       *decimal.Decimal `json:"actual"`
	Paid         bool             `json:"paid"`
	Deferred     bool             `json:"deferred,omitempty"`
	SplitAmount  *decimal.Decimal `json:"splitAmount,omitempty"`
	PaidEarly    bool             `json:"paidEarly,omitempty"`
	PrepayAmount *decimal.Decimal `json:"prepayAmount,omitempty"`
}

func (a Allocation) MarshalJSON() ([]byte, error) {
	out := allocationJSON{
		Planned: a.Planned,
		Actual:  a.Actual,
		Paid:    a.Paid,
	}
	switch a.Status.kind {
	case StatusDeferred:
		out.Deferred = true
	case StatusSplit:
		out.SplitAmount = decimalPtr(a.Status.amount)
	case StatusPaidEarly:
		out.PaidEarly = true
		if a.Status.prepay {
			out.PrepayAmount = decimalPtr(a.Status.amount)
		}
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts the flat shape. If stored data has more than one
// status flag set, deferred wins over split, and split over paid early.
func (a *Allocation) UnmarshalJSON(data []byte) error {
	var in allocationJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return fmt.Errorf("decode allocation: %w", err)
	}
	*a = Allocation{
		Planned: in.Planned,
		Actual:  in.Actual,
		Paid:    in.Paid,
	}
	switch {
	case in.Deferred:
		a.Status = Deferred()
	case in.SplitAmount != nil:
		a.Status = Split(*in.SplitAmount)
	case in.PaidEarly:
		a.Status = PaidEarly(in.PrepayAmount)
	}
	return nil
}

func decimalPtr(d decimal.Decimal) *decimal.Decimal {
	return &d
}
