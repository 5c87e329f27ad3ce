package budget

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// tightThreshold is the remaining balance below which a period is "Tight".
var tightThreshold = decimal.NewFromInt(200)

// LineKind says why a bill is on a period's effective list.
type LineKind int

const (
	// LineNatural bills fall in the period by their recurrence rule.
	LineNatural LineKind = iota
	// LinePulled bills belong to the next period and were paid early.
	LinePulled
	// LineCarriedDeferred bills were deferred out of the previous period.
	LineCarriedDeferred
	// LineCarriedSplit bills carry the unpaid remainder of a previous split.
	LineCarriedSplit
	// LinePushedDeferred bills were deferred out of the current period.
	LinePushedDeferred
	// LinePushedSplit bills carry the remainder of a split in the current period.
	LinePushedSplit
)

func (k LineKind) String() string {
	switch k {
	case LinePulled:
		return "paid early"
	case LineCarriedDeferred, LinePushedDeferred:
		return "deferred"
	case LineCarriedSplit, LinePushedSplit:
		return "split remainder"
	default:
		return ""
	}
}

// BillLine is one bill on an effective list with the amount it contributes.
type BillLine struct {
	Bill       Bill
	Amount     decimal.Decimal
	Allocation Allocation
	// HasAllocation is false when the period holds no entry for the bill.
	HasAllocation bool
	Kind          LineKind
}

// Paid reports whether the line's allocation is marked paid.
func (l BillLine) Paid() bool {
	return l.HasAllocation && l.Allocation.Paid
}

// Tier is the budget health badge.
type Tier string

const (
	TierClosed     Tier = "Closed"
	TierOverBudget Tier = "Over Budget"
	TierTight      Tier = "Tight"
	TierOnTrack    Tier = "On Track"
)

// Totals is the current period's balance sheet.
type Totals struct {
	BillsTotal       decimal.Decimal
	SavingsTotal     decimal.Decimal
	AdjustmentsTotal decimal.Decimal
	NetPay           decimal.Decimal
	HasPayOverride   bool
	Remaining        decimal.Decimal
	IsOver           bool
	PaidCount        int
	IsClosed         bool
	NextBillsTotal   decimal.Decimal
}

// Tier classifies the remaining balance.
func (t Totals) Tier() Tier {
	return TierFor(t.Remaining, t.IsClosed)
}

// TierFor classifies a remaining balance.
func TierFor(remaining decimal.Decimal, closed bool) Tier {
	switch {
	case closed:
		return TierClosed
	case remaining.IsNegative():
		return TierOverBudget
	case remaining.LessThan(tightThreshold):
		return TierTight
	default:
		return TierOnTrack
	}
}

// Dashboard is the reconciled, read-only view over the current and next
// periods.
type Dashboard struct {
	Window       Window
	Current      Period
	Next         *Period
	Previous     *Period
	CurrentBills []BillLine
	NextBills    []BillLine
	Adjustments  []Adjustment
	Totals       Totals

	cur, next, prev PeriodRecord
	carried         map[string]LineKind
}

// Reconcile derives the dashboard for the period containing now.
//
// Bills deferred or split in the previous period surface in the current one;
// bills fully paid early in the previous period drop out of it.
func Reconcile(s Snapshot, now time.Time) (Dashboard, error) {
	w, err := WindowAt(s.Settings, now)
	if err != nil {
		return Dashboard{}, err
	}
	return reconcileWindow(s, w), nil
}

// ReconcilePeriod derives the dashboard with the period keyed by key as current.
func ReconcilePeriod(s Snapshot, key string) (Dashboard, error) {
	p, err := PeriodAt(s.Settings, key)
	if err != nil {
		return Dashboard{}, err
	}
	return Reconcile(s, p.Start)
}

// PeriodAt resolves a period key to its period, rejecting keys that do not
// start a period of the tiling.
func PeriodAt(settings Settings, key string) (Period, error) {
	start, err := ParseDate(key)
	if err != nil {
		return Period{}, fmt.Errorf("%w: %v", ErrUnknownPeriod, err)
	}
	w, err := WindowAt(settings, start)
	if err != nil {
		return Period{}, err
	}
	p := w.Current()
	if !p.Start.Equal(start) {
		return Period{}, fmt.Errorf("%w: %s is not a period start (nearest %s)", ErrUnknownPeriod, key, p.Key())
	}
	return p, nil
}

func reconcileWindow(s Snapshot, w Window) Dashboard {
	d := Dashboard{
		Window:  w,
		Current: w.Current(),
		carried: map[string]LineKind{},
	}
	d.cur = s.Period(d.Current.Key())
	if p, ok := w.Next(); ok {
		d.Next = &p
		d.next = s.Period(p.Key())
	}
	if p, ok := w.Previous(); ok {
		d.Previous = &p
		d.prev = s.Period(p.Key())
	}

	active := s.ActiveBills()
	naturalCur := BillsInPeriod(active, d.Current)
	var naturalNext []Bill
	if d.Next != nil {
		naturalNext = BillsInPeriod(active, *d.Next)
	}

	// Base set: natural bills plus those carried out of the previous period.
	type baseLine struct {
		bill Bill
		kind LineKind
	}
	base := make([]baseLine, 0, len(naturalCur))
	inBase := map[string]bool{}
	for _, b := range naturalCur {
		base = append(base, baseLine{bill: b, kind: LineNatural})
		inBase[b.ID] = true
	}
	var carried []baseLine
	for _, b := range active {
		if inBase[b.ID] {
			continue
		}
		pa, ok := d.prev.Allocation(b.ID)
		if !ok {
			continue
		}
		switch pa.Status.Kind() {
		case StatusDeferred:
			carried = append(carried, baseLine{bill: b, kind: LineCarriedDeferred})
		case StatusSplit:
			carried = append(carried, baseLine{bill: b, kind: LineCarriedSplit})
		}
	}
	for _, c := range carried {
		d.carried[c.bill.ID] = c.kind
	}

	// Current list: natural, then pulled forward, then carried.
	seen := map[string]bool{}
	add := func(b Bill, kind LineKind) {
		a, ok := d.cur.Allocation(b.ID)
		d.CurrentBills = append(d.CurrentBills, BillLine{
			Bill:          b,
			Amount:        d.BillAmount(b),
			Allocation:    a,
			HasAllocation: ok,
			Kind:          kind,
		})
		seen[b.ID] = true
	}
	for _, bl := range base {
		if d.excludedFromCurrent(bl.bill.ID) {
			continue
		}
		add(bl.bill, bl.kind)
	}
	for _, b := range naturalNext {
		if a, ok := d.cur.Allocation(b.ID); ok && a.Status.IsPaidEarly() && !seen[b.ID] {
			add(b, LinePulled)
		}
	}
	for _, bl := range carried {
		if d.excludedFromCurrent(bl.bill.ID) || seen[bl.bill.ID] {
			continue
		}
		add(bl.bill, bl.kind)
	}

	// Next list: natural next bills, then deferred, then split remainders.
	nextSeen := map[string]bool{}
	addNext := func(b Bill, kind LineKind) {
		a, ok := d.next.Allocation(b.ID)
		d.NextBills = append(d.NextBills, BillLine{
			Bill:          b,
			Amount:        d.NextBillAmount(b),
			Allocation:    a,
			HasAllocation: ok,
			Kind:          kind,
		})
		nextSeen[b.ID] = true
	}
	for _, b := range naturalNext {
		if a, ok := d.cur.Allocation(b.ID); ok && a.Status.FullyPaidEarly() {
			continue
		}
		addNext(b, LineNatural)
	}
	all := append(append([]baseLine(nil), base...), carried...)
	for _, bl := range all {
		if a, ok := d.cur.Allocation(bl.bill.ID); ok && a.Status.IsDeferred() && !nextSeen[bl.bill.ID] {
			addNext(bl.bill, LinePushedDeferred)
		}
	}
	for _, bl := range all {
		if a, ok := d.cur.Allocation(bl.bill.ID); ok && a.Status.Kind() == StatusSplit && !nextSeen[bl.bill.ID] {
			addNext(bl.bill, LinePushedSplit)
		}
	}

	d.Adjustments = append([]Adjustment(nil), d.cur.Adjustments...)
	d.Totals = d.totals(s)
	return d
}

// excludedFromCurrent covers bills deferred in the current period and bills
// already paid in full from the previous one.
func (d Dashboard) excludedFromCurrent(billID string) bool {
	if a, ok := d.cur.Allocation(billID); ok && a.Status.IsDeferred() {
		return true
	}
	if pa, ok := d.prev.Allocation(billID); ok && pa.Status.FullyPaidEarly() {
		return true
	}
	return false
}

func (d Dashboard) totals(s Snapshot) Totals {
	t := Totals{
		NetPay:   s.Settings.DefaultNetPay,
		IsClosed: d.cur.Closed,
	}
	for _, l := range d.CurrentBills {
		t.BillsTotal = t.BillsTotal.Add(l.Amount)
		if l.Paid() {
			t.PaidCount++
		}
	}
	for _, g := range s.ActiveGoals() {
		t.SavingsTotal = t.SavingsTotal.Add(g.PerCheckAmount)
	}
	for _, a := range d.cur.Adjustments {
		t.AdjustmentsTotal = t.AdjustmentsTotal.Add(a.Amount)
	}
	if d.cur.NetPayOverride != nil {
		t.NetPay = *d.cur.NetPayOverride
		t.HasPayOverride = true
	}
	t.Remaining = t.NetPay.Sub(t.BillsTotal).Sub(t.SavingsTotal).Add(t.AdjustmentsTotal)
	t.IsOver = t.Remaining.IsNegative()
	for _, l := range d.NextBills {
		t.NextBillsTotal = t.NextBillsTotal.Add(l.Amount)
	}
	return t
}

// BillAmount is what the bill costs in the current period.
func (d Dashboard) BillAmount(b Bill) decimal.Decimal {
	a, ok := d.cur.Allocation(b.ID)
	if ok {
		switch a.Status.Kind() {
		case StatusDeferred:
			return decimal.Zero
		case StatusSplit:
			v, _ := a.Status.SplitAmount()
			return v
		case StatusPaidEarly:
			if v, has := a.Status.Prepay(); has {
				return v
			}
		}
	}

	confirmed := func(fallback decimal.Decimal) decimal.Decimal {
		if ok && a.Actual != nil {
			return *a.Actual
		}
		return fallback
	}

	switch d.carried[b.ID] {
	case LineCarriedDeferred:
		return confirmed(b.Amount)
	case LineCarriedSplit:
		pa, _ := d.prev.Allocation(b.ID)
		prior, _ := pa.Status.SplitAmount()
		return confirmed(b.Amount.Sub(prior))
	}
	if pa, has := d.prev.Allocation(b.ID); has {
		if prior, partial := pa.Status.Prepay(); partial {
			return confirmed(b.Amount).Sub(prior)
		}
	}

	if !ok {
		return b.Amount
	}
	if a.Actual != nil {
		return *a.Actual
	}
	if a.Planned != nil {
		return *a.Planned
	}
	return b.Amount
}

// NextBillAmount is what the bill is expected to cost in the next period,
// given what the current period already did with it.
func (d Dashboard) NextBillAmount(b Bill) decimal.Decimal {
	na, hasNext := d.next.Allocation(b.ID)
	nextBase := b.Amount
	if hasNext && na.Actual != nil {
		nextBase = *na.Actual
	}

	a, ok := d.cur.Allocation(b.ID)
	if !ok {
		return nextBase
	}
	switch a.Status.Kind() {
	case StatusPaidEarly:
		prepay, partial := a.Status.Prepay()
		if !partial {
			return decimal.Zero
		}
		return nextBase.Sub(prepay)
	case StatusDeferred:
		return b.Amount
	case StatusSplit:
		split, _ := a.Status.SplitAmount()
		return b.Amount.Sub(split)
	}
	return nextBase
}

// Line returns the current-period line for a bill, if it is on the list.
func (d Dashboard) Line(billID string) (BillLine, bool) {
	for _, l := range d.CurrentBills {
		if l.Bill.ID == billID {
			return l, true
		}
	}
	return BillLine{}, false
}

// NextLine returns the next-period line for a bill, if it is on the list.
func (d Dashboard) NextLine(billID string) (BillLine, bool) {
	for _, l := range d.NextBills {
		if l.Bill.ID == billID {
			return l, true
		}
	}
	return BillLine{}, false
}

// Initialize lazily creates allocation entries for bills in the period. It
// never overwrites an existing entry; changed is false when nothing was added.
func Initialize(s Snapshot, key string, bills []Bill) (Snapshot, bool) {
	rec := s.Period(key)
	var missing []Bill
	for _, b := range bills {
		if _, ok := rec.Allocation(b.ID); !ok {
			missing = append(missing, b)
		}
	}
	if len(missing) == 0 {
		return s, false
	}
	return s.withPeriod(key, func(r *PeriodRecord) {
		for _, b := range missing {
			r.Bills[b.ID] = NewAllocation(b)
		}
	}), true
}
