package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lachiem1/payplan/internal/budget"
	"github.com/shopspring/decimal"
)

// TierBadge colours the budget health badge.
func TierBadge(t budget.Tier) string {
	style := okStyle
	switch t {
	case budget.TierOverBudget:
		style = errStyle
	case budget.TierTight:
		style = warnStyle
	case budget.TierClosed:
		style = mutedStyle
	}
	return style.Bold(true).Render("[" + string(t) + "]")
}

// LineState describes a bill line for display: its paid mark and tag.
func LineState(l budget.BillLine) (mark, tag string) {
	mark = "[ ]"
	if l.Paid() {
		mark = "[x]"
	}
	tag = l.Kind.String()
	if tag == "" && l.HasAllocation {
		switch st := l.Allocation.Status; {
		case st.IsPaidEarly():
			tag = "paid early"
		case st.IsDeferred():
			tag = "deferred"
		default:
			if _, ok := st.SplitAmount(); ok {
				tag = "split"
			}
		}
	}
	return mark, tag
}

func billRows(lines []budget.BillLine) [][]string {
	rows := make([][]string, 0, len(lines))
	for _, l := range lines {
		mark, tag := LineState(l)
		rows = append(rows, []string{
			mark + " " + l.Bill.Name,
			strconv.Itoa(l.Bill.DueDay),
			budget.FormatMoney(l.Amount),
			tag,
		})
	}
	return rows
}

// RenderDashboard renders the current period sheet followed by the next
// period's preview.
func RenderDashboard(d budget.Dashboard, history budget.Ledger) string {
	var b strings.Builder
	tot := d.Totals

	b.WriteString(RenderTitle("PAYPLAN  " + d.Current.Label))
	b.WriteString("\n")
	b.WriteString(Field("Period", d.Current.Key()+"  "+TierBadge(tot.Tier())))
	if tot.IsClosed {
		closed := "yes"
		if e, ok := history.Find(d.Current.Key()); ok {
			closed = e.ClosedAt.Local().Format("Mon Jan 2 2006 15:04")
		}
		b.WriteString(Field("Closed", Muted(closed)))
	}
	netPay := budget.FormatMoney(tot.NetPay)
	if tot.HasPayOverride {
		netPay += Muted(" (override)")
	}
	b.WriteString(Field("Net pay", netPay))
	b.WriteString(Field("Bills", budget.FormatMoney(tot.BillsTotal)))
	b.WriteString(Field("Savings goals", budget.FormatMoney(tot.SavingsTotal)))
	if !tot.AdjustmentsTotal.IsZero() {
		b.WriteString(Field("Adjustments", budget.FormatMoney(tot.AdjustmentsTotal)))
	}
	remaining := budget.FormatMoney(tot.Remaining)
	if tot.IsOver {
		remaining = errStyle.Render(remaining)
	}
	b.WriteString(Field("Remaining", remaining))
	b.WriteString(Field("Paid", fmt.Sprintf("%d of %d", tot.PaidCount, len(d.CurrentBills))))
	b.WriteString("\n")

	b.WriteString(RenderTable(Table{
		Title:   "This period",
		Headers: []string{"Bill", "Due", "Amount", "Note"},
		Rows:    billRows(d.CurrentBills),
	}))

	if len(d.Adjustments) > 0 {
		rows := make([][]string, 0, len(d.Adjustments))
		for _, a := range d.Adjustments {
			rows = append(rows, []string{a.Label, budget.FormatMoney(a.Amount), shortID(a.ID)})
		}
		b.WriteString("\n")
		b.WriteString(RenderTable(Table{Title: "Adjustments", Headers: []string{"Label", "Amount", "ID"}, Rows: rows}))
	}

	if d.Next != nil {
		rows := billRows(d.NextBills)
		rows = append(rows, SeparatorRow, []string{"Total", "", budget.FormatMoney(tot.NextBillsTotal), ""})
		b.WriteString("\n")
		b.WriteString(RenderTable(Table{
			Title:   "Next period  " + d.Next.Label,
			Headers: []string{"Bill", "Due", "Amount", "Note"},
			Rows:    rows,
		}))
	}
	return b.String()
}

// RenderCalendar lists the bills falling in every period of the window.
func RenderCalendar(w budget.Window, bills []budget.Bill) string {
	var b strings.Builder
	b.WriteString(RenderTitle("Pay calendar"))
	b.WriteString("\n")
	for i, p := range w.Periods {
		inPeriod := budget.BillsInPeriod(bills, p)
		total := decimal.Zero
		rows := make([][]string, 0, len(inPeriod)+2)
		for _, bill := range inPeriod {
			total = total.Add(bill.Amount)
			rows = append(rows, []string{bill.Name, strconv.Itoa(bill.DueDay), budget.FormatMoney(bill.Amount)})
		}
		rows = append(rows, SeparatorRow, []string{"Total", "", budget.FormatMoney(total)})

		title := p.Label
		if i == w.CurrentIndex {
			title += "  (current)"
		}
		b.WriteString(RenderTable(Table{Title: title, Headers: []string{"Bill", "Due", "Amount"}, Rows: rows}))
		b.WriteString("\n")
	}
	return b.String()
}

// RenderBills lists every bill, active or not.
func RenderBills(bills []budget.Bill) string {
	rows := make([][]string, 0, len(bills))
	for _, bill := range bills {
		rows = append(rows, []string{
			bill.Name,
			string(bill.BillType),
			budget.FormatMoney(bill.Amount),
			strconv.Itoa(bill.DueDay),
			schedule(bill),
			yesNo(bill.IsActive),
			bill.ID,
		})
	}
	return RenderTable(Table{
		Title:   "Bills",
		Headers: []string{"Name", "Type", "Amount", "Due", "Schedule", "Active", "ID"},
		Rows:    rows,
	})
}

func schedule(b budget.Bill) string {
	switch b.Frequency {
	case budget.FrequencyQuarterly:
		return "quarterly " + b.QuarterMonths.String()
	case budget.FrequencyAnnual:
		return fmt.Sprintf("annual (month %d)", b.AnnualMonth)
	default:
		return string(b.Frequency)
	}
}

// RenderGoals lists savings goals with their progress.
func RenderGoals(goals []budget.Goal) string {
	rows := make([][]string, 0, len(goals))
	for _, g := range goals {
		rows = append(rows, []string{
			strings.TrimSpace(g.Icon + " " + g.Name),
			budget.FormatMoney(g.PerCheckAmount),
			budget.FormatMoney(g.CurrentBalance) + " / " + budget.FormatMoney(g.TargetAmount),
			strconv.Itoa(g.Progress()) + "%",
			yesNo(g.IsActive),
		})
	}
	return RenderTable(Table{
		Title:   "Savings goals",
		Headers: []string{"Goal", "Per check", "Balance", "Progress", "Active"},
		Rows:    rows,
	})
}

// RenderHistory lists closed periods with the ledger aggregates.
func RenderHistory(l budget.Ledger) string {
	if len(l) == 0 {
		return Muted("No closed periods yet.") + "\n"
	}
	rows := make([][]string, 0, len(l)+3)
	for _, e := range l {
		rows = append(rows, []string{
			e.Label,
			budget.FormatMoney(e.NetPay),
			budget.FormatMoney(e.BillsTotal),
			budget.FormatMoney(e.SavingsGoalsTotal),
			budget.FormatMoney(e.AdjustmentsTotal),
			budget.FormatMoney(e.Saved),
		})
	}
	rows = append(rows, SeparatorRow, []string{"Total saved", "", "", "", "", budget.FormatMoney(l.TotalSaved())})
	rows = append(rows, []string{"Average", "", "", "", "", budget.FormatMoney(l.AverageSaved())})

	var b strings.Builder
	b.WriteString(RenderTable(Table{
		Title:   "Period history",
		Headers: []string{"Period", "Net pay", "Bills", "Goals", "Adjust", "Saved"},
		Rows:    rows,
	}))
	if best, ok := l.BestSaved(); ok {
		b.WriteString(Field("Best period", best.Label+"  "+budget.FormatMoney(best.Saved)))
	}
	return b.String()
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
