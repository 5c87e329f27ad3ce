package tui

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/lachiem1/payplan/internal/budget"
	"github.com/lachiem1/payplan/internal/cli"
	"github.com/lachiem1/payplan/internal/planner"
)

const (
	paneCurrent = iota
	paneNext
)

const (
	promptNone = iota
	promptActual
	promptSplit
	promptPayEarly
	promptAdjustment
	promptNetPay
)

var dashboardKeyHelp = []string{
	"↑/↓ move   tab switch current/next",
	"space paid   a actual   d defer   s split",
	"e pay early (next)   u undo status",
	"+ adjustment   x drop last adjustment",
	"n net pay override   c close/reopen",
	"1-4 screens   r refresh   q quit",
}

func (m model) paneLines() []budget.BillLine {
	if m.pane == paneNext {
		return m.dash.NextBills
	}
	return m.dash.CurrentBills
}

func (m *model) clampCursor() {
	if m.pane == paneNext && m.dash.Next == nil {
		m.pane = paneCurrent
	}
	n := len(m.paneLines())
	m.cursor = max(0, min(m.cursor, n-1))
}

func (m model) selectedLine() (budget.BillLine, bool) {
	lines := m.paneLines()
	if m.cursor < 0 || m.cursor >= len(lines) {
		return budget.BillLine{}, false
	}
	return lines[m.cursor], true
}

func (m model) nextKey() string {
	if m.dash.Next == nil {
		return ""
	}
	return m.dash.Next.Key()
}

// lineKey is the period whose allocation the line shows.
func (m model) lineKey(l budget.BillLine) string {
	if m.pane == paneNext {
		return m.nextKey()
	}
	return m.dash.Current.Key()
}

// statusKey is the period holding the status that put the line on its list.
func (m model) statusKey(l budget.BillLine) string {
	switch l.Kind {
	case budget.LineCarriedDeferred, budget.LineCarriedSplit:
		if m.dash.Previous != nil {
			return m.dash.Previous.Key()
		}
	case budget.LinePulled, budget.LinePushedDeferred, budget.LinePushedSplit:
		return m.dash.Current.Key()
	}
	return m.lineKey(l)
}

func (m model) updateDashboardKey(key string) (tea.Model, tea.Cmd, bool) {
	switch key {
	case "up", "k":
		m.cursor = max(0, m.cursor-1)
		return m, nil, true
	case "down", "j":
		m.cursor = min(max(0, len(m.paneLines())-1), m.cursor+1)
		return m, nil, true
	case "tab":
		if m.dash.Next != nil {
			m.pane = 1 - m.pane
			m.cursor = 0
		}
		return m, nil, true
	case "+":
		next, cmd := m.openPrompt(promptAdjustment, "")
		return next, cmd, true
	case "x":
		next, cmd := m.dropLastAdjustment()
		return next, cmd, true
	case "n":
		next, cmd := m.openPrompt(promptNetPay, "")
		return next, cmd, true
	case "c":
		if m.dash.Totals.IsClosed {
			next, cmd := m.reopenPeriod()
			return next, cmd, true
		}
		next, cmd := m.closePeriod()
		return next, cmd, true
	}

	line, ok := m.selectedLine()
	if !ok {
		return m, nil, false
	}
	id := line.Bill.ID
	cur := m.dash.Current.Key()
	switch key {
	case " ", "p":
		next, cmd := m.apply("toggled "+line.Bill.Name, m.planner.TogglePaid(m.lineKey(line), id))
		return next, cmd, true
	case "a":
		next, cmd := m.openPrompt(promptActual, id)
		return next, cmd, true
	case "d":
		if m.pane != paneCurrent {
			next, cmd := m.withCommandFeedback("defer works on the current period")
			return next, cmd, true
		}
		next, cmd := m.apply("deferred "+line.Bill.Name, m.planner.DeferBill(cur, id))
		return next, cmd, true
	case "s":
		if m.pane != paneCurrent {
			next, cmd := m.withCommandFeedback("split works on the current period")
			return next, cmd, true
		}
		next, cmd := m.openPrompt(promptSplit, id)
		return next, cmd, true
	case "e":
		if m.pane != paneNext {
			next, cmd := m.withCommandFeedback("select a bill in the next period to pay early")
			return next, cmd, true
		}
		next, cmd := m.openPrompt(promptPayEarly, id)
		return next, cmd, true
	case "u":
		next, cmd := m.undoStatus(line)
		return next, cmd, true
	}
	return m, nil, false
}

// undoStatus reverts whatever status put the line where it is.
func (m model) undoStatus(l budget.BillLine) (tea.Model, tea.Cmd) {
	id, name := l.Bill.ID, l.Bill.Name
	key := m.statusKey(l)
	switch l.Kind {
	case budget.LinePulled:
		return m.apply("undid pay early of "+name, m.planner.UndoPayEarly(key, id))
	case budget.LineCarriedDeferred, budget.LinePushedDeferred:
		return m.apply("undid defer of "+name, m.planner.UndoDefer(key, id))
	case budget.LineCarriedSplit, budget.LinePushedSplit:
		return m.apply("undid split of "+name, m.planner.UndoSplit(key, id))
	}
	if _, ok := l.Allocation.Status.SplitAmount(); ok && l.HasAllocation {
		return m.apply("undid split of "+name, m.planner.UndoSplit(key, id))
	}
	return m.withCommandFeedback(name + " has nothing to undo")
}

func (m model) apply(done string, err error) (tea.Model, tea.Cmd) {
	m.reload()
	if err != nil {
		return m.withCommandFeedback(describeError(err))
	}
	return m.withCommandFeedback(done)
}

func describeError(err error) string {
	switch {
	case errors.Is(err, planner.ErrPeriodClosed):
		return "period is closed; press c to reopen it"
	case errors.Is(err, budget.ErrInvalidAmount):
		return "invalid amount: " + err.Error()
	default:
		return "error: " + err.Error()
	}
}

func (m model) closePeriod() (tea.Model, tea.Cmd) {
	entry, err := m.planner.ClosePeriod("")
	if err != nil {
		return m.apply("", err)
	}
	return m.apply(fmt.Sprintf("closed %s, saved %s", entry.Label, budget.FormatMoney(entry.Saved)), nil)
}

func (m model) reopenPeriod() (tea.Model, tea.Cmd) {
	return m.apply("reopened "+m.dash.Current.Label, m.planner.ReopenPeriod(""))
}

func (m model) dropLastAdjustment() (tea.Model, tea.Cmd) {
	adjs := m.dash.Adjustments
	if len(adjs) == 0 {
		return m.withCommandFeedback("no adjustments in this period")
	}
	last := adjs[len(adjs)-1]
	return m.apply("removed adjustment "+last.Label, m.planner.RemoveAdjustment("", last.ID))
}

func (m model) openPrompt(mode int, billID string) (tea.Model, tea.Cmd) {
	m.promptMode = mode
	m.promptBillID = billID
	m.prompt.SetValue("")
	m.prompt.Prompt = "$ "
	m.prompt.Placeholder = "0.00"
	switch mode {
	case promptAdjustment:
		m.prompt.Prompt = "> "
		m.prompt.Placeholder = "label amount, e.g. Birthday gift -50"
	case promptNetPay:
		m.prompt.Placeholder = "blank clears the override"
	case promptPayEarly:
		m.prompt.Placeholder = "blank pays in full"
	case promptActual:
		m.prompt.Placeholder = "blank clears the actual"
	}
	m.cmd.Blur()
	cmd := m.prompt.Focus()
	return m, cmd
}

func (m model) closePrompt() model {
	m.promptMode = promptNone
	m.promptBillID = ""
	m.prompt.SetValue("")
	m.prompt.Blur()
	m.cmd.Focus()
	return m
}

func (m model) updatePrompt(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		return m.closePrompt(), nil
	case "enter":
		mode, billID, raw := m.promptMode, m.promptBillID, m.prompt.Value()
		return m.closePrompt().submitPrompt(mode, billID, raw)
	}
	var cmd tea.Cmd
	m.prompt, cmd = m.prompt.Update(msg)
	return m, cmd
}

func (m model) submitPrompt(mode int, billID, raw string) (tea.Model, tea.Cmd) {
	if mode == promptAdjustment {
		label, amount, err := parseAdjustmentInput(raw)
		if err != nil {
			return m.withCommandFeedback(describeError(err))
		}
		adj, err := m.planner.AddAdjustment("", label, amount)
		return m.apply("added adjustment "+adj.Label, err)
	}

	amount, err := budget.ParseMoney(raw)
	if err != nil {
		return m.withCommandFeedback(describeError(err))
	}
	name := billID
	if b, ok := m.planner.Snapshot().BillByID(billID); ok {
		name = b.Name
	}
	cur := m.dash.Current.Key()
	switch mode {
	case promptActual:
		line, _ := m.selectedLine()
		return m.apply("updated actual for "+name, m.planner.UpdateActual(m.lineKey(line), billID, amount))
	case promptSplit:
		if amount == nil {
			return m.withCommandFeedback("enter the amount to pay now")
		}
		return m.apply("split "+name, m.planner.SplitBill(cur, billID, *amount))
	case promptPayEarly:
		return m.apply("paid "+name+" early", m.planner.PayEarly(cur, billID, amount))
	case promptNetPay:
		return m.apply("updated net pay", m.planner.SetNetPayOverride(cur, amount))
	}
	return m, nil
}

// parseAdjustmentInput splits "label words amount" on the last field.
func parseAdjustmentInput(raw string) (string, decimal.Decimal, error) {
	fields := strings.Fields(raw)
	if len(fields) < 2 {
		return "", decimal.Zero, fmt.Errorf("%w: want a label followed by an amount", budget.ErrInvalidAmount)
	}
	amount, err := budget.ParseMoney(fields[len(fields)-1])
	if err != nil {
		return "", decimal.Zero, err
	}
	return strings.Join(fields[:len(fields)-1], " "), *amount, nil
}

func renderPromptLabel(mode int, billName string) string {
	labelStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#9CA3AF"))
	valueStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#D1D5DB")).Bold(true)
	switch mode {
	case promptActual:
		return labelStyle.Render("Actual amount for ") + valueStyle.Render(billName) + labelStyle.Render(":")
	case promptSplit:
		return labelStyle.Render("Pay now for ") + valueStyle.Render(billName) + labelStyle.Render(", rest moves to next period:")
	case promptPayEarly:
		return labelStyle.Render("Prepay ") + valueStyle.Render(billName) + labelStyle.Render(" from this paycheck:")
	case promptAdjustment:
		return labelStyle.Render("Add a one-off adjustment (negative spends, positive adds):")
	case promptNetPay:
		return labelStyle.Render("Net pay for this period:")
	default:
		return ""
	}
}

func (m model) renderDashboardScreen(layoutWidth int) string {
	title := lipgloss.PlaceHorizontal(layoutWidth, lipgloss.Center, renderBlockTitle())
	if m.dashErr != "" {
		body := lipgloss.NewStyle().Foreground(lipgloss.Color("#F15B5B")).Render("error: " + m.dashErr)
		return strings.Join([]string{title, "", lipgloss.PlaceHorizontal(layoutWidth, lipgloss.Center, body)}, "\n")
	}

	summary := m.renderTotalsCard()
	panelWidth := max(32, min(56, (layoutWidth-4)/2))
	current := m.renderBillPanel("This period  "+m.dash.Current.Label, m.dash.CurrentBills, m.pane == paneCurrent, panelWidth)
	panels := current
	if m.dash.Next != nil {
		next := m.renderBillPanel("Next  "+m.dash.Next.Label, m.dash.NextBills, m.pane == paneNext, panelWidth)
		if layoutWidth >= 2*panelWidth+6 {
			panels = lipgloss.JoinHorizontal(lipgloss.Top, current, "  ", next)
		} else {
			panels = lipgloss.JoinVertical(lipgloss.Left, current, next)
		}
	}

	sections := []string{
		title,
		"",
		lipgloss.PlaceHorizontal(layoutWidth, lipgloss.Center, summary),
		lipgloss.PlaceHorizontal(layoutWidth, lipgloss.Center, panels),
	}
	if m.promptMode != promptNone {
		name := ""
		if b, ok := m.planner.Snapshot().BillByID(m.promptBillID); ok {
			name = b.Name
		}
		sections = append(sections, "",
			lipgloss.PlaceHorizontal(layoutWidth, lipgloss.Center, renderPromptLabel(m.promptMode, name)),
			lipgloss.PlaceHorizontal(layoutWidth, lipgloss.Center, m.prompt.View()))
	}
	return strings.Join(sections, "\n")
}

func (m model) renderTotalsCard() string {
	t := m.dash.Totals
	muted := lipgloss.NewStyle().Foreground(lipgloss.Color("#9CA3AF"))
	value := lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF")).Bold(true)
	item := func(label string, v decimal.Decimal) string {
		return muted.Render(label+" ") + value.Render(budget.FormatMoney(v))
	}

	remainingColor := lipgloss.Color("#5CCB76")
	if t.IsOver {
		remainingColor = lipgloss.Color("#F15B5B")
	}
	netLabel := "net pay"
	if t.HasPayOverride {
		netLabel = "net pay*"
	}
	row1 := strings.Join([]string{
		item(netLabel, t.NetPay),
		item("bills", t.BillsTotal),
		item("goals", t.SavingsTotal),
		item("adjust", t.AdjustmentsTotal),
	}, "   ")
	row2 := muted.Render("remaining ") +
		lipgloss.NewStyle().Foreground(remainingColor).Bold(true).Render(budget.FormatMoney(t.Remaining)) +
		"   " + cli.TierBadge(t.Tier()) +
		muted.Render(fmt.Sprintf("   paid %d/%d", t.PaidCount, len(m.dash.CurrentBills)))

	lines := []string{row1, row2}
	if len(m.dash.Adjustments) > 0 {
		labels := make([]string, 0, len(m.dash.Adjustments))
		for _, a := range m.dash.Adjustments {
			labels = append(labels, a.Label+" "+budget.FormatMoney(a.Amount))
		}
		lines = append(lines, muted.Render("adjustments: "+strings.Join(labels, ", ")))
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#6CBFE6")).
		Padding(0, 1).
		Render(strings.Join(lines, "\n"))
}

func (m model) renderBillPanel(title string, lines []budget.BillLine, focused bool, width int) string {
	titleStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#87CEEB")).Bold(true)
	rowStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF"))
	paidStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#5CCB76"))
	tagStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#9CA3AF")).Italic(true)
	cursorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#FFD54A")).Bold(true)

	inner := max(16, width-4)
	rows := []string{titleStyle.Render(title), ""}
	if len(lines) == 0 {
		rows = append(rows, tagStyle.Render("no bills due"))
	}
	for i, l := range lines {
		mark, tag := cli.LineState(l)
		prefix := "  "
		if focused && i == m.cursor {
			prefix = cursorStyle.Render("› ")
		}
		amount := budget.FormatMoney(l.Amount)
		name := fmt.Sprintf("%s %s", mark, l.Bill.Name)
		if l.Paid() {
			name = paidStyle.Render(name)
		} else {
			name = rowStyle.Render(name)
		}
		due := tagStyle.Render(" " + ordinal(l.Bill.DueDay))
		left := prefix + name + due
		gap := max(1, inner-lipgloss.Width(left)-lipgloss.Width(amount))
		rows = append(rows, left+strings.Repeat(" ", gap)+rowStyle.Render(amount))
		if tag != "" {
			rows = append(rows, "    "+tagStyle.Render(tag))
		}
	}

	border := lipgloss.Color("#FFFFFF")
	if focused {
		border = lipgloss.Color("#FFD54A")
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(border).
		Padding(0, 1).
		Width(width).
		Render(strings.Join(rows, "\n"))
}

func ordinal(day int) string {
	suffix := "th"
	switch {
	case day%100 >= 11 && day%100 <= 13:
	case day%10 == 1:
		suffix = "st"
	case day%10 == 2:
		suffix = "nd"
	case day%10 == 3:
		suffix = "rd"
	}
	return strconv.Itoa(day) + suffix
}
