package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/lachiem1/payplan/internal/budget"
)

const historyVisibleRows = 8

func (m model) updateHistoryKey(key string) (tea.Model, tea.Cmd, bool) {
	n := len(m.planner.Snapshot().PeriodHistory)
	switch key {
	case "up", "k":
		m.historyCursor = max(0, m.historyCursor-1)
	case "down", "j":
		m.historyCursor = min(max(0, n-1), m.historyCursor+1)
	default:
		return m, nil, false
	}
	m.ensureHistoryScrollWindow(n)
	return m, nil, true
}

func (m *model) ensureHistoryScrollWindow(n int) {
	if m.historyCursor < m.historyOffset {
		m.historyOffset = m.historyCursor
	}
	if m.historyCursor >= m.historyOffset+historyVisibleRows {
		m.historyOffset = m.historyCursor - historyVisibleRows + 1
	}
	m.historyOffset = max(0, min(m.historyOffset, n-historyVisibleRows))
}

func (m model) renderHistoryScreen(layoutWidth int) string {
	title := lipgloss.PlaceHorizontal(layoutWidth, lipgloss.Center, renderScreenTitle("HISTORY"))
	ledger := m.planner.Snapshot().PeriodHistory
	if len(ledger) == 0 {
		body := lipgloss.NewStyle().
			Foreground(lipgloss.Color("#B9B4D0")).
			Render("no closed periods yet; close one from the dashboard with c")
		return strings.Join([]string{title, "", lipgloss.PlaceHorizontal(layoutWidth, lipgloss.Center, body)}, "\n")
	}

	headerStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#6CBFE6")).Bold(true)
	rowStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF"))
	selectedStyle := rowStyle.Background(lipgloss.Color("#263249")).Bold(true)
	savedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#5CCB76"))
	lostStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#F15B5B"))

	format := "%-20s %12s %12s %12s %12s"
	rows := []string{headerStyle.Render(fmt.Sprintf(format+" %12s", "period", "net pay", "bills", "goals", "adjust", "saved"))}
	start := max(0, min(m.historyOffset, len(ledger)-1))
	end := min(len(ledger), start+historyVisibleRows)
	for i := start; i < end; i++ {
		e := ledger[i]
		text := fmt.Sprintf(format,
			e.Label,
			budget.FormatMoney(e.NetPay),
			budget.FormatMoney(e.BillsTotal),
			budget.FormatMoney(e.SavingsGoalsTotal),
			budget.FormatMoney(e.AdjustmentsTotal),
		)
		style := rowStyle
		if i == m.historyCursor {
			style = selectedStyle
		}
		saved := savedStyle
		if e.Saved.IsNegative() {
			saved = lostStyle
		}
		rows = append(rows, style.Render(text)+" "+saved.Render(fmt.Sprintf("%12s", budget.FormatMoney(e.Saved))))
	}

	summary := fmt.Sprintf("total saved %s   average %s", budget.FormatMoney(ledger.TotalSaved()), budget.FormatMoney(ledger.AverageSaved()))
	if best, ok := ledger.BestSaved(); ok {
		summary += fmt.Sprintf("   best %s (%s)", budget.FormatMoney(best.Saved), best.Label)
	}

	table := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#FFFFFF")).
		Padding(0, 1).
		Render(strings.Join(rows, "\n"))

	muted := lipgloss.NewStyle().Foreground(lipgloss.Color("#9CA3AF"))
	status := muted.Render(fmt.Sprintf("showing %d-%d/%d   ↑/↓ to scroll", start+1, end, len(ledger)))
	return strings.Join([]string{
		title,
		"",
		lipgloss.PlaceHorizontal(layoutWidth, lipgloss.Center, table),
		lipgloss.PlaceHorizontal(layoutWidth, lipgloss.Center, muted.Render(summary)),
		lipgloss.PlaceHorizontal(layoutWidth, lipgloss.Center, status),
	}, "\n")
}
