package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/lachiem1/payplan/internal/budget"
)

func (m model) updateCalendarKey(key string) (tea.Model, tea.Cmd, bool) {
	n := len(m.dash.Window.Periods)
	switch key {
	case "up", "k", "left", "h":
		m.calendarCursor = max(0, m.calendarCursor-1)
		return m, nil, true
	case "down", "j", "right", "l":
		m.calendarCursor = min(max(0, n-1), m.calendarCursor+1)
		return m, nil, true
	}
	return m, nil, false
}

func (m model) renderCalendarScreen(layoutWidth int) string {
	title := lipgloss.PlaceHorizontal(layoutWidth, lipgloss.Center, renderScreenTitle("CALENDAR"))
	periods := m.dash.Window.Periods
	if len(periods) == 0 {
		body := lipgloss.NewStyle().Foreground(lipgloss.Color("#B9B4D0")).Render("no pay periods")
		return strings.Join([]string{title, "", lipgloss.PlaceHorizontal(layoutWidth, lipgloss.Center, body)}, "\n")
	}

	bills := m.planner.Snapshot().ActiveBills()
	cardWidth := max(32, min(layoutWidth-20, 56))
	innerWidth := max(8, cardWidth-4)

	baseCard := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#FFFFFF")).
		Padding(0, 1).
		Width(cardWidth)
	selectedCard := baseCard.BorderForeground(lipgloss.Color("#FFD54A"))
	currentCard := baseCard.BorderForeground(lipgloss.Color("#87CEEB"))
	headStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF")).Bold(true)
	mutedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#9CA3AF"))

	// Only the selected card is expanded.
	cards := make([]string, 0, len(periods))
	for i, p := range periods {
		due := budget.BillsInPeriod(bills, p)
		total := decimal.Zero
		for _, b := range due {
			total = total.Add(b.Amount)
		}
		label := p.Label
		if i == m.dash.Window.CurrentIndex {
			label += "  (current)"
		}
		sum := fmt.Sprintf("%d bills  %s", len(due), budget.FormatMoney(total))
		head := headStyle.Width(max(4, innerWidth-lipgloss.Width(sum)-1)).Render(label) + " " + mutedStyle.Render(sum)

		lines := []string{head}
		if i == m.calendarCursor {
			for _, b := range due {
				amount := budget.FormatMoney(b.Amount)
				name := fmt.Sprintf("  %s %s", ordinal(b.DueDay), b.Name)
				gap := max(1, innerWidth-lipgloss.Width(name)-lipgloss.Width(amount))
				lines = append(lines, mutedStyle.Render(name+strings.Repeat(" ", gap)+amount))
			}
		}

		card := baseCard
		switch {
		case i == m.calendarCursor:
			card = selectedCard
		case i == m.dash.Window.CurrentIndex:
			card = currentCard
		}
		cards = append(cards, card.Render(strings.Join(lines, "\n")))
	}

	body := lipgloss.PlaceHorizontal(layoutWidth, lipgloss.Center, strings.Join(cards, "\n"))
	hint := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#9CA3AF")).
		Render(fmt.Sprintf("period %d/%d   ↑/↓ to browse   esc back", m.calendarCursor+1, len(periods)))
	return strings.Join([]string{title, "", body, "", lipgloss.PlaceHorizontal(layoutWidth, lipgloss.Center, hint)}, "\n")
}
