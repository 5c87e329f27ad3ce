// Package cli renders planner state for the one-shot commands.
package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Palette shared with the dashboard.
var (
	ColorFrame    = lipgloss.Color("#F47A60")
	ColorTitle    = lipgloss.Color("#87CEEB")
	ColorSelected = lipgloss.Color("#FFD54A")
	ColorError    = lipgloss.Color("#F15B5B")
	ColorOK       = lipgloss.Color("#5CCB76")
	ColorMuted    = lipgloss.Color("#9CA3AF")
	ColorAccent   = lipgloss.Color("#6CBFE6")
	ColorText     = lipgloss.Color("#E5E7EB")
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(ColorTitle).Align(lipgloss.Center)
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorAccent)
	valueStyle  = lipgloss.NewStyle().Foreground(ColorText)
	mutedStyle  = lipgloss.NewStyle().Foreground(ColorMuted)
	okStyle     = lipgloss.NewStyle().Foreground(ColorOK)
	warnStyle   = lipgloss.NewStyle().Foreground(ColorSelected)
	errStyle    = lipgloss.NewStyle().Foreground(ColorError)
)

// SeparatorRow is a table row drawn as a horizontal rule.
var SeparatorRow = []string{"---"}

// Table is a bordered text table. The first column is left aligned and the
// rest are right aligned.
type Table struct {
	Title   string
	Headers []string
	Rows    [][]string
}

// RenderTitle renders a centered title bar in a rounded box.
func RenderTitle(title string) string {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorFrame).
		Width(55).
		Align(lipgloss.Center).
		Padding(0, 1).
		Render(titleStyle.Render(title))
}

// RenderTable renders t with box-drawing borders.
func RenderTable(t Table) string {
	cols := len(t.Headers)
	if cols == 0 && len(t.Rows) > 0 {
		cols = len(t.Rows[0])
	}
	if cols == 0 {
		return ""
	}

	widths := make([]int, cols)
	measure := func(cells []string) {
		for i := 0; i < cols && i < len(cells); i++ {
			if w := lipgloss.Width(cells[i]); w > widths[i] {
				widths[i] = w
			}
		}
	}
	measure(t.Headers)
	for _, row := range t.Rows {
		if !isSeparator(row) {
			measure(row)
		}
	}

	var b strings.Builder
	if t.Title != "" {
		b.WriteString("  " + headerStyle.Render(t.Title) + "\n")
	}
	b.WriteString(rule(widths, "╭", "┬", "╮"))
	if len(t.Headers) > 0 {
		b.WriteString(line(widths, t.Headers, headerStyle))
		b.WriteString(rule(widths, "├", "┼", "┤"))
	}
	for _, row := range t.Rows {
		if isSeparator(row) {
			b.WriteString(rule(widths, "├", "┼", "┤"))
			continue
		}
		b.WriteString(line(widths, row, valueStyle))
	}
	b.WriteString(rule(widths, "╰", "┴", "╯"))
	return b.String()
}

func isSeparator(row []string) bool {
	return len(row) == 1 && row[0] == SeparatorRow[0]
}

func rule(widths []int, left, mid, right string) string {
	parts := make([]string, len(widths))
	for i, w := range widths {
		parts[i] = strings.Repeat("─", w+2)
	}
	return mutedStyle.Render(left+strings.Join(parts, mid)+right) + "\n"
}

func line(widths []int, cells []string, style lipgloss.Style) string {
	bar := mutedStyle.Render("│")
	var b strings.Builder
	b.WriteString(bar)
	for i, w := range widths {
		cell := ""
		if i < len(cells) {
			cell = cells[i]
		}
		gap := strings.Repeat(" ", max(0, w-lipgloss.Width(cell)))
		if i == 0 {
			b.WriteString(style.Render(" " + cell + gap + " "))
		} else {
			b.WriteString(style.Render(" " + gap + cell + " "))
		}
		b.WriteString(bar)
	}
	b.WriteString("\n")
	return b.String()
}

// Field renders an aligned "label: value" line.
func Field(label, value string) string {
	return fmt.Sprintf("  %s %s\n", mutedStyle.Render(fmt.Sprintf("%-16s", label+":")), value)
}

// Muted renders secondary text.
func Muted(s string) string { return mutedStyle.Render(s) }

// OK renders a success message.
func OK(s string) string { return okStyle.Render(s) }
