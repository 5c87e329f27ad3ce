package tui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/lachiem1/payplan/internal/budget"
)

const (
	settingsFocusDate = iota
	settingsFocusNetPay
)

func (m *model) loadSettingsForm() {
	s := m.planner.Snapshot().Settings
	m.settingsDigits = dateToDigits(s.FirstPayDate)
	m.settingsNetPay.SetValue(s.DefaultNetPay.StringFixed(2))
	m.settingsFocus = settingsFocusDate
	m.settingsNetPay.Blur()
	m.settingsErr = ""
	m.cmd.Blur()
}

func (m model) leaveSettings() (tea.Model, tea.Cmd) {
	m.settingsNetPay.Blur()
	m.cmd.Focus()
	m.screen = screenDashboard
	return m, nil
}

func (m model) updateSettings(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	switch key {
	case "esc":
		return m.leaveSettings()
	case "tab", "shift+tab", "up", "down":
		if m.settingsFocus == settingsFocusDate {
			m.settingsFocus = settingsFocusNetPay
			cmd := m.settingsNetPay.Focus()
			return m, cmd
		}
		m.settingsFocus = settingsFocusDate
		m.settingsNetPay.Blur()
		return m, nil
	case "enter":
		return m.saveSettings()
	}

	if m.settingsFocus == settingsFocusNetPay {
		var cmd tea.Cmd
		m.settingsNetPay, cmd = m.settingsNetPay.Update(msg)
		m.settingsErr = ""
		return m, cmd
	}
	switch {
	case key == "backspace":
		if n := len(m.settingsDigits); n > 0 {
			m.settingsDigits = m.settingsDigits[:n-1]
		}
	case len(key) == 1 && key[0] >= '0' && key[0] <= '9' && len(m.settingsDigits) < 8:
		m.settingsDigits += key
	}
	m.settingsErr = ""
	return m, nil
}

func (m model) saveSettings() (tea.Model, tea.Cmd) {
	date, err := validateAndFormatDateDigits(m.settingsDigits)
	if err != nil {
		m.settingsErr = err.Error()
		return m, nil
	}
	netPay, err := budget.ParseMoney(m.settingsNetPay.Value())
	if err != nil || netPay == nil || !netPay.IsPositive() {
		m.settingsErr = "net pay must be a positive amount"
		return m, nil
	}

	settings := m.planner.Snapshot().Settings
	settings.FirstPayDate = date
	settings.DefaultNetPay = *netPay
	if err := m.planner.UpdateSettings(settings); err != nil {
		m.settingsErr = err.Error()
		return m, nil
	}
	m.reload()
	next, _ := m.leaveSettings()
	return next.(model).withCommandFeedback("settings saved")
}

func dateToDigits(raw string) string {
	v := strings.TrimSpace(raw)
	if len(v) != 10 || v[4] != '-' || v[7] != '-' {
		return ""
	}
	digits := strings.ReplaceAll(v, "-", "")
	for _, ch := range digits {
		if ch < '0' || ch > '9' {
			return ""
		}
	}
	return digits
}

// validateAndFormatDateDigits turns YYYYMMDD digits into a YYYY-MM-DD
// anchor. Past dates are fine: any payday in the cadence anchors the tiling.
func validateAndFormatDateDigits(digits string) (string, error) {
	if len(digits) != 8 {
		return "", fmt.Errorf("first pay date must be YYYY / MM / DD")
	}
	year, err := strconv.Atoi(digits[0:4])
	if err != nil || year < 2000 || year > 9999 {
		return "", fmt.Errorf("year must be 2000-9999")
	}
	month, err := strconv.Atoi(digits[4:6])
	if err != nil || month < 1 || month > 12 {
		return "", fmt.Errorf("month must be 01-12")
	}
	day, err := strconv.Atoi(digits[6:8])
	if err != nil || day < 1 || day > 31 {
		return "", fmt.Errorf("day must be 01-31")
	}
	date := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if date.Year() != year || int(date.Month()) != month || date.Day() != day {
		return "", fmt.Errorf("date is not valid in the calendar")
	}
	return date.Format("2006-01-02"), nil
}

func renderDateMask(digits string) string {
	d := []rune("________")
	for i, ch := range digits {
		if i < len(d) && ch >= '0' && ch <= '9' {
			d[i] = ch
		}
	}
	numStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#D1D5DB")).Bold(true)
	sepStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#9CA3AF"))
	part := func(start, end int) string { return numStyle.Render(string(d[start:end])) }
	return part(0, 4) + sepStyle.Render(" / ") + part(4, 6) + sepStyle.Render(" / ") + part(6, 8)
}

func (m model) renderSettingsScreen(layoutWidth int) string {
	title := lipgloss.PlaceHorizontal(layoutWidth, lipgloss.Center, renderScreenTitle("SETTINGS"))

	label := func(text string, focused bool) string {
		style := lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF"))
		if focused {
			style = style.Bold(true)
		}
		return style.Render(text)
	}
	field := func(content string, border lipgloss.Color) string {
		return lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(border).
			Padding(0, 1).
			Render(content)
	}

	dateBorder := lipgloss.Color("#FFFFFF")
	if m.settingsFocus == settingsFocusDate {
		dateBorder = lipgloss.Color("#FFD54A")
	}
	dateWarning := ""
	if len(m.settingsDigits) == 8 {
		if _, err := validateAndFormatDateDigits(m.settingsDigits); err != nil {
			dateBorder = lipgloss.Color("#F15B5B")
			dateWarning = err.Error()
		} else {
			dateBorder = lipgloss.Color("#5CCB76")
		}
	}
	payBorder := lipgloss.Color("#FFFFFF")
	if m.settingsFocus == settingsFocusNetPay {
		payBorder = lipgloss.Color("#FFD54A")
	}

	muted := lipgloss.NewStyle().Foreground(lipgloss.Color("#9CA3AF"))
	rows := []string{
		label("first pay date", m.settingsFocus == settingsFocusDate),
		field(renderDateMask(m.settingsDigits), dateBorder),
		"",
		label("default net pay", m.settingsFocus == settingsFocusNetPay),
		field(m.settingsNetPay.View(), payBorder),
		"",
		muted.Render("pay frequency: every two weeks"),
		muted.Render("tab/up/down switch field  enter save  esc back"),
	}
	contentWidth := 0
	for _, r := range rows {
		contentWidth = max(contentWidth, lipgloss.Width(r))
	}
	for i, r := range rows {
		rows[i] = lipgloss.PlaceHorizontal(contentWidth, lipgloss.Center, r)
	}

	warning := strings.TrimSpace(m.settingsErr)
	if warning == "" {
		warning = dateWarning
	}
	if warning != "" {
		rows = append(rows, "", lipgloss.PlaceHorizontal(contentWidth, lipgloss.Center,
			lipgloss.NewStyle().Foreground(lipgloss.Color("#F15B5B")).Render(warning)))
	}

	panel := lipgloss.NewStyle().Padding(1, 2).Render(strings.Join(rows, "\n"))
	return strings.Join([]string{title, "", lipgloss.PlaceHorizontal(layoutWidth, lipgloss.Center, panel)}, "\n")
}
