package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/lachiem1/payplan/internal/budget"
	"github.com/lachiem1/payplan/internal/planner"
	"github.com/lachiem1/payplan/internal/syncer"
)

type storeChangedMsg struct {
	change planner.Change
}

type syncEventMsg struct {
	event syncer.Event
}

type periodTickMsg struct{}

type clearCommandTextMsg struct {
	id int
}

type commandSpec struct {
	name        string
	description string
}

type screenMode int

const (
	screenDashboard screenMode = iota
	screenCalendar
	screenHistory
	screenSettings
)

// Refresher triggers an immediate pull from the remote store.
type Refresher interface {
	Refresh() error
}

// Deps wires the dashboard to the planner. Sync and Events are optional and
// stay nil in local-only mode.
type Deps struct {
	Planner *planner.Service
	Sync    Refresher
	Events  <-chan syncer.Event
}

type model struct {
	planner     *planner.Service
	sync        Refresher
	changes     chan planner.Change
	events      <-chan syncer.Event
	unsubscribe func()

	width  int
	height int

	viewItems []string
	screen    screenMode
	cmd       textinput.Model

	commandText             string
	commandTextID           int
	commandSuggestions      []commandSpec
	commandSuggestionIndex  int
	commandSuggestionOffset int
	showHelpOverlay         bool

	dash         budget.Dashboard
	dashErr      string
	pane         int
	cursor       int
	prompt       textinput.Model
	promptMode   int
	promptBillID string

	calendarCursor int

	historyCursor int
	historyOffset int

	settingsFocus  int
	settingsDigits string
	settingsNetPay textinput.Model
	settingsErr    string

	syncState string
	syncErr   bool
	quitting  bool
}

// New builds the dashboard model. It subscribes to the planner store so
// edits from other devices redraw the screen.
func New(deps Deps) tea.Model {
	cmd := textinput.New()
	cmd.Prompt = "> "
	cmd.Placeholder = "/help"
	cmd.Width = 72
	cmd.Focus()

	prompt := textinput.New()
	prompt.Prompt = "$ "
	prompt.Width = 32

	netPay := textinput.New()
	netPay.Prompt = "$ "
	netPay.Placeholder = "0.00"
	netPay.Width = 20

	m := model{
		planner:        deps.Planner,
		sync:           deps.Sync,
		events:         deps.Events,
		changes:        make(chan planner.Change, 1),
		viewItems:      []string{"dashboard", "calendar", "history", "settings"},
		screen:         screenDashboard,
		cmd:            cmd,
		prompt:         prompt,
		settingsNetPay: netPay,
		syncState:      "local only",
	}
	if deps.Sync != nil {
		m.syncState = "connecting"
	}
	changes := m.changes
	m.unsubscribe = deps.Planner.Store().Subscribe(func(c planner.Change) {
		select {
		case changes <- c:
		default:
			// A redraw is already queued and will read the latest snapshot.
		}
	})
	m.reload()
	return m
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		waitForChange(m.changes),
		waitForSyncEvent(m.events),
		periodTickCmd(),
	)
}

func waitForChange(ch <-chan planner.Change) tea.Cmd {
	return func() tea.Msg {
		c, ok := <-ch
		if !ok {
			return nil
		}
		return storeChangedMsg{change: c}
	}
}

func waitForSyncEvent(ch <-chan syncer.Event) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		evt, ok := <-ch
		if !ok {
			return nil
		}
		return syncEventMsg{event: evt}
	}
}

// periodTickCmd re-reconciles once a minute so the window rolls over at
// midnight on a period boundary.
func periodTickCmd() tea.Cmd {
	return tea.Tick(time.Minute, func(time.Time) tea.Msg { return periodTickMsg{} })
}

func (m *model) reload() {
	d, err := m.planner.Dashboard()
	if err != nil {
		m.dashErr = err.Error()
		return
	}
	m.dashErr = ""
	m.dash = d
	m.clampCursor()
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.cmd.Width = max(40, msg.Width-36)
		m.prompt.Width = max(24, msg.Width-48)
		return m, nil

	case storeChangedMsg:
		m.reload()
		if msg.change.Origin == planner.OriginRemote {
			m.syncState = fmt.Sprintf("updated from another device (gen %d)", msg.change.Generation)
			m.syncErr = false
		}
		return m, waitForChange(m.changes)

	case syncEventMsg:
		m.syncState, m.syncErr = describeSyncEvent(msg.event)
		return m, waitForSyncEvent(m.events)

	case periodTickMsg:
		m.reload()
		return m, periodTickCmd()

	case clearCommandTextMsg:
		if msg.id == m.commandTextID {
			m.commandText = ""
		}
		return m, nil

	case tea.KeyMsg:
		return m.updateKey(msg)
	}
	return m, nil
}

func (m model) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "ctrl+c" {
		return m.quit()
	}
	if m.showHelpOverlay {
		if key == "esc" || key == "enter" || key == "q" {
			m.showHelpOverlay = false
		}
		return m, nil
	}
	if m.promptMode != promptNone {
		return m.updatePrompt(msg)
	}
	if m.screen == screenSettings {
		return m.updateSettings(msg)
	}

	typing := m.cmd.Value() != ""
	if typing && m.shouldShowCommandSuggestions() {
		switch key {
		case "up":
			m.commandSuggestionIndex = max(0, m.commandSuggestionIndex-1)
			m.adjustSuggestionWindow(2)
			return m, nil
		case "down":
			m.commandSuggestionIndex = min(len(m.commandSuggestions)-1, m.commandSuggestionIndex+1)
			m.adjustSuggestionWindow(2)
			return m, nil
		case "tab":
			m.cmd.SetValue(m.commandSuggestions[m.commandSuggestionIndex].name)
			m.cmd.CursorEnd()
			m.refreshCommandSuggestions()
			return m, nil
		}
	}
	switch key {
	case "enter":
		if !typing {
			break
		}
		input := strings.TrimSpace(m.cmd.Value())
		if m.shouldShowCommandSuggestions() && !isKnownCommand(input) {
			input = m.commandSuggestions[m.commandSuggestionIndex].name
		}
		return m.runSlashCommand(input)
	case "esc":
		if typing {
			m.cmd.SetValue("")
			m.clearCommandSuggestions()
			return m, nil
		}
		if m.screen != screenDashboard {
			m.screen = screenDashboard
			return m, nil
		}
		return m, nil
	}

	if !typing && key != "/" {
		if next, cmd, handled := m.updateScreenKey(key); handled {
			return next, cmd
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.cmd, cmd = m.cmd.Update(msg)
	m.refreshCommandSuggestions()
	return m, cmd
}

func (m model) updateScreenKey(key string) (tea.Model, tea.Cmd, bool) {
	switch key {
	case "q":
		next, cmd := m.quit()
		return next, cmd, true
	case "?":
		m.showHelpOverlay = true
		return m, nil, true
	case "1", "2", "3", "4":
		next, cmd := m.enterScreen(screenMode(key[0] - '1'))
		return next, cmd, true
	case "r":
		next, cmd := m.refreshRemote()
		return next, cmd, true
	}
	switch m.screen {
	case screenDashboard:
		return m.updateDashboardKey(key)
	case screenCalendar:
		return m.updateCalendarKey(key)
	case screenHistory:
		return m.updateHistoryKey(key)
	}
	return m, nil, false
}

func (m model) quit() (tea.Model, tea.Cmd) {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
	m.quitting = true
	return m, tea.Quit
}

func (m model) enterScreen(screen screenMode) (tea.Model, tea.Cmd) {
	m.screen = screen
	m.cmd.SetValue("")
	m.clearCommandSuggestions()
	switch screen {
	case screenSettings:
		m.loadSettingsForm()
	case screenCalendar:
		m.calendarCursor = m.dash.Window.CurrentIndex
	}
	m.reload()
	return m, nil
}

func (m model) refreshRemote() (tea.Model, tea.Cmd) {
	if m.sync == nil {
		return m.withCommandFeedback("no remote configured; running local only")
	}
	if err := m.sync.Refresh(); err != nil {
		return m.withCommandFeedback("refresh failed: " + err.Error())
	}
	m.syncState = "syncing"
	m.syncErr = false
	return m.withCommandFeedback("refreshing from remote...")
}

func describeSyncEvent(evt syncer.Event) (string, bool) {
	at := evt.At.Local().Format("15:04")
	switch evt.Type {
	case syncer.EventSyncStarted:
		return "syncing", false
	case syncer.EventSyncOK:
		return "synced " + at, false
	case syncer.EventRemoteApplied:
		return fmt.Sprintf("pulled gen %d at %s", evt.Generation, at), false
	case syncer.EventSaveOK:
		return fmt.Sprintf("saved gen %d at %s", evt.Generation, at), false
	case syncer.EventSyncFailed, syncer.EventSaveFailed:
		text := string(evt.Type)
		if evt.Err != nil {
			text += ": " + evt.Err.Error()
		}
		if evt.RetryIn > 0 {
			text += fmt.Sprintf(" (retry in %s)", evt.RetryIn.Round(time.Second))
		}
		return text, true
	default:
		return string(evt.Type), false
	}
}

func (m model) View() string {
	if m.quitting {
		return ""
	}

	frame := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#F47A60")).
		Padding(1, 1)
	contentStyle := lipgloss.NewStyle().Padding(1, 1, 0, 1)
	if m.width > 0 {
		frame = frame.Width(max(1, m.width-frame.GetHorizontalBorderSize()))
	}
	if m.height > 0 {
		frame = frame.Height(max(1, m.height-frame.GetVerticalBorderSize()))
	}
	layoutWidth := max(60, m.width-frame.GetHorizontalFrameSize()-contentStyle.GetHorizontalFrameSize())
	layoutHeight := max(1, m.height-frame.GetVerticalFrameSize()-contentStyle.GetVerticalFrameSize())

	if m.showHelpOverlay {
		centered := lipgloss.Place(layoutWidth, layoutHeight, lipgloss.Center, lipgloss.Center, renderHelpOverlay(layoutWidth))
		return frame.Render(contentStyle.Render(centered))
	}

	var body string
	switch m.screen {
	case screenCalendar:
		body = m.renderCalendarScreen(layoutWidth)
	case screenHistory:
		body = m.renderHistoryScreen(layoutWidth)
	case screenSettings:
		body = m.renderSettingsScreen(layoutWidth)
	default:
		body = m.renderDashboardScreen(layoutWidth)
	}
	header := renderViews(m.viewItems, int(m.screen), m.renderStatusLine())

	canvasWidth := canvasSafeWidth(layoutWidth)
	cmdInner := m.cmd.View()
	if m.shouldShowCommandSuggestions() {
		cmdInner += "\n" + renderCommandSuggestionRows(canvasWidth-4, m.commandSuggestions, m.commandSuggestionIndex, m.commandSuggestionOffset)
	}
	cmdBox := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#6CBFE6")).
		Padding(0, 1).
		Width(canvasWidth).
		Render(cmdInner)
	cmdBox = lipgloss.PlaceHorizontal(layoutWidth, lipgloss.Center, cmdBox)

	top := []string{header, "", body}
	if text := strings.TrimSpace(m.commandText); text != "" {
		message := lipgloss.NewStyle().Foreground(lipgloss.Color("#D1D5DB")).Render(text)
		top = append(top, "", lipgloss.PlaceHorizontal(layoutWidth, lipgloss.Center, message))
	}
	topSection := strings.Join(top, "\n")

	// The gap above the command box absorbs spare height.
	gap := 1
	if m.height > 0 {
		gap = max(1, layoutHeight-lipgloss.Height(topSection)-lipgloss.Height(cmdBox))
	}
	return frame.Render(contentStyle.Render(topSection + strings.Repeat("\n", gap) + cmdBox))
}

func (m model) renderStatusLine() string {
	syncColor := lipgloss.Color("#5CCB76")
	if m.syncErr {
		syncColor = lipgloss.Color("#F15B5B")
	}
	label := lipgloss.NewStyle().Foreground(lipgloss.Color("#9CA3AF")).Render("sync: ")
	return label + lipgloss.NewStyle().Foreground(syncColor).Render(m.syncState)
}

func (m model) runSlashCommand(input string) (tea.Model, tea.Cmd) {
	switch input {
	case "":
		return m, nil
	case "/help":
		m.showHelpOverlay = true
		m.commandText = ""
		m.cmd.SetValue("")
		m.clearCommandSuggestions()
		return m, nil
	case "/dashboard":
		return m.enterScreen(screenDashboard)
	case "/calendar":
		return m.enterScreen(screenCalendar)
	case "/history":
		return m.enterScreen(screenHistory)
	case "/settings":
		return m.enterScreen(screenSettings)
	case "/refresh":
		return m.refreshRemote()
	case "/close":
		m.cmd.SetValue("")
		return m.closePeriod()
	case "/reopen":
		m.cmd.SetValue("")
		return m.reopenPeriod()
	case "/quit", "/exit":
		return m.quit()
	default:
		return m.withCommandFeedback(fmt.Sprintf("Unknown command: %s", input))
	}
}

func (m model) withCommandFeedback(text string) (tea.Model, tea.Cmd) {
	m.commandText = text
	m.commandTextID++
	m.cmd.SetValue("")
	m.clearCommandSuggestions()
	id := m.commandTextID
	return m, tea.Tick(4*time.Second, func(time.Time) tea.Msg {
		return clearCommandTextMsg{id: id}
	})
}

func canvasSafeWidth(width int) int {
	return max(20, width-10)
}

func renderViews(items []string, selected int, statusLine string) string {
	itemStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#9CA3AF"))
	selectedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF")).Bold(true).Underline(true)
	prefixStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#F47A60")).Bold(true)
	parts := make([]string, 0, len(items))
	for i, item := range items {
		label := fmt.Sprintf("%d %s", i+1, item)
		if i == selected {
			parts = append(parts, prefixStyle.Render("> ")+selectedStyle.Render(label))
			continue
		}
		parts = append(parts, itemStyle.Render("  "+label))
	}
	return strings.Join(parts, "   ") + "\n" + statusLine
}

// blockGlyphs are the large title letters, each row of a glyph the same width.
var blockGlyphs = map[rune][6]string{
	'P': {"██████╗ ", "██╔══██╗", "██████╔╝", "██╔═══╝ ", "██║     ", "╚═╝     "},
	'A': {" █████╗ ", "██╔══██╗", "███████║", "██╔══██║", "██║  ██║", "╚═╝  ╚═╝"},
	'Y': {"██╗   ██╗", "╚██╗ ██╔╝", " ╚████╔╝ ", "  ╚██╔╝  ", "   ██║   ", "   ╚═╝   "},
	'L': {"██╗     ", "██║     ", "██║     ", "██║     ", "███████╗", "╚══════╝"},
	'N': {"███╗   ██╗", "████╗  ██║", "██╔██╗ ██║", "██║╚██╗██║", "██║ ╚████║", "╚═╝  ╚═══╝"},
}

// blockTitle lays out word in block glyphs and returns the rows with the
// column range each letter occupies.
func blockTitle(word string) ([]string, [][2]int) {
	rows := make([]string, 6)
	segments := make([][2]int, 0, len(word))
	col := 1
	for i := range rows {
		rows[i] = " "
	}
	for _, ch := range word {
		g, ok := blockGlyphs[ch]
		if !ok {
			continue
		}
		width := len([]rune(g[0]))
		for i := range rows {
			rows[i] += g[i]
		}
		segments = append(segments, [2]int{col, col + width - 1})
		col += width
	}
	return rows, segments
}

func renderBlockTitle() string {
	return renderStyledBlockTitle(blockTitle("PAYPLAN"))
}

func renderStyledBlockTitle(raw []string, segments [][2]int) string {
	blue := lipgloss.NewStyle().Foreground(lipgloss.Color("#5FA8FF")).Bold(true)
	coral := lipgloss.NewStyle().Foreground(lipgloss.Color("#F47A60")).Bold(true)
	yellow := lipgloss.NewStyle().Foreground(lipgloss.Color("#FFD54A")).Bold(true)

	rows := make([]string, 0, len(raw))
	for _, line := range raw {
		var out strings.Builder
		for idx, ch := range []rune(line) {
			switch {
			case ch == ' ':
				out.WriteRune(' ')
			case isStrokeRune(ch):
				out.WriteString(blue.Render(string(ch)))
			case segmentForIndex(idx, segments)%2 == 1:
				out.WriteString(yellow.Render(string(ch)))
			default:
				out.WriteString(coral.Render(string(ch)))
			}
		}
		rows = append(rows, out.String())
	}
	return strings.Join(rows, "\n")
}

func isStrokeRune(ch rune) bool {
	switch ch {
	case '╔', '╗', '╚', '╝', '║', '═':
		return true
	default:
		return false
	}
}

func segmentForIndex(index int, segments [][2]int) int {
	for i, s := range segments {
		if index >= s[0] && index <= s[1] {
			return i
		}
	}
	return 0
}

// smallGlyphs are the three-row screen title letters.
var smallGlyphs = map[rune][3]string{
	'A': {"▄▀█", "█▀█", "▀ ▀"},
	'C': {"█▀▀", "█▄▄", "▀▀▀"},
	'D': {"█▀▄", "█▄▀", "▀▀ "},
	'E': {"█▀▀", "██▄", "▀▀▀"},
	'G': {"█▀▀", "█▄█", "▀▀▀"},
	'H': {"█ █", "█▀█", "▀ ▀"},
	'I': {"█", "█", "▀"},
	'L': {"█  ", "█▄▄", "▀▀▀"},
	'N': {"█▄ █", "█ ▀█", "▀  ▀"},
	'O': {"█▀█", "█▄█", "▀▀▀"},
	'R': {"█▀█", "█▀▄", "▀ ▀"},
	'S': {"█▀", "▄█", "▀▀"},
	'T': {"▀█▀", " █ ", " ▀ "},
	'Y': {"█ █", "▀█▀", " ▀ "},
}

func renderScreenTitle(word string) string {
	var parts [3][]string
	for _, ch := range word {
		g, ok := smallGlyphs[ch]
		if !ok {
			continue
		}
		for i := range parts {
			parts[i] = append(parts[i], g[i])
		}
	}
	style := lipgloss.NewStyle().Foreground(lipgloss.Color("#87CEEB")).Bold(true)
	rows := make([]string, 0, len(parts))
	for _, p := range parts {
		rows = append(rows, style.Render(strings.Join(p, " ")))
	}
	return strings.Join(rows, "\n")
}

func commandCatalog() []commandSpec {
	return []commandSpec{
		{name: "/help", description: "show command help overlay"},
		{name: "/dashboard", description: "current and next period"},
		{name: "/calendar", description: "bills across the pay calendar"},
		{name: "/history", description: "closed period ledger"},
		{name: "/settings", description: "first pay date and net pay"},
		{name: "/refresh", description: "pull the latest snapshot from the remote"},
		{name: "/close", description: "close the current period"},
		{name: "/reopen", description: "reopen the current period"},
		{name: "/quit", description: "flush pending saves and exit"},
	}
}

func isKnownCommand(input string) bool {
	for _, c := range commandCatalog() {
		if c.name == input {
			return true
		}
	}
	return input == "/exit"
}

func (m *model) refreshCommandSuggestions() {
	input := strings.TrimSpace(m.cmd.Value())
	if !strings.HasPrefix(input, "/") {
		m.clearCommandSuggestions()
		return
	}

	prefix := strings.ToLower(input)
	all := commandCatalog()
	matches := make([]commandSpec, 0, len(all))
	for _, cmd := range all {
		if strings.HasPrefix(cmd.name, prefix) {
			matches = append(matches, cmd)
		}
	}
	if len(matches) == 0 {
		m.clearCommandSuggestions()
		return
	}

	m.commandSuggestions = matches
	m.commandSuggestionIndex = max(0, min(m.commandSuggestionIndex, len(matches)-1))
	m.adjustSuggestionWindow(2)
}

func (m *model) clearCommandSuggestions() {
	m.commandSuggestions = nil
	m.commandSuggestionIndex = 0
	m.commandSuggestionOffset = 0
}

func (m model) shouldShowCommandSuggestions() bool {
	return strings.HasPrefix(strings.TrimSpace(m.cmd.Value()), "/") && len(m.commandSuggestions) > 0
}

func (m *model) adjustSuggestionWindow(visibleRows int) {
	visibleRows = max(1, visibleRows)
	if m.commandSuggestionIndex < m.commandSuggestionOffset {
		m.commandSuggestionOffset = m.commandSuggestionIndex
	}
	if m.commandSuggestionIndex >= m.commandSuggestionOffset+visibleRows {
		m.commandSuggestionOffset = m.commandSuggestionIndex - visibleRows + 1
	}
	m.commandSuggestionOffset = min(m.commandSuggestionOffset, max(0, len(m.commandSuggestions)-visibleRows))
}

func renderCommandSuggestionRows(innerWidth int, matches []commandSpec, selectedIndex int, offset int) string {
	start := max(0, min(offset, max(0, len(matches)-1)))
	end := min(len(matches), start+2)

	baseRow := lipgloss.NewStyle().Background(lipgloss.Color("#1B2330")).Width(innerWidth)
	selectedRow := lipgloss.NewStyle().Background(lipgloss.Color("#263249")).Width(innerWidth)
	rows := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		cmdStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#B9B4D0"))
		descStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#8D88A8"))
		prefix := "  "
		rowStyle := baseRow
		if i == selectedIndex {
			prefix = "› "
			cmdStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFD54A")).Bold(true)
			descStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#D4CDE9"))
			rowStyle = selectedRow
		}
		rows = append(rows, rowStyle.Render(prefix+cmdStyle.Render(matches[i].name)+"  "+descStyle.Render(matches[i].description)))
	}
	return strings.Join(rows, "\n")
}

func renderHelpOverlay(maxWidth int) string {
	title := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#5FA8FF")).
		Bold(true).
		Render("Command Help")

	catalog := commandCatalog()
	lines := make([]string, 0, len(catalog)+len(dashboardKeyHelp)+3)
	for _, cmd := range catalog {
		lines = append(lines, fmt.Sprintf("%-12s %s", cmd.name, cmd.description))
	}
	lines = append(lines, "", "dashboard keys:")
	lines = append(lines, dashboardKeyHelp...)
	footer := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#FFD54A")).
		Bold(true).
		Render("Esc to close")

	content := strings.Join([]string{title, "", strings.Join(lines, "\n"), "", footer}, "\n")
	panelWidth := max(36, min(maxWidth-6, 64))

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#6CBFE6")).
		Padding(1, 2).
		Width(panelWidth).
		Render(content)
}
