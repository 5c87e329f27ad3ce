package tui

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/lachiem1/payplan/internal/budget"
	"github.com/lachiem1/payplan/internal/planner"
	"github.com/lachiem1/payplan/internal/syncer"
)

const curKey = "2026-01-09"

func newTestModel(t *testing.T) (model, *planner.Service) {
	t.Helper()
	now := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
	svc := planner.NewService(planner.NewStore(budget.DefaultSnapshot()), planner.WithClock(func() time.Time { return now }))
	m := New(Deps{Planner: svc}).(model)
	t.Cleanup(m.unsubscribe)
	return m, svc
}

func keyMsg(key string) tea.KeyMsg {
	switch key {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "space":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
	}
}

func press(t *testing.T, m model, keys ...string) model {
	t.Helper()
	for _, k := range keys {
		next, _ := m.Update(keyMsg(k))
		m = next.(model)
	}
	return m
}

func cursorTo(t *testing.T, m model, name string) model {
	t.Helper()
	for i, l := range m.paneLines() {
		if l.Bill.Name == name {
			m.cursor = i
			return m
		}
	}
	t.Fatalf("%s not on the selected pane", name)
	return m
}

func allocation(t *testing.T, svc *planner.Service, key, billID string) budget.Allocation {
	t.Helper()
	a, ok := svc.Snapshot().Period(key).Allocation(billID)
	if !ok {
		t.Fatalf("no allocation for %s in %s", billID, key)
	}
	return a
}

func TestNewLoadsDashboard(t *testing.T) {
	m, _ := newTestModel(t)
	if m.dashErr != "" {
		t.Fatalf("dashErr = %q", m.dashErr)
	}
	if m.dash.Current.Key() != curKey || m.dash.Next == nil {
		t.Fatalf("dashboard current = %s next = %v", m.dash.Current.Key(), m.dash.Next)
	}
	if m.syncState != "local only" {
		t.Fatalf("syncState = %q without a remote", m.syncState)
	}
}

func TestSpaceTogglesPaid(t *testing.T) {
	m, svc := newTestModel(t)
	m = cursorTo(t, m, "Phone")
	m = press(t, m, "space")

	if a := allocation(t, svc, curKey, "bill-phone-004"); !a.Paid {
		t.Fatal("Phone not marked paid")
	}
	if m.dash.Totals.PaidCount != 1 {
		t.Fatalf("PaidCount = %d after toggle", m.dash.Totals.PaidCount)
	}
	if !strings.Contains(m.commandText, "toggled Phone") {
		t.Fatalf("commandText = %q", m.commandText)
	}
}

func TestDeferThenUndoFromNextPane(t *testing.T) {
	m, svc := newTestModel(t)
	m = cursorTo(t, m, "Visa Card")
	m = press(t, m, "d")
	if a := allocation(t, svc, curKey, "bill-visa-006"); !a.Status.IsDeferred() {
		t.Fatalf("status = %v, want deferred", a.Status.Kind())
	}
	for _, l := range m.dash.CurrentBills {
		if l.Bill.ID == "bill-visa-006" {
			t.Fatal("deferred bill still on the current list")
		}
	}

	m = press(t, m, "tab")
	m = cursorTo(t, m, "Visa Card")
	if l, _ := m.selectedLine(); l.Kind != budget.LinePushedDeferred {
		t.Fatalf("next line kind = %v, want pushed deferred", l.Kind)
	}
	m = press(t, m, "u")
	if a := allocation(t, svc, curKey, "bill-visa-006"); a.Status.IsDeferred() {
		t.Fatal("u did not undo the deferral")
	}
}

func TestSplitPrompt(t *testing.T) {
	m, svc := newTestModel(t)
	m = cursorTo(t, m, "Visa Card")
	m = press(t, m, "s")
	if m.promptMode != promptSplit {
		t.Fatalf("promptMode = %d, want split", m.promptMode)
	}
	m = press(t, m, "200", "enter")
	if m.promptMode != promptNone {
		t.Fatal("prompt still open after enter")
	}

	a := allocation(t, svc, curKey, "bill-visa-006")
	split, ok := a.Status.SplitAmount()
	if !ok || !split.Equal(decimal.NewFromInt(200)) {
		t.Fatalf("split = %v, %v; want 200", split, ok)
	}
}

func TestSplitPromptRejectsFullAmount(t *testing.T) {
	m, _ := newTestModel(t)
	m = cursorTo(t, m, "Visa Card")
	m = press(t, m, "s", "500", "enter")
	if !strings.Contains(m.commandText, "invalid amount") {
		t.Fatalf("commandText = %q, want invalid amount", m.commandText)
	}
}

func TestPayEarlyFromNextPane(t *testing.T) {
	m, svc := newTestModel(t)
	m = press(t, m, "tab")
	if m.pane != paneNext {
		t.Fatal("tab did not switch to the next period")
	}
	m = cursorTo(t, m, "Rent")
	m = press(t, m, "e", "enter")

	a := allocation(t, svc, curKey, "bill-rent-001")
	if !a.Status.FullyPaidEarly() {
		t.Fatalf("rent status = %v, want paid early in full", a.Status.Kind())
	}

	m = press(t, m, "tab")
	m = cursorTo(t, m, "Rent")
	if l, _ := m.selectedLine(); l.Kind != budget.LinePulled {
		t.Fatalf("rent line kind = %v, want pulled", l.Kind)
	}
	m = press(t, m, "u")
	if a := allocation(t, svc, curKey, "bill-rent-001"); a.Status.IsPaidEarly() {
		t.Fatal("u did not undo the pay early")
	}
}

func TestAdjustmentPromptAndDrop(t *testing.T) {
	m, svc := newTestModel(t)
	m = press(t, m, "+", "Birthday gift -50", "enter")

	adjs := svc.Snapshot().Period(curKey).Adjustments
	if len(adjs) != 1 || adjs[0].Label != "Birthday gift" || !adjs[0].Amount.Equal(decimal.NewFromInt(-50)) {
		t.Fatalf("adjustments = %+v", adjs)
	}
	m = press(t, m, "x")
	if n := len(svc.Snapshot().Period(curKey).Adjustments); n != 0 {
		t.Fatalf("adjustments after x = %d", n)
	}
}

func TestClosedPeriodRejectsEdits(t *testing.T) {
	m, svc := newTestModel(t)
	m = press(t, m, "c")
	if !svc.Snapshot().Period(curKey).Closed || len(svc.Snapshot().PeriodHistory) != 1 {
		t.Fatal("c did not close the period")
	}

	m = press(t, m, "space")
	if !strings.Contains(m.commandText, "period is closed") {
		t.Fatalf("commandText = %q, want closed notice", m.commandText)
	}

	m = press(t, m, "c")
	if svc.Snapshot().Period(curKey).Closed {
		t.Fatal("second c did not reopen the period")
	}
}

func TestSlashCommandCompletesAndSwitchesScreen(t *testing.T) {
	m, _ := newTestModel(t)
	m = press(t, m, "/", "c", "a", "l")
	if !m.shouldShowCommandSuggestions() || m.commandSuggestions[0].name != "/calendar" {
		t.Fatalf("suggestions = %+v", m.commandSuggestions)
	}
	m = press(t, m, "enter")
	if m.screen != screenCalendar {
		t.Fatalf("screen = %d, want calendar", m.screen)
	}
	if m.calendarCursor != m.dash.Window.CurrentIndex {
		t.Fatalf("calendarCursor = %d, want current index", m.calendarCursor)
	}

	m = press(t, m, "esc")
	if m.screen != screenDashboard {
		t.Fatal("esc did not return to the dashboard")
	}
}

func TestUnknownSlashCommand(t *testing.T) {
	m, _ := newTestModel(t)
	m = press(t, m, "/", "nope", "enter")
	if m.commandText != "Unknown command: /nope" {
		t.Fatalf("commandText = %q", m.commandText)
	}
}

func TestSettingsSave(t *testing.T) {
	m, svc := newTestModel(t)
	m = press(t, m, "4")
	if m.screen != screenSettings || m.settingsDigits != "20260109" {
		t.Fatalf("settings screen = %d digits %q", m.screen, m.settingsDigits)
	}

	// Retype the anchor one period earlier.
	for range 8 {
		next, _ := m.Update(tea.KeyMsg{Type: tea.KeyBackspace})
		m = next.(model)
	}
	m = press(t, m, "2", "0", "2", "5", "1", "2", "2", "6", "enter")
	if m.screen != screenDashboard {
		t.Fatalf("screen = %d after save; err %q", m.screen, m.settingsErr)
	}
	if got := svc.Snapshot().Settings.FirstPayDate; got != "2025-12-26" {
		t.Fatalf("FirstPayDate = %q", got)
	}
	if m.dash.Current.Key() != curKey {
		t.Fatalf("current period = %s; same cadence should keep it", m.dash.Current.Key())
	}
}

func TestRemoteChangeUpdatesStatus(t *testing.T) {
	m, svc := newTestModel(t)
	snap := budget.DefaultSnapshot()
	snap = budget.TogglePaid(snap, curKey, "bill-carins-005")
	c := svc.Store().ApplyRemote(snap, 9)

	next, cmd := m.Update(storeChangedMsg{change: c})
	m = next.(model)
	if cmd == nil {
		t.Fatal("no follow-up wait command")
	}
	if !strings.Contains(m.syncState, "another device") {
		t.Fatalf("syncState = %q", m.syncState)
	}
}

func TestDescribeSyncEvent(t *testing.T) {
	at := time.Date(2026, 1, 15, 9, 0, 0, 0, time.Local)
	tests := []struct {
		evt     syncer.Event
		want    string
		wantErr bool
	}{
		{evt: syncer.Event{Type: syncer.EventSyncOK, At: at}, want: "synced 09:00"},
		{evt: syncer.Event{Type: syncer.EventSaveOK, At: at, Generation: 4}, want: "saved gen 4 at 09:00"},
		{evt: syncer.Event{Type: syncer.EventSyncFailed, At: at, Err: errors.New("boom"), RetryIn: 5 * time.Second}, want: "sync_failed: boom (retry in 5s)", wantErr: true},
	}
	for _, tc := range tests {
		got, isErr := describeSyncEvent(tc.evt)
		if got != tc.want || isErr != tc.wantErr {
			t.Fatalf("describeSyncEvent(%s) = %q, %v; want %q, %v", tc.evt.Type, got, isErr, tc.want, tc.wantErr)
		}
	}
}

func TestBlockTitleRowsAligned(t *testing.T) {
	rows, segments := blockTitle("PAYPLAN")
	if len(segments) != 7 {
		t.Fatalf("segments = %d, want 7", len(segments))
	}
	width := len([]rune(rows[0]))
	for i, r := range rows {
		if got := len([]rune(r)); got != width {
			t.Fatalf("row %d width = %d, want %d", i, got, width)
		}
	}
	if last := segments[len(segments)-1]; last[1] != width-1 {
		t.Fatalf("last segment ends at %d, want %d", last[1], width-1)
	}
}

func TestValidateAndFormatDateDigits(t *testing.T) {
	tests := []struct {
		digits  string
		want    string
		wantErr string
	}{
		{digits: "20260109", want: "2026-01-09"},
		{digits: "2026010", wantErr: "YYYY"},
		{digits: "19990101", wantErr: "year"},
		{digits: "20261301", wantErr: "month"},
		{digits: "20260230", wantErr: "calendar"},
	}
	for _, tc := range tests {
		got, err := validateAndFormatDateDigits(tc.digits)
		if tc.wantErr != "" {
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("validateAndFormatDateDigits(%q) error = %v, want %q", tc.digits, err, tc.wantErr)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Fatalf("validateAndFormatDateDigits(%q) = %q, %v", tc.digits, got, err)
		}
	}
}

func TestParseAdjustmentInput(t *testing.T) {
	label, amount, err := parseAdjustmentInput("  Gift from  Nan $40 ")
	if err != nil || label != "Gift from Nan" || !amount.Equal(decimal.NewFromInt(40)) {
		t.Fatalf("parseAdjustmentInput() = %q, %s, %v", label, amount, err)
	}
	if _, _, err := parseAdjustmentInput("40"); !errors.Is(err, budget.ErrInvalidAmount) {
		t.Fatalf("parseAdjustmentInput(no label) error = %v", err)
	}
}

func TestViewRendersEveryScreen(t *testing.T) {
	m, _ := newTestModel(t)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 140, Height: 60})
	m = next.(model)

	for _, screen := range []screenMode{screenDashboard, screenCalendar, screenHistory, screenSettings} {
		m.screen = screen
		view := m.View()
		if lipgloss.Height(view) < 10 {
			t.Fatalf("screen %d view is too short:\n%s", screen, view)
		}
	}
	m.screen = screenDashboard
	if view := m.View(); !strings.Contains(view, "Car Insurance") {
		t.Fatalf("dashboard view missing bills:\n%s", view)
	}
}
