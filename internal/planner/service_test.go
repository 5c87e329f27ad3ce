package planner

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lachiem1/payplan/internal/budget"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	clock := func() time.Time { return time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC) }
	return NewService(NewStore(budget.DefaultSnapshot()), WithClock(clock))
}

func TestServiceDashboardInitializesAllocations(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	d, err := svc.Dashboard()
	if err != nil {
		t.Fatalf("Dashboard() error = %v", err)
	}
	if got := d.Current.Key(); got != "2026-01-09" {
		t.Fatalf("Current.Key() = %q", got)
	}

	snap := svc.Snapshot()
	if got := len(snap.Period("2026-01-09").Bills); got != 3 {
		t.Fatalf("current allocations = %d, want 3", got)
	}
	if got := len(snap.Period("2026-01-23").Bills); got != 2 {
		t.Fatalf("next allocations = %d, want 2", got)
	}

	gen := svc.Store().Current().Generation
	if _, err := svc.Dashboard(); err != nil {
		t.Fatalf("Dashboard() error = %v", err)
	}
	if got := svc.Store().Current().Generation; got != gen {
		t.Fatalf("second Dashboard() bumped generation %d -> %d", gen, got)
	}
}

func TestServiceEditsDefaultToCurrentPeriod(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	if err := svc.DeferBill("", "bill-phone-004"); err != nil {
		t.Fatalf("DeferBill() error = %v", err)
	}
	a, ok := svc.Snapshot().Period("2026-01-09").Allocation("bill-phone-004")
	if !ok || !a.Status.IsDeferred() {
		t.Fatalf("allocation = %+v, %v; want deferred", a, ok)
	}
}

func TestServiceRejectsMisalignedKey(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	err := svc.TogglePaid("2026-01-10", "bill-phone-004")
	if !errors.Is(err, budget.ErrUnknownPeriod) {
		t.Fatalf("TogglePaid() error = %v, want ErrUnknownPeriod", err)
	}
}

func TestServiceClosedPeriodRefusesEdits(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	entry, err := svc.ClosePeriod("")
	if err != nil {
		t.Fatalf("ClosePeriod() error = %v", err)
	}
	if entry.PeriodKey != "2026-01-09" {
		t.Fatalf("entry.PeriodKey = %q", entry.PeriodKey)
	}

	checks := map[string]error{
		"toggle": svc.TogglePaid("", "bill-phone-004"),
		"split":  svc.SplitBill("", "bill-visa-006", decimal.NewFromInt(10)),
		"close":  func() error { _, err := svc.ClosePeriod(""); return err }(),
		"adjust": func() error { _, err := svc.AddAdjustment("", "Gift", decimal.NewFromInt(5)); return err }(),
	}
	for name, err := range checks {
		if !errors.Is(err, ErrPeriodClosed) {
			t.Fatalf("%s on closed period error = %v, want ErrPeriodClosed", name, err)
		}
	}

	// Other periods stay editable.
	if err := svc.TogglePaid("2026-01-23", "bill-rent-001"); err != nil {
		t.Fatalf("TogglePaid(next) error = %v", err)
	}

	if err := svc.ReopenPeriod(""); err != nil {
		t.Fatalf("ReopenPeriod() error = %v", err)
	}
	if err := svc.TogglePaid("", "bill-phone-004"); err != nil {
		t.Fatalf("TogglePaid() after reopen error = %v", err)
	}
	if err := svc.ReopenPeriod(""); !errors.Is(err, ErrPeriodOpen) {
		t.Fatalf("ReopenPeriod(open) error = %v, want ErrPeriodOpen", err)
	}
	if len(svc.Snapshot().PeriodHistory) != 0 {
		t.Fatalf("history not empty after reopen")
	}
}

func TestServiceAdjustments(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	adj, err := svc.AddAdjustment("", "Bonus", decimal.NewFromInt(300))
	if err != nil {
		t.Fatalf("AddAdjustment() error = %v", err)
	}
	d, err := svc.Dashboard()
	if err != nil {
		t.Fatalf("Dashboard() error = %v", err)
	}
	if !d.Totals.AdjustmentsTotal.Equal(decimal.NewFromInt(300)) {
		t.Fatalf("AdjustmentsTotal = %s", d.Totals.AdjustmentsTotal)
	}
	if err := svc.RemoveAdjustment("", adj.ID); err != nil {
		t.Fatalf("RemoveAdjustment() error = %v", err)
	}
	if err := svc.RemoveAdjustment("", adj.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("RemoveAdjustment(again) error = %v, want ErrNotFound", err)
	}
}

func TestServiceSaveBill(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	saved, err := svc.SaveBill(budget.Bill{
		Name:      "  Streaming ",
		BillType:  budget.BillFixed,
		Amount:    decimal.RequireFromString("15.99"),
		DueDay:    18,
		Frequency: budget.FrequencyMonthly,
		IsActive:  true,
	})
	if err != nil {
		t.Fatalf("SaveBill() error = %v", err)
	}
	if saved.ID == "" || saved.Name != "Streaming" {
		t.Fatalf("SaveBill() = %+v", saved)
	}
	if len(svc.Snapshot().Bills) != 7 {
		t.Fatalf("bills = %d, want 7", len(svc.Snapshot().Bills))
	}

	if err := svc.SetBillActive(saved.ID, false); err != nil {
		t.Fatalf("SetBillActive() error = %v", err)
	}
	d, err := svc.Dashboard()
	if err != nil {
		t.Fatalf("Dashboard() error = %v", err)
	}
	if _, ok := d.Line(saved.ID); ok {
		t.Fatalf("inactive bill on current list")
	}

	if _, err := svc.SaveBill(budget.Bill{Name: "", Amount: decimal.Zero}); err == nil {
		t.Fatalf("SaveBill(invalid) error = nil")
	}
	if err := svc.DeleteBill(saved.ID); err != nil {
		t.Fatalf("DeleteBill() error = %v", err)
	}
	if err := svc.DeleteBill(saved.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("DeleteBill(again) error = %v, want ErrNotFound", err)
	}
}

func TestServiceUpdateSettings(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	settings := svc.Snapshot().Settings
	settings.FirstPayDate = "2026-01-02"
	if err := svc.UpdateSettings(settings); err != nil {
		t.Fatalf("UpdateSettings() error = %v", err)
	}
	key, err := svc.CurrentKey()
	if err != nil {
		t.Fatalf("CurrentKey() error = %v", err)
	}
	if key != "2026-01-02" {
		t.Fatalf("CurrentKey() = %q, want 2026-01-02", key)
	}

	settings.FirstPayDate = "soon"
	if err := svc.UpdateSettings(settings); err == nil {
		t.Fatalf("UpdateSettings(bad date) error = nil")
	}
}

func TestServiceRejectsUnknownBill(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	gen := svc.Store().Current().Generation
	if err := svc.TogglePaid("", "bill-missing"); !errors.Is(err, budget.ErrUnknownBill) {
		t.Fatalf("TogglePaid() error = %v, want ErrUnknownBill", err)
	}
	if err := svc.PayEarly("", "bill-missing", nil); !errors.Is(err, budget.ErrUnknownBill) {
		t.Fatalf("PayEarly() error = %v, want ErrUnknownBill", err)
	}
	if got := svc.Store().Current().Generation; got != gen {
		t.Fatalf("generation = %d after rejected edits, want %d", got, gen)
	}
	if _, ok := svc.Snapshot().Allocations["2026-01-09"].Bills["bill-missing"]; ok {
		t.Fatal("allocation written for an unknown bill")
	}
}

func TestServicePayEarlyNeedsBillDueNext(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	// Phone is due on the 12th, inside the current period, not the next.
	if err := svc.PayEarly("", "bill-phone-004", nil); !errors.Is(err, ErrNotDueNext) {
		t.Fatalf("PayEarly(phone) error = %v, want ErrNotDueNext", err)
	}

	// Rent is due on 1 February, inside 2026-01-23 .. 2026-02-05.
	if err := svc.PayEarly("", "bill-rent-001", nil); err != nil {
		t.Fatalf("PayEarly(rent) error = %v", err)
	}
	a, ok := svc.Snapshot().Period("2026-01-09").Allocation("bill-rent-001")
	if !ok || !a.Status.IsPaidEarly() {
		t.Fatalf("rent allocation = %+v, %v; want paid early", a, ok)
	}
}

func TestServiceReset(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	if _, err := svc.AddAdjustment("", "Gift", decimal.NewFromInt(5)); err != nil {
		t.Fatalf("AddAdjustment() error = %v", err)
	}
	if err := svc.DeleteGoal("goal-laptop-003"); err != nil {
		t.Fatalf("DeleteGoal() error = %v", err)
	}
	var changes []Change
	svc.Store().Subscribe(func(c Change) { changes = append(changes, c) })

	if err := svc.Reset(); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	snap := svc.Snapshot()
	if len(snap.Goals) != 3 || len(snap.Allocations) != 0 {
		t.Fatalf("after reset: %d goals, %d period records", len(snap.Goals), len(snap.Allocations))
	}
	if len(changes) != 1 || changes[0].Origin != OriginLocal || changes[0].Generation != 3 {
		t.Fatalf("changes = %+v, want one local change at generation 3", changes)
	}
}
