package main

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/lachiem1/payplan/internal/budget"
)

func TestFindBill(t *testing.T) {
	snap := budget.DefaultSnapshot()

	tests := []struct {
		arg    string
		wantID string
	}{
		{arg: "bill-rent-001", wantID: "bill-rent-001"},
		{arg: "car insurance", wantID: "bill-carins-005"},
		{arg: "bill-visa", wantID: "bill-visa-006"},
	}
	for _, tt := range tests {
		got, err := findBill(snap, tt.arg)
		if err != nil {
			t.Fatalf("findBill(%q) error = %v", tt.arg, err)
		}
		if got.ID != tt.wantID {
			t.Fatalf("findBill(%q) = %q, want %q", tt.arg, got.ID, tt.wantID)
		}
	}

	if _, err := findBill(snap, "bill-"); err == nil {
		t.Fatal("findBill() with an ambiguous prefix should fail")
	}
	if _, err := findBill(snap, "gym"); err == nil {
		t.Fatal("findBill() with no match should fail")
	}
}

func TestFindAdjustment(t *testing.T) {
	rec := budget.PeriodRecord{Adjustments: []budget.Adjustment{
		{ID: "a1b2c3", Label: "Gift", Amount: decimal.NewFromInt(50)},
		{ID: "a1ffff", Label: "Repair", Amount: decimal.NewFromInt(-320)},
	}}

	got, err := findAdjustment(rec, "a1b")
	if err != nil || got.Label != "Gift" {
		t.Fatalf("findAdjustment(a1b) = %+v, %v, want Gift", got, err)
	}
	if _, err := findAdjustment(rec, "a1"); err == nil {
		t.Fatal("findAdjustment(a1) should be ambiguous")
	}
	if _, err := findAdjustment(rec, ""); err == nil {
		t.Fatal("findAdjustment(\"\") should not match")
	}
}

func TestRequireAmount(t *testing.T) {
	got, err := requireAmount("$1,450.50")
	if err != nil || !got.Equal(decimal.RequireFromString("1450.5")) {
		t.Fatalf("requireAmount() = %s, %v", got, err)
	}
	if _, err := requireAmount(" "); err == nil {
		t.Fatal("requireAmount(blank) should fail")
	}
}

func TestValidateNetPay(t *testing.T) {
	if err := validateNetPay("2847.50"); err != nil {
		t.Fatalf("validateNetPay() error = %v", err)
	}
	for _, raw := range []string{"", "0", "-5", "abc"} {
		if err := validateNetPay(raw); err == nil {
			t.Fatalf("validateNetPay(%q) should fail", raw)
		}
	}
}

func TestGoalFlagsApplyOnlyChanged(t *testing.T) {
	var opts goalFlags
	cmd := &cobra.Command{Use: "edit"}
	opts.register(cmd)
	if err := cmd.ParseFlags([]string{"--balance", "1900", "--icon", "🏝️"}); err != nil {
		t.Fatalf("ParseFlags() error = %v", err)
	}

	g, err := findGoal(budget.DefaultSnapshot(), "vacation")
	if err != nil {
		t.Fatalf("findGoal() error = %v", err)
	}
	before := g
	if err := opts.apply(cmd, &g); err != nil {
		t.Fatalf("apply() error = %v", err)
	}
	if !g.CurrentBalance.Equal(decimal.NewFromInt(1900)) || g.Icon != "🏝️" {
		t.Fatalf("goal = %+v, want balance 1900 and new icon", g)
	}
	if g.Name != before.Name || !g.TargetAmount.Equal(before.TargetAmount) || !g.PerCheckAmount.Equal(before.PerCheckAmount) {
		t.Fatalf("unset flags changed the goal: %+v", g)
	}
}

func TestGoalFlagsApplyRejectsBadAmount(t *testing.T) {
	var opts goalFlags
	cmd := &cobra.Command{Use: "edit"}
	opts.register(cmd)
	if err := cmd.ParseFlags([]string{"--target", "lots"}); err != nil {
		t.Fatalf("ParseFlags() error = %v", err)
	}
	g := budget.DefaultSnapshot().Goals[0]
	if err := opts.apply(cmd, &g); !errors.Is(err, budget.ErrInvalidAmount) {
		t.Fatalf("apply() error = %v, want ErrInvalidAmount", err)
	}
}

func TestPayEarlyMessageShowsRemainder(t *testing.T) {
	prepay := decimal.NewFromInt(100)
	s, err := budget.PayEarly(budget.DefaultSnapshot(), "2026-01-09", "bill-rent-001", &prepay)
	if err != nil {
		t.Fatalf("PayEarly() error = %v", err)
	}
	d, err := budget.Reconcile(s, time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	rent, _ := s.BillByID("bill-rent-001")

	got := payEarlyMessage(d, rent, &prepay)
	if want := "prepaying $100.00 of Rent; $1,350.00 still due next period"; got != want {
		t.Fatalf("payEarlyMessage() = %q, want %q", got, want)
	}
	if got := payEarlyMessage(d, rent, nil); got != "paying Rent early" {
		t.Fatalf("payEarlyMessage(full) = %q", got)
	}
}
