package main

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/lachiem1/payplan/internal/budget"
)

// findBill matches a bill by exact id, then by case-insensitive name, then
// by unique id prefix.
func findBill(snap budget.Snapshot, arg string) (budget.Bill, error) {
	arg = strings.TrimSpace(arg)
	if b, ok := snap.BillByID(arg); ok {
		return b, nil
	}
	var byPrefix []budget.Bill
	for _, b := range snap.Bills {
		if strings.EqualFold(b.Name, arg) {
			return b, nil
		}
		if arg != "" && strings.HasPrefix(b.ID, arg) {
			byPrefix = append(byPrefix, b)
		}
	}
	switch len(byPrefix) {
	case 1:
		return byPrefix[0], nil
	case 0:
		return budget.Bill{}, fmt.Errorf("no bill matches %q", arg)
	default:
		return budget.Bill{}, fmt.Errorf("%q matches %d bills; use the full id", arg, len(byPrefix))
	}
}

func findGoal(snap budget.Snapshot, arg string) (budget.Goal, error) {
	arg = strings.TrimSpace(arg)
	for _, g := range snap.Goals {
		if g.ID == arg || strings.EqualFold(g.Name, arg) {
			return g, nil
		}
	}
	return budget.Goal{}, fmt.Errorf("no goal matches %q", arg)
}

func findAdjustment(rec budget.PeriodRecord, prefix string) (budget.Adjustment, error) {
	var found []budget.Adjustment
	for _, a := range rec.Adjustments {
		if prefix != "" && strings.HasPrefix(a.ID, prefix) {
			found = append(found, a)
		}
	}
	switch len(found) {
	case 1:
		return found[0], nil
	case 0:
		return budget.Adjustment{}, fmt.Errorf("no adjustment id starts with %q", prefix)
	default:
		return budget.Adjustment{}, fmt.Errorf("%q matches %d adjustments", prefix, len(found))
	}
}

// requireAmount parses a money argument that must be present.
func requireAmount(raw string) (decimal.Decimal, error) {
	d, err := budget.ParseMoney(raw)
	if err != nil {
		return decimal.Zero, err
	}
	if d == nil {
		return decimal.Zero, fmt.Errorf("%w: amount is required", budget.ErrInvalidAmount)
	}
	return *d, nil
}
