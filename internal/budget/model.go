// Package budget implements the pay period and allocation reconciliation engine.
//
// Everything in this package is a pure transformation over a Snapshot: period
// generation, recurrence matching, effective bill derivation, totals and the
// mutation reducers. Persistence and sync live elsewhere.
package budget

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

type BillType string

const (
	BillFixed    BillType = "fixed"
	BillVariable BillType = "variable"
)

type Frequency string

const (
	FrequencyMonthly   Frequency = "monthly"
	FrequencyQuarterly Frequency = "quarterly"
	FrequencyAnnual    Frequency = "annual"
)

type PayFrequency string

const PayBiweekly PayFrequency = "biweekly"

// Settings is the single user-editable settings record.
type Settings struct {
	DefaultNetPay decimal.Decimal `json:"defaultNetPay"`
	PayFrequency  PayFrequency    `json:"payFrequency"`
	// FirstPayDate anchors the period tiling, formatted YYYY-MM-DD.
	FirstPayDate string `json:"firstPayDate"`
}

// Bill is a recurring obligation. Inactive bills keep their historical
// allocations but never match a period.
type Bill struct {
	ID            string          `json:"id"`
	Name          string          `json:"name" validate:"required"`
	BillType      BillType        `json:"billType" validate:"oneof=fixed variable"`
	Amount        decimal.Decimal `json:"amount" validate:"gt=0"`
	DueDay        int             `json:"dueDay" validate:"min=1,max=31"`
	Frequency     Frequency       `json:"frequency" validate:"oneof=monthly quarterly annual"`
	QuarterMonths QuarterMonths   `json:"quarterMonths,omitempty" validate:"omitempty,dive,min=1,max=12"`
	AnnualMonth   int             `json:"annualMonth,omitempty" validate:"omitempty,min=1,max=12"`
	IsActive      bool            `json:"isActive"`
}

// Fixed reports whether the bill amount is known up front.
func (b Bill) Fixed() bool {
	return b.BillType == BillFixed
}

// Goal is a savings goal drawing a constant amount from every paycheck while active.
type Goal struct {
	ID             string          `json:"id"`
	Name           string          `json:"name" validate:"required"`
	Icon           string          `json:"icon,omitempty"`
	TargetAmount   decimal.Decimal `json:"targetAmount" validate:"gt=0"`
	CurrentBalance decimal.Decimal `json:"currentBalance" validate:"gte=0"`
	PerCheckAmount decimal.Decimal `json:"perCheckAmount" validate:"gt=0"`
	IsActive       bool            `json:"isActive"`
}

// Progress returns the percentage of the target reached, capped at 100.
func (g Goal) Progress() int {
	if !g.TargetAmount.IsPositive() {
		return 0
	}
	pct := g.CurrentBalance.Div(g.TargetAmount).Mul(decimal.NewFromInt(100)).Round(0).IntPart()
	if pct > 100 {
		return 100
	}
	if pct < 0 {
		return 0
	}
	return int(pct)
}

// QuarterMonths lists the months (1-12) a quarterly bill is due in.
//
// It decodes from a JSON array or from the comma separated string form
// ("1,4,7,10") older snapshots carry.
type QuarterMonths []int

func (q *QuarterMonths) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		*q = nil
		return nil
	}
	if trimmed[0] == '"' {
		var raw string
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return fmt.Errorf("decode quarter months: %w", err)
		}
		months, err := ParseQuarterMonths(raw)
		if err != nil {
			return err
		}
		*q = months
		return nil
	}

	var months []int
	if err := json.Unmarshal(trimmed, &months); err != nil {
		return fmt.Errorf("decode quarter months: %w", err)
	}
	*q = months
	return nil
}

// ParseQuarterMonths parses "1,4,7,10". Empty input yields nil.
func ParseQuarterMonths(raw string) (QuarterMonths, error) {
	var out QuarterMonths
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		m, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid quarter month %q", part)
		}
		out = append(out, m)
	}
	return out, nil
}

func (q QuarterMonths) String() string {
	parts := make([]string, len(q))
	for i, m := range q {
		parts[i] = strconv.Itoa(m)
	}
	return strings.Join(parts, ",")
}
