package budget

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrUnknownBill   = errors.New("unknown bill")
	ErrUnknownPeriod = errors.New("unknown period")
	ErrEmptyLabel    = errors.New("label is required")
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
	return v
}

// FieldErrors maps a field name to a human-readable message.
type FieldErrors map[string]string

func (e FieldErrors) Error() string {
	parts := make([]string, 0, len(e))
	for _, field := range []string{"Name", "Amount", "DueDay", "TargetAmount", "PerCheckAmount", "BillType", "Frequency", "QuarterMonths", "AnnualMonth", "CurrentBalance"} {
		if msg, ok := e[field]; ok {
			parts = append(parts, msg)
		}
	}
	return strings.Join(parts, "; ")
}

var messages = map[string]string{
	"Name":           "Name is required",
	"Amount":         "Amount must be greater than 0",
	"DueDay":         "Due day must be 1–31",
	"TargetAmount":   "Target must be greater than 0",
	"PerCheckAmount": "Per-check amount must be greater than 0",
	"CurrentBalance": "Balance must not be negative",
	"BillType":       "Type must be fixed or variable",
	"Frequency":      "Frequency must be monthly, quarterly or annual",
	"QuarterMonths":  "Quarter months must be 1–12",
	"AnnualMonth":    "Annual month must be 1–12",
}

// ValidateBill checks a bill before it is saved. The name is normalized first.
func ValidateBill(b Bill) error {
	b.Name = NormalizeLabel(b.Name)
	return check(b)
}

// ValidateGoal checks a goal before it is saved.
func ValidateGoal(g Goal) error {
	g.Name = NormalizeLabel(g.Name)
	return check(g)
}

func check(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate: %w", err)
	}
	out := FieldErrors{}
	for _, fe := range verrs {
		field, _, _ := strings.Cut(fe.StructField(), "[")
		if msg, ok := messages[field]; ok {
			out[field] = msg
			continue
		}
		out[field] = fmt.Sprintf("%s is invalid", field)
	}
	return out
}
