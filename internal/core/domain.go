package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
)

// Form field names, in display order.
const (
	FieldDate        = "date"
	FieldDescription = "description"
	FieldCategory    = "category"
	FieldAmount      = "amount"
)

type (
	// Expense is a record as returned by the remote source.
	Expense struct {
		ID          string  `json:"_id"`
		Date        string  `json:"date"`
		Description string  `json:"description"`
		Category    string  `json:"category"`
		Amount      float64 `json:"amount"`
	}

	// NewExpense is the body of a create request. Amount may be NaN when the
	// draft amount had no numeric prefix.
	NewExpense struct {
		Date        string
		Description string
		Category    string
		Amount      float64
	}

	// Draft holds the raw form input. It is never persisted.
	Draft struct {
		Date        string
		Description string
		Category    string
		Amount      string
	}
)

var (
	ErrMissingField = errors.New("missing required field")
	ErrUnknownField = errors.New("unknown field")
)

// Fields returns the draft field names in display order.
func Fields() []string {
	return []string{FieldDate, FieldDescription, FieldCategory, FieldAmount}
}

// MarshalJSON writes non-finite amounts as null, matching what a browser
// JSON.stringify produces for NaN and Infinity.
func (n NewExpense) MarshalJSON() ([]byte, error) {
	var amount *float64
	if !math.IsNaN(n.Amount) && !math.IsInf(n.Amount, 0) {
		amount = &n.Amount
	}
	return json.Marshal(struct {
		Date        string   `json:"date"`
		Description string   `json:"description"`
		Category    string   `json:"category"`
		Amount      *float64 `json:"amount"`
	}{n.Date, n.Description, n.Category, amount})
}

// Get returns the value of the named field.
func (d Draft) Get(field string) (string, error) {
	switch field {
	case FieldDate:
		return d.Date, nil
	case FieldDescription:
		return d.Description, nil
	case FieldCategory:
		return d.Category, nil
	case FieldAmount:
		return d.Amount, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownField, field)
}

// Set updates the named field in place.
func (d *Draft) Set(field, value string) error {
	switch field {
	case FieldDate:
		d.Date = value
	case FieldDescription:
		d.Description = value
	case FieldCategory:
		d.Category = value
	case FieldAmount:
		d.Amount = value
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	return nil
}

// Missing lists the empty fields in display order. Whitespace counts as a
// value.
func (d Draft) Missing() []string {
	var out []string
	for _, f := range Fields() {
		if v, _ := d.Get(f); v == "" {
			out = append(out, f)
		}
	}
	return out
}

// Validate reports whether every field is filled in. It checks presence only;
// the amount is not required to be numeric.
func (d Draft) Validate() error {
	if missing := d.Missing(); len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingField, strings.Join(missing, ", "))
	}
	return nil
}

// IsEmpty is true for a freshly reset draft.
func (d Draft) IsEmpty() bool {
	return d == Draft{}
}

// NewExpense builds the create request, coercing the amount with ParseAmount.
func (d Draft) NewExpense() NewExpense {
	return NewExpense{
		Date:        d.Date,
		Description: d.Description,
		Category:    d.Category,
		Amount:      ParseAmount(d.Amount),
	}
}
