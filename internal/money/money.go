// Package money renders ledger amounts for display. Ledger math stays in float64
// percentages; rounding to the currency's minor unit happens only here.
package money

import (
	"fmt"
	"strings"

	gomoney "github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// DefaultCurrency is used when no currency is configured.
const DefaultCurrency = gomoney.USD

// Formatter formats amounts in a single currency.
type Formatter struct {
	cur *gomoney.Currency
}

// NewFormatter returns a Formatter for an ISO 4217 code such as "USD" or "EUR".
func NewFormatter(code string) (*Formatter, error) {
	if code == "" {
		code = DefaultCurrency
	}
	cur := gomoney.GetCurrency(strings.ToUpper(code))
	if cur == nil {
		return nil, fmt.Errorf("unknown currency %q", code)
	}
	return &Formatter{cur: cur}, nil
}

// MustFormatter is NewFormatter for codes known at compile time.
func MustFormatter(code string) *Formatter {
	f, err := NewFormatter(code)
	if err != nil {
		panic(err)
	}
	return f
}

// Code returns the currency code.
func (f *Formatter) Code() string { return f.cur.Code }

// Round rounds amount half away from zero to the currency's minor unit.
func (f *Formatter) Round(amount float64) float64 {
	return decimal.NewFromFloat(amount).Round(int32(f.cur.Fraction)).InexactFloat64()
}

// MinorUnits converts amount to an integer count of the minor unit (cents for USD).
func (f *Formatter) MinorUnits(amount float64) int64 {
	return decimal.NewFromFloat(amount).Round(int32(f.cur.Fraction)).Shift(int32(f.cur.Fraction)).IntPart()
}

// Format renders amount with the currency symbol, e.g. "$1,234.50" or "-$3.00".
func (f *Formatter) Format(amount float64) string {
	return f.cur.Formatter().Format(f.MinorUnits(amount))
}

// IsZero reports whether amount rounds to zero in this currency.
func (f *Formatter) IsZero(amount float64) bool {
	return f.MinorUnits(amount) == 0
}

// Describe phrases a signed balance from the viewer's side:
// positive "gets back $X", negative "owes $X", otherwise "settled up".
func (f *Formatter) Describe(balance float64) string {
	units := f.MinorUnits(balance)
	switch {
	case units > 0:
		return "gets back " + f.cur.Formatter().Format(units)
	case units < 0:
		return "owes " + f.cur.Formatter().Format(-units)
	default:
		return "settled up"
	}
}
