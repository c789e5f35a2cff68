// Package cost computes the monetary breakdown of a service order.
//
// All amounts are carried at full decimal precision. Rounding to cents is a
// presentation concern and happens only when a document is rendered.
package cost

import (
	"strings"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// PartCost is a single replaced part and what it cost.
type PartCost struct {
	Name string          `json:"name"`
	Cost decimal.Decimal `json:"cost"`
}

// Breakdown is the result of Compute.
type Breakdown struct {
	PartsSubtotal  decimal.Decimal
	Subtotal       decimal.Decimal
	DiscountAmount decimal.Decimal
	Total          decimal.Decimal
}

// Compute sums parts and labor and applies a percentage discount to the
// combined subtotal. The total never goes below zero, even when a caller
// passes a discount above 100%.
func Compute(parts []PartCost, labor, discountPercent decimal.Decimal) Breakdown {
	partsSubtotal := decimal.Zero
	for _, p := range parts {
		partsSubtotal = partsSubtotal.Add(p.Cost)
	}

	subtotal := partsSubtotal.Add(labor)
	discount := decimal.Zero
	if discountPercent.IsPositive() {
		discount = subtotal.Mul(discountPercent).Div(hundred)
	}

	total := subtotal.Sub(discount)
	if total.IsNegative() {
		total = decimal.Zero
	}

	return Breakdown{
		PartsSubtotal:  partsSubtotal,
		Subtotal:       subtotal,
		DiscountAmount: discount,
		Total:          total,
	}
}

// ParseCostLenient parses a user-entered monetary value. Empty, malformed and
// negative inputs yield zero instead of an error. A comma is accepted as the
// decimal separator when the value has no dot, so "150,50" parses as 150.50.
func ParseCostLenient(s string) decimal.Decimal {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero
	}
	if !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	v, err := decimal.NewFromString(s)
	if err != nil || v.IsNegative() {
		return decimal.Zero
	}
	return v
}

// ParseLine builds a PartCost from raw form values. Lines without a name are
// dropped and reported with ok=false.
func ParseLine(name, rawCost string) (part PartCost, ok bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return PartCost{}, false
	}
	return PartCost{Name: name, Cost: ParseCostLenient(rawCost)}, true
}
