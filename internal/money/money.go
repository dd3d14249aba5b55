// Package money holds the pure numeric helpers shared by the cart,
// shift and inventory layers: tax computation, tax separation for
// tax-inclusive prices, discount application and cash rounding. All
// functions are total over their numeric domain; bad input formats as a
// zero value instead of failing.
package money

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// DefaultTaxRate is the IVA percentage applied when a caller does not
// supply one.
const DefaultTaxRate = 16.0

// DefaultRounding is the cash denomination tendering rounds to.
var DefaultRounding = decimal.New(50, -2) // 0.50

var hundred = decimal.NewFromInt(100)

// es-MX grouping and decimal separators, matching the receipts the
// rest of the product prints.
var printer = message.NewPrinter(language.MustParse("es-MX"))

// Tax returns the tax portion of a tax-exclusive amount. A rate at or
// below zero falls back to DefaultTaxRate only when negative is not
// meaningful; zero means tax-free and is honored.
func Tax(amount decimal.Decimal, ratePercent float64) decimal.Decimal {
	if ratePercent < 0 {
		ratePercent = 0
	}
	rate := decimal.NewFromFloat(ratePercent).Div(hundred)
	return amount.Mul(rate)
}

// TotalWithTax returns amount plus its tax portion.
func TotalWithTax(amount decimal.Decimal, ratePercent float64) decimal.Decimal {
	return amount.Add(Tax(amount, ratePercent))
}

// SeparateTax splits a tax-inclusive total into its tax-exclusive
// subtotal and tax, via subtotal = total / (1 + rate/100).
func SeparateTax(totalWithTax decimal.Decimal, ratePercent float64) (subtotal, tax decimal.Decimal) {
	if ratePercent < 0 {
		ratePercent = 0
	}
	divisor := decimal.NewFromInt(1).Add(decimal.NewFromFloat(ratePercent).Div(hundred))
	subtotal = totalWithTax.Div(divisor)
	tax = totalWithTax.Sub(subtotal)
	return subtotal, tax
}

// Discount returns the discount amount for a price: value percent of
// the price when percentage is true, the absolute value otherwise.
func Discount(price, value decimal.Decimal, percentage bool) decimal.Decimal {
	if percentage {
		return price.Mul(value).Div(hundred)
	}
	return value
}

// ApplyDiscount subtracts the discount from the price, floored at
// zero. The floor is on the final price, not the input, so a discount
// larger than the price is not an error.
func ApplyDiscount(price, value decimal.Decimal, percentage bool) decimal.Decimal {
	result := price.Sub(Discount(price, value, percentage))
	if result.IsNegative() {
		return decimal.Zero
	}
	return result
}

// RoundToNearest rounds a value to the nearest cash denomination with
// round-half-up semantics, e.g. RoundToNearest(12.74, 0.50) = 12.50 and
// RoundToNearest(12.75, 0.50) = 13.00. A non-positive denomination
// returns the value unchanged.
func RoundToNearest(value, denomination decimal.Decimal) decimal.Decimal {
	if !denomination.IsPositive() {
		return value
	}
	return value.Div(denomination).Round(0).Mul(denomination)
}

// Change returns the cash to hand back, floored at zero when the
// received amount does not cover the total.
func Change(total, received decimal.Decimal) decimal.Decimal {
	change := received.Sub(total)
	if change.IsNegative() {
		return decimal.Zero
	}
	return change
}

// Parse reads a display-formatted amount ("$1,234.50", "12.5", " 3 ").
// Unparseable input yields zero and ok=false rather than an error.
func Parse(s string) (decimal.Decimal, bool) {
	cleaned := strings.TrimSpace(s)
	cleaned = strings.ReplaceAll(cleaned, "$", "")
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	if cleaned == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// FormatCurrency renders an amount as es-MX currency, "$1,234.50".
func FormatCurrency(d decimal.Decimal) string {
	f, _ := d.Float64()
	return printer.Sprintf("$%v", number.Decimal(f,
		number.MinFractionDigits(2), number.MaxFractionDigits(2)))
}

// FormatNumber renders an amount without the currency symbol, with up
// to two fraction digits.
func FormatNumber(d decimal.Decimal) string {
	f, _ := d.Float64()
	return printer.Sprintf("%v", number.Decimal(f, number.MaxFractionDigits(2)))
}

// FormatPercent renders a rate as "16.00%".
func FormatPercent(ratePercent float64) string {
	return printer.Sprintf("%v%%", number.Decimal(ratePercent,
		number.MinFractionDigits(2), number.MaxFractionDigits(2)))
}
