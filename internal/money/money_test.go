package money

import (
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestTaxDefaultRate(t *testing.T) {
	tax := Tax(dec("100"), DefaultTaxRate)
	if !tax.Equal(dec("16")) {
		t.Fatalf("expected tax 16, got %s", tax)
	}
	total := TotalWithTax(dec("100"), DefaultTaxRate)
	if !total.Equal(dec("116")) {
		t.Fatalf("expected total 116, got %s", total)
	}
}

func TestSeparateTaxRoundTrip(t *testing.T) {
	subtotal, tax := SeparateTax(dec("116"), 16)

	tolerance := dec("0.0001")
	if subtotal.Sub(dec("100")).Abs().GreaterThan(tolerance) {
		t.Fatalf("expected subtotal ~100, got %s", subtotal)
	}
	if tax.Sub(dec("16")).Abs().GreaterThan(tolerance) {
		t.Fatalf("expected tax ~16, got %s", tax)
	}

	rebuilt := subtotal.Add(Tax(subtotal, 16))
	if rebuilt.Sub(dec("116")).Abs().GreaterThan(tolerance) {
		t.Fatalf("round trip drifted: %s", rebuilt)
	}
}

func TestApplyDiscountFloorsAtZero(t *testing.T) {
	if got := ApplyDiscount(dec("50"), dec("10"), false); !got.Equal(dec("40")) {
		t.Fatalf("absolute discount: expected 40, got %s", got)
	}
	if got := ApplyDiscount(dec("50"), dec("10"), true); !got.Equal(dec("45")) {
		t.Fatalf("percent discount: expected 45, got %s", got)
	}
	if got := ApplyDiscount(dec("50"), dec("80"), false); !got.IsZero() {
		t.Fatalf("oversized discount must floor at zero, got %s", got)
	}
}

func TestRoundToNearestHalfUp(t *testing.T) {
	cases := []struct {
		value string
		want  string
	}{
		{"12.74", "12.50"},
		{"12.75", "13.00"},
		{"12.24", "12.00"},
		{"12.25", "12.50"},
		{"0", "0"},
	}
	for _, tc := range cases {
		got := RoundToNearest(dec(tc.value), DefaultRounding)
		if !got.Equal(dec(tc.want)) {
			t.Fatalf("RoundToNearest(%s, 0.50) = %s, want %s", tc.value, got, tc.want)
		}
	}

	// Non-positive denomination leaves the value alone.
	if got := RoundToNearest(dec("12.74"), decimal.Zero); !got.Equal(dec("12.74")) {
		t.Fatalf("zero denomination must be a no-op, got %s", got)
	}
}

func TestChange(t *testing.T) {
	if got := Change(dec("87.50"), dec("100")); !got.Equal(dec("12.50")) {
		t.Fatalf("expected change 12.50, got %s", got)
	}
	if got := Change(dec("100"), dec("80")); !got.IsZero() {
		t.Fatalf("short payment must yield zero change, got %s", got)
	}
}

func TestParseTolerant(t *testing.T) {
	if d, ok := Parse("$1,234.50"); !ok || !d.Equal(dec("1234.50")) {
		t.Fatalf("expected 1234.50, got %s ok=%t", d, ok)
	}
	if d, ok := Parse("  12.5 "); !ok || !d.Equal(dec("12.5")) {
		t.Fatalf("expected 12.5, got %s ok=%t", d, ok)
	}
	for _, bad := range []string{"", "abc", "12.3.4", "$"} {
		if d, ok := Parse(bad); ok || !d.IsZero() {
			t.Fatalf("Parse(%q) should be zero/false, got %s ok=%t", bad, d, ok)
		}
	}
}

func TestFormatCurrencyZeroOnBadValue(t *testing.T) {
	if got := FormatCurrency(decimal.Decimal{}); got != "$0.00" {
		t.Fatalf("zero-value decimal should format as $0.00, got %q", got)
	}
	if got := FormatCurrency(dec("1234.5")); got != "$1,234.50" {
		t.Fatalf("expected $1,234.50, got %q", got)
	}
}
