package catalog

import (
	"fmt"
	"math"
	"strconv"
)

var currencySymbols = map[string]string{
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
}

// UnitMajor returns the whole major-unit price, flooring away any
// fractional cents. This is the unit the cart subtotal is built from.
func UnitMajor(p Price) int64 {
	return p.Value / 100
}

// SubtotalMajor sums floor(unit/100)*quantity over the given unit prices
// and quantities, which must be parallel slices.
func SubtotalMajor(prices []Price, quantities []int64) int64 {
	var total int64
	for i, p := range prices {
		total += UnitMajor(p) * quantities[i]
	}
	return total
}

// LineMajor returns unit/100*quantity without flooring the unit first.
// For fractional-cent prices this can round differently from the subtotal
// path; the divergence is intentional and matches the shop front end.
func LineMajor(p Price, quantity int64) float64 {
	return float64(p.Value) / 100 * float64(quantity)
}

// FormatMajor renders a major-unit amount as a zero-decimal currency
// string, e.g. FormatMajor(1450.0, "USD") == "$1,450".
func FormatMajor(amount float64, currency string) string {
	symbol, ok := currencySymbols[currency]
	if !ok {
		symbol = currency + " "
	}
	rounded := int64(math.Round(amount))
	return symbol + groupThousands(rounded)
}

func groupThousands(n int64) string {
	neg := n < 0
	if neg {
		n = -n
	}
	s := strconv.FormatInt(n, 10)
	if len(s) > 3 {
		var out []byte
		for i, c := range []byte(s) {
			if i > 0 && (len(s)-i)%3 == 0 {
				out = append(out, ',')
			}
			out = append(out, c)
		}
		s = string(out)
	}
	if neg {
		return fmt.Sprintf("-%s", s)
	}
	return s
}
