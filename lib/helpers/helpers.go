package helpers

import (
	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

// FormatPrice renders a price for display with thousand separators and a
// precision scaled to its magnitude.
func FormatPrice(price decimal.Decimal) string {
	v, _ := price.Float64()

	decimals := 6
	switch {
	case v >= 1000:
		decimals = 2
	case v > 1.2:
		decimals = 2
	case v < 0.00001:
		decimals = 8
	}

	return humanize.CommafWithDigits(v, decimals)
}
