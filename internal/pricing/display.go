package pricing

import (
	"math"

	"github.com/shopspring/decimal"
)

// Display is what a product card shows: the price to pay and, when an
// advertisement discounts the product, the struck-through original.
type Display struct {
	Price              float64  `json:"displayPrice"`
	OriginalPrice      *float64 `json:"originalPrice,omitempty"`
	DiscountPercentage float64  `json:"discountPercentage"`
}

// Resolve computes the display price of basePrice under an advertised
// discount percentage. Zero or negative percentages show no discount.
// The percentage is expected to be attached upstream; Resolve looks
// nothing up. Non-finite inputs show no discount.
func Resolve(basePrice, discountPct float64) Display {
	if discountPct <= 0 || discountPct > 100 || !finite(discountPct) || !finite(basePrice) {
		return Display{Price: basePrice}
	}
	base := decimal.NewFromFloat(basePrice)
	factor := decimal.NewFromInt(1).Sub(decimal.NewFromFloat(discountPct).Div(hundred))
	orig := basePrice
	return Display{
		Price:              base.Mul(factor).InexactFloat64(),
		OriginalPrice:      &orig,
		DiscountPercentage: discountPct,
	}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
