// Package pricing holds the pure money rules: discount amounts, order
// totals and the advertised display price of a product.
package pricing

import (
	"github.com/shopspring/decimal"

	"storefront-api/internal/models"
)

var hundred = decimal.NewFromInt(100)

// Rule is the amount-producing part of a discount.
type Rule interface {
	Amount(total decimal.Decimal) decimal.Decimal
}

// Percentage takes Value percent of the total, clamped to Cap when set.
type Percentage struct {
	Value decimal.Decimal
	Cap   *decimal.Decimal
}

func (p Percentage) Amount(total decimal.Decimal) decimal.Decimal {
	amount := total.Mul(p.Value).Div(hundred)
	if p.Cap != nil && amount.GreaterThan(*p.Cap) {
		return *p.Cap
	}
	return amount
}

// Fixed takes a flat Value. It is not clamped to the total.
type Fixed struct {
	Value decimal.Decimal
}

func (f Fixed) Amount(decimal.Decimal) decimal.Decimal { return f.Value }

// NoRule only exists for legacy documents carrying neither amount field;
// such a code validates with a zero amount.
type NoRule struct{}

func (NoRule) Amount(decimal.Decimal) decimal.Decimal { return decimal.Zero }

// RuleOf picks the rule of a stored discount. A positive percentage wins
// over a positive fixed amount; a cap applies only when positive.
func RuleOf(d *models.Discount) Rule {
	switch {
	case positive(d.Percentage):
		p := Percentage{Value: decimal.NewFromFloat(*d.Percentage)}
		if positive(d.MaxDiscountAmount) {
			c := decimal.NewFromFloat(*d.MaxDiscountAmount)
			p.Cap = &c
		}
		return p
	case positive(d.FixedAmount):
		return Fixed{Value: decimal.NewFromFloat(*d.FixedAmount)}
	default:
		return NoRule{}
	}
}

// DiscountAmount applies the discount's rule to a float order total.
func DiscountAmount(d *models.Discount, total float64) float64 {
	return RuleOf(d).Amount(decimal.NewFromFloat(total)).InexactFloat64()
}

// FinalTotal is subtotal minus discount, never below zero.
func FinalTotal(subtotal, discount decimal.Decimal) decimal.Decimal {
	if t := subtotal.Sub(discount); t.IsPositive() {
		return t
	}
	return decimal.Zero
}

func positive(v *float64) bool {
	return v != nil && *v > 0
}
