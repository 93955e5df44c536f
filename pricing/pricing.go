// Package pricing computes bundle price breakdowns. Compute is the single
// canonical pricing formula: the admin service applies it at save time and
// the widget applies it again at render time from independently fetched
// prices, so it must stay pure and deterministic.
package pricing

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// Line is one companion product's contribution to the original price.
type Line struct {
	Price    decimal.Decimal
	Quantity int
}

// Breakdown is the computed price summary of a bundle.
type Breakdown struct {
	OriginalPrice     decimal.Decimal
	DiscountedPrice   decimal.Decimal
	SavingsAmount     decimal.Decimal
	SavingsPercentage int
}

// Compute derives a bundle's price breakdown from the target product price,
// the companion lines and the merchant-set discounted price. All amounts are
// decimal dollars. Unresolvable prices are passed in as zero and contribute
// nothing. SavingsAmount may be negative when the merchant set a discounted
// price above the original; that is surfaced, not rejected.
func Compute(targetPrice decimal.Decimal, companions []Line, discountedPrice decimal.Decimal) Breakdown {
	original := targetPrice
	for _, line := range companions {
		qty := line.Quantity
		if qty < 1 {
			qty = 1
		}
		original = original.Add(line.Price.Mul(decimal.NewFromInt(int64(qty))))
	}

	savings := original.Sub(discountedPrice)

	percentage := 0
	if original.IsPositive() {
		percentage = int(savings.Mul(hundred).Div(original).Round(0).IntPart())
	}

	return Breakdown{
		OriginalPrice:     original,
		DiscountedPrice:   discountedPrice,
		SavingsAmount:     savings,
		SavingsPercentage: percentage,
	}
}

// FromCents converts an integer cent amount (the storefront's public product
// JSON unit) into decimal dollars, the canonical unit for Compute.
func FromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}
