package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(value string) decimal.Decimal {
	out, err := decimal.NewFromString(value)
	if err != nil {
		panic(err)
	}
	return out
}

func TestCompute(t *testing.T) {
	testCases := []struct {
		name               string
		targetPrice        decimal.Decimal
		companions         []Line
		discountedPrice    decimal.Decimal
		expectedOriginal   string
		expectedSavings    string
		expectedPercentage int
	}{
		{
			name:        "target plus quantity-weighted companions",
			targetPrice: d("20.00"),
			companions: []Line{
				{Price: d("5.00"), Quantity: 2},
				{Price: d("3.50"), Quantity: 1},
			},
			discountedPrice:    d("25.00"),
			expectedOriginal:   "33.5",
			expectedSavings:    "8.5",
			expectedPercentage: 25,
		},
		{
			name:               "no companions",
			targetPrice:        d("10.00"),
			companions:         nil,
			discountedPrice:    d("8.00"),
			expectedOriginal:   "10",
			expectedSavings:    "2",
			expectedPercentage: 20,
		},
		{
			name:               "zero original price yields zero percentage",
			targetPrice:        decimal.Zero,
			companions:         nil,
			discountedPrice:    decimal.Zero,
			expectedOriginal:   "0",
			expectedSavings:    "0",
			expectedPercentage: 0,
		},
		{
			name:        "unresolvable companion price contributes nothing",
			targetPrice: d("20.00"),
			companions: []Line{
				{Price: decimal.Zero, Quantity: 3},
				{Price: d("4.00"), Quantity: 1},
			},
			discountedPrice:    d("18.00"),
			expectedOriginal:   "24",
			expectedSavings:    "6",
			expectedPercentage: 25,
		},
		{
			name:               "discounted above original surfaces negative savings",
			targetPrice:        d("10.00"),
			companions:         nil,
			discountedPrice:    d("15.00"),
			expectedOriginal:   "10",
			expectedSavings:    "-5",
			expectedPercentage: -50,
		},
		{
			name:        "quantity below one is treated as one",
			targetPrice: d("1.00"),
			companions: []Line{
				{Price: d("2.00"), Quantity: 0},
			},
			discountedPrice:    d("3.00"),
			expectedOriginal:   "3",
			expectedSavings:    "0",
			expectedPercentage: 0,
		},
		{
			name:        "percentage rounds to nearest integer",
			targetPrice: d("30.00"),
			companions: []Line{
				{Price: d("3.50"), Quantity: 1},
			},
			discountedPrice:    d("25.00"),
			expectedOriginal:   "33.5",
			expectedSavings:    "8.5",
			expectedPercentage: 25, // 25.373...
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result := Compute(tc.targetPrice, tc.companions, tc.discountedPrice)

			assert.True(t, d(tc.expectedOriginal).Equal(result.OriginalPrice),
				"original price: expected %s, got %s", tc.expectedOriginal, result.OriginalPrice)
			assert.True(t, tc.discountedPrice.Equal(result.DiscountedPrice))
			assert.True(t, d(tc.expectedSavings).Equal(result.SavingsAmount),
				"savings amount: expected %s, got %s", tc.expectedSavings, result.SavingsAmount)
			assert.Equal(t, tc.expectedPercentage, result.SavingsPercentage)
		})
	}
}

func TestComputeIsDeterministic(t *testing.T) {
	companions := []Line{
		{Price: d("5.00"), Quantity: 2},
		{Price: d("3.50"), Quantity: 1},
	}

	first := Compute(d("20.00"), companions, d("25.00"))
	second := Compute(d("20.00"), companions, d("25.00"))

	assert.True(t, first.OriginalPrice.Equal(second.OriginalPrice))
	assert.True(t, first.SavingsAmount.Equal(second.SavingsAmount))
	assert.Equal(t, first.SavingsPercentage, second.SavingsPercentage)
}

func TestFromCents(t *testing.T) {
	assert.True(t, d("33.50").Equal(FromCents(3350)))
	assert.True(t, d("0.01").Equal(FromCents(1)))
	assert.True(t, decimal.Zero.Equal(FromCents(0)))
}
