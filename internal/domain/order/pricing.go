package order

import "github.com/shopspring/decimal"

// Pricing policy. Amounts are in rupees with two decimal places.
var (
	FreeShippingThreshold = decimal.NewFromInt(999)
	FlatShippingFee       = decimal.NewFromInt(99)
	TaxRate               = decimal.RequireFromString("0.18")
)

type Totals struct {
	Subtotal     decimal.Decimal
	ShippingCost decimal.Decimal
	Tax          decimal.Decimal
	Total        decimal.Decimal
}

// ComputeTotals prices items from their snapshot unit prices. Shipping is free
// strictly above the threshold; tax is rounded to paise.
func ComputeTotals(items []Item) Totals {
	subtotal := decimal.Zero
	for _, it := range items {
		subtotal = subtotal.Add(it.LineTotal())
	}
	subtotal = subtotal.Round(2)

	shipping := FlatShippingFee
	if subtotal.GreaterThan(FreeShippingThreshold) {
		shipping = decimal.Zero
	}
	tax := subtotal.Mul(TaxRate).Round(2)

	return Totals{
		Subtotal:     subtotal,
		ShippingCost: shipping,
		Tax:          tax,
		Total:        subtotal.Add(shipping).Add(tax),
	}
}

// MinorUnits returns the total in paise, as payment providers expect.
func (t Totals) MinorUnits() int64 {
	return t.Total.Shift(2).Round(0).IntPart()
}
