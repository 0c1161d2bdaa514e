package order

import (
	"github.com/shopspring/decimal"

	"github.com/ameliamart/storefront/internal/product"
)

// PricingConfig carries the store settings a checkout prices against,
// read as of transaction time and injected rather than ambient.
type PricingConfig struct {
	TaxRate               decimal.Decimal // percent, e.g. 2.5
	ShippingFee           decimal.Decimal
	FreeShippingThreshold decimal.Decimal
}

type Totals struct {
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Shipping decimal.Decimal
	Total    decimal.Decimal
}

var oneHundred = decimal.NewFromInt(100)

// PriceCart turns an untrusted cart into priced order items plus totals.
// Every line is resolved against the authoritative product rows; unknown
// products or short stock fail the whole cart, never part of it. Unit
// prices come from the catalog rows only.
//
// Totals: subtotal = Σ price×qty; shipping is waived at or above the
// free-shipping threshold; tax = subtotal × rate%. Money stays decimal
// throughout and is rounded to 2 places where the figures are fixed on
// the order.
func PriceCart(products []product.Product, lines []CartLine, cfg PricingConfig) ([]Item, Totals, error) {
	byID := make(map[string]*product.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}

	items := make([]Item, 0, len(lines))
	subtotal := decimal.Zero
	for _, line := range lines {
		p, ok := byID[line.ProductID]
		if !ok {
			return nil, Totals{}, &ProductNotFoundError{ProductID: line.ProductID}
		}
		if p.Stock < line.Quantity {
			return nil, Totals{}, &InsufficientStockError{ProductName: p.Name, Available: p.Stock}
		}
		items = append(items, Item{
			ProductID: p.ID,
			Quantity:  line.Quantity,
			Price:     p.Price,
		})
		subtotal = subtotal.Add(p.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}

	subtotal = subtotal.Round(2)
	shipping := cfg.ShippingFee
	if subtotal.GreaterThanOrEqual(cfg.FreeShippingThreshold) {
		shipping = decimal.Zero
	}
	tax := subtotal.Mul(cfg.TaxRate).Div(oneHundred).Round(2)
	totals := Totals{
		Subtotal: subtotal,
		Tax:      tax,
		Shipping: shipping,
		Total:    subtotal.Add(tax).Add(shipping).Round(2),
	}
	return items, totals, nil
}
