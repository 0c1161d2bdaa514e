package order

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/ameliamart/storefront/internal/product"
)

func testConfig() PricingConfig {
	return PricingConfig{
		TaxRate:               decimal.NewFromFloat(2.5),
		ShippingFee:           decimal.NewFromInt(10),
		FreeShippingThreshold: decimal.NewFromInt(100),
	}
}

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad decimal %q: %v", s, err)
	}
	return d
}

func TestPriceCart_FreeShippingOverThreshold(t *testing.T) {
	t.Parallel()

	products := []product.Product{
		{ID: "p1", Name: "Basmati Rice", Price: dec(t, "45"), Stock: 10},
		{ID: "p2", Name: "Tomatoes", Price: dec(t, "25"), Stock: 10},
	}
	lines := []CartLine{
		{ProductID: "p1", Quantity: 2},
		{ProductID: "p2", Quantity: 1},
	}

	items, totals, err := PriceCart(products, lines, testConfig())
	if err != nil {
		t.Fatalf("PriceCart: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("items=%d, want 2", len(items))
	}
	if got := totals.Subtotal; !got.Equal(dec(t, "115")) {
		t.Errorf("subtotal=%s, want 115", got)
	}
	if got := totals.Shipping; !got.IsZero() {
		t.Errorf("shipping=%s, want 0 (subtotal over threshold)", got)
	}
	if got := totals.Tax; !got.Equal(dec(t, "2.88")) {
		t.Errorf("tax=%s, want 2.88", got)
	}
	if got := totals.Total; !got.Equal(dec(t, "117.88")) {
		t.Errorf("total=%s, want 117.88", got)
	}
}

func TestPriceCart_ShippingBelowThreshold(t *testing.T) {
	t.Parallel()

	products := []product.Product{
		{ID: "p1", Name: "Coffee", Price: dec(t, "50"), Stock: 3},
	}
	lines := []CartLine{{ProductID: "p1", Quantity: 1}}

	_, totals, err := PriceCart(products, lines, testConfig())
	if err != nil {
		t.Fatalf("PriceCart: %v", err)
	}
	if got := totals.Shipping; !got.Equal(dec(t, "10")) {
		t.Errorf("shipping=%s, want 10", got)
	}
	// 50 + 1.25 tax + 10 shipping
	if got := totals.Total; !got.Equal(dec(t, "61.25")) {
		t.Errorf("total=%s, want 61.25", got)
	}
}

func TestPriceCart_PriceComesFromCatalog(t *testing.T) {
	t.Parallel()

	products := []product.Product{
		{ID: "p1", Name: "Mangoes", Price: dec(t, "80"), Stock: 5},
	}
	// CartLine has no price field at all; whatever the client claimed was
	// dropped at the boundary. The snapshot must match the catalog row.
	items, _, err := PriceCart(products, []CartLine{{ProductID: "p1", Quantity: 2}}, testConfig())
	if err != nil {
		t.Fatalf("PriceCart: %v", err)
	}
	if !items[0].Price.Equal(dec(t, "80")) {
		t.Errorf("item price=%s, want catalog price 80", items[0].Price)
	}
}

func TestPriceCart_UnknownProduct(t *testing.T) {
	t.Parallel()

	_, _, err := PriceCart(nil, []CartLine{{ProductID: "ghost", Quantity: 1}}, testConfig())
	var notFound *ProductNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("err=%v, want ProductNotFoundError", err)
	}
	if notFound.ProductID != "ghost" {
		t.Errorf("product id=%s, want ghost", notFound.ProductID)
	}
}

func TestPriceCart_InsufficientStock(t *testing.T) {
	t.Parallel()

	products := []product.Product{
		{ID: "p1", Name: "Watermelon", Price: dec(t, "30"), Stock: 1},
	}
	_, _, err := PriceCart(products, []CartLine{{ProductID: "p1", Quantity: 2}}, testConfig())
	var short *InsufficientStockError
	if !errors.As(err, &short) {
		t.Fatalf("err=%v, want InsufficientStockError", err)
	}
	if short.ProductName != "Watermelon" || short.Available != 1 {
		t.Errorf("got %q/%d, want Watermelon/1", short.ProductName, short.Available)
	}
}
